package yamldoc

// IsMapping reports whether the node is a mapping.
func (n *Node) IsMapping() bool { return n != nil && n.Kind == KindMapping }

// IsSequence reports whether the node is a sequence.
func (n *Node) IsSequence() bool { return n != nil && n.Kind == KindSequence }

// IsScalar reports whether the node is a scalar.
func (n *Node) IsScalar() bool { return n != nil && n.Kind == KindScalar }

// IsStringScalar reports whether the node is a string scalar.
func (n *Node) IsStringScalar() bool {
	return n.IsScalar() && n.Scalar == StringScalar
}

// Get returns the value node for key, or nil when the node is not a
// mapping or the key is absent.
func (n *Node) Get(key string) *Node {
	if !n.IsMapping() {
		return nil
	}
	for _, pair := range n.Pairs {
		if pair.Key == key {
			return pair.Value
		}
	}
	return nil
}

// Lookup returns the full pair for key, with ok reporting presence.
func (n *Node) Lookup(key string) (Pair, bool) {
	if n.IsMapping() {
		for _, pair := range n.Pairs {
			if pair.Key == key {
				return pair, true
			}
		}
	}
	return Pair{}, false
}

// Keys returns the mapping's keys in source order.
func (n *Node) Keys() []string {
	if !n.IsMapping() {
		return nil
	}
	keys := make([]string, 0, len(n.Pairs))
	for _, pair := range n.Pairs {
		keys = append(keys, pair.Key)
	}
	return keys
}

// StringItems returns the scalar string values of a sequence node,
// skipping non-scalar items. A lone scalar is treated as a one-element
// sequence, matching how CI configs allow "script: echo hi".
func (n *Node) StringItems() []string {
	if n == nil {
		return nil
	}
	if n.IsScalar() {
		return []string{n.Value}
	}
	if !n.IsSequence() {
		return nil
	}
	items := make([]string, 0, len(n.Items))
	for _, item := range n.Items {
		if item.IsScalar() {
			items = append(items, item.Value)
		}
	}
	return items
}
