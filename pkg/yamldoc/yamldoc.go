// Package yamldoc parses raw YAML text into a position-tracking document
// tree. Every node carries the line/column range it was read from, mapping
// key order is preserved, and scalar types are kept distinct (the string
// "3.9" and the number 3.9 are different nodes downstream).
//
// The tree is the exclusive owner of its nodes; the schema binder holds
// references into it and never copies subtrees.
package yamldoc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/token"

	"github.com/gitlabtools/gl-lint/pkg/logger"
)

var parseLog = logger.New("yamldoc:parse")

// Kind discriminates the three node variants.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
)

// ScalarType records the YAML type a scalar was parsed as.
type ScalarType int

const (
	StringScalar ScalarType = iota
	IntScalar
	FloatScalar
	BoolScalar
	NullScalar
)

// Span is a 1-based line/column range in the original text. End is
// inclusive of the construct and never precedes Start lexicographically.
type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// String renders the span's start position as "line:col".
func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.StartLine, s.StartCol)
}

// Pair is one key/value entry of a mapping node.
type Pair struct {
	Key     string
	KeySpan Span
	Value   *Node
}

// Node is one node of the document tree.
type Node struct {
	Kind   Kind
	Span   Span
	Scalar ScalarType // valid when Kind == KindScalar
	Value  string     // raw scalar literal, unquoted
	Items  []*Node    // valid when Kind == KindSequence
	Pairs  []Pair     // valid when Kind == KindMapping, source order
}

// ParseError reports malformed YAML: syntax errors, tab indentation,
// duplicate mapping keys, or anchors/tags the binder cannot resolve.
type ParseError struct {
	Message string
	Span    *Span
}

func (e *ParseError) Error() string {
	if e.Span != nil {
		return fmt.Sprintf("%s at %s", e.Message, e.Span)
	}
	return e.Message
}

// Parse parses YAML text into a document tree. It fails on malformed
// input rather than repairing it; duplicate keys within one mapping are a
// hard error, not a silent overwrite.
func Parse(text string) (*Node, error) {
	parseLog.Printf("Parsing document: %d bytes", len(text))

	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Message: "file is empty or contains only comments"}
	}

	file, err := parser.ParseBytes([]byte(text), 0)
	if err != nil {
		return nil, syntaxError(err)
	}

	var body ast.Node
	for _, doc := range file.Docs {
		if doc.Body == nil {
			continue
		}
		if body != nil {
			return nil, &ParseError{Message: "multiple YAML documents are not supported"}
		}
		body = doc.Body
	}
	if body == nil {
		return nil, &ParseError{Message: "file is empty or contains only comments"}
	}

	conv := &converter{anchors: map[string]*Node{}}
	node, perr := conv.convert(body)
	if perr != nil {
		return nil, perr
	}

	parseLog.Print("Parse complete")
	return node, nil
}

// converter walks the goccy AST and builds the document tree, resolving
// anchors and aliases along the way.
type converter struct {
	anchors map[string]*Node
}

func (c *converter) convert(n ast.Node) (*Node, *ParseError) {
	switch v := n.(type) {
	case *ast.MappingNode:
		return c.convertMapping(v.Values)
	case *ast.MappingValueNode:
		// A single-pair block mapping parses as a bare MappingValueNode.
		return c.convertMapping([]*ast.MappingValueNode{v})
	case *ast.SequenceNode:
		return c.convertSequence(v)
	case *ast.AnchorNode:
		return c.convertAnchor(v)
	case *ast.AliasNode:
		return c.convertAlias(v)
	case *ast.TagNode:
		return nil, &ParseError{
			Message: fmt.Sprintf("unsupported YAML tag %q", v.GetToken().Value),
			Span:    spanPtr(tokenSpan(v.GetToken())),
		}
	case *ast.StringNode:
		return scalarNode(v.GetToken(), v.Value, StringScalar), nil
	case *ast.LiteralNode:
		return literalNode(v), nil
	case *ast.IntegerNode:
		return scalarNode(v.GetToken(), v.GetToken().Value, IntScalar), nil
	case *ast.FloatNode:
		return scalarNode(v.GetToken(), v.GetToken().Value, FloatScalar), nil
	case *ast.BoolNode:
		return scalarNode(v.GetToken(), v.GetToken().Value, BoolScalar), nil
	case *ast.NullNode:
		return scalarNode(v.GetToken(), "", NullScalar), nil
	case *ast.InfinityNode, *ast.NanNode:
		return scalarNode(v.GetToken(), v.GetToken().Value, FloatScalar), nil
	default:
		return nil, &ParseError{
			Message: fmt.Sprintf("unsupported YAML construct %T", n),
			Span:    spanPtr(tokenSpan(n.GetToken())),
		}
	}
}

func (c *converter) convertMapping(values []*ast.MappingValueNode) (*Node, *ParseError) {
	node := &Node{Kind: KindMapping}
	seen := map[string]Span{}
	merged := map[string]int{} // key -> index in node.Pairs, set by merge keys

	for _, mv := range values {
		if _, isMerge := mv.Key.(*ast.MergeKeyNode); isMerge {
			if perr := c.mergeInto(node, seen, merged, mv.Value); perr != nil {
				return nil, perr
			}
			continue
		}

		keyTok := mv.Key.GetToken()
		keySpan := tokenSpan(keyTok)
		key := keyTok.Value

		value, perr := c.convert(mv.Value)
		if perr != nil {
			return nil, perr
		}

		// An explicit key replaces the pair a merge key brought in; two
		// explicit occurrences of the same key are still an error.
		if idx, fromMerge := merged[key]; fromMerge {
			node.Pairs[idx] = Pair{Key: key, KeySpan: keySpan, Value: value}
			seen[key] = keySpan
			delete(merged, key)
			continue
		}
		if first, dup := seen[key]; dup {
			return nil, &ParseError{
				Message: fmt.Sprintf("duplicate mapping key %q (first defined at %s)", key, first),
				Span:    spanPtr(keySpan),
			}
		}
		seen[key] = keySpan
		node.Pairs = append(node.Pairs, Pair{Key: key, KeySpan: keySpan, Value: value})
	}

	node.Span = mappingSpan(node)
	return node, nil
}

// mergeInto expands a "<<: *anchor" merge key. Keys set explicitly in the
// mapping win over merged keys, per YAML merge semantics; merged records
// which pairs a later explicit key is allowed to replace.
func (c *converter) mergeInto(node *Node, seen map[string]Span, merged map[string]int, value ast.Node) *ParseError {
	converted, perr := c.convert(value)
	if perr != nil {
		return perr
	}

	sources := []*Node{converted}
	if converted.Kind == KindSequence {
		sources = converted.Items
	}
	for _, src := range sources {
		if src.Kind != KindMapping {
			return &ParseError{
				Message: "merge key value must be a mapping or sequence of mappings",
				Span:    spanPtr(src.Span),
			}
		}
		for _, pair := range src.Pairs {
			if _, exists := seen[pair.Key]; exists {
				continue
			}
			seen[pair.Key] = pair.KeySpan
			merged[pair.Key] = len(node.Pairs)
			node.Pairs = append(node.Pairs, pair)
		}
	}
	return nil
}

func (c *converter) convertAnchor(v *ast.AnchorNode) (*Node, *ParseError) {
	name := v.Name.GetToken().Value
	node, perr := c.convert(v.Value)
	if perr != nil {
		return nil, perr
	}
	c.anchors[name] = node
	return node, nil
}

func (c *converter) convertAlias(v *ast.AliasNode) (*Node, *ParseError) {
	name := v.Value.GetToken().Value
	node, ok := c.anchors[name]
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("unresolvable alias *%s", name),
			Span:    spanPtr(tokenSpan(v.GetToken())),
		}
	}
	return node, nil
}

func (c *converter) convertSequence(v *ast.SequenceNode) (*Node, *ParseError) {
	node := &Node{Kind: KindSequence}
	for _, item := range v.Values {
		child, perr := c.convert(item)
		if perr != nil {
			return nil, perr
		}
		node.Items = append(node.Items, child)
	}
	if len(node.Items) > 0 {
		node.Span = Span{
			StartLine: node.Items[0].Span.StartLine,
			StartCol:  node.Items[0].Span.StartCol,
			EndLine:   node.Items[len(node.Items)-1].Span.EndLine,
			EndCol:    node.Items[len(node.Items)-1].Span.EndCol,
		}
	} else {
		node.Span = tokenSpan(v.GetToken())
	}
	return node, nil
}

func scalarNode(tok *token.Token, value string, st ScalarType) *Node {
	return &Node{Kind: KindScalar, Scalar: st, Value: value, Span: scalarSpan(tok, value)}
}

func literalNode(v *ast.LiteralNode) *Node {
	tok := v.GetToken()
	value := v.Value.Value
	start := tok.Position
	lines := strings.Count(strings.TrimRight(value, "\n"), "\n") + 1
	return &Node{
		Kind:   KindScalar,
		Scalar: StringScalar,
		Value:  value,
		Span: Span{
			StartLine: start.Line,
			StartCol:  start.Column,
			EndLine:   start.Line + lines,
			EndCol:    start.Column,
		},
	}
}

func scalarSpan(tok *token.Token, value string) Span {
	start := tok.Position
	width := len([]rune(value))
	switch tok.Type {
	case token.DoubleQuoteType, token.SingleQuoteType:
		width += 2
	}
	if width == 0 {
		width = len([]rune(tok.Value))
	}
	return Span{
		StartLine: start.Line,
		StartCol:  start.Column,
		EndLine:   start.Line,
		EndCol:    start.Column + width,
	}
}

func tokenSpan(tok *token.Token) Span {
	return scalarSpan(tok, tok.Value)
}

func mappingSpan(node *Node) Span {
	if len(node.Pairs) == 0 {
		return Span{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1}
	}
	first := node.Pairs[0]
	span := Span{
		StartLine: first.KeySpan.StartLine,
		StartCol:  first.KeySpan.StartCol,
	}
	last := node.Pairs[len(node.Pairs)-1]
	span.EndLine = last.Value.Span.EndLine
	span.EndCol = last.Value.Span.EndCol
	if span.EndLine < last.KeySpan.EndLine || (span.EndLine == last.KeySpan.EndLine && span.EndCol < last.KeySpan.EndCol) {
		span.EndLine = last.KeySpan.EndLine
		span.EndCol = last.KeySpan.EndCol
	}
	return span
}

func spanPtr(s Span) *Span {
	return &s
}

// goccy syntax errors embed the position as "[line:col] message".
var syntaxErrPos = regexp.MustCompile(`\[(\d+):(\d+)\]\s*(.*)`)

// The library rejects literal duplicate keys itself, before our
// merge-aware check runs; normalize its wording to match ours.
var duplicateKeyErr = regexp.MustCompile(`mapping key ("[^"]+") already defined at \[(\d+):(\d+)\]`)

func syntaxError(err error) *ParseError {
	message := err.Error()

	var span *Span
	if m := syntaxErrPos.FindStringSubmatch(message); m != nil {
		line, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		span = spanPtr(Span{StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1})
		message = strings.TrimSpace(m[3])
	}
	if i := strings.Index(message, "\n"); i >= 0 {
		message = message[:i]
	}
	if m := duplicateKeyErr.FindStringSubmatch(err.Error()); m != nil {
		message = fmt.Sprintf("duplicate mapping key %s (first defined at %s:%s)", m[1], m[2], m[3])
	}
	if message == "" {
		message = "invalid YAML syntax"
	}
	return &ParseError{Message: message, Span: span}
}
