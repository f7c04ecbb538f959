package schema

// EffectiveJob resolves a job's extends chain into a merged view. Parents
// apply first (depth-first, in declaration order), the job's own fields
// win last. Inherited scalar and list fields carry nil spans so rules
// only ever point at lines the job wrote itself; inherited subtree fields
// keep the defining template's node. Unknown extends targets and cycles
// are skipped; GL003 reports them separately.
func (c *BoundConfig) EffectiveJob(job *JobSpec) *JobSpec {
	if job.Extends == nil {
		return job
	}
	merged := &JobSpec{
		Name:     job.Name,
		NameSpan: job.NameSpan,
		Node:     job.Node,
		Template: job.Template,
	}
	visited := map[string]bool{job.Name: true}
	c.applyParents(merged, job, visited)
	overlay(merged, job, false)
	return merged
}

func (c *BoundConfig) applyParents(merged, job *JobSpec, visited map[string]bool) {
	for _, parent := range job.Extends.Values() {
		target := c.Job(parent)
		if target == nil || visited[parent] {
			continue
		}
		visited[parent] = true
		if target.Extends != nil {
			c.applyParents(merged, target, visited)
		}
		overlay(merged, target, true)
	}
}

// overlay copies src's set fields onto dst. When inherited, scalar and
// list fields are stripped of their spans.
func overlay(dst, src *JobSpec, inherited bool) {
	setString := func(dst **StringField, src *StringField) {
		if src != nil {
			*dst = stripString(src, inherited)
		}
	}
	setList := func(dst **ListField, src *ListField) {
		if src != nil {
			*dst = stripList(src, inherited)
		}
	}

	setString(&dst.Stage, src.Stage)
	setString(&dst.Image, src.Image)
	setList(&dst.Script, src.Script)
	setList(&dst.BeforeScript, src.BeforeScript)
	setList(&dst.AfterScript, src.AfterScript)
	setList(&dst.Tags, src.Tags)
	setList(&dst.Dependencies, src.Dependencies)
	setString(&dst.Timeout, src.Timeout)
	setString(&dst.When, src.When)

	if src.Interruptible != nil {
		field := *src.Interruptible
		if inherited {
			field.Span = nil
		}
		dst.Interruptible = &field
	}

	if src.Variables != nil {
		dst.Variables = src.Variables
	}
	if src.Cache != nil {
		dst.Cache = src.Cache
	}
	if src.Artifacts != nil {
		dst.Artifacts = src.Artifacts
	}
	if src.Rules != nil {
		dst.Rules = src.Rules
	}
	if src.Only != nil {
		dst.Only = src.Only
	}
	if src.Except != nil {
		dst.Except = src.Except
	}
	if src.Parallel != nil {
		dst.Parallel = src.Parallel
	}
	if src.Environment != nil {
		dst.Environment = src.Environment
	}
	if src.Needs != nil {
		dst.Needs = src.Needs
	}
	if src.Services != nil {
		dst.Services = src.Services
	}
	if src.AllowFailure != nil {
		dst.AllowFailure = src.AllowFailure
	}
	if src.Retry != nil {
		dst.Retry = src.Retry
	}
	if src.Trigger != nil {
		dst.Trigger = src.Trigger
	}
	if src.Run != nil {
		dst.Run = src.Run
	}
	if src.Extends != nil {
		dst.Extends = stripList(src.Extends, inherited)
	}
}

func stripString(f *StringField, inherited bool) *StringField {
	if !inherited {
		return f
	}
	return &StringField{Value: f.Value}
}

func stripList(f *ListField, inherited bool) *ListField {
	if !inherited {
		return f
	}
	items := make([]StringField, len(f.Items))
	for i, item := range f.Items {
		items[i] = StringField{Value: item.Value}
	}
	return &ListField{Items: items}
}
