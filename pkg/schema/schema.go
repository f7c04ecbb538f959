// Package schema binds a yamldoc tree to a typed view of a GitLab CI
// configuration. Binding is tolerant: a malformed field is reported as a
// diagnostic and omitted, never aborting the whole file, so rules still
// run against everything that did bind.
//
// Every bound field pairs its value with the span it was read from.
// Absent fields are nil and are never blamed for a location.
package schema

import (
	"fmt"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/logger"
	"github.com/gitlabtools/gl-lint/pkg/yamldoc"
)

var bindLog = logger.New("schema:bind")

// StringField is a scalar value plus the span it was bound from. Span is
// nil when the value was inherited through extends.
type StringField struct {
	Value string
	Span  *yamldoc.Span
}

// BoolField is a boolean value plus the span it was bound from.
type BoolField struct {
	Value bool
	Span  *yamldoc.Span
}

// ListField is a list of scalar values. A lone scalar in the source binds
// as a single-item list, so "script: make" and "script: [make]" look the
// same to rules.
type ListField struct {
	Items []StringField
	Span  *yamldoc.Span
}

// Values returns the raw item values.
func (f *ListField) Values() []string {
	if f == nil {
		return nil
	}
	values := make([]string, 0, len(f.Items))
	for _, item := range f.Items {
		values = append(values, item.Value)
	}
	return values
}

// Include is one entry of the top-level include list.
type Include struct {
	Span     *yamldoc.Span
	Local    *StringField
	Remote   *StringField
	Template *StringField
	Project  *StringField
	File     *StringField
	Ref      *StringField
}

// JobSpec is the typed view of one job (or job template) definition.
// Node fields hold the raw subtree for shapes rules inspect structurally.
type JobSpec struct {
	Name     string
	NameSpan *yamldoc.Span
	Node     *yamldoc.Node

	// Template is true for hidden ".name" jobs, which only exist to be
	// extended and are skipped by job hygiene rules.
	Template bool

	Stage         *StringField
	Image         *StringField
	Script        *ListField
	BeforeScript  *ListField
	AfterScript   *ListField
	Extends       *ListField
	Variables     *yamldoc.Node
	Cache         *yamldoc.Node
	Artifacts     *yamldoc.Node
	Rules         *yamldoc.Node
	Only          *yamldoc.Node
	Except        *yamldoc.Node
	Parallel      *yamldoc.Node
	Timeout       *StringField
	Interruptible *BoolField
	Tags          *ListField
	Environment   *yamldoc.Node
	Needs         *yamldoc.Node
	Dependencies  *ListField
	Services      *yamldoc.Node
	AllowFailure  *yamldoc.Node
	When          *StringField
	Retry         *yamldoc.Node
	Trigger       *yamldoc.Node
	Run           *yamldoc.Node
}

// BoundConfig is the typed view of a whole pipeline configuration.
type BoundConfig struct {
	Root      *yamldoc.Node
	Stages    *ListField
	Variables *yamldoc.Node
	Default   *yamldoc.Node
	Workflow  *yamldoc.Node
	Includes  []Include
	Image     *StringField

	// Jobs holds all jobs in source order, templates included.
	Jobs []*JobSpec
}

// Job returns the job with the given name, or nil.
func (c *BoundConfig) Job(name string) *JobSpec {
	for _, job := range c.Jobs {
		if job.Name == name {
			return job
		}
	}
	return nil
}

// ActiveJobs returns the non-template jobs in source order.
func (c *BoundConfig) ActiveJobs() []*JobSpec {
	jobs := make([]*JobSpec, 0, len(c.Jobs))
	for _, job := range c.Jobs {
		if !job.Template {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// reservedKeys are top-level keys that are not job definitions.
var reservedKeys = map[string]bool{
	"stages":        true,
	"variables":     true,
	"default":       true,
	"include":       true,
	"workflow":      true,
	"image":         true,
	"services":      true,
	"before_script": true,
	"after_script":  true,
	"cache":         true,
	"types":         true,
}

// binder accumulates diagnostics while walking the tree.
type binder struct {
	diags []lint.Diagnostic
}

func (b *binder) report(span *yamldoc.Span, format string, args ...any) {
	b.diags = append(b.diags, lint.Diagnostic{
		Code:     lint.CodeBind,
		Severity: lint.SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

// Bind builds the typed configuration view. Diagnostics describe fields
// that could not be bound; the affected fields are left nil. File is not
// set on the returned diagnostics; the caller stamps it.
func Bind(root *yamldoc.Node) (*BoundConfig, []lint.Diagnostic) {
	b := &binder{}
	config := &BoundConfig{Root: root}

	if !root.IsMapping() {
		b.report(spanOf(root), "top level of a pipeline configuration must be a mapping")
		return config, b.diags
	}

	for _, pair := range root.Pairs {
		switch pair.Key {
		case "stages":
			config.Stages = b.bindList(pair.Key, pair.Value)
		case "variables":
			config.Variables = b.bindMapping(pair.Key, pair.Value)
		case "default":
			config.Default = b.bindMapping(pair.Key, pair.Value)
		case "workflow":
			config.Workflow = b.bindMapping(pair.Key, pair.Value)
		case "include":
			config.Includes = b.bindIncludes(pair.Value)
		case "image":
			config.Image = b.bindImage(pair.Key, pair.Value)
		default:
			if reservedKeys[pair.Key] {
				continue
			}
			if job := b.bindJob(pair); job != nil {
				config.Jobs = append(config.Jobs, job)
			}
		}
	}

	bindLog.Printf("Bound config: %d jobs, %d stages, %d bind diagnostics",
		len(config.Jobs), len(config.Stages.Values()), len(b.diags))
	return config, b.diags
}

func (b *binder) bindJob(pair yamldoc.Pair) *JobSpec {
	if !pair.Value.IsMapping() {
		b.report(spanPtr(pair.KeySpan), "job %q must be a mapping", pair.Key)
		return nil
	}

	job := &JobSpec{
		Name:     pair.Key,
		NameSpan: spanPtr(pair.KeySpan),
		Node:     pair.Value,
		Template: len(pair.Key) > 0 && pair.Key[0] == '.',
	}

	for _, field := range pair.Value.Pairs {
		switch field.Key {
		case "stage":
			job.Stage = b.bindString(field.Key, field.Value)
		case "image":
			job.Image = b.bindImage(field.Key, field.Value)
		case "script":
			job.Script = b.bindList(field.Key, field.Value)
		case "before_script":
			job.BeforeScript = b.bindList(field.Key, field.Value)
		case "after_script":
			job.AfterScript = b.bindList(field.Key, field.Value)
		case "extends":
			job.Extends = b.bindList(field.Key, field.Value)
		case "variables":
			job.Variables = b.bindMapping(field.Key, field.Value)
		case "cache":
			job.Cache = field.Value
		case "artifacts":
			job.Artifacts = b.bindMapping(field.Key, field.Value)
		case "rules":
			job.Rules = b.bindSequence(field.Key, field.Value)
		case "only":
			job.Only = field.Value
		case "except":
			job.Except = field.Value
		case "parallel":
			job.Parallel = field.Value
		case "timeout":
			job.Timeout = b.bindString(field.Key, field.Value)
		case "interruptible":
			job.Interruptible = b.bindBool(field.Key, field.Value)
		case "tags":
			job.Tags = b.bindList(field.Key, field.Value)
		case "environment":
			job.Environment = field.Value
		case "needs":
			job.Needs = field.Value
		case "dependencies":
			job.Dependencies = b.bindList(field.Key, field.Value)
		case "services":
			job.Services = field.Value
		case "allow_failure":
			job.AllowFailure = field.Value
		case "when":
			job.When = b.bindString(field.Key, field.Value)
		case "retry":
			job.Retry = field.Value
		case "trigger":
			job.Trigger = field.Value
		case "run":
			job.Run = field.Value
		}
	}
	return job
}

// bindImage accepts both the scalar form and the mapping form with a
// "name" key; only the image reference itself is bound.
func (b *binder) bindImage(key string, node *yamldoc.Node) *StringField {
	if node.IsMapping() {
		name := node.Get("name")
		if name == nil {
			b.report(spanOf(node), "%s mapping is missing required key %q", key, "name")
			return nil
		}
		return b.bindString(key+".name", name)
	}
	return b.bindString(key, node)
}

func (b *binder) bindString(key string, node *yamldoc.Node) *StringField {
	if !node.IsScalar() || node.Scalar == yamldoc.NullScalar {
		b.report(spanOf(node), "%s must be a scalar value", key)
		return nil
	}
	return &StringField{Value: node.Value, Span: spanPtr(node.Span)}
}

func (b *binder) bindBool(key string, node *yamldoc.Node) *BoolField {
	if !node.IsScalar() || node.Scalar != yamldoc.BoolScalar {
		b.report(spanOf(node), "%s must be true or false", key)
		return nil
	}
	return &BoolField{Value: node.Value == "true", Span: spanPtr(node.Span)}
}

func (b *binder) bindList(key string, node *yamldoc.Node) *ListField {
	switch {
	case node.IsScalar():
		if node.Scalar == yamldoc.NullScalar {
			b.report(spanOf(node), "%s must not be null", key)
			return nil
		}
		return &ListField{
			Items: []StringField{{Value: node.Value, Span: spanPtr(node.Span)}},
			Span:  spanPtr(node.Span),
		}
	case node.IsSequence():
		field := &ListField{Span: spanPtr(node.Span)}
		for _, item := range node.Items {
			if item.IsSequence() {
				// GitLab allows nested script groups; flatten one level.
				for _, sub := range item.Items {
					if sub.IsScalar() {
						field.Items = append(field.Items, StringField{Value: sub.Value, Span: spanPtr(sub.Span)})
					}
				}
				continue
			}
			if !item.IsScalar() {
				b.report(spanOf(item), "%s entries must be scalar values", key)
				continue
			}
			field.Items = append(field.Items, StringField{Value: item.Value, Span: spanPtr(item.Span)})
		}
		return field
	default:
		b.report(spanOf(node), "%s must be a scalar or a sequence", key)
		return nil
	}
}

func (b *binder) bindMapping(key string, node *yamldoc.Node) *yamldoc.Node {
	if !node.IsMapping() {
		b.report(spanOf(node), "%s must be a mapping", key)
		return nil
	}
	return node
}

func (b *binder) bindSequence(key string, node *yamldoc.Node) *yamldoc.Node {
	if !node.IsSequence() {
		b.report(spanOf(node), "%s must be a sequence", key)
		return nil
	}
	return node
}

func (b *binder) bindIncludes(node *yamldoc.Node) []Include {
	entries := node.Items
	if !node.IsSequence() {
		// A single include may be written without the sequence wrapper.
		entries = []*yamldoc.Node{node}
	}

	var includes []Include
	for _, entry := range entries {
		switch {
		case entry.IsScalar():
			includes = append(includes, Include{
				Span:  spanPtr(entry.Span),
				Local: &StringField{Value: entry.Value, Span: spanPtr(entry.Span)},
			})
		case entry.IsMapping():
			inc := Include{Span: spanPtr(entry.Span)}
			for _, field := range entry.Pairs {
				target := map[string]**StringField{
					"local":    &inc.Local,
					"remote":   &inc.Remote,
					"template": &inc.Template,
					"project":  &inc.Project,
					"file":     &inc.File,
					"ref":      &inc.Ref,
				}[field.Key]
				if target == nil {
					continue
				}
				if field.Key == "file" && field.Value.IsSequence() {
					// "file" may list several paths; GL004 only needs the
					// project/ref pair, so keep the first for context.
					if items := field.Value.StringItems(); len(items) > 0 {
						inc.File = &StringField{Value: items[0], Span: spanPtr(field.Value.Span)}
					}
					continue
				}
				if bound := b.bindString("include."+field.Key, field.Value); bound != nil {
					*target = bound
				}
			}
			includes = append(includes, inc)
		default:
			b.report(spanOf(entry), "include entries must be strings or mappings")
		}
	}
	return includes
}

func spanOf(node *yamldoc.Node) *yamldoc.Span {
	if node == nil {
		return nil
	}
	return spanPtr(node.Span)
}

func spanPtr(s yamldoc.Span) *yamldoc.Span {
	return &s
}
