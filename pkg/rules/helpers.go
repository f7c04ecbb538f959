package rules

import (
	"fmt"
	"strings"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/schema"
	"github.com/gitlabtools/gl-lint/pkg/yamldoc"
)

// finding builds a diagnostic for a job-scoped check. The engine fills in
// Code, Severity, and File. A nil span falls back to the job's name span.
func finding(job *schema.JobSpec, span *yamldoc.Span, message, help string) lint.Diagnostic {
	d := lint.Diagnostic{Message: message, Help: help, Span: span}
	if job != nil {
		d.Job = job.Name
		if d.Span == nil {
			d.Span = job.NameSpan
		}
	}
	return d
}

func findingf(job *schema.JobSpec, span *yamldoc.Span, help, format string, args ...any) lint.Diagnostic {
	return finding(job, span, fmt.Sprintf(format, args...), help)
}

// allScripts returns script, before_script, and after_script lines in
// that order, each with its span.
func allScripts(job *schema.JobSpec) []schema.StringField {
	var lines []schema.StringField
	for _, list := range []*schema.ListField{job.Script, job.BeforeScript, job.AfterScript} {
		if list != nil {
			lines = append(lines, list.Items...)
		}
	}
	return lines
}

// stageName returns the job's stage, defaulting to "test" as GitLab does.
func stageName(job *schema.JobSpec) string {
	if job.Stage != nil {
		return job.Stage.Value
	}
	return "test"
}

// classifyJob buckets a job by name for type-sensitive heuristics.
func classifyJob(name string) string {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "test", "spec", "check", "lint"):
		return "test"
	case containsAny(lower, "build", "compile", "package"):
		return "build"
	case containsAny(lower, "deploy", "release", "publish"):
		return "deploy"
	case containsAny(lower, "clean", "setup"):
		return "utility"
	default:
		return "unknown"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// cacheEntries normalizes a cache field to its entry list; GitLab allows
// both a single mapping and a sequence of mappings.
func cacheEntries(cache *yamldoc.Node) []*yamldoc.Node {
	if cache == nil {
		return nil
	}
	if cache.IsSequence() {
		return cache.Items
	}
	if cache.IsMapping() {
		return []*yamldoc.Node{cache}
	}
	return nil
}

// cachePaths collects all path strings across a job's cache entries.
func cachePaths(cache *yamldoc.Node) []string {
	var paths []string
	for _, entry := range cacheEntries(cache) {
		paths = append(paths, entry.Get("paths").StringItems()...)
	}
	return paths
}

// needsNames extracts job names from a needs list; entries may be plain
// strings or mappings with a "job" key.
func needsNames(needs *yamldoc.Node) []schema.StringField {
	if needs == nil || !needs.IsSequence() {
		return nil
	}
	var names []schema.StringField
	for _, item := range needs.Items {
		switch {
		case item.IsScalar():
			names = append(names, schema.StringField{Value: item.Value, Span: spanPtr(item.Span)})
		case item.IsMapping():
			if job := item.Get("job"); job.IsScalar() {
				names = append(names, schema.StringField{Value: job.Value, Span: spanPtr(job.Span)})
			}
		}
	}
	return names
}

// environmentName extracts the environment name from either the scalar
// or the mapping form.
func environmentName(env *yamldoc.Node) (string, *yamldoc.Span, bool) {
	switch {
	case env.IsScalar():
		return env.Value, spanPtr(env.Span), true
	case env.IsMapping():
		if name := env.Get("name"); name.IsScalar() {
			return name.Value, spanPtr(name.Span), true
		}
	}
	return "", nil, false
}

// ruleEntries returns the mapping entries of a job's rules list.
func ruleEntries(rulesNode *yamldoc.Node) []*yamldoc.Node {
	if rulesNode == nil || !rulesNode.IsSequence() {
		return nil
	}
	var entries []*yamldoc.Node
	for _, item := range rulesNode.Items {
		if item.IsMapping() {
			entries = append(entries, item)
		}
	}
	return entries
}

// variablePairs returns the entries of a variables mapping. Values may be
// scalars or the long form with a "value" key; the scalar value node is
// returned either way.
func variablePairs(vars *yamldoc.Node) []yamldoc.Pair {
	if !vars.IsMapping() {
		return nil
	}
	pairs := make([]yamldoc.Pair, 0, len(vars.Pairs))
	for _, pair := range vars.Pairs {
		value := pair.Value
		if value.IsMapping() {
			if inner := value.Get("value"); inner.IsScalar() {
				value = inner
			}
		}
		pairs = append(pairs, yamldoc.Pair{Key: pair.Key, KeySpan: pair.KeySpan, Value: value})
	}
	return pairs
}

func spanPtr(s yamldoc.Span) *yamldoc.Span {
	return &s
}
