package rules

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/schema"
	"github.com/gitlabtools/gl-lint/pkg/yamldoc"
)

// defaultStages are GitLab's implicit stages when none are declared.
var defaultStages = []string{".pre", "build", "test", "deploy", ".post"}

// checkJobHasWork implements GL001. A job must end up with something to
// execute once its extends chain is resolved; a configuration with no
// jobs and no stages is flagged as a whole.
func checkJobHasWork(ctx *Context) []lint.Diagnostic {
	jobs := ctx.ActiveJobs()
	if len(jobs) == 0 && ctx.Config.Stages == nil {
		return []lint.Diagnostic{finding(nil, nil,
			"configuration must contain at least one job or a stages list",
			"add a job definition or a stages list")}
	}

	var out []lint.Diagnostic
	for _, job := range jobs {
		resolved := ctx.Effective(job)
		if resolved.Script == nil && resolved.Trigger == nil && resolved.Run == nil {
			out = append(out, finding(job, nil,
				"job has no script, trigger, or run, even after resolving extends",
				"add a script section with commands to execute"))
		}
	}
	return out
}

// checkStagesDeclared implements GL002.
func checkStagesDeclared(ctx *Context) []lint.Diagnostic {
	jobs := ctx.ActiveJobs()
	if len(jobs) == 0 {
		return nil
	}

	declared := map[string]bool{".pre": true, ".post": true}
	if ctx.Config.Stages != nil {
		for _, stage := range ctx.Config.Stages.Values() {
			declared[stage] = true
		}
	} else {
		for _, stage := range defaultStages {
			declared[stage] = true
		}
	}

	var out []lint.Diagnostic
	used := map[string]bool{}
	for _, job := range jobs {
		stage := stageName(job)
		used[stage] = true
		if !declared[stage] {
			span := job.NameSpan
			if job.Stage != nil && job.Stage.Span != nil {
				span = job.Stage.Span
			}
			out = append(out, findingf(job, span,
				"add '"+stage+"' to the stages list or use one of: "+joinSorted(declared),
				"job uses undefined stage %q", stage))
		}
	}

	if ctx.Config.Stages != nil {
		var unused []string
		for _, stage := range ctx.Config.Stages.Values() {
			if !used[stage] && stage != ".pre" && stage != ".post" {
				unused = append(unused, stage)
			}
		}
		if len(unused) > 0 {
			sort.Strings(unused)
			out = append(out, findingf(nil, ctx.Config.Stages.Span,
				"remove unused stages or add jobs that use them",
				"unused stages defined: %s", strings.Join(unused, ", ")))
		}
	}
	return out
}

func joinSorted(set map[string]bool) string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// checkDependencies implements GL003: unknown targets, cycles,
// unreachable jobs, and stage ordering that needs could shortcut.
func checkDependencies(ctx *Context) []lint.Diagnostic {
	jobs := ctx.ActiveJobs()
	if len(jobs) == 0 {
		return nil
	}

	known := map[string]bool{}
	for _, job := range jobs {
		known[job.Name] = true
	}

	var out []lint.Diagnostic
	deps := map[string][]string{}
	needs := map[string][]string{}

	for _, job := range jobs {
		if job.Dependencies != nil {
			for _, dep := range job.Dependencies.Items {
				if !known[dep.Value] {
					out = append(out, findingf(job, dep.Span,
						"remove the dependency or create the missing job",
						"job depends on non-existent job %q", dep.Value))
					continue
				}
				deps[job.Name] = append(deps[job.Name], dep.Value)
			}
		}
		for _, need := range needsNames(job.Needs) {
			if !known[need.Value] {
				out = append(out, findingf(job, need.Span,
					"remove the need or create the missing job",
					"job needs non-existent job %q", need.Value))
				continue
			}
			needs[job.Name] = append(needs[job.Name], need.Value)
		}
	}

	out = append(out, reportCycles(jobs, deps, "dependencies")...)
	out = append(out, reportCycles(jobs, needs, "needs")...)
	out = append(out, reportUnreachable(ctx, jobs, deps, needs)...)
	out = append(out, reportStageOrdering(ctx, jobs, needs)...)
	return out
}

func reportCycles(jobs []*schema.JobSpec, graph map[string][]string, kind string) []lint.Diagnostic {
	var hasCycle func(name string, path map[string]bool) bool
	hasCycle = func(name string, path map[string]bool) bool {
		if path[name] {
			return true
		}
		path[name] = true
		for _, next := range graph[name] {
			if hasCycle(next, path) {
				return true
			}
		}
		delete(path, name)
		return false
	}

	var out []lint.Diagnostic
	for _, job := range jobs {
		if len(graph[job.Name]) == 0 {
			continue
		}
		if hasCycle(job.Name, map[string]bool{}) {
			out = append(out, findingf(job, nil,
				"review and break the circular "+kind+" chain",
				"circular dependency detected in %s", kind))
		}
	}
	return out
}

func reportUnreachable(ctx *Context, jobs []*schema.JobSpec, deps, needs map[string][]string) []lint.Diagnostic {
	firstStage := "build"
	if ctx.Config.Stages != nil {
		if values := ctx.Config.Stages.Values(); len(values) > 0 {
			firstStage = values[0]
		}
	}

	referenced := map[string]bool{}
	for _, graph := range []map[string][]string{deps, needs} {
		for _, targets := range graph {
			for _, target := range targets {
				referenced[target] = true
			}
		}
	}

	var out []lint.Diagnostic
	for _, job := range jobs {
		stage := stageName(job)
		if stage == firstStage || stage == ".pre" || referenced[job.Name] {
			continue
		}
		if job.When != nil && (job.When.Value == "manual" || job.When.Value == "delayed") {
			continue
		}
		if hasManualRule(job.Rules) {
			continue
		}
		out = append(out, finding(job, nil,
			"job may be unreachable: not in the first stage and not referenced by other jobs",
			"connect the job via dependencies, needs, or stage ordering"))
	}
	return out
}

func hasManualRule(rulesNode *yamldoc.Node) bool {
	for _, entry := range ruleEntries(rulesNode) {
		if when := entry.Get("when"); when.IsScalar() && when.Value == "manual" {
			return true
		}
	}
	return false
}

func reportStageOrdering(ctx *Context, jobs []*schema.JobSpec, needs map[string][]string) []lint.Diagnostic {
	if ctx.Config.Stages == nil {
		return nil
	}
	stages := ctx.Config.Stages.Values()
	if len(stages) <= 2 {
		return nil
	}

	stageJobs := map[string][]*schema.JobSpec{}
	for _, job := range jobs {
		stage := stageName(job)
		stageJobs[stage] = append(stageJobs[stage], job)
	}

	var out []lint.Diagnostic
	for i := 1; i < len(stages); i++ {
		earlier := 0
		for j := 0; j < i; j++ {
			earlier += len(stageJobs[stages[j]])
		}
		if earlier <= 3 {
			continue
		}
		for _, job := range stageJobs[stages[i]] {
			if len(needs[job.Name]) > 0 {
				continue
			}
			out = append(out, finding(job, nil,
				"job relies on stage ordering but could use needs for faster execution",
				"use needs to name the exact jobs this one waits for"))
		}
	}
	return out
}

// checkIncludeVersioning implements GL004.
func checkIncludeVersioning(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, inc := range ctx.Config.Includes {
		if inc.Project != nil && inc.File != nil {
			switch {
			case inc.Ref == nil:
				out = append(out, findingf(nil, inc.Span,
					"add 'ref: v1.0.0' or a commit hash for reproducible builds",
					"project include missing ref: %s", inc.Project.Value))
			case isUnstableRef(inc.Ref.Value):
				out = append(out, findingf(nil, inc.Ref.Span,
					"use a specific tag or commit hash instead of a branch name",
					"project include uses unstable ref %q: %s", inc.Ref.Value, inc.Project.Value))
			}
		}
		if inc.Remote != nil {
			url := inc.Remote.Value
			if hasUnstableBranchInURL(url) {
				out = append(out, findingf(nil, inc.Remote.Span,
					"use a specific tag or commit hash in the URL",
					"remote include uses unstable branch in URL: %s", url))
			}
			if strings.Contains(url, "raw.githubusercontent.com") &&
				(strings.Contains(url, "/main/") || strings.Contains(url, "/master/")) {
				out = append(out, findingf(nil, inc.Remote.Span,
					"replace the branch name with a specific commit hash",
					"GitHub raw include uses branch instead of commit: %s", url))
			}
		}
	}
	return out
}

var (
	commitHashPattern = regexp.MustCompile(`^[a-f0-9]{7,12}$|^[a-f0-9]{40}$`)
	branchNamePattern = regexp.MustCompile(`^[a-zA-Z][\w\-]*$`)
	anyDigitPattern   = regexp.MustCompile(`\d`)
)

// isUnstableRef reports whether an include ref points at something that
// moves: a branch-like name rather than a tag or commit.
func isUnstableRef(ref string) bool {
	if _, err := semver.NewVersion(strings.TrimPrefix(ref, "v")); err == nil {
		return false
	}
	if commitHashPattern.MatchString(ref) {
		return false
	}
	lower := strings.ToLower(ref)
	switch lower {
	case "main", "master", "develop", "dev", "latest":
		return true
	}
	if containsAny(lower, "branch", "head", "tip") {
		return true
	}
	return branchNamePattern.MatchString(ref) && !anyDigitPattern.MatchString(ref)
}

func hasUnstableBranchInURL(url string) bool {
	lower := strings.ToLower(url)
	return containsAny(lower,
		"/main/", "/master/", "/develop/", "/dev/", "/latest/",
		"/heads/main", "/heads/master", "/heads/develop")
}

var snakeCasePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

// checkJobNaming implements GL022. Template names are exempt; their
// leading dot is load-bearing.
func checkJobNaming(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		issues := nameIssues(job.Name)
		if len(issues) == 0 {
			continue
		}
		out = append(out, findingf(job, nil,
			"use snake_case format, e.g. "+suggestName(job.Name),
			"job name %q %s", job.Name, strings.Join(issues, "; ")))
	}
	return out
}

func nameIssues(name string) []string {
	var issues []string
	if strings.Contains(name, " ") {
		issues = append(issues, "contains spaces")
	}
	if name != strings.ToLower(name) {
		issues = append(issues, "contains capital letters")
	}
	var prohibited []string
	for _, ch := range []string{"/", `\`, "-"} {
		if strings.Contains(name, ch) {
			prohibited = append(prohibited, ch)
		}
	}
	if len(prohibited) > 0 {
		issues = append(issues, "contains prohibited characters: "+strings.Join(prohibited, ", "))
	}
	if len(issues) == 0 && !snakeCasePattern.MatchString(name) {
		issues = append(issues, "does not follow snake_case pattern")
	}
	if strings.Contains(name, "__") {
		issues = append(issues, "contains double underscores")
	}
	if strings.HasPrefix(name, "_") || strings.HasSuffix(name, "_") {
		issues = append(issues, "starts or ends with underscore")
	}
	return issues
}

var (
	nonSnakeChars     = regexp.MustCompile(`[^a-z0-9_]`)
	repeatUnderscores = regexp.MustCompile(`_+`)
)

func suggestName(name string) string {
	suggested := strings.ToLower(name)
	suggested = nonSnakeChars.ReplaceAllString(suggested, "_")
	suggested = repeatUnderscores.ReplaceAllString(suggested, "_")
	suggested = strings.Trim(suggested, "_")
	if suggested == "" {
		suggested = "job"
	}
	return suggested
}

// checkStageCompleteness implements GL023.
func checkStageCompleteness(ctx *Context) []lint.Diagnostic {
	type stageEntry struct {
		name string
		span *yamldoc.Span
	}
	var stages []stageEntry
	if ctx.Config.Stages != nil {
		for _, item := range ctx.Config.Stages.Items {
			stages = append(stages, stageEntry{name: item.Value, span: item.Span})
		}
	} else {
		for _, name := range []string{"build", "test", "deploy"} {
			stages = append(stages, stageEntry{name: name})
		}
	}

	counts := map[string]int{}
	for _, job := range ctx.ActiveJobs() {
		if !jobIsActive(job) {
			continue
		}
		counts[stageName(job)]++
	}

	var out []lint.Diagnostic
	for _, stage := range stages {
		if counts[stage.name] > 0 || stage.name == ".pre" || stage.name == ".post" {
			continue
		}
		out = append(out, findingf(nil, stage.span,
			"remove the stage from the stages list or add jobs to it",
			"stage %q has no active jobs", stage.name))
	}
	return out
}

// jobIsActive reports whether a job can ever run: not excluded by
// only:never and not guarded by rules that are all when:never.
func jobIsActive(job *schema.JobSpec) bool {
	if job.Only != nil && job.Only.IsSequence() {
		for _, item := range job.Only.Items {
			if item.IsScalar() && item.Value == "never" {
				return false
			}
		}
	}
	entries := ruleEntries(job.Rules)
	if len(entries) == 0 {
		return true
	}
	for _, entry := range entries {
		when := entry.Get("when")
		if !when.IsScalar() || when.Value != "never" {
			return true
		}
	}
	return false
}
