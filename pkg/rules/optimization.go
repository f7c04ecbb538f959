package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/schema"
	"github.com/gitlabtools/gl-lint/pkg/yamldoc"
)

var variableRefPattern = regexp.MustCompile(`(?i)\$\{?([A-Z_][A-Z0-9_]*)\}?`)

// checkVariableScoping implements GL014: unused globals, globals used by
// a single job, and variables redefined across many jobs.
func checkVariableScoping(ctx *Context) []lint.Diagnostic {
	jobs := ctx.ActiveJobs()

	usage := map[string]map[string]bool{} // variable -> jobs referencing it
	definedIn := map[string][]string{}    // variable -> jobs defining it
	for _, job := range jobs {
		for _, line := range allScripts(job) {
			for _, m := range variableRefPattern.FindAllStringSubmatch(line.Value, -1) {
				name := m[1]
				if usage[name] == nil {
					usage[name] = map[string]bool{}
				}
				usage[name][job.Name] = true
			}
		}
		for _, pair := range variablePairs(job.Variables) {
			definedIn[pair.Key] = append(definedIn[pair.Key], job.Name)
		}
	}

	var out []lint.Diagnostic
	for _, pair := range variablePairs(ctx.Config.Variables) {
		name := pair.Key
		if strings.HasPrefix(name, "CI_") {
			continue
		}
		switch {
		case len(usage[name]) == 0:
			out = append(out, findingf(nil, spanPtr(pair.KeySpan),
				"remove unused global variables or reference them in a script",
				"global variable %q appears to be unused", name))
		case len(usage[name]) == 1:
			out = append(out, findingf(nil, spanPtr(pair.KeySpan),
				"move the variable to the job that uses it for tighter scoping",
				"global variable %q is only used in one job", name))
		}
	}
	for name, definers := range definedIn {
		if len(definers) > 2 {
			out = append(out, findingf(nil, nil,
				"move the variable to global scope or share it via extends",
				"variable %q is defined in multiple jobs: %s", name, strings.Join(definers, ", ")))
		}
	}
	return out
}

// parallelHint pairs a test runner detection with the flag it is missing.
type parallelHint struct {
	match   *regexp.Regexp
	absent  []string
	message string
}

var parallelHints = []parallelHint{
	{regexp.MustCompile(`(?i)npm\s+(?:run\s+)?test|yarn\s+test|jest`), []string{"--maxWorkers", "--parallel"}, "Jest tests could use --maxWorkers"},
	{regexp.MustCompile(`(?i)pytest|py\.test`), []string{"-n", "--numprocesses"}, "pytest could use -n for parallel execution"},
	{regexp.MustCompile(`(?i)rspec|bundle\s+exec\s+rspec`), []string{"--parallel"}, "RSpec could use parallel execution"},
	{regexp.MustCompile(`(?i)go\s+test`), []string{"-parallel"}, "Go tests could use the -parallel flag"},
}

// checkParallelization implements GL015.
func checkParallelization(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		lower := strings.ToLower(job.Name)
		isTest := containsAny(lower, "test", "spec", "check")

		if isTest && job.Script != nil {
			var hints []string
			for _, line := range job.Script.Items {
				for _, h := range parallelHints {
					if h.match.MatchString(line.Value) && !containsAny(line.Value, h.absent...) {
						hints = append(hints, h.message)
					}
				}
			}
			if len(hints) > 0 {
				out = append(out, findingf(job, nil,
					"enable parallel test execution for faster pipelines",
					"test job could benefit from parallelization: %s", strings.Join(hints, "; ")))
			}
		}

		if job.Script != nil && job.Parallel == nil {
			for _, line := range job.Script.Items {
				if versionedToolPattern.MatchString(line.Value) {
					out = append(out, finding(job, nil,
						"job might benefit from matrix builds for version testing",
						"use parallel:matrix to test multiple configurations from one job"))
					break
				}
			}
		}
	}
	return out
}

var versionedToolPattern = regexp.MustCompile(`(?i)(node|python|ruby|php|java)[-_]?\d+\.?\d*`)

var (
	hoursPattern   = regexp.MustCompile(`(?i)(\d+)\s*h(?:our)?s?`)
	minutesPattern = regexp.MustCompile(`(?i)(\d+)\s*m(?:in|inute)?s?`)
)

// checkTimeouts implements GL016.
func checkTimeouts(ctx *Context) []lint.Diagnostic {
	recommended := map[string]string{"test": "15 minutes", "build": "30 minutes", "deploy": "10 minutes"}

	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		jobType := classifyJob(job.Name)

		if job.Timeout == nil {
			if hint, ok := recommended[jobType]; ok {
				out = append(out, findingf(job, nil,
					"add 'timeout: "+hint+"' to prevent hanging pipelines",
					"job lacks timeout setting (type: %s)", jobType))
			}
			continue
		}

		timeout := strings.ToLower(job.Timeout.Value)
		if m := hoursPattern.FindStringSubmatch(timeout); m != nil {
			if hours, err := strconv.Atoi(m[1]); err == nil && hours > 2 {
				out = append(out, findingf(job, job.Timeout.Span,
					"optimize the job or break it into smaller parts",
					"job has very long timeout: %s", job.Timeout.Value))
			}
		}
		if jobType == "build" || jobType == "deploy" {
			if m := minutesPattern.FindStringSubmatch(timeout); m != nil && !strings.Contains(timeout, "h") {
				if minutes, err := strconv.Atoi(m[1]); err == nil && minutes < 5 {
					out = append(out, findingf(job, job.Timeout.Span,
						"allow more time for "+jobType+" jobs",
						"job has very short timeout for %s job: %s", jobType, job.Timeout.Value))
				}
			}
		}
	}
	return out
}

// checkJobReuse implements GL017: structurally similar jobs and repeated
// script prefixes that extends or anchors could share.
func checkJobReuse(ctx *Context) []lint.Diagnostic {
	jobs := ctx.ActiveJobs()

	shapes := map[string][]*schema.JobSpec{}
	for _, job := range jobs {
		shapes[jobShape(job)] = append(shapes[jobShape(job)], job)
	}

	var out []lint.Diagnostic
	for _, group := range shapes {
		if len(group) <= 2 {
			continue
		}
		usesExtends := false
		for _, job := range group {
			if job.Extends != nil {
				usesExtends = true
				break
			}
		}
		if usesExtends {
			continue
		}
		names := make([]string, 0, len(group))
		for _, job := range group {
			names = append(names, job.Name)
		}
		out = append(out, findingf(nil, group[0].NameSpan,
			"create a base job template with the common configuration",
			"similar jobs could use extends or anchors: %s", strings.Join(names, ", ")))
	}

	prefixes := map[string][]string{}
	for _, job := range jobs {
		if job.Script == nil {
			continue
		}
		var head []string
		for i, line := range job.Script.Items {
			if i == 3 {
				break
			}
			head = append(head, strings.ToLower(strings.TrimSpace(line.Value)))
		}
		key := strings.Join(head, "|")
		if len(key) > 20 {
			prefixes[key] = append(prefixes[key], job.Name)
		}
	}
	for _, names := range prefixes {
		if len(names) > 2 {
			out = append(out, findingf(nil, nil,
				"share common script steps via before_script, extends, or anchors",
				"jobs with similar scripts could share common steps: %s", strings.Join(names, ", ")))
		}
	}
	return out
}

func jobShape(job *schema.JobSpec) string {
	var parts []string
	if job.Image != nil {
		parts = append(parts, "image:"+job.Image.Value)
	}
	if job.Stage != nil {
		parts = append(parts, "stage:"+job.Stage.Value)
	}
	if job.Services != nil && job.Services.IsSequence() {
		parts = append(parts, "services:"+strconv.Itoa(len(job.Services.Items)))
	}
	if job.BeforeScript != nil {
		parts = append(parts, "before_script:"+strconv.Itoa(len(job.BeforeScript.Items)))
	}
	if job.Cache != nil {
		parts = append(parts, "has_cache")
	}
	if job.Artifacts != nil {
		parts = append(parts, "has_artifacts")
	}
	return strings.Join(parts, "|")
}

// checkCachePolicy implements GL018: build jobs should push cache, test
// jobs usually only pull.
func checkCachePolicy(ctx *Context) []lint.Diagnostic {
	recommended := map[string]string{"build": "pull-push", "test": "pull", "deploy": "pull"}

	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		jobType := cachePolicyJobType(job.Name)
		for _, entry := range cacheEntries(job.Cache) {
			policy := entry.Get("policy")
			if policy == nil {
				if hint, ok := recommended[jobType]; ok {
					out = append(out, findingf(job, spanPtr(entry.Span),
						"add 'policy: "+hint+"' to the cache configuration",
						"cache missing policy setting for %s job", jobType))
				}
				continue
			}
			if !policy.IsScalar() {
				continue
			}
			switch {
			case jobType == "build" && policy.Value == "pull":
				out = append(out, finding(job, spanPtr(policy.Span),
					"build job uses 'pull' cache policy but should push cache",
					"use 'policy: push' or 'policy: pull-push' for build jobs"))
			case jobType == "test" && policy.Value == "push":
				out = append(out, finding(job, spanPtr(policy.Span),
					"test job uses 'push' cache policy but typically only needs to pull",
					"use 'policy: pull' for test jobs unless they generate cache"))
			}
		}
	}
	return out
}

func cachePolicyJobType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "build", "compile", "install", "setup"):
		return "build"
	case containsAny(lower, "test", "spec", "check", "lint"):
		return "test"
	case containsAny(lower, "deploy", "release", "publish"):
		return "deploy"
	default:
		return "unknown"
	}
}

var lintTools = []string{
	"pylint", "flake8", "black", "isort", "mypy",
	"eslint", "prettier", "tslint",
	"rubocop", "reek",
	"golint", "gofmt", "vet",
	"clippy", "rustfmt",
	"checkstyle", "spotbugs", "shellcheck", "hadolint",
}

// checkLintStage implements GL019.
func checkLintStage(ctx *Context) []lint.Diagnostic {
	var stages []string
	if ctx.Config.Stages != nil {
		stages = ctx.Config.Stages.Values()
	}

	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		if !isLintJob(job) {
			continue
		}

		if len(stages) > 0 {
			early := stages[:min(2, len(stages))]
			stage := stageName(job)
			inEarly := false
			for _, s := range early {
				if s == stage {
					inEarly = true
					break
				}
			}
			if !inEarly {
				out = append(out, findingf(job, nil,
					"move lint jobs to an early stage for faster feedback",
					"lint job is in late stage %q", stage))
			}
		}

		if af := job.AllowFailure; af != nil && af.IsScalar() && af.Value == "true" {
			out = append(out, finding(job, spanPtr(af.Span),
				"lint job allows failure, which weakens quality enforcement",
				"set 'allow_failure: false' so lint findings block the pipeline"))
		}

		var hints []string
		if job.Image != nil && !containsAny(strings.ToLower(job.Image.Value), "alpine", "slim", "minimal") {
			hints = append(hints, "consider a minimal image")
		}
		if job.Artifacts != nil {
			hints = append(hints, "lint jobs typically do not need artifacts")
		}
		if job.Cache != nil && job.Script != nil && len(job.Script.Items) <= 2 {
			script := strings.ToLower(strings.Join(job.Script.Values(), " "))
			if containsAny(script, "flake8", "pylint", "eslint", "rubocop", "golint") {
				hints = append(hints, "simple lint jobs might not need cache")
			}
		}
		if len(hints) > 0 {
			out = append(out, findingf(job, nil,
				"trim lint jobs so they run as fast as possible",
				"lint job could be optimized: %s", strings.Join(hints, "; ")))
		}
	}
	return out
}

func isLintJob(job *schema.JobSpec) bool {
	if containsAny(strings.ToLower(job.Name), "lint", "format", "style", "quality", "check") {
		return true
	}
	if job.Script == nil {
		return false
	}
	script := strings.ToLower(strings.Join(job.Script.Values(), " "))
	return containsAny(script, lintTools...)
}

// checkRuleConditions implements GL025: repeated if conditions and
// branch conditions that contradict each other.
func checkRuleConditions(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		entries := ruleEntries(job.Rules)
		if len(entries) < 2 {
			continue
		}

		seen := map[string]bool{}
		var branchConds []string
		for _, entry := range entries {
			cond := entry.Get("if")
			if !cond.IsScalar() {
				continue
			}
			if seen[cond.Value] {
				out = append(out, findingf(job, spanPtr(cond.Span),
					"remove duplicate rule conditions to simplify the job",
					"duplicate rule condition found: %s", cond.Value))
			}
			seen[cond.Value] = true
			if strings.Contains(cond.Value, "$CI_COMMIT_REF_NAME") || strings.Contains(cond.Value, "$CI_COMMIT_BRANCH") {
				branchConds = append(branchConds, cond.Value)
			}
		}

		if len(branchConds) > 1 {
			hasMain := false
			hasDevelop := false
			for _, cond := range branchConds {
				if containsAny(cond, "main", "master") {
					hasMain = true
				}
				if containsAny(cond, "develop", "dev") {
					hasDevelop = true
				}
			}
			if hasMain && hasDevelop {
				out = append(out, finding(job, nil,
					"potentially conflicting branch conditions in rules",
					"review the rule conditions to ensure they do not conflict"))
			}
		}
	}
	return out
}

var monitoringKeywords = []string{"exporter", "metric", "monitor", "prometheus"}

// checkMonitoring implements GL026: large or long-running pipelines with
// no sign of metrics collection.
func checkMonitoring(ctx *Context) []lint.Diagnostic {
	jobs := ctx.ActiveJobs()

	longRunning := false
	for _, job := range jobs {
		if containsAny(strings.ToLower(job.Name), "deploy", "build", "compile", "test", "e2e", "integration") {
			longRunning = true
			break
		}
		if job.Timeout != nil && timeoutSuggestsLongJob(job.Timeout.Value) {
			longRunning = true
			break
		}
	}
	if len(jobs) < 5 && !longRunning {
		return nil
	}

	for _, pair := range variablePairs(ctx.Config.Variables) {
		probe := strings.ToLower(pair.Key + "=" + pair.Value.Value)
		if containsAny(probe, monitoringKeywords...) {
			return nil
		}
	}

	return []lint.Diagnostic{finding(nil, nil,
		"consider enabling pipeline monitoring for performance insights",
		"set up a pipeline or runner exporter to collect metrics for optimization")}
}

func timeoutSuggestsLongJob(timeout string) bool {
	lower := strings.ToLower(timeout)
	if strings.Contains(lower, "h") {
		return true
	}
	if m := minutesPattern.FindStringSubmatch(lower); m != nil {
		if minutes, err := strconv.Atoi(m[1]); err == nil {
			return minutes > 15
		}
	}
	return false
}

// maxGeneratedJobs is GitLab's hard limit on parallel matrix expansion.
const maxGeneratedJobs = 200

// checkMatrixLimit implements GL033.
func checkMatrixLimit(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		if job.Parallel == nil {
			continue
		}
		total := generatedJobCount(job.Parallel)
		if total > maxGeneratedJobs {
			out = append(out, findingf(job, spanPtr(job.Parallel.Span),
				"reduce the matrix combinations or split into multiple jobs",
				"parallel matrix will generate %d jobs, exceeding GitLab's limit of %d",
				total, maxGeneratedJobs))
		}
	}
	return out
}

// generatedJobCount computes how many jobs a parallel setting expands
// to: a plain count for "parallel: N", or the sum over matrix entries of
// the product of each key's value count (scalars count as one).
func generatedJobCount(parallel *yamldoc.Node) int {
	if parallel.IsScalar() {
		if n, err := strconv.Atoi(parallel.Value); err == nil {
			return n
		}
		return 1
	}
	if !parallel.IsMapping() {
		return 1
	}
	matrix := parallel.Get("matrix")
	if matrix == nil || !matrix.IsSequence() {
		return 1
	}

	total := 0
	for _, entry := range matrix.Items {
		if !entry.IsMapping() {
			total++
			continue
		}
		combinations := 1
		for _, pair := range entry.Pairs {
			if pair.Value.IsSequence() {
				combinations *= len(pair.Value.Items)
			}
		}
		total += combinations
	}
	return total
}
