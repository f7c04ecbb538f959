package rules

import (
	"regexp"
	"strings"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/yamldoc"
)

var packageInstallPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)apt-get\s+(?:update|install)`),
	regexp.MustCompile(`(?i)apt\s+install`),
	regexp.MustCompile(`(?i)yum\s+install`),
	regexp.MustCompile(`(?i)dnf\s+install`),
	regexp.MustCompile(`(?i)apk\s+(?:add|update)`),
	regexp.MustCompile(`(?i)pip\s+install(?:\s+[^-]|\s*$|\s+-[^e])`),
	regexp.MustCompile(`(?i)pip3\s+install(?:\s+[^-]|\s*$|\s+-[^e])`),
	regexp.MustCompile(`(?i)npm\s+install\s+-g`),
	regexp.MustCompile(`(?i)yarn\s+global\s+add`),
	regexp.MustCompile(`(?i)gem\s+install(?:\s+[^-]|\s*$)`),
}

// checkPackageInstallation implements GL007. Lines that mention testing
// or caching are assumed intentional and skipped.
func checkPackageInstallation(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		for _, line := range allScripts(job) {
			lower := strings.ToLower(line.Value)
			if containsAny(lower, "test", "temp", "cache") {
				continue
			}
			for _, pattern := range packageInstallPatterns {
				if pattern.MatchString(line.Value) {
					out = append(out, findingf(job, line.Span,
						"move package installation into the Dockerfile for caching and reproducibility",
						"package installation detected in script: %s", strings.TrimSpace(line.Value)))
					break
				}
			}
		}
	}
	return out
}

// conventionalKeyOrder is the recommended ordering of job keys.
var conventionalKeyOrder = []string{
	"extends", "stage", "image", "services", "variables",
	"before_script", "script", "after_script",
	"environment", "when", "allow_failure", "timeout",
	"dependencies", "needs", "rules", "only", "except",
	"cache", "artifacts", "coverage", "retry",
}

// checkKeyOrder implements GL008. Jobs with three or fewer recognized
// keys are too small to bother.
func checkKeyOrder(ctx *Context) []lint.Diagnostic {
	orderOf := map[string]int{}
	for i, key := range conventionalKeyOrder {
		orderOf[key] = i
	}

	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		var keys []string
		for _, pair := range job.Node.Pairs {
			if _, known := orderOf[pair.Key]; known {
				keys = append(keys, pair.Key)
			}
		}
		if len(keys) <= 3 {
			continue
		}
		sorted := true
		for i := 1; i < len(keys); i++ {
			if orderOf[keys[i-1]] > orderOf[keys[i]] {
				sorted = false
				break
			}
		}
		if !sorted {
			want := append([]string(nil), keys...)
			sortByOrder(want, orderOf)
			out = append(out, findingf(job, nil,
				"reorder keys: "+strings.Join(want, ", "),
				"job keys are not in the conventional order"))
		}
	}
	return out
}

func sortByOrder(keys []string, orderOf map[string]int) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && orderOf[keys[j-1]] > orderOf[keys[j]]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
}

var genericCacheKeys = map[string]bool{
	"cache": true, "build": true, "deps": true, "dependencies": true,
}

// checkCacheConfiguration implements GL009.
func checkCacheConfiguration(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		for _, entry := range cacheEntries(job.Cache) {
			key := entry.Get("key")
			switch {
			case key == nil:
				out = append(out, finding(job, spanPtr(entry.Span),
					"cache configuration missing key",
					"add a cache key for isolation, e.g. $CI_COMMIT_REF_SLUG-deps"))
			case key.IsScalar() && genericCacheKeys[strings.ToLower(key.Value)]:
				out = append(out, findingf(job, spanPtr(key.Span),
					"use a more specific key like $CI_COMMIT_REF_SLUG-deps or a files-based key",
					"cache key is too generic: %q", key.Value))
			}
			if entry.Get("paths") == nil {
				out = append(out, finding(job, spanPtr(entry.Span),
					"cache configuration missing paths",
					"list the paths that should be cached"))
			}
		}
	}
	return out
}

var releaseJobKeywords = []string{"release", "deploy", "production", "publish"}

// checkArtifactsExpiration implements GL010.
func checkArtifactsExpiration(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		if job.Artifacts == nil {
			continue
		}
		expire := job.Artifacts.Get("expire_in")
		if expire == nil {
			if containsAny(strings.ToLower(job.Name), releaseJobKeywords...) {
				continue
			}
			out = append(out, finding(job, spanPtr(job.Artifacts.Span),
				"artifacts missing expiration setting",
				"add expire_in to the artifacts configuration, e.g. '1 week'"))
			continue
		}
		if expire.IsScalar() && containsAny(strings.ToLower(expire.Value), "year", "never") {
			out = append(out, findingf(job, spanPtr(expire.Span),
				"shorter expiration periods save storage",
				"artifacts have very long expiration: %s", expire.Value))
		}
	}
	return out
}

// checkInterruptible implements GL011.
func checkInterruptible(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		lower := strings.ToLower(job.Name)
		if containsAny(lower, "deploy", "release", "publish", "production") {
			continue
		}

		jobType := ""
		switch {
		case containsAny(lower, "test", "spec", "check", "lint", "verify"):
			jobType = "test"
		case containsAny(lower, "build", "compile", "package"):
			jobType = "build"
		case job.Timeout != nil && containsAny(strings.ToLower(job.Timeout.Value), "hour", "h"):
			jobType = "long-running"
		}
		if jobType == "" {
			continue
		}

		if job.Interruptible != nil && job.Interruptible.Value {
			continue
		}
		out = append(out, findingf(job, nil,
			"add 'interruptible: true' so superseded pipelines are cancelled",
			"consider making %s job interruptible for fail-fast behavior", jobType))
	}
	return out
}

// checkReviewApps implements GL021: review app environments must clean
// up after themselves via on_stop.
func checkReviewApps(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		if job.Environment == nil {
			continue
		}
		name, span, ok := environmentName(job.Environment)
		if !ok {
			continue
		}
		if !strings.Contains(name, "review/") && !strings.Contains(name, "$CI_COMMIT_REF_SLUG") {
			continue
		}
		if job.Environment.IsMapping() && job.Environment.Get("on_stop") != nil {
			continue
		}
		out = append(out, findingf(job, span,
			"add on_stop with a teardown job to the environment configuration",
			"review app environment %q should have an on_stop action to clean up resources", name))
	}
	return out
}

// checkAllowFailure implements GL024.
func checkAllowFailure(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		af := job.AllowFailure
		if af == nil {
			continue
		}
		bare := af.IsScalar() && af.Scalar == yamldoc.BoolScalar && af.Value == "true"
		mappingWithout := af.IsMapping() && af.Get("exit_codes") == nil
		if bare || mappingWithout {
			out = append(out, finding(job, spanPtr(af.Span),
				"job uses allow_failure without specifying exit_codes",
				"use allow_failure: { exit_codes: [...] } to name acceptable exit codes"))
		}
	}
	return out
}
