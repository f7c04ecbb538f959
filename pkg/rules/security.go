package rules

import (
	"regexp"
	"strings"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/schema"
	"github.com/gitlabtools/gl-lint/pkg/yamldoc"
)

// secretPattern pairs a detection regex with the kind of credential it
// matches for the diagnostic message.
type secretPattern struct {
	match *regexp.Regexp
	kind  string
}

var secretPatterns = []secretPattern{
	{regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*["']?[^\s"']{8,}["']?`), "password"},
	{regexp.MustCompile(`(?i)(api[-_]?key|apikey)\s*[:=]\s*["']?[^\s"']{16,}["']?`), "API key"},
	{regexp.MustCompile(`(?i)(secret[-_]?key|secretkey)\s*[:=]\s*["']?[^\s"']{16,}["']?`), "secret key"},
	{regexp.MustCompile(`(?i)(access[-_]?token|accesstoken)\s*[:=]\s*["']?[^\s"']{20,}["']?`), "access token"},
	{regexp.MustCompile(`(?i)(private[-_]?key|privatekey)\s*[:=]\s*["']?[^\s"']{32,}["']?`), "private key"},
	{regexp.MustCompile(`(?i)-----BEGIN\s+(RSA\s+)?PRIVATE\s+KEY-----`), "private key block"},
	{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9]{20,}`), "bearer token"},
	{regexp.MustCompile(`(?i)basic\s+[a-zA-Z0-9+/]{16,}={0,2}`), "basic auth"},
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), "AWS access key"},
	{regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`), "GitHub personal access token"},
	{regexp.MustCompile(`(?i)glpat-[a-zA-Z0-9_\-]{20}`), "GitLab personal access token"},
}

const secretsHelp = "use protected CI/CD variables or external secrets for sensitive data"

// checkHardcodedSecrets implements GL012. Values referencing other
// variables with $ are never literals and never flagged.
func checkHardcodedSecrets(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic

	out = append(out, secretsInVariables(nil, ctx.Config.Variables, "global variables")...)

	for _, job := range ctx.ActiveJobs() {
		out = append(out, secretsInVariables(job, job.Variables, "job variables")...)

		for _, line := range allScripts(job) {
			for _, p := range secretPatterns {
				if p.match.MatchString(line.Value) {
					out = append(out, findingf(job, line.Span, secretsHelp,
						"potential %s detected in script", p.kind))
				}
			}
		}

		for _, entry := range ruleEntries(job.Rules) {
			out = append(out, secretsInVariables(job, entry.Get("variables"), "rule variables")...)
		}
	}
	return out
}

func secretsInVariables(job *schema.JobSpec, vars *yamldoc.Node, context string) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, pair := range variablePairs(vars) {
		if !pair.Value.IsScalar() || strings.Contains(pair.Value.Value, "$") {
			continue
		}
		probe := pair.Key + "=" + pair.Value.Value
		for _, p := range secretPatterns {
			if p.match.MatchString(probe) {
				out = append(out, findingf(job, spanPtr(pair.Value.Span), secretsHelp,
					"potential %s detected in %s: %s", p.kind, context, pair.Key))
			}
		}
	}
	return out
}

var (
	protectedEnvKeywords = []string{"prod", "production", "staging", "deploy"}
	protectedVarKeywords = []string{"SECRET", "TOKEN", "KEY", "PASSWORD", "DEPLOY"}
	protectedOnlyRefs    = map[string]bool{"main": true, "master": true, "production": true, "release": true}
)

// checkProtectedContext implements GL013: jobs touching protected
// environments or secret-bearing variables must be gated to protected
// branches.
func checkProtectedContext(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		var contexts []string

		if job.Environment != nil {
			if name, _, ok := environmentName(job.Environment); ok {
				lower := strings.ToLower(name)
				if containsAny(lower, protectedEnvKeywords...) {
					contexts = append(contexts, "environment '"+name+"'")
				}
			}
		}
		for _, pair := range variablePairs(job.Variables) {
			upper := strings.ToUpper(pair.Key)
			if containsAny(upper, protectedVarKeywords...) {
				contexts = append(contexts, "variable '"+pair.Key+"'")
			}
		}

		if len(contexts) == 0 || hasProtectedBranchGate(job) {
			continue
		}
		out = append(out, findingf(job, nil,
			`add rule: if: $CI_COMMIT_REF_PROTECTED == "true"`,
			"job uses protected context (%s) but lacks protected branch restriction",
			strings.Join(contexts, ", ")))
	}
	return out
}

func hasProtectedBranchGate(job *schema.JobSpec) bool {
	for _, entry := range ruleEntries(job.Rules) {
		cond := entry.Get("if")
		if cond.IsScalar() &&
			strings.Contains(cond.Value, "$CI_COMMIT_REF_PROTECTED") &&
			strings.Contains(cond.Value, `"true"`) {
			return true
		}
	}
	// only: accepts both the shorthand list and the refs mapping form.
	refs := job.Only
	if refs.IsMapping() {
		refs = refs.Get("refs")
	}
	if refs.IsSequence() {
		for _, item := range refs.Items {
			if item.IsScalar() && protectedOnlyRefs[item.Value] {
				return true
			}
		}
	}
	return false
}

// checkDebugTrace implements GL020.
func checkDebugTrace(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic

	out = append(out, debugTraceIn(nil, ctx.Config.Variables, "global variables")...)
	for _, job := range ctx.ActiveJobs() {
		out = append(out, debugTraceIn(job, job.Variables, "job variables")...)
		for _, entry := range ruleEntries(job.Rules) {
			out = append(out, debugTraceIn(job, entry.Get("variables"), "rule variables")...)
		}
	}
	return out
}

func debugTraceIn(job *schema.JobSpec, vars *yamldoc.Node, context string) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, pair := range variablePairs(vars) {
		if pair.Key != "CI_DEBUG_TRACE" || !pair.Value.IsScalar() {
			continue
		}
		value := strings.ToLower(pair.Value.Value)
		if value == "true" || value == "1" {
			out = append(out, findingf(job, spanPtr(pair.Value.Span),
				"remove CI_DEBUG_TRACE or set it conditionally for debugging only",
				"CI_DEBUG_TRACE is permanently enabled in %s", context))
		}
	}
	return out
}
