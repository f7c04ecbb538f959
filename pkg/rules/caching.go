package rules

import (
	"regexp"
	"strings"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/schema"
)

// packageManagerCache describes one package manager: how to spot its
// install commands and where its cache lives.
type packageManagerCache struct {
	name     string
	installs []*regexp.Regexp
	paths    []string
}

var pipCache = packageManagerCache{
	name: "pip",
	installs: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpip\s+install\b`),
		regexp.MustCompile(`(?i)\bpip3\s+install\b`),
		regexp.MustCompile(`(?i)\bpython\s+-m\s+pip\s+install\b`),
		regexp.MustCompile(`(?i)\bpython3\s+-m\s+pip\s+install\b`),
	},
	paths: []string{"~/.cache/pip", "/root/.cache/pip", "pip-cache/", ".pip-cache/"},
}

var nodeCache = packageManagerCache{
	name: "npm/yarn",
	installs: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bnpm\s+install\b`),
		regexp.MustCompile(`(?i)\bnpm\s+ci\b`),
		regexp.MustCompile(`(?i)\byarn\s+install\b`),
		regexp.MustCompile(`(?i)\byarn\s+--frozen-lockfile\b`),
		regexp.MustCompile(`(?i)\byarn\s+--production\b`),
	},
	paths: []string{"node_modules/", "~/.npm", "~/.yarn/cache", ".npm/", ".yarn/cache/"},
}

var cargoCache = packageManagerCache{
	name: "cargo",
	installs: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcargo\s+build\b`),
		regexp.MustCompile(`(?i)\bcargo\s+test\b`),
		regexp.MustCompile(`(?i)\bcargo\s+install\b`),
		regexp.MustCompile(`(?i)\bcargo\s+check\b`),
		regexp.MustCompile(`(?i)\bcargo\s+run\b`),
	},
	paths: []string{"target/", "~/.cargo/registry", "~/.cargo/git", ".cargo/"},
}

var goCache = packageManagerCache{
	name: "go",
	installs: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bgo\s+build\b`),
		regexp.MustCompile(`(?i)\bgo\s+mod\s+download\b`),
		regexp.MustCompile(`(?i)\bgo\s+get\b`),
		regexp.MustCompile(`(?i)\bgo\s+install\b`),
		regexp.MustCompile(`(?i)\bgo\s+test\b`),
	},
	paths: []string{"~/go/pkg/mod", "~/.cache/go-build", "/go/pkg/mod", ".go-cache/"},
}

var javaCache = packageManagerCache{
	name: "Maven/Gradle",
	installs: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bmvn\s+install\b`),
		regexp.MustCompile(`(?i)\bmvn\s+compile\b`),
		regexp.MustCompile(`(?i)\bmvn\s+package\b`),
		regexp.MustCompile(`(?i)\bgradle\s+build\b`),
		regexp.MustCompile(`(?i)\bgradle\s+assemble\b`),
		regexp.MustCompile(`(?i)\./gradlew\s+build\b`),
		regexp.MustCompile(`(?i)\./gradlew\s+assemble\b`),
	},
	paths: []string{"~/.m2/repository", "~/.gradle/caches", ".m2/", ".gradle/"},
}

// cacheRule builds the shared check for GL027-GL031: a job running the
// package manager must cache one of its known cache paths.
func cacheRule(pm packageManagerCache) CheckFunc {
	return func(ctx *Context) []lint.Diagnostic {
		var out []lint.Diagnostic
		for _, job := range ctx.ActiveJobs() {
			line, found := firstInstallLine(job, pm.installs)
			if !found {
				continue
			}
			if hasRelevantCache(cachePaths(job.Cache), pm.paths) {
				continue
			}
			out = append(out, findingf(job, line.Span,
				"add cache paths such as "+strings.Join(pm.paths[:min(3, len(pm.paths))], ", "),
				"job uses %s commands but lacks appropriate caching", pm.name))
		}
		return out
	}
}

func firstInstallLine(job *schema.JobSpec, patterns []*regexp.Regexp) (schema.StringField, bool) {
	for _, line := range allScripts(job) {
		for _, pattern := range patterns {
			if pattern.MatchString(line.Value) {
				return line, true
			}
		}
	}
	return schema.StringField{}, false
}

// hasRelevantCache reports whether any configured path overlaps one of
// the package manager's cache locations, in either direction.
func hasRelevantCache(configured, expected []string) bool {
	for _, want := range expected {
		for _, have := range configured {
			if strings.Contains(have, want) || strings.Contains(want, have) {
				return true
			}
		}
	}
	return false
}

var generalInstallPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bcomposer\s+(?:install|update)\b`),
	regexp.MustCompile(`(?i)\bbundle\s+install\b`),
	regexp.MustCompile(`(?i)\bgem\s+install\b`),
	regexp.MustCompile(`(?i)\bdotnet\s+restore\b`),
	regexp.MustCompile(`(?i)\bnuget\s+install\b`),
	regexp.MustCompile(`(?i)\bapt-get\s+install\b`),
	regexp.MustCompile(`(?i)\bapt\s+install\b`),
	regexp.MustCompile(`(?i)\byum\s+install\b`),
	regexp.MustCompile(`(?i)\bdnf\s+install\b`),
	regexp.MustCompile(`(?i)\bapk\s+add\b`),
}

// checkGeneralCaching implements GL032: package managers not covered by
// the dedicated cache rules, for jobs with no cache at all.
func checkGeneralCaching(ctx *Context) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, job := range ctx.ActiveJobs() {
		if job.Cache != nil {
			continue
		}
		line, found := firstInstallLine(job, generalInstallPatterns)
		if !found {
			continue
		}

		var hints []string
		command := strings.ToLower(line.Value)
		if strings.Contains(command, "composer") {
			hints = append(hints, "cache the vendor/ directory for Composer")
		}
		if containsAny(command, "bundle", "gem") {
			hints = append(hints, "cache ~/.gem or vendor/bundle for Ruby")
		}
		if containsAny(command, "dotnet", "nuget") {
			hints = append(hints, "cache ~/.nuget/packages for .NET")
		}
		if containsAny(command, "apt-get", "apt ", "yum", "dnf", "apk") {
			hints = append(hints, "prefer pre-built images over installing system packages")
		}
		help := "add cache configuration for package dependencies"
		if len(hints) > 0 {
			help = strings.Join(hints, "; ")
		}
		out = append(out, finding(job, line.Span,
			"job uses package manager commands that could benefit from caching", help))
	}
	return out
}
