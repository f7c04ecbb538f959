// Package rules holds the lint rule catalog and the engine that runs it.
// The catalog is a fixed table built at init; rules are pure functions
// from a bound configuration to diagnostics and never perform I/O.
package rules

import (
	"fmt"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/logger"
	"github.com/gitlabtools/gl-lint/pkg/schema"
	"github.com/gitlabtools/gl-lint/pkg/yamldoc"
)

var engineLog = logger.New("rules:engine")

// CheckFunc inspects a bound configuration and returns findings. The
// engine stamps Code, Severity, and File afterwards, so checks only fill
// Message, Help, Job, and Span.
type CheckFunc func(ctx *Context) []lint.Diagnostic

// Descriptor is one catalog entry. Severity is the builtin default,
// before configuration overrides.
type Descriptor struct {
	Code     string
	Category lint.Category
	Severity lint.Severity
	Title    string
	Check    CheckFunc
}

// registry is the full catalog in execution order.
var registry = []Descriptor{
	{Code: "GL001", Category: lint.CategoryStructure, Severity: lint.SeverityError, Title: "Jobs must define script, trigger, extends, or run", Check: checkJobHasWork},
	{Code: "GL002", Category: lint.CategoryStructure, Severity: lint.SeverityError, Title: "Job stages must be declared in the stages list", Check: checkStagesDeclared},
	{Code: "GL003", Category: lint.CategoryStructure, Severity: lint.SeverityWarning, Title: "Job dependencies must not have cycles or unknown jobs", Check: checkDependencies},
	{Code: "GL004", Category: lint.CategoryStructure, Severity: lint.SeverityError, Title: "External includes must pin a stable ref", Check: checkIncludeVersioning},
	{Code: "GL005", Category: lint.CategoryDocker, Severity: lint.SeverityWarning, Title: "Images must not rely on the latest tag", Check: checkImageTags},
	{Code: "GL006", Category: lint.CategoryDocker, Severity: lint.SeverityWarning, Title: "Avoid known-large base images", Check: checkImageSize},
	{Code: "GL007", Category: lint.CategoryQuality, Severity: lint.SeverityWarning, Title: "Package installation belongs in the Dockerfile", Check: checkPackageInstallation},
	{Code: "GL008", Category: lint.CategoryQuality, Severity: lint.SeverityInfo, Title: "Job keys should follow the conventional order", Check: checkKeyOrder},
	{Code: "GL009", Category: lint.CategoryQuality, Severity: lint.SeverityWarning, Title: "Cache configuration needs a key and paths", Check: checkCacheConfiguration},
	{Code: "GL010", Category: lint.CategoryQuality, Severity: lint.SeverityWarning, Title: "Artifacts should expire", Check: checkArtifactsExpiration},
	{Code: "GL011", Category: lint.CategoryQuality, Severity: lint.SeverityInfo, Title: "Long-running jobs should be interruptible", Check: checkInterruptible},
	{Code: "GL012", Category: lint.CategorySecurity, Severity: lint.SeverityError, Title: "Secrets must not be hardcoded", Check: checkHardcodedSecrets},
	{Code: "GL013", Category: lint.CategorySecurity, Severity: lint.SeverityWarning, Title: "Protected contexts need protected-branch gating", Check: checkProtectedContext},
	{Code: "GL014", Category: lint.CategoryOptimization, Severity: lint.SeverityInfo, Title: "Variables should be scoped where they are used", Check: checkVariableScoping},
	{Code: "GL015", Category: lint.CategoryOptimization, Severity: lint.SeverityInfo, Title: "Test jobs should exploit parallelization", Check: checkParallelization},
	{Code: "GL016", Category: lint.CategoryOptimization, Severity: lint.SeverityWarning, Title: "Jobs should carry sensible timeouts", Check: checkTimeouts},
	{Code: "GL017", Category: lint.CategoryOptimization, Severity: lint.SeverityInfo, Title: "Similar jobs should share configuration via extends", Check: checkJobReuse},
	{Code: "GL018", Category: lint.CategoryOptimization, Severity: lint.SeverityWarning, Title: "Cache policy should match the job type", Check: checkCachePolicy},
	{Code: "GL019", Category: lint.CategoryOptimization, Severity: lint.SeverityWarning, Title: "Lint jobs should run early and strictly", Check: checkLintStage},
	{Code: "GL020", Category: lint.CategorySecurity, Severity: lint.SeverityError, Title: "CI_DEBUG_TRACE must not be permanently enabled", Check: checkDebugTrace},
	{Code: "GL021", Category: lint.CategoryQuality, Severity: lint.SeverityWarning, Title: "Review app environments need on_stop", Check: checkReviewApps},
	{Code: "GL022", Category: lint.CategoryStructure, Severity: lint.SeverityError, Title: "Job names must be snake_case", Check: checkJobNaming},
	{Code: "GL023", Category: lint.CategoryStructure, Severity: lint.SeverityWarning, Title: "Every declared stage needs an active job", Check: checkStageCompleteness},
	{Code: "GL024", Category: lint.CategoryQuality, Severity: lint.SeverityInfo, Title: "allow_failure should name expected exit codes", Check: checkAllowFailure},
	{Code: "GL025", Category: lint.CategoryOptimization, Severity: lint.SeverityInfo, Title: "Rule conditions should not repeat or conflict", Check: checkRuleConditions},
	{Code: "GL026", Category: lint.CategoryOptimization, Severity: lint.SeverityInfo, Title: "Large pipelines benefit from monitoring", Check: checkMonitoring},
	{Code: "GL027", Category: lint.CategoryCaching, Severity: lint.SeverityWarning, Title: "pip installs should cache the pip directory", Check: cacheRule(pipCache)},
	{Code: "GL028", Category: lint.CategoryCaching, Severity: lint.SeverityWarning, Title: "npm and yarn installs should cache node modules", Check: cacheRule(nodeCache)},
	{Code: "GL029", Category: lint.CategoryCaching, Severity: lint.SeverityWarning, Title: "cargo builds should cache the registry and target", Check: cacheRule(cargoCache)},
	{Code: "GL030", Category: lint.CategoryCaching, Severity: lint.SeverityWarning, Title: "go builds should cache the module and build caches", Check: cacheRule(goCache)},
	{Code: "GL031", Category: lint.CategoryCaching, Severity: lint.SeverityWarning, Title: "Maven and Gradle builds should cache their repositories", Check: cacheRule(javaCache)},
	{Code: "GL032", Category: lint.CategoryCaching, Severity: lint.SeverityInfo, Title: "Package manager operations may benefit from caching", Check: checkGeneralCaching},
	{Code: "GL033", Category: lint.CategoryOptimization, Severity: lint.SeverityError, Title: "Parallel matrices must not exceed 200 generated jobs", Check: checkMatrixLimit},
}

// Registry returns the catalog in execution order. Callers get a copy;
// the table itself never changes after init.
func Registry() []Descriptor {
	out := make([]Descriptor, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the descriptor for a rule code.
func Lookup(code string) (Descriptor, bool) {
	for _, d := range registry {
		if d.Code == code {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Context is what checks see: the bound configuration plus lazily
// computed derived views shared by several rules.
type Context struct {
	Config *schema.BoundConfig

	effective map[string]*schema.JobSpec
}

// NewContext wraps a bound configuration for rule execution.
func NewContext(config *schema.BoundConfig) *Context {
	return &Context{Config: config}
}

// Effective returns the job's extends-resolved view, memoized per run.
func (ctx *Context) Effective(job *schema.JobSpec) *schema.JobSpec {
	if cached, ok := ctx.effective[job.Name]; ok {
		return cached
	}
	if ctx.effective == nil {
		ctx.effective = map[string]*schema.JobSpec{}
	}
	resolved := ctx.Config.EffectiveJob(job)
	ctx.effective[job.Name] = resolved
	return resolved
}

// ActiveJobs returns the non-template jobs in source order.
func (ctx *Context) ActiveJobs() []*schema.JobSpec {
	return ctx.Config.ActiveJobs()
}

// Engine runs the catalog against bound configurations under one
// resolved rule configuration.
type Engine struct {
	config *lint.Config
}

// NewEngine creates an engine for the given configuration; nil runs
// everything at builtin severities.
func NewEngine(config *lint.Config) *Engine {
	return &Engine{config: config}
}

// Run executes all enabled rules in registry order. Each diagnostic gets
// the rule's code, the resolved severity, and the file stamped on. A
// panicking rule is isolated into a single internal diagnostic instead of
// taking down the run.
func (e *Engine) Run(file string, config *schema.BoundConfig) []lint.Diagnostic {
	ctx := NewContext(config)
	var out []lint.Diagnostic

	for _, desc := range registry {
		resolution := e.config.Resolve(desc.Code, desc.Category, desc.Severity)
		if !resolution.Enabled {
			engineLog.Printf("Rule %s disabled, skipping", desc.Code)
			continue
		}

		diags, err := runCheck(desc, ctx)
		if err != nil {
			out = append(out, lint.Diagnostic{
				Code:     lint.CodeInternal,
				Severity: lint.SeverityError,
				Message:  fmt.Sprintf("rule %s failed: %v", desc.Code, err),
				File:     file,
			})
			continue
		}

		for _, d := range diags {
			d.Code = desc.Code
			d.Severity = resolution.Severity
			d.File = file
			out = append(out, d)
		}
	}

	lint.Sort(out)
	return out
}

func runCheck(desc Descriptor, ctx *Context) (diags []lint.Diagnostic, err error) {
	defer func() {
		if r := recover(); r != nil {
			diags = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return desc.Check(ctx), nil
}

// CheckFile lints one file's text end to end: parse, bind, run rules. A
// parse failure short-circuits into a single parse diagnostic.
func CheckFile(path, text string, config *lint.Config) []lint.Diagnostic {
	root, err := yamldoc.Parse(text)
	if err != nil {
		perr, ok := err.(*yamldoc.ParseError)
		if !ok {
			perr = &yamldoc.ParseError{Message: err.Error()}
		}
		return []lint.Diagnostic{{
			Code:     lint.CodeParse,
			Severity: lint.SeverityError,
			Message:  perr.Message,
			File:     path,
			Span:     perr.Span,
		}}
	}

	bound, bindDiags := schema.Bind(root)
	for i := range bindDiags {
		bindDiags[i].File = path
	}

	out := append(bindDiags, NewEngine(config).Run(path, bound)...)
	lint.Sort(out)
	engineLog.Printf("Checked %s: %d diagnostics", path, len(out))
	return out
}
