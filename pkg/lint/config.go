package lint

// RuleOverride is the per-rule portion of the configuration. Both fields
// are optional; nil means "use the default".
type RuleOverride struct {
	Enabled *bool
	Level   *Severity
}

// Config controls which rules run and at what severity. The zero value
// runs every rule at its builtin severity.
type Config struct {
	// StrictMode escalates resolved severities one level (info to warning,
	// warning to error). It never re-enables a disabled rule and never
	// overrides an explicit per-rule severity.
	StrictMode bool

	// FailOnWarnings makes the exit code treat warnings like errors.
	FailOnWarnings bool

	// Categories disables whole categories; a category missing from the
	// map is enabled. Only false entries are meaningful.
	Categories map[Category]bool

	// Rules holds per-rule overrides keyed by rule code, e.g. "GL005".
	Rules map[string]RuleOverride
}

// Resolution is the outcome of resolving one rule against a Config.
type Resolution struct {
	Enabled  bool
	Severity Severity
}

// Resolve computes whether a rule runs and at what severity.
//
// Precedence, highest first: a per-rule enabled=false or a disabled
// category switches the rule off outright. For severity, an explicit
// per-rule level wins; otherwise strict mode escalates the builtin
// default by one level; otherwise the builtin default stands.
func (c *Config) Resolve(code string, category Category, builtin Severity) Resolution {
	if c == nil {
		return Resolution{Enabled: true, Severity: builtin}
	}

	override, hasOverride := c.Rules[code]
	if hasOverride && override.Enabled != nil && !*override.Enabled {
		return Resolution{Enabled: false}
	}
	if enabled, ok := c.Categories[category]; ok && !enabled {
		// An explicit per-rule enable wins over a category disable.
		if !hasOverride || override.Enabled == nil || !*override.Enabled {
			return Resolution{Enabled: false}
		}
	}

	if hasOverride && override.Level != nil {
		return Resolution{Enabled: true, Severity: *override.Level}
	}

	severity := builtin
	if c.StrictMode && severity < SeverityError {
		severity++
	}
	return Resolution{Enabled: true, Severity: severity}
}
