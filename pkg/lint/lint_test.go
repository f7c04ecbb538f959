package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitlabtools/gl-lint/pkg/yamldoc"
)

func boolPtr(b bool) *bool        { return &b }
func sevPtr(s Severity) *Severity { return &s }

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    Severity
		wantErr bool
	}{
		{"info", SeverityInfo, false},
		{"warning", SeverityWarning, false},
		{"error", SeverityError, false},
		{"ERROR", SeverityInfo, true},
		{"critical", SeverityInfo, true},
		{"", SeverityInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSeverity(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		builtin Severity
		want    Resolution
	}{
		{
			name:    "nil config uses builtin",
			config:  nil,
			builtin: SeverityWarning,
			want:    Resolution{Enabled: true, Severity: SeverityWarning},
		},
		{
			name:    "zero config uses builtin",
			config:  &Config{},
			builtin: SeverityError,
			want:    Resolution{Enabled: true, Severity: SeverityError},
		},
		{
			name: "rule disabled",
			config: &Config{
				Rules: map[string]RuleOverride{"GL005": {Enabled: boolPtr(false)}},
			},
			builtin: SeverityWarning,
			want:    Resolution{Enabled: false},
		},
		{
			name: "rule disabled even in strict mode",
			config: &Config{
				StrictMode: true,
				Rules:      map[string]RuleOverride{"GL005": {Enabled: boolPtr(false)}},
			},
			builtin: SeverityWarning,
			want:    Resolution{Enabled: false},
		},
		{
			name: "category disabled",
			config: &Config{
				Categories: map[Category]bool{CategoryDocker: false},
			},
			builtin: SeverityWarning,
			want:    Resolution{Enabled: false},
		},
		{
			name: "explicit rule enable beats category disable",
			config: &Config{
				Categories: map[Category]bool{CategoryDocker: false},
				Rules:      map[string]RuleOverride{"GL005": {Enabled: boolPtr(true)}},
			},
			builtin: SeverityWarning,
			want:    Resolution{Enabled: true, Severity: SeverityWarning},
		},
		{
			name: "per-rule severity override",
			config: &Config{
				Rules: map[string]RuleOverride{"GL005": {Level: sevPtr(SeverityError)}},
			},
			builtin: SeverityWarning,
			want:    Resolution{Enabled: true, Severity: SeverityError},
		},
		{
			name:    "strict escalates info to warning",
			config:  &Config{StrictMode: true},
			builtin: SeverityInfo,
			want:    Resolution{Enabled: true, Severity: SeverityWarning},
		},
		{
			name:    "strict escalates warning to error",
			config:  &Config{StrictMode: true},
			builtin: SeverityWarning,
			want:    Resolution{Enabled: true, Severity: SeverityError},
		},
		{
			name:    "strict caps at error",
			config:  &Config{StrictMode: true},
			builtin: SeverityError,
			want:    Resolution{Enabled: true, Severity: SeverityError},
		},
		{
			name: "explicit severity wins over strict escalation",
			config: &Config{
				StrictMode: true,
				Rules:      map[string]RuleOverride{"GL005": {Level: sevPtr(SeverityInfo)}},
			},
			builtin: SeverityWarning,
			want:    Resolution{Enabled: true, Severity: SeverityInfo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.config.Resolve("GL005", CategoryDocker, tt.builtin)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortOrdering(t *testing.T) {
	span := func(line, col int) *yamldoc.Span {
		return &yamldoc.Span{StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1}
	}
	diags := []Diagnostic{
		{File: "b.yml", Code: "GL001", Span: span(1, 1)},
		{File: "a.yml", Code: "GL009", Span: span(5, 3)},
		{File: "a.yml", Code: "GL002", Span: span(5, 3)},
		{File: "a.yml", Code: "GL001", Span: span(2, 8)},
		{File: "a.yml", Code: "GL001", Span: span(2, 1)},
	}

	Sort(diags)

	got := make([]string, 0, len(diags))
	for _, d := range diags {
		got = append(got, d.Position()+" "+d.Code)
	}
	assert.Equal(t, []string{
		"a.yml:2:1 GL001",
		"a.yml:2:8 GL001",
		"a.yml:5:3 GL002",
		"a.yml:5:3 GL009",
		"b.yml:1:1 GL001",
	}, got)
}

func TestMaxSeverity(t *testing.T) {
	_, ok := MaxSeverity(nil)
	assert.False(t, ok)

	max, ok := MaxSeverity([]Diagnostic{
		{Severity: SeverityInfo},
		{Severity: SeverityError},
		{Severity: SeverityWarning},
	})
	require.True(t, ok)
	assert.Equal(t, SeverityError, max)
}
