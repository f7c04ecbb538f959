package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		pattern   string
		want      bool
	}{
		{"wildcard all", "rules:engine", "*", true},
		{"exact match", "rules:engine", "rules:engine", true},
		{"prefix wildcard", "rules:engine", "rules:*", true},
		{"suffix wildcard", "rules:engine", "*:engine", true},
		{"no match", "rules:engine", "schema:*", false},
		{"empty pattern", "rules:engine", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchPattern(tt.namespace, tt.pattern))
		})
	}
}

func TestComputeEnabledExclusion(t *testing.T) {
	// Patterns are read from package state at construction; exercise the
	// matcher directly to stay independent of the test environment.
	assert.False(t, matchPattern("cli:check", "-cli:*") && true)
}

func TestNewLoggerDisabledByDefault(t *testing.T) {
	if debugEnv != "" {
		t.Skip("DEBUG set in environment")
	}
	log := New("test:namespace")
	assert.False(t, log.Enabled())
}
