package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/kiln/internal/core/domain"
)

func TestCompileState(t *testing.T) {
	tests := []struct {
		name       string
		state      domain.CompileState
		isTerminal bool
	}{
		{"Pending", domain.StatePending, false},
		{"Analyzing", domain.StateAnalyzing, false},
		{"Compiling", domain.StateCompiling, false},
		{"Succeeded", domain.StateSucceeded, true},
		{"Failed", domain.StateFailed, true},
		{"Skipped", domain.StateSkipped, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isTerminal, tt.state.IsTerminal())
		})
	}
}

func TestNormalizeCompileState(t *testing.T) {
	tests := []struct {
		input    string
		expected domain.CompileState
	}{
		{"pending", domain.StatePending},
		{"ANALYZING", domain.StateAnalyzing},
		{"compiling", domain.StateCompiling},
		{"succeeded", domain.StateSucceeded},
		{"Failed", domain.StateFailed},
		{"skipped", domain.StateSkipped},
		{"unknown", domain.StatePending},
		{"", domain.StatePending},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, domain.NormalizeCompileState(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    domain.LogLevel
		expected string
	}{
		{domain.LogLevelDebug, "DEBUG"},
		{domain.LogLevelInfo, "INFO"},
		{domain.LogLevelWarn, "WARN"},
		{domain.LogLevelError, "ERROR"},
		{domain.LogLevel(999), "INFO"}, // Default case
	}

	for _, tt := range tests {
		t.Run(tt.expected+"/"+tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}
