package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_WritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Output: &buf})

	l.Info().Str("ticker", "BBCA.JK").Msg("position added")

	assert.Contains(t, buf.String(), "position added")
	assert.Contains(t, buf.String(), `"ticker":"BBCA.JK"`)
}

func TestNew_Levels(t *testing.T) {
	testCases := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			New(Config{Level: tc.level, Output: &bytes.Buffer{}})
			assert.Equal(t, tc.expected, zerolog.GlobalLevel())
		})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Pretty: true, Output: &buf})

	l.Info().Msg("cache refreshed")

	out := buf.String()
	assert.Contains(t, out, "cache refreshed")
	assert.NotContains(t, out, `"message"`)
}

func TestComponent_TagsLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Component(zerolog.New(&buf), "ledger")

	l.Warn().Msg("malformed state")

	assert.Contains(t, buf.String(), `"component":"ledger"`)
}

func TestNop_Discards(t *testing.T) {
	l := Nop()
	assert.Equal(t, zerolog.Disabled, l.GetLevel())
}
