package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestCtxAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	prev := swap(zerolog.New(&buf))
	defer swap(prev)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	Ctx(ctx).Info().Msg("hello")

	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.Contains(t, buf.String(), `"hello"`)
}

func TestSlogBridge(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	prev := swap(zerolog.New(&buf))
	defer swap(prev)

	NewSlogLogger().WithGroup("svc").Info("restarted", "attempt", 3)

	assert.Contains(t, buf.String(), `"svc.attempt":3`)
	assert.Contains(t, buf.String(), `"restarted"`)
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	prev := swap(zerolog.Nop())
	defer swap(prev)

	Init(Config{Level: "warn", Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	Info().Msg("dropped")
	Warn().Str("book_id", "b1").Msg("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"book_id":"b1"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
