package log_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/skillhub/flowcore/pkg/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for input, want := range tests {
		assert.Equal(t, want, log.ParseLevel(input), input)
	}
}

func TestWithModule(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer

	log.SetupWriter(&buf, "warn")

	log.WithModule("tracker").Info("hidden")
	log.WithModule("tracker").Warn("ignored out of order execution update")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "module=tracker")
	assert.Contains(t, out, "ignored out of order execution update")
}
