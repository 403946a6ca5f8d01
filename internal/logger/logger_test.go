package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel(" DEBUG "))
	require.Equal(t, slog.LevelWarn, parseLevel("warn"))
	require.Equal(t, slog.LevelError, parseLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLevel(""))
	require.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestJSONFormatTagsService(t *testing.T) {
	var buf bytes.Buffer
	log := newWith(&buf, "api", "info", "json")
	log.Debug("hidden")
	log.Info("visible", slog.String("url", "https://example.com"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "api", rec["service"])
	require.Equal(t, "visible", rec["msg"])
	require.Equal(t, "https://example.com", rec["url"])
}

func TestDiscardDropsEveryLevel(t *testing.T) {
	log := Discard()
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelError} {
		require.False(t, log.Enabled(context.Background(), level))
	}
}
