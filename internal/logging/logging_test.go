package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "", want: slog.LevelInfo},
		{input: "debug", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("json to writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger, closer, err := New(Options{Output: &buf, Format: "json", Level: "warn"})
		require.NoError(t, err)
		defer closer.Close()

		logger.Info("hidden")
		logger.Warn("Sync failed", "type", "todo")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"msg":"Sync failed"`)
		assert.Contains(t, buf.String(), `"type":"todo"`)
	})

	t.Run("text to rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "client.log")
		logger, closer, err := New(Options{File: path, MaxSizeMB: 1})
		require.NoError(t, err)

		logger.Info("Sync engine started", "pending", 3)
		require.NoError(t, closer.Close())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "msg=\"Sync engine started\" pending=3")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := New(Options{Format: "xml"})
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})
}
