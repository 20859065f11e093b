package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDField(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.DebugLevel)
	t.Cleanup(func() { SetOutput(os.Stdout, zerolog.InfoLevel) })

	ctx := WithRequestID(context.Background(), "req-123")
	InfoLog(ctx, "created task %d", 7)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "created task 7", entry["message"])
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.WarnLevel)
	t.Cleanup(func() { SetOutput(os.Stdout, zerolog.InfoLevel) })

	ctx := context.Background()
	DebugLog(ctx, "hidden")
	InfoLog(ctx, "hidden")
	WarnLog(ctx, "shown")
	ErrorLog(ctx, "shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Empty(t, RequestID(ctx))
}

func TestInitLogging(t *testing.T) {
	t.Cleanup(func() { SetOutput(os.Stdout, zerolog.InfoLevel) })

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		closer := InitLogging(Options{FilePath: path, Level: "debug", Format: "json"})
		DebugLog(context.Background(), "to file")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})

	t.Run("UnwritablePathFallsBack", func(t *testing.T) {
		closer := InitLogging(Options{FilePath: filepath.Join(t.TempDir(), "missing", "app.log")})
		assert.NotNil(t, closer)
		assert.NoError(t, closer.Close())
	})
}
