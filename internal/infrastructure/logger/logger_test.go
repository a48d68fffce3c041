package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/propmgr/ledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromLogConfig(t *testing.T) {
	cfg := FromLogConfig(config.LogConfig{Level: "debug", Format: "json", Output: "stderr"})
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.Equal(t, defaultTimeFormat, cfg.TimeFormat)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		"INFO":   zapcore.InfoLevel,
		" warn ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"bogus":  zapcore.InfoLevel,
		"":       zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.log")
	l, err := New(Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.Debug("dropped")
	l.Info("posted", zap.String("tenant_id", "t-1"), zap.Int64("total_cents", 1500))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "posted", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "t-1", entry["tenant_id"])
	assert.EqualValues(t, 1500, entry["total_cents"])
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "ledger.log")})
	assert.Error(t, err)
}

func TestNew_ExtraCores(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	l, err := New(Config{Level: "warn", Format: "json", Output: "stderr"}, core)
	require.NoError(t, err)

	l.Warn("posting rejected")
	require.Len(t, recorded.All(), 1)
	assert.Equal(t, "posting rejected", recorded.All()[0].Message)
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		l, err := NewForEnvironment(env)
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}
