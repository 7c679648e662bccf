package logx

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcm/internal/paths"
)

func TestNewWritesToLogsDir(t *testing.T) {
	root := t.TempDir()
	home := paths.Home{Root: root, LogsDir: filepath.Join(root, "logs")}

	logger, closer, err := New(home, slog.LevelInfo)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("install: committed", slog.String("version", "5.10.1"))
	require.NoError(t, closer.Close())

	entries, err := os.ReadDir(home.LogsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".log"))

	data, err := os.ReadFile(filepath.Join(home.LogsDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "version=5.10.1")
	assert.NotContains(t, string(data), "hidden")
}
