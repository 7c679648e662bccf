package logx

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tcm/internal/paths"
)

// New creates a logger that writes to a timestamped file inside the home
// logs directory. The returned closer should be closed when logging is no
// longer needed.
func New(h paths.Home, level slog.Level) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(h.LogsDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(h.LogsDir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}))
	return logger.With(slog.Int("pid", os.Getpid())), file, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
