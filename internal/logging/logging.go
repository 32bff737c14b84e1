package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"safeshe-backend-go/internal/config"
)

const maxRetentionDays = 7

// Setup installs a slog default logger writing to stdout and to a daily
// log file under cfg.Dir. The returned func stops rotation and closes the
// current file.
func Setup(cfg config.LogConfig) (*slog.Logger, func(), error) {
	out, err := newRotatingWriter(cfg.Dir, retention(cfg.RetentionDays))
	if err != nil {
		logger := New(cfg, os.Stdout)
		return logger, func() {}, err
	}
	logger := New(cfg, io.MultiWriter(os.Stdout, out))

	ctx, cancel := context.WithCancel(context.Background())
	go out.run(ctx)

	return logger, func() {
		cancel()
		out.close()
	}, nil
}

// New builds a logger for w and makes it the slog default.
func New(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func retention(days int) int {
	if days <= 0 {
		return maxRetentionDays
	}
	if days > maxRetentionDays {
		return maxRetentionDays
	}
	return days
}

type rotatingWriter struct {
	mu            sync.Mutex
	dir           string
	retentionDays int
	currentDate   string
	file          *os.File
}

func newRotatingWriter(dir string, retentionDays int) (*rotatingWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	date := time.Now().Format("2006-01-02")
	file, err := openLogFile(dir, date)
	if err != nil {
		return nil, err
	}
	cleanupOldLogs(dir, retentionDays, time.Now())
	return &rotatingWriter{
		dir:           dir,
		retentionDays: retentionDays,
		currentDate:   date,
		file:          file,
	}, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return len(p), nil
	}
	return w.file.Write(p)
}

func (w *rotatingWriter) run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			w.rotate(now)
		case <-ctx.Done():
			return
		}
	}
}

func (w *rotatingWriter) rotate(now time.Time) {
	date := now.Format("2006-01-02")
	w.mu.Lock()
	defer w.mu.Unlock()
	if date == w.currentDate {
		return
	}
	newFile, err := openLogFile(w.dir, date)
	if err != nil {
		return
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	w.file = newFile
	w.currentDate = date
	cleanupOldLogs(w.dir, w.retentionDays, now)
}

func (w *rotatingWriter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
}

func openLogFile(dir, date string) (*os.File, error) {
	filename := filepath.Join(dir, fmt.Sprintf("app-%s.log", date))
	return os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func cleanupOldLogs(dir string, retentionDays int, now time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -(retentionDays - 1))
	cutoff = time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		datePart := strings.TrimSuffix(strings.TrimPrefix(name, "app-"), ".log")
		logDate, err := time.Parse("2006-01-02", datePart)
		if err != nil {
			continue
		}
		if logDate.Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}
