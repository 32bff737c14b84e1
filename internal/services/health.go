package services

import (
	"context"
	"os"
	"runtime"
	"time"
	"unicode/utf8"

	"safeshe-backend-go/internal/live"
	"safeshe-backend-go/internal/store"

	"github.com/shirou/gopsutil/v3/process"
)

const (
	DatabaseOK           = "ok"
	DatabaseDisconnected = "disconnected"
)

type ProcessStats struct {
	RSSBytes   int64   `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Goroutines int     `json:"goroutines"`
}

type HealthReport struct {
	Backend       string        `json:"backend"`
	Database      string        `json:"database"`
	LiveUsers     int           `json:"live_users"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Process       *ProcessStats `json:"process,omitempty"`
}

type HealthService struct {
	store    store.Store
	registry *live.Registry
	started  time.Time
}

func NewHealthService(s store.Store, registry *live.Registry) *HealthService {
	return &HealthService{store: s, registry: registry, started: time.Now()}
}

// Check never fails: store problems are reported in the Database field.
func (h *HealthService) Check(ctx context.Context) HealthReport {
	report := HealthReport{
		Backend:       "ok",
		Database:      DatabaseDisconnected,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Process:       captureProcess(),
	}
	if h.registry != nil {
		report.LiveUsers = h.registry.Users()
	}
	if h.store != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.store.Ping(pingCtx); err != nil {
			report.Database = "error: " + truncate(err.Error(), 80)
		} else {
			report.Database = DatabaseOK
		}
	}
	return report
}

func captureProcess() *ProcessStats {
	stats := &ProcessStats{Goroutines: runtime.NumGoroutine()}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return stats
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = int64(mem.RSS)
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	return stats
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
