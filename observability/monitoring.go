package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Gauges are the live counters read from the runtime on every refresh.
type Gauges interface {
	ConnectionCount() int
	OnlineUserCount() int
	ChannelCount() int
	TrackedPresenceCount() int
	BridgeState() string
}

// MonitoringStats is served as JSON on the debug endpoint.
type MonitoringStats struct {
	OnlineUsers     int    `json:"online_users"`
	Connections     int    `json:"connections"`
	Channels        int    `json:"channels"`
	TrackedPresence int    `json:"tracked_presence"`
	BridgeState     string `json:"bridge_state"`

	Pid        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
	UpdatedAt  string  `json:"updated_at"`
}

// MonitoringManager refreshes a stats snapshot at a fixed interval.
type MonitoringManager struct {
	log         *slog.Logger
	gauges      Gauges
	interval    time.Duration
	mu          sync.RWMutex
	latestStats MonitoringStats
}

func NewMonitoringManager(log *slog.Logger, gauges Gauges, interval time.Duration) *MonitoringManager {
	return &MonitoringManager{log: log, gauges: gauges, interval: interval}
}

// Run refreshes the snapshot until the context is canceled.
func (mm *MonitoringManager) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	mm.Refresh(p)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			mm.Refresh(p)
		}
	}
}

// Refresh reads the runtime gauges and, when p is not nil, the process stats.
func (mm *MonitoringManager) Refresh(p *process.Process) {
	stats := MonitoringStats{
		OnlineUsers:     mm.gauges.OnlineUserCount(),
		Connections:     mm.gauges.ConnectionCount(),
		Channels:        mm.gauges.ChannelCount(),
		TrackedPresence: mm.gauges.TrackedPresenceCount(),
		BridgeState:     mm.gauges.BridgeState(),
		Goroutines:      runtime.NumGoroutine(),
		UpdatedAt:       time.Now().UTC().Format(time.RFC3339),
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.AllocMemMb = m.Alloc / 1024 / 1024
	stats.NumGC = m.NumGC

	if p != nil {
		stats.Pid = p.Pid
		if memInfo, err := p.MemoryInfo(); err == nil {
			stats.RSSBytes = memInfo.RSS
			processRSS.Set(float64(memInfo.RSS))
		} else {
			mm.log.Debug("Failed to read process memory", "error", err)
		}
		if cpu, err := p.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		}
	}

	mm.mu.Lock()
	mm.latestStats = stats
	mm.mu.Unlock()
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}
