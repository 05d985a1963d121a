package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker periodically logs process health: CPU, RSS, goroutines,
// and GC counts. Purely observational.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, interval: interval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("stopping telemetry worker")
			return ctx.Err()
		case <-ticker.C:
			w.report(self)
		}
	}
}

func (w *TelemetryWorker) report(self *process.Process) {
	cpu, err := self.CPUPercent()
	if err != nil {
		w.log.Debug("cpu sample failed", "error", err)
		return
	}
	mem, err := self.MemoryInfo()
	if err != nil {
		w.log.Debug("memory sample failed", "error", err)
		return
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	w.log.Info("process telemetry",
		"cpu_percent", cpu,
		"rss_mb", mem.RSS/1024/1024,
		"goroutines", runtime.NumGoroutine(),
		"gc_cycles", stats.NumGC)
}
