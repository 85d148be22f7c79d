// Package selfstat samples the resource usage of the running topgrep process.
package selfstat

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Usage is a resource usage sample of the current process.
type Usage struct {
	CPUPercent float64
	RSS        uint64
	Threads    int32
	Uptime     time.Duration
}

// LogValue implements slog.LogValuer.
func (u Usage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("cpu_percent", u.CPUPercent),
		slog.Uint64("rss_bytes", u.RSS),
		slog.Int("threads", int(u.Threads)),
		slog.Duration("uptime", u.Uptime))
}

// Sampler reads resource usage of the current process.
type Sampler struct {
	proc *process.Process
}

// NewSampler returns a new Sampler for the current process.
func NewSampler(ctx context.Context) (*Sampler, error) {
	pid := os.Getpid()
	if pid < 0 || pid > math.MaxInt32 {
		return nil, fmt.Errorf("invalid PID: %d", pid)
	}
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, err
	}
	return &Sampler{proc: proc}, nil
}

// Sample returns the current resource usage. CPUPercent is averaged over the
// lifetime of the process.
func (s *Sampler) Sample(ctx context.Context) (Usage, error) {
	var usage Usage
	percent, err := s.proc.CPUPercentWithContext(ctx)
	if err != nil {
		return usage, fmt.Errorf("cpu percent: %w", err)
	}
	usage.CPUPercent = percent

	memory, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return usage, fmt.Errorf("memory info: %w", err)
	}
	usage.RSS = memory.RSS

	threads, err := s.proc.NumThreadsWithContext(ctx)
	if err != nil {
		return usage, fmt.Errorf("threads: %w", err)
	}
	usage.Threads = threads

	created, err := s.proc.CreateTimeWithContext(ctx)
	if err != nil {
		return usage, fmt.Errorf("create time: %w", err)
	}
	usage.Uptime = time.Since(time.UnixMilli(created))

	return usage, nil
}
