// Package metrics samples process resource usage while a pass is running.
package metrics

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Sample is one metrics snapshot
type Sample struct {
	CPUPercent        float64 // system-wide, 0-100
	ProcessCPUPercent float64 // per core, can exceed 100 on multi-core
	ProcessRSSMB      float64
	MemoryPercent     float64
	MemoryUsedGB      float64
	Records           int64
	RecordsPerSec     float64
	Timestamp         time.Time
}

// Counter reports the running record count of the pass being observed
type Counter func() int64

// Collector periodically samples and logs resource usage together with the
// record count. Records are held in memory until the pass ends, so RSS
// growth per record is the number to watch on large inputs.
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process
	records  Counter

	mu          sync.RWMutex
	last        *Sample
	lastRecords int64
	lastTime    time.Time
}

// NewCollector creates a collector. Intervals under a second default to 30s.
func NewCollector(interval time.Duration, logger *zap.Logger, records Counter) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	if records == nil {
		records = func() int64 { return 0 }
	}

	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
		records:  records,
	}
}

// Start samples until ctx is cancelled
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log(c.sample())

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.log(c.sample())
		}
	}
}

// Last returns the most recent sample, nil before the first one
func (c *Collector) Last() *Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *Collector) sample() *Sample {
	now := time.Now()
	s := &Sample{Timestamp: now, Records: c.records()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcessCPUPercent = pct
		}
		if info, err := c.proc.MemoryInfo(); err == nil {
			s.ProcessRSSMB = float64(info.RSS) / (1024 * 1024)
		}
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vmem.UsedPercent
		s.MemoryUsedGB = float64(vmem.Used) / (1024 * 1024 * 1024)
	}

	c.mu.Lock()
	if !c.lastTime.IsZero() {
		if secs := now.Sub(c.lastTime).Seconds(); secs > 0 {
			s.RecordsPerSec = float64(s.Records-c.lastRecords) / secs
		}
	}
	c.lastRecords = s.Records
	c.lastTime = now
	c.last = s
	c.mu.Unlock()

	return s
}

func (c *Collector) log(s *Sample) {
	c.logger.Info("System metrics",
		zap.Float64("sys_cpu", round1(s.CPUPercent)),
		zap.Float64("proc_cpu", round1(s.ProcessCPUPercent)),
		zap.String("rss", formatMB(s.ProcessRSSMB)),
		zap.Float64("mem_pct", round1(s.MemoryPercent)),
		zap.Int64("records", s.Records),
		zap.Float64("records_per_sec", round1(s.RecordsPerSec)),
	)
}

func formatMB(mb float64) string {
	if mb >= 1024 {
		return fmt.Sprintf("%.1fGB", mb/1024)
	}
	return fmt.Sprintf("%.0fMB", mb)
}

func round1(f float64) float64 {
	return float64(int64(f*10+0.5)) / 10
}
