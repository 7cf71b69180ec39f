package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Progress is a point-in-time view of a running pass
type Progress struct {
	Entities   int64
	Records    int64
	Elapsed    time.Duration
	Throughput float64 // entities per second
}

// Acceptance is the share of entities that became records, in percent
func (p Progress) Acceptance() float64 {
	if p.Entities == 0 {
		return 0
	}
	return float64(p.Records) / float64(p.Entities) * 100
}

// ProgressTracker turns running counters into rates
type ProgressTracker struct {
	startTime time.Time
}

// NewProgressTracker starts the clock
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{startTime: time.Now()}
}

// Calculate returns progress for the given counters
func (p *ProgressTracker) Calculate(entities, records int64) Progress {
	elapsed := time.Since(p.startTime)

	var throughput float64
	if elapsed.Seconds() > 0 {
		throughput = float64(entities) / elapsed.Seconds()
	}

	return Progress{
		Entities:   entities,
		Records:    records,
		Elapsed:    elapsed.Round(time.Second),
		Throughput: throughput,
	}
}

// FormatThroughput formats throughput as human-readable items per second
func FormatThroughput(itemsPerSec float64) string {
	if itemsPerSec >= 1_000_000 {
		return fmt.Sprintf("%.1fM/s", itemsPerSec/1_000_000)
	}
	if itemsPerSec >= 1_000 {
		return fmt.Sprintf("%.1fK/s", itemsPerSec/1_000)
	}
	return fmt.Sprintf("%.0f/s", itemsPerSec)
}

// FormatBytes formats bytes in a human-readable format
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// reportProgress logs streaming counters until ctx is done
func (d *Driver) reportProgress(ctx context.Context) {
	tracker := NewProgressTracker()
	ticker := time.NewTicker(d.opts.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p := tracker.Calculate(d.entities.Load(), d.accepted.Load())
			d.log.Debug("Streaming progress",
				zap.Int64("entities", p.Entities),
				zap.Int64("records", p.Records),
				zap.String("accepted", fmt.Sprintf("%.1f%%", p.Acceptance())),
				zap.String("throughput", FormatThroughput(p.Throughput)),
				zap.Duration("elapsed", p.Elapsed))
		}
	}
}
