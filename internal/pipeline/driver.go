// Package pipeline drives a single pass over an entity stream: filter,
// classify, extract, aggregate, and finally export.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/osmpoi/internal/logger"
	"github.com/wegman-software/osmpoi/internal/poi"
	"github.com/wegman-software/osmpoi/internal/source"
	"github.com/wegman-software/osmpoi/internal/stats"
)

// Driver owns the record collection and the aggregator of one run.
// A Driver runs exactly once.
type Driver struct {
	opts Options
	log  *zap.Logger

	state   atomic.Int32
	started atomic.Bool

	agg     *stats.Aggregator
	records []*poi.Record

	entities atomic.Int64
	filtered atomic.Int64
	accepted atomic.Int64
}

// NewDriver creates an idle driver
func NewDriver(opts Options) *Driver {
	if opts.Classifier == nil {
		opts.Classifier = poi.NewClassifier(poi.AllSubtypes)
	}
	if opts.Tracked == nil {
		opts.Tracked = stats.DefaultTracked
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 5 * time.Second
	}
	return &Driver{
		opts: opts,
		log:  logger.Named("pipeline"),
		agg:  stats.New(opts.Tracked),
	}
}

// State returns the current lifecycle state
func (d *Driver) State() State {
	return State(d.state.Load())
}

func (d *Driver) setState(s State) {
	prev := State(d.state.Swap(int32(s)))
	if prev != s {
		d.log.Debug("State change", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

// Records returns the collected records in arrival order. The slice is only
// stable once Run has returned.
func (d *Driver) Records() []*poi.Record {
	return d.records
}

// RecordCount is safe to call while Run is in progress
func (d *Driver) RecordCount() int64 {
	return d.accepted.Load()
}

// Run consumes src to the end and finalizes the run. Any error leaves the
// driver Failed and nothing exported.
func (d *Driver) Run(ctx context.Context, src source.Source) (*Result, error) {
	if !d.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}
	start := time.Now()

	tickCtx, stopTicker := context.WithCancel(ctx)
	go d.reportProgress(tickCtx)

	var err error
	if d.opts.Workers > 1 {
		err = d.streamParallel(ctx, src)
	} else {
		err = d.streamSequential(ctx, src)
	}
	stopTicker()
	if err != nil {
		d.records = nil
		d.setState(StateFailed)
		return nil, err
	}

	d.log.Info("Stream complete",
		zap.Int64("entities", d.entities.Load()),
		zap.Int64("filtered", d.filtered.Load()),
		zap.Int("records", len(d.records)),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	res, err := d.finalize(ctx)
	if err != nil {
		d.setState(StateFailed)
		return nil, err
	}
	res.Entities = d.entities.Load()
	res.Filtered = d.filtered.Load()
	res.Duration = time.Since(start)
	d.setState(StateDone)
	return res, nil
}

// begin moves Idle to Streaming. An empty stream passes through Streaming
// too, so Finalizing always follows Streaming.
func (d *Driver) begin() {
	if d.State() == StateIdle {
		d.setState(StateStreaming)
	}
}

// admit counts the entity and runs the filters on it
func (d *Driver) admit(e *poi.Entity) (bool, error) {
	d.entities.Add(1)
	for _, f := range d.opts.Filters {
		ok, err := f.Accept(e)
		if err != nil {
			return false, fmt.Errorf("filter %s: %w", e.Ref, err)
		}
		if !ok {
			d.filtered.Add(1)
			return false, nil
		}
	}
	return true, nil
}

func (d *Driver) collect(rec *poi.Record) {
	d.agg.Observe(rec)
	d.records = append(d.records, rec)
	d.accepted.Add(1)
}

func (d *Driver) process(e *poi.Entity) *poi.Record {
	subtype, ok := d.opts.Classifier.Classify(e.Tags)
	if !ok {
		return nil
	}
	rec := poi.Extract(e, subtype)
	if len(rec.Dropped) > 0 {
		d.log.Debug("Dropped malformed fields", zap.Stringer("ref", rec.Ref), zap.Strings("keys", rec.Dropped))
	}
	return rec
}

func (d *Driver) decoderError(err error) error {
	return &DecoderError{Processed: d.entities.Load(), Err: err}
}

func (d *Driver) streamSequential(ctx context.Context, src source.Source) error {
	for src.Scan() {
		if err := ctx.Err(); err != nil {
			return d.decoderError(err)
		}
		d.begin()
		e := src.Entity()
		ok, err := d.admit(e)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if rec := d.process(e); rec != nil {
			d.collect(rec)
		}
	}
	if err := src.Err(); err != nil {
		return d.decoderError(err)
	}
	d.begin()
	return nil
}

type job struct {
	seq    int64
	entity *poi.Entity
}

type result struct {
	seq    int64
	record *poi.Record // nil when the entity did not classify
}

// streamParallel fans entities out to workers and merges results back in
// sequence order. Filters run on the dispatch goroutine and all collection
// happens on the calling goroutine.
func (d *Driver) streamParallel(ctx context.Context, src source.Source) error {
	workers := d.opts.Workers
	jobs := make(chan job, workers*256)
	results := make(chan result, workers*256)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		var seq int64
		for src.Scan() {
			if err := ctx.Err(); err != nil {
				return d.decoderError(err)
			}
			d.begin()
			e := src.Entity()
			ok, err := d.admit(e)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			select {
			case jobs <- job{seq: seq, entity: e}:
				seq++
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		if err := src.Err(); err != nil {
			return d.decoderError(err)
		}
		d.begin()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for j := range jobs {
				select {
				case results <- result{seq: j.seq, record: d.process(j.entity)}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	pending := make(map[int64]*poi.Record)
	var next int64
	for r := range results {
		pending[r.seq] = r.record
		for {
			rec, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if rec != nil {
				d.collect(rec)
			}
		}
	}

	return g.Wait()
}

func (d *Driver) finalize(ctx context.Context) (*Result, error) {
	d.setState(StateFinalizing)

	summary := d.agg.Finalize(d.opts.TopN)
	res := &Result{Summary: summary}

	if d.opts.Exporter != nil {
		arts, err := d.opts.Exporter.Write(ctx, d.records, summary, d.opts.BasePath)
		if err != nil {
			return nil, err
		}
		res.Artifacts = arts
		for _, p := range arts.Paths() {
			d.log.Info("Wrote artifact", zap.String("path", p))
		}
	}

	if d.opts.Report != nil {
		if err := stats.WriteReport(d.opts.Report, summary); err != nil {
			return nil, fmt.Errorf("failed to write report: %w", err)
		}
	}
	stats.LogSummary(d.log, summary)

	for _, sink := range d.opts.Sinks {
		n, err := sink.Load(ctx, d.records)
		if err != nil {
			return nil, err
		}
		res.Loaded += n
	}
	return res, nil
}
