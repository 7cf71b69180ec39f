package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpoi/internal/config"
	"github.com/wegman-software/osmpoi/internal/flex"
	"github.com/wegman-software/osmpoi/internal/logger"
	"github.com/wegman-software/osmpoi/internal/metrics"
	"github.com/wegman-software/osmpoi/internal/pipeline"
	"github.com/wegman-software/osmpoi/internal/poi"
	"github.com/wegman-software/osmpoi/internal/source"
	"github.com/wegman-software/osmpoi/internal/style"
)

// addSelectionFlags registers the flags that decide which entities become
// records. Shared by extract and classify.
func addSelectionFlags(c *cobra.Command) {
	c.Flags().StringSliceVar(&cfg.Subtypes, "subtypes", nil, "Subtypes to extract: restaurant,rail_station,bus_stop (default all)")
	c.Flags().IntVar(&cfg.TopN, "top", cfg.TopN, "Entries per frequency list in the report (0 for all)")
	c.Flags().StringVar(&cfg.BBoxSpec, "bbox", "", "Only keep nodes inside minlon,minlat,maxlon,maxlat")
	c.Flags().StringVar(&cfg.Script, "script", "", "Lua script defining accept(kind, id, tags, location)")
	c.Flags().BoolVar(&cfg.Progress, "progress", false, "Show a progress bar while reading the input")
}

// prepare resolves the configuration of a run from flags and the optional
// run file
func prepare(cmd *cobra.Command, args []string) error {
	cfg.InputFile = args[0]
	if cfg.ConfigFile != "" {
		rf, err := config.LoadRunFile(cfg.ConfigFile)
		if err != nil {
			return err
		}
		rf.Apply(cfg, func(name string) bool { return cmd.Flags().Changed(name) })
	}
	return cfg.Validate()
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Get().Info("Received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// run holds the pieces of one pass that need cleanup
type run struct {
	subtypes poi.SubtypeSet
	opts     pipeline.Options
	hook     *flex.Hook
}

func (r *run) Close() {
	if r.hook != nil {
		r.hook.Close()
	}
}

// newRun builds driver options shared by all commands
func newRun() (*run, error) {
	subtypes, err := cfg.SubtypeSet()
	if err != nil {
		return nil, err
	}
	r := &run{subtypes: subtypes}
	r.opts = pipeline.Options{
		Classifier: poi.NewClassifier(subtypes),
		Tracked:    cfg.Tracked,
		TopN:       cfg.TopN,
		Workers:    cfg.Workers,
	}

	if cfg.Filter != nil {
		r.opts.Filters = append(r.opts.Filters, pipeline.StyleFilter(style.NewFilter(cfg.Filter)))
	}
	if cfg.BBox != nil && cfg.BBox.IsSet {
		r.opts.Filters = append(r.opts.Filters, pipeline.BBoxFilter(cfg.BBox))
	}
	if cfg.Script != "" {
		hook, err := flex.LoadHook(cfg.Script)
		if err != nil {
			return nil, err
		}
		r.hook = hook
		r.opts.Filters = append(r.opts.Filters, hook)
	}
	return r, nil
}

// execute opens the input and drives one pass over it
func (r *run) execute(ctx context.Context) (*pipeline.Result, error) {
	log := logger.Get()

	src, err := source.OpenFile(ctx, cfg.InputFile, source.Options{Procs: cfg.Workers, Progress: cfg.Progress})
	if err != nil {
		return nil, err
	}
	defer src.Close()

	log.Info("Reading input",
		zap.String("input", cfg.InputFile),
		zap.Stringer("format", src.Format()),
		zap.String("size", pipeline.FormatBytes(src.Size())),
		zap.Strings("subtypes", subtypeNames(r.subtypes)),
		zap.Int("workers", cfg.Workers),
	)

	driver := pipeline.NewDriver(r.opts)

	if cfg.MetricsInterval > 0 {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		defer cancelMetrics()

		collector := metrics.NewCollector(cfg.MetricsInterval, log, driver.RecordCount)
		go collector.Start(metricsCtx)
		log.Info("System metrics collection started", zap.Duration("interval", cfg.MetricsInterval))
	}

	res, err := driver.Run(ctx, src)
	if err != nil {
		var derr *pipeline.DecoderError
		if errors.As(err, &derr) {
			return nil, fmt.Errorf("reading %s: %w", cfg.InputFile, err)
		}
		return nil, err
	}

	if r.hook != nil {
		calls, rejected := r.hook.Stats()
		log.Debug("Lua accept hook", zap.Int64("calls", calls), zap.Int64("rejected", rejected))
	}
	log.Info("Pass complete",
		zap.Int64("entities", res.Entities),
		zap.Int64("filtered", res.Filtered),
		zap.Int64("records", res.Summary.Total),
		zap.Duration("duration", res.Duration.Round(time.Millisecond)),
	)
	return res, nil
}

func subtypeNames(set poi.SubtypeSet) []string {
	var names []string
	for _, s := range set.List() {
		names = append(names, s.String())
	}
	return names
}
