// Package export serializes a finished record set into its sibling output
// artifacts: CSV, JSON and optionally Parquet.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/osmpoi/internal/logger"
	"github.com/wegman-software/osmpoi/internal/poi"
	"github.com/wegman-software/osmpoi/internal/stats"
)

// WriteError reports a failure to produce one artifact
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Options controls which artifacts are produced
type Options struct {
	// Subtypes enabled in the run; they decide the tabular column set
	Subtypes poi.SubtypeSet
	// Parquet adds a columnar artifact next to CSV and JSON
	Parquet      bool
	RowGroupSize int
	// Split adds one CSV and JSON pair per enabled subtype, named
	// <base>_<family>, next to the combined set
	Split bool
}

// Artifacts holds the final paths of a successful write
type Artifacts struct {
	CSV     string
	JSON    string
	Parquet string
	Split   []string // per-subtype artifacts, CSV before JSON
}

// Paths returns the produced artifact paths
func (a Artifacts) Paths() []string {
	var out []string
	for _, p := range []string{a.CSV, a.JSON, a.Parquet} {
		if p != "" {
			out = append(out, p)
		}
	}
	return append(out, a.Split...)
}

// SplitSuffix is the file name suffix of a subtype's split artifacts
func SplitSuffix(st poi.Subtype) string {
	switch st {
	case poi.SubtypeRestaurant:
		return "_restaurants"
	case poi.SubtypeRailStation:
		return "_rail_stations"
	case poi.SubtypeBusStop:
		return "_bus_stops"
	}
	return "_" + st.String()
}

// Writer writes the artifact set of one run
type Writer struct {
	opts    Options
	columns []poi.Field
}

// NewWriter creates a writer. The column set is the union of fields of all
// enabled subtypes, in declared order.
func NewWriter(opts Options) *Writer {
	if opts.Subtypes == 0 {
		opts.Subtypes = poi.AllSubtypes
	}
	return &Writer{
		opts:    opts,
		columns: poi.Columns(opts.Subtypes),
	}
}

// Columns returns the tabular column set
func (w *Writer) Columns() []poi.Field {
	return w.columns
}

type artifact struct {
	path    string
	encode  encodeFunc
	columns []poi.Field
	records []*poi.Record
	split   bool
	tmp     string
}

// Write serializes records in their given order to basePath plus a format
// extension. The artifacts form one consistent set: every artifact is first
// written to a temporary file next to its destination, and only when all of
// them succeed are they renamed into place. On any failure no artifact of
// the set is left behind.
func (w *Writer) Write(ctx context.Context, records []*poi.Record, summary stats.Summary, basePath string) (Artifacts, error) {
	log := logger.Get()

	if summary.Total != int64(len(records)) {
		return Artifacts{}, fmt.Errorf("summary covers %d records, got %d", summary.Total, len(records))
	}

	dir := filepath.Dir(basePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Artifacts{}, &WriteError{Path: dir, Err: err}
	}

	set := []*artifact{
		{path: basePath + ".csv", encode: encodeCSV, columns: w.columns, records: records},
		{path: basePath + ".json", encode: encodeJSON, columns: w.columns, records: records},
	}
	if w.opts.Parquet {
		set = append(set, &artifact{
			path:    basePath + ".parquet",
			encode:  parquetEncoder(w.opts.RowGroupSize),
			columns: w.columns,
			records: records,
		})
	}
	if w.opts.Split {
		set = append(set, w.splitArtifacts(records, basePath)...)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range set {
		a := a
		g.Go(func() error {
			var buf bytes.Buffer
			if err := a.encode(&buf, a.columns, a.records); err != nil {
				return &WriteError{Path: a.path, Err: err}
			}
			if err := gctx.Err(); err != nil {
				return &WriteError{Path: a.path, Err: err}
			}
			tmp, err := writeTemp(a.path, buf.Bytes())
			if err != nil {
				return &WriteError{Path: a.path, Err: err}
			}
			a.tmp = tmp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		removeTemps(set)
		return Artifacts{}, err
	}

	for i, a := range set {
		if err := os.Rename(a.tmp, a.path); err != nil {
			removeTemps(set[i:])
			for _, done := range set[:i] {
				os.Remove(done.path)
			}
			return Artifacts{}, &WriteError{Path: a.path, Err: err}
		}
		a.tmp = ""
		log.Debug("Artifact written", zap.String("path", a.path), zap.Int("records", len(a.records)))
	}

	out := Artifacts{CSV: set[0].path, JSON: set[1].path}
	if w.opts.Parquet {
		out.Parquet = set[2].path
	}
	for _, a := range set {
		if a.split {
			out.Split = append(out.Split, a.path)
		}
	}
	return out, nil
}

// splitArtifacts builds a CSV and JSON pair for every enabled subtype. Each
// pair only carries the columns of its subtype; a subtype without records
// still gets a header-only CSV and an empty JSON array.
func (w *Writer) splitArtifacts(records []*poi.Record, basePath string) []*artifact {
	var out []*artifact
	for _, st := range poi.Subtypes {
		if !w.opts.Subtypes.Has(st) {
			continue
		}
		var part []*poi.Record
		for _, rec := range records {
			if rec.Subtype == st {
				part = append(part, rec)
			}
		}
		columns := poi.Columns(poi.NewSubtypeSet(st))
		base := basePath + SplitSuffix(st)
		out = append(out,
			&artifact{path: base + ".csv", encode: encodeCSV, columns: columns, records: part, split: true},
			&artifact{path: base + ".json", encode: encodeJSON, columns: columns, records: part, split: true},
		)
	}
	return out
}

// writeTemp writes data to a hidden temporary file in the directory of path
func writeTemp(path string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

func removeTemps(set []*artifact) {
	for _, a := range set {
		if a.tmp != "" {
			os.Remove(a.tmp)
			a.tmp = ""
		}
	}
}
