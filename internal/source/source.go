// Package source decodes OSM files into a stream of entities.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/schollz/progressbar/v3"

	"github.com/wegman-software/osmpoi/internal/poi"
	"github.com/wegman-software/osmpoi/internal/tags"
)

// Source yields entities in file order. Scan returns false at the end of the
// stream or on the first decode error; Err tells the two apart.
type Source interface {
	Scan() bool
	Entity() *poi.Entity
	Err() error
	Close() error
}

// Format is the on-disk encoding of an OSM file
type Format int

const (
	FormatPBF Format = iota
	FormatXML
)

func (f Format) String() string {
	if f == FormatXML {
		return "xml"
	}
	return "pbf"
}

// DetectFormat picks the decoder from the file extension
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pbf":
		return FormatPBF, nil
	case ".osm", ".xml":
		return FormatXML, nil
	default:
		return 0, fmt.Errorf("unsupported input format %q (want .osm.pbf, .osm or .xml)", filepath.Ext(path))
	}
}

// Options controls how a file is opened
type Options struct {
	// Procs is the number of PBF decode goroutines, 0 means NumCPU
	Procs int
	// Progress draws a byte progress bar on stderr
	Progress bool
}

// File is a Source reading from an OSM file on disk
type File struct {
	f       *os.File
	scanner osm.Scanner
	bar     *progressbar.ProgressBar
	format  Format
	size    int64

	entity *poi.Entity
	err    error
}

// OpenFile opens path and starts decoding it
func OpenFile(ctx context.Context, path string, opts Options) (*File, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	src := &File{f: f, format: format, size: info.Size()}

	var r io.Reader = f
	if opts.Progress {
		src.bar = newBar(info.Size(), filepath.Base(path))
		r = io.TeeReader(f, src.bar)
	}

	switch format {
	case FormatPBF:
		procs := opts.Procs
		if procs <= 0 {
			procs = runtime.NumCPU()
		}
		src.scanner = osmpbf.New(ctx, r, procs)
	case FormatXML:
		src.scanner = osmxml.New(ctx, r)
	}
	return src, nil
}

func newBar(size int64, name string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription("[cyan]Reading "+name+"..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Format returns the detected encoding
func (s *File) Format() Format { return s.format }

// Size returns the file size in bytes
func (s *File) Size() int64 { return s.size }

// Scan advances to the next node, way or relation
func (s *File) Scan() bool {
	if s.err != nil {
		return false
	}
	for s.scanner.Scan() {
		if e := convert(s.scanner.Object()); e != nil {
			s.entity = e
			return true
		}
	}
	if err := s.scanner.Err(); err != nil && err != io.EOF {
		s.err = err
	}
	s.entity = nil
	return false
}

// Entity returns the entity read by the last successful Scan
func (s *File) Entity() *poi.Entity { return s.entity }

// Err returns the first decode error, nil at a clean end of stream
func (s *File) Err() error { return s.err }

// Close stops the decoder and closes the file
func (s *File) Close() error {
	err := s.scanner.Close()
	if s.bar != nil {
		s.bar.Finish()
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// convert maps a decoded object onto an entity. Changesets, notes and the
// like return nil.
func convert(obj osm.Object) *poi.Entity {
	switch o := obj.(type) {
	case *osm.Node:
		return &poi.Entity{
			Ref:      poi.Ref{Kind: poi.KindNode, ID: int64(o.ID)},
			Tags:     tags.FromOSM(o.Tags),
			Location: &poi.Coordinate{Lat: o.Lat, Lon: o.Lon},
		}
	case *osm.Way:
		return &poi.Entity{
			Ref:  poi.Ref{Kind: poi.KindWay, ID: int64(o.ID)},
			Tags: tags.FromOSM(o.Tags),
		}
	case *osm.Relation:
		return &poi.Entity{
			Ref:  poi.Ref{Kind: poi.KindRelation, ID: int64(o.ID)},
			Tags: tags.FromOSM(o.Tags),
		}
	}
	return nil
}
