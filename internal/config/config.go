package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wegman-software/osmpoi/internal/poi"
	"github.com/wegman-software/osmpoi/internal/stats"
	"github.com/wegman-software/osmpoi/internal/style"
)

// BBox represents a geographic bounding box
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
	IsSet                          bool
}

// Contains checks if a point is within the bounding box
func (b *BBox) Contains(lat, lon float64) bool {
	if b == nil || !b.IsSet {
		return true
	}
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// ParseBBox parses a bbox string in format "minlon,minlat,maxlon,maxlat"
func ParseBBox(s string) (*BBox, error) {
	if s == "" {
		return &BBox{IsSet: false}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values: minlon,minlat,maxlon,maxlat")
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox coordinate %q: %w", p, err)
		}
		coords[i] = v
	}

	bbox := &BBox{
		MinLon: coords[0],
		MinLat: coords[1],
		MaxLon: coords[2],
		MaxLat: coords[3],
		IsSet:  true,
	}

	if bbox.MinLon > bbox.MaxLon {
		return nil, fmt.Errorf("minlon (%f) must be <= maxlon (%f)", bbox.MinLon, bbox.MaxLon)
	}
	if bbox.MinLat > bbox.MaxLat {
		return nil, fmt.Errorf("minlat (%f) must be <= maxlat (%f)", bbox.MinLat, bbox.MaxLat)
	}

	return bbox, nil
}

// Config holds the configuration of one extraction run
type Config struct {
	// Input settings
	InputFile  string
	ConfigFile string // optional YAML run file
	BBox       *BBox  // nodes outside are skipped
	BBoxSpec   string

	// Output settings
	OutputBase string // artifacts are <OutputBase>.csv / .json / .parquet
	Parquet    bool
	Split      bool // also write <OutputBase>_<family>.csv / .json per subtype
	BatchSize  int  // Parquet row group size

	// Classification and statistics
	Subtypes []string
	Tracked  []stats.TrackedField
	TopN     int
	Filter   *style.FilterConfig
	Script   string // Lua file defining accept(kind, id, tags, location)

	// Processing settings
	Workers  int
	Progress bool

	// PostgreSQL sink
	Load         bool
	DBHost       string
	DBPort       int
	DBName       string
	DBUser       string
	DBPassword   string
	DBSchema     string
	DBTable      string
	DropExisting bool

	// Logging and metrics
	Verbose         bool
	LogFile         string        // Path to log file (empty = no file logging)
	MetricsInterval time.Duration // 0 disables the system metrics sampler
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BatchSize: 100000,
		Tracked:   append([]stats.TrackedField(nil), stats.DefaultTracked...),
		TopN:      10,
		Workers:   1,
		DBHost:    "localhost",
		DBPort:    5432,
		DBName:    "osm",
		DBUser:    "postgres",
		DBSchema:  "public",
		DBTable:   "poi",
	}
}

// SubtypeSet returns the enabled subtypes. No subtypes means all of them.
func (c *Config) SubtypeSet() (poi.SubtypeSet, error) {
	return poi.ParseSubtypeSet(c.Subtypes)
}

// DefaultOutputBase derives the artifact base path from the input file name,
// e.g. bangkok.osm.pbf -> bangkok_poi
func DefaultOutputBase(input string) string {
	name := filepath.Base(input)
	for _, ext := range []string{".pbf", ".osm", ".xml"} {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.TrimSuffix(name, ".osm")
	return name + "_poi"
}

// ConnectionString returns a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser,
	)
	if c.DBPassword != "" {
		connStr += fmt.Sprintf(" password=%s", c.DBPassword)
	}
	return connStr
}

// Validate checks that the configuration is valid and resolves derived
// settings such as the bounding box and the output base.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Parquet && c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1")
	}
	if _, err := c.SubtypeSet(); err != nil {
		return err
	}
	for _, tf := range c.Tracked {
		if _, ok := poi.FieldByName(tf.Field); !ok {
			return fmt.Errorf("tracked field %q is not an output field", tf.Field)
		}
		if tf.Multi && tf.Equals != "" {
			return fmt.Errorf("tracked field %q cannot be both multi and a value match", tf.Field)
		}
	}
	if err := c.Filter.Validate(); err != nil {
		return err
	}
	if c.BBoxSpec != "" {
		bbox, err := ParseBBox(c.BBoxSpec)
		if err != nil {
			return err
		}
		c.BBox = bbox
	}
	if c.OutputBase == "" {
		c.OutputBase = DefaultOutputBase(c.InputFile)
	}
	if c.Load && c.DBTable == "" {
		return fmt.Errorf("db table is required when loading")
	}
	return nil
}
