// Package loader copies finished records into a PostGIS table.
package loader

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wegman-software/osmpoi/internal/config"
	"github.com/wegman-software/osmpoi/internal/logger"
	"github.com/wegman-software/osmpoi/internal/poi"
	"github.com/wegman-software/osmpoi/internal/wkb"
)

const (
	tempTable  = "osmpoi_load_tmp"
	geomColumn = "geom"
	wkbColumn  = "geom_wkb"
)

// Loader writes records to <schema>.<table>, one column per export column
// plus a point geometry for records with coordinates
type Loader struct {
	pool         *pgxpool.Pool
	schema       string
	table        string
	columns      []poi.Field
	dropExisting bool
}

// New connects to PostgreSQL
func New(ctx context.Context, cfg *config.Config, columns []poi.Field) (*Loader, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &Loader{
		pool:         pool,
		schema:       cfg.DBSchema,
		table:        cfg.DBTable,
		columns:      columns,
		dropExisting: cfg.DropExisting,
	}, nil
}

// Close closes connections
func (l *Loader) Close() error {
	l.pool.Close()
	return nil
}

func (l *Loader) qualifiedName() string {
	return pgx.Identifier{l.schema, l.table}.Sanitize()
}

// Load creates the table if needed and copies records into it in a single
// transaction. It returns the number of rows inserted.
func (l *Loader) Load(ctx context.Context, records []*poi.Record) (int64, error) {
	log := logger.Named("loader")
	start := time.Now()

	if _, err := l.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS postgis"); err != nil {
		return 0, fmt.Errorf("failed to create PostGIS extension: %w", err)
	}
	if l.schema != "public" {
		if _, err := l.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{l.schema}.Sanitize()); err != nil {
			return 0, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if l.dropExisting {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+l.qualifiedName()); err != nil {
			return 0, fmt.Errorf("failed to drop table: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, createTableSQL(l.qualifiedName(), l.columns)); err != nil {
		return 0, fmt.Errorf("failed to create table: %w", err)
	}
	if _, err := tx.Exec(ctx, tempTableSQL(l.columns)); err != nil {
		return 0, fmt.Errorf("failed to create temp table: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{tempTable},
		copyColumns(l.columns),
		newRecordSource(l.columns, records),
	)
	if err != nil {
		return 0, fmt.Errorf("COPY failed: %w", err)
	}

	tag, err := tx.Exec(ctx, insertSQL(l.qualifiedName(), l.columns))
	if err != nil {
		return 0, fmt.Errorf("failed to insert from temp table: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	log.Info("Records loaded",
		zap.String("table", l.qualifiedName()),
		zap.Int64("copied", copied),
		zap.Int64("inserted", tag.RowsAffected()),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))
	return tag.RowsAffected(), nil
}

// sqlType maps an export column to its PostgreSQL type
func sqlType(f poi.Field) string {
	switch {
	case f.Name == poi.FieldOSMID:
		return "BIGINT"
	case f.Name == poi.FieldLatitude, f.Name == poi.FieldLongitude:
		return "DOUBLE PRECISION"
	case f.Coerce == poi.CoerceInteger:
		return "BIGINT"
	case f.Coerce == poi.CoerceDecimal:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

func columnDefs(columns []poi.Field) []string {
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		defs = append(defs, pgx.Identifier{c.Name}.Sanitize()+" "+sqlType(c))
	}
	return defs
}

func createTableSQL(table string, columns []poi.Field) string {
	defs := append(columnDefs(columns), geomColumn+" GEOMETRY(Point, 4326)")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(defs, ",\n\t"))
}

func tempTableSQL(columns []poi.Field) string {
	defs := append(columnDefs(columns), wkbColumn+" BYTEA")
	return fmt.Sprintf("CREATE TEMP TABLE %s (\n\t%s\n) ON COMMIT DROP", tempTable, strings.Join(defs, ",\n\t"))
}

func copyColumns(columns []poi.Field) []string {
	names := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		names = append(names, c.Name)
	}
	return append(names, wkbColumn)
}

func insertSQL(table string, columns []poi.Field) string {
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		names = append(names, pgx.Identifier{c.Name}.Sanitize())
	}
	list := strings.Join(names, ", ")
	return fmt.Sprintf("INSERT INTO %s (%s, %s)\nSELECT %s, ST_GeomFromEWKB(%s) FROM %s",
		table, list, geomColumn, list, wkbColumn, tempTable)
}

// rowValues converts a record to COPY values. Absent fields are NULL.
func rowValues(columns []poi.Field, rec *poi.Record, enc *wkb.Encoder) ([]any, error) {
	row := make([]any, 0, len(columns)+1)
	for _, c := range columns {
		v, ok := rec.Get(c.Name)
		if !ok {
			row = append(row, nil)
			continue
		}
		switch sqlType(c) {
		case "BIGINT":
			n, err := strconv.ParseInt(v.Text, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", rec.Ref, c.Name, err)
			}
			row = append(row, n)
		case "DOUBLE PRECISION":
			f, err := strconv.ParseFloat(v.Text, 64)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", rec.Ref, c.Name, err)
			}
			row = append(row, f)
		default:
			row = append(row, v.Text)
		}
	}
	if rec.HasCoordinates() {
		geom := enc.EncodePoint(*rec.Longitude, *rec.Latitude)
		row = append(row, append([]byte(nil), geom...))
	} else {
		row = append(row, nil)
	}
	return row, nil
}

// recordSource implements pgx.CopyFromSource over a record slice
type recordSource struct {
	columns []poi.Field
	records []*poi.Record
	enc     *wkb.Encoder

	pos     int
	current []any
	err     error
}

func newRecordSource(columns []poi.Field, records []*poi.Record) *recordSource {
	return &recordSource{columns: columns, records: records, enc: wkb.NewEncoder(), pos: -1}
}

func (r *recordSource) Next() bool {
	if r.err != nil || r.pos+1 >= len(r.records) {
		return false
	}
	r.pos++
	r.current, r.err = rowValues(r.columns, r.records[r.pos], r.enc)
	return r.err == nil
}

func (r *recordSource) Values() ([]any, error) {
	return r.current, r.err
}

func (r *recordSource) Err() error {
	return r.err
}
