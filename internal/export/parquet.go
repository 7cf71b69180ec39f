package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/wegman-software/osmpoi/internal/poi"
)

// DefaultRowGroupSize is the number of records per Parquet row group
const DefaultRowGroupSize = 100000

// parquetSchema maps export columns to nullable Arrow fields
func parquetSchema(columns []poi.Field) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, col := range columns {
		fields[i] = arrow.Field{Name: col.Name, Type: arrowType(col.Coerce), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(c poi.Coercion) arrow.DataType {
	switch c {
	case poi.CoerceInteger:
		return arrow.PrimitiveTypes.Int64
	case poi.CoerceDecimal:
		return arrow.PrimitiveTypes.Float64
	}
	return arrow.BinaryTypes.String
}

// parquetEncoder returns an encoder writing a Zstd-compressed Parquet file
// with the same columns as the CSV artifact. Absent fields are nulls.
func parquetEncoder(rowGroupSize int) encodeFunc {
	if rowGroupSize <= 0 {
		rowGroupSize = DefaultRowGroupSize
	}
	return func(w io.Writer, columns []poi.Field, records []*poi.Record) error {
		schema := parquetSchema(columns)

		props := parquet.NewWriterProperties(
			parquet.WithCompression(compress.Codecs.Zstd),
			parquet.WithDictionaryDefault(false),
		)
		writer, err := pqarrow.NewFileWriter(schema, w, props, pqarrow.DefaultWriterProps())
		if err != nil {
			return err
		}

		builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
		defer builder.Release()

		pending := 0
		flush := func() error {
			if pending == 0 {
				return nil
			}
			rec := builder.NewRecord()
			defer rec.Release()
			pending = 0
			return writer.Write(rec)
		}

		for _, rec := range records {
			for i, col := range columns {
				if err := appendParquetValue(builder.Field(i), col, rec); err != nil {
					writer.Close()
					return fmt.Errorf("%s %s: %w", rec.Ref, col.Name, err)
				}
			}
			pending++
			if pending >= rowGroupSize {
				if err := flush(); err != nil {
					writer.Close()
					return err
				}
			}
		}

		if err := flush(); err != nil {
			writer.Close()
			return err
		}
		return writer.Close()
	}
}

func appendParquetValue(b array.Builder, col poi.Field, rec *poi.Record) error {
	v, ok := rec.Get(col.Name)
	if !ok {
		b.AppendNull()
		return nil
	}
	switch fb := b.(type) {
	case *array.Int64Builder:
		n, err := strconv.ParseInt(v.Text, 10, 64)
		if err != nil {
			return err
		}
		fb.Append(n)
	case *array.Float64Builder:
		f, err := strconv.ParseFloat(v.Text, 64)
		if err != nil {
			return err
		}
		fb.Append(f)
	case *array.StringBuilder:
		fb.Append(v.Text)
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}
