package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/wegman-software/osmpoi/internal/poi"
)

// encodeFunc serializes the full record set into w
type encodeFunc func(w io.Writer, columns []poi.Field, records []*poi.Record) error

// encodeCSV writes one header row and one row per record. Absent fields
// become empty cells.
func encodeCSV(w io.Writer, columns []poi.Field, records []*poi.Record) error {
	cw := csv.NewWriter(w)

	row := make([]string, len(columns))
	for i, col := range columns {
		row[i] = col.Name
	}
	if err := cw.Write(row); err != nil {
		return err
	}

	for _, rec := range records {
		for i, col := range columns {
			row[i] = ""
			if v, ok := rec.Get(col.Name); ok {
				row[i] = v.Text
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// encodeJSON writes an indented array with one object per record. Objects
// carry only the fields of the record's subtype, in column order, and omit
// absent fields.
func encodeJSON(w io.Writer, columns []poi.Field, records []*poi.Record) error {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, rec := range records {
		if i > 0 {
			compact.WriteByte(',')
		}
		if err := appendObject(&compact, columns, rec); err != nil {
			return err
		}
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func appendObject(buf *bytes.Buffer, columns []poi.Field, rec *poi.Record) error {
	buf.WriteByte('{')
	first := true
	for _, col := range columns {
		if !col.AppliesTo(rec.Subtype) {
			continue
		}
		v, ok := rec.Get(col.Name)
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		if err := appendString(buf, col.Name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if v.Numeric {
			buf.WriteString(v.Text)
			continue
		}
		if err := appendString(buf, v.Text); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// appendString writes s as a JSON string without HTML escaping, keeping
// non-ASCII text readable.
func appendString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates every value with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}
