// Package wkb encodes record coordinates as PostGIS extended WKB.
package wkb

import (
	"encoding/binary"
	"math"
)

const (
	wkbPoint    = 1
	wkbSRIDFlag = 0x20000000

	// byte order + type + srid + x + y
	pointSize = 1 + 4 + 4 + 8 + 8
)

// SRID4326 is WGS84, the reference system of OSM coordinates
const SRID4326 = 4326

// Encoder encodes points as little-endian EWKB with an SRID. It reuses its
// buffer, so the returned slice is only valid until the next call.
type Encoder struct {
	buf  []byte
	srid uint32
}

// NewEncoder creates an encoder for SRID 4326
func NewEncoder() *Encoder {
	return NewEncoderWithSRID(SRID4326)
}

// NewEncoderWithSRID creates an encoder for the given SRID
func NewEncoderWithSRID(srid int) *Encoder {
	return &Encoder{
		buf:  make([]byte, 0, pointSize),
		srid: uint32(srid),
	}
}

// SRID returns the encoder's SRID
func (e *Encoder) SRID() int {
	return int(e.srid)
}

// EncodePoint encodes a point, X is longitude and Y latitude
func (e *Encoder) EncodePoint(lon, lat float64) []byte {
	e.buf = e.buf[:0]
	e.buf = append(e.buf, 0x01)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, wkbPoint|wkbSRIDFlag)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, e.srid)
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(lon))
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(lat))
	return e.buf
}

// Point returns a freshly allocated EWKB point in SRID 4326
func Point(lon, lat float64) []byte {
	out := make([]byte, pointSize)
	copy(out, NewEncoder().EncodePoint(lon, lat))
	return out
}
