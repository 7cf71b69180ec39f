package wkb

import (
	"encoding/hex"
	"testing"
)

func TestEncodePoint(t *testing.T) {
	got := hex.EncodeToString(NewEncoder().EncodePoint(1, 2))
	// 01 | 01000020 | E6100000 | 1.0 | 2.0
	want := "0101000020e6100000000000000000f03f0000000000000040"
	if got != want {
		t.Errorf("EncodePoint = %s, want %s", got, want)
	}
}

func TestEncoderReusesBuffer(t *testing.T) {
	e := NewEncoderWithSRID(3857)
	if e.SRID() != 3857 {
		t.Fatalf("SRID = %d", e.SRID())
	}
	a := e.EncodePoint(100.5, 13.7)
	if len(a) != pointSize {
		t.Fatalf("len = %d, want %d", len(a), pointSize)
	}
	b := e.EncodePoint(0, 0)
	if &a[0] != &b[0] {
		t.Error("expected buffer reuse")
	}
}

func TestPointIsIndependent(t *testing.T) {
	a := Point(100.5308, 13.7465)
	b := Point(0, 0)
	if hex.EncodeToString(a) == hex.EncodeToString(b) {
		t.Error("points should differ")
	}
	if len(a) != pointSize || a[0] != 0x01 {
		t.Errorf("unexpected header % x", a[:5])
	}
}
