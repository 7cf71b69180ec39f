// Package poi classifies OSM entities into points of interest and maps their
// tags onto canonical records.
package poi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wegman-software/osmpoi/internal/tags"
)

// Kind is the OSM element type of an entity
type Kind uint8

const (
	KindNode Kind = iota + 1
	KindWay
	KindRelation
)

// Kinds lists all entity kinds in report order
var Kinds = []Kind{KindNode, KindWay, KindRelation}

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindWay:
		return "way"
	case KindRelation:
		return "relation"
	}
	return "unknown"
}

// ParseKind parses "node", "way" or "relation"
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}

// Ref identifies a source object. It is assigned by the decoder and never
// recomputed.
type Ref struct {
	Kind Kind
	ID   int64
}

func (r Ref) String() string {
	return r.Kind.String() + "/" + strconv.FormatInt(r.ID, 10)
}

// Coordinate is a WGS84 position
type Coordinate struct {
	Lat float64
	Lon float64
}

// Entity is one decoded map object as delivered by a source
type Entity struct {
	Ref      Ref
	Tags     tags.Tags
	Location *Coordinate // nil unless the decoder supplied a position
}

// Subtype is the POI family a record belongs to
type Subtype uint8

const (
	SubtypeRestaurant Subtype = iota + 1
	SubtypeRailStation
	SubtypeBusStop
)

// Subtypes lists all subtypes in classification priority order
var Subtypes = []Subtype{SubtypeRestaurant, SubtypeRailStation, SubtypeBusStop}

func (s Subtype) String() string {
	switch s {
	case SubtypeRestaurant:
		return "restaurant"
	case SubtypeRailStation:
		return "rail_station"
	case SubtypeBusStop:
		return "bus_stop"
	}
	return "unknown"
}

// ParseSubtype parses a subtype name such as "rail_station"
func ParseSubtype(s string) (Subtype, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, st := range Subtypes {
		if st.String() == name {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown subtype %q", s)
}

// SubtypeSet is a bit set of subtypes
type SubtypeSet uint8

// AllSubtypes contains every subtype
var AllSubtypes = NewSubtypeSet(Subtypes...)

// NewSubtypeSet builds a set from the given subtypes
func NewSubtypeSet(subtypes ...Subtype) SubtypeSet {
	var set SubtypeSet
	for _, s := range subtypes {
		set |= 1 << s
	}
	return set
}

// ParseSubtypeSet parses a list of subtype names. An empty list means all.
func ParseSubtypeSet(names []string) (SubtypeSet, error) {
	if len(names) == 0 {
		return AllSubtypes, nil
	}
	var set SubtypeSet
	for _, name := range names {
		st, err := ParseSubtype(name)
		if err != nil {
			return 0, err
		}
		set |= NewSubtypeSet(st)
	}
	return set, nil
}

// Has reports whether s is in the set
func (set SubtypeSet) Has(s Subtype) bool {
	return set&(1<<s) != 0
}

// Intersects reports whether the two sets share a subtype
func (set SubtypeSet) Intersects(other SubtypeSet) bool {
	return set&other != 0
}

// List returns the members in priority order
func (set SubtypeSet) List() []Subtype {
	var out []Subtype
	for _, s := range Subtypes {
		if set.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// Value is a present field value. Numeric values hold canonical number text
// so every output format renders the same characters.
type Value struct {
	Text    string
	Numeric bool
}

// Text returns a plain string value
func Text(s string) Value {
	return Value{Text: s}
}

// Record is the canonical, format-independent output unit for one entity
type Record struct {
	Ref       Ref
	Subtype   Subtype
	Latitude  *float64
	Longitude *float64

	// Dropped lists source keys whose values failed coercion
	Dropped []string

	values map[string]Value
}

// NewRecord creates an empty record. The subtype cannot change afterwards.
func NewRecord(ref Ref, subtype Subtype) *Record {
	return &Record{
		Ref:     ref,
		Subtype: subtype,
		values:  make(map[string]Value),
	}
}

// Set stores a value for an attribute field
func (r *Record) Set(field string, v Value) {
	r.values[field] = v
}

// SetLocation copies a coordinate into the record
func (r *Record) SetLocation(c Coordinate) {
	lat, lon := c.Lat, c.Lon
	r.Latitude = &lat
	r.Longitude = &lon
}

// HasCoordinates reports whether latitude is present
func (r *Record) HasCoordinates() bool {
	return r.Latitude != nil
}

// Get returns the value of any output field, including identity and
// geometry fields, and whether it is present.
func (r *Record) Get(field string) (Value, bool) {
	switch field {
	case FieldOSMType:
		return Text(r.Ref.Kind.String()), true
	case FieldOSMID:
		return Value{Text: strconv.FormatInt(r.Ref.ID, 10), Numeric: true}, true
	case FieldType:
		return Text(r.Subtype.String()), true
	case FieldLatitude:
		return floatValue(r.Latitude)
	case FieldLongitude:
		return floatValue(r.Longitude)
	}
	v, ok := r.values[field]
	return v, ok
}

// Lookup returns the text of a field when present
func (r *Record) Lookup(field string) (string, bool) {
	v, ok := r.Get(field)
	return v.Text, ok
}

func floatValue(f *float64) (Value, bool) {
	if f == nil {
		return Value{}, false
	}
	return Value{Text: formatFloat(*f), Numeric: true}, true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
