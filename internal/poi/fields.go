package poi

import (
	"math"
	"strconv"
	"strings"
)

// Identity, geometry and derived field names
const (
	FieldOSMType     = "osm_type"
	FieldOSMID       = "osm_id"
	FieldType        = "type"
	FieldTransitType = "transit_type"
	FieldName        = "name"
	FieldNameEN      = "name_en"
	FieldNameTH      = "name_th"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
	FieldCuisine     = "cuisine"
	FieldCapacity    = "capacity"
	FieldPlatforms   = "platforms"
	FieldStars       = "stars"
)

// Origin says where a field's value comes from
type Origin uint8

const (
	OriginTag Origin = iota
	OriginIdentity
	OriginGeometry
	OriginDerived
)

// Coercion converts a raw tag value into a field value
type Coercion uint8

const (
	CoerceText Coercion = iota
	CoerceInteger
	CoerceDecimal
)

func (c Coercion) String() string {
	switch c {
	case CoerceInteger:
		return "integer"
	case CoerceDecimal:
		return "decimal"
	}
	return "text"
}

// Apply coerces raw. ok is false when raw is not a valid value for the
// coercion; text never fails, but invalid UTF-8 is replaced with U+FFFD so
// every output format sees the same string.
func (c Coercion) Apply(raw string) (Value, bool) {
	switch c {
	case CoerceInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Value{}, false
		}
		return Value{Text: strconv.FormatInt(n, 10), Numeric: true}, true
	case CoerceDecimal:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, false
		}
		return Value{Text: formatFloat(f), Numeric: true}, true
	}
	return Text(strings.ToValidUTF8(raw, "\uFFFD")), true
}

// Field is one row of the extraction table: output column Name is filled
// from source tag Key using Coerce, for the listed subtypes.
type Field struct {
	Name     string
	Key      string
	Coerce   Coercion
	Origin   Origin
	Subtypes SubtypeSet
}

// AppliesTo reports whether the field belongs to records of subtype s
func (f Field) AppliesTo(s Subtype) bool {
	return f.Subtypes.Has(s)
}

var (
	food       = NewSubtypeSet(SubtypeRestaurant)
	rail       = NewSubtypeSet(SubtypeRailStation)
	bus        = NewSubtypeSet(SubtypeBusStop)
	foodRail   = food | rail
	foodBus    = food | bus
	transit    = rail | bus
	anySubtype = AllSubtypes
)

func tag(name, key string, subtypes SubtypeSet) Field {
	return Field{Name: name, Key: key, Subtypes: subtypes}
}

// Fields is the declared output order of every field across all subtypes
var Fields = []Field{
	{Name: FieldOSMType, Origin: OriginIdentity, Subtypes: anySubtype},
	{Name: FieldOSMID, Origin: OriginIdentity, Coerce: CoerceInteger, Subtypes: anySubtype},
	{Name: FieldType, Origin: OriginIdentity, Subtypes: anySubtype},
	{Name: FieldTransitType, Origin: OriginDerived, Subtypes: transit},
	tag(FieldName, "name", anySubtype),
	tag(FieldNameEN, "name:en", anySubtype),
	tag(FieldNameTH, "name:th", anySubtype),
	{Name: FieldLatitude, Origin: OriginGeometry, Coerce: CoerceDecimal, Subtypes: anySubtype},
	{Name: FieldLongitude, Origin: OriginGeometry, Coerce: CoerceDecimal, Subtypes: anySubtype},
	tag("amenity", "amenity", foodBus),
	tag(FieldCuisine, "cuisine", food),
	tag("diet", "diet:vegetarian", food),
	tag("railway", "railway", rail),
	tag("station", "station", rail),
	tag("highway", "highway", bus),
	tag("public_transport", "public_transport", transit),
	tag("network", "network", transit),
	tag("operator", "operator", transit),
	tag("brand", "brand", food),
	tag("line", "line", rail),
	tag("ref", "ref", transit),
	tag("local_ref", "local_ref", bus),
	tag("route_ref", "route_ref", bus),
	tag("colour", "colour", rail),
	tag("layer", "layer", rail),
	tag("level", "level", rail),
	{Name: FieldPlatforms, Key: "platforms", Coerce: CoerceInteger, Subtypes: rail},
	{Name: FieldCapacity, Key: "capacity", Coerce: CoerceInteger, Subtypes: food},
	{Name: FieldStars, Key: "stars", Coerce: CoerceDecimal, Subtypes: food},
	tag("phone", "phone", food),
	tag("website", "website", foodRail),
	tag("opening_hours", "opening_hours", foodRail),
	tag("outdoor_seating", "outdoor_seating", food),
	tag("takeaway", "takeaway", food),
	tag("delivery", "delivery", food),
	tag("internet_access", "internet_access", food),
	tag("air_conditioning", "air_conditioning", food),
	tag("smoking", "smoking", food),
	tag("wheelchair", "wheelchair", anySubtype),
	tag("toilets", "toilets", rail),
	tag("shelter", "shelter", transit),
	tag("bench", "bench", transit),
	tag("lit", "lit", transit),
	tag("covered", "covered", transit),
	tag("tactile_paving", "tactile_paving", bus),
	tag("departures_board", "departures_board", bus),
	tag("timetable", "timetable", bus),
	tag("bin", "bin", bus),
	tag("surface", "surface", bus),
	tag("address", "addr:full", anySubtype),
	tag("street", "addr:street", anySubtype),
	tag("housenumber", "addr:housenumber", food),
	tag("postcode", "addr:postcode", food),
	tag("district", "addr:district", anySubtype),
	tag("subdistrict", "addr:subdistrict", anySubtype),
	tag("province", "addr:province", anySubtype),
	tag("city", "addr:city", food),
	tag("description", "description", food),
}

// Columns returns the fields applicable to any subtype in set, in declared
// order.
func Columns(set SubtypeSet) []Field {
	var out []Field
	for _, f := range Fields {
		if f.Subtypes.Intersects(set) {
			out = append(out, f)
		}
	}
	return out
}

// FieldByName finds a field in the table
func FieldByName(name string) (Field, bool) {
	for _, f := range Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
