package stats

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wegman-software/osmpoi/internal/poi"
	"github.com/wegman-software/osmpoi/internal/tags"
)

func record(kind poi.Kind, id int64, tg tags.Tags, loc *poi.Coordinate) *poi.Record {
	e := &poi.Entity{Ref: poi.Ref{Kind: kind, ID: id}, Tags: tg, Location: loc}
	st, ok := poi.Classify(tg)
	if !ok {
		panic("test entity does not classify")
	}
	return poi.Extract(e, st)
}

func TestAggregatorSingleRestaurant(t *testing.T) {
	a := New(DefaultTracked)
	a.Observe(record(poi.KindNode, 1,
		tags.Tags{"amenity": "restaurant", "name": "Som Tam Nua", "name:th": "ส้มตำนัว"},
		&poi.Coordinate{Lat: 13.7465, Lon: 100.5308}))

	s := a.Finalize(10)
	assert.Equal(t, int64(1), s.Total)
	assert.Equal(t, int64(1), s.WithNames)
	assert.Equal(t, int64(1), s.WithCoordinates)
	assert.Equal(t, int64(0), s.WithoutCoordinates)
	assert.Equal(t, 100.0, s.Percent(s.WithNames))
	assert.Equal(t, 100.0, s.Percent(s.WithCoordinates))
	assert.Equal(t, []Count{{Label: "node", Count: 1}}, s.ByKind)
	assert.Equal(t, []Count{{Label: "restaurant", Count: 1}}, s.BySubtype)
}

func TestAggregatorCuisineTokens(t *testing.T) {
	a := New(DefaultTracked)
	a.Observe(record(poi.KindNode, 1, tags.Tags{"amenity": "restaurant", "cuisine": "thai;isaan"}, nil))
	a.Observe(record(poi.KindWay, 2, tags.Tags{"amenity": "restaurant", "cuisine": "Thai; isaan"}, nil))
	a.Observe(record(poi.KindNode, 3, tags.Tags{"amenity": "restaurant", "cuisine": "noodle;noodle;;"}, nil))

	s := a.Finalize(0)
	cuisine, ok := s.Field(poi.FieldCuisine)
	require.True(t, ok)
	assert.Equal(t, int64(3), cuisine.Present)
	assert.Equal(t, 3, cuisine.Distinct)
	assert.Equal(t, []Count{
		{Label: "thai", Count: 2},
		{Label: "isaan", Count: 2},
		{Label: "noodle", Count: 2},
	}, cuisine.Top)
}

func TestAggregatorTopNAndTieOrder(t *testing.T) {
	a := New([]TrackedField{{Field: "operator"}})
	for i, op := range []string{"SRT", "BMTA", "BMTA", "Private", "SRT", "BMTA"} {
		a.Observe(record(poi.KindNode, int64(i), tags.Tags{"highway": "bus_stop", "operator": op}, nil))
	}

	s := a.Finalize(2)
	ops, _ := s.Field("operator")
	assert.Equal(t, []Count{{Label: "BMTA", Count: 3}, {Label: "SRT", Count: 2}}, ops.Top)
	assert.Equal(t, 3, ops.Distinct)
}

func TestAggregatorCoverageIdentity(t *testing.T) {
	a := New(nil)
	recs := []*poi.Record{
		record(poi.KindNode, 1, tags.Tags{"highway": "bus_stop"}, &poi.Coordinate{Lat: 1, Lon: 1}),
		record(poi.KindWay, 2, tags.Tags{"highway": "bus_stop", "name": "Siam"}, nil),
		record(poi.KindRelation, 3, tags.Tags{"railway": "station"}, nil),
	}
	var withLat int64
	for _, r := range recs {
		a.Observe(r)
		if r.Latitude != nil {
			withLat++
		}
	}

	s := a.Finalize(10)
	assert.Equal(t, s.Total, s.WithCoordinates+s.WithoutCoordinates)
	assert.Equal(t, withLat, s.WithCoordinates)
	assert.Equal(t, int64(1), s.WithNames)
	assert.Equal(t, 33.3, s.Percent(1))
	assert.Equal(t, 66.7, s.Percent(2))
	assert.Equal(t, []Count{{"node", 1}, {"way", 1}, {"relation", 1}}, s.ByKind)
}

func TestPercentEmpty(t *testing.T) {
	assert.Equal(t, 0.0, New(DefaultTracked).Finalize(10).Percent(0))
}

func TestWriteReport(t *testing.T) {
	a := New(DefaultTracked)
	a.Observe(record(poi.KindNode, 1, tags.Tags{"amenity": "restaurant", "name": "A", "cuisine": "thai;isaan"}, &poi.Coordinate{}))
	a.Observe(record(poi.KindWay, 2, tags.Tags{"amenity": "restaurant", "cuisine": "thai"}, nil))

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, a.Finalize(10)))
	out := buf.String()

	assert.Contains(t, out, "Total records: 2")
	assert.Contains(t, out, "  node: 1\n  way: 1")
	assert.Contains(t, out, "With names: 1 (50.0%)")
	assert.Contains(t, out, "With coordinates: 1 (50.0%)")
	assert.Contains(t, out, "With cuisine: 2 (100.0%)")
	assert.Contains(t, out, "  thai: 2\n  isaan: 1")
}

func TestAggregatorValueMatch(t *testing.T) {
	a := New([]TrackedField{{Field: "shelter"}, {Field: "shelter", Equals: "yes"}})
	for i, v := range []string{"yes", "no", " Yes ", "limited"} {
		a.Observe(record(poi.KindNode, int64(i), tags.Tags{"highway": "bus_stop", "shelter": v}, nil))
	}
	a.Observe(record(poi.KindNode, 9, tags.Tags{"highway": "bus_stop"}, nil))

	s := a.Finalize(10)
	present, ok := s.Field("shelter")
	require.True(t, ok)
	assert.Equal(t, int64(4), present.Present)

	sheltered, ok := s.Field("shelter=yes")
	require.True(t, ok)
	assert.Equal(t, int64(2), sheltered.Present)
	assert.Empty(t, sheltered.Top)
	assert.Equal(t, 40.0, s.Percent(sheltered.Present))

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, s))
	assert.Contains(t, buf.String(), "With shelter=yes: 2 (40.0%)")
	assert.NotContains(t, buf.String(), "Top shelter=yes")
}
