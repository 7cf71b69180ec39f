package poi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wegman-software/osmpoi/internal/tags"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		tags tags.Tags
		want Subtype
		ok   bool
	}{
		{"restaurant", tags.Tags{"amenity": "restaurant"}, SubtypeRestaurant, true},
		{"fast food", tags.Tags{"amenity": "fast_food"}, SubtypeRestaurant, true},
		{"cafe is not a restaurant", tags.Tags{"amenity": "cafe"}, 0, false},
		{"railway station", tags.Tags{"railway": "station"}, SubtypeRailStation, true},
		{"railway halt", tags.Tags{"railway": "halt"}, SubtypeRailStation, true},
		{"tram stop", tags.Tags{"railway": "tram_stop"}, SubtypeRailStation, true},
		{"subway entrance", tags.Tags{"railway": "subway_entrance"}, SubtypeRailStation, true},
		{"station entrance", tags.Tags{"railway": "train_station_entrance"}, SubtypeRailStation, true},
		{"station=light_rail", tags.Tags{"station": "light_rail"}, SubtypeRailStation, true},
		{"station=monorail", tags.Tags{"station": "monorail"}, SubtypeRailStation, true},
		{"railway track", tags.Tags{"railway": "rail"}, 0, false},
		{"bus stop", tags.Tags{"highway": "bus_stop"}, SubtypeBusStop, true},
		{"bus station", tags.Tags{"amenity": "bus_station"}, SubtypeBusStop, true},
		{"bus platform", tags.Tags{"public_transport": "platform", "bus": "yes"}, SubtypeBusStop, true},
		{"tram platform", tags.Tags{"public_transport": "platform", "tram": "yes"}, 0, false},
		{"bus stop position", tags.Tags{"public_transport": "stop_position", "bus": "yes"}, SubtypeBusStop, true},
		{"untyped stop position", tags.Tags{"public_transport": "stop_position"}, 0, false},
		{"tram stop position", tags.Tags{"public_transport": "stop_position", "tram": "yes"}, 0, false},
		{"no tags", nil, 0, false},
		{"restaurant wins over bus stop", tags.Tags{"amenity": "restaurant", "highway": "bus_stop"}, SubtypeRestaurant, true},
		{"rail wins over bus", tags.Tags{"railway": "station", "highway": "bus_stop"}, SubtypeRailStation, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.tags)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRulesPriorityOrder(t *testing.T) {
	var order []Subtype
	for _, r := range Rules {
		order = append(order, r.Subtype)
	}
	assert.Equal(t, Subtypes, order)
}

func TestClassifierRestricted(t *testing.T) {
	c := NewClassifier(NewSubtypeSet(SubtypeBusStop))
	both := tags.Tags{"amenity": "restaurant", "highway": "bus_stop"}

	got, ok := c.Classify(both)
	assert.True(t, ok)
	assert.Equal(t, SubtypeBusStop, got)

	_, ok = c.Classify(tags.Tags{"amenity": "restaurant"})
	assert.False(t, ok)
	assert.Equal(t, NewSubtypeSet(SubtypeBusStop), c.Enabled())
}

func TestClassifyIgnoresKind(t *testing.T) {
	tg := tags.Tags{"railway": "halt"}
	for _, k := range Kinds {
		e := Entity{Ref: Ref{Kind: k, ID: 1}, Tags: tg}
		got, ok := Classify(e.Tags)
		assert.True(t, ok, k.String())
		assert.Equal(t, SubtypeRailStation, got, k.String())
	}
}

func TestTransitType(t *testing.T) {
	tests := []struct {
		tags tags.Tags
		want string
	}{
		{tags.Tags{"railway": "station", "network": "BTS"}, TransitBTS},
		{tags.Tags{"railway": "station", "operator": "BTSC"}, TransitBTS},
		{tags.Tags{"railway": "station", "network": "MRT Blue Line"}, TransitMRT},
		{tags.Tags{"station": "subway"}, TransitMRT},
		{tags.Tags{"railway": "subway_entrance"}, TransitMRT},
		{tags.Tags{"station": "light_rail"}, TransitLightRail},
		{tags.Tags{"railway": "tram_stop"}, TransitLightRail},
		{tags.Tags{"station": "monorail"}, TransitMonorail},
		{tags.Tags{"railway": "halt"}, TransitTrainHalt},
		{tags.Tags{"railway": "station"}, TransitTrainStation},
		{tags.Tags{"station": "train"}, TransitTrainStation},
		{tags.Tags{"station": "subway", "network": "BTS"}, TransitBTS},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TransitType(tt.tags), "%v", tt.tags)
	}
}

func TestParseSubtypeSet(t *testing.T) {
	set, err := ParseSubtypeSet(nil)
	assert.NoError(t, err)
	assert.Equal(t, AllSubtypes, set)

	set, err = ParseSubtypeSet([]string{"bus_stop", " Restaurant "})
	assert.NoError(t, err)
	assert.Equal(t, []Subtype{SubtypeRestaurant, SubtypeBusStop}, set.List())

	_, err = ParseSubtypeSet([]string{"cafe"})
	assert.Error(t, err)
}
