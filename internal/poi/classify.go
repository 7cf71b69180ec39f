package poi

import "github.com/wegman-software/osmpoi/internal/tags"

// Rule assigns Subtype to any tag set accepted by Match
type Rule struct {
	Subtype Subtype
	Match   func(tags.Tags) bool
}

// Rules is the classification table. Order is priority: the first matching
// rule decides the subtype.
var Rules = []Rule{
	{Subtype: SubtypeRestaurant, Match: IsRestaurant},
	{Subtype: SubtypeRailStation, Match: IsRailStation},
	{Subtype: SubtypeBusStop, Match: IsBusStop},
}

var (
	restaurantAmenities = []string{"restaurant", "fast_food"}
	railwayStations     = []string{"station", "halt", "tram_stop", "subway_entrance", "train_station_entrance"}
	railStationTypes    = []string{"subway", "light_rail", "monorail", "train"}
	busPlatforms        = []string{"platform", "stop_position"}
)

// IsRestaurant matches food establishments
func IsRestaurant(t tags.Tags) bool {
	return t.In("amenity", restaurantAmenities...)
}

// IsRailStation matches train, subway, light rail, tram and monorail stops
func IsRailStation(t tags.Tags) bool {
	return t.In("railway", railwayStations...) || t.In("station", railStationTypes...)
}

// IsBusStop matches bus stops, bus stations and bus platforms. Platforms and
// stop positions need bus=yes, otherwise tram and ferry stops would count.
func IsBusStop(t tags.Tags) bool {
	if t.Is("highway", "bus_stop") || t.Is("amenity", "bus_station") {
		return true
	}
	return t.In("public_transport", busPlatforms...) && t.Is("bus", "yes")
}

// Classifier evaluates an ordered subset of Rules
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a classifier restricted to the enabled subtypes.
// Disabled rules are skipped; the relative order of the rest is kept.
func NewClassifier(enabled SubtypeSet) *Classifier {
	c := &Classifier{}
	for _, r := range Rules {
		if enabled.Has(r.Subtype) {
			c.rules = append(c.rules, r)
		}
	}
	return c
}

// Classify returns the subtype of the first matching rule
func (c *Classifier) Classify(t tags.Tags) (Subtype, bool) {
	if len(t) == 0 {
		return 0, false
	}
	for _, r := range c.rules {
		if r.Match(t) {
			return r.Subtype, true
		}
	}
	return 0, false
}

// Enabled returns the subtypes this classifier can assign
func (c *Classifier) Enabled() SubtypeSet {
	var set SubtypeSet
	for _, r := range c.rules {
		set |= NewSubtypeSet(r.Subtype)
	}
	return set
}

var defaultClassifier = NewClassifier(AllSubtypes)

// Classify classifies a tag set against all rules
func Classify(t tags.Tags) (Subtype, bool) {
	return defaultClassifier.Classify(t)
}
