package poi

import "github.com/wegman-software/osmpoi/internal/tags"

// Transit type labels
const (
	TransitBTS          = "BTS Skytrain"
	TransitMRT          = "MRT Subway"
	TransitLightRail    = "Light Rail/Tram"
	TransitMonorail     = "Monorail"
	TransitTrainHalt    = "Train Halt"
	TransitTrainStation = "Train Station"
	TransitBus          = "Bus"
)

type transitLabel struct {
	label string
	match func(tags.Tags) bool
}

// transitLabels is checked in order; operator brands win over generic
// station types.
var transitLabels = []transitLabel{
	{TransitBTS, func(t tags.Tags) bool { return t.Contains("network", "BTS") || t.Contains("operator", "BTS") }},
	{TransitMRT, func(t tags.Tags) bool { return t.Contains("network", "MRT") || t.Contains("operator", "MRT") }},
	{TransitMRT, func(t tags.Tags) bool { return t.Is("station", "subway") || t.Is("railway", "subway_entrance") }},
	{TransitLightRail, func(t tags.Tags) bool { return t.Is("station", "light_rail") || t.Is("railway", "tram_stop") }},
	{TransitMonorail, func(t tags.Tags) bool { return t.Is("station", "monorail") }},
	{TransitTrainHalt, func(t tags.Tags) bool { return t.Is("railway", "halt") }},
}

// TransitType maps the tags of a rail station to a human-readable label.
// Unmatched values fall back to TransitTrainStation.
func TransitType(t tags.Tags) string {
	for _, l := range transitLabels {
		if l.match(t) {
			return l.label
		}
	}
	return TransitTrainStation
}
