package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/wegman-software/osmpoi/internal/tags"
)

func TestNilFilterMatchesEverything(t *testing.T) {
	f := NewFilter(nil)
	assert.False(t, f.HasFilter())
	assert.True(t, f.Match(tags.Tags{"amenity": "restaurant"}))
	assert.True(t, f.Match(nil))
}

func TestFilterRules(t *testing.T) {
	f := NewFilter(&FilterConfig{
		Include:    map[string][]string{"addr:province": {"Bangkok", "กรุงเทพมหานคร"}, "is_in:province": nil},
		Exclude:    map[string][]string{"disused": {Wildcard}, "access": {"private"}},
		RequireAny: []string{"name", "name:en"},
	})
	assert.True(t, f.HasFilter())

	tests := []struct {
		name string
		tags tags.Tags
		want bool
	}{
		{"included province", tags.Tags{"name": "A", "addr:province": "Bangkok"}, true},
		{"thai province name", tags.Tags{"name:en": "A", "addr:province": "กรุงเทพมหานคร"}, true},
		{"any value key", tags.Tags{"name": "A", "is_in:province": "Nonthaburi"}, true},
		{"other province", tags.Tags{"name": "A", "addr:province": "Chiang Mai"}, false},
		{"no name", tags.Tags{"addr:province": "Bangkok"}, false},
		{"disused", tags.Tags{"name": "A", "addr:province": "Bangkok", "disused": "yes"}, false},
		{"private", tags.Tags{"name": "A", "addr:province": "Bangkok", "access": "private"}, false},
		{"public", tags.Tags{"name": "A", "addr:province": "Bangkok", "access": "yes"}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Match(tt.tags), tt.name)
	}
}

func TestFilterConfigYAML(t *testing.T) {
	src := `
include:
  amenity: [restaurant, fast_food]
exclude:
  disused: []
require_any: [name]
`
	var cfg FilterConfig
	assert.NoError(t, yaml.Unmarshal([]byte(src), &cfg))
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"restaurant", "fast_food"}, cfg.Include["amenity"])
	assert.Equal(t, []string{"name"}, cfg.RequireAny)

	f := NewFilter(&cfg)
	assert.True(t, f.Match(tags.Tags{"amenity": "fast_food", "name": "X"}))
	assert.False(t, f.Match(tags.Tags{"amenity": "fast_food", "name": "X", "disused": "no"}))
}

func TestFilterConfigValidate(t *testing.T) {
	var nilCfg *FilterConfig
	assert.NoError(t, nilCfg.Validate())
	assert.Error(t, (&FilterConfig{RequireAny: []string{""}}).Validate())
	assert.Error(t, (&FilterConfig{Exclude: map[string][]string{"": nil}}).Validate())
}
