// Package tags provides read access to the key-value tag set of an OSM entity.
package tags

import (
	"sort"
	"strings"

	"github.com/paulmach/osm"
)

// Tags is the raw tag set of a single entity. Keys are unique and values are
// kept exactly as they came from the source file.
type Tags map[string]string

// FromOSM converts decoder tags into a Tags map. An empty tag list yields nil.
func FromOSM(t osm.Tags) Tags {
	if len(t) == 0 {
		return nil
	}
	return Tags(t.Map())
}

// Get returns the raw value for key and whether the key is present at all
func (t Tags) Get(key string) (string, bool) {
	v, ok := t[key]
	return v, ok
}

// Lookup returns the raw value for key, treating empty or whitespace-only
// values as absent.
func (t Tags) Lookup(key string) (string, bool) {
	v, ok := t[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Has reports whether key is present
func (t Tags) Has(key string) bool {
	_, ok := t[key]
	return ok
}

// Is reports whether key is present with exactly the given value
func (t Tags) Is(key, value string) bool {
	v, ok := t[key]
	return ok && v == value
}

// In reports whether the value of key equals one of values
func (t Tags) In(key string, values ...string) bool {
	v, ok := t[key]
	if !ok {
		return false
	}
	for _, want := range values {
		if v == want {
			return true
		}
	}
	return false
}

// Contains reports whether the value of key contains substr
func (t Tags) Contains(key, substr string) bool {
	v, ok := t[key]
	return ok && strings.Contains(v, substr)
}

// Keys returns the tag keys in sorted order
func (t Tags) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
