// Package style implements tag filter rules that decide which entities are
// considered for classification at all.
package style

import (
	"fmt"
	"sort"

	"github.com/wegman-software/osmpoi/internal/tags"
)

// Wildcard matches any tag value
const Wildcard = "*"

// FilterConfig defines the filter rules as read from the run file
type FilterConfig struct {
	// Include keeps entities carrying at least one of these keys/values.
	// An empty value list matches any value of the key.
	Include map[string][]string `yaml:"include,omitempty"`
	// Exclude drops entities carrying any of these keys/values.
	// Applied after include rules.
	Exclude map[string][]string `yaml:"exclude,omitempty"`
	// RequireAny drops entities that carry none of these keys
	RequireAny []string `yaml:"require_any,omitempty"`
}

// Validate rejects rules that can never match
func (c *FilterConfig) Validate() error {
	if c == nil {
		return nil
	}
	for _, rules := range []map[string][]string{c.Include, c.Exclude} {
		for key := range rules {
			if key == "" {
				return fmt.Errorf("filter rule with empty tag key")
			}
		}
	}
	for _, key := range c.RequireAny {
		if key == "" {
			return fmt.Errorf("require_any contains an empty tag key")
		}
	}
	return nil
}

// Filter evaluates a FilterConfig against tag sets
type Filter struct {
	cfg *FilterConfig

	includeKeys []string
	excludeKeys []string
}

// NewFilter creates a filter from configuration. A nil config matches
// everything.
func NewFilter(cfg *FilterConfig) *Filter {
	if cfg == nil {
		cfg = &FilterConfig{}
	}
	return &Filter{
		cfg:         cfg,
		includeKeys: sortedKeys(cfg.Include),
		excludeKeys: sortedKeys(cfg.Exclude),
	}
}

// sortedKeys fixes the evaluation order so results never depend on map order
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Match reports whether the tag set passes the filter
func (f *Filter) Match(t tags.Tags) bool {
	if len(f.cfg.RequireAny) > 0 {
		found := false
		for _, key := range f.cfg.RequireAny {
			if t.Has(key) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.includeKeys) > 0 {
		matched := false
		for _, key := range f.includeKeys {
			if valueMatches(t, key, f.cfg.Include[key]) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, key := range f.excludeKeys {
		if valueMatches(t, key, f.cfg.Exclude[key]) {
			return false
		}
	}

	return true
}

// valueMatches reports whether key is present with one of values. An empty
// list or a wildcard matches any value.
func valueMatches(t tags.Tags, key string, values []string) bool {
	v, ok := t.Get(key)
	if !ok {
		return false
	}
	if len(values) == 0 {
		return true
	}
	for _, want := range values {
		if want == v || want == Wildcard {
			return true
		}
	}
	return false
}

// HasFilter returns true if any rule is configured
func (f *Filter) HasFilter() bool {
	return len(f.includeKeys) > 0 || len(f.excludeKeys) > 0 || len(f.cfg.RequireAny) > 0
}
