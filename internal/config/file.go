package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wegman-software/osmpoi/internal/stats"
	"github.com/wegman-software/osmpoi/internal/style"
)

// RunFile is the YAML run configuration
//
//	subtypes: [restaurant, rail_station]
//	top: 20
//	bbox: "100.3,13.5,100.95,14.0"
//	script: bangkok.lua
//	split: true
//	tracked:
//	  - field: cuisine
//	    multi: true
//	  - field: shelter
//	    equals: "yes"
//	filter:
//	  exclude:
//	    disused: []
type RunFile struct {
	Subtypes []string             `yaml:"subtypes,omitempty"`
	Tracked  []stats.TrackedField `yaml:"tracked,omitempty"`
	Top      *int                 `yaml:"top,omitempty"`
	BBox     string               `yaml:"bbox,omitempty"`
	Script   string               `yaml:"script,omitempty"`
	Workers  int                  `yaml:"workers,omitempty"`
	Split    *bool                `yaml:"split,omitempty"`
	Filter   *style.FilterConfig  `yaml:"filter,omitempty"`
}

// LoadRunFile reads a run file from disk
func LoadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse run file YAML: %w", err)
	}
	return &rf, nil
}

// Apply copies run file settings into c. Settings whose flag was given on
// the command line (changed returns true for the flag name) keep the flag
// value.
func (rf *RunFile) Apply(c *Config, changed func(flag string) bool) {
	if changed == nil {
		changed = func(string) bool { return false }
	}
	if len(rf.Subtypes) > 0 && !changed("subtypes") {
		c.Subtypes = rf.Subtypes
	}
	if len(rf.Tracked) > 0 {
		c.Tracked = rf.Tracked
	}
	if rf.Top != nil && !changed("top") {
		c.TopN = *rf.Top
	}
	if rf.BBox != "" && !changed("bbox") {
		c.BBoxSpec = rf.BBox
	}
	if rf.Script != "" && !changed("script") {
		c.Script = rf.Script
	}
	if rf.Workers > 0 && !changed("workers") {
		c.Workers = rf.Workers
	}
	if rf.Split != nil && !changed("split") {
		c.Split = *rf.Split
	}
	if rf.Filter != nil {
		c.Filter = rf.Filter
	}
}
