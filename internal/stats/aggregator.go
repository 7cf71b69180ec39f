// Package stats accumulates running counts and value distributions over the
// records of one extraction run.
package stats

import (
	"math"
	"sort"
	"strings"

	"github.com/wegman-software/osmpoi/internal/poi"
)

// MultiValueSeparator splits multi-valued tag values such as cuisine lists
const MultiValueSeparator = ";"

// TrackedField configures a frequency table for one record field. Multi
// fields are split on MultiValueSeparator and each token is trimmed and
// lower-cased; other fields are only trimmed.
//
// With Equals set the field is a value match instead: coverage counts the
// records whose trimmed value equals Equals ignoring case, and no frequency
// table is kept.
type TrackedField struct {
	Field  string `yaml:"field"`
	Multi  bool   `yaml:"multi"`
	Equals string `yaml:"equals,omitempty"`
}

// Label names the field in summaries, e.g. "cuisine" or "shelter=yes"
func (tf TrackedField) Label() string {
	if tf.Equals != "" {
		return tf.Field + "=" + tf.Equals
	}
	return tf.Field
}

// DefaultTracked is the frequency table set used when none is configured
var DefaultTracked = []TrackedField{
	{Field: poi.FieldCuisine, Multi: true},
	{Field: poi.FieldTransitType},
	{Field: "network"},
	{Field: "operator"},
	{Field: "shelter", Equals: "yes"},
}

// frequency counts tokens and remembers first-seen order for tie breaks
type frequency struct {
	counts map[string]int64
	order  []string
}

func newFrequency() *frequency {
	return &frequency{counts: make(map[string]int64)}
}

func (f *frequency) add(token string) {
	if _, ok := f.counts[token]; !ok {
		f.order = append(f.order, token)
	}
	f.counts[token]++
}

// top returns up to n entries by descending count, ties in first-seen order
func (f *frequency) top(n int) []Count {
	out := make([]Count, 0, len(f.order))
	for _, token := range f.order {
		out = append(out, Count{Label: token, Count: f.counts[token]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Aggregator is the accumulator for a single run. It is not safe for
// concurrent use; callers serialize Observe.
type Aggregator struct {
	total           int64
	withNames       int64
	withCoordinates int64
	byKind          map[poi.Kind]int64
	bySubtype       map[poi.Subtype]int64

	tracked  []TrackedField
	coverage []int64
	freqs    []*frequency
}

// New creates an empty aggregator tracking the given fields
func New(tracked []TrackedField) *Aggregator {
	a := &Aggregator{
		byKind:    make(map[poi.Kind]int64),
		bySubtype: make(map[poi.Subtype]int64),
		tracked:   tracked,
		coverage:  make([]int64, len(tracked)),
		freqs:     make([]*frequency, len(tracked)),
	}
	for i := range tracked {
		a.freqs[i] = newFrequency()
	}
	return a
}

// Observe folds one record into the running totals
func (a *Aggregator) Observe(rec *poi.Record) {
	a.total++
	a.byKind[rec.Ref.Kind]++
	a.bySubtype[rec.Subtype]++

	if _, ok := rec.Get(poi.FieldName); ok {
		a.withNames++
	}
	if rec.HasCoordinates() {
		a.withCoordinates++
	}

	for i, tf := range a.tracked {
		raw, ok := rec.Lookup(tf.Field)
		if !ok {
			continue
		}
		if tf.Equals != "" {
			if strings.EqualFold(strings.TrimSpace(raw), tf.Equals) {
				a.coverage[i]++
			}
			continue
		}
		a.coverage[i]++
		if !tf.Multi {
			if token := strings.TrimSpace(raw); token != "" {
				a.freqs[i].add(token)
			}
			continue
		}
		for _, part := range strings.Split(raw, MultiValueSeparator) {
			token := strings.ToLower(strings.TrimSpace(part))
			if token == "" {
				continue
			}
			a.freqs[i].add(token)
		}
	}
}

// Total returns the number of observed records
func (a *Aggregator) Total() int64 {
	return a.total
}

// Count is a labelled counter in a summary
type Count struct {
	Label string
	Count int64
}

// FieldSummary is the finalized frequency table of a tracked field
type FieldSummary struct {
	Field    string
	Label    string
	Equals   string
	Present  int64 // records with the field present, or matching Equals
	Distinct int
	Top      []Count
}

// Summary is the finalized view of an Aggregator
type Summary struct {
	Total              int64
	WithNames          int64
	WithCoordinates    int64
	WithoutCoordinates int64
	ByKind             []Count
	BySubtype          []Count
	Fields             []FieldSummary
}

// Finalize produces the sorted summary. topN limits each frequency list;
// zero or negative means unlimited.
func (a *Aggregator) Finalize(topN int) Summary {
	s := Summary{
		Total:              a.total,
		WithNames:          a.withNames,
		WithCoordinates:    a.withCoordinates,
		WithoutCoordinates: a.total - a.withCoordinates,
	}
	for _, k := range poi.Kinds {
		if n := a.byKind[k]; n > 0 {
			s.ByKind = append(s.ByKind, Count{Label: k.String(), Count: n})
		}
	}
	for _, st := range poi.Subtypes {
		if n := a.bySubtype[st]; n > 0 {
			s.BySubtype = append(s.BySubtype, Count{Label: st.String(), Count: n})
		}
	}
	for i, tf := range a.tracked {
		s.Fields = append(s.Fields, FieldSummary{
			Field:    tf.Field,
			Label:    tf.Label(),
			Equals:   tf.Equals,
			Present:  a.coverage[i],
			Distinct: len(a.freqs[i].order),
			Top:      a.freqs[i].top(topN),
		})
	}
	return s
}

// Percent returns n as a percentage of the summary total, rounded to one
// decimal place. An empty summary yields 0.
func (s Summary) Percent(n int64) float64 {
	if s.Total == 0 {
		return 0
	}
	return math.Round(float64(n)*1000/float64(s.Total)) / 10
}

// Field returns the summary of a tracked field by its label
func (s Summary) Field(label string) (FieldSummary, bool) {
	for _, f := range s.Fields {
		if f.Label == label {
			return f, true
		}
	}
	return FieldSummary{}, false
}
