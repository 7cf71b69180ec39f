package pipeline

import (
	"github.com/wegman-software/osmpoi/internal/config"
	"github.com/wegman-software/osmpoi/internal/poi"
	"github.com/wegman-software/osmpoi/internal/style"
)

// Filter decides whether an entity reaches classification. An error aborts
// the run.
type Filter interface {
	Accept(e *poi.Entity) (bool, error)
}

// FilterFunc adapts a function to Filter
type FilterFunc func(e *poi.Entity) (bool, error)

func (f FilterFunc) Accept(e *poi.Entity) (bool, error) {
	return f(e)
}

// StyleFilter applies tag include/exclude rules
func StyleFilter(f *style.Filter) Filter {
	return FilterFunc(func(e *poi.Entity) (bool, error) {
		return f.Match(e.Tags), nil
	})
}

// BBoxFilter drops nodes outside b. Ways and relations carry no coordinates
// and always pass.
func BBoxFilter(b *config.BBox) Filter {
	return FilterFunc(func(e *poi.Entity) (bool, error) {
		if e.Ref.Kind != poi.KindNode || e.Location == nil {
			return true, nil
		}
		return b.Contains(e.Location.Lat, e.Location.Lon), nil
	})
}
