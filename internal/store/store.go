// Package store owns the motion mask, zone and object mask collections of one
// camera while they are being edited.
package store

import (
	"fmt"
	"strings"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/camconfig"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/polyline"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/pkg/types"
)

const (
	// ZonePrefix is the stem of generated zone names.
	ZonePrefix = "zone"
	// ObjectPrefix is the stem of generated object mask names.
	ObjectPrefix = "object"
)

// LoadWarning records a configured entry that could not be parsed. The entry
// is kept as an empty polygon.
type LoadWarning struct {
	Selector types.Selector
	Err      error
}

func (w LoadWarning) String() string {
	return fmt.Sprintf("%s: %v", w.Selector, w.Err)
}

// Store holds the three polygon collections. It is not safe for concurrent
// use; callers serialise access.
type Store struct {
	motion  *SimpleCollection
	zones   *KeyedCollection
	objects *GroupedCollection
}

// New returns an empty store.
func New() *Store {
	return &Store{
		motion:  &SimpleCollection{},
		zones:   newKeyed(ZonePrefix),
		objects: newGrouped(ObjectPrefix),
	}
}

// FromConfig builds a store from a parsed camera config. Malformed entries
// become empty polygons and are reported as warnings; loading never aborts.
func FromConfig(cam *camconfig.Camera) (*Store, []LoadWarning) {
	s := New()
	var warnings []LoadWarning

	parse := func(sel types.Selector, text string) types.Polygon {
		p, err := polyline.Parse(text)
		if err != nil {
			warnings = append(warnings, LoadWarning{Selector: sel, Err: err})
			return types.Polygon{}
		}
		return p
	}

	for i, text := range cam.MotionMasks {
		s.motion.polygons = append(s.motion.polygons, parse(types.SimpleSelector{Index: i}, text))
	}
	for _, z := range cam.Zones {
		s.zones.set(z.Name, parse(types.KeyedSelector{Name: z.Name}, z.Coordinates))
	}
	for _, o := range cam.ObjectMasks {
		list := make([]slot, 0, len(o.Masks))
		for sub, text := range o.Masks {
			list = append(list, slot{polygon: parse(types.GroupedSelector{Name: o.Name, Sub: sub}, text), live: true})
		}
		s.objects.names = append(s.objects.names, o.Name)
		s.objects.slots[o.Name] = list
	}
	return s, warnings
}

// Motion returns the motion mask collection.
func (s *Store) Motion() *SimpleCollection { return s.motion }

// Zones returns the zone collection.
func (s *Store) Zones() *KeyedCollection { return s.zones }

// Objects returns the object mask collection.
func (s *Store) Objects() *GroupedCollection { return s.objects }

// Collection returns the collection holding the given category.
func (s *Store) Collection(c types.Category) Collection {
	switch c {
	case types.Keyed:
		return s.zones
	case types.GroupedKeyed:
		return s.objects
	default:
		return s.motion
	}
}

// CreateEntity adds an empty entry and returns a selector for its polygon.
//
// Generated names are "<prefix>_<n>" where n counts the names already starting
// with "<prefix>_". After deletions or hand-written names this can produce a
// name that exists; the existing entry is then replaced by the new empty one.
func (s *Store) CreateEntity(c types.Category) types.Selector {
	switch c {
	case types.Keyed:
		name := nextName(s.zones.names, s.zones.prefix)
		s.zones.set(name, types.Polygon{})
		return types.KeyedSelector{Name: name}
	case types.GroupedKeyed:
		name := nextName(s.objects.names, s.objects.prefix)
		if !s.objects.Has(name) {
			s.objects.names = append(s.objects.names, name)
		}
		s.objects.slots[name] = []slot{{polygon: types.Polygon{}, live: true}}
		return types.GroupedSelector{Name: name, Sub: 0}
	default:
		s.motion.polygons = append(s.motion.polygons, types.Polygon{})
		return types.SimpleSelector{Index: len(s.motion.polygons) - 1}
	}
}

// AddVariant appends an empty polygon to a grouped entry.
func (s *Store) AddVariant(name string) (types.GroupedSelector, bool) {
	list, ok := s.objects.slots[name]
	if !ok {
		return types.GroupedSelector{}, false
	}
	s.objects.slots[name] = append(list, slot{polygon: types.Polygon{}, live: true})
	return types.GroupedSelector{Name: name, Sub: len(list)}, true
}

// RemoveEntity deletes what sel addresses: a motion mask (later masks shift
// down), a zone, or one polygon of a grouped entry (siblings keep their
// sub-index and the name stays). It reports whether anything was removed.
func (s *Store) RemoveEntity(sel types.Selector) bool {
	switch v := sel.(type) {
	case types.SimpleSelector:
		if v.Index < 0 || v.Index >= len(s.motion.polygons) {
			return false
		}
		s.motion.polygons = append(s.motion.polygons[:v.Index], s.motion.polygons[v.Index+1:]...)
		return true
	case types.KeyedSelector:
		return s.zones.remove(v.Name)
	case types.GroupedSelector:
		list := s.objects.slots[v.Name]
		if v.Sub < 0 || v.Sub >= len(list) || !list[v.Sub].live {
			return false
		}
		list[v.Sub] = slot{}
		return true
	}
	return false
}

// RemoveName deletes a whole grouped entry, all of its polygons included.
func (s *Store) RemoveName(name string) bool {
	if !s.objects.Has(name) {
		return false
	}
	delete(s.objects.slots, name)
	s.objects.names = removeName(s.objects.names, name)
	return true
}

// Replace overwrites the polygon addressed by sel. It returns false when sel
// does not resolve.
func (s *Store) Replace(sel types.Selector, p types.Polygon) bool {
	p = p.Clone()
	if p == nil {
		p = types.Polygon{}
	}
	switch v := sel.(type) {
	case types.SimpleSelector:
		if v.Index < 0 || v.Index >= len(s.motion.polygons) {
			return false
		}
		s.motion.polygons[v.Index] = p
		return true
	case types.KeyedSelector:
		if _, ok := s.zones.polygons[v.Name]; !ok {
			return false
		}
		s.zones.polygons[v.Name] = p
		return true
	case types.GroupedSelector:
		list := s.objects.slots[v.Name]
		if v.Sub < 0 || v.Sub >= len(list) || !list[v.Sub].live {
			return false
		}
		list[v.Sub].polygon = p
		return true
	}
	return false
}

// Points returns a copy of the polygon sel addresses, or false if it dangles.
func (s *Store) Points(sel types.Selector) (types.Polygon, bool) {
	switch v := sel.(type) {
	case types.SimpleSelector:
		return s.motion.At(v.Index)
	case types.KeyedSelector:
		return s.zones.Get(v.Name)
	case types.GroupedSelector:
		return s.objects.Get(v.Name, v.Sub)
	}
	return nil, false
}

func nextName(names []string, prefix string) string {
	stem := prefix + "_"
	n := 0
	for _, name := range names {
		if strings.HasPrefix(name, stem) {
			n++
		}
	}
	return fmt.Sprintf("%s%d", stem, n)
}
