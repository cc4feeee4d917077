package store

import (
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/pkg/types"
)

// Collection is one of SimpleCollection, KeyedCollection or GroupedCollection.
type Collection interface {
	Category() types.Category
}

// SimpleCollection is an ordered list of unnamed polygons.
type SimpleCollection struct {
	polygons []types.Polygon
}

func (c *SimpleCollection) Category() types.Category { return types.Simple }

// Len returns the number of polygons.
func (c *SimpleCollection) Len() int { return len(c.polygons) }

// At returns a copy of the polygon at index i.
func (c *SimpleCollection) At(i int) (types.Polygon, bool) {
	if i < 0 || i >= len(c.polygons) {
		return nil, false
	}
	return c.polygons[i].Clone(), true
}

// KeyedCollection maps unique names to one polygon each. Names keep insertion order.
type KeyedCollection struct {
	prefix   string
	names    []string
	polygons map[string]types.Polygon
}

func newKeyed(prefix string) *KeyedCollection {
	return &KeyedCollection{prefix: prefix, polygons: make(map[string]types.Polygon)}
}

func (c *KeyedCollection) Category() types.Category { return types.Keyed }

// Names returns the entry names in insertion order.
func (c *KeyedCollection) Names() []string {
	return append([]string(nil), c.names...)
}

// Get returns a copy of the named polygon.
func (c *KeyedCollection) Get(name string) (types.Polygon, bool) {
	p, ok := c.polygons[name]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (c *KeyedCollection) set(name string, p types.Polygon) {
	if _, ok := c.polygons[name]; !ok {
		c.names = append(c.names, name)
	}
	c.polygons[name] = p
}

func (c *KeyedCollection) remove(name string) bool {
	if _, ok := c.polygons[name]; !ok {
		return false
	}
	delete(c.polygons, name)
	c.names = removeName(c.names, name)
	return true
}

// slot is one position in a grouped list. Vacated slots keep their position so
// later siblings retain their sub-index.
type slot struct {
	polygon types.Polygon
	live    bool
}

// Variant is a live polygon of a grouped entry together with its sub-index.
type Variant struct {
	Sub     int
	Polygon types.Polygon
}

// GroupedCollection maps unique names to a list of polygons.
type GroupedCollection struct {
	prefix string
	names  []string
	slots  map[string][]slot
}

func newGrouped(prefix string) *GroupedCollection {
	return &GroupedCollection{prefix: prefix, slots: make(map[string][]slot)}
}

func (c *GroupedCollection) Category() types.Category { return types.GroupedKeyed }

// Names returns the entry names in insertion order, including names whose
// list has no live polygon left.
func (c *GroupedCollection) Names() []string {
	return append([]string(nil), c.names...)
}

// Has reports whether name exists.
func (c *GroupedCollection) Has(name string) bool {
	_, ok := c.slots[name]
	return ok
}

// Variants returns the live polygons of name in sub-index order.
func (c *GroupedCollection) Variants(name string) []Variant {
	var out []Variant
	for i, s := range c.slots[name] {
		if s.live {
			out = append(out, Variant{Sub: i, Polygon: s.polygon.Clone()})
		}
	}
	return out
}

// Get returns a copy of one live polygon.
func (c *GroupedCollection) Get(name string, sub int) (types.Polygon, bool) {
	list := c.slots[name]
	if sub < 0 || sub >= len(list) || !list[sub].live {
		return nil, false
	}
	return list[sub].polygon.Clone(), true
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
