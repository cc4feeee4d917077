package types

// Point is a vertex in source image pixel space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Polygon is an ordered vertex list. Edges run point[i] -> point[i+1] and the
// shape is closed by point[last] -> point[0] for fill purposes.
type Polygon []Point

// Clone returns an independent copy. A nil polygon stays nil.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Equal reports whether both polygons hold the same points in the same order.
func (p Polygon) Equal(other Polygon) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Category is the structural shape of a polygon collection.
type Category int

const (
	// Simple is an ordered list of unnamed polygons (motion masks).
	Simple Category = iota
	// Keyed maps a unique name to one polygon (zones).
	Keyed
	// GroupedKeyed maps a unique name to a list of polygons (object masks).
	GroupedKeyed
)

var categoryNames = map[Category]string{
	Simple:       "motion",
	Keyed:        "zones",
	GroupedKeyed: "objects",
}

// String returns the config section name of the category.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCategory accepts the section name or the structural name.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "motion", "mask", "masks", "simple":
		return Simple, true
	case "zones", "zone", "keyed":
		return Keyed, true
	case "objects", "object", "filters", "grouped":
		return GroupedKeyed, true
	default:
		return 0, false
	}
}
