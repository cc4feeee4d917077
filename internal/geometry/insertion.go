package geometry

import (
	"math"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/pkg/types"
)

// InsertionIndex returns the position at which p should be spliced into poly.
//
// Every edge (i, i+1 mod n) is scored by the sum of the distances from its two
// vertices to p and p goes right after the vertex starting the cheapest edge;
// the first minimum wins. This is not a projection onto the segment, so long
// thin polygons can pick an edge that is not the geometrically closest one.
func InsertionIndex(poly types.Polygon, p types.Point) int {
	n := len(poly)
	if n == 0 {
		return 0
	}
	best := math.Inf(1)
	index := 0
	for i := 0; i < n; i++ {
		next := poly[(i+1)%n]
		cost := distance(poly[i], p) + distance(next, p)
		if cost < best {
			best = cost
			index = i
		}
	}
	return index + 1
}

// Insert returns a copy of poly with p spliced in at InsertionIndex.
func Insert(poly types.Polygon, p types.Point) types.Polygon {
	at := InsertionIndex(poly, p)
	out := make(types.Polygon, 0, len(poly)+1)
	out = append(out, poly[:at]...)
	out = append(out, p)
	return append(out, poly[at:]...)
}

func distance(a, b types.Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
