// Package geometry converts between source image and display pixel space and
// decides where new vertices are spliced into a polygon.
package geometry

import (
	"math"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/pkg/types"
)

// Inset is the snap margin in source pixels. The editor overlay is also padded
// by this many display pixels on every side, so click offsets carry it too.
const Inset = 20

// Transform maps between source image space (width x height) and the rendered
// image, whose measured width determines the scale.
type Transform struct {
	width  int
	height int
	scale  float64
}

// NewTransform returns a transform for a source image of the given size at scale 1.
func NewTransform(width, height int) *Transform {
	return &Transform{width: width, height: height, scale: 1}
}

// SetDisplayWidth recomputes the scale from the rendered image width.
// Non-positive widths (image not laid out yet) keep the previous scale.
func (t *Transform) SetDisplayWidth(displayWidth float64) {
	if displayWidth <= 0 || t.width <= 0 {
		return
	}
	t.scale = displayWidth / float64(t.width)
}

// SetScale sets the display/source ratio directly.
func (t *Transform) SetScale(scale float64) {
	if scale > 0 && !math.IsInf(scale, 0) {
		t.scale = scale
	}
}

// Scale returns displayWidth / sourceWidth.
func (t *Transform) Scale() float64 { return t.scale }

// Width returns the source image width.
func (t *Transform) Width() int { return t.width }

// Height returns the source image height.
func (t *Transform) Height() int { return t.height }

// ToSource converts one display-space axis value into a clamped source coordinate.
func (t *Transform) ToSource(value float64, maxValue int, snap bool) int {
	return Bound(value/t.scale, maxValue, snap)
}

// ToSourcePoint converts a display-space position into a source point.
func (t *Transform) ToSourcePoint(x, y float64, snap bool) types.Point {
	return types.Point{
		X: t.ToSource(x, t.width, snap),
		Y: t.ToSource(y, t.height, snap),
	}
}

// ToDisplay scales a source point for rendering.
func (t *Transform) ToDisplay(p types.Point) types.Point {
	return types.Point{
		X: round(float64(p.X) * t.scale),
		Y: round(float64(p.Y) * t.scale),
	}
}

// ToDisplayPolygon scales every point of p. A nil polygon stays nil.
func (t *Transform) ToDisplayPolygon(p types.Polygon) types.Polygon {
	if p == nil {
		return nil
	}
	out := make(types.Polygon, len(p))
	for i, pt := range p {
		out[i] = t.ToDisplay(pt)
	}
	return out
}

// Bound rounds value, clamps it to [0, maxValue] and, when snap is set, pulls
// values within Inset of either edge onto that edge.
func Bound(value float64, maxValue int, snap bool) int {
	v := round(value)
	if v < 0 {
		v = 0
	}
	if v > maxValue {
		v = maxValue
	}
	if snap {
		if v <= Inset {
			return 0
		}
		if maxValue-v <= Inset {
			return maxValue
		}
	}
	return v
}

// round rounds half up, matching how browsers round layout offsets.
func round(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Floor(v + 0.5))
}
