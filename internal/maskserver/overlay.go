package maskserver

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/pkg/types"
)

var (
	backgroundColor = color.RGBA{R: 32, G: 32, B: 32, A: 255}
	maskColor       = color.NRGBA{R: 244, G: 0, B: 0, A: 128}
	vertexColor     = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	vertexRadius = 3

	// maxDisplayWidth bounds the display width accepted from clients. The
	// overlay is also cropped to maxOverlaySide on both axes.
	maxDisplayWidth = 8192
	maxOverlaySide  = 8192
)

// renderOverlay scales base to width x height and fills poly (display space)
// on top of it. A nil base gives a flat background. Sizes beyond
// maxOverlaySide are cropped.
func renderOverlay(base image.Image, width, height int, poly types.Polygon) *image.RGBA {
	full := image.Rect(0, 0, max(width, 1), max(height, 1))
	dst := image.NewRGBA(image.Rect(0, 0, min(full.Dx(), maxOverlaySide), min(full.Dy(), maxOverlaySide)))
	width, height = dst.Bounds().Dx(), dst.Bounds().Dy()
	if base != nil {
		xdraw.ApproxBiLinear.Scale(dst, full, base, base.Bounds(), xdraw.Src, nil)
	} else {
		xdraw.Draw(dst, dst.Bounds(), image.NewUniform(backgroundColor), image.Point{}, xdraw.Src)
	}

	if len(poly) >= 3 {
		z := vector.NewRasterizer(width, height)
		z.MoveTo(float32(poly[0].X), float32(poly[0].Y))
		for _, p := range poly[1:] {
			z.LineTo(float32(p.X), float32(p.Y))
		}
		z.ClosePath()
		z.Draw(dst, dst.Bounds(), image.NewUniform(maskColor), image.Point{})
	}

	marker := image.NewUniform(vertexColor)
	for _, p := range poly {
		r := image.Rect(p.X-vertexRadius, p.Y-vertexRadius, p.X+vertexRadius+1, p.Y+vertexRadius+1)
		xdraw.Draw(dst, r.Intersect(dst.Bounds()), marker, image.Point{}, xdraw.Over)
	}
	return dst
}
