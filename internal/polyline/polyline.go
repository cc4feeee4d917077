// Package polyline encodes polygons as flat "x1,y1,x2,y2,..." coordinate strings.
package polyline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/pkg/types"
)

// Reason classifies a ParseError.
type Reason int

const (
	// OddCoordinateCount means the last x has no matching y.
	OddCoordinateCount Reason = iota
	// InvalidCoordinate means a value is not a base-10 integer.
	InvalidCoordinate
)

func (r Reason) String() string {
	switch r {
	case OddCoordinateCount:
		return "odd coordinate count"
	case InvalidCoordinate:
		return "invalid coordinate"
	default:
		return "unknown"
	}
}

var (
	// ErrOddCoordinateCount matches any ParseError with reason OddCoordinateCount.
	ErrOddCoordinateCount = errors.New("polyline: odd coordinate count")
	// ErrInvalidCoordinate matches any ParseError with reason InvalidCoordinate.
	ErrInvalidCoordinate = errors.New("polyline: invalid coordinate")
)

// ParseError reports why a polyline string could not be decoded.
type ParseError struct {
	Reason Reason
	Input  string
	// Position is the zero-based index of the offending value.
	Position int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("polyline: %s at value %d in %q", e.Reason, e.Position, e.Input)
}

// Is lets errors.Is match the reason sentinels.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrOddCoordinateCount:
		return e.Reason == OddCoordinateCount
	case ErrInvalidCoordinate:
		return e.Reason == InvalidCoordinate
	}
	return false
}

// Parse decodes text into a polygon. Blank input yields an empty polygon.
func Parse(text string) (types.Polygon, error) {
	if strings.TrimSpace(text) == "" {
		return types.Polygon{}, nil
	}
	values := strings.Split(text, ",")
	if len(values)%2 != 0 {
		return nil, &ParseError{Reason: OddCoordinateCount, Input: text, Position: len(values) - 1}
	}
	poly := make(types.Polygon, 0, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		x, err := strconv.Atoi(strings.TrimSpace(values[i]))
		if err != nil {
			return nil, &ParseError{Reason: InvalidCoordinate, Input: text, Position: i}
		}
		y, err := strconv.Atoi(strings.TrimSpace(values[i+1]))
		if err != nil {
			return nil, &ParseError{Reason: InvalidCoordinate, Input: text, Position: i + 1}
		}
		poly = append(poly, types.Point{X: x, Y: y})
	}
	return poly, nil
}

// Format encodes poly with no whitespace and no trailing comma.
func Format(poly types.Polygon) string {
	var b strings.Builder
	for i, p := range poly {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(p.X))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(p.Y))
	}
	return b.String()
}
