package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/camconfig"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/polyline"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/pkg/types"
)

func sampleCamera() *camconfig.Camera {
	return &camconfig.Camera{
		Name:        "front",
		Width:       640,
		Height:      480,
		MotionMasks: []string{"0,0,10,0,10,10", "1,2,3"},
		Zones: []camconfig.Zone{
			{Name: "porch", Coordinates: "5,5,50,5,50,50"},
			{Name: "zone_1", Coordinates: ""},
		},
		ObjectMasks: []camconfig.ObjectMask{
			{Name: "person", Masks: []string{"1,1,2,2", "3,3,4,4"}},
			{Name: "dog"},
		},
	}
}

func TestFromConfigContainsParseErrors(t *testing.T) {
	s, warnings := FromConfig(sampleCamera())

	require.Len(t, warnings, 1)
	assert.Equal(t, types.SimpleSelector{Index: 1}, warnings[0].Selector)
	assert.True(t, errors.Is(warnings[0].Err, polyline.ErrOddCoordinateCount))

	require.Equal(t, 2, s.Motion().Len())
	first, ok := s.Motion().At(0)
	require.True(t, ok)
	assert.Len(t, first, 3)
	broken, ok := s.Motion().At(1)
	require.True(t, ok)
	assert.Empty(t, broken)

	assert.Equal(t, []string{"porch", "zone_1"}, s.Zones().Names())
	assert.Equal(t, []string{"person", "dog"}, s.Objects().Names())
	assert.Len(t, s.Objects().Variants("person"), 2)
	assert.Empty(t, s.Objects().Variants("dog"))
}

func TestCreateSimple(t *testing.T) {
	s := New()
	assert.Equal(t, types.SimpleSelector{Index: 0}, s.CreateEntity(types.Simple))
	assert.Equal(t, types.SimpleSelector{Index: 1}, s.CreateEntity(types.Simple))
	assert.Equal(t, 2, s.Motion().Len())
}

func TestCreateKeyedNaming(t *testing.T) {
	s := New()
	assert.Equal(t, types.KeyedSelector{Name: "zone_0"}, s.CreateEntity(types.Keyed))
	assert.Equal(t, types.KeyedSelector{Name: "zone_1"}, s.CreateEntity(types.Keyed))
	assert.Equal(t, []string{"zone_0", "zone_1"}, s.Zones().Names())
}

// Names come from the count of matching names, so a pre-existing zone_1 is
// handed out again and replaced with an empty polygon.
func TestCreateKeyedCollidesWithLoadedName(t *testing.T) {
	cam := &camconfig.Camera{Width: 100, Height: 100, Zones: []camconfig.Zone{{Name: "zone_1", Coordinates: "1,1,2,2"}}}
	s, _ := FromConfig(cam)

	sel := s.CreateEntity(types.Keyed)
	assert.Equal(t, types.KeyedSelector{Name: "zone_1"}, sel)
	assert.Equal(t, []string{"zone_1"}, s.Zones().Names())
	p, ok := s.Zones().Get("zone_1")
	require.True(t, ok)
	assert.Empty(t, p)
}

func TestCreateGrouped(t *testing.T) {
	s := New()
	sel := s.CreateEntity(types.GroupedKeyed)
	assert.Equal(t, types.GroupedSelector{Name: "object_0", Sub: 0}, sel)
	assert.Equal(t, []Variant{{Sub: 0, Polygon: types.Polygon{}}}, s.Objects().Variants("object_0"))

	v, ok := s.AddVariant("object_0")
	require.True(t, ok)
	assert.Equal(t, types.GroupedSelector{Name: "object_0", Sub: 1}, v)

	_, ok = s.AddVariant("missing")
	assert.False(t, ok)
}

func TestRemoveGroupedKeepsSubIndex(t *testing.T) {
	s, _ := FromConfig(sampleCamera())

	require.True(t, s.RemoveEntity(types.GroupedSelector{Name: "person", Sub: 0}))

	_, ok := s.Points(types.GroupedSelector{Name: "person", Sub: 0})
	assert.False(t, ok)
	p, ok := s.Points(types.GroupedSelector{Name: "person", Sub: 1})
	require.True(t, ok)
	assert.Equal(t, types.Polygon{{X: 3, Y: 3}, {X: 4, Y: 4}}, p)
	assert.Equal(t, []Variant{{Sub: 1, Polygon: p}}, s.Objects().Variants("person"))

	// The name survives with no live polygons until removed explicitly.
	require.True(t, s.RemoveEntity(types.GroupedSelector{Name: "person", Sub: 1}))
	assert.True(t, s.Objects().Has("person"))
	assert.False(t, s.RemoveEntity(types.GroupedSelector{Name: "person", Sub: 1}))

	// New variants append after the vacated slots.
	v, ok := s.AddVariant("person")
	require.True(t, ok)
	assert.Equal(t, 2, v.Sub)

	assert.True(t, s.RemoveName("person"))
	assert.False(t, s.Objects().Has("person"))
	assert.Equal(t, []string{"dog"}, s.Objects().Names())
}

func TestRemoveSimpleShifts(t *testing.T) {
	s, _ := FromConfig(sampleCamera())
	require.True(t, s.RemoveEntity(types.SimpleSelector{Index: 0}))
	assert.Equal(t, 1, s.Motion().Len())
	assert.False(t, s.RemoveEntity(types.SimpleSelector{Index: 5}))
}

func TestRemoveKeyed(t *testing.T) {
	s, _ := FromConfig(sampleCamera())
	require.True(t, s.RemoveEntity(types.KeyedSelector{Name: "porch"}))
	assert.Equal(t, []string{"zone_1"}, s.Zones().Names())
	assert.False(t, s.RemoveEntity(types.KeyedSelector{Name: "porch"}))
}

func TestReplaceAndDangling(t *testing.T) {
	s, _ := FromConfig(sampleCamera())
	poly := types.Polygon{{X: 9, Y: 9}}

	assert.True(t, s.Replace(types.KeyedSelector{Name: "porch"}, poly))
	got, ok := s.Points(types.KeyedSelector{Name: "porch"})
	require.True(t, ok)
	assert.Equal(t, poly, got)

	// Stored polygons are isolated from the caller's slice.
	poly[0].X = 100
	got, _ = s.Points(types.KeyedSelector{Name: "porch"})
	assert.Equal(t, 9, got[0].X)

	assert.False(t, s.Replace(types.KeyedSelector{Name: "nope"}, poly))
	assert.False(t, s.Replace(types.SimpleSelector{Index: -1}, poly))
	assert.False(t, s.Replace(types.GroupedSelector{Name: "dog", Sub: 0}, poly))

	_, ok = s.Points(types.KeyedSelector{Name: "nope"})
	assert.False(t, ok)
}

func TestCollection(t *testing.T) {
	s := New()
	assert.Equal(t, types.Simple, s.Collection(types.Simple).Category())
	assert.Equal(t, types.Keyed, s.Collection(types.Keyed).Category())
	assert.Equal(t, types.GroupedKeyed, s.Collection(types.GroupedKeyed).Category())
}
