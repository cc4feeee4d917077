package fragment

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/camconfig"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/store"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/pkg/types"
)

func loaded(t *testing.T) *store.Store {
	t.Helper()
	s, warnings := store.FromConfig(&camconfig.Camera{
		Name:        "front",
		Width:       640,
		Height:      480,
		MotionMasks: []string{"0,0,10,0,10,10", "20,20,30,30"},
		Zones: []camconfig.Zone{
			{Name: "porch", Coordinates: "5,5,50,5,50,50"},
			{Name: "yard", Coordinates: "1,2,3,4"},
		},
		ObjectMasks: []camconfig.ObjectMask{
			{Name: "person", Masks: []string{"1,1,2,2", "3,3,4,4"}},
			{Name: "dog"},
			{Name: "car", Masks: []string{"7,7,8,8"}},
		},
	})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	return s
}

func TestBuildSimple(t *testing.T) {
	s := loaded(t)
	want := "motion:\n" +
		"  mask:\n" +
		"    - 0,0,10,0,10,10\n" +
		"    - 20,20,30,30"
	assert.Equal(t, want, Build(s.Motion()))
}

func TestBuildKeyed(t *testing.T) {
	s := loaded(t)
	want := "zones:\n" +
		"  porch:\n" +
		"    coordinates: 5,5,50,5,50,50\n" +
		"  yard:\n" +
		"    coordinates: 1,2,3,4"
	assert.Equal(t, want, Build(s.Zones()))
}

func TestBuildGroupedOmitsEmptyNames(t *testing.T) {
	s := loaded(t)
	s.RemoveEntity(types.GroupedSelector{Name: "person", Sub: 0})
	want := "objects:\n" +
		"  filters:\n" +
		"    person:\n" +
		"      mask:\n" +
		"        - 3,3,4,4\n" +
		"    car:\n" +
		"      mask:\n" +
		"        - 7,7,8,8"
	assert.Equal(t, want, Build(s.Objects()))
}

func TestBuildEmptyCollections(t *testing.T) {
	s := store.New()
	assert.Equal(t, "motion:\n  mask:", Build(s.Motion()))
	assert.Equal(t, "zones:", Build(s.Zones()))
	assert.Equal(t, "objects:\n  filters:", Build(s.Objects()))
}

func TestKeys(t *testing.T) {
	s := loaded(t)
	s.RemoveEntity(types.GroupedSelector{Name: "person", Sub: 0})
	prefix := EntityPrefix("front")

	cases := []struct {
		name string
		c    store.Collection
		want []KeyValue
	}{
		{"motion", s.Motion(), []KeyValue{
			{"cameras.front.motion.mask.0", "0,0,10,0,10,10"},
			{"cameras.front.motion.mask.1", "20,20,30,30"},
		}},
		{"zones", s.Zones(), []KeyValue{
			{"cameras.front.zones.porch.coordinates", "5,5,50,5,50,50"},
			{"cameras.front.zones.yard.coordinates", "1,2,3,4"},
		}},
		{"objects", s.Objects(), []KeyValue{
			{"cameras.front.objects.filters.person.mask.1", "3,3,4,4"},
			{"cameras.front.objects.filters.car.mask.0", "7,7,8,8"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Keys(tc.c, prefix)); diff != "" {
				t.Fatalf("Keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	got := Query([]KeyValue{
		{"cameras.front.motion.mask.0", "0,0,10,0"},
		{"cameras.front.motion.mask.1", "5,5,6,6"},
	})
	assert.Equal(t, "cameras.front.motion.mask.0=0,0,10,0&cameras.front.motion.mask.1=5,5,6,6", got)
	assert.Equal(t, "", Query(nil))
}

func TestQueryEscapesNames(t *testing.T) {
	got := Query([]KeyValue{
		{"cameras.front.zones.front yard.coordinates", "0,0,10,0"},
		{"cameras.front.zones.a#b&c=d.coordinates", "1,1"},
	})
	assert.Equal(t,
		"cameras.front.zones.front+yard.coordinates=0,0,10,0&cameras.front.zones.a%23b%26c%3Dd.coordinates=1,1",
		got)

	values, err := url.ParseQuery(got)
	require.NoError(t, err)
	assert.Equal(t, "0,0,10,0", values.Get("cameras.front.zones.front yard.coordinates"))
	assert.Equal(t, "1,1", values.Get("cameras.front.zones.a#b&c=d.coordinates"))
}
