// Package fragment renders polygon collections as config text and as the
// dotted key/value pairs accepted by the config set endpoint.
package fragment

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/polyline"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/store"
)

const indent = "  "

// KeyValue is one dotted config path and its polyline value.
type KeyValue struct {
	Key   string
	Value string
}

// Build renders c as a config fragment. Lines are joined by "\n" without a
// trailing newline.
func Build(c store.Collection) string {
	var lines []string
	switch v := c.(type) {
	case *store.SimpleCollection:
		lines = append(lines, "motion:", indent+"mask:")
		for i := 0; i < v.Len(); i++ {
			p, _ := v.At(i)
			lines = append(lines, strings.Repeat(indent, 2)+"- "+polyline.Format(p))
		}
	case *store.KeyedCollection:
		lines = append(lines, "zones:")
		for _, name := range v.Names() {
			p, _ := v.Get(name)
			lines = append(lines,
				indent+name+":",
				strings.Repeat(indent, 2)+"coordinates: "+polyline.Format(p))
		}
	case *store.GroupedCollection:
		lines = append(lines, "objects:", indent+"filters:")
		for _, name := range v.Names() {
			variants := v.Variants(name)
			if len(variants) == 0 {
				continue
			}
			lines = append(lines,
				strings.Repeat(indent, 2)+name+":",
				strings.Repeat(indent, 3)+"mask:")
			for _, variant := range variants {
				lines = append(lines, strings.Repeat(indent, 4)+"- "+polyline.Format(variant.Polygon))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// Keys returns one pair per polygon of c under entityPrefix, for example
// "cameras.front_door". Grouped entries use the slot's sub-index, so vacated
// slots leave gaps in the numbering.
func Keys(c store.Collection, entityPrefix string) []KeyValue {
	var out []KeyValue
	switch v := c.(type) {
	case *store.SimpleCollection:
		for i := 0; i < v.Len(); i++ {
			p, _ := v.At(i)
			out = append(out, KeyValue{
				Key:   join(entityPrefix, "motion", "mask", strconv.Itoa(i)),
				Value: polyline.Format(p),
			})
		}
	case *store.KeyedCollection:
		for _, name := range v.Names() {
			p, _ := v.Get(name)
			out = append(out, KeyValue{
				Key:   join(entityPrefix, "zones", name, "coordinates"),
				Value: polyline.Format(p),
			})
		}
	case *store.GroupedCollection:
		for _, name := range v.Names() {
			for _, variant := range v.Variants(name) {
				out = append(out, KeyValue{
					Key:   join(entityPrefix, "objects", "filters", name, "mask", strconv.Itoa(variant.Sub)),
					Value: polyline.Format(variant.Polygon),
				})
			}
		}
	}
	return out
}

// Query joins pairs as "k=v&k=v". Keys and values are query-escaped except
// for commas, which the config endpoint expects literally.
func Query(pairs []KeyValue) string {
	parts := make([]string, len(pairs))
	for i, kv := range pairs {
		parts[i] = escape(kv.Key) + "=" + escape(kv.Value)
	}
	return strings.Join(parts, "&")
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "%2C", ",")
}

// EntityPrefix returns the dotted config path of a camera.
func EntityPrefix(camera string) string {
	return "cameras." + camera
}

func join(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}
