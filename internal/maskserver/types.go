package maskserver

import (
	"errors"
	"fmt"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/pkg/types"
)

var errInvalidSelector = errors.New("invalid selector")

// SelectorPayload is the JSON shape of a selector. Key names zones and object
// filters; Index addresses motion masks; Sub addresses an object mask variant.
type SelectorPayload struct {
	Category string `json:"category"`
	Key      string `json:"key,omitempty"`
	Index    int    `json:"index"`
	Sub      int    `json:"sub"`
}

func selectorPayload(sel types.Selector) *SelectorPayload {
	switch v := sel.(type) {
	case types.SimpleSelector:
		return &SelectorPayload{Category: types.Simple.String(), Index: v.Index}
	case types.KeyedSelector:
		return &SelectorPayload{Category: types.Keyed.String(), Key: v.Name}
	case types.GroupedSelector:
		return &SelectorPayload{Category: types.GroupedKeyed.String(), Key: v.Name, Sub: v.Sub}
	default:
		return nil
	}
}

func (p SelectorPayload) selector() (types.Selector, error) {
	c, ok := types.ParseCategory(p.Category)
	if !ok {
		return nil, fmt.Errorf("%w: unknown category %q", errInvalidSelector, p.Category)
	}
	switch c {
	case types.Simple:
		if p.Index < 0 {
			return nil, fmt.Errorf("%w: negative index %d", errInvalidSelector, p.Index)
		}
		return types.SimpleSelector{Index: p.Index}, nil
	case types.Keyed:
		if p.Key == "" {
			return nil, fmt.Errorf("%w: zone name is required", errInvalidSelector)
		}
		return types.KeyedSelector{Name: p.Key}, nil
	default:
		if p.Key == "" {
			return nil, fmt.Errorf("%w: object name is required", errInvalidSelector)
		}
		return types.GroupedSelector{Name: p.Key, Sub: p.Sub}, nil
	}
}

// entityRequest deletes one entity, or a whole object filter when All is set.
type entityRequest struct {
	SelectorPayload
	All bool `json:"all"`
}

type createRequest struct {
	Category string `json:"category"`
}

type variantRequest struct {
	Name string `json:"name"`
}

// PointPayload carries pointer coordinates in display space.
type PointPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type snapRequest struct {
	Enabled bool `json:"enabled"`
}

type displayRequest struct {
	Width float64 `json:"width"`
}

// EntitiesPayload lists what exists in each collection.
type EntitiesPayload struct {
	Motion  int              `json:"motion"`
	Zones   []string         `json:"zones"`
	Objects map[string][]int `json:"objects"`
}

// StatePayload is the body of GET /api/state and of "state" events.
type StatePayload struct {
	Camera        string           `json:"camera"`
	State         string           `json:"state"`
	Active        *SelectorPayload `json:"active"`
	Snap          bool             `json:"snap"`
	Scale         float64          `json:"scale"`
	Width         int              `json:"width"`
	Height        int              `json:"height"`
	Points        types.Polygon    `json:"points"`
	DisplayPoints types.Polygon    `json:"display_points"`
	Revision      uint64           `json:"revision"`
	Entities      EntitiesPayload  `json:"entities"`
	Warnings      []string         `json:"load_warnings,omitempty"`
}

// SavePayload reports a finished save.
type SavePayload struct {
	RequestID  string  `json:"request_id"`
	Category   string  `json:"category"`
	Keys       int     `json:"keys"`
	OK         bool    `json:"ok"`
	Message    string  `json:"message"`
	StatusCode int     `json:"status_code,omitempty"`
	DurationMs float64 `json:"duration_ms"`
}

// Event is one message on /api/events.
type Event struct {
	Type      string        `json:"type"`
	State     *StatePayload `json:"state,omitempty"`
	Save      *SavePayload  `json:"save,omitempty"`
	Timestamp float64       `json:"timestamp"`
}

const (
	eventState = "state"
	eventSave  = "save"
)
