// Package editor implements the interactive edit session over a polygon store:
// which polygon is active and how clicks and drags turn into vertex edits.
package editor

import (
	"errors"
	"fmt"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/fragment"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/geometry"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/store"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/pkg/types"
)

var (
	// ErrNoActiveSelection is returned by AddPoint when no polygon is selected
	// or the selected one no longer exists. It is meant to be shown to the user.
	ErrNoActiveSelection = errors.New("select an entry to edit or create a new one before adding points")
	// ErrUnknownEntity is returned when a named entry does not exist.
	ErrUnknownEntity = errors.New("unknown entity")
)

// State is the session state.
type State int

const (
	Idle State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "idle"
}

// Session tracks the single active polygon and applies edits to it. It is not
// safe for concurrent use: run one operation to completion before the next.
type Session struct {
	store     *store.Store
	transform *geometry.Transform
	metrics   *metrics.Metrics
	log       logger.Module

	active   types.Selector
	snap     bool
	revision uint64
}

// NewSession starts an idle session with snapping enabled. A nil m gets a
// private metrics instance.
func NewSession(s *store.Store, t *geometry.Transform, m *metrics.Metrics) *Session {
	if m == nil {
		m = metrics.New()
	}
	return &Session{
		store:     s,
		transform: t,
		metrics:   m,
		log:       logger.ForModule(nil, "Editor"),
		snap:      true,
	}
}

// Store returns the underlying polygon store.
func (s *Session) Store() *store.Store { return s.store }

// Transform returns the coordinate transform.
func (s *Session) Transform() *geometry.Transform { return s.transform }

// Revision increases by one on every applied mutation.
func (s *Session) Revision() uint64 { return s.revision }

// State reports Idle until something has been selected.
func (s *Session) State() State {
	if s.active == nil {
		return Idle
	}
	return Editing
}

// Active returns the active selector; it may point at a deleted entry.
func (s *Session) Active() (types.Selector, bool) {
	return s.active, s.active != nil
}

// Select makes sel the active polygon.
func (s *Session) Select(sel types.Selector) {
	s.active = sel
	s.log.Debug("editing %s", sel)
}

// Clear returns the session to Idle.
func (s *Session) Clear() {
	s.active = nil
}

// Snap reports whether edge snapping is on.
func (s *Session) Snap() bool { return s.snap }

// SetSnap toggles edge snapping for subsequent edits.
func (s *Session) SetSnap(on bool) { s.snap = on }

// SetDisplayWidth updates the scale from the rendered image width.
func (s *Session) SetDisplayWidth(width float64) { s.transform.SetDisplayWidth(width) }

// Create adds an empty entry of category c and makes it active.
func (s *Session) Create(c types.Category) types.Selector {
	sel := s.store.CreateEntity(c)
	s.metrics.EntitiesCreated.Add(1)
	s.active = sel
	s.bump()
	s.log.Info("created %s", sel)
	return sel
}

// AddVariant appends an empty polygon to a grouped entry and makes it active.
func (s *Session) AddVariant(name string) (types.GroupedSelector, error) {
	sel, ok := s.store.AddVariant(name)
	if !ok {
		return types.GroupedSelector{}, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	s.metrics.EntitiesCreated.Add(1)
	s.active = sel
	s.bump()
	return sel, nil
}

// Remove deletes what sel addresses. The active selector is left untouched
// even when it now dangles.
func (s *Session) Remove(sel types.Selector) bool {
	if !s.store.RemoveEntity(sel) {
		return false
	}
	s.metrics.EntitiesRemoved.Add(1)
	s.bump()
	s.log.Info("removed %s", sel)
	return true
}

// RemoveName deletes a grouped entry with all its polygons.
func (s *Session) RemoveName(name string) bool {
	if !s.store.RemoveName(name) {
		return false
	}
	s.metrics.EntitiesRemoved.Add(1)
	s.bump()
	return true
}

// Points returns the active polygon, or an empty one when idle or dangling.
func (s *Session) Points() types.Polygon {
	if s.active == nil {
		return types.Polygon{}
	}
	p, ok := s.store.Points(s.active)
	if !ok {
		return types.Polygon{}
	}
	return p
}

// DisplayPoints returns the active polygon in display space.
func (s *Session) DisplayPoints() types.Polygon {
	return s.transform.ToDisplayPolygon(s.Points())
}

// MovePoint drags vertex index to a display position. Both coordinates
// negative is the drag-cancel signal and changes nothing. It reports whether
// the polygon changed.
func (s *Session) MovePoint(index int, displayX, displayY float64) bool {
	if displayX < 0 && displayY < 0 {
		return false
	}
	poly, ok := s.resolve()
	if !ok || index < 0 || index >= len(poly) {
		return false
	}
	poly[index] = s.transform.ToSourcePoint(displayX, displayY, s.snap)
	if !s.store.Replace(s.active, poly) {
		return false
	}
	s.metrics.PointsMoved.Add(1)
	s.bump()
	return true
}

// AddPoint inserts a vertex for a click at the given overlay offset. The
// overlay extends Inset pixels past the image on every side, so the inset is
// removed before converting.
func (s *Session) AddPoint(offsetX, offsetY float64) error {
	poly, ok := s.resolve()
	if !ok {
		s.metrics.RejectedEdits.Add(1)
		return ErrNoActiveSelection
	}
	p := s.transform.ToSourcePoint(offsetX-geometry.Inset, offsetY-geometry.Inset, s.snap)
	if !s.store.Replace(s.active, geometry.Insert(poly, p)) {
		return ErrNoActiveSelection
	}
	s.metrics.PointsAdded.Add(1)
	s.bump()
	return nil
}

// RemovePoint deletes vertex index. The polygon may become empty.
func (s *Session) RemovePoint(index int) bool {
	poly, ok := s.resolve()
	if !ok || index < 0 || index >= len(poly) {
		return false
	}
	poly = append(poly[:index], poly[index+1:]...)
	if !s.store.Replace(s.active, poly) {
		return false
	}
	s.metrics.PointsRemoved.Add(1)
	s.bump()
	return true
}

// Fragment renders the current config text of category c.
func (s *Session) Fragment(c types.Category) string {
	return fragment.Build(s.store.Collection(c))
}

// Keys returns the persistence pairs of category c for the given camera.
func (s *Session) Keys(c types.Category, camera string) []fragment.KeyValue {
	return fragment.Keys(s.store.Collection(c), fragment.EntityPrefix(camera))
}

func (s *Session) resolve() (types.Polygon, bool) {
	if s.active == nil {
		return nil, false
	}
	return s.store.Points(s.active)
}

func (s *Session) bump() { s.revision++ }
