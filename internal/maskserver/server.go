// Package maskserver exposes one editing session over HTTP.
package maskserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/clipboard"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/editor"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/persist"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/store"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/pkg/types"
)

// Options carries the collaborators of a Server. Nil fields get defaults
// built from the Config.
type Options struct {
	Gateway      *persist.Gateway
	Exporter     *clipboard.Exporter
	Metrics      *metrics.Metrics
	LoadWarnings []store.LoadWarning
}

// Server serves the editor API for a single camera.
type Server struct {
	cfg       Config
	log       logger.Module
	metrics   *metrics.Metrics
	gateway   *persist.Gateway
	exporter  *clipboard.Exporter
	events    *EventBroadcaster
	reference *referenceImage
	warnings  []string

	// mu serialises every session operation.
	mu      sync.Mutex
	session *editor.Session
}

// NewServer returns a server editing session. The session must not be used
// elsewhere afterwards.
func NewServer(cfg Config, session *editor.Session, opts Options) *Server {
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = DefaultConfig().KeepaliveInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Gateway == nil {
		opts.Gateway = persist.NewGateway(cfg.APIBaseURL, &http.Client{Timeout: cfg.SaveTimeout}, opts.Metrics)
	}
	if opts.Exporter == nil {
		opts.Exporter = clipboard.NewExporter(nil, clipboard.CommandWriter{Command: cfg.ClipboardCommand}, opts.Metrics)
	}

	s := &Server{
		cfg:      cfg,
		log:      logger.ForModule(nil, "MaskServer"),
		metrics:  opts.Metrics,
		gateway:  opts.Gateway,
		exporter: opts.Exporter,
		events:   NewEventBroadcaster(opts.Metrics),
		session:  session,
	}
	for _, w := range opts.LoadWarnings {
		s.warnings = append(s.warnings, w.String())
	}

	if cfg.ReferenceImage != "" {
		ref, err := loadReference(cfg.ReferenceImage)
		if err != nil {
			s.log.Warn("Reference image unavailable: %v", err)
		} else {
			s.reference = ref
			tr := session.Transform()
			if ref.width != tr.Width() || ref.height != tr.Height() {
				s.log.Warn("Reference image is %dx%d, camera detect size is %dx%d",
					ref.width, ref.height, tr.Width(), tr.Height())
			}
			s.log.Info("Loaded %s reference image %s", ref.format, cfg.ReferenceImage)
		}
	}
	if cfg.DisplayWidth > maxDisplayWidth {
		s.log.Warn("Display width %d exceeds %d, using %d", cfg.DisplayWidth, maxDisplayWidth, maxDisplayWidth)
		cfg.DisplayWidth = maxDisplayWidth
	}
	if cfg.DisplayWidth > 0 {
		session.SetDisplayWidth(float64(cfg.DisplayWidth))
	}
	return s
}

// Events returns the broadcaster feeding /api/events.
func (s *Server) Events() *EventBroadcaster { return s.events }

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/select", s.handleSelect)
	mux.HandleFunc("POST /api/clear", s.handleClear)
	mux.HandleFunc("POST /api/entities", s.handleCreateEntity)
	mux.HandleFunc("POST /api/entities/variant", s.handleAddVariant)
	mux.HandleFunc("DELETE /api/entities", s.handleRemoveEntity)
	mux.HandleFunc("POST /api/points", s.handleAddPoint)
	mux.HandleFunc("PUT /api/points/{index}", s.handleMovePoint)
	mux.HandleFunc("DELETE /api/points/{index}", s.handleRemovePoint)
	mux.HandleFunc("POST /api/snap", s.handleSnap)
	mux.HandleFunc("POST /api/display", s.handleDisplay)
	mux.HandleFunc("GET /api/fragment/{category}", s.handleFragment)
	mux.HandleFunc("GET /api/keys/{category}", s.handleKeys)
	mux.HandleFunc("POST /api/copy/{category}", s.handleCopy)
	mux.HandleFunc("POST /api/save/{category}", s.handleSave)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /reference.jpg", s.handleReference)
	mux.HandleFunc("GET /api/overlay.png", s.handleOverlay)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return mux
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	state := s.stateLocked()
	s.mu.Unlock()
	writeJSON(w, state)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectorPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	sel, err := req.selector()
	if err != nil {
		writeError(w, err)
		return
	}
	s.apply(w, func(sess *editor.Session) (bool, error) {
		sess.Select(sel)
		return true, nil
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.apply(w, func(sess *editor.Session) (bool, error) {
		sess.Clear()
		return true, nil
	})
}

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, ok := types.ParseCategory(req.Category)
	if !ok {
		writeError(w, fmt.Errorf("%w: unknown category %q", errInvalidSelector, req.Category))
		return
	}
	s.apply(w, func(sess *editor.Session) (bool, error) {
		sess.Create(c)
		return true, nil
	})
}

func (s *Server) handleAddVariant(w http.ResponseWriter, r *http.Request) {
	var req variantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.apply(w, func(sess *editor.Session) (bool, error) {
		if _, err := sess.AddVariant(req.Name); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (s *Server) handleRemoveEntity(w http.ResponseWriter, r *http.Request) {
	var req entityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sel, err := req.selector()
	if err != nil {
		writeError(w, err)
		return
	}
	s.apply(w, func(sess *editor.Session) (bool, error) {
		if g, ok := sel.(types.GroupedSelector); ok && req.All {
			return sess.RemoveName(g.Name), nil
		}
		return sess.Remove(sel), nil
	})
}

func (s *Server) handleAddPoint(w http.ResponseWriter, r *http.Request) {
	var req PointPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	s.apply(w, func(sess *editor.Session) (bool, error) {
		if err := sess.AddPoint(req.X, req.Y); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (s *Server) handleMovePoint(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var req PointPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	s.apply(w, func(sess *editor.Session) (bool, error) {
		return sess.MovePoint(index, req.X, req.Y), nil
	})
}

func (s *Server) handleRemovePoint(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	s.apply(w, func(sess *editor.Session) (bool, error) {
		return sess.RemovePoint(index), nil
	})
}

func (s *Server) handleSnap(w http.ResponseWriter, r *http.Request) {
	var req snapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.apply(w, func(sess *editor.Session) (bool, error) {
		changed := sess.Snap() != req.Enabled
		sess.SetSnap(req.Enabled)
		return changed, nil
	})
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	var req displayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Width > maxDisplayWidth {
		writeJSONWithStatus(w, map[string]any{
			"error": fmt.Sprintf("display width %g exceeds %d", req.Width, maxDisplayWidth),
		}, http.StatusBadRequest)
		return
	}
	s.apply(w, func(sess *editor.Session) (bool, error) {
		before := sess.Transform().Scale()
		sess.SetDisplayWidth(req.Width)
		return sess.Transform().Scale() != before, nil
	})
}

func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	c, ok := pathCategory(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	text := s.session.Fragment(c)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	c, ok := pathCategory(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	keys := s.session.Keys(c, s.cfg.Camera)
	s.mu.Unlock()

	payload := make([]map[string]string, 0, len(keys))
	for _, kv := range keys {
		payload = append(payload, map[string]string{"key": kv.Key, "value": kv.Value})
	}
	writeJSON(w, payload)
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	c, ok := pathCategory(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	text := s.session.Fragment(c)
	s.mu.Unlock()

	if err := s.exporter.Copy(r.Context(), text); err != nil {
		writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"copied": true, "category": c.String(), "text": text})
}

// handleSave starts a save and answers 202 with its request id; the outcome
// is published on /api/events. With ?wait=true the response carries the
// outcome instead.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	c, ok := pathCategory(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	keys := s.session.Keys(c, s.cfg.Camera)
	s.mu.Unlock()

	// The request context ends with this handler; the save must outlive it.
	pending := s.gateway.Save(context.WithoutCancel(r.Context()), keys)

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		payload := s.reportSave(c, pending.Wait())
		status := http.StatusOK
		if !payload.OK {
			status = http.StatusBadGateway
		}
		writeJSONWithStatus(w, payload, status)
		return
	}

	go func() { s.reportSave(c, pending.Wait()) }()
	writeJSONWithStatus(w, map[string]any{
		"request_id": pending.ID,
		"category":   c.String(),
		"keys":       len(keys),
	}, http.StatusAccepted)
}

func (s *Server) reportSave(c types.Category, res persist.Result) SavePayload {
	payload := SavePayload{
		RequestID:  res.RequestID,
		Category:   c.String(),
		Keys:       len(res.Keys),
		OK:         res.Err == nil,
		Message:    res.Message,
		DurationMs: float64(res.Duration.Microseconds()) / 1000,
	}
	if res.Err != nil {
		payload.Message = res.Err.Error()
		var perr *persist.PersistenceError
		if errors.As(res.Err, &perr) {
			payload.StatusCode = perr.StatusCode
		}
		s.log.Warn("Saving %s failed: %s", c, payload.Message)
	} else {
		s.log.Info("Saved %s: %s", c, payload.Message)
	}
	s.events.Publish(Event{Type: eventSave, Save: &payload, Timestamp: now()})
	return payload
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, eventCh := s.events.Subscribe()
	defer s.events.Unsubscribe(id)

	// Content negotiation based on Accept header
	accept := r.Header.Get("Accept")
	useProtobuf := strings.Contains(accept, "application/protobuf") ||
		strings.Contains(accept, "application/x-protobuf")

	streamEventsFromChannel(w, r, eventCh, useProtobuf, s.cfg.KeepaliveInterval)
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	if s.reference == nil {
		writeJSONWithStatus(w, map[string]any{"error": "no reference image configured"}, http.StatusNotFound)
		return
	}
	s.reference.ServeHTTP(w, r)
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tr := s.session.Transform()
	size := tr.ToDisplay(types.Point{X: tr.Width(), Y: tr.Height()})
	poly := s.session.DisplayPoints()
	s.mu.Unlock()

	var base image.Image
	if s.reference != nil {
		img, err := s.reference.image()
		if err != nil {
			s.log.Warn("Overlay without reference: %v", err)
		} else {
			base = img
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := png.Encode(w, renderOverlay(base, size.X, size.Y, poly)); err != nil {
		s.log.Debug("Overlay write failed: %v", err)
	}
}

// apply runs op on the session under the lock and answers with the resulting
// state. Changes are published to event subscribers.
func (s *Server) apply(w http.ResponseWriter, op func(*editor.Session) (bool, error)) {
	s.mu.Lock()
	changed, err := op(s.session)
	state := s.stateLocked()
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	if changed {
		s.events.Publish(Event{Type: eventState, State: &state, Timestamp: now()})
	}
	writeJSON(w, state)
}

func (s *Server) stateLocked() StatePayload {
	sess := s.session
	tr := sess.Transform()
	state := StatePayload{
		Camera:        s.cfg.Camera,
		State:         sess.State().String(),
		Snap:          sess.Snap(),
		Scale:         tr.Scale(),
		Width:         tr.Width(),
		Height:        tr.Height(),
		Points:        sess.Points(),
		DisplayPoints: sess.DisplayPoints(),
		Revision:      sess.Revision(),
		Entities:      entitiesPayload(sess.Store()),
		Warnings:      s.warnings,
	}
	if sel, ok := sess.Active(); ok {
		state.Active = selectorPayload(sel)
	}
	return state
}

func entitiesPayload(st *store.Store) EntitiesPayload {
	objects := make(map[string][]int)
	for _, name := range st.Objects().Names() {
		subs := []int{}
		for _, v := range st.Objects().Variants(name) {
			subs = append(subs, v.Sub)
		}
		objects[name] = subs
	}
	return EntitiesPayload{
		Motion:  st.Motion().Len(),
		Zones:   append([]string{}, st.Zones().Names()...),
		Objects: objects,
	}
}

func pathCategory(w http.ResponseWriter, r *http.Request) (types.Category, bool) {
	name := r.PathValue("category")
	c, ok := types.ParseCategory(name)
	if !ok {
		writeJSONWithStatus(w, map[string]any{"error": fmt.Sprintf("unknown category %q", name)}, http.StatusNotFound)
	}
	return c, ok
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSONWithStatus(w, map[string]any{"error": "invalid point index"}, http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONWithStatus(w, map[string]any{"error": "invalid request body: " + err.Error()}, http.StatusBadRequest)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, editor.ErrNoActiveSelection), errors.Is(err, errInvalidSelector):
		status = http.StatusBadRequest
	case errors.Is(err, editor.ErrUnknownEntity):
		status = http.StatusNotFound
	}
	writeJSONWithStatus(w, map[string]any{"error": err.Error()}, status)
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":"%s"}`, err.Error())
	}
}

func now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
