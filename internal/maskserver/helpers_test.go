package maskserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/camconfig"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/clipboard"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/editor"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/geometry"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/persist"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/store"
)

const defaultRequestTimeout = 2 * time.Second

// frontCamera is 200x200 with one motion mask, the zone "square"
// (0,0) (100,0) (100,100) (0,100) and one object mask for "person".
var frontCamera = camconfig.Camera{
	Name:        "front",
	Width:       200,
	Height:      200,
	MotionMasks: []string{"0,0,10,0,10,10"},
	Zones:       []camconfig.Zone{{Name: "square", Coordinates: "0,0,100,0,100,100,0,100"}},
	ObjectMasks: []camconfig.ObjectMask{{Name: "person", Masks: []string{"1,1,2,2,3,3"}}},
}

type fakeClipboard struct {
	err error
	got []string
}

func (f *fakeClipboard) WriteText(_ context.Context, text string) error {
	f.got = append(f.got, text)
	return f.err
}

type testEnv struct {
	server  *Server
	http    *httptest.Server
	client  *http.Client
	metrics *metrics.Metrics
	clip    *fakeClipboard
}

// newTestEnv serves frontCamera at display width 100 (scale 0.5). configAPI
// is the config set endpoint saves go to.
func newTestEnv(t *testing.T, cfg Config, configAPI string) *testEnv {
	t.Helper()
	st, warnings := store.FromConfig(&frontCamera)
	require.Empty(t, warnings)

	m := metrics.New()
	sess := editor.NewSession(st, geometry.NewTransform(frontCamera.Width, frontCamera.Height), m)
	clip := &fakeClipboard{}

	cfg.Camera = frontCamera.Name
	if cfg.DisplayWidth == 0 {
		cfg.DisplayWidth = 100
	}
	srv := NewServer(cfg, sess, Options{
		Gateway:  persist.NewGateway(configAPI, nil, m),
		Exporter: clipboard.NewExporter(clip, &fakeClipboard{err: clipboard.ErrUnsupported}, m),
		Metrics:  m,
	})
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	return &testEnv{
		server:  srv,
		http:    hs,
		client:  &http.Client{Timeout: defaultRequestTimeout},
		metrics: m,
		clip:    clip,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, payload any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.http.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	_ = resp.Body.Close()
	return resp, body
}

// state fetches /api/state.
func (e *testEnv) state(t *testing.T) StatePayload {
	t.Helper()
	resp, body := e.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeState(t, body)
}

func decodeState(t *testing.T, body []byte) StatePayload {
	t.Helper()
	var st StatePayload
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode state: %v\nbody=%s", err, string(body))
	}
	return st
}

func decodeJSONMap(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode json: %v\nbody=%s", err, string(body))
	}
	return payload
}

func requireString(t *testing.T, value any, field string) string {
	t.Helper()
	str, ok := value.(string)
	if !ok {
		t.Fatalf("expected %s to be string, got %T", field, value)
	}
	return str
}

func requireMap(t *testing.T, value any, field string) map[string]any {
	t.Helper()
	m, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("expected %s to be object, got %T", field, value)
	}
	return m
}

// sseStream is an open /api/events connection.
type sseStream struct {
	resp   *http.Response
	reader *bufio.Reader
	cancel context.CancelFunc
}

func openSSE(t *testing.T, url, accept string) *sseStream {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		t.Fatalf("build request: %v", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("request failed: %v", err)
	}
	s := &sseStream{resp: resp, reader: bufio.NewReader(resp.Body), cancel: cancel}
	t.Cleanup(s.close)
	return s
}

func (s *sseStream) close() {
	s.cancel()
	_ = s.resp.Body.Close()
}

// next returns the data of the next event, skipping keepalive comments.
func (s *sseStream) next(timeout time.Duration) (string, error) {
	type result struct {
		data string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		for {
			line, err := s.reader.ReadString('\n')
			if err != nil {
				done <- result{err: fmt.Errorf("read sse: %w", err)}
				return
			}
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				done <- result{data: strings.TrimSpace(data)}
				return
			}
		}
	}()
	select {
	case r := <-done:
		return r.data, r.err
	case <-time.After(timeout):
		return "", fmt.Errorf("timeout waiting for sse event")
	}
}

// waitForClients blocks until the broadcaster has n subscribers.
func waitForClients(t *testing.T, b *EventBroadcaster, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return b.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}
