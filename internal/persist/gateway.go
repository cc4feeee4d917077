// Package persist sends edited polygons to the config set endpoint.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/fragment"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/metrics"
)

// HTTPClient is the part of *http.Client the gateway needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// PersistenceError describes a failed save. Message is the server's message
// when it sent one, otherwise the transport error text.
type PersistenceError struct {
	StatusCode int // 0 when no response arrived
	Message    string
	Err        error
}

func (e *PersistenceError) Error() string { return e.Message }

func (e *PersistenceError) Unwrap() error { return e.Err }

// Transport reports whether the request failed before a response arrived.
func (e *PersistenceError) Transport() bool { return e.StatusCode == 0 }

// Result is the outcome of one save.
type Result struct {
	RequestID string
	Keys      []fragment.KeyValue
	Message   string // server message on success
	Err       error  // *PersistenceError on failure
	Duration  time.Duration
}

// Gateway issues config set requests. Saves are independent of each other and
// of later edits; nothing is rolled back when one fails.
type Gateway struct {
	baseURL string
	client  HTTPClient
	metrics *metrics.Metrics
	log     logger.Module
}

// NewGateway returns a gateway for the API at baseURL (for example
// "http://frigate:5000"). A nil client means http.DefaultClient.
func NewGateway(baseURL string, client HTTPClient, m *metrics.Metrics) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	if m == nil {
		m = metrics.New()
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		metrics: m,
		log:     logger.ForModule(nil, "Persist"),
	}
}

// Pending is an in-flight save.
type Pending struct {
	ID       string
	done     chan Result
	finished chan struct{}
	result   Result
}

// Done yields the Result once and is then closed.
func (p *Pending) Done() <-chan Result { return p.done }

// Wait blocks until the save finishes and returns its Result. It may be
// called any number of times, also after receiving from Done.
func (p *Pending) Wait() Result {
	<-p.finished
	return p.result
}

// Save copies keys and sends them in the background. Later edits to the
// caller's data do not affect the request. Concurrent saves are not ordered;
// each resolves when its own response arrives.
func (g *Gateway) Save(ctx context.Context, keys []fragment.KeyValue) *Pending {
	snapshot := append([]fragment.KeyValue(nil), keys...)
	p := &Pending{
		ID:       uuid.NewString(),
		done:     make(chan Result, 1),
		finished: make(chan struct{}),
	}
	g.metrics.SavesStarted.Add(1)

	go func() {
		p.result = g.put(ctx, p.ID, snapshot)
		close(p.finished)
		p.done <- p.result
		close(p.done)
	}()
	return p
}

// SaveSync is Save followed by Wait.
func (g *Gateway) SaveSync(ctx context.Context, keys []fragment.KeyValue) Result {
	return g.Save(ctx, keys).Wait()
}

func (g *Gateway) put(ctx context.Context, id string, keys []fragment.KeyValue) Result {
	start := time.Now()
	res := Result{RequestID: id, Keys: keys}

	message, err := g.do(ctx, id, keys)
	res.Duration = time.Since(start)
	g.metrics.ObserveSave(res.Duration, err == nil)

	if err != nil {
		g.log.Warn("save %s failed after %v: %v", id, res.Duration, err)
		res.Err = err
		return res
	}
	g.log.Info("save %s stored %d polygons in %v", id, len(keys), res.Duration)
	res.Message = message
	return res
}

func (g *Gateway) do(ctx context.Context, id string, keys []fragment.KeyValue) (string, error) {
	endpoint := g.baseURL + "/api/config/set?" + fragment.Query(keys)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return "", &PersistenceError{Message: err.Error(), Err: err}
	}
	req.Header.Set("X-Request-ID", id)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &PersistenceError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &PersistenceError{StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}
	message, hasMessage := serverMessage(body)

	if resp.StatusCode != http.StatusOK {
		if !hasMessage {
			message = fmt.Sprintf("config set failed with status %d", resp.StatusCode)
		}
		return "", &PersistenceError{StatusCode: resp.StatusCode, Message: message}
	}
	return message, nil
}

// serverMessage extracts {"message": ...}; a non-JSON body is used verbatim.
func serverMessage(body []byte) (string, bool) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", false
	}
	var payload struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return trimmed, true
	}
	if payload.Message == nil {
		return "", false
	}
	return *payload.Message, true
}
