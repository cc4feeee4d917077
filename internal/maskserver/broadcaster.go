package maskserver

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/mask-editor/internal/metrics"
)

// SerializedEvent holds pre-serialized data in both formats.
// This avoids redundant serialization when broadcasting to multiple clients.
type SerializedEvent struct {
	JSONData     []byte // Pre-serialized JSON
	ProtobufData []byte // structpb.Struct, base64 encoded for SSE
}

// EventBroadcaster fans editor events out to SSE clients.
type EventBroadcaster struct {
	mu      sync.Mutex
	clients map[string]chan *SerializedEvent
	metrics *metrics.Metrics
	log     logger.Module
}

// NewEventBroadcaster creates a broadcaster with no clients.
func NewEventBroadcaster(m *metrics.Metrics) *EventBroadcaster {
	if m == nil {
		m = metrics.New()
	}
	return &EventBroadcaster{
		clients: make(map[string]chan *SerializedEvent),
		metrics: m,
		log:     logger.ForModule(nil, "EventBroadcaster"),
	}
}

// Subscribe adds a new client and returns a channel for receiving events.
func (b *EventBroadcaster) Subscribe() (string, <-chan *SerializedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan *SerializedEvent, 8)
	b.clients[id] = ch
	b.metrics.ActiveClients.Store(int64(len(b.clients)))

	b.log.Debug("Client %s subscribed (total clients: %d)", id, len(b.clients))
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (b *EventBroadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
		b.metrics.ActiveClients.Store(int64(len(b.clients)))
		b.log.Debug("Client %s unsubscribed (remaining clients: %d)", id, len(b.clients))
	}
}

// ClientCount returns the number of subscribed clients.
func (b *EventBroadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish serializes ev once and offers it to every client. Clients whose
// buffer is full miss the event.
func (b *EventBroadcaster) Publish(ev Event) {
	b.mu.Lock()
	n := len(b.clients)
	b.mu.Unlock()
	if n == 0 {
		return
	}

	event, err := serializeEvent(ev)
	if err != nil {
		b.log.Error("serialize %s event: %v", ev.Type, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.clients {
		select {
		case ch <- event:
		default:
			b.log.Debug("Client %s too slow, dropped %s event", id, ev.Type)
		}
	}
}

func serializeEvent(ev Event) (*SerializedEvent, error) {
	jsonData, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}

	st, err := toStruct(jsonData)
	if err != nil {
		return nil, err
	}
	pbData, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("protobuf marshal: %w", err)
	}

	return &SerializedEvent{
		JSONData:     jsonData,
		ProtobufData: []byte(base64.StdEncoding.EncodeToString(pbData)),
	}, nil
}

// toStruct converts a JSON object into a protobuf Struct.
func toStruct(jsonData []byte) (*structpb.Struct, error) {
	var fields map[string]any
	if err := json.Unmarshal(jsonData, &fields); err != nil {
		return nil, fmt.Errorf("decode event fields: %w", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build protobuf struct: %w", err)
	}
	return st, nil
}
