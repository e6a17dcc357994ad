package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/pkg/log"
)

type publishCall struct {
	topic   string
	payload []byte
}

type mockPublisher struct {
	mu    sync.Mutex
	calls []publishCall
	done  chan struct{}
}

func (m *mockPublisher) Publish(_ context.Context, topic string, _ byte, _ bool, payload []byte) error {
	m.mu.Lock()
	m.calls = append(m.calls, publishCall{topic: topic, payload: payload})
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func TestAlertPublisher_PublishesQueuedAlert(t *testing.T) {
	pub := &mockPublisher{done: make(chan struct{}, 1)}
	p := NewAlertPublisher(pub, "fleet/alerts", log.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	p.Handle(domain.GeofenceAlert{
		ID:        "alert-1",
		VehicleID: "truck-42",
		Type:      domain.ViolationEntry,
		Message:   `Vehicle truck-42 entered zone "Depot"`,
	})

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.calls[0].topic != "fleet/alerts" {
		t.Errorf("expected topic fleet/alerts, got %s", pub.calls[0].topic)
	}

	var got domain.GeofenceAlert
	if err := json.Unmarshal(pub.calls[0].payload, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "alert-1" || got.VehicleID != "truck-42" {
		t.Errorf("unexpected alert payload %+v", got)
	}
}

func TestAlertPublisher_DropsWhenQueueFull(t *testing.T) {
	pub := &mockPublisher{done: make(chan struct{}, alertQueueSize+1)}
	p := NewAlertPublisher(pub, "fleet/alerts", log.NewNopLogger())

	// Run is not started so nothing drains the queue.
	for i := 0; i < alertQueueSize+10; i++ {
		p.Handle(domain.GeofenceAlert{ID: "a"})
	}

	if len(p.queue) != alertQueueSize {
		t.Errorf("expected queue length %d, got %d", alertQueueSize, len(p.queue))
	}
}
