package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/fleetcore/backend/internal/domain"
)

// Containment states and the events moving between them
const (
	StateOutside = "outside"
	StateInside  = "inside"

	EventArrive = "arrive"
	EventDepart = "depart"
)

var containmentEvents = fsm.Events{
	{Name: EventArrive, Src: []string{StateOutside}, Dst: StateInside},
	{Name: EventDepart, Src: []string{StateInside}, Dst: StateOutside},
}

// containmentMachine drives one (vehicle, zone) pair from its last stored
// state to the observed one. The FSM is rebuilt per observation from the
// store, so the store stays the single source of truth.
type containmentMachine struct {
	fsm        *fsm.FSM
	transition domain.ViolationType
}

func newContainmentMachine(inside bool) *containmentMachine {
	m := &containmentMachine{}

	initial := StateOutside
	if inside {
		initial = StateInside
	}

	m.fsm = fsm.NewFSM(initial, containmentEvents, fsm.Callbacks{
		"enter_" + StateInside: func(_ context.Context, _ *fsm.Event) {
			m.transition = domain.ViolationEntry
		},
		"enter_" + StateOutside: func(_ context.Context, _ *fsm.Event) {
			m.transition = domain.ViolationExit
		},
	})
	return m
}

// observe feeds the measured containment into the machine. It returns the
// crossing that happened, or "" when the vehicle stayed on the same side.
func (m *containmentMachine) observe(ctx context.Context, inside bool) (domain.ViolationType, error) {
	event := EventDepart
	if inside {
		event = EventArrive
	}
	if !m.fsm.Can(event) {
		return "", nil
	}
	if err := m.fsm.Event(ctx, event); err != nil {
		return "", fmt.Errorf("containment: %s failed: %w", event, err)
	}
	return m.transition, nil
}

func (m *containmentMachine) inside() bool {
	return m.fsm.Is(StateInside)
}

// MemoryContainmentStore keeps containment flags in process memory
type MemoryContainmentStore struct {
	mu     sync.RWMutex
	inside map[string]map[string]struct{}  // vehicle -> zones currently inside
	seen   map[string]map[string]time.Time // zone -> vehicle -> last applied observation
}

var _ domain.ContainmentStore = (*MemoryContainmentStore)(nil)

// NewMemoryContainmentStore creates an empty in-memory store
func NewMemoryContainmentStore() *MemoryContainmentStore {
	return &MemoryContainmentStore{
		inside: make(map[string]map[string]struct{}),
		seen:   make(map[string]map[string]time.Time),
	}
}

func (s *MemoryContainmentStore) Inside(_ context.Context, vehicleID, zoneID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.inside[vehicleID][zoneID]
	return ok, nil
}

func (s *MemoryContainmentStore) Observe(_ context.Context, vehicleID, zoneID string, inside bool, at time.Time) (domain.ContainmentObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, was := s.inside[vehicleID][zoneID]
	obs := domain.ContainmentObservation{WasInside: was}

	if last, ok := s.seen[zoneID][vehicleID]; ok && at.Before(last) {
		return obs, nil
	}

	if s.seen[zoneID] == nil {
		s.seen[zoneID] = make(map[string]time.Time)
	}
	s.seen[zoneID][vehicleID] = at
	obs.Applied = true

	zones := s.inside[vehicleID]
	if inside {
		if zones == nil {
			zones = make(map[string]struct{})
			s.inside[vehicleID] = zones
		}
		zones[zoneID] = struct{}{}
		return obs, nil
	}

	delete(zones, zoneID)
	if len(zones) == 0 {
		delete(s.inside, vehicleID)
	}
	return obs, nil
}

func (s *MemoryContainmentStore) ZonesFor(_ context.Context, vehicleID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.inside[vehicleID]))
	for id := range s.inside[vehicleID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryContainmentStore) ForgetZone(_ context.Context, zoneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for vehicleID, zones := range s.inside {
		delete(zones, zoneID)
		if len(zones) == 0 {
			delete(s.inside, vehicleID)
		}
	}
	delete(s.seen, zoneID)
	return nil
}
