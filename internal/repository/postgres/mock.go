package postgres

import (
	"context"
	"sort"
	"sync"

	"github.com/fleetcore/backend/internal/domain"
)

// MockRepository implements domain.DataRepository in memory for testing/demo mode
type MockRepository struct {
	mu         sync.RWMutex
	zones      map[string]domain.GeofenceZone
	violations map[string]domain.GeofenceViolation
	profiles   map[string]domain.DriverBehaviorProfile
	checks     []domain.ComplianceCheck
}

var _ domain.DataRepository = (*MockRepository)(nil)

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		zones:      make(map[string]domain.GeofenceZone),
		violations: make(map[string]domain.GeofenceViolation),
		profiles:   make(map[string]domain.DriverBehaviorProfile),
	}
}

func (r *MockRepository) SaveZone(ctx context.Context, z domain.GeofenceZone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zones[z.ID] = z
	return nil
}

func (r *MockRepository) DeleteZone(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.zones[id]; !ok {
		return domain.ErrZoneNotFound
	}
	delete(r.zones, id)
	return nil
}

func (r *MockRepository) ListZones(ctx context.Context) ([]domain.GeofenceZone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	zones := make([]domain.GeofenceZone, 0, len(r.zones))
	for _, z := range r.zones {
		zones = append(zones, z)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].Name < zones[j].Name })
	return zones, nil
}

func (r *MockRepository) SaveViolation(ctx context.Context, v domain.GeofenceViolation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.violations[v.ID] = v
	return nil
}

func (r *MockRepository) GetViolation(ctx context.Context, id string) (domain.GeofenceViolation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.violations[id]
	if !ok {
		return domain.GeofenceViolation{}, domain.ErrViolationNotFound
	}
	return v, nil
}

// ListViolations returns matching violations newest first
func (r *MockRepository) ListViolations(ctx context.Context, filter domain.ViolationFilter) ([]domain.GeofenceViolation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.GeofenceViolation
	for _, v := range r.violations {
		if filter.VehicleID != "" && v.VehicleID != filter.VehicleID {
			continue
		}
		if filter.ZoneID != "" && v.ZoneID != filter.ZoneID {
			continue
		}
		if filter.UnacknowledgedOnly && v.Acknowledged {
			continue
		}
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultViolationLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockRepository) AcknowledgeViolation(ctx context.Context, v domain.GeofenceViolation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.violations[v.ID]
	if !ok {
		return domain.ErrViolationNotFound
	}
	if stored.Acknowledged {
		return domain.ErrAlreadyAcknowledged
	}
	stored.Acknowledged = true
	stored.AcknowledgedBy = v.AcknowledgedBy
	stored.AcknowledgedAt = v.AcknowledgedAt
	r.violations[v.ID] = stored
	return nil
}

func (r *MockRepository) GetProfile(ctx context.Context, driverID string) (domain.DriverBehaviorProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[driverID]
	if !ok {
		return domain.DriverBehaviorProfile{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *MockRepository) SaveProfile(ctx context.Context, p domain.DriverBehaviorProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.DriverID] = p
	return nil
}

func (r *MockRepository) SaveComplianceCheck(ctx context.Context, c domain.ComplianceCheck) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, c)
	return nil
}

// ComplianceChecks returns a copy of the recorded audit trail
func (r *MockRepository) ComplianceChecks() []domain.ComplianceCheck {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.ComplianceCheck(nil), r.checks...)
}

// Health always succeeds in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
