package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/internal/metrics"
	"github.com/fleetcore/backend/pkg/log"
	"github.com/fleetcore/backend/pkg/utils"
)

const defaultAlertHistory = 500

// AlertSubscriber receives alerts synchronously, in registration order.
// It must not call CheckPosition.
type AlertSubscriber func(alert domain.GeofenceAlert)

type subscription struct {
	id int
	fn AlertSubscriber
}

// GeofenceOption customises a GeofenceService
type GeofenceOption func(*GeofenceService)

// WithClock overrides the time source used for timestamps and time windows
func WithClock(now func() time.Time) GeofenceOption {
	return func(s *GeofenceService) { s.now = now }
}

// WithAlertHistory bounds how many recent alerts are kept in memory
func WithAlertHistory(size int) GeofenceOption {
	return func(s *GeofenceService) {
		if size > 0 {
			s.historySize = size
		}
	}
}

// GeofenceService manages zones and turns position updates into violations
type GeofenceService struct {
	zoneRepo    domain.ZoneRepository
	violations  domain.ViolationRepository
	containment domain.ContainmentStore
	logger      log.Logger
	now         func() time.Time

	zonesMu sync.RWMutex
	zones   map[string]domain.GeofenceZone

	// checkMu serialises position checks against zone deactivation and delete
	checkMu sync.Mutex

	subsMu  sync.RWMutex
	subs    []subscription
	nextSub int

	alertsMu    sync.Mutex
	alerts      []domain.GeofenceAlert
	historySize int
}

// NewGeofenceService creates a geofence service. Call LoadZones to hydrate
// the zone cache from the repository.
func NewGeofenceService(
	zoneRepo domain.ZoneRepository,
	violations domain.ViolationRepository,
	containment domain.ContainmentStore,
	logger log.Logger,
	opts ...GeofenceOption,
) *GeofenceService {
	s := &GeofenceService{
		zoneRepo:    zoneRepo,
		violations:  violations,
		containment: containment,
		logger:      logger.WithName("geofence"),
		now:         time.Now,
		zones:       make(map[string]domain.GeofenceZone),
		historySize: defaultAlertHistory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadZones replaces the zone cache with the repository contents
func (s *GeofenceService) LoadZones(ctx context.Context) error {
	zones, err := s.zoneRepo.ListZones(ctx)
	if err != nil {
		return fmt.Errorf("geofence: failed to load zones: %w", err)
	}

	cache := make(map[string]domain.GeofenceZone, len(zones))
	for _, z := range zones {
		cache[z.ID] = z
	}

	s.zonesMu.Lock()
	s.zones = cache
	s.zonesMu.Unlock()

	s.logger.Info("zones loaded", "count", len(cache))
	return nil
}

// CreateZone validates and stores a new zone
func (s *GeofenceService) CreateZone(ctx context.Context, zone domain.GeofenceZone) (domain.GeofenceZone, error) {
	if err := ValidateZone(&zone); err != nil {
		return domain.GeofenceZone{}, err
	}
	if zone.ID == "" {
		zone.ID = uuid.NewString()
	}

	s.zonesMu.RLock()
	_, exists := s.zones[zone.ID]
	s.zonesMu.RUnlock()
	if exists {
		return domain.GeofenceZone{}, fmt.Errorf("%w: zone %s already exists", domain.ErrInvalidZone, zone.ID)
	}

	now := s.now()
	zone.CreatedAt = now
	zone.UpdatedAt = now

	if err := s.zoneRepo.SaveZone(ctx, zone); err != nil {
		return domain.GeofenceZone{}, fmt.Errorf("geofence: failed to save zone: %w", err)
	}

	s.zonesMu.Lock()
	s.zones[zone.ID] = zone
	s.zonesMu.Unlock()

	s.logger.Info("zone created", "zone_id", zone.ID, "name", zone.Name, "type", string(zone.Type))
	return zone, nil
}

// UpdateZone replaces an existing zone. Deactivating a zone clears the
// containment state held for it.
func (s *GeofenceService) UpdateZone(ctx context.Context, id string, zone domain.GeofenceZone) (domain.GeofenceZone, error) {
	existing, err := s.GetZone(id)
	if err != nil {
		return domain.GeofenceZone{}, err
	}

	zone.ID = id
	if err := ValidateZone(&zone); err != nil {
		return domain.GeofenceZone{}, err
	}
	zone.CreatedAt = existing.CreatedAt
	zone.UpdatedAt = s.now()

	if err := s.zoneRepo.SaveZone(ctx, zone); err != nil {
		return domain.GeofenceZone{}, fmt.Errorf("geofence: failed to save zone: %w", err)
	}

	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	if !zone.IsActive {
		if err := s.containment.ForgetZone(ctx, id); err != nil {
			return domain.GeofenceZone{}, fmt.Errorf("geofence: failed to reset containment: %w", err)
		}
	}

	s.zonesMu.Lock()
	s.zones[id] = zone
	s.zonesMu.Unlock()

	s.logger.Info("zone updated", "zone_id", id, "active", zone.IsActive)
	return zone, nil
}

// DeleteZone removes a zone and the containment state held for it
func (s *GeofenceService) DeleteZone(ctx context.Context, id string) error {
	if _, err := s.GetZone(id); err != nil {
		return err
	}

	if err := s.zoneRepo.DeleteZone(ctx, id); err != nil {
		return fmt.Errorf("geofence: failed to delete zone: %w", err)
	}

	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	if err := s.containment.ForgetZone(ctx, id); err != nil {
		return fmt.Errorf("geofence: failed to reset containment: %w", err)
	}

	s.zonesMu.Lock()
	delete(s.zones, id)
	s.zonesMu.Unlock()

	s.logger.Info("zone deleted", "zone_id", id)
	return nil
}

// GetZone returns a cached zone or ErrZoneNotFound
func (s *GeofenceService) GetZone(id string) (domain.GeofenceZone, error) {
	s.zonesMu.RLock()
	defer s.zonesMu.RUnlock()

	z, ok := s.zones[id]
	if !ok {
		return domain.GeofenceZone{}, domain.ErrZoneNotFound
	}
	return z, nil
}

// ListZones returns zones ordered by name
func (s *GeofenceService) ListZones(activeOnly bool) []domain.GeofenceZone {
	s.zonesMu.RLock()
	zones := make([]domain.GeofenceZone, 0, len(s.zones))
	for _, z := range s.zones {
		if activeOnly && !z.IsActive {
			continue
		}
		zones = append(zones, z)
	}
	s.zonesMu.RUnlock()

	sort.Slice(zones, func(i, j int) bool {
		if zones[i].Name != zones[j].Name {
			return zones[i].Name < zones[j].Name
		}
		return zones[i].ID < zones[j].ID
	})
	return zones
}

// CheckPosition evaluates a position report against every active zone and
// returns the violations it raised. Each crossing is recorded once and spawns
// one alert; staying on the same side of a boundary raises nothing.
func (s *GeofenceService) CheckPosition(ctx context.Context, pos domain.PositionUpdate) ([]domain.GeofenceViolation, error) {
	if pos.VehicleID == "" {
		return nil, fmt.Errorf("%w: vehicle id is required", domain.ErrInvalidPosition)
	}
	if !utils.ValidLatLng(pos.Lat, pos.Lng) {
		return nil, fmt.Errorf("%w: lat %f lng %f", domain.ErrInvalidCoordinates, pos.Lat, pos.Lng)
	}

	at := pos.Timestamp
	if at.IsZero() {
		at = s.now()
	}

	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	// the snapshot is taken under checkMu so a concurrent deactivation or
	// delete cannot be undone by this check
	zones := s.ListZones(true)

	var raised []domain.GeofenceViolation
	for _, zone := range zones {
		inside := Contains(zone, pos.Lat, pos.Lng)

		// containment follows the vehicle even when the event is gated
		obs, err := s.containment.Observe(ctx, pos.VehicleID, zone.ID, inside, at)
		if err != nil {
			return raised, fmt.Errorf("geofence: failed to store containment: %w", err)
		}
		if !obs.Applied {
			s.logger.Debug("stale position ignored",
				"vehicle_id", pos.VehicleID, "zone_id", zone.ID, "at", at)
			continue
		}

		machine := newContainmentMachine(obs.WasInside)
		crossing, err := machine.observe(ctx, inside)
		if err != nil {
			return raised, err
		}
		if crossing == "" {
			continue
		}

		if !zone.AlertType.Fires(crossing) {
			continue
		}
		if reason := gateReason(zone, pos.VehicleID, at); reason != "" {
			s.logger.Debug("crossing suppressed",
				"vehicle_id", pos.VehicleID, "zone_id", zone.ID, "type", string(crossing), "reason", reason)
			continue
		}

		violation := domain.GeofenceViolation{
			ID:            uuid.NewString(),
			VehicleID:     pos.VehicleID,
			DriverID:      pos.DriverID,
			ZoneID:        zone.ID,
			ZoneName:      zone.Name,
			ViolationType: crossing,
			Timestamp:     at,
			Location:      domain.GeoPoint{Lat: pos.Lat, Lng: pos.Lng},
			Severity:      severityFor(zone.Metadata.Priority),
		}
		if err := s.violations.SaveViolation(ctx, violation); err != nil {
			return raised, fmt.Errorf("geofence: failed to save violation: %w", err)
		}
		metrics.GeofenceViolations.WithLabelValues(string(crossing)).Inc()

		s.logger.Info("geofence violation",
			"violation_id", violation.ID, "vehicle_id", pos.VehicleID, "zone_id", zone.ID,
			"type", string(crossing), "severity", string(violation.Severity))

		s.raiseAlert(violation)
		raised = append(raised, violation)
	}

	return raised, nil
}

// VehicleZones lists the active zones the vehicle is currently inside
func (s *GeofenceService) VehicleZones(ctx context.Context, vehicleID string) ([]domain.GeofenceZone, error) {
	ids, err := s.containment.ZonesFor(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("geofence: failed to read containment: %w", err)
	}

	zones := make([]domain.GeofenceZone, 0, len(ids))
	for _, id := range ids {
		if z, err := s.GetZone(id); err == nil && z.IsActive {
			zones = append(zones, z)
		}
	}
	return zones, nil
}

// GetViolation returns a violation by id
func (s *GeofenceService) GetViolation(ctx context.Context, id string) (domain.GeofenceViolation, error) {
	return s.violations.GetViolation(ctx, id)
}

// ListViolations returns violations matching filter, newest first
func (s *GeofenceService) ListViolations(ctx context.Context, filter domain.ViolationFilter) ([]domain.GeofenceViolation, error) {
	return s.violations.ListViolations(ctx, filter)
}

// AcknowledgeViolation marks a violation handled by an operator. A violation
// can be acknowledged once; later attempts return ErrAlreadyAcknowledged.
func (s *GeofenceService) AcknowledgeViolation(ctx context.Context, id, by string) (domain.GeofenceViolation, error) {
	v, err := s.violations.GetViolation(ctx, id)
	if err != nil {
		return domain.GeofenceViolation{}, err
	}
	if v.Acknowledged {
		return domain.GeofenceViolation{}, domain.ErrAlreadyAcknowledged
	}

	now := s.now()
	v.Acknowledged = true
	v.AcknowledgedBy = by
	v.AcknowledgedAt = &now

	if err := s.violations.AcknowledgeViolation(ctx, v); err != nil {
		return domain.GeofenceViolation{}, err
	}

	s.logger.Info("violation acknowledged", "violation_id", id, "by", by)
	return v, nil
}

// Subscribe registers fn for every future alert and returns a function that
// removes it again.
func (s *GeofenceService) Subscribe(fn AlertSubscriber) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// RecentAlerts returns up to limit alerts, newest first. limit <= 0 returns all kept.
func (s *GeofenceService) RecentAlerts(limit int) []domain.GeofenceAlert {
	s.alertsMu.Lock()
	defer s.alertsMu.Unlock()

	n := len(s.alerts)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]domain.GeofenceAlert, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.alerts[i])
	}
	return out
}

func (s *GeofenceService) raiseAlert(v domain.GeofenceViolation) {
	verb := "entered"
	if v.ViolationType == domain.ViolationExit {
		verb = "exited"
	}

	alert := domain.GeofenceAlert{
		ID:          uuid.NewString(),
		ViolationID: v.ID,
		VehicleID:   v.VehicleID,
		ZoneID:      v.ZoneID,
		Type:        v.ViolationType,
		Severity:    v.Severity,
		Message:     fmt.Sprintf("Vehicle %s %s zone %q", v.VehicleID, verb, v.ZoneName),
		Recipients:  []string{domain.RecipientDispatcher, domain.RecipientFleetManager},
		Timestamp:   v.Timestamp,
	}

	s.alertsMu.Lock()
	s.alerts = append(s.alerts, alert)
	if over := len(s.alerts) - s.historySize; over > 0 {
		s.alerts = append(s.alerts[:0:0], s.alerts[over:]...)
	}
	s.alertsMu.Unlock()

	metrics.GeofenceAlerts.Inc()

	s.subsMu.RLock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.RUnlock()

	for _, sub := range subs {
		s.deliver(sub, alert)
	}
}

func (s *GeofenceService) deliver(sub subscription, alert domain.GeofenceAlert) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(fmt.Errorf("%v", r), "alert subscriber panicked", "alert_id", alert.ID)
		}
	}()
	sub.fn(alert)
}
