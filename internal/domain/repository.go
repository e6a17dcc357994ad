package domain

import (
	"context"
	"time"
)

// ZoneRepository persists geofence zones
type ZoneRepository interface {
	SaveZone(ctx context.Context, zone GeofenceZone) error
	DeleteZone(ctx context.Context, id string) error
	// ListZones returns every stored zone, active or not
	ListZones(ctx context.Context) ([]GeofenceZone, error)
}

// ViolationRepository persists geofence violations. Violations are never deleted.
type ViolationRepository interface {
	SaveViolation(ctx context.Context, v GeofenceViolation) error
	// GetViolation returns ErrViolationNotFound when id is unknown
	GetViolation(ctx context.Context, id string) (GeofenceViolation, error)
	ListViolations(ctx context.Context, filter ViolationFilter) ([]GeofenceViolation, error)
	// AcknowledgeViolation flips the acknowledged flag only if it is still unset.
	// It returns ErrAlreadyAcknowledged otherwise.
	AcknowledgeViolation(ctx context.Context, v GeofenceViolation) error
}

// ProfileRepository persists driver behavior profiles
type ProfileRepository interface {
	// GetProfile returns ErrNotFound when the driver has no profile yet
	GetProfile(ctx context.Context, driverID string) (DriverBehaviorProfile, error)
	SaveProfile(ctx context.Context, p DriverBehaviorProfile) error
}

// ComplianceRepository keeps an audit trail of weight evaluations
type ComplianceRepository interface {
	SaveComplianceCheck(ctx context.Context, check ComplianceCheck) error
}

// ContainmentObservation is the outcome of recording one observation of a
// vehicle against a zone
type ContainmentObservation struct {
	// WasInside is the stored state before the observation
	WasInside bool
	// Applied is false when a newer observation had already been recorded
	Applied bool
}

// ContainmentStore remembers whether a vehicle was last seen inside a zone
type ContainmentStore interface {
	// Inside returns false for pairs never recorded
	Inside(ctx context.Context, vehicleID, zoneID string) (bool, error)
	// Observe atomically swaps in the containment seen at time at and returns
	// the state it replaced. Observations older than the last applied one for
	// the pair leave the store untouched.
	Observe(ctx context.Context, vehicleID, zoneID string, inside bool, at time.Time) (ContainmentObservation, error)
	// ZonesFor lists zone ids the vehicle is currently inside
	ZonesFor(ctx context.Context, vehicleID string) ([]string, error)
	// ForgetZone drops all state held for the zone
	ForgetZone(ctx context.Context, zoneID string) error
}

// DataRepository is the full persistence surface of the backend
type DataRepository interface {
	ZoneRepository
	ViolationRepository
	ProfileRepository
	ComplianceRepository

	// Health checks database connectivity
	Health(ctx context.Context) error
}
