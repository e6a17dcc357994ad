package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/pkg/log"
)

// DefaultDriverProfile is assigned to drivers without history
func DefaultDriverProfile(driverID string) domain.DriverBehaviorProfile {
	return domain.DriverBehaviorProfile{
		DriverID:           driverID,
		AverageSpeed:       55,
		SpeedVariance:      5,
		RestFrequency:      240,
		RestDuration:       30,
		PunctualityScore:   85,
		RouteAdherence:     90,
		HistoricalAccuracy: 85,
	}
}

// DriverProfileService manages driver behavior profiles
type DriverProfileService struct {
	repo   domain.ProfileRepository
	logger log.Logger
	now    func() time.Time
}

// NewDriverProfileService creates a new driver profile service
func NewDriverProfileService(repo domain.ProfileRepository, logger log.Logger) *DriverProfileService {
	return &DriverProfileService{
		repo:   repo,
		logger: logger.WithName("profiles"),
		now:    time.Now,
	}
}

// DriverProfile returns the stored profile, creating the default one on first use
func (s *DriverProfileService) DriverProfile(ctx context.Context, driverID string) (domain.DriverBehaviorProfile, error) {
	if driverID == "" {
		return domain.DriverBehaviorProfile{}, fmt.Errorf("%w: driver id is required", domain.ErrInvalidProfile)
	}

	p, err := s.repo.GetProfile(ctx, driverID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.DriverBehaviorProfile{}, fmt.Errorf("profiles: failed to load %s: %w", driverID, err)
	}

	p = DefaultDriverProfile(driverID)
	p.UpdatedAt = s.now()
	if err := s.repo.SaveProfile(ctx, p); err != nil {
		return domain.DriverBehaviorProfile{}, fmt.Errorf("profiles: failed to create %s: %w", driverID, err)
	}

	s.logger.Info("default profile created", "driver_id", driverID)
	return p, nil
}

// UpdateDriverProfile merges patch into the driver's profile
func (s *DriverProfileService) UpdateDriverProfile(ctx context.Context, driverID string, patch domain.DriverProfilePatch) (domain.DriverBehaviorProfile, error) {
	p, err := s.DriverProfile(ctx, driverID)
	if err != nil {
		return domain.DriverBehaviorProfile{}, err
	}

	apply := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&p.AverageSpeed, patch.AverageSpeed)
	apply(&p.SpeedVariance, patch.SpeedVariance)
	apply(&p.RestFrequency, patch.RestFrequency)
	apply(&p.RestDuration, patch.RestDuration)
	apply(&p.PunctualityScore, patch.PunctualityScore)
	apply(&p.RouteAdherence, patch.RouteAdherence)
	apply(&p.HistoricalAccuracy, patch.HistoricalAccuracy)

	if err := ValidateProfile(p); err != nil {
		return domain.DriverBehaviorProfile{}, err
	}

	p.UpdatedAt = s.now()
	if err := s.repo.SaveProfile(ctx, p); err != nil {
		return domain.DriverBehaviorProfile{}, fmt.Errorf("profiles: failed to save %s: %w", driverID, err)
	}
	return p, nil
}

// ValidateProfile checks value ranges
func ValidateProfile(p domain.DriverBehaviorProfile) error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"averageSpeed", p.AverageSpeed, 1, 120},
		{"speedVariance", p.SpeedVariance, 0, 100},
		{"restFrequency", p.RestFrequency, 1, 24 * 60},
		{"restDuration", p.RestDuration, 0, 24 * 60},
		{"punctualityScore", p.PunctualityScore, 0, 100},
		{"routeAdherence", p.RouteAdherence, 0, 100},
		{"historicalAccuracy", p.HistoricalAccuracy, 0, 100},
	}

	for _, c := range checks {
		if math.IsNaN(c.value) || c.value < c.min || c.value > c.max {
			return fmt.Errorf("%w: %s must be between %g and %g", domain.ErrInvalidProfile, c.name, c.min, c.max)
		}
	}
	return nil
}
