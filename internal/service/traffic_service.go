package service

import (
	"context"
	"math"
	"time"

	"github.com/fleetcore/backend/internal/domain"
)

// freeFlowSpeedMph is the uncongested truck speed assumed by the model
const freeFlowSpeedMph = 65.0

// TrafficProvider reports traffic conditions between two points
type TrafficProvider interface {
	CurrentTraffic(ctx context.Context, from, to domain.GeoPoint) (domain.Traffic, error)
}

// TrafficService estimates congestion from time-of-day patterns.
// Without an API key the result is flagged as mock data.
type TrafficService struct {
	apiKey string
	now    func() time.Time
}

// NewTrafficService creates a new traffic service
func NewTrafficService(apiKey string) *TrafficService {
	return &TrafficService{apiKey: apiKey, now: time.Now}
}

// CurrentTraffic returns the congestion picture for the route's departure time
func (s *TrafficService) CurrentTraffic(ctx context.Context, from, to domain.GeoPoint) (domain.Traffic, error) {
	if err := ctx.Err(); err != nil {
		return domain.Traffic{}, err
	}

	now := s.now()
	congestionIndex := s.calculateCongestionIndex(now.Hour(), now.Weekday())
	averageSpeed := freeFlowSpeedMph * (1 - congestionIndex/100)

	return domain.Traffic{
		Severity:        severityForIndex(congestionIndex),
		CongestionIndex: congestionIndex,
		CongestionLevel: s.getCongestionLevel(congestionIndex),
		AverageSpeed:    math.Round(averageSpeed*10) / 10,
		FreeFlowSpeed:   freeFlowSpeedMph,
		IncidentCount:   int(congestionIndex / 20),
		Timestamp:       now,
		IsMock:          s.apiKey == "",
	}, nil
}

// calculateCongestionIndex returns 0-100 based on time patterns
func (s *TrafficService) calculateCongestionIndex(hour int, weekday time.Weekday) float64 {
	// Weekend: less traffic
	if weekday == time.Saturday || weekday == time.Sunday {
		return 30
	}

	switch {
	case hour >= 7 && hour <= 9: // Morning rush
		return 80
	case hour >= 16 && hour <= 18: // Evening rush
		return 85
	case hour >= 12 && hour <= 13: // Lunch
		return 55
	case hour >= 22 || hour <= 5: // Night
		return 15
	default:
		return 40
	}
}

// getCongestionLevel returns human-readable level
func (s *TrafficService) getCongestionLevel(index float64) string {
	switch {
	case index >= 80:
		return "Severe"
	case index >= 60:
		return "Heavy"
	case index >= 40:
		return "Moderate"
	case index >= 20:
		return "Light"
	default:
		return "Free Flow"
	}
}

// severityForIndex folds the congestion index into the four ETA classes;
// free flow counts as light.
func severityForIndex(index float64) domain.TrafficSeverity {
	switch {
	case index >= 80:
		return domain.TrafficSevere
	case index >= 60:
		return domain.TrafficHeavy
	case index >= 40:
		return domain.TrafficModerate
	default:
		return domain.TrafficLight
	}
}
