package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/internal/metrics"
	"github.com/fleetcore/backend/pkg/log"
	"github.com/fleetcore/backend/pkg/utils"
)

const (
	milesPerSegment = 20.0
	minSegments     = 3
	maxSegments     = 10

	minConfidence = 50.0
	maxConfidence = 100.0
)

var trafficDelayFactor = map[domain.TrafficSeverity]float64{
	domain.TrafficLight:    1.1,
	domain.TrafficModerate: 1.3,
	domain.TrafficHeavy:    1.6,
	domain.TrafficSevere:   2.0,
}

var weatherDelayFactor = map[domain.WeatherCondition]float64{
	domain.WeatherClear: 1.0,
	domain.WeatherRain:  1.2,
	domain.WeatherFog:   1.3,
	domain.WeatherSnow:  1.4,
	domain.WeatherStorm: 1.6,
}

var trafficConfidencePenalty = map[domain.TrafficSeverity]float64{
	domain.TrafficLight:    0,
	domain.TrafficModerate: 5,
	domain.TrafficHeavy:    10,
	domain.TrafficSevere:   20,
}

var weatherConfidencePenalty = map[domain.WeatherCondition]float64{
	domain.WeatherClear: 0,
	domain.WeatherRain:  5,
	domain.WeatherFog:   8,
	domain.WeatherSnow:  10,
	domain.WeatherStorm: 15,
}

var alternativeRoutes = []struct {
	name         string
	distanceMult float64
	timeMult     float64
}{
	{"Highway route", 1.15, 0.92},
	{"Direct route", 0.95, 1.10},
}

// ETAService estimates arrival times from distance, conditions and driver habits
type ETAService struct {
	traffic  TrafficProvider
	weather  WeatherProvider
	profiles *DriverProfileService
	logger   log.Logger
	now      func() time.Time
}

// NewETAService creates a new ETA service
func NewETAService(traffic TrafficProvider, weather WeatherProvider, profiles *DriverProfileService, logger log.Logger) *ETAService {
	return &ETAService{
		traffic:  traffic,
		weather:  weather,
		profiles: profiles,
		logger:   logger.WithName("eta"),
		now:      time.Now,
	}
}

// CalculateETA runs the estimation pipeline. Any failure is reported as
// ErrETAFailed; no partial estimate is returned.
func (s *ETAService) CalculateETA(ctx context.Context, req domain.ETARequest) (*domain.ETACalculation, error) {
	start := time.Now()
	calc, err := s.calculate(ctx, req)
	metrics.ETADuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ETACalculations.WithLabelValues("failed").Inc()
		s.logger.Error(err, "eta calculation failed", "vehicle_id", req.VehicleID, "driver_id", req.DriverID)
		return nil, domain.ErrETAFailed
	}

	metrics.ETACalculations.WithLabelValues("success").Inc()
	return calc, nil
}

func (s *ETAService) calculate(ctx context.Context, req domain.ETARequest) (*domain.ETACalculation, error) {
	from := domain.GeoPoint{Lat: req.CurrentLat, Lng: req.CurrentLng}
	to := domain.GeoPoint{Lat: req.DestLat, Lng: req.DestLng}
	if !utils.ValidLatLng(from.Lat, from.Lng) || !utils.ValidLatLng(to.Lat, to.Lng) {
		return nil, domain.ErrInvalidCoordinates
	}

	profile, err := s.profiles.DriverProfile(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}

	traffic, weather, err := fetchConditions(ctx, s.traffic, s.weather, from, to)
	if err != nil {
		return nil, err
	}

	trafficFactor, ok := trafficDelayFactor[traffic.Severity]
	if !ok {
		return nil, fmt.Errorf("unknown traffic severity %q", traffic.Severity)
	}
	weatherFactor, ok := weatherDelayFactor[weather.Condition]
	if !ok {
		return nil, fmt.Errorf("unknown weather condition %q", weather.Condition)
	}

	distance := utils.HaversineMiles(from.Lat, from.Lng, to.Lat, to.Lng)
	segments := buildSegments(from, to, distance, profile.AverageSpeed)

	var base float64
	for _, seg := range segments {
		base += seg.EstimatedMinutes
	}

	trafficDelay := base * (trafficFactor - 1)
	weatherDelay := base * (weatherFactor - 1)
	driverAdjustment := 0.1*(100-utils.Clamp(profile.PunctualityScore, 0, 100)) +
		0.05*(100-utils.Clamp(profile.RouteAdherence, 0, 100))

	travel := base + trafficDelay + weatherDelay + driverAdjustment

	restStops := 0
	if profile.RestFrequency > 0 {
		restStops = int(math.Floor(travel / profile.RestFrequency))
	}
	restMinutes := float64(restStops) * profile.RestDuration
	total := travel + restMinutes

	confidence := utils.Clamp(
		profile.HistoricalAccuracy-trafficConfidencePenalty[traffic.Severity]-weatherConfidencePenalty[weather.Condition],
		minConfidence, maxConfidence,
	)

	now := s.now()
	calc := &domain.ETACalculation{
		VehicleID:        req.VehicleID,
		DriverID:         req.DriverID,
		DestinationName:  req.DestinationName,
		Destination:      to,
		DistanceMiles:    utils.RoundTo(distance, 2),
		Segments:         segments,
		BaseMinutes:      utils.RoundTo(base, 2),
		TrafficSeverity:  traffic.Severity,
		TrafficDelay:     utils.RoundTo(trafficDelay, 2),
		WeatherCondition: weather.Condition,
		WeatherDelay:     utils.RoundTo(weatherDelay, 2),
		DriverAdjustment: utils.RoundTo(driverAdjustment, 2),
		RestStops:        restStops,
		RestMinutes:      restMinutes,
		TotalMinutes:     utils.RoundTo(total, 2),
		EstimatedArrival: now.Add(minutesToDuration(total)),
		Confidence:       utils.RoundTo(confidence, 1),
		CalculatedAt:     now,
	}

	for _, alt := range alternativeRoutes {
		minutes := total * alt.timeMult
		calc.AlternativeRoutes = append(calc.AlternativeRoutes, domain.AlternativeRoute{
			Name:          alt.name,
			DistanceMiles: utils.RoundTo(distance*alt.distanceMult, 2),
			TotalMinutes:  utils.RoundTo(minutes, 2),
			EstimatedAt:   now.Add(minutesToDuration(minutes)),
		})
	}

	s.logger.Debug("eta calculated",
		"vehicle_id", req.VehicleID, "distance_miles", calc.DistanceMiles, "total_minutes", calc.TotalMinutes,
		"traffic", string(traffic.Severity), "weather", string(weather.Condition))
	return calc, nil
}

// buildSegments splits the straight route into synthetic legs. The first and
// last legs weigh half as much as the interior ones so a route starts and ends
// on slower roads.
func buildSegments(from, to domain.GeoPoint, distance, driverSpeed float64) []domain.RouteSegment {
	n := int(math.Ceil(distance / milesPerSegment))
	n = int(utils.Clamp(float64(n), minSegments, maxSegments))

	totalWeight := float64(n - 1)
	segments := make([]domain.RouteSegment, 0, n)

	var covered float64
	for i := 0; i < n; i++ {
		weight := 1.0
		if i == 0 || i == n-1 {
			weight = 0.5
		}
		share := weight / totalWeight
		startFrac, endFrac := covered, covered+share
		covered = endFrac

		segDistance := distance * share
		roadType, speedLimit := classifyRoad(segDistance)

		speed := speedLimit
		if driverSpeed > 0 && driverSpeed < speed {
			speed = driverSpeed
		}

		segments = append(segments, domain.RouteSegment{
			Start:            interpolate(from, to, startFrac),
			End:              interpolate(from, to, endFrac),
			DistanceMiles:    utils.RoundTo(segDistance, 2),
			RoadType:         roadType,
			SpeedLimit:       speedLimit,
			EstimatedMinutes: segDistance / speed * 60,
		})
	}
	return segments
}

func classifyRoad(miles float64) (domain.RoadType, float64) {
	switch {
	case miles > 15:
		return domain.RoadHighway, 70
	case miles > 5:
		return domain.RoadArterial, 45
	case miles > 1:
		return domain.RoadLocal, 35
	default:
		return domain.RoadResidential, 25
	}
}

func interpolate(from, to domain.GeoPoint, t float64) domain.GeoPoint {
	return domain.GeoPoint{
		Lat: utils.Lerp(from.Lat, to.Lat, t),
		Lng: utils.Lerp(from.Lng, to.Lng, t),
	}
}

func minutesToDuration(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
