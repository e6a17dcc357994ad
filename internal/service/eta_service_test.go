package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/internal/repository/postgres"
	"github.com/fleetcore/backend/pkg/log"
)

type mockTraffic struct {
	severity domain.TrafficSeverity
	err      error
}

func (m *mockTraffic) CurrentTraffic(context.Context, domain.GeoPoint, domain.GeoPoint) (domain.Traffic, error) {
	if m.err != nil {
		return domain.Traffic{}, m.err
	}
	return domain.Traffic{Severity: m.severity}, nil
}

type mockWeather struct {
	condition domain.WeatherCondition
	err       error
}

func (m *mockWeather) CurrentWeather(context.Context, domain.GeoPoint) (domain.Weather, error) {
	if m.err != nil {
		return domain.Weather{}, m.err
	}
	return domain.Weather{Condition: m.condition}, nil
}

var houston = domain.GeoPoint{Lat: 29.7604, Lng: -95.3698}

func newTestETAService(traffic TrafficProvider, weather WeatherProvider) (*ETAService, *DriverProfileService) {
	repo := postgres.NewMockRepository()
	profiles := NewDriverProfileService(repo, log.NewNopLogger())
	svc := NewETAService(traffic, weather, profiles, log.NewNopLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, profiles
}

func tripRequest(from, to domain.GeoPoint) domain.ETARequest {
	return domain.ETARequest{
		CurrentLat: from.Lat, CurrentLng: from.Lng,
		DestLat: to.Lat, DestLng: to.Lng,
		DriverID: "driver-1", VehicleID: "truck-42", DestinationName: "Houston DC",
	}
}

func TestCalculateETA_LongTrip(t *testing.T) {
	svc, _ := newTestETAService(&mockTraffic{severity: domain.TrafficLight}, &mockWeather{condition: domain.WeatherClear})

	calc, err := svc.CalculateETA(context.Background(), tripRequest(dallas, houston))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calc.DistanceMiles < 200 || calc.DistanceMiles > 250 {
		t.Errorf("expected roughly 225 miles, got %f", calc.DistanceMiles)
	}
	if len(calc.Segments) != maxSegments {
		t.Errorf("expected %d segments, got %d", maxSegments, len(calc.Segments))
	}
	if calc.DriverAdjustment != 2 {
		t.Errorf("expected default driver adjustment of 2 minutes, got %f", calc.DriverAdjustment)
	}
	if calc.WeatherDelay != 0 {
		t.Errorf("expected no weather delay in clear skies, got %f", calc.WeatherDelay)
	}
	if calc.RestStops < 1 {
		t.Errorf("expected at least one rest stop, got %d", calc.RestStops)
	}
	if calc.RestMinutes != float64(calc.RestStops)*30 {
		t.Errorf("expected %d rest minutes, got %f", calc.RestStops*30, calc.RestMinutes)
	}
	if calc.Confidence != 85 {
		t.Errorf("expected confidence 85, got %f", calc.Confidence)
	}

	wantArrival := fixedNow.Add(minutesToDuration(calc.TotalMinutes))
	if diff := calc.EstimatedArrival.Sub(wantArrival); diff > time.Second || diff < -time.Second {
		t.Errorf("arrival %v does not match total minutes", calc.EstimatedArrival)
	}

	if len(calc.AlternativeRoutes) != 2 {
		t.Fatalf("expected 2 alternative routes, got %d", len(calc.AlternativeRoutes))
	}
	if calc.AlternativeRoutes[0].TotalMinutes >= calc.TotalMinutes {
		t.Errorf("highway route should be faster than the primary estimate")
	}
}

func TestCalculateETA_TrafficIsMonotonic(t *testing.T) {
	severities := []domain.TrafficSeverity{
		domain.TrafficLight, domain.TrafficModerate, domain.TrafficHeavy, domain.TrafficSevere,
	}

	prev := -1.0
	for _, sev := range severities {
		svc, _ := newTestETAService(&mockTraffic{severity: sev}, &mockWeather{condition: domain.WeatherClear})
		calc, err := svc.CalculateETA(context.Background(), tripRequest(dallas, houston))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calc.TotalMinutes < prev {
			t.Errorf("%s traffic produced %f minutes, less than %f", sev, calc.TotalMinutes, prev)
		}
		prev = calc.TotalMinutes
	}
}

func TestCalculateETA_WeatherIsMonotonic(t *testing.T) {
	conditions := []domain.WeatherCondition{
		domain.WeatherClear, domain.WeatherRain, domain.WeatherFog, domain.WeatherSnow, domain.WeatherStorm,
	}

	prev := -1.0
	for _, cond := range conditions {
		svc, _ := newTestETAService(&mockTraffic{severity: domain.TrafficLight}, &mockWeather{condition: cond})
		calc, err := svc.CalculateETA(context.Background(), tripRequest(dallas, houston))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calc.WeatherDelay < prev {
			t.Errorf("%s weather produced delay %f, less than %f", cond, calc.WeatherDelay, prev)
		}
		prev = calc.WeatherDelay
	}
}

func TestCalculateETA_ConfidenceClamped(t *testing.T) {
	tests := []struct {
		name     string
		accuracy float64
		traffic  domain.TrafficSeverity
		weather  domain.WeatherCondition
		want     float64
	}{
		{"floor", 55, domain.TrafficSevere, domain.WeatherStorm, 50},
		{"ceiling", 100, domain.TrafficLight, domain.WeatherClear, 100},
		{"penalised", 90, domain.TrafficHeavy, domain.WeatherRain, 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, profiles := newTestETAService(&mockTraffic{severity: tt.traffic}, &mockWeather{condition: tt.weather})
			accuracy := tt.accuracy
			if _, err := profiles.UpdateDriverProfile(context.Background(), "driver-1",
				domain.DriverProfilePatch{HistoricalAccuracy: &accuracy}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			calc, err := svc.CalculateETA(context.Background(), tripRequest(dallas, houston))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if calc.Confidence != tt.want {
				t.Errorf("expected confidence %f, got %f", tt.want, calc.Confidence)
			}
		})
	}
}

func TestCalculateETA_ZeroDistance(t *testing.T) {
	svc, _ := newTestETAService(&mockTraffic{severity: domain.TrafficSevere}, &mockWeather{condition: domain.WeatherSnow})

	calc, err := svc.CalculateETA(context.Background(), tripRequest(dallas, dallas))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calc.DistanceMiles != 0 || calc.BaseMinutes != 0 {
		t.Errorf("expected zero distance and base time, got %f/%f", calc.DistanceMiles, calc.BaseMinutes)
	}
	if calc.TotalMinutes != calc.DriverAdjustment {
		t.Errorf("expected total to equal the driver adjustment, got %f vs %f", calc.TotalMinutes, calc.DriverAdjustment)
	}
	if calc.RestStops != 0 {
		t.Errorf("expected no rest stops, got %d", calc.RestStops)
	}
}

func TestCalculateETA_Failures(t *testing.T) {
	tests := []struct {
		name    string
		traffic TrafficProvider
		weather WeatherProvider
		req     domain.ETARequest
	}{
		{"traffic provider error", &mockTraffic{err: errors.New("timeout")}, &mockWeather{condition: domain.WeatherClear}, tripRequest(dallas, houston)},
		{"weather provider error", &mockTraffic{severity: domain.TrafficLight}, &mockWeather{err: errors.New("timeout")}, tripRequest(dallas, houston)},
		{"unknown severity", &mockTraffic{severity: "gridlock"}, &mockWeather{condition: domain.WeatherClear}, tripRequest(dallas, houston)},
		{"unknown condition", &mockTraffic{severity: domain.TrafficLight}, &mockWeather{condition: "hail"}, tripRequest(dallas, houston)},
		{"invalid coordinates", &mockTraffic{severity: domain.TrafficLight}, &mockWeather{condition: domain.WeatherClear}, tripRequest(domain.GeoPoint{Lat: 120}, houston)},
		{"missing driver", &mockTraffic{severity: domain.TrafficLight}, &mockWeather{condition: domain.WeatherClear}, domain.ETARequest{DestLat: 1, DestLng: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestETAService(tt.traffic, tt.weather)
			calc, err := svc.CalculateETA(context.Background(), tt.req)
			if err != domain.ErrETAFailed {
				t.Errorf("expected ErrETAFailed, got %v", err)
			}
			if calc != nil {
				t.Errorf("expected no partial result, got %+v", calc)
			}
		})
	}
}

func TestBuildSegments(t *testing.T) {
	tests := []struct {
		distance float64
		want     int
	}{
		{0, 3},
		{45, 3},
		{100, 5},
		{180, 9},
		{500, 10},
	}

	for _, tt := range tests {
		segments := buildSegments(dallas, houston, tt.distance, 55)
		if len(segments) != tt.want {
			t.Errorf("distance %v: expected %d segments, got %d", tt.distance, tt.want, len(segments))
			continue
		}

		var sum float64
		for _, s := range segments {
			sum += s.DistanceMiles
		}
		if math.Abs(sum-tt.distance) > 0.05 {
			t.Errorf("distance %v: segments add up to %f", tt.distance, sum)
		}
		if segments[0].Start != dallas {
			t.Errorf("distance %v: first segment should start at the origin", tt.distance)
		}
		last := segments[len(segments)-1].End
		if math.Abs(last.Lat-houston.Lat) > 1e-9 || math.Abs(last.Lng-houston.Lng) > 1e-9 {
			t.Errorf("distance %v: last segment should end at the destination, got %+v", tt.distance, last)
		}
	}
}

func TestBuildSegments_SpeedCappedByDriver(t *testing.T) {
	segments := buildSegments(dallas, houston, 200, 40)
	for _, s := range segments {
		speed := s.DistanceMiles / (s.EstimatedMinutes / 60)
		if speed > 40.01 {
			t.Errorf("segment on %s road ran at %f mph, faster than the driver", s.RoadType, speed)
		}
	}
}

func TestClassifyRoad(t *testing.T) {
	tests := []struct {
		miles     float64
		wantType  domain.RoadType
		wantLimit float64
	}{
		{20, domain.RoadHighway, 70},
		{10, domain.RoadArterial, 45},
		{3, domain.RoadLocal, 35},
		{0.5, domain.RoadResidential, 25},
	}
	for _, tt := range tests {
		gotType, gotLimit := classifyRoad(tt.miles)
		if gotType != tt.wantType || gotLimit != tt.wantLimit {
			t.Errorf("classifyRoad(%v) = %s/%v, want %s/%v", tt.miles, gotType, gotLimit, tt.wantType, tt.wantLimit)
		}
	}
}
