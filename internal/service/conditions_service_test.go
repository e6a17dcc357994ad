package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fleetcore/backend/internal/domain"
)

func TestConditionsCurrent(t *testing.T) {
	svc := NewConditionsService(&mockTraffic{severity: domain.TrafficHeavy}, &mockWeather{condition: domain.WeatherFog})

	c, err := svc.Current(context.Background(), dallas)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Traffic.Severity != domain.TrafficHeavy || c.Weather.Condition != domain.WeatherFog {
		t.Errorf("unexpected conditions %+v", c)
	}
	if c.Location != dallas {
		t.Errorf("expected location to echo the query point, got %+v", c.Location)
	}
}

func TestConditionsCurrent_Errors(t *testing.T) {
	svc := NewConditionsService(&mockTraffic{severity: domain.TrafficLight}, &mockWeather{err: errors.New("down")})

	if _, err := svc.Current(context.Background(), domain.GeoPoint{Lat: -91}); !errors.Is(err, domain.ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
	if _, err := svc.Current(context.Background(), dallas); err == nil {
		t.Error("expected provider error to surface")
	}
}
