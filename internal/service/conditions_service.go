package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/pkg/utils"
)

// ConditionsService reports the traffic and weather the ETA engine would see
type ConditionsService struct {
	traffic TrafficProvider
	weather WeatherProvider
	now     func() time.Time
}

// NewConditionsService creates a new conditions service
func NewConditionsService(traffic TrafficProvider, weather WeatherProvider) *ConditionsService {
	return &ConditionsService{
		traffic: traffic,
		weather: weather,
		now:     time.Now,
	}
}

// Current returns the conditions at a single point
func (s *ConditionsService) Current(ctx context.Context, at domain.GeoPoint) (domain.Conditions, error) {
	if !utils.ValidLatLng(at.Lat, at.Lng) {
		return domain.Conditions{}, domain.ErrInvalidCoordinates
	}

	traffic, weather, err := fetchConditions(ctx, s.traffic, s.weather, at, at)
	if err != nil {
		return domain.Conditions{}, err
	}

	return domain.Conditions{
		Location:  at,
		Traffic:   traffic,
		Weather:   weather,
		Timestamp: s.now(),
	}, nil
}

// fetchConditions queries both providers concurrently. Weather is taken at
// the destination, the point the driver still has ahead.
func fetchConditions(
	ctx context.Context,
	trafficProvider TrafficProvider,
	weatherProvider WeatherProvider,
	from, to domain.GeoPoint,
) (domain.Traffic, domain.Weather, error) {
	var (
		traffic domain.Traffic
		weather domain.Weather
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := trafficProvider.CurrentTraffic(gctx, from, to)
		if err != nil {
			return fmt.Errorf("traffic: %w", err)
		}
		traffic = t
		return nil
	})
	g.Go(func() error {
		w, err := weatherProvider.CurrentWeather(gctx, to)
		if err != nil {
			return fmt.Errorf("weather: %w", err)
		}
		weather = w
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.Traffic{}, domain.Weather{}, err
	}
	return traffic, weather, nil
}
