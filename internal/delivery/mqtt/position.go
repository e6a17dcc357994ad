package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/pkg/log"
)

const handleTimeout = 10 * time.Second

type geofenceService interface {
	CheckPosition(ctx context.Context, pos domain.PositionUpdate) ([]domain.GeofenceViolation, error)
}

type positionMessage struct {
	VehicleID string  `json:"vehicleId"`
	DriverID  string  `json:"driverId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// PositionSubscriber feeds vehicle position telemetry into the geofence engine
type PositionSubscriber struct {
	geofenceSvc geofenceService
	logger      log.Logger
}

func NewPositionSubscriber(geofenceSvc geofenceService, logger log.Logger) *PositionSubscriber {
	return &PositionSubscriber{
		geofenceSvc: geofenceSvc,
		logger:      logger.WithName("positions"),
	}
}

// Start subscribes to topic on client
func (s *PositionSubscriber) Start(ctx context.Context, client *Client, topic string) error {
	return client.Subscribe(ctx, topic, 1, s.handleMessage)
}

func (s *PositionSubscriber) handleMessage(ctx context.Context, topic string, payload []byte) {
	var raw positionMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		s.logger.Warn("invalid position message", "topic", topic, "error", err.Error())
		return
	}

	if err := validatePositionMessage(&raw); err != nil {
		s.logger.Warn("position message rejected", "topic", topic, "error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	violations, err := s.geofenceSvc.CheckPosition(ctx, domain.PositionUpdate{
		VehicleID: raw.VehicleID,
		DriverID:  raw.DriverID,
		Lat:       raw.Latitude,
		Lng:       raw.Longitude,
		Timestamp: time.Unix(raw.Timestamp, 0).UTC(),
	})
	if err != nil {
		s.logger.Error(err, "geofence check failed", "vehicle_id", raw.VehicleID)
		return
	}
	if len(violations) > 0 {
		s.logger.Debug("position raised violations", "vehicle_id", raw.VehicleID, "count", len(violations))
	}
}

func validatePositionMessage(msg *positionMessage) error {
	if msg.VehicleID == "" {
		return fmt.Errorf("vehicleId: required")
	}
	if msg.Latitude < -90 || msg.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if msg.Longitude < -180 || msg.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}
