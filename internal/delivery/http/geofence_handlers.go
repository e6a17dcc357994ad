package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetcore/backend/internal/domain"
)

type zoneRequest struct {
	Name         string              `json:"name"`
	Type         domain.ZoneType     `json:"type"`
	Coordinates  []domain.GeoPoint   `json:"coordinates"`
	Center       *domain.GeoPoint    `json:"center"`
	RadiusMeters float64             `json:"radius"`
	AlertType    domain.AlertType    `json:"alertType"`
	IsActive     *bool               `json:"isActive"`
	Metadata     domain.ZoneMetadata `json:"metadata"`
}

func (r zoneRequest) toZone() domain.GeofenceZone {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return domain.GeofenceZone{
		Name:         r.Name,
		Type:         r.Type,
		Coordinates:  r.Coordinates,
		Center:       r.Center,
		RadiusMeters: r.RadiusMeters,
		AlertType:    r.AlertType,
		IsActive:     active,
		Metadata:     r.Metadata,
	}
}

// ListZones returns cached zones; ?active=true hides inactive ones
func (h *Handler) ListZones(c *fiber.Ctx) error {
	zones := h.geofence.ListZones(c.QueryBool("active", false))
	return c.JSON(fiber.Map{
		"success": true,
		"data":    zones,
		"count":   len(zones),
	})
}

func (h *Handler) GetZone(c *fiber.Ctx) error {
	zone, err := h.geofence.GetZone(paramID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    zone,
	})
}

func (h *Handler) CreateZone(c *fiber.Ctx) error {
	var req zoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	zone, err := h.geofence.CreateZone(c.Context(), req.toZone())
	if err != nil {
		return httpError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    zone,
	})
}

func (h *Handler) UpdateZone(c *fiber.Ctx) error {
	var req zoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	zone, err := h.geofence.UpdateZone(c.Context(), paramID(c), req.toZone())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    zone,
	})
}

func (h *Handler) DeleteZone(c *fiber.Ctx) error {
	if err := h.geofence.DeleteZone(c.Context(), paramID(c)); err != nil {
		return httpError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReportPosition runs a position report through the geofence engine
func (h *Handler) ReportPosition(c *fiber.Ctx) error {
	var pos domain.PositionUpdate
	if err := c.BodyParser(&pos); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	violations, err := h.geofence.CheckPosition(c.Context(), pos)
	if err != nil {
		return httpError(err)
	}
	if violations == nil {
		violations = []domain.GeofenceViolation{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    violations,
		"count":   len(violations),
	})
}

// GetVehicleZones lists the zones a vehicle is currently inside
func (h *Handler) GetVehicleZones(c *fiber.Ctx) error {
	zones, err := h.geofence.VehicleZones(c.Context(), paramID(c))
	if err != nil {
		return httpError(err)
	}
	if zones == nil {
		zones = []domain.GeofenceZone{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    zones,
		"count":   len(zones),
	})
}

func (h *Handler) ListViolations(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	violations, err := h.geofence.ListViolations(c.Context(), domain.ViolationFilter{
		VehicleID:          c.Query("vehicleId"),
		ZoneID:             c.Query("zoneId"),
		UnacknowledgedOnly: c.QueryBool("unacknowledged", false),
		Limit:              limit,
	})
	if err != nil {
		h.logger.Error(err, "failed to list violations")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch violations")
	}
	if violations == nil {
		violations = []domain.GeofenceViolation{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    violations,
		"count":   len(violations),
	})
}

func (h *Handler) GetViolation(c *fiber.Ctx) error {
	v, err := h.geofence.GetViolation(c.Context(), paramID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    v,
	})
}

type acknowledgeRequest struct {
	AcknowledgedBy string `json:"acknowledgedBy"`
}

func (h *Handler) AcknowledgeViolation(c *fiber.Ctx) error {
	var req acknowledgeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.AcknowledgedBy) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "acknowledgedBy is required")
	}

	v, err := h.geofence.AcknowledgeViolation(c.Context(), paramID(c), req.AcknowledgedBy)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    v,
	})
}

// GetAlerts returns the most recent alerts, newest first
func (h *Handler) GetAlerts(c *fiber.Ctx) error {
	alerts := h.geofence.RecentAlerts(c.QueryInt("limit", 50))
	if alerts == nil {
		alerts = []domain.GeofenceAlert{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    alerts,
		"count":   len(alerts),
	})
}
