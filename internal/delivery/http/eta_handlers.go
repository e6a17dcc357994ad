package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/pkg/utils"
)

// CalculateETA estimates the arrival time for a trip
func (h *Handler) CalculateETA(c *fiber.Ctx) error {
	var req domain.ETARequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if !utils.ValidLatLng(req.CurrentLat, req.CurrentLng) || !utils.ValidLatLng(req.DestLat, req.DestLng) {
		return fiber.NewError(fiber.StatusBadRequest, domain.ErrInvalidCoordinates.Error())
	}

	calc, err := h.eta.CalculateETA(c.Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    calc,
	})
}

func (h *Handler) GetDriverProfile(c *fiber.Ctx) error {
	profile, err := h.profiles.DriverProfile(c.Context(), paramID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    profile,
	})
}

func (h *Handler) UpdateDriverProfile(c *fiber.Ctx) error {
	var patch domain.DriverProfilePatch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	profile, err := h.profiles.UpdateDriverProfile(c.Context(), paramID(c), patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    profile,
	})
}

// GetConditions returns live traffic and weather at a point
func (h *Handler) GetConditions(c *fiber.Ctx) error {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lng query parameters are required")
	}

	conditions, err := h.conditions.Current(c.Context(), domain.GeoPoint{Lat: lat, Lng: lng})
	if errors.Is(err, domain.ErrInvalidCoordinates) {
		return httpError(err)
	}
	if err != nil {
		h.logger.Error(err, "failed to fetch conditions")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch conditions")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    conditions,
	})
}
