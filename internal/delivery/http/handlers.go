package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/internal/service"
	"github.com/fleetcore/backend/pkg/log"
)

// Handler contains all HTTP handlers
type Handler struct {
	compliance *service.ComplianceService
	geofence   *service.GeofenceService
	eta        *service.ETAService
	profiles   *service.DriverProfileService
	conditions *service.ConditionsService
	repo       service.DataRepository
	logger     log.Logger
}

// Services groups the dependencies of the HTTP layer
type Services struct {
	Compliance *service.ComplianceService
	Geofence   *service.GeofenceService
	ETA        *service.ETAService
	Profiles   *service.DriverProfileService
	Conditions *service.ConditionsService
	Repo       service.DataRepository
}

// NewHandler creates a new handler
func NewHandler(svcs Services, logger log.Logger) *Handler {
	return &Handler{
		compliance: svcs.Compliance,
		geofence:   svcs.Geofence,
		eta:        svcs.ETA,
		profiles:   svcs.Profiles,
		conditions: svcs.Conditions,
		repo:       svcs.Repo,
		logger:     logger.WithName("http"),
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	database := "ok"
	if err := h.repo.Health(c.Context()); err != nil {
		h.logger.Warn("database health check failed", "error", err.Error())
		database = "unavailable"
	}

	return c.JSON(fiber.Map{
		"status":   "ok",
		"service":  "fleet-backend",
		"version":  "1.0.0",
		"database": database,
	})
}

// httpError maps domain errors onto fiber errors
func httpError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidZone),
		errors.Is(err, domain.ErrInvalidCoordinates),
		errors.Is(err, domain.ErrInvalidPosition),
		errors.Is(err, domain.ErrInvalidProfile):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrZoneNotFound),
		errors.Is(err, domain.ErrViolationNotFound),
		errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyAcknowledged):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrETAFailed):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	default:
		return err
	}
}

// ErrorHandler renders every error as {"error": true, "message": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

// paramID copies the :id route parameter; fiber reuses the request buffer
// once the handler returns and ids may be retained by the services.
func paramID(c *fiber.Ctx) string {
	return strings.Clone(c.Params("id"))
}
