package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetcore/backend/internal/domain"
)

const auditTimeout = 5 * time.Second

type evaluateRequest struct {
	Weight    string          `json:"weight"`
	AxleType  domain.AxleType `json:"axleType"`
	StateCode string          `json:"stateCode"`
	VehicleID string          `json:"vehicleId"`
}

// EvaluateCompliance checks one weight reading against federal and state limits
func (h *Handler) EvaluateCompliance(c *fiber.Ctx) error {
	var req evaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	result := h.compliance.Evaluate(req.Weight, req.AxleType, req.StateCode)

	// Record the evaluation asynchronously
	go h.audit(req.VehicleID, req.Weight, result)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// EvaluateVehicle checks every reading of a vehicle and aggregates the worst status
func (h *Handler) EvaluateVehicle(c *fiber.Ctx) error {
	var req domain.VehicleWeightRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if len(req.Readings) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "At least one reading is required")
	}

	report := h.compliance.EvaluateVehicle(req)

	go func() {
		for i, r := range report.Readings {
			h.audit(req.VehicleID, req.Readings[i].Weight, r.Result)
		}
	}()

	return c.JSON(fiber.Map{
		"success": true,
		"data":    report,
	})
}

// GetWeightLimits lists the federal limits and, when state is given, that state's limits
func (h *Handler) GetWeightLimits(c *fiber.Ctx) error {
	limits := h.compliance.Limits(c.Query("state"))
	return c.JSON(fiber.Map{
		"success": true,
		"data":    limits,
		"count":   len(limits),
	})
}

func (h *Handler) audit(vehicleID, input string, result domain.ComplianceResult) {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()
	if err := h.compliance.Audit(ctx, vehicleID, input, result); err != nil {
		h.logger.Error(err, "failed to save compliance check", "vehicle_id", vehicleID)
	}
}
