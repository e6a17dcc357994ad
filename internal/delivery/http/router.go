package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetcore/backend/pkg/log"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, svcs Services, logger log.Logger) {
	handler := NewHandler(svcs, logger)

	// Health check and metrics
	app.Get("/health", handler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Weight compliance
		api.Post("/compliance/evaluate", handler.EvaluateCompliance)
		api.Post("/compliance/vehicle", handler.EvaluateVehicle)
		api.Get("/compliance/limits", handler.GetWeightLimits)

		// Geofencing
		api.Get("/zones", handler.ListZones)
		api.Post("/zones", handler.CreateZone)
		api.Get("/zones/:id", handler.GetZone)
		api.Put("/zones/:id", handler.UpdateZone)
		api.Delete("/zones/:id", handler.DeleteZone)
		api.Post("/positions", handler.ReportPosition)
		api.Get("/vehicles/:id/zones", handler.GetVehicleZones)
		api.Get("/violations", handler.ListViolations)
		api.Get("/violations/:id", handler.GetViolation)
		api.Post("/violations/:id/acknowledge", handler.AcknowledgeViolation)
		api.Get("/alerts", handler.GetAlerts)

		// ETA
		api.Post("/eta", handler.CalculateETA)
		api.Get("/drivers/:id/profile", handler.GetDriverProfile)
		api.Patch("/drivers/:id/profile", handler.UpdateDriverProfile)
		api.Get("/conditions", handler.GetConditions)
	}
}
