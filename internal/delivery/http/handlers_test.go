package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/internal/repository/postgres"
	"github.com/fleetcore/backend/internal/service"
	"github.com/fleetcore/backend/pkg/log"
)

type envelope struct {
	Success bool            `json:"success"`
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   int             `json:"count"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := log.NewNopLogger()
	repo := postgres.NewMockRepository()

	traffic := service.NewTrafficService("")
	weather := service.NewWeatherService("")
	profiles := service.NewDriverProfileService(repo, logger)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	SetupRoutes(app, Services{
		Compliance: service.NewComplianceService(repo, logger),
		Geofence:   service.NewGeofenceService(repo, repo, service.NewMemoryContainmentStore(), logger),
		ETA:        service.NewETAService(traffic, weather, profiles, logger),
		Profiles:   profiles,
		Conditions: service.NewConditionsService(traffic, weather),
		Repo:       repo,
	}, logger)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != fiber.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode, env
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["status"] != "ok" || body["database"] != "ok" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestEvaluateCompliance(t *testing.T) {
	app := newTestApp(t)

	status, env := doRequest(t, app, "POST", "/api/v1/compliance/evaluate", map[string]string{
		"weight":   "85,000 lbs",
		"axleType": "GROSS_VEHICLE_WEIGHT",
	})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	var result domain.ComplianceResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.StatusNonCompliant {
		t.Errorf("expected Non-Compliant, got %s", result.Status)
	}
}

func TestEvaluateVehicle_RequiresReadings(t *testing.T) {
	app := newTestApp(t)

	status, env := doRequest(t, app, "POST", "/api/v1/compliance/vehicle", map[string]any{"vehicleId": "truck-1"})
	if status != fiber.StatusBadRequest || !env.Error {
		t.Errorf("expected 400 error envelope, got %d %+v", status, env)
	}
}

func TestGetWeightLimits(t *testing.T) {
	app := newTestApp(t)

	status, env := doRequest(t, app, "GET", "/api/v1/compliance/limits?state=MI", nil)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if env.Count != 6 {
		t.Errorf("expected 6 limits, got %d", env.Count)
	}
}

func TestZoneLifecycleAndViolations(t *testing.T) {
	app := newTestApp(t)

	status, env := doRequest(t, app, "POST", "/api/v1/zones", map[string]any{
		"name":      "Dallas Depot",
		"type":      "circle",
		"center":    map[string]float64{"lat": 32.7767, "lng": -96.7970},
		"radius":    500,
		"alertType": "both",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", status, env.Message)
	}
	var zone domain.GeofenceZone
	if err := json.Unmarshal(env.Data, &zone); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !zone.IsActive {
		t.Error("zones should default to active")
	}

	status, env = doRequest(t, app, "POST", "/api/v1/positions", map[string]any{
		"vehicleId": "truck-42",
		"lat":       32.7767,
		"lng":       -96.7970,
	})
	if status != fiber.StatusOK || env.Count != 1 {
		t.Fatalf("expected one violation, got %d / %d", status, env.Count)
	}
	var violations []domain.GeofenceViolation
	if err := json.Unmarshal(env.Data, &violations); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, env = doRequest(t, app, "GET", "/api/v1/vehicles/truck-42/zones", nil)
	if status != fiber.StatusOK || env.Count != 1 {
		t.Errorf("expected vehicle inside 1 zone, got %d / %d", status, env.Count)
	}

	status, env = doRequest(t, app, "GET", "/api/v1/alerts", nil)
	if status != fiber.StatusOK || env.Count != 1 {
		t.Errorf("expected 1 alert, got %d / %d", status, env.Count)
	}

	ackPath := "/api/v1/violations/" + violations[0].ID + "/acknowledge"
	status, _ = doRequest(t, app, "POST", ackPath, map[string]string{"acknowledgedBy": "dispatcher-1"})
	if status != fiber.StatusOK {
		t.Errorf("expected 200 on first acknowledgement, got %d", status)
	}
	status, env = doRequest(t, app, "POST", ackPath, map[string]string{"acknowledgedBy": "dispatcher-2"})
	if status != fiber.StatusConflict || !env.Error {
		t.Errorf("expected 409 on second acknowledgement, got %d", status)
	}

	status, env = doRequest(t, app, "GET", "/api/v1/violations?unacknowledged=true", nil)
	if status != fiber.StatusOK || env.Count != 0 {
		t.Errorf("expected no unacknowledged violations, got %d / %d", status, env.Count)
	}

	status, _ = doRequest(t, app, "DELETE", "/api/v1/zones/"+zone.ID, nil)
	if status != fiber.StatusNoContent {
		t.Errorf("expected 204, got %d", status)
	}
	status, _ = doRequest(t, app, "GET", "/api/v1/zones/"+zone.ID, nil)
	if status != fiber.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", status)
	}
}

func TestCreateZone_Invalid(t *testing.T) {
	app := newTestApp(t)

	status, env := doRequest(t, app, "POST", "/api/v1/zones", map[string]any{
		"name": "Broken",
		"type": "polygon",
		"coordinates": []map[string]float64{
			{"lat": 1, "lng": 1}, {"lat": 2, "lng": 2},
		},
	})
	if status != fiber.StatusBadRequest || !env.Error {
		t.Errorf("expected 400 error envelope, got %d %+v", status, env)
	}
}

func TestReportPosition_Invalid(t *testing.T) {
	app := newTestApp(t)

	status, _ := doRequest(t, app, "POST", "/api/v1/positions", map[string]any{"lat": 1, "lng": 1})
	if status != fiber.StatusBadRequest {
		t.Errorf("expected 400 for missing vehicle id, got %d", status)
	}
}

func TestGetViolation_NotFound(t *testing.T) {
	app := newTestApp(t)

	status, env := doRequest(t, app, "GET", "/api/v1/violations/nope", nil)
	if status != fiber.StatusNotFound || !env.Error {
		t.Errorf("expected 404 error envelope, got %d", status)
	}
}

func TestCalculateETA(t *testing.T) {
	app := newTestApp(t)

	status, env := doRequest(t, app, "POST", "/api/v1/eta", domain.ETARequest{
		CurrentLat: 32.7767, CurrentLng: -96.7970,
		DestLat: 29.7604, DestLng: -95.3698,
		DriverID: "driver-1", VehicleID: "truck-42",
	})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", status, env.Message)
	}

	var calc domain.ETACalculation
	if err := json.Unmarshal(env.Data, &calc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calc.TotalMinutes <= 0 || calc.Confidence < 50 || calc.Confidence > 100 {
		t.Errorf("implausible estimate %+v", calc)
	}
}

func TestCalculateETA_InvalidCoordinates(t *testing.T) {
	app := newTestApp(t)

	status, _ := doRequest(t, app, "POST", "/api/v1/eta", domain.ETARequest{CurrentLat: 95, DriverID: "d"})
	if status != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestDriverProfileEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, env := doRequest(t, app, "PATCH", "/api/v1/drivers/driver-1/profile", map[string]float64{"averageSpeed": 60})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", status, env.Message)
	}

	status, env = doRequest(t, app, "GET", "/api/v1/drivers/driver-1/profile", nil)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var p domain.DriverBehaviorProfile
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.AverageSpeed != 60 {
		t.Errorf("expected patched speed 60, got %f", p.AverageSpeed)
	}

	status, _ = doRequest(t, app, "PATCH", "/api/v1/drivers/driver-1/profile", map[string]float64{"routeAdherence": -1})
	if status != fiber.StatusBadRequest {
		t.Errorf("expected 400 for out-of-range value, got %d", status)
	}
}

func TestGetConditions(t *testing.T) {
	app := newTestApp(t)

	status, _ := doRequest(t, app, "GET", "/api/v1/conditions?lat=32.7767&lng=-96.7970", nil)
	if status != fiber.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}

	status, _ = doRequest(t, app, "GET", "/api/v1/conditions?lat=32.7767", nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("expected 400 without lng, got %d", status)
	}
}
