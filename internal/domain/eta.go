package domain

import "time"

// DriverBehaviorProfile holds the historical habits of a driver.
// RestFrequency and RestDuration are minutes; scores are 0-100.
type DriverBehaviorProfile struct {
	DriverID           string    `json:"driverId"`
	AverageSpeed       float64   `json:"averageSpeed"`
	SpeedVariance      float64   `json:"speedVariance"`
	RestFrequency      float64   `json:"restFrequency"`
	RestDuration       float64   `json:"restDuration"`
	PunctualityScore   float64   `json:"punctualityScore"`
	RouteAdherence     float64   `json:"routeAdherence"`
	HistoricalAccuracy float64   `json:"historicalAccuracy"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// DriverProfilePatch is a merge patch; nil fields are left unchanged
type DriverProfilePatch struct {
	AverageSpeed       *float64 `json:"averageSpeed,omitempty"`
	SpeedVariance      *float64 `json:"speedVariance,omitempty"`
	RestFrequency      *float64 `json:"restFrequency,omitempty"`
	RestDuration       *float64 `json:"restDuration,omitempty"`
	PunctualityScore   *float64 `json:"punctualityScore,omitempty"`
	RouteAdherence     *float64 `json:"routeAdherence,omitempty"`
	HistoricalAccuracy *float64 `json:"historicalAccuracy,omitempty"`
}

// RoadType classifies a synthetic route segment
type RoadType string

const (
	RoadHighway     RoadType = "highway"
	RoadArterial    RoadType = "arterial"
	RoadLocal       RoadType = "local"
	RoadResidential RoadType = "residential"
)

// RouteSegment is one leg of the decomposed route
type RouteSegment struct {
	Start            GeoPoint `json:"start"`
	End              GeoPoint `json:"end"`
	DistanceMiles    float64  `json:"distanceMiles"`
	RoadType         RoadType `json:"roadType"`
	SpeedLimit       float64  `json:"speedLimit"`
	EstimatedMinutes float64  `json:"estimatedMinutes"`
}

// AlternativeRoute is a synthesized option alongside the primary estimate
type AlternativeRoute struct {
	Name          string    `json:"name"`
	DistanceMiles float64   `json:"distanceMiles"`
	TotalMinutes  float64   `json:"totalMinutes"`
	EstimatedAt   time.Time `json:"estimatedArrival"`
}

// ETARequest is the input of an ETA calculation
type ETARequest struct {
	CurrentLat      float64 `json:"currentLat"`
	CurrentLng      float64 `json:"currentLng"`
	DestLat         float64 `json:"destLat"`
	DestLng         float64 `json:"destLng"`
	DriverID        string  `json:"driverId"`
	VehicleID       string  `json:"vehicleId"`
	DestinationName string  `json:"destinationName"`
}

// ETACalculation is derived per request and never stored
type ETACalculation struct {
	VehicleID         string             `json:"vehicleId"`
	DriverID          string             `json:"driverId"`
	DestinationName   string             `json:"destinationName"`
	Destination       GeoPoint           `json:"destination"`
	DistanceMiles     float64            `json:"distanceMiles"`
	Segments          []RouteSegment     `json:"segments"`
	BaseMinutes       float64            `json:"baseMinutes"`
	TrafficSeverity   TrafficSeverity    `json:"trafficSeverity"`
	TrafficDelay      float64            `json:"trafficDelayMinutes"`
	WeatherCondition  WeatherCondition   `json:"weatherCondition"`
	WeatherDelay      float64            `json:"weatherDelayMinutes"`
	DriverAdjustment  float64            `json:"driverAdjustmentMinutes"`
	RestStops         int                `json:"restStops"`
	RestMinutes       float64            `json:"restMinutes"`
	TotalMinutes      float64            `json:"totalMinutes"`
	EstimatedArrival  time.Time          `json:"estimatedArrival"`
	Confidence        float64            `json:"confidence"`
	AlternativeRoutes []AlternativeRoute `json:"alternativeRoutes"`
	CalculatedAt      time.Time          `json:"calculatedAt"`
}
