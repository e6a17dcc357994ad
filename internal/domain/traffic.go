package domain

import "time"

// TrafficSeverity is the congestion class the ETA engine works with
type TrafficSeverity string

const (
	TrafficLight    TrafficSeverity = "light"
	TrafficModerate TrafficSeverity = "moderate"
	TrafficHeavy    TrafficSeverity = "heavy"
	TrafficSevere   TrafficSeverity = "severe"
)

// Traffic represents traffic conditions along a route
type Traffic struct {
	Severity        TrafficSeverity `json:"severity"`
	CongestionIndex float64         `json:"congestionIndex"`
	CongestionLevel string          `json:"congestionLevel"`
	AverageSpeed    float64         `json:"averageSpeedMph"`
	FreeFlowSpeed   float64         `json:"freeFlowSpeedMph"`
	IncidentCount   int             `json:"incidentCount"`
	Timestamp       time.Time       `json:"timestamp"`
	IsMock          bool            `json:"isMock"`
}
