package domain

import "time"

// GeoPoint is a WGS84 coordinate
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ZoneType identifies the shape of a geofence
type ZoneType string

const (
	ZoneCircle    ZoneType = "circle"
	ZoneRectangle ZoneType = "rectangle"
	ZonePolygon   ZoneType = "polygon"
)

// AlertType selects which transitions of a zone raise violations
type AlertType string

const (
	AlertOnEntry AlertType = "entry"
	AlertOnExit  AlertType = "exit"
	AlertOnBoth  AlertType = "both"
)

// Fires reports whether a transition of kind v should raise for this alert type
func (a AlertType) Fires(v ViolationType) bool {
	switch a {
	case AlertOnBoth:
		return true
	case AlertOnEntry:
		return v == ViolationEntry
	case AlertOnExit:
		return v == ViolationExit
	}
	return false
}

// Priority ranks a zone; violations inherit it as severity
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// TimeRestriction limits when a zone is enforced. StartTime and EndTime are
// "HH:MM"; a window whose end is before its start wraps past midnight.
// DaysOfWeek uses time.Weekday numbering (0 = Sunday); empty means every day.
type TimeRestriction struct {
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	DaysOfWeek []int  `json:"daysOfWeek,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
}

// ZoneMetadata carries the gating configuration of a zone
type ZoneMetadata struct {
	Priority           Priority         `json:"priority"`
	AllowedVehicles    []string         `json:"allowedVehicles,omitempty"`
	RestrictedVehicles []string         `json:"restrictedVehicles,omitempty"`
	TimeRestrictions   *TimeRestriction `json:"timeRestrictions,omitempty"`
	Description        string           `json:"description,omitempty"`
}

// GeofenceZone is a named geographic boundary. Circles use Center and
// RadiusMeters; rectangles and polygons use Coordinates.
type GeofenceZone struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         ZoneType     `json:"type"`
	Coordinates  []GeoPoint   `json:"coordinates,omitempty"`
	Center       *GeoPoint    `json:"center,omitempty"`
	RadiusMeters float64      `json:"radius,omitempty"`
	AlertType    AlertType    `json:"alertType"`
	IsActive     bool         `json:"isActive"`
	Metadata     ZoneMetadata `json:"metadata"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// ViolationType is the direction of a zone crossing
type ViolationType string

const (
	ViolationEntry ViolationType = "entry"
	ViolationExit  ViolationType = "exit"
)

// Severity of a violation
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// GeofenceViolation is recorded once per detected crossing
type GeofenceViolation struct {
	ID             string        `json:"id"`
	VehicleID      string        `json:"vehicleId"`
	DriverID       string        `json:"driverId"`
	ZoneID         string        `json:"zoneId"`
	ZoneName       string        `json:"zoneName"`
	ViolationType  ViolationType `json:"violationType"`
	Timestamp      time.Time     `json:"timestamp"`
	Location       GeoPoint      `json:"location"`
	Severity       Severity      `json:"severity"`
	Acknowledged   bool          `json:"acknowledged"`
	AcknowledgedBy string        `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time    `json:"acknowledgedAt,omitempty"`
}

// ViolationFilter narrows ListViolations
type ViolationFilter struct {
	VehicleID          string
	ZoneID             string
	UnacknowledgedOnly bool
	Limit              int
}

// Alert recipient roles
const (
	RecipientDispatcher   = "dispatcher"
	RecipientFleetManager = "fleet-manager"
)

// GeofenceAlert is the notification spawned by a violation
type GeofenceAlert struct {
	ID          string        `json:"id"`
	ViolationID string        `json:"violationId"`
	VehicleID   string        `json:"vehicleId"`
	ZoneID      string        `json:"zoneId"`
	Type        ViolationType `json:"type"`
	Severity    Severity      `json:"severity"`
	Message     string        `json:"message"`
	Recipients  []string      `json:"recipients"`
	Timestamp   time.Time     `json:"timestamp"`
}

// PositionUpdate is one vehicle position report. A zero Timestamp means "now".
type PositionUpdate struct {
	VehicleID string    `json:"vehicleId"`
	DriverID  string    `json:"driverId"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}
