package domain

import "time"

// AxleType is the point at which a weight is measured
type AxleType string

const (
	SingleAxle         AxleType = "SINGLE_AXLE"
	TandemAxle         AxleType = "TANDEM_AXLE"
	GrossVehicleWeight AxleType = "GROSS_VEHICLE_WEIGHT"
)

// Valid reports whether the axle type is one of the known measurement points
func (a AxleType) Valid() bool {
	switch a {
	case SingleAxle, TandemAxle, GrossVehicleWeight:
		return true
	}
	return false
}

// Label returns the human-readable name used in messages
func (a AxleType) Label() string {
	switch a {
	case SingleAxle:
		return "single axle"
	case TandemAxle:
		return "tandem axle"
	case GrossVehicleWeight:
		return "gross vehicle weight"
	}
	return string(a)
}

// ComplianceStatus is the verdict of a weight evaluation
type ComplianceStatus string

const (
	StatusCompliant    ComplianceStatus = "Compliant"
	StatusWarning      ComplianceStatus = "Warning"
	StatusNonCompliant ComplianceStatus = "Non-Compliant"
	// StatusUnknown marks input that could not be evaluated
	StatusUnknown ComplianceStatus = "Unknown"
)

// severityRank orders statuses so the worst of several readings can be picked
func (s ComplianceStatus) severityRank() int {
	switch s {
	case StatusCompliant:
		return 1
	case StatusWarning:
		return 2
	case StatusNonCompliant:
		return 3
	}
	return 0
}

// Worse returns whichever of s and other is more severe. Unknown ranks lowest.
func (s ComplianceStatus) Worse(other ComplianceStatus) ComplianceStatus {
	if other.severityRank() > s.severityRank() {
		return other
	}
	return s
}

// WeightLimit is one row of the legal weight reference table
type WeightLimit struct {
	AxleType  AxleType `json:"axleType"`
	StateCode string   `json:"stateCode,omitempty"` // empty for federal
	MaxPounds float64  `json:"maxPounds"`
}

// ComplianceResult is the outcome of evaluating one weight reading
type ComplianceResult struct {
	Status         ComplianceStatus `json:"status"`
	Message        string           `json:"message"`
	WeightInPounds float64          `json:"weightInPounds"`
	FederalLimit   float64          `json:"federalLimit"`
	StateLimit     *float64         `json:"stateLimit,omitempty"`
	AppliedLimit   float64          `json:"appliedLimit"`
	AxleType       AxleType         `json:"axleType"`
	StateCode      string           `json:"stateCode,omitempty"`
}

// AxleReading is a single measured weight within a vehicle check
type AxleReading struct {
	Label    string   `json:"label"`
	Weight   string   `json:"weight"`
	AxleType AxleType `json:"axleType"`
}

// VehicleWeightRequest bundles the readings taken for one vehicle
type VehicleWeightRequest struct {
	VehicleID string        `json:"vehicleId"`
	StateCode string        `json:"stateCode,omitempty"`
	Readings  []AxleReading `json:"readings"`
}

// ReadingResult pairs a reading label with its evaluation
type ReadingResult struct {
	Label  string           `json:"label"`
	Result ComplianceResult `json:"result"`
}

// VehicleWeightReport is the aggregated verdict for a vehicle
type VehicleWeightReport struct {
	VehicleID string           `json:"vehicleId"`
	Status    ComplianceStatus `json:"status"`
	Readings  []ReadingResult  `json:"readings"`
}

// ComplianceCheck is an audit record of an evaluation
type ComplianceCheck struct {
	ID        string           `json:"id"`
	VehicleID string           `json:"vehicleId,omitempty"`
	InputText string           `json:"inputText"`
	Result    ComplianceResult `json:"result"`
	CheckedAt time.Time        `json:"checkedAt"`
}
