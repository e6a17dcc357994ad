package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/internal/metrics"
	"github.com/fleetcore/backend/pkg/log"
)

// warningRatio is the share of the limit above which a weight is flagged
const warningRatio = 0.9

// FederalWeightLimits are the interstate limits in pounds
var FederalWeightLimits = map[domain.AxleType]float64{
	domain.SingleAxle:         20000,
	domain.TandemAxle:         34000,
	domain.GrossVehicleWeight: 80000,
}

// StateWeightLimits lists states publishing their own limits. Where a state
// value is higher than the federal one the federal limit still governs.
var StateWeightLimits = map[string]map[domain.AxleType]float64{
	"CA": {domain.SingleAxle: 20000, domain.TandemAxle: 34000, domain.GrossVehicleWeight: 80000},
	"TX": {domain.SingleAxle: 20000, domain.TandemAxle: 34000, domain.GrossVehicleWeight: 80000},
	"FL": {domain.SingleAxle: 22000, domain.TandemAxle: 44000, domain.GrossVehicleWeight: 80000},
	"MI": {domain.SingleAxle: 18000, domain.TandemAxle: 32000, domain.GrossVehicleWeight: 164000},
	"NY": {domain.SingleAxle: 22400, domain.TandemAxle: 36000, domain.GrossVehicleWeight: 80000},
	"ME": {domain.SingleAxle: 22400, domain.TandemAxle: 38000, domain.GrossVehicleWeight: 100000},
	"HI": {domain.SingleAxle: 22500, domain.TandemAxle: 34000, domain.GrossVehicleWeight: 88000},
	"OR": {domain.SingleAxle: 20000, domain.TandemAxle: 34000, domain.GrossVehicleWeight: 105500},
	"WA": {domain.SingleAxle: 20000, domain.TandemAxle: 34000, domain.GrossVehicleWeight: 105500},
	"KY": {domain.SingleAxle: 20000, domain.TandemAxle: 34000, domain.GrossVehicleWeight: 80000},
	"DC": {domain.SingleAxle: 18000, domain.TandemAxle: 32000, domain.GrossVehicleWeight: 80000},
}

// ComplianceService evaluates declared weights against legal limits
type ComplianceService struct {
	federal map[domain.AxleType]float64
	states  map[string]map[domain.AxleType]float64
	repo    domain.ComplianceRepository
	logger  log.Logger
	now     func() time.Time
}

// NewComplianceService creates a compliance service over the built-in tables
func NewComplianceService(repo domain.ComplianceRepository, logger log.Logger) *ComplianceService {
	return &ComplianceService{
		federal: FederalWeightLimits,
		states:  StateWeightLimits,
		repo:    repo,
		logger:  logger.WithName("compliance"),
		now:     time.Now,
	}
}

// Evaluate checks one weight reading. Unparseable or non-positive weights and
// unknown axle types yield StatusUnknown instead of an error.
func (s *ComplianceService) Evaluate(weightText string, axleType domain.AxleType, stateCode string) domain.ComplianceResult {
	stateCode = normalizeStateCode(stateCode)
	result := s.evaluate(weightText, axleType, stateCode)
	metrics.ComplianceEvaluations.WithLabelValues(string(result.Status)).Inc()
	return result
}

func (s *ComplianceService) evaluate(weightText string, axleType domain.AxleType, stateCode string) domain.ComplianceResult {
	result := domain.ComplianceResult{
		AxleType:  axleType,
		StateCode: stateCode,
	}

	federal, ok := s.federal[axleType]
	if !ok {
		result.Status = domain.StatusUnknown
		result.Message = fmt.Sprintf("Unable to determine compliance: unknown axle type %q", axleType)
		return result
	}
	result.FederalLimit = federal
	result.AppliedLimit = federal

	source := "federal"
	if limits, ok := s.states[stateCode]; ok {
		if stateLimit, ok := limits[axleType]; ok {
			result.StateLimit = &stateLimit
			if stateLimit < federal {
				result.AppliedLimit = stateLimit
				source = stateCode + " state"
			}
		}
	}

	weight, ok := ParseWeight(weightText)
	if !ok {
		result.Status = domain.StatusUnknown
		result.Message = fmt.Sprintf("Unable to determine compliance: %q is not a valid weight", weightText)
		return result
	}
	result.WeightInPounds = weight

	limit := result.AppliedLimit
	label := axleType.Label()
	switch {
	case weight > limit:
		result.Status = domain.StatusNonCompliant
		result.Message = fmt.Sprintf("Weight of %s lbs exceeds the %s %s limit of %s lbs by %s lbs",
			humanize.Commaf(weight), source, label, humanize.Commaf(limit), humanize.Commaf(weight-limit))
	case weight > warningRatio*limit:
		result.Status = domain.StatusWarning
		result.Message = fmt.Sprintf("Weight of %s lbs is within 10%% of the %s %s limit of %s lbs",
			humanize.Commaf(weight), source, label, humanize.Commaf(limit))
	default:
		result.Status = domain.StatusCompliant
		result.Message = fmt.Sprintf("Weight of %s lbs is within the %s %s limit of %s lbs",
			humanize.Commaf(weight), source, label, humanize.Commaf(limit))
	}

	return result
}

// EvaluateVehicle evaluates every reading of a vehicle and reports the worst status
func (s *ComplianceService) EvaluateVehicle(req domain.VehicleWeightRequest) domain.VehicleWeightReport {
	report := domain.VehicleWeightReport{
		VehicleID: req.VehicleID,
		Status:    domain.StatusUnknown,
		Readings:  make([]domain.ReadingResult, 0, len(req.Readings)),
	}

	for i, r := range req.Readings {
		label := r.Label
		if label == "" {
			label = fmt.Sprintf("reading-%d", i+1)
		}
		res := s.Evaluate(r.Weight, r.AxleType, req.StateCode)
		report.Readings = append(report.Readings, domain.ReadingResult{Label: label, Result: res})
		report.Status = report.Status.Worse(res.Status)
	}

	return report
}

// Limits returns the reference table for the federal rules and, if known, the given state
func (s *ComplianceService) Limits(stateCode string) []domain.WeightLimit {
	stateCode = normalizeStateCode(stateCode)

	limits := make([]domain.WeightLimit, 0, 6)
	for axle, maxLbs := range s.federal {
		limits = append(limits, domain.WeightLimit{AxleType: axle, MaxPounds: maxLbs})
	}
	for axle, maxLbs := range s.states[stateCode] {
		limits = append(limits, domain.WeightLimit{AxleType: axle, StateCode: stateCode, MaxPounds: maxLbs})
	}

	sort.Slice(limits, func(i, j int) bool {
		if limits[i].StateCode != limits[j].StateCode {
			return limits[i].StateCode < limits[j].StateCode
		}
		return limits[i].AxleType < limits[j].AxleType
	})
	return limits
}

// Audit stores an evaluation in the compliance log
func (s *ComplianceService) Audit(ctx context.Context, vehicleID, inputText string, result domain.ComplianceResult) error {
	check := domain.ComplianceCheck{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		InputText: inputText,
		Result:    result,
		CheckedAt: s.now(),
	}
	if err := s.repo.SaveComplianceCheck(ctx, check); err != nil {
		return fmt.Errorf("compliance: failed to save check: %w", err)
	}
	return nil
}

// ParseWeight extracts a pound value from free text such as "85,000 lbs".
// Everything except digits and a decimal point is stripped; a minus sign
// directly before the first digit marks the value negative, so "GVW - 85,000"
// still reads as 85000. It reports false when no positive number can be read.
func ParseWeight(text string) (float64, bool) {
	var b strings.Builder
	negative := false
	var prev rune

	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			if b.Len() == 0 {
				negative = prev == '-'
			}
			b.WriteRune(r)
		case r == '.' && b.Len() > 0:
			b.WriteRune(r)
		}
		prev = r
	}

	if b.Len() == 0 {
		return 0, false
	}

	w, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsInf(w, 0) {
		return 0, false
	}
	if negative {
		w = -w
	}
	if w <= 0 {
		return 0, false
	}
	return w, true
}

func normalizeStateCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
