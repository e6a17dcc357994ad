package service

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/pkg/utils"
)

// ValidateZone rejects malformed zones so they never reach evaluation.
// It also fills defaults for alert type and priority.
func ValidateZone(z *domain.GeofenceZone) error {
	if strings.TrimSpace(z.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidZone)
	}

	switch z.Type {
	case domain.ZoneCircle:
		if z.Center == nil {
			return fmt.Errorf("%w: circle requires a center", domain.ErrInvalidZone)
		}
		if !utils.ValidLatLng(z.Center.Lat, z.Center.Lng) {
			return fmt.Errorf("%w: center is out of range", domain.ErrInvalidZone)
		}
		if !(z.RadiusMeters > 0) || math.IsInf(z.RadiusMeters, 0) {
			return fmt.Errorf("%w: circle requires a positive radius", domain.ErrInvalidZone)
		}
	case domain.ZoneRectangle:
		if len(z.Coordinates) < 4 {
			return fmt.Errorf("%w: rectangle requires 4 corner points, got %d", domain.ErrInvalidZone, len(z.Coordinates))
		}
	case domain.ZonePolygon:
		if len(z.Coordinates) < 3 {
			return fmt.Errorf("%w: polygon requires at least 3 points, got %d", domain.ErrInvalidZone, len(z.Coordinates))
		}
	default:
		return fmt.Errorf("%w: unknown zone type %q", domain.ErrInvalidZone, z.Type)
	}

	for i, p := range z.Coordinates {
		if !utils.ValidLatLng(p.Lat, p.Lng) {
			return fmt.Errorf("%w: point %d is out of range", domain.ErrInvalidZone, i)
		}
	}

	switch z.AlertType {
	case "":
		z.AlertType = domain.AlertOnBoth
	case domain.AlertOnEntry, domain.AlertOnExit, domain.AlertOnBoth:
	default:
		return fmt.Errorf("%w: unknown alert type %q", domain.ErrInvalidZone, z.AlertType)
	}

	switch z.Metadata.Priority {
	case "":
		z.Metadata.Priority = domain.PriorityMedium
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityCritical:
	default:
		return fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidZone, z.Metadata.Priority)
	}

	if tr := z.Metadata.TimeRestrictions; tr != nil {
		if _, err := parseClock(tr.StartTime); err != nil {
			return fmt.Errorf("%w: startTime: %v", domain.ErrInvalidZone, err)
		}
		if _, err := parseClock(tr.EndTime); err != nil {
			return fmt.Errorf("%w: endTime: %v", domain.ErrInvalidZone, err)
		}
		for _, d := range tr.DaysOfWeek {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: day of week %d is out of range", domain.ErrInvalidZone, d)
			}
		}
		if tr.Timezone != "" {
			if _, err := time.LoadLocation(tr.Timezone); err != nil {
				return fmt.Errorf("%w: timezone: %v", domain.ErrInvalidZone, err)
			}
		}
	}

	return nil
}

// Contains runs the shape-specific membership test
func Contains(z domain.GeofenceZone, lat, lng float64) bool {
	switch z.Type {
	case domain.ZoneCircle:
		if z.Center == nil {
			return false
		}
		return utils.Haversine(lat, lng, z.Center.Lat, z.Center.Lng) <= z.RadiusMeters
	case domain.ZoneRectangle:
		if len(z.Coordinates) == 0 {
			return false
		}
		minLat, minLng := z.Coordinates[0].Lat, z.Coordinates[0].Lng
		maxLat, maxLng := minLat, minLng
		for _, p := range z.Coordinates[1:] {
			minLat = math.Min(minLat, p.Lat)
			maxLat = math.Max(maxLat, p.Lat)
			minLng = math.Min(minLng, p.Lng)
			maxLng = math.Max(maxLng, p.Lng)
		}
		return utils.InBounds(lat, lng, minLat, minLng, maxLat, maxLng)
	case domain.ZonePolygon:
		lats := make([]float64, len(z.Coordinates))
		lngs := make([]float64, len(z.Coordinates))
		for i, p := range z.Coordinates {
			lats[i], lngs[i] = p.Lat, p.Lng
		}
		return utils.PointInPolygon(lat, lng, lats, lngs)
	}
	return false
}

// gateReason explains why an event for a zone is suppressed; "" means it fires
func gateReason(z domain.GeofenceZone, vehicleID string, at time.Time) string {
	if tr := z.Metadata.TimeRestrictions; tr != nil && !withinWindow(*tr, at) {
		return "outside time window"
	}
	if len(z.Metadata.AllowedVehicles) > 0 && !slices.Contains(z.Metadata.AllowedVehicles, vehicleID) {
		return "vehicle not on allow-list"
	}
	if slices.Contains(z.Metadata.RestrictedVehicles, vehicleID) {
		return "vehicle on deny-list"
	}
	return ""
}

// withinWindow reports whether at falls inside the restriction. The window is
// inclusive at start and exclusive at end; an end before start wraps midnight
// and the day-of-week check applies to the day the window opened.
func withinWindow(tr domain.TimeRestriction, at time.Time) bool {
	if tr.Timezone != "" {
		if loc, err := time.LoadLocation(tr.Timezone); err == nil {
			at = at.In(loc)
		}
	}

	start, errStart := parseClock(tr.StartTime)
	end, errEnd := parseClock(tr.EndTime)
	if errStart != nil || errEnd != nil {
		return false
	}

	minute := at.Hour()*60 + at.Minute()
	day := int(at.Weekday())

	var inWindow bool
	switch {
	case start == end:
		inWindow = true
	case start < end:
		inWindow = minute >= start && minute < end
	default:
		inWindow = minute >= start || minute < end
		if minute < end {
			day = (day + 6) % 7
		}
	}
	if !inWindow {
		return false
	}

	return len(tr.DaysOfWeek) == 0 || slices.Contains(tr.DaysOfWeek, day)
}

// parseClock turns "HH:MM" into minutes after midnight
func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%q has an invalid hour", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%q has an invalid minute", s)
	}
	return hour*60 + minute, nil
}

func severityFor(p domain.Priority) domain.Severity {
	switch p {
	case domain.PriorityLow:
		return domain.SeverityLow
	case domain.PriorityHigh:
		return domain.SeverityHigh
	case domain.PriorityCritical:
		return domain.SeverityCritical
	}
	return domain.SeverityMedium
}
