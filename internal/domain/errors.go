package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrZoneNotFound        = errors.New("geofence zone not found")
	ErrInvalidZone         = errors.New("invalid geofence zone")
	ErrViolationNotFound   = errors.New("geofence violation not found")
	ErrAlreadyAcknowledged = errors.New("violation already acknowledged")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrInvalidPosition     = errors.New("invalid position update")
	ErrInvalidProfile      = errors.New("invalid driver behavior profile")
	ErrETAFailed           = errors.New("failed to calculate ETA")
)
