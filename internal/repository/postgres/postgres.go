package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetcore/backend/internal/domain"
)

//go:embed schema.sql
var schema string

const defaultViolationLimit = 100

// PostgresRepository implements domain.DataRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ domain.DataRepository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the tables this repository needs
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to apply schema: %w", err)
	}
	return nil
}

// SaveZone inserts or replaces a geofence zone
func (r *PostgresRepository) SaveZone(ctx context.Context, z domain.GeofenceZone) error {
	query := `
		INSERT INTO geofence_zones (
			id, name, zone_type, coordinates, center_lat, center_lng,
			radius_meters, alert_type, is_active, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			zone_type = EXCLUDED.zone_type,
			coordinates = EXCLUDED.coordinates,
			center_lat = EXCLUDED.center_lat,
			center_lng = EXCLUDED.center_lng,
			radius_meters = EXCLUDED.radius_meters,
			alert_type = EXCLUDED.alert_type,
			is_active = EXCLUDED.is_active,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`

	coords, err := json.Marshal(z.Coordinates)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode coordinates: %w", err)
	}
	meta, err := json.Marshal(z.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode metadata: %w", err)
	}

	var centerLat, centerLng *float64
	if z.Center != nil {
		centerLat, centerLng = &z.Center.Lat, &z.Center.Lng
	}

	_, err = r.pool.Exec(ctx, query,
		z.ID, z.Name, string(z.Type), coords, centerLat, centerLng,
		z.RadiusMeters, string(z.AlertType), z.IsActive, meta, z.CreatedAt, z.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save zone: %w", err)
	}
	return nil
}

// DeleteZone removes a zone; violations referencing it are kept
func (r *PostgresRepository) DeleteZone(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM geofence_zones WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete zone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrZoneNotFound
	}
	return nil
}

// ListZones returns every stored zone
func (r *PostgresRepository) ListZones(ctx context.Context) ([]domain.GeofenceZone, error) {
	query := `
		SELECT id, name, zone_type, coordinates, center_lat, center_lng,
			   radius_meters, alert_type, is_active, metadata, created_at, updated_at
		FROM geofence_zones
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query zones: %w", err)
	}
	defer rows.Close()

	var results []domain.GeofenceZone
	for rows.Next() {
		var (
			z                    domain.GeofenceZone
			zoneType, alertType  string
			coords, meta         []byte
			centerLat, centerLng *float64
		)
		err := rows.Scan(
			&z.ID, &z.Name, &zoneType, &coords, &centerLat, &centerLng,
			&z.RadiusMeters, &alertType, &z.IsActive, &meta, &z.CreatedAt, &z.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan zone row: %w", err)
		}

		z.Type = domain.ZoneType(zoneType)
		z.AlertType = domain.AlertType(alertType)
		if centerLat != nil && centerLng != nil {
			z.Center = &domain.GeoPoint{Lat: *centerLat, Lng: *centerLng}
		}
		if err := json.Unmarshal(coords, &z.Coordinates); err != nil {
			return nil, fmt.Errorf("postgres: failed to decode coordinates of %s: %w", z.ID, err)
		}
		if err := json.Unmarshal(meta, &z.Metadata); err != nil {
			return nil, fmt.Errorf("postgres: failed to decode metadata of %s: %w", z.ID, err)
		}
		results = append(results, z)
	}

	return results, rows.Err()
}

// SaveViolation inserts a new violation record
func (r *PostgresRepository) SaveViolation(ctx context.Context, v domain.GeofenceViolation) error {
	query := `
		INSERT INTO geofence_violations (
			id, vehicle_id, driver_id, zone_id, zone_name, violation_type,
			occurred_at, lat, lng, severity, acknowledged
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		v.ID, v.VehicleID, v.DriverID, v.ZoneID, v.ZoneName, string(v.ViolationType),
		v.Timestamp, v.Location.Lat, v.Location.Lng, string(v.Severity), v.Acknowledged,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save violation: %w", err)
	}
	return nil
}

const violationColumns = `
	id, vehicle_id, driver_id, zone_id, zone_name, violation_type,
	occurred_at, lat, lng, severity, acknowledged, acknowledged_by, acknowledged_at
`

// GetViolation fetches a single violation
func (r *PostgresRepository) GetViolation(ctx context.Context, id string) (domain.GeofenceViolation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+violationColumns+` FROM geofence_violations WHERE id = $1`, id)

	v, err := scanViolation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GeofenceViolation{}, domain.ErrViolationNotFound
	}
	if err != nil {
		return domain.GeofenceViolation{}, fmt.Errorf("postgres: failed to get violation: %w", err)
	}
	return v, nil
}

// ListViolations retrieves violations newest first
func (r *PostgresRepository) ListViolations(ctx context.Context, filter domain.ViolationFilter) ([]domain.GeofenceViolation, error) {
	var (
		where []string
		args  []any
	)
	if filter.VehicleID != "" {
		args = append(args, filter.VehicleID)
		where = append(where, fmt.Sprintf("vehicle_id = $%d", len(args)))
	}
	if filter.ZoneID != "" {
		args = append(args, filter.ZoneID)
		where = append(where, fmt.Sprintf("zone_id = $%d", len(args)))
	}
	if filter.UnacknowledgedOnly {
		where = append(where, "acknowledged = FALSE")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultViolationLimit
	}
	args = append(args, limit)

	query := `SELECT ` + violationColumns + ` FROM geofence_violations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY occurred_at DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query violations: %w", err)
	}
	defer rows.Close()

	var results []domain.GeofenceViolation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan violation row: %w", err)
		}
		results = append(results, v)
	}

	return results, rows.Err()
}

// AcknowledgeViolation sets the acknowledged flag if it is not already set
func (r *PostgresRepository) AcknowledgeViolation(ctx context.Context, v domain.GeofenceViolation) error {
	query := `
		UPDATE geofence_violations
		SET acknowledged = TRUE, acknowledged_by = $2, acknowledged_at = $3
		WHERE id = $1 AND acknowledged = FALSE
	`

	tag, err := r.pool.Exec(ctx, query, v.ID, v.AcknowledgedBy, v.AcknowledgedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to acknowledge violation: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := r.GetViolation(ctx, v.ID); err != nil {
		return err
	}
	return domain.ErrAlreadyAcknowledged
}

// GetProfile loads a driver behavior profile
func (r *PostgresRepository) GetProfile(ctx context.Context, driverID string) (domain.DriverBehaviorProfile, error) {
	query := `
		SELECT driver_id, average_speed, speed_variance, rest_frequency, rest_duration,
			   punctuality_score, route_adherence, historical_accuracy, updated_at
		FROM driver_profiles
		WHERE driver_id = $1
	`

	var p domain.DriverBehaviorProfile
	err := r.pool.QueryRow(ctx, query, driverID).Scan(
		&p.DriverID, &p.AverageSpeed, &p.SpeedVariance, &p.RestFrequency, &p.RestDuration,
		&p.PunctualityScore, &p.RouteAdherence, &p.HistoricalAccuracy, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DriverBehaviorProfile{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.DriverBehaviorProfile{}, fmt.Errorf("postgres: failed to get profile: %w", err)
	}
	return p, nil
}

// SaveProfile inserts or replaces a driver behavior profile
func (r *PostgresRepository) SaveProfile(ctx context.Context, p domain.DriverBehaviorProfile) error {
	query := `
		INSERT INTO driver_profiles (
			driver_id, average_speed, speed_variance, rest_frequency, rest_duration,
			punctuality_score, route_adherence, historical_accuracy, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (driver_id) DO UPDATE SET
			average_speed = EXCLUDED.average_speed,
			speed_variance = EXCLUDED.speed_variance,
			rest_frequency = EXCLUDED.rest_frequency,
			rest_duration = EXCLUDED.rest_duration,
			punctuality_score = EXCLUDED.punctuality_score,
			route_adherence = EXCLUDED.route_adherence,
			historical_accuracy = EXCLUDED.historical_accuracy,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		p.DriverID, p.AverageSpeed, p.SpeedVariance, p.RestFrequency, p.RestDuration,
		p.PunctualityScore, p.RouteAdherence, p.HistoricalAccuracy, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save profile: %w", err)
	}
	return nil
}

// SaveComplianceCheck persists a compliance evaluation to the audit log
func (r *PostgresRepository) SaveComplianceCheck(ctx context.Context, c domain.ComplianceCheck) error {
	query := `
		INSERT INTO compliance_checks (
			id, vehicle_id, input_text, axle_type, state_code, status,
			weight_lbs, applied_limit, message, checked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.VehicleID, c.InputText, string(c.Result.AxleType), c.Result.StateCode, string(c.Result.Status),
		c.Result.WeightInPounds, c.Result.AppliedLimit, c.Result.Message, c.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save compliance check: %w", err)
	}
	return nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

func scanViolation(row pgx.Row) (domain.GeofenceViolation, error) {
	var (
		v                       domain.GeofenceViolation
		violationType, severity string
	)
	err := row.Scan(
		&v.ID, &v.VehicleID, &v.DriverID, &v.ZoneID, &v.ZoneName, &violationType,
		&v.Timestamp, &v.Location.Lat, &v.Location.Lng, &severity,
		&v.Acknowledged, &v.AcknowledgedBy, &v.AcknowledgedAt,
	)
	if err != nil {
		return domain.GeofenceViolation{}, err
	}
	v.ViolationType = domain.ViolationType(violationType)
	v.Severity = domain.Severity(severity)
	return v, nil
}
