package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetradar/fleetradar-backend/internal/db"
	"github.com/google/uuid"
)

const trackingColumns = `
	id, vehicle_id, latitude, longitude, speed, altitude,
	battery_level, signal_strength, temperature, recorded_at, created_at
`

// AppendTrackingRecord persists a position report for a vehicle and
// returns the record with its persistence-assigned identifier.
func (r *Repository) AppendTrackingRecord(ctx context.Context, vehicleID uuid.UUID, record *db.TrackingRecord) (*db.TrackingRecord, error) {
	query := `
		INSERT INTO tracking_records (
			vehicle_id, latitude, longitude, speed, altitude,
			battery_level, signal_strength, temperature, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	stored := *record
	stored.VehicleID = vehicleID
	err := r.pool.QueryRow(ctx, query,
		vehicleID,
		record.Latitude,
		record.Longitude,
		record.Speed,
		record.Altitude,
		record.BatteryLevel,
		record.SignalStrength,
		record.Temperature,
		record.RecordedAt,
	).Scan(&stored.ID, &stored.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to insert tracking record: %w", err)
	}

	return &stored, nil
}

// TrackingHistory returns records for a vehicle within [from, to]
func (r *Repository) TrackingHistory(ctx context.Context, vehicleID uuid.UUID, from, to time.Time, limit, offset int) ([]db.TrackingRecord, error) {
	query := `
		SELECT ` + trackingColumns + `
		FROM tracking_records
		WHERE vehicle_id = $1 AND recorded_at BETWEEN $2 AND $3
		ORDER BY recorded_at DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.pool.Query(ctx, query, vehicleID, from, to, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking history: %w", err)
	}
	defer rows.Close()

	return scanTrackingRecords(rows)
}

// RecentSince returns records for a vehicle newer than the given time
func (r *Repository) RecentSince(ctx context.Context, vehicleID uuid.UUID, since time.Time) ([]db.TrackingRecord, error) {
	query := `
		SELECT ` + trackingColumns + `
		FROM tracking_records
		WHERE vehicle_id = $1 AND recorded_at > $2
		ORDER BY recorded_at
	`

	rows, err := r.pool.Query(ctx, query, vehicleID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent tracking records: %w", err)
	}
	defer rows.Close()

	return scanTrackingRecords(rows)
}

// LatestForVehicles returns the newest record per vehicle
func (r *Repository) LatestForVehicles(ctx context.Context, vehicleIDs []uuid.UUID) ([]db.TrackingRecord, error) {
	query := `
		SELECT DISTINCT ON (vehicle_id) ` + trackingColumns + `
		FROM tracking_records
		WHERE vehicle_id = ANY($1)
		ORDER BY vehicle_id, recorded_at DESC
	`

	rows, err := r.pool.Query(ctx, query, vehicleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest tracking records: %w", err)
	}
	defer rows.Close()

	return scanTrackingRecords(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTrackingRecords(rows pgxRows) ([]db.TrackingRecord, error) {
	var records []db.TrackingRecord
	for rows.Next() {
		var rec db.TrackingRecord
		err := rows.Scan(
			&rec.ID,
			&rec.VehicleID,
			&rec.Latitude,
			&rec.Longitude,
			&rec.Speed,
			&rec.Altitude,
			&rec.BatteryLevel,
			&rec.SignalStrength,
			&rec.Temperature,
			&rec.RecordedAt,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracking record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}
