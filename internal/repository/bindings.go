package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetradar/fleetradar-backend/internal/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ResolveVehicleForDevice looks up the vehicle bound to a Notecard
// device. Returns db.ErrNotBound when no binding exists.
func (r *Repository) ResolveVehicleForDevice(ctx context.Context, deviceID string) (uuid.UUID, error) {
	query := `
		SELECT vehicle_id
		FROM device_bindings
		WHERE device_id = $1
	`

	var vehicleID uuid.UUID
	err := r.pool.QueryRow(ctx, query, deviceID).Scan(&vehicleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, db.ErrNotBound
		}
		return uuid.Nil, fmt.Errorf("failed to query device binding: %w", err)
	}

	return vehicleID, nil
}

// BindDevice maps a device to a vehicle, replacing any prior binding
// for that device.
func (r *Repository) BindDevice(ctx context.Context, deviceID string, vehicleID uuid.UUID) error {
	query := `
		INSERT INTO device_bindings (device_id, vehicle_id)
		VALUES ($1, $2)
		ON CONFLICT (device_id) DO UPDATE SET vehicle_id = EXCLUDED.vehicle_id
	`

	if _, err := r.pool.Exec(ctx, query, deviceID, vehicleID); err != nil {
		return fmt.Errorf("failed to bind device: %w", err)
	}

	return nil
}

// UnbindDevice removes the binding for a device
func (r *Repository) UnbindDevice(ctx context.Context, deviceID string) error {
	query := `
		DELETE FROM device_bindings
		WHERE device_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, deviceID)
	if err != nil {
		return fmt.Errorf("failed to unbind device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotBound
	}

	return nil
}
