package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetradar/fleetradar-backend/internal/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateVehicle inserts a vehicle for its owner and fills in the
// generated ID and creation time.
func (r *Repository) CreateVehicle(ctx context.Context, vehicle *db.Vehicle) error {
	query := `
		INSERT INTO vehicles (owner_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, vehicle.OwnerID, vehicle.Name).
		Scan(&vehicle.ID, &vehicle.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	return nil
}

// VehiclesByOwner returns the owner's vehicles ordered by creation time
func (r *Repository) VehiclesByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]db.Vehicle, error) {
	query := `
		SELECT id, owner_id, name, created_at
		FROM vehicles
		WHERE owner_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []db.Vehicle
	for rows.Next() {
		var v db.Vehicle
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Name, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return vehicles, nil
}

// VehicleByIDAndOwner returns the vehicle only if it belongs to the owner
func (r *Repository) VehicleByIDAndOwner(ctx context.Context, vehicleID, ownerID uuid.UUID) (*db.Vehicle, error) {
	query := `
		SELECT id, owner_id, name, created_at
		FROM vehicles
		WHERE id = $1 AND owner_id = $2
	`

	var v db.Vehicle
	err := r.pool.QueryRow(ctx, query, vehicleID, ownerID).
		Scan(&v.ID, &v.OwnerID, &v.Name, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query vehicle: %w", err)
	}

	return &v, nil
}

// DeleteVehicleByIDAndOwner deletes the vehicle only if it belongs to the owner
func (r *Repository) DeleteVehicleByIDAndOwner(ctx context.Context, vehicleID, ownerID uuid.UUID) error {
	query := `
		DELETE FROM vehicles
		WHERE id = $1 AND owner_id = $2
	`

	tag, err := r.pool.Exec(ctx, query, vehicleID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}

	return nil
}
