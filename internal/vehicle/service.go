package vehicle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetradar/fleetradar-backend/internal/db"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Store persists vehicles and their tracking history
type Store interface {
	CreateVehicle(ctx context.Context, vehicle *db.Vehicle) error
	VehiclesByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]db.Vehicle, error)
	VehicleByIDAndOwner(ctx context.Context, vehicleID, ownerID uuid.UUID) (*db.Vehicle, error)
	DeleteVehicleByIDAndOwner(ctx context.Context, vehicleID, ownerID uuid.UUID) error
	TrackingHistory(ctx context.Context, vehicleID uuid.UUID, from, to time.Time, limit, offset int) ([]db.TrackingRecord, error)
	RecentSince(ctx context.Context, vehicleID uuid.UUID, since time.Time) ([]db.TrackingRecord, error)
	LatestForVehicles(ctx context.Context, vehicleIDs []uuid.UUID) ([]db.TrackingRecord, error)
	BindDevice(ctx context.Context, deviceID string, vehicleID uuid.UUID) error
	UnbindDevice(ctx context.Context, deviceID string) error
}

// Service handles vehicle CRUD and tracking history queries, always
// scoped to the owning user.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a new vehicle service
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// AddVehicle creates a vehicle owned by the given user
func (s *Service) AddVehicle(ctx context.Context, ownerID uuid.UUID, name string) (*db.Vehicle, error) {
	vehicle := &db.Vehicle{
		OwnerID: ownerID,
		Name:    name,
	}

	if err := s.store.CreateVehicle(ctx, vehicle); err != nil {
		return nil, err
	}

	s.logger.Info("vehicle created",
		zap.String("vehicle_id", vehicle.ID.String()),
		zap.String("owner_id", ownerID.String()),
	)

	return vehicle, nil
}

// UserVehicles lists the owner's vehicles
func (s *Service) UserVehicles(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]db.Vehicle, error) {
	return s.store.VehiclesByOwner(ctx, ownerID, clampPageSize(limit), max(offset, 0))
}

// GetVehicle returns the vehicle only if it belongs to the owner
func (s *Service) GetVehicle(ctx context.Context, vehicleID, ownerID uuid.UUID) (*db.Vehicle, error) {
	return s.store.VehicleByIDAndOwner(ctx, vehicleID, ownerID)
}

// DeleteVehicle removes the vehicle only if it belongs to the owner
func (s *Service) DeleteVehicle(ctx context.Context, vehicleID, ownerID uuid.UUID) error {
	if err := s.store.DeleteVehicleByIDAndOwner(ctx, vehicleID, ownerID); err != nil {
		return err
	}

	s.logger.Info("vehicle deleted",
		zap.String("vehicle_id", vehicleID.String()),
		zap.String("owner_id", ownerID.String()),
	)

	return nil
}

// TrackingHistory returns the vehicle's records within [from, to],
// after verifying ownership.
func (s *Service) TrackingHistory(ctx context.Context, vehicleID, ownerID uuid.UUID, from, to time.Time, limit, offset int) ([]db.TrackingRecord, error) {
	if _, err := s.store.VehicleByIDAndOwner(ctx, vehicleID, ownerID); err != nil {
		return nil, err
	}

	return s.store.TrackingHistory(ctx, vehicleID, from, to, clampPageSize(limit), max(offset, 0))
}

// RecentTracking returns the vehicle's records since the given time,
// after verifying ownership.
func (s *Service) RecentTracking(ctx context.Context, vehicleID, ownerID uuid.UUID, since time.Time) ([]db.TrackingRecord, error) {
	if _, err := s.store.VehicleByIDAndOwner(ctx, vehicleID, ownerID); err != nil {
		return nil, err
	}

	return s.store.RecentSince(ctx, vehicleID, since)
}

// LatestTracking returns the newest record for each of the owner's
// requested vehicles. Vehicles not owned by the user are skipped.
func (s *Service) LatestTracking(ctx context.Context, ownerID uuid.UUID, vehicleIDs []uuid.UUID) ([]db.TrackingRecord, error) {
	var owned []uuid.UUID
	for _, id := range vehicleIDs {
		if _, err := s.store.VehicleByIDAndOwner(ctx, id, ownerID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				continue
			}
			return nil, err
		}
		owned = append(owned, id)
	}

	if len(owned) == 0 {
		return nil, nil
	}

	return s.store.LatestForVehicles(ctx, owned)
}

// BindDevice maps a Notecard device to one of the owner's vehicles
func (s *Service) BindDevice(ctx context.Context, ownerID uuid.UUID, vehicleID uuid.UUID, deviceID string) error {
	if _, err := s.store.VehicleByIDAndOwner(ctx, vehicleID, ownerID); err != nil {
		return err
	}

	if err := s.store.BindDevice(ctx, deviceID, vehicleID); err != nil {
		return fmt.Errorf("failed to bind device %q: %w", deviceID, err)
	}

	s.logger.Info("device bound to vehicle",
		zap.String("device_id", deviceID),
		zap.String("vehicle_id", vehicleID.String()),
	)

	return nil
}

// UnbindDevice removes a device binding for one of the owner's vehicles
func (s *Service) UnbindDevice(ctx context.Context, ownerID uuid.UUID, vehicleID uuid.UUID, deviceID string) error {
	if _, err := s.store.VehicleByIDAndOwner(ctx, vehicleID, ownerID); err != nil {
		return err
	}

	return s.store.UnbindDevice(ctx, deviceID)
}

func clampPageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
