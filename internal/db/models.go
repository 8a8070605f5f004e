package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors shared by the repository and the services consuming it.
var (
	// ErrNotFound is returned when a requested entity does not exist or is
	// not visible to the requesting user.
	ErrNotFound = errors.New("not found")

	// ErrNotBound is returned when no vehicle is mapped to a device.
	ErrNotBound = errors.New("device not bound to a vehicle")

	// ErrDuplicateEmail is returned when registering an email that is
	// already taken by either user kind.
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserKind distinguishes the two account types.
type UserKind string

const (
	UserKindPersonal UserKind = "personal"
	UserKindBusiness UserKind = "business"
)

// User represents an account of either kind. Kind-specific fields are
// empty for the other kind.
type User struct {
	ID           uuid.UUID
	Kind         UserKind
	Email        string
	PasswordHash string
	PhoneNumber  string

	// personal accounts
	FullName     string
	IDCardNumber string

	// business accounts
	CompanyName        string
	RegistrationNumber string
	ManagerFullName    string

	CreatedAt time.Time
}

// Vehicle represents a tracked vehicle owned by a user
type Vehicle struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	CreatedAt time.Time
}

// TrackingRecord represents a persisted position report for a vehicle.
// Telemetry fields are pointers: absence at the wire boundary maps to
// NULL, never to zero.
type TrackingRecord struct {
	ID             uuid.UUID
	VehicleID      uuid.UUID
	Latitude       *float64
	Longitude      *float64
	Speed          *float64
	Altitude       *float64
	BatteryLevel   *float64
	SignalStrength *string
	Temperature    *float64
	RecordedAt     time.Time
	CreatedAt      time.Time
}

// DeviceBinding maps a Notecard device identifier to a vehicle
type DeviceBinding struct {
	DeviceID  string
	VehicleID uuid.UUID
	CreatedAt time.Time
}
