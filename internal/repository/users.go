package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetradar/fleetradar-backend/internal/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// CreatePersonalUser inserts a personal account and fills in the
// generated ID and creation time.
func (r *Repository) CreatePersonalUser(ctx context.Context, user *db.User) error {
	query := `
		INSERT INTO personal_users (email, password_hash, phone_number, full_name, id_card_number)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.PhoneNumber,
		user.FullName,
		user.IDCardNumber,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create personal user: %w", err)
	}

	user.Kind = db.UserKindPersonal
	return nil
}

// CreateBusinessUser inserts a business account and fills in the
// generated ID and creation time.
func (r *Repository) CreateBusinessUser(ctx context.Context, user *db.User) error {
	query := `
		INSERT INTO business_users (email, password_hash, phone_number, company_name, registration_number, manager_full_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.PhoneNumber,
		user.CompanyName,
		user.RegistrationNumber,
		user.ManagerFullName,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create business user: %w", err)
	}

	user.Kind = db.UserKindBusiness
	return nil
}

// FindUserByEmail looks the email up in both account tables, business
// first, matching the original login behavior.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*db.User, error) {
	businessQuery := `
		SELECT id, email, password_hash, phone_number, company_name, registration_number, manager_full_name, created_at
		FROM business_users
		WHERE email = $1
	`

	var user db.User
	err := r.pool.QueryRow(ctx, businessQuery, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.PhoneNumber,
		&user.CompanyName,
		&user.RegistrationNumber,
		&user.ManagerFullName,
		&user.CreatedAt,
	)
	if err == nil {
		user.Kind = db.UserKindBusiness
		return &user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to query business user: %w", err)
	}

	personalQuery := `
		SELECT id, email, password_hash, phone_number, full_name, id_card_number, created_at
		FROM personal_users
		WHERE email = $1
	`

	err = r.pool.QueryRow(ctx, personalQuery, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.PhoneNumber,
		&user.FullName,
		&user.IDCardNumber,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query personal user: %w", err)
	}

	user.Kind = db.UserKindPersonal
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
