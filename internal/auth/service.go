package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetradar/fleetradar-backend/internal/config"
	"github.com/fleetradar/fleetradar-backend/internal/db"
	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned on login with an unknown email or
// wrong password. Both cases map to the same error so login does not
// leak which emails exist.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore persists and looks up accounts of both kinds
type UserStore interface {
	CreatePersonalUser(ctx context.Context, user *db.User) error
	CreateBusinessUser(ctx context.Context, user *db.User) error
	FindUserByEmail(ctx context.Context, email string) (*db.User, error)
}

// PersonalRegistration carries the fields for a personal account
type PersonalRegistration struct {
	Email        string
	Password     string
	PhoneNumber  string
	FullName     string
	IDCardNumber string
}

// BusinessRegistration carries the fields for a business account
type BusinessRegistration struct {
	Email              string
	Password           string
	PhoneNumber        string
	CompanyName        string
	RegistrationNumber string
	ManagerFullName    string
}

// Service handles registration and login for both user kinds
type Service struct {
	users      UserStore
	tokens     *TokenIssuer
	bcryptCost int
	logger     *zap.Logger
}

// NewService creates a new authentication service
func NewService(users UserStore, tokens *TokenIssuer, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// RegisterPersonal creates a personal account and returns a token for it
func (s *Service) RegisterPersonal(ctx context.Context, reg PersonalRegistration) (string, error) {
	hash, err := HashPassword(reg.Password, s.bcryptCost)
	if err != nil {
		return "", err
	}

	user := &db.User{
		Email:        reg.Email,
		PasswordHash: hash,
		PhoneNumber:  reg.PhoneNumber,
		FullName:     reg.FullName,
		IDCardNumber: reg.IDCardNumber,
	}

	if err := s.users.CreatePersonalUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to register personal user: %w", err)
	}

	s.logger.Info("personal user registered", zap.String("user_id", user.ID.String()))
	return s.tokens.Issue(user)
}

// RegisterBusiness creates a business account and returns a token for it
func (s *Service) RegisterBusiness(ctx context.Context, reg BusinessRegistration) (string, error) {
	hash, err := HashPassword(reg.Password, s.bcryptCost)
	if err != nil {
		return "", err
	}

	user := &db.User{
		Email:              reg.Email,
		PasswordHash:       hash,
		PhoneNumber:        reg.PhoneNumber,
		CompanyName:        reg.CompanyName,
		RegistrationNumber: reg.RegistrationNumber,
		ManagerFullName:    reg.ManagerFullName,
	}

	if err := s.users.CreateBusinessUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to register business user: %w", err)
	}

	s.logger.Info("business user registered", zap.String("user_id", user.ID.String()))
	return s.tokens.Issue(user)
}

// Login authenticates an email/password pair and returns a token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Issue(user)
}
