package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
	"github.com/nkiryanov/tenantauth/internal/events"
	"github.com/nkiryanov/tenantauth/internal/logger"
	"github.com/nkiryanov/tenantauth/internal/models"
	"github.com/nkiryanov/tenantauth/internal/repository"
)

// Interface to create or verify user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare user provided password with known hash
	// Must be protected against timing attacks and never fail on malformed hash
	Verify(password string, hashedPassword string) bool
}

type TokenManager interface {
	// Persist refresh record and sign both tokens
	IssuePair(ctx context.Context, user models.User) (models.TokenPair, error)

	// Same as IssuePair but the record is stored in the given repo
	IssuePairIn(ctx context.Context, repo repository.RefreshTokenRepo, user models.User) (models.TokenPair, error)

	// Revoke refresh record; revoked is false if it was gone already
	Revoke(ctx context.Context, recordID int64) (revoked bool, err error)
}

type LoginThrottle interface {
	// Has to return apperrors.ErrLoginThrottled if attempts are over
	Check(ctx context.Context, email string) error
	Fail(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

type Config struct {
	// Hasher to use during user registration or login process
	Hasher PasswordHasher

	// Failed login counter, no throttling if not set
	Throttle LoginThrottle

	// Events sink, events are dropped if not set
	Events events.Publisher

	Logger logger.Logger

	// Role given on registration
	DefaultRole models.Role
}

type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type AuthService struct {
	tokens  TokenManager
	storage repository.Storage
	users   repository.UserRepo

	hasher      PasswordHasher
	throttle    LoginThrottle
	events      events.Publisher
	logger      logger.Logger
	defaultRole models.Role

	// Hash compared against when email is unknown, so both failures take same time
	dummyHash func() string
}

func NewService(cfg Config, tokens TokenManager, storage repository.Storage) (*AuthService, error) {
	if cfg.Hasher == nil {
		cfg.Hasher = BcryptHasher{}
	}
	if cfg.Throttle == nil {
		cfg.Throttle = noThrottle{}
	}
	if cfg.Events == nil {
		cfg.Events = events.NoopPublisher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = models.RoleCustomer
	}
	if _, ok := models.ParseRole(string(cfg.DefaultRole)); !ok {
		return nil, fmt.Errorf("unknown default role %q", cfg.DefaultRole)
	}

	var users repository.UserRepo
	if storage != nil {
		users = storage.User()
	}

	hasher := cfg.Hasher
	return &AuthService{
		tokens:      tokens,
		storage:     storage,
		users:       users,
		hasher:      hasher,
		throttle:    cfg.Throttle,
		events:      cfg.Events,
		logger:      cfg.Logger,
		defaultRole: cfg.DefaultRole,
		dummyHash: sync.OnceValue(func() string {
			hash, _ := hasher.Hash("not-a-real-password")
			return hash
		}),
	}, nil
}

// Register creates user with default role and issues the first token pair
// User and refresh record are stored in one transaction: no user without session stays if issuing fails
// Has to return apperrors.ErrUserAlreadyExists if the email is taken
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (models.User, models.TokenPair, error) {
	s.logger.Debug("New request to register a user",
		"firstName", p.FirstName, "lastName", p.LastName, "email", p.Email)

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return models.User{}, models.TokenPair{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	var (
		user models.User
		pair models.TokenPair
	)
	err = s.storage.InTx(ctx, func(tx repository.Storage) error {
		var err error
		user, err = tx.User().CreateUser(ctx, repository.CreateUserParams{
			FirstName:    p.FirstName,
			LastName:     p.LastName,
			Email:        p.Email,
			PasswordHash: hash,
			Role:         s.defaultRole,
		})
		if err != nil {
			return err
		}

		pair, err = s.tokens.IssuePairIn(ctx, tx.Refresh(), user)
		if err != nil {
			return fmt.Errorf("token could not generated, sorry. %w", err)
		}
		return nil
	})
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	s.logger.Info("User has been registered", "id", user.ID)
	s.publish(ctx, events.TypeUserRegistered, user.ID)

	return user, pair, nil
}

// Login checks credentials and issues new token pair
// Unknown email and wrong password both return apperrors.ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error) {
	s.logger.Debug("New request to login a user", "email", email)

	if err := s.throttle.Check(ctx, email); err != nil {
		if errors.Is(err, apperrors.ErrLoginThrottled) {
			return models.User{}, models.TokenPair{}, err
		}
		s.logger.Warn("Login throttle check failed", "error", err)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		s.hasher.Verify(password, s.dummyHash())
		s.loginFailed(ctx, email)
		return models.User{}, models.TokenPair{}, apperrors.ErrInvalidCredentials
	case err != nil:
		return models.User{}, models.TokenPair{}, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailed(ctx, email)
		return models.User{}, models.TokenPair{}, apperrors.ErrInvalidCredentials
	}

	if err := s.throttle.Reset(ctx, email); err != nil {
		s.logger.Warn("Login throttle reset failed", "error", err)
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		return models.User{}, models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	s.logger.Info("User has been logged in", "id", user.ID)
	s.publish(ctx, events.TypeUserLoggedIn, user.ID)

	return user, pair, nil
}

// Refresh rotates token pair for verified refresh claims
// New pair is minted before the old record is revoked. If the old record is already gone
// (concurrent refresh won) the new record is revoked too and apperrors.ErrRefreshTokenRevoked returned
func (s *AuthService) Refresh(ctx context.Context, claims models.Claims) (models.TokenPair, error) {
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.TokenPair{}, apperrors.ErrRefreshTokenRevoked
	case err != nil:
		return models.TokenPair{}, err
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	revoked, err := s.tokens.Revoke(ctx, claims.RefreshID)
	if err != nil || !revoked {
		if _, rerr := s.tokens.Revoke(ctx, pair.RecordID); rerr != nil {
			s.logger.Error("Failed to revoke refresh record of lost rotation", "record_id", pair.RecordID, "error", rerr)
		}
		if err != nil {
			return models.TokenPair{}, err
		}
		return models.TokenPair{}, apperrors.ErrRefreshTokenRevoked
	}

	s.logger.Info("Session has been refreshed", "id", user.ID, "record_id", pair.RecordID)
	s.publish(ctx, events.TypeSessionRefreshed, user.ID)

	return pair, nil
}

// Logout revokes refresh record, idempotent
// Access token stays valid until it expires
func (s *AuthService) Logout(ctx context.Context, claims models.Claims) error {
	revoked, err := s.tokens.Revoke(ctx, claims.RefreshID)
	if err != nil {
		return err
	}

	if revoked {
		s.logger.Info("User has been logged out", "id", claims.UserID)
		s.publish(ctx, events.TypeSessionRevoked, claims.UserID)
	}

	return nil
}

// Self returns user by id
func (s *AuthService) Self(ctx context.Context, userID int64) (models.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s *AuthService) loginFailed(ctx context.Context, email string) {
	if err := s.throttle.Fail(ctx, email); err != nil {
		s.logger.Warn("Login throttle update failed", "error", err)
	}
}

// Events are best effort: request never fails because of them
func (s *AuthService) publish(ctx context.Context, eventType string, userID int64) {
	if err := s.events.Publish(ctx, events.NewEvent(eventType, userID)); err != nil {
		s.logger.Warn("Failed to publish event", "type", eventType, "error", err)
	}
}

type noThrottle struct{}

func (noThrottle) Check(context.Context, string) error { return nil }
func (noThrottle) Fail(context.Context, string) error  { return nil }
func (noThrottle) Reset(context.Context, string) error { return nil }
