package repository

import (
	"context"
	"time"

	"github.com/nkiryanov/tenantauth/internal/models"
)

type CreateUserParams struct {
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         models.Role
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by it's id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// RefreshToken repository interface
// A record existence is the only thing that keeps refresh token valid
type RefreshTokenRepo interface {
	// Create record and return it with assigned id
	Create(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return the record
	// If the record not exists must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, id int64) (models.RefreshToken, error)

	// Delete the record
	// Must be idempotent: deleting absent record is not an error
	// deleted is true only for the caller that actually removed the record
	Delete(ctx context.Context, id int64) (deleted bool, err error)

	// Delete records expired before the moment, return count of deleted
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type TenantRepo interface {
	CreateTenant(ctx context.Context, name string, address string) (models.Tenant, error)

	// If tenant not found must return apperrors.ErrTenantNotFound
	GetTenant(ctx context.Context, id int64) (models.Tenant, error)
}

type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Tenant() TenantRepo

	// Run fn in transaction. Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
