// Package memory keeps repositories in process memory.
// Used by unit tests and by local runs without database.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
	"github.com/nkiryanov/tenantauth/internal/models"
	"github.com/nkiryanov/tenantauth/internal/repository"
)

type Storage struct {
	mu sync.Mutex
	// Serializes InTx calls
	txMu sync.Mutex

	users    map[int64]models.User
	refresh  map[int64]models.RefreshToken
	tenants  map[int64]models.Tenant
	sequence int64

	now func() time.Time
}

func NewStorage() *Storage {
	return &Storage{
		users:   make(map[int64]models.User),
		refresh: make(map[int64]models.RefreshToken),
		tenants: make(map[int64]models.Tenant),
		now:     time.Now,
	}
}

func (s *Storage) User() repository.UserRepo {
	return (*userRepo)(s)
}

func (s *Storage) Refresh() repository.RefreshTokenRepo {
	return (*refreshRepo)(s)
}

func (s *Storage) Tenant() repository.TenantRepo {
	return (*tenantRepo)(s)
}

// InTx runs fn against the same storage and restores the snapshot taken before fn if it fails
// Writes made outside of InTx while fn runs are lost on rollback
func (s *Storage) InTx(_ context.Context, fn func(repository.Storage) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := snapshot{
		users:   maps.Clone(s.users),
		refresh: maps.Clone(s.refresh),
		tenants: maps.Clone(s.tenants),
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.users, s.refresh, s.tenants = snap.users, snap.refresh, snap.tenants
		s.mu.Unlock()
		return err
	}

	return nil
}

// Sequence is not a part of snapshot: ids are never reused, the same as with database sequences
type snapshot struct {
	users   map[int64]models.User
	refresh map[int64]models.RefreshToken
	tenants map[int64]models.Tenant
}

// UserCount returns count of stored users
func (s *Storage) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// RefreshCount returns count of stored refresh records
func (s *Storage) RefreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refresh)
}

func (s *Storage) nextID() int64 {
	s.sequence++
	return s.sequence
}

type userRepo Storage

func (r *userRepo) CreateUser(_ context.Context, arg repository.CreateUserParams) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == arg.Email {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	user := models.User{
		ID:           (*Storage)(r).nextID(),
		CreatedAt:    r.now(),
		FirstName:    arg.FirstName,
		LastName:     arg.LastName,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Role:         arg.Role,
	}
	r.users[user.ID] = user

	return user, nil
}

func (r *userRepo) GetUserByID(_ context.Context, userID int64) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return user, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (r *userRepo) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

type refreshRepo Storage

func (r *refreshRepo) Create(_ context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token.ID = (*Storage)(r).nextID()
	r.refresh[token.ID] = token

	return token, nil
}

func (r *refreshRepo) Get(_ context.Context, id int64) (models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.refresh[id]
	if !ok {
		return token, apperrors.ErrRefreshTokenNotFound
	}
	return token, nil
}

func (r *refreshRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.refresh[id]
	delete(r.refresh, id)

	return ok, nil
}

func (r *refreshRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for id, token := range r.refresh {
		if !token.ExpiresAt.After(before) {
			delete(r.refresh, id)
			count++
		}
	}
	return count, nil
}

type tenantRepo Storage

func (r *tenantRepo) CreateTenant(_ context.Context, name string, address string) (models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant := models.Tenant{
		ID:        (*Storage)(r).nextID(),
		CreatedAt: r.now(),
		Name:      name,
		Address:   address,
	}
	r.tenants[tenant.ID] = tenant

	return tenant, nil
}

func (r *tenantRepo) GetTenant(_ context.Context, id int64) (models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, ok := r.tenants[id]
	if !ok {
		return tenant, apperrors.ErrTenantNotFound
	}
	return tenant, nil
}
