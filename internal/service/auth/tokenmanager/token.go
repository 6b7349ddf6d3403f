package tokenmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkiryanov/tenantauth/internal/models"
	"github.com/nkiryanov/tenantauth/internal/repository"
)

const (
	defaultIssuer          = "auth-service"
	defaultAccessTokenTTL  = time.Hour
	defaultRefreshTokenTTL = 365 * 24 * time.Hour
)

// Token manager with sensible defaults
type Config struct {
	// Value of 'iss' claim, checked on verification
	Issuer string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Keys to verify access tokens
	// If not set than public part of the key material is used
	KeySet KeySet

	// Clock, time.Now if not set
	Now func() time.Time
}

type TokenManager struct {
	keys   *KeyMaterial
	keySet KeySet

	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	// Refresh records repo
	refreshRepo repository.RefreshTokenRepo
}

func New(cfg Config, keys *KeyMaterial, refreshRepo repository.RefreshTokenRepo) (*TokenManager, error) {
	if keys == nil {
		return nil, errors.New("key material must not be nil")
	}

	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.KeySet == nil {
		cfg.KeySet = keys.PublicKeys()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		keys:        keys,
		keySet:      cfg.KeySet,
		issuer:      cfg.Issuer,
		accessTTL:   cfg.AccessTTL,
		refreshTTL:  cfg.RefreshTTL,
		now:         cfg.Now,
		refreshRepo: refreshRepo,
	}, nil
}

// CreateRefreshRecord persists new refresh record for the user valid for refresh TTL
func (m *TokenManager) CreateRefreshRecord(ctx context.Context, userID int64) (models.RefreshToken, error) {
	return m.createRefreshRecord(ctx, m.refreshRepo, userID)
}

func (m *TokenManager) createRefreshRecord(ctx context.Context, repo repository.RefreshTokenRepo, userID int64) (models.RefreshToken, error) {
	now := m.now().Truncate(time.Second)

	record, err := repo.Create(ctx, models.RefreshToken{
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.refreshTTL),
	})
	if err != nil {
		return record, fmt.Errorf("error while saving refresh record. Err: %w", err)
	}

	return record, nil
}

// Revoke deletes refresh record
// Idempotent, revoked is false if the record was already gone
func (m *TokenManager) Revoke(ctx context.Context, recordID int64) (revoked bool, err error) {
	revoked, err = m.refreshRepo.Delete(ctx, recordID)
	if err != nil {
		return false, fmt.Errorf("error while revoking refresh record. Err: %w", err)
	}
	return revoked, nil
}

// PurgeExpired removes refresh records that can't be used anymore
func (m *TokenManager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.refreshRepo.DeleteExpired(ctx, m.now())
}
