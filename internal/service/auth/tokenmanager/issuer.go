package tokenmanager

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/tenantauth/internal/models"
	"github.com/nkiryanov/tenantauth/internal/repository"
)

// IssueAccessToken signs short living token with the private key
// Only UserID and Role of subject are used
func (m *TokenManager) IssueAccessToken(subject models.Claims) (models.IssuedToken, error) {
	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(subject.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: string(subject.Role),
	})
	token.Header["kid"] = m.keys.KeyID()

	value, err := token.SignedString(m.keys.signingKey)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.IssuedToken{Value: value, IssuedAt: now, ExpiresAt: expiresAt}, nil
}

// IssueRefreshToken signs long living token pointing to the refresh record
func (m *TokenManager) IssueRefreshToken(subject models.Claims, recordID int64) (models.IssuedToken, error) {
	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(m.refreshTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        strconv.FormatInt(recordID, 10),
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(subject.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: string(subject.Role),
	})

	value, err := token.SignedString(m.keys.refreshSecret)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing refresh token. Err: %w", err)
	}

	return models.IssuedToken{Value: value, IssuedAt: now, ExpiresAt: expiresAt}, nil
}

// IssuePair creates refresh record first and signs tokens after
// If signing fails the record is revoked so no orphan session stays alive
func (m *TokenManager) IssuePair(ctx context.Context, user models.User) (models.TokenPair, error) {
	return m.IssuePairIn(ctx, m.refreshRepo, user)
}

// IssuePairIn is IssuePair that stores the refresh record in the given repo
// Used to issue tokens inside a storage transaction
func (m *TokenManager) IssuePairIn(ctx context.Context, repo repository.RefreshTokenRepo, user models.User) (models.TokenPair, error) {
	subject := models.Claims{UserID: user.ID, Role: user.Role}

	record, err := m.createRefreshRecord(ctx, repo, user.ID)
	if err != nil {
		return models.TokenPair{}, err
	}

	access, err := m.IssueAccessToken(subject)
	if err == nil {
		var refresh models.IssuedToken
		refresh, err = m.IssueRefreshToken(subject, record.ID)
		if err == nil {
			return models.TokenPair{Access: access, Refresh: refresh, RecordID: record.ID}, nil
		}
	}

	_, _ = repo.Delete(ctx, record.ID)
	return models.TokenPair{}, err
}
