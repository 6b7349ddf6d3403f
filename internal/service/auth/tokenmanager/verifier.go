package tokenmanager

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
	"github.com/nkiryanov/tenantauth/internal/models"
)

// VerifyAccess checks access token signature, issuer and expiration
// Returns apperrors.ErrTokenExpired, ErrTokenMalformed or ErrTokenSignatureInvalid
func (m *TokenManager) VerifyAccess(ctx context.Context, access string) (models.Claims, error) {
	claims, err := m.parseSigned(access, jwt.SigningMethodRS256, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no key id")
		}
		return m.keySet.PublicKey(ctx, kid)
	})
	if err != nil {
		return models.Claims{}, err
	}

	return claims.toModel(false)
}

// ParseRefresh checks refresh token signature and expiration only
// The refresh record is not looked up, so revoked token passes
func (m *TokenManager) ParseRefresh(refresh string) (models.Claims, error) {
	claims, err := m.parseSigned(refresh, jwt.SigningMethodHS256, func(*jwt.Token) (any, error) {
		return m.keys.refreshSecret, nil
	})
	if err != nil {
		return models.Claims{}, err
	}

	return claims.toModel(true)
}

// VerifyRefresh checks refresh token and that its record is still alive
// Returns apperrors.ErrRefreshTokenRevoked if the record is gone
func (m *TokenManager) VerifyRefresh(ctx context.Context, refresh string) (models.Claims, error) {
	claims, err := m.ParseRefresh(refresh)
	if err != nil {
		return claims, err
	}

	record, err := m.refreshRepo.Get(ctx, claims.RefreshID)
	switch {
	case errors.Is(err, apperrors.ErrRefreshTokenNotFound):
		return models.Claims{}, apperrors.ErrRefreshTokenRevoked
	case err != nil:
		return models.Claims{}, fmt.Errorf("error while loading refresh record. Err: %w", err)
	case record.UserID != claims.UserID:
		return models.Claims{}, apperrors.ErrRefreshTokenRevoked
	}

	return claims, nil
}

// parseSigned is the signature check both verification paths share
// No leeway: token is expired at the second its 'exp' claim names
func (m *TokenManager) parseSigned(value string, method jwt.SigningMethod, keyFunc jwt.Keyfunc) (*tokenClaims, error) {
	claims := &tokenClaims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	_, err := parser.ParseWithClaims(value, claims, keyFunc)
	if err != nil {
		return nil, classify(err)
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", apperrors.ErrTokenSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", apperrors.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", apperrors.ErrTokenMalformed, err)
	}
}
