package tokenmanager

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
	"github.com/nkiryanov/tenantauth/internal/models"
)

// Claims of both access and refresh tokens
// For refresh tokens 'jti' is the refresh record id
type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (c *tokenClaims) toModel(refresh bool) (models.Claims, error) {
	var claims models.Claims

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return claims, apperrors.ErrTokenMalformed
	}

	role, ok := models.ParseRole(c.Role)
	if !ok {
		return claims, apperrors.ErrTokenMalformed
	}

	claims.UserID = userID
	claims.Role = role
	// NumericDate is decoded in local time zone
	claims.ExpiresAt = c.ExpiresAt.Time.UTC()
	if c.IssuedAt != nil {
		claims.IssuedAt = c.IssuedAt.Time.UTC()
	}

	if refresh {
		recordID, err := strconv.ParseInt(c.ID, 10, 64)
		if err != nil || recordID <= 0 {
			return models.Claims{}, apperrors.ErrTokenMalformed
		}
		claims.RefreshID = recordID
	}

	return claims, nil
}
