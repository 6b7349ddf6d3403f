package render

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
)

type taxonomyEntry struct {
	target  error
	status  int
	reason  string
	message string
}

// Order matters: first matching entry wins
var taxonomy = []taxonomyEntry{
	{apperrors.ErrInvalidCredentials, http.StatusBadRequest, "invalid_credentials", "Email or password does not match"},
	{apperrors.ErrUserAlreadyExists, http.StatusBadRequest, "user_exists", "User already exists"},
	{apperrors.ErrRefreshTokenRevoked, http.StatusUnauthorized, "revoked", "Refresh token is revoked"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, "unauthenticated", "Token is expired"},
	{apperrors.ErrTokenMalformed, http.StatusUnauthorized, "unauthenticated", "Token is malformed"},
	{apperrors.ErrTokenSignatureInvalid, http.StatusUnauthorized, "unauthenticated", "Token signature is invalid"},
	{apperrors.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", "Authentication required"},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "Not enough permissions"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, "not_found", "User not found"},
	{apperrors.ErrTenantNotFound, http.StatusNotFound, "not_found", "Tenant not found"},
	{apperrors.ErrLoginThrottled, http.StatusTooManyRequests, "too_many_attempts", "Too many failed login attempts, try later"},
}

var internalError = taxonomyEntry{
	status:  http.StatusInternalServerError,
	reason:  "internal_error",
	message: "Internal server error",
}

func lookup(err error) taxonomyEntry {
	for _, entry := range taxonomy {
		if errors.Is(err, entry.target) {
			return entry
		}
	}
	return internalError
}

// StatusCode returns HTTP status the error is rendered with
func StatusCode(err error) int {
	return lookup(err).status
}
