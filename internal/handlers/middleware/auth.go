package middleware

import (
	"context"
	"net/http"
	"slices"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
	"github.com/nkiryanov/tenantauth/internal/handlers/render"
	"github.com/nkiryanov/tenantauth/internal/handlers/userctx"
	"github.com/nkiryanov/tenantauth/internal/models"
)

// Gate checks the request and returns it enriched, or an error that stops the pipeline
type Gate func(r *http.Request) (*http.Request, error)

type accessSource interface {
	AccessToken(r *http.Request) (string, error)
}

type refreshSource interface {
	RefreshToken(r *http.Request) (string, error)
}

type accessVerifier interface {
	VerifyAccess(ctx context.Context, access string) (models.Claims, error)
}

type refreshVerifier interface {
	VerifyRefresh(ctx context.Context, refresh string) (models.Claims, error)
}

type refreshParser interface {
	ParseRefresh(refresh string) (models.Claims, error)
}

// Pipeline runs gates in order. The first failed gate renders its error, next handler is not called
func Pipeline(gates ...Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error
			for _, gate := range gates {
				r, err = gate(r)
				if err != nil {
					render.Error(w, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate verifies access token and puts the identity to request context
func Authenticate(source accessSource, verifier accessVerifier) Gate {
	return func(r *http.Request) (*http.Request, error) {
		access, err := source.AccessToken(r)
		if err != nil {
			return r, err
		}

		claims, err := verifier.VerifyAccess(r.Context(), access)
		if err != nil {
			return r, err
		}

		return r.WithContext(userctx.New(r.Context(), claims)), nil
	}
}

// RequireRole passes only identities with one of the roles
// Has to run after Authenticate
func RequireRole(roles ...models.Role) Gate {
	return func(r *http.Request) (*http.Request, error) {
		claims, ok := userctx.FromContext(r.Context())
		if !ok {
			return r, apperrors.ErrUnauthenticated
		}
		if !slices.Contains(roles, claims.Role) {
			return r, apperrors.ErrForbidden
		}
		return r, nil
	}
}

// RequireRefresh verifies refresh token including its record and puts refresh claims to request context
func RequireRefresh(source refreshSource, verifier refreshVerifier) Gate {
	return func(r *http.Request) (*http.Request, error) {
		refresh, err := source.RefreshToken(r)
		if err != nil {
			return r, err
		}

		claims, err := verifier.VerifyRefresh(r.Context(), refresh)
		if err != nil {
			return r, err
		}

		return r.WithContext(userctx.WithRefresh(r.Context(), claims)), nil
	}
}

// ParseRefresh is RequireRefresh without record lookup, so already revoked token passes
func ParseRefresh(source refreshSource, parser refreshParser) Gate {
	return func(r *http.Request) (*http.Request, error) {
		refresh, err := source.RefreshToken(r)
		if err != nil {
			return r, err
		}

		claims, err := parser.ParseRefresh(refresh)
		if err != nil {
			return r, err
		}

		return r.WithContext(userctx.WithRefresh(r.Context(), claims)), nil
	}
}
