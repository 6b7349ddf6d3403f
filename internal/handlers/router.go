package handlers

import (
	"context"
	"net/http"

	"github.com/nkiryanov/tenantauth/internal/handlers/middleware"
	"github.com/nkiryanov/tenantauth/internal/handlers/render"
	"github.com/nkiryanov/tenantauth/internal/logger"
	"github.com/nkiryanov/tenantauth/internal/models"
	"github.com/nkiryanov/tenantauth/internal/service/auth"
	"github.com/nkiryanov/tenantauth/internal/service/jwks"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	tenantService tenantService,
	tokens tokenVerifier,
	carrier auth.CookieCarrier,
	keys jwks.Set,
	logger logger.Logger,
) http.Handler {
	authenticate := middleware.Authenticate(carrier, tokens)

	withAuth := middleware.Pipeline(authenticate)
	withRefresh := middleware.Pipeline(middleware.RequireRefresh(carrier, tokens))
	withLogout := middleware.Pipeline(authenticate, middleware.ParseRefresh(carrier, tokens))
	adminOnly := middleware.Pipeline(authenticate, middleware.RequireRole(models.RoleAdmin))
	staffOnly := middleware.Pipeline(authenticate, middleware.RequireRole(models.RoleAdmin, models.RoleManager))

	apiauth := http.NewServeMux()
	apiauth.Handle("POST /register", handleRegister(authService, carrier, logger))
	apiauth.Handle("POST /login", handleLogin(authService, carrier, logger))
	apiauth.Handle("GET /self", withAuth(handleSelf(authService, logger)))
	apiauth.Handle("POST /refresh", withRefresh(handleRefresh(authService, carrier, logger)))
	apiauth.Handle("POST /logout", withLogout(handleLogout(authService, carrier, logger)))

	root := http.NewServeMux()
	root.Handle("/auth/", http.StripPrefix("/auth", apiauth))
	root.Handle("POST /tenants", adminOnly(handleCreateTenant(tenantService, logger)))
	root.Handle("GET /tenants/{id}", staffOnly(handleGetTenant(tenantService, logger)))
	root.Handle("GET /.well-known/jwks.json", handleJWKS(keys))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

// Render error and log it if it's not an expected one
func renderError(w http.ResponseWriter, l logger.Logger, err error) {
	if render.StatusCode(err) >= http.StatusInternalServerError {
		l.Error("Request failed", "error", err)
	}
	render.Error(w, err)
}

type authService interface {
	// Register user with customer role
	// Has to return apperrors.ErrUserAlreadyExists if email is taken
	Register(ctx context.Context, p auth.RegisterParams) (models.User, models.TokenPair, error)

	// Login user with email and password
	// Has to return apperrors.ErrInvalidCredentials if email unknown or password does not match
	Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error)

	// Rotate pair for verified refresh claims
	// Has to return apperrors.ErrRefreshTokenRevoked if the record is gone
	Refresh(ctx context.Context, claims models.Claims) (models.TokenPair, error)

	Logout(ctx context.Context, claims models.Claims) error

	Self(ctx context.Context, userID int64) (models.User, error)
}

type tenantService interface {
	CreateTenant(ctx context.Context, name string, address string) (models.Tenant, error)
	GetTenant(ctx context.Context, id int64) (models.Tenant, error)
}

type tokenVerifier interface {
	VerifyAccess(ctx context.Context, access string) (models.Claims, error)
	VerifyRefresh(ctx context.Context, refresh string) (models.Claims, error)
	ParseRefresh(refresh string) (models.Claims, error)
}
