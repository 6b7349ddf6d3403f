package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
	"github.com/nkiryanov/tenantauth/internal/handlers/render"
	"github.com/nkiryanov/tenantauth/internal/handlers/userctx"
	"github.com/nkiryanov/tenantauth/internal/logger"
	"github.com/nkiryanov/tenantauth/internal/models"
	"github.com/nkiryanov/tenantauth/internal/service/auth"
)

type idResponse struct {
	ID int64 `json:"id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type registerRequest struct {
	FirstName string `json:"firstName" validate:"nonblank,max=100"`
	LastName  string `json:"lastName" validate:"nonblank,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=256"`
}

func (r *registerRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = normalizeEmail(r.Email)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func handleRegister(s authService, carrier auth.CookieCarrier, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[registerRequest](w, r)
		if err != nil {
			return
		}

		user, pair, err := s.Register(r.Context(), auth.RegisterParams{
			FirstName: data.FirstName,
			LastName:  data.LastName,
			Email:     data.Email,
			Password:  data.Password,
		})
		if err != nil {
			renderError(w, l, err)
			return
		}

		carrier.Write(w, pair)
		render.JSONWithStatus(w, idResponse{ID: user.ID}, http.StatusCreated)
	})
}

func handleLogin(s authService, carrier auth.CookieCarrier, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[loginRequest](w, r)
		if err != nil {
			return
		}

		user, pair, err := s.Login(r.Context(), data.Email, data.Password)
		if err != nil {
			renderError(w, l, err)
			return
		}

		carrier.Write(w, pair)
		render.JSON(w, idResponse{ID: user.ID})
	})
}

func handleSelf(s authService, l logger.Logger) http.Handler {
	type response struct {
		ID        int64       `json:"id"`
		FirstName string      `json:"firstName"`
		LastName  string      `json:"lastName"`
		Email     string      `json:"email"`
		Role      models.Role `json:"role"`
		CreatedAt time.Time   `json:"createdAt"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := userctx.FromContext(r.Context())
		if !ok {
			render.Error(w, apperrors.ErrUnauthenticated)
			return
		}

		user, err := s.Self(r.Context(), claims.UserID)
		if err != nil {
			renderError(w, l, err)
			return
		}

		render.JSON(w, response{
			ID:        user.ID,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
			Role:      user.Role,
			CreatedAt: user.CreatedAt,
		})
	})
}

func handleRefresh(s authService, carrier auth.CookieCarrier, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := userctx.RefreshFromContext(r.Context())
		if !ok {
			render.Error(w, apperrors.ErrUnauthenticated)
			return
		}

		pair, err := s.Refresh(r.Context(), claims)
		if err != nil {
			renderError(w, l, err)
			return
		}

		carrier.Write(w, pair)
		render.JSON(w, idResponse{ID: claims.UserID})
	})
}

func handleLogout(s authService, carrier auth.CookieCarrier, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := userctx.FromContext(r.Context())
		claims, ok := userctx.RefreshFromContext(r.Context())
		if !ok || identity.UserID != claims.UserID {
			render.Error(w, apperrors.ErrUnauthenticated)
			return
		}

		if err := s.Logout(r.Context(), claims); err != nil {
			renderError(w, l, err)
			return
		}

		carrier.Clear(w)
		render.JSON(w, messageResponse{Message: "Logged out successfully"})
	})
}
