package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
	"github.com/nkiryanov/tenantauth/internal/handlers/render"
	"github.com/nkiryanov/tenantauth/internal/logger"
	"github.com/nkiryanov/tenantauth/internal/models"
)

type tenantRequest struct {
	Name    string `json:"name" validate:"nonblank,max=200"`
	Address string `json:"address" validate:"nonblank,max=500"`
}

func (r *tenantRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
}

type tenantResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

func newTenantResponse(t models.Tenant) tenantResponse {
	return tenantResponse{ID: t.ID, Name: t.Name, Address: t.Address, CreatedAt: t.CreatedAt}
}

func handleCreateTenant(s tenantService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[tenantRequest](w, r)
		if err != nil {
			return
		}

		tenant, err := s.CreateTenant(r.Context(), data.Name, data.Address)
		if err != nil {
			renderError(w, l, err)
			return
		}

		render.JSONWithStatus(w, idResponse{ID: tenant.ID}, http.StatusCreated)
	})
}

func handleGetTenant(s tenantService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			render.Error(w, apperrors.ErrTenantNotFound)
			return
		}

		tenant, err := s.GetTenant(r.Context(), id)
		if err != nil {
			renderError(w, l, err)
			return
		}

		render.JSON(w, newTenantResponse(tenant))
	})
}
