package handlers

import (
	"net/http"

	"github.com/nkiryanov/tenantauth/internal/handlers/render"
	"github.com/nkiryanov/tenantauth/internal/service/jwks"
)

// Key set is immutable during process life, so clients may cache it
func handleJWKS(keys jwks.Set) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		render.JSON(w, keys)
	})
}
