package auth

import (
	"net/http"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
	"github.com/nkiryanov/tenantauth/internal/models"
)

const (
	defaultAccessCookieName  = "accessToken"
	defaultRefreshCookieName = "refreshToken"
	defaultCookieDomain      = "localhost"
)

// Carries token pair in HttpOnly SameSite=Strict cookies
type CookieCarrier struct {
	AccessName  string
	RefreshName string
	Domain      string
}

func NewCookieCarrier(domain string) CookieCarrier {
	if domain == "" {
		domain = defaultCookieDomain
	}

	return CookieCarrier{
		AccessName:  defaultAccessCookieName,
		RefreshName: defaultRefreshCookieName,
		Domain:      domain,
	}
}

// Write sets both cookies, max age is the token validity window
func (c CookieCarrier) Write(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, c.cookie(c.AccessName, pair.Access.Value, int(pair.Access.TTL().Seconds())))
	http.SetCookie(w, c.cookie(c.RefreshName, pair.Refresh.Value, int(pair.Refresh.TTL().Seconds())))
}

// Clear asks client to drop both cookies
func (c CookieCarrier) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(c.AccessName, "", -1))
	http.SetCookie(w, c.cookie(c.RefreshName, "", -1))
}

// AccessToken returns access token value or apperrors.ErrUnauthenticated
func (c CookieCarrier) AccessToken(r *http.Request) (string, error) {
	return c.read(r, c.AccessName)
}

// RefreshToken returns refresh token value or apperrors.ErrUnauthenticated
func (c CookieCarrier) RefreshToken(r *http.Request) (string, error) {
	return c.read(r, c.RefreshName)
}

// AddToRequest sets the pair as request cookies, useful for clients and tests
func (c CookieCarrier) AddToRequest(r *http.Request, pair models.TokenPair) {
	r.AddCookie(&http.Cookie{Name: c.AccessName, Value: pair.Access.Value})
	r.AddCookie(&http.Cookie{Name: c.RefreshName, Value: pair.Refresh.Value})
}

func (c CookieCarrier) read(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", apperrors.ErrUnauthenticated
	}
	return cookie.Value, nil
}

func (c CookieCarrier) cookie(name string, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
