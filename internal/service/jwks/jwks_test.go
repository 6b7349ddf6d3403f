package jwks

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/tenantauth/internal/logger"
)

func mustKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestKey(t *testing.T) {
	key := mustKey(t)

	t.Run("public key round trip", func(t *testing.T) {
		jwk := FromRSA(&key.PublicKey)

		got, err := jwk.RSAPublicKey()

		require.NoError(t, err)
		require.True(t, key.PublicKey.Equal(got))
		assert.Equal(t, "RSA", jwk.KeyType)
		assert.Equal(t, "sig", jwk.Use)
		assert.Equal(t, "RS256", jwk.Algorithm)
		assert.Equal(t, "AQAB", jwk.E, "65537 exponent")
	})

	t.Run("thumbprint is key id", func(t *testing.T) {
		jwk := FromRSA(&key.PublicKey)

		require.Equal(t, jwk.Thumbprint(), jwk.KeyID)
		require.Len(t, jwk.KeyID, 43, "base64url of sha256 without padding")
	})

	t.Run("invalid key", func(t *testing.T) {
		tests := []struct {
			name string
			key  Key
		}{
			{"other key type", Key{KeyType: "EC", N: "AQAB", E: "AQAB"}},
			{"broken modulus", Key{KeyType: "RSA", N: "%%%", E: "AQAB"}},
			{"empty modulus", Key{KeyType: "RSA", N: "", E: "AQAB"}},
			{"tiny exponent", Key{KeyType: "RSA", N: "AQAB", E: "AQ"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := tt.key.RSAPublicKey()
				require.Error(t, err)
			})
		}
	})

	t.Run("find in set", func(t *testing.T) {
		jwk := FromRSA(&key.PublicKey)
		set := Set{Keys: []Key{jwk}}

		got, err := set.Find(jwk.KeyID)
		require.NoError(t, err)
		require.Equal(t, jwk, got)

		_, err = set.Find("unknown")
		require.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestClient(t *testing.T) {
	key := mustKey(t)
	jwk := FromRSA(&key.PublicKey)

	serve := func(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			handler(w, r)
		}))
		t.Cleanup(srv.Close)

		return NewClient(srv.URL, logger.NewNoOpLogger()), &calls
	}

	published := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Set{Keys: []Key{jwk}})
	}

	t.Run("fetch and cache", func(t *testing.T) {
		c, calls := serve(t, published)

		got, err := c.PublicKey(t.Context(), jwk.KeyID)
		require.NoError(t, err)
		require.True(t, key.PublicKey.Equal(got))

		_, err = c.PublicKey(t.Context(), jwk.KeyID)
		require.NoError(t, err)
		require.EqualValues(t, 1, calls.Load(), "known key must be served from cache")
	})

	t.Run("unknown key does not hammer endpoint", func(t *testing.T) {
		c, calls := serve(t, published)

		_, err := c.PublicKey(t.Context(), "unknown")
		require.ErrorIs(t, err, ErrKeyNotFound)
		_, err = c.PublicKey(t.Context(), "unknown")
		require.ErrorIs(t, err, ErrKeyNotFound)

		require.EqualValues(t, 1, calls.Load())
	})

	t.Run("refetch after min refresh", func(t *testing.T) {
		c, calls := serve(t, published)
		now := time.Now()
		c.now = func() time.Time { return now }

		_, err := c.PublicKey(t.Context(), "unknown")
		require.ErrorIs(t, err, ErrKeyNotFound)

		now = now.Add(defaultMinRefresh)
		_, err = c.PublicKey(t.Context(), "unknown")
		require.ErrorIs(t, err, ErrKeyNotFound)

		require.EqualValues(t, 2, calls.Load())
	})

	t.Run("throttled endpoint", func(t *testing.T) {
		c, _ := serve(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := c.PublicKey(t.Context(), jwk.KeyID)

		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		require.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode)
		require.Equal(t, 120*time.Second, fetchErr.RetryAfter)
	})

	t.Run("server error", func(t *testing.T) {
		c, _ := serve(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := c.PublicKey(t.Context(), jwk.KeyID)

		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		require.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
	})

	t.Run("skip broken keys", func(t *testing.T) {
		c, _ := serve(t, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(Set{Keys: []Key{
				{KeyType: "RSA", KeyID: "broken", N: "%%%", E: "AQAB"},
				jwk,
			}})
		})

		_, err := c.PublicKey(t.Context(), jwk.KeyID)
		require.NoError(t, err)
		_, err = c.PublicKey(t.Context(), "broken")
		require.ErrorIs(t, err, ErrKeyNotFound)
	})
}
