package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nkiryanov/tenantauth/internal/logger"
)

const (
	defaultFetchTimeout = 5 * time.Second
	defaultMinRefresh   = time.Minute
	defaultRetryAfter   = 60 * time.Second
)

type FetchError struct {
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("status: %d, retry_after: %s, error: %v", e.StatusCode, e.RetryAfter, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client resolves public keys from a remote JWKS document
// Keys are cached; unknown key id triggers refetch not more often than minRefresh
type Client struct {
	URL string

	client     *http.Client
	logger     logger.Logger
	minRefresh time.Duration
	now        func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	nextFetch time.Time
}

func NewClient(url string, l logger.Logger) *Client {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Client{
		URL:        url,
		client:     &http.Client{Timeout: defaultFetchTimeout},
		logger:     l,
		minRefresh: defaultMinRefresh,
		now:        time.Now,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

// PublicKey returns the key by key id, fetching the set if key is unknown yet
func (c *Client) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	c.mu.RUnlock()
	if ok {
		return key, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock
	if key, ok := c.keys[kid]; ok {
		return key, nil
	}

	if c.now().Before(c.nextFetch) {
		return nil, ErrKeyNotFound
	}

	keys, err := c.fetch(ctx)
	if err != nil {
		c.nextFetch = c.now().Add(c.backoff(err))
		return nil, err
	}
	c.keys = keys
	c.nextFetch = c.now().Add(c.minRefresh)

	key, ok = c.keys[kid]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func (c *Client) backoff(err error) time.Duration {
	if fe, ok := err.(*FetchError); ok && fe.RetryAfter > 0 {
		return fe.RetryAfter
	}
	return c.minRefresh
}

func (c *Client) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close() // nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		return c.processSuccess(resp)
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, c.processRetryAfter(resp)
	default:
		c.logger.Warn("Failed to fetch key set", "status_code", resp.StatusCode, "url", c.URL)
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status code %d", resp.StatusCode)}
	}
}

func (c *Client) processSuccess(resp *http.Response) (map[string]*rsa.PublicKey, error) {
	var set Set
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		c.logger.Warn("Failed to decode key set", "error", err)
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode key set: %w", err)}
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Use != "" && k.Use != UseSig {
			continue
		}
		pub, err := k.RSAPublicKey()
		if err != nil {
			c.logger.Warn("Skip invalid key", "kid", k.KeyID, "error", err)
			continue
		}
		keys[k.KeyID] = pub
	}

	c.logger.Debug("Key set fetched", "url", c.URL, "keys", len(keys))
	return keys, nil
}

func (c *Client) processRetryAfter(resp *http.Response) error {
	retryAfter := defaultRetryAfter
	if seconds, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil {
		retryAfter = time.Duration(seconds) * time.Second
	}

	c.logger.Warn("Key set endpoint throttled", "retry_after", retryAfter)
	return &FetchError{
		StatusCode: resp.StatusCode,
		RetryAfter: retryAfter,
		Err:        fmt.Errorf("retry after %s", retryAfter),
	}
}
