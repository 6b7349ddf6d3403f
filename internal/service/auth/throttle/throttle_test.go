package throttle

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
)

func newThrottle(t *testing.T, cfg Config) (*LoginThrottle, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, cfg), mr
}

func TestLoginThrottle(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		l := New(nil, Config{})

		require.EqualValues(t, 5, l.maxAttempts)
		require.Equal(t, 15*time.Minute, l.cooldown)
	})

	t.Run("allow until budget spent", func(t *testing.T) {
		l, _ := newThrottle(t, Config{MaxAttempts: 3, Cooldown: time.Minute})

		for range 3 {
			require.NoError(t, l.Check(t.Context(), "a@b.com"))
			require.NoError(t, l.Fail(t.Context(), "a@b.com"))
		}

		require.ErrorIs(t, l.Check(t.Context(), "a@b.com"), apperrors.ErrLoginThrottled)
		require.NoError(t, l.Check(t.Context(), "other@b.com"), "other emails are not affected")
	})

	t.Run("email is case insensitive", func(t *testing.T) {
		l, _ := newThrottle(t, Config{MaxAttempts: 1, Cooldown: time.Minute})

		require.NoError(t, l.Fail(t.Context(), "A@B.com"))

		require.ErrorIs(t, l.Check(t.Context(), "a@b.com"), apperrors.ErrLoginThrottled)
	})

	t.Run("window expires", func(t *testing.T) {
		l, mr := newThrottle(t, Config{MaxAttempts: 1, Cooldown: time.Minute})
		require.NoError(t, l.Fail(t.Context(), "a@b.com"))
		require.ErrorIs(t, l.Check(t.Context(), "a@b.com"), apperrors.ErrLoginThrottled)

		mr.FastForward(time.Minute)

		require.NoError(t, l.Check(t.Context(), "a@b.com"))
	})

	t.Run("window is fixed", func(t *testing.T) {
		l, mr := newThrottle(t, Config{MaxAttempts: 5, Cooldown: time.Minute})
		require.NoError(t, l.Fail(t.Context(), "a@b.com"))

		mr.FastForward(30 * time.Second)
		require.NoError(t, l.Fail(t.Context(), "a@b.com"))

		require.Equal(t, 30*time.Second, mr.TTL(key("a@b.com")), "later failures do not extend window")
	})

	t.Run("reset", func(t *testing.T) {
		l, _ := newThrottle(t, Config{MaxAttempts: 1, Cooldown: time.Minute})
		require.NoError(t, l.Fail(t.Context(), "a@b.com"))

		require.NoError(t, l.Reset(t.Context(), "a@b.com"))

		require.NoError(t, l.Check(t.Context(), "a@b.com"))
	})

	t.Run("redis unavailable", func(t *testing.T) {
		l, mr := newThrottle(t, Config{})
		mr.Close()

		require.ErrorIs(t, l.Check(t.Context(), "a@b.com"), ErrUnavailable)
		require.ErrorIs(t, l.Fail(t.Context(), "a@b.com"), ErrUnavailable)
	})
}
