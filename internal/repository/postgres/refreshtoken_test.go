package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
	"github.com/nkiryanov/tenantauth/internal/models"
	"github.com/nkiryanov/tenantauth/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Refresh records reference users, so every subtest creates its owner first
	withUser := func(t *testing.T, fn func(tx pgx.Tx, repo *RefreshTokenRepo, token models.RefreshToken)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			user := testutil.SeedUser(t, &UserRepo{DB: tx}, "owner@example.com", models.RoleCustomer)

			fn(tx, &RefreshTokenRepo{DB: tx}, models.RefreshToken{
				UserID:    user.ID,
				CreatedAt: mustParseTime("2024-01-01 19:00:01Z"),
				ExpiresAt: mustParseTime("2200-01-01 03:00:02Z"),
			})
		})
	}

	t.Run("create token ok", func(t *testing.T) {
		withUser(t, func(_ pgx.Tx, repo *RefreshTokenRepo, token models.RefreshToken) {
			got, err := repo.Create(t.Context(), token)

			require.NoError(t, err)
			require.NotZero(t, got.ID, "id has to be assigned by db")
			require.Equal(t, token.UserID, got.UserID)
			require.WithinDuration(t, token.CreatedAt, got.CreatedAt, 0)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, 0)
		})
	})

	t.Run("create assigns distinct ids", func(t *testing.T) {
		withUser(t, func(_ pgx.Tx, repo *RefreshTokenRepo, token models.RefreshToken) {
			first, err := repo.Create(t.Context(), token)
			require.NoError(t, err)
			second, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			require.NotEqual(t, first.ID, second.ID)
		})
	})

	t.Run("get token ok", func(t *testing.T) {
		withUser(t, func(_ pgx.Tx, repo *RefreshTokenRepo, token models.RefreshToken) {
			created, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			got, err := repo.Get(t.Context(), created.ID)

			require.NoError(t, err)
			require.Equal(t, created.ID, got.ID)
			require.Equal(t, token.UserID, got.UserID)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, 0)
		})
	})

	t.Run("get not existed token", func(t *testing.T) {
		withUser(t, func(_ pgx.Tx, repo *RefreshTokenRepo, _ models.RefreshToken) {
			_, err := repo.Get(t.Context(), 100500)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		withUser(t, func(_ pgx.Tx, repo *RefreshTokenRepo, token models.RefreshToken) {
			created, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			deleted, err := repo.Delete(t.Context(), created.ID)
			require.NoError(t, err)
			require.True(t, deleted, "first delete must remove the record")

			deleted, err = repo.Delete(t.Context(), created.ID)
			require.NoError(t, err, "deleting absent record is not an error")
			require.False(t, deleted)

			_, err = repo.Get(t.Context(), created.ID)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("delete expired", func(t *testing.T) {
		withUser(t, func(_ pgx.Tx, repo *RefreshTokenRepo, token models.RefreshToken) {
			alive, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			expiredToken := token
			expiredToken.ExpiresAt = mustParseTime("2024-02-01 00:00:00Z")
			expired, err := repo.Create(t.Context(), expiredToken)
			require.NoError(t, err)

			count, err := repo.DeleteExpired(t.Context(), mustParseTime("2025-01-01 00:00:00Z"))

			require.NoError(t, err)
			require.EqualValues(t, 1, count)
			_, err = repo.Get(t.Context(), expired.ID)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
			_, err = repo.Get(t.Context(), alive.ID)
			require.NoError(t, err)
		})
	})

	t.Run("cascade on user delete", func(t *testing.T) {
		withUser(t, func(tx pgx.Tx, repo *RefreshTokenRepo, token models.RefreshToken) {
			created, err := repo.Create(t.Context(), token)
			require.NoError(t, err)

			_, err = tx.Exec(t.Context(), "DELETE FROM users WHERE id = $1", token.UserID)
			require.NoError(t, err)

			_, err = repo.Get(t.Context(), created.ID)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("concurrent delete has single winner", func(t *testing.T) {
		// Committed data required: transactions are not shared between connections
		user := testutil.SeedUser(t, &UserRepo{DB: pg.Pool}, "race@example.com", models.RoleCustomer)
		t.Cleanup(func() {
			_, _ = pg.Pool.Exec(context.Background(), "DELETE FROM users WHERE id = $1", user.ID)
		})

		repo := &RefreshTokenRepo{DB: pg.Pool}
		created := testutil.SeedSession(t, repo, user.ID, time.Hour)

		const workers = 8
		var winners atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})

		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				deleted, err := repo.Delete(t.Context(), created.ID)
				assert.NoError(t, err)
				if deleted {
					winners.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.EqualValues(t, 1, winners.Load(), "exactly one caller has to delete the record")
	})
}
