package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
	"github.com/nkiryanov/tenantauth/internal/repository"
	"github.com/nkiryanov/tenantauth/internal/testutil"
)

func Test_TenantRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create tenant ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := TenantRepo{DB: tx}

			tenant, err := r.CreateTenant(t.Context(), "Pizza Hub", "Baker street 221b")

			require.NoError(t, err)
			assert.NotZero(t, tenant.ID)
			assert.Equal(t, "Pizza Hub", tenant.Name)
			assert.Equal(t, "Baker street 221b", tenant.Address)
			assert.WithinDuration(t, time.Now(), tenant.CreatedAt, time.Second)
		})
	})

	t.Run("get tenant ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := TenantRepo{DB: tx}
			created, err := r.CreateTenant(t.Context(), "Pizza Hub", "Baker street 221b")
			require.NoError(t, err)

			got, err := r.GetTenant(t.Context(), created.ID)

			require.NoError(t, err)
			assert.Equal(t, created, got)
		})
	})

	t.Run("get tenant not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := TenantRepo{DB: tx}

			_, err := r.GetTenant(t.Context(), 100500)

			assert.ErrorIs(t, err, apperrors.ErrTenantNotFound)
		})
	})
}

func Test_StorageInTx(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("rollback on error", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := NewStorage(tx)
			var tenantID int64

			err := storage.InTx(t.Context(), func(s repository.Storage) error {
				tenant, err := s.Tenant().CreateTenant(t.Context(), "Ghost", "Nowhere")
				require.NoError(t, err)
				tenantID = tenant.ID
				return assert.AnError
			})
			require.ErrorIs(t, err, assert.AnError)

			_, err = storage.Tenant().GetTenant(t.Context(), tenantID)
			require.ErrorIs(t, err, apperrors.ErrTenantNotFound, "tenant has to be rolled back")
		})
	})

	t.Run("commit on success", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := NewStorage(tx)
			var tenantID int64

			err := storage.InTx(t.Context(), func(s repository.Storage) error {
				tenant, err := s.Tenant().CreateTenant(t.Context(), "Kept", "Somewhere")
				tenantID = tenant.ID
				return err
			})
			require.NoError(t, err)

			_, err = storage.Tenant().GetTenant(t.Context(), tenantID)
			require.NoError(t, err)
		})
	})
}
