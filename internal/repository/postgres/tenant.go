package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
	"github.com/nkiryanov/tenantauth/internal/models"
)

type TenantRepo struct {
	DB DBTX
}

const createTenant = `-- name: CreateTenant
INSERT INTO tenants (name, address)
VALUES ($1, $2)
RETURNING id, created_at, name, address
`

func (r *TenantRepo) CreateTenant(ctx context.Context, name string, address string) (models.Tenant, error) {
	rows, _ := r.DB.Query(ctx, createTenant, name, address)
	tenant, err := pgx.CollectOneRow(rows, pgx.RowToStructByPos[models.Tenant])
	if err != nil {
		return tenant, fmt.Errorf("db error: %w", err)
	}
	return tenant, nil
}

const getTenant = `-- name: GetTenant
SELECT id, created_at, name, address
FROM tenants
WHERE id = $1
`

func (r *TenantRepo) GetTenant(ctx context.Context, id int64) (models.Tenant, error) {
	rows, _ := r.DB.Query(ctx, getTenant, id)
	tenant, err := pgx.CollectOneRow(rows, pgx.RowToStructByPos[models.Tenant])

	switch {
	case err == nil:
		return tenant, nil
	case errors.Is(err, pgx.ErrNoRows):
		return tenant, apperrors.ErrTenantNotFound
	default:
		return tenant, fmt.Errorf("db error: %w", err)
	}
}
