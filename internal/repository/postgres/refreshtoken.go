package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
	"github.com/nkiryanov/tenantauth/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const createToken = `-- name: Create Refresh Token
INSERT INTO refresh_tokens (user_id, created_at, expires_at)
VALUES ($1, $2, $3)
RETURNING id, user_id, created_at, expires_at
`

func (r *RefreshTokenRepo) Create(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, createToken, token.UserID, token.CreatedAt, token.ExpiresAt)
	created, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

const getToken = `-- name: Get Refresh Token by id
SELECT id, user_id, created_at, expires_at
FROM refresh_tokens
WHERE id = $1
`

// Get token
// It returns the record even it expired: expiry is checked on the token itself
func (r *RefreshTokenRepo) Get(ctx context.Context, id int64) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getToken, id)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const deleteToken = `-- name: Delete Refresh Token
DELETE FROM refresh_tokens
WHERE id = $1
`

// Delete token
// Only one of concurrent callers gets deleted=true
func (r *RefreshTokenRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.DB.Exec(ctx, deleteToken, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

const deleteExpiredTokens = `-- name: Delete expired Refresh Tokens
DELETE FROM refresh_tokens
WHERE expires_at <= $1
`

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredTokens, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	return t, err
}
