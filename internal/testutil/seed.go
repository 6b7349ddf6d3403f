package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/tenantauth/internal/models"
	"github.com/nkiryanov/tenantauth/internal/repository"
)

// Password of every seeded user
const UserPassword = "longenough1"

// SeedUser stores user with any role bypassing registration
// Password is UserPassword hashed with minimal bcrypt cost
func SeedUser(t *testing.T, users repository.UserRepo, email string, role models.Role) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(UserPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user, err := users.CreateUser(t.Context(), repository.CreateUserParams{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
	require.NoError(t, err, "seeded user could not be stored")

	return user
}

// SeedSession stores refresh record of the user living for ttl
// Negative ttl gives already expired record
func SeedSession(t *testing.T, refresh repository.RefreshTokenRepo, userID int64, ttl time.Duration) models.RefreshToken {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	record, err := refresh.Create(t.Context(), models.RefreshToken{
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	require.NoError(t, err, "seeded refresh record could not be stored")

	return record
}
