package models

import (
	"time"
)

// Persisted refresh record. Presence in the store means the session is alive
type RefreshToken struct {
	ID        int64
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type IssuedToken struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TTL returns the token validity window
func (t IssuedToken) TTL() time.Duration {
	return t.ExpiresAt.Sub(t.IssuedAt)
}

// Token pair issued on register, login or refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken

	// Refresh record the refresh token points to
	RecordID int64
}

// Verified token claims
type Claims struct {
	UserID    int64
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Refresh record id, zero for access tokens
	RefreshID int64
}
