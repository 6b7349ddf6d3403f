package models

import (
	"time"
)

type Tenant struct {
	ID        int64
	CreatedAt time.Time
	Name      string
	Address   string
}
