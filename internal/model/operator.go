package model

import "time"

// Operator is an admin user who uploads customer lists and owns issuance jobs.
type Operator struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
