package entities

import "time"

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// User is a dashboard operator account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
