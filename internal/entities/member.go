package entities

import "time"

type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
	MemberPending  MemberStatus = "pending"
)

func (s MemberStatus) Valid() bool {
	return s == MemberActive || s == MemberInactive || s == MemberPending
}

type Member struct {
	ID           string         `json:"id"`
	ClientID     string         `json:"clientId"`
	Name         string         `json:"name"`
	Phone        string         `json:"phone"`
	Email        string         `json:"email,omitempty"`
	CPF          string         `json:"cpf,omitempty"`
	MembershipID string         `json:"membershipId,omitempty"`
	Category     string         `json:"category,omitempty"`
	Status       MemberStatus   `json:"status"`
	JoinDate     *time.Time     `json:"joinDate,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// MemberFilter narrows member listings. Zero fields are ignored.
type MemberFilter struct {
	ClientID string
	Status   MemberStatus
	Category string
	Search   string
	IDs      []string
	Limit    int
}
