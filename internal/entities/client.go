package entities

import "time"

const DefaultClientID = "default"

type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

func (p Plan) Valid() bool {
	return p == PlanBasic || p == PlanPro || p == PlanEnterprise
}

// Client is a tenant: one business running its own bot.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Niche     Niche     `json:"niche"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	Logo      string    `json:"logo,omitempty"`
	IsActive  bool      `json:"isActive"`
	Plan      Plan      `json:"plan"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewDefaultClient returns the placeholder tenant created on first use of an id.
func NewDefaultClient(id string) *Client {
	return &Client{
		ID:       id,
		Name:     "Cliente Padrão",
		Slug:     id,
		Niche:    NicheSindicato,
		IsActive: true,
		Plan:     PlanBasic,
	}
}
