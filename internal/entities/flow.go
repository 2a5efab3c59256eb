package entities

import (
	"strings"
	"time"
)

type FlowStep struct {
	Message string `json:"message"`
}

// Flow is a keyword-triggered scripted reply.
type Flow struct {
	ID          string     `json:"id"`
	ClientID    string     `json:"clientId"`
	Name        string     `json:"name"`
	Trigger     string     `json:"trigger"`
	Description string     `json:"description,omitempty"`
	Steps       []FlowStep `json:"steps"`
	IsActive    bool       `json:"isActive"`
	UseCount    int        `json:"useCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Matches reports whether the flow trigger appears in text, ignoring case.
func (f *Flow) Matches(text string) bool {
	trigger := strings.ToLower(strings.TrimSpace(f.Trigger))
	if !f.IsActive || trigger == "" || len(f.Steps) == 0 {
		return false
	}
	return strings.Contains(strings.ToLower(text), trigger)
}
