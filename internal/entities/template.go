package entities

import (
	"regexp"
	"time"
)

type Template struct {
	ID        string            `json:"id"`
	ClientID  string            `json:"clientId"`
	Name      string            `json:"name"`
	Category  string            `json:"category"`
	Content   string            `json:"content"`
	Variables map[string]string `json:"variables,omitempty"`
	IsActive  bool              `json:"isActive"`
	UseCount  int               `json:"useCount"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type TemplateFilter struct {
	ClientID string
	Category string
}

// NicheTemplate is a stock template offered to every client of a niche.
type NicheTemplate struct {
	ID        string            `json:"id"`
	Niche     Niche             `json:"niche"`
	Name      string            `json:"name"`
	Category  string            `json:"category"`
	Content   string            `json:"content"`
	Variables map[string]string `json:"variables,omitempty"`
	IsDefault bool              `json:"isDefault"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

var placeholder = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes {{name}} placeholders. Values in vars win over the
// template's stored defaults; unknown placeholders are left untouched.
func (t *Template) Render(vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(t.Content, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		if v, ok := t.Variables[key]; ok {
			return v
		}
		return m
	})
}
