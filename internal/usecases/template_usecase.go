package usecases

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

const defaultTemplateCategory = "other"

type TemplateUsecase struct {
	store *interfaces.Store
	log   *zap.Logger
}

func NewTemplateUsecase(store *interfaces.Store, log *zap.Logger) *TemplateUsecase {
	return &TemplateUsecase{store: store, log: log.Named("templates")}
}

func (u *TemplateUsecase) List(ctx context.Context, f entities.TemplateFilter) ([]entities.Template, error) {
	return u.store.Templates.List(ctx, f)
}

func (u *TemplateUsecase) ListNiche(ctx context.Context, niche entities.Niche) ([]entities.NicheTemplate, error) {
	if !niche.Valid() {
		return nil, invalidf("unknown niche %q", niche)
	}
	return u.store.Templates.ListNiche(ctx, niche)
}

type TemplatePatch struct {
	Name      *string           `json:"name"`
	Category  *string           `json:"category"`
	Content   *string           `json:"content"`
	Variables map[string]string `json:"variables"`
	IsActive  *bool             `json:"isActive"`
}

func (p TemplatePatch) apply(t *entities.Template) error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return invalidf("name cannot be empty")
		}
		t.Name = strings.TrimSpace(*p.Name)
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Content != nil {
		if strings.TrimSpace(*p.Content) == "" {
			return invalidf("content cannot be empty")
		}
		t.Content = *p.Content
	}
	if p.Variables != nil {
		t.Variables = p.Variables
	}
	if p.IsActive != nil {
		t.IsActive = *p.IsActive
	}
	return nil
}

func (u *TemplateUsecase) Create(ctx context.Context, clientID string, p TemplatePatch) (*entities.Template, error) {
	if clientID == "" || p.Name == nil || p.Content == nil {
		return nil, invalidf("clientId, name and content are required")
	}
	t := &entities.Template{
		ClientID: clientID,
		Category: defaultTemplateCategory,
		IsActive: true,
	}
	if err := p.apply(t); err != nil {
		return nil, err
	}
	if t.Category == "" {
		t.Category = defaultTemplateCategory
	}
	if err := u.store.Templates.Create(ctx, t); err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%w: a template named %q already exists", entities.ErrDuplicate, t.Name)
		}
		return nil, fmt.Errorf("create template: %w", err)
	}
	return t, nil
}

func (u *TemplateUsecase) Update(ctx context.Context, id string, p TemplatePatch) (*entities.Template, error) {
	t, err := u.store.Templates.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.apply(t); err != nil {
		return nil, err
	}
	if err := u.store.Templates.Update(ctx, t); err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%w: a template named %q already exists", entities.ErrDuplicate, t.Name)
		}
		return nil, fmt.Errorf("update template %s: %w", id, err)
	}
	return t, nil
}

func (u *TemplateUsecase) Delete(ctx context.Context, id string) error {
	return u.store.Templates.Delete(ctx, id)
}

// Render fills the template's placeholders without counting a use.
func (u *TemplateUsecase) Render(ctx context.Context, id string, vars map[string]string) (string, error) {
	t, err := u.store.Templates.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return t.Render(vars), nil
}
