package usecases

import (
	"context"
	"fmt"
	"strings"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

type FlowUsecase struct {
	store *interfaces.Store
}

func NewFlowUsecase(store *interfaces.Store) *FlowUsecase {
	return &FlowUsecase{store: store}
}

func (u *FlowUsecase) List(ctx context.Context, clientID string) ([]entities.Flow, error) {
	return u.store.Flows.List(ctx, orDefaultClient(clientID))
}

type FlowPatch struct {
	Name        *string             `json:"name"`
	Trigger     *string             `json:"trigger"`
	Description *string             `json:"description"`
	Steps       []entities.FlowStep `json:"steps"`
	IsActive    *bool               `json:"isActive"`
}

func (p FlowPatch) apply(f *entities.Flow) error {
	if p.Name != nil {
		f.Name = strings.TrimSpace(*p.Name)
	}
	if p.Trigger != nil {
		f.Trigger = strings.TrimSpace(*p.Trigger)
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.Steps != nil {
		f.Steps = p.Steps
	}
	if p.IsActive != nil {
		f.IsActive = *p.IsActive
	}
	if f.Name == "" || f.Trigger == "" {
		return invalidf("name and trigger are required")
	}
	if len(f.Steps) == 0 {
		return invalidf("at least one step is required")
	}
	for i, s := range f.Steps {
		if strings.TrimSpace(s.Message) == "" {
			return invalidf("step %d has no message", i+1)
		}
	}
	return nil
}

func (u *FlowUsecase) Create(ctx context.Context, clientID string, p FlowPatch) (*entities.Flow, error) {
	f := &entities.Flow{ClientID: orDefaultClient(clientID), IsActive: true}
	if err := p.apply(f); err != nil {
		return nil, err
	}
	if err := u.store.Flows.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create flow: %w", err)
	}
	return f, nil
}

func (u *FlowUsecase) Update(ctx context.Context, id string, p FlowPatch) (*entities.Flow, error) {
	f, err := u.store.Flows.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.apply(f); err != nil {
		return nil, err
	}
	if err := u.store.Flows.Update(ctx, f); err != nil {
		return nil, fmt.Errorf("update flow %s: %w", id, err)
	}
	return f, nil
}

func (u *FlowUsecase) Delete(ctx context.Context, id string) error {
	return u.store.Flows.Delete(ctx, id)
}
