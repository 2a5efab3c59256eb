package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

const memberListLimit = 100

var ErrMemberExists = fmt.Errorf("%w: member already exists with this phone", entities.ErrDuplicate)

type MemberUsecase struct {
	store   *interfaces.Store
	clients *ClientUsecase
	log     *zap.Logger
}

func NewMemberUsecase(store *interfaces.Store, clients *ClientUsecase, log *zap.Logger) *MemberUsecase {
	return &MemberUsecase{store: store, clients: clients, log: log.Named("members")}
}

func (u *MemberUsecase) List(ctx context.Context, f entities.MemberFilter) ([]entities.Member, error) {
	client, _, err := u.clients.Ensure(ctx, f.ClientID)
	if err != nil {
		return nil, err
	}
	f.ClientID = client.ID
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", entities.ErrInvalid, f.Status)
	}
	if f.Limit <= 0 || f.Limit > memberListLimit {
		f.Limit = memberListLimit
	}
	return u.store.Members.List(ctx, f)
}

// MemberPatch carries writable member fields; nil means unchanged.
type MemberPatch struct {
	Name         *string                `json:"name"`
	Phone        *string                `json:"phone"`
	Email        *string                `json:"email"`
	CPF          *string                `json:"cpf"`
	MembershipID *string                `json:"membershipId"`
	Category     *string                `json:"category"`
	Status       *entities.MemberStatus `json:"status"`
	JoinDate     *time.Time             `json:"joinDate"`
	Notes        *string                `json:"notes"`
	Metadata     map[string]any         `json:"metadata"`
}

func (p MemberPatch) apply(m *entities.Member) error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return fmt.Errorf("%w: name cannot be empty", entities.ErrInvalid)
		}
		m.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		phone := Digits(*p.Phone)
		if phone == "" {
			return fmt.Errorf("%w: phone cannot be empty", entities.ErrInvalid)
		}
		m.Phone = phone
	}
	if p.Email != nil {
		m.Email = *p.Email
	}
	if p.CPF != nil {
		m.CPF = *p.CPF
	}
	if p.MembershipID != nil {
		m.MembershipID = *p.MembershipID
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return fmt.Errorf("%w: unknown status %q", entities.ErrInvalid, *p.Status)
		}
		m.Status = *p.Status
	}
	if p.JoinDate != nil {
		m.JoinDate = p.JoinDate
	}
	if p.Notes != nil {
		m.Notes = *p.Notes
	}
	if p.Metadata != nil {
		m.Metadata = p.Metadata
	}
	return nil
}

func (u *MemberUsecase) Create(ctx context.Context, clientID string, p MemberPatch) (*entities.Member, error) {
	if p.Name == nil || p.Phone == nil {
		return nil, fmt.Errorf("%w: name and phone are required", entities.ErrInvalid)
	}
	client, _, err := u.clients.Ensure(ctx, clientID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	m := &entities.Member{
		ClientID: client.ID,
		Status:   entities.MemberActive,
		JoinDate: &now,
	}
	if err := p.apply(m); err != nil {
		return nil, err
	}
	if err := u.store.Members.Create(ctx, m); err != nil {
		if isDuplicate(err) {
			return nil, ErrMemberExists
		}
		return nil, fmt.Errorf("create member: %w", err)
	}
	bump(ctx, u.store, u.log, client.ID, entities.CounterNewMembers, 1)
	return m, nil
}

func (u *MemberUsecase) Update(ctx context.Context, id string, p MemberPatch) (*entities.Member, error) {
	m, err := u.store.Members.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.apply(m); err != nil {
		return nil, err
	}
	if err := u.store.Members.Update(ctx, m); err != nil {
		if isDuplicate(err) {
			return nil, ErrMemberExists
		}
		return nil, fmt.Errorf("update member %s: %w", id, err)
	}
	return m, nil
}

func (u *MemberUsecase) Delete(ctx context.Context, id string) error {
	return u.store.Members.Delete(ctx, id)
}
