package usecases

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

const broadcastAudienceLimit = 1000

// Pacer blocks until the next send for key may go out.
type Pacer interface {
	Wait(ctx context.Context, key string) error
}

type BroadcastUsecase struct {
	store     *interfaces.Store
	messenger interfaces.MessengerResolver
	pacer     Pacer
	log       *zap.Logger
}

func NewBroadcastUsecase(store *interfaces.Store, messenger interfaces.MessengerResolver, pacer Pacer, log *zap.Logger) *BroadcastUsecase {
	return &BroadcastUsecase{store: store, messenger: messenger, pacer: pacer, log: log.Named("broadcast")}
}

// Recipient is the broadcast audience view of a member.
type Recipient struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Category string `json:"category,omitempty"`
}

// Audience lists the client's active members.
func (u *BroadcastUsecase) Audience(ctx context.Context, clientID string) ([]Recipient, error) {
	members, err := u.store.Members.List(ctx, entities.MemberFilter{
		ClientID: orDefaultClient(clientID),
		Status:   entities.MemberActive,
		Limit:    broadcastAudienceLimit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Recipient, 0, len(members))
	for _, m := range members {
		out = append(out, Recipient{ID: m.ID, Name: m.Name, Phone: m.Phone, Category: m.Category})
	}
	return out, nil
}

// BroadcastRequest sends Message, or the template TemplateID rendered with
// Variables, to Phones, MemberIDs, a Category or every active member.
type BroadcastRequest struct {
	ClientID   string            `json:"clientId"`
	Message    string            `json:"message"`
	TemplateID string            `json:"templateId"`
	Variables  map[string]string `json:"variables"`
	Phones     []string          `json:"phones"`
	MemberIDs  []string          `json:"memberIds"`
	Category   string            `json:"category"`
}

type BroadcastResult struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

func (u *BroadcastUsecase) Send(ctx context.Context, req BroadcastRequest, meta RequestMeta) (*BroadcastResult, error) {
	clientID := orDefaultClient(req.ClientID)
	message := strings.TrimSpace(req.Message)

	var tmpl *entities.Template
	if message == "" && req.TemplateID != "" {
		t, err := u.store.Templates.Get(ctx, req.TemplateID)
		if err != nil {
			return nil, err
		}
		tmpl = t
		message = t.Render(req.Variables)
	}
	if message == "" {
		return nil, invalidf("message or templateId is required")
	}

	phones, err := u.recipients(ctx, clientID, req)
	if err != nil {
		return nil, err
	}
	if len(phones) == 0 {
		return nil, invalidf("no recipients")
	}

	m := u.messenger.For(clientID)
	if m == nil {
		return nil, fmt.Errorf("no messenger for client %s: %w", clientID, entities.ErrNotConfigured)
	}

	res := &BroadcastResult{Total: len(phones)}
	for _, phone := range phones {
		if err := u.pacer.Wait(ctx, clientID); err != nil {
			// Request cancelled: the rest count as failed.
			res.Failed += res.Total - res.Success - res.Failed
			break
		}
		if _, err := m.SendText(ctx, phone, message, entities.SendOptions{}); err != nil {
			u.log.Warn("broadcast send failed", zap.String("client_id", clientID), zap.String("to", phone), zap.Error(err))
			res.Failed++
			continue
		}
		res.Success++
	}
	bump(context.WithoutCancel(ctx), u.store, u.log, clientID, entities.CounterMessagesOut, res.Success)

	audit(context.WithoutCancel(ctx), u.store, u.log, &entities.AuditLog{
		ClientID: clientID,
		Action:   "broadcast",
		Entity:   "message",
		Details: map[string]any{
			"message":         truncateRunes(message, 100),
			"totalRecipients": res.Total,
			"success":         res.Success,
			"failed":          res.Failed,
		},
	}, meta)

	if tmpl != nil {
		if err := u.store.Templates.IncrementUse(context.WithoutCancel(ctx), tmpl.ID); err != nil {
			u.log.Warn("increment template use", zap.String("template_id", tmpl.ID), zap.Error(err))
		}
	}
	return res, nil
}

func (u *BroadcastUsecase) recipients(ctx context.Context, clientID string, req BroadcastRequest) ([]string, error) {
	if len(req.Phones) > 0 {
		out := make([]string, 0, len(req.Phones))
		for _, p := range req.Phones {
			if d := Digits(p); d != "" {
				out = append(out, d)
			}
		}
		return out, nil
	}

	f := entities.MemberFilter{ClientID: clientID, Status: entities.MemberActive}
	switch {
	case len(req.MemberIDs) > 0:
		f.IDs = req.MemberIDs
	case req.Category != "":
		f.Category = req.Category
	}
	members, err := u.store.Members.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Phone)
	}
	return out, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
