package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

const (
	conversationListLimit    = 50
	conversationMessageLimit = 100
)

type ConversationUsecase struct {
	store     *interfaces.Store
	messenger interfaces.MessengerResolver
	log       *zap.Logger
}

func NewConversationUsecase(store *interfaces.Store, messenger interfaces.MessengerResolver, log *zap.Logger) *ConversationUsecase {
	return &ConversationUsecase{store: store, messenger: messenger, log: log.Named("conversations")}
}

func (u *ConversationUsecase) List(ctx context.Context, f entities.ConversationFilter) ([]entities.ConversationSummary, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalidf("unknown status %q", f.Status)
	}
	if f.Limit <= 0 || f.Limit > conversationListLimit {
		f.Limit = conversationListLimit
	}
	return u.store.Conversations.List(ctx, f)
}

// Get returns the conversation with its member and oldest-first messages.
func (u *ConversationUsecase) Get(ctx context.Context, id string) (*entities.Conversation, error) {
	conv, err := u.store.Conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.MemberID != nil {
		m, err := u.store.Members.Get(ctx, *conv.MemberID)
		switch {
		case err == nil:
			conv.Member = m
		case !errors.Is(err, entities.ErrNotFound):
			return nil, fmt.Errorf("load member: %w", err)
		}
	}
	conv.Messages, err = u.store.Messages.List(ctx, id, conversationMessageLimit)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return conv, nil
}

type ConversationPatch struct {
	Status    *entities.ConversationStatus `json:"status"`
	Sentiment *entities.Sentiment          `json:"sentiment"`
	Summary   *string                      `json:"summary"`
}

func (u *ConversationUsecase) Update(ctx context.Context, id string, p ConversationPatch) (*entities.Conversation, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, invalidf("unknown status %q", *p.Status)
	}
	if p.Sentiment != nil && !p.Sentiment.Valid() {
		return nil, invalidf("unknown sentiment %q", *p.Sentiment)
	}
	conv, err := u.store.Conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resolving := p.Status != nil && *p.Status == entities.ConversationResolved && conv.Status != entities.ConversationResolved
	if p.Status != nil {
		conv.Status = *p.Status
	}
	if p.Sentiment != nil {
		conv.Sentiment = p.Sentiment
	}
	if p.Summary != nil {
		conv.Summary = p.Summary
	}
	if err := u.store.Conversations.Update(ctx, conv); err != nil {
		return nil, fmt.Errorf("update conversation %s: %w", id, err)
	}
	if resolving {
		bump(ctx, u.store, u.log, conv.ClientID, entities.CounterResolved, 1)
	}
	return conv, nil
}

// Reply sends an operator message to the conversation's phone.
func (u *ConversationUsecase) Reply(ctx context.Context, id, text string, resolve bool) (*entities.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalidf("text is required")
	}
	conv, err := u.store.Conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m := u.messenger.For(conv.ClientID)
	if m == nil {
		return nil, fmt.Errorf("no messenger for client %s: %w", conv.ClientID, entities.ErrNotConfigured)
	}
	waID, err := m.SendText(ctx, conv.Phone, text, entities.SendOptions{})
	if err != nil {
		return nil, fmt.Errorf("send reply: %w", err)
	}

	msg := &entities.Message{
		ClientID:       conv.ClientID,
		ConversationID: conv.ID,
		Direction:      entities.DirectionOutbound,
		Type:           "text",
		Content:        text,
		Status:         entities.MessageSent,
		WAMessageID:    waID,
	}
	if err := u.store.Messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("save reply: %w", err)
	}
	bump(ctx, u.store, u.log, conv.ClientID, entities.CounterMessagesOut, 1)

	if resolve {
		status := entities.ConversationResolved
		if _, err := u.Update(ctx, id, ConversationPatch{Status: &status}); err != nil {
			return nil, err
		}
		return msg, nil
	}
	if err := u.store.Conversations.Touch(ctx, id); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	return msg, nil
}

// ResolveIdle resolves active conversations untouched for longer than idle
// and counts them into each client's analytics.
func (u *ConversationUsecase) ResolveIdle(ctx context.Context, idle time.Duration) (int, error) {
	resolved, err := u.store.Conversations.ResolveIdle(ctx, time.Now().Add(-idle))
	if err != nil {
		return 0, fmt.Errorf("resolve idle conversations: %w", err)
	}
	total := 0
	for clientID, n := range resolved {
		bump(ctx, u.store, u.log, clientID, entities.CounterResolved, n)
		total += n
	}
	if total > 0 {
		u.log.Info("idle conversations resolved", zap.Int("count", total), zap.Duration("idle", idle))
	}
	return total, nil
}
