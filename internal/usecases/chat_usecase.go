package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

// TestPhone is the phone number the dashboard chat tester talks as.
const TestPhone = "test"

type ChatResult struct {
	Response string       `json:"response"`
	Metadata ChatMetadata `json:"metadata"`
}

type ChatMetadata struct {
	Sentiment      entities.Sentiment `json:"sentiment"`
	Intent         Intent             `json:"intent"`
	ConversationID string             `json:"conversationId"`
}

// ChatUsecase lets dashboard users talk to the responder without WhatsApp.
type ChatUsecase struct {
	store     *interfaces.Store
	clients   *ClientUsecase
	responder *Responder
}

func NewChatUsecase(store *interfaces.Store, clients *ClientUsecase, responder *Responder) *ChatUsecase {
	return &ChatUsecase{store: store, clients: clients, responder: responder}
}

func (u *ChatUsecase) Send(ctx context.Context, message, clientID string, niche entities.Niche) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalidf("Mensagem é obrigatória")
	}
	if niche != "" && !niche.Valid() {
		return nil, invalidf("unknown niche %q", niche)
	}
	client, _, err := u.clients.Ensure(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if niche == "" {
		niche = client.Niche
	}

	conv, err := u.store.Conversations.FindOpen(ctx, client.ID, TestPhone)
	if errors.Is(err, entities.ErrNotFound) {
		conv = &entities.Conversation{ClientID: client.ID, Phone: TestPhone, Status: entities.ConversationActive}
		err = u.store.Conversations.Create(ctx, conv)
	}
	if err != nil {
		return nil, fmt.Errorf("test conversation: %w", err)
	}

	inbound := &entities.Message{
		ClientID:       client.ID,
		ConversationID: conv.ID,
		Direction:      entities.DirectionInbound,
		Type:           "text",
		Content:        message,
		Status:         entities.MessageDelivered,
	}
	if err := u.store.Messages.Create(ctx, inbound); err != nil {
		return nil, fmt.Errorf("save inbound message: %w", err)
	}

	reply, err := u.responder.Respond(ctx, RespondInput{
		Message:        message,
		ClientID:       client.ID,
		ConversationID: conv.ID,
		Niche:          niche,
	})
	if err != nil {
		return nil, err
	}

	outbound := &entities.Message{
		ClientID:       client.ID,
		ConversationID: conv.ID,
		Direction:      entities.DirectionOutbound,
		Type:           "text",
		Content:        reply,
		Status:         entities.MessageSent,
		IsFromBot:      true,
	}
	if err := u.store.Messages.Create(ctx, outbound); err != nil {
		return nil, fmt.Errorf("save outbound message: %w", err)
	}
	if err := u.store.Conversations.Touch(ctx, conv.ID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	return &ChatResult{
		Response: reply,
		Metadata: ChatMetadata{
			Sentiment:      AnalyzeSentiment(message),
			Intent:         DetectIntent(message),
			ConversationID: conv.ID,
		},
	}, nil
}
