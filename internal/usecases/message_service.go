package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

const (
	NotSupportedMessage = "🤖 Desculpe, no momento só consigo processar mensagens de texto. \n\nPor favor, digite sua dúvida ou mensagem que terei prazer em ajudar!"
	ErrorMessage        = "🤖 Desculpe, ocorreu um erro ao processar sua mensagem.\n\nPor favor, tente novamente em alguns instantes ou entre em contato pelo telefone."
)

// SenderLock serializes work for one (client, phone) pair.
type SenderLock interface {
	Lock(key string) (unlock func())
}

// MessageService runs the incoming message pipeline: persist the inbound
// message, pick a reply, send it and persist the outbound message.
type MessageService struct {
	store     *interfaces.Store
	clients   *ClientUsecase
	responder *Responder
	messenger interfaces.Messenger
	notifier  interfaces.Notifier
	locks     SenderLock
	log       *zap.Logger
	now       func() time.Time
}

func NewMessageService(
	store *interfaces.Store,
	clients *ClientUsecase,
	responder *Responder,
	messenger interfaces.Messenger,
	notifier interfaces.Notifier,
	locks SenderLock,
	log *zap.Logger,
) *MessageService {
	return &MessageService{
		store:     store,
		clients:   clients,
		responder: responder,
		messenger: messenger,
		notifier:  notifier,
		locks:     locks,
		log:       log.Named("pipeline"),
		now:       time.Now,
	}
}

// HandleIncoming processes a Cloud API delivery, replying through the default
// messenger.
func (s *MessageService) HandleIncoming(ctx context.Context, msg entities.IncomingMessage) {
	s.HandleIncomingVia(ctx, msg, s.messenger)
}

// HandleIncomingVia processes a message and replies through via. Failures are
// logged and answered with the canned error message.
func (s *MessageService) HandleIncomingVia(ctx context.Context, msg entities.IncomingMessage, via interfaces.Messenger) {
	log := s.log.With(zap.String("from", msg.From), zap.String("wa_message_id", msg.MessageID))
	if err := s.process(ctx, msg, via, log); err != nil {
		log.Error("process incoming message", zap.Error(err))
		if via == nil {
			return
		}
		if _, sendErr := via.SendText(ctx, msg.From, ErrorMessage, entities.SendOptions{}); sendErr != nil {
			log.Error("send error message", zap.Error(sendErr))
		}
	}
}

func (s *MessageService) process(ctx context.Context, msg entities.IncomingMessage, via interfaces.Messenger, log *zap.Logger) error {
	client, err := s.clients.Resolve(ctx, msg)
	if err != nil {
		return fmt.Errorf("resolve client: %w", err)
	}
	log = log.With(zap.String("client_id", client.ID))

	unlock := s.locks.Lock(client.ID + ":" + msg.From)
	defer unlock()

	member, err := s.findOrCreateMember(ctx, client.ID, msg, log)
	if err != nil {
		return err
	}

	conv, err := s.findOrCreateConversation(ctx, client.ID, msg.From, member)
	if err != nil {
		return err
	}
	wasPending := conv.Status == entities.ConversationPendingHuman

	msgType := msg.Type
	if msgType == "" {
		msgType = "text"
	}
	metadata := map[string]any{"messageId": msg.MessageID}
	if msg.Contact != nil {
		metadata["contact"] = map[string]any{"name": msg.Contact.Name, "wa_id": msg.Contact.WaID}
	}
	inbound := &entities.Message{
		ClientID:       client.ID,
		ConversationID: conv.ID,
		Direction:      entities.DirectionInbound,
		Type:           msgType,
		Content:        msg.Text,
		Status:         entities.MessageDelivered,
		WAMessageID:    msg.MessageID,
		Metadata:       metadata,
	}
	if err := s.store.Messages.Create(ctx, inbound); err != nil {
		return fmt.Errorf("save inbound message: %w", err)
	}
	bump(ctx, s.store, log, client.ID, entities.CounterMessagesIn, 1)

	if via != nil && msg.MessageID != "" {
		if err := via.MarkAsRead(ctx, msg.MessageID); err != nil {
			log.Debug("mark as read", zap.Error(err))
		}
	}

	isText := (msgType == "text" || msgType == "interactive") && msg.Text != ""
	if isText {
		sentiment := AnalyzeSentiment(msg.Text)
		conv.Sentiment = &sentiment
	}
	handoff := isText && conv.Status == entities.ConversationActive && DetectIntent(msg.Text) == IntentHuman
	if handoff {
		conv.Status = entities.ConversationPendingHuman
	}
	if isText {
		if err := s.store.Conversations.Update(ctx, conv); err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
	}
	if handoff {
		bump(ctx, s.store, log, client.ID, entities.CounterPendingHuman, 1)
		s.notifyHandoff(ctx, client, conv, member, msg.Text, log)
	}

	raw, err := s.store.Settings.All(ctx, client.ID)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	cfg := entities.BotConfigFromSettings(raw)

	if wasPending || (cfg.HasAutoReply && !cfg.AutoReply) {
		log.Debug("reply suppressed", zap.Bool("pending_human", wasPending), zap.Bool("auto_reply", cfg.AutoReply))
		return s.touch(ctx, conv.ID)
	}

	var reply string
	switch {
	case cfg.HasBusinessHours && !cfg.BusinessHours.Contains(s.now()):
		reply = cfg.OutsideHoursMessage
	case isText:
		reply, err = s.responder.Respond(ctx, RespondInput{
			Message:        msg.Text,
			ClientID:       client.ID,
			ConversationID: conv.ID,
			Member:         member,
			Niche:          client.Niche,
		})
		if err != nil {
			return fmt.Errorf("respond: %w", err)
		}
	default:
		reply = NotSupportedMessage
	}

	if via == nil {
		return fmt.Errorf("send reply: %w", entities.ErrNotConfigured)
	}
	waID, err := via.SendText(ctx, msg.From, reply, entities.SendOptions{})
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}

	outbound := &entities.Message{
		ClientID:       client.ID,
		ConversationID: conv.ID,
		Direction:      entities.DirectionOutbound,
		Type:           "text",
		Content:        reply,
		Status:         entities.MessageSent,
		IsFromBot:      true,
		WAMessageID:    waID,
	}
	if err := s.store.Messages.Create(ctx, outbound); err != nil {
		return fmt.Errorf("save outbound message: %w", err)
	}
	bump(ctx, s.store, log, client.ID, entities.CounterMessagesOut, 1)

	return s.touch(ctx, conv.ID)
}

func (s *MessageService) findOrCreateMember(ctx context.Context, clientID string, msg entities.IncomingMessage, log *zap.Logger) (*entities.Member, error) {
	member, err := s.store.Members.FindByPhone(ctx, clientID, msg.From)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return nil, fmt.Errorf("find member: %w", err)
	}
	if msg.Contact == nil || msg.Contact.Name == "" {
		return nil, nil
	}

	now := s.now()
	member = &entities.Member{
		ClientID: clientID,
		Name:     msg.Contact.Name,
		Phone:    msg.From,
		Status:   entities.MemberActive,
		JoinDate: &now,
	}
	if err := s.store.Members.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}
	log.Info("member registered", zap.String("member_id", member.ID))
	bump(ctx, s.store, log, clientID, entities.CounterNewMembers, 1)
	return member, nil
}

func (s *MessageService) findOrCreateConversation(ctx context.Context, clientID, phone string, member *entities.Member) (*entities.Conversation, error) {
	conv, err := s.store.Conversations.FindOpen(ctx, clientID, phone)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	conv = &entities.Conversation{
		ClientID: clientID,
		Phone:    phone,
		Status:   entities.ConversationActive,
	}
	if member != nil {
		conv.MemberID = &member.ID
	}
	if err := s.store.Conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

func (s *MessageService) notifyHandoff(ctx context.Context, client *entities.Client, conv *entities.Conversation, member *entities.Member, text string, log *zap.Logger) {
	if s.notifier == nil {
		return
	}
	alert := interfaces.HandoffAlert{
		ClientID:       client.ID,
		ClientName:     client.Name,
		ConversationID: conv.ID,
		Phone:          conv.Phone,
		Text:           text,
	}
	if member != nil {
		alert.MemberName = member.Name
	}
	if err := s.notifier.NotifyHandoff(ctx, alert); err != nil {
		log.Warn("handoff notification failed", zap.Error(err))
	}
}

func (s *MessageService) touch(ctx context.Context, conversationID string) error {
	if err := s.store.Conversations.Touch(ctx, conversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// ApplyStatus records a delivery status reported by the Cloud API. Unknown
// message ids are logged and ignored.
func (s *MessageService) ApplyStatus(ctx context.Context, waMessageID, status string) {
	st := entities.MessageStatus(status)
	log := s.log.With(zap.String("wa_message_id", waMessageID), zap.String("status", status))
	if !st.Valid() {
		log.Debug("ignoring unknown status")
		return
	}
	err := s.store.Messages.UpdateStatusByWAID(ctx, waMessageID, st)
	switch {
	case errors.Is(err, entities.ErrNotFound):
		log.Debug("status for unknown message")
	case err != nil:
		log.Warn("update message status", zap.Error(err))
	}
}
