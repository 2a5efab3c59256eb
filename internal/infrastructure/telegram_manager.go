package infrastructure

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

// TelegramNotifier posts human-handoff alerts to an operators' chat.
type TelegramNotifier struct {
	Bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, log *zap.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Info("telegram alerts enabled", zap.String("bot", bot.Self.UserName))
	return &TelegramNotifier{Bot: bot, chatID: chatID, log: log.Named("telegram")}, nil
}

// BotName returns the bot's username.
func (t *TelegramNotifier) BotName() string {
	return t.Bot.Self.UserName
}

func (t *TelegramNotifier) NotifyHandoff(_ context.Context, alert interfaces.HandoffAlert) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatHandoffAlert(alert))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.Bot.Send(msg); err != nil {
		return fmt.Errorf("send handoff alert: %w", err)
	}
	t.log.Debug("handoff alert sent", zap.String("conversation_id", alert.ConversationID))
	return nil
}

// CommandHandler answers a bot command with an HTML reply.
type CommandHandler func(ctx context.Context, args string) (string, error)

// Listen polls the bot for commands sent from the alert chat and answers
// them until ctx is done. Messages from other chats are ignored.
func (t *TelegramNotifier) Listen(ctx context.Context, commands map[string]CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.Bot.GetUpdatesChan(u)
	defer t.Bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || !msg.IsCommand() || msg.Chat.ID != t.chatID {
				continue
			}
			text := "Comando desconhecido."
			if h, found := commands[msg.Command()]; found {
				reply, err := h(ctx, msg.CommandArguments())
				if err != nil {
					t.log.Error("telegram command failed", zap.String("command", msg.Command()), zap.Error(err))
					reply = "Erro ao executar o comando."
				}
				text = reply
			}
			out := tgbotapi.NewMessage(t.chatID, text)
			out.ParseMode = tgbotapi.ModeHTML
			if _, err := t.Bot.Send(out); err != nil {
				t.log.Warn("telegram reply failed", zap.Error(err))
			}
		}
	}
}

// FormatPending lists conversations waiting for an operator.
func FormatPending(convs []entities.ConversationSummary) string {
	if len(convs) == 0 {
		return "Nenhuma conversa aguardando atendimento."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%d conversa(s) aguardando atendimento</b>\n", len(convs))
	for _, c := range convs {
		name := "não identificado"
		if c.Member != nil && c.Member.Name != "" {
			name = c.Member.Name
		}
		fmt.Fprintf(&sb, "\n• %s (+%s) <code>%s</code>", tgEscape(name), tgEscape(c.Phone), tgEscape(c.ID))
		if c.LastMessage != nil {
			fmt.Fprintf(&sb, "\n  %s", tgEscape(truncate(c.LastMessage.Content, 80)))
		}
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// FormatHandoffAlert renders the alert as Telegram HTML.
func FormatHandoffAlert(a interfaces.HandoffAlert) string {
	var sb strings.Builder
	sb.WriteString("🙋 <b>Atendimento humano solicitado</b>\n\n")
	client := a.ClientName
	if client == "" {
		client = a.ClientID
	}
	fmt.Fprintf(&sb, "<b>Cliente:</b> %s\n", tgEscape(client))
	name := a.MemberName
	if name == "" {
		name = "não identificado"
	}
	fmt.Fprintf(&sb, "<b>Contato:</b> %s (+%s)\n", tgEscape(name), tgEscape(a.Phone))
	fmt.Fprintf(&sb, "<b>Conversa:</b> <code>%s</code>\n\n", tgEscape(a.ConversationID))
	sb.WriteString(tgEscape(a.Text))
	return sb.String()
}

var tgReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func tgEscape(s string) string {
	return tgReplacer.Replace(s)
}
