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

type Intent string

const (
	IntentGreeting Intent = "greeting"
	IntentGoodbye  Intent = "goodbye"
	IntentHelp     Intent = "help"
	IntentHuman    Intent = "human"
	IntentSchedule Intent = "schedule"
	IntentInfo     Intent = "info"
	IntentPrice    Intent = "price"
	IntentStatus   Intent = "status"
	IntentUnknown  Intent = "unknown"
)

// Checked in order; the first list with a hit wins.
var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentGreeting, []string{"oi", "olá", "ola", "bom dia", "boa tarde", "boa noite", "hey", "hello"}},
	{IntentGoodbye, []string{"tchau", "até mais", "ate logo", "obrigado", "valeu", "flw"}},
	{IntentHelp, []string{"ajuda", "help", "socorro", "como funciona"}},
	{IntentHuman, []string{"humano", "atendente", "pessoa", "falar com alguém", "falar com alguem"}},
	{IntentSchedule, []string{"agendar", "marcar", "horário", "horario", "reservar", "consulta"}},
	{IntentInfo, []string{"informação", "informacao", "saber", "quero saber", "como é"}},
	{IntentPrice, []string{"preço", "preco", "valor", "quanto custa", "quanto é"}},
	{IntentStatus, []string{"status", "andamento", "situação", "situacao", "como está"}},
}

var (
	positiveWords = []string{"obrigado", "ótimo", "otimo", "excelente", "bom", "legal", "adorei", "perfeito", "maravilhoso"}
	negativeWords = []string{"ruim", "péssimo", "pessimo", "horrível", "horrivel", "problema", "reclamação", "reclamacao", "insatisfeito", "frustrado", "raiva"}
)

// DetectIntent classifies a message by keyword lists.
func DetectIntent(message string) Intent {
	lower := strings.ToLower(message)
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.intent
			}
		}
	}
	return IntentUnknown
}

func AnalyzeSentiment(message string) entities.Sentiment {
	lower := strings.ToLower(message)
	count := func(words []string) int {
		n := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				n++
			}
		}
		return n
	}
	pos, neg := count(positiveWords), count(negativeWords)
	switch {
	case pos > neg:
		return entities.SentimentPositive
	case neg > pos:
		return entities.SentimentNegative
	}
	return entities.SentimentNeutral
}

const (
	historyLimit   = 10
	llmTemperature = 0.7
	llmMaxTokens   = 500
)

const promptRules = `

REGRAS IMPORTANTES:
1. Seja conciso e direto nas respostas
2. Use emojis com moderação
3. Se não souber algo, seja honesto e ofereça alternativas
4. Para assuntos complexos, sugira falar com um humano
5. NUNCA invente informações
6. Use o histórico da conversa para dar contexto

HISTÓRICO DA CONVERSA:
`

type RespondInput struct {
	Message        string
	ClientID       string
	ConversationID string
	Member         *entities.Member
	Niche          entities.Niche
}

// Responder answers a message with the first matching flow, then the LLM,
// then the niche fallback.
type Responder struct {
	store   *interfaces.Store
	ai      interfaces.AIClient
	timeout time.Duration
	log     *zap.Logger
}

// NewResponder accepts a nil ai client; replies then come from flows and
// fallbacks only.
func NewResponder(store *interfaces.Store, ai interfaces.AIClient, timeout time.Duration, log *zap.Logger) *Responder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Responder{store: store, ai: ai, timeout: timeout, log: log.Named("responder")}
}

func (r *Responder) Respond(ctx context.Context, in RespondInput) (string, error) {
	if reply, ok := r.matchFlow(ctx, in); ok {
		return reply, nil
	}

	fallback := FallbackMessage(in.Niche)
	if r.ai == nil {
		return fallback, nil
	}

	history, err := r.store.Messages.Recent(ctx, in.ConversationID, historyLimit)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.ai.Complete(callCtx, interfaces.CompletionRequest{
		SystemPrompt: BuildSystemPrompt(in.Niche, in.Member, history),
		UserMessage:  in.Message,
		Temperature:  llmTemperature,
		MaxTokens:    llmMaxTokens,
	})
	if err != nil {
		r.log.Warn("llm completion failed, using fallback",
			zap.String("provider", r.ai.Name()),
			zap.String("client_id", in.ClientID),
			zap.Error(err))
		return fallback, nil
	}
	if strings.TrimSpace(reply) == "" {
		return fallback, nil
	}
	return reply, nil
}

func (r *Responder) matchFlow(ctx context.Context, in RespondInput) (string, bool) {
	if in.ClientID == "" {
		return "", false
	}
	flows, err := r.store.Flows.List(ctx, in.ClientID)
	if err != nil {
		r.log.Warn("list flows", zap.String("client_id", in.ClientID), zap.Error(err))
		return "", false
	}
	for i := range flows {
		f := &flows[i]
		if !f.Matches(in.Message) {
			continue
		}
		if err := r.store.Flows.IncrementUse(ctx, f.ID); err != nil {
			r.log.Warn("increment flow use", zap.String("flow_id", f.ID), zap.Error(err))
		}
		return f.Steps[0].Message, true
	}
	return "", false
}

// BuildSystemPrompt assembles niche context, member details, the fixed rules
// and the conversation history.
func BuildSystemPrompt(niche entities.Niche, member *entities.Member, history []entities.Message) string {
	var b strings.Builder
	b.WriteString(NicheContext(niche))
	b.WriteString("\n")
	b.WriteString(memberContext(member))
	b.WriteString(promptRules)

	if len(history) == 0 {
		b.WriteString("Nenhuma mensagem anterior.")
		return b.String()
	}
	for i, m := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case m.IsFromBot:
			b.WriteString("Bot: ")
		case m.Direction == entities.DirectionOutbound:
			b.WriteString("Atendente: ")
		default:
			b.WriteString("Usuário: ")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

func memberContext(m *entities.Member) string {
	if m == nil {
		return "\n\nUsuário não identificado."
	}
	ctx := fmt.Sprintf("\n\nINFORMAÇÕES DO USUÁRIO:\nNome: %s\nTelefone: %s\nStatus: %s\n", m.Name, m.Phone, m.Status)
	if m.MembershipID != "" {
		ctx += "Matrícula: " + m.MembershipID
	}
	return ctx
}
