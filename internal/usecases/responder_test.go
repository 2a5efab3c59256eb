package usecases

import (
	"context"
	"errors"
	"strings"
	"testing"

	"whatsbot/internal/entities"
)

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		msg  string
		want Intent
	}{
		{"Oi, tudo bem?", IntentGreeting},
		{"BOM DIA", IntentGreeting},
		{"valeu pela ajuda", IntentGoodbye}, // goodbye is checked before help
		{"preciso de ajuda", IntentHelp},
		{"quero falar com um atendente", IntentHuman},
		{"gostaria de agendar", IntentSchedule},
		{"quanto custa a mensalidade", IntentPrice},
		{"qual o andamento do pedido", IntentStatus},
		{"xyz", IntentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := DetectIntent(tt.msg); got != tt.want {
				t.Errorf("DetectIntent(%q) = %s, want %s", tt.msg, got, tt.want)
			}
		})
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	tests := []struct {
		msg  string
		want entities.Sentiment
	}{
		{"Excelente atendimento, adorei", entities.SentimentPositive},
		{"serviço péssimo, estou com raiva", entities.SentimentNegative},
		{"bom mas tive um problema", entities.SentimentNeutral},
		{"qual o endereço?", entities.SentimentNeutral},
	}
	for _, tt := range tests {
		if got := AnalyzeSentiment(tt.msg); got != tt.want {
			t.Errorf("AnalyzeSentiment(%q) = %s, want %s", tt.msg, got, tt.want)
		}
	}
}

func TestRespondPrefersActiveFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubAI{reply: "from llm"})
	f.client(t, "a", entities.NicheClinica)

	inactive := &entities.Flow{ClientID: "a", Name: "old", Trigger: "horario", Steps: []entities.FlowStep{{Message: "old"}}}
	active := &entities.Flow{ClientID: "a", Name: "hours", Trigger: "HORARIO", IsActive: true,
		Steps: []entities.FlowStep{{Message: "Abrimos às 8h."}}}
	for _, fl := range []*entities.Flow{inactive, active} {
		if err := f.store.Flows.Create(ctx, fl); err != nil {
			t.Fatal(err)
		}
	}

	got, err := f.responder.Respond(ctx, RespondInput{Message: "qual o horario?", ClientID: "a", Niche: entities.NicheClinica})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Abrimos às 8h." {
		t.Errorf("reply = %q", got)
	}
	if len(f.ai.calls) != 0 {
		t.Error("LLM should not be called when a flow matches")
	}
	stored, _ := f.store.Flows.Get(ctx, active.ID)
	if stored.UseCount != 1 {
		t.Errorf("UseCount = %d, want 1", stored.UseCount)
	}
}

func TestRespondFallbacks(t *testing.T) {
	tests := []struct {
		name string
		ai   *stubAI
	}{
		{"no llm", nil},
		{"llm error", &stubAI{err: errors.New("boom")}},
		{"blank reply", &stubAI{reply: "  \n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.ai)
			got, err := f.responder.Respond(context.Background(), RespondInput{Message: "hm", Niche: "bogus"})
			if err != nil {
				t.Fatal(err)
			}
			if got != FallbackMessage(entities.NicheOutro) {
				t.Errorf("reply = %q, want outro fallback", got)
			}
		})
	}
}

func TestRespondBuildsPromptFromHistory(t *testing.T) {
	ctx := context.Background()
	ai := &stubAI{reply: "Claro!"}
	f := newFixture(t, ai)
	f.client(t, "a", entities.NicheAcademia)

	conv := &entities.Conversation{ClientID: "a", Phone: "5511", Status: entities.ConversationActive}
	if err := f.store.Conversations.Create(ctx, conv); err != nil {
		t.Fatal(err)
	}
	for _, m := range []entities.Message{
		{Direction: entities.DirectionInbound, Content: "oi"},
		{Direction: entities.DirectionOutbound, Content: "olá!", IsFromBot: true},
	} {
		m.ClientID, m.ConversationID, m.Type = "a", conv.ID, "text"
		if err := f.store.Messages.Create(ctx, &m); err != nil {
			t.Fatal(err)
		}
	}

	member := &entities.Member{Name: "Ana", Phone: "5511", Status: entities.MemberActive, MembershipID: "M-7"}
	got, err := f.responder.Respond(ctx, RespondInput{
		Message: "tem aula hoje?", ClientID: "a", ConversationID: conv.ID, Member: member, Niche: entities.NicheAcademia,
	})
	if err != nil || got != "Claro!" {
		t.Fatalf("Respond = %q, %v", got, err)
	}

	req := ai.calls[0]
	if req.Temperature != 0.7 || req.MaxTokens != 500 || req.UserMessage != "tem aula hoje?" {
		t.Errorf("unexpected request parameters: %+v", req)
	}
	for _, want := range []string{
		NicheContext(entities.NicheAcademia),
		"Nome: Ana", "Matrícula: M-7",
		"REGRAS IMPORTANTES:",
		"Usuário: oi\nBot: olá!",
	} {
		if !strings.Contains(req.SystemPrompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestBuildSystemPromptLabelsOperatorReplies(t *testing.T) {
	history := []entities.Message{
		{Direction: entities.DirectionInbound, Content: "quero falar com alguém"},
		{Direction: entities.DirectionOutbound, Content: "Vou transferir.", IsFromBot: true},
		{Direction: entities.DirectionOutbound, Content: "Oi, sou a Carla."},
	}
	p := BuildSystemPrompt(entities.NicheClinica, nil, history)
	want := "Usuário: quero falar com alguém\nBot: Vou transferir.\nAtendente: Oi, sou a Carla."
	if !strings.HasSuffix(p, want) {
		t.Errorf("history = %q, want suffix %q", p[strings.LastIndex(p, "HISTÓRICO"):], want)
	}
}

func TestBuildSystemPromptWithoutContext(t *testing.T) {
	p := BuildSystemPrompt(entities.NicheHotel, nil, nil)
	if !strings.Contains(p, "Usuário não identificado.") {
		t.Error("missing anonymous member context")
	}
	if !strings.HasSuffix(p, "HISTÓRICO DA CONVERSA:\nNenhuma mensagem anterior.") {
		t.Errorf("unexpected prompt tail: %q", p[len(p)-60:])
	}
}
