package usecases

import (
	"context"
	"testing"
	"time"

	"whatsbot/internal/entities"
)

func incoming(from, text string) entities.IncomingMessage {
	return entities.IncomingMessage{
		From:      from,
		MessageID: "wamid.in." + text,
		Type:      "text",
		Text:      text,
		Contact:   &entities.Contact{Name: "Maria", WaID: from},
	}
}

func conversationFor(t *testing.T, f *fixture, clientID, phone string) *entities.Conversation {
	t.Helper()
	list, err := f.store.Conversations.List(context.Background(), entities.ConversationFilter{ClientID: clientID, Phone: phone})
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one conversation, got %d (%v)", len(list), err)
	}
	c := list[0].Conversation
	return &c
}

func TestHandleIncomingRepliesAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubAI{reply: "Olá Maria!"})
	f.client(t, entities.DefaultClientID, entities.NicheSindicato)

	f.svc.HandleIncoming(ctx, incoming("5511999", "boa tarde"))

	if got := f.messenger.bodies(); len(got) != 1 || got[0] != "Olá Maria!" {
		t.Fatalf("sent = %v", got)
	}
	if len(f.messenger.read) != 1 {
		t.Errorf("inbound message should be marked as read")
	}

	member, err := f.store.Members.FindByPhone(ctx, entities.DefaultClientID, "5511999")
	if err != nil {
		t.Fatalf("member not registered: %v", err)
	}
	if member.Name != "Maria" || member.Status != entities.MemberActive || member.JoinDate == nil {
		t.Errorf("unexpected member %+v", member)
	}

	conv := conversationFor(t, f, entities.DefaultClientID, "5511999")
	if conv.MemberID == nil || *conv.MemberID != member.ID {
		t.Error("conversation should be linked to the member")
	}
	msgs, _ := f.store.Messages.List(ctx, conv.ID, 10)
	if len(msgs) != 2 {
		t.Fatalf("stored %d messages, want 2", len(msgs))
	}
	in, out := msgs[0], msgs[1]
	if in.Direction != entities.DirectionInbound || in.Status != entities.MessageDelivered || in.WAMessageID != "wamid.in.boa tarde" {
		t.Errorf("inbound = %+v", in)
	}
	if out.Direction != entities.DirectionOutbound || !out.IsFromBot || out.WAMessageID != "wamid.1" {
		t.Errorf("outbound = %+v", out)
	}

	rows, _ := f.store.Analytics.List(ctx, entities.DefaultClientID, time.Now().AddDate(0, 0, -1))
	if len(rows) != 1 || rows[0].MessagesIn != 1 || rows[0].MessagesOut != 1 || rows[0].NewMembers != 1 {
		t.Errorf("analytics = %+v", rows)
	}
}

func TestHandleIncomingWithoutContactNameSkipsMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.client(t, entities.DefaultClientID, entities.NicheOutro)

	msg := incoming("5511", "ok")
	msg.Contact = nil
	f.svc.HandleIncoming(ctx, msg)

	if n, _ := f.store.Members.Count(ctx, entities.DefaultClientID); n != 0 {
		t.Errorf("members = %d, want 0", n)
	}
	if got := f.messenger.bodies(); len(got) != 1 || got[0] != FallbackMessage(entities.NicheOutro) {
		t.Errorf("sent = %v", got)
	}
}

func TestHandleIncomingHumanHandoff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubAI{reply: "Vou chamar alguém."})
	f.client(t, entities.DefaultClientID, entities.NicheSindicato)

	f.svc.HandleIncoming(ctx, incoming("5511", "quero falar com um atendente"))

	conv := conversationFor(t, f, entities.DefaultClientID, "5511")
	if conv.Status != entities.ConversationPendingHuman {
		t.Fatalf("status = %s, want pending_human", conv.Status)
	}
	if len(f.notifier.alerts) != 1 || f.notifier.alerts[0].MemberName != "Maria" || f.notifier.alerts[0].ConversationID != conv.ID {
		t.Errorf("alerts = %+v", f.notifier.alerts)
	}
	// The message that triggers the handoff is still answered.
	if len(f.messenger.bodies()) != 1 {
		t.Fatalf("sent = %v", f.messenger.bodies())
	}

	// While pending, the bot stays silent but keeps recording.
	f.svc.HandleIncoming(ctx, incoming("5511", "alô?"))
	if len(f.messenger.bodies()) != 1 {
		t.Errorf("bot replied while pending_human: %v", f.messenger.bodies())
	}
	msgs, _ := f.store.Messages.List(ctx, conv.ID, 10)
	if len(msgs) != 3 {
		t.Errorf("stored %d messages, want 3", len(msgs))
	}
	if len(f.notifier.alerts) != 1 {
		t.Errorf("handoff should notify once, got %d", len(f.notifier.alerts))
	}
}

func TestHandleIncomingAutoReplyDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.client(t, entities.DefaultClientID, entities.NicheSindicato)
	if err := f.store.Settings.Upsert(ctx, entities.DefaultClientID, entities.SettingAutoReply, "false"); err != nil {
		t.Fatal(err)
	}

	f.svc.HandleIncoming(ctx, incoming("5511", "oi"))

	if got := f.messenger.bodies(); len(got) != 0 {
		t.Errorf("sent = %v, want nothing", got)
	}
}

func TestHandleIncomingOutsideBusinessHours(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubAI{reply: "llm"})
	f.client(t, entities.DefaultClientID, entities.NicheSindicato)
	for k, v := range map[string]string{
		entities.SettingBusinessHours:       `{"start":"08:00","end":"18:00"}`,
		entities.SettingOutsideHoursMessage: "Voltamos às 8h.",
	} {
		if err := f.store.Settings.Upsert(ctx, entities.DefaultClientID, k, v); err != nil {
			t.Fatal(err)
		}
	}
	f.svc.now = func() time.Time { return time.Date(2026, 5, 4, 22, 30, 0, 0, time.Local) }

	f.svc.HandleIncoming(ctx, incoming("5511", "oi"))

	if got := f.messenger.bodies(); len(got) != 1 || got[0] != "Voltamos às 8h." {
		t.Errorf("sent = %v", got)
	}
	if len(f.ai.calls) != 0 {
		t.Error("LLM should not run outside business hours")
	}
}

func TestHandleIncomingNonText(t *testing.T) {
	f := newFixture(t, &stubAI{reply: "llm"})
	f.client(t, entities.DefaultClientID, entities.NicheSindicato)

	msg := incoming("5511", "")
	msg.Type = "image"
	f.svc.HandleIncoming(context.Background(), msg)

	if got := f.messenger.bodies(); len(got) != 1 || got[0] != NotSupportedMessage {
		t.Errorf("sent = %v", got)
	}
}

func TestHandleIncomingSendFailureSendsErrorMessage(t *testing.T) {
	f := newFixture(t, &stubAI{reply: "resposta"})
	f.client(t, entities.DefaultClientID, entities.NicheSindicato)
	f.messenger.failFor = map[string]error{"resposta": errSendFailed}

	f.svc.HandleIncoming(context.Background(), incoming("5511", "oi"))

	if got := f.messenger.bodies(); len(got) != 1 || got[0] != ErrorMessage {
		t.Errorf("sent = %v, want the error message", got)
	}
}

func TestHandleIncomingResolvesClient(t *testing.T) {
	ctx := context.Background()

	t.Run("display number", func(t *testing.T) {
		f := newFixture(t, nil)
		f.client(t, entities.DefaultClientID, entities.NicheSindicato)
		owner := entities.NewDefaultClient("acme")
		owner.Phone = "+55 11 4000-1000"
		if err := f.store.Clients.Create(ctx, owner); err != nil {
			t.Fatal(err)
		}
		msg := incoming("5511", "oi")
		msg.DisplayPhoneNumber = "551140001000"
		f.svc.HandleIncoming(ctx, msg)
		conversationFor(t, f, "acme", "5511")
	})

	t.Run("device client id", func(t *testing.T) {
		f := newFixture(t, nil)
		msg := incoming("5511", "oi")
		msg.ClientID = "shop"
		f.svc.HandleIncoming(ctx, msg)
		if _, err := f.store.Clients.Get(ctx, "shop"); err != nil {
			t.Fatalf("device client not ensured: %v", err)
		}
		conversationFor(t, f, "shop", "5511")
	})

	t.Run("empty store creates default", func(t *testing.T) {
		f := newFixture(t, nil)
		f.svc.HandleIncoming(ctx, incoming("5511", "oi"))
		conversationFor(t, f, entities.DefaultClientID, "5511")
	})
}

func TestApplyStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.client(t, entities.DefaultClientID, entities.NicheSindicato)
	f.svc.HandleIncoming(ctx, incoming("5511", "oi"))

	f.svc.ApplyStatus(ctx, "wamid.1", "read")
	f.svc.ApplyStatus(ctx, "wamid.unknown", "delivered")
	f.svc.ApplyStatus(ctx, "wamid.1", "bogus")
	// A late delivery receipt must not undo the read receipt.
	f.svc.ApplyStatus(ctx, "wamid.1", "delivered")
	f.svc.ApplyStatus(ctx, "wamid.1", "failed")

	conv := conversationFor(t, f, entities.DefaultClientID, "5511")
	msgs, _ := f.store.Messages.List(ctx, conv.ID, 10)
	if msgs[1].Status != entities.MessageRead {
		t.Errorf("outbound status = %s, want read", msgs[1].Status)
	}
}
