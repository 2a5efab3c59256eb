package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/infrastructure"
	"whatsbot/internal/interfaces"
	"whatsbot/internal/repository/memstore"
)

type sent struct {
	To   string
	Body string
}

type stubMessenger struct {
	mu      sync.Mutex
	sent    []sent
	read    []string
	failFor map[string]error
	n       int
}

func (m *stubMessenger) SendText(_ context.Context, to, body string, _ entities.SendOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[body]; err != nil {
		return "", err
	}
	m.n++
	m.sent = append(m.sent, sent{To: to, Body: body})
	return fmt.Sprintf("wamid.%d", m.n), nil
}

func (m *stubMessenger) SendButtons(ctx context.Context, to, body string, _ []entities.Button) (string, error) {
	return m.SendText(ctx, to, body, entities.SendOptions{})
}

func (m *stubMessenger) SendList(ctx context.Context, to, body, _ string, _ []entities.ListSection) (string, error) {
	return m.SendText(ctx, to, body, entities.SendOptions{})
}

func (m *stubMessenger) MarkAsRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.read = append(m.read, id)
	return nil
}

func (m *stubMessenger) bodies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.Body
	}
	return out
}

type fixedResolver struct{ m interfaces.Messenger }

func (r fixedResolver) For(string) interfaces.Messenger { return r.m }

type stubAI struct {
	reply string
	err   error
	calls []interfaces.CompletionRequest
}

func (a *stubAI) Complete(_ context.Context, req interfaces.CompletionRequest) (string, error) {
	a.calls = append(a.calls, req)
	return a.reply, a.err
}

func (a *stubAI) Name() string { return "stub" }

type stubNotifier struct {
	alerts []interfaces.HandoffAlert
	err    error
}

func (n *stubNotifier) NotifyHandoff(_ context.Context, a interfaces.HandoffAlert) error {
	n.alerts = append(n.alerts, a)
	return n.err
}

type noopPacer struct{}

func (noopPacer) Wait(ctx context.Context, _ string) error { return ctx.Err() }

var errSendFailed = errors.New("send failed")

type fixture struct {
	store     *interfaces.Store
	clients   *ClientUsecase
	responder *Responder
	messenger *stubMessenger
	ai        *stubAI
	notifier  *stubNotifier
	svc       *MessageService
}

// newFixture wires the pipeline against memstore. A nil ai leaves the
// responder without an LLM.
func newFixture(t *testing.T, ai *stubAI) *fixture {
	t.Helper()
	log := zap.NewNop()
	store := memstore.New()
	f := &fixture{
		store:     store,
		clients:   NewClientUsecase(store, log),
		messenger: &stubMessenger{},
		ai:        ai,
		notifier:  &stubNotifier{},
	}
	var client interfaces.AIClient
	if ai != nil {
		client = ai
	}
	f.responder = NewResponder(store, client, 0, log)
	f.svc = NewMessageService(store, f.clients, f.responder, f.messenger, f.notifier, infrastructure.NewKeyedMutex(), log)
	return f
}

func (f *fixture) client(t *testing.T, id string, niche entities.Niche) *entities.Client {
	t.Helper()
	c := entities.NewDefaultClient(id)
	c.Niche = niche
	if err := f.store.Clients.Create(context.Background(), c); err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}
