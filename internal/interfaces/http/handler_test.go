package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/infrastructure"
	"whatsbot/internal/interfaces"
	"whatsbot/internal/repository/memstore"
	"whatsbot/internal/usecases"
)

const (
	testSecret      = "test-secret-0123456789"
	testVerifyToken = "verify-me"
	testAppSecret   = "app-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMessenger) SendText(_ context.Context, to, body string, _ entities.SendOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+": "+body)
	return fmt.Sprintf("wamid.out.%d", len(m.sent)), nil
}

func (m *recordingMessenger) SendButtons(ctx context.Context, to, body string, _ []entities.Button) (string, error) {
	return m.SendText(ctx, to, body, entities.SendOptions{})
}

func (m *recordingMessenger) SendList(ctx context.Context, to, body, _ string, _ []entities.ListSection) (string, error) {
	return m.SendText(ctx, to, body, entities.SendOptions{})
}

func (m *recordingMessenger) MarkAsRead(context.Context, string) error { return nil }

func (m *recordingMessenger) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type staticResolver struct{ m interfaces.Messenger }

func (r staticResolver) For(string) interfaces.Messenger { return r.m }

type noWait struct{}

func (noWait) Wait(ctx context.Context, _ string) error { return ctx.Err() }

type fakeDevices struct {
	qr        string
	connected []string
}

func (f *fakeDevices) Connect(_ context.Context, clientID string) (*infrastructure.DeviceSession, error) {
	f.connected = append(f.connected, clientID)
	return nil, nil
}

func (f *fakeDevices) Status(clientID string) infrastructure.DeviceStatus {
	return infrastructure.DeviceStatus{ClientID: clientID, QRPending: f.qr != ""}
}

func (f *fakeDevices) QR(string) string { return f.qr }

func (f *fakeDevices) Logout(context.Context, string) error { return nil }

func (f *fakeDevices) List() []infrastructure.DeviceStatus {
	return []infrastructure.DeviceStatus{{ClientID: "default", LoggedIn: true}}
}

type server struct {
	router    *gin.Engine
	store     *interfaces.Store
	messenger *recordingMessenger
	auth      *usecases.AuthUsecase
	token     string
}

type option func(*Deps)

func newServer(t *testing.T, opts ...option) *server {
	t.Helper()
	log := zap.NewNop()
	store := memstore.New()
	messenger := &recordingMessenger{}
	resolver := staticResolver{messenger}

	clients := usecases.NewClientUsecase(store, log)
	responder := usecases.NewResponder(store, nil, 0, log)
	auth := usecases.NewAuthUsecase(store.Users, testSecret, log)

	d := Deps{
		Messages:      usecases.NewMessageService(store, clients, responder, messenger, nil, infrastructure.NewKeyedMutex(), log),
		Clients:       clients,
		Members:       usecases.NewMemberUsecase(store, clients, log),
		Conversations: usecases.NewConversationUsecase(store, resolver, log),
		Templates:     usecases.NewTemplateUsecase(store, log),
		Flows:         usecases.NewFlowUsecase(store),
		Dashboard:     usecases.NewDashboardUsecase(store, clients, log),
		Broadcast:     usecases.NewBroadcastUsecase(store, resolver, noWait{}, log),
		Setup:         usecases.NewSetupUsecase(store, clients, log),
		Chat:          usecases.NewChatUsecase(store, clients, responder),
		Auth:          auth,
		Analytics:     usecases.NewAnalyticsUsecase(store, log),
		Reports:       usecases.NewReportUsecase(store),
		Integrations:  Integrations{CloudConfigured: true, AIProvider: "openai", AIModel: "gpt-4o-mini"},
		VerifyToken:   testVerifyToken,
		AppSecret:     testAppSecret,
		Log:           log,
	}
	for _, opt := range opts {
		opt(&d)
	}

	r := gin.New()
	SetupRoutes(r, d, NewMiddleware(testSecret))

	if err := auth.EnsureAdmin(context.Background(), "admin", "admin-pass"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	s := &server{router: r, store: store, messenger: messenger, auth: auth}
	s.token = s.login(t, "admin", "admin-pass")
	return s
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (s *server) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) api(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, method, path, body, s.token)
}

func (s *server) login(t *testing.T, username, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": password}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, w.Code, w.Body)
	}
	var out struct {
		Token string `json:"token"`
	}
	decodeData(t, w, &out)
	return out.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	env := decode(t, w)
	if !env.Success {
		t.Fatalf("unexpected error envelope: %s", env.Error)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testAppSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhook(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/api/webhook/whatsapp?hub.mode=subscribe&hub.verify_token="+testVerifyToken+"&hub.challenge=12345", nil, "")
	if w.Code != http.StatusOK || w.Body.String() != "12345" {
		t.Errorf("verify = %d %q", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}

	w = s.do(t, http.MethodGet, "/api/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=1", nil, "")
	if w.Code != http.StatusForbidden || decode(t, w).Success {
		t.Errorf("wrong token = %d %s", w.Code, w.Body)
	}
}

const deliveryBody = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550001111", "phone_number_id": "99"},
        "contacts": [{"profile": {"name": "Maria"}, "wa_id": "5511988887777"}],
        "messages": [
          {"from": "5511988887777", "id": "wamid.in.1", "timestamp": "1700000000", "type": "text", "text": {"body": "bom dia"}},
          {"from": "5511988887777", "id": "wamid.in.2", "timestamp": "1700000001", "type": "interactive",
           "interactive": {"type": "button_reply", "button_reply": {"id": "b1", "title": "Horários"}}}
        ]
      }
    }]
  }]
}`

func TestReceiveWebhookProcessesMessages(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/whatsapp", strings.NewReader(deliveryBody))
	req.Header.Set("X-Hub-Signature-256", sign(deliveryBody))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"processed"`) {
		t.Fatalf("webhook = %d %s", w.Code, w.Body)
	}
	sent := s.messenger.messages()
	if len(sent) != 2 {
		t.Fatalf("sent %d replies, want 2: %v", len(sent), sent)
	}
	for _, m := range sent {
		if !strings.HasPrefix(m, "5511988887777: ") {
			t.Errorf("reply went to the wrong number: %q", m)
		}
	}

	ctx := context.Background()
	list, err := s.store.Conversations.List(ctx, entities.ConversationFilter{ClientID: entities.DefaultClientID})
	if err != nil || len(list) != 1 {
		t.Fatalf("conversations = %d (%v)", len(list), err)
	}
	msgs, _ := s.store.Messages.List(ctx, list[0].ID, 10)
	if len(msgs) != 4 || msgs[2].Content != "Horários" {
		t.Errorf("stored messages = %+v", msgs)
	}

	member, err := s.store.Members.FindByPhone(ctx, entities.DefaultClientID, "5511988887777")
	if err != nil {
		t.Fatalf("member from contact profile: %v", err)
	}
	if member.Name != "Maria" {
		t.Errorf("member name = %q, want Maria", member.Name)
	}

	status := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.out.1","status":"read"}]}}]}]}`
	req = httptest.NewRequest(http.MethodPost, "/api/webhook/whatsapp", strings.NewReader(status))
	req.Header.Set("X-Hub-Signature-256", sign(status))
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status webhook = %d", w.Code)
	}
	msgs, _ = s.store.Messages.List(ctx, list[0].ID, 10)
	if msgs[1].Status != entities.MessageRead {
		t.Errorf("outbound status = %s, want read", msgs[1].Status)
	}
}

func TestReceiveWebhookRejects(t *testing.T) {
	s := newServer(t)
	post := func(body, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/webhook/whatsapp", strings.NewReader(body))
		if signature != "" {
			req.Header.Set("X-Hub-Signature-256", signature)
		}
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	if w := post(deliveryBody, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing signature = %d", w.Code)
	}
	if w := post(deliveryBody, "sha256=00ff"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad signature = %d", w.Code)
	}
	if w := post("{not json", sign("{not json")); w.Code != http.StatusBadRequest {
		t.Errorf("invalid json = %d", w.Code)
	}
	other := `{"object":"page","entry":[]}`
	if w := post(other, sign(other)); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ignored"`) {
		t.Errorf("other object = %d %s", w.Code, w.Body)
	}
	if len(s.messenger.messages()) != 0 {
		t.Error("rejected deliveries must not reach the pipeline")
	}
}

func TestAuthRequired(t *testing.T) {
	s := newServer(t)

	if w := s.do(t, http.MethodGet, "/api/members", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/members", nil, "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "nope"}, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("bad credentials = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/healthz", nil, ""); w.Code != http.StatusOK {
		t.Errorf("healthz = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/", nil, ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<html") {
		t.Errorf("index = %d", w.Code)
	}
}

func TestAdminUsersRequireAdminRole(t *testing.T) {
	s := newServer(t)

	w := s.api(t, http.MethodPost, "/api/admin/users", map[string]string{"username": "operador", "password": "senha123"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create operator = %d %s", w.Code, w.Body)
	}
	var created entities.User
	decodeData(t, w, &created)
	if created.Role != entities.RoleOperator || strings.Contains(w.Body.String(), "senha123") {
		t.Errorf("created = %s", w.Body)
	}

	opToken := s.login(t, "operador", "senha123")
	if w := s.do(t, http.MethodGet, "/api/admin/users", nil, opToken); w.Code != http.StatusForbidden {
		t.Errorf("operator on admin route = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/members", nil, opToken); w.Code != http.StatusOK {
		t.Errorf("operator on api route = %d", w.Code)
	}

	if w := s.api(t, http.MethodPost, "/api/admin/users", map[string]string{"username": "operador", "password": "outra123"}); w.Code != http.StatusBadRequest {
		t.Errorf("duplicate username = %d", w.Code)
	}
	if w := s.api(t, http.MethodDelete, "/api/admin/users/"+created.ID, nil); w.Code != http.StatusOK {
		t.Errorf("delete = %d %s", w.Code, w.Body)
	}
	if w := s.api(t, http.MethodDelete, "/api/admin/users/"+created.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("delete again = %d", w.Code)
	}
}

func TestMembersAPI(t *testing.T) {
	s := newServer(t)

	w := s.api(t, http.MethodPost, "/api/members", map[string]any{"name": "Ana", "phone": "+55 11 99999-0000", "category": "ativo"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body)
	}
	var m entities.Member
	decodeData(t, w, &m)
	if m.ClientID != entities.DefaultClientID || m.Phone != "5511999990000" {
		t.Errorf("member = %+v", m)
	}

	w = s.api(t, http.MethodPost, "/api/members", map[string]any{"name": "Bia", "phone": "5511999990000"})
	if env := decode(t, w); w.Code != http.StatusBadRequest || env.Error != "member already exists with this phone" {
		t.Errorf("duplicate = %d %q", w.Code, env.Error)
	}
	if w := s.api(t, http.MethodPost, "/api/members", map[string]any{"name": "Sem fone"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing phone = %d", w.Code)
	}

	var list []entities.Member
	decodeData(t, s.api(t, http.MethodGet, "/api/members?search=an", nil), &list)
	if len(list) != 1 || list[0].ID != m.ID {
		t.Errorf("search = %+v", list)
	}

	w = s.api(t, http.MethodPut, "/api/members/"+m.ID, map[string]any{"notes": "diretoria"})
	var updated entities.Member
	decodeData(t, w, &updated)
	if updated.Notes != "diretoria" || updated.Name != "Ana" {
		t.Errorf("updated = %+v", updated)
	}

	if w := s.api(t, http.MethodPut, "/api/members/missing", map[string]any{"notes": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("update unknown = %d", w.Code)
	}
	if w := s.api(t, http.MethodDelete, "/api/members/"+m.ID, nil); w.Code != http.StatusOK {
		t.Errorf("delete = %d", w.Code)
	}
	if w := s.api(t, http.MethodDelete, "/api/members/"+m.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("delete unknown = %d", w.Code)
	}
}

func TestExportMembersReturnsWorkbook(t *testing.T) {
	s := newServer(t)
	s.api(t, http.MethodPost, "/api/members", map[string]any{"name": "Ana", "phone": "5511999990000"})

	w := s.api(t, http.MethodGet, "/api/members/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d %s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "membros_") {
		t.Errorf("disposition = %q", cd)
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip archive")
	}
}

func TestConversationReplyAPI(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	if _, _, err := usecases.NewClientUsecase(s.store, zap.NewNop()).Ensure(ctx, ""); err != nil {
		t.Fatal(err)
	}
	conv := &entities.Conversation{ClientID: entities.DefaultClientID, Phone: "5511", Status: entities.ConversationPendingHuman}
	if err := s.store.Conversations.Create(ctx, conv); err != nil {
		t.Fatal(err)
	}

	w := s.api(t, http.MethodPost, "/api/conversations/"+conv.ID+"/reply", map[string]any{"text": "Olá, aqui é a Joana.", "resolve": true})
	if w.Code != http.StatusCreated {
		t.Fatalf("reply = %d %s", w.Code, w.Body)
	}
	if sent := s.messenger.messages(); len(sent) != 1 || sent[0] != "5511: Olá, aqui é a Joana." {
		t.Errorf("sent = %v", sent)
	}

	var got entities.Conversation
	decodeData(t, s.api(t, http.MethodGet, "/api/conversations/"+conv.ID, nil), &got)
	if got.Status != entities.ConversationResolved || len(got.Messages) != 1 || got.Messages[0].IsFromBot {
		t.Errorf("conversation = %+v", got)
	}

	if w := s.api(t, http.MethodGet, "/api/conversations/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown = %d", w.Code)
	}
	if w := s.api(t, http.MethodPut, "/api/conversations/"+conv.ID, map[string]any{"status": "closed"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad status = %d", w.Code)
	}
	if w := s.api(t, http.MethodPost, "/api/conversations/"+conv.ID+"/reply", map[string]any{"text": "  "}); w.Code != http.StatusBadRequest {
		t.Errorf("empty reply = %d", w.Code)
	}
}

func TestConfigAPI(t *testing.T) {
	s := newServer(t)

	var got struct {
		Config map[string]any `json:"config"`
		Stats  usecases.Stats `json:"stats"`
	}
	decodeData(t, s.api(t, http.MethodGet, "/api/config", nil), &got)
	if got.Config["botName"] != entities.DefaultBotName || got.Config["autoReply"] != true || got.Stats.ResponseRate != 100 {
		t.Errorf("defaults = %+v", got)
	}

	w := s.api(t, http.MethodPost, "/api/config", map[string]any{"botName": "Sindi", "autoReply": false, "niche": "clinica"})
	if w.Code != http.StatusOK {
		t.Fatalf("save = %d %s", w.Code, w.Body)
	}
	decodeData(t, s.api(t, http.MethodGet, "/api/config", nil), &got)
	if got.Config["botName"] != "Sindi" || got.Config["autoReply"] != false || got.Config["niche"] != "clinica" {
		t.Errorf("saved = %+v", got.Config)
	}

	if w := s.api(t, http.MethodPost, "/api/config", map[string]any{"niche": "padaria"}); w.Code != http.StatusBadRequest {
		t.Errorf("invalid niche = %d", w.Code)
	}
}

func TestAuditAPIDefaultsToDefaultClient(t *testing.T) {
	s := newServer(t)
	if w := s.api(t, http.MethodPost, "/api/config", map[string]any{"botName": "Sindi"}); w.Code != http.StatusOK {
		t.Fatalf("save = %d %s", w.Code, w.Body)
	}

	var rows []entities.AuditLog
	decodeData(t, s.api(t, http.MethodGet, "/api/audit", nil), &rows)
	if len(rows) != 1 || rows[0].Entity != "config" || rows[0].ClientID != entities.DefaultClientID {
		t.Fatalf("audit = %+v", rows)
	}
	if rows[0].Details["botName"] != "Sindi" {
		t.Errorf("details = %+v", rows[0].Details)
	}

	decodeData(t, s.api(t, http.MethodGet, "/api/audit?clientId=other", nil), &rows)
	if len(rows) != 0 {
		t.Errorf("other client audit = %+v", rows)
	}
}

func TestAnalyticsAPI(t *testing.T) {
	s := newServer(t)
	if w := s.api(t, http.MethodPost, "/api/members", map[string]any{"name": "Ana", "phone": "5511999990000"}); w.Code != http.StatusCreated {
		t.Fatalf("create member = %d %s", w.Code, w.Body)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/whatsapp", strings.NewReader(deliveryBody))
	req.Header.Set("X-Hub-Signature-256", sign(deliveryBody))
	s.router.ServeHTTP(httptest.NewRecorder(), req)

	var rows []entities.Analytics
	decodeData(t, s.api(t, http.MethodGet, "/api/analytics?days=1", nil), &rows)
	if len(rows) != 1 {
		t.Fatalf("analytics = %+v", rows)
	}
	today := rows[0]
	if today.ClientID != entities.DefaultClientID || today.NewMembers != 2 || today.MessagesIn != 2 || today.MessagesOut != 2 {
		t.Errorf("today = %+v", today)
	}

	decodeData(t, s.api(t, http.MethodGet, "/api/analytics?clientId=other", nil), &rows)
	if len(rows) != 0 {
		t.Errorf("other client analytics = %+v", rows)
	}
	if w := s.do(t, http.MethodGet, "/api/analytics", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("analytics without token = %d", w.Code)
	}
}

func TestChatAPI(t *testing.T) {
	s := newServer(t)

	w := s.api(t, http.MethodPost, "/api/chat", map[string]any{"message": "   "})
	if env := decode(t, w); w.Code != http.StatusBadRequest || env.Error != "Mensagem é obrigatória" {
		t.Errorf("empty = %d %q", w.Code, env.Error)
	}

	var res usecases.ChatResult
	decodeData(t, s.api(t, http.MethodPost, "/api/chat", map[string]any{"message": "oi", "niche": "hotel"}), &res)
	if res.Response != usecases.FallbackMessage(entities.NicheHotel) || res.Metadata.Intent != usecases.IntentGreeting {
		t.Errorf("chat = %+v", res)
	}
}

func TestBroadcastAPI(t *testing.T) {
	s := newServer(t)
	for _, phone := range []string{"5511000000001", "5511000000002"} {
		s.api(t, http.MethodPost, "/api/members", map[string]any{"name": "M " + phone, "phone": phone})
	}

	var audience struct {
		Members []usecases.Recipient `json:"members"`
		Total   int                  `json:"total"`
	}
	decodeData(t, s.api(t, http.MethodGet, "/api/broadcast", nil), &audience)
	if audience.Total != 2 {
		t.Errorf("audience = %+v", audience)
	}

	var res usecases.BroadcastResult
	decodeData(t, s.api(t, http.MethodPost, "/api/broadcast", map[string]any{"message": "Assembleia amanhã"}), &res)
	if res.Total != 2 || res.Success != 2 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}

	if w := s.api(t, http.MethodPost, "/api/broadcast", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("no message = %d", w.Code)
	}
	if w := s.api(t, http.MethodPost, "/api/broadcast", map[string]any{"message": "x", "category": "nenhuma"}); w.Code != http.StatusBadRequest {
		t.Errorf("no recipients = %d", w.Code)
	}
}

func TestTemplatesAndFlowsAPI(t *testing.T) {
	s := newServer(t)
	if w := s.api(t, http.MethodPost, "/api/setup", nil); w.Code != http.StatusOK {
		t.Fatalf("setup = %d %s", w.Code, w.Body)
	}
	if w := s.api(t, http.MethodGet, "/api/setup", nil); w.Code != http.StatusOK {
		t.Errorf("setup via GET = %d %s", w.Code, w.Body)
	}

	var niche []entities.NicheTemplate
	decodeData(t, s.api(t, http.MethodGet, "/api/templates?niche=clinica", nil), &niche)
	if len(niche) == 0 {
		t.Error("expected seeded niche templates")
	}

	body := map[string]any{"clientId": "default", "name": "aviso", "content": "Olá {{nome}}"}
	var tmpl entities.Template
	decodeData(t, s.api(t, http.MethodPost, "/api/templates", body), &tmpl)

	var preview struct {
		Content string `json:"content"`
	}
	decodeData(t, s.api(t, http.MethodPost, "/api/templates/"+tmpl.ID+"/preview", map[string]any{"variables": map[string]string{"nome": "Maria"}}), &preview)
	if preview.Content != "Olá Maria" {
		t.Errorf("preview = %q", preview.Content)
	}
	if w := s.api(t, http.MethodPost, "/api/templates/missing/preview", map[string]any{}); w.Code != http.StatusNotFound {
		t.Errorf("preview unknown template = %d", w.Code)
	}
	if w := s.api(t, http.MethodPost, "/api/templates", body); w.Code != http.StatusBadRequest {
		t.Errorf("duplicate template = %d", w.Code)
	}
	if w := s.api(t, http.MethodPost, "/api/templates", map[string]any{"name": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("incomplete template = %d", w.Code)
	}

	flow := map[string]any{"name": "horario", "trigger": "horário", "steps": []map[string]string{{"message": "Das 8h às 18h."}}}
	if w := s.api(t, http.MethodPost, "/api/flows", flow); w.Code != http.StatusCreated {
		t.Fatalf("create flow = %d %s", w.Code, w.Body)
	}
	if w := s.api(t, http.MethodPost, "/api/flows", map[string]any{"name": "vazio", "trigger": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("flow without steps = %d", w.Code)
	}
	var flows []entities.Flow
	decodeData(t, s.api(t, http.MethodGet, "/api/flows", nil), &flows)
	if len(flows) != 1 {
		t.Errorf("flows = %+v", flows)
	}
	if w := s.api(t, http.MethodDelete, "/api/flows/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("delete unknown flow = %d", w.Code)
	}
}

func TestClientsAPI(t *testing.T) {
	s := newServer(t)

	var c entities.Client
	decodeData(t, s.api(t, http.MethodPost, "/api/clients", map[string]any{"name": "Clínica São José", "niche": "clinica"}), &c)
	if c.Slug != "clinica-sao-jose" || c.Plan != entities.PlanBasic {
		t.Errorf("client = %+v", c)
	}

	if w := s.api(t, http.MethodGet, "/api/clients/"+c.ID+"/qrcode", nil); w.Code != http.StatusBadRequest {
		t.Errorf("qrcode without phone = %d", w.Code)
	}
	w := s.api(t, http.MethodPut, "/api/clients/"+c.ID, map[string]any{"phone": "+55 11 3333-4444"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d %s", w.Code, w.Body)
	}
	w = s.api(t, http.MethodGet, "/api/clients/"+c.ID+"/qrcode", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("qrcode = %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if w := s.api(t, http.MethodPut, "/api/clients/missing", map[string]any{"name": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("update unknown = %d", w.Code)
	}
}

func TestDeviceEndpoints(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newServer(t)
		if w := s.api(t, http.MethodGet, "/api/clients/default/device", nil); w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d", w.Code)
		}
		var view integrationsView
		decodeData(t, s.api(t, http.MethodGet, "/api/integrations", nil), &view)
		if view.Devices.Enabled || !view.WhatsAppCloud || view.AI.Provider != "openai" || view.Telegram.Enabled {
			t.Errorf("integrations = %+v", view)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		devices := &fakeDevices{}
		s := newServer(t, func(d *Deps) { d.Devices = devices })
		s.api(t, http.MethodPost, "/api/setup", nil)

		if w := s.api(t, http.MethodGet, "/api/clients/default/device/qr", nil); w.Code != http.StatusNotFound {
			t.Errorf("qr without pairing = %d", w.Code)
		}
		if w := s.api(t, http.MethodPost, "/api/clients/missing/device/connect", nil); w.Code != http.StatusNotFound {
			t.Errorf("connect unknown client = %d", w.Code)
		}
		if w := s.api(t, http.MethodPost, "/api/clients/default/device/connect", nil); w.Code != http.StatusOK || len(devices.connected) != 1 {
			t.Errorf("connect = %d %v", w.Code, devices.connected)
		}
		devices.qr = "2@abc,def"
		w := s.api(t, http.MethodGet, "/api/clients/default/device/qr", nil)
		if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
			t.Errorf("qr = %d", w.Code)
		}
		var view integrationsView
		decodeData(t, s.api(t, http.MethodGet, "/api/integrations", nil), &view)
		if !view.Devices.Enabled || len(view.Devices.Sessions) != 1 {
			t.Errorf("integrations = %+v", view)
		}
	})
}

func TestRateLimitPerUser(t *testing.T) {
	s := newServer(t, func(d *Deps) { d.RateLimit, d.RateBurst = 1, 2 })

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = s.api(t, http.MethodGet, "/api/niches", nil).Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestLimiterDropsIdleBuckets(t *testing.T) {
	m := NewMiddleware(testSecret)
	now := time.Now()
	m.now = func() time.Time { return now }

	m.limiter("a", 1, 1)
	now = now.Add(limiterIdleTTL + time.Minute)
	m.limiter("b", 1, 1)

	if _, ok := m.rateLimiters["a"]; ok {
		t.Error("idle bucket was kept")
	}
	if _, ok := m.rateLimiters["b"]; !ok {
		t.Error("fresh bucket missing")
	}
}

func TestPublicMessage(t *testing.T) {
	err := fmt.Errorf("create member: %w", usecases.ErrMemberExists)
	if got := publicMessage(err, entities.ErrDuplicate); got != "member already exists with this phone" {
		t.Errorf("got %q", got)
	}
	if got := publicMessage(entities.ErrNotFound, entities.ErrNotFound); got != "not found" {
		t.Errorf("got %q", got)
	}
}
