package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"whatsbot/internal/entities"
)

type capturedRequest struct {
	path string
	auth string
	body map[string]any
}

func newCloudServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured.body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestCloud(baseURL string) *CloudClient {
	return NewCloudClient(CloudConfig{
		AccessToken:   "tok",
		PhoneNumberID: "12345",
		BaseURL:       baseURL,
		APIVersion:    "v18.0",
	}, zap.NewNop())
}

func TestCloudSendText(t *testing.T) {
	srv, got := newCloudServer(t, http.StatusOK, `{"messages":[{"id":"wamid.1"}]}`)
	client := newTestCloud(srv.URL)

	id, err := client.SendText(context.Background(), "5511999990000", "olá", entities.SendOptions{ReplyTo: "wamid.0"})
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if id != "wamid.1" {
		t.Errorf("id = %q", id)
	}
	if got.path != "/v18.0/12345/messages" {
		t.Errorf("path = %q", got.path)
	}
	if got.auth != "Bearer tok" {
		t.Errorf("auth = %q", got.auth)
	}
	if got.body["recipient_type"] != "individual" || got.body["type"] != "text" {
		t.Errorf("body = %v", got.body)
	}
	text := got.body["text"].(map[string]any)
	if text["body"] != "olá" || text["preview_url"] != false {
		t.Errorf("text = %v", text)
	}
	if got.body["context"].(map[string]any)["message_id"] != "wamid.0" {
		t.Errorf("context = %v", got.body["context"])
	}
}

func TestCloudSendButtonsPayload(t *testing.T) {
	srv, got := newCloudServer(t, http.StatusOK, `{"messages":[{"id":"wamid.2"}]}`)
	client := newTestCloud(srv.URL)

	_, err := client.SendButtons(context.Background(), "55", "Escolha", []entities.Button{
		{ID: "a", Title: "Sim"}, {ID: "b", Title: "Não"},
	})
	if err != nil {
		t.Fatalf("SendButtons: %v", err)
	}
	interactive := got.body["interactive"].(map[string]any)
	if interactive["type"] != "button" {
		t.Errorf("interactive type = %v", interactive["type"])
	}
	buttons := interactive["action"].(map[string]any)["buttons"].([]any)
	if len(buttons) != 2 {
		t.Fatalf("buttons = %v", buttons)
	}
	first := buttons[0].(map[string]any)
	if first["type"] != "reply" || first["reply"].(map[string]any)["title"] != "Sim" {
		t.Errorf("first button = %v", first)
	}
}

func TestCloudSendListPayload(t *testing.T) {
	srv, got := newCloudServer(t, http.StatusOK, `{"messages":[{"id":"wamid.3"}]}`)
	client := newTestCloud(srv.URL)

	_, err := client.SendList(context.Background(), "55", "Menu", "Ver opções", []entities.ListSection{
		{Title: "Serviços", Rows: []entities.ListRow{{ID: "1", Title: "Consulta", Description: "30 min"}}},
	})
	if err != nil {
		t.Fatalf("SendList: %v", err)
	}
	action := got.body["interactive"].(map[string]any)["action"].(map[string]any)
	if action["button"] != "Ver opções" {
		t.Errorf("button = %v", action["button"])
	}
	sections := action["sections"].([]any)
	rows := sections[0].(map[string]any)["rows"].([]any)
	if rows[0].(map[string]any)["description"] != "30 min" {
		t.Errorf("rows = %v", rows)
	}
}

func TestCloudMarkAsRead(t *testing.T) {
	srv, got := newCloudServer(t, http.StatusOK, `{"success":true}`)
	client := newTestCloud(srv.URL)

	if err := client.MarkAsRead(context.Background(), "wamid.9"); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	if got.body["status"] != "read" || got.body["message_id"] != "wamid.9" {
		t.Errorf("body = %v", got.body)
	}
}

func TestCloudErrorMessage(t *testing.T) {
	srv, _ := newCloudServer(t, http.StatusBadRequest, `{"error":{"message":"Invalid parameter","code":100}}`)
	client := newTestCloud(srv.URL)

	_, err := client.SendText(context.Background(), "55", "x", entities.SendOptions{})
	if err == nil || !strings.Contains(err.Error(), "Invalid parameter") {
		t.Fatalf("expected API error message, got %v", err)
	}
}

func TestCloudNotConfigured(t *testing.T) {
	client := NewCloudClient(CloudConfig{BaseURL: "http://unused", APIVersion: "v18.0"}, zap.NewNop())
	_, err := client.SendText(context.Background(), "55", "x", entities.SendOptions{})
	if !errors.Is(err, entities.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestValidateButtons(t *testing.T) {
	tests := []struct {
		name    string
		buttons []entities.Button
		wantErr bool
	}{
		{"one", []entities.Button{{ID: "1", Title: "Ok"}}, false},
		{"none", nil, true},
		{"four", []entities.Button{{ID: "1", Title: "a"}, {ID: "2", Title: "b"}, {ID: "3", Title: "c"}, {ID: "4", Title: "d"}}, true},
		{"long title", []entities.Button{{ID: "1", Title: "um título longo demais aqui"}}, true},
		{"twenty runes", []entities.Button{{ID: "1", Title: "ççççççççççççççççççç!"}}, false},
		{"missing id", []entities.Button{{Title: "Ok"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateButtons(tt.buttons)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
