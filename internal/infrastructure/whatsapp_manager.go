package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

// IncomingHandler receives messages from device sessions. via is the
// session the reply should go out on.
type IncomingHandler func(ctx context.Context, msg entities.IncomingMessage, via interfaces.Messenger)

// DeviceManager keeps one whatsmeow session per client.
type DeviceManager struct {
	sessions map[string]*DeviceSession
	mu       sync.RWMutex
	baseDir  string
	log      *zap.Logger

	// OnMessage is called for every inbound text message.
	OnMessage IncomingHandler
	// HandlerTimeout bounds one OnMessage call.
	HandlerTimeout time.Duration
}

// DeviceStatus is the public view of a session.
type DeviceStatus struct {
	ClientID  string `json:"clientId"`
	Connected bool   `json:"connected"`
	LoggedIn  bool   `json:"loggedIn"`
	Phone     string `json:"phone,omitempty"`
	Name      string `json:"name,omitempty"`
	QRPending bool   `json:"qrPending"`
}

func NewDeviceManager(baseDir string, log *zap.Logger) (*DeviceManager, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create devices directory: %w", err)
	}
	return &DeviceManager{
		sessions:       make(map[string]*DeviceSession),
		baseDir:        baseDir,
		log:            log.Named("devices"),
		HandlerTimeout: 2 * time.Minute,
	}, nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func (m *DeviceManager) dbPath(clientID string) string {
	return filepath.Join(m.baseDir, "client_"+unsafeFileChars.ReplaceAllString(clientID, "_")+".db")
}

// Get returns the client's session or nil.
func (m *DeviceManager) Get(clientID string) *DeviceSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[clientID]
}

func (m *DeviceManager) getOrCreate(ctx context.Context, clientID string) (*DeviceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[clientID]; ok {
		return s, nil
	}

	s, err := NewDeviceSession(ctx, m.dbPath(clientID), clientID, m.log)
	if err != nil {
		return nil, fmt.Errorf("device for client %s: %w", clientID, err)
	}
	s.AddHandler(m.eventHandler(s))
	m.sessions[clientID] = s
	return s, nil
}

func (m *DeviceManager) eventHandler(s *DeviceSession) func(interface{}) {
	return func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			msg, ok := s.ParseMessage(v)
			if !ok || m.OnMessage == nil {
				return
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), m.HandlerTimeout)
				defer cancel()
				s.Typing(ctx, msg.From)
				m.OnMessage(ctx, msg, s)
			}()
		case *events.Connected:
			m.log.Info("device online", zap.String("client_id", s.ClientID))
		case *events.LoggedOut:
			m.log.Warn("device logged out", zap.String("client_id", s.ClientID))
		}
	}
}

// Connect creates the client's session if needed and connects it.
func (m *DeviceManager) Connect(ctx context.Context, clientID string) (*DeviceSession, error) {
	s, err := m.getOrCreate(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(context.WithoutCancel(ctx)); err != nil {
		return nil, fmt.Errorf("connect device for client %s: %w", clientID, err)
	}
	return s, nil
}

func (m *DeviceManager) Status(clientID string) DeviceStatus {
	st := DeviceStatus{ClientID: clientID}
	s := m.Get(clientID)
	if s == nil {
		return st
	}
	st.Connected = s.IsConnected()
	st.LoggedIn = s.IsLoggedIn()
	st.Phone, st.Name = s.Info()
	st.QRPending = s.QR() != ""
	return st
}

// QR returns the pending pairing code for the client, or "".
func (m *DeviceManager) QR(clientID string) string {
	s := m.Get(clientID)
	if s == nil {
		return ""
	}
	return s.QR()
}

// Logout unlinks the device and drops the session. A client without a
// session is already logged out.
func (m *DeviceManager) Logout(ctx context.Context, clientID string) error {
	m.mu.Lock()
	s, ok := m.sessions[clientID]
	delete(m.sessions, clientID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	err := s.Logout(ctx)
	s.Disconnect()
	return err
}

// Messenger returns the client's session when it can send.
func (m *DeviceManager) Messenger(clientID string) (interfaces.Messenger, bool) {
	s := m.Get(clientID)
	if s == nil || !s.IsConnected() {
		return nil, false
	}
	return s, true
}

// List reports every known session, ordered by client id.
func (m *DeviceManager) List() []DeviceStatus {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	out := make([]DeviceStatus, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.Status(id))
	}
	return out
}

// Restore reconnects every paired device found on disk.
func (m *DeviceManager) Restore(ctx context.Context) {
	paths, err := filepath.Glob(filepath.Join(m.baseDir, "client_*.db"))
	if err != nil {
		return
	}
	for _, p := range paths {
		name := filepath.Base(p)
		clientID := name[len("client_") : len(name)-len(".db")]
		s, err := m.getOrCreate(ctx, clientID)
		if err != nil {
			m.log.Warn("restore device failed", zap.String("client_id", clientID), zap.Error(err))
			continue
		}
		if !s.IsLoggedIn() {
			continue
		}
		if err := s.Connect(ctx); err != nil {
			m.log.Warn("reconnect device failed", zap.String("client_id", clientID), zap.Error(err))
		}
	}
}

// DisconnectAll closes every session for shutdown.
func (m *DeviceManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.Disconnect()
	}
	m.sessions = make(map[string]*DeviceSession)
}
