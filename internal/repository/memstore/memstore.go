// Package memstore keeps every repository in process memory. It backs the
// server when no DATABASE_URL is configured and the usecase tests.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

type db struct {
	mu sync.RWMutex

	clients       []*entities.Client
	members       []*entities.Member
	conversations []*entities.Conversation
	messages      []*entities.Message
	templates     []*entities.Template
	nicheTmpls    []*entities.NicheTemplate
	flows         []*entities.Flow
	settings      map[string]map[string]string
	analytics     []*entities.Analytics
	audit         []*entities.AuditLog
	users         []*entities.User
}

// New returns a Store whose repositories share one in-memory database.
func New() *interfaces.Store {
	d := &db{settings: make(map[string]map[string]string)}
	return &interfaces.Store{
		Clients:       &ClientStore{d},
		Members:       &MemberStore{d},
		Conversations: &ConversationStore{d},
		Messages:      &MessageStore{d},
		Templates:     &TemplateStore{d},
		Flows:         &FlowStore{d},
		Settings:      &SettingStore{d},
		Analytics:     &AnalyticsStore{d},
		Audit:         &AuditStore{d},
		Users:         &UserStore{d},
		Migrator:      noopMigrator{},
	}
}

type noopMigrator struct{}

func (noopMigrator) Migrate(context.Context) error { return nil }

func newID() string { return uuid.NewString() }

func duplicate(constraint string) error {
	return fmt.Errorf("%w: %s", entities.ErrDuplicate, constraint)
}

func (d *db) clientExists(id string) bool {
	return slices.ContainsFunc(d.clients, func(c *entities.Client) bool { return c.ID == id })
}

// requireClient mirrors the foreign key every tenant table carries.
func (d *db) requireClient(id string) error {
	if !d.clientExists(id) {
		return fmt.Errorf("%w: unknown client %q", entities.ErrInvalid, id)
	}
	return nil
}

// newestFirst orders by t descending; later insertions win ties.
func newestFirst[T any](items []*T, t func(*T) time.Time) []*T {
	out := slices.Clone(items)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b *T) int { return t(b).Compare(t(a)) })
	return out
}

// ---- clients ----

type ClientStore struct{ d *db }

var nonDigit = regexp.MustCompile(`\D`)

func (s *ClientStore) Get(_ context.Context, id string) (*entities.Client, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, c := range s.d.clients {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (s *ClientStore) FindByPhone(_ context.Context, phone string) (*entities.Client, error) {
	want := nonDigit.ReplaceAllString(phone, "")
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, c := range s.d.clients {
		if c.Phone != "" && nonDigit.ReplaceAllString(c.Phone, "") == want {
			cp := *c
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (s *ClientStore) First(_ context.Context) (*entities.Client, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	if len(s.d.clients) == 0 {
		return nil, entities.ErrNotFound
	}
	cp := *s.d.clients[0]
	return &cp, nil
}

func (s *ClientStore) List(_ context.Context) ([]entities.Client, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := make([]entities.Client, 0, len(s.d.clients))
	for _, c := range s.d.clients {
		out = append(out, *c)
	}
	return out, nil
}

func (s *ClientStore) Create(_ context.Context, c *entities.Client) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	for _, existing := range s.d.clients {
		if existing.ID == c.ID {
			return duplicate("clients_pkey")
		}
		if existing.Slug == c.Slug {
			return duplicate("clients_slug_key")
		}
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	s.d.clients = append(s.d.clients, &cp)
	return nil
}

func (s *ClientStore) Update(_ context.Context, c *entities.Client) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	idx := -1
	for i, existing := range s.d.clients {
		if existing.ID == c.ID {
			idx = i
		} else if existing.Slug == c.Slug {
			return duplicate("clients_slug_key")
		}
	}
	if idx < 0 {
		return entities.ErrNotFound
	}
	c.CreatedAt = s.d.clients[idx].CreatedAt
	c.UpdatedAt = time.Now()
	cp := *c
	s.d.clients[idx] = &cp
	return nil
}

// ---- members ----

type MemberStore struct{ d *db }

func copyMember(m *entities.Member) entities.Member {
	cp := *m
	cp.Metadata = maps.Clone(m.Metadata)
	return cp
}

func (s *MemberStore) List(_ context.Context, f entities.MemberFilter) ([]entities.Member, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	search := strings.ToLower(f.Search)
	out := []entities.Member{}
	for _, m := range newestFirst(s.d.members, func(m *entities.Member) time.Time { return m.CreatedAt }) {
		if f.ClientID != "" && m.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.Category != "" && m.Category != f.Category {
			continue
		}
		if len(f.IDs) > 0 && !slices.Contains(f.IDs, m.ID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(m.Name), search) &&
			!strings.Contains(m.Phone, f.Search) && !strings.Contains(strings.ToLower(m.Email), search) {
			continue
		}
		out = append(out, copyMember(m))
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemberStore) Get(_ context.Context, id string) (*entities.Member, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, m := range s.d.members {
		if m.ID == id {
			cp := copyMember(m)
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (s *MemberStore) FindByPhone(_ context.Context, clientID, phone string) (*entities.Member, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, m := range s.d.members {
		if m.ClientID == clientID && m.Phone == phone {
			cp := copyMember(m)
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (s *MemberStore) Create(_ context.Context, m *entities.Member) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.requireClient(m.ClientID); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = newID()
	}
	for _, existing := range s.d.members {
		if existing.ID == m.ID {
			return duplicate("members_pkey")
		}
		if existing.ClientID == m.ClientID && existing.Phone == m.Phone {
			return duplicate("members_client_phone_key")
		}
	}
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	cp := copyMember(m)
	s.d.members = append(s.d.members, &cp)
	return nil
}

func (s *MemberStore) Update(_ context.Context, m *entities.Member) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	idx := slices.IndexFunc(s.d.members, func(x *entities.Member) bool { return x.ID == m.ID })
	if idx < 0 {
		return entities.ErrNotFound
	}
	current := s.d.members[idx]
	for _, existing := range s.d.members {
		if existing.ID != m.ID && existing.ClientID == current.ClientID && existing.Phone == m.Phone {
			return duplicate("members_client_phone_key")
		}
	}
	m.ClientID = current.ClientID
	m.CreatedAt = current.CreatedAt
	m.UpdatedAt = time.Now()
	cp := copyMember(m)
	s.d.members[idx] = &cp
	return nil
}

func (s *MemberStore) Delete(_ context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	idx := slices.IndexFunc(s.d.members, func(x *entities.Member) bool { return x.ID == id })
	if idx < 0 {
		return entities.ErrNotFound
	}
	s.d.members = slices.Delete(s.d.members, idx, idx+1)
	// ON DELETE SET NULL
	for _, c := range s.d.conversations {
		if c.MemberID != nil && *c.MemberID == id {
			c.MemberID = nil
		}
	}
	return nil
}

func (s *MemberStore) Count(_ context.Context, clientID string) (int, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	n := 0
	for _, m := range s.d.members {
		if m.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

// ---- conversations ----

type ConversationStore struct{ d *db }

func copyConversation(c *entities.Conversation) *entities.Conversation {
	cp := *c
	cp.Member, cp.Messages = nil, nil
	return &cp
}

func (s *ConversationStore) List(_ context.Context, f entities.ConversationFilter) ([]entities.ConversationSummary, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := []entities.ConversationSummary{}
	for _, c := range newestFirst(s.d.conversations, func(c *entities.Conversation) time.Time { return c.UpdatedAt }) {
		if f.ClientID != "" && c.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Phone != "" && !strings.Contains(c.Phone, f.Phone) {
			continue
		}

		sum := entities.ConversationSummary{Conversation: *copyConversation(c)}
		if c.MemberID != nil {
			for _, m := range s.d.members {
				if m.ID == *c.MemberID {
					sum.Member = &entities.Member{ID: m.ID, ClientID: m.ClientID, Name: m.Name, Phone: m.Phone, Status: m.Status}
					break
				}
			}
		}
		for _, m := range s.d.messages {
			if m.ConversationID != c.ID {
				continue
			}
			sum.MessageCount++
			if sum.LastMessage == nil || !m.CreatedAt.Before(sum.LastMessage.CreatedAt) {
				last := *m
				last.Metadata = nil
				sum.LastMessage = &last
			}
		}
		out = append(out, sum)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *ConversationStore) Get(_ context.Context, id string) (*entities.Conversation, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, c := range s.d.conversations {
		if c.ID == id {
			return copyConversation(c), nil
		}
	}
	return nil, entities.ErrNotFound
}

func (s *ConversationStore) FindOpen(_ context.Context, clientID, phone string) (*entities.Conversation, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, c := range newestFirst(s.d.conversations, func(c *entities.Conversation) time.Time { return c.CreatedAt }) {
		if c.ClientID == clientID && c.Phone == phone && c.Status.Open() {
			return copyConversation(c), nil
		}
	}
	return nil, entities.ErrNotFound
}

func (s *ConversationStore) Create(_ context.Context, c *entities.Conversation) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.requireClient(c.ClientID); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = newID()
	}
	if slices.ContainsFunc(s.d.conversations, func(x *entities.Conversation) bool { return x.ID == c.ID }) {
		return duplicate("conversations_pkey")
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.d.conversations = append(s.d.conversations, copyConversation(c))
	return nil
}

func (s *ConversationStore) Update(_ context.Context, c *entities.Conversation) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, existing := range s.d.conversations {
		if existing.ID == c.ID {
			existing.MemberID = c.MemberID
			existing.Status = c.Status
			existing.Sentiment = c.Sentiment
			existing.Summary = c.Summary
			existing.UpdatedAt = time.Now()
			c.UpdatedAt = existing.UpdatedAt
			return nil
		}
	}
	return entities.ErrNotFound
}

func (s *ConversationStore) Touch(_ context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, c := range s.d.conversations {
		if c.ID == id {
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return entities.ErrNotFound
}

func (s *ConversationStore) CountByStatus(_ context.Context, clientID string, status entities.ConversationStatus) (int, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	n := 0
	for _, c := range s.d.conversations {
		if c.ClientID == clientID && c.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *ConversationStore) ResolveIdle(_ context.Context, before time.Time) (map[string]int, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := make(map[string]int)
	now := time.Now()
	for _, c := range s.d.conversations {
		if c.Status == entities.ConversationActive && c.UpdatedAt.Before(before) {
			c.Status = entities.ConversationResolved
			c.UpdatedAt = now
			out[c.ClientID]++
		}
	}
	return out, nil
}

// ---- messages ----

type MessageStore struct{ d *db }

func copyMessage(m *entities.Message) entities.Message {
	cp := *m
	cp.Metadata = maps.Clone(m.Metadata)
	return cp
}

func (s *MessageStore) Create(_ context.Context, m *entities.Message) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.requireClient(m.ClientID); err != nil {
		return err
	}
	if !slices.ContainsFunc(s.d.conversations, func(c *entities.Conversation) bool { return c.ID == m.ConversationID }) {
		return fmt.Errorf("%w: unknown conversation %q", entities.ErrInvalid, m.ConversationID)
	}
	if m.ID == "" {
		m.ID = newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	cp := copyMessage(m)
	s.d.messages = append(s.d.messages, &cp)
	return nil
}

// ordered returns a conversation's messages oldest first. Caller holds the lock.
func (s *MessageStore) ordered(conversationID string) []*entities.Message {
	var out []*entities.Message
	for _, m := range s.d.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b *entities.Message) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

func (s *MessageStore) List(_ context.Context, conversationID string, limit int) ([]entities.Message, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	msgs := s.ordered(conversationID)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]entities.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, copyMessage(m))
	}
	return out, nil
}

func (s *MessageStore) Recent(_ context.Context, conversationID string, limit int) ([]entities.Message, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	msgs := s.ordered(conversationID)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]entities.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, copyMessage(m))
	}
	return out, nil
}

func (s *MessageStore) CountSince(_ context.Context, clientID string, direction entities.Direction, since time.Time) (int, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	n := 0
	for _, m := range s.d.messages {
		if m.ClientID == clientID && !m.CreatedAt.Before(since) && (direction == "" || m.Direction == direction) {
			n++
		}
	}
	return n, nil
}

func (s *MessageStore) UpdateStatusByWAID(_ context.Context, waMessageID string, status entities.MessageStatus) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	found := false
	for _, m := range s.d.messages {
		if waMessageID != "" && m.WAMessageID == waMessageID {
			if m.Status.CanAdvanceTo(status) {
				m.Status = status
			}
			found = true
		}
	}
	if !found {
		return entities.ErrNotFound
	}
	return nil
}

// ---- templates ----

type TemplateStore struct{ d *db }

func copyTemplate(t *entities.Template) entities.Template {
	cp := *t
	cp.Variables = maps.Clone(t.Variables)
	return cp
}

func (s *TemplateStore) List(_ context.Context, f entities.TemplateFilter) ([]entities.Template, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := []entities.Template{}
	for _, t := range s.d.templates {
		if f.ClientID != "" && t.ClientID != f.ClientID {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		out = append(out, copyTemplate(t))
	}
	slices.SortStableFunc(out, func(a, b entities.Template) int {
		if a.IsActive != b.IsActive {
			if a.IsActive {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *TemplateStore) Get(_ context.Context, id string) (*entities.Template, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, t := range s.d.templates {
		if t.ID == id {
			cp := copyTemplate(t)
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (s *TemplateStore) Create(_ context.Context, t *entities.Template) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.requireClient(t.ClientID); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = newID()
	}
	for _, existing := range s.d.templates {
		if existing.ID == t.ID {
			return duplicate("templates_pkey")
		}
		if existing.ClientID == t.ClientID && existing.Name == t.Name {
			return duplicate("templates_client_name_key")
		}
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := copyTemplate(t)
	s.d.templates = append(s.d.templates, &cp)
	return nil
}

func (s *TemplateStore) Update(_ context.Context, t *entities.Template) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	idx := slices.IndexFunc(s.d.templates, func(x *entities.Template) bool { return x.ID == t.ID })
	if idx < 0 {
		return entities.ErrNotFound
	}
	current := s.d.templates[idx]
	for _, existing := range s.d.templates {
		if existing.ID != t.ID && existing.ClientID == current.ClientID && existing.Name == t.Name {
			return duplicate("templates_client_name_key")
		}
	}
	t.ClientID = current.ClientID
	t.UseCount = current.UseCount
	t.CreatedAt = current.CreatedAt
	t.UpdatedAt = time.Now()
	cp := copyTemplate(t)
	s.d.templates[idx] = &cp
	return nil
}

func (s *TemplateStore) Delete(_ context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	idx := slices.IndexFunc(s.d.templates, func(x *entities.Template) bool { return x.ID == id })
	if idx < 0 {
		return entities.ErrNotFound
	}
	s.d.templates = slices.Delete(s.d.templates, idx, idx+1)
	return nil
}

func (s *TemplateStore) IncrementUse(_ context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, t := range s.d.templates {
		if t.ID == id {
			t.UseCount++
			return nil
		}
	}
	return entities.ErrNotFound
}

func (s *TemplateStore) ListNiche(_ context.Context, niche entities.Niche) ([]entities.NicheTemplate, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := []entities.NicheTemplate{}
	for _, t := range s.d.nicheTmpls {
		if t.Niche == niche {
			cp := *t
			cp.Variables = maps.Clone(t.Variables)
			out = append(out, cp)
		}
	}
	slices.SortFunc(out, func(a, b entities.NicheTemplate) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *TemplateStore) UpsertNiche(_ context.Context, t *entities.NicheTemplate) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	now := time.Now()
	for _, existing := range s.d.nicheTmpls {
		if existing.Niche == t.Niche && existing.Name == t.Name {
			existing.Category = t.Category
			existing.Content = t.Content
			existing.Variables = maps.Clone(t.Variables)
			existing.IsDefault = t.IsDefault
			existing.UpdatedAt = now
			return nil
		}
	}
	if t.ID == "" {
		t.ID = newID()
	}
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	cp.Variables = maps.Clone(t.Variables)
	s.d.nicheTmpls = append(s.d.nicheTmpls, &cp)
	return nil
}

// ---- flows ----

type FlowStore struct{ d *db }

func copyFlow(f *entities.Flow) entities.Flow {
	cp := *f
	cp.Steps = slices.Clone(f.Steps)
	return cp
}

func (s *FlowStore) List(_ context.Context, clientID string) ([]entities.Flow, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := []entities.Flow{}
	for _, f := range s.d.flows {
		if f.ClientID == clientID {
			out = append(out, copyFlow(f))
		}
	}
	return out, nil
}

func (s *FlowStore) Get(_ context.Context, id string) (*entities.Flow, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, f := range s.d.flows {
		if f.ID == id {
			cp := copyFlow(f)
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (s *FlowStore) Create(_ context.Context, f *entities.Flow) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.requireClient(f.ClientID); err != nil {
		return err
	}
	if f.ID == "" {
		f.ID = newID()
	}
	if slices.ContainsFunc(s.d.flows, func(x *entities.Flow) bool { return x.ID == f.ID }) {
		return duplicate("flows_pkey")
	}
	now := time.Now()
	f.CreatedAt, f.UpdatedAt = now, now
	cp := copyFlow(f)
	s.d.flows = append(s.d.flows, &cp)
	return nil
}

func (s *FlowStore) Update(_ context.Context, f *entities.Flow) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	idx := slices.IndexFunc(s.d.flows, func(x *entities.Flow) bool { return x.ID == f.ID })
	if idx < 0 {
		return entities.ErrNotFound
	}
	current := s.d.flows[idx]
	f.ClientID = current.ClientID
	f.UseCount = current.UseCount
	f.CreatedAt = current.CreatedAt
	f.UpdatedAt = time.Now()
	cp := copyFlow(f)
	s.d.flows[idx] = &cp
	return nil
}

func (s *FlowStore) Delete(_ context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	idx := slices.IndexFunc(s.d.flows, func(x *entities.Flow) bool { return x.ID == id })
	if idx < 0 {
		return entities.ErrNotFound
	}
	s.d.flows = slices.Delete(s.d.flows, idx, idx+1)
	return nil
}

func (s *FlowStore) IncrementUse(_ context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, f := range s.d.flows {
		if f.ID == id {
			f.UseCount++
			return nil
		}
	}
	return entities.ErrNotFound
}

// ---- settings ----

type SettingStore struct{ d *db }

func (s *SettingStore) All(_ context.Context, clientID string) (map[string]string, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := maps.Clone(s.d.settings[clientID])
	if out == nil {
		out = make(map[string]string)
	}
	return out, nil
}

func (s *SettingStore) Upsert(_ context.Context, clientID, key, value string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.requireClient(clientID); err != nil {
		return err
	}
	if s.d.settings[clientID] == nil {
		s.d.settings[clientID] = make(map[string]string)
	}
	s.d.settings[clientID][key] = value
	return nil
}

// ---- analytics ----

type AnalyticsStore struct{ d *db }

func (s *AnalyticsStore) Increment(_ context.Context, clientID string, day time.Time, counter entities.Counter, by int) error {
	if !counter.Valid() {
		return fmt.Errorf("%w: counter %q", entities.ErrInvalid, counter)
	}
	date := entities.DayStart(day)
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var row *entities.Analytics
	for _, a := range s.d.analytics {
		if a.ClientID == clientID && a.Date.Equal(date) {
			row = a
			break
		}
	}
	if row == nil {
		row = &entities.Analytics{ID: newID(), ClientID: clientID, Date: date}
		s.d.analytics = append(s.d.analytics, row)
	}
	switch counter {
	case entities.CounterMessagesIn:
		row.MessagesIn += by
	case entities.CounterMessagesOut:
		row.MessagesOut += by
	case entities.CounterNewMembers:
		row.NewMembers += by
	case entities.CounterResolved:
		row.Resolved += by
	case entities.CounterPendingHuman:
		row.PendingHuman += by
	}
	return nil
}

func (s *AnalyticsStore) List(_ context.Context, clientID string, since time.Time) ([]entities.Analytics, error) {
	from := entities.DayStart(since)
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := []entities.Analytics{}
	for _, a := range newestFirst(s.d.analytics, func(a *entities.Analytics) time.Time { return a.Date }) {
		if a.ClientID == clientID && !a.Date.Before(from) {
			out = append(out, *a)
		}
	}
	return out, nil
}

// ---- audit ----

type AuditStore struct{ d *db }

func (s *AuditStore) Create(_ context.Context, a *entities.AuditLog) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	a.CreatedAt = time.Now()
	cp := *a
	cp.Details = maps.Clone(a.Details)
	s.d.audit = append(s.d.audit, &cp)
	return nil
}

func (s *AuditStore) List(_ context.Context, clientID string, limit int) ([]entities.AuditLog, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := []entities.AuditLog{}
	for _, a := range newestFirst(s.d.audit, func(a *entities.AuditLog) time.Time { return a.CreatedAt }) {
		if a.ClientID != clientID {
			continue
		}
		out = append(out, *a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ---- users ----

type UserStore struct{ d *db }

func (s *UserStore) GetByUsername(_ context.Context, username string) (*entities.User, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, u := range s.d.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (s *UserStore) List(_ context.Context) ([]entities.User, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := make([]entities.User, 0, len(s.d.users))
	for _, u := range s.d.users {
		cp := *u
		cp.PasswordHash = ""
		out = append(out, cp)
	}
	return out, nil
}

func (s *UserStore) Create(_ context.Context, u *entities.User) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if u.ID == "" {
		u.ID = newID()
	}
	for _, existing := range s.d.users {
		if existing.ID == u.ID {
			return duplicate("users_pkey")
		}
		if existing.Username == u.Username {
			return duplicate("users_username_key")
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	s.d.users = append(s.d.users, &cp)
	return nil
}

func (s *UserStore) Delete(_ context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	idx := slices.IndexFunc(s.d.users, func(x *entities.User) bool { return x.ID == id })
	if idx < 0 {
		return entities.ErrNotFound
	}
	s.d.users = slices.Delete(s.d.users, idx, idx+1)
	return nil
}
