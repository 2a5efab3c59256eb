package entities

import "time"

// Analytics holds one client's counters for one day.
type Analytics struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"clientId"`
	Date         time.Time `json:"date"`
	MessagesIn   int       `json:"messagesIn"`
	MessagesOut  int       `json:"messagesOut"`
	NewMembers   int       `json:"newMembers"`
	Resolved     int       `json:"resolved"`
	PendingHuman int       `json:"pendingHuman"`
}

// Counter names a daily analytics column.
type Counter string

const (
	CounterMessagesIn   Counter = "messages_in"
	CounterMessagesOut  Counter = "messages_out"
	CounterNewMembers   Counter = "new_members"
	CounterResolved     Counter = "resolved"
	CounterPendingHuman Counter = "pending_human"
)

func (c Counter) Valid() bool {
	switch c {
	case CounterMessagesIn, CounterMessagesOut, CounterNewMembers, CounterResolved, CounterPendingHuman:
		return true
	}
	return false
}

type AuditLog struct {
	ID        string         `json:"id"`
	ClientID  string         `json:"clientId,omitempty"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entityId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// DayStart truncates t to local midnight.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
