// Package events describes ledger change notifications and the publishers that
// carry them. Events are informational only; ledgers never read them back.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"expensetracker/internal/log"
)

// Type names a ledger change.
type Type string

const (
	ExpenseAdded   Type = "expense.added"
	ExpenseDeleted Type = "expense.deleted"
	LedgerImported Type = "ledger.imported"
	LedgerCleared  Type = "ledger.cleared"
	BudgetUpdated  Type = "budget.updated"
	CategoryAdded  Type = "category.added"
)

// LedgerEvent is published after a successful mutation.
type LedgerEvent struct {
	Type      Type      `json:"type"`
	SessionID string    `json:"session_id"`
	RecordID  int64     `json:"record_id,omitempty"`
	Count     int       `json:"count"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates an event stamped with the current time.
func New(typ Type, sessionID string, version int64) LedgerEvent {
	return LedgerEvent{
		Type:      typ,
		SessionID: sessionID,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an event.
func FromJSON(data []byte) (LedgerEvent, error) {
	var e LedgerEvent
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher delivers ledger events.
type Publisher interface {
	Publish(ctx context.Context, e LedgerEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LedgerEvent) error { return nil }

// Memory keeps published events in order.
type Memory struct {
	mu     sync.Mutex
	events []LedgerEvent
}

func (m *Memory) Publish(_ context.Context, e LedgerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []LedgerEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LedgerEvent(nil), m.events...)
}

// Notify publishes e and logs, rather than returns, any failure.
func Notify(ctx context.Context, p Publisher, e LedgerEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.LogError(ctx, "Failed to publish ledger event", err, log.OpPublish,
			log.NewFields().WithSession(e.SessionID, e.Version).WithComponent(log.ComponentEvents))
	}
}
