package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventExpense        EventKind = "expense"
	EventSavingsDeposit EventKind = "savings_deposit"
	EventTransfer       EventKind = "transfer"
)

// LedgerEvent announces a committed expense-side write. It carries enough
// for the worker to re-evaluate the category budget without a lookup.
type LedgerEvent struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Kind      EventKind `json:"kind"`
	Category  string    `json:"category"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps a fresh message id.
func NewLedgerEvent(userID int64, kind EventKind, category string, amount int64, at time.Time) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Category:  category,
		Amount:    amount,
		Timestamp: at,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and sanity-checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == 0 {
		return nil, errors.New("ledger event without user_id")
	}
	return &msg, nil
}
