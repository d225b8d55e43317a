// Package events publishes domain events to a message broker so downstream
// consumers (notifications, analytics, fraud) can react without coupling into
// the transaction path. Publishing is best effort: the money movement is
// already committed when an event goes out.
package events

import "time"

// Event types
const (
	UserRegistered       = "user.registered"
	AccountOpened        = "account.opened"
	TransactionCompleted = "transaction.completed"
	SessionRevoked       = "session.revoked"
)

// Stream names
const (
	UserEventsStream        = "user.events"
	AccountEventsStream     = "account.events"
	TransactionEventsStream = "transaction.events"
)

// Event is the envelope written to the broker.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type UserRegisteredEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AccountOpenedEvent struct {
	AccountID     string `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
	UserID        string `json:"userId"`
	AccountType   string `json:"accountType"`
}

type TransactionCompletedEvent struct {
	EntryID      string `json:"entryId"`
	AccountID    string `json:"accountId"`
	Kind         string `json:"kind"`
	Amount       string `json:"amount"`
	BalanceAfter string `json:"balanceAfter"`
	CompletedAt  string `json:"completedAt"`
}

type SessionRevokedEvent struct {
	UserID string `json:"userId"`
}
