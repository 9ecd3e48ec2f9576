package domain

import (
	"time"
)

// Session is a persisted chat session.
type Session struct {
	SessionID   string
	UserContact string
	State       ConversationState
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SessionSummary is a session listing entry for a contact.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	LastMessage  *string   `json:"last_message"`
}

// ChatMessage is one user message and the reply shown for it.
type ChatMessage struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	IsFromKB  bool      `json:"is_from_kb"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is everything persisted at the end of one chat turn.
type Turn struct {
	SessionID string
	Contact   string
	State     ConversationState
	Message   ChatMessage
	// Ticket is non-nil when the turn escalates to a support ticket.
	Ticket *Ticket
}
