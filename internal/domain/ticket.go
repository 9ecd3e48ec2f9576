package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTicketStatus is returned for a status outside the known set.
	ErrInvalidTicketStatus = errors.New("invalid ticket status")
	// ErrInvalidTransition is returned when a ticket cannot move to the requested status.
	ErrInvalidTransition = errors.New("invalid ticket status transition")
)

// TicketStatus represents the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

// ParseTicketStatus validates a status string.
func ParseTicketStatus(s string) (TicketStatus, error) {
	switch TicketStatus(s) {
	case TicketOpen, TicketInProgress, TicketClosed:
		return TicketStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTicketStatus, s)
	}
}

// CanTransitionTo reports whether a ticket in status s may move to next.
// Setting the current status again is a no-op and allowed.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case TicketOpen:
		return next == TicketInProgress || next == TicketClosed
	case TicketInProgress:
		return next == TicketOpen || next == TicketClosed
	case TicketClosed:
		return next == TicketOpen
	default:
		return false
	}
}

// Ticket is a human support ticket created from a conversation.
type Ticket struct {
	ID                  int64        `json:"id"`
	SessionID           string       `json:"session_id"`
	UserQuestion        string       `json:"user_question"`
	UserContact         string       `json:"user_contact"`
	Status              TicketStatus `json:"status"`
	AIAttemptedResponse string       `json:"ai_attempted_response"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           *time.Time   `json:"updated_at,omitempty"`
}
