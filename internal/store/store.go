// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/yuh2k/FAQ-system/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for persisting sessions, messages and
// tickets.
type Repository interface {
	// GetSession retrieves a session by id. It returns nil, nil when the
	// session does not exist.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// CreateSession inserts a new session row with a fresh state.
	CreateSession(ctx context.Context, session *domain.Session) error

	// SaveTurn persists the state update, the message and the optional
	// ticket of one turn in a single transaction. It fills in the generated
	// message and ticket ids. A session row removed in the meantime is
	// recreated from the turn's state.
	SaveTurn(ctx context.Context, turn *domain.Turn) error

	// ListMessages returns the messages of a session, oldest first.
	ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)

	// ListSessionsByContact returns the sessions of a contact, newest first.
	ListSessionsByContact(ctx context.Context, contact string) ([]domain.SessionSummary, error)

	// ListTickets returns tickets, newest first. An empty status lists all.
	ListTickets(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error)

	// GetTicket retrieves a ticket by id.
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)

	// UpdateTicketStatus moves a ticket to status, enforcing the allowed
	// transitions.
	UpdateTicketStatus(ctx context.Context, id int64, status domain.TicketStatus) (*domain.Ticket, error)

	// CleanupExpiredSessions removes sessions and their messages not
	// updated within ttl.
	CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
