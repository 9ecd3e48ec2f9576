package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yuh2k/FAQ-system/internal/domain"
	"github.com/yuh2k/FAQ-system/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	maxRetries = 3
	baseDelay  = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // Serializes write transactions to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS chat_sessions (
		session_id TEXT PRIMARY KEY,
		user_contact TEXT NOT NULL DEFAULT '',
		unclear_count INTEGER NOT NULL DEFAULT 0,
		stage TEXT NOT NULL DEFAULT 'normal',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_sessions_contact ON chat_sessions(user_contact);
	CREATE INDEX IF NOT EXISTS idx_chat_sessions_updated ON chat_sessions(updated_at);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		message TEXT NOT NULL,
		response TEXT NOT NULL,
		is_from_kb INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id);

	CREATE TABLE IF NOT EXISTS tickets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_question TEXT NOT NULL,
		user_contact TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'open',
		ai_attempted_response TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `
		SELECT session_id, user_contact, unclear_count, stage, is_active, created_at, updated_at
		FROM chat_sessions WHERE session_id = ?`

	row := s.db.QueryRowContext(ctx, query, sessionID)

	var session domain.Session
	var stage string
	var createdAt, updatedAt int64

	err := row.Scan(
		&session.SessionID, &session.UserContact, &session.State.UnclearCount,
		&stage, &session.IsActive, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session.State.Stage, err = domain.ParseStage(stage)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)

	return &session, nil
}

// CreateSession inserts a new session row.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `
	INSERT INTO chat_sessions (session_id, user_contact, unclear_count, stage, is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	return s.withRetry(ctx, "create session", func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		_, err := s.db.ExecContext(ctx, query,
			session.SessionID, session.UserContact,
			session.State.UnclearCount, session.State.Stage.String(), session.IsActive,
			session.CreatedAt.Unix(), session.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
}

// SaveTurn persists one turn in a single transaction.
// Implements retry logic with exponential backoff to handle SQLITE_BUSY errors.
func (s *SQLiteStore) SaveTurn(ctx context.Context, turn *domain.Turn) error {
	return s.withRetry(ctx, "save turn", func() error {
		return s.saveTurnOnce(ctx, turn)
	})
}

func (s *SQLiteStore) saveTurnOnce(ctx context.Context, turn *domain.Turn) (err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Warn("failed to roll back turn", "session_id", turn.SessionID, "error", rbErr)
			}
		}
	}()

	now := time.Now()

	if t := turn.Ticket; t != nil {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO tickets (session_id, user_question, user_contact, status, ai_attempted_response, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			turn.SessionID, t.UserQuestion, t.UserContact, string(domain.TicketOpen), t.AIAttemptedResponse, now.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("ticket id: %w", err)
		}
		t.SessionID = turn.SessionID
		t.Status = domain.TicketOpen
		t.CreatedAt = time.Unix(now.Unix(), 0)
	}

	m := &turn.Message
	res, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (session_id, message, response, is_from_kb, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		turn.SessionID, m.Message, m.Response, m.IsFromKB, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	m.SessionID = turn.SessionID
	m.CreatedAt = time.Unix(now.Unix(), 0)

	res, err = tx.ExecContext(ctx, `
		UPDATE chat_sessions
		SET unclear_count = ?, stage = ?, is_active = ?,
		    user_contact = CASE WHEN ? <> '' THEN ? ELSE user_contact END,
		    updated_at = ?
		WHERE session_id = ?`,
		turn.State.UnclearCount, turn.State.Stage.String(), turn.State.Stage != domain.StageEnded,
		turn.Contact, turn.Contact, now.Unix(), turn.SessionID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		// The sweeper removed the session while the turn was in flight.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chat_sessions (session_id, user_contact, unclear_count, stage, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			turn.SessionID, turn.Contact, turn.State.UnclearCount, turn.State.Stage.String(),
			turn.State.Stage != domain.StageEnded, now.Unix(), now.Unix(),
		)
		if err != nil {
			return fmt.Errorf("recreate session %s: %w", turn.SessionID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	return nil
}

// ListMessages returns the messages of a session, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	query := `
		SELECT id, session_id, message, response, is_from_kb, created_at
		FROM chat_messages WHERE session_id = ? ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Message, &m.Response, &m.IsFromKB, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// ListSessionsByContact returns the sessions of a contact, newest first.
func (s *SQLiteStore) ListSessionsByContact(ctx context.Context, contact string) ([]domain.SessionSummary, error) {
	query := `
		SELECT s.session_id, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.session_id),
		       (SELECT m.message FROM chat_messages m WHERE m.session_id = s.session_id ORDER BY m.id DESC LIMIT 1)
		FROM chat_sessions s
		WHERE s.user_contact = ?
		ORDER BY s.updated_at DESC, s.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, contact)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close session rows", "error", closeErr)
		}
	}()

	sessions := []domain.SessionSummary{}
	for rows.Next() {
		var sum domain.SessionSummary
		var createdAt, updatedAt int64
		var last sql.NullString
		if err := rows.Scan(&sum.SessionID, &createdAt, &updatedAt, &sum.MessageCount, &last); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sum.CreatedAt = time.Unix(createdAt, 0)
		sum.UpdatedAt = time.Unix(updatedAt, 0)
		if last.Valid {
			sum.LastMessage = &last.String
		}
		sessions = append(sessions, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

const ticketColumns = `id, session_id, user_question, user_contact, status, ai_attempted_response, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var t domain.Ticket
	var status string
	var createdAt int64
	var updatedAt sql.NullInt64

	if err := row.Scan(&t.ID, &t.SessionID, &t.UserQuestion, &t.UserContact, &status,
		&t.AIAttemptedResponse, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	parsed, err := domain.ParseTicketStatus(status)
	if err != nil {
		return nil, fmt.Errorf("ticket %d: %w", t.ID, err)
	}
	t.Status = parsed
	t.CreatedAt = time.Unix(createdAt, 0)
	if updatedAt.Valid {
		ts := time.Unix(updatedAt.Int64, 0)
		t.UpdatedAt = &ts
	}
	return &t, nil
}

// ListTickets returns tickets, newest first.
func (s *SQLiteStore) ListTickets(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close ticket rows", "error", closeErr)
		}
	}()

	tickets := []domain.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket row: %w", err)
		}
		tickets = append(tickets, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return tickets, nil
}

// GetTicket retrieves a ticket by id.
func (s *SQLiteStore) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan ticket row: %w", err)
	}
	return t, nil
}

// UpdateTicketStatus moves a ticket to status.
func (s *SQLiteStore) UpdateTicketStatus(ctx context.Context, id int64, status domain.TicketStatus) (*domain.Ticket, error) {
	var updated *domain.Ticket
	err := s.withRetry(ctx, "update ticket status", func() error {
		var err error
		updated, err = s.updateTicketStatusOnce(ctx, id, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SQLiteStore) updateTicketStatusOnce(ctx context.Context, id int64, status domain.TicketStatus) (t *domain.Ticket, err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Warn("failed to roll back ticket update", "ticket_id", id, "error", rbErr)
			}
		}
	}()

	t, err = scanTicket(tx.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan ticket row: %w", err)
	}

	if !t.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, t.Status, status)
	}

	now := time.Now().Unix()
	if _, err = tx.ExecContext(ctx, `UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`, string(status), now, id); err != nil {
		return nil, fmt.Errorf("update ticket status: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ticket update: %w", err)
	}

	t.Status = status
	ts := time.Unix(now, 0)
	t.UpdatedAt = &ts
	return t, nil
}

// CleanupExpiredSessions removes sessions older than TTL together with
// their messages. Tickets are kept.
func (s *SQLiteStore) CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()

	var deleted int64
	err := s.withRetry(ctx, "cleanup expired sessions", func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		if _, err := s.db.ExecContext(ctx, `
			DELETE FROM chat_messages WHERE session_id IN
				(SELECT session_id FROM chat_sessions WHERE updated_at < ?)`, threshold); err != nil {
			return fmt.Errorf("cleanup expired messages: %w", err)
		}

		result, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE updated_at < ?`, threshold)
		if err != nil {
			return fmt.Errorf("cleanup expired sessions: %w", err)
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

// withRetry runs fn, retrying SQLite lock conflicts with exponential
// backoff: 100ms, 200ms.
func (s *SQLiteStore) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}

		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}

	if shared.IsSQLiteConflictError(err) {
		return fmt.Errorf("%s failed after %d attempts: %w", op, maxRetries, err)
	}
	return err
}
