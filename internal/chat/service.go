// Package chat runs one conversation turn end to end: it loads the session
// state, consults the knowledge base and the model, advances the guidance
// state machine and persists the result.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yuh2k/FAQ-system/internal/compose"
	"github.com/yuh2k/FAQ-system/internal/domain"
	"github.com/yuh2k/FAQ-system/internal/guidance"
	"github.com/yuh2k/FAQ-system/internal/identity"
	"github.com/yuh2k/FAQ-system/internal/intent"
	"github.com/yuh2k/FAQ-system/internal/kb"
	"github.com/yuh2k/FAQ-system/internal/llm"
	"github.com/yuh2k/FAQ-system/internal/rules"
	"github.com/yuh2k/FAQ-system/internal/store"
)

// ErrEmptyMessage is returned for a blank message.
var ErrEmptyMessage = errors.New("message is required")

// Request is one incoming chat message.
type Request struct {
	Message     string `json:"message"`
	SessionID   string `json:"session_id,omitempty"`
	UserContact string `json:"user_contact,omitempty"`
}

// Response is the reply to a chat message.
type Response struct {
	Response      string `json:"response"`
	SessionID     string `json:"session_id"`
	IsFromKB      bool   `json:"is_from_kb"`
	TicketCreated bool   `json:"ticket_created"`
	TicketID      *int64 `json:"ticket_id,omitempty"`
	ChatEnded     bool   `json:"chat_ended"`
}

// Retriever answers questions from a knowledge base.
type Retriever interface {
	Search(query string) (kb.Result, error)
}

// Options tunes a Service.
type Options struct {
	// AdvisoryEnabled asks the model to confirm human-help requests the
	// keyword rules miss.
	AdvisoryEnabled bool
	AdvisoryTimeout time.Duration
	Picker          compose.Picker
	Logger          ConversationLogger
}

// Service is the session orchestrator.
type Service struct {
	repo      store.Repository
	rules     *rules.Store
	retriever Retriever
	llm       llm.Client
	opts      Options
	log       ConversationLogger
	locks     *sessionLocks
}

// NewService wires a Service. A nil client disables generation.
func NewService(repo store.Repository, rs *rules.Store, retriever Retriever, client llm.Client, opts Options) *Service {
	if client == nil {
		client = llm.Disabled{}
	}
	if opts.Picker == nil {
		opts.Picker = compose.NewRandPicker(0)
	}
	if opts.AdvisoryTimeout <= 0 {
		opts.AdvisoryTimeout = 3 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = noopConversationLogger{}
	}
	return &Service{
		repo:      repo,
		rules:     rs,
		retriever: retriever,
		llm:       client,
		opts:      opts,
		log:       log,
		locks:     newSessionLocks(),
	}
}

// Handle processes one message. Turns of the same session are serialized;
// different sessions run in parallel. Only persistence failures are
// returned as errors.
func (s *Service) Handle(ctx context.Context, req Request) (*Response, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, ErrEmptyMessage
	}

	sessionID := identity.SanitizeSessionID(req.SessionID)
	if sessionID == "" {
		sessionID = identity.NewSessionID()
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	// one snapshot for the whole turn
	r := s.rules.Current()

	sess, err := s.loadOrCreate(ctx, sessionID, req.UserContact)
	if err != nil {
		return nil, err
	}
	contact := req.UserContact
	if contact == "" {
		contact = sess.UserContact
	}

	s.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		SessionID:  sessionID,
		Contact:    contact,
		Direction:  "inbound",
		EventType:  "chat_user_message",
		ContentRaw: msg,
		Meta:       map[string]any{"stage": sess.State.Stage.String(), "unclear_count": sess.State.UnclearCount},
	})

	if sess.State.Stage == domain.StageEnded {
		slog.Info("Restarting ended session", "session_id", sessionID)
	}

	match := s.search(msg, sessionID)

	cls := s.classifier(r).Classify(ctx, msg, match.Matched)
	decision, next := guidance.New(r).Advance(sess.State, msg, cls)

	var generated string
	if decision.Deferred && !match.Matched {
		generated = s.generate(ctx, r, msg, sessionID)
	}

	out := compose.New(r, s.opts.Picker).Compose(compose.Input{
		Decision:  decision,
		Message:   msg,
		KBMatched: match.Matched,
		KBAnswer:  match.Answer,
		Generated: generated,
	})

	turn := &domain.Turn{
		SessionID: sessionID,
		Contact:   req.UserContact,
		State:     next,
		Message: domain.ChatMessage{
			Message:  msg,
			Response: out.Text,
			IsFromKB: out.IsFromKB,
		},
	}
	if out.ForceTicket {
		turn.Ticket = &domain.Ticket{
			UserQuestion:        msg,
			UserContact:         contact,
			AIAttemptedResponse: out.Text,
		}
	}

	if err := s.repo.SaveTurn(ctx, turn); err != nil {
		return nil, fmt.Errorf("save turn: %w", err)
	}

	resp := &Response{
		Response:  out.Text,
		SessionID: sessionID,
		IsFromKB:  out.IsFromKB,
		ChatEnded: decision.ChatEnded,
	}
	if turn.Ticket != nil {
		id := turn.Ticket.ID
		resp.TicketCreated = true
		resp.TicketID = &id
		resp.Response = compose.New(r, s.opts.Picker).AppendTicketCreated(out.Text, id)
	}

	slog.Info("Chat turn",
		"session_id", sessionID,
		"stage", next.Stage.String(),
		"unclear_count", next.UnclearCount,
		"source", out.Source,
		"kb_score", match.Score,
		"ticket_created", resp.TicketCreated,
		"chat_ended", resp.ChatEnded,
	)
	s.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		SessionID:  sessionID,
		Contact:    contact,
		Direction:  "outbound",
		EventType:  "chat_assistant_message",
		ContentRaw: resp.Response,
		Meta: map[string]any{
			"source":         out.Source,
			"stage":          next.Stage.String(),
			"unclear_count":  next.UnclearCount,
			"ticket_created": resp.TicketCreated,
			"chat_ended":     resp.ChatEnded,
		},
	})

	return resp, nil
}

func (s *Service) loadOrCreate(ctx context.Context, sessionID, contact string) (*domain.Session, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess != nil {
		return sess, nil
	}

	now := time.Now()
	sess = &domain.Session{
		SessionID:   sessionID,
		UserContact: contact,
		State:       domain.NewConversationState(),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// search treats retrieval failures as no match.
func (s *Service) search(msg, sessionID string) kb.Result {
	if s.retriever == nil {
		return kb.Result{}
	}
	res, err := s.retriever.Search(msg)
	if err != nil {
		slog.Warn("Knowledge base search failed", "session_id", sessionID, "error", err)
		return kb.Result{}
	}
	return res
}

func (s *Service) classifier(r *rules.Rules) *intent.Classifier {
	if !s.opts.AdvisoryEnabled {
		return intent.New(r)
	}
	return intent.New(r, intent.WithConfirmer(intent.NewModelConfirmer(s.llm, r), s.opts.AdvisoryTimeout))
}

// generate returns "" on any failure so the composer falls back to the
// static bank.
func (s *Service) generate(ctx context.Context, r *rules.Rules, msg, sessionID string) string {
	resp, err := s.llm.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskAnswer,
		SystemPrompt: r.Prompts.System,
		Prompt:       msg,
	})
	if err != nil {
		if !errors.Is(err, llm.ErrUnavailable) {
			slog.Warn("Generation failed, using static fallback", "session_id", sessionID, "error", err)
		}
		return ""
	}
	return resp.Text
}

// Close flushes the conversation log.
func (s *Service) Close() error {
	return s.log.Close()
}
