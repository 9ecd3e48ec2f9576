package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yuh2k/FAQ-system/internal/chat"
	"github.com/yuh2k/FAQ-system/internal/domain"
	"github.com/yuh2k/FAQ-system/internal/identity"
)

// Chat processes one user message.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientIP := identity.ClientIPFromContext(ctx)
	if h.limiter != nil && !h.limiter.Allow(clientIP) {
		slog.Warn("Chat rate limit exceeded", "client_ip", clientIP)
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		req.SessionID = identity.SessionIDFromContext(ctx)
	}

	resp, err := h.app.Chat.Handle(ctx, req)
	if errors.Is(err, chat.ErrEmptyMessage) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("Failed to process chat message", "session_id", req.SessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	w.Header().Set(identity.SessionHeaderName, resp.SessionID)
	JSON(w, http.StatusOK, resp)
}

// History returns the messages of a session, oldest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SanitizeSessionID(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	msgs, err := h.app.Repo.ListMessages(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to list messages", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load chat history")
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	JSON(w, http.StatusOK, msgs)
}

// Sessions lists the sessions of a contact, most recent first.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	contact := chi.URLParam(r, "contact")
	if contact == "" {
		Error(w, http.StatusBadRequest, "contact is required")
		return
	}

	sessions, err := h.app.Repo.ListSessionsByContact(r.Context(), contact)
	if err != nil {
		slog.Error("Failed to list sessions", "contact", contact, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load sessions")
		return
	}
	if sessions == nil {
		sessions = []domain.SessionSummary{}
	}
	JSON(w, http.StatusOK, sessions)
}
