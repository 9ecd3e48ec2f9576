// Package api provides HTTP handlers for the FAQ API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yuh2k/FAQ-system/internal/app"
)

const defaultMaxBodyBytes = 64 * 1024

// Handler serves the chat, ticket and configuration endpoints.
type Handler struct {
	app     *app.App
	limiter *RateLimiter
	maxBody int64
}

// NewHandler creates a Handler. A nil limiter disables rate limiting.
func NewHandler(a *app.App, limiter *RateLimiter) *Handler {
	maxBody := a.Config.MaxRequestBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Handler{
		app:     a,
		limiter: limiter,
		maxBody: maxBody,
	}
}

// RegisterRoutes mounts every endpoint except /health.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Root)

	r.Post("/chat", h.Chat)
	r.Get("/chat/history/{sessionID}", h.History)
	r.Get("/sessions/{contact}", h.Sessions)

	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Get("/{id}", h.GetTicket)
		r.Put("/{id}/status", h.UpdateTicketStatus)
	})

	r.Get("/knowledge-base", h.KnowledgeBase)
	r.Route("/config", func(r chi.Router) {
		r.Get("/knowledge-bases", h.KnowledgeBases)
		r.Post("/switch-kb/{name}", h.SwitchKnowledgeBase)
		r.Post("/reload", h.Reload)
		r.Get("/status", h.Status)
		r.Get("/ai-status", h.AIStatus)
	})
}

// Root returns the service banner.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"message": "Customer FAQ System API",
		"version": "1.0.0",
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
