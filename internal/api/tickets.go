package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yuh2k/FAQ-system/internal/domain"
	"github.com/yuh2k/FAQ-system/internal/store"
)

// ListTickets returns tickets, newest first, optionally filtered by ?status=.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	var status domain.TicketStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := domain.ParseTicketStatus(raw)
		if err != nil {
			Error(w, http.StatusBadRequest, "invalid status")
			return
		}
		status = parsed
	}

	tickets, err := h.app.Repo.ListTickets(r.Context(), status)
	if err != nil {
		slog.Error("Failed to list tickets", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load tickets")
		return
	}
	JSON(w, http.StatusOK, tickets)
}

// GetTicket returns one ticket.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := ticketID(w, r)
	if !ok {
		return
	}

	t, err := h.app.Repo.GetTicket(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "ticket not found")
		return
	}
	if err != nil {
		slog.Error("Failed to load ticket", "ticket_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load ticket")
		return
	}
	JSON(w, http.StatusOK, t)
}

// UpdateTicketStatus moves a ticket to the status given as ?status= or in
// a JSON body {"status": "..."}.
func (h *Handler) UpdateTicketStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := ticketID(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("status")
	if raw == "" && r.Body != nil {
		var body struct {
			Status string `json:"status"`
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			raw = body.Status
		}
	}

	status, err := domain.ParseTicketStatus(raw)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid status")
		return
	}

	t, err := h.app.Repo.UpdateTicketStatus(r.Context(), id, status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		Error(w, http.StatusNotFound, "ticket not found")
		return
	case errors.Is(err, domain.ErrInvalidTransition):
		Error(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("Failed to update ticket status", "ticket_id", id, "status", status, "error", err)
		Error(w, http.StatusInternalServerError, "failed to update ticket")
		return
	}

	slog.Info("Ticket status updated", "ticket_id", id, "status", status)
	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Ticket status updated successfully",
		"ticket":  t,
	})
}

func ticketID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		Error(w, http.StatusBadRequest, "invalid ticket id")
		return 0, false
	}
	return id, true
}
