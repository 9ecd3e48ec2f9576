package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yuh2k/FAQ-system/internal/kb"
)

// KnowledgeBase returns the question/answer pairs of the active knowledge
// base, fuzzy-filtered by ?q= when present.
func (h *Handler) KnowledgeBase(w http.ResponseWriter, r *http.Request) {
	pairs := h.app.KB.Filter(r.URL.Query().Get("q"))
	JSON(w, http.StatusOK, map[string]interface{}{
		"knowledge_base": h.app.KB.Name(),
		"qa_pairs":       pairs,
	})
}

// KnowledgeBases lists the registered knowledge bases.
func (h *Handler) KnowledgeBases(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"available_kbs": h.app.KB.Available(),
		"current_kb":    h.app.KB.Name(),
	})
}

// SwitchKnowledgeBase activates another registered knowledge base.
func (h *Handler) SwitchKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.app.KB.Switch(name); err != nil {
		if errors.Is(err, kb.ErrUnknownKnowledgeBase) {
			Error(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("Failed to switch knowledge base", "name", name, "error", err)
		Error(w, http.StatusBadRequest, "failed to switch knowledge base: "+err.Error())
		return
	}

	slog.Info("Knowledge base switched", "name", name)
	JSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Switched to knowledge base: " + name,
		"qa_pairs": len(h.app.KB.Pairs()),
	})
}

// Reload re-reads the rules file and the active knowledge base.
func (h *Handler) Reload(w http.ResponseWriter, _ *http.Request) {
	r, err := h.app.Reload()
	if err != nil {
		slog.Error("Failed to reload configuration", "error", err)
		Error(w, http.StatusInternalServerError, "failed to reload config: "+err.Error())
		return
	}

	slog.Info("Configuration reloaded", "rules", r.Source, "knowledge_base", h.app.KB.Name())
	JSON(w, http.StatusOK, map[string]string{"message": "Configurations reloaded successfully"})
}

// Status reports the active configuration.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	rs := h.app.Rules.Current()
	JSON(w, http.StatusOK, map[string]interface{}{
		"current_kb":           h.app.KB.Name(),
		"qa_pairs_loaded":      len(h.app.KB.Pairs()),
		"similarity_threshold": h.app.KB.Threshold(),
		"available_kbs":        h.app.KB.Available(),
		"rules_source":         rs.Source,
		"rules_loaded_at":      rs.LoadedAt,
		"ai_provider":          "ollama",
		"ai_model":             h.app.Config.LLM.Model,
		"provider_status":      h.providerStatus(r.Context()),
	})
}

// AIStatus reports whether the generation backend is reachable.
func (h *Handler) AIStatus(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.providerStatus(r.Context()))
}

func (h *Handler) providerStatus(ctx context.Context) map[string]interface{} {
	cfg := h.app.Config.LLM
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return map[string]interface{}{
		"enabled":          cfg.Enabled,
		"available":        h.app.LLM.Available(ctx),
		"endpoint":         cfg.Endpoint,
		"model":            cfg.Model,
		"advisory_enabled": h.app.Config.Advisory.Enabled && cfg.Enabled,
	}
}
