package intent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yuh2k/FAQ-system/internal/llm"
	"github.com/yuh2k/FAQ-system/internal/rules"
)

// ModelConfirmer asks a generative model whether a message explicitly
// requests a human. Only an unambiguous "yes" counts.
type ModelConfirmer struct {
	client llm.Client
	prompt string
}

// NewModelConfirmer builds a confirmer using the advisory prompt of r.
func NewModelConfirmer(client llm.Client, r *rules.Rules) *ModelConfirmer {
	return &ModelConfirmer{client: client, prompt: r.Prompts.HumanAdvisory}
}

// ConfirmHuman implements Confirmer.
func (m *ModelConfirmer) ConfirmHuman(ctx context.Context, message string) bool {
	if m.prompt == "" {
		return false
	}

	resp, err := m.client.Generate(ctx, llm.GenerateRequest{
		Task:   llm.TaskConfirm,
		Prompt: strings.ReplaceAll(m.prompt, "{message}", message),
	})
	if err != nil {
		slog.Debug("Advisory check failed", "error", err)
		return false
	}
	return isAffirmative(resp.Text)
}

func isAffirmative(answer string) bool {
	a := rules.Normalize(answer)
	a = strings.TrimRight(a, ".!")
	return a == "yes"
}
