// Package intent classifies a single user message: whether it asks for a
// human and whether its intent is too unclear to answer.
package intent

import (
	"context"
	"log/slog"
	"time"

	"github.com/yuh2k/FAQ-system/internal/rules"
)

// Result is the classification of one message.
type Result struct {
	WantsHuman bool
	IsUnclear  bool
}

// Confirmer answers the advisory question "does this message explicitly ask
// for a human?". Implementations must treat every failure as false.
type Confirmer interface {
	ConfirmHuman(ctx context.Context, message string) bool
}

// Classifier is built from one rules snapshot and holds no mutable state.
type Classifier struct {
	rules     *rules.Rules
	confirmer Confirmer
	timeout   time.Duration
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithConfirmer enables the advisory human-intent check, bounded by timeout.
func WithConfirmer(c Confirmer, timeout time.Duration) Option {
	return func(cl *Classifier) {
		cl.confirmer = c
		cl.timeout = timeout
	}
}

// New creates a classifier over r.
func New(r *rules.Rules, opts ...Option) *Classifier {
	c := &Classifier{rules: r}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify evaluates both signals for message. kbMatched short-circuits the
// unclear check since a knowledge-base hit always means clear intent.
func (c *Classifier) Classify(ctx context.Context, message string, kbMatched bool) Result {
	text := rules.NewText(message)
	res := Result{WantsHuman: c.wantsHuman(ctx, text)}
	if !kbMatched {
		res.IsUnclear = c.isUnclear(text)
	}
	return res
}

// WantsHuman reports whether message asks for a human, using only the
// keyword rules.
func (c *Classifier) WantsHuman(message string) bool {
	return c.keywordHuman(rules.NewText(message))
}

// IsUnclear reports whether message is too vague to act on.
func (c *Classifier) IsUnclear(message string) bool {
	return c.isUnclear(rules.NewText(message))
}

func (c *Classifier) wantsHuman(ctx context.Context, text rules.Text) bool {
	if c.keywordHuman(text) {
		return true
	}
	if c.confirmer == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	confirmed := c.confirmer.ConfirmHuman(ctx, text.Raw)
	slog.Debug("Advisory human-intent check", "confirmed", confirmed, "duration", time.Since(start))
	return confirmed
}

func (c *Classifier) keywordHuman(text rules.Text) bool {
	h := c.rules.Human

	if text.HasSubstring(h.Phrases) {
		return true
	}

	help := text.HasAnyWord(h.HelpWords)
	human := text.HasAnyWord(h.HumanWords)

	switch {
	case help && human:
		return true
	case help && text.HasAnyWord(h.UrgencyWords):
		return true
	case text.HasAnyPhrase(h.NeedTo) && (human || help):
		return true
	case text.HasAnyPhrase(h.TalkPhrases) && human:
		return true
	}
	return false
}

func (c *Classifier) isUnclear(text rules.Text) bool {
	u := c.rules.Unclear

	if text.HasAnyPhrase(u.Greetings) {
		return false
	}
	if text.HasSubstring(u.ProblemKeywords) {
		return false
	}

	words := text.WordCount()
	switch {
	case text.Length() < u.MinLength:
		return true
	case words <= u.MaxShortWords:
		return true
	case words <= u.MaxVagueWords && (text.HasAnyWord(u.VagueWords) || text.HasAnyPhrase(u.VaguePhrases)):
		return true
	}

	_, bare := u.BareTokens[text.Lower]
	return bare
}
