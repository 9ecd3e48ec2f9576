// Package compose turns a guidance decision plus retrieval and generation
// results into the text shown to the user, and decides the final ticket
// check.
package compose

import (
	"regexp"
	"strings"

	"github.com/yuh2k/FAQ-system/internal/guidance"
	"github.com/yuh2k/FAQ-system/internal/rules"
)

// Input is everything the composer needs for one turn.
type Input struct {
	Decision  guidance.Decision
	Message   string
	KBMatched bool
	KBAnswer  string
	// Generated is the model reply; empty when generation failed or was
	// skipped.
	Generated string
}

// Output is the composed reply.
type Output struct {
	Text        string
	ForceTicket bool
	IsFromKB    bool
	// Source is one of "guidance", "kb", "llm" or "fallback".
	Source string
}

// Composer is built from one rules snapshot.
type Composer struct {
	rules  *rules.Rules
	picker Picker
}

// New creates a composer. A nil picker uses an unseeded RandPicker.
func New(r *rules.Rules, picker Picker) *Composer {
	if picker == nil {
		picker = NewRandPicker(0)
	}
	return &Composer{rules: r, picker: picker}
}

// Compose produces the final reply for a turn.
func (c *Composer) Compose(in Input) Output {
	d := in.Decision

	if !d.Deferred {
		out := Output{Text: d.ResponseText, ForceTicket: d.ForceTicket, Source: "guidance"}
		if !d.ChatEnded && c.NeedsTicket(d.ResponseText, in.Message) {
			out.ForceTicket = true
		}
		return out
	}

	var raw string
	out := Output{}
	switch {
	case in.KBMatched:
		raw = c.LeadIn(in.Message) + in.KBAnswer
		out.IsFromKB = true
		out.Source = "kb"
	case strings.TrimSpace(in.Generated) != "":
		raw = c.rules.Prompts.FallbackPrefix + in.Generated
		out.Source = "llm"
	default:
		raw = c.Fallback(in.Message)
		out.Source = "fallback"
	}

	out.ForceTicket = d.ForceTicket || c.NeedsTicket(raw, in.Message)
	out.Text = raw
	if !in.KBMatched {
		out.Text = c.StripMarkers(raw)
	}
	return out
}

// LeadIn returns the first lead-in whose keywords occur in message, or "".
func (c *Composer) LeadIn(message string) string {
	text := rules.NewText(message)
	for _, l := range c.rules.LeadIns {
		if text.HasAnyPhrase(l.Keywords) {
			return l.Text
		}
	}
	return ""
}

// Fallback picks a static reply: a greeting reply for greetings, a
// category reply when a category pattern matches, a generic one otherwise.
func (c *Composer) Fallback(message string) string {
	fb := c.rules.Fallback
	text := rules.NewText(message)

	if text.HasAnyPhrase(c.rules.Unclear.Greetings) {
		return c.pick(fb.Greetings)
	}
	for _, cat := range fb.Categories {
		for _, re := range cat.Patterns {
			if re.MatchString(text.Lower) {
				return c.pick(cat.Responses)
			}
		}
	}
	return c.pick(fb.Generic)
}

func (c *Composer) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[c.picker.Pick(len(options))]
}

var spaceRun = regexp.MustCompile(`[ \t]{2,}`)

// StripMarkers removes control markers from text. Text without markers is
// returned unchanged.
func (c *Composer) StripMarkers(text string) string {
	found := false
	for _, m := range c.rules.Ticket.ControlMarkers {
		if m != "" && strings.Contains(text, m) {
			text = strings.ReplaceAll(text, m, "")
			found = true
		}
	}
	if !found {
		return text
	}
	return strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
}

// NeedsTicket is the final ticket check: a control marker or response
// keyword in the raw reply, or an urgent keyword in the user message.
func (c *Composer) NeedsTicket(raw, message string) bool {
	t := c.rules.Ticket
	for _, m := range t.ControlMarkers {
		if m != "" && strings.Contains(raw, m) {
			return true
		}
	}
	for _, k := range t.ResponseKeywords {
		if k != "" && strings.Contains(raw, k) {
			return true
		}
	}
	return rules.NewText(message).HasSubstring(t.UrgentUserKeywords)
}

// AppendTicketCreated appends the ticket confirmation sentence.
func (c *Composer) AppendTicketCreated(text string, ticketID int64) string {
	return text + "\n\n" + c.rules.TicketCreatedText(ticketID)
}
