// Package guidance advances the per-session conversation state one turn at
// a time: it counts unclear turns, offers the explicit choice after the
// third one and resolves that choice.
package guidance

import (
	"strings"

	"github.com/yuh2k/FAQ-system/internal/domain"
	"github.com/yuh2k/FAQ-system/internal/intent"
	"github.com/yuh2k/FAQ-system/internal/rules"
)

// ChoiceThreshold is the number of consecutive unclear turns after which
// the user is offered the ticket/end choice.
const ChoiceThreshold = 3

// Decision is the outcome of one turn.
type Decision struct {
	ResponseText string
	ForceTicket  bool
	IsUnclear    bool
	ChatEnded    bool
	// Deferred means the reply comes from retrieval or generation.
	Deferred bool
}

// Choice is the interpretation of a reply to the choice prompt.
type Choice int

const (
	ChoiceNone Choice = iota
	ChoiceTicket
	ChoiceEnd
)

// Machine holds one rules snapshot. It is safe for concurrent use.
type Machine struct {
	rules *rules.Rules
}

// New creates a Machine over r.
func New(r *rules.Rules) *Machine {
	return &Machine{rules: r}
}

// Advance applies one message to state. Rules are evaluated in priority
// order and the first match decides the turn. The returned state always
// satisfies ConversationState.Valid.
func (m *Machine) Advance(state domain.ConversationState, message string, c intent.Result) (Decision, domain.ConversationState) {
	if state.Stage == domain.StageEnded {
		state = domain.NewConversationState()
	}

	if c.WantsHuman {
		// A pending choice is settled when the request also reads as the ticket option.
		if state.Stage == domain.StageWaitingForChoice && m.MatchChoice(message) == ChoiceTicket {
			state = domain.NewConversationState()
		}
		return Decision{ResponseText: m.rules.Templates.PriorityTicket, ForceTicket: true}, state
	}

	if state.Stage == domain.StageWaitingForChoice {
		switch m.MatchChoice(message) {
		case ChoiceTicket:
			return Decision{ResponseText: m.rules.Templates.TicketConfirmation, ForceTicket: true},
				domain.NewConversationState()
		case ChoiceEnd:
			return Decision{ResponseText: m.rules.Templates.ChatClosed, ChatEnded: true},
				domain.ConversationState{Stage: domain.StageEnded}
		default:
			return Decision{ResponseText: m.ChoiceMessage(), IsUnclear: true}, state
		}
	}

	if c.IsUnclear && state.Stage != domain.StageEscalated {
		next := domain.ConversationState{UnclearCount: state.UnclearCount + 1}
		if next.UnclearCount >= ChoiceThreshold {
			next.Stage = domain.StageWaitingForChoice
			return Decision{ResponseText: m.ChoiceMessage(), IsUnclear: true}, next
		}
		next.Stage = domain.StageGuiding
		return Decision{ResponseText: m.GuidanceMessage(next.UnclearCount), IsUnclear: true}, next
	}

	return Decision{Deferred: true}, domain.NewConversationState()
}

// MatchChoice interprets message as a reply to the choice prompt. Ticket
// vocabulary is checked before end vocabulary.
func (m *Machine) MatchChoice(message string) Choice {
	ch := m.rules.Choice
	text := rules.NewText(message)

	if _, ok := ch.TicketExact[text.Lower]; ok {
		return ChoiceTicket
	}
	if _, ok := ch.EndExact[text.Lower]; ok {
		return ChoiceEnd
	}
	if text.HasAnyPhrase(ch.TicketPhrases) {
		return ChoiceTicket
	}
	if text.HasAnyPhrase(ch.EndPhrases) {
		return ChoiceEnd
	}
	return ChoiceNone
}

// GuidanceMessage renders the guidance text for the 1-indexed unclear count.
// Counts without a template get the choice intro.
func (m *Machine) GuidanceMessage(count int) string {
	t := m.rules.Templates
	if count < 1 || count > len(t.Guidance) {
		return t.ChoiceIntro
	}

	msg := t.Guidance[count-1]
	msg = strings.ReplaceAll(msg, "{topics}", strings.Join(m.rules.TopicNames(), ", "))
	msg = strings.ReplaceAll(msg, "{examples}", m.examples())
	return msg
}

func (m *Machine) examples() string {
	var b strings.Builder
	for _, topic := range m.rules.Topics {
		for _, ex := range topic.Examples {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- ")
			b.WriteString(topic.Name)
			b.WriteString(": ")
			b.WriteString(ex)
		}
	}
	return b.String()
}

// ChoiceMessage renders the choice prompt with its button block.
func (m *Machine) ChoiceMessage() string {
	return FormatChoices(m.rules.Templates.ChoiceIntro, m.rules.Choice.Options)
}

// FormatChoices renders intro followed by the marker-delimited option
// block, one token|label|description line per option.
func FormatChoices(intro string, options []rules.ChoiceOption) string {
	var b strings.Builder
	b.WriteString(intro)
	b.WriteString("\n\n")
	b.WriteString(rules.ChoiceStartMarker)
	b.WriteByte('\n')
	for _, o := range options {
		b.WriteString(o.Token)
		b.WriteByte('|')
		b.WriteString(o.Label)
		b.WriteByte('|')
		b.WriteString(o.Description)
		b.WriteByte('\n')
	}
	b.WriteString(rules.ChoiceEndMarker)
	return b.String()
}
