// Package domain contains core domain types for the FAQ service.
package domain

import (
	"fmt"
)

// Stage is the guidance stage of a conversation.
type Stage string

const (
	// StageNormal is the default stage; the unclear counter is zero.
	StageNormal Stage = "normal"
	// StageGuiding means at least one unclear turn has been answered with guidance.
	StageGuiding Stage = "guiding"
	// StageWaitingForChoice means the user was offered the ticket/end-chat choice.
	StageWaitingForChoice Stage = "waiting_for_choice"
	// StageEscalated is a persisted stage during which unclear turns are not counted.
	StageEscalated Stage = "escalated"
	// StageEnded means the user ended the chat from the choice prompt.
	StageEnded Stage = "ended"
)

// ParseStage converts a stored stage string into a Stage.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageNormal, StageGuiding, StageWaitingForChoice, StageEscalated, StageEnded:
		return Stage(s), nil
	case "":
		return StageNormal, nil
	default:
		return "", fmt.Errorf("unknown guidance stage %q", s)
	}
}

func (s Stage) String() string {
	return string(s)
}

// ConversationState is the per-session guidance record.
type ConversationState struct {
	UnclearCount int
	Stage        Stage
}

// NewConversationState returns the state of a brand new session.
func NewConversationState() ConversationState {
	return ConversationState{Stage: StageNormal}
}

// Valid reports whether the state satisfies the stage/counter invariants.
func (s ConversationState) Valid() bool {
	if s.UnclearCount < 0 {
		return false
	}
	switch s.Stage {
	case StageNormal:
		return s.UnclearCount == 0
	case StageWaitingForChoice:
		return s.UnclearCount >= 3
	case StageGuiding, StageEscalated, StageEnded:
		return true
	default:
		return false
	}
}
