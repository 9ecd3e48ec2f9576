package domain

import (
	"errors"
	"testing"
)

func TestParseTicketStatus(t *testing.T) {
	for _, s := range []string{"open", "in_progress", "closed"} {
		if _, err := ParseTicketStatus(s); err != nil {
			t.Errorf("ParseTicketStatus(%q) returned error: %v", s, err)
		}
	}
	if _, err := ParseTicketStatus("resolved"); !errors.Is(err, ErrInvalidTicketStatus) {
		t.Fatalf("expected ErrInvalidTicketStatus, got %v", err)
	}
}

func TestTicketStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to TicketStatus
		want     bool
	}{
		{TicketOpen, TicketInProgress, true},
		{TicketOpen, TicketClosed, true},
		{TicketInProgress, TicketClosed, true},
		{TicketInProgress, TicketOpen, true},
		{TicketClosed, TicketOpen, true},
		{TicketClosed, TicketInProgress, false},
		{TicketClosed, TicketClosed, true},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestConversationStateInvariants(t *testing.T) {
	if !NewConversationState().Valid() {
		t.Fatal("fresh state should be valid")
	}
	if (ConversationState{Stage: StageNormal, UnclearCount: 1}).Valid() {
		t.Fatal("normal stage with a non-zero counter should be invalid")
	}
	if (ConversationState{Stage: StageWaitingForChoice, UnclearCount: 2}).Valid() {
		t.Fatal("waiting for choice below the threshold should be invalid")
	}
	if _, err := ParseStage("bogus"); err == nil {
		t.Fatal("expected error for unknown stage")
	}
	if st, err := ParseStage(""); err != nil || st != StageNormal {
		t.Fatalf("empty stage should map to normal, got %q %v", st, err)
	}
}
