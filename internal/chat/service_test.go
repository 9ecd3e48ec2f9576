package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuh2k/FAQ-system/internal/compose"
	"github.com/yuh2k/FAQ-system/internal/domain"
	"github.com/yuh2k/FAQ-system/internal/kb"
	"github.com/yuh2k/FAQ-system/internal/llm"
	"github.com/yuh2k/FAQ-system/internal/rules"
	"github.com/yuh2k/FAQ-system/internal/store"
)

type stubRetriever struct {
	answers map[string]string
	err     error
}

func (s stubRetriever) Search(query string) (kb.Result, error) {
	if s.err != nil {
		return kb.Result{}, s.err
	}
	if a, ok := s.answers[query]; ok {
		return kb.Result{Answer: a, Question: query, Matched: true, Score: 1}, nil
	}
	return kb.Result{}, nil
}

type stubLLM struct {
	text string
	err  error
}

func (s stubLLM) Generate(context.Context, llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.GenerateResponse{Text: s.text, Model: "stub"}, nil
}

func (s stubLLM) Available(context.Context) bool { return s.err == nil }

func newTestService(t *testing.T, retriever Retriever, client llm.Client) (*Service, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "faq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	r, err := rules.Compile(rules.Default())
	require.NoError(t, err)

	svc := NewService(repo, rules.NewStaticStore(r), retriever, client, Options{Picker: compose.FirstPicker{}})
	return svc, repo
}

func send(t *testing.T, svc *Service, sessionID, msg string) *Response {
	t.Helper()
	resp, err := svc.Handle(context.Background(), Request{Message: msg, SessionID: sessionID})
	require.NoError(t, err)
	return resp
}

func TestHandleThreeUnclearTurnsOfferChoice(t *testing.T) {
	svc, repo := newTestService(t, stubRetriever{}, nil)
	ctx := context.Background()

	first := send(t, svc, "", "help")
	require.NotEmpty(t, first.SessionID)
	assert.NotContains(t, first.Response, rules.ChoiceStartMarker)

	second := send(t, svc, first.SessionID, "what")
	assert.NotContains(t, second.Response, rules.ChoiceStartMarker)

	third := send(t, svc, first.SessionID, "info")
	assert.Contains(t, third.Response, rules.ChoiceStartMarker)
	assert.Contains(t, third.Response, "create_ticket|")
	assert.Contains(t, third.Response, "end_chat|")
	assert.False(t, third.TicketCreated)

	sess, err := repo.GetSession(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageWaitingForChoice, sess.State.Stage)
	assert.Equal(t, 3, sess.State.UnclearCount)

	ticket := send(t, svc, first.SessionID, "create_ticket")
	require.True(t, ticket.TicketCreated)
	require.NotNil(t, ticket.TicketID)
	assert.Contains(t, ticket.Response, "#")
	assert.False(t, ticket.ChatEnded)

	sess, err = repo.GetSession(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.NewConversationState(), sess.State)

	stored, err := repo.GetTicket(ctx, *ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "create_ticket", stored.UserQuestion)
	assert.Equal(t, domain.TicketOpen, stored.Status)

	msgs, err := repo.ListMessages(ctx, first.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.NotContains(t, msgs[3].Response, "#", "stored reply omits the ticket sentence")
}

func TestHandleHumanHelpSettlesPendingChoice(t *testing.T) {
	svc, repo := newTestService(t, stubRetriever{}, nil)
	ctx := context.Background()

	id := send(t, svc, "", "help").SessionID
	send(t, svc, id, "what")
	send(t, svc, id, "info")

	resp := send(t, svc, id, "human help")
	require.True(t, resp.TicketCreated)

	sess, err := repo.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.NewConversationState(), sess.State)

	// the choice is not offered again once the ticket exists
	next := send(t, svc, id, "what")
	assert.NotContains(t, next.Response, rules.ChoiceStartMarker)
}

func TestHandleEndChatFromChoice(t *testing.T) {
	svc, repo := newTestService(t, stubRetriever{}, nil)

	id := send(t, svc, "", "help").SessionID
	send(t, svc, id, "what")
	send(t, svc, id, "info")

	resp := send(t, svc, id, "end_chat")
	assert.True(t, resp.ChatEnded)
	assert.False(t, resp.TicketCreated)

	sess, err := repo.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StageEnded, sess.State.Stage)
	assert.False(t, sess.IsActive)

	// a new message restarts the conversation
	resp = send(t, svc, id, "hello")
	assert.False(t, resp.ChatEnded)
	sess, err = repo.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StageNormal, sess.State.Stage)
}

func TestHandleHumanRequestCreatesTicket(t *testing.T) {
	svc, repo := newTestService(t, stubRetriever{}, nil)

	resp, err := svc.Handle(context.Background(), Request{
		Message:     "I want to speak to a human",
		UserContact: "driver@example.com",
	})
	require.NoError(t, err)
	require.True(t, resp.TicketCreated)
	require.NotNil(t, resp.TicketID)

	sess, err := repo.GetSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, sess.State.UnclearCount)
	assert.Equal(t, "driver@example.com", sess.UserContact)

	ticket, err := repo.GetTicket(context.Background(), *resp.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "driver@example.com", ticket.UserContact)
	assert.Equal(t, resp.SessionID, ticket.SessionID)
}

func TestHandleGreetingUsesFallback(t *testing.T) {
	svc, _ := newTestService(t, stubRetriever{}, nil)

	resp := send(t, svc, "", "hello")
	assert.False(t, resp.TicketCreated)
	assert.False(t, resp.IsFromKB)
	assert.Equal(t, rules.Default().Fallback.Greetings[0], resp.Response)
}

func TestHandleKnowledgeBaseAnswer(t *testing.T) {
	answer := "Change the oil every 5,000 to 7,500 miles."
	svc, _ := newTestService(t, stubRetriever{answers: map[string]string{
		"how often should i change my oil": answer,
	}}, nil)

	resp := send(t, svc, "", "how often should i change my oil")
	assert.True(t, resp.IsFromKB)
	assert.True(t, strings.HasSuffix(resp.Response, answer))
	assert.False(t, resp.TicketCreated)
}

func TestHandleGeneratedAnswerRequestingFollowup(t *testing.T) {
	svc, _ := newTestService(t, stubRetriever{}, stubLLM{
		text: "That needs a technician. " + rules.FollowupMarker,
	})

	resp := send(t, svc, "", "my dashboard shows a strange symbol today")
	assert.True(t, resp.TicketCreated)
	assert.NotContains(t, resp.Response, rules.FollowupMarker)
	assert.Contains(t, resp.Response, "That needs a technician.")
	assert.False(t, resp.IsFromKB)
}

func TestHandleDegradesWhenCollaboratorsFail(t *testing.T) {
	svc, _ := newTestService(t,
		stubRetriever{err: errors.New("index corrupt")},
		stubLLM{err: llm.ErrTimeout},
	)

	resp := send(t, svc, "", "tell me about the warranty on used cars")
	assert.NotEmpty(t, resp.Response)
	assert.False(t, resp.IsFromKB)
}

func TestHandleRejectsEmptyMessage(t *testing.T) {
	svc, _ := newTestService(t, stubRetriever{}, nil)

	_, err := svc.Handle(context.Background(), Request{Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestHandleReplacesInvalidSessionID(t *testing.T) {
	svc, _ := newTestService(t, stubRetriever{}, nil)

	resp := send(t, svc, "../../etc/passwd", "hello")
	assert.NotEqual(t, "../../etc/passwd", resp.SessionID)
	assert.NotEmpty(t, resp.SessionID)
}

func TestHandleSerializesTurnsPerSession(t *testing.T) {
	svc, repo := newTestService(t, stubRetriever{}, nil)
	id := send(t, svc, "", "hello").SessionID

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Handle(context.Background(), Request{Message: "help", SessionID: id})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := repo.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StageWaitingForChoice, sess.State.Stage)
	assert.Equal(t, 3, sess.State.UnclearCount)

	msgs, err := repo.ListMessages(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, msgs, turns+1)
	assert.Equal(t, 0, svc.locks.size())
}
