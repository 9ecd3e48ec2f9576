package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuh2k/FAQ-system/internal/app"
	"github.com/yuh2k/FAQ-system/internal/chat"
	"github.com/yuh2k/FAQ-system/internal/config"
)

// testApp wires a full App backed by a temporary database and knowledge base.
func testApp(t *testing.T) *app.App {
	t.Helper()
	dir := t.TempDir()
	kbDir := filepath.Join(dir, "kb")
	require.NoError(t, os.MkdirAll(kbDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(kbDir, "automotive_en.txt"), []byte(
		"Q: How often should I change my oil?\nA: Every 5,000 to 7,500 miles for synthetic oil.\n\n"+
			"Q: What does the check engine light mean?\nA: The engine computer detected a fault; have the code read.\n"), 0o644))

	cfg := &config.Config{
		Port:            "0",
		DBPath:          filepath.Join(dir, "faq.db"),
		RulesPath:       filepath.Join(dir, "missing.yaml"),
		KnowledgeBase:   config.KnowledgeBaseConfig{Dir: kbDir},
		LLM:             config.LLMConfig{Timeout: time.Second},
		Advisory:        config.AdvisoryConfig{Timeout: time.Second},
		RandomSeed:      7,
		ConversationLog: config.ConversationLogConfig{QueueSize: 8},
	}
	a, err := app.Build(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, a *app.App, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(a)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestAskCmd_KnowledgeBaseAnswer(t *testing.T) {
	a := testApp(t)

	out, err := executeCmd(t, a, "", "ask", "How", "often", "should", "I", "change", "my", "oil?")
	require.NoError(t, err)
	assert.Contains(t, out, "Every 5,000 to 7,500 miles")
	assert.Contains(t, out, "session: ")
}

func TestAskCmd_HumanRequestPrintsTicket(t *testing.T) {
	a := testApp(t)

	out, err := executeCmd(t, a, "", "ask", "--contact", "ann@example.com", "I want to speak to a human")
	require.NoError(t, err)
	assert.Contains(t, out, "ticket: #1")

	out, err = executeCmd(t, a, "", "tickets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ann@example.com")
	assert.Contains(t, out, "open")

	out, err = executeCmd(t, a, "", "tickets", "status", "1", "closed")
	require.NoError(t, err)
	assert.Contains(t, out, "Ticket #1 is now closed")

	_, err = executeCmd(t, a, "", "tickets", "status", "1", "in_progress")
	assert.Error(t, err)
}

func TestChatCmd_RendersChoicesAndEnds(t *testing.T) {
	a := testApp(t)

	out, err := executeCmd(t, a, "help\nwhat\ninfo\n2\nnever read\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] Create a support ticket")
	assert.Contains(t, out, "[2] End the conversation")
	assert.Contains(t, out, "(conversation ended)")
	assert.NotContains(t, out, "CHOICE_BUTTONS_START")
}

func TestKBCmds(t *testing.T) {
	a := testApp(t)

	out, err := executeCmd(t, a, "", "kb", "list", "--filter", "engine")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 pairs)")
	assert.Contains(t, out, "check engine light")

	out, err = executeCmd(t, a, "", "kb", "search", "check", "engine", "light")
	require.NoError(t, err)
	assert.Contains(t, out, "matched true")

	out, err = executeCmd(t, a, "", "kb", "topic")
	require.NoError(t, err)
	assert.Equal(t, "automotive\n", out)
}

func TestRenderReply(t *testing.T) {
	id := int64(9)
	var buf bytes.Buffer
	renderReply(&buf, &chat.Response{Response: "Done.", TicketCreated: true, TicketID: &id})
	assert.Equal(t, "Done.\nticket: #9\n", buf.String())
}
