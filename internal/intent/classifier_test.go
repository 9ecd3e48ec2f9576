package intent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuh2k/FAQ-system/internal/llm"
	"github.com/yuh2k/FAQ-system/internal/rules"
)

func newTestClassifier(t *testing.T, opts ...Option) *Classifier {
	t.Helper()
	r, err := rules.Compile(rules.Default())
	require.NoError(t, err)
	return New(r, opts...)
}

func TestWantsHuman(t *testing.T) {
	c := newTestClassifier(t)

	cases := []struct {
		msg  string
		want bool
	}{
		{"I want to speak to a human", true},
		{"Can I talk to a human please", true},
		{"get me your MANAGER", true},
		{"this bot is useless", true},
		{"I need help from a person", true},
		{"urgent help needed", true},
		{"I need to reach support", true},
		{"let me chat with someone", true},
		{"How do I change my oil?", false},
		{"help", false},
		{"humanity is great", false},
	}

	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			assert.Equal(t, tc.want, c.WantsHuman(tc.msg))
		})
	}
}

func TestIsUnclear(t *testing.T) {
	c := newTestClassifier(t)

	cases := []struct {
		msg  string
		want bool
	}{
		{"help", true},
		{"what", true},
		{"info", true},
		{"something", true},
		{"tell me about it", true},
		{"can you do that thing", true},
		{"hello", false},
		{"hi", false},
		{"Good morning to you all", false},
		{"broken", false},
		{"I have a problem", false},
		{"Should I buy a new car or a used car?", false},
		{"My engine makes a rattling noise at idle", false},
	}

	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			assert.Equal(t, tc.want, c.IsUnclear(tc.msg))
		})
	}
}

func TestClassify_KBMatchIsNeverUnclear(t *testing.T) {
	c := newTestClassifier(t)

	res := c.Classify(context.Background(), "oil?", true)
	assert.False(t, res.IsUnclear)

	res = c.Classify(context.Background(), "oil?", false)
	assert.True(t, res.IsUnclear)
}

func TestClassify_HumanRequestAlsoFlagsBothSignals(t *testing.T) {
	c := newTestClassifier(t)

	res := c.Classify(context.Background(), "human help", false)
	assert.True(t, res.WantsHuman)
	assert.True(t, res.IsUnclear)
}

type fakeConfirmer struct {
	answer bool
	delay  time.Duration
	calls  int
}

func (f *fakeConfirmer) ConfirmHuman(ctx context.Context, _ string) bool {
	f.calls++
	select {
	case <-time.After(f.delay):
		return f.answer
	case <-ctx.Done():
		return false
	}
}

func TestClassify_AdvisoryConfirmer(t *testing.T) {
	conf := &fakeConfirmer{answer: true}
	c := newTestClassifier(t, WithConfirmer(conf, time.Second))

	res := c.Classify(context.Background(), "Could somebody from your team look at my account?", false)
	assert.True(t, res.WantsHuman)
	assert.Equal(t, 1, conf.calls)

	// keyword hit skips the advisory call
	c.Classify(context.Background(), "talk to a human", false)
	assert.Equal(t, 1, conf.calls)
}

func TestClassify_AdvisoryTimeoutMeansNo(t *testing.T) {
	conf := &fakeConfirmer{answer: true, delay: time.Second}
	c := newTestClassifier(t, WithConfirmer(conf, 20*time.Millisecond))

	start := time.Now()
	res := c.Classify(context.Background(), "Could somebody from your team look at my account?", false)
	assert.False(t, res.WantsHuman)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

type stubClient struct {
	text string
	err  error
}

func (s stubClient) Generate(context.Context, llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.GenerateResponse{Text: s.text}, nil
}

func (s stubClient) Available(context.Context) bool { return s.err == nil }

func TestModelConfirmer(t *testing.T) {
	r, err := rules.Compile(rules.Default())
	require.NoError(t, err)

	cases := []struct {
		name   string
		client llm.Client
		want   bool
	}{
		{"yes", stubClient{text: "Yes."}, true},
		{"no", stubClient{text: "no"}, false},
		{"ambiguous", stubClient{text: "yes, maybe"}, false},
		{"error", stubClient{err: llm.ErrTimeout}, false},
		{"disabled", llm.Disabled{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModelConfirmer(tc.client, r)
			assert.Equal(t, tc.want, m.ConfirmHuman(context.Background(), "anything"))
		})
	}
}

func TestClassifierProperties(t *testing.T) {
	c := newTestClassifier(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	filler := gen.OneConstOf("car", "oil", "please", "my", "the", "insurance", "engine", "x", "today", "thanks")

	properties.Property("a whole-word greeting is never unclear", prop.ForAll(
		func(greeting string, prefix, suffix []string) bool {
			msg := strings.Join(append(append(prefix, greeting), suffix...), " ")
			return !c.IsUnclear(msg)
		},
		gen.OneConstOf("hello", "hi", "hey", "greetings", "howdy", "good morning", "Hello!", "HEY"),
		gen.SliceOfN(3, filler),
		gen.SliceOfN(3, filler),
	))

	properties.Property("short messages without greeting or problem words are unclear", prop.ForAll(
		func(msg string) bool {
			text := rules.NewText(msg)
			if text.HasAnyPhrase(c.rules.Unclear.Greetings) || text.HasSubstring(c.rules.Unclear.ProblemKeywords) {
				return true
			}
			return c.IsUnclear(msg)
		},
		gen.AlphaString().Map(func(s string) string {
			if len(s) > 9 {
				return s[:9]
			}
			return s
		}),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
