package kb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleKB = `Q: How often should I change my oil?
A: Every 5,000 miles for conventional oil.

Q: What insurance do I need for my car?
A: Liability at a minimum.
Collision if you have a loan.

Q: How do I rotate my tires?
A: Move the front tires to the back.
`

const markdownKB = `# Cooking FAQ

**Q: How long should I boil an egg?**
A: Nine minutes for a hard-boiled egg.

**Q: Can I freeze bread?**
A: Yes, for up to three months.
`

func TestParsePlain(t *testing.T) {
	pairs := Parse(sampleKB)
	require.Len(t, pairs, 3)
	assert.Equal(t, "How often should I change my oil?", pairs[0].Question)
	assert.Equal(t, "Every 5,000 miles for conventional oil.", pairs[0].Answer)
	assert.Equal(t, "Liability at a minimum.\nCollision if you have a loan.", pairs[1].Answer)
}

func TestParseMarkdown(t *testing.T) {
	pairs := Parse(markdownKB)
	require.Len(t, pairs, 2)
	assert.Equal(t, "How long should I boil an egg?", pairs[0].Question)
	assert.Equal(t, "Yes, for up to three months.", pairs[1].Answer)
}

func TestParseDropsQuestionWithoutAnswer(t *testing.T) {
	pairs := Parse("Q: orphan\n\nQ: real?\nA: yes\n")
	require.Len(t, pairs, 1)
	assert.Equal(t, "real?", pairs[0].Question)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auto.txt"), []byte(sampleKB), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cooking.md"), []byte(markdownKB), 0o644))

	s, err := NewService(Config{
		Dir:       dir,
		Available: map[string]string{"auto": "auto.txt", "cooking": "cooking.md", "missing": "missing.txt"},
		Primary:   "auto",
		Threshold: 0.3,
		StopWords: true,
	})
	require.NoError(t, err)
	return s
}

func TestSearch(t *testing.T) {
	s := newTestService(t)

	res, err := s.Search("how frequently do I need an oil change")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "Every 5,000 miles for conventional oil.", res.Answer)
	assert.GreaterOrEqual(t, res.Score, 0.3)

	res, err = s.Search("help")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Empty(t, res.Answer)

	res, err = s.Search("what")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestSearchBelowThreshold(t *testing.T) {
	s := newTestService(t)
	s.cfg.Threshold = 0.9

	res, err := s.Search("how frequently do I need an oil change")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Empty(t, res.Answer)
	assert.Equal(t, "How often should I change my oil?", res.Question)
	assert.Less(t, res.Score, 0.9)
}

func TestIndexIdenticalQuestionScoresOne(t *testing.T) {
	idx := NewIndex(Parse(sampleKB), true)
	i, score := idx.Best("How do I rotate my tires?")
	assert.Equal(t, 2, i)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestIndexTokenizesAccentedWords(t *testing.T) {
	idx := NewIndex([]Pair{
		{Question: "¿Cuándo cambio el líquido de frenos?", Answer: "Cada dos años."},
		{Question: "Où est la roue de secours?", Answer: "Sous le plancher du coffre."},
	}, false)

	assert.Equal(t, []string{"cuándo", "cambio", "el", "líquido", "de", "frenos"},
		idx.tokenize("¿Cuándo cambio el líquido de frenos?"))

	i, score := idx.Best("líquido")
	assert.Equal(t, 0, i)
	assert.Greater(t, score, 0.0)

	i, _ = idx.Best("où secours")
	assert.Equal(t, 1, i)
}

func TestSwitch(t *testing.T) {
	s := newTestService(t)

	require.NoError(t, s.Switch("cooking"))
	assert.Equal(t, "cooking", s.Name())
	assert.Len(t, s.Pairs(), 2)

	res, err := s.Search("boil an egg")
	require.NoError(t, err)
	assert.True(t, res.Matched)

	err = s.Switch("nope")
	assert.ErrorIs(t, err, ErrUnknownKnowledgeBase)
	assert.Equal(t, "cooking", s.Name())

	// a registered but missing file is an empty knowledge base
	require.NoError(t, s.Switch("missing"))
	assert.Empty(t, s.Pairs())
	res, err = s.Search("boil an egg")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestAvailableSorted(t *testing.T) {
	s := newTestService(t)
	assert.Equal(t, []string{"auto", "cooking", "missing"}, s.Available())
}

func TestAddPair(t *testing.T) {
	s := newTestService(t)

	s.AddPair("Where is the spare tire?", "Under the trunk floor.")
	assert.Len(t, s.Pairs(), 4)

	res, err := s.Search("where is my spare tire")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "Under the trunk floor.", res.Answer)
}

func TestReloadPicksUpFileChanges(t *testing.T) {
	s := newTestService(t)
	path := filepath.Join(s.cfg.Dir, "auto.txt")
	require.NoError(t, os.WriteFile(path, []byte("Q: One?\nA: Only one.\n"), 0o644))

	require.NoError(t, s.Reload())
	assert.Len(t, s.Pairs(), 1)
}

func TestConfigureFallsBackToPrimary(t *testing.T) {
	s := newTestService(t)
	require.NoError(t, s.Switch("cooking"))

	cfg := s.cfg
	cfg.Available = map[string]string{"auto": "auto.txt"}
	require.NoError(t, s.Configure(cfg))
	assert.Equal(t, "auto", s.Name())
}

func TestFilter(t *testing.T) {
	s := newTestService(t)

	got := s.Filter("oil")
	require.NotEmpty(t, got)
	assert.Equal(t, "How often should I change my oil?", got[0].Question)

	assert.Len(t, s.Filter(""), 3)
	assert.Empty(t, s.Filter("zzzzzz"))
}

func TestDetectTopic(t *testing.T) {
	s := newTestService(t)
	assert.Equal(t, "automotive", s.DetectTopic())

	require.NoError(t, s.Switch("missing"))
	assert.Equal(t, "general", s.DetectTopic())
}
