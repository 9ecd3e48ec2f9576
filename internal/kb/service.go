// Package kb loads question/answer knowledge bases and answers queries by
// TF-IDF cosine similarity over the questions.
package kb

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
)

// ErrUnknownKnowledgeBase is returned when switching to a name that is not
// in the registry.
var ErrUnknownKnowledgeBase = errors.New("unknown knowledge base")

// Result is the outcome of a search.
type Result struct {
	Answer   string  `json:"answer"`
	Question string  `json:"question"`
	Matched  bool    `json:"matched"`
	Score    float64 `json:"score"`
}

// Config describes where knowledge bases live and how they are matched.
type Config struct {
	Dir string
	// Available maps knowledge base names to file names under Dir.
	Available map[string]string
	Primary   string
	Threshold float64
	StopWords bool
}

// Service holds the active knowledge base. It is safe for concurrent use.
type Service struct {
	mu    sync.RWMutex
	cfg   Config
	name  string
	index *Index
}

// NewService loads cfg.Primary. A missing file yields an empty knowledge
// base rather than an error.
func NewService(cfg Config) (*Service, error) {
	s := &Service{cfg: cfg}
	if err := s.load(cfg.Primary); err != nil {
		return nil, err
	}
	return s, nil
}

// Search finds the closest question to query. An empty knowledge base or a
// score under the threshold is reported as unmatched.
func (s *Service) Search(query string) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index == nil || s.index.Len() == 0 {
		return Result{}, nil
	}

	i, score := s.index.Best(query)
	if i < 0 {
		return Result{}, nil
	}
	p := s.index.pairs[i]
	res := Result{Question: p.Question, Score: score}
	if score >= s.cfg.Threshold {
		res.Matched = true
		res.Answer = p.Answer
	}
	return res, nil
}

// Name returns the active knowledge base name.
func (s *Service) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Threshold returns the similarity threshold in use.
func (s *Service) Threshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Threshold
}

// Available lists the registered knowledge base names, sorted.
func (s *Service) Available() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.cfg.Available))
	for name := range s.cfg.Available {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pairs returns a copy of the active pairs.
func (s *Service) Pairs() []Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index == nil {
		return []Pair{}
	}
	return append([]Pair{}, s.index.pairs...)
}

// Switch activates the named knowledge base.
func (s *Service) Switch(name string) error {
	return s.load(name)
}

// Reload re-reads the active knowledge base from disk.
func (s *Service) Reload() error {
	return s.load(s.Name())
}

// Configure replaces the registry and threshold, then reloads. The active
// knowledge base is kept when it is still registered, otherwise the new
// primary is loaded.
func (s *Service) Configure(cfg Config) error {
	current := s.Name()

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	if _, ok := cfg.Available[current]; !ok {
		current = cfg.Primary
	}
	return s.load(current)
}

// AddPair appends a pair to the active knowledge base and rebuilds the
// index. The file on disk is not changed.
func (s *Service) AddPair(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pairs []Pair
	if s.index != nil {
		pairs = append(pairs, s.index.pairs...)
	}
	pairs = append(pairs, Pair{Question: strings.TrimSpace(question), Answer: strings.TrimSpace(answer)})
	s.index = NewIndex(pairs, s.cfg.StopWords)
}

// Filter returns the pairs whose question fuzzy-matches pattern, best
// match first. An empty pattern returns every pair.
func (s *Service) Filter(pattern string) []Pair {
	pairs := s.Pairs()
	if strings.TrimSpace(pattern) == "" {
		return pairs
	}

	questions := make([]string, len(pairs))
	for i, p := range pairs {
		questions[i] = p.Question
	}

	matches := fuzzy.Find(pattern, questions)
	out := make([]Pair, 0, len(matches))
	for _, m := range matches {
		out = append(out, pairs[m.Index])
	}
	return out
}

func (s *Service) load(name string) error {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	file, ok := cfg.Available[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKnowledgeBase, name)
	}

	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Dir, file)
	}

	var pairs []Pair
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("Knowledge base file not found", "name", name, "path", path)
	case err != nil:
		return fmt.Errorf("read knowledge base %s: %w", name, err)
	default:
		pairs = Parse(string(data))
	}

	index := NewIndex(pairs, cfg.StopWords)

	s.mu.Lock()
	s.name = name
	s.index = index
	s.mu.Unlock()

	slog.Info("Knowledge base loaded", "name", name, "pairs", index.Len())
	return nil
}
