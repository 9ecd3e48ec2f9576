package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRules is returned when a rules file fails validation.
var ErrInvalidRules = errors.New("invalid rules")

// Rules is a compiled, read-only rules snapshot. Its tables must not be
// modified after Compile returns.
type Rules struct {
	Human         HumanRules
	Unclear       UnclearRules
	Choice        ChoiceRules
	Templates     Templates
	LeadIns       []LeadIn
	Fallback      Fallback
	Ticket        TicketRules
	Topics        []Topic
	KnowledgeBase KnowledgeBaseFile
	Prompts       Prompts

	Source   string
	LoadedAt time.Time
}

// HumanRules is the compiled human-help vocabulary.
type HumanRules struct {
	Phrases      []string
	HelpWords    WordSet
	HumanWords   WordSet
	UrgencyWords WordSet
	NeedTo       []Phrase
	TalkPhrases  []Phrase
}

// UnclearRules is the compiled unclear-intent vocabulary.
type UnclearRules struct {
	Greetings       []Phrase
	ProblemKeywords []string
	VagueWords      WordSet
	VaguePhrases    []Phrase
	BareTokens      map[string]struct{}
	MinLength       int
	MaxShortWords   int
	MaxVagueWords   int
}

// ChoiceRules is the compiled choice vocabulary.
type ChoiceRules struct {
	TicketExact   map[string]struct{}
	TicketPhrases []Phrase
	EndExact      map[string]struct{}
	EndPhrases    []Phrase
	Options       []ChoiceOption
}

// LeadIn is a compiled lead-in bucket.
type LeadIn struct {
	Name     string
	Keywords []Phrase
	Text     string
}

// Fallback is the compiled static response bank.
type Fallback struct {
	Greetings  []string
	Categories []Category
	Generic    []string
}

// Category is a compiled fallback category.
type Category struct {
	Name      string
	Patterns  []*regexp.Regexp
	Responses []string
}

// TicketRules is the compiled final ticket check.
type TicketRules struct {
	ControlMarkers     []string
	ResponseKeywords   []string
	UrgentUserKeywords []string
}

// Compile validates f and builds a snapshot from it.
func Compile(f File) (*Rules, error) {
	if err := validate(f); err != nil {
		return nil, err
	}

	r := &Rules{
		Human: HumanRules{
			Phrases:      lowerAll(f.Human.Phrases),
			HelpWords:    newWordSet(f.Human.HelpWords),
			HumanWords:   newWordSet(f.Human.HumanWords),
			UrgencyWords: newWordSet(f.Human.UrgencyWords),
			NeedTo:       newPhrases(f.Human.NeedTo),
			TalkPhrases:  newPhrases(f.Human.TalkPhrases),
		},
		Unclear: UnclearRules{
			Greetings:       newPhrases(f.Unclear.Greetings),
			ProblemKeywords: lowerAll(f.Unclear.ProblemKeywords),
			VagueWords:      newWordSet(f.Unclear.VagueWords),
			VaguePhrases:    newPhrases(f.Unclear.VaguePhrases),
			BareTokens:      newExactSet(f.Unclear.BareTokens),
			MinLength:       f.Unclear.MinLength,
			MaxShortWords:   f.Unclear.MaxShortWords,
			MaxVagueWords:   f.Unclear.MaxVagueWords,
		},
		Choice: ChoiceRules{
			TicketExact:   newExactSet(f.Choice.TicketExact),
			TicketPhrases: newPhrases(f.Choice.TicketPhrases),
			EndExact:      newExactSet(f.Choice.EndExact),
			EndPhrases:    newPhrases(f.Choice.EndPhrases),
			Options:       append([]ChoiceOption(nil), f.Choice.Options...),
		},
		Templates: f.Templates,
		Fallback: Fallback{
			Greetings: append([]string(nil), f.Fallback.Greetings...),
			Generic:   append([]string(nil), f.Fallback.Generic...),
		},
		Ticket: TicketRules{
			ControlMarkers:     append([]string(nil), f.TicketLogic.ControlMarkers...),
			ResponseKeywords:   append([]string(nil), f.TicketLogic.ResponseKeywords...),
			UrgentUserKeywords: lowerAll(f.TicketLogic.UrgentUserKeywords),
		},
		Topics:        append([]Topic(nil), f.Topics...),
		KnowledgeBase: f.KnowledgeBase,
		Prompts:       f.Prompts,
		Source:        "defaults",
		LoadedAt:      time.Now(),
	}
	r.Templates.Guidance = append([]string(nil), f.Templates.Guidance...)

	available := make(map[string]string, len(f.KnowledgeBase.Available))
	for name, file := range f.KnowledgeBase.Available {
		available[name] = file
	}
	r.KnowledgeBase.Available = available

	for _, l := range f.LeadIns {
		r.LeadIns = append(r.LeadIns, LeadIn{Name: l.Name, Keywords: newPhrases(l.Keywords), Text: l.Text})
	}

	for _, c := range f.Fallback.Categories {
		cat := Category{Name: c.Name, Responses: append([]string(nil), c.Responses...)}
		for _, p := range c.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("%w: fallback category %q pattern %q: %v", ErrInvalidRules, c.Name, p, err)
			}
			cat.Patterns = append(cat.Patterns, re)
		}
		r.Fallback.Categories = append(r.Fallback.Categories, cat)
	}

	return r, nil
}

func validate(f File) error {
	var problems []string
	if len(f.Choice.Options) != 2 {
		problems = append(problems, "choice.options must list exactly two options")
	}
	for _, o := range f.Choice.Options {
		if o.Token == "" || strings.ContainsAny(o.Token+o.Label+o.Description, "|\n") {
			problems = append(problems, fmt.Sprintf("choice option %q must have a token and no '|' or newlines", o.Token))
		}
	}
	if f.Templates.PriorityTicket == "" || f.Templates.TicketConfirmation == "" || f.Templates.ChatClosed == "" {
		problems = append(problems, "templates.priority_ticket, ticket_confirmation and chat_closed are required")
	}
	if f.Templates.ChoiceIntro == "" {
		problems = append(problems, "templates.choice_intro is required")
	}
	if !strings.Contains(f.Templates.TicketCreated, "{ticket_id}") {
		problems = append(problems, "templates.ticket_created must contain {ticket_id}")
	}
	if len(f.Fallback.Generic) == 0 || len(f.Fallback.Greetings) == 0 {
		problems = append(problems, "fallback.generic and fallback.greetings must not be empty")
	}
	for _, c := range f.Fallback.Categories {
		if len(c.Responses) == 0 {
			problems = append(problems, fmt.Sprintf("fallback category %q has no responses", c.Name))
		}
	}
	if f.Unclear.MinLength < 0 || f.Unclear.MaxShortWords < 0 || f.Unclear.MaxVagueWords < 0 {
		problems = append(problems, "unclear thresholds must be >= 0")
	}
	if f.KnowledgeBase.SimilarityThreshold < 0 || f.KnowledgeBase.SimilarityThreshold > 1 {
		problems = append(problems, "knowledge_base.similarity_threshold must be within [0, 1]")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRules, strings.Join(problems, "; "))
	}
	return nil
}

// Load decodes the YAML file at path over the defaults and compiles it.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Rules, error) {
	f := Default()
	if path == "" {
		return Compile(f)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Compile(f)
	}
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	// yaml.v3 merges into existing maps, so the registry is decoded from
	// scratch and only falls back to the built-in one when the file has none.
	defaultKBs := f.KnowledgeBase.Available
	f.KnowledgeBase.Available = nil
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules file %s: %w", path, err)
	}
	if len(f.KnowledgeBase.Available) == 0 {
		f.KnowledgeBase.Available = defaultKBs
	}

	r, err := Compile(f)
	if err != nil {
		return nil, fmt.Errorf("compile rules file %s: %w", path, err)
	}
	r.Source = path
	return r, nil
}

// TicketCreatedText renders the ticket confirmation sentence.
func (r *Rules) TicketCreatedText(ticketID int64) string {
	return strings.ReplaceAll(r.Templates.TicketCreated, "{ticket_id}", strconv.FormatInt(ticketID, 10))
}

// TopicNames lists the configured topic names.
func (r *Rules) TopicNames() []string {
	names := make([]string, 0, len(r.Topics))
	for _, t := range r.Topics {
		names = append(names, t.Name)
	}
	return names
}
