// Package rules holds the keyword tables and response templates used to
// classify messages and compose replies.
//
// A rules file is decoded over the built-in defaults and compiled into an
// immutable *Rules snapshot. Reloading never mutates a snapshot; it builds a
// new one and swaps it in a Store.
package rules

// File is the YAML representation of a rules file. Every section is optional;
// sections present in the file replace the corresponding defaults.
type File struct {
	Human         HumanFile         `yaml:"human"`
	Unclear       UnclearFile       `yaml:"unclear"`
	Choice        ChoiceFile        `yaml:"choice"`
	Templates     Templates         `yaml:"templates"`
	LeadIns       []LeadInFile      `yaml:"lead_ins"`
	Fallback      FallbackFile      `yaml:"fallback"`
	TicketLogic   TicketLogicFile   `yaml:"ticket_logic"`
	Topics        []Topic           `yaml:"topics"`
	KnowledgeBase KnowledgeBaseFile `yaml:"knowledge_base"`
	Prompts       Prompts           `yaml:"ai_prompts"`
}

// HumanFile lists the vocabulary for explicit human-help requests.
type HumanFile struct {
	Phrases      []string `yaml:"phrases"`
	HelpWords    []string `yaml:"help_words"`
	HumanWords   []string `yaml:"human_words"`
	UrgencyWords []string `yaml:"urgency_words"`
	NeedTo       []string `yaml:"need_to"`
	TalkPhrases  []string `yaml:"talk_phrases"`
}

// UnclearFile lists the vocabulary and thresholds for unclear-intent detection.
type UnclearFile struct {
	Greetings       []string `yaml:"greetings"`
	ProblemKeywords []string `yaml:"problem_keywords"`
	VagueWords      []string `yaml:"vague_words"`
	VaguePhrases    []string `yaml:"vague_phrases"`
	BareTokens      []string `yaml:"bare_tokens"`
	MinLength       int      `yaml:"min_length"`
	MaxShortWords   int      `yaml:"max_short_words"`
	MaxVagueWords   int      `yaml:"max_vague_words"`
}

// ChoiceFile describes the two-button choice offered after repeated unclear turns.
type ChoiceFile struct {
	TicketExact   []string       `yaml:"ticket_exact"`
	TicketPhrases []string       `yaml:"ticket_phrases"`
	EndExact      []string       `yaml:"end_exact"`
	EndPhrases    []string       `yaml:"end_phrases"`
	Options       []ChoiceOption `yaml:"options"`
}

// ChoiceOption is one button of the choice prompt.
type ChoiceOption struct {
	Token       string `yaml:"token" json:"token"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description"`
}

// Templates are the fixed reply texts. Guidance is indexed by the unclear
// count minus one. Placeholders: {topics}, {examples}, {ticket_id}.
type Templates struct {
	PriorityTicket     string   `yaml:"priority_ticket"`
	TicketConfirmation string   `yaml:"ticket_confirmation"`
	ChatClosed         string   `yaml:"chat_closed"`
	Guidance           []string `yaml:"guidance"`
	ChoiceIntro        string   `yaml:"choice_intro"`
	TicketCreated      string   `yaml:"ticket_created"`
}

// LeadInFile maps message keywords to a lead-in sentence for KB answers.
type LeadInFile struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Text     string   `yaml:"text"`
}

// FallbackFile is the static response bank used when generation is unavailable.
type FallbackFile struct {
	Greetings  []string           `yaml:"greetings"`
	Categories []FallbackCategory `yaml:"categories"`
	Generic    []string           `yaml:"generic"`
}

// FallbackCategory is a group of canned responses selected by regex patterns.
type FallbackCategory struct {
	Name      string   `yaml:"name"`
	Patterns  []string `yaml:"patterns"`
	Responses []string `yaml:"responses"`
}

// TicketLogicFile drives the final ticket check on composed replies.
type TicketLogicFile struct {
	ControlMarkers     []string `yaml:"control_markers"`
	ResponseKeywords   []string `yaml:"response_keywords"`
	UrgentUserKeywords []string `yaml:"urgent_user_keywords"`
}

// Topic is a subject area advertised in guidance messages.
type Topic struct {
	Name     string   `yaml:"name" json:"name"`
	Examples []string `yaml:"examples" json:"examples"`
}

// KnowledgeBaseFile is the registry of knowledge base files.
type KnowledgeBaseFile struct {
	Primary             string            `yaml:"primary"`
	Available           map[string]string `yaml:"available_kbs"`
	SimilarityThreshold float64           `yaml:"similarity_threshold"`
	StopWords           bool              `yaml:"stop_words"`
}

// Prompts are the texts sent to the generative model.
type Prompts struct {
	System         string `yaml:"system"`
	HumanAdvisory  string `yaml:"human_advisory"`
	FallbackPrefix string `yaml:"fallback_prefix"`
}
