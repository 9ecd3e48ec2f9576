package rules

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize trims and lowercases s.
func Normalize(s string) string {
	// A Caser is stateful, so one is built per call.
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// Words splits normalized text into words. Underscores and apostrophes are
// part of a word so button tokens and contractions stay whole.
func Words(normalized string) []string {
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '\''
	})
}

// Text is a message prepared for keyword matching.
type Text struct {
	Raw   string
	Lower string
	Words []string
}

// NewText normalizes s once for repeated matching.
func NewText(s string) Text {
	lower := Normalize(s)
	return Text{Raw: s, Lower: lower, Words: Words(lower)}
}

// WordCount counts whitespace-separated words of the raw message.
func (t Text) WordCount() int {
	return len(strings.Fields(t.Raw))
}

// Length is the number of characters of the trimmed message.
func (t Text) Length() int {
	return len([]rune(strings.TrimSpace(t.Raw)))
}

// HasSubstring reports whether any of subs occurs in the lowercased text.
// subs must already be lowercased.
func (t Text) HasSubstring(subs []string) bool {
	for _, s := range subs {
		if s != "" && strings.Contains(t.Lower, s) {
			return true
		}
	}
	return false
}

// HasPhrase reports whether p occurs as a run of whole words.
func (t Text) HasPhrase(p Phrase) bool {
	if len(p) == 0 || len(p) > len(t.Words) {
		return false
	}
outer:
	for i := 0; i+len(p) <= len(t.Words); i++ {
		for j, w := range p {
			if t.Words[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}

// HasAnyPhrase reports whether any phrase of ps occurs as whole words.
func (t Text) HasAnyPhrase(ps []Phrase) bool {
	for _, p := range ps {
		if t.HasPhrase(p) {
			return true
		}
	}
	return false
}

// HasAnyWord reports whether any word of the text is in set.
func (t Text) HasAnyWord(set WordSet) bool {
	for _, w := range t.Words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

// Phrase is a normalized sequence of words.
type Phrase []string

// String joins the phrase words with single spaces.
func (p Phrase) String() string {
	return strings.Join(p, " ")
}

// WordSet is a set of normalized words.
type WordSet map[string]struct{}

// Contains reports whether w is in the set.
func (s WordSet) Contains(w string) bool {
	_, ok := s[w]
	return ok
}

func newPhrases(in []string) []Phrase {
	out := make([]Phrase, 0, len(in))
	for _, s := range in {
		if p := Phrase(Words(Normalize(s))); len(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}

func newWordSet(in []string) WordSet {
	set := make(WordSet, len(in))
	for _, s := range in {
		for _, w := range Words(Normalize(s)) {
			set[w] = struct{}{}
		}
	}
	return set
}

func newExactSet(in []string) map[string]struct{} {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		if n := Normalize(s); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
