package compose

import (
	"strings"

	"github.com/yuh2k/FAQ-system/internal/rules"
)

// ParseChoices splits a reply into its visible text and the options listed
// between the choice markers. Text without a complete marker block is
// returned as is with no options.
func ParseChoices(text string) (string, []rules.ChoiceOption) {
	start := strings.Index(text, rules.ChoiceStartMarker)
	if start < 0 {
		return text, nil
	}
	rest := text[start+len(rules.ChoiceStartMarker):]
	end := strings.Index(rest, rules.ChoiceEndMarker)
	if end < 0 {
		return text, nil
	}

	var options []rules.ChoiceOption
	for _, line := range strings.Split(rest[:end], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		opt := rules.ChoiceOption{Token: strings.TrimSpace(parts[0])}
		if len(parts) > 1 {
			opt.Label = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			opt.Description = strings.TrimSpace(parts[2])
		}
		options = append(options, opt)
	}

	visible := strings.TrimSpace(text[:start] + rest[end+len(rules.ChoiceEndMarker):])
	return visible, options
}
