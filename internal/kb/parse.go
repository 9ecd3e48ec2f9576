package kb

import (
	"bufio"
	"strings"
)

// Pair is one question and its answer.
type Pair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Parse reads Q:/A: blocks. Plain "Q: ..." lines and markdown
// "**Q: ...**" lines are both accepted. An answer runs until the next blank
// line or question; a question without an answer is dropped.
func Parse(content string) []Pair {
	var (
		pairs    []Pair
		question string
		answer   []string
		inAnswer bool
	)

	flush := func() {
		if question != "" && inAnswer {
			a := strings.TrimSpace(strings.Join(answer, "\n"))
			if a != "" {
				pairs = append(pairs, Pair{Question: question, Answer: a})
			}
		}
		question, answer, inAnswer = "", nil, false
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if q, ok := questionLine(line); ok {
			flush()
			question = q
			continue
		}

		switch {
		case line == "":
			if inAnswer {
				flush()
			}
		case strings.HasPrefix(line, "A:") && question != "" && !inAnswer:
			inAnswer = true
			answer = append(answer, strings.TrimSpace(strings.TrimPrefix(line, "A:")))
		case inAnswer:
			answer = append(answer, line)
		}
	}
	flush()

	return pairs
}

func questionLine(line string) (string, bool) {
	switch {
	case strings.HasPrefix(line, "**Q:"):
		q := strings.TrimPrefix(line, "**Q:")
		q = strings.TrimSuffix(strings.TrimSpace(q), "**")
		return strings.TrimSpace(q), true
	case strings.HasPrefix(line, "Q:"):
		return strings.TrimSpace(strings.TrimPrefix(line, "Q:")), true
	}
	return "", false
}
