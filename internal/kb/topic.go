package kb

import "strings"

var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"automotive", []string{"car", "vehicle", "auto", "insurance", "buy", "sell", "drive", "engine", "repair"}},
	{"technology", []string{"software", "computer", "app", "system", "code", "programming", "tech", "device"}},
	{"finance", []string{"money", "bank", "loan", "credit", "payment", "investment", "financial", "account"}},
	{"health", []string{"health", "medical", "doctor", "medicine", "symptom", "treatment", "patient", "hospital"}},
	{"education", []string{"school", "student", "learn", "course", "study", "education", "teacher", "class"}},
	{"ecommerce", []string{"product", "order", "shipping", "return", "purchase", "customer", "delivery", "store"}},
}

// DetectTopic guesses the domain of the active knowledge base from keyword
// frequency. Ties go to the earlier topic; no hits yields "general".
func (s *Service) DetectTopic() string {
	pairs := s.Pairs()
	if len(pairs) == 0 {
		return "general"
	}

	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(p.Question)
		b.WriteByte(' ')
		b.WriteString(p.Answer)
		b.WriteByte(' ')
	}
	all := strings.ToLower(b.String())

	best, bestScore := "general", 0
	for _, t := range topicKeywords {
		score := 0
		for _, k := range t.keywords {
			score += strings.Count(all, k)
		}
		if score > bestScore {
			best, bestScore = t.topic, score
		}
	}
	return best
}
