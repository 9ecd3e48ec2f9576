package rules

// ChoiceStartMarker and ChoiceEndMarker bracket the machine-readable choice
// buttons embedded in a reply.
const (
	ChoiceStartMarker = "CHOICE_BUTTONS_START"
	ChoiceEndMarker   = "CHOICE_BUTTONS_END"
)

// FollowupMarker is the control marker a generated reply uses to request a
// human follow-up.
const FollowupMarker = "NEEDS_HUMAN_FOLLOWUP"

// Default returns the built-in rules file.
func Default() File {
	return File{
		Human: HumanFile{
			Phrases: []string{
				"talk to human", "talk to a human", "speak to human", "speak to a human",
				"talk to a person", "speak to a person", "real person", "live agent", "human agent",
				"customer service", "customer support", "manager", "escalate",
				"this bot is useless", "bot is useless", "you are useless", "you're useless", "useless bot",
			},
			HelpWords:    []string{"help", "assist", "support", "service"},
			HumanWords:   []string{"human", "person", "agent", "representative", "someone", "manager", "supervisor"},
			UrgencyWords: []string{"now", "immediately", "urgent", "asap", "emergency", "critical"},
			NeedTo:       []string{"i need to"},
			TalkPhrases:  []string{"talk to", "speak to", "talk with", "speak with", "chat with", "connect me"},
		},
		Unclear: UnclearFile{
			Greetings: []string{
				"hello", "hi", "hey", "greetings", "howdy", "good morning", "good afternoon", "good evening",
			},
			ProblemKeywords: []string{
				"problem", "issue", "error", "bug", "not working", "broken", "complaint", "dissatisfied",
				"unhappy", "terrible", "awful", "worst", "damaged", "refund",
			},
			VagueWords:    []string{"what", "how", "why", "when", "where", "help", "info", "question"},
			VaguePhrases:  []string{"tell me", "i need", "can you", "do you"},
			BareTokens:    []string{"what?", "how?", "help", "info", "question", "anything", "something"},
			MinLength:     10,
			MaxShortWords: 2,
			MaxVagueWords: 5,
		},
		Choice: ChoiceFile{
			TicketExact: []string{"1", "create_ticket"},
			TicketPhrases: []string{
				"create_ticket", "ticket", "support ticket", "option 1", "human help", "customer service", "contact support",
			},
			EndExact: []string{"2", "end_chat"},
			EndPhrases: []string{
				"end_chat", "end conversation", "end chat", "close chat", "goodbye", "bye", "cancel", "option 2",
			},
			Options: []ChoiceOption{
				{
					Token:       "create_ticket",
					Label:       "Create a support ticket",
					Description: "A member of our support team will review your question and follow up.",
				},
				{
					Token:       "end_chat",
					Label:       "End the conversation",
					Description: "Close this chat. You can start a new one at any time.",
				},
			},
		},
		Templates: Templates{
			PriorityTicket: "I understand you'd like to speak with a member of our team. " +
				"I'm creating a priority ticket so a human agent can follow up with you as soon as possible.",
			TicketConfirmation: "Thanks for letting me know. I'll pass your conversation to our support team so they can help you directly.",
			ChatClosed: "Thank you for chatting with us. This conversation has ended. " +
				"Feel free to start a new conversation anytime if you have more questions.",
			Guidance: []string{
				"I'd like to help, but I need a bit more detail. Could you tell me more specifically what you're looking for? " +
					"For example, I can answer questions about: {topics}.",
				"Here are some example questions you can ask:\n{examples}\n" +
					"Try asking one of these, or describe your question in a full sentence.",
			},
			ChoiceIntro:   "I'm still not sure how to help with that. Please choose how you'd like to continue:",
			TicketCreated: "I have created a support ticket #{ticket_id} for you. Our team will review your request and get back to you soon.",
		},
		LeadIns: []LeadInFile{
			{Name: "advice", Keywords: []string{"should i", "recommend", "advice", "suggest"}, Text: "Based on the information I have, here's my recommendation: "},
			{Name: "question", Keywords: []string{"how", "what", "when", "where"}, Text: "Here's what I can tell you: "},
			{Name: "help", Keywords: []string{"help", "assist"}, Text: "I'd be happy to help. "},
			{Name: "explain", Keywords: []string{"explain", "understand", "clarify"}, Text: "Let me explain: "},
		},
		Fallback: FallbackFile{
			Greetings: []string{
				"Hello! I'm here to help answer your questions. What can I assist you with today?",
				"Welcome! I'm your FAQ assistant. How can I help you?",
				"Hi there! I'm ready to help with your questions. What would you like to know?",
			},
			Categories: []FallbackCategory{
				{
					Name:     "how_to",
					Patterns: []string{`how to`, `how do i`, `how can i`, `steps to`},
					Responses: []string{
						"I understand you're looking for step-by-step guidance. I don't have specific instructions for that, but our documentation or support team can walk you through it.",
						"That sounds like a process question. I don't have those specific steps available, but our support team should be able to help.",
					},
				},
				{
					Name:     "what_is",
					Patterns: []string{`what is`, `what are`, `define`, `explain`},
					Responses: []string{
						"I don't have a definition for that in my current knowledge base. Our support team may have more detailed information.",
						"That's not something I have information about. For detailed explanations, I'd recommend reaching out to customer service.",
					},
				},
				{
					Name:     "why",
					Patterns: []string{`why does`, `why is`, `why would`, `reason`},
					Responses: []string{
						"That's a good question about the reasoning behind that. I don't have that background information, but our support team could provide more context.",
					},
				},
				{
					Name:     "pricing",
					Patterns: []string{`cost`, `price`, `fee`, `charge`, `expensive`, `cheap`, `how much`},
					Responses: []string{
						"For pricing information, I'd recommend checking our website or contacting our sales team for the most current rates.",
					},
				},
				{
					Name:     "problem",
					Patterns: []string{`problem`, `issue`, `error`, `bug`, `not working`, `broken`},
					Responses: []string{
						"I understand you're experiencing an issue. Our support team can provide specific troubleshooting assistance. " + FollowupMarker,
						"That sounds like a technical issue that would be best handled by our support specialists. " + FollowupMarker,
					},
				},
				{
					Name:     "complaint",
					Patterns: []string{`complaint`, `dissatisfied`, `unhappy`, `terrible`, `awful`, `worst`},
					Responses: []string{
						"I understand your frustration, and I want to make sure this gets proper attention. " + FollowupMarker,
						"I'm sorry to hear about your experience. This deserves attention from our customer service team. " + FollowupMarker,
					},
				},
			},
			Generic: []string{
				"I don't have specific information about that in my knowledge base. Could you try rephrasing your question?",
				"That's outside my current knowledge. Is there something else I can help you with?",
				"I don't have information about that topic. Please try asking a different question.",
			},
		},
		TicketLogic: TicketLogicFile{
			ControlMarkers:     []string{FollowupMarker},
			ResponseKeywords:   []string{FollowupMarker, "escalating this to our support team"},
			UrgentUserKeywords: []string{"urgent", "emergency", "asap", "lawsuit", "legal action", "fraud"},
		},
		Topics: []Topic{
			{Name: "buying a car", Examples: []string{"Should I buy a new car or a used car?", "What should I check before buying a used car?"}},
			{Name: "car insurance", Examples: []string{"What insurance do I need for my car?"}},
			{Name: "maintenance", Examples: []string{"How often should I change my oil?"}},
		},
		KnowledgeBase: KnowledgeBaseFile{
			Primary: "automotive_en",
			Available: map[string]string{
				"automotive_en": "automotive_en.txt",
			},
			SimilarityThreshold: 0.3,
			StopWords:           true,
		},
		Prompts: Prompts{
			System: "You are a concise customer support assistant for a FAQ service. " +
				"Answer in at most three sentences. If the user needs a human to resolve the request, end your reply with " + FollowupMarker + ".",
			HumanAdvisory: "Does the following message explicitly ask to talk to a human support agent? " +
				"Answer with exactly one word, yes or no.\n\nMessage: {message}",
		},
	}
}
