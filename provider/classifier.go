package provider

import (
	"context"
	"strings"
)

// KeywordClassifier is the default intent classifier: a deterministic
// keyword matcher that is good enough for a small retail catalog. It
// never fails and never extracts order lines; line extraction is left
// to the agent's completer.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var (
	orderPhrases = []string{
		"place my order", "place the order", "order this", "order now",
		"i want to order", "can you place", "can you order", "add to my order",
		"i'd like to order", "i would like to order",
	}

	hoursPhrases = []string{
		"hour", "what time do you open", "what time do you close",
		"closing time", "closing-time", "when do you open", "when do you close",
		"are you open",
	}

	hotColdPhrases = []string{
		"hot sandwich", "cold sandwich", "hot or cold", "hot vs cold",
	}

	dealPhrases = []string{
		"deal", "offer", "promo", "discount", "late night", "late-night",
	}

	paymentPhrases = []string{
		"credit card", "debit card", "pay with", "payment method",
		"take cash", "accept cash", "take card", "accept card",
		"visa", "mastercard", "american express",
	}

	greetingWords   = []string{"hi", "hello", "hey", "howdy"}
	greetingPhrases = []string{"good morning", "good afternoon", "good evening"}

	goodbyeWords   = []string{"bye", "goodbye", "later"}
	goodbyePhrases = []string{"see you", "see ya"}
)

func (c *KeywordClassifier) Classify(ctx context.Context, text string, history []Message) (*Classification, error) {
	tl := strings.ToLower(strings.TrimSpace(text))
	words := tokenize(tl)

	switch {
	case containsAny(tl, orderPhrases):
		return &Classification{Intent: IntentOrderRequest}, nil

	case containsAny(tl, hoursPhrases):
		return &Classification{Intent: IntentHours}, nil

	case containsAny(tl, hotColdPhrases):
		return &Classification{Intent: IntentHotCold}, nil

	case containsAny(tl, dealPhrases):
		return &Classification{Intent: IntentDeals}, nil

	case containsAny(tl, paymentPhrases):
		return &Classification{Intent: IntentPayments}, nil

	case hasWord(words, greetingWords) || containsAny(tl, greetingPhrases):
		return &Classification{Intent: IntentGreeting}, nil

	case strings.Contains(tl, "thank") || strings.Contains(tl, "thx"):
		return &Classification{Intent: IntentThanks}, nil

	case hasWord(words, goodbyeWords) || containsAny(tl, goodbyePhrases):
		return &Classification{Intent: IntentGoodbye}, nil

	default:
		return &Classification{Intent: IntentQuestion}, nil
	}
}

func tokenize(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	}) {
		words[w] = true
	}
	return words
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func hasWord(words map[string]bool, candidates []string) bool {
	for _, c := range candidates {
		if words[c] {
			return true
		}
	}
	return false
}
