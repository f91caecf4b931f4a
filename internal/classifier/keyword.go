package classifier

import (
	"context"
	"strings"
	"unicode"

	"github.com/avvvet/community-intent/internal/models"
)

const KeywordSource = "keyword"

type keywordRule struct {
	kind       models.IntentKind
	confidence float64
	words      []string
}

// Rules are checked in order. Emergency comes first, and cancel comes before
// book so that "cancel my booking" is not read as a booking.
var keywordRules = []keywordRule{
	{models.IntentEmergency, 0.8, []string{"emergency", "help", "sos", "ambulance", "urgent"}},
	{models.IntentCancelEvent, 0.7, []string{"cancel", "unregister", "remove", "leave", "withdraw"}},
	{models.IntentBookEvent, 0.7, []string{"book", "register", "join", "enroll", "enrol", "signup"}},
	{models.IntentGetEvent, 0.7, []string{"details", "detail", "info", "information"}},
	{models.IntentUpdateLocation, 0.7, []string{"location"}},
	{models.IntentListEvents, 0.7, []string{"list", "show", "available", "events", "upcoming"}},
}

const generalConfidence = 0.5

// KeywordClassifier is the deterministic degraded path. It only ever emits
// an intent; event references are left empty so the dispatcher asks.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

func (k *KeywordClassifier) Name() string {
	return KeywordSource
}

func (k *KeywordClassifier) Classify(_ context.Context, text string, _ []models.EventRecord) (*models.ClassifiedIntent, error) {
	words := tokenize(text)

	intent := &models.ClassifiedIntent{
		Kind:       models.IntentGeneral,
		Confidence: generalConfidence,
		Source:     KeywordSource,
	}
	for _, rule := range keywordRules {
		if containsAny(words, rule.words) {
			intent.Kind = rule.kind
			intent.Confidence = rule.confidence
			break
		}
	}

	if intent.Kind == models.IntentListEvents {
		switch {
		case words["today"]:
			intent.DateFilter = "today"
		case words["upcoming"]:
			intent.DateFilter = "upcoming"
		}
	}

	return intent, nil
}

func tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make(map[string]bool, len(fields))
	for _, f := range fields {
		words[f] = true
	}
	return words
}

func containsAny(words map[string]bool, keywords []string) bool {
	for _, kw := range keywords {
		if words[kw] {
			return true
		}
	}
	return false
}
