// Package matcher resolves a free-text or identifier reference to one event
// from a snapshot. It never falls back to an arbitrary event: a missing or
// weak reference yields nil.
package matcher

import (
	"strings"

	"github.com/google/uuid"

	"github.com/avvvet/community-intent/internal/models"
)

// DefaultThreshold is the minimum score accepted as a match
const DefaultThreshold = 0.6

// Result is a resolved event and the score that justified it
type Result struct {
	Event models.EventRecord
	Score float64
}

// Matcher scores references against event titles
type Matcher struct {
	threshold float64
}

// New creates a matcher; thresholds outside (0,1] fall back to DefaultThreshold
func New(threshold float64) *Matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Threshold returns the configured acceptance threshold
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match returns the best event for the reference, or nil when nothing clears
// the threshold. Ties keep the earliest event in the slice.
func (m *Matcher) Match(name, id string, events []models.EventRecord) *Result {
	id = strings.TrimSpace(id)
	if ValidID(id) {
		for _, event := range events {
			if strings.EqualFold(event.ID, id) {
				return &Result{Event: event, Score: 1.0}
			}
		}
	}

	candidate := Normalize(name)
	if candidate == "" {
		return nil
	}

	var best *Result
	for _, event := range events {
		score := Score(candidate, event.Title)
		if best == nil || score > best.Score {
			best = &Result{Event: event, Score: score}
		}
	}

	if best == nil || best.Score < m.threshold {
		return nil
	}
	return best
}

// Match runs a matcher with the default threshold
func Match(name, id string, events []models.EventRecord) *Result {
	return New(DefaultThreshold).Match(name, id, events)
}

// ValidID reports whether id is a canonical UUID. Short numeric strings and
// other free-form values are rejected so they never act as lookup keys.
func ValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// Normalize lowercases, trims and collapses internal whitespace
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Score compares a candidate reference to an event title, both normalized
// here, and returns a value in [0,1].
func Score(candidate, title string) float64 {
	c := Normalize(candidate)
	t := Normalize(title)
	if c == "" || t == "" {
		return 0
	}

	if c == t {
		return 1.0
	}

	candidateWords := strings.Fields(c)
	titleWords := strings.Fields(t)
	titleSet := wordSet(titleWords)

	matched := 0
	for _, w := range candidateWords {
		if titleSet[w] {
			matched++
		}
	}
	if matched == len(candidateWords) {
		return float64(matched) / float64(len(candidateWords))
	}

	if strings.Contains(t, c) || strings.Contains(c, t) {
		shorter, longer := len(c), len(t)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter) / float64(longer)
	}

	overlap := 0
	for w := range wordSet(candidateWords) {
		if titleSet[w] {
			overlap++
		}
	}
	maxWords := len(candidateWords)
	if len(titleWords) > maxWords {
		maxWords = len(titleWords)
	}
	return float64(overlap) / float64(maxWords)
}

// Suggest returns up to limit events whose titles share at least one word with
// the reference, in snapshot order.
func Suggest(name string, events []models.EventRecord, limit int) []models.EventRecord {
	words := wordSet(strings.Fields(Normalize(name)))
	if len(words) == 0 {
		return nil
	}

	var out []models.EventRecord
	for _, event := range events {
		if !sharesWord(words, wordSet(strings.Fields(Normalize(event.Title)))) {
			continue
		}
		out = append(out, event)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// stopwords never count as shared words for suggestions
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "my": true, "for": true,
	"of": true, "to": true, "at": true, "in": true, "on": true,
	"and": true, "event": true,
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func sharesWord(a, b map[string]bool) bool {
	for w := range a {
		if b[w] && !stopwords[w] {
			return true
		}
	}
	return false
}
