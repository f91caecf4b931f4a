package models

import "strings"

// IntentKind tags a ClassifiedIntent
type IntentKind string

const (
	IntentEmergency      IntentKind = "emergency"
	IntentBookEvent      IntentKind = "book_event"
	IntentListEvents     IntentKind = "list_events"
	IntentGetEvent       IntentKind = "get_event"
	IntentCancelEvent    IntentKind = "cancel_event"
	IntentUpdateLocation IntentKind = "update_location"
	IntentGeneral        IntentKind = "general"
)

// ClassifiedIntent is produced once per request by the classifier and never mutated
type ClassifiedIntent struct {
	Kind       IntentKind `json:"intent"`
	EventName  string     `json:"event_name,omitempty"`
	EventID    string     `json:"event_id,omitempty"`
	DateFilter string     `json:"date_filter,omitempty"`
	Confidence float64    `json:"confidence"`
	Source     string     `json:"source"`

	// IDBackfilled marks an EventID derived from EventName rather than named
	// by the provider. Matching ignores such an id and relies on the name.
	IDBackfilled bool `json:"-"`

	// Normalized reading of the utterance, when the provider supplied one
	CleanText string `json:"clean_english,omitempty"`
	Sentiment string `json:"sentiment,omitempty"`
	Tone      string `json:"tone,omitempty"`
}

// ToneUrgent is the tone label that reinforces an emergency
const ToneUrgent = "urgent"

// Urgent reports whether the provider heard the utterance as urgent
func (c *ClassifiedIntent) Urgent() bool {
	return c.Tone == ToneUrgent
}

// Reading returns the normalized text, sentiment and tone for response
// details, or nil when the provider supplied none of them
func (c *ClassifiedIntent) Reading() map[string]string {
	if c.CleanText == "" && c.Sentiment == "" && c.Tone == "" {
		return nil
	}
	return map[string]string{
		"clean_english": c.CleanText,
		"sentiment":     c.Sentiment,
		"tone":          c.Tone,
	}
}

// HasReference reports whether the utterance named an event at all
func (c *ClassifiedIntent) HasReference() bool {
	return strings.TrimSpace(c.EventName) != "" || strings.TrimSpace(c.EventID) != ""
}

// EventScoped reports whether the intent acts on a single event
func (k IntentKind) EventScoped() bool {
	switch k {
	case IntentBookEvent, IntentCancelEvent, IntentGetEvent:
		return true
	}
	return false
}

// ParseIntentKind maps provider labels, including aliases, onto an IntentKind
func ParseIntentKind(label string) (IntentKind, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "emergency", "sos":
		return IntentEmergency, true
	case "book_event", "register_event":
		return IntentBookEvent, true
	case "list_events", "find_events":
		return IntentListEvents, true
	case "get_event", "event_details":
		return IntentGetEvent, true
	case "cancel_event", "unregister_event":
		return IntentCancelEvent, true
	case "update_location":
		return IntentUpdateLocation, true
	case "general":
		return IntentGeneral, true
	}
	return "", false
}
