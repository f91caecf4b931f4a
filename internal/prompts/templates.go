package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/community-intent/internal/models"
)

// ErrMalformedResponse marks provider output that failed schema validation
var ErrMalformedResponse = errors.New("malformed classification response")

// maxPromptEvents caps the grounding listing so prompts stay small
const maxPromptEvents = 40

// urgentEmergencyConfidence is the floor for an emergency heard in an urgent tone
const urgentEmergencyConfidence = 0.9

const ClassifierSystemPrompt = `You are the command router for a community centre assistant used by seniors, often through voice. Utterances may be Singlish or transcribed speech with errors.

Classify the user's utterance into exactly ONE intent:
- emergency: the user needs urgent help (help, SOS, fell down, chest pain, call ambulance)
- book_event: the user wants to register for / join / book an event
- cancel_event: the user wants to cancel / unregister / withdraw from an event
- get_event: the user asks for details about one specific event (time, place, what it is)
- list_events: the user wants to know what events are available, optionally for today, upcoming days or a date
- update_location: the user wants to share or update their current location
- general: anything else, including general questions and small talk

ENTITY RULES:
1. event_name is the event the user referred to, copied from their words. Use null if they did not name one.
2. event_id must be copied exactly from the Known Events list, and only when the user clearly means that event. Never guess; use null otherwise.
3. date_filter is "today", "upcoming" or a date in YYYY-MM-DD, only for list_events. Otherwise null.
4. confidence is a number between 0 and 1.

READING RULES:
1. clean_english is the utterance rewritten as plain Standard English, with Singlish and transcription errors resolved.
2. sentiment is one word such as positive, negative, neutral, frustrated or worried.
3. tone is one word such as casual, polite, annoyed or urgent. Use urgent only when the user sounds in distress.

RESPONSE FORMAT:
Respond with ONLY a JSON object in this exact format:
{
  "intent": "one of the intents above",
  "event_name": "string or null",
  "event_id": "string or null",
  "date_filter": "string or null",
  "confidence": 0.0,
  "clean_english": "string",
  "sentiment": "string",
  "tone": "string"
}`

const classifierUserPrompt = `Known Events:
%s
Today's date: %s

User utterance:
%q

Respond with the JSON format above.`

const GeneralSystemPrompt = `You are a warm, patient assistant for a community centre serving seniors in Singapore. Answer in two or three short sentences of plain English suitable for being read aloud. If the question is about events, use only the events listed below. Never invent registrations, times or phone numbers.`

const generalUserPrompt = `Upcoming events:
%s
Question:
%q`

const FallbackMessage = "I can help you find community events, book or cancel a spot, share your location, or call for help in an emergency. What would you like to do?"

// BuildClassifierPrompt embeds the utterance and a compact id/title listing
func BuildClassifierPrompt(utterance string, events []models.EventRecord, now time.Time) string {
	return fmt.Sprintf(classifierUserPrompt, buildEventsSection(events), now.Format("2006-01-02 (Monday)"), utterance)
}

// BuildGeneralPrompt seeds the answer generator with a few upcoming events
func BuildGeneralPrompt(question string, events []models.EventRecord) string {
	return fmt.Sprintf(generalUserPrompt, buildEventsSection(events), question)
}

func buildEventsSection(events []models.EventRecord) string {
	if len(events) == 0 {
		return "(none)\n"
	}

	var builder strings.Builder
	for i, event := range events {
		if i == maxPromptEvents {
			builder.WriteString(fmt.Sprintf("... and %d more\n", len(events)-maxPromptEvents))
			break
		}
		builder.WriteString(fmt.Sprintf("- [%s] %s", event.ID, event.Title))
		if event.Date != "" {
			builder.WriteString(fmt.Sprintf(" (%s %s)", event.Date, event.Time))
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// classification mirrors the JSON schema requested from the provider
type classification struct {
	Intent     string   `json:"intent"`
	EventName  *string  `json:"event_name"`
	EventID    *string  `json:"event_id"`
	DateFilter *string  `json:"date_filter"`
	Confidence *float64 `json:"confidence"`

	CleanEnglish *string `json:"clean_english"`
	Sentiment    *string `json:"sentiment"`
	Tone         *string `json:"tone"`
}

// ParseClassification validates provider output into a ClassifiedIntent.
// Anything that does not fit the schema is rejected with ErrMalformedResponse.
func ParseClassification(content string) (*models.ClassifiedIntent, error) {
	jsonContent := extractJSON(content)
	if jsonContent == "" {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var raw classification
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	kind, ok := models.ParseIntentKind(raw.Intent)
	if !ok {
		return nil, fmt.Errorf("%w: unknown intent %q", ErrMalformedResponse, raw.Intent)
	}

	if raw.Confidence == nil {
		return nil, fmt.Errorf("%w: confidence missing", ErrMalformedResponse)
	}
	confidence := *raw.Confidence
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", ErrMalformedResponse, confidence)
	}

	intent := &models.ClassifiedIntent{
		Kind:       kind,
		EventName:  cleanField(raw.EventName),
		EventID:    cleanField(raw.EventID),
		DateFilter: strings.ToLower(cleanField(raw.DateFilter)),
		Confidence: confidence,
		CleanText:  cleanField(raw.CleanEnglish),
		Sentiment:  strings.ToLower(cleanField(raw.Sentiment)),
		Tone:       strings.ToLower(cleanField(raw.Tone)),
	}
	if intent.Kind == models.IntentEmergency && intent.Urgent() && intent.Confidence < urgentEmergencyConfidence {
		intent.Confidence = urgentEmergencyConfidence
	}
	return intent, nil
}

// cleanField treats textual nulls the model sometimes emits as absent
func cleanField(v *string) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(*v)
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "unknown":
		return ""
	}
	return s
}

// extractJSON returns the first balanced JSON object, skipping any markdown
// fence or prose around it.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}
