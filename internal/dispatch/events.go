package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avvvet/community-intent/internal/eventstore"
	"github.com/avvvet/community-intent/internal/matcher"
	"github.com/avvvet/community-intent/internal/models"
)

const (
	maxListed      = 10
	maxSuggestions = 3
)

var errNoRegistration = errors.New("event store returned no registration")

// resolution is the outcome of resolving an event reference. Exactly one of
// the three states holds: no reference, unmatched (with suggestions) or matched.
type resolution struct {
	noReference bool
	match       *matcher.Result
	suggestions []models.EventRecord
}

func (d *Dispatcher) resolve(intent *models.ClassifiedIntent, events []models.EventRecord) resolution {
	if !intent.HasReference() {
		return resolution{noReference: true}
	}

	id := intent.EventID
	if intent.IDBackfilled {
		id = ""
	}
	if result := d.matcher.Match(intent.EventName, id, events); result != nil {
		d.metrics.MatchScore(result.Score)
		return resolution{match: result}
	}

	return resolution{suggestions: matcher.Suggest(intent.EventName, events, maxSuggestions)}
}

// eventScoped applies the same disambiguation policy to book, cancel and get
func (d *Dispatcher) eventScoped(ctx context.Context, req Request, intent *models.ClassifiedIntent) *models.DispatchResult {
	if req.EventsErr != nil {
		d.logger.Error("event snapshot unavailable", zap.Error(req.EventsErr))
		return failure("looking up events")
	}

	events := sortedEvents(req.Events)
	res := d.resolve(intent, events)

	switch {
	case res.noReference:
		return askWhichEvent(intent.Kind, events)
	case res.match == nil:
		return unmatched(intent, res.suggestions, events)
	}

	event := res.match.Event
	d.logger.Debug("event reference resolved",
		zap.String("event_id", event.ID),
		zap.Float64("score", res.match.Score),
	)

	switch intent.Kind {
	case models.IntentBookEvent:
		return d.book(ctx, req.UserID, event)
	case models.IntentCancelEvent:
		return d.cancel(ctx, req.UserID, event)
	default:
		return d.details(ctx, event)
	}
}

func askWhichEvent(kind models.IntentKind, events []models.EventRecord) *models.DispatchResult {
	if len(events) == 0 {
		return &models.DispatchResult{
			Success:     true,
			UserMessage: "There are no events available right now.",
			Details:     map[string]any{"events": []models.EventRecord{}},
		}
	}

	listed := events[:min(len(events), maxListed)]
	return &models.DispatchResult{
		Success:     true,
		UserMessage: fmt.Sprintf("Which event would you like to %s? %s", verb(kind), numberedList(listed)),
		Details: map[string]any{
			"needs_clarification": true,
			"events":              listed,
		},
	}
}

func unmatched(intent *models.ClassifiedIntent, suggestions, events []models.EventRecord) *models.DispatchResult {
	notFound := "I couldn't find that event."
	if intent.EventName != "" {
		notFound = fmt.Sprintf("I couldn't find an event called %q.", intent.EventName)
	}

	var message string
	switch {
	case len(suggestions) > 0:
		message = fmt.Sprintf("%s Did you mean %s?", notFound, joinTitles(suggestions, "or"))
	case len(events) > 0:
		listed := events[:min(len(events), maxListed)]
		message = fmt.Sprintf("%s The available events are: %s", notFound, numberedList(listed))
	default:
		message = notFound + " There are no events available right now."
	}

	return &models.DispatchResult{
		Success:     true,
		UserMessage: message,
		Details: map[string]any{
			"needs_clarification": true,
			"reference":           intent.EventName,
			"suggestions":         suggestions,
		},
	}
}

func (d *Dispatcher) book(ctx context.Context, userID string, event models.EventRecord) *models.DispatchResult {
	reg, err := d.events.Register(ctx, event.ID, userID)
	if err == nil && reg == nil {
		err = errNoRegistration
	}
	if errors.Is(err, eventstore.ErrNotFound) {
		return noLongerAvailable(event)
	}
	if err != nil {
		d.logger.Error("registration failed", zap.String("event_id", event.ID), zap.String("user_id", userID), zap.Error(err))
		return failure("booking " + event.Title)
	}

	details := map[string]any{
		"event_id":           event.ID,
		"event_title":        event.Title,
		"already_registered": reg.AlreadyRegistered,
	}
	if reg.AlreadyRegistered {
		return &models.DispatchResult{
			Success:     true,
			UserMessage: fmt.Sprintf("You're already registered for %s%s.", event.Title, when(event)),
			Details:     details,
		}
	}

	message := fmt.Sprintf("You're registered for %s%s.", event.Title, when(event))
	if event.Location != "" {
		message += " It will be held at " + event.Location + "."
	}
	return &models.DispatchResult{
		Success:             true,
		UserMessage:         message,
		SideEffectPerformed: true,
		Details:             details,
	}
}

func (d *Dispatcher) cancel(ctx context.Context, userID string, event models.EventRecord) *models.DispatchResult {
	reg, err := d.events.Unregister(ctx, event.ID, userID)
	if err == nil && reg == nil {
		err = errNoRegistration
	}
	if err != nil {
		d.logger.Error("unregistration failed", zap.String("event_id", event.ID), zap.String("user_id", userID), zap.Error(err))
		return failure("cancelling " + event.Title)
	}

	details := map[string]any{
		"event_id":       event.ID,
		"event_title":    event.Title,
		"not_registered": reg.NotRegistered,
	}
	if reg.NotRegistered {
		return &models.DispatchResult{
			Success:     true,
			UserMessage: fmt.Sprintf("You weren't registered for %s, so there is nothing to cancel.", event.Title),
			Details:     details,
		}
	}
	return &models.DispatchResult{
		Success:             true,
		UserMessage:         fmt.Sprintf("Your registration for %s has been cancelled.", event.Title),
		SideEffectPerformed: true,
		Details:             details,
	}
}

func (d *Dispatcher) details(ctx context.Context, event models.EventRecord) *models.DispatchResult {
	full, err := d.events.GetEvent(ctx, event.ID)
	if err == nil && full == nil {
		err = eventstore.ErrNotFound
	}
	if errors.Is(err, eventstore.ErrNotFound) {
		return noLongerAvailable(event)
	}
	if err != nil {
		d.logger.Error("failed to fetch event details", zap.String("event_id", event.ID), zap.Error(err))
		return failure("fetching the details for " + event.Title)
	}

	return &models.DispatchResult{
		Success:     true,
		UserMessage: summary(*full),
		Details:     map[string]any{"event": full},
	}
}

func (d *Dispatcher) list(ctx context.Context, req Request, intent *models.ClassifiedIntent) *models.DispatchResult {
	filter := normalizeFilter(intent.DateFilter)
	if filter != intent.DateFilter {
		d.logger.Debug("date filter normalized", zap.String("from", intent.DateFilter), zap.String("to", filter))
	}

	events, err := d.events.ListEvents(ctx, filter)
	if err != nil {
		d.logger.Error("failed to list events", zap.String("filter", filter), zap.Error(err))
		return failure("looking up events")
	}
	events = sortedEvents(events)

	scope := scopePhrase(filter)
	details := map[string]any{"filter": filter, "count": len(events), "events": events}
	if len(events) == 0 {
		return &models.DispatchResult{
			Success:     true,
			UserMessage: fmt.Sprintf("There are no events %s.", scope),
			Details:     details,
		}
	}

	listed := events[:min(len(events), maxListed)]
	message := fmt.Sprintf("Here are the events %s: %s", scope, numberedList(listed))
	if extra := len(events) - len(listed); extra > 0 {
		message += fmt.Sprintf(" And %d more.", extra)
	}
	return &models.DispatchResult{Success: true, UserMessage: message, Details: details}
}

func noLongerAvailable(event models.EventRecord) *models.DispatchResult {
	return &models.DispatchResult{
		Success:     true,
		UserMessage: fmt.Sprintf("%s is no longer available.", event.Title),
		Details:     map[string]any{"event_id": event.ID},
	}
}

// normalizeFilter accepts today, upcoming or YYYY-MM-DD; anything else lists
// upcoming events
func normalizeFilter(filter string) string {
	f := strings.ToLower(strings.TrimSpace(filter))
	switch f {
	case "", eventstore.FilterToday, eventstore.FilterUpcoming:
		return f
	}
	if _, err := time.Parse("2006-01-02", f); err == nil {
		return f
	}
	return eventstore.FilterUpcoming
}

func scopePhrase(filter string) string {
	switch filter {
	case "":
		return "on the calendar"
	case eventstore.FilterToday:
		return "today"
	case eventstore.FilterUpcoming:
		return "coming up"
	}
	return "on " + formatDate(filter)
}

func verb(kind models.IntentKind) string {
	switch kind {
	case models.IntentBookEvent:
		return "book"
	case models.IntentCancelEvent:
		return "cancel"
	}
	return "hear about"
}
