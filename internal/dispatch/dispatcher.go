package dispatch

import (
	"cmp"
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/avvvet/community-intent/internal/eventstore"
	"github.com/avvvet/community-intent/internal/location"
	"github.com/avvvet/community-intent/internal/matcher"
	"github.com/avvvet/community-intent/internal/metrics"
	"github.com/avvvet/community-intent/internal/models"
	"github.com/avvvet/community-intent/internal/prompts"
)

// Locator resolves coordinates for an emergency
type Locator interface {
	Locate(ctx context.Context, coords models.Coordinates) models.GeoContext
}

// Notifier raises an emergency alert on every configured gateway
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) []models.AlertReceipt
}

// Answerer handles the general intent
type Answerer interface {
	Answer(ctx context.Context, question string, events []models.EventRecord) string
}

// Deps are the collaborators a Dispatcher is built from. Locations, Locator,
// Notifier and Answers may be nil; the matching branches then degrade.
type Deps struct {
	Events    eventstore.Store
	Locations location.Store
	Locator   Locator
	Notifier  Notifier
	Answers   Answerer
	Matcher   *matcher.Matcher
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Request is one classified utterance plus the event snapshot fetched for it
type Request struct {
	UserID   string
	Text     string
	Location *models.Coordinates
	Message  string
	Intent   *models.ClassifiedIntent

	// Events is the read-only snapshot; EventsErr is set when it could not be fetched
	Events    []models.EventRecord
	EventsErr error
}

// Dispatcher is the per-intent state machine. It holds no per-request
// state and is safe for concurrent use.
type Dispatcher struct {
	events    eventstore.Store
	locations location.Store
	locator   Locator
	notifier  Notifier
	answers   Answerer
	matcher   *matcher.Matcher
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func New(deps Deps) *Dispatcher {
	d := &Dispatcher{
		events:    deps.Events,
		locations: deps.Locations,
		locator:   deps.Locator,
		notifier:  deps.Notifier,
		answers:   deps.Answers,
		matcher:   deps.Matcher,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
	if d.matcher == nil {
		d.matcher = matcher.New(matcher.DefaultThreshold)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Dispatch always returns a result; failures are described in it
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *models.DispatchResult {
	intent := req.Intent
	if intent == nil {
		intent = &models.ClassifiedIntent{Kind: models.IntentGeneral}
	}

	var result *models.DispatchResult
	switch intent.Kind {
	case models.IntentEmergency:
		result = d.emergency(ctx, req)
	case models.IntentBookEvent, models.IntentCancelEvent, models.IntentGetEvent:
		result = d.eventScoped(ctx, req, intent)
	case models.IntentListEvents:
		result = d.list(ctx, req, intent)
	case models.IntentUpdateLocation:
		result = d.updateLocation(ctx, req)
	default:
		result = d.general(ctx, req, intent)
	}
	result.Intent = intent.Kind

	d.metrics.Dispatch(string(intent.Kind), outcome(result))
	d.logger.Info("dispatched",
		zap.String("intent", string(intent.Kind)),
		zap.String("source", intent.Source),
		zap.Bool("success", result.Success),
		zap.Bool("side_effect", result.SideEffectPerformed),
	)
	return result
}

func (d *Dispatcher) general(ctx context.Context, req Request, intent *models.ClassifiedIntent) *models.DispatchResult {
	question := req.Text
	if intent.CleanText != "" {
		question = intent.CleanText
	}

	message := prompts.FallbackMessage
	if d.answers != nil {
		message = d.answers.Answer(ctx, question, sortedEvents(req.Events))
	}
	return &models.DispatchResult{Success: true, UserMessage: message}
}

func (d *Dispatcher) updateLocation(ctx context.Context, req Request) *models.DispatchResult {
	if req.Location == nil || !req.Location.Valid() {
		return &models.DispatchResult{
			Success:     false,
			UserMessage: "I need your current location to update it. Please allow location sharing and try again.",
			ErrorCode:   models.ErrorInvalidRequest,
		}
	}
	if d.locations == nil {
		d.logger.Warn("location update requested but no location store is configured")
		return failure("saving your location")
	}

	start := time.Now()
	err := d.locations.SaveLocation(ctx, req.UserID, *req.Location)
	d.metrics.ObserveCall("location_store", start, err)
	if err != nil {
		d.logger.Error("failed to save location", zap.String("user_id", req.UserID), zap.Error(err))
		return failure("saving your location")
	}

	return &models.DispatchResult{
		Success:             true,
		UserMessage:         "Your location has been updated.",
		SideEffectPerformed: true,
		Details: map[string]any{
			"latitude":  req.Location.Latitude,
			"longitude": req.Location.Longitude,
		},
	}
}

// failure is the generic downstream failure; no error text reaches the user
func failure(doing string) *models.DispatchResult {
	return &models.DispatchResult{
		Success:     false,
		UserMessage: "Sorry, something went wrong while " + doing + ". Please try again in a moment.",
		ErrorCode:   models.ErrorDownstream,
	}
}

func outcome(r *models.DispatchResult) string {
	switch {
	case !r.Success:
		return "failed"
	case r.SideEffectPerformed:
		return "acted"
	default:
		return "informational"
	}
}

// sortedEvents returns a copy ordered by date then time. The sort is stable,
// so among equal scores the earliest event wins during matching.
func sortedEvents(events []models.EventRecord) []models.EventRecord {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b models.EventRecord) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})
	return out
}
