package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avvvet/community-intent/internal/classifier"
	"github.com/avvvet/community-intent/internal/dispatch"
	"github.com/avvvet/community-intent/internal/eventstore"
	"github.com/avvvet/community-intent/internal/models"
)

const invalidRequestMessage = "Sorry, I didn't catch that. Could you say it again?"

// Dispatcher runs the action for a classified request
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) *models.DispatchResult
}

// CommandHandler takes one utterance from validation to the final reply:
// snapshot events, classify, dispatch, shape the response
type CommandHandler struct {
	classifier classifier.Classifier
	dispatcher Dispatcher
	events     eventstore.Store
	logger     *zap.Logger
}

func NewCommandHandler(c classifier.Classifier, d Dispatcher, events eventstore.Store, logger *zap.Logger) *CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{
		classifier: c,
		dispatcher: d,
		events:     events,
		logger:     logger,
	}
}

func (h *CommandHandler) ProcessCommand(ctx context.Context, request *models.CommandRequest) (*models.CommandResponse, error) {
	if code, err := validateRequest(request); err != nil {
		return ErrorResponse(request, code, err.Error()), nil
	}
	if request.SessionID == "" {
		request.SessionID = uuid.NewString()
	}

	logger := h.logger.With(
		zap.String("user_id", request.UserID),
		zap.String("session_id", request.SessionID),
	)

	// The snapshot grounds classification and is reused for matching
	events, eventsErr := h.events.ListEvents(ctx, eventstore.FilterUpcoming)
	if eventsErr != nil {
		logger.Warn("event snapshot unavailable, classifying without it", zap.Error(eventsErr))
	}

	intent, err := h.classifier.Classify(ctx, request.Text, events)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	logger.Info("utterance classified",
		zap.String("intent", string(intent.Kind)),
		zap.String("source", intent.Source),
		zap.Float64("confidence", intent.Confidence),
		zap.Bool("has_reference", intent.HasReference()),
		zap.String("tone", intent.Tone),
	)

	result := h.dispatcher.Dispatch(ctx, dispatch.Request{
		UserID:    request.UserID,
		Text:      request.Text,
		Location:  request.Location,
		Message:   request.Message,
		Intent:    intent,
		Events:    events,
		EventsErr: eventsErr,
	})

	response := &models.CommandResponse{
		SessionID:      request.SessionID,
		Success:        result.Success,
		Intent:         result.Intent,
		Message:        result.UserMessage,
		ActionExecuted: result.SideEffectPerformed,
		ActionDetails:  result.Details,
		Confidence:     intent.Confidence,
	}
	if reading := intent.Reading(); reading != nil {
		if response.ActionDetails == nil {
			response.ActionDetails = map[string]any{}
		}
		response.ActionDetails["utterance"] = reading
	}

	if !result.Success {
		code := result.ErrorCode
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = models.ErrorRequestTimedOut
		}
		if code == "" {
			code = models.ErrorInternal
		}
		response.ErrorCode = &code
	}

	return response, nil
}

func validateRequest(request *models.CommandRequest) (string, error) {
	if request == nil {
		return models.ErrorParseError, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(request.UserID) == "" {
		return models.ErrorParseError, fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(request.Text) == "" {
		return models.ErrorParseError, fmt.Errorf("text is required")
	}
	if request.Location != nil && !request.Location.Valid() {
		return models.ErrorInvalidRequest, fmt.Errorf("location %s is out of range", request.Location)
	}
	return "", nil
}

// ErrorResponse builds the reply for requests that never reached dispatch
func ErrorResponse(request *models.CommandRequest, errorCode, errorMessage string) *models.CommandResponse {
	response := &models.CommandResponse{
		Success:      false,
		Intent:       models.IntentGeneral,
		Message:      invalidRequestMessage,
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
	if request != nil {
		response.SessionID = request.SessionID
	}
	return response
}
