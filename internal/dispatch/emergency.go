package dispatch

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/avvvet/community-intent/internal/location"
	"github.com/avvvet/community-intent/internal/models"
	"github.com/avvvet/community-intent/internal/notify"
	"github.com/avvvet/community-intent/internal/response"
)

const (
	alertSentMessage    = "I've raised an emergency alert and help is being contacted. Stay where you are if it is safe to do so."
	alertNotSentMessage = "I've recorded your emergency alert but could not reach the emergency line. Please call 995 now."
)

// emergency never depends on event matching. A gateway failure still yields
// a successful result carrying the delivery receipts.
func (d *Dispatcher) emergency(ctx context.Context, req Request) *models.DispatchResult {
	now := d.now()

	geoCtx := models.GeoContext{}
	if coords := d.emergencyCoordinates(ctx, req); coords != nil {
		if d.locator != nil {
			geoCtx = d.locator.Locate(ctx, *coords)
		} else {
			geoCtx.Coordinates = coords
		}
	}

	message := response.Compose(req.Message, response.Parts{Geo: geoCtx, Timestamp: now})

	var receipts []models.AlertReceipt
	if d.notifier != nil {
		receipts = d.notifier.Notify(ctx, models.Alert{
			UserID:    req.UserID,
			Message:   message,
			Timestamp: now,
		})
	}
	sent := notify.AnySent(receipts)

	d.logger.Warn("emergency raised",
		zap.String("user_id", req.UserID),
		zap.Bool("alert_sent", sent),
		zap.String("nearest_landmark", geoCtx.NearestLandmark),
	)

	userMessage := alertSentMessage
	if !sent {
		userMessage = alertNotSentMessage
	}

	return &models.DispatchResult{
		Success:             true,
		UserMessage:         userMessage,
		SideEffectPerformed: sent,
		Details: map[string]any{
			"alert_message":    message,
			"address":          geoCtx.DisplayAddress(),
			"nearest_landmark": geoCtx.NearestLandmark,
			"receipts":         receipts,
		},
	}
}

// emergencyCoordinates prefers the request's coordinates and falls back to
// the user's last stored location
func (d *Dispatcher) emergencyCoordinates(ctx context.Context, req Request) *models.Coordinates {
	if req.Location != nil {
		return req.Location
	}
	if d.locations == nil || req.UserID == "" {
		return nil
	}

	rec, err := d.locations.GetLocation(ctx, req.UserID)
	if err != nil {
		if !errors.Is(err, location.ErrNoLocation) {
			d.logger.Warn("failed to load stored location", zap.String("user_id", req.UserID), zap.Error(err))
		}
		return nil
	}
	return &rec.Coordinates
}
