package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/avvvet/community-intent/internal/metrics"
	"github.com/avvvet/community-intent/internal/models"
)

// Service fans an alert out to every gateway. Gateway failures are reported
// in the receipts and never returned as errors.
type Service struct {
	gateways []Gateway
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewService skips nil gateways
func NewService(logger *zap.Logger, m *metrics.Metrics, gateways ...Gateway) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{logger: logger, metrics: m}
	for _, g := range gateways {
		if g == nil || isNilGateway(g) {
			continue
		}
		s.gateways = append(s.gateways, g)
	}
	return s
}

// Notify returns one receipt per gateway, in registration order
func (s *Service) Notify(ctx context.Context, alert models.Alert) []models.AlertReceipt {
	receipts := make([]models.AlertReceipt, 0, len(s.gateways))

	for _, g := range s.gateways {
		receipt := models.AlertReceipt{Gateway: g.Name()}

		if !g.IsConfigured() {
			receipt.Status = models.AlertNotConfigured
			s.logger.Warn("alert gateway not configured", zap.String("gateway", g.Name()))
		} else {
			start := time.Now()
			id, err := g.Alert(ctx, alert)
			s.metrics.ObserveCall(g.Name(), start, err)
			if err != nil {
				receipt.Status = models.AlertFailed
				s.logger.Error("alert delivery failed",
					zap.String("gateway", g.Name()),
					zap.String("user_id", alert.UserID),
					zap.Error(err),
				)
			} else {
				receipt.Status = models.AlertSent
				receipt.ID = id
				s.logger.Info("alert delivered",
					zap.String("gateway", g.Name()),
					zap.String("delivery_id", id),
				)
			}
		}

		s.metrics.AlertDelivery(receipt.Gateway, receipt.Status)
		receipts = append(receipts, receipt)
	}

	return receipts
}

// AnySent reports whether at least one gateway delivered the alert
func AnySent(receipts []models.AlertReceipt) bool {
	for _, r := range receipts {
		if r.Status == models.AlertSent {
			return true
		}
	}
	return false
}

// isNilGateway catches typed nil pointers such as a (*ResendGateway)(nil)
func isNilGateway(g Gateway) bool {
	switch v := g.(type) {
	case *ResendGateway:
		return v == nil
	case *TwilioGateway:
		return v == nil
	}
	return false
}
