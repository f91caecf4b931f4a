package notify

import (
	"context"

	"github.com/avvvet/community-intent/internal/models"
)

// Gateway delivers an emergency alert over one channel
type Gateway interface {
	// Alert delivers the message and returns the provider's delivery id
	Alert(ctx context.Context, alert models.Alert) (string, error)
	// Name returns the gateway name (for logging and receipts)
	Name() string
	// IsConfigured returns true if the gateway has credentials and a target
	IsConfigured() bool
}
