package eventstore

import (
	"context"
	"errors"

	"github.com/avvvet/community-intent/internal/models"
)

// ErrNotFound is returned when the store has no such event
var ErrNotFound = errors.New("event not found")

// Date filters understood by the store besides an explicit YYYY-MM-DD
const (
	FilterToday    = "today"
	FilterUpcoming = "upcoming"
)

// Store is the external event and registration collaborator. GetEvent,
// Register and Unregister return a non-nil value whenever err is nil;
// callers still treat a nil value as a failed call.
type Store interface {
	ListEvents(ctx context.Context, dateFilter string) ([]models.EventRecord, error)
	GetEvent(ctx context.Context, id string) (*models.EventRecord, error)
	Register(ctx context.Context, eventID, userID string) (*Registration, error)
	Unregister(ctx context.Context, eventID, userID string) (*Registration, error)
}

// Registration is the outcome of a register or unregister call. Duplicate
// registration and missing registration are outcomes, not errors.
type Registration struct {
	EventID           string `json:"event_id"`
	UserID            string `json:"user_id"`
	AlreadyRegistered bool   `json:"already_registered,omitempty"`
	NotRegistered     bool   `json:"not_registered,omitempty"`
	Message           string `json:"message,omitempty"`
}
