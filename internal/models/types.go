package models

import (
	"fmt"
	"time"
)

// Coordinates is a WGS84 latitude/longitude pair
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the pair lies within WGS84 bounds
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("Lat: %.6f, Lng: %.6f", c.Latitude, c.Longitude)
}

// NATS request from the assistant front end (voice or chat)
type CommandRequest struct {
	UserID    string       `json:"user_id"`
	Text      string       `json:"text"`
	Location  *Coordinates `json:"location,omitempty"`
	Message   string       `json:"message,omitempty"` // pre-formatted message built by the client
	SessionID string       `json:"session_id,omitempty"`
}

// NATS response to the assistant front end
type CommandResponse struct {
	SessionID      string         `json:"session_id,omitempty"`
	Success        bool           `json:"success"`
	Intent         IntentKind     `json:"intent"`
	Message        string         `json:"message"`
	ActionExecuted bool           `json:"action_executed"`
	ActionDetails  map[string]any `json:"action_details,omitempty"`
	Confidence     float64        `json:"confidence"`
	ErrorCode      *string        `json:"error_code,omitempty"`
	ErrorMessage   *string        `json:"error_message,omitempty"`
}

// EventRecord is a read-only snapshot of an event owned by the event store
type EventRecord struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Date            string `json:"date"` // YYYY-MM-DD
	Time            string `json:"time"` // HH:MM
	Location        string `json:"location,omitempty"`
	MaxParticipants *int   `json:"max_participants,omitempty"`
}

// GeoContext is built once per emergency request and never cached
type GeoContext struct {
	Coordinates        *Coordinates `json:"coordinates,omitempty"`
	Address            string       `json:"address,omitempty"`
	NearestLandmark    string       `json:"nearest_landmark,omitempty"`
	LandmarkDistanceKm float64      `json:"landmark_distance_km,omitempty"`
	// LandmarkSearched is set when the landmark table was searched, so an
	// empty NearestLandmark means nothing lies within the radius
	LandmarkSearched bool `json:"landmark_searched,omitempty"`
}

// DisplayAddress falls back to the raw coordinate string when geocoding failed
func (g GeoContext) DisplayAddress() string {
	if g.Address != "" {
		return g.Address
	}
	if g.Coordinates != nil {
		return g.Coordinates.String()
	}
	return ""
}

// DispatchResult is the terminal output of one request
type DispatchResult struct {
	Success             bool           `json:"success"`
	Intent              IntentKind     `json:"intent"`
	UserMessage         string         `json:"user_message"`
	SideEffectPerformed bool           `json:"side_effect_performed"`
	Details             map[string]any `json:"details,omitempty"`
	ErrorCode           string         `json:"error_code,omitempty"`
}

// Alert is handed to every configured notification gateway
type Alert struct {
	UserID    string
	Message   string
	Timestamp time.Time
}

// AlertReceipt reports the outcome of one gateway delivery
type AlertReceipt struct {
	Gateway string `json:"gateway"`
	ID      string `json:"id,omitempty"`
	Status  string `json:"status"`
}

// Alert delivery statuses
const (
	AlertSent          = "sent"
	AlertFailed        = "failed"
	AlertNotConfigured = "not_configured"
)

// Error codes
const (
	ErrorParseError      = "PARSE_ERROR"
	ErrorInvalidRequest  = "INVALID_REQUEST"
	ErrorDownstream      = "DOWNSTREAM_FAILURE"
	ErrorInternal        = "INTERNAL_ERROR"
	ErrorRequestTimedOut = "REQUEST_TIMEOUT"
)
