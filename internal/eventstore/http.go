package eventstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avvvet/community-intent/internal/metrics"
	"github.com/avvvet/community-intent/internal/models"
)

const collaboratorName = "event_store"

// HTTPStore is a client for the community events API
type HTTPStore struct {
	baseURL string
	client  *http.Client
	metrics *metrics.Metrics
}

func NewHTTPStore(baseURL string, timeout time.Duration, m *metrics.Metrics) *HTTPStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		metrics: m,
	}
}

// wireEvent accepts ids encoded as JSON strings or numbers
type wireEvent struct {
	ID              json.RawMessage `json:"id"`
	Title           string          `json:"title"`
	Description     *string         `json:"description"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	Location        *string         `json:"location"`
	MaxParticipants *int            `json:"max_participants"`
}

func (w wireEvent) record() models.EventRecord {
	r := models.EventRecord{
		ID:              strings.Trim(string(w.ID), `"`),
		Title:           w.Title,
		Date:            w.Date,
		Time:            w.Time,
		MaxParticipants: w.MaxParticipants,
	}
	if r.ID == "null" {
		r.ID = ""
	}
	if w.Description != nil {
		r.Description = *w.Description
	}
	if w.Location != nil {
		r.Location = *w.Location
	}
	// Postgres time columns come back as HH:MM:SS
	if len(r.Time) == len("15:04:05") {
		r.Time = r.Time[:5]
	}
	return r
}

type listResponse struct {
	Success bool        `json:"success"`
	Events  []wireEvent `json:"events"`
}

type getResponse struct {
	Success bool      `json:"success"`
	Event   wireEvent `json:"event"`
}

type registerResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	AlreadyRegistered bool   `json:"already_registered"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// statusError carries a non-2xx answer from the events API
type statusError struct {
	status int
	detail string
}

func (e *statusError) Error() string {
	if e.detail == "" {
		return fmt.Sprintf("events api returned %d", e.status)
	}
	return fmt.Sprintf("events api returned %d: %s", e.status, e.detail)
}

func (s *HTTPStore) ListEvents(ctx context.Context, dateFilter string) ([]models.EventRecord, error) {
	path := "/list"
	if dateFilter != "" {
		path += "?" + url.Values{"date_filter": {dateFilter}}.Encode()
	}

	var resp listResponse
	if err := s.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]models.EventRecord, 0, len(resp.Events))
	for _, e := range resp.Events {
		events = append(events, e.record())
	}
	return events, nil
}

func (s *HTTPStore) GetEvent(ctx context.Context, id string) (*models.EventRecord, error) {
	var resp getResponse
	err := s.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, &resp)
	if isStatus(err, http.StatusNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}

	record := resp.Event.record()
	return &record, nil
}

func (s *HTTPStore) Register(ctx context.Context, eventID, userID string) (*Registration, error) {
	body := map[string]string{"event_id": eventID, "user_id": userID}

	var resp registerResponse
	err := s.do(ctx, http.MethodPost, "/register", body, &resp)
	if isStatus(err, http.StatusNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to register for event %s: %w", eventID, err)
	}

	return &Registration{
		EventID:           eventID,
		UserID:            userID,
		AlreadyRegistered: resp.AlreadyRegistered,
		Message:           resp.Message,
	}, nil
}

func (s *HTTPStore) Unregister(ctx context.Context, eventID, userID string) (*Registration, error) {
	path := "/register/" + url.PathEscape(eventID) + "/" + url.PathEscape(userID)

	var resp registerResponse
	err := s.do(ctx, http.MethodDelete, path, nil, &resp)
	if isStatus(err, http.StatusNotFound) {
		return &Registration{EventID: eventID, UserID: userID, NotRegistered: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unregister from event %s: %w", eventID, err)
	}

	return &Registration{EventID: eventID, UserID: userID, Message: resp.Message}, nil
}

func (s *HTTPStore) do(ctx context.Context, method, path string, body any, out any) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveCall(collaboratorName, start, err) }()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) != nil {
			apiErr.Detail = strings.TrimSpace(string(raw))
		}
		return &statusError{status: resp.StatusCode, detail: apiErr.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func isStatus(err error, status int) bool {
	var se *statusError
	return errors.As(err, &se) && se.status == status
}
