package transport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avvvet/community-intent/internal/models"
)

type processorFunc func(ctx context.Context, request *models.CommandRequest) (*models.CommandResponse, error)

func (f processorFunc) ProcessCommand(ctx context.Context, request *models.CommandRequest) (*models.CommandResponse, error) {
	return f(ctx, request)
}

func decode(t *testing.T, data []byte) models.CommandResponse {
	t.Helper()
	var response models.CommandResponse
	require.NoError(t, json.Unmarshal(data, &response))
	return response
}

func TestHandleData_RoundTrip(t *testing.T) {
	var got *models.CommandRequest
	handler := processorFunc(func(_ context.Context, request *models.CommandRequest) (*models.CommandResponse, error) {
		got = request
		return &models.CommandResponse{
			SessionID: request.SessionID,
			Success:   true,
			Intent:    models.IntentListEvents,
			Message:   "Here are the events coming up.",
		}, nil
	})

	body := []byte(`{"user_id":"u1","text":"what's on","session_id":"s1","location":{"latitude":1.3,"longitude":103.8}}`)
	response := decode(t, HandleData(context.Background(), handler, body, zap.NewNop()))

	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	require.NotNil(t, got.Location)
	assert.InDelta(t, 103.8, got.Location.Longitude, 1e-9)

	assert.True(t, response.Success)
	assert.Equal(t, "s1", response.SessionID)
	assert.Equal(t, models.IntentListEvents, response.Intent)
	assert.Nil(t, response.ErrorCode)
}

func TestHandleData_InvalidJSON(t *testing.T) {
	handler := processorFunc(func(context.Context, *models.CommandRequest) (*models.CommandResponse, error) {
		t.Fatal("handler must not run for undecodable input")
		return nil, nil
	})

	response := decode(t, HandleData(context.Background(), handler, []byte(`{"user_id":`), zap.NewNop()))

	assert.False(t, response.Success)
	require.NotNil(t, response.ErrorCode)
	assert.Equal(t, models.ErrorParseError, *response.ErrorCode)
}

func TestHandleData_HandlerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"internal", errors.New("classification failed: boom"), models.ErrorInternal},
		{"deadline", context.DeadlineExceeded, models.ErrorRequestTimedOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := processorFunc(func(context.Context, *models.CommandRequest) (*models.CommandResponse, error) {
				return nil, tt.err
			})

			body := []byte(`{"user_id":"u1","text":"hi","session_id":"s9"}`)
			response := decode(t, HandleData(context.Background(), handler, body, zap.NewNop()))

			assert.False(t, response.Success)
			assert.Equal(t, "s9", response.SessionID)
			require.NotNil(t, response.ErrorCode)
			assert.Equal(t, tt.code, *response.ErrorCode)
		})
	}
}
