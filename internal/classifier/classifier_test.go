package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/avvvet/community-intent/internal/llm"
	"github.com/avvvet/community-intent/internal/metrics"
	"github.com/avvvet/community-intent/internal/models"
)

var testEvents = []models.EventRecord{
	{ID: "e1", Title: "Pickleball Tournament", Date: "2026-10-20", Time: "09:00"},
	{ID: "e2", Title: "Yoga Class", Date: "2026-10-21", Time: "08:00"},
}

// stubProvider returns a canned completion
type stubProvider struct {
	content string
	err     error
	request *llm.Request
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, request *llm.Request) (*llm.Response, error) {
	s.request = request
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.content}, nil
}

// mockClassifier lets chain tests script each tier
type mockClassifier struct {
	mock.Mock
	name string
}

func (m *mockClassifier) Name() string { return m.name }

func (m *mockClassifier) Classify(ctx context.Context, text string, events []models.EventRecord) (*models.ClassifiedIntent, error) {
	args := m.Called(ctx, text, events)
	intent, _ := args.Get(0).(*models.ClassifiedIntent)
	return intent, args.Error(1)
}

func TestLLMClassifier_Classify(t *testing.T) {
	provider := &stubProvider{
		content: `{"intent": "register_event", "event_name": "pickleball", "event_id": null, "date_filter": null, "confidence": 0.9}`,
	}
	c := NewLLMClassifier(provider)
	c.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }

	intent, err := c.Classify(context.Background(), "book the pickleball", testEvents)
	require.NoError(t, err)

	assert.Equal(t, models.IntentBookEvent, intent.Kind)
	assert.Equal(t, "pickleball", intent.EventName)
	assert.Equal(t, "e1", intent.EventID, "id backfilled from the name match")
	assert.True(t, intent.IDBackfilled)
	assert.Equal(t, 0.9, intent.Confidence)
	assert.Equal(t, "stub", intent.Source)

	require.NotNil(t, provider.request)
	assert.Contains(t, provider.request.Prompt, "- [e1] Pickleball Tournament")
	assert.Contains(t, provider.request.Prompt, "2026-10-15")
	assert.True(t, provider.request.JSON)
}

func TestLLMClassifier_KeepsProvidedID(t *testing.T) {
	provider := &stubProvider{
		content: `{"intent": "get_event", "event_name": "yoga", "event_id": "e2", "confidence": 0.8}`,
	}

	intent, err := NewLLMClassifier(provider).Classify(context.Background(), "tell me about yoga", testEvents)
	require.NoError(t, err)
	assert.Equal(t, "e2", intent.EventID)
	assert.False(t, intent.IDBackfilled)
}

func TestLLMClassifier_WeakNameIsNotBackfilled(t *testing.T) {
	for _, name := range []string{"ball", "a"} {
		t.Run(name, func(t *testing.T) {
			provider := &stubProvider{
				content: `{"intent": "book_event", "event_name": "` + name + `", "event_id": null, "confidence": 0.9}`,
			}

			intent, err := NewLLMClassifier(provider).Classify(context.Background(), "book "+name, testEvents)
			require.NoError(t, err)
			assert.Equal(t, name, intent.EventName)
			assert.Empty(t, intent.EventID)
			assert.False(t, intent.IDBackfilled)
		})
	}
}

func TestLLMClassifier_NoBackfillWithoutMatch(t *testing.T) {
	provider := &stubProvider{
		content: `{"intent": "cancel_event", "event_name": "workout", "event_id": null, "confidence": 0.85}`,
	}

	intent, err := NewLLMClassifier(provider).Classify(context.Background(), "cancel my workout registration", testEvents)
	require.NoError(t, err)
	assert.Equal(t, "workout", intent.EventName)
	assert.Empty(t, intent.EventID)
}

func TestLLMClassifier_Errors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		boom := errors.New("connection reset")
		_, err := NewLLMClassifier(&stubProvider{err: boom}).Classify(context.Background(), "hi", nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("malformed output", func(t *testing.T) {
		_, err := NewLLMClassifier(&stubProvider{content: "I think they want yoga"}).Classify(context.Background(), "hi", nil)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		text       string
		kind       models.IntentKind
		confidence float64
	}{
		{"HELP! I fell down", models.IntentEmergency, 0.8},
		{"sos", models.IntentEmergency, 0.8},
		{"book an event", models.IntentBookEvent, 0.7},
		{"I want to join the yoga", models.IntentBookEvent, 0.7},
		{"cancel my booking", models.IntentCancelEvent, 0.7},
		{"cancel my workout registration", models.IntentCancelEvent, 0.7},
		{"show me what is available", models.IntentListEvents, 0.7},
		{"details of the pickleball please", models.IntentGetEvent, 0.7},
		{"update my location", models.IntentUpdateLocation, 0.7},
		{"good morning", models.IntentGeneral, 0.5},
		{"", models.IntentGeneral, 0.5},
	}

	k := NewKeywordClassifier()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			intent, err := k.Classify(context.Background(), tt.text, testEvents)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, intent.Kind)
			assert.Equal(t, tt.confidence, intent.Confidence)
			assert.Equal(t, KeywordSource, intent.Source)
		})
	}
}

func TestKeywordClassifier_NeverExtractsEntities(t *testing.T) {
	k := NewKeywordClassifier()
	utterances := []string{
		"book the Pickleball Tournament",
		"cancel Yoga Class",
		"details for e1",
		"register 6f1c2a3b-4d5e-4f60-8a7b-9c0d1e2f3a4b",
	}
	for _, text := range utterances {
		intent, err := k.Classify(context.Background(), text, testEvents)
		require.NoError(t, err)
		assert.Empty(t, intent.EventName, text)
		assert.Empty(t, intent.EventID, text)
		assert.False(t, intent.HasReference(), text)
	}
}

func TestKeywordClassifier_DateFilter(t *testing.T) {
	intent, err := NewKeywordClassifier().Classify(context.Background(), "show events today", nil)
	require.NoError(t, err)
	assert.Equal(t, models.IntentListEvents, intent.Kind)
	assert.Equal(t, "today", intent.DateFilter)
}

func TestChain_PrimarySucceeds(t *testing.T) {
	ctx := context.Background()
	want := &models.ClassifiedIntent{Kind: models.IntentBookEvent, EventName: "yoga", Confidence: 0.9, Source: "primary"}

	primary := &mockClassifier{name: "primary"}
	primary.On("Classify", ctx, "book yoga", testEvents).Return(want, nil).Once()
	secondary := &mockClassifier{name: "secondary"}

	chain := NewChain(zaptest.NewLogger(t), nil, primary, secondary)
	got, err := chain.Classify(ctx, "book yoga", testEvents)
	require.NoError(t, err)

	assert.Same(t, want, got)
	primary.AssertExpectations(t)
	secondary.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
}

func TestChain_FallsThroughTiers(t *testing.T) {
	ctx := context.Background()
	want := &models.ClassifiedIntent{Kind: models.IntentListEvents, Confidence: 0.8, Source: "secondary"}

	primary := &mockClassifier{name: "primary"}
	primary.On("Classify", ctx, "what's on", testEvents).Return(nil, context.DeadlineExceeded).Once()
	secondary := &mockClassifier{name: "secondary"}
	secondary.On("Classify", ctx, "what's on", testEvents).Return(want, nil).Once()

	reg := prometheus.NewRegistry()
	chain := NewChain(zaptest.NewLogger(t), metrics.New(reg), primary, secondary)

	got, err := chain.Classify(ctx, "what's on", testEvents)
	require.NoError(t, err)
	assert.Same(t, want, got)
	primary.AssertExpectations(t)
	secondary.AssertExpectations(t)
}

func TestChain_KeywordFallbackDropsEntities(t *testing.T) {
	ctx := context.Background()

	primary := &mockClassifier{name: "primary"}
	primary.On("Classify", ctx, mock.Anything, mock.Anything).Return(nil, ErrMalformedResponse)
	secondary := &mockClassifier{name: "secondary"}
	secondary.On("Classify", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("503"))

	chain := NewChain(zaptest.NewLogger(t), nil, primary, secondary)

	got, err := chain.Classify(ctx, "book the Pickleball Tournament", testEvents)
	require.NoError(t, err)
	assert.Equal(t, models.IntentBookEvent, got.Kind)
	assert.Equal(t, KeywordSource, got.Source)
	assert.False(t, got.HasReference())
}

func TestChain_SkipsTiersWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &mockClassifier{name: "primary"}
	chain := NewChain(zaptest.NewLogger(t), nil, primary)

	got, err := chain.Classify(ctx, "sos", nil)
	require.NoError(t, err)
	assert.Equal(t, models.IntentEmergency, got.Kind)
	primary.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
}
