package answer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/avvvet/community-intent/internal/llm"
	"github.com/avvvet/community-intent/internal/models"
	"github.com/avvvet/community-intent/internal/prompts"
)

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

var today = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func TestGenerator_Answer(t *testing.T) {
	provider := &stubProvider{content: "  The Yoga Class is on Wednesday morning.  "}
	g := NewGenerator(provider, zaptest.NewLogger(t))
	g.now = func() time.Time { return today }

	events := []models.EventRecord{
		{ID: "old", Title: "Last Week Walk", Date: "2026-10-08"},
		{ID: "e2", Title: "Yoga Class", Date: "2026-10-21"},
	}

	got := g.Answer(context.Background(), "when is yoga?", events)
	assert.Equal(t, "The Yoga Class is on Wednesday morning.", got)

	require.NotNil(t, provider.request)
	assert.Contains(t, provider.request.Prompt, "Yoga Class")
	assert.NotContains(t, provider.request.Prompt, "Last Week Walk")
}

func TestGenerator_Fallback(t *testing.T) {
	assert.Equal(t, prompts.FallbackMessage, NewGenerator(nil, nil).Answer(context.Background(), "hi", nil))

	failing := NewGenerator(&stubProvider{err: errors.New("timeout")}, zaptest.NewLogger(t))
	assert.Equal(t, prompts.FallbackMessage, failing.Answer(context.Background(), "hi", nil))

	empty := NewGenerator(&stubProvider{content: "   "}, zaptest.NewLogger(t))
	assert.Equal(t, prompts.FallbackMessage, empty.Answer(context.Background(), "hi", nil))
}

func TestUpcoming(t *testing.T) {
	var events []models.EventRecord
	for i := 0; i < 8; i++ {
		events = append(events, models.EventRecord{ID: fmt.Sprintf("e%d", i), Date: today.AddDate(0, 0, i-2).Format("2006-01-02")})
	}
	events = append(events, models.EventRecord{ID: "undated"})

	got := Upcoming(events, today, 5)
	require.Len(t, got, 5)
	assert.Equal(t, "e2", got[0].ID, "today counts as upcoming")
	assert.Equal(t, "e6", got[4].ID)

	all := Upcoming(events, today, 0)
	assert.Equal(t, "undated", all[len(all)-1].ID)
}
