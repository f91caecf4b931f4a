package answer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avvvet/community-intent/internal/llm"
	"github.com/avvvet/community-intent/internal/models"
	"github.com/avvvet/community-intent/internal/prompts"
)

// contextEvents is how many upcoming events seed the prompt
const contextEvents = 5

// Generator answers general questions. It never fails: without a provider,
// or when the provider errors, it returns the static help message.
type Generator struct {
	provider llm.Provider
	logger   *zap.Logger
	now      func() time.Time
}

func NewGenerator(provider llm.Provider, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

func (g *Generator) Answer(ctx context.Context, question string, events []models.EventRecord) string {
	if g.provider == nil {
		return prompts.FallbackMessage
	}

	resp, err := g.provider.Complete(ctx, &llm.Request{
		SystemPrompt: prompts.GeneralSystemPrompt,
		Prompt:       prompts.BuildGeneralPrompt(question, Upcoming(events, g.now(), contextEvents)),
		MaxTokens:    250,
		Temperature:  0.4,
	})
	if err != nil {
		g.logger.Warn("answer generator degraded", zap.String("provider", g.provider.Name()), zap.Error(err))
		return prompts.FallbackMessage
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return prompts.FallbackMessage
	}
	return answer
}

// Upcoming keeps events dated today or later, up to limit, preserving order.
// Events without a parseable date are kept.
func Upcoming(events []models.EventRecord, now time.Time, limit int) []models.EventRecord {
	today := now.Format("2006-01-02")
	var out []models.EventRecord
	for _, e := range events {
		if _, err := time.Parse("2006-01-02", e.Date); err == nil && e.Date < today {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}
