package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/community-intent/internal/llm"
	"github.com/avvvet/community-intent/internal/matcher"
	"github.com/avvvet/community-intent/internal/models"
	"github.com/avvvet/community-intent/internal/prompts"
)

const (
	classifierMaxTokens   = 300
	classifierTemperature = 0.1
)

// LLMClassifier asks a language model for a schema-constrained intent
type LLMClassifier struct {
	provider llm.Provider
	now      func() time.Time
}

func NewLLMClassifier(provider llm.Provider) *LLMClassifier {
	return &LLMClassifier{
		provider: provider,
		now:      time.Now,
	}
}

func (c *LLMClassifier) Name() string {
	return c.provider.Name()
}

func (c *LLMClassifier) Classify(ctx context.Context, text string, events []models.EventRecord) (*models.ClassifiedIntent, error) {
	resp, err := c.provider.Complete(ctx, &llm.Request{
		SystemPrompt: prompts.ClassifierSystemPrompt,
		Prompt:       prompts.BuildClassifierPrompt(text, events, c.now()),
		MaxTokens:    classifierMaxTokens,
		Temperature:  classifierTemperature,
		JSON:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}

	intent, err := prompts.ParseClassification(resp.Content)
	if err != nil {
		return nil, err
	}
	intent.Source = c.provider.Name()

	// Backfill only what the name alone resolves to
	if intent.EventID == "" && intent.EventName != "" {
		if result := matcher.Match(intent.EventName, "", events); result != nil {
			intent.EventID = result.Event.ID
			intent.IDBackfilled = true
		}
	}

	return intent, nil
}
