package classifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/avvvet/community-intent/internal/metrics"
	"github.com/avvvet/community-intent/internal/models"
	"github.com/avvvet/community-intent/internal/prompts"
)

// ErrMalformedResponse is returned when provider output fails validation
var ErrMalformedResponse = prompts.ErrMalformedResponse

// Classifier turns an utterance into a ClassifiedIntent. The events snapshot
// is only used to ground entity extraction.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, text string, events []models.EventRecord) (*models.ClassifiedIntent, error)
}

// Chain tries each tier in order and ends with the keyword classifier, which
// cannot fail. Tier failures are logged as degradation and never surfaced.
type Chain struct {
	tiers    []Classifier
	fallback *KeywordClassifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewChain(logger *zap.Logger, m *metrics.Metrics, tiers ...Classifier) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		tiers:    tiers,
		fallback: NewKeywordClassifier(),
		logger:   logger,
		metrics:  m,
	}
}

func (c *Chain) Name() string {
	return "chain"
}

// Classify always returns an intent; the error is kept for interface parity
func (c *Chain) Classify(ctx context.Context, text string, events []models.EventRecord) (*models.ClassifiedIntent, error) {
	for i, tier := range c.tiers {
		if ctx.Err() != nil {
			c.logger.Warn("request context done, skipping remaining classifier tiers",
				zap.Int("tier", i),
				zap.Error(ctx.Err()),
			)
			break
		}

		intent, err := tier.Classify(ctx, text, events)
		if err == nil {
			c.metrics.ClassifierOutcome(tier.Name(), "ok")
			return intent, nil
		}

		c.metrics.ClassifierOutcome(tier.Name(), "degraded")
		c.logger.Warn("classifier provider degraded",
			zap.Int("tier", i),
			zap.String("classifier", tier.Name()),
			zap.Error(err),
		)
	}

	intent, _ := c.fallback.Classify(ctx, text, events)
	c.metrics.ClassifierOutcome(c.fallback.Name(), "ok")
	c.logger.Info("keyword fallback classified utterance",
		zap.String("intent", string(intent.Kind)),
		zap.Float64("confidence", intent.Confidence),
	)
	return intent, nil
}
