package llm

import (
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms/anthropic"
)

// NewAnthropicProvider creates a provider backed by the Anthropic messages API
func NewAnthropicProvider(apiKey, model string, timeout time.Duration) (*LangChainProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	client, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}

	return NewLangChainProvider("anthropic:"+model, client, timeout), nil
}
