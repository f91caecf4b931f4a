package llm

import (
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms/openai"
)

// NewOpenAIProvider creates a provider backed by the OpenAI chat API
func NewOpenAIProvider(apiKey, model string, timeout time.Duration) (*LangChainProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return NewLangChainProvider("openai:"+model, client, timeout), nil
}
