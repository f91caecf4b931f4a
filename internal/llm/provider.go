package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// ErrEmptyResponse is returned when a provider answers with no choices
var ErrEmptyResponse = errors.New("empty response from provider")

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Complete(ctx context.Context, request *Request) (*Response, error)
}

// Request represents the structured request to an LLM
type Request struct {
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float64
	JSON         bool
}

// Response represents the raw response from an LLM
type Response struct {
	Content string
	Usage   *Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// LangChainProvider adapts any langchaingo model to Provider. Every call is
// bounded by the provider timeout on top of the caller's deadline.
type LangChainProvider struct {
	name    string
	model   llms.Model
	timeout time.Duration
}

// NewLangChainProvider wraps a langchaingo model
func NewLangChainProvider(name string, model llms.Model, timeout time.Duration) *LangChainProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LangChainProvider{
		name:    name,
		model:   model,
		timeout: timeout,
	}
}

func (p *LangChainProvider) Name() string {
	return p.name
}

func (p *LangChainProvider) Complete(ctx context.Context, request *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var messages []llms.MessageContent
	if request.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, request.SystemPrompt))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, request.Prompt))

	opts := []llms.CallOption{
		llms.WithTemperature(request.Temperature),
	}
	if request.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(request.MaxTokens))
	}
	if request.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := p.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: generate content: %w", p.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w", p.name, ErrEmptyResponse)
	}

	choice := resp.Choices[0]
	return &Response{
		Content: choice.Content,
		Usage:   usageFrom(choice.GenerationInfo),
	}, nil
}

// usageFrom reads token counts from generation info; key names differ per backend
func usageFrom(info map[string]any) *Usage {
	if info == nil {
		return nil
	}
	usage := &Usage{
		InputTokens:  firstInt(info, "InputTokens", "PromptTokens"),
		OutputTokens: firstInt(info, "OutputTokens", "CompletionTokens"),
	}
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		return nil
	}
	return usage
}

func firstInt(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
