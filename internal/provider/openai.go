package provider

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/collabtools/webex-ai-bot/internal/domain"
)

const xaiBaseURL = "https://api.x.ai/v1"

// openaiCompatible serves both the OpenAI and xAI backends; xAI exposes an
// OpenAI-compatible API under a different base URL.
type openaiCompatible struct {
	name   string
	client *openai.Client
	model  string
}

// NewOpenAI creates the OpenAI provider.
func NewOpenAI(apiKey, model string) Provider {
	return newOpenAICompatible("openai", apiKey, "", model)
}

// NewXAI creates the xAI provider (OpenAI-compatible API).
func NewXAI(apiKey, model string) Provider {
	return newOpenAICompatible("xai", apiKey, xaiBaseURL, model)
}

func newOpenAICompatible(name, apiKey, baseURL, model string) *openaiCompatible {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: RequestTimeout}

	return &openaiCompatible{
		name:   name,
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (p *openaiCompatible) Generate(ctx context.Context, messages []domain.Message, systemPrompt string, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chatMessages = append(chatMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    chatMessages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", &Error{Provider: p.name, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Provider: p.name, Err: errNoChoices}
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *openaiCompatible) HealthCheck(ctx context.Context) bool {
	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	_, err := p.client.ListModels(ctx)
	return err == nil
}

func (p *openaiCompatible) ListModels(ctx context.Context) ([]string, error) {
	return nil, ErrListingUnsupported
}
