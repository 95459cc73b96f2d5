package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/collabtools/webex-ai-bot/internal/domain"
)

var errNoChoices = errors.New("response contained no choices")

// ollamaProvider talks to a local Ollama server over its native JSON API.
type ollamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllama creates the Ollama provider. baseURL defaults to the standard
// local Ollama address when empty.
func NewOllama(baseURL, model string) Provider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &ollamaProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: RequestTimeout},
	}
}

type ollamaChatRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Stream   bool             `json:"stream"`
	Options  ollamaOptions    `json:"options"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message domain.Message `json:"message"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (p *ollamaProvider) Generate(ctx context.Context, messages []domain.Message, systemPrompt string, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	full := make([]domain.Message, 0, len(messages)+1)
	full = append(full, domain.Message{Role: domain.RoleSystem, Content: systemPrompt})
	full = append(full, messages...)

	reqBody, err := json.Marshal(ollamaChatRequest{
		Model:    p.model,
		Messages: full,
		Stream:   false,
		Options:  ollamaOptions{Temperature: temperature, NumPredict: maxTokens},
	})
	if err != nil {
		return "", &Error{Provider: "ollama", Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return "", &Error{Provider: "ollama", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &Error{Provider: "ollama", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &Error{Provider: "ollama", Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &Error{Provider: "ollama", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return chatResp.Message.Content, nil
}

func (p *ollamaProvider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *ollamaProvider) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, &Error{Provider: "ollama", Err: err}
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Provider: "ollama", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &Error{Provider: "ollama", Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &Error{Provider: "ollama", Err: fmt.Errorf("failed to decode tags: %w", err)}
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, m.Name)
	}
	return models, nil
}
