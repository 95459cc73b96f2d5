package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/collabtools/webex-ai-bot/internal/domain"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com"
	anthropicAPIVersion = "2023-06-01"
)

// anthropicProvider talks to the Anthropic Messages API directly over HTTP.
type anthropicProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewAnthropic creates the Anthropic provider.
func NewAnthropic(apiKey, model string) Provider {
	return &anthropicProvider{
		baseURL:    anthropicBaseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: RequestTimeout},
	}
}

type anthropicRequest struct {
	Model       string           `json:"model"`
	System      string           `json:"system,omitempty"`
	Messages    []domain.Message `json:"messages"`
	Temperature float32          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *anthropicProvider) Generate(ctx context.Context, messages []domain.Message, systemPrompt string, temperature float32, maxTokens int) (string, error) {
	resp, err := p.createMessage(ctx, anthropicRequest{
		Model:       p.model,
		System:      systemPrompt,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", &Error{Provider: "anthropic", Err: fmt.Errorf("response contained no content blocks")}
	}
	return resp.Content[0].Text, nil
}

func (p *anthropicProvider) createMessage(ctx context.Context, body anthropicRequest) (*anthropicResponse, error) {
	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Provider: "anthropic", Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(reqBody))
	if err != nil {
		return nil, &Error{Provider: "anthropic", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Provider: "anthropic", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var apiResp anthropicResponse
		if json.Unmarshal(raw, &apiResp) == nil && apiResp.Error != nil {
			return nil, &Error{Provider: "anthropic", Err: fmt.Errorf("%s: %s", apiResp.Error.Type, apiResp.Error.Message)}
		}
		return nil, &Error{Provider: "anthropic", Err: fmt.Errorf("status %d: %s", resp.StatusCode, raw)}
	}

	var apiResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &Error{Provider: "anthropic", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return &apiResp, nil
}

func (p *anthropicProvider) HealthCheck(ctx context.Context) bool {
	// Minimal one-token completion; there is no cheaper authenticated call.
	_, err := p.createMessage(ctx, anthropicRequest{
		Model:     p.model,
		Messages:  []domain.Message{{Role: domain.RoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	return err == nil
}

func (p *anthropicProvider) ListModels(ctx context.Context) ([]string, error) {
	return nil, ErrListingUnsupported
}
