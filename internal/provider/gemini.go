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

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// geminiProvider talks to the Google Gemini generateContent API over HTTP.
type geminiProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGemini creates the Gemini provider.
func NewGemini(apiKey, model string) Provider {
	return &geminiProvider{
		baseURL:    geminiBaseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: RequestTimeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature     float32 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *geminiProvider) Generate(ctx context.Context, messages []domain.Message, systemPrompt string, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	body := geminiRequest{
		Contents: make([]geminiContent, 0, len(messages)),
	}
	if systemPrompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}
	for _, msg := range messages {
		role := "user"
		if msg.Role == domain.RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	body.GenerationConfig.Temperature = temperature
	body.GenerationConfig.MaxOutputTokens = maxTokens

	reqBody, err := json.Marshal(body)
	if err != nil {
		return "", &Error{Provider: "gemini", Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", &Error{Provider: "gemini", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &Error{Provider: "gemini", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Provider: "gemini", Err: err}
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return "", &Error{Provider: "gemini", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		if apiResp.Error != nil {
			return "", &Error{Provider: "gemini", Err: fmt.Errorf("%s", apiResp.Error.Message)}
		}
		return "", &Error{Provider: "gemini", Err: fmt.Errorf("status %d: %s", resp.StatusCode, raw)}
	}
	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Provider: "gemini", Err: fmt.Errorf("response contained no candidates")}
	}
	return apiResp.Candidates[0].Content.Parts[0].Text, nil
}

func (p *geminiProvider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := ctxWithTimeout(ctx)
	defer cancel()

	url := fmt.Sprintf("%s/v1beta/models?key=%s", p.baseURL, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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

func (p *geminiProvider) ListModels(ctx context.Context) ([]string, error) {
	return nil, ErrListingUnsupported
}
