// Package provider abstracts the LLM backends behind a single contract.
// One implementation exists per backend; the factory in New selects by the
// configured provider name.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/collabtools/webex-ai-bot/internal/domain"
)

// RequestTimeout bounds every network call to a backend. Exceeding it is
// treated the same as a connection failure.
const RequestTimeout = 30 * time.Second

// ErrListingUnsupported is returned by ListModels for hosted backends that
// use a single configured model.
var ErrListingUnsupported = errors.New("model listing not supported by this provider")

// Provider is the uniform contract over all LLM backends.
type Provider interface {
	// Generate sends the system prompt plus conversation messages to the
	// backend and returns the assistant's reply text.
	Generate(ctx context.Context, messages []domain.Message, systemPrompt string, temperature float32, maxTokens int) (string, error)

	// HealthCheck performs a minimal round-trip and reports whether the
	// backend is reachable. It never returns an error.
	HealthCheck(ctx context.Context) bool

	// ListModels returns available model names, or ErrListingUnsupported
	// for backends that cannot enumerate models.
	ListModels(ctx context.Context) ([]string, error)
}

// Error wraps a backend failure with the backend's name so logs can tell
// which provider misbehaved.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config carries the provider-relevant subset of application settings.
type Config struct {
	Name      string // ollama, anthropic, openai, gemini, xai
	Model     string
	APIKey    string
	OllamaURL string
}

// New creates the provider selected by cfg.Name. Unknown names are a
// configuration error.
func New(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Name) {
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.Model), nil
	case "anthropic":
		return NewAnthropic(cfg.APIKey, cfg.Model), nil
	case "openai":
		return NewOpenAI(cfg.APIKey, cfg.Model), nil
	case "gemini":
		return NewGemini(cfg.APIKey, cfg.Model), nil
	case "xai":
		return NewXAI(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Name)
	}
}

// ctxWithTimeout applies the fixed request timeout unless the caller's
// context already expires sooner.
func ctxWithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, RequestTimeout)
}
