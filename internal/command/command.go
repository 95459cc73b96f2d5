// Package command recognizes and executes the bot's built-in textual
// commands. Replies go straight back to the room; command handling never
// touches conversation memory.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/collabtools/webex-ai-bot/internal/domain"
	"github.com/collabtools/webex-ai-bot/internal/personality"
	"github.com/collabtools/webex-ai-bot/internal/provider"
	"github.com/collabtools/webex-ai-bot/internal/users"
)

// commandPrefixes is the closed set of recognized commands, lowercase.
var commandPrefixes = []string{
	"help",
	"ping",
	"health check",
	"list models",
	"use prompt",
	"add user",
	"remove user",
	"list users",
	"reload users",
	"reload prompts",
}

// adminPrefixes is the subset gated on admin membership.
var adminPrefixes = []string{
	"add user",
	"remove user",
	"list users",
	"reload users",
	"reload prompts",
}

const troubleMessage = "I'm having trouble connecting to the AI service. Please try again in a moment."

// Sender posts a text reply to a room.
type Sender interface {
	SendText(ctx context.Context, roomID, text string) error
}

// Router parses and executes built-in bot commands.
type Router struct {
	sender        Sender
	users         *users.Manager
	personalities *personality.Service
	provider      provider.Provider
}

// NewRouter creates a command router.
func NewRouter(sender Sender, userManager *users.Manager, personalities *personality.Service, prov provider.Provider) *Router {
	return &Router{
		sender:        sender,
		users:         userManager,
		personalities: personalities,
		provider:      prov,
	}
}

// IsCommand reports whether text starts with a recognized command prefix.
func (r *Router) IsCommand(text string) bool {
	textLower := strings.ToLower(strings.TrimSpace(text))
	for _, prefix := range commandPrefixes {
		if textLower == prefix || strings.HasPrefix(textLower, prefix+" ") {
			return true
		}
	}
	return false
}

// Handle executes a command and sends the response to the room.
func (r *Router) Handle(ctx context.Context, text, senderEmail, roomID string) {
	trimmed := strings.TrimSpace(text)
	textLower := strings.ToLower(trimmed)

	for _, prefix := range adminPrefixes {
		if strings.HasPrefix(textLower, prefix) {
			if !r.users.IsAdmin(senderEmail) {
				r.send(ctx, roomID, "You don't have permission to use this command.")
				return
			}
			break
		}
	}

	switch {
	case textLower == "help":
		r.handleHelp(ctx, roomID, senderEmail)
	case textLower == "ping":
		r.send(ctx, roomID, "pong")
	case textLower == "health check":
		r.handleHealthCheck(ctx, roomID)
	case textLower == "list models":
		r.handleListModels(ctx, roomID)
	case strings.HasPrefix(textLower, "use prompt"):
		r.handleUsePrompt(ctx, trimmed, roomID)
	case strings.HasPrefix(textLower, "add user"):
		r.handleAddUser(ctx, trimmed, senderEmail, roomID)
	case strings.HasPrefix(textLower, "remove user"):
		r.handleRemoveUser(ctx, trimmed, roomID)
	case textLower == "list users":
		r.handleListUsers(ctx, roomID)
	case textLower == "reload users":
		r.handleReloadUsers(ctx, roomID)
	case textLower == "reload prompts":
		r.handleReloadPrompts(ctx, roomID)
	}
}

func (r *Router) send(ctx context.Context, roomID, text string) {
	if err := r.sender.SendText(ctx, roomID, text); err != nil {
		log.WithError(err).WithField("room", roomID).Error("Failed to send command reply")
	}
}

func (r *Router) handleHelp(ctx context.Context, roomID, senderEmail string) {
	lines := []string{
		"Available commands:",
		"  help - Show this help message",
		"  ping - Check if the bot is alive",
		"  health check - Check AI service status",
		"  list models - List available models (Ollama only)",
		"  use prompt [name] [question] - Ask with a specific personality",
	}
	if r.users.IsAdmin(senderEmail) {
		lines = append(lines,
			"",
			"Admin commands:",
			"  add user [email] - Approve a user",
			"  remove user [email] - Remove a user",
			"  list users - Show approved users",
			"  reload users - Reload approved users from config",
			"  reload prompts - Reload personalities from config",
		)
	}
	r.send(ctx, roomID, strings.Join(lines, "\n"))
}

func (r *Router) handleHealthCheck(ctx context.Context, roomID string) {
	if r.provider.HealthCheck(ctx) {
		r.send(ctx, roomID, "AI service is healthy and responding.")
	} else {
		r.send(ctx, roomID, "AI service is not responding.")
	}
}

func (r *Router) handleListModels(ctx context.Context, roomID string) {
	models, err := r.provider.ListModels(ctx)
	if errors.Is(err, provider.ErrListingUnsupported) {
		r.send(ctx, roomID, "Model listing is only available for Ollama. Cloud providers use the model configured in settings.")
		return
	}
	if err != nil {
		log.WithError(err).Error("Failed to list models")
		r.send(ctx, roomID, troubleMessage)
		return
	}
	if len(models) == 0 {
		r.send(ctx, roomID, "No models found.")
		return
	}

	lines := []string{"Available models:"}
	for _, m := range models {
		lines = append(lines, "  - "+m)
	}
	r.send(ctx, roomID, strings.Join(lines, "\n"))
}

func (r *Router) handleUsePrompt(ctx context.Context, text, roomID string) {
	// "use prompt [name] [question]": the question is everything after
	// the personality name.
	rest := strings.TrimSpace(text[len("use prompt"):])
	name, question, _ := strings.Cut(rest, " ")
	question = strings.TrimSpace(question)
	if name == "" || question == "" {
		r.send(ctx, roomID, "Usage: use prompt [name] [question]")
		return
	}

	p, ok := r.personalities.GetByName(name)
	if !ok {
		keys := make([]string, 0)
		for _, info := range r.personalities.List() {
			keys = append(keys, info.Key)
		}
		r.send(ctx, roomID, fmt.Sprintf("Personality '%s' not found. Available: %s", name, strings.Join(keys, ", ")))
		return
	}

	reply, err := r.provider.Generate(ctx,
		[]domain.Message{{Role: domain.RoleUser, Content: question}},
		p.SystemPrompt, p.Temperature, p.MaxTokens)
	if err != nil {
		log.WithError(err).WithField("personality", name).Error("Failed to generate response")
		r.send(ctx, roomID, troubleMessage)
		return
	}
	r.send(ctx, roomID, reply)
}

func (r *Router) handleAddUser(ctx context.Context, text, senderEmail, roomID string) {
	parts := strings.Fields(text)
	if len(parts) < 3 {
		r.send(ctx, roomID, "Usage: add user [email]")
		return
	}
	email := parts[2]
	added, err := r.users.Add(email, email, senderEmail)
	if err != nil {
		log.WithError(err).Error("Failed to persist approved users")
		r.send(ctx, roomID, fmt.Sprintf("Failed to save the approved user list; %s was not approved.", email))
		return
	}
	if added {
		r.send(ctx, roomID, fmt.Sprintf("User %s has been approved.", email))
	} else {
		r.send(ctx, roomID, fmt.Sprintf("User %s is already approved.", email))
	}
}

func (r *Router) handleRemoveUser(ctx context.Context, text, roomID string) {
	parts := strings.Fields(text)
	if len(parts) < 3 {
		r.send(ctx, roomID, "Usage: remove user [email]")
		return
	}
	email := parts[2]
	removed, err := r.users.Remove(email)
	if err != nil {
		log.WithError(err).Error("Failed to persist approved users")
		r.send(ctx, roomID, fmt.Sprintf("Failed to save the approved user list; %s was not removed.", email))
		return
	}
	if removed {
		r.send(ctx, roomID, fmt.Sprintf("User %s has been removed.", email))
	} else {
		r.send(ctx, roomID, fmt.Sprintf("User %s was not found in the approved list.", email))
	}
}

func (r *Router) handleListUsers(ctx context.Context, roomID string) {
	list := r.users.List()
	if len(list) == 0 {
		r.send(ctx, roomID, "No approved users.")
		return
	}

	lines := []string{"Approved users:"}
	for _, u := range list {
		name := u.Name
		if name == "" {
			name = "N/A"
		}
		lines = append(lines, fmt.Sprintf("  - %s (%s)", u.Email, name))
	}
	r.send(ctx, roomID, strings.Join(lines, "\n"))
}

func (r *Router) handleReloadUsers(ctx context.Context, roomID string) {
	if err := r.users.Reload(); err != nil {
		log.WithError(err).Error("Failed to reload approved users")
		r.send(ctx, roomID, "Failed to reload approved users; previous configuration kept.")
		return
	}
	r.send(ctx, roomID, "Approved users reloaded from config.")
}

func (r *Router) handleReloadPrompts(ctx context.Context, roomID string) {
	if err := r.personalities.Reload(); err != nil {
		log.WithError(err).Error("Failed to reload personalities")
		r.send(ctx, roomID, "Failed to reload personalities; previous configuration kept.")
		return
	}
	r.send(ctx, roomID, "Personalities reloaded from config.")
}
