// Package webhook routes inbound Webex webhook events: it fetches the full
// message, applies authorization, normalizes the text, and dispatches to
// the command router or the processing queue.
package webhook

import (
	"context"
	"strings"
	"unicode"

	log "github.com/sirupsen/logrus"

	"github.com/collabtools/webex-ai-bot/internal/webex"
)

// Event is the envelope Webex posts to the webhook URL. Only the message
// ID and room ID are consumed; the message body itself must be fetched.
type Event struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Resource string `json:"resource"`
	Data     struct {
		ID     string `json:"id"`
		RoomID string `json:"roomId"`
	} `json:"data"`
}

// MessageFetcher fetches a full message by ID.
type MessageFetcher interface {
	GetMessage(ctx context.Context, messageID string) (*webex.Message, error)
}

// CommandRouter recognizes and executes built-in commands.
type CommandRouter interface {
	IsCommand(text string) bool
	Handle(ctx context.Context, text, senderEmail, roomID string)
}

// Enqueuer accepts non-command messages for asynchronous processing.
type Enqueuer interface {
	Enqueue(roomID, senderEmail, text string)
}

// Approver gates which senders the bot listens to.
type Approver interface {
	IsApproved(email string) bool
}

// Handler validates and routes inbound webhook events.
type Handler struct {
	messages MessageFetcher
	botID    string
	approver Approver
	commands CommandRouter
	queue    Enqueuer
}

// NewHandler creates a webhook handler. botID is the bot's own person ID,
// used to ignore the bot's own messages.
func NewHandler(messages MessageFetcher, botID string, approver Approver, commands CommandRouter, queue Enqueuer) *Handler {
	return &Handler{
		messages: messages,
		botID:    botID,
		approver: approver,
		commands: commands,
		queue:    queue,
	}
}

// Handle processes one webhook event. Invalid events and unapproved
// senders are dropped silently; there is no reliable or desirable channel
// to reply on.
func (h *Handler) Handle(ctx context.Context, event *Event) {
	messageID := event.Data.ID
	roomID := event.Data.RoomID
	if messageID == "" || roomID == "" {
		log.Warn("Webhook missing message ID or room ID")
		return
	}

	msg, err := h.messages.GetMessage(ctx, messageID)
	if err != nil {
		log.WithError(err).WithField("message", messageID).Error("Failed to fetch message from Webex API")
		return
	}

	// Ignore the bot's own messages to avoid reply loops.
	if msg.PersonID == h.botID {
		return
	}

	if !h.approver.IsApproved(msg.PersonEmail) {
		log.WithField("sender", msg.PersonEmail).Info("Ignoring message from unapproved user")
		return
	}

	text := msg.Text

	// In group rooms Webex prepends the bot's display name; drop the
	// first whitespace-delimited token. Direct rooms carry the text
	// verbatim.
	if msg.RoomType == webex.RoomTypeGroup && text != "" {
		trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
		if idx := strings.IndexFunc(trimmed, unicode.IsSpace); idx >= 0 {
			text = trimmed[idx:]
		} else {
			text = ""
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if h.commands.IsCommand(text) {
		h.commands.Handle(ctx, text, msg.PersonEmail, roomID)
		return
	}
	h.queue.Enqueue(roomID, msg.PersonEmail, text)
}
