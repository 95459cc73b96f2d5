// Package webex is a minimal REST client for the Webex messaging API,
// covering only what the bot needs: fetching a message by ID, posting a
// reply, and identifying the bot's own account.
package webex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://webexapis.com/v1"

// Room types as reported by the Webex API.
const (
	RoomTypeDirect = "direct"
	RoomTypeGroup  = "group"
)

// Message is a Webex message as returned by GET /messages/{id}.
type Message struct {
	ID          string `json:"id"`
	RoomID      string `json:"roomId"`
	RoomType    string `json:"roomType"`
	Text        string `json:"text"`
	PersonID    string `json:"personId"`
	PersonEmail string `json:"personEmail"`
}

// Person is a Webex account as returned by GET /people/me.
type Person struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Emails      []string `json:"emails"`
}

// Client talks to the Webex REST API with bot-token authentication.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Webex API client.
func NewClient(token string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL creates a client against a non-default API base.
// Used by tests.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webex request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webex API error (status %d): %s", resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode webex response: %w", err)
		}
	}
	return nil
}

// GetMessage fetches the full message for a webhook-delivered message ID.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	var msg Message
	if err := c.do(ctx, http.MethodGet, "/messages/"+messageID, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendText posts a plain-text message to a room.
func (c *Client) SendText(ctx context.Context, roomID, text string) error {
	body := map[string]string{"roomId": roomID, "text": text}
	if err := c.do(ctx, http.MethodPost, "/messages", body, nil); err != nil {
		return err
	}
	log.WithField("room", roomID).Debug("Sent message")
	return nil
}

// GetMe returns the bot's own account, used to discover the bot ID when it
// is not configured.
func (c *Client) GetMe(ctx context.Context) (*Person, error) {
	var person Person
	if err := c.do(ctx, http.MethodGet, "/people/me", nil, &person); err != nil {
		return nil, err
	}
	return &person, nil
}
