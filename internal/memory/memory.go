// Package memory holds sliding-window conversation history per Webex room.
// Everything here is in-memory by design; history is lost on restart.
package memory

import (
	"sync"

	"github.com/collabtools/webex-ai-bot/internal/domain"
)

// DefaultMaxMessages is the history window used when no size is configured.
const DefaultMaxMessages = 20

// Store keeps a bounded message history per room ID.
type Store struct {
	mu          sync.RWMutex
	maxMessages int
	rooms       map[string][]domain.Message
}

// NewStore creates a store with the given window size. Sizes below 1 fall
// back to DefaultMaxMessages.
func NewStore(maxMessages int) *Store {
	if maxMessages < 1 {
		maxMessages = DefaultMaxMessages
	}
	return &Store{
		maxMessages: maxMessages,
		rooms:       make(map[string][]domain.Message),
	}
}

// History returns a copy of the message history for a room, oldest first.
// Unknown rooms yield an empty slice.
func (s *Store) History(roomID string) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.rooms[roomID]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Add appends a message to a room's history, evicting the oldest entries
// once the window is full. The room entry is created on first use.
func (s *Store) Add(roomID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(s.rooms[roomID], domain.Message{Role: role, Content: content})
	if len(msgs) > s.maxMessages {
		msgs = msgs[len(msgs)-s.maxMessages:]
	}
	s.rooms[roomID] = msgs
}

// Clear drops all history for a room. No-op if the room is unknown.
func (s *Store) Clear(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}
