// Package queue serializes non-command messages through the LLM pipeline.
// A single worker drains an unbounded FIFO queue, guaranteeing that turns
// within a conversation are never interleaved or reordered.
package queue

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/collabtools/webex-ai-bot/internal/domain"
	"github.com/collabtools/webex-ai-bot/internal/memory"
	"github.com/collabtools/webex-ai-bot/internal/personality"
	"github.com/collabtools/webex-ai-bot/internal/provider"
)

const troubleMessage = "I'm having trouble connecting to the AI service. Please try again in a moment."

// Sender posts a text reply to a room.
type Sender interface {
	SendText(ctx context.Context, roomID, text string) error
}

type job struct {
	roomID      string
	senderEmail string
	text        string
}

// Queue is a single-consumer FIFO of pending messages. Enqueue never
// blocks; the queue is unbounded by design given the expected low volume.
type Queue struct {
	sender        Sender
	provider      provider.Provider
	personalities *personality.Service
	memory        *memory.Store

	mu       sync.Mutex
	cond     *sync.Cond
	jobs     []job
	stopping bool
	done     chan struct{}
}

// New creates a processing queue. Call Start before enqueueing.
func New(sender Sender, prov provider.Provider, personalities *personality.Service, mem *memory.Store) *Queue {
	q := &Queue{
		sender:        sender,
		provider:      prov,
		personalities: personalities,
		memory:        mem,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a message job and returns immediately.
func (q *Queue) Enqueue(roomID, senderEmail, text string) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job{roomID: roomID, senderEmail: senderEmail, text: text})
	q.mu.Unlock()
	q.cond.Signal()

	log.WithFields(log.Fields{"room": roomID, "sender": senderEmail}).Debug("Enqueued message")
}

// Start spawns the single worker goroutine.
func (q *Queue) Start() {
	q.mu.Lock()
	q.stopping = false
	q.done = make(chan struct{})
	q.mu.Unlock()

	go q.worker()
	log.Info("Message queue worker started")
}

// Stop signals the worker and waits for it to finish. Jobs already
// enqueued are drained first; callers must not Enqueue concurrently with
// or after Stop.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.done == nil {
		q.mu.Unlock()
		return
	}
	q.stopping = true
	done := q.done
	q.mu.Unlock()
	q.cond.Signal()

	<-done
	log.Info("Message queue worker stopped")
}

func (q *Queue) worker() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.jobs) == 0 && !q.stopping {
			q.cond.Wait()
		}
		if len(q.jobs) == 0 && q.stopping {
			q.mu.Unlock()
			return
		}
		next := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		q.processJob(next)
	}
}

// processJob runs one message through the LLM pipeline. Failures never
// escape: provider errors produce a generic user-facing reply, and
// anything else is recovered and logged so the worker survives.
func (q *Queue) processJob(j job) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"room": j.roomID, "panic": r}).Error("Unexpected failure processing message")
		}
	}()

	ctx := context.Background()

	p := q.personalities.Resolve(j.senderEmail)
	history := q.memory.History(j.roomID)

	// Record the user turn before the LLM call so the conversation is
	// preserved even if generation fails.
	q.memory.Add(j.roomID, domain.RoleUser, j.text)

	messages := append(history, domain.Message{Role: domain.RoleUser, Content: j.text})
	reply, err := q.provider.Generate(ctx, messages, p.SystemPrompt, p.Temperature, p.MaxTokens)
	if err != nil {
		log.WithError(err).WithField("room", j.roomID).Error("LLM provider error")
		if sendErr := q.sender.SendText(ctx, j.roomID, troubleMessage); sendErr != nil {
			log.WithError(sendErr).WithField("room", j.roomID).Error("Failed to send error reply")
		}
		return
	}

	q.memory.Add(j.roomID, domain.RoleAssistant, reply)
	if err := q.sender.SendText(ctx, j.roomID, reply); err != nil {
		log.WithError(err).WithField("room", j.roomID).Error("Failed to send reply")
	}
}
