package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabtools/webex-ai-bot/internal/webex"
)

type fakeFetcher struct {
	msg *webex.Message
	err error
}

func (f *fakeFetcher) GetMessage(ctx context.Context, messageID string) (*webex.Message, error) {
	return f.msg, f.err
}

type fakeCommands struct {
	commandTexts []string
	handled      []string
}

func (f *fakeCommands) IsCommand(text string) bool {
	for _, t := range f.commandTexts {
		if t == text {
			return true
		}
	}
	return false
}

func (f *fakeCommands) Handle(ctx context.Context, text, senderEmail, roomID string) {
	f.handled = append(f.handled, text)
}

type fakeQueue struct {
	enqueued []string
}

func (f *fakeQueue) Enqueue(roomID, senderEmail, text string) {
	f.enqueued = append(f.enqueued, text)
}

type fakeApprover struct {
	approved map[string]bool
}

func (f *fakeApprover) IsApproved(email string) bool { return f.approved[email] }

func event(messageID, roomID string) *Event {
	e := &Event{}
	e.Data.ID = messageID
	e.Data.RoomID = roomID
	return e
}

func newTestHandler(msg *webex.Message, fetchErr error) (*Handler, *fakeCommands, *fakeQueue) {
	commands := &fakeCommands{commandTexts: []string{"ping"}}
	queue := &fakeQueue{}
	approver := &fakeApprover{approved: map[string]bool{"alice@company.com": true}}
	h := NewHandler(&fakeFetcher{msg: msg, err: fetchErr}, "bot-person-id", approver, commands, queue)
	return h, commands, queue
}

func TestMissingIdentifiersAborts(t *testing.T) {
	h, commands, queue := newTestHandler(nil, nil)

	h.Handle(context.Background(), event("", "room-1"))
	h.Handle(context.Background(), event("msg-1", ""))

	assert.Empty(t, commands.handled)
	assert.Empty(t, queue.enqueued)
}

func TestFetchFailureAborts(t *testing.T) {
	h, commands, queue := newTestHandler(nil, errors.New("api down"))
	h.Handle(context.Background(), event("msg-1", "room-1"))
	assert.Empty(t, commands.handled)
	assert.Empty(t, queue.enqueued)
}

func TestSelfMessageIgnored(t *testing.T) {
	h, commands, queue := newTestHandler(&webex.Message{
		PersonID:    "bot-person-id",
		PersonEmail: "alice@company.com",
		RoomType:    webex.RoomTypeDirect,
		Text:        "ping",
	}, nil)

	h.Handle(context.Background(), event("msg-1", "room-1"))
	assert.Empty(t, commands.handled)
	assert.Empty(t, queue.enqueued)
}

func TestUnapprovedSenderSilentlyIgnored(t *testing.T) {
	h, commands, queue := newTestHandler(&webex.Message{
		PersonID:    "someone",
		PersonEmail: "stranger@elsewhere.org",
		RoomType:    webex.RoomTypeDirect,
		Text:        "hello",
	}, nil)

	h.Handle(context.Background(), event("msg-1", "room-1"))
	assert.Empty(t, commands.handled)
	assert.Empty(t, queue.enqueued)
}

func TestGroupMentionStripped(t *testing.T) {
	h, _, queue := newTestHandler(&webex.Message{
		PersonID:    "someone",
		PersonEmail: "alice@company.com",
		RoomType:    webex.RoomTypeGroup,
		Text:        "BotName What is the weather?",
	}, nil)

	h.Handle(context.Background(), event("msg-1", "room-1"))
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "What is the weather?", queue.enqueued[0])
}

func TestDirectTextUsedVerbatim(t *testing.T) {
	h, _, queue := newTestHandler(&webex.Message{
		PersonID:    "someone",
		PersonEmail: "alice@company.com",
		RoomType:    webex.RoomTypeDirect,
		Text:        "BotName What is the weather?",
	}, nil)

	h.Handle(context.Background(), event("msg-1", "room-1"))
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "BotName What is the weather?", queue.enqueued[0])
}

func TestGroupMentionOnlyMessageDropped(t *testing.T) {
	h, commands, queue := newTestHandler(&webex.Message{
		PersonID:    "someone",
		PersonEmail: "alice@company.com",
		RoomType:    webex.RoomTypeGroup,
		Text:        "BotName",
	}, nil)

	h.Handle(context.Background(), event("msg-1", "room-1"))
	assert.Empty(t, commands.handled)
	assert.Empty(t, queue.enqueued)
}

func TestEmptyTextDropped(t *testing.T) {
	h, commands, queue := newTestHandler(&webex.Message{
		PersonID:    "someone",
		PersonEmail: "alice@company.com",
		RoomType:    webex.RoomTypeDirect,
		Text:        "   ",
	}, nil)

	h.Handle(context.Background(), event("msg-1", "room-1"))
	assert.Empty(t, commands.handled)
	assert.Empty(t, queue.enqueued)
}

func TestCommandDispatchedSynchronously(t *testing.T) {
	h, commands, queue := newTestHandler(&webex.Message{
		PersonID:    "someone",
		PersonEmail: "alice@company.com",
		RoomType:    webex.RoomTypeDirect,
		Text:        "ping",
	}, nil)

	h.Handle(context.Background(), event("msg-1", "room-1"))
	assert.Equal(t, []string{"ping"}, commands.handled)
	assert.Empty(t, queue.enqueued)
}

func TestNonCommandEnqueued(t *testing.T) {
	h, commands, queue := newTestHandler(&webex.Message{
		PersonID:    "someone",
		PersonEmail: "alice@company.com",
		RoomType:    webex.RoomTypeDirect,
		Text:        "tell me a joke",
	}, nil)

	h.Handle(context.Background(), event("msg-1", "room-1"))
	assert.Empty(t, commands.handled)
	assert.Equal(t, []string{"tell me a joke"}, queue.enqueued)
}
