package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabtools/webex-ai-bot/internal/domain"
	"github.com/collabtools/webex-ai-bot/internal/personality"
	"github.com/collabtools/webex-ai-bot/internal/provider"
	"github.com/collabtools/webex-ai-bot/internal/users"
)

type fakeSender struct {
	messages []string
	rooms    []string
}

func (f *fakeSender) SendText(ctx context.Context, roomID, text string) error {
	f.rooms = append(f.rooms, roomID)
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeSender) last() string {
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

type fakeProvider struct {
	reply       string
	generateErr error
	healthy     bool
	models      []string
	listErr     error
	gotMessages []domain.Message
	gotPrompt   string
}

func (f *fakeProvider) Generate(ctx context.Context, messages []domain.Message, systemPrompt string, temperature float32, maxTokens int) (string, error) {
	f.gotMessages = messages
	f.gotPrompt = systemPrompt
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.reply, nil
}

func (f *fakeProvider) HealthCheck(ctx context.Context) bool { return f.healthy }

func (f *fakeProvider) ListModels(ctx context.Context) ([]string, error) {
	return f.models, f.listErr
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	personalities := `{
	  "default": {"name": "Default", "system_prompt": "Be helpful.", "temperature": 0.2, "max_tokens": 1000},
	  "code-reviewer": {"name": "Code Reviewer", "system_prompt": "Review code.", "temperature": 0.1, "max_tokens": 1500}
	}`
	mappings := `{"default_personality": "default", "mappings": []}`
	approved := `{"description": "test", "users": [{"email": "alice@company.com", "name": "Alice", "added_date": "2025-01-01", "added_by": "seed"}]}`

	require.NoError(t, os.WriteFile(filepath.Join(dir, "personalities.json"), []byte(personalities), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user-mappings.json"), []byte(mappings), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "approved_users.json"), []byte(approved), 0644))
	return dir
}

func newTestRouter(t *testing.T, prov provider.Provider) (*Router, *fakeSender) {
	t.Helper()
	dir := writeTestConfig(t)

	personalities, err := personality.NewService(dir)
	require.NoError(t, err)
	userManager, err := users.NewManager(dir, []string{"admin@company.com"})
	require.NoError(t, err)

	sender := &fakeSender{}
	return NewRouter(sender, userManager, personalities, prov), sender
}

func TestIsCommand(t *testing.T) {
	r, _ := newTestRouter(t, &fakeProvider{})

	tests := []struct {
		text string
		want bool
	}{
		{"ping", true},
		{"PING", true},
		{"  ping  ", true},
		{"help", true},
		{"health check", true},
		{"list models", true},
		{"use prompt default hello", true},
		{"add user bob@x.com", true},
		{"remove user bob@x.com", true},
		{"list users", true},
		{"reload users", true},
		{"reload prompts", true},
		{"pingpong", false},
		{"helper", false},
		{"what is the weather", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.IsCommand(tt.text), tt.text)
	}
}

func TestPing(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{})
	r.Handle(context.Background(), "ping", "alice@company.com", "room-1")
	assert.Equal(t, "pong", sender.last())
	assert.Equal(t, "room-1", sender.rooms[0])
}

func TestAdminCommandDeniedForNonAdmin(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{})
	r.Handle(context.Background(), "add user bob@company.com", "alice@company.com", "room-1")
	assert.Equal(t, "You don't have permission to use this command.", sender.last())
}

func TestHelpOmitsAdminSectionForRegularUser(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{})
	r.Handle(context.Background(), "help", "alice@company.com", "room-1")
	assert.Contains(t, sender.last(), "Available commands:")
	assert.NotContains(t, sender.last(), "Admin commands:")
}

func TestHelpIncludesAdminSectionForAdmin(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{})
	r.Handle(context.Background(), "help", "admin@company.com", "room-1")
	assert.Contains(t, sender.last(), "Admin commands:")
}

func TestHealthCheck(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{healthy: true})
	r.Handle(context.Background(), "health check", "alice@company.com", "room-1")
	assert.Equal(t, "AI service is healthy and responding.", sender.last())

	r2, sender2 := newTestRouter(t, &fakeProvider{healthy: false})
	r2.Handle(context.Background(), "health check", "alice@company.com", "room-1")
	assert.Equal(t, "AI service is not responding.", sender2.last())
}

func TestListModels(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{models: []string{"llama3", "mistral"}})
	r.Handle(context.Background(), "list models", "alice@company.com", "room-1")
	assert.Contains(t, sender.last(), "llama3")
	assert.Contains(t, sender.last(), "mistral")
}

func TestListModelsUnsupported(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{listErr: provider.ErrListingUnsupported})
	r.Handle(context.Background(), "list models", "alice@company.com", "room-1")
	assert.Contains(t, sender.last(), "only available for Ollama")
}

func TestListModelsEmpty(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{models: []string{}})
	r.Handle(context.Background(), "list models", "alice@company.com", "room-1")
	assert.Equal(t, "No models found.", sender.last())
}

func TestUsePrompt(t *testing.T) {
	prov := &fakeProvider{reply: "LGTM"}
	r, sender := newTestRouter(t, prov)
	r.Handle(context.Background(), "use prompt code-reviewer is this loop correct?", "alice@company.com", "room-1")

	assert.Equal(t, "LGTM", sender.last())
	assert.Equal(t, "Review code.", prov.gotPrompt)
	require.Len(t, prov.gotMessages, 1)
	assert.Equal(t, domain.RoleUser, prov.gotMessages[0].Role)
	assert.Equal(t, "is this loop correct?", prov.gotMessages[0].Content)
}

func TestUsePromptUnknownPersonality(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{})
	r.Handle(context.Background(), "use prompt ghost hello there", "alice@company.com", "room-1")
	assert.Contains(t, sender.last(), "'ghost' not found")
	assert.Contains(t, sender.last(), "code-reviewer")
	assert.Contains(t, sender.last(), "default")
}

func TestUsePromptTooFewArguments(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{})
	r.Handle(context.Background(), "use prompt default", "alice@company.com", "room-1")
	assert.Equal(t, "Usage: use prompt [name] [question]", sender.last())
}

func TestUsePromptProviderError(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{generateErr: errors.New("connection refused")})
	r.Handle(context.Background(), "use prompt default hello", "alice@company.com", "room-1")
	assert.Contains(t, sender.last(), "trouble connecting")
}

func TestAddUser(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{})
	r.Handle(context.Background(), "add user bob@company.com", "admin@company.com", "room-1")
	assert.Equal(t, "User bob@company.com has been approved.", sender.last())

	r.Handle(context.Background(), "add user bob@company.com", "admin@company.com", "room-1")
	assert.Equal(t, "User bob@company.com is already approved.", sender.last())
}

func TestRemoveUser(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{})
	r.Handle(context.Background(), "remove user alice@company.com", "admin@company.com", "room-1")
	assert.Equal(t, "User alice@company.com has been removed.", sender.last())

	r.Handle(context.Background(), "remove user alice@company.com", "admin@company.com", "room-1")
	assert.Equal(t, "User alice@company.com was not found in the approved list.", sender.last())
}

func TestAddUserPersistenceFailureReported(t *testing.T) {
	dir := writeTestConfig(t)
	personalities, err := personality.NewService(dir)
	require.NoError(t, err)
	userManager, err := users.NewManager(dir, []string{"admin@company.com"})
	require.NoError(t, err)

	// Replace the users file with a directory so the write-back fails.
	usersPath := filepath.Join(dir, "approved_users.json")
	require.NoError(t, os.Remove(usersPath))
	require.NoError(t, os.Mkdir(usersPath, 0755))

	sender := &fakeSender{}
	r := NewRouter(sender, userManager, personalities, &fakeProvider{})

	r.Handle(context.Background(), "add user bob@company.com", "admin@company.com", "room-1")
	assert.Equal(t, "Failed to save the approved user list; bob@company.com was not approved.", sender.last())
	assert.False(t, userManager.IsApproved("bob@company.com"))

	r.Handle(context.Background(), "remove user alice@company.com", "admin@company.com", "room-1")
	assert.Equal(t, "Failed to save the approved user list; alice@company.com was not removed.", sender.last())
	assert.True(t, userManager.IsApproved("alice@company.com"))
}

func TestListUsers(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{})
	r.Handle(context.Background(), "list users", "admin@company.com", "room-1")
	assert.True(t, strings.HasPrefix(sender.last(), "Approved users:"))
	assert.Contains(t, sender.last(), "alice@company.com (Alice)")
}

func TestReloadCommands(t *testing.T) {
	r, sender := newTestRouter(t, &fakeProvider{})
	r.Handle(context.Background(), "reload users", "admin@company.com", "room-1")
	assert.Equal(t, "Approved users reloaded from config.", sender.last())

	r.Handle(context.Background(), "reload prompts", "admin@company.com", "room-1")
	assert.Equal(t, "Personalities reloaded from config.", sender.last())
}
