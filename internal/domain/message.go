package domain

// Message roles. The set is closed; providers reject anything else upstream.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single conversation turn. Messages live only in memory and
// are lost on restart.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
