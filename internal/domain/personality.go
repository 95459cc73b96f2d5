package domain

// Personality is a named behavior profile applied to LLM calls.
type Personality struct {
	Key          string  `json:"-"`
	Name         string  `json:"name"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float32 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

// PersonalityInfo is the short listing form used by help output.
type PersonalityInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Mapping rule types.
const (
	MappingExact   = "exact"
	MappingPattern = "pattern"
)

// MappingRule maps a sender email (exactly or by glob pattern) to a
// personality key. Rules are evaluated in order: all exact rules first,
// then all pattern rules.
type MappingRule struct {
	Type        string `json:"type"`
	Match       string `json:"match"`
	Personality string `json:"personality"`
}
