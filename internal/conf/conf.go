// Package conf loads application configuration from environment variables.
package conf

import (
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Config represents application configuration
type Config struct {
	// Webex configuration
	Webex WebexConfig

	// LLM backend configuration
	LLM LLMConfig

	// Bot behavior configuration
	Bot BotConfig

	// Server configuration
	Server ServerConfig

	// Logging configuration
	Log LogConfig
}

// WebexConfig contains Webex API configuration
type WebexConfig struct {
	BotToken string
	BotID    string // optional; discovered via the API when empty
}

// LLMConfig contains LLM provider configuration
type LLMConfig struct {
	Provider  string
	Model     string
	APIKey    string
	OllamaURL string
}

// BotConfig contains bot behavior configuration
type BotConfig struct {
	ConfigDir         string
	AdminEmails       []string
	MemoryMaxMessages int
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string
	File  string // optional; logs go to stdout when empty
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	memoryMax := 20
	if val := os.Getenv("MEMORY_MAX_MESSAGES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			memoryMax = parsed
		}
	}

	port := 8000
	if val := os.Getenv("PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			port = parsed
		}
	}

	ollamaURL := os.Getenv("OLLAMA_URL")
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}

	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "./config"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	var admins []string
	for _, email := range strings.Split(os.Getenv("ADMIN_EMAILS"), ",") {
		if email = strings.TrimSpace(email); email != "" {
			admins = append(admins, email)
		}
	}

	return &Config{
		Webex: WebexConfig{
			BotToken: os.Getenv("WEBEX_BOT_TOKEN"),
			BotID:    os.Getenv("WEBEX_BOT_ID"),
		},
		LLM: LLMConfig{
			Provider:  os.Getenv("LLM_PROVIDER"),
			Model:     os.Getenv("LLM_MODEL"),
			APIKey:    os.Getenv("LLM_API_KEY"),
			OllamaURL: ollamaURL,
		},
		Bot: BotConfig{
			ConfigDir:         configDir,
			AdminEmails:       admins,
			MemoryMaxMessages: memoryMax,
		},
		Server: ServerConfig{
			Port: port,
		},
		Log: LogConfig{
			Level: logLevel,
			File:  os.Getenv("LOG_FILE"),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Webex.BotToken == "" {
		return &ConfigError{Field: "WEBEX_BOT_TOKEN", Message: "required"}
	}
	if c.LLM.Provider == "" {
		return &ConfigError{Field: "LLM_PROVIDER", Message: "required"}
	}
	if c.LLM.Model == "" {
		return &ConfigError{Field: "LLM_MODEL", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

// SetupLogging configures the global logger according to the config.
func (c *Config) SetupLogging() error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return &ConfigError{Field: "LOG_LEVEL", Message: "invalid level " + strconv.Quote(c.Log.Level)}
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if c.Log.File != "" {
		f, err := os.OpenFile(c.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return &ConfigError{Field: "LOG_FILE", Message: err.Error()}
		}
		log.SetOutput(f)
	}
	return nil
}
