// Package personality resolves which AI personality applies to a sender,
// based on personality definitions and email mapping rules loaded from JSON.
package personality

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/collabtools/webex-ai-bot/internal/domain"
)

const (
	personalitiesFile = "personalities.json"
	mappingsFile      = "user-mappings.json"
)

// Service resolves personalities for sender emails. All reads go through a
// RWMutex so Reload swaps state atomically; readers never observe a mix of
// old and new configuration.
type Service struct {
	configDir string

	mu            sync.RWMutex
	personalities map[string]domain.Personality
	mappings      []domain.MappingRule
	defaultKey    string
}

type mappingsDoc struct {
	DefaultPersonality string               `json:"default_personality"`
	Mappings           []domain.MappingRule `json:"mappings"`
}

// NewService loads personalities.json and user-mappings.json from configDir.
// Malformed or inconsistent configuration is a hard error; the bot must not
// start with partially parsed personality data.
func NewService(configDir string) (*Service, error) {
	s := &Service{configDir: configDir}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) load() error {
	personalities, err := loadPersonalities(filepath.Join(s.configDir, personalitiesFile))
	if err != nil {
		return err
	}

	defaultKey, mappings, err := loadMappings(filepath.Join(s.configDir, mappingsFile))
	if err != nil {
		return err
	}

	if _, ok := personalities[defaultKey]; !ok {
		return fmt.Errorf("default personality %q not defined in %s", defaultKey, personalitiesFile)
	}

	s.mu.Lock()
	s.personalities = personalities
	s.mappings = mappings
	s.defaultKey = defaultKey
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"personalities": len(personalities),
		"mappings":      len(mappings),
	}).Info("Loaded personality configuration")
	return nil
}

func loadPersonalities(path string) (map[string]domain.Personality, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read personalities: %w", err)
	}

	var personalities map[string]domain.Personality
	if err := json.Unmarshal(raw, &personalities); err != nil {
		return nil, fmt.Errorf("failed to parse personalities: %w", err)
	}

	for key, p := range personalities {
		if p.Temperature < 0 || p.Temperature > 1 {
			return nil, fmt.Errorf("personality %q: temperature %v out of range [0,1]", key, p.Temperature)
		}
		if p.MaxTokens <= 0 {
			return nil, fmt.Errorf("personality %q: max_tokens must be positive", key)
		}
		p.Key = key
		personalities[key] = p
	}
	return personalities, nil
}

func loadMappings(path string) (string, []domain.MappingRule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read user mappings: %w", err)
	}

	var doc mappingsDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", nil, fmt.Errorf("failed to parse user mappings: %w", err)
	}

	if doc.DefaultPersonality == "" {
		doc.DefaultPersonality = "default"
	}

	for i, rule := range doc.Mappings {
		if rule.Type != domain.MappingExact && rule.Type != domain.MappingPattern {
			return "", nil, fmt.Errorf("mapping %d: unknown type %q", i, rule.Type)
		}
	}
	return doc.DefaultPersonality, doc.Mappings, nil
}

// Resolve returns the personality for a sender email. Exact rules are
// checked first in order, then pattern rules in order; with no match the
// default personality applies. Resolve never fails.
func (s *Service) Resolve(email string) domain.Personality {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emailLower := strings.ToLower(email)

	for _, rule := range s.mappings {
		if rule.Type != domain.MappingExact {
			continue
		}
		if strings.ToLower(rule.Match) == emailLower {
			if p, ok := s.personalities[rule.Personality]; ok {
				log.WithFields(log.Fields{"email": email, "personality": rule.Personality}).Debug("Exact mapping match")
				return p
			}
		}
	}

	for _, rule := range s.mappings {
		if rule.Type != domain.MappingPattern {
			continue
		}
		// path.Match implements shell-glob semantics (*, ?, character
		// classes). A malformed pattern simply never matches.
		matched, err := path.Match(strings.ToLower(rule.Match), emailLower)
		if err != nil {
			log.WithField("pattern", rule.Match).Warn("Malformed mapping pattern")
			continue
		}
		if matched {
			if p, ok := s.personalities[rule.Personality]; ok {
				log.WithFields(log.Fields{"email": email, "personality": rule.Personality}).Debug("Pattern mapping match")
				return p
			}
		}
	}

	return s.personalities[s.defaultKey]
}

// GetByName looks up a personality by key, for explicit selection via the
// "use prompt" command.
func (s *Service) GetByName(key string) (domain.Personality, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.personalities[key]
	return p, ok
}

// List returns all personalities as key/name pairs, sorted by key.
func (s *Service) List() []domain.PersonalityInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]domain.PersonalityInfo, 0, len(s.personalities))
	for key, p := range s.personalities {
		infos = append(infos, domain.PersonalityInfo{Key: key, Name: p.Name})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos
}

// Reload re-reads the configuration files. On failure the previous state is
// kept and the error returned.
func (s *Service) Reload() error {
	return s.load()
}
