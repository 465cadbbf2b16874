// Package prompts holds the fixed strings of the chat surface: role labels
// for the transcript prompt, fallback titles, the apology message, and the
// title-generation instruction. They live in an embedded YAML file so wording
// changes never touch code.
package prompts

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

type promptConfig struct {
	Roles struct {
		User string `yaml:"user"`
		Bot  string `yaml:"bot"`
	} `yaml:"roles"`
	Defaults struct {
		ConversationTitle      string `yaml:"conversation_title"`
		GeneratedTitleFallback string `yaml:"generated_title_fallback"`
	} `yaml:"defaults"`
	Apology string `yaml:"apology"`
	Title   struct {
		Instruction string `yaml:"instruction"`
	} `yaml:"title"`
}

// Registry exposes the loaded prompt strings. Immutable after load.
type Registry struct {
	cfg promptConfig
}

// NewRegistry loads the embedded prompt file.
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/prompts.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	var cfg promptConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts file: %w", err)
	}
	if cfg.Roles.User == "" || cfg.Roles.Bot == "" {
		return nil, fmt.Errorf("prompts file missing role labels")
	}
	return &Registry{cfg: cfg}, nil
}

// UserLabel is the transcript prefix for user messages ("User").
func (r *Registry) UserLabel() string { return r.cfg.Roles.User }

// BotLabel is the transcript prefix for bot messages ("Bot").
func (r *Registry) BotLabel() string { return r.cfg.Roles.Bot }

// DefaultTitle is the provisional title a new conversation carries until
// title generation replaces it, and the fallback when generation fails.
func (r *Registry) DefaultTitle() string { return r.cfg.Defaults.ConversationTitle }

// GeneratedTitleFallback replaces an empty generated title.
func (r *Registry) GeneratedTitleFallback() string { return r.cfg.Defaults.GeneratedTitleFallback }

// Apology is the bot message shown when a response fetch fails.
func (r *Registry) Apology() string { return r.cfg.Apology }

// TitlePrompt builds the full title-generation prompt for a first message.
func (r *Registry) TitlePrompt(firstMessage string) string {
	return strings.TrimSpace(r.cfg.Title.Instruction) + "\n\n" + firstMessage
}
