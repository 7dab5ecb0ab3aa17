package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Validate when no Anthropic API key is
// configured by file or environment.
var ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY not found (set it in the environment or a .env file)")

// Config holds all postop configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Anthropic API configuration
	LLM LLMConfig `yaml:"llm"`

	// Reference material locations
	Content ContentConfig `yaml:"content"`

	// UI settings
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the Anthropic client.
type LLMConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
}

// ContentConfig locates the clinical reference material on disk.
type ContentConfig struct {
	// Directory of patient handout PDFs
	HandoutsDir string `yaml:"handouts_dir"`

	// Directory of plain-text clinical protocols
	ProtocolsDir string `yaml:"protocols_dir"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	Theme string `yaml:"theme"` // auto, dark, light
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Debug bool   `yaml:"debug"` // enable per-category file logs
	Dir   string `yaml:"dir"`

	// Per-category toggles; absent categories default to enabled
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "postop",
		Version: "1.0.0",

		LLM: LLMConfig{
			Model:     "claude-sonnet-4-20250514",
			BaseURL:   "https://api.anthropic.com/v1",
			MaxTokens: 2000,
		},

		Content: ContentConfig{
			HandoutsDir:  "postop_handouts",
			ProtocolsDir: "protocols",
		},

		UI: UIConfig{
			Theme: "auto",
		},

		Logging: LoggingConfig{
			Level: "info",
			Debug: false,
			Dir:   filepath.Join(".postop", "logs"),
		},
	}
}

// DefaultPath returns the default path to .postop/config.yaml.
func DefaultPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".postop", "config.yaml")
	}
	return filepath.Join(cwd, ".postop", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("POSTOP_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("POSTOP_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if dir := os.Getenv("POSTOP_HANDOUTS_DIR"); dir != "" {
		c.Content.HandoutsDir = dir
	}
	if dir := os.Getenv("POSTOP_PROTOCOLS_DIR"); dir != "" {
		c.Content.ProtocolsDir = dir
	}
	if theme := os.Getenv("POSTOP_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// ValidThemes lists all supported UI themes.
var ValidThemes = []string{"auto", "dark", "light"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return ErrMissingAPIKey
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("model not configured")
	}

	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}

	validTheme := false
	for _, t := range ValidThemes {
		if c.UI.Theme == t {
			validTheme = true
			break
		}
	}
	if !validTheme {
		return fmt.Errorf("invalid theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}

	return nil
}
