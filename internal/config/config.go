// Package config handles agentdesk application configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentdesk/logging"
)

// DefaultSearchPaths returns the config file search order:
// ./agentdesk.yaml, ~/.config/agentdesk/config.yaml, /etc/agentdesk/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"agentdesk.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "agentdesk", "config.yaml"))
	}

	paths = append(paths, "/etc/agentdesk/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all agentdesk configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Agents    AgentsConfig    `yaml:"agents"`
	Storage   StorageConfig   `yaml:"storage"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Tools     ToolsConfig     `yaml:"tools"`
	Desk      DeskConfig      `yaml:"desk"`
	Log       LogConfig       `yaml:"log"`
}

// ModelConfig selects the language-model provider.
type ModelConfig struct {
	// Provider is "openai", "anthropic" or "mock".
	Provider string        `yaml:"provider"`
	Name     string        `yaml:"name"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// AgentsConfig describes where agent bundles come from and how the engine
// treats agents.
type AgentsConfig struct {
	BundlesFile     string        `yaml:"bundles_file"`
	DefaultAgent    string        `yaml:"default_agent"`
	DefaultLanguage string        `yaml:"default_language"`
	Specialists     []string      `yaml:"specialists"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
}

// StorageConfig selects the conversation store. An empty SQLitePath keeps
// everything in memory.
type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// RetrievalConfig tunes the retrieval augmentor.
type RetrievalConfig struct {
	// KnowledgeFile is an optional YAML list of passages loaded into the
	// in-memory knowledge base.
	KnowledgeFile  string        `yaml:"knowledge_file"`
	MaxResults     int           `yaml:"max_results"`
	ScoreThreshold float64       `yaml:"score_threshold"`
	Timeout        time.Duration `yaml:"timeout"`
}

// ToolsConfig tunes the tool invoker.
type ToolsConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// DeskConfig tunes the conversation façade.
type DeskConfig struct {
	MaxConcurrentTurns int `yaml:"max_concurrent_turns"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider: "openai",
			Name:     "gpt-4o-mini",
			Timeout:  60 * time.Second,
		},
		Agents: AgentsConfig{
			BundlesFile:     "bundles.yaml",
			DefaultAgent:    "info",
			DefaultLanguage: "es",
			CacheTTL:        60 * time.Second,
		},
		Retrieval: RetrievalConfig{
			MaxResults:     4,
			ScoreThreshold: 0.2,
			Timeout:        5 * time.Second,
		},
		Tools: ToolsConfig{Timeout: 15 * time.Second},
		Desk:  DeskConfig{MaxConcurrentTurns: 10},
		Log:   LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path, expands environment variables and decodes it over
// Default(). The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	switch c.Model.Provider {
	case "openai", "anthropic":
		if c.Model.APIKey == "" {
			errs = append(errs, fmt.Errorf("model.api_key is required for provider %q", c.Model.Provider))
		}
	case "mock":
	default:
		errs = append(errs, fmt.Errorf("model.provider %q is not one of openai, anthropic, mock", c.Model.Provider))
	}

	if c.Agents.BundlesFile == "" {
		errs = append(errs, errors.New("agents.bundles_file is required"))
	}
	if c.Agents.DefaultAgent == "" {
		errs = append(errs, errors.New("agents.default_agent is required"))
	}
	if len(c.Agents.DefaultLanguage) != 2 {
		errs = append(errs, fmt.Errorf("agents.default_language %q must be a two-letter code", c.Agents.DefaultLanguage))
	}
	for _, s := range c.Agents.Specialists {
		if s == c.Agents.DefaultAgent {
			errs = append(errs, fmt.Errorf("agents.specialists must not contain the default agent %q", s))
		}
	}

	if c.Retrieval.MaxResults <= 0 {
		errs = append(errs, errors.New("retrieval.max_results must be positive"))
	}
	if c.Retrieval.ScoreThreshold < 0 || c.Retrieval.ScoreThreshold > 1 {
		errs = append(errs, errors.New("retrieval.score_threshold must be within [0, 1]"))
	}
	if c.Desk.MaxConcurrentTurns <= 0 {
		errs = append(errs, errors.New("desk.max_concurrent_turns must be positive"))
	}

	for name, d := range map[string]time.Duration{
		"model.timeout":     c.Model.Timeout,
		"agents.cache_ttl":  c.Agents.CacheTTL,
		"retrieval.timeout": c.Retrieval.Timeout,
		"tools.timeout":     c.Tools.Timeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Logger builds the structured logger described by c.Log.
func (c *Config) Logger() *logging.StructuredLogger {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.NewSlogLogger(level, strings.ToLower(c.Log.Format), c.Log.AddSource)
}
