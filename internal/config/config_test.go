package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/agentdesk/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestFindConfig_Explicit(t *testing.T) {
	path := writeConfig(t, "model:\n  provider: mock\n")

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/agentdesk.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_SearchPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	_, err := FindConfig("")
	if err == nil {
		t.Fatal("FindConfig(\"\") with no config files should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "agentdesk.yaml"), []byte("model:\n  provider: mock\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "agentdesk.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "agentdesk.yaml")
	}
}

func TestDefault_IsValidWithMockProvider(t *testing.T) {
	cfg := Default()
	cfg.Model.Provider = "mock"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if cfg.Agents.DefaultAgent != "info" {
		t.Errorf("default agent = %q, want %q", cfg.Agents.DefaultAgent, "info")
	}
	if cfg.Desk.MaxConcurrentTurns != 10 {
		t.Errorf("max concurrent turns = %d, want 10", cfg.Desk.MaxConcurrentTurns)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("AGENTDESK_TEST_KEY", "sk-secret")
	path := writeConfig(t, "model:\n  provider: openai\n  api_key: ${AGENTDESK_TEST_KEY}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model.APIKey != "sk-secret" {
		t.Errorf("api key = %q, want %q", cfg.Model.APIKey, "sk-secret")
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
model:
  provider: anthropic
  name: claude-3-5-haiku-latest
  api_key: key
  timeout: 30s
agents:
  bundles_file: agents.yaml
  default_agent: coordinator
  default_language: en
  specialists: [billing, documents]
  cache_ttl: 2m
storage:
  sqlite_path: /tmp/agentdesk.db
retrieval:
  max_results: 2
tools:
  timeout: 3s
log:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Model.Provider != "anthropic" || cfg.Model.Timeout != 30*time.Second {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Agents.DefaultAgent != "coordinator" || cfg.Agents.DefaultLanguage != "en" {
		t.Errorf("agents = %+v", cfg.Agents)
	}
	if len(cfg.Agents.Specialists) != 2 {
		t.Errorf("specialists = %v, want 2 entries", cfg.Agents.Specialists)
	}
	if cfg.Agents.CacheTTL != 2*time.Minute {
		t.Errorf("cache ttl = %v, want 2m", cfg.Agents.CacheTTL)
	}
	if cfg.Storage.SQLitePath != "/tmp/agentdesk.db" {
		t.Errorf("sqlite path = %q", cfg.Storage.SQLitePath)
	}
	if cfg.Retrieval.MaxResults != 2 {
		t.Errorf("max results = %d, want 2", cfg.Retrieval.MaxResults)
	}
	// Untouched fields keep their defaults.
	if cfg.Retrieval.ScoreThreshold != 0.2 {
		t.Errorf("score threshold = %v, want 0.2", cfg.Retrieval.ScoreThreshold)
	}
	if cfg.Tools.Timeout != 3*time.Second {
		t.Errorf("tool timeout = %v, want 3s", cfg.Tools.Timeout)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "model: [unclosed\n")

	if _, err := Load(path); err == nil {
		t.Fatal("Load with invalid YAML should error")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, "model:\n  provider: openai\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load without api key should error")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error = %v, want mention of api_key", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Model.Provider = "local"
	cfg.Agents.DefaultLanguage = "spanish"
	cfg.Agents.Specialists = []string{"info"}
	cfg.Retrieval.ScoreThreshold = 1.5
	cfg.Desk.MaxConcurrentTurns = 0
	cfg.Tools.Timeout = -time.Second
	cfg.Log.Level = "verbose"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should error")
	}

	for _, want := range []string{
		"model.provider",
		"default_language",
		"specialists",
		"score_threshold",
		"max_concurrent_turns",
		"tools.timeout",
		"log.level",
		"log.format",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestConfig_Logger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	cfg.Log.Format = "TEXT"

	var l logging.Logger = cfg.Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
}
