package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/woodwose/tablemuse/internal/config"
	"github.com/woodwose/tablemuse/internal/roster"
)

const fullYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  llm_fallbacks:
    - name: ollama
      base_url: http://localhost:11434
      model: llama3.2
  tts:
    name: elevenlabs
    api_key: el-test
  stt:
    name: openai
    api_key: sk-test
    model: whisper-1
game:
  locale: fr
  max_health: 2
  max_turns: 12
  context_window: 20
  request_timeout: 30s
  auto_advance: true
storage:
  dir: /var/lib/tablemuse
`

func TestLoadFromReader_Full(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Providers.LLM.Name != "openai" || cfg.Providers.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm = %+v", cfg.Providers.LLM)
	}
	if len(cfg.Providers.LLMFallbacks) != 1 || cfg.Providers.LLMFallbacks[0].Name != "ollama" {
		t.Errorf("llm_fallbacks = %+v", cfg.Providers.LLMFallbacks)
	}
	if cfg.Game.Locale != config.LocaleFrench {
		t.Errorf("locale = %q", cfg.Game.Locale)
	}
	if cfg.Game.MaxHealth != 2 || cfg.Game.MaxTurns != 12 || cfg.Game.ContextWindow != 20 {
		t.Errorf("game = %+v", cfg.Game)
	}
	if cfg.Game.RequestTimeout.Std() != 30*time.Second {
		t.Errorf("request_timeout = %s", cfg.Game.RequestTimeout.Std())
	}
	if !cfg.Game.AutoAdvance {
		t.Error("auto_advance should be true")
	}
	if cfg.Storage.Dir != "/var/lib/tablemuse" {
		t.Errorf("storage.dir = %q", cfg.Storage.Dir)
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(`
providers:
  llm:
    name: openai
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("default listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("default log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Game.Locale != config.LocaleEnglish {
		t.Errorf("default locale = %q", cfg.Game.Locale)
	}
	if cfg.Game.MaxHealth != 3 {
		t.Errorf("default max_health = %d", cfg.Game.MaxHealth)
	}
	if cfg.Game.MaxTurns != 10 {
		t.Errorf("default max_turns = %d", cfg.Game.MaxTurns)
	}
	if cfg.Game.ContextWindow != 15 {
		t.Errorf("default context_window = %d", cfg.Game.ContextWindow)
	}
	if cfg.Game.RequestTimeout.Std() != 45*time.Second {
		t.Errorf("default request_timeout = %s", cfg.Game.RequestTimeout.Std())
	}
	if cfg.Game.AutoAdvance {
		t.Error("auto_advance should default to false")
	}
	if cfg.Storage.Dir != "./data" {
		t.Errorf("default storage.dir = %q", cfg.Storage.Dir)
	}
}

func TestLoadFromReader_UnknownKeyRejected(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader(`
server:
  listen_adress: ":8080"
`))
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
}

func TestLoadFromReader_InvalidDuration(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader(`
game:
  request_timeout: soon
`))
	if err == nil {
		t.Fatal("expected error for invalid duration, got nil")
	}
}

func TestValidate_RejectsOversizedMaxHealth(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Game.MaxHealth = roster.MaxHealth + 2

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "game.max_health") {
		t.Errorf("error %q should mention game.max_health", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Server.LogLevel = "verbose"
	cfg.Game.Locale = "de"
	cfg.Game.MaxHealth = -1
	cfg.Providers.LLMFallbacks = []config.ProviderEntry{{}}

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	msg := err.Error()
	for _, want := range []string{"server.log_level", "game.locale", "game.max_health", "llm_fallbacks[0].name"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should mention %s", msg, want)
		}
	}
}

func TestValidate_TLSRequiresCertAndKey(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Server.TLS = &config.TLSConfig{}

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	if !strings.Contains(err.Error(), "cert_file") || !strings.Contains(err.Error(), "key_file") {
		t.Errorf("error %q should mention cert_file and key_file", err.Error())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
