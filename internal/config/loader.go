package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/woodwose/tablemuse/internal/roster"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "openai-compatible"},
	"tts": {"elevenlabs"},
	"stt": {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and validates
// the result. Unknown YAML keys are rejected so typos surface at startup.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	for _, fb := range cfg.Providers.LLMFallbacks {
		validateProviderName("llm", fb.Name)
	}
	validateProviderName("tts", cfg.Providers.TTS.Name)
	for _, fb := range cfg.Providers.TTSFallbacks {
		validateProviderName("tts", fb.Name)
	}
	validateProviderName("stt", cfg.Providers.STT.Name)
	for _, fb := range cfg.Providers.STTFallbacks {
		validateProviderName("stt", fb.Name)
	}

	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; characters will only serve canned offline lines")
	}
	for kind, fallbacks := range map[string][]ProviderEntry{
		"llm_fallbacks": cfg.Providers.LLMFallbacks,
		"tts_fallbacks": cfg.Providers.TTSFallbacks,
		"stt_fallbacks": cfg.Providers.STTFallbacks,
	} {
		for i, fb := range fallbacks {
			if fb.Name == "" {
				errs = append(errs, fmt.Errorf("providers.%s[%d].name is required", kind, i))
			}
		}
	}

	// Game
	if !cfg.Game.Locale.IsValid() {
		errs = append(errs, fmt.Errorf("game.locale %q is invalid; valid values: en, fr", cfg.Game.Locale))
	}
	if cfg.Game.MaxHealth < 1 || cfg.Game.MaxHealth > roster.MaxHealth {
		errs = append(errs, fmt.Errorf("game.max_health must be in [1, %d], got %d", roster.MaxHealth, cfg.Game.MaxHealth))
	}
	if cfg.Game.MaxTurns < 1 {
		errs = append(errs, fmt.Errorf("game.max_turns must be ≥ 1, got %d", cfg.Game.MaxTurns))
	}
	if cfg.Game.ContextWindow < 1 {
		errs = append(errs, fmt.Errorf("game.context_window must be ≥ 1, got %d", cfg.Game.ContextWindow))
	}
	if cfg.Game.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("game.request_timeout must not be negative, got %s", cfg.Game.RequestTimeout.Std()))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
