// Package config provides the configuration schema, loader, provider
// registry, and file watcher for the Tablemuse server.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps [time.Duration] so YAML values like "45s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler using [time.ParseDuration].
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a [time.Duration].
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LogLevel controls log verbosity for the Tablemuse server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Locale selects the language used for prompts and canned lines.
type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleFrench  Locale = "fr"
)

// IsValid reports whether lc is a recognised locale.
func (lc Locale) IsValid() bool {
	return lc == LocaleEnglish || lc == LocaleFrench
}

// Config is the root configuration structure for Tablemuse.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Game      GameConfig      `yaml:"game"`
	Storage   StorageConfig   `yaml:"storage"`
}

// ServerConfig holds network and logging settings for the Tablemuse server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each entry selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`

	// LLMFallbacks lists additional LLM backends tried in order when the
	// primary fails or its circuit breaker is open.
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks"`

	TTS ProviderEntry `yaml:"tts"`

	// TTSFallbacks lists additional TTS backends tried in order when the
	// primary fails or its circuit breaker is open.
	TTSFallbacks []ProviderEntry `yaml:"tts_fallbacks"`

	STT ProviderEntry `yaml:"stt"`

	// STTFallbacks lists additional STT backends, with the same failover
	// semantics as TTSFallbacks.
	STTFallbacks []ProviderEntry `yaml:"stt_fallbacks"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// GameConfig holds the table rules and prompt assembly settings.
type GameConfig struct {
	// Locale selects the language for prompts and canned lines. Default: "en".
	Locale Locale `yaml:"locale"`

	// MaxHealth is the hit count every character starts with, bounded by
	// [roster.MaxHealth]. Default: 3.
	MaxHealth int `yaml:"max_health"`

	// MaxTurns ends the game when the turn counter reaches it. Default: 10.
	MaxTurns int `yaml:"max_turns"`

	// ContextWindow is how many transcript entries are replayed into each
	// completion request. Default: 15.
	ContextWindow int `yaml:"context_window"`

	// RequestTimeout bounds a single completion round-trip. Default: 45s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// AutoAdvance advances the turn order automatically after each response
	// instead of waiting for an explicit advance call.
	AutoAdvance bool `yaml:"auto_advance"`
}

// StorageConfig holds the embedded database settings.
type StorageConfig struct {
	// Dir is the directory the BadgerDB files live in. Default: "./data".
	Dir string `yaml:"dir"`
}

// ApplyDefaults fills zero-valued fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Game.Locale == "" {
		c.Game.Locale = LocaleEnglish
	}
	if c.Game.MaxHealth == 0 {
		c.Game.MaxHealth = 3
	}
	if c.Game.MaxTurns == 0 {
		c.Game.MaxTurns = 10
	}
	if c.Game.ContextWindow == 0 {
		c.Game.ContextWindow = 15
	}
	if c.Game.RequestTimeout == 0 {
		c.Game.RequestTimeout = Duration(45 * time.Second)
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "./data"
	}
}
