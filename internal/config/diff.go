package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider changes
// require a restart and are reported via RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// GameChanged is true if any hot-reloadable game setting changed.
	GameChanged bool
	NewGame     GameConfig

	// RestartRequired is true when a change cannot be applied live
	// (provider entries, listen address, TLS, storage directory).
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Game != new.Game {
		d.GameChanged = true
		d.NewGame = new.Game
	}

	if providersChanged(&old.Providers, &new.Providers) ||
		old.Server.ListenAddr != new.Server.ListenAddr ||
		tlsChanged(old.Server.TLS, new.Server.TLS) ||
		old.Storage != new.Storage {
		d.RestartRequired = true
	}

	return d
}

// providersChanged compares provider blocks. The Options maps are not
// comparable and are ignored; an option change alone does not trigger the
// restart signal.
func providersChanged(old, new *ProvidersConfig) bool {
	if !entryEqual(old.LLM, new.LLM) || !entryEqual(old.TTS, new.TTS) || !entryEqual(old.STT, new.STT) {
		return true
	}
	return !entriesEqual(old.LLMFallbacks, new.LLMFallbacks) ||
		!entriesEqual(old.TTSFallbacks, new.TTSFallbacks) ||
		!entriesEqual(old.STTFallbacks, new.STTFallbacks)
}

func entriesEqual(a, b []ProviderEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !entryEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func entryEqual(a, b ProviderEntry) bool {
	return a.Name == b.Name && a.APIKey == b.APIKey && a.BaseURL == b.BaseURL && a.Model == b.Model
}

func tlsChanged(old, new *TLSConfig) bool {
	if (old == nil) != (new == nil) {
		return true
	}
	if old == nil {
		return false
	}
	return *old != *new
}
