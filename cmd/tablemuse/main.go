// Command tablemuse is the game server for the AI-narrated tabletop companion.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/woodwose/tablemuse/internal/config"
	"github.com/woodwose/tablemuse/internal/game"
	"github.com/woodwose/tablemuse/internal/health"
	"github.com/woodwose/tablemuse/internal/locale"
	"github.com/woodwose/tablemuse/internal/observe"
	"github.com/woodwose/tablemuse/internal/resilience"
	"github.com/woodwose/tablemuse/internal/roster"
	"github.com/woodwose/tablemuse/internal/server"
	"github.com/woodwose/tablemuse/internal/storage"
	"github.com/woodwose/tablemuse/internal/transcript"
	"github.com/woodwose/tablemuse/internal/turn"
	"github.com/woodwose/tablemuse/pkg/provider/llm"
	"github.com/woodwose/tablemuse/pkg/provider/llm/anyllm"
	oaillm "github.com/woodwose/tablemuse/pkg/provider/llm/openai"
	ssellm "github.com/woodwose/tablemuse/pkg/provider/llm/sse"
	"github.com/woodwose/tablemuse/pkg/provider/stt"
	oaistt "github.com/woodwose/tablemuse/pkg/provider/stt/openai"
	"github.com/woodwose/tablemuse/pkg/provider/tts"
	"github.com/woodwose/tablemuse/pkg/provider/tts/elevenlabs"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "tablemuse: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "tablemuse: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("tablemuse starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(context.Background(), observe.ProviderConfig{
		ServiceName: "tablemuse",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Storage ───────────────────────────────────────────────────────────────
	store, err := storage.Open(cfg.Storage.Dir)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dir", cfg.Storage.Dir)
		return 1
	}
	defer store.Close()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	llmProvider, ttsProvider, sttProvider, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Game state ────────────────────────────────────────────────────────────
	rosterStore := roster.NewStore(store)
	if characters, err := store.LoadRoster(); err != nil {
		slog.Warn("failed to load persisted roster", "err", err)
	} else if len(characters) > 0 {
		if err := rosterStore.SetRoster(characters); err != nil {
			slog.Warn("failed to restore roster", "err", err)
		} else {
			slog.Info("roster restored", "characters", len(characters))
		}
	}

	mode := turn.ModeManual
	if cfg.Game.AutoAdvance {
		mode = turn.ModeAuto
	}
	sequencer := turn.NewSequencer(rosterStore, turn.WithMode(mode))
	metrics := observe.DefaultMetrics()
	rosterStore.OnChange(func() {
		sequencer.Regenerate()
		metrics.SetRosterSize(context.Background(), int64(len(rosterStore.All())))
	})
	metrics.SetRosterSize(context.Background(), int64(len(rosterStore.All())))

	transcriptStore := transcript.NewStore(store)
	rehydrateTranscript(store, transcriptStore)

	loc := locale.Locale(cfg.Game.Locale)
	if code, err := store.LoadLanguage(); err == nil && code != "" {
		if persisted, ok := locale.Parse(code); ok {
			loc = persisted
		}
	}

	var director *game.Director
	if llmProvider != nil {
		director = game.NewDirector(rosterStore, sequencer, transcriptStore, llmProvider, loc,
			game.WithTTS(ttsProvider),
			game.WithLanguageSaver(store),
			game.WithTimeout(cfg.Game.RequestTimeout.Std()),
			game.WithMaxTurns(cfg.Game.MaxTurns),
			game.WithContextWindow(cfg.Game.ContextWindow),
		)
	} else {
		slog.Warn("no LLM provider configured — chat endpoint will report misconfiguration")
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyConfigChange(config.Diff(old, new), old.Game, new.Game, logLevel, director)
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	checks := []health.Checker{
		{Name: "storage", Check: func(context.Context) error {
			_, err := store.LoadMessageCounter()
			return err
		}},
	}
	srvDeps := server.Deps{
		Director:       director,
		Roster:         rosterStore,
		Turns:          sequencer,
		Transcript:     transcriptStore,
		TTS:            ttsProvider,
		STT:            sttProvider,
		Health:         health.New(checks...),
		Logger:         logger,
		StartingHealth: cfg.Game.MaxHealth,
	}
	if cfg.Server.TLS != nil {
		srvDeps.TLSCert = cfg.Server.TLS.CertFile
		srvDeps.TLSKey = cfg.Server.TLS.KeyFile
	}
	srv := server.New(cfg.Server.ListenAddr, srvDeps)

	printStartupSummary(cfg)

	// ── Run until signalled ───────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// applyConfigChange applies hot-reloadable settings from an edited config
// file. Provider, listen address, TLS, and storage changes require a restart
// and only produce a warning.
func applyConfigChange(d config.ConfigDiff, oldGame, newGame config.GameConfig, lvl *slog.LevelVar, director *game.Director) {
	if d.LogLevelChanged {
		lvl.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level updated", "level", d.NewLogLevel)
	}
	if d.GameChanged && director != nil {
		director.Tune(newGame.RequestTimeout.Std(), newGame.MaxTurns, newGame.ContextWindow)
		if oldGame.Locale != newGame.Locale {
			if loc, ok := locale.Parse(string(newGame.Locale)); ok {
				if err := director.SetLocale(loc); err != nil {
					slog.Warn("failed to switch locale", "err", err)
				}
			} else {
				slog.Warn("unsupported locale in config", "locale", newGame.Locale)
			}
		}
		slog.Info("game settings updated",
			"max_turns", newGame.MaxTurns,
			"context_window", newGame.ContextWindow,
			"request_timeout", newGame.RequestTimeout.Std(),
		)
	}
	if d.RestartRequired {
		slog.Warn("config change requires a restart to take effect")
	}
}

// rehydrateTranscript restores the persisted session state. Any load failure
// is logged and the fresh empty session stands.
func rehydrateTranscript(store *storage.Store, ts *transcript.Store) {
	current, err := store.LoadCurrentSession()
	if err != nil {
		slog.Warn("failed to load current session", "err", err)
	}
	archive, err := store.LoadArchivedSessions()
	if err != nil {
		slog.Warn("failed to load session archive", "err", err)
	}
	counter, err := store.LoadMessageCounter()
	if err != nil {
		slog.Warn("failed to load message counter", "err", err)
	}
	ts.Rehydrate(current, archive, counter)
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// The native openai provider speaks the SDK directly; everything else goes
	// through the any-llm multi-backend. All share APIKey + BaseURL + Model.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// Bare OpenAI-compatible endpoints no SDK covers (text-generation-webui,
	// LocalAI, bespoke proxies); speaks the SSE wire format directly.
	reg.RegisterLLM("openai-compatible", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []ssellm.Option
		if entry.APIKey != "" {
			opts = append(opts, ssellm.WithAPIKey(entry.APIKey))
		}
		return ssellm.New(entry.BaseURL, entry.Model, opts...)
	})

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────
	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if stability, similarity, ok := voiceSettings(entry.Options); ok {
			opts = append(opts, elevenlabs.WithVoiceSettings(stability, similarity))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────
	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oaistt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		return oaistt.New(entry.APIKey, entry.Model, opts...)
	})
}

// buildProviders instantiates the providers named in cfg. The LLM is wrapped
// in a circuit-breaking fallback chain when fallbacks are configured.
func buildProviders(cfg *config.Config, reg *config.Registry) (llm.Provider, tts.Provider, stt.Provider, error) {
	var (
		llmProvider llm.Provider
		ttsProvider tts.Provider
		sttProvider stt.Provider
	)

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		llmProvider = p
		slog.Info("provider created", "kind", "llm", "name", name)

		if len(cfg.Providers.LLMFallbacks) > 0 {
			chain := resilience.NewLLMFallback(p, name, resilience.FallbackConfig{})
			for _, entry := range cfg.Providers.LLMFallbacks {
				fb, err := reg.CreateLLM(entry)
				if err != nil {
					return nil, nil, nil, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
				}
				chain.AddFallback(entry.Name, fb)
				slog.Info("provider created", "kind", "llm-fallback", "name", entry.Name)
			}
			llmProvider = chain
		}
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		ttsProvider = p
		slog.Info("provider created", "kind", "tts", "name", name)

		if len(cfg.Providers.TTSFallbacks) > 0 {
			chain := resilience.NewTTSFallback(p, name, resilience.FallbackConfig{})
			for _, entry := range cfg.Providers.TTSFallbacks {
				fb, err := reg.CreateTTS(entry)
				if err != nil {
					return nil, nil, nil, fmt.Errorf("create tts fallback %q: %w", entry.Name, err)
				}
				chain.AddFallback(entry.Name, fb)
				slog.Info("provider created", "kind", "tts-fallback", "name", entry.Name)
			}
			ttsProvider = chain
		}
	}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		sttProvider = p
		slog.Info("provider created", "kind", "stt", "name", name)

		if len(cfg.Providers.STTFallbacks) > 0 {
			chain := resilience.NewSTTFallback(p, name, resilience.FallbackConfig{})
			for _, entry := range cfg.Providers.STTFallbacks {
				fb, err := reg.CreateSTT(entry)
				if err != nil {
					return nil, nil, nil, fmt.Errorf("create stt fallback %q: %w", entry.Name, err)
				}
				chain.AddFallback(entry.Name, fb)
				slog.Info("provider created", "kind", "stt-fallback", "name", entry.Name)
			}
			sttProvider = chain
		}
	}

	return llmProvider, ttsProvider, sttProvider, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Tablemuse — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	fmt.Printf("║  LLM fallbacks   : %-19d ║\n", len(cfg.Providers.LLMFallbacks))
	fmt.Printf("║  Locale          : %-19s ║\n", cfg.Game.Locale)
	fmt.Printf("║  Storage dir     : %-19s ║\n", truncate(cfg.Storage.Dir, 19))
	fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, truncate(value, 19))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-1] + "…"
	}
	return s
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger builds the process logger. The returned LevelVar lets the config
// watcher adjust verbosity without a restart.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// voiceSettings extracts stability/similarity_boost overrides from a provider
// options map. Both must be present (as numbers) to take effect.
func voiceSettings(opts map[string]any) (stability, similarity float64, ok bool) {
	stability, sOK := optFloat(opts, "stability")
	similarity, bOK := optFloat(opts, "similarity_boost")
	return stability, similarity, sOK && bOK
}

func optFloat(opts map[string]any, key string) (float64, bool) {
	if opts == nil {
		return 0, false
	}
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
