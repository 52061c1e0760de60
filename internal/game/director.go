// Package game is the control-flow director tying the stores and providers
// together: a GM line goes into the transcript, a persona-grounded request is
// assembled for the speaking character, the model's streamed reply is cut into
// sentences (optionally piped into speech synthesis), the finalized text lands
// back in the transcript, and the turn order advances.
//
// Every speak request carries a correlation id. Only the most recent request
// may commit its result; a slower, older request that finishes late is
// discarded so it can never overwrite a newer line.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/woodwose/tablemuse/internal/locale"
	"github.com/woodwose/tablemuse/internal/observe"
	"github.com/woodwose/tablemuse/internal/prompt"
	"github.com/woodwose/tablemuse/internal/roster"
	"github.com/woodwose/tablemuse/internal/stream"
	"github.com/woodwose/tablemuse/internal/transcript"
	"github.com/woodwose/tablemuse/internal/turn"
	"github.com/woodwose/tablemuse/pkg/provider/llm"
	"github.com/woodwose/tablemuse/pkg/provider/tts"
)

// ErrUnknownCharacter is returned by Speak when the requested character is not
// on the roster. The error text may carry a "did you mean" suggestion.
var ErrUnknownCharacter = errors.New("game: unknown character")

// DefaultMaxTurns is the round limit after which the game counts as lost.
const DefaultMaxTurns = 10

// LanguageSaver persists the narration language preference. Implemented by
// internal/storage; nil disables persistence.
type LanguageSaver interface {
	SaveLanguage(code string) error
}

// Director orchestrates one table: roster, turn order, transcript, prompt
// assembly, and the LLM/TTS providers. Safe for concurrent use; overlapping
// speak requests are serialized by correlation id, last one wins.
type Director struct {
	roster     *roster.Store
	seq        *turn.Sequencer
	transcript *transcript.Store
	llm        llm.Provider

	tts       tts.Provider
	langSaver LanguageSaver
	metrics   *observe.Metrics

	mu       sync.RWMutex
	builder  *prompt.Builder
	timeout  time.Duration
	maxTurns int
	window   int

	reqSeq atomic.Int64
}

// Option is a functional option for [NewDirector].
type Option func(*Director)

// WithTTS wires a speech synthesis provider. Sentences are pipelined into it
// when the speak request supplies an audio sink and the character has a voice.
func WithTTS(p tts.Provider) Option {
	return func(d *Director) { d.tts = p }
}

// WithLanguageSaver persists locale changes made via [Director.SetLocale].
func WithLanguageSaver(s LanguageSaver) Option {
	return func(d *Director) { d.langSaver = s }
}

// WithMetrics overrides the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Director) { d.metrics = m }
}

// WithTimeout bounds one completion round trip.
// Defaults to [stream.DefaultRequestTimeout].
func WithTimeout(t time.Duration) Option {
	return func(d *Director) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithMaxTurns overrides the round limit. Defaults to [DefaultMaxTurns].
func WithMaxTurns(n int) Option {
	return func(d *Director) {
		if n >= 1 {
			d.maxTurns = n
		}
	}
}

// WithContextWindow bounds how many transcript entries feed each request.
func WithContextWindow(n int) Option {
	return func(d *Director) {
		if n >= 1 {
			d.window = n
		}
	}
}

// NewDirector creates a Director narrating in loc.
func NewDirector(rs *roster.Store, seq *turn.Sequencer, ts *transcript.Store, provider llm.Provider, loc locale.Locale, opts ...Option) *Director {
	d := &Director{
		roster:     rs,
		seq:        seq,
		transcript: ts,
		llm:        provider,
		timeout:    stream.DefaultRequestTimeout,
		maxTurns:   DefaultMaxTurns,
		window:     prompt.DefaultContextWindow,
	}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	d.builder = prompt.NewBuilder(loc, prompt.WithContextWindow(d.window))
	return d
}

// Locale returns the current narration locale.
func (d *Director) Locale() locale.Locale {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.builder.Locale()
}

// SetLocale switches the narration language and persists the preference.
func (d *Director) SetLocale(loc locale.Locale) error {
	if !loc.IsValid() {
		return fmt.Errorf("game: unsupported locale %q", loc)
	}
	d.mu.Lock()
	d.builder = prompt.NewBuilder(loc, prompt.WithContextWindow(d.window))
	d.mu.Unlock()

	if d.langSaver != nil {
		if err := d.langSaver.SaveLanguage(string(loc)); err != nil {
			return fmt.Errorf("game: persist locale: %w", err)
		}
	}
	slog.Info("narration locale changed", "locale", loc)
	return nil
}

// NewRound starts the next round and drops a localized banner into the
// transcript so the session log shows the boundary.
func (d *Director) NewRound() {
	d.seq.StartNewRound()
	n := d.seq.TurnNumber()
	if _, err := d.transcript.Append(locale.RoundBanner(d.Locale(), n), transcript.SenderGM, "", n); err != nil {
		slog.Warn("failed to record round banner", "error", err)
	}
}

// Tune applies hot-reloadable settings. Zero or out-of-range values leave the
// corresponding setting unchanged.
func (d *Director) Tune(timeout time.Duration, maxTurns, window int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if timeout > 0 {
		d.timeout = timeout
	}
	if maxTurns >= 1 {
		d.maxTurns = maxTurns
	}
	if window >= 1 && window != d.window {
		d.window = window
		d.builder = prompt.NewBuilder(d.builder.Locale(), prompt.WithContextWindow(window))
	}
}

// GMSay appends a game-master line to the transcript, tagged with the current
// round number.
func (d *Director) GMSay(text string) (transcript.Entry, error) {
	return d.transcript.Append(text, transcript.SenderGM, "", d.seq.TurnNumber())
}

// SpeakRequest describes one character response cycle.
type SpeakRequest struct {
	// Character names the speaker. Empty means whoever's turn it is.
	Character string

	// GMMessage is the optional narration driving the response. When set it
	// is appended to the transcript as a GM line before the request is built.
	GMMessage string

	// OnSentence, when non-nil, receives each completed sentence in order as
	// the stream arrives. The fallback line is also delivered here.
	OnSentence func(sentence string)

	// OnAudio, when non-nil, receives synthesized audio chunks. Requires a
	// TTS provider and a character with a configured voice; silently skipped
	// otherwise.
	OnAudio func(audio []byte)
}

// SpeakResult is the outcome of one response cycle.
type SpeakResult struct {
	// Character is the resolved speaker name.
	Character string

	// Text is the finalized response, or the fallback line on failure.
	Text string

	// Fallback reports that generation failed and Text is a canned line.
	Fallback bool

	// Stale reports that a newer request started before this one finished.
	// A stale result was NOT committed: no transcript entry, no advance.
	Stale bool

	// Entry is the committed transcript entry. Zero when Stale.
	Entry transcript.Entry
}

// Speak runs one full response cycle for a character: assemble, stream,
// segment, synthesize, commit, advance. Generation failures degrade to an
// in-character fallback line and still commit; only lookup failures and
// transcript persistence failures return an error.
func (d *Director) Speak(ctx context.Context, req SpeakRequest) (SpeakResult, error) {
	id := d.reqSeq.Add(1)

	name := req.Character
	if strings.TrimSpace(name) == "" {
		current, err := d.seq.CurrentCharacter()
		if err != nil {
			return SpeakResult{}, fmt.Errorf("game: speak: %w", err)
		}
		name = current
	}
	ch, err := d.roster.Get(name)
	if err != nil {
		if hint := d.roster.Suggest(name); hint != "" {
			return SpeakResult{}, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownCharacter, name, hint)
		}
		return SpeakResult{}, fmt.Errorf("%w: %q", ErrUnknownCharacter, name)
	}

	// History is captured before the new GM line lands so the line drives the
	// request exactly once, as the final user message.
	history := d.transcript.All()
	if strings.TrimSpace(req.GMMessage) != "" {
		if _, err := d.GMSay(req.GMMessage); err != nil {
			return SpeakResult{}, err
		}
	}

	d.mu.RLock()
	builder := d.builder
	d.mu.RUnlock()
	completion := builder.Request(ch, d.roster.Alive(), history, req.GMMessage)

	text, failed := d.generate(ctx, ch, completion, req)

	if failed {
		text = locale.FallbackLine(builder.Locale(), ch.Name)
		d.metrics.RecordFallbackLine(ctx, ch.Name)
		if req.OnSentence != nil {
			req.OnSentence(text)
		}
	}

	// Last writer wins: a slower request that lost the race never commits.
	if d.reqSeq.Load() != id {
		slog.Warn("discarding stale response", "character", ch.Name, "correlation_id", id)
		return SpeakResult{Character: ch.Name, Text: text, Fallback: failed, Stale: true}, nil
	}

	entry, err := d.transcript.Append(text, transcript.SenderCharacter, ch.Name, d.seq.TurnNumber())
	if err != nil {
		return SpeakResult{}, err
	}
	d.metrics.RecordCharacterResponse(ctx, ch.Name)

	if _, err := d.seq.Advance(); err != nil && !errors.Is(err, turn.ErrNoActiveCharacter) {
		return SpeakResult{}, fmt.Errorf("game: advance after %q: %w", ch.Name, err)
	}
	d.metrics.TurnsAdvanced.Add(ctx, 1)

	return SpeakResult{Character: ch.Name, Text: text, Fallback: failed, Entry: entry}, nil
}

// generate streams the completion and fans sentences out to the caller and,
// when wired, to speech synthesis. Returns the accumulated text and whether
// the attempt failed. A short empty reply also counts as failed so the table
// never sees a blank line.
func (d *Director) generate(ctx context.Context, ch roster.Character, completion llm.CompletionRequest, req SpeakRequest) (string, bool) {
	d.mu.RLock()
	timeout := d.timeout
	d.mu.RUnlock()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d.metrics.ActiveStreams.Add(ctx, 1)
	defer d.metrics.ActiveStreams.Add(ctx, -1)

	start := time.Now()
	chunks, err := d.llm.StreamCompletion(ctx, completion)
	if err != nil {
		slog.Error("response stream failed to start", "character", ch.Name, "error", err)
		d.metrics.RecordProviderError(ctx, "llm", "chat")
		return "", true
	}

	emit, wait := d.startSynthesis(ctx, ch, req.OnAudio)

	var seg stream.Segmenter
	deliver := func(sentences []string) {
		for _, s := range sentences {
			if req.OnSentence != nil {
				req.OnSentence(s)
			}
			if emit != nil {
				emit(s)
			}
		}
	}

	failed := false
	for chunk := range chunks {
		if chunk.FinishReason == "error" {
			slog.Error("response stream aborted", "character", ch.Name, "error", chunk.Text)
			d.metrics.RecordProviderError(ctx, "llm", "chat")
			failed = true
			break
		}
		deliver(seg.Push(chunk.Text))
	}
	if err := ctx.Err(); err != nil {
		slog.Error("response stream timed out", "character", ch.Name, "error", err)
		failed = true
	}
	if !failed {
		if rest := seg.Flush(); rest != "" {
			deliver([]string{rest})
		}
	}
	wait()

	d.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	d.metrics.RecordProviderRequest(ctx, "llm", "chat", status(failed))

	text := strings.TrimSpace(seg.Full())
	if text == "" {
		failed = true
	}
	return text, failed
}

// startSynthesis opens a streaming synthesis pipeline for the character's
// voice. It returns a sentence emitter and a wait function; both are no-ops
// (nil emitter) when synthesis is not applicable or fails to start. Synthesis
// failures never fail the speak cycle, the text still flows.
func (d *Director) startSynthesis(ctx context.Context, ch roster.Character, sink func([]byte)) (emit func(string), wait func()) {
	if d.tts == nil || sink == nil || ch.VoiceID == "" {
		return nil, func() {}
	}

	textCh := make(chan string)
	voice := tts.VoiceProfile{ID: ch.VoiceID, Name: ch.Name}
	start := time.Now()
	audio, err := d.tts.SynthesizeStream(ctx, textCh, voice)
	if err != nil {
		slog.Error("speech synthesis unavailable", "character", ch.Name, "error", err)
		d.metrics.RecordProviderError(ctx, "tts", "stream")
		return nil, func() {}
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		for chunk := range audio {
			sink(chunk)
		}
		return nil
	})

	emit = func(sentence string) {
		select {
		case textCh <- sentence:
		case <-ctx.Done():
		}
	}
	wait = func() {
		close(textCh)
		_ = g.Wait()
		d.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
		d.metrics.RecordProviderRequest(ctx, "tts", "stream", "ok")
	}
	return emit, wait
}

func status(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}
