// Package prompt assembles the model-facing payload for one character turn:
// the persona system string and the bounded, role-tagged conversation context.
//
// Nothing here is cached. Health, roster membership, and transcript history
// all change between turns, so every request is built fresh from the current
// state.
package prompt

import (
	"strings"

	"github.com/woodwose/tablemuse/internal/locale"
	"github.com/woodwose/tablemuse/internal/roster"
	"github.com/woodwose/tablemuse/internal/transcript"
	"github.com/woodwose/tablemuse/pkg/provider/llm"
)

// DefaultContextWindow bounds how many recent transcript entries are included
// in assembled context when no override is configured.
const DefaultContextWindow = 15

// Builder assembles personas and conversation context for a fixed locale.
type Builder struct {
	loc    locale.Locale
	window int
}

// Option is a functional option for Builder.
type Option func(*Builder)

// WithContextWindow overrides the number of transcript entries included in
// assembled context. Values < 1 are ignored.
func WithContextWindow(n int) Option {
	return func(b *Builder) {
		if n >= 1 {
			b.window = n
		}
	}
}

// NewBuilder creates a Builder for the given locale.
func NewBuilder(loc locale.Locale, opts ...Option) *Builder {
	b := &Builder{loc: loc, window: DefaultContextWindow}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Locale returns the builder's narration locale.
func (b *Builder) Locale() locale.Locale { return b.loc }

// Persona builds the full system string for ch: the fixed narrative
// instruction, the localized backstory, an optional health qualifier, and an
// optional one-line roster of companions with their health status.
//
// companions should be the rest of the party; ch itself is filtered out
// by name if present.
func (b *Builder) Persona(ch roster.Character, companions []roster.Character, includeHealth bool) string {
	var sb strings.Builder
	sb.WriteString(locale.BasePreprompt(b.loc))
	sb.WriteString(" ")
	sb.WriteString(locale.YouAre(b.loc))
	sb.WriteString(" ")
	sb.WriteString(strings.TrimSpace(ch.Backstory))

	if includeHealth {
		sb.WriteString(" ")
		sb.WriteString(locale.HealthQualifier(b.loc, ch.Health))
	}

	var lines []string
	for _, c := range companions {
		if strings.EqualFold(c.Name, ch.Name) {
			continue
		}
		lines = append(lines, companionLine(b.loc, c))
	}
	if len(lines) > 0 {
		sb.WriteString(" ")
		sb.WriteString(locale.CompanionsIntro(b.loc))
		sb.WriteString(" ")
		sb.WriteString(strings.Join(lines, " "))
	}

	return strings.TrimSpace(sb.String())
}

// companionLine renders one companion as "Name (status): first line of
// backstory." Long backstories are cut at the first sentence to keep the
// persona bounded.
func companionLine(loc locale.Locale, c roster.Character) string {
	desc := firstSentence(c.Backstory)
	status := locale.CompanionStatus(loc, c.Health)
	if desc == "" {
		return c.Name + " (" + status + ")."
	}
	return c.Name + " (" + status + "): " + desc
}

// firstSentence returns text up to and including the first terminal
// punctuation mark, trimmed.
func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return text[:i+1]
		}
	}
	return text
}

// GMMessage formats the GM's narration as the request-driving user message,
// appending the localized action prompt.
func (b *Builder) GMMessage(text string) string {
	return locale.ActionPrompt(b.loc, text)
}

// Context converts transcript history into a bounded list of role-tagged
// messages personalized for the addressee:
//
//   - GM entries become "user" messages with the localized GM prefix.
//   - The addressee's own past lines become "assistant" messages, unprefixed.
//   - Other characters' lines become "user" messages prefixed with the
//     teammate's name.
//
// Only the most recent window entries are included, in chronological order.
// The payload carries no truncation marker.
func (b *Builder) Context(entries []transcript.Entry, addressee string) []llm.Message {
	if len(entries) > b.window {
		entries = entries[len(entries)-b.window:]
	}

	out := make([]llm.Message, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.Sender == transcript.SenderGM:
			out = append(out, llm.Message{
				Role:    llm.RoleUser,
				Content: locale.GMLine(b.loc, e.Text),
			})
		case strings.EqualFold(e.CharacterName, addressee):
			out = append(out, llm.Message{
				Role:    llm.RoleAssistant,
				Content: e.Text,
			})
		default:
			out = append(out, llm.Message{
				Role:    llm.RoleUser,
				Content: locale.TeammateLine(b.loc, e.CharacterName, e.Text),
			})
		}
	}
	return out
}

// Request assembles the complete completion request for one character turn:
// persona as the system prompt, bounded context, and the GM's new line (if
// any) as the final user message.
func (b *Builder) Request(ch roster.Character, companions []roster.Character, history []transcript.Entry, gmMessage string) llm.CompletionRequest {
	messages := b.Context(history, ch.Name)
	if strings.TrimSpace(gmMessage) != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleUser,
			Content: b.GMMessage(gmMessage),
		})
	}
	return llm.CompletionRequest{
		SystemPrompt: b.Persona(ch, companions, true),
		Messages:     messages,
	}
}
