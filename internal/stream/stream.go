// Package stream converts an incremental chat-completion token stream into
// sentence-level events for progressive rendering and speech synthesis.
//
// Two stream sources are supported: a raw server-sent-events body ("data: "
// framed lines, as emitted by OpenAI-compatible chat endpoints) via [Decoder],
// and already-decoded SDK chunk streams, which feed a [Segmenter] directly.
// The segmenter buffers tokens and emits each complete sentence as soon as
// its terminal punctuation arrives.
package stream

import (
	"strings"
	"time"
)

// DefaultRequestTimeout bounds one chat completion round trip. Callers wrap
// their request context with this (or a configured override) so a stalled
// upstream aborts instead of hanging the turn.
const DefaultRequestTimeout = 45 * time.Second

// Segmenter accumulates streamed tokens and splits them into sentences.
//
// Tokens are appended to a current-sentence buffer and to a full-response
// buffer. After each append the current buffer is scanned for terminal
// punctuation ('.', '!' or '?') followed by whitespace; every complete
// sentence found is emitted trimmed, and only the unterminated remainder is
// retained. The zero value is ready to use.
type Segmenter struct {
	sentence strings.Builder
	full     strings.Builder
}

// Push appends one token and returns any complete sentences it unlocked, in
// order. Most pushes return nil.
func (s *Segmenter) Push(token string) []string {
	if token == "" {
		return nil
	}
	s.sentence.WriteString(token)
	s.full.WriteString(token)

	var out []string
	for {
		buf := s.sentence.String()
		idx := sentenceBoundary(buf)
		if idx < 0 {
			break
		}
		emitted := strings.TrimSpace(buf[:idx+1])
		rest := strings.TrimLeft(buf[idx+1:], " \t\n\r")
		s.sentence.Reset()
		s.sentence.WriteString(rest)
		if emitted != "" {
			out = append(out, emitted)
		}
	}
	return out
}

// Flush returns the trimmed unterminated remainder, or "" if the buffer is
// empty. Called once when the stream ends.
func (s *Segmenter) Flush() string {
	rest := strings.TrimSpace(s.sentence.String())
	s.sentence.Reset()
	return rest
}

// Full returns the entire accumulated response, trimmed.
func (s *Segmenter) Full() string {
	return strings.TrimSpace(s.full.String())
}

// sentenceBoundary returns the index of the first '.', '!' or '?' character
// that is immediately followed by a whitespace character. Returns -1 if no
// such boundary exists in s. End-of-buffer is deliberately not a boundary:
// more tokens may still arrive; the stream-end flush handles the tail.
func sentenceBoundary(s string) int {
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '.', '!', '?':
			switch s[i+1] {
			case ' ', '\n', '\r', '\t':
				return i
			}
		}
	}
	return -1
}
