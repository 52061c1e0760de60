// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription service (e.g., the OpenAI Whisper API
// or a local Whisper server) and exposes one-shot transcription of a recorded
// clip. The GM records a short utterance in the browser; the server forwards
// the encoded audio here and receives plain text back.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Request carries one recorded clip to transcribe.
type Request struct {
	// Audio is the encoded audio payload (webm, ogg, wav, or mp3).
	Audio []byte

	// Filename hints the container format to the backend (e.g., "clip.webm").
	// Required by multipart-based APIs; a sensible default is applied when
	// empty.
	Filename string

	// Language is the ISO 639-1 code of the spoken language (e.g., "en",
	// "fr"). Empty lets the backend auto-detect.
	Language string
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts the recorded clip to text. It blocks until the
	// transcription is available or ctx is cancelled.
	Transcribe(ctx context.Context, req Request) (string, error)
}
