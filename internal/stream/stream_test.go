package stream_test

import (
	"context"
	"strings"
	"testing"

	"github.com/woodwose/tablemuse/internal/stream"
)

// ── Segmenter ───────────────────────────────────────────────────────

func TestSegmenterTokenSequence(t *testing.T) {
	tokens := []string{"Hello", " world", ".", " How", " are", " you", "?"}

	var seg stream.Segmenter
	var sentences []string
	for _, tok := range tokens {
		sentences = append(sentences, seg.Push(tok)...)
	}
	if rest := seg.Flush(); rest != "" {
		sentences = append(sentences, rest)
	}

	want := []string{"Hello world.", "How are you?"}
	if len(sentences) != len(want) {
		t.Fatalf("sentences = %q, want %q", sentences, want)
	}
	for i := range want {
		if sentences[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, sentences[i], want[i])
		}
	}
	if got := seg.Full(); got != "Hello world. How are you?" {
		t.Errorf("Full() = %q", got)
	}
}

func TestSegmenterMultipleSentencesInOneToken(t *testing.T) {
	var seg stream.Segmenter
	got := seg.Push("First. Second! Third? tail")
	want := []string{"First.", "Second!", "Third?"}
	if len(got) != len(want) {
		t.Fatalf("Push = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
	if rest := seg.Flush(); rest != "tail" {
		t.Errorf("Flush() = %q, want %q", rest, "tail")
	}
}

func TestSegmenterTerminalPunctuationNeedsWhitespace(t *testing.T) {
	var seg stream.Segmenter
	if got := seg.Push("Version 2.5 shipped"); len(got) != 0 {
		t.Fatalf("abbreviation split too early: %q", got)
	}
	if got := seg.Push(". Done"); len(got) != 1 || got[0] != "Version 2.5 shipped." {
		t.Fatalf("Push = %q", got)
	}
	if rest := seg.Flush(); rest != "Done" {
		t.Errorf("Flush() = %q", rest)
	}
}

func TestSegmenterPunctuationRun(t *testing.T) {
	var seg stream.Segmenter
	got := seg.Push("What?! No way. ")
	// The boundary sits after the last terminal of the run.
	joined := strings.Join(got, " ")
	if !strings.Contains(joined, "What?") || !strings.HasSuffix(joined, "No way.") {
		t.Fatalf("Push = %q", got)
	}
	if rest := seg.Flush(); rest != "" {
		t.Errorf("Flush() = %q, want empty", rest)
	}
}

func TestSegmenterFlushEmpty(t *testing.T) {
	var seg stream.Segmenter
	if rest := seg.Flush(); rest != "" {
		t.Errorf("Flush() of empty segmenter = %q", rest)
	}
	if full := seg.Full(); full != "" {
		t.Errorf("Full() of empty segmenter = %q", full)
	}
}

// ── Extractor table ─────────────────────────────────────────────────

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"token field", `{"token":"Hello"}`, "Hello"},
		{"delta content", `{"delta":{"content":" world"}}`, " world"},
		{"choices delta", `{"choices":[{"delta":{"content":"."}}]}`, "."},
		{"empty token field", `{"token":""}`, ""},
		{"finish frame", `{"choices":[{"delta":{},"finish_reason":"stop"}]}`, ""},
		{"role-only first delta", `{"delta":{"role":"assistant"}}`, ""},
		{"choices role-only delta", `{"choices":[{"delta":{"role":"assistant"}}]}`, ""},
		{"raw literal fallback", `plain text token`, "plain text token"},
		{"malformed json", `{"token":`, `{"token":`},
		{"unknown shape", `{"message":"hi"}`, `{"message":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stream.ExtractToken([]byte(tt.payload)); got != tt.want {
				t.Errorf("ExtractToken(%q) = %q, want %q", tt.payload, got, tt.want)
			}
		})
	}
}

// ── Decoder ─────────────────────────────────────────────────────────

func TestDecoderEndMarker(t *testing.T) {
	body := strings.Join([]string{
		`data: {"token":"Hello"}`,
		`data: {"token":" world"}`,
		`data: {"token":"."}`,
		`data: {"token":" How"}`,
		`data: {"token":" are"}`,
		`data: {"token":" you"}`,
		`data: {"token":"?"}`,
		`data: [DONE]`,
		`data: {"token":"ignored"}`,
	}, "\n")

	var sentences []string
	dec := stream.NewDecoder(func(s string) { sentences = append(sentences, s) })
	full, err := dec.Decode(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if full != "Hello world. How are you?" {
		t.Errorf("full = %q", full)
	}
	want := []string{"Hello world.", "How are you?"}
	if len(sentences) != len(want) {
		t.Fatalf("sentences = %q, want %q", sentences, want)
	}
	for i := range want {
		if sentences[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, sentences[i], want[i])
		}
	}
}

func TestDecoderCloseWithoutMarkerFlushes(t *testing.T) {
	body := "data: {\"token\":\"The bridge\"}\ndata: {\"token\":\" collapses\"}\n"

	var sentences []string
	dec := stream.NewDecoder(func(s string) { sentences = append(sentences, s) })
	full, err := dec.Decode(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if full != "The bridge collapses" {
		t.Errorf("full = %q", full)
	}
	if len(sentences) != 1 || sentences[0] != "The bridge collapses" {
		t.Errorf("sentences = %q", sentences)
	}
}

func TestDecoderSkipsNonDataLines(t *testing.T) {
	body := strings.Join([]string{
		`: keep-alive`,
		``,
		`event: message`,
		`data: {"delta":{"content":"Ready."}}`,
		`data: [DONE]`,
	}, "\n")

	dec := stream.NewDecoder(nil)
	full, err := dec.Decode(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if full != "Ready." {
		t.Errorf("full = %q", full)
	}
}

func TestDecoderCRLFFrames(t *testing.T) {
	body := "data: {\"token\":\"Hi.\"}\r\ndata: [DONE]\r\n"

	dec := stream.NewDecoder(nil)
	full, err := dec.Decode(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if full != "Hi." {
		t.Errorf("full = %q", full)
	}
}

func TestDecoderIgnoresContentFreeFrames(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"delta":{"content":"Done."}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	}, "\n")

	dec := stream.NewDecoder(nil)
	full, err := dec.Decode(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if full != "Done." {
		t.Errorf("full = %q, want only the content delta", full)
	}
}

func TestDecoderRawLiteralFrames(t *testing.T) {
	body := "data: The dragon roars. \ndata: [DONE]\n"

	var sentences []string
	dec := stream.NewDecoder(func(s string) { sentences = append(sentences, s) })
	if _, err := dec.Decode(context.Background(), strings.NewReader(body)); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(sentences) != 1 || sentences[0] != "The dragon roars." {
		t.Errorf("sentences = %q", sentences)
	}
}

func TestDecoderContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := "data: {\"token\":\"never\"}\ndata: [DONE]\n"
	dec := stream.NewDecoder(nil)
	if _, err := dec.Decode(ctx, strings.NewReader(body)); err == nil {
		t.Fatal("expected cancellation error")
	}
}
