package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// endMarker terminates an SSE chat stream. Stream close without the marker is
// also treated as a normal end.
const endMarker = "[DONE]"

// Decoder reads a "data: "-framed SSE body and emits sentence events.
type Decoder struct {
	onSentence func(string)
}

// NewDecoder creates a Decoder. onSentence is invoked once per complete
// sentence, in order, on the calling goroutine; it may be nil when only the
// full response matters.
func NewDecoder(onSentence func(string)) *Decoder {
	return &Decoder{onSentence: onSentence}
}

// Decode consumes r until the end marker, stream close, or ctx cancellation.
// Each "data: " frame is resolved to a token via the extractor table and fed
// through a [Segmenter]; on stream end the unterminated remainder is flushed
// as a final sentence event. Returns the full accumulated response.
//
// A frame that is not valid JSON is tolerated as literal text. Only transport
// failures and cancellation return an error.
func (d *Decoder) Decode(ctx context.Context, r io.Reader) (string, error) {
	var seg Segmenter
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return seg.Full(), fmt.Errorf("stream: decode: %w", err)
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			// Blank keep-alives and comment lines are skipped.
			continue
		}
		if strings.TrimSpace(payload) == endMarker {
			break
		}

		token := ExtractToken([]byte(payload))
		d.emit(seg.Push(token))
	}
	if err := scanner.Err(); err != nil {
		return seg.Full(), fmt.Errorf("stream: read: %w", err)
	}

	if rest := seg.Flush(); rest != "" {
		d.emit([]string{rest})
	}
	return seg.Full(), nil
}

func (d *Decoder) emit(sentences []string) {
	if d.onSentence == nil {
		return
	}
	for _, s := range sentences {
		d.onSentence(s)
	}
}
