package stream

import "encoding/json"

// Extractor attempts to pull the incremental token out of one decoded SSE
// frame payload. It reports false when the payload does not match its shape.
type Extractor func(payload []byte) (token string, ok bool)

// extractors is the strategy table of known frame shapes, tried in priority
// order. A payload matching none of them is treated as literal text.
var extractors = []Extractor{
	extractTokenField,
	extractDeltaContent,
	extractChoicesDelta,
}

// extractTokenField handles {"token":"..."} frames.
func extractTokenField(payload []byte) (string, bool) {
	var frame struct {
		Token *string `json:"token"`
	}
	if err := json.Unmarshal(payload, &frame); err != nil || frame.Token == nil {
		return "", false
	}
	return *frame.Token, true
}

// extractDeltaContent handles {"delta":{"content":"..."}} frames. A frame
// with a delta but no content (a role-only first delta) matches as an empty
// token so it never leaks into the output verbatim.
func extractDeltaContent(payload []byte) (string, bool) {
	var frame struct {
		Delta *struct {
			Content *string `json:"content"`
		} `json:"delta"`
	}
	if err := json.Unmarshal(payload, &frame); err != nil || frame.Delta == nil {
		return "", false
	}
	if frame.Delta.Content == nil {
		return "", true
	}
	return *frame.Delta.Content, true
}

// extractChoicesDelta handles OpenAI-style
// {"choices":[{"delta":{"content":"..."}}]} frames. Content-free frames in
// this shape (the finish frame, role-only first delta) match as an empty
// token.
func extractChoicesDelta(payload []byte) (string, bool) {
	var frame struct {
		Choices []struct {
			Delta struct {
				Content *string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &frame); err != nil || len(frame.Choices) == 0 {
		return "", false
	}
	content := frame.Choices[0].Delta.Content
	if content == nil {
		return "", true
	}
	return *content, true
}

// ExtractToken resolves one frame payload to its token text. JSON payloads
// are matched against the strategy table; only a payload that fails to parse
// or carries none of the known keys is returned verbatim as a literal token
// fragment. A recognised shape with no content yields the empty token.
func ExtractToken(payload []byte) string {
	for _, extract := range extractors {
		if token, ok := extract(payload); ok {
			return token
		}
	}
	return string(payload)
}
