package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/woodwose/tablemuse/internal/game"
	"github.com/woodwose/tablemuse/internal/turn"
)

// ChatRequest drives one character response. PlayerName selects the speaker;
// empty means whoever's turn it is. MJMessage is the GM narration (optional if
// the character is prompted to continue without new input). Stream selects the
// SSE variant.
type ChatRequest struct {
	PlayerName string `json:"playerName"`
	MJMessage  string `json:"mjMessage"`
	Stream     bool   `json:"stream"`
}

// ChatResponse is the non-streaming reply. Error is true when generation
// failed and Response carries an in-character fallback line; the status is
// still 200 so the table never stalls on a transport hiccup.
type ChatResponse struct {
	Response  string `json:"response"`
	Character string `json:"character"`
	Error     bool   `json:"error,omitempty"`
}

func handleChat(director *game.Director) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if director == nil {
			writeError(w, http.StatusInternalServerError, "chat provider not configured")
			return
		}

		var req ChatRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.PlayerName) == "" && strings.TrimSpace(req.MJMessage) == "" {
			writeError(w, http.StatusBadRequest, "playerName or mjMessage is required")
			return
		}

		if req.Stream {
			streamChat(w, r, director, req)
			return
		}

		res, err := director.Speak(r.Context(), game.SpeakRequest{
			Character: req.PlayerName,
			GMMessage: req.MJMessage,
		})
		if err != nil {
			writeSpeakError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ChatResponse{
			Response:  res.Text,
			Character: res.Character,
			Error:     res.Fallback,
		})
	}
}

// streamChat runs the response cycle over an SSE body: one data frame per
// sentence, a final frame with the full response, then the end marker.
func streamChat(w http.ResponseWriter, r *http.Request, director *game.Director, req ChatRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	frame := func(v any) {
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	res, err := director.Speak(r.Context(), game.SpeakRequest{
		Character: req.PlayerName,
		GMMessage: req.MJMessage,
		OnSentence: func(sentence string) {
			frame(map[string]string{"token": sentence})
		},
	})
	if err != nil {
		// Headers are already out; surface the failure in-band.
		frame(map[string]any{"response": "", "error": true, "message": err.Error()})
	} else {
		frame(ChatResponse{Response: res.Text, Character: res.Character, Error: res.Fallback})
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeSpeakError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUnknownCharacter):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, turn.ErrNoActiveCharacter):
		writeError(w, http.StatusConflict, "no living character to speak")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
