package server

import (
	"net/http"
	"strings"

	"github.com/woodwose/tablemuse/pkg/provider/tts"
)

// TTSRequest asks for one synthesized clip. VoiceSettings is accepted for
// wire compatibility with the browser client; the provider applies its own
// configured defaults.
type TTSRequest struct {
	VoiceID       string         `json:"voiceId"`
	Text          string         `json:"text"`
	VoiceSettings map[string]any `json:"voice_settings"`
}

func handleTTS(provider tts.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			writeError(w, http.StatusInternalServerError, "tts provider not configured")
			return
		}

		var req TTSRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.VoiceID) == "" {
			writeError(w, http.StatusBadRequest, "voiceId and text are required")
			return
		}

		audio, err := provider.Synthesize(r.Context(), req.Text, req.VoiceID)
		if err != nil {
			writeError(w, http.StatusBadGateway, "speech synthesis failed")
			return
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		w.Write(audio)
	}
}

// handleVoices lists the provider's voice catalogue for the UI's voice picker.
func handleVoices(provider tts.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			writeError(w, http.StatusInternalServerError, "tts provider not configured")
			return
		}
		voices, err := provider.ListVoices(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, "failed to list voices")
			return
		}
		out := make([]map[string]string, 0, len(voices))
		for _, v := range voices {
			out = append(out, map[string]string{"id": v.ID, "name": v.Name})
		}
		writeJSON(w, http.StatusOK, map[string]any{"voices": out})
	}
}
