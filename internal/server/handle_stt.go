package server

import (
	"io"
	"net/http"
	"time"

	"github.com/woodwose/tablemuse/internal/observe"
	"github.com/woodwose/tablemuse/pkg/provider/stt"
)

// maxClipSize bounds one uploaded recording. GM utterances are short; 25 MB
// matches the upstream transcription API limit.
const maxClipSize = 25 << 20

func handleSTT(provider stt.Provider, metrics *observe.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			writeError(w, http.StatusInternalServerError, "stt provider not configured")
			return
		}

		if err := r.ParseMultipartForm(maxClipSize); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			writeError(w, http.StatusBadRequest, "audio file field is required")
			return
		}
		defer file.Close()

		audio, err := io.ReadAll(io.LimitReader(file, maxClipSize))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read audio")
			return
		}

		start := time.Now()
		text, err := provider.Transcribe(r.Context(), stt.Request{
			Audio:    audio,
			Filename: header.Filename,
			Language: r.FormValue("language"),
		})
		metrics.STTDuration.Record(r.Context(), time.Since(start).Seconds())
		if err != nil {
			metrics.RecordProviderRequest(r.Context(), "stt", "transcribe", "error")
			writeError(w, http.StatusBadGateway, "transcription failed")
			return
		}
		metrics.RecordProviderRequest(r.Context(), "stt", "transcribe", "ok")
		writeJSON(w, http.StatusOK, map[string]string{"text": text})
	}
}
