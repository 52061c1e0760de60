package server

import (
	"net/http"

	"github.com/woodwose/tablemuse/internal/game"
	"github.com/woodwose/tablemuse/internal/locale"
)

func handleGameStatus(director *game.Director) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if director == nil {
			writeError(w, http.StatusInternalServerError, "game not configured")
			return
		}
		writeJSON(w, http.StatusOK, director.Status())
	}
}

func handleGameProgress(director *game.Director) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if director == nil {
			writeError(w, http.StatusInternalServerError, "game not configured")
			return
		}
		writeJSON(w, http.StatusOK, director.Progress())
	}
}

func handleGameReset(director *game.Director) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if director == nil {
			writeError(w, http.StatusInternalServerError, "game not configured")
			return
		}
		if err := director.Reset(); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to reset game")
			return
		}
		writeJSON(w, http.StatusOK, director.Status())
	}
}

func handleLanguageGet(director *game.Director) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if director == nil {
			writeError(w, http.StatusInternalServerError, "game not configured")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"language": string(director.Locale())})
	}
}

func handleLanguageSet(director *game.Director) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if director == nil {
			writeError(w, http.StatusInternalServerError, "game not configured")
			return
		}
		var req struct {
			Language string `json:"language"`
		}
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		loc, ok := locale.Parse(req.Language)
		if !ok {
			writeError(w, http.StatusBadRequest, "unsupported language")
			return
		}
		if err := director.SetLocale(loc); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to persist language")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"language": string(loc)})
	}
}
