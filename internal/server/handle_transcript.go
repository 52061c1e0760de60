package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/woodwose/tablemuse/internal/game"
	"github.com/woodwose/tablemuse/internal/transcript"
	"github.com/woodwose/tablemuse/internal/turn"
)

// handleTranscriptList serves the current session's entries, narrowed by any
// combination of query filters: q (substring), sender, character, turn,
// from/to (RFC 3339), last (most recent n).
func handleTranscriptList(store *transcript.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var entries []transcript.Entry
		switch {
		case q.Get("q") != "":
			entries = store.Search(q.Get("q"))
		case q.Get("sender") != "":
			sender := transcript.Sender(q.Get("sender"))
			if !sender.IsValid() {
				writeError(w, http.StatusBadRequest, "unknown sender")
				return
			}
			entries = store.BySender(sender)
		case q.Get("character") != "":
			entries = store.ByCharacter(q.Get("character"))
		case q.Get("turn") != "":
			n, err := strconv.Atoi(q.Get("turn"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "turn must be an integer")
				return
			}
			entries = store.ByTurn(n)
		case q.Get("from") != "" || q.Get("to") != "":
			from, to, err := parseTimeRange(q.Get("from"), q.Get("to"))
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			entries = store.ByTimeRange(from, to)
		case q.Get("last") != "":
			n, err := strconv.Atoi(q.Get("last"))
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "last must be a non-negative integer")
				return
			}
			entries = store.LastN(n)
		default:
			entries = store.All()
		}

		if entries == nil {
			entries = []transcript.Entry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
	}
}

func parseTimeRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Now()
	if fromRaw != "" {
		t, err := time.Parse(time.RFC3339, fromRaw)
		if err != nil {
			return from, to, errors.New("from must be RFC 3339")
		}
		from = t
	}
	if toRaw != "" {
		t, err := time.Parse(time.RFC3339, toRaw)
		if err != nil {
			return from, to, errors.New("to must be RFC 3339")
		}
		to = t
	}
	return from, to, nil
}

// handleTranscriptAppend records a line without triggering a response cycle.
// GM lines go through the director when one is wired so they pick up the
// current round number consistently.
func handleTranscriptAppend(director *game.Director, store *transcript.Store, seq *turn.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text      string `json:"text"`
			Sender    string `json:"sender"`
			Character string `json:"character"`
		}
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}

		sender := transcript.SenderGM
		if req.Sender != "" {
			sender = transcript.Sender(req.Sender)
			if !sender.IsValid() {
				writeError(w, http.StatusBadRequest, "unknown sender")
				return
			}
		}

		var (
			entry transcript.Entry
			err   error
		)
		if sender == transcript.SenderGM && director != nil {
			entry, err = director.GMSay(req.Text)
		} else {
			entry, err = store.Append(req.Text, sender, req.Character, seq.TurnNumber())
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to persist entry")
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

func handleTranscriptEdit(store *transcript.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be an integer")
			return
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := readJSON(r, &req); err != nil || strings.TrimSpace(req.Text) == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}
		if err := store.UpdateEntry(id, req.Text); err != nil {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "text": req.Text})
	}
}

func handleTranscriptRemove(store *transcript.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be an integer")
			return
		}
		if err := store.RemoveEntry(id); err != nil {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleTranscriptClear(store *transcript.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.ClearSession(); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to archive session")
			return
		}
		writeJSON(w, http.StatusOK, store.CurrentSession())
	}
}

func handleTranscriptStats(store *transcript.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.ComputeStats())
	}
}

func handleTranscriptExport(store *transcript.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc := store.ExportDocument()
		w.Header().Set("Content-Disposition", `attachment; filename="session-`+doc.SessionInfo.SessionID+`.json"`)
		writeJSON(w, http.StatusOK, doc)
	}
}

func handleTranscriptSessions(store *transcript.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions := store.ArchivedSessions()
		if sessions == nil {
			sessions = []transcript.Session{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	}
}
