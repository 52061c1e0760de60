package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/woodwose/tablemuse/internal/roster"
)

func handleRosterList(store *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		characters := store.All()
		if r.URL.Query().Get("alive") == "true" {
			characters = store.Alive()
		}
		writeJSON(w, http.StatusOK, map[string]any{"characters": characters})
	}
}

func handleRosterReplace(store *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Characters []roster.Character `json:"characters"`
		}
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		for _, c := range req.Characters {
			if err := roster.Validate(c); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		if err := store.SetRoster(req.Characters); err != nil {
			if errors.Is(err, roster.ErrDuplicateName) {
				writeRosterError(w, err)
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to persist roster")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"characters": store.All()})
	}
}

func handleRosterAdd(store *roster.Store, startingHealth int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Pre-seeding the struct makes an omitted health field default to the
		// configured starting value while an explicit 0 still means dead.
		c := roster.Character{Health: startingHealth}
		if err := readJSON(r, &c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := store.Add(c); err != nil {
			writeRosterError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func handleRosterUpdate(store *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var c roster.Character
		if err := readJSON(r, &c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := store.Update(name, c); err != nil {
			writeRosterError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleRosterRemove(store *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Remove(chi.URLParam(r, "name")); err != nil {
			writeRosterError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRosterHealth(store *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var req struct {
			Delta int `json:"delta"`
		}
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		health, err := store.AdjustHealth(name, req.Delta)
		if err != nil {
			writeRosterError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name":   name,
			"health": health,
			"alive":  health > 0,
		})
	}
}

func handleRosterChallenge(store *roster.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		resolved, err := store.ToggleChallenge(name)
		if err != nil {
			writeRosterError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name":              name,
			"challengeResolved": resolved,
		})
	}
}

// handleTraits serves the built-in trait catalogue. A draw query parameter
// returns that many distinct traits at random instead, for party setup.
func handleTraits() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := r.URL.Query().Get("draw"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "draw must be a positive integer")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"traits": roster.RandomTraits(n)})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"traits": roster.AllTraits()})
	}
}

// writeRosterError maps store failures onto HTTP statuses: missing names are
// 404 (with a did-you-mean hint left to the store's error text), collisions
// are 409, invalid definitions are 400.
func writeRosterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roster.ErrNotFound):
		writeError(w, http.StatusNotFound, "character not found")
	case errors.Is(err, roster.ErrDuplicateName):
		writeError(w, http.StatusConflict, "character name already taken")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
