package server

import (
	"errors"
	"net/http"

	"github.com/woodwose/tablemuse/internal/game"
	"github.com/woodwose/tablemuse/internal/turn"
)

// TurnState is the sequencer snapshot the UI renders.
type TurnState struct {
	Order         []string `json:"order"`
	Current       string   `json:"current,omitempty"`
	TurnNumber    int      `json:"turnNumber"`
	RoundComplete bool     `json:"roundComplete"`
}

func turnState(seq *turn.Sequencer) TurnState {
	st := TurnState{
		Order:         seq.Order(),
		TurnNumber:    seq.TurnNumber(),
		RoundComplete: seq.RoundComplete(),
	}
	if current, err := seq.CurrentCharacter(); err == nil {
		st.Current = current
	}
	return st
}

func handleTurnState(seq *turn.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, turnState(seq))
	}
}

func handleTurnAdvance(seq *turn.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := seq.Advance(); err != nil {
			if errors.Is(err, turn.ErrNoActiveCharacter) {
				writeError(w, http.StatusConflict, "no living character")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, turnState(seq))
	}
}

func handleTurnNewRound(director *game.Director, seq *turn.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if director != nil {
			director.NewRound()
		} else {
			seq.StartNewRound()
		}
		writeJSON(w, http.StatusOK, turnState(seq))
	}
}

func handleTurnSetCurrent(seq *turn.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := readJSON(r, &req); err != nil || req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if err := seq.SetCurrent(req.Name); err != nil {
			writeError(w, http.StatusConflict, "character not in current turn order")
			return
		}
		writeJSON(w, http.StatusOK, turnState(seq))
	}
}
