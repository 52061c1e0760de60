package game

import (
	"log/slog"

	"github.com/woodwose/tablemuse/internal/roster"
	"github.com/woodwose/tablemuse/internal/transcript"
)

// State is the coarse outcome of a running game.
type State string

const (
	StateOngoing State = "ongoing"
	StateWon     State = "won"
	StateLost    State = "lost"
)

// Status snapshots where the game stands. Derived fresh on every call; an
// ended game stays queryable (the stores are untouched) until [Director.Reset].
type Status struct {
	State              State  `json:"state"`
	Reason             string `json:"reason,omitempty"`
	TurnNumber         int    `json:"turnNumber"`
	MaxTurns           int    `json:"maxTurns"`
	AliveCount         int    `json:"aliveCount"`
	RosterSize         int    `json:"rosterSize"`
	ChallengesResolved int    `json:"challengesResolved"`
}

// Status evaluates the end conditions: a wiped party loses, exceeding the
// round limit loses, and the party wins once every living character has
// resolved its challenge. An empty roster is simply an ongoing non-game.
func (d *Director) Status() Status {
	all := d.roster.All()
	alive := d.roster.Alive()

	d.mu.RLock()
	maxTurns := d.maxTurns
	d.mu.RUnlock()

	st := Status{
		State:      StateOngoing,
		TurnNumber: d.seq.TurnNumber(),
		MaxTurns:   maxTurns,
		AliveCount: len(alive),
		RosterSize: len(all),
	}
	for _, c := range all {
		if c.ChallengeResolved {
			st.ChallengesResolved++
		}
	}

	if len(all) == 0 {
		return st
	}

	switch {
	case len(alive) == 0:
		st.State = StateLost
		st.Reason = "party eliminated"
	case allResolved(alive):
		st.State = StateWon
		st.Reason = "all challenges resolved"
	case st.TurnNumber > maxTurns:
		st.State = StateLost
		st.Reason = "turn limit reached"
	}
	return st
}

// allResolved reports whether every living character has its challenge
// resolved. False for an empty slice; callers guard against a wiped party.
func allResolved(alive []roster.Character) bool {
	for _, c := range alive {
		if !c.ChallengeResolved {
			return false
		}
	}
	return len(alive) > 0
}

// Progress bundles the game status with session-level transcript statistics,
// for the table's progress panel.
type Progress struct {
	Status  Status           `json:"status"`
	Session transcript.Stats `json:"session"`
}

// Progress derives the combined progress snapshot.
func (d *Director) Progress() Progress {
	return Progress{
		Status:  d.Status(),
		Session: d.transcript.ComputeStats(),
	}
}

// Reset archives the current session, starts a fresh one, and rewinds the
// turn order to round 1. The roster keeps its characters and health; clearing
// the party is a separate roster operation.
func (d *Director) Reset() error {
	if err := d.transcript.ClearSession(); err != nil {
		return err
	}
	d.seq.Reset()
	slog.Info("game reset", "turn", d.seq.TurnNumber())
	return nil
}
