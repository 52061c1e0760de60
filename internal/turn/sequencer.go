// Package turn derives and tracks the randomized order in which living
// characters act within a round.
//
// The turn order is a snapshot: it is recomputed from the currently-alive
// roster on regeneration and is NOT re-filtered when a character dies or
// revives mid-round. A character eliminated mid-round keeps its slot until
// the next regeneration; a revived character joins at the next regeneration.
// This matches the table convention that a downed character still "had" their
// turn announced for the round in progress.
package turn

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
)

// ErrNoActiveCharacter is returned by CurrentCharacter when no living
// character exists (the Empty state).
var ErrNoActiveCharacter = errors.New("turn: no active character")

// ErrNotInOrder is returned by SetCurrent when the requested character is
// dead or absent from the current turn order snapshot.
var ErrNotInOrder = errors.New("turn: character not in current turn order")

// AliveLister supplies the names of currently-living characters.
// Satisfied by the roster store.
type AliveLister interface {
	AliveNames() []string
}

// Mode selects what happens when advancing wraps past the end of the order.
type Mode string

const (
	// ModeManual requires an explicit StartNewRound call after wraparound.
	// This is the default: it keeps round boundaries visible and testable.
	ModeManual Mode = "manual"

	// ModeAuto regenerates the order and bumps the round counter as soon as
	// Advance wraps, matching the legacy behaviour.
	ModeAuto Mode = "auto"
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool { return m == ModeManual || m == ModeAuto }

// Sequencer tracks whose turn it is. Safe for concurrent use.
type Sequencer struct {
	alive AliveLister
	mode  Mode

	mu           sync.Mutex
	order        []string
	currentIndex int
	turnNumber   int
	roundDone    bool // set when Advance wrapped in manual mode
}

// Option is a functional option for [NewSequencer].
type Option func(*Sequencer)

// WithMode selects the wraparound discipline. Default is [ModeManual].
func WithMode(m Mode) Option {
	return func(s *Sequencer) { s.mode = m }
}

// NewSequencer creates a sequencer over the given roster view and generates
// the initial order.
func NewSequencer(alive AliveLister, opts ...Option) *Sequencer {
	s := &Sequencer{
		alive:      alive,
		mode:       ModeManual,
		turnNumber: 1,
	}
	for _, o := range opts {
		o(s)
	}
	s.Regenerate()
	return s
}

// Regenerate recomputes the order as a uniform random permutation of the
// currently-alive characters and resets the position to the front. The round
// counter is preserved; use [Sequencer.StartNewRound] to bump it explicitly.
func (s *Sequencer) Regenerate() {
	names := s.alive.AliveNames()
	shuffled := make([]string, len(names))
	copy(shuffled, names)

	// Fisher-Yates; every permutation equally likely.
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	s.mu.Lock()
	s.order = shuffled
	s.currentIndex = 0
	s.roundDone = false
	s.mu.Unlock()

	slog.Debug("turn order regenerated", "order", shuffled)
}

// StartNewRound regenerates the order and increments the round counter.
// This is the explicit trigger; the counter also advances automatically on
// wraparound in [ModeAuto].
func (s *Sequencer) StartNewRound() {
	s.mu.Lock()
	s.turnNumber++
	n := s.turnNumber
	s.mu.Unlock()

	s.Regenerate()
	slog.Info("new round started", "turn", n)
}

// Advance moves to the next character in the order. When the position wraps
// to the front the round is complete: in [ModeAuto] the order regenerates and
// the round counter increments immediately; in [ModeManual] the sequencer
// stays on the wrapped position and [Sequencer.RoundComplete] reports true
// until StartNewRound is called.
//
// Returns the name of the character whose turn it now is.
func (s *Sequencer) Advance() (string, error) {
	s.mu.Lock()
	if len(s.order) == 0 {
		s.mu.Unlock()
		return "", ErrNoActiveCharacter
	}
	s.currentIndex = (s.currentIndex + 1) % len(s.order)
	wrapped := s.currentIndex == 0
	auto := s.mode == ModeAuto
	if wrapped && !auto {
		s.roundDone = true
	}
	if wrapped && auto {
		s.turnNumber++
	}
	s.mu.Unlock()

	if wrapped && auto {
		s.Regenerate()
	}
	return s.CurrentCharacter()
}

// Reset puts the round counter back to 1 and regenerates the order. Used when
// a whole game is restarted.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	s.turnNumber = 1
	s.mu.Unlock()
	s.Regenerate()
}

// CurrentCharacter returns the name of the character whose turn it is, or
// [ErrNoActiveCharacter] when the order is empty.
func (s *Sequencer) CurrentCharacter() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return "", ErrNoActiveCharacter
	}
	return s.order[s.currentIndex], nil
}

// SetCurrent jumps the position to the named character. It fails with
// [ErrNotInOrder] when the character is not part of the current order
// snapshot or is no longer alive, leaving the position unchanged. The
// liveness check is live, not snapshotted: a character eliminated after the
// last regeneration keeps its slot in the order but cannot be made the
// active speaker.
func (s *Sequencer) SetCurrent(name string) error {
	living := s.alive.AliveNames()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.order {
		if !strings.EqualFold(n, name) {
			continue
		}
		for _, l := range living {
			if strings.EqualFold(l, name) {
				s.currentIndex = i
				return nil
			}
		}
		break
	}
	return ErrNotInOrder
}

// Order returns a copy of the current turn order snapshot.
func (s *Sequencer) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// TurnNumber returns the current round counter. It starts at 1.
func (s *Sequencer) TurnNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnNumber
}

// RoundComplete reports whether Advance has wrapped in manual mode and the
// table is waiting for StartNewRound.
func (s *Sequencer) RoundComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roundDone
}
