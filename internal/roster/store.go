package roster

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
)

// Saver persists roster snapshots. Implemented by internal/storage; a nil
// Saver disables persistence (used in tests).
type Saver interface {
	SaveRoster(characters []Character) error
}

// ChangeListener is notified after any roster mutation. The turn sequencer
// registers itself here so the turn order can be regenerated when the party
// composition changes.
type ChangeListener func()

// Store owns the character roster. All methods are safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	characters []Character
	saver      Saver
	onChange   ChangeListener
}

// NewStore creates a roster store that writes snapshots through saver.
// saver may be nil.
func NewStore(saver Saver) *Store {
	return &Store{saver: saver}
}

// OnChange registers fn to run after every successful mutation.
// Only one listener is supported; later calls replace the earlier one.
func (s *Store) OnChange(fn ChangeListener) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// SetRoster replaces the entire roster. Health values are clamped into range.
// Names must be unique case-insensitively within the new roster; a collision
// returns [ErrDuplicateName] and leaves the current roster untouched.
// The change listener fires so the caller's turn order regenerates.
func (s *Store) SetRoster(characters []Character) error {
	seen := make(map[string]bool, len(characters))
	cleaned := make([]Character, len(characters))
	for i, c := range characters {
		key := strings.ToLower(c.Name)
		if seen[key] {
			slog.Warn("rejected roster with colliding names", "name", c.Name)
			return fmt.Errorf("roster: set %q: %w", c.Name, ErrDuplicateName)
		}
		seen[key] = true
		c.Health = clampHealth(c.Health)
		cleaned[i] = c
	}

	s.mu.Lock()
	s.characters = cleaned
	err := s.persistLocked()
	fn := s.onChange
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if fn != nil {
		fn()
	}
	return nil
}

// Add appends a new character. It returns [ErrDuplicateName] when the name
// collides case-insensitively with an existing character.
func (s *Store) Add(c Character) error {
	if err := Validate(c); err != nil {
		return fmt.Errorf("roster: add %q: %w", c.Name, err)
	}
	c.Health = clampHealth(c.Health)

	s.mu.Lock()
	if s.indexOfLocked(c.Name) >= 0 {
		s.mu.Unlock()
		slog.Warn("character name already exists", "name", c.Name)
		return ErrDuplicateName
	}
	s.characters = append(s.characters, c)
	err := s.persistLocked()
	fn := s.onChange
	s.mu.Unlock()

	if err != nil {
		return err
	}
	slog.Info("character added", "name", c.Name)
	if fn != nil {
		fn()
	}
	return nil
}

// Update replaces the character named originalName in place, preserving its
// roster position. Renaming to a name held by a different character returns
// [ErrDuplicateName] without mutating anything.
func (s *Store) Update(originalName string, updated Character) error {
	if err := Validate(updated); err != nil {
		return fmt.Errorf("roster: update %q: %w", originalName, err)
	}
	updated.Health = clampHealth(updated.Health)

	s.mu.Lock()
	idx := s.indexOfLocked(originalName)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if !strings.EqualFold(updated.Name, originalName) {
		if other := s.indexOfLocked(updated.Name); other >= 0 && other != idx {
			s.mu.Unlock()
			return ErrDuplicateName
		}
	}
	s.characters[idx] = updated
	err := s.persistLocked()
	fn := s.onChange
	s.mu.Unlock()

	if err != nil {
		return err
	}
	slog.Info("character updated", "name", originalName, "new_name", updated.Name)
	if fn != nil {
		fn()
	}
	return nil
}

// Remove deletes the character with the given name. The caller is responsible
// for regenerating the turn order (the change listener handles that when
// registered). Historical transcript entries keep their name snapshot and are
// unaffected.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	idx := s.indexOfLocked(name)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.characters = append(s.characters[:idx], s.characters[idx+1:]...)
	err := s.persistLocked()
	fn := s.onChange
	s.mu.Unlock()

	if err != nil {
		return err
	}
	slog.Info("character removed", "name", name)
	if fn != nil {
		fn()
	}
	return nil
}

// All returns a copy of the full roster in insertion order.
func (s *Store) All() []Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Character, len(s.characters))
	copy(out, s.characters)
	return out
}

// Alive returns the characters with Health > 0. This is a live filter,
// always reflecting current health, unlike the turn order snapshot.
func (s *Store) Alive() []Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Character
	for _, c := range s.characters {
		if c.IsAlive() {
			out = append(out, c)
		}
	}
	return out
}

// AliveNames returns the names of living characters in roster order.
// Satisfies the turn sequencer's roster view.
func (s *Store) AliveNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, c := range s.characters {
		if c.IsAlive() {
			out = append(out, c.Name)
		}
	}
	return out
}

// Get returns the character with the given name (case-insensitive).
func (s *Store) Get(name string) (Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOfLocked(name); idx >= 0 {
		return s.characters[idx], nil
	}
	return Character{}, ErrNotFound
}

// AdjustHealth adds delta to the named character's health, clamped to
// [0, MaxHealth]. It returns the new health value. Elimination or revival
// only takes effect on the turn order at the next regeneration.
func (s *Store) AdjustHealth(name string, delta int) (int, error) {
	s.mu.Lock()
	idx := s.indexOfLocked(name)
	if idx < 0 {
		s.mu.Unlock()
		return 0, ErrNotFound
	}
	before := s.characters[idx].Health
	after := clampHealth(before + delta)
	s.characters[idx].Health = after
	err := s.persistLocked()
	s.mu.Unlock()

	if err != nil {
		return after, err
	}
	if before > 0 && after == 0 {
		slog.Info("character eliminated", "name", name)
	} else if before == 0 && after > 0 {
		slog.Info("character revived", "name", name)
	}
	return after, nil
}

// ToggleChallenge flips the named character's challenge-resolved flag and
// returns the new value.
func (s *Store) ToggleChallenge(name string) (bool, error) {
	s.mu.Lock()
	idx := s.indexOfLocked(name)
	if idx < 0 {
		s.mu.Unlock()
		return false, ErrNotFound
	}
	s.characters[idx].ChallengeResolved = !s.characters[idx].ChallengeResolved
	resolved := s.characters[idx].ChallengeResolved
	err := s.persistLocked()
	s.mu.Unlock()
	return resolved, err
}

// Suggest returns the roster name closest to the (presumably misspelled)
// input, or "" when nothing scores above the similarity threshold. Used to
// produce "did you mean" hints on failed lookups.
func (s *Store) Suggest(input string) string {
	const threshold = 0.78

	s.mu.RLock()
	defer s.mu.RUnlock()

	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return ""
	}

	var (
		best      string
		bestScore float64
	)
	for _, c := range s.characters {
		score := matchr.JaroWinkler(in, strings.ToLower(c.Name), false)
		if score > bestScore {
			best, bestScore = c.Name, score
		}
	}
	if bestScore >= threshold {
		return best
	}
	return ""
}

// indexOfLocked returns the index of the character whose name matches
// case-insensitively, or -1. Caller must hold s.mu.
func (s *Store) indexOfLocked(name string) int {
	for i, c := range s.characters {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// persistLocked writes the current roster through the saver.
// Caller must hold s.mu.
func (s *Store) persistLocked() error {
	if s.saver == nil {
		return nil
	}
	snapshot := make([]Character, len(s.characters))
	copy(snapshot, s.characters)
	if err := s.saver.SaveRoster(snapshot); err != nil {
		return fmt.Errorf("roster: persist: %w", err)
	}
	return nil
}
