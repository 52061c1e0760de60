package transcript

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// Saver persists session snapshots. Implemented by internal/storage; a nil
// Saver disables persistence (used in tests).
type Saver interface {
	SaveCurrentSession(data []byte) error
	SaveArchivedSessions(data []byte) error
	SaveMessageCounter(n int64) error
}

// Store owns the current session and the archive of past sessions.
// All methods are safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	current   Session
	archive   []Session
	idCounter int64
	saver     Saver
	now       func() time.Time
}

// Option is a functional option for [NewStore].
type Option func(*Store)

// WithClock overrides the time source. Tests use this for deterministic
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a transcript store with a fresh empty session.
// saver may be nil.
func NewStore(saver Saver, opts ...Option) *Store {
	s := &Store{
		saver: saver,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.current = s.newSession()
	return s
}

// newSession builds a fresh empty session with a random id.
func (s *Store) newSession() Session {
	return Session{
		SessionID:      "session_" + randomID(),
		StartTime:      s.now(),
		CharacterNames: []string{},
		Entries:        []Entry{},
	}
}

// randomID returns an 8-byte hex string.
func randomID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// timestamp so ids stay unique enough for a single process.
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// Append adds a line to the current session, assigns the next id and the
// current timestamp, persists, and returns the stored entry.
// characterName may be empty for GM lines; turnNumber may be zero.
func (s *Store) Append(text string, sender Sender, characterName string, turnNumber int) (Entry, error) {
	s.mu.Lock()
	s.idCounter++
	entry := Entry{
		ID:            s.idCounter,
		Text:          text,
		Sender:        sender,
		Timestamp:     s.now(),
		CharacterName: characterName,
		TurnNumber:    turnNumber,
		SessionID:     s.current.SessionID,
	}
	s.current.Entries = append(s.current.Entries, entry)
	s.current.TotalMessages++
	if characterName != "" && !slices.Contains(s.current.CharacterNames, characterName) {
		s.current.CharacterNames = append(s.current.CharacterNames, characterName)
	}
	err := s.persistLocked()
	s.mu.Unlock()

	if err != nil {
		return entry, err
	}
	slog.Debug("transcript entry appended",
		"id", entry.ID,
		"sender", entry.Sender,
		"character", entry.CharacterName,
		"turn", entry.TurnNumber,
	)
	return entry, nil
}

// UpdateEntry replaces the text of an existing entry.
func (s *Store) UpdateEntry(id int64, newText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.current.Entries {
		if s.current.Entries[i].ID == id {
			s.current.Entries[i].Text = newText
			return s.persistLocked()
		}
	}
	return ErrNotFound
}

// RemoveEntry deletes an entry by id.
func (s *Store) RemoveEntry(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.current.Entries {
		if s.current.Entries[i].ID == id {
			s.current.Entries = append(s.current.Entries[:i], s.current.Entries[i+1:]...)
			s.current.TotalMessages--
			return s.persistLocked()
		}
	}
	return ErrNotFound
}

// All returns a copy of the current session's entries in append order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.current.Entries)
}

// LastN returns the most recent n entries in chronological order.
func (s *Store) LastN(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.current.Entries
	if n < len(entries) {
		entries = entries[len(entries)-n:]
	}
	return slices.Clone(entries)
}

// Search returns the entries whose text contains query, case-insensitively.
func (s *Store) Search(query string) []Entry {
	q := strings.ToLower(query)
	return s.filter(func(e Entry) bool {
		return strings.Contains(strings.ToLower(e.Text), q)
	})
}

// BySender returns the entries with the given sender.
func (s *Store) BySender(sender Sender) []Entry {
	return s.filter(func(e Entry) bool { return e.Sender == sender })
}

// ByCharacter returns the entries spoken by the named character.
func (s *Store) ByCharacter(name string) []Entry {
	return s.filter(func(e Entry) bool { return strings.EqualFold(e.CharacterName, name) })
}

// ByTurn returns the entries tagged with the given round number.
func (s *Store) ByTurn(turnNumber int) []Entry {
	return s.filter(func(e Entry) bool { return e.TurnNumber == turnNumber })
}

// ByTimeRange returns the entries whose timestamp falls within [from, to].
func (s *Store) ByTimeRange(from, to time.Time) []Entry {
	return s.filter(func(e Entry) bool {
		return !e.Timestamp.Before(from) && !e.Timestamp.After(to)
	})
}

// filter returns a copy of the entries matching keep, preserving order.
func (s *Store) filter(keep func(Entry) bool) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.current.Entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// CurrentSession returns a copy of the current session.
func (s *Store) CurrentSession() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneCurrentLocked()
}

// ArchivedSessions returns copies of all archived sessions, oldest first.
func (s *Store) ArchivedSessions() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, len(s.archive))
	for i, sess := range s.archive {
		sess.Entries = slices.Clone(sess.Entries)
		out[i] = sess
	}
	return out
}

// ComputeStats derives message counts, speaker count, session duration in
// minutes, and mean message length for the current session.
func (s *Store) ComputeStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalMessages:    s.current.TotalMessages,
		DistinctSpeakers: len(s.current.CharacterNames),
	}
	var totalLen int
	for _, e := range s.current.Entries {
		switch e.Sender {
		case SenderGM:
			st.GMMessages++
		case SenderCharacter:
			st.CharacterMessages++
		}
		totalLen += len(e.Text)
	}
	st.DurationMinutes = roundTo2(s.now().Sub(s.current.StartTime).Minutes())
	if n := len(s.current.Entries); n > 0 {
		st.MeanMessageLength = roundTo2(float64(totalLen) / float64(n))
	}
	return st
}

// ExportDocument serializes the current session, its messages, and computed
// stats into a single structured snapshot.
func (s *Store) ExportDocument() Document {
	stats := s.ComputeStats()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc Document
	doc.SessionInfo.SessionID = s.current.SessionID
	doc.SessionInfo.StartTime = s.current.StartTime
	doc.SessionInfo.EndTime = s.now()
	doc.SessionInfo.TotalMessages = s.current.TotalMessages
	doc.SessionInfo.CharacterNames = slices.Clone(s.current.CharacterNames)
	doc.Messages = slices.Clone(s.current.Entries)
	doc.Stats = stats
	return doc
}

// ClearSession stamps an end time on the current session, moves it into the
// archive, starts a fresh empty session, and resets the id counter.
func (s *Store) ClearSession() error {
	s.mu.Lock()
	end := s.now()
	s.current.EndTime = &end
	s.archive = append(s.archive, s.cloneCurrentLocked())
	s.current = s.newSession()
	s.idCounter = 0
	err := s.persistLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	slog.Info("session archived and reset", "archived", len(s.ArchivedSessions()))
	return nil
}

// cloneCurrentLocked deep-copies the current session. Caller must hold s.mu.
func (s *Store) cloneCurrentLocked() Session {
	sess := s.current
	sess.Entries = slices.Clone(sess.Entries)
	sess.CharacterNames = slices.Clone(sess.CharacterNames)
	return sess
}

// persistLocked writes the current session, archive, and id counter through
// the saver. Caller must hold s.mu.
func (s *Store) persistLocked() error {
	if s.saver == nil {
		return nil
	}
	cur, err := json.Marshal(s.current)
	if err != nil {
		return fmt.Errorf("transcript: marshal current session: %w", err)
	}
	arch, err := json.Marshal(s.archive)
	if err != nil {
		return fmt.Errorf("transcript: marshal archive: %w", err)
	}
	if err := s.saver.SaveCurrentSession(cur); err != nil {
		return fmt.Errorf("transcript: persist current session: %w", err)
	}
	if err := s.saver.SaveArchivedSessions(arch); err != nil {
		return fmt.Errorf("transcript: persist archive: %w", err)
	}
	if err := s.saver.SaveMessageCounter(s.idCounter); err != nil {
		return fmt.Errorf("transcript: persist id counter: %w", err)
	}
	return nil
}

// Rehydrate restores store state from previously persisted snapshots.
// Corrupted or missing data falls back to the fresh state created by
// [NewStore]; rehydration never fails the startup path.
func (s *Store) Rehydrate(currentData, archiveData []byte, idCounter int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(currentData) > 0 {
		var sess Session
		if err := json.Unmarshal(currentData, &sess); err != nil {
			slog.Warn("stored session corrupt, starting fresh", "error", err)
		} else if sess.SessionID != "" {
			s.current = sess
		}
	}
	if s.current.CharacterNames == nil {
		s.current.CharacterNames = []string{}
	}
	if s.current.Entries == nil {
		s.current.Entries = []Entry{}
	}

	if len(archiveData) > 0 {
		var archive []Session
		if err := json.Unmarshal(archiveData, &archive); err != nil {
			slog.Warn("stored session archive corrupt, discarding", "error", err)
		} else {
			s.archive = archive
		}
	}

	if idCounter > s.idCounter {
		s.idCounter = idCounter
	}
	// Never hand out an id already taken by a rehydrated entry.
	for _, e := range s.current.Entries {
		if e.ID > s.idCounter {
			s.idCounter = e.ID
		}
	}
}

// roundTo2 rounds to two decimal places, matching the exported stats shape.
func roundTo2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
