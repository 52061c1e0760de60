// Package storage persists roster, session, and preference state in an
// embedded BadgerDB so a restart restores the table exactly as it was left.
//
// The package exposes a single [Store] that backs the write-through savers of
// internal/roster and internal/transcript and holds the table-wide language
// preference. Missing keys read as zero values; only transport-level database
// failures surface as errors.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/woodwose/tablemuse/internal/roster"
	"github.com/woodwose/tablemuse/internal/transcript"
)

// Key layout. Each piece of state lives under its own key so partial writes
// never corrupt unrelated state.
const (
	keyRoster           = "roster"
	keyCurrentSession   = "session:current"
	keyArchivedSessions = "sessions:archived"
	keyMessageCounter   = "counter:message"
	keyLanguage         = "pref:language"
)

// Store is a BadgerDB-backed persistence layer. All methods are safe for
// concurrent use; Badger serializes writes internally.
type Store struct {
	db  *badger.DB
	dir string
}

var (
	_ roster.Saver     = (*Store)(nil)
	_ transcript.Saver = (*Store)(nil)
)

// Open opens (or creates) the database under dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dir, err)
	}
	return &Store{db: db, dir: dir}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Dir returns the directory the database lives in.
func (s *Store) Dir() string { return s.dir }

// ── roster persistence ──────────────────────────────────────────────

// SaveRoster stores a JSON snapshot of the full character roster.
func (s *Store) SaveRoster(characters []roster.Character) error {
	data, err := json.Marshal(characters)
	if err != nil {
		return fmt.Errorf("storage: marshal roster: %w", err)
	}
	return s.set(keyRoster, data)
}

// LoadRoster returns the persisted roster, or nil when none was saved yet.
// A snapshot that no longer unmarshals is discarded rather than failing the
// startup path.
func (s *Store) LoadRoster() ([]roster.Character, error) {
	data, err := s.get(keyRoster)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var characters []roster.Character
	if err := json.Unmarshal(data, &characters); err != nil {
		return nil, nil
	}
	return characters, nil
}

// ── transcript persistence ──────────────────────────────────────────

// SaveCurrentSession stores the serialized in-progress session.
func (s *Store) SaveCurrentSession(data []byte) error {
	return s.set(keyCurrentSession, data)
}

// SaveArchivedSessions stores the serialized archive of finished sessions.
func (s *Store) SaveArchivedSessions(data []byte) error {
	return s.set(keyArchivedSessions, data)
}

// SaveMessageCounter stores the last assigned message id.
func (s *Store) SaveMessageCounter(n int64) error {
	return s.set(keyMessageCounter, []byte(strconv.FormatInt(n, 10)))
}

// LoadCurrentSession returns the persisted session snapshot, or nil when
// absent. Interpretation of the bytes is the transcript store's concern.
func (s *Store) LoadCurrentSession() ([]byte, error) {
	return s.get(keyCurrentSession)
}

// LoadArchivedSessions returns the persisted archive snapshot, or nil when
// absent.
func (s *Store) LoadArchivedSessions() ([]byte, error) {
	return s.get(keyArchivedSessions)
}

// LoadMessageCounter returns the persisted message counter, or 0 when absent
// or unreadable.
func (s *Store) LoadMessageCounter() (int64, error) {
	data, err := s.get(keyMessageCounter)
	if err != nil {
		return 0, err
	}
	if data == nil {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// ── preferences ─────────────────────────────────────────────────────

// SaveLanguage stores the table-wide language preference ("en", "fr", ...).
func (s *Store) SaveLanguage(code string) error {
	return s.set(keyLanguage, []byte(code))
}

// LoadLanguage returns the persisted language preference, or "" when none
// was saved yet.
func (s *Store) LoadLanguage() (string, error) {
	data, err := s.get(keyLanguage)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ── badger plumbing ─────────────────────────────────────────────────

func (s *Store) set(key string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("storage: set %s: %w", key, err)
	}
	return nil
}

// get returns the value for key, or nil when the key does not exist.
func (s *Store) get(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	return data, nil
}
