// Package transcript keeps the durable, append-mostly log of every GM and
// character line in the current session.
//
// Entries carry a snapshot of the speaking character's name rather than a
// live reference, so history survives character deletion. Every mutation is
// written through to the configured [Saver]; on startup the store rehydrates
// the most recent snapshot and falls back to a fresh empty session when the
// stored data is missing or corrupt.
package transcript

import (
	"errors"
	"time"
)

// Sender distinguishes who produced a transcript entry.
type Sender string

const (
	// SenderGM marks a line typed (or spoken) by the human game master.
	SenderGM Sender = "mj"

	// SenderCharacter marks a line generated for an AI-voiced character.
	SenderCharacter Sender = "player"
)

// IsValid reports whether s is a recognised sender.
func (s Sender) IsValid() bool { return s == SenderGM || s == SenderCharacter }

// ErrNotFound is returned by edit/delete operations for unknown entry ids.
var ErrNotFound = errors.New("transcript: entry not found")

// Entry is a single line in the session log. Immutable once appended except
// through the explicit UpdateEntry/RemoveEntry operations.
type Entry struct {
	// ID is unique and monotonically assigned within a session.
	ID int64 `json:"id"`

	// Text is the line content.
	Text string `json:"text"`

	// Sender identifies GM vs character.
	Sender Sender `json:"sender"`

	// Timestamp is when the entry was appended.
	Timestamp time.Time `json:"timestamp"`

	// CharacterName is a decoupled snapshot of the speaking character's
	// name. Empty for GM lines.
	CharacterName string `json:"characterName,omitempty"`

	// TurnNumber is the round in which the line was produced, when known.
	TurnNumber int `json:"turnNumber,omitempty"`

	// SessionID ties the entry to its session.
	SessionID string `json:"sessionId"`
}

// Session is one sitting of the game: metadata plus the ordered entry log.
type Session struct {
	SessionID      string     `json:"sessionId"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	TotalMessages  int        `json:"totalMessages"`
	CharacterNames []string   `json:"characterNames"`
	Entries        []Entry    `json:"messages"`
}

// Stats are derived session statistics; computed on demand, never stored.
type Stats struct {
	TotalMessages     int     `json:"totalMessages"`
	CharacterMessages int     `json:"characterMessages"`
	GMMessages        int     `json:"gmMessages"`
	DistinctSpeakers  int     `json:"distinctSpeakers"`
	DurationMinutes   float64 `json:"durationMinutes"`
	MeanMessageLength float64 `json:"meanMessageLength"`
}

// Document is the export shape: session metadata, the full message list, and
// computed stats in one structured, human-readable snapshot.
type Document struct {
	SessionInfo struct {
		SessionID      string    `json:"sessionId"`
		StartTime      time.Time `json:"startTime"`
		EndTime        time.Time `json:"endTime"`
		TotalMessages  int       `json:"totalMessages"`
		CharacterNames []string  `json:"characterNames"`
	} `json:"sessionInfo"`
	Messages []Entry `json:"messages"`
	Stats    Stats   `json:"stats"`
}
