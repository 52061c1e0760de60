// Package roster manages the party of AI-voiced characters: their personas,
// health, traits, and TTS voice assignments.
//
// The store owns every [Character]; other packages hold non-owning references
// by name only. All store operations are safe for concurrent use and every
// mutation is written through to the configured [Saver] so a restart restores
// identical state.
package roster

import (
	"errors"
	"strings"
)

// MaxHealth is the upper bound of a character's health. Health is always
// clamped to [0, MaxHealth].
const MaxHealth = 3

// ErrNotFound is returned by lookup and update operations when no character
// with the given name exists.
var ErrNotFound = errors.New("roster: character not found")

// ErrDuplicateName is returned by Add and Update when the requested name
// collides (case-insensitively) with another character.
var ErrDuplicateName = errors.New("roster: character name already taken")

// Character is a single AI-voiced party member.
type Character struct {
	// Name is the unique (case-insensitive) display name.
	Name string `json:"name"`

	// Backstory is the free-text persona injected into the system prompt.
	Backstory string `json:"backstory"`

	// ImagePath points at the character portrait served by the UI.
	ImagePath string `json:"imagePath,omitempty"`

	// VoiceID is the TTS provider voice identifier for this character.
	VoiceID string `json:"voiceId,omitempty"`

	// Health is the current hit count in [0, MaxHealth].
	Health int `json:"health"`

	// Inventory is free-text equipment notes.
	Inventory string `json:"inventory,omitempty"`

	// Traits is free-text personality trait notes.
	Traits string `json:"traits,omitempty"`

	// Attacks is free-text combat capability notes.
	Attacks string `json:"attacks,omitempty"`

	// ChallengeResolved marks whether the character has completed their
	// personal trait challenge this game.
	ChallengeResolved bool `json:"challengeResolved,omitempty"`
}

// IsAlive reports whether the character can still act.
func (c Character) IsAlive() bool { return c.Health > 0 }

// clampHealth forces h into [0, MaxHealth].
func clampHealth(h int) int {
	if h < 0 {
		return 0
	}
	if h > MaxHealth {
		return MaxHealth
	}
	return h
}

// Validate checks a character definition for required fields.
func Validate(c Character) error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if c.Health < 0 || c.Health > MaxHealth {
		errs = append(errs, errors.New("health out of range"))
	}
	return errors.Join(errs...)
}
