package roster

import "math/rand/v2"

// Trait is a personality flaw with a matching redemption challenge. The game
// is won when every living character has resolved their challenge.
type Trait struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Challenge   string `json:"challenge"`
}

// catalogue is the built-in trait deck drawn from at game setup.
var catalogue = []Trait{
	{"Lazy", "Avoids physical exertion and prefers rest over action.", "Carry heavy supplies for the party during a full day's travel."},
	{"Slob", "Careless with cleanliness and appearance.", "Attend a royal banquet without offending anyone with your manners."},
	{"Clumsy", "Often trips, drops things, or fumbles in tense moments.", "Disarm a delicate trap without triggering it."},
	{"Mean-Spirited", "Quick to insult or provoke others.", "Negotiate peace between two feuding villagers."},
	{"Evil", "Takes pleasure in the suffering of others.", "Protect a helpless NPC without harming them."},
	{"Gloomy", "Often pessimistic and melancholic.", "Inspire the party with an uplifting speech before a battle."},
	{"Noncommittal", "Dislikes long-term plans or obligations.", "Stick with the group through an entire dungeon without trying to leave."},
	{"Hot-Headed", "Easily angered and quick to act without thinking.", "End a tense tavern argument without drawing your weapon."},
	{"Erratic", "Unpredictable behavior and strange habits.", "Follow an entire plan exactly as discussed without improvising."},
	{"Loner", "Prefers solitude and avoids large groups.", "Lead a crowded caravan safely to its destination."},
	{"Jealous", "Suspicious and possessive in relationships.", "Let another party member take the spotlight in a heroic deed."},
	{"Glutton", "Eats excessively and often at inopportune times.", "Share your last ration with a starving stranger."},
	{"Snob", "Looks down on those of lower status or skill.", "Work as an equal alongside a humble peasant to complete a task."},
}

// AllTraits returns a copy of the built-in trait catalogue.
func AllTraits() []Trait {
	out := make([]Trait, len(catalogue))
	copy(out, catalogue)
	return out
}

// RandomTraits draws n distinct traits from the catalogue, uniformly at
// random. n is capped at the catalogue size.
func RandomTraits(n int) []Trait {
	if n > len(catalogue) {
		n = len(catalogue)
	}
	perm := rand.Perm(len(catalogue))
	out := make([]Trait, n)
	for i := range n {
		out[i] = catalogue[perm[i]]
	}
	return out
}
