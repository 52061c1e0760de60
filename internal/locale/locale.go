// Package locale provides the language-keyed text tables used when assembling
// character prompts and fallback lines.
//
// The original UI carried a full i18n layer; the server core only needs the
// strings that end up inside model-facing prompts or player-visible transcript
// lines, so those live here as exhaustive per-locale tables. Every table is
// indexed by [Locale] and covered by a compile-time-checkable lookup rather
// than a stringly-typed map with a silent fallback.
package locale

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Locale identifies a supported narration language.
type Locale string

const (
	EN Locale = "en"
	FR Locale = "fr"
)

// All lists every supported locale. Table completeness tests range over it.
var All = []Locale{EN, FR}

// IsValid reports whether l is a recognised locale.
func (l Locale) IsValid() bool {
	return l == EN || l == FR
}

// Parse converts a two-letter language code into a [Locale].
// Unknown codes return EN and false.
func Parse(code string) (Locale, bool) {
	switch Locale(strings.ToLower(code)) {
	case EN:
		return EN, true
	case FR:
		return FR, true
	}
	return EN, false
}

// basePreprompt is the fixed narrative-style instruction prepended to every
// character persona: tone, in-character constraints, response length, and
// anti-meta-gaming rules.
var basePreprompt = map[Locale]string{
	EN: "React to the words and actions of nearby players, as well as those of your teammates, as if they were truly happening in this world. Prioritize clear and explicit descriptions of actions. Focus on what the characters do, say, or feel, and on their direct interactions with each other. Convey emotions through vivid dialogue and tangible reactions. Never break character and never mention that you are an AI. Keep your responses to 1-3 sentences to maintain the pace, unless I ask for more details.",
	FR: "Réagis aux paroles et actions des joueurs alentours, ainsi qu'à celles de tes coéquipiers, comme si elles se déroulaient vraiment dans ce monde. Priorise les descriptions d'actions claires et explicites. Concentre-toi sur ce que les personnages font, disent ou ressentent, et sur les interactions directes entre eux. Montre les émotions à travers des dialogues vivants et des réactions tangibles. Ne brise jamais le personnage et ne mentionne jamais que tu es une IA. Garde tes réponses à 1-3 phrases pour maintenir le rythme, sauf si je demande plus de détails.",
}

// youAre introduces the backstory section of a persona.
var youAre = map[Locale]string{
	EN: "You are",
	FR: "Tu es",
}

// gmPrefix labels a game-master line inside assembled context.
var gmPrefix = map[Locale]string{
	EN: "The GM told:",
	FR: "Le MJ a dit :",
}

// teammatePrefix labels another character's line inside assembled context.
// The verb form takes the teammate's name via [TeammateLine].
var teammatePrefix = map[Locale]string{
	EN: "%s responded:",
	FR: "%s a répondu :",
}

// whatDoYouDo is appended to a GM message to prompt the character to act.
var whatDoYouDo = map[Locale]string{
	EN: "What do you do?",
	FR: "Que fais-tu ?",
}

// healthBand is an ordered lookup of health-status qualifiers: the first
// entry whose threshold is >= the character's health applies. Ordered lowest
// threshold first so the bands are independently testable and tunable.
type healthBand struct {
	MaxHealth int
	Text      map[Locale]string
}

var healthBands = []healthBand{
	{
		MaxHealth: 1,
		Text: map[Locale]string{
			EN: "You are badly wounded and struggling to stay conscious.",
			FR: "Tu es gravement blessé et tu luttes pour rester conscient.",
		},
	},
	{
		MaxHealth: 2,
		Text: map[Locale]string{
			EN: "You are injured but still fighting.",
			FR: "Tu es blessé mais tu continues à combattre.",
		},
	},
	{
		MaxHealth: 3,
		Text: map[Locale]string{
			EN: "You are in good health.",
			FR: "Tu es en bonne santé.",
		},
	},
}

// companionsIntro leads the companion roster section of a persona.
var companionsIntro = map[Locale]string{
	EN: "Your companions are:",
	FR: "Tes compagnons sont :",
}

// companionStatus is the third-person health wording used in companion
// roster lines, banded like healthBands.
var companionStatus = []healthBand{
	{
		MaxHealth: 1,
		Text: map[Locale]string{
			EN: "badly wounded",
			FR: "gravement blessé",
		},
	},
	{
		MaxHealth: 2,
		Text: map[Locale]string{
			EN: "injured",
			FR: "blessé",
		},
	},
	{
		MaxHealth: 3,
		Text: map[Locale]string{
			EN: "healthy",
			FR: "en bonne santé",
		},
	},
}

// roundBanner marks the start of a new round in the transcript. %d is the
// round number.
var roundBanner = map[Locale]string{
	EN: "— Round %d —",
	FR: "— Tour %d —",
}

// fallbackLines are the canned in-character placeholders substituted when
// response generation fails. %s is the character name.
var fallbackLines = map[Locale][]string{
	EN: {
		"*%s nods thoughtfully*",
		"*%s considers the situation carefully*",
		"*%s takes a moment to think*",
		"*%s looks around cautiously*",
		"*%s remains alert and ready*",
	},
	FR: {
		"*%s hoche la tête pensivement*",
		"*%s considère la situation attentivement*",
		"*%s prend un moment pour réfléchir*",
		"*%s regarde autour prudemment*",
		"*%s reste vigilant et prêt*",
	},
}

// BasePreprompt returns the fixed narrative instruction for l.
func BasePreprompt(l Locale) string { return basePreprompt[l] }

// YouAre returns the backstory lead-in for l.
func YouAre(l Locale) string { return youAre[l] }

// GMLine formats a game-master transcript line for model-facing context.
func GMLine(l Locale, text string) string {
	return gmPrefix[l] + " " + text
}

// TeammateLine formats another character's transcript line for model-facing
// context, identifying the speaking teammate by name.
func TeammateLine(l Locale, name, text string) string {
	return fmt.Sprintf(teammatePrefix[l], name) + " " + text
}

// ActionPrompt appends the "what do you do?" nudge to a GM message. The
// message keeps its own terminal punctuation; a period is added only when it
// ends bare.
func ActionPrompt(l Locale, gmMessage string) string {
	msg := strings.TrimSpace(gmMessage)
	if msg == "" {
		return whatDoYouDo[l]
	}
	switch {
	case strings.HasSuffix(msg, "."),
		strings.HasSuffix(msg, "!"),
		strings.HasSuffix(msg, "?"),
		strings.HasSuffix(msg, "…"):
	default:
		msg += "."
	}
	return msg + " " + whatDoYouDo[l]
}

// HealthQualifier returns the health-status sentence for the given health
// value, using the first matching band.
func HealthQualifier(l Locale, health int) string {
	for _, band := range healthBands {
		if health <= band.MaxHealth {
			return band.Text[l]
		}
	}
	return healthBands[len(healthBands)-1].Text[l]
}

// CompanionsIntro returns the lead-in for the persona's companion roster.
func CompanionsIntro(l Locale) string { return companionsIntro[l] }

// CompanionStatus returns the third-person health wording for a companion.
func CompanionStatus(l Locale, health int) string {
	for _, band := range companionStatus {
		if health <= band.MaxHealth {
			return band.Text[l]
		}
	}
	return companionStatus[len(companionStatus)-1].Text[l]
}

// RoundBanner formats the transcript marker for round n.
func RoundBanner(l Locale, n int) string {
	return fmt.Sprintf(roundBanner[l], n)
}

// FallbackLine returns a random canned in-character line for name.
func FallbackLine(l Locale, name string) string {
	lines := fallbackLines[l]
	return fmt.Sprintf(lines[rand.IntN(len(lines))], name)
}

// FallbackLines returns every fallback template for l with the character name
// substituted. Used by tests and by UIs that want the full set.
func FallbackLines(l Locale, name string) []string {
	lines := fallbackLines[l]
	out := make([]string, len(lines))
	for i, tmpl := range lines {
		out[i] = fmt.Sprintf(tmpl, name)
	}
	return out
}
