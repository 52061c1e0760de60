package prompt_test

import (
	"strings"
	"testing"

	"github.com/woodwose/tablemuse/internal/locale"
	"github.com/woodwose/tablemuse/internal/prompt"
	"github.com/woodwose/tablemuse/internal/roster"
	"github.com/woodwose/tablemuse/internal/transcript"
	"github.com/woodwose/tablemuse/pkg/provider/llm"
)

func sampleHistory() []transcript.Entry {
	return []transcript.Entry{
		{ID: 1, Text: "A dragon lands on the bridge.", Sender: transcript.SenderGM},
		{ID: 2, Text: "I draw my sword.", Sender: transcript.SenderCharacter, CharacterName: "Warrior"},
		{ID: 3, Text: "I prepare a firebolt.", Sender: transcript.SenderCharacter, CharacterName: "Mage"},
	}
}

// ── Context ───────────────────────────────────────────────────────────────────

func TestContext_PersonalizedPerAddressee(t *testing.T) {
	b := prompt.NewBuilder(locale.EN)
	history := sampleHistory()

	forWarrior := b.Context(history, "Warrior")
	if len(forWarrior) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(forWarrior))
	}
	if forWarrior[0].Role != llm.RoleUser || !strings.Contains(forWarrior[0].Content, "The GM told:") {
		t.Errorf("GM entry not labelled: %+v", forWarrior[0])
	}
	if forWarrior[1].Role != llm.RoleAssistant {
		t.Errorf("own line should be assistant, got %+v", forWarrior[1])
	}
	if forWarrior[1].Content != "I draw my sword." {
		t.Errorf("own line should be unprefixed, got %q", forWarrior[1].Content)
	}
	if forWarrior[2].Role != llm.RoleUser || !strings.Contains(forWarrior[2].Content, "Mage") {
		t.Errorf("teammate line should be user with teammate name, got %+v", forWarrior[2])
	}

	// The reverse view: Mage sees Warrior's line as a named user message and
	// their own firebolt line as assistant.
	forMage := b.Context(history, "Mage")
	if forMage[1].Role != llm.RoleUser || !strings.Contains(forMage[1].Content, "Warrior") {
		t.Errorf("expected Warrior's line as named user message, got %+v", forMage[1])
	}
	if forMage[2].Role != llm.RoleAssistant || forMage[2].Content != "I prepare a firebolt." {
		t.Errorf("expected own line as assistant, got %+v", forMage[2])
	}
}

func TestContext_AddresseeCaseInsensitive(t *testing.T) {
	b := prompt.NewBuilder(locale.EN)
	got := b.Context(sampleHistory(), "warrior")
	if got[1].Role != llm.RoleAssistant {
		t.Errorf("case-insensitive addressee match failed: %+v", got[1])
	}
}

func TestContext_WindowBound(t *testing.T) {
	b := prompt.NewBuilder(locale.EN, prompt.WithContextWindow(2))

	var history []transcript.Entry
	for i := 1; i <= 5; i++ {
		history = append(history, transcript.Entry{
			ID: int64(i), Text: "line", Sender: transcript.SenderGM,
		})
	}
	history = append(history, transcript.Entry{
		ID: 6, Text: "the newest line", Sender: transcript.SenderGM,
	})

	got := b.Context(history, "Warrior")
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if !strings.Contains(got[1].Content, "the newest line") {
		t.Errorf("window should keep the most recent entries, got %q", got[1].Content)
	}
}

func TestContext_EmptyHistory(t *testing.T) {
	b := prompt.NewBuilder(locale.EN)
	if got := b.Context(nil, "Warrior"); len(got) != 0 {
		t.Errorf("expected empty context, got %d messages", len(got))
	}
}

func TestContext_FrenchPrefixes(t *testing.T) {
	b := prompt.NewBuilder(locale.FR)
	got := b.Context(sampleHistory(), "Warrior")
	if !strings.Contains(got[0].Content, "Le MJ a dit :") {
		t.Errorf("expected French GM prefix, got %q", got[0].Content)
	}
	if !strings.Contains(got[2].Content, "Mage a répondu :") {
		t.Errorf("expected French teammate prefix, got %q", got[2].Content)
	}
}

// ── Persona ───────────────────────────────────────────────────────────────────

func TestPersona_Sections(t *testing.T) {
	b := prompt.NewBuilder(locale.EN)
	warrior := roster.Character{
		Name:      "Warrior",
		Backstory: "a broad-shouldered fighter clad in worn plate.",
		Health:    2,
	}
	mage := roster.Character{
		Name:      "Mage",
		Backstory: "a robed arcanist. Her staff pulses with energy.",
		Health:    1,
	}

	persona := b.Persona(warrior, []roster.Character{warrior, mage}, true)

	if !strings.HasPrefix(persona, locale.BasePreprompt(locale.EN)) {
		t.Error("persona should start with the narrative instruction")
	}
	if !strings.Contains(persona, "You are a broad-shouldered fighter") {
		t.Errorf("backstory missing: %q", persona)
	}
	if !strings.Contains(persona, "You are injured but still fighting.") {
		t.Errorf("health qualifier for health=2 missing: %q", persona)
	}
	if !strings.Contains(persona, "Your companions are:") {
		t.Errorf("companion section missing: %q", persona)
	}
	// Companion line carries name, status, and only the first sentence.
	if !strings.Contains(persona, "Mage (badly wounded): a robed arcanist.") {
		t.Errorf("companion line wrong: %q", persona)
	}
	if strings.Contains(persona, "Her staff pulses") {
		t.Error("companion backstory should be cut at the first sentence")
	}
	// The addressee never appears in their own companion roster.
	if strings.Contains(persona, "Warrior (") {
		t.Error("persona lists the character as their own companion")
	}
}

func TestPersona_WithoutHealth(t *testing.T) {
	b := prompt.NewBuilder(locale.EN)
	ch := roster.Character{Name: "Rogue", Backstory: "a shadow in torchlight.", Health: 3}

	persona := b.Persona(ch, nil, false)
	if strings.Contains(persona, "good health") {
		t.Errorf("health qualifier should be omitted: %q", persona)
	}
}

// ── GMMessage / Request ───────────────────────────────────────────────────────

func TestGMMessage_ActionPrompt(t *testing.T) {
	b := prompt.NewBuilder(locale.EN)
	got := b.GMMessage("Goblins attack.")
	if got != "Goblins attack. What do you do?" {
		t.Errorf("GMMessage = %q", got)
	}

	fr := prompt.NewBuilder(locale.FR).GMMessage("Des gobelins attaquent")
	if fr != "Des gobelins attaquent. Que fais-tu ?" {
		t.Errorf("French GMMessage = %q", fr)
	}
}

func TestRequest_Assembly(t *testing.T) {
	b := prompt.NewBuilder(locale.EN)
	warrior := roster.Character{Name: "Warrior", Backstory: "a fighter.", Health: 3}

	req := b.Request(warrior, nil, sampleHistory(), "The dragon roars.")

	if req.SystemPrompt == "" {
		t.Error("expected persona as system prompt")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != llm.RoleUser || !strings.Contains(last.Content, "What do you do?") {
		t.Errorf("expected GM action prompt as final user message, got %+v", last)
	}
	if len(req.Messages) != len(sampleHistory())+1 {
		t.Errorf("expected history plus GM message, got %d messages", len(req.Messages))
	}
}

func TestRequest_NoGMMessage(t *testing.T) {
	b := prompt.NewBuilder(locale.EN)
	warrior := roster.Character{Name: "Warrior", Backstory: "a fighter.", Health: 3}

	req := b.Request(warrior, nil, sampleHistory(), "  ")
	if len(req.Messages) != len(sampleHistory()) {
		t.Errorf("blank GM message should add nothing, got %d messages", len(req.Messages))
	}
}
