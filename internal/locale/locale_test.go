package locale_test

import (
	"strings"
	"testing"

	"github.com/woodwose/tablemuse/internal/locale"
)

func TestParse(t *testing.T) {
	tests := []struct {
		code string
		want locale.Locale
		ok   bool
	}{
		{"en", locale.EN, true},
		{"EN", locale.EN, true},
		{"fr", locale.FR, true},
		{"de", locale.EN, false},
		{"", locale.EN, false},
	}
	for _, tt := range tests {
		got, ok := locale.Parse(tt.code)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Parse(%q) = (%v, %v), want (%v, %v)", tt.code, got, ok, tt.want, tt.ok)
		}
	}
}

// TestTableCompleteness verifies every locale has an entry in every table —
// the compile-time exhaustiveness the string maps cannot express on their own.
func TestTableCompleteness(t *testing.T) {
	for _, l := range locale.All {
		if locale.BasePreprompt(l) == "" {
			t.Errorf("locale %q: empty base preprompt", l)
		}
		if locale.YouAre(l) == "" {
			t.Errorf("locale %q: empty backstory lead-in", l)
		}
		if locale.GMLine(l, "x") == " x" {
			t.Errorf("locale %q: empty GM prefix", l)
		}
		for h := 0; h <= 3; h++ {
			if locale.HealthQualifier(l, h) == "" {
				t.Errorf("locale %q: empty health qualifier for health %d", l, h)
			}
		}
		if lines := locale.FallbackLines(l, "Warrior"); len(lines) == 0 {
			t.Errorf("locale %q: no fallback lines", l)
		}
		if !strings.Contains(locale.RoundBanner(l, 2), "2") {
			t.Errorf("locale %q: round banner missing the round number", l)
		}
	}
}

func TestHealthQualifierBands(t *testing.T) {
	tests := []struct {
		health int
		want   string
	}{
		{0, "badly wounded"},
		{1, "badly wounded"},
		{2, "injured"},
		{3, "good health"},
	}
	for _, tt := range tests {
		got := locale.HealthQualifier(locale.EN, tt.health)
		if !strings.Contains(got, tt.want) {
			t.Errorf("HealthQualifier(EN, %d) = %q, want substring %q", tt.health, got, tt.want)
		}
	}
}

func TestFallbackLineContainsName(t *testing.T) {
	for range 20 {
		line := locale.FallbackLine(locale.EN, "Warrior")
		if !strings.Contains(line, "Warrior") {
			t.Fatalf("fallback line %q does not mention the character", line)
		}
		if !strings.HasPrefix(line, "*") || !strings.HasSuffix(line, "*") {
			t.Fatalf("fallback line %q is not an action beat", line)
		}
	}
}

func TestTeammateLine(t *testing.T) {
	got := locale.TeammateLine(locale.EN, "Mage", "I cast a light spell.")
	if !strings.Contains(got, "Mage") || !strings.Contains(got, "I cast a light spell.") {
		t.Errorf("TeammateLine = %q, want teammate name and text", got)
	}
}

func TestActionPrompt(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"period kept", "A dragon lands before you.", "A dragon lands before you. What do you do?"},
		{"exclamation kept", "Run!", "Run! What do you do?"},
		{"question kept", "Do you hear that?", "Do you hear that? What do you do?"},
		{"bare line gets period", "The door creaks open", "The door creaks open. What do you do?"},
		{"whitespace trimmed", "  Silence falls.  ", "Silence falls. What do you do?"},
		{"empty message", "", "What do you do?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := locale.ActionPrompt(locale.EN, tt.message); got != tt.want {
				t.Errorf("ActionPrompt(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}
