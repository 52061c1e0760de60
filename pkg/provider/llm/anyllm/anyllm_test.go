package anyllm

import (
	"testing"

	"github.com/woodwose/tablemuse/pkg/provider/llm"
)

// ── constructor ───────────────────────────────────────────────────────────────

// TestNew_EmptyProviderName checks that an empty provider name is rejected.
func TestNew_EmptyProviderName(t *testing.T) {
	_, err := New("", "gpt-4o")
	if err == nil {
		t.Fatal("expected error for empty provider name")
	}
}

// TestNew_EmptyModel checks that an empty model is rejected.
func TestNew_EmptyModel(t *testing.T) {
	_, err := New("openai", "")
	if err == nil {
		t.Fatal("expected error for empty model")
	}
}

// TestNew_UnsupportedProvider checks that unknown backends are rejected.
func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New("skynet", "t-800")
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

// TestCreateBackend_KnownProviders checks that all documented backend names
// resolve without error. Backends are created lazily and do not dial out.
func TestCreateBackend_KnownProviders(t *testing.T) {
	names := []string{
		"openai", "anthropic", "gemini", "ollama", "deepseek",
		"mistral", "groq", "llamacpp", "llamafile",
	}
	for _, name := range names {
		if _, err := createBackend(name); err != nil {
			t.Errorf("createBackend(%q): %v", name, err)
		}
	}
}

// TestCreateBackend_CaseInsensitive checks that provider names are lowered.
func TestCreateBackend_CaseInsensitive(t *testing.T) {
	if _, err := createBackend("OpenAI"); err != nil {
		t.Errorf("expected mixed-case name to resolve: %v", err)
	}
}

// ── buildParams ───────────────────────────────────────────────────────────────

// TestBuildParams_SystemPromptPrepended checks system prompt placement.
func TestBuildParams_SystemPromptPrepended(t *testing.T) {
	p := &Provider{model: "gpt-4o"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You play Warrior, a gruff fighter.",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "The GM told: the bridge collapses."},
		},
	})

	if len(params.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].Role != "system" {
		t.Errorf("expected first message role system, got %q", params.Messages[0].Role)
	}
	if params.Messages[1].Role != "user" {
		t.Errorf("expected second message role user, got %q", params.Messages[1].Role)
	}
	if params.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", params.Model)
	}
}

// TestBuildParams_Knobs checks temperature and max-token passthrough.
func TestBuildParams_Knobs(t *testing.T) {
	p := &Provider{model: "mistral-small"}
	params := p.buildParams(llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
		Temperature: 1.1,
		MaxTokens:   512,
	})

	if params.Temperature == nil || *params.Temperature != 1.1 {
		t.Errorf("temperature not carried through: %v", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 512 {
		t.Errorf("max tokens not carried through: %v", params.MaxTokens)
	}
}

// TestBuildParams_ZeroKnobsOmitted checks that defaults are left to the backend.
func TestBuildParams_ZeroKnobsOmitted(t *testing.T) {
	p := &Provider{model: "gpt-4o"}
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
	})

	if params.Temperature != nil {
		t.Error("expected nil temperature for zero value")
	}
	if params.MaxTokens != nil {
		t.Error("expected nil max tokens for zero value")
	}
}
