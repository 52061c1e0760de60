package config_test

import (
	"errors"
	"testing"

	"github.com/woodwose/tablemuse/internal/config"
	"github.com/woodwose/tablemuse/pkg/provider/llm"
	llmmock "github.com/woodwose/tablemuse/pkg/provider/llm/mock"
	"github.com/woodwose/tablemuse/pkg/provider/stt"
	sttmock "github.com/woodwose/tablemuse/pkg/provider/stt/mock"
	"github.com/woodwose/tablemuse/pkg/provider/tts"
	ttsmock "github.com/woodwose/tablemuse/pkg/provider/tts/mock"
)

func TestRegistry_CreateLLM(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	var gotEntry config.ProviderEntry
	reg.RegisterLLM("mock", func(e config.ProviderEntry) (llm.Provider, error) {
		gotEntry = e
		return &llmmock.Provider{}, nil
	})

	entry := config.ProviderEntry{Name: "mock", APIKey: "k", Model: "m"}
	p, err := reg.CreateLLM(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("provider is nil")
	}
	if gotEntry.Model != "m" {
		t.Errorf("factory received entry %+v", gotEntry)
	}
}

func TestRegistry_CreateUnregistered(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateLLM err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := reg.CreateTTS(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateTTS err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := reg.CreateSTT(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateSTT err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_OverwriteRegistration(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	first := &ttsmock.Provider{}
	second := &ttsmock.Provider{}
	reg.RegisterTTS("mock", func(config.ProviderEntry) (tts.Provider, error) { return first, nil })
	reg.RegisterTTS("mock", func(config.ProviderEntry) (tts.Provider, error) { return second, nil })

	p, err := reg.CreateTTS(config.ProviderEntry{Name: "mock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != second {
		t.Error("later registration should win")
	}
}

func TestRegistry_CreateSTT(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	reg.RegisterSTT("mock", func(config.ProviderEntry) (stt.Provider, error) {
		return &sttmock.Provider{Text: "hi"}, nil
	})

	p, err := reg.CreateSTT(config.ProviderEntry{Name: "mock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("provider is nil")
	}
}
