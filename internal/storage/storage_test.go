package storage_test

import (
	"testing"

	"github.com/woodwose/tablemuse/internal/roster"
	"github.com/woodwose/tablemuse/internal/storage"
)

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestRosterRoundTrip(t *testing.T) {
	s := openStore(t)

	if got, err := s.LoadRoster(); err != nil || got != nil {
		t.Fatalf("LoadRoster on empty store = %v, %v", got, err)
	}

	in := []roster.Character{
		{Name: "Warrior", Backstory: "A grizzled sellsword.", Health: 3},
		{Name: "Mage", Backstory: "A robed arcanist.", Health: 0},
	}
	if err := s.SaveRoster(in); err != nil {
		t.Fatalf("SaveRoster: %v", err)
	}

	got, err := s.LoadRoster()
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadRoster returned %d characters, want 2", len(got))
	}
	if got[0].Name != "Warrior" || got[0].Health != 3 {
		t.Errorf("character 0 = %+v", got[0])
	}
	if got[1].Name != "Mage" || got[1].IsAlive() {
		t.Errorf("character 1 = %+v", got[1])
	}
}

func TestSessionSnapshots(t *testing.T) {
	s := openStore(t)

	if data, err := s.LoadCurrentSession(); err != nil || data != nil {
		t.Fatalf("LoadCurrentSession on empty store = %q, %v", data, err)
	}

	cur := []byte(`[{"id":1,"text":"A dragon lands."}]`)
	arch := []byte(`[]`)
	if err := s.SaveCurrentSession(cur); err != nil {
		t.Fatalf("SaveCurrentSession: %v", err)
	}
	if err := s.SaveArchivedSessions(arch); err != nil {
		t.Fatalf("SaveArchivedSessions: %v", err)
	}

	gotCur, err := s.LoadCurrentSession()
	if err != nil {
		t.Fatalf("LoadCurrentSession: %v", err)
	}
	if string(gotCur) != string(cur) {
		t.Errorf("current session = %q, want %q", gotCur, cur)
	}
	gotArch, err := s.LoadArchivedSessions()
	if err != nil {
		t.Fatalf("LoadArchivedSessions: %v", err)
	}
	if string(gotArch) != string(arch) {
		t.Errorf("archive = %q, want %q", gotArch, arch)
	}
}

func TestMessageCounter(t *testing.T) {
	s := openStore(t)

	if n, err := s.LoadMessageCounter(); err != nil || n != 0 {
		t.Fatalf("LoadMessageCounter on empty store = %d, %v", n, err)
	}
	if err := s.SaveMessageCounter(42); err != nil {
		t.Fatalf("SaveMessageCounter: %v", err)
	}
	n, err := s.LoadMessageCounter()
	if err != nil {
		t.Fatalf("LoadMessageCounter: %v", err)
	}
	if n != 42 {
		t.Errorf("counter = %d, want 42", n)
	}
}

func TestLanguagePreference(t *testing.T) {
	s := openStore(t)

	if code, err := s.LoadLanguage(); err != nil || code != "" {
		t.Fatalf("LoadLanguage on empty store = %q, %v", code, err)
	}
	if err := s.SaveLanguage("fr"); err != nil {
		t.Fatalf("SaveLanguage: %v", err)
	}
	code, err := s.LoadLanguage()
	if err != nil {
		t.Fatalf("LoadLanguage: %v", err)
	}
	if code != "fr" {
		t.Errorf("language = %q, want %q", code, "fr")
	}
}

func TestCorruptRosterFallsBack(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	// A roster snapshot written by an incompatible version must not fail
	// rehydration; it reads as empty instead.
	if err := s.SaveCurrentSession([]byte("not json")); err != nil {
		t.Fatalf("SaveCurrentSession: %v", err)
	}
	if err := s.SaveRoster(nil); err != nil {
		t.Fatalf("SaveRoster: %v", err)
	}
	got, err := s.LoadRoster()
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("LoadRoster = %v, want empty", got)
	}
}

func TestReopenRestoresState(t *testing.T) {
	dir := t.TempDir()

	s, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SaveLanguage("en"); err != nil {
		t.Fatalf("SaveLanguage: %v", err)
	}
	if err := s.SaveMessageCounter(7); err != nil {
		t.Fatalf("SaveMessageCounter: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = storage.Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	if code, _ := s.LoadLanguage(); code != "en" {
		t.Errorf("language after reopen = %q", code)
	}
	if n, _ := s.LoadMessageCounter(); n != 7 {
		t.Errorf("counter after reopen = %d", n)
	}
}
