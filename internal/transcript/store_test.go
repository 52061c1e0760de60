package transcript_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/woodwose/tablemuse/internal/transcript"
)

// memSaver captures the most recent persisted snapshots.
type memSaver struct {
	current []byte
	archive []byte
	counter int64
}

func (m *memSaver) SaveCurrentSession(data []byte) error   { m.current = data; return nil }
func (m *memSaver) SaveArchivedSessions(data []byte) error { m.archive = data; return nil }
func (m *memSaver) SaveMessageCounter(n int64) error       { m.counter = n; return nil }

// fixedClock steps one second per call.
func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	s := transcript.NewStore(nil, transcript.WithClock(fixedClock()))

	e1, err := s.Append("The cave mouth yawns before you.", transcript.SenderGM, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := s.Append("I light a torch.", transcript.SenderCharacter, "Warrior", 1)
	if err != nil {
		t.Fatal(err)
	}

	if e1.ID >= e2.ID {
		t.Errorf("ids not monotonic: %d then %d", e1.ID, e2.ID)
	}
	if e2.CharacterName != "Warrior" {
		t.Errorf("character snapshot = %q, want Warrior", e2.CharacterName)
	}
	if e1.SessionID == "" || e1.SessionID != e2.SessionID {
		t.Errorf("session ids inconsistent: %q vs %q", e1.SessionID, e2.SessionID)
	}
}

func TestFilters(t *testing.T) {
	s := transcript.NewStore(nil, transcript.WithClock(fixedClock()))

	mustAppend(t, s, "Goblins attack!", transcript.SenderGM, "", 1)
	mustAppend(t, s, "I raise my shield.", transcript.SenderCharacter, "Warrior", 1)
	mustAppend(t, s, "I hurl a firebolt.", transcript.SenderCharacter, "Mage", 2)
	mustAppend(t, s, "The goblins scatter.", transcript.SenderGM, "", 2)

	if got := len(s.BySender(transcript.SenderGM)); got != 2 {
		t.Errorf("GM entries = %d, want 2", got)
	}
	if got := len(s.ByCharacter("warrior")); got != 1 {
		t.Errorf("Warrior entries (case-insensitive) = %d, want 1", got)
	}
	if got := len(s.ByTurn(2)); got != 2 {
		t.Errorf("turn-2 entries = %d, want 2", got)
	}
	if got := len(s.Search("GOBLIN")); got != 2 {
		t.Errorf("search GOBLIN = %d entries, want 2", got)
	}
	if got := len(s.Search("dragon")); got != 0 {
		t.Errorf("search dragon = %d entries, want 0", got)
	}
}

func TestByTimeRange(t *testing.T) {
	s := transcript.NewStore(nil, transcript.WithClock(fixedClock()))

	first := mustAppend(t, s, "one", transcript.SenderGM, "", 1)
	mustAppend(t, s, "two", transcript.SenderGM, "", 1)
	third := mustAppend(t, s, "three", transcript.SenderGM, "", 1)

	got := s.ByTimeRange(first.Timestamp, third.Timestamp.Add(-time.Millisecond))
	if len(got) != 2 {
		t.Fatalf("range returned %d entries, want 2", len(got))
	}
	if got[0].Text != "one" || got[1].Text != "two" {
		t.Errorf("range order wrong: %q, %q", got[0].Text, got[1].Text)
	}
}

func TestLastN(t *testing.T) {
	s := transcript.NewStore(nil)
	for _, text := range []string{"a", "b", "c", "d"} {
		mustAppend(t, s, text, transcript.SenderGM, "", 1)
	}

	got := s.LastN(2)
	if len(got) != 2 || got[0].Text != "c" || got[1].Text != "d" {
		t.Errorf("LastN(2) = %v, want [c d]", texts(got))
	}
	if got := s.LastN(10); len(got) != 4 {
		t.Errorf("LastN(10) = %d entries, want all 4", len(got))
	}
}

func TestComputeStats(t *testing.T) {
	s := transcript.NewStore(nil, transcript.WithClock(fixedClock()))

	mustAppend(t, s, "1234", transcript.SenderGM, "", 1)
	mustAppend(t, s, "123456", transcript.SenderCharacter, "Warrior", 1)
	mustAppend(t, s, "12", transcript.SenderCharacter, "Mage", 1)

	st := s.ComputeStats()
	if st.TotalMessages != 3 || st.GMMessages != 1 || st.CharacterMessages != 2 {
		t.Errorf("counts = %+v", st)
	}
	if st.DistinctSpeakers != 2 {
		t.Errorf("distinct speakers = %d, want 2", st.DistinctSpeakers)
	}
	if st.MeanMessageLength != 4 {
		t.Errorf("mean length = %v, want 4", st.MeanMessageLength)
	}
}

func TestClearSessionArchivesAndResets(t *testing.T) {
	s := transcript.NewStore(nil, transcript.WithClock(fixedClock()))
	mustAppend(t, s, "old line", transcript.SenderGM, "", 1)
	oldID := s.CurrentSession().SessionID

	if err := s.ClearSession(); err != nil {
		t.Fatal(err)
	}

	archived := s.ArchivedSessions()
	if len(archived) != 1 {
		t.Fatalf("archive size = %d, want 1", len(archived))
	}
	if archived[0].SessionID != oldID {
		t.Errorf("archived session id = %q, want %q", archived[0].SessionID, oldID)
	}
	if archived[0].EndTime == nil {
		t.Error("archived session missing end time")
	}

	cur := s.CurrentSession()
	if cur.SessionID == oldID {
		t.Error("current session id not rotated")
	}
	if len(cur.Entries) != 0 {
		t.Errorf("fresh session has %d entries", len(cur.Entries))
	}

	// Counter reset: the next entry starts over at id 1.
	e := mustAppend(t, s, "new line", transcript.SenderGM, "", 1)
	if e.ID != 1 {
		t.Errorf("first id after clear = %d, want 1", e.ID)
	}
}

func TestPersistRoundTrip(t *testing.T) {
	saver := &memSaver{}
	s := transcript.NewStore(saver, transcript.WithClock(fixedClock()))

	mustAppend(t, s, "The bridge creaks.", transcript.SenderGM, "", 3)
	mustAppend(t, s, "I cross carefully.", transcript.SenderCharacter, "Rogue", 3)
	want := s.All()

	restored := transcript.NewStore(nil)
	restored.Rehydrate(saver.current, saver.archive, saver.counter)

	got := restored.All()
	if len(got) != len(want) {
		t.Fatalf("restored %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID ||
			got[i].Text != want[i].Text ||
			got[i].Sender != want[i].Sender ||
			got[i].CharacterName != want[i].CharacterName ||
			got[i].TurnNumber != want[i].TurnNumber {
			t.Errorf("entry %d mismatch: got %+v, want %+v", i, got[i], want[i])
		}
		if !got[i].Timestamp.Equal(want[i].Timestamp) {
			t.Errorf("entry %d timestamp drifted: %v vs %v", i, got[i].Timestamp, want[i].Timestamp)
		}
	}

	// Restored ids continue after the persisted counter.
	e := mustAppend(t, restored, "next", transcript.SenderGM, "", 3)
	if e.ID != want[len(want)-1].ID+1 {
		t.Errorf("id after rehydrate = %d, want %d", e.ID, want[len(want)-1].ID+1)
	}
}

func TestRehydrateCorruptDataFallsBack(t *testing.T) {
	s := transcript.NewStore(nil)
	s.Rehydrate([]byte("{not json"), []byte("also not json"), 0)

	cur := s.CurrentSession()
	if cur.SessionID == "" {
		t.Error("no fresh session after corrupt rehydrate")
	}
	if len(cur.Entries) != 0 {
		t.Errorf("fresh session has %d entries", len(cur.Entries))
	}
	if _, err := s.Append("still works", transcript.SenderGM, "", 1); err != nil {
		t.Errorf("append after corrupt rehydrate: %v", err)
	}
}

func TestExportDocument(t *testing.T) {
	s := transcript.NewStore(nil, transcript.WithClock(fixedClock()))
	mustAppend(t, s, "A storm rolls in.", transcript.SenderGM, "", 1)
	mustAppend(t, s, "I seek shelter.", transcript.SenderCharacter, "Hunter", 1)

	doc := s.ExportDocument()
	if doc.SessionInfo.TotalMessages != 2 {
		t.Errorf("doc total = %d, want 2", doc.SessionInfo.TotalMessages)
	}
	if len(doc.Messages) != 2 {
		t.Errorf("doc messages = %d, want 2", len(doc.Messages))
	}
	if doc.Stats.CharacterMessages != 1 {
		t.Errorf("doc stats character messages = %d, want 1", doc.Stats.CharacterMessages)
	}

	// Must serialize cleanly with RFC 3339 timestamps.
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("export not serializable: %v", err)
	}
	var echo transcript.Document
	if err := json.Unmarshal(data, &echo); err != nil {
		t.Fatalf("export not round-trippable: %v", err)
	}
}

func TestUpdateAndRemoveEntry(t *testing.T) {
	s := transcript.NewStore(nil)
	e := mustAppend(t, s, "typo line", transcript.SenderGM, "", 1)

	if err := s.UpdateEntry(e.ID, "fixed line"); err != nil {
		t.Fatal(err)
	}
	if got := s.All()[0].Text; got != "fixed line" {
		t.Errorf("text after update = %q", got)
	}

	if err := s.RemoveEntry(e.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveEntry(e.ID); !errors.Is(err, transcript.ErrNotFound) {
		t.Errorf("double remove err = %v, want ErrNotFound", err)
	}
}

func mustAppend(t *testing.T, s *transcript.Store, text string, sender transcript.Sender, name string, turn int) transcript.Entry {
	t.Helper()
	e, err := s.Append(text, sender, name, turn)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func texts(entries []transcript.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}
