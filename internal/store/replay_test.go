package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/value"
)

func sessionCommands() []command.Command {
	return []command.Command{
		movieForm(),
		command.InputChange{FieldRef: titleRef(), RawValue: value.String("Matrix"), FormattedValue: value.String("Matrix")},
		command.InputError{FieldRef: titleRef(), Error: "too short"},
		command.SyncFormsEntity{EntityPath: "movie", Fields: []command.EntityField{
			{Name: "title", EntityPath: "movie", Attributes: value.Object{"rawInputValue": value.String("The Matrix")}},
		}},
		command.DestroyForm{FormKey: "ghost"},
	}
}

func TestReplaySession_Deterministic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	final := recordCommands(t, s, "session-1", nil, 0, sessionCommands()...)

	result, err := s.ReplaySession(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReplaySession() failed: %v", err)
	}
	if !result.Deterministic() {
		t.Fatalf("mismatches = %+v, want none", result.Mismatches)
	}
	if result.Commands != len(sessionCommands()) {
		t.Errorf("Commands = %d, want %d", result.Commands, len(sessionCommands()))
	}
	want, err := final.Hash()
	if err != nil {
		t.Fatalf("Hash() failed: %v", err)
	}
	if result.FinalHash != want {
		t.Errorf("FinalHash = %q, want %q", result.FinalHash, want)
	}
}

func TestReplaySession_DetectsTamperedSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	recordCommands(t, s, "session-1", nil, 0, sessionCommands()...)

	if _, err := s.db.Exec(`UPDATE snapshots SET state_hash = 'bogus' WHERE seq = 2`); err != nil {
		t.Fatalf("tamper failed: %v", err)
	}

	result, err := s.ReplaySession(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReplaySession() failed: %v", err)
	}
	if len(result.Mismatches) != 1 {
		t.Fatalf("len(mismatches) = %d, want 1", len(result.Mismatches))
	}
	m := result.Mismatches[0]
	if m.Seq != 2 || m.RecordedHash != "bogus" {
		t.Errorf("mismatch = %+v, want seq 2 with recorded hash bogus", m)
	}
	if m.RecordedOutcome != m.ReplayedOutcome {
		t.Errorf("outcomes differ: %q vs %q", m.RecordedOutcome, m.ReplayedOutcome)
	}
}

func TestReplaySession_DetectsTamperedOutcome(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	recordCommands(t, s, "session-1", nil, 0, sessionCommands()...)

	if _, err := s.db.Exec(`UPDATE commands SET outcome = 'OK' WHERE seq = 5`); err != nil {
		t.Fatalf("tamper failed: %v", err)
	}

	result, err := s.ReplaySession(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReplaySession() failed: %v", err)
	}
	if len(result.Mismatches) != 1 {
		t.Fatalf("len(mismatches) = %d, want 1", len(result.Mismatches))
	}
	if got := result.Mismatches[0].ReplayedOutcome; got != "FORM_NOT_FOUND" {
		t.Errorf("ReplayedOutcome = %q, want FORM_NOT_FOUND", got)
	}
}

func TestReplaySession_UnknownSession(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReplaySession(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadLatest_Empty(t *testing.T) {
	s := createTestStore(t)

	forms, seq, err := s.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("LoadLatest() failed: %v", err)
	}
	if seq != 0 || len(forms) != 0 {
		t.Errorf("LoadLatest() = (%d forms, seq %d), want empty at seq 0", len(forms), seq)
	}
}

func TestReplaySession_ResumedSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := recordCommands(t, s, "session-1", nil, 0, movieForm())

	forms, seq, err := s.LoadLatest(ctx)
	if err != nil {
		t.Fatalf("LoadLatest() failed: %v", err)
	}
	if seq != 1 {
		t.Fatalf("seq = %d, want 1", seq)
	}
	firstHash, _ := first.Hash()
	loadedHash, _ := forms.Hash()
	if loadedHash != firstHash {
		t.Fatalf("loaded hash = %q, want %q", loadedHash, firstHash)
	}

	final := recordCommands(t, s, "session-2", forms, seq,
		command.ToggleFormEditing{FormKey: "movieForm", Editing: true},
	)

	result, err := s.ReplaySession(ctx, "session-2")
	if err != nil {
		t.Fatalf("ReplaySession() failed: %v", err)
	}
	if !result.Deterministic() {
		t.Fatalf("mismatches = %+v, want none", result.Mismatches)
	}
	want, _ := final.Hash()
	if result.FinalHash != want {
		t.Errorf("FinalHash = %q, want %q", result.FinalHash, want)
	}
}
