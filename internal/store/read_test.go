package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/formsync/internal/command"
)

func TestReadCommands_Empty(t *testing.T) {
	s := createTestStore(t)

	records, err := s.ReadCommands(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("ReadCommands() failed: %v", err)
	}
	if records == nil {
		t.Error("records is nil, want empty slice")
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestReadSessions_Empty(t *testing.T) {
	s := createTestStore(t)

	sessions, err := s.ReadSessions(context.Background())
	if err != nil {
		t.Fatalf("ReadSessions() failed: %v", err)
	}
	if sessions == nil {
		t.Error("sessions is nil, want empty slice")
	}
}

func TestReadCommands_DeterministicOrdering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.WriteSession(ctx, Session{ID: "session-1"}); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}

	// Insert out of order.
	for _, seq := range []int64{3, 1, 2} {
		rec := CommandRecord{Session: "session-1", Seq: seq, Command: command.SetFormToSaving{FormKey: "f"}}
		if _, err := s.WriteCommand(ctx, rec); err != nil {
			t.Fatalf("WriteCommand(seq %d) failed: %v", seq, err)
		}
	}

	records, err := s.ReadCommands(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReadCommands() failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	for i, rec := range records {
		if rec.Seq != int64(i+1) {
			t.Errorf("records[%d].Seq = %d, want %d", i, rec.Seq, i+1)
		}
	}
}

func TestReadCommands_PayloadRoundtrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	cmd := movieForm()
	recordCommands(t, s, "session-1", nil, 0, cmd)

	records, err := s.ReadCommands(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReadCommands() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	got, ok := records[0].Command.(command.CreateForm)
	if !ok {
		t.Fatalf("Command = %T, want command.CreateForm", records[0].Command)
	}
	if got.FormKey != cmd.FormKey {
		t.Errorf("FormKey = %q, want %q", got.FormKey, cmd.FormKey)
	}
	if len(got.Fields) != len(cmd.Fields) {
		t.Fatalf("len(Fields) = %d, want %d", len(got.Fields), len(cmd.Fields))
	}
	if !got.Fields[1].Tabular {
		t.Error("cast field lost its tabular flag")
	}
}

func TestReadSnapshot_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSnapshot(context.Background(), "session-1", 7)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	_, err = s.LatestSnapshot(context.Background(), "session-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestSnapshot err = %v, want ErrNotFound", err)
	}
}

func TestReadSnapshot_Exists(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	recordCommands(t, s, "session-1", nil, 0,
		movieForm(),
		command.ToggleFormEditing{FormKey: "movieForm", Editing: true},
	)

	snap, err := s.ReadSnapshot(ctx, "session-1", 1)
	if err != nil {
		t.Fatalf("ReadSnapshot() failed: %v", err)
	}
	forms, err := unmarshalState(snap.State)
	if err != nil {
		t.Fatalf("unmarshalState() failed: %v", err)
	}
	if len(forms) != 1 || forms[0].Editing {
		t.Errorf("state at seq 1 = %+v, want one form not editing", forms)
	}

	all, err := s.ReadSnapshots(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReadSnapshots() failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(snapshots) = %d, want 2", len(all))
	}
}

func TestCountOutcomes(t *testing.T) {
	s := createTestStore(t)

	recordCommands(t, s, "session-1", nil, 0,
		movieForm(),
		command.DestroyForm{FormKey: "ghost"},
		command.SetFormToSaving{FormKey: "ghost"},
		command.SetFormToSaving{FormKey: "movieForm"},
	)

	counts, err := s.CountOutcomes(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("CountOutcomes() failed: %v", err)
	}
	if counts[OutcomeOK] != 2 {
		t.Errorf("OK = %d, want 2", counts[OutcomeOK])
	}
	if counts["FORM_NOT_FOUND"] != 2 {
		t.Errorf("FORM_NOT_FOUND = %d, want 2", counts["FORM_NOT_FOUND"])
	}
}
