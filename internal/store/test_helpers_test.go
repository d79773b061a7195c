package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/engine"
	"github.com/roach88/formsync/internal/form"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// recordCommands applies cmds to forms the way a Runtime would, recording
// each one with consecutive seqs starting at startSeq+1. Returns the final state.
func recordCommands(t *testing.T, s *Store, session string, forms form.Forms, startSeq int64, cmds ...command.Command) form.Forms {
	t.Helper()
	if forms == nil {
		forms = form.Forms{}
	}
	for i, cmd := range cmds {
		next, err := engine.Apply(forms, cmd)
		if err == nil {
			forms = next
		}
		a := engine.Applied{
			Session: session,
			Seq:     startSeq + int64(i) + 1,
			Command: cmd,
			Err:     err,
			State:   forms,
		}
		if err := s.Record(context.Background(), a); err != nil {
			t.Fatalf("Record(seq %d) failed: %v", a.Seq, err)
		}
	}
	return forms
}

func movieForm() command.CreateForm {
	return command.CreateForm{
		FormKey:     "movieForm",
		EntityPaths: []string{"movie"},
		Fields: []form.FieldDef{
			{Name: "title", EntityPath: "movie"},
			{Name: "cast", EntityPath: "movie", Tabular: true},
		},
	}
}

func titleRef() command.FieldRef {
	return command.FieldRef{FormKey: "movieForm", FieldName: "title", EntityPath: "movie"}
}
