package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/formsync/internal/engine"
	"github.com/roach88/formsync/internal/store"
)

// openStore opens the command log at path, creating it if needed.
func openStore(f *OutputFormatter, path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, fail(f, ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	return st, nil
}

// closeStore closes st, logging instead of failing: results were already
// written by the time a command closes its store.
func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// resumeRuntime creates a Runtime that continues from the latest recorded
// state in st and records every command it applies there.
//
// session names the new session; it must not already be in the log, since
// a session's commands are replayed from the state it started at. A nil
// sessions generator means UUIDv7.
func resumeRuntime(ctx context.Context, st *store.Store, sessions engine.SessionGenerator, session string, opts ...engine.RuntimeOption) (*engine.Runtime, error) {
	if session != "" {
		existing, err := st.ReadSessions(ctx)
		if err != nil {
			return nil, err
		}
		if slices.ContainsFunc(existing, func(s store.Session) bool { return s.ID == session }) {
			return nil, fmt.Errorf("session %s already exists in the log", session)
		}
	}

	forms, seq, err := st.LoadLatest(ctx)
	if err != nil {
		return nil, err
	}
	slog.Debug("resuming from log", "seq", seq, "forms", len(forms))

	base := []engine.RuntimeOption{
		engine.WithRecorder(st),
		engine.WithInitialState(forms),
		engine.WithStartSeq(seq),
	}
	if session != "" {
		base = append(base, engine.WithSession(session))
	}
	if sessions == nil {
		sessions = engine.UUIDv7Generator{}
	}
	return engine.NewRuntime(sessions, append(base, opts...)...), nil
}

// runInBackground starts rt.Run and returns a function that stops it and
// waits for the queue to drain.
func runInBackground(ctx context.Context, rt *engine.Runtime) (stop func() error) {
	done := make(chan error, 1)
	go func() {
		done <- rt.Run(ctx)
	}()
	return func() error {
		rt.Stop()
		err := <-done
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}
