package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/engine"
	"github.com/roach88/formsync/internal/value"
)

// WriteSession inserts a session row. Duplicate IDs are silently ignored.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	return writeSession(ctx, s.db, sess)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeSession(ctx context.Context, db execer, sess Session) error {
	if sess.EngineVersion == "" {
		sess.EngineVersion = value.EngineVersion
	}
	if sess.SchemaVersion == "" {
		sess.SchemaVersion = value.SchemaVersion
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (id, start_seq, engine_version, schema_version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.StartSeq, sess.EngineVersion, sess.SchemaVersion)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteCommand inserts a command record, computing its content-addressed ID
// when rec.ID is empty. Uses ON CONFLICT DO NOTHING for idempotency.
// The session must exist (foreign key constraint).
func (s *Store) WriteCommand(ctx context.Context, rec CommandRecord) (string, error) {
	return writeCommand(ctx, s.db, rec)
}

func writeCommand(ctx context.Context, db execer, rec CommandRecord) (string, error) {
	payload, err := marshalPayload(rec.Command)
	if err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}
	id := rec.ID
	if id == "" {
		id, err = value.CommandID(rec.Session, string(rec.Command.Type()), command.Payload(rec.Command), rec.Seq)
		if err != nil {
			return "", fmt.Errorf("write command: %w", err)
		}
	}
	outcome := rec.Outcome
	if outcome == "" {
		outcome = OutcomeOK
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO commands (id, session_id, seq, type, payload, outcome)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, id, rec.Session, rec.Seq, string(rec.Command.Type()), payload, outcome)
	if err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}
	return id, nil
}

// WriteSnapshot inserts a snapshot. Uses ON CONFLICT DO NOTHING for idempotency.
func (s *Store) WriteSnapshot(ctx context.Context, snap SnapshotRecord) error {
	return writeSnapshot(ctx, s.db, snap)
}

func writeSnapshot(ctx context.Context, db execer, snap SnapshotRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO snapshots (session_id, seq, state_hash, state)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, snap.Session, snap.Seq, snap.StateHash, snap.State)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Record implements engine.Recorder. It writes the session (if new), the
// command and the resulting snapshot in one transaction.
func (s *Store) Record(ctx context.Context, a engine.Applied) error {
	state, hash, err := marshalState(a.State)
	if err != nil {
		return fmt.Errorf("record seq %d: %w", a.Seq, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record seq %d: begin tx: %w", a.Seq, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := writeSession(ctx, tx, Session{ID: a.Session, StartSeq: a.Seq - 1}); err != nil {
		return fmt.Errorf("record seq %d: %w", a.Seq, err)
	}
	if _, err := writeCommand(ctx, tx, CommandRecord{
		Session: a.Session,
		Seq:     a.Seq,
		Command: a.Command,
		Outcome: Outcome(a.Err),
	}); err != nil {
		return fmt.Errorf("record seq %d: %w", a.Seq, err)
	}
	if err := writeSnapshot(ctx, tx, SnapshotRecord{
		Session:   a.Session,
		Seq:       a.Seq,
		StateHash: hash,
		State:     state,
	}); err != nil {
		return fmt.Errorf("record seq %d: %w", a.Seq, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record seq %d: commit: %w", a.Seq, err)
	}
	return nil
}
