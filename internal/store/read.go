package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ReadSessions returns all sessions ordered by ID. UUIDv7 session IDs sort
// by creation time.
//
// Returns an empty slice (not nil) if there are no sessions.
func (s *Store) ReadSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_seq, engine_version, schema_version
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.StartSeq, &sess.EngineVersion, &sess.SchemaVersion); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadCommands returns all commands of a session with deterministic
// ordering: ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if the session has no commands.
func (s *Store) ReadCommands(ctx context.Context, session string) ([]CommandRecord, error) {
	return s.QueryCommands(ctx, session, CommandFilter{})
}

// ReadSnapshots returns all snapshots of a session ordered by seq.
func (s *Store) ReadSnapshots(ctx context.Context, session string) ([]SnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, state_hash, state
		FROM snapshots
		WHERE session_id = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []SnapshotRecord{}
	for rows.Next() {
		var snap SnapshotRecord
		if err := rows.Scan(&snap.Session, &snap.Seq, &snap.StateHash, &snap.State); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

// ReadSnapshot returns the snapshot of a session at seq.
// Returns ErrNotFound if there is none.
func (s *Store) ReadSnapshot(ctx context.Context, session string, seq int64) (SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, seq, state_hash, state
		FROM snapshots
		WHERE session_id = ? AND seq = ?
	`, session, seq)
	return scanSnapshotRow(row)
}

// LatestSnapshot returns the snapshot with the highest seq in a session.
// Returns ErrNotFound if the session has no snapshots.
func (s *Store) LatestSnapshot(ctx context.Context, session string) (SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, seq, state_hash, state
		FROM snapshots
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, session)
	return scanSnapshotRow(row)
}

func scanSnapshotRow(row *sql.Row) (SnapshotRecord, error) {
	var snap SnapshotRecord
	err := row.Scan(&snap.Session, &snap.Seq, &snap.StateHash, &snap.State)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRecord{}, ErrNotFound
	}
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("scan snapshot: %w", err)
	}
	return snap, nil
}

// CountOutcomes returns how many commands of a session ended with each outcome.
func (s *Store) CountOutcomes(ctx context.Context, session string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*)
		FROM commands
		WHERE session_id = ?
		GROUP BY outcome
		ORDER BY outcome
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		counts[outcome] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return counts, nil
}
