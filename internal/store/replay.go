package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/formsync/internal/engine"
	"github.com/roach88/formsync/internal/form"
)

// Mismatch describes one logged command whose replayed result differs from
// what was recorded.
type Mismatch struct {
	Seq             int64
	Type            string
	RecordedOutcome string
	ReplayedOutcome string
	RecordedHash    string
	ReplayedHash    string
}

// ReplayResult is the outcome of re-applying a logged session.
type ReplayResult struct {
	Session    string
	Commands   int
	Final      form.Forms
	FinalHash  string
	Mismatches []Mismatch
}

// Deterministic reports whether every replayed command matched the log.
func (r ReplayResult) Deterministic() bool {
	return len(r.Mismatches) == 0
}

// ReplaySession re-applies the logged commands of a session to its base
// state and compares each outcome and snapshot hash against the log.
//
// Replay uses the same engine.Apply as live execution; there is no separate
// replay mode. A session with StartSeq 0 starts from an empty collection. A
// resumed session starts from the snapshot recorded at its StartSeq.
func (s *Store) ReplaySession(ctx context.Context, session string) (ReplayResult, error) {
	sess, err := s.readSession(ctx, session)
	if err != nil {
		return ReplayResult{}, err
	}
	forms, err := s.baseState(ctx, sess)
	if err != nil {
		return ReplayResult{}, err
	}
	commands, err := s.ReadCommands(ctx, session)
	if err != nil {
		return ReplayResult{}, err
	}
	snaps, err := s.ReadSnapshots(ctx, session)
	if err != nil {
		return ReplayResult{}, err
	}
	hashes := make(map[int64]string, len(snaps))
	for _, snap := range snaps {
		hashes[snap.Seq] = snap.StateHash
	}

	result := ReplayResult{Session: session, Mismatches: []Mismatch{}}
	for _, rec := range commands {
		if err := ctx.Err(); err != nil {
			return ReplayResult{}, err
		}
		next, applyErr := engine.Apply(forms, rec.Command)
		if applyErr == nil {
			forms = next
		} else if engine.Code(applyErr) == "" {
			return ReplayResult{}, fmt.Errorf("replay seq %d: %w", rec.Seq, applyErr)
		}
		_, hash, err := marshalState(forms)
		if err != nil {
			return ReplayResult{}, fmt.Errorf("replay seq %d: %w", rec.Seq, err)
		}
		outcome := Outcome(applyErr)
		if outcome != rec.Outcome || hash != hashes[rec.Seq] {
			result.Mismatches = append(result.Mismatches, Mismatch{
				Seq:             rec.Seq,
				Type:            string(rec.Command.Type()),
				RecordedOutcome: rec.Outcome,
				ReplayedOutcome: outcome,
				RecordedHash:    hashes[rec.Seq],
				ReplayedHash:    hash,
			})
		}
		result.Commands++
	}

	_, finalHash, err := marshalState(forms)
	if err != nil {
		return ReplayResult{}, err
	}
	result.Final = forms
	result.FinalHash = finalHash
	return result, nil
}

// LoadLatest returns the most recent recorded forms collection and its seq,
// for resuming a Runtime. It returns an empty collection at seq 0 when
// nothing has been recorded.
func (s *Store) LoadLatest(ctx context.Context) (form.Forms, int64, error) {
	var (
		seq   int64
		state string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, state
		FROM snapshots
		ORDER BY seq DESC, session_id COLLATE BINARY DESC
		LIMIT 1
	`).Scan(&seq, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return form.Forms{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load latest: %w", err)
	}
	forms, err := unmarshalState(state)
	if err != nil {
		return nil, 0, fmt.Errorf("load latest: %w", err)
	}
	return forms, seq, nil
}

func (s *Store) readSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, start_seq, engine_version, schema_version
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.StartSeq, &sess.EngineVersion, &sess.SchemaVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

func (s *Store) baseState(ctx context.Context, sess Session) (form.Forms, error) {
	if sess.StartSeq == 0 {
		return form.Forms{}, nil
	}
	var state string
	err := s.db.QueryRowContext(ctx, `
		SELECT state
		FROM snapshots
		WHERE seq = ? AND session_id <> ?
		ORDER BY session_id COLLATE BINARY DESC
		LIMIT 1
	`, sess.StartSeq, sess.ID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: base snapshot at seq %d: %w", sess.ID, sess.StartSeq, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read base snapshot: %w", err)
	}
	return unmarshalState(state)
}
