package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayDeterministic(t *testing.T) {
	dbPath := applyMovie(t, "s1")

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	resp := decodeResponse[ReplayResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.AllDeterministic)
	assert.Equal(t, 1, resp.Data.TotalSessions)
	require.Len(t, resp.Data.Sessions, 1)

	s := resp.Data.Sessions[0]
	assert.Equal(t, "s1", s.Session)
	assert.Equal(t, int64(0), s.StartSeq)
	assert.Equal(t, 4, s.Commands)
	assert.Equal(t, 1, s.Forms)
	assert.NotEmpty(t, s.FinalHash)
	assert.Empty(t, s.Mismatches)
}

func TestReplayText(t *testing.T) {
	dbPath := applyMovie(t, "s1")

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--session", "s1")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✓ s1: 4 command(s) from seq 0, 1 form(s)")
	assert.Contains(t, out.String(), "✓ All 1 session(s) replayed deterministically")
}

func TestReplayDetectsTamperedSnapshot(t *testing.T) {
	dbPath := applyMovie(t, "s1")

	st := openTestStore(t, dbPath)
	_, err := st.DB().ExecContext(context.Background(),
		`UPDATE snapshots SET state_hash = 'tampered' WHERE session_id = 's1' AND seq = 3`)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse[ReplayResult](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_NONDETERMINISTIC", resp.Error.Code)
	assert.False(t, resp.Data.AllDeterministic)

	require.Len(t, resp.Data.Sessions, 1)
	require.Len(t, resp.Data.Sessions[0].Mismatches, 1)
	m := resp.Data.Sessions[0].Mismatches[0]
	assert.Equal(t, int64(3), m.Seq)
	assert.Equal(t, "INPUT_CHANGE", m.Type)
	assert.Equal(t, "tampered", m.RecordedHash)
	assert.NotEqual(t, m.RecordedHash, m.ReplayedHash)
	assert.Equal(t, m.RecordedOutcome, m.ReplayedOutcome)
}

func TestReplayUnknownSession(t *testing.T) {
	dbPath := applyMovie(t, "s1")

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse[any](t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestReplayEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No sessions found in database.")
}

func TestReplayResumedSession(t *testing.T) {
	dbPath := applyMovie(t, "s1")
	cmdsPath := writeFile(t, t.TempDir(), "more.jsonl",
		`{"type":"SET_FORM_TO_SAVING","formKey":"movieForm"}`+"\n")
	_, err := execute(t, NewApplyCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--session", "s2", cmdsPath)
	require.NoError(t, err)

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--session", "s2")
	require.NoError(t, err)

	resp := decodeResponse[ReplayResult](t, out)
	require.Len(t, resp.Data.Sessions, 1)
	assert.Equal(t, int64(4), resp.Data.Sessions[0].StartSeq)
	assert.True(t, resp.Data.Sessions[0].Deterministic)
}
