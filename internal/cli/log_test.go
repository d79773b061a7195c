package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsync/internal/value"
)

func TestLog(t *testing.T) {
	dbPath := applyMovie(t, "s1")

	t.Run("all entries", func(t *testing.T) {
		out, err := execute(t, NewLogCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--session", "s1")
		require.NoError(t, err)

		result := decodeResponse[LogResult](t, out).Data
		assert.Equal(t, "s1", result.Session)
		assert.Equal(t, int64(0), result.StartSeq)
		require.Len(t, result.Entries, 4)
		for i, e := range result.Entries {
			assert.Equal(t, int64(i+1), e.Seq)
			assert.NotEmpty(t, e.ID)
			assert.Nil(t, e.Payload)
		}
		assert.Equal(t, "FORM_NOT_FOUND", result.Entries[3].Outcome)
		assert.Equal(t, map[string]int{"OK": 3, "FORM_NOT_FOUND": 1}, result.Outcomes)
	})

	t.Run("filter by type with payload", func(t *testing.T) {
		out, err := execute(t, NewLogCommand(&RootOptions{Format: "json"}),
			"--db", dbPath, "--session", "s1", "--type", "INPUT_CHANGE", "--payload")
		require.NoError(t, err)

		result := decodeResponse[LogResult](t, out).Data
		require.Len(t, result.Entries, 1)
		assert.Equal(t, value.String("Matrix"), result.Entries[0].Payload["rawValue"])
		assert.Equal(t, value.String("title"), result.Entries[0].Payload["fieldName"])
	})

	t.Run("filter by form", func(t *testing.T) {
		out, err := execute(t, NewLogCommand(&RootOptions{Format: "json"}),
			"--db", dbPath, "--session", "s1", "--form", "ghost")
		require.NoError(t, err)

		result := decodeResponse[LogResult](t, out).Data
		require.Len(t, result.Entries, 1)
		assert.Equal(t, "DESTROY_FORM", result.Entries[0].Type)
	})

	t.Run("filter by outcome", func(t *testing.T) {
		out, err := execute(t, NewLogCommand(&RootOptions{Format: "json"}),
			"--db", dbPath, "--session", "s1", "--outcome", "OK", "--form", "movieForm")
		require.NoError(t, err)

		result := decodeResponse[LogResult](t, out).Data
		require.Len(t, result.Entries, 3)
		assert.Equal(t, int64(1), result.Entries[0].Seq)
		assert.Equal(t, map[string]int{"OK": 3, "FORM_NOT_FOUND": 1}, result.Outcomes, "counts cover the whole session")
	})

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, NewLogCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--session", "s1")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Session s1 (from seq 0)")
		assert.Contains(t, out.String(), "4 command(s) logged")
	})

	t.Run("unknown session", func(t *testing.T) {
		out, err := execute(t, NewLogCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--session", "nope")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		resp := decodeResponse[any](t, out)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	})
}
