package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsync/internal/testutil"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"title_input", "toggle_editing", "movie_sync"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_DefaultSession(t *testing.T) {
	s := loadTestScenario(t, "movie_sync")
	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, testutil.DefaultSession, result.Session)
}

func TestRun_TraceSeqs(t *testing.T) {
	result, err := Run(loadTestScenario(t, "movie_sync"))
	require.NoError(t, err)

	require.Len(t, result.Trace, 7)
	for i, event := range result.Trace {
		assert.Equal(t, int64(i+1), event.Seq)
	}
	assert.Equal(t, "CREATE_FORM", result.Trace[0].Type)
	assert.Equal(t, "FIELD_NOT_FOUND", result.Trace[5].Outcome)
	assert.Equal(t, "SHAPE_MISMATCH", result.Trace[6].Outcome)
}

func TestRun_UnexpectedOutcome(t *testing.T) {
	s := &Scenario{
		Name:        "unexpected",
		Description: "destroying a missing form is expected to succeed",
		Steps: []Step{
			{Command: map[string]any{"type": "DESTROY_FORM", "formKey": "ghost"}},
		},
		Assertions: []Assertion{{Type: AssertFormCount, Count: 0}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "outcome FORM_NOT_FOUND, want OK")
}

func TestRun_FailedAssertion(t *testing.T) {
	s := &Scenario{
		Name:        "failing",
		Description: "asserts a value the steps never produce",
		Steps: []Step{
			{Command: map[string]any{
				"type":            "CREATE_FORM",
				"formKey":         "movieForm",
				"entityPathArray": []any{"movie"},
				"fields":          []any{map[string]any{"name": "title", "entityPath": "movie"}},
			}},
		},
		Assertions: []Assertion{{
			Type:       AssertFieldState,
			Form:       "movieForm",
			EntityPath: "movie",
			Field:      "title",
			Expect:     map[string]any{"dirty": true},
		}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "dirty = false, want true")
}

func TestRun_UndecodableCommand(t *testing.T) {
	s := &Scenario{
		Name:        "bad_command",
		Description: "unknown command type",
		Steps:       []Step{{Command: map[string]any{"type": "REBOOT"}}},
		Assertions:  []Assertion{{Type: AssertFormCount}},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[0]")
}

func TestRun_BadDefs(t *testing.T) {
	s := &Scenario{
		Name:        "bad_defs",
		Description: "defs path vanished",
		Defs:        []string{filepath.Join(t.TempDir(), "missing.cue")},
		Assertions:  []Assertion{{Type: AssertFormCount}},
	}

	_, err := Run(s)
	require.Error(t, err)
}
