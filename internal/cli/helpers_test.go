package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const movieDefs = `package defs

form: movieForm: {
	entityPaths: ["movie"]
	fields: [
		{name: "title"},
		{name: "year", default: 1999},
		{name: "cast", tabular: true},
	]
}
`

const movieCommands = `{"type":"TOGGLE_FORM_EDITING","formKey":"movieForm","editing":true}
# a comment line

{"type":"INPUT_CHANGE","formKey":"movieForm","entityPath":"movie","fieldName":"title","rawValue":"Matrix","formattedValue":"Matrix"}
{"type":"DESTROY_FORM","formKey":"ghost"}
`

// response is CLIResponse with a typed payload.
type response[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func decodeResponse[T any](t *testing.T, out *bytes.Buffer) response[T] {
	t.Helper()
	var resp response[T]
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp), out.String())
	return resp
}

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// defsDir writes src as the only definitions file of a new directory.
func defsDir(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "forms.cue", src)
	return dir
}

// execute runs cmd with args and returns its stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return out, cmd.Execute()
}

// executeContext is execute with a context for commands that block.
func executeContext(t *testing.T, ctx context.Context, cmd *cobra.Command, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return out, cmd.ExecuteContext(ctx)
}

// applyMovie applies movieCommands with movieDefs in session to a new
// database and returns its path.
func applyMovie(t *testing.T, session string) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "forms.db")
	cmdsPath := writeFile(t, dir, "commands.jsonl", movieCommands)

	_, err := execute(t, NewApplyCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--defs", defsDir(t, movieDefs), "--session", session, cmdsPath)
	require.NoError(t, err)
	return dbPath
}
