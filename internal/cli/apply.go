package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Database string
	Defs     string // optional CUE definitions applied first
	Session  string // optional fixed session ID
	Strict   bool   // exit 1 when any command is rejected
}

// AppliedCommand is one line of apply output.
type AppliedCommand struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	FormKey string `json:"formKey,omitempty"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// ApplyResult is the JSON output of apply.
type ApplyResult struct {
	Session  string           `json:"session"`
	StartSeq int64            `json:"start_seq"`
	Seq      int64            `json:"seq"`
	Forms    int              `json:"forms"`
	Commands []AppliedCommand `json:"commands"`
	Outcomes map[string]int   `json:"outcomes"`
}

// Rejected returns the number of commands that were no-ops.
func (r ApplyResult) Rejected() int {
	n := 0
	for outcome, count := range r.Outcomes {
		if outcome != store.OutcomeOK {
			n += count
		}
	}
	return n
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <commands.jsonl>",
		Short: "Apply wire commands and record them in the log",
		Long: `Apply commands from a JSON lines file ("-" reads stdin) in a new session.

The session continues from the latest state recorded in the database.
With --defs, CREATE_FORM commands for definitions not yet in that state
are applied first. Blank lines and lines starting with # are skipped.

Every line is decoded before anything is applied: a malformed command
aborts the run without touching the log. Commands the engine rejects
(unknown form, shape mismatch, ...) are logged as no-ops and reported;
with --strict they make the run fail.

Exit codes:
  0 - All commands applied (or rejected without --strict)
  1 - --strict and at least one command was rejected
  2 - Command error (bad input file, database error, etc.)

Examples:
  formsync apply --db ./forms.db commands.jsonl
  formsync apply --db ./forms.db --defs ./defs commands.jsonl
  cat commands.jsonl | formsync apply --db ./forms.db -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Defs, "defs", "", "directory of CUE form definitions to create first")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session ID (default: new UUIDv7)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail when any command is rejected")

	return cmd
}

func runApply(opts *ApplyOptions, input string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmds, err := readCommandFile(input, cmd.InOrStdin())
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDecode, "reading commands", err)
	}

	var defs []command.CreateForm
	if opts.Defs != "" {
		if defs, err = requireDefinitions(formatter, opts.Defs); err != nil {
			return err
		}
	}

	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	rt, err := resumeRuntime(ctx, st, nil, opts.Session)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, "failed to resume from log", err)
	}
	startSeq := rt.Seq()
	cmds = append(missingForms(defs, rt.State()), cmds...)

	stop := runInBackground(ctx, rt)
	result := ApplyResult{
		Session:  rt.Session(),
		StartSeq: startSeq,
		Commands: make([]AppliedCommand, 0, len(cmds)),
		Outcomes: map[string]int{},
	}
	for _, c := range cmds {
		a, err := rt.Submit(ctx, c)
		if err != nil {
			_ = stop()
			return fail(formatter, ExitCommandError, ErrCodeGeneric, "applying commands", err)
		}
		line := AppliedCommand{
			Seq:     a.Seq,
			Type:    string(c.Type()),
			FormKey: command.FormKeyOf(c),
			Outcome: store.Outcome(a.Err),
		}
		if a.Err != nil {
			line.Error = a.Err.Error()
		}
		result.Commands = append(result.Commands, line)
		result.Outcomes[line.Outcome]++
		formatter.VerboseLog("seq %d %s %s", line.Seq, line.Type, line.Outcome)
	}
	if err := stop(); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, "runtime error", err)
	}
	result.Seq = rt.Seq()
	result.Forms = len(rt.State())

	rejected := result.Rejected()
	var failed *CLIError
	if opts.Strict && rejected > 0 {
		failed = &CLIError{Code: "E_REJECTED", Message: fmt.Sprintf("%d command(s) rejected", rejected)}
	}

	if formatter.JSON() {
		if err := formatter.Result(result, failed); err != nil {
			return err
		}
	} else {
		outputApplyText(formatter, result)
	}
	if failed != nil {
		return NewExitError(ExitFailure, failed.Message)
	}
	return nil
}

func outputApplyText(f *OutputFormatter, result ApplyResult) {
	for _, c := range result.Commands {
		mark := "✓"
		if c.Outcome != store.OutcomeOK {
			mark = "✗"
		}
		f.Printf("%s %4d %-26s %-14s %s\n", mark, c.Seq, c.Type, c.FormKey, c.Outcome)
		if c.Error != "" && f.Verbose {
			f.Printf("         %s\n", c.Error)
		}
	}

	outcomes := make([]string, 0, len(result.Outcomes))
	for o := range result.Outcomes {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)

	f.Printf("\nSession %s: applied %d command(s), seq %d -> %d, %d form(s)\n",
		result.Session, len(result.Commands), result.StartSeq, result.Seq, result.Forms)
	for _, o := range outcomes {
		f.Printf("  %s: %d\n", o, result.Outcomes[o])
	}
}

// readCommandFile decodes a JSON lines command file. "-" reads stdin.
// Every malformed line is reported, with its line number.
func readCommandFile(path string, stdin io.Reader) ([]command.Command, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return decodeCommandLines(r)
}

func decodeCommandLines(r io.Reader) ([]command.Command, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var (
		cmds []command.Command
		errs []string
		n    int
	)
	for scanner.Scan() {
		n++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		c, err := command.Unmarshal(line)
		if err != nil {
			errs = append(errs, fmt.Sprintf("line %d: %v", n, err))
			continue
		}
		cmds = append(cmds, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, &decodeErrors{lines: errs}
	}
	return cmds, nil
}

// decodeErrors lists every malformed line of a command file.
type decodeErrors struct {
	lines []string
}

func (e *decodeErrors) Error() string {
	if len(e.lines) == 1 {
		return e.lines[0]
	}
	return fmt.Sprintf("%s (and %d more)", e.lines[0], len(e.lines)-1)
}
