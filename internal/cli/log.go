package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/store"
	"github.com/roach88/formsync/internal/value"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database string
	Session  string
	Type     string // optional - filter to one command type
	FormKey  string // optional - filter to one form
	Outcome  string // optional - filter to one outcome
	Payload  bool   // include command payloads
}

// LogEntry is one logged command.
type LogEntry struct {
	Seq     int64        `json:"seq"`
	ID      string       `json:"id"`
	Type    string       `json:"type"`
	FormKey string       `json:"formKey,omitempty"`
	Outcome string       `json:"outcome"`
	Payload value.Object `json:"payload,omitempty"`
}

// LogResult holds the log output for one session.
type LogResult struct {
	Session  string         `json:"session"`
	StartSeq int64          `json:"start_seq"`
	Entries  []LogEntry     `json:"entries"`
	Outcomes map[string]int `json:"outcomes"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the command log of a session",
		Long: `List the commands logged for a session in seq order.

Each entry shows the content-addressed command ID, the command type, the
addressed form and the recorded outcome. Outcome counts cover the whole
session regardless of filters.

Examples:
  formsync log --db ./forms.db --session 0190...
  formsync log --db ./forms.db --session 0190... --type INPUT_CHANGE
  formsync log --db ./forms.db --session 0190... --form movieForm --payload`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to show (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only show commands of this type")
	cmd.Flags().StringVar(&opts.FormKey, "form", "", "only show commands addressing this form")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only show commands with this outcome (OK or an error code)")
	cmd.Flags().BoolVar(&opts.Payload, "payload", false, "include command payloads")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	sessions, err := st.ReadSessions(ctx)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, "failed to list sessions", err)
	}
	found := filterSession(sessions, opts.Session)
	if len(found) == 0 {
		return fail(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("session not found: %s", opts.Session), nil)
	}

	records, err := st.QueryCommands(ctx, opts.Session, store.CommandFilter{
		Type:    opts.Type,
		FormKey: opts.FormKey,
		Outcome: opts.Outcome,
	})
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, "failed to read commands", err)
	}
	outcomes, err := st.CountOutcomes(ctx, opts.Session)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, "failed to count outcomes", err)
	}

	result := LogResult{
		Session:  opts.Session,
		StartSeq: found[0].StartSeq,
		Entries:  []LogEntry{},
		Outcomes: outcomes,
	}
	for _, rec := range records {
		entry := LogEntry{
			Seq:     rec.Seq,
			ID:      rec.ID,
			Type:    string(rec.Command.Type()),
			FormKey: command.FormKeyOf(rec.Command),
			Outcome: rec.Outcome,
		}
		if opts.Payload {
			entry.Payload = command.Payload(rec.Command)
		}
		result.Entries = append(result.Entries, entry)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputLogText(formatter, result)
	return nil
}

func outputLogText(f *OutputFormatter, result LogResult) {
	f.Printf("Session %s (from seq %d)\n\n", result.Session, result.StartSeq)
	if len(result.Entries) == 0 {
		f.Printf("No commands found.\n")
	}
	for _, e := range result.Entries {
		f.Printf("%4d %-26s %-14s %-16s %s\n", e.Seq, e.Type, e.FormKey, e.Outcome, shortHash(e.ID))
		if e.Payload != nil {
			data, err := value.Marshal(e.Payload)
			if err == nil {
				f.Printf("     %s\n", data)
			}
		}
	}

	outcomes := make([]string, 0, len(result.Outcomes))
	total := 0
	for o, n := range result.Outcomes {
		outcomes = append(outcomes, o)
		total += n
	}
	sort.Strings(outcomes)
	f.Printf("\n%d command(s) logged\n", total)
	for _, o := range outcomes {
		f.Printf("  %s: %d\n", o, result.Outcomes[o])
	}
}
