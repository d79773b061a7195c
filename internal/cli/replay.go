package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/formsync/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplayMismatch is one command whose replay diverged from the log.
type ReplayMismatch struct {
	Seq             int64  `json:"seq"`
	Type            string `json:"type"`
	RecordedOutcome string `json:"recorded_outcome"`
	ReplayedOutcome string `json:"replayed_outcome"`
	RecordedHash    string `json:"recorded_hash"`
	ReplayedHash    string `json:"replayed_hash"`
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session       string           `json:"session"`
	StartSeq      int64            `json:"start_seq"`
	Commands      int              `json:"commands"`
	Forms         int              `json:"forms"`
	FinalHash     string           `json:"final_hash"`
	Deterministic bool             `json:"deterministic"`
	Mismatches    []ReplayMismatch `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the command log and verify determinism",
		Long: `Re-apply every logged session and compare against the log.

Each session is replayed from the state it started at. For every command
the replayed outcome and snapshot hash must equal the recorded ones.

Exit codes:
  0 - All sessions are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, unknown session, etc.)

Examples:
  formsync replay --db ./forms.db
  formsync replay --db ./forms.db --session 0190...
  formsync replay --db ./forms.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay one session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
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
	if opts.Session != "" {
		sessions = filterSession(sessions, opts.Session)
		if len(sessions) == 0 {
			return fail(formatter, ExitCommandError, ErrCodeNotFound,
				fmt.Sprintf("session not found: %s", opts.Session), nil)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}
	for _, sess := range sessions {
		formatter.VerboseLog("Replaying session %s from seq %d", sess.ID, sess.StartSeq)
		replayed, err := st.ReplaySession(ctx, sess.ID)
		if err != nil {
			code := ErrCodeDatabase
			if errors.Is(err, store.ErrNotFound) {
				code = ErrCodeNotFound
			}
			return fail(formatter, ExitCommandError, code, fmt.Sprintf("failed to replay session %s", sess.ID), err)
		}
		r := sessionResult(sess, replayed)
		result.Sessions = append(result.Sessions, r)
		if !r.Deterministic {
			result.AllDeterministic = false
		}
	}

	var failed *CLIError
	if !result.AllDeterministic {
		failed = &CLIError{Code: "E_NONDETERMINISTIC", Message: "replay diverged from the log"}
	}

	if formatter.JSON() {
		if err := formatter.Result(result, failed); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter, result)
	}
	if failed != nil {
		return NewExitError(ExitFailure, failed.Message)
	}
	return nil
}

func filterSession(sessions []store.Session, id string) []store.Session {
	for _, s := range sessions {
		if s.ID == id {
			return []store.Session{s}
		}
	}
	return nil
}

func sessionResult(sess store.Session, r store.ReplayResult) ReplaySessionResult {
	out := ReplaySessionResult{
		Session:       sess.ID,
		StartSeq:      sess.StartSeq,
		Commands:      r.Commands,
		Forms:         len(r.Final),
		FinalHash:     r.FinalHash,
		Deterministic: r.Deterministic(),
	}
	for _, m := range r.Mismatches {
		out.Mismatches = append(out.Mismatches, ReplayMismatch(m))
	}
	return out
}

func outputReplayText(f *OutputFormatter, result ReplayResult) {
	if result.TotalSessions == 0 {
		f.Printf("No sessions found in database.\n")
		return
	}

	for _, s := range result.Sessions {
		mark := "✓"
		if !s.Deterministic {
			mark = "✗"
		}
		f.Printf("%s %s: %d command(s) from seq %d, %d form(s)\n", mark, s.Session, s.Commands, s.StartSeq, s.Forms)
		if f.Verbose {
			f.Printf("    final hash %s\n", s.FinalHash)
		}
		for _, m := range s.Mismatches {
			f.Printf("    seq %d %s: outcome %s -> %s, hash %s -> %s\n",
				m.Seq, m.Type, m.RecordedOutcome, m.ReplayedOutcome, shortHash(m.RecordedHash), shortHash(m.ReplayedHash))
		}
	}

	f.Printf("\n")
	if result.AllDeterministic {
		f.Printf("✓ All %d session(s) replayed deterministically\n", result.TotalSessions)
	} else {
		f.Printf("✗ Replay diverged from the log\n")
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
