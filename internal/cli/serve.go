package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/engine"
	"github.com/roach88/formsync/internal/metrics"
	"github.com/roach88/formsync/internal/server"
	"github.com/roach88/formsync/internal/status"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr          string
	Database      string
	Defs          string
	Session       string
	HistoryLimit  int
	SubmitTimeout time.Duration
	Entities      []string // entity names whose load/save status is tracked
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP",
		Long: `Start a Runtime that continues from the latest logged state and serve it.

Routes:
  GET  /healthz            session and current seq
  GET  /forms              all forms (?seq=N for a retained snapshot)
  GET  /forms/{formKey}    one form
  POST /commands           apply one wire command
  GET  /metrics            Prometheus metrics
  GET  /entities           load/save status, with --entity
  POST /entities/events    REQUEST_/RESPONSE_/ERROR_ LOAD or SAVE events

With --defs, CREATE_FORM commands for definitions not yet in the state are
applied at startup. Stops gracefully on SIGINT/SIGTERM after draining queued
commands.

Examples:
  formsync serve --db ./forms.db
  formsync serve --db ./forms.db --defs ./defs --addr :9090
  formsync serve --db ./forms.db --entity movie --entity actor`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Defs, "defs", "", "directory of CUE form definitions to create at startup")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session ID (default: new UUIDv7)")
	cmd.Flags().IntVar(&opts.HistoryLimit, "history", 1000, "snapshots kept for GET /forms?seq (0 keeps all)")
	cmd.Flags().DurationVar(&opts.SubmitTimeout, "submit-timeout", 10*time.Second, "how long POST /commands waits to be applied")
	cmd.Flags().StringSliceVar(&opts.Entities, "entity", nil, "track the load/save status of this entity (repeatable)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stopSignals := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	var defs []command.CreateForm
	if opts.Defs != "" {
		var err error
		if defs, err = requireDefinitions(formatter, opts.Defs); err != nil {
			return err
		}
	}

	serverOpts := []server.Option{server.WithSubmitTimeout(opts.SubmitTimeout)}
	if len(opts.Entities) > 0 {
		tracker, err := status.Conventional(opts.Entities...)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeGeneric, "invalid --entity", err)
		}
		serverOpts = append(serverOpts, server.WithEntities(tracker))
	}

	slog.Info("opening database", "path", opts.Database)
	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	collector := metrics.New()
	rt, err := resumeRuntime(ctx, st, nil, opts.Session,
		engine.WithObserver(collector),
		engine.WithHistoryLimit(opts.HistoryLimit),
	)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, "failed to resume from log", err)
	}

	// The runtime outlives ctx so queued commands drain after a signal.
	stopRuntime := runInBackground(context.Background(), rt)
	for _, c := range missingForms(defs, rt.State()) {
		rt.Enqueue(c)
	}

	handler := server.New(rt, append(serverOpts, server.WithMetrics(collector.Handler()))...)
	formatter.Printf("Serving session %s on %s (seq %d). Press Ctrl-C to stop.\n", rt.Session(), opts.Addr, rt.Seq())

	serveErr := server.ListenAndServe(ctx, opts.Addr, handler)
	if err := stopRuntime(); err != nil {
		slog.Error("runtime error", "error", err)
	}
	if serveErr != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("serving on %s", opts.Addr), serveErr)
	}
	slog.Info("server stopped gracefully", "session", rt.Session(), "seq", rt.Seq())
	return nil
}
