package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/compiler"
	"github.com/roach88/formsync/internal/engine"
	"github.com/roach88/formsync/internal/store"
	"github.com/roach88/formsync/internal/testutil"
	"github.com/roach88/formsync/internal/value"
)

// Harness is the test execution engine.
// It runs scenarios through a Runtime with a fixed session ID.
type Harness struct {
	store   *store.Store
	runtime *engine.Runtime
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Compile form definitions into CREATE_FORM commands
// 3. Apply definitions and steps, checking each outcome
// 4. Replay the recorded session and compare hashes
// 5. Evaluate assertions against the final state
//
// An error is returned when the scenario cannot run at all (bad definitions,
// undecodable commands). Failed expectations are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	creates, err := compileDefs(scenario.Defs)
	if err != nil {
		return nil, err
	}
	steps, err := decodeSteps(scenario.Steps)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		runtime: engine.NewRuntime(
			testutil.NewFixedSessionGenerator(scenario.Session),
			engine.WithRecorder(st),
		),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.runtime.Run(ctx) }()

	result := NewResult()
	result.Session = h.runtime.Session()

	for _, c := range creates {
		if err := h.apply(ctx, c, store.OutcomeOK, "defs", result); err != nil {
			return nil, err
		}
	}
	for i, s := range steps {
		if err := h.apply(ctx, s.cmd, s.expect, fmt.Sprintf("steps[%d]", i), result); err != nil {
			return nil, err
		}
	}

	h.runtime.Stop()
	if err := <-done; err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}
	result.Final = h.runtime.State()

	if err := h.checkReplay(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// apply submits one command and compares its outcome with expect.
func (h *Harness) apply(ctx context.Context, cmd command.Command, expect, where string, result *Result) error {
	a, err := h.runtime.Submit(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%s: submit %s: %w", where, cmd.Type(), err)
	}

	outcome := store.Outcome(a.Err)
	result.AddTrace(a.Seq, string(cmd.Type()), command.FormKeyOf(cmd), outcome)
	h.logger.Debug("step applied", "where", where, "seq", a.Seq, "type", cmd.Type(), "outcome", outcome)

	if outcome != expect {
		result.AddError(fmt.Sprintf("%s (%s, seq %d): outcome %s, want %s", where, cmd.Type(), a.Seq, outcome, expect))
	}
	return nil
}

// checkReplay replays the recorded session and reports any divergence.
func (h *Harness) checkReplay(ctx context.Context, result *Result) error {
	replay, err := h.store.ReplaySession(ctx, result.Session)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	for _, m := range replay.Mismatches {
		result.AddError(fmt.Sprintf("replay seq %d (%s): outcome %s/%s, hash %s/%s",
			m.Seq, m.Type, m.RecordedOutcome, m.ReplayedOutcome, m.RecordedHash, m.ReplayedHash))
	}

	want, err := result.Final.Hash()
	if err != nil {
		return fmt.Errorf("hash final state: %w", err)
	}
	if replay.FinalHash != want {
		result.AddError(fmt.Sprintf("replay final hash %s, want %s", replay.FinalHash, want))
	}
	return nil
}

// compileDefs compiles each defs entry in order. Directories are loaded as
// CUE packages; files are compiled on their own.
func compileDefs(paths []string) ([]command.CreateForm, error) {
	var out []command.CreateForm
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("defs %s: %w", p, err)
		}

		var (
			forms []command.CreateForm
			errs  []error
		)
		if info.IsDir() {
			var defs *compiler.Definitions
			defs, errs = compiler.LoadDefinitions(p)
			if defs != nil {
				forms = defs.Forms
			}
		} else {
			src, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("defs %s: %w", p, err)
			}
			forms, errs = compiler.CompileSource(p, string(src))
		}
		if len(errs) > 0 {
			return nil, fmt.Errorf("defs %s: %w", p, errs[0])
		}
		out = append(out, forms...)
	}
	return out, nil
}

type decodedStep struct {
	cmd    command.Command
	expect string
}

// decodeSteps converts the YAML command maps into commands.
func decodeSteps(steps []Step) ([]decodedStep, error) {
	out := make([]decodedStep, len(steps))
	for i, s := range steps {
		v, err := value.FromAny(s.Command)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, s.commandType(), err)
		}
		obj, _ := v.(value.Object)
		cmd, err := command.Decode(obj)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		expect := s.Expect
		if expect == "" {
			expect = store.OutcomeOK
		}
		out[i] = decodedStep{cmd: cmd, expect: expect}
	}
	return out, nil
}
