package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/form"
)

// ErrStopped is returned by Submit once the Runtime no longer accepts commands.
var ErrStopped = errors.New("runtime stopped")

// Applied describes one command applied by a Runtime.
type Applied struct {
	Session string
	Seq     int64
	Command command.Command
	// Err is the *TransitionError when the command was a no-op, else nil.
	Err error
	// State is the forms collection after the command.
	State form.Forms
	// Duration is the wall time spent in Apply. Observational only.
	Duration time.Duration
}

// Recorder persists applied commands. Implemented by the store.
type Recorder interface {
	Record(ctx context.Context, a Applied) error
}

// Observer is notified after each applied command. Implemented by metrics.
type Observer interface {
	Observe(a Applied)
}

// Snapshot is the forms collection as of a seq. Seq 0 is the initial state.
type Snapshot struct {
	Seq   int64
	Forms form.Forms
}

// Runtime is the single-writer dispatch loop around Apply.
//
// Commands are enqueued from any goroutine and applied strictly in FIFO
// order by the one goroutine running Run. Each applied command is stamped
// with the next seq and produces a new Snapshot; earlier snapshots stay
// valid because Apply never mutates its input.
//
// Thread-safety model:
//   - Enqueue, Submit, State, Seq, History, At: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Runtime struct {
	session      string
	lastSeq      int64 // owned by Run after construction
	queue        *commandQueue
	recorder     Recorder
	observers    []Observer
	historyLimit int

	mu      sync.RWMutex
	history []Snapshot // ascending seq; last element is the current state
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRecorder persists every applied command through r.
func WithRecorder(r Recorder) RuntimeOption {
	return func(rt *Runtime) {
		rt.recorder = r
	}
}

// WithObserver adds an observer notified after every applied command.
func WithObserver(o Observer) RuntimeOption {
	return func(rt *Runtime) {
		rt.observers = append(rt.observers, o)
	}
}

// WithStartSeq numbers commands after seq, the last seq already in the log.
// Used to resume a logged session. Negative values are ignored.
func WithStartSeq(seq int64) RuntimeOption {
	return func(rt *Runtime) {
		rt.lastSeq = max(seq, 0)
	}
}

// WithSession fixes the session ID instead of generating one.
func WithSession(id string) RuntimeOption {
	return func(rt *Runtime) {
		rt.session = id
	}
}

// WithInitialState starts the runtime from forms instead of an empty collection.
func WithInitialState(forms form.Forms) RuntimeOption {
	return func(rt *Runtime) {
		rt.history = []Snapshot{{Forms: forms}}
	}
}

// WithHistoryLimit keeps at most n snapshots. Zero keeps all of them.
func WithHistoryLimit(n int) RuntimeOption {
	return func(rt *Runtime) {
		rt.historyLimit = n
	}
}

// NewRuntime creates a Runtime. sessions may be nil when WithSession is given.
func NewRuntime(sessions SessionGenerator, opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		queue:   newCommandQueue(),
		history: []Snapshot{{Forms: form.Forms{}}},
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.session == "" {
		rt.session = sessions.Generate()
	}
	rt.history[0].Seq = rt.lastSeq
	return rt
}

// Session returns the session ID stamped on every applied command.
func (rt *Runtime) Session() string {
	return rt.session
}

// Enqueue submits cmd for processing by the Run loop.
// Returns false if the runtime has been stopped or cmd is nil.
func (rt *Runtime) Enqueue(cmd command.Command) bool {
	if cmd == nil {
		return false
	}
	return rt.queue.Enqueue(pending{cmd: cmd})
}

// Submit enqueues cmd and waits until Run has applied it.
func (rt *Runtime) Submit(ctx context.Context, cmd command.Command) (Applied, error) {
	if cmd == nil {
		return Applied{}, errors.New("submit: nil command")
	}
	reply := make(chan Applied, 1)
	if !rt.queue.Enqueue(pending{cmd: cmd, reply: reply}) {
		return Applied{}, ErrStopped
	}
	select {
	case <-ctx.Done():
		return Applied{}, ctx.Err()
	case a := <-reply:
		return a, nil
	}
}

// QueueLen returns the number of commands waiting to be applied.
func (rt *Runtime) QueueLen() int {
	return rt.queue.Len()
}

// Run applies queued commands until ctx is cancelled or Stop is called.
// After Stop, commands already queued are drained before Run returns nil.
//
// Must be called from exactly one goroutine.
//
// A failing Recorder is logged and processing continues; the in-memory
// state stays authoritative and the log can be rebuilt by replay.
func (rt *Runtime) Run(ctx context.Context) error {
	slog.Info("runtime starting", "session", rt.session, "seq", rt.lastSeq)

	for {
		p, ok := rt.queue.TryDequeue()
		if ok {
			rt.process(ctx, p)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("runtime stopping: context cancelled", "session", rt.session)
			rt.queue.Close()
			return ctx.Err()

		case <-rt.queue.Wait():
			// The signal channel is closed with the queue, so this fires
			// repeatedly once stopped; return when nothing is left.
			if rt.queue.Len() == 0 && rt.queue.Closed() {
				slog.Info("runtime stopping: queue closed", "session", rt.session)
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once the queue is drained.
func (rt *Runtime) Stop() {
	rt.queue.Close()
}

// process applies one command. Called only from Run.
func (rt *Runtime) process(ctx context.Context, p pending) {
	current := rt.State()

	start := time.Now()
	next, err := Apply(current, p.cmd)
	elapsed := time.Since(start)

	rt.lastSeq++
	seq := rt.lastSeq
	a := Applied{
		Session:  rt.session,
		Seq:      seq,
		Command:  p.cmd,
		Err:      err,
		State:    next,
		Duration: elapsed,
	}

	rt.mu.Lock()
	rt.history = append(rt.history, Snapshot{Seq: seq, Forms: next})
	if rt.historyLimit > 0 && len(rt.history) > rt.historyLimit {
		rt.history = slices.Clone(rt.history[len(rt.history)-rt.historyLimit:])
	}
	rt.mu.Unlock()

	if err != nil {
		slog.Info("command rejected",
			"session", rt.session,
			"seq", seq,
			"type", p.cmd.Type(),
			"code", Code(err),
			"error", err,
		)
	} else {
		slog.Debug("command applied",
			"session", rt.session,
			"seq", seq,
			"type", p.cmd.Type(),
			"forms", len(next),
		)
	}

	if rt.recorder != nil {
		if rerr := rt.recorder.Record(ctx, a); rerr != nil {
			slog.Error("record command failed",
				"session", rt.session,
				"seq", seq,
				"type", p.cmd.Type(),
				"error", rerr,
			)
		}
	}
	for _, o := range rt.observers {
		o.Observe(a)
	}
	if p.reply != nil {
		p.reply <- a
	}
}

// State returns the current forms collection. The result must not be modified.
func (rt *Runtime) State() form.Forms {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.history[len(rt.history)-1].Forms
}

// Seq returns the seq of the current state.
func (rt *Runtime) Seq() int64 {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.history[len(rt.history)-1].Seq
}

// History returns the retained snapshots in ascending seq order.
func (rt *Runtime) History() []Snapshot {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return slices.Clone(rt.history)
}

// At returns the forms collection as of seq, if that snapshot is retained.
func (rt *Runtime) At(seq int64) (form.Forms, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	i, found := slices.BinarySearchFunc(rt.history, seq, func(s Snapshot, target int64) int {
		switch {
		case s.Seq < target:
			return -1
		case s.Seq > target:
			return 1
		default:
			return 0
		}
	})
	if !found {
		return nil, false
	}
	return rt.history[i].Forms, true
}
