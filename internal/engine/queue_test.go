package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsync/internal/command"
)

func TestCommandQueue_FIFO(t *testing.T) {
	q := newCommandQueue()

	for _, key := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(pending{cmd: command.DestroyForm{FormKey: key}}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		p, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, command.FormKeyOf(p.cmd))
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestCommandQueue_SignalCoalesces(t *testing.T) {
	q := newCommandQueue()
	q.Enqueue(pending{cmd: command.DestroyForm{FormKey: "A"}})
	q.Enqueue(pending{cmd: command.DestroyForm{FormKey: "B"}})

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a signal")
	}
	select {
	case <-q.Wait():
		t.Fatal("signals should coalesce")
	default:
	}
}

func TestCommandQueue_Close(t *testing.T) {
	q := newCommandQueue()
	q.Enqueue(pending{cmd: command.DestroyForm{FormKey: "A"}})
	q.Close()
	q.Close() // idempotent

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(pending{cmd: command.DestroyForm{FormKey: "B"}}))

	// Items queued before Close still drain.
	_, ok := q.TryDequeue()
	assert.True(t, ok)

	_, open := <-q.Wait()
	assert.False(t, open, "signal channel closed")
}

func TestCommandQueue_ConcurrentEnqueue(t *testing.T) {
	q := newCommandQueue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(pending{cmd: command.SetFormToSaving{FormKey: "f"}})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, q.Len())
}
