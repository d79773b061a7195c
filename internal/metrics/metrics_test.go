package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/engine"
	"github.com/roach88/formsync/internal/form"
	"github.com/roach88/formsync/internal/testutil"
)

func applied(t *testing.T, seq int64, state form.Forms, cmd command.Command) engine.Applied {
	t.Helper()
	next, err := engine.Apply(state, cmd)
	return engine.Applied{
		Session:  testutil.DefaultSession,
		Seq:      seq,
		Command:  cmd,
		Err:      err,
		State:    next,
		Duration: time.Millisecond,
	}
}

func TestCollector_CountsByTypeAndOutcome(t *testing.T) {
	c := New()

	a1 := applied(t, 1, form.Forms{}, testutil.MovieForm())
	c.Observe(a1)
	a2 := applied(t, 2, a1.State, testutil.MovieForm())
	c.Observe(a2)
	a3 := applied(t, 3, a2.State, command.DestroyForm{FormKey: "missing"})
	c.Observe(a3)

	assert.Equal(t, 1.0, promtest.ToFloat64(c.commands.WithLabelValues("CREATE_FORM", OutcomeOK)))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.commands.WithLabelValues("CREATE_FORM", "DUPLICATE_FORM")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.commands.WithLabelValues("DESTROY_FORM", "FORM_NOT_FOUND")))

	assert.Equal(t, 1.0, promtest.ToFloat64(c.forms))
	assert.Equal(t, 3.0, promtest.ToFloat64(c.fields))
	assert.Equal(t, 3.0, promtest.ToFloat64(c.seq))
}

func TestCollector_GaugesFollowState(t *testing.T) {
	c := New()

	a1 := applied(t, 1, form.Forms{}, testutil.MovieForm())
	c.Observe(a1)
	a2 := applied(t, 2, a1.State, command.DestroyForm{FormKey: "movieForm"})
	c.Observe(a2)

	assert.Equal(t, 0.0, promtest.ToFloat64(c.forms))
	assert.Equal(t, 0.0, promtest.ToFloat64(c.fields))
}

func TestCollector_DurationHistogram(t *testing.T) {
	c := New()
	c.Observe(applied(t, 1, form.Forms{}, testutil.MovieForm()))

	assert.Equal(t, 1, promtest.CollectAndCount(c.duration, "formsync_transition_duration_seconds"))
}

func TestCollector_InjectedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithNamespace("test"))
	c.Observe(applied(t, 1, form.Forms{}, testutil.MovieForm()))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_commands_total")
	assert.Contains(t, names, "test_forms")
	assert.Same(t, reg, c.Registry())
}

func TestCollector_SeparateRegistries(t *testing.T) {
	// Two collectors with default options must not collide.
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.Observe(applied(t, 1, form.Forms{}, testutil.MovieForm()))

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `formsync_commands_total{outcome="OK",type="CREATE_FORM"} 1`)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, outcome(nil))
	assert.Equal(t, "FORM_NOT_FOUND", outcome(&engine.TransitionError{Code: engine.CodeFormNotFound}))
	assert.Equal(t, "ERROR", outcome(io.EOF))
}
