package status

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsync/internal/value"
)

func TestTracker_Dispatch(t *testing.T) {
	tr, err := Conventional("movie", "actor")
	require.NoError(t, err)
	assert.Equal(t, []string{"actor", "movie"}, tr.Names())

	matched := tr.Dispatch(Event{Type: "REQUEST_LOAD_MOVIE"})
	assert.Equal(t, []string{"movie"}, matched)

	movie, ok := tr.State("movie")
	require.True(t, ok)
	assert.True(t, movie.Loading)

	actor, ok := tr.State("actor")
	require.True(t, ok)
	assert.False(t, actor.Loading, "other entities are untouched")

	tr.Dispatch(Event{Type: "RESPONSE_LOAD_MOVIE", Payload: value.Object{"title": value.String("Matrix")}})
	movie, _ = tr.State("movie")
	assert.False(t, movie.Loading)
	assert.Equal(t, value.Object{"title": value.String("Matrix")}, movie.Data)
}

func TestTracker_UnhandledEvent(t *testing.T) {
	tr, err := Conventional("movie")
	require.NoError(t, err)
	before := tr.States()

	assert.Empty(t, tr.Dispatch(Event{Type: "REQUEST_LOAD_ACTOR"}))
	assert.Equal(t, before, tr.States())

	_, ok := tr.State("actor")
	assert.False(t, ok)
}

func TestTracker_SharedEventType(t *testing.T) {
	a, err := Build(Config{Name: "a", Load: &Types{Request: "FETCH_ALL"}})
	require.NoError(t, err)
	b, err := Build(Config{Name: "b", Save: &Types{Request: "FETCH_ALL"}})
	require.NoError(t, err)
	tr, err := NewTracker(a, b)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, tr.Dispatch(Event{Type: "FETCH_ALL"}))
	sa, _ := tr.State("a")
	sb, _ := tr.State("b")
	assert.True(t, sa.Loading)
	assert.True(t, sb.Saving)
}

func TestTracker_Errors(t *testing.T) {
	_, err := Conventional("movie", "movie")
	assert.ErrorContains(t, err, `duplicate entity "movie"`)

	_, err = Conventional("")
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestTracker_Concurrent(t *testing.T) {
	tr, err := Conventional("movie")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.Dispatch(Event{Type: "REQUEST_SAVE_MOVIE"})
		}()
		go func() {
			defer wg.Done()
			_ = tr.States()
		}()
	}
	wg.Wait()

	s, _ := tr.State("movie")
	assert.True(t, s.Saving)
}
