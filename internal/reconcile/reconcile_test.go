package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type item struct {
	path, name string
	tag        int
}

func keyOfItem(i item) Key { return KeyOf(i.path, i.name) }

func TestSameKey(t *testing.T) {
	assert.True(t, SameKey(KeyOf("movie", "title"), KeyOf("movie", "title")))
	assert.False(t, SameKey(KeyOf("movie", "title"), KeyOf("actor", "title")))
	assert.False(t, SameKey(KeyOf("movie", "title"), KeyOf("movie", "year")))
}

func TestFindAndIndexOf(t *testing.T) {
	items := []item{{"movie", "title", 1}, {"movie", "year", 2}, {"movie", "title", 3}}

	assert.Equal(t, 0, IndexOf(items, keyOfItem, KeyOf("movie", "title")))
	assert.Equal(t, -1, IndexOf(items, keyOfItem, KeyOf("actor", "title")))

	found, ok := Find(items, keyOfItem, KeyOf("movie", "year"))
	assert.True(t, ok)
	assert.Equal(t, 2, found.tag)

	_, ok = Find(items, keyOfItem, KeyOf("movie", "rating"))
	assert.False(t, ok)
}

func TestDedupeKeepsFirst(t *testing.T) {
	items := []item{{"m", "a", 1}, {"m", "b", 2}, {"m", "a", 3}, {"n", "a", 4}}
	out := Dedupe(items, keyOfItem)
	assert.Equal(t, []item{{"m", "a", 1}, {"m", "b", 2}, {"n", "a", 4}}, out)
	assert.Len(t, items, 4, "input must not be modified")
}

func TestDedupeNoDuplicatesReturnsInput(t *testing.T) {
	items := []item{{"m", "a", 1}, {"m", "b", 2}}
	out := Dedupe(items, keyOfItem)
	assert.Equal(t, items, out)
	assert.Same(t, &items[0], &out[0])
}

func TestOuterJoin(t *testing.T) {
	type incoming struct{ path, name string }
	keyIn := func(i incoming) Key { return KeyOf(i.path, i.name) }

	tests := []struct {
		name      string
		left      []item
		right     []incoming
		onlyLeft  []item
		onlyRight []incoming
	}{
		{
			name:      "disjoint",
			left:      []item{{"m", "a", 1}},
			right:     []incoming{{"m", "b"}},
			onlyLeft:  []item{{"m", "a", 1}},
			onlyRight: []incoming{{"m", "b"}},
		},
		{
			name:  "identical",
			left:  []item{{"m", "a", 1}, {"m", "b", 2}},
			right: []incoming{{"m", "b"}, {"m", "a"}},
		},
		{
			name:      "same name different path",
			left:      []item{{"m", "a", 1}},
			right:     []incoming{{"n", "a"}},
			onlyLeft:  []item{{"m", "a", 1}},
			onlyRight: []incoming{{"n", "a"}},
		},
		{
			name:      "right duplicates collapse",
			left:      nil,
			right:     []incoming{{"m", "x"}, {"m", "y"}, {"m", "x"}},
			onlyRight: []incoming{{"m", "x"}, {"m", "y"}},
		},
		{
			name:     "empty right",
			left:     []item{{"m", "a", 1}, {"m", "b", 2}},
			onlyLeft: []item{{"m", "a", 1}, {"m", "b", 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			join := OuterJoin(tt.left, tt.right, keyOfItem, keyIn)
			assert.Equal(t, tt.onlyLeft, join.OnlyLeft)
			assert.Equal(t, tt.onlyRight, join.OnlyRight)
		})
	}
}

// Every right element either matches a left key or lands in OnlyRight.
func TestOuterJoinCompleteness(t *testing.T) {
	left := []item{{"m", "a", 1}, {"m", "b", 2}}
	right := []item{{"m", "b", 9}, {"m", "c", 9}, {"n", "a", 9}}

	join := OuterJoin(left, right, keyOfItem, keyOfItem)
	for _, r := range right {
		_, inLeft := Find(left, keyOfItem, keyOfItem(r))
		_, inOnlyRight := Find(join.OnlyRight, keyOfItem, keyOfItem(r))
		assert.True(t, inLeft != inOnlyRight, "key %v", keyOfItem(r))
	}
}
