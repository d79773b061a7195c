// Package reconcile implements identity matching and outer-join
// reconciliation between two collections of fields.
//
// Every form field is identified by the pair (entity path, name). The helpers
// here are generic over the element type so that form fields and incoming
// entity fields, which are different Go types, can be joined directly.
package reconcile

// Key is the identity of a field within a form.
type Key struct {
	EntityPath string
	Name       string
}

// KeyOf builds a Key.
func KeyOf(entityPath, name string) Key {
	return Key{EntityPath: entityPath, Name: name}
}

// SameKey reports whether two keys identify the same field.
func SameKey(a, b Key) bool {
	return a.EntityPath == b.EntityPath && a.Name == b.Name
}

// IndexOf returns the position of the first element of items whose key
// equals k, or -1.
func IndexOf[T any](items []T, key func(T) Key, k Key) int {
	for i, item := range items {
		if SameKey(key(item), k) {
			return i
		}
	}
	return -1
}

// Find returns the first element of items whose key equals k.
func Find[T any](items []T, key func(T) Key, k Key) (T, bool) {
	if i := IndexOf(items, key, k); i >= 0 {
		return items[i], true
	}
	var zero T
	return zero, false
}

// Dedupe drops every element whose key was already seen, keeping the first
// occurrence and the original order. The input slice is returned unchanged
// when it holds no duplicates.
func Dedupe[T any](items []T, key func(T) Key) []T {
	seen := make(map[Key]struct{}, len(items))
	var out []T
	for i, item := range items {
		k := key(item)
		if _, dup := seen[k]; dup {
			if out == nil {
				out = append(make([]T, 0, len(items)-1), items[:i]...)
			}
			continue
		}
		seen[k] = struct{}{}
		if out != nil {
			out = append(out, item)
		}
	}
	if out == nil {
		return items
	}
	return out
}

// Join is the symmetric difference of two collections by key.
type Join[L, R any] struct {
	// OnlyLeft holds left elements with no counterpart on the right.
	OnlyLeft []L
	// OnlyRight holds right elements with no counterpart on the left,
	// deduplicated by key.
	OnlyRight []R
}

// OuterJoin computes the symmetric difference of left and right by key.
// Order within each group follows the input order.
func OuterJoin[L, R any](left []L, right []R, keyL func(L) Key, keyR func(R) Key) Join[L, R] {
	leftKeys := make(map[Key]struct{}, len(left))
	for _, l := range left {
		leftKeys[keyL(l)] = struct{}{}
	}
	rightKeys := make(map[Key]struct{}, len(right))
	for _, r := range right {
		rightKeys[keyR(r)] = struct{}{}
	}

	var join Join[L, R]
	for _, l := range left {
		if _, ok := rightKeys[keyL(l)]; !ok {
			join.OnlyLeft = append(join.OnlyLeft, l)
		}
	}
	added := make(map[Key]struct{})
	for _, r := range right {
		k := keyR(r)
		if _, ok := leftKeys[k]; ok {
			continue
		}
		if _, dup := added[k]; dup {
			continue
		}
		added[k] = struct{}{}
		join.OnlyRight = append(join.OnlyRight, r)
	}
	return join
}
