package stream

import (
	"cmp"
	"fmt"
	"slices"
)

// SliceCodec persists a sequential container: count, then elements in order.
type SliceCodec[T any] struct {
	Elem Codec[T]
}

func SliceOf[T any](elem Codec[T]) SliceCodec[T] {
	return SliceCodec[T]{Elem: elem}
}

func (c SliceCodec[T]) Encode(w *Writer, v []T) error {
	if err := w.PersistCount(len(v)); err != nil {
		return err
	}
	for i := range v {
		if err := c.Elem.Encode(w, v[i]); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (c SliceCodec[T]) Decode(r *Reader) ([]T, error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := range n {
		e, err := c.Elem.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// MapCodec persists an unordered container. Keys are written sorted so that
// the same map always produces the same bytes.
type MapCodec[K cmp.Ordered, V any] struct {
	Key Codec[K]
	Val Codec[V]
}

func MapOf[K cmp.Ordered, V any](key Codec[K], val Codec[V]) MapCodec[K, V] {
	return MapCodec[K, V]{Key: key, Val: val}
}

func (c MapCodec[K, V]) Encode(w *Writer, m map[K]V) error {
	if err := w.PersistCount(len(m)); err != nil {
		return err
	}
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := c.Key.Encode(w, k); err != nil {
			return fmt.Errorf("key %v: %w", k, err)
		}
		if err := c.Val.Encode(w, m[k]); err != nil {
			return fmt.Errorf("value of %v: %w", k, err)
		}
	}
	return nil
}

func (c MapCodec[K, V]) Decode(r *Reader) (map[K]V, error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	out := make(map[K]V, n)
	for range n {
		at := r.Offset()
		k, err := c.Key.Decode(r)
		if err != nil {
			return nil, err
		}
		v, err := c.Val.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("value of %v: %w", k, err)
		}
		if _, dup := out[k]; dup {
			return nil, formatErrorf(at, "duplicate key %v", k)
		}
		out[k] = v
	}
	return out, nil
}

// SetCodec persists a set as its sorted members.
type SetCodec[K cmp.Ordered] struct {
	Key Codec[K]
}

func SetOf[K cmp.Ordered](key Codec[K]) SetCodec[K] {
	return SetCodec[K]{Key: key}
}

func (c SetCodec[K]) Encode(w *Writer, s map[K]struct{}) error {
	keys := make([]K, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return SliceOf(c.Key).Encode(w, keys)
}

func (c SetCodec[K]) Decode(r *Reader) (map[K]struct{}, error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	out := make(map[K]struct{}, n)
	for range n {
		at := r.Offset()
		k, err := c.Key.Decode(r)
		if err != nil {
			return nil, err
		}
		if _, dup := out[k]; dup {
			return nil, formatErrorf(at, "duplicate set member %v", k)
		}
		out[k] = struct{}{}
	}
	return out, nil
}

// SortedEntry is one key/value pair of a SortedMap.
type SortedEntry[K cmp.Ordered, V any] struct {
	Key K
	Val V
}

// SortedMap is a flat map kept in strictly increasing key order.
type SortedMap[K cmp.Ordered, V any] struct {
	entries []SortedEntry[K, V]
}

func (m *SortedMap[K, V]) Len() int { return len(m.entries) }

func (m *SortedMap[K, V]) Entries() []SortedEntry[K, V] { return m.entries }

// Set inserts or replaces k.
func (m *SortedMap[K, V]) Set(k K, v V) {
	i, found := slices.BinarySearchFunc(m.entries, k, func(e SortedEntry[K, V], k K) int { return cmp.Compare(e.Key, k) })
	if found {
		m.entries[i].Val = v
		return
	}
	m.entries = slices.Insert(m.entries, i, SortedEntry[K, V]{Key: k, Val: v})
}

// Get finds k with binary search.
func (m *SortedMap[K, V]) Get(k K) (V, bool) {
	i, found := slices.BinarySearchFunc(m.entries, k, func(e SortedEntry[K, V], k K) int { return cmp.Compare(e.Key, k) })
	if !found {
		var zero V
		return zero, false
	}
	return m.entries[i].Val, true
}

// appendLast is the hinted insert used when decoding: the input must already
// be sorted so every key goes to the end.
func (m *SortedMap[K, V]) appendLast(k K, v V) bool {
	if n := len(m.entries); n > 0 && cmp.Compare(m.entries[n-1].Key, k) >= 0 {
		return false
	}
	m.entries = append(m.entries, SortedEntry[K, V]{Key: k, Val: v})
	return true
}

// SortedCodec persists a pre-sorted container.
type SortedCodec[K cmp.Ordered, V any] struct {
	Key Codec[K]
	Val Codec[V]
}

func SortedOf[K cmp.Ordered, V any](key Codec[K], val Codec[V]) SortedCodec[K, V] {
	return SortedCodec[K, V]{Key: key, Val: val}
}

func (c SortedCodec[K, V]) Encode(w *Writer, m *SortedMap[K, V]) error {
	if err := w.PersistCount(m.Len()); err != nil {
		return err
	}
	for _, e := range m.entries {
		if err := c.Key.Encode(w, e.Key); err != nil {
			return err
		}
		if err := c.Val.Encode(w, e.Val); err != nil {
			return fmt.Errorf("value of %v: %w", e.Key, err)
		}
	}
	return nil
}

func (c SortedCodec[K, V]) Decode(r *Reader) (*SortedMap[K, V], error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	out := &SortedMap[K, V]{entries: make([]SortedEntry[K, V], 0, n)}
	for range n {
		at := r.Offset()
		k, err := c.Key.Decode(r)
		if err != nil {
			return nil, err
		}
		v, err := c.Val.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("value of %v: %w", k, err)
		}
		if !out.appendLast(k, v) {
			return nil, formatErrorf(at, "key %v is out of order", k)
		}
	}
	return out, nil
}
