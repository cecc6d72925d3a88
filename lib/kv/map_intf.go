package kv

import (
	"errors"

	"github.com/samber/lo"

	"github.com/benz9527/xcontainer/lib/tree"
)

var (
	ErrKeyNotFound = errors.New("[kv] key not found")
	ErrIteratorEnd = errors.New("[kv] iterator at the end position")
)

// Projection selects what an iterator yields from a node.
type Projection[K any, V any, Y any] func(key K, val V) Y

func entryProjection[K comparable, V any](key K, val V) lo.Entry[K, V] {
	return lo.Entry[K, V]{Key: key, Value: val}
}

func keyProjection[K any](key K, _ struct{}) K {
	return key
}

// Iterator is a bidirectional position in an ordered container. The map
// yields lo.Entry[K, V] and the set yields K. Stepping forward from the last
// element reaches End, stepping back from End reaches the last element.
type Iterator[K any, V any, Y any] struct {
	cur  tree.Cursor[K, V]
	proj Projection[K, V, Y]
}

func newIterator[K any, V any, Y any](cur tree.Cursor[K, V], proj Projection[K, V, Y]) Iterator[K, V, Y] {
	return Iterator[K, V, Y]{cur: cur, proj: proj}
}

func (it Iterator[K, V, Y]) Next() (Iterator[K, V, Y], error) {
	cur, err := it.cur.Next()
	if err != nil {
		return Iterator[K, V, Y]{}, err
	}
	return newIterator(cur, it.proj), nil
}

func (it Iterator[K, V, Y]) Prev() (Iterator[K, V, Y], error) {
	cur, err := it.cur.Prev()
	if err != nil {
		return Iterator[K, V, Y]{}, err
	}
	return newIterator(cur, it.proj), nil
}

func (it Iterator[K, V, Y]) Get() (Y, error) {
	var y Y
	if !it.cur.Valid() {
		return y, tree.ErrRBTreeStaleCursor
	}
	if it.cur.IsEnd() {
		return y, ErrIteratorEnd
	}
	key, err := it.cur.Key()
	if err != nil {
		return y, err
	}
	val, err := it.cur.Val()
	if err != nil {
		return y, err
	}
	return it.proj(key, val), nil
}

func (it Iterator[K, V, Y]) Key() (K, error) {
	var k K
	if !it.cur.Valid() {
		return k, tree.ErrRBTreeStaleCursor
	}
	if it.cur.IsEnd() {
		return k, ErrIteratorEnd
	}
	return it.cur.Key()
}

func (it Iterator[K, V, Y]) Equal(other Iterator[K, V, Y]) bool {
	return it.cur.Equal(other.cur)
}

func (it Iterator[K, V, Y]) IsEnd() bool {
	return it.cur.IsEnd()
}

func (it Iterator[K, V, Y]) Valid() bool {
	return it.cur.Valid()
}
