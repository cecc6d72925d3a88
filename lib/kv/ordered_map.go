package kv

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/benz9527/xcontainer/lib/infra"
	"github.com/benz9527/xcontainer/lib/tree"
)

// OrderedMap keeps unique keys in comparator order. K is comparable only
// to be carried by lo.Entry, the comparator defines the order. It is not
// safe for concurrent use.
type OrderedMap[K comparable, V any] struct {
	tree tree.RBTree[K, V]
}

func NewOrderedMap[K infra.OrderedKey, V any](opts ...tree.RBTreeOpt[K, V]) *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		tree: tree.NewRBTree[K, V](opts...),
	}
}

func NewOrderedMapFunc[K comparable, V any](kcmp infra.KeyComparator[K], opts ...tree.RBTreeOpt[K, V]) *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		tree: tree.NewRBTreeFunc[K, V](kcmp, opts...),
	}
}

// NewOrderedMapFromEntries keeps the first value of a repeated key.
func NewOrderedMapFromEntries[K infra.OrderedKey, V any](entries []lo.Entry[K, V], opts ...tree.RBTreeOpt[K, V]) (*OrderedMap[K, V], error) {
	m := NewOrderedMap[K, V](opts...)
	for _, e := range entries {
		if _, _, err := m.Insert(e.Key, e.Value); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *OrderedMap[K, V]) iter(cur tree.Cursor[K, V]) Iterator[K, V, lo.Entry[K, V]] {
	return newIterator(cur, entryProjection[K, V])
}

func (m *OrderedMap[K, V]) Len() int64 {
	return m.tree.Len()
}

// MaxLen is the number of entries the map can hold at most.
func (m *OrderedMap[K, V]) MaxLen() int64 {
	return m.tree.Cap()
}

func (m *OrderedMap[K, V]) IsEmpty() bool {
	return m.tree.IsEmpty()
}

func (m *OrderedMap[K, V]) Begin() Iterator[K, V, lo.Entry[K, V]] {
	return m.iter(m.tree.Begin())
}

func (m *OrderedMap[K, V]) End() Iterator[K, V, lo.Entry[K, V]] {
	return m.iter(m.tree.End())
}

func (m *OrderedMap[K, V]) LowerBound(key K) Iterator[K, V, lo.Entry[K, V]] {
	return m.iter(m.tree.LowerBound(key))
}

func (m *OrderedMap[K, V]) UpperBound(key K) Iterator[K, V, lo.Entry[K, V]] {
	return m.iter(m.tree.UpperBound(key))
}

// Insert leaves the map untouched and reports false if key is present.
func (m *OrderedMap[K, V]) Insert(key K, val V) (Iterator[K, V, lo.Entry[K, V]], bool, error) {
	cur, ok, err := m.tree.Insert(key, val)
	return m.iter(cur), ok, err
}

func (m *OrderedMap[K, V]) InsertOrAssign(key K, val V) (Iterator[K, V, lo.Entry[K, V]], bool, error) {
	cur, ok, err := m.tree.InsertOrAssign(key, val)
	return m.iter(cur), ok, err
}

// Emplace builds the value only if key is absent.
func (m *OrderedMap[K, V]) Emplace(key K, ctor func() (V, error)) (Iterator[K, V, lo.Entry[K, V]], bool, error) {
	cur, ok, err := m.tree.Emplace(key, ctor)
	return m.iter(cur), ok, err
}

// EmplaceOrAssign builds the value whether key is present or not, a failed
// ctor keeps the previous value.
func (m *OrderedMap[K, V]) EmplaceOrAssign(key K, ctor func() (V, error)) (Iterator[K, V, lo.Entry[K, V]], bool, error) {
	cur, ok, err := m.tree.EmplaceOrAssign(key, ctor)
	return m.iter(cur), ok, err
}

func (m *OrderedMap[K, V]) Find(key K) Iterator[K, V, lo.Entry[K, V]] {
	return m.iter(m.tree.Search(key))
}

func (m *OrderedMap[K, V]) Contains(key K) bool {
	return !m.tree.Search(key).IsEnd()
}

// At never inserts, an absent key fails with ErrKeyNotFound.
func (m *OrderedMap[K, V]) At(key K) (V, error) {
	cur := m.tree.Search(key)
	if cur.IsEnd() {
		var v V
		return v, infra.WrapErrorStack(fmt.Errorf("%w: %w", ErrKeyNotFound, tree.ErrRBTreeNotFound))
	}
	return cur.Val()
}

// GetOrInsertDefault returns the value storage of key, inserting the zero
// value first if key is absent. The pointer is valid until key is removed.
func (m *OrderedMap[K, V]) GetOrInsertDefault(key K) (*V, error) {
	cur, _, err := m.tree.Emplace(key, nil)
	if err != nil {
		return nil, err
	}
	return cur.ValuePtr()
}

func (m *OrderedMap[K, V]) Erase(it Iterator[K, V, lo.Entry[K, V]]) error {
	return m.tree.Erase(it.cur)
}

func (m *OrderedMap[K, V]) Remove(key K) (V, error) {
	x, err := m.tree.Remove(key)
	if err != nil {
		var v V
		if errors.Is(err, tree.ErrRBTreeNotFound) || errors.Is(err, tree.ErrRBTreeIsEmpty) {
			err = fmt.Errorf("%w: %w", ErrKeyNotFound, err)
		}
		return v, infra.WrapErrorStack(err)
	}
	return x.Val(), nil
}

func (m *OrderedMap[K, V]) Clear() {
	m.tree.Clear()
}

// Merge moves the keys absent from m out of other, other ends up empty.
func (m *OrderedMap[K, V]) Merge(other *OrderedMap[K, V]) error {
	return m.tree.Merge(other.tree)
}

// MergeRetain moves the keys absent from m out of other, the keys both
// maps have stay in other.
func (m *OrderedMap[K, V]) MergeRetain(other *OrderedMap[K, V]) error {
	return m.tree.MergeRetain(other.tree)
}

func (m *OrderedMap[K, V]) Swap(other *OrderedMap[K, V]) error {
	return m.tree.Swap(other.tree)
}

func (m *OrderedMap[K, V]) MoveFrom(other *OrderedMap[K, V]) error {
	return m.tree.MoveFrom(other.tree)
}

func (m *OrderedMap[K, V]) Clone() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		tree: m.tree.Clone(),
	}
}

func (m *OrderedMap[K, V]) Foreach(action func(idx int64, key K, val V) bool) {
	m.tree.Foreach(func(idx int64, _ tree.RBColor, key K, val V) bool {
		return action(idx, key, val)
	})
}

func (m *OrderedMap[K, V]) Keys() []K {
	keys := make([]K, 0, m.tree.Len())
	m.Foreach(func(_ int64, key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

func (m *OrderedMap[K, V]) Values() []V {
	vals := make([]V, 0, m.tree.Len())
	m.Foreach(func(_ int64, _ K, val V) bool {
		vals = append(vals, val)
		return true
	})
	return vals
}

func (m *OrderedMap[K, V]) Entries() []lo.Entry[K, V] {
	entries := make([]lo.Entry[K, V], 0, m.tree.Len())
	m.Foreach(func(_ int64, key K, val V) bool {
		entries = append(entries, entryProjection(key, val))
		return true
	})
	return entries
}

// Validate checks the structural invariants of the underlying tree.
func (m *OrderedMap[K, V]) Validate() error {
	return tree.Validate[K, V](m.tree)
}
