package kv

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/benz9527/xcontainer/lib/infra"
	"github.com/benz9527/xcontainer/lib/tree"
)

// OrderedSet keeps unique keys in comparator order. It is not safe for
// concurrent use.
type OrderedSet[K any] struct {
	tree tree.RBTree[K, struct{}]
}

// NewOrderedSet ignores repeated keys.
func NewOrderedSet[K infra.OrderedKey](keys ...K) *OrderedSet[K] {
	s := &OrderedSet[K]{
		tree: tree.NewRBTree[K, struct{}](),
	}
	for _, k := range keys {
		// An unbounded tree never runs out of capacity here.
		lo.Must2(s.Insert(k))
	}
	return s
}

func NewOrderedSetFunc[K any](kcmp infra.KeyComparator[K], opts ...tree.RBTreeOpt[K, struct{}]) *OrderedSet[K] {
	return &OrderedSet[K]{
		tree: tree.NewRBTreeFunc[K, struct{}](kcmp, opts...),
	}
}

func (s *OrderedSet[K]) iter(cur tree.Cursor[K, struct{}]) Iterator[K, struct{}, K] {
	return newIterator(cur, keyProjection[K])
}

func (s *OrderedSet[K]) Len() int64 {
	return s.tree.Len()
}

func (s *OrderedSet[K]) MaxLen() int64 {
	return s.tree.Cap()
}

func (s *OrderedSet[K]) IsEmpty() bool {
	return s.tree.IsEmpty()
}

func (s *OrderedSet[K]) Begin() Iterator[K, struct{}, K] {
	return s.iter(s.tree.Begin())
}

func (s *OrderedSet[K]) End() Iterator[K, struct{}, K] {
	return s.iter(s.tree.End())
}

func (s *OrderedSet[K]) LowerBound(key K) Iterator[K, struct{}, K] {
	return s.iter(s.tree.LowerBound(key))
}

func (s *OrderedSet[K]) UpperBound(key K) Iterator[K, struct{}, K] {
	return s.iter(s.tree.UpperBound(key))
}

func (s *OrderedSet[K]) Insert(key K) (Iterator[K, struct{}, K], bool, error) {
	cur, ok, err := s.tree.Insert(key, struct{}{})
	return s.iter(cur), ok, err
}

func (s *OrderedSet[K]) Find(key K) Iterator[K, struct{}, K] {
	return s.iter(s.tree.Search(key))
}

func (s *OrderedSet[K]) Contains(key K) bool {
	return !s.tree.Search(key).IsEnd()
}

func (s *OrderedSet[K]) Erase(it Iterator[K, struct{}, K]) error {
	return s.tree.Erase(it.cur)
}

func (s *OrderedSet[K]) Remove(key K) error {
	if _, err := s.tree.Remove(key); err != nil {
		return infra.WrapErrorStack(fmt.Errorf("%w: %w", ErrKeyNotFound, err))
	}
	return nil
}

func (s *OrderedSet[K]) Clear() {
	s.tree.Clear()
}

func (s *OrderedSet[K]) Merge(other *OrderedSet[K]) error {
	return s.tree.Merge(other.tree)
}

func (s *OrderedSet[K]) MergeRetain(other *OrderedSet[K]) error {
	return s.tree.MergeRetain(other.tree)
}

func (s *OrderedSet[K]) Swap(other *OrderedSet[K]) error {
	return s.tree.Swap(other.tree)
}

func (s *OrderedSet[K]) MoveFrom(other *OrderedSet[K]) error {
	return s.tree.MoveFrom(other.tree)
}

func (s *OrderedSet[K]) Clone() *OrderedSet[K] {
	return &OrderedSet[K]{
		tree: s.tree.Clone(),
	}
}

func (s *OrderedSet[K]) Foreach(action func(idx int64, key K) bool) {
	s.tree.Foreach(func(idx int64, _ tree.RBColor, key K, _ struct{}) bool {
		return action(idx, key)
	})
}

func (s *OrderedSet[K]) Keys() []K {
	keys := make([]K, 0, s.tree.Len())
	s.Foreach(func(_ int64, key K) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

func (s *OrderedSet[K]) Validate() error {
	return tree.Validate[K, struct{}](s.tree)
}
