package kv

import (
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/benz9527/xcontainer/lib/infra"
	"github.com/benz9527/xcontainer/lib/tree"
)

func TestOrderedSet_Basic(t *testing.T) {
	s := NewOrderedSet(10, 5, 15, 4, 18, 13, 16, 5)
	require.Equal(t, int64(7), s.Len())
	require.Equal(t, []int{4, 5, 10, 13, 15, 16, 18}, s.Keys())
	require.Equal(t, int64(4294967294), s.MaxLen())

	it, ok, err := s.Insert(13)
	require.NoError(t, err)
	require.False(t, ok)
	k, err := it.Get()
	require.NoError(t, err)
	require.Equal(t, 13, k)

	// Erase the 4th element in order.
	it = s.Begin()
	for i := 0; i < 3; i++ {
		it, err = it.Next()
		require.NoError(t, err)
	}
	require.True(t, it.Equal(s.Find(13)))
	require.NoError(t, s.Erase(it))
	require.Equal(t, int64(6), s.Len())
	first, err := s.Begin().Get()
	require.NoError(t, err)
	require.Equal(t, 4, first)
	last, err := s.End().Prev()
	require.NoError(t, err)
	k, err = last.Get()
	require.NoError(t, err)
	require.Equal(t, 18, k)

	require.True(t, s.Contains(15))
	require.NoError(t, s.Remove(15))
	require.False(t, s.Contains(15))
	require.ErrorIs(t, s.Remove(15), ErrKeyNotFound)
	require.NoError(t, s.Validate())

	k, err = s.LowerBound(11).Get()
	require.NoError(t, err)
	require.Equal(t, 16, k)
	require.True(t, s.UpperBound(18).IsEnd())

	s.Clear()
	require.True(t, s.IsEmpty())
	require.True(t, s.Begin().Equal(s.End()))
}

func TestOrderedSet_MergeSwapMove(t *testing.T) {
	a, b := NewOrderedSet(1, 2, 3), NewOrderedSet(3, 4, 5)
	require.NoError(t, a.Merge(b))
	require.Equal(t, []int{1, 2, 3, 4, 5}, a.Keys())
	require.True(t, b.IsEmpty())

	a, b = NewOrderedSet(1, 2, 3), NewOrderedSet(3, 4, 5)
	require.NoError(t, a.MergeRetain(b))
	require.Equal(t, []int{3}, b.Keys())

	c := a.Clone()
	require.NoError(t, c.Remove(1))
	require.True(t, a.Contains(1))

	require.NoError(t, a.Swap(b))
	require.Equal(t, []int{3}, a.Keys())
	require.NoError(t, a.MoveFrom(c))
	require.Equal(t, []int{2, 3, 4, 5}, a.Keys())
	require.True(t, c.IsEmpty())

	require.NoError(t, a.Merge(a))
	require.Equal(t, int64(4), a.Len())
}

func TestOrderedSet_CustomOrder(t *testing.T) {
	s := NewOrderedSetFunc[string](func(i, j string) int64 {
		return int64(strings.Compare(strings.ToLower(i), strings.ToLower(j)))
	}, tree.WithRBTreeCapacity[string, struct{}](3))

	for _, k := range []string{"b", "A", "B", "c"} {
		_, _, err := s.Insert(k)
		require.NoError(t, err)
	}
	require.Equal(t, []string{"A", "b", "c"}, s.Keys())
	_, _, err := s.Insert("d")
	require.ErrorIs(t, err, tree.ErrRBTreeIsFull)

	keys := make([]string, 0, 3)
	s.Foreach(func(idx int64, key string) bool {
		keys = append(keys, key)
		return idx < 1
	})
	require.Equal(t, []string{"A", "b"}, keys)

	desc := NewOrderedSetFunc[int](infra.AscKeyComparator[int], tree.WithRBTreeDesc[int, struct{}]())
	lo.ForEach(lo.Range(5), func(k int, _ int) {
		_, _, err := desc.Insert(k)
		require.NoError(t, err)
	})
	require.Equal(t, []int{4, 3, 2, 1, 0}, desc.Keys())
}
