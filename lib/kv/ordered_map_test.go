package kv

import (
	"errors"
	randv2 "math/rand/v2"
	"strconv"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/benz9527/xcontainer/lib/tree"
)

func TestOrderedMap_AtAndDefaultInsert(t *testing.T) {
	m := NewOrderedMap[string, int]()

	_, err := m.At("missing")
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.ErrorIs(t, err, tree.ErrRBTreeNotFound)
	require.True(t, m.IsEmpty())

	ptr, err := m.GetOrInsertDefault("missing")
	require.NoError(t, err)
	require.Zero(t, *ptr)
	require.Equal(t, int64(1), m.Len())

	*ptr = 7
	val, err := m.At("missing")
	require.NoError(t, err)
	require.Equal(t, 7, val)

	// A second call hands back the same storage.
	again, err := m.GetOrInsertDefault("missing")
	require.NoError(t, err)
	require.Same(t, ptr, again)
	require.Equal(t, int64(1), m.Len())
	require.NoError(t, m.Validate())
}

func TestOrderedMap_CRUD(t *testing.T) {
	m := NewOrderedMap[int, string]()
	for _, k := range []int{5, 3, 8, 1} {
		_, ok, err := m.Insert(k, strconv.Itoa(k))
		require.NoError(t, err)
		require.True(t, ok)
	}
	it, ok, err := m.Insert(3, "three")
	require.NoError(t, err)
	require.False(t, ok)
	e, err := it.Get()
	require.NoError(t, err)
	require.Equal(t, lo.Entry[int, string]{Key: 3, Value: "3"}, e)

	_, ok, err = m.InsertOrAssign(3, "three")
	require.NoError(t, err)
	require.False(t, ok)
	val, err := m.At(3)
	require.NoError(t, err)
	require.Equal(t, "three", val)

	_, ok, err = m.Emplace(9, func() (string, error) { return "nine", nil })
	require.NoError(t, err)
	require.True(t, ok)

	require.True(t, m.Contains(9))
	require.False(t, m.Contains(2))
	require.True(t, m.Find(2).IsEnd())
	require.Equal(t, []int{1, 3, 5, 8, 9}, m.Keys())
	require.Equal(t, []string{"1", "three", "5", "8", "nine"}, m.Values())

	val, err = m.Remove(5)
	require.NoError(t, err)
	require.Equal(t, "5", val)
	_, err = m.Remove(5)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, m.Erase(m.Find(1)))
	require.ErrorIs(t, m.Erase(m.End()), tree.ErrRBTreeEraseEnd)
	require.Equal(t, []lo.Entry[int, string]{
		{Key: 3, Value: "three"},
		{Key: 8, Value: "8"},
		{Key: 9, Value: "nine"},
	}, m.Entries())
	require.NoError(t, m.Validate())

	m.Clear()
	require.True(t, m.IsEmpty())
	require.Empty(t, m.Keys())
	_, err = m.Remove(3)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestOrderedMap_Iterator(t *testing.T) {
	m, err := NewOrderedMapFromEntries([]lo.Entry[int, int]{
		{Key: 2, Value: 20},
		{Key: 1, Value: 10},
		{Key: 3, Value: 30},
		{Key: 2, Value: 200},
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), m.Len())

	entries := make([]lo.Entry[int, int], 0, 3)
	for it := m.Begin(); !it.IsEnd(); {
		e, err := it.Get()
		require.NoError(t, err)
		entries = append(entries, e)
		it, err = it.Next()
		require.NoError(t, err)
	}
	require.Equal(t, m.Entries(), entries)
	require.Equal(t, 20, entries[1].Value)

	last, err := m.End().Prev()
	require.NoError(t, err)
	k, err := last.Key()
	require.NoError(t, err)
	require.Equal(t, 3, k)

	_, err = m.End().Get()
	require.ErrorIs(t, err, ErrIteratorEnd)
	_, err = m.End().Key()
	require.ErrorIs(t, err, ErrIteratorEnd)

	it := m.LowerBound(2)
	require.True(t, it.Equal(m.Find(2)))
	it = m.UpperBound(2)
	require.True(t, it.Equal(m.Find(3)))

	require.NoError(t, m.Erase(it))
	require.False(t, it.Valid())
	_, err = it.Get()
	require.ErrorIs(t, err, tree.ErrRBTreeStaleCursor)
	_, err = it.Next()
	require.ErrorIs(t, err, tree.ErrRBTreeStaleCursor)
}

func TestOrderedMap_StaleEndIterator(t *testing.T) {
	testcases := []struct {
		name       string
		invalidate func(m *OrderedMap[int, int]) error
	}{
		{
			name: "clear",
			invalidate: func(m *OrderedMap[int, int]) error {
				m.Clear()
				return nil
			},
		},
		{
			name: "swap",
			invalidate: func(m *OrderedMap[int, int]) error {
				return m.Swap(NewOrderedMap[int, int]())
			},
		},
		{
			name: "move from",
			invalidate: func(m *OrderedMap[int, int]) error {
				return m.MoveFrom(NewOrderedMap[int, int]())
			},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			m := NewOrderedMap[int, int]()
			_, _, err := m.Insert(1, 10)
			require.NoError(tt, err)
			end := m.End()
			require.NoError(tt, tc.invalidate(m))

			require.False(tt, end.Valid())
			_, err = end.Get()
			require.ErrorIs(tt, err, tree.ErrRBTreeStaleCursor)
			_, err = end.Key()
			require.ErrorIs(tt, err, tree.ErrRBTreeStaleCursor)

			_, err = m.End().Get()
			require.ErrorIs(tt, err, ErrIteratorEnd)
		})
	}
}

func TestOrderedMap_EmplaceOrAssign(t *testing.T) {
	m := NewOrderedMap[string, []int]()
	_, ok, err := m.EmplaceOrAssign("a", func() ([]int, error) { return []int{1}, nil })
	require.NoError(t, err)
	require.True(t, ok)

	it, ok, err := m.EmplaceOrAssign("a", func() ([]int, error) { return []int{1, 2}, nil })
	require.NoError(t, err)
	require.False(t, ok)
	e, err := it.Get()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, e.Value)

	errCtor := errors.New("no value")
	_, ok, err = m.EmplaceOrAssign("a", func() ([]int, error) { return nil, errCtor })
	require.ErrorIs(t, err, tree.ErrRBTreeValueCtor)
	require.ErrorIs(t, err, errCtor)
	require.False(t, ok)
	val, err := m.At("a")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, val)
	require.Equal(t, int64(1), m.Len())
}

func TestOrderedMap_StructKey(t *testing.T) {
	type version struct {
		major, minor int
	}
	m := NewOrderedMapFunc[version, string](func(i, j version) int64 {
		if i.major != j.major {
			return int64(i.major - j.major)
		}
		return int64(i.minor - j.minor)
	})
	for _, v := range []version{{1, 2}, {0, 9}, {1, 0}, {2, 1}} {
		_, ok, err := m.Insert(v, strconv.Itoa(v.major)+"."+strconv.Itoa(v.minor))
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, []version{{0, 9}, {1, 0}, {1, 2}, {2, 1}}, m.Keys())

	it := m.LowerBound(version{1, 1})
	e, err := it.Get()
	require.NoError(t, err)
	require.Equal(t, lo.Entry[version, string]{Key: version{1, 2}, Value: "1.2"}, e)
	require.Equal(t, []lo.Entry[version, string]{
		{Key: version{0, 9}, Value: "0.9"},
		{Key: version{1, 0}, Value: "1.0"},
	}, m.Entries()[:2])
	require.NoError(t, m.Validate())
}

func TestOrderedMap_MergeSwapMove(t *testing.T) {
	fill := func(keys ...int) *OrderedMap[int, int] {
		m := NewOrderedMap[int, int]()
		for _, k := range keys {
			_, _, err := m.Insert(k, k)
			require.NoError(t, err)
		}
		return m
	}

	a, b := fill(1, 2, 3), fill(3, 4, 5)
	require.NoError(t, a.Merge(b))
	require.Equal(t, []int{1, 2, 3, 4, 5}, a.Keys())
	require.True(t, b.IsEmpty())

	a, b = fill(1, 2, 3), fill(3, 4, 5)
	require.NoError(t, a.MergeRetain(b))
	require.Equal(t, []int{1, 2, 3, 4, 5}, a.Keys())
	require.Equal(t, []int{3}, b.Keys())

	require.NoError(t, a.Swap(b))
	require.Equal(t, []int{3}, a.Keys())
	require.Equal(t, []int{1, 2, 3, 4, 5}, b.Keys())

	c := b.Clone()
	require.NoError(t, a.MoveFrom(b))
	require.True(t, b.IsEmpty())
	require.Equal(t, c.Keys(), a.Keys())
	require.NoError(t, a.Validate())
	require.NoError(t, b.Validate())
	require.NoError(t, c.Validate())
}

func TestOrderedMap_Options(t *testing.T) {
	m := NewOrderedMap[int, int](
		tree.WithRBTreeDesc[int, int](),
		tree.WithRBTreeCapacity[int, int](2),
	)
	require.Equal(t, int64(2), m.MaxLen())
	for _, k := range []int{1, 2} {
		_, _, err := m.Insert(k, k)
		require.NoError(t, err)
	}
	_, _, err := m.Insert(3, 3)
	require.ErrorIs(t, err, tree.ErrRBTreeIsFull)
	require.Equal(t, []int{2, 1}, m.Keys())

	_, err = m.GetOrInsertDefault(4)
	require.ErrorIs(t, err, tree.ErrRBTreeIsFull)
	require.Equal(t, int64(2), m.Len())

	errCtor := errors.New("no value")
	_, ok, err := m.Emplace(0, func() (int, error) { return 0, errCtor })
	require.False(t, ok)
	require.ErrorIs(t, err, tree.ErrRBTreeIsFull)

	_, err = m.Remove(1)
	require.NoError(t, err)
	_, ok, err = m.Emplace(0, func() (int, error) { return 0, errCtor })
	require.False(t, ok)
	require.ErrorIs(t, err, errCtor)
	require.False(t, m.Contains(0))

	_, err = NewOrderedMapFromEntries([]lo.Entry[int, int]{{Key: 1}, {Key: 2}, {Key: 3}},
		tree.WithRBTreeCapacity[int, int](2),
	)
	require.ErrorIs(t, err, tree.ErrRBTreeIsFull)
}

func TestOrderedMap_RandomAgainstBuiltinMap(t *testing.T) {
	m := NewOrderedMapFunc[string, int](func(i, j string) int64 {
		if i == j {
			return 0
		} else if i < j {
			return -1
		}
		return 1
	})
	model := make(map[string]int)
	for i := 0; i < 4000; i++ {
		key := strconv.Itoa(randv2.IntN(500))
		if randv2.IntN(3) == 0 {
			_, err := m.Remove(key)
			if _, ok := model[key]; ok {
				require.NoError(t, err)
				delete(model, key)
			} else {
				require.ErrorIs(t, err, ErrKeyNotFound)
			}
			continue
		}
		_, _, err := m.InsertOrAssign(key, i)
		require.NoError(t, err)
		model[key] = i
	}
	require.NoError(t, m.Validate())
	require.Equal(t, int64(len(model)), m.Len())
	keys := lo.Keys(model)
	require.ElementsMatch(t, keys, m.Keys())
	require.True(t, lo.IsSortedByKey(m.Keys(), func(k string) string { return k }))
	for k, v := range model {
		got, err := m.At(k)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func BenchmarkOrderedMap_InsertOrAssign(b *testing.B) {
	b.StopTimer()
	m := NewOrderedMap[int, int]()
	keys := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		keys = append(keys, randv2.IntN(b.N+1))
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = m.InsertOrAssign(keys[i], i)
	}
}
