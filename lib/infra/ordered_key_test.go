package infra

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyComparators(t *testing.T) {
	testcases := []struct {
		name string
		i, j int
		asc  int64
		desc int64
	}{
		{"equal", 3, 3, 0, 0},
		{"less", 1, 2, -1, 1},
		{"greater", 5, -5, 1, -1},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			require.Equal(tt, tc.asc, AscKeyComparator(tc.i, tc.j))
			require.Equal(tt, tc.desc, DescKeyComparator(tc.i, tc.j))
		})
	}
}

func TestKeyComparator_SortStrings(t *testing.T) {
	var cmp KeyComparator[string] = DescKeyComparator[string]
	keys := []string{"b", "a", "d", "c"}
	sort.Slice(keys, func(i, j int) bool {
		return cmp(keys[i], keys[j]) < 0
	})
	require.Equal(t, []string{"d", "c", "b", "a"}, keys)
}
