package verify

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benz9527/xcontainer/lib/tree"
	"github.com/benz9527/xcontainer/xlog"
)

func testWorkloadConfig() Config {
	cfg := DefaultConfig()
	cfg.Ops = 1024
	cfg.KeySpace = 128
	cfg.Seed = 20240418
	return cfg
}

func discardLogger() xlog.XLogger {
	return xlog.NewXLogger(xlog.WithXLoggerWriter(io.Discard), xlog.WithXLoggerLevel(xlog.LogLevelError))
}

func TestWorkload_Run(t *testing.T) {
	testcases := []struct {
		name     string
		id       int
		capacity int64
		ratio    float64
	}{
		{name: "map", id: 0, ratio: 0.4},
		{name: "set", id: 1, ratio: 0.4},
		{name: "bounded map", id: 2, capacity: 24, ratio: 0.3},
		{name: "bounded set", id: 3, capacity: 24, ratio: 0.3},
		{name: "insert only map", id: 4, ratio: 0},
		{name: "erase heavy set", id: 5, ratio: 0.9},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			cfg := testWorkloadConfig()
			cfg.Capacity = tc.capacity
			cfg.EraseRatio = tc.ratio
			w := newWorkload(tc.id, cfg, nil, discardLogger())
			res := w.run(context.Background())
			require.NoError(tt, res.Err)
			require.Equal(tt, cfg.Ops, res.Ops)
			require.Equal(tt, cfg.Seed+uint64(tc.id), res.Seed)
			if tc.capacity > 0 {
				require.LessOrEqual(tt, res.FinalLen, tc.capacity)
			}
			if tc.ratio == 0 && tc.capacity == 0 {
				// Merges only add keys, so the map keeps growing.
				require.Positive(tt, res.FinalLen)
			}
		})
	}
}

func TestWorkload_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := newWorkload(0, testWorkloadConfig(), nil, discardLogger())
	res := w.run(ctx)
	require.ErrorIs(t, res.Err, context.Canceled)
	require.Equal(t, 0, res.Ops)
}

func TestWorkload_Errors(t *testing.T) {
	w := newWorkload(1, testWorkloadConfig(), nil, discardLogger())
	err := w.mismatch(opInsert, 3, "key %d", 7)
	require.ErrorIs(t, err, ErrModelMismatch)
	require.Contains(t, err.Error(), "workload 1 step 3 insert: key 7")

	err = w.corruption(opErase, 9, errors.New("red violation"))
	require.ErrorIs(t, err, ErrTreeCorruption)
	require.Contains(t, err.Error(), "red violation")

	w.cfg.Capacity = 2
	ok, err := w.expectInsertErr(opInsert, 0, 2, tree.ErrRBTreeIsFull)
	require.NoError(t, err)
	require.False(t, ok)
	_, err = w.expectInsertErr(opInsert, 0, 2, nil)
	require.ErrorIs(t, err, ErrModelMismatch)
	ok, err = w.expectInsertErr(opInsert, 0, 1, nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMergeModel(t *testing.T) {
	testcases := []struct {
		name      string
		retain    bool
		capacity  int64
		stopped   bool
		wantModel map[int]int
		wantOther map[int]int
	}{
		{
			name:      "merge",
			wantModel: map[int]int{1: 1, 2: 20, 3: 3, 4: 40},
			wantOther: map[int]int{},
		},
		{
			name:      "merge retain",
			retain:    true,
			wantModel: map[int]int{1: 1, 2: 20, 3: 3, 4: 40},
			wantOther: map[int]int{3: 30},
		},
		{
			name:      "full",
			capacity:  3,
			stopped:   true,
			wantModel: map[int]int{1: 1, 2: 20, 3: 3},
			wantOther: map[int]int{4: 40},
		},
		{
			name:      "full retain",
			retain:    true,
			capacity:  3,
			stopped:   true,
			wantModel: map[int]int{1: 1, 2: 20, 3: 3},
			wantOther: map[int]int{3: 30, 4: 40},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			model := map[int]int{1: 1, 3: 3}
			other := map[int]int{2: 20, 3: 30, 4: 40}
			require.Equal(tt, tc.stopped, mergeModel(model, other, tc.retain, tc.capacity))
			require.Equal(tt, tc.wantModel, model)
			require.Equal(tt, tc.wantOther, other)
		})
	}
}

func TestLowerBound(t *testing.T) {
	model := map[int]struct{}{2: {}, 5: {}, 9: {}}
	k, ok := lowerBound(model, 3)
	require.True(t, ok)
	require.Equal(t, 5, k)
	k, ok = lowerBound(model, 5)
	require.True(t, ok)
	require.Equal(t, 5, k)
	_, ok = lowerBound(model, 10)
	require.False(t, ok)
}
