package verify

import (
	"context"
	"errors"
	"fmt"
	randv2 "math/rand/v2"
	"slices"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/benz9527/xcontainer/lib/infra"
	"github.com/benz9527/xcontainer/lib/kv"
	"github.com/benz9527/xcontainer/lib/tree"
	"github.com/benz9527/xcontainer/xlog"
)

var (
	ErrModelMismatch  = errors.New("[verify] container diverged from the model")
	ErrTreeCorruption = errors.New("[verify] tree invariant broken")
	errCtorRejected   = errors.New("[verify] value constructor rejected")
)

const (
	containerMap = "map"
	containerSet = "set"

	// Every snapshotEvery ops the whole container is compared with the
	// model and a bulk operation runs.
	snapshotEvery = 64
)

// WorkloadResult is the outcome of one workload.
type WorkloadResult struct {
	ID        int
	Container string
	Seed      uint64
	Ops       int
	FinalLen  int64
	Elapsed   time.Duration
	Err       error
}

type workload struct {
	id     int
	seed   uint64
	cfg    Config
	rng    *randv2.Rand
	stats  *verifierStats
	logger xlog.XLogger
}

func newWorkload(id int, cfg Config, stats *verifierStats, logger xlog.XLogger) *workload {
	seed := cfg.Seed + uint64(id)
	return &workload{
		id:     id,
		seed:   seed,
		cfg:    cfg,
		rng:    randv2.New(randv2.NewPCG(seed, uint64(id))),
		stats:  stats,
		logger: logger,
	}
}

func (w *workload) container() string {
	if w.id%2 == 1 {
		return containerSet
	}
	return containerMap
}

func (w *workload) run(ctx context.Context) WorkloadResult {
	res := WorkloadResult{
		ID:        w.id,
		Container: w.container(),
		Seed:      w.seed,
	}
	start := time.Now()
	if res.Container == containerSet {
		res.Ops, res.FinalLen, res.Err = w.runSet(ctx)
	} else {
		res.Ops, res.FinalLen, res.Err = w.runMap(ctx)
	}
	res.Elapsed = time.Since(start)
	w.stats.RecordWorkload(ctx, res.Container, res.Elapsed.Milliseconds(), res.Err != nil)
	return res
}

func (w *workload) key() int {
	return w.rng.IntN(w.cfg.KeySpace)
}

func (w *workload) full(n int) bool {
	return w.cfg.Capacity > 0 && int64(n) >= w.cfg.Capacity
}

func (w *workload) mismatch(op opKind, step int, format string, args ...any) error {
	w.stats.IncreaseViolationCount(context.Background(), w.container())
	return infra.WrapErrorStackWithMessage(ErrModelMismatch,
		fmt.Sprintf("workload %d step %d %s: %s", w.id, step, op, fmt.Sprintf(format, args...)),
	)
}

func (w *workload) corruption(op opKind, step int, err error) error {
	w.stats.IncreaseViolationCount(context.Background(), w.container())
	return infra.WrapErrorStackWithMessage(
		fmt.Errorf("%w: %w", ErrTreeCorruption, err),
		fmt.Sprintf("workload %d step %d %s", w.id, step, op),
	)
}

// expectInsertErr checks the error of an insertion of a key absent from
// the model, a bounded tree is allowed to be full.
func (w *workload) expectInsertErr(op opKind, step, n int, err error) (inserted bool, _ error) {
	if w.full(n) {
		if !errors.Is(err, tree.ErrRBTreeIsFull) {
			return false, w.mismatch(op, step, "full tree returns %v", err)
		}
		return false, nil
	}
	if err != nil {
		return false, w.mismatch(op, step, "unexpected error %v", err)
	}
	return true, nil
}

func (w *workload) newMap() *kv.OrderedMap[int, int] {
	if w.cfg.Capacity > 0 {
		return kv.NewOrderedMap[int, int](tree.WithRBTreeCapacity[int, int](w.cfg.Capacity))
	}
	return kv.NewOrderedMap[int, int]()
}

func (w *workload) runMap(ctx context.Context) (int, int64, error) {
	m := w.newMap()
	model := make(map[int]int, w.cfg.KeySpace)
	logger := w.logger.Named(containerMap)

	for step := 0; step < w.cfg.Ops; step++ {
		if err := ctx.Err(); err != nil {
			return step, m.Len(), infra.WrapErrorStack(err)
		}
		op, err := w.mapStep(m, model, step)
		if err != nil {
			return step, m.Len(), err
		}
		w.stats.IncreaseOpCount(ctx, op, containerMap)
		if err = m.Validate(); err != nil {
			return step, m.Len(), w.corruption(op, step, err)
		}
		if m.Len() != int64(len(model)) {
			return step, m.Len(), w.mismatch(op, step, "len %d, model %d", m.Len(), len(model))
		}
		if (step+1)%snapshotEvery != 0 {
			continue
		}
		if err = w.compareMap(m, model, op, step); err != nil {
			return step, m.Len(), err
		}
		if op, err = w.mapBulkStep(m, model, step); err != nil {
			return step, m.Len(), err
		}
		w.stats.IncreaseOpCount(ctx, op, containerMap)
		if err = m.Validate(); err != nil {
			return step, m.Len(), w.corruption(op, step, err)
		}
		if err = w.compareMap(m, model, op, step); err != nil {
			return step, m.Len(), err
		}
		logger.DebugContext(ctx, "snapshot verified",
			zap.Int("step", step),
			zap.String("op", string(op)),
			zap.Int64("len", m.Len()),
		)
	}
	return w.cfg.Ops, m.Len(), w.compareMap(m, model, opInsert, w.cfg.Ops)
}

func (w *workload) mapStep(m *kv.OrderedMap[int, int], model map[int]int, step int) (opKind, error) {
	key, val := w.key(), w.rng.Int()
	prev, present := model[key]

	if w.rng.Float64() < w.cfg.EraseRatio {
		switch w.rng.IntN(3) {
		case 0:
			got, err := m.Remove(key)
			if present {
				if err != nil || got != prev {
					return opRemove, w.mismatch(opRemove, step, "key %d got (%d, %v), want %d", key, got, err, prev)
				}
				delete(model, key)
			} else if !errors.Is(err, kv.ErrKeyNotFound) {
				return opRemove, w.mismatch(opRemove, step, "absent key %d returns %v", key, err)
			}
			return opRemove, nil
		case 1:
			it := m.LowerBound(key)
			want, ok := lowerBound(model, key)
			if it.IsEnd() {
				if ok {
					return opErase, w.mismatch(opErase, step, "lower bound of %d is end, want %d", key, want)
				}
				if err := m.Erase(it); !errors.Is(err, tree.ErrRBTreeEraseEnd) {
					return opErase, w.mismatch(opErase, step, "erase end returns %v", err)
				}
				return opErase, nil
			}
			got, _ := it.Key()
			if !ok || got != want {
				return opErase, w.mismatch(opErase, step, "lower bound of %d is %d, want %d", key, got, want)
			}
			if err := m.Erase(it); err != nil {
				return opErase, w.mismatch(opErase, step, "erase %d returns %v", got, err)
			}
			if it.Valid() {
				return opErase, w.mismatch(opErase, step, "iterator of %d survives its erase", got)
			}
			delete(model, got)
			return opErase, nil
		default:
			it := m.Begin()
			if it.IsEnd() {
				return opRemoveMin, nil
			}
			got, _ := it.Key()
			if want := lo.Min(lo.Keys(model)); got != want {
				return opRemoveMin, w.mismatch(opRemoveMin, step, "begin is %d, want %d", got, want)
			}
			if err := m.Erase(it); err != nil {
				return opRemoveMin, w.mismatch(opRemoveMin, step, "erase begin returns %v", err)
			}
			delete(model, got)
			return opRemoveMin, nil
		}
	}

	switch w.rng.IntN(3) {
	case 0:
		_, inserted, err := m.Insert(key, val)
		if present {
			if err != nil || inserted {
				return opInsert, w.mismatch(opInsert, step, "present key %d returns (%v, %v)", key, inserted, err)
			}
			return opInsert, nil
		}
		ok, merr := w.expectInsertErr(opInsert, step, len(model), err)
		if merr != nil {
			return opInsert, merr
		}
		if ok != inserted {
			return opInsert, w.mismatch(opInsert, step, "key %d inserted %v", key, inserted)
		}
		if ok {
			model[key] = val
		}
		return opInsert, nil
	case 1:
		_, inserted, err := m.InsertOrAssign(key, val)
		if present {
			if err != nil || inserted {
				return opInsertOrAssign, w.mismatch(opInsertOrAssign, step, "present key %d returns (%v, %v)", key, inserted, err)
			}
			model[key] = val
			return opInsertOrAssign, nil
		}
		ok, merr := w.expectInsertErr(opInsertOrAssign, step, len(model), err)
		if merr != nil {
			return opInsertOrAssign, merr
		}
		if ok {
			model[key] = val
		}
		return opInsertOrAssign, nil
	default:
		reject := w.rng.IntN(8) == 0
		called := false
		_, inserted, err := m.Emplace(key, func() (int, error) {
			called = true
			if reject {
				return 0, errCtorRejected
			}
			return val, nil
		})
		if present {
			if err != nil || inserted || called {
				return opEmplace, w.mismatch(opEmplace, step, "present key %d returns (%v, %v), ctor called %v", key, inserted, err, called)
			}
			return opEmplace, nil
		}
		if reject && !w.full(len(model)) {
			if !errors.Is(err, tree.ErrRBTreeValueCtor) || !errors.Is(err, errCtorRejected) || inserted {
				return opEmplace, w.mismatch(opEmplace, step, "rejected ctor of %d returns (%v, %v)", key, inserted, err)
			}
			return opEmplace, nil
		}
		ok, merr := w.expectInsertErr(opEmplace, step, len(model), err)
		if merr != nil {
			return opEmplace, merr
		}
		if ok {
			model[key] = val
		}
		return opEmplace, nil
	}
}

// mapBulkStep runs one of clone, swap or merge on the whole map.
func (w *workload) mapBulkStep(m *kv.OrderedMap[int, int], model map[int]int, step int) (opKind, error) {
	switch w.rng.IntN(3) {
	case 0:
		c := m.Clone()
		if err := w.compareMap(c, model, opClone, step); err != nil {
			return opClone, err
		}
		// The clone is independent of its source.
		c.Clear()
		if int64(len(model)) != m.Len() {
			return opClone, w.mismatch(opClone, step, "clearing the clone changes the source")
		}
		return opClone, nil
	case 1:
		other := w.newMap()
		if err := m.Swap(other); err != nil {
			return opSwap, w.mismatch(opSwap, step, "swap returns %v", err)
		}
		if !m.IsEmpty() || other.Len() != int64(len(model)) {
			return opSwap, w.mismatch(opSwap, step, "swap keeps %d, other has %d", m.Len(), other.Len())
		}
		if err := m.MoveFrom(other); err != nil {
			return opSwap, w.mismatch(opSwap, step, "move returns %v", err)
		}
		if !other.IsEmpty() {
			return opSwap, w.mismatch(opSwap, step, "move leaves %d in the source", other.Len())
		}
		return opSwap, nil
	default:
		other := kv.NewOrderedMap[int, int]()
		otherModel := make(map[int]int, 16)
		for i := w.rng.IntN(16); i >= 0; i-- {
			k, v := w.key(), w.rng.Int()
			if _, ok := otherModel[k]; ok {
				continue
			}
			lo.Must2(other.Insert(k, v))
			otherModel[k] = v
		}
		retain := w.rng.IntN(2) == 0
		var err error
		if retain {
			err = m.MergeRetain(other)
		} else {
			err = m.Merge(other)
		}
		stopped := mergeModel(model, otherModel, retain, w.cfg.Capacity)
		if stopped != (err != nil) || (err != nil && !errors.Is(err, tree.ErrRBTreeIsFull)) {
			return opMerge, w.mismatch(opMerge, step, "merge stopped %v returns %v", stopped, err)
		}
		if err = other.Validate(); err != nil {
			return opMerge, w.corruption(opMerge, step, err)
		}
		if other.Len() != int64(len(otherModel)) {
			return opMerge, w.mismatch(opMerge, step, "merge leaves %d in the source, want %d", other.Len(), len(otherModel))
		}
		return opMerge, nil
	}
}

func (w *workload) compareMap(m *kv.OrderedMap[int, int], model map[int]int, op opKind, step int) error {
	keys := lo.Keys(model)
	slices.Sort(keys)
	entries := m.Entries()
	if len(entries) != len(keys) {
		return w.mismatch(op, step, "%d entries, model %d", len(entries), len(keys))
	}
	for i, e := range entries {
		if e.Key != keys[i] || e.Value != model[keys[i]] {
			return w.mismatch(op, step, "entry %d is %d=%d, want %d=%d", i, e.Key, e.Value, keys[i], model[keys[i]])
		}
	}
	return nil
}

func (w *workload) newSet() *kv.OrderedSet[int] {
	var opts []tree.RBTreeOpt[int, struct{}]
	if w.cfg.Capacity > 0 {
		opts = append(opts, tree.WithRBTreeCapacity[int, struct{}](w.cfg.Capacity))
	}
	return kv.NewOrderedSetFunc[int](infra.AscKeyComparator[int], opts...)
}

func (w *workload) runSet(ctx context.Context) (int, int64, error) {
	s := w.newSet()
	model := make(map[int]struct{}, w.cfg.KeySpace)
	logger := w.logger.Named(containerSet)

	for step := 0; step < w.cfg.Ops; step++ {
		if err := ctx.Err(); err != nil {
			return step, s.Len(), infra.WrapErrorStack(err)
		}
		op, err := w.setStep(s, model, step)
		if err != nil {
			return step, s.Len(), err
		}
		w.stats.IncreaseOpCount(ctx, op, containerSet)
		if err = s.Validate(); err != nil {
			return step, s.Len(), w.corruption(op, step, err)
		}
		if s.Len() != int64(len(model)) {
			return step, s.Len(), w.mismatch(op, step, "len %d, model %d", s.Len(), len(model))
		}
		if (step+1)%snapshotEvery != 0 {
			continue
		}
		if err = w.compareSet(s, model, op, step); err != nil {
			return step, s.Len(), err
		}
		logger.DebugContext(ctx, "snapshot verified",
			zap.Int("step", step),
			zap.Int64("len", s.Len()),
		)
	}
	return w.cfg.Ops, s.Len(), w.compareSet(s, model, opInsert, w.cfg.Ops)
}

func (w *workload) setStep(s *kv.OrderedSet[int], model map[int]struct{}, step int) (opKind, error) {
	key := w.key()
	_, present := model[key]

	if w.rng.Float64() < w.cfg.EraseRatio {
		err := s.Remove(key)
		if present {
			if err != nil {
				return opRemove, w.mismatch(opRemove, step, "key %d returns %v", key, err)
			}
			delete(model, key)
		} else if !errors.Is(err, kv.ErrKeyNotFound) {
			return opRemove, w.mismatch(opRemove, step, "absent key %d returns %v", key, err)
		}
		return opRemove, nil
	}

	if w.rng.IntN(8) == 0 {
		other := kv.NewOrderedSet[int]()
		otherModel := make(map[int]int, 8)
		for i := w.rng.IntN(8); i >= 0; i-- {
			k := w.key()
			lo.Must2(other.Insert(k))
			otherModel[k] = 0
		}
		merged := lo.MapValues(model, func(struct{}, int) int { return 0 })
		stopped := mergeModel(merged, otherModel, false, w.cfg.Capacity)
		err := s.Merge(other)
		if stopped != (err != nil) {
			return opMerge, w.mismatch(opMerge, step, "merge stopped %v returns %v", stopped, err)
		}
		for k := range merged {
			model[k] = struct{}{}
		}
		if other.Len() != int64(len(otherModel)) {
			return opMerge, w.mismatch(opMerge, step, "merge leaves %d in the source, want %d", other.Len(), len(otherModel))
		}
		return opMerge, nil
	}

	it, inserted, err := s.Insert(key)
	if present {
		if err != nil || inserted {
			return opInsert, w.mismatch(opInsert, step, "present key %d returns (%v, %v)", key, inserted, err)
		}
		if got, _ := it.Get(); got != key {
			return opInsert, w.mismatch(opInsert, step, "present key %d iterator at %d", key, got)
		}
		return opInsert, nil
	}
	ok, merr := w.expectInsertErr(opInsert, step, len(model), err)
	if merr != nil {
		return opInsert, merr
	}
	if ok {
		model[key] = struct{}{}
	}
	return opInsert, nil
}

func (w *workload) compareSet(s *kv.OrderedSet[int], model map[int]struct{}, op opKind, step int) error {
	want := lo.Keys(model)
	slices.Sort(want)
	if got := s.Keys(); !slices.Equal(got, want) {
		return w.mismatch(op, step, "keys %v, want %v", got, want)
	}
	return nil
}

// lowerBound is the smallest model key not less than key.
func lowerBound[V any](model map[int]V, key int) (int, bool) {
	res, ok := 0, false
	for k := range model {
		if k >= key && (!ok || k < res) {
			res, ok = k, true
		}
	}
	return res, ok
}

// mergeModel applies a merge of other into model, keys are moved in
// ascending order until a bounded model is full. other keeps what the
// merge leaves behind. It reports whether the merge stopped early.
func mergeModel(model, other map[int]int, retain bool, capacity int64) bool {
	keys := lo.Keys(other)
	slices.Sort(keys)
	for _, k := range keys {
		if _, dup := model[k]; dup {
			if !retain {
				delete(other, k)
			}
			continue
		}
		if capacity > 0 && int64(len(model)) >= capacity {
			return true
		}
		model[k] = other[k]
		delete(other, k)
	}
	return false
}
