package verify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xcontainer/lib/infra"
	"github.com/benz9527/xcontainer/xlog"
)

// Summary aggregates the results of a run, ordered by workload id.
type Summary struct {
	Results []WorkloadResult
	Ops     int
	Elapsed time.Duration
}

func (s Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Runner schedules the workloads on a shared goroutine pool. Each
// workload owns its containers, the pool only provides parallelism.
type Runner struct {
	cfg    Config
	pool   *ants.Pool
	stats  *verifierStats
	logger xlog.XLogger
}

func NewRunner(cfg Config, pool *ants.Pool, logger xlog.XLogger) *Runner {
	return &Runner{
		cfg:    cfg,
		pool:   pool,
		stats:  newVerifierStats("runner"),
		logger: logger.Named("runner"),
	}
}

func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var (
		wg      sync.WaitGroup
		lock    sync.Mutex
		results = make([]WorkloadResult, 0, r.cfg.Workloads)
		err     error
		start   = time.Now()
	)
	for i := 0; i < r.cfg.Workloads; i++ {
		w := newWorkload(i, r.cfg, r.stats, r.logger)
		wctx := context.WithValue(ctx, xlog.ContextKey("workload"), i)
		wg.Add(1)
		if serr := r.pool.Submit(func() {
			defer wg.Done()
			res := WorkloadResult{ID: w.id, Container: w.container(), Seed: w.seed}
			defer func() {
				if p := recover(); p != nil {
					res.Err = infra.NewErrorStack(fmt.Sprintf("[verify] workload %d panic: %v", w.id, p))
				}
				lock.Lock()
				results = append(results, res)
				lock.Unlock()
			}()
			res = w.run(wctx)
		}); serr != nil {
			wg.Done()
			err = multierr.Append(err, infra.WrapErrorStackWithMessage(serr, fmt.Sprintf("[verify] submit workload %d", i)))
		}
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	summary := Summary{Results: results, Elapsed: time.Since(start)}
	for _, res := range results {
		summary.Ops += res.Ops
		wctx := context.WithValue(ctx, xlog.ContextKey("workload"), res.ID)
		if res.Err != nil {
			r.logger.ErrorStackContext(wctx, res.Err, "workload failed",
				zap.String("container", res.Container),
				zap.Uint64("seed", res.Seed),
				zap.Int("ops", res.Ops),
			)
			err = multierr.Append(err, res.Err)
			continue
		}
		r.logger.InfoContext(wctx, "workload passed",
			zap.String("container", res.Container),
			zap.Uint64("seed", res.Seed),
			zap.Int("ops", res.Ops),
			zap.Int64("len", res.FinalLen),
			zap.Duration("elapsed", res.Elapsed),
		)
	}
	return summary, err
}
