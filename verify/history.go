package verify

import (
	"context"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/benz9527/xcontainer/lib/infra"
	"github.com/benz9527/xcontainer/xlog"
)

// RunRecord is one verifier run. Seeds are stored as int64, sqlite has no
// unsigned integers.
type RunRecord struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	Seed           int64
	Workloads      int
	OpsPerWorkload int
	KeySpace       int
	Capacity       int64
	TotalOps       int
	Failed         int
	ElapsedMs      int64
	Results        []WorkloadRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

type WorkloadRecord struct {
	ID        uint `gorm:"primaryKey"`
	RunID     uint `gorm:"index"`
	Workload  int
	Container string `gorm:"size:8"`
	Seed      int64
	Ops       int
	FinalLen  int64
	ElapsedMs int64
	Failure   string
}

// History keeps the outcome of every run, so the seed of a failed
// workload can be replayed later.
type History struct {
	db *gorm.DB
}

// OpenHistory opens (or creates) the sqlite database at path and migrates
// its tables.
func OpenHistory(path string, logger xlog.XLogger) (*History, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: xlog.NewGormXLogger(logger, xlog.WithGormXLoggerIgnoreRecord404Err()),
	})
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[verify] open history "+path)
	}
	h := newHistory(db)
	if err = db.AutoMigrate(&RunRecord{}, &WorkloadRecord{}); err != nil {
		return nil, multierr.Append(infra.WrapErrorStackWithMessage(err, "[verify] migrate history"), h.Close())
	}
	return h, nil
}

func newHistory(db *gorm.DB) *History {
	return &History{db: db}
}

func newRunRecord(cfg Config, summary Summary) *RunRecord {
	run := &RunRecord{
		Seed:           int64(cfg.Seed),
		Workloads:      cfg.Workloads,
		OpsPerWorkload: cfg.Ops,
		KeySpace:       cfg.KeySpace,
		Capacity:       cfg.Capacity,
		TotalOps:       summary.Ops,
		Failed:         summary.Failed(),
		ElapsedMs:      summary.Elapsed.Milliseconds(),
		Results:        make([]WorkloadRecord, 0, len(summary.Results)),
	}
	for _, res := range summary.Results {
		rec := WorkloadRecord{
			Workload:  res.ID,
			Container: res.Container,
			Seed:      int64(res.Seed),
			Ops:       res.Ops,
			FinalLen:  res.FinalLen,
			ElapsedMs: res.Elapsed.Milliseconds(),
		}
		if res.Err != nil {
			rec.Failure = res.Err.Error()
		}
		run.Results = append(run.Results, rec)
	}
	return run
}

// Record stores the run with its workloads in one transaction.
func (h *History) Record(ctx context.Context, cfg Config, summary Summary) (*RunRecord, error) {
	run := newRunRecord(cfg, summary)
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[verify] record run")
	}
	return run, nil
}

// Recent returns the latest runs first, with their workloads.
func (h *History) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	runs := make([]RunRecord, 0, limit)
	err := h.db.WithContext(ctx).
		Preload("Results", func(db *gorm.DB) *gorm.DB {
			return db.Order("workload")
		}).
		Order("id desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	return runs, nil
}

// FailedSeeds returns the seeds of the runs with a failed workload, oldest
// first. Running again with the same seed and sizes replays them.
func (h *History) FailedSeeds(ctx context.Context) ([]uint64, error) {
	var seeds []int64
	err := h.db.WithContext(ctx).
		Model(&RunRecord{}).
		Where("failed > ?", 0).
		Order("id").
		Pluck("seed", &seeds).Error
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	res := make([]uint64, 0, len(seeds))
	for _, s := range seeds {
		res = append(res, uint64(s))
	}
	return res, nil
}

func (h *History) Close() error {
	db, err := h.db.DB()
	if err != nil {
		return infra.WrapErrorStack(err)
	}
	return db.Close()
}
