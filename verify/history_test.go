package verify

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/benz9527/xcontainer/xlog"
)

func testSummary(failed ...int) Summary {
	s := Summary{Ops: 30, Elapsed: 12 * time.Millisecond}
	for i := 0; i < 3; i++ {
		res := WorkloadResult{
			ID:        i,
			Container: containerMap,
			Seed:      uint64(100 + i),
			Ops:       10,
			FinalLen:  int64(i),
			Elapsed:   4 * time.Millisecond,
		}
		if i%2 == 1 {
			res.Container = containerSet
		}
		for _, f := range failed {
			if f == i {
				res.Err = ErrModelMismatch
			}
		}
		s.Results = append(s.Results, res)
	}
	return s
}

func TestHistory_RecordAndQuery(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"), discardLogger())
	require.NoError(t, err)
	defer func() {
		require.NoError(t, h.Close())
	}()

	ctx := context.Background()
	cfg := smallConfig()
	first, err := h.Record(ctx, cfg, testSummary())
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	cfg.Seed = ^uint64(0) - 1
	second, err := h.Record(ctx, cfg, testSummary(1, 2))
	require.NoError(t, err)
	require.Greater(t, second.ID, first.ID)

	runs, err := h.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, second.ID, runs[0].ID)
	require.Equal(t, 2, runs[0].Failed)
	require.Equal(t, cfg.Seed, uint64(runs[0].Seed))
	require.Len(t, runs[0].Results, 3)
	for i, rec := range runs[0].Results {
		require.Equal(t, i, rec.Workload)
		require.Equal(t, second.ID, rec.RunID)
	}
	require.Empty(t, runs[0].Results[0].Failure)
	require.Equal(t, ErrModelMismatch.Error(), runs[0].Results[1].Failure)

	runs, err = h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	seeds, err := h.FailedSeeds(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint64{cfg.Seed}, seeds)
}

func TestHistory_RecordRollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// Below 3.35 the dialect inserts without RETURNING.
	mock.ExpectQuery(regexp.QuoteMeta("select sqlite_version()")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("3.30.0"))
	gdb, err := gorm.Open(sqlite.Dialector{DriverName: sqlite.DriverName, Conn: db}, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 xlog.NewGormXLogger(discardLogger()),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `run_records`")).
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	run, err := newHistory(gdb).Record(context.Background(), smallConfig(), testSummary(0))
	require.ErrorContains(t, err, "database is locked")
	require.Nil(t, run)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_History(t *testing.T) {
	cfg := smallConfig()
	cfg.LogLevel = "error"
	cfg.History = filepath.Join(t.TempDir(), "history.db")
	summary, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	_, err = Run(context.Background(), cfg)
	require.NoError(t, err)

	h, err := OpenHistory(cfg.History, discardLogger())
	require.NoError(t, err)
	defer func() {
		require.NoError(t, h.Close())
	}()
	runs, err := h.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, summary.Ops, runs[0].TotalOps)
	require.Len(t, runs[0].Results, cfg.Workloads)
	require.Zero(t, runs[0].Failed)
}
