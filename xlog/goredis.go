package xlog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xcontainer/lib/infra"
)

// GoRedisXLogger receives the internal messages of go-redis, installed by
// redis.SetLogger. Messages mentioning a failure are errors.
type GoRedisXLogger struct {
	logger XLogger
}

func NewGoRedisXLogger(logger XLogger) *GoRedisXLogger {
	return &GoRedisXLogger{logger: newComponentLogger(logger, "GoRedis")}
}

func (l *GoRedisXLogger) Printf(ctx context.Context, format string, v ...any) {
	if l == nil || l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if strings.Contains(msg, "failed") {
		l.logger.Logf(zapcore.ErrorLevel, msg)
		return
	}
	l.logger.Logf(zapcore.InfoLevel, msg)
}

const defaultRedisReportTimeout = time.Second

// RedisReportConfig pushes every log line onto the list Key. The list is
// trimmed to the newest MaxLen lines, 0 keeps all of them.
type RedisReportConfig struct {
	Key     string
	MaxLen  int64
	Timeout time.Duration
}

var _ io.WriteCloser = (*redisReport)(nil)

type redisReport struct {
	client redis.UniversalClient
	cfg    RedisReportConfig
	closed atomic.Bool
}

// NewRedisReport takes the ownership of client once it succeeds, the
// client is closed with the writer. The server is pinged first.
func NewRedisReport(ctx context.Context, client redis.UniversalClient, cfg RedisReportConfig) (io.WriteCloser, error) {
	if client == nil {
		return nil, infra.NewErrorStack("[XLogger] nil redis client")
	}
	if len(strings.TrimSpace(cfg.Key)) == 0 || cfg.MaxLen < 0 {
		return nil, infra.NewErrorStack("[XLogger] invalid redis report key or max length")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisReportTimeout
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[XLogger] ping redis report")
	}
	return &redisReport{client: client, cfg: cfg}, nil
}

// Write pushes p as one list element, zap hands over exactly one entry
// per call.
func (r *redisReport) Write(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, os.ErrClosed
	}
	line := string(bytes.TrimRight(p, "\n"))
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, r.cfg.Key, line)
		if r.cfg.MaxLen > 0 {
			pipe.LTrim(ctx, r.cfg.Key, -r.cfg.MaxLen, -1)
		}
		return nil
	})
	if err != nil {
		return 0, infra.WrapErrorStackWithMessage(err, "[XLogger] push redis report")
	}
	return len(p), nil
}

func (r *redisReport) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return r.client.Close()
}
