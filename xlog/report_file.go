package xlog

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/safearchive/zip"
	"github.com/google/safeopen"
	"go.uber.org/multierr"

	"github.com/benz9527/xcontainer/lib/infra"
)

const (
	backupTimeFormat = "2006_01_02T15_04_05.000000000Z"
	archiveTmpName   = "xlog-archive.tmp"
	defaultMaxSize   = 8 << 20
)

var fileSizeRegexp = regexp.MustCompile(`^(\d+)([kKmM]?[bB])$`)

// ParseFileSize accepts sizes like 512B, 64KB or 8MB.
func ParseFileSize(size string) (uint64, error) {
	res := fileSizeRegexp.FindStringSubmatch(strings.TrimSpace(size))
	if len(res) != 3 {
		return 0, infra.NewErrorStack("[XLogger] invalid file size " + size)
	}
	n, err := strconv.ParseUint(res[1], 10, 64)
	if err != nil {
		return 0, infra.WrapErrorStack(err)
	}
	switch strings.ToUpper(res[2]) {
	case "KB":
		n <<= 10
	case "MB":
		n <<= 20
	default:
	}
	return n, nil
}

// ReportFileConfig describes a size rotated log file. Rotated backups are
// named <name>_<utc time><ext> next to the live file. Backups older than
// MaxAge or beyond MaxBackups are deleted, or moved into ArchiveName if
// Compress is set.
type ReportFileConfig struct {
	Dir         string
	Filename    string
	MaxSize     string
	MaxAge      time.Duration
	MaxBackups  int
	Compress    bool
	ArchiveName string
}

var _ io.WriteCloser = (*reportFile)(nil)

type reportFile struct {
	cfg     ReportFileConfig
	maxSize uint64
	lock    sync.Mutex
	file    *os.File // nil after a failed reopen, retried by Write
	written uint64
	closed  bool
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewReportFile opens (or creates) the live file and starts watching its
// directory for rotations.
func NewReportFile(cfg ReportFileConfig) (io.WriteCloser, error) {
	if len(cfg.Filename) == 0 || cfg.Filename != filepath.Base(cfg.Filename) {
		return nil, infra.NewErrorStack("[XLogger] invalid report filename " + cfg.Filename)
	}
	if len(cfg.Dir) == 0 {
		cfg.Dir = os.TempDir()
	}
	if len(cfg.ArchiveName) == 0 {
		cfg.ArchiveName = strings.TrimSuffix(cfg.Filename, filepath.Ext(cfg.Filename)) + ".zip"
	}
	r := &reportFile{
		cfg:     cfg,
		maxSize: defaultMaxSize,
		done:    make(chan struct{}),
	}
	if len(cfg.MaxSize) > 0 {
		size, err := ParseFileSize(cfg.MaxSize)
		if err != nil {
			return nil, err
		}
		r.maxSize = size
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[XLogger] create report dir")
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = r.file.Close()
		return nil, infra.WrapErrorStackWithMessage(err, "[XLogger] create report watcher")
	}
	if err = watcher.Add(cfg.Dir); err != nil {
		_ = r.file.Close()
		return nil, multierr.Append(
			infra.WrapErrorStackWithMessage(err, "[XLogger] watch report dir"),
			watcher.Close(),
		)
	}
	r.watcher = watcher
	r.wg.Add(1)
	go r.watch()
	return r, nil
}

func (r *reportFile) open() error {
	f, err := safeopen.OpenFileBeneath(r.cfg.Dir, r.cfg.Filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "[XLogger] open report "+filepath.Join(r.cfg.Dir, r.cfg.Filename))
	}
	info, err := f.Stat()
	if err != nil {
		return multierr.Append(infra.WrapErrorStack(err), f.Close())
	}
	r.file, r.written = f, uint64(info.Size())
	return nil
}

// Write never splits p, the file is rotated after the write crossing
// the size limit.
func (r *reportFile) Write(p []byte) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return 0, os.ErrClosed
	}
	if r.file == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	n, err := r.file.Write(p)
	r.written += uint64(n)
	if err != nil {
		return n, err
	}
	if r.written >= r.maxSize {
		err = r.rotate()
	}
	return n, err
}

func (r *reportFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return infra.WrapErrorStack(err)
	}
	r.file = nil
	ext := filepath.Ext(r.cfg.Filename)
	backup := strings.TrimSuffix(r.cfg.Filename, ext) + "_" + time.Now().UTC().Format(backupTimeFormat) + ext
	if err := os.Rename(filepath.Join(r.cfg.Dir, r.cfg.Filename), filepath.Join(r.cfg.Dir, backup)); err != nil {
		return multierr.Append(infra.WrapErrorStack(err), r.open())
	}
	return r.open()
}

func (r *reportFile) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	close(r.done)
	err := r.watcher.Close()
	r.wg.Wait()
	if r.file != nil {
		err = multierr.Append(err, r.file.Close())
		r.file = nil
	}
	return err
}

func (r *reportFile) watch() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && r.isBackup(filepath.Base(event.Name)) {
				reportFileError(r.prune(time.Now().UTC()))
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			reportFileError(err)
		}
	}
}

func (r *reportFile) isBackup(name string) bool {
	_, ok := r.backupTime(name)
	return ok
}

func (r *reportFile) backupTime(name string) (time.Time, bool) {
	ext := filepath.Ext(r.cfg.Filename)
	prefix := strings.TrimSuffix(r.cfg.Filename, ext) + "_"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
		return time.Time{}, false
	}
	ts, err := time.Parse(backupTimeFormat, strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

type reportBackup struct {
	name string
	ts   time.Time
}

// expiredBackups returns the backups older than MaxAge plus the oldest
// ones exceeding MaxBackups.
func (r *reportFile) expiredBackups(now time.Time, entries []fs.DirEntry) []reportBackup {
	backups := make([]reportBackup, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ts, ok := r.backupTime(entry.Name()); ok {
			backups = append(backups, reportBackup{name: entry.Name(), ts: ts})
		}
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].ts.Before(backups[j].ts) })

	expired := 0
	if r.cfg.MaxAge > 0 {
		for expired < len(backups) && now.Sub(backups[expired].ts) > r.cfg.MaxAge {
			expired++
		}
	}
	if r.cfg.MaxBackups > 0 && len(backups)-expired > r.cfg.MaxBackups {
		expired = len(backups) - r.cfg.MaxBackups
	}
	return backups[:expired]
}

func (r *reportFile) prune(now time.Time) error {
	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return infra.WrapErrorStack(err)
	}
	expired := r.expiredBackups(now, entries)
	if len(expired) == 0 {
		return nil
	}
	if r.cfg.Compress {
		return r.archive(expired)
	}
	for _, b := range expired {
		err = multierr.Append(err, os.Remove(filepath.Join(r.cfg.Dir, b.name)))
	}
	return err
}

// archive rewrites the single archive with its previous entries followed
// by the expired backups, which are removed afterwards.
func (r *reportFile) archive(expired []reportBackup) (err error) {
	tmp, err := safeopen.OpenFileBeneath(r.cfg.Dir, archiveTmpName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return infra.WrapErrorStack(err)
	}
	zw := zip.NewWriter(tmp)
	defer func() {
		err = multierr.Combine(err, zw.Close(), tmp.Close())
		if err != nil {
			_ = os.Remove(filepath.Join(r.cfg.Dir, archiveTmpName))
			return
		}
		err = os.Rename(filepath.Join(r.cfg.Dir, archiveTmpName), filepath.Join(r.cfg.Dir, r.cfg.ArchiveName))
		if err != nil {
			return
		}
		for _, b := range expired {
			err = multierr.Append(err, os.Remove(filepath.Join(r.cfg.Dir, b.name)))
		}
	}()

	if prev, oerr := zip.OpenReader(filepath.Join(r.cfg.Dir, r.cfg.ArchiveName)); oerr == nil {
		prev.SetSecurityMode(prev.GetSecurityMode() | zip.MaximumSecurityMode)
		for _, f := range prev.File {
			if err = copyIntoArchive(zw, f.Name, f.Open); err != nil {
				break
			}
		}
		err = multierr.Append(err, prev.Close())
		if err != nil {
			return err
		}
	}
	for _, b := range expired {
		name := b.name
		if err = copyIntoArchive(zw, name, func() (io.ReadCloser, error) {
			return safeopen.OpenBeneath(r.cfg.Dir, name)
		}); err != nil {
			return err
		}
	}
	return nil
}

func copyIntoArchive(zw *zip.Writer, name string, open func() (io.ReadCloser, error)) error {
	src, err := open()
	if err != nil {
		return infra.WrapErrorStack(err)
	}
	defer func() { _ = src.Close() }()
	dst, err := zw.Create(name)
	if err != nil {
		return infra.WrapErrorStack(err)
	}
	_, err = io.Copy(dst, src)
	return err
}

func reportFileError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString("[XLogger] report file error: " + err.Error() + "\n")
	}
}
