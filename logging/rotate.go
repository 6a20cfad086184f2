package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	filePrefix         = "drugsafe-"
	fileSuffix         = ".log"
	defaultMaxFileSize = 100 * 1024 * 1024
	cleanupInterval    = 24 * time.Hour
)

var segmentPattern = regexp.MustCompile(`^drugsafe-\d{4}-W\d{2}(?:_(\d{2}))?\.log$`)

// RotatingFile is an io.Writer over a log directory. It starts a new file
// every ISO week, and a new numbered segment when a file reaches maxSize.
// Files older than the retention period are removed once a day.
type RotatingFile struct {
	dir       string
	retention time.Duration
	maxSize   int64
	now       func() time.Time

	mu      sync.Mutex
	file    *os.File
	week    string
	segment int
	size    int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// OpenRotatingFile creates dir if needed, opens the file for the current week
// and starts the retention sweep.
func OpenRotatingFile(dir string, retentionWeeks int, maxSize int64) (*RotatingFile, error) {
	return openRotatingFile(dir, retentionWeeks, maxSize, time.Now)
}

func openRotatingFile(dir string, retentionWeeks int, maxSize int64, now func() time.Time) (*RotatingFile, error) {
	rf := newRotatingFile(dir, retentionWeeks, maxSize, now)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rf.mu.Lock()
	err := rf.openWeek(weekKey(rf.now()))
	rf.mu.Unlock()
	if err != nil {
		return nil, err
	}

	go rf.sweep(cleanupInterval)
	return rf, nil
}

func newRotatingFile(dir string, retentionWeeks int, maxSize int64, now func() time.Time) *RotatingFile {
	if retentionWeeks <= 0 {
		retentionWeeks = 4
	}
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}
	return &RotatingFile{
		dir:       dir,
		retention: time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxSize:   maxSize,
		now:       now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// weekKey formats t as an ISO week, e.g. 2025-W41.
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func segmentName(week string, segment int) string {
	if segment == 0 {
		return filePrefix + week + fileSuffix
	}
	return fmt.Sprintf("%s%s_%02d%s", filePrefix, week, segment, fileSuffix)
}

// latestSegment returns the highest segment already on disk for week.
func (rf *RotatingFile) latestSegment(week string) int {
	matches, _ := filepath.Glob(filepath.Join(rf.dir, filePrefix+week+"*"+fileSuffix))
	latest := 0
	for _, m := range matches {
		sub := segmentPattern.FindStringSubmatch(filepath.Base(m))
		if sub == nil || sub[1] == "" {
			continue
		}
		if n, err := strconv.Atoi(sub[1]); err == nil && n > latest {
			latest = n
		}
	}
	return latest
}

// openWeek switches to the newest segment of week, continuing it when it still
// has room. Caller holds mu.
func (rf *RotatingFile) openWeek(week string) error {
	segment := rf.latestSegment(week)
	if info, err := os.Stat(filepath.Join(rf.dir, segmentName(week, segment))); err == nil && info.Size() >= rf.maxSize {
		segment++
	}
	return rf.openSegment(week, segment)
}

// openSegment closes the current file and opens week/segment for appending.
// Caller holds mu.
func (rf *RotatingFile) openSegment(week string, segment int) error {
	if rf.file != nil {
		_ = rf.file.Close()
		rf.file = nil
	}

	path := filepath.Join(rf.dir, segmentName(week, segment))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat log file %s: %w", path, err)
	}

	rf.file = f
	rf.week = week
	rf.segment = segment
	rf.size = info.Size()
	return nil
}

// Write appends p to the current file, rotating first when the week changed
// or p would push the file past maxSize.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	week := weekKey(rf.now())
	switch {
	case week != rf.week:
		if err := rf.openWeek(week); err != nil {
			return 0, err
		}
	case rf.size > 0 && rf.size+int64(len(p)) > rf.maxSize:
		if err := rf.openSegment(week, rf.segment+1); err != nil {
			return 0, err
		}
	}

	if rf.file == nil {
		return 0, errors.New("log file closed")
	}
	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// CurrentPath returns the file being written.
func (rf *RotatingFile) CurrentPath() string {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return filepath.Join(rf.dir, segmentName(rf.week, rf.segment))
}

// removeExpired deletes log files last modified before the retention cutoff,
// never touching the file currently open. It returns how many were removed.
func (rf *RotatingFile) removeExpired() (int, error) {
	entries, err := os.ReadDir(rf.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	current := filepath.Base(rf.CurrentPath())
	cutoff := rf.now().Add(-rf.retention)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == current || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(rf.dir, name)) == nil {
			removed++
		}
	}
	return removed, nil
}

func (rf *RotatingFile) sweep(every time.Duration) {
	defer close(rf.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rf.stop:
			return
		case <-ticker.C:
			// Report on stderr; logging here would write back into rf.
			if n, err := rf.removeExpired(); err != nil {
				fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
			} else if n > 0 {
				fmt.Fprintf(os.Stderr, "removed %d expired log files\n", n)
			}
		}
	}
}

// Close stops the sweep and closes the current file. It is safe to call twice.
func (rf *RotatingFile) Close() error {
	var err error
	rf.closeOnce.Do(func() {
		close(rf.stop)
		select {
		case <-rf.done:
		case <-time.After(time.Second):
		}

		rf.mu.Lock()
		defer rf.mu.Unlock()
		if rf.file != nil {
			err = rf.file.Close()
			rf.file = nil
		}
	})
	return err
}
