package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestWeekKey(t *testing.T) {
	tests := []struct {
		when time.Time
		want string
	}{
		{time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC), "2025-W41"},
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "2025-W01"},
		// ISO week 1 of 2026 starts on Monday 2025-12-29.
		{time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), "2026-W01"},
	}
	for _, tt := range tests {
		if got := weekKey(tt.when); got != tt.want {
			t.Errorf("weekKey(%v) = %s, want %s", tt.when, got, tt.want)
		}
	}
}

func TestRotatingFileWritesCurrentWeek(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{t: time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)}
	rf, err := openRotatingFile(dir, 1, 1024, clock.Now)
	if err != nil {
		t.Fatalf("openRotatingFile() error = %v", err)
	}
	defer rf.Close()

	if _, err := rf.Write([]byte("first line\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := filepath.Join(dir, "drugsafe-2025-W41.log")
	if rf.CurrentPath() != want {
		t.Errorf("CurrentPath() = %s, want %s", rf.CurrentPath(), want)
	}
	content, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if string(content) != "first line\n" {
		t.Errorf("unexpected file content %q", content)
	}
}

func TestRotatingFileRotatesOnWeekChange(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{t: time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)}
	rf, err := openRotatingFile(dir, 4, 1024, clock.Now)
	if err != nil {
		t.Fatalf("openRotatingFile() error = %v", err)
	}
	defer rf.Close()

	rf.Write([]byte("week 41\n"))
	clock.Advance(7 * 24 * time.Hour)
	rf.Write([]byte("week 42\n"))

	for name, want := range map[string]string{
		"drugsafe-2025-W41.log": "week 41\n",
		"drugsafe-2025-W42.log": "week 42\n",
	} {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if string(content) != want {
			t.Errorf("%s content = %q, want %q", name, content, want)
		}
	}
}

func TestRotatingFileRotatesOnSize(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{t: time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)}
	rf, err := openRotatingFile(dir, 4, 20, clock.Now)
	if err != nil {
		t.Fatalf("openRotatingFile() error = %v", err)
	}
	defer rf.Close()

	line := []byte("0123456789abcde\n") // 16 bytes
	for range 3 {
		if _, err := rf.Write(line); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	for _, name := range []string{"drugsafe-2025-W41.log", "drugsafe-2025-W41_01.log", "drugsafe-2025-W41_02.log"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("expected segment %s: %v", name, err)
		}
		if info.Size() != int64(len(line)) {
			t.Errorf("%s size = %d, want %d", name, info.Size(), len(line))
		}
	}
}

func TestRotatingFileResumesLatestSegment(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "drugsafe-2025-W41.log"), []byte(strings.Repeat("x", 30)), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "drugsafe-2025-W41_01.log"), []byte("short\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	clock := &fakeClock{t: time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)}
	rf, err := openRotatingFile(dir, 4, 20, clock.Now)
	if err != nil {
		t.Fatalf("openRotatingFile() error = %v", err)
	}
	defer rf.Close()

	want := filepath.Join(dir, "drugsafe-2025-W41_01.log")
	if rf.CurrentPath() != want {
		t.Errorf("CurrentPath() = %s, want %s", rf.CurrentPath(), want)
	}
}

func TestRotatingFileRemovesExpired(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	rf, err := openRotatingFile(dir, 1, 1024, func() time.Time { return now })
	if err != nil {
		t.Fatalf("openRotatingFile() error = %v", err)
	}
	defer rf.Close()

	old := filepath.Join(dir, "drugsafe-2020-W01.log")
	recent := filepath.Join(dir, "drugsafe-2020-W02.log")
	unrelated := filepath.Join(dir, "other.log")
	for _, p := range []string{old, recent, unrelated} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	stale := now.Add(-30 * 24 * time.Hour)
	os.Chtimes(old, stale, stale)
	os.Chtimes(unrelated, stale, stale)

	removed, err := rf.removeExpired()
	if err != nil {
		t.Fatalf("removeExpired() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removeExpired() removed %d files, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("expired file should be removed")
	}
	for _, p := range []string{recent, unrelated, rf.CurrentPath()} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should be kept: %v", p, err)
		}
	}
}

func TestRotatingFileCloseTwice(t *testing.T) {
	rf, err := OpenRotatingFile(t.TempDir(), 1, 0)
	if err != nil {
		t.Fatalf("OpenRotatingFile() error = %v", err)
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := rf.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := rf.Write([]byte("late")); err == nil {
		t.Errorf("Write() after Close should fail")
	}
}
