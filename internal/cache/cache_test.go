package cache

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/announcer/tts"
	"github.com/spf13/afero"
)

func TestMemoryCacheLRU(t *testing.T) {
	c := NewMemoryCache(10)

	_ = c.Put("a", []byte("aaaa"))
	_ = c.Put("b", []byte("bbbb"))
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}

	// b is now the least recently used entry.
	_ = c.Put("c", []byte("cccc"))

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("%s should be cached", key)
		}
	}

	s := c.Stats()
	if s.Size != 8 || s.Items != 2 || s.Evictions != 1 {
		t.Errorf("Stats() = %+v", s)
	}
	if s.Hits != 3 || s.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 3/1", s.Hits, s.Misses)
	}
}

func TestMemoryCacheReplace(t *testing.T) {
	c := NewMemoryCache(10)
	_ = c.Put("a", []byte("aaaa"))
	_ = c.Put("a", []byte("aa"))

	got, _ := c.Get("a")
	if string(got) != "aa" {
		t.Errorf("Get(a) = %q", got)
	}
	if c.Stats().Size != 2 {
		t.Errorf("Size = %d, want 2", c.Stats().Size)
	}
}

func TestMemoryCacheTooLarge(t *testing.T) {
	c := NewMemoryCache(4)
	if err := c.Put("a", []byte("too long")); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put() = %v, want ErrItemTooLarge", err)
	}
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	c := NewMemoryCache(100)
	_ = c.Put("a", []byte("a"))
	_ = c.Put("b", []byte("b"))

	_ = c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}

	_ = c.Clear()
	if s := c.Stats(); s.Items != 0 || s.Size != 0 {
		t.Errorf("Stats() after Clear = %+v", s)
	}
}

func TestStatsHitRate(t *testing.T) {
	if got := (Stats{}).HitRate(); got != 0 {
		t.Errorf("HitRate() = %v, want 0", got)
	}
	if got := (Stats{Hits: 3, Misses: 1}).HitRate(); got != 0.75 {
		t.Errorf("HitRate() = %v, want 0.75", got)
	}
}

func newDisk(t *testing.T, fs afero.Fs, capacity int64, level int) *DiskCache {
	t.Helper()
	dc, err := NewDiskCache(fs, "/cache", capacity, level)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = dc.Close() })
	return dc
}

func TestDiskCacheRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		level int
		value []byte
		ext   string
	}{
		{"small raw", 3, []byte("short"), rawExt},
		{"large compressed", 3, bytes.Repeat([]byte{0, 1}, 4096), compressedExt},
		{"compression off", 0, bytes.Repeat([]byte{0, 1}, 4096), rawExt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			dc := newDisk(t, fs, 1<<20, tt.level)

			if err := dc.Put("key", tt.value); err != nil {
				t.Fatal(err)
			}
			got, ok := dc.Get("key")
			if !ok || !bytes.Equal(got, tt.value) {
				t.Fatalf("Get() = %d bytes, %v", len(got), ok)
			}

			path := filepath.Join("/cache", hashKey("key")+tt.ext)
			if exists, _ := afero.Exists(fs, path); !exists {
				t.Errorf("expected cache file %s", path)
			}
		})
	}
}

func TestDiskCacheSurvivesReopen(t *testing.T) {
	fs := afero.NewMemMapFs()
	value := bytes.Repeat([]byte("turn left "), 200)

	dc := newDisk(t, fs, 1<<20, 3)
	if err := dc.Put("key", value); err != nil {
		t.Fatal(err)
	}
	_ = afero.WriteFile(fs, "/cache/partial.pcm.tmp", []byte("x"), 0o644)

	reopened := newDisk(t, fs, 1<<20, 0)
	got, ok := reopened.Get("key")
	if !ok || !bytes.Equal(got, value) {
		t.Fatal("entry should be readable after reopening without compression")
	}
	if exists, _ := afero.Exists(fs, "/cache/partial.pcm.tmp"); exists {
		t.Error("leftover temporary files should be removed")
	}
	if s := reopened.Stats(); s.Items != 1 {
		t.Errorf("Items = %d, want 1", s.Items)
	}
}

func TestDiskCacheEvictsLeastRecentlyUsed(t *testing.T) {
	fs := afero.NewMemMapFs()
	dc := newDisk(t, fs, 10, 0)

	_ = dc.Put("a", []byte("aaaa"))
	time.Sleep(2 * time.Millisecond)
	_ = dc.Put("b", []byte("bbbb"))
	time.Sleep(2 * time.Millisecond)
	_, _ = dc.Get("a")
	time.Sleep(2 * time.Millisecond)
	_ = dc.Put("c", []byte("cccc"))

	if _, ok := dc.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := dc.Get("a"); !ok {
		t.Error("a was used recently and should be kept")
	}
	if s := dc.Stats(); s.Evictions != 1 || s.Size != 8 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestDiskCacheCorruptEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	dc := newDisk(t, fs, 1<<20, 3)
	_ = dc.Put("key", bytes.Repeat([]byte{7}, 4096))

	path := filepath.Join("/cache", hashKey("key")+compressedExt)
	_ = afero.WriteFile(fs, path, []byte("not zstd"), 0o644)

	if _, ok := dc.Get("key"); ok {
		t.Error("corrupt entry should miss")
	}
	if exists, _ := afero.Exists(fs, path); exists {
		t.Error("corrupt entry should be removed")
	}
}

func TestDiskCachePrune(t *testing.T) {
	fs := afero.NewMemMapFs()
	dc := newDisk(t, fs, 1<<20, 0)
	_ = dc.Put("old", []byte("old"))
	_ = dc.Put("new", []byte("new"))

	stale := time.Now().Add(-48 * time.Hour)
	_ = fs.Chtimes(filepath.Join("/cache", hashKey("old")+rawExt), stale, stale)

	reopened := newDisk(t, fs, 1<<20, 0)
	if n := reopened.Prune(24 * time.Hour); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if _, ok := reopened.Get("new"); !ok {
		t.Error("fresh entry should survive pruning")
	}
}

func TestManagerPromotesDiskHits(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := Config{Fs: fs, Dir: "/cache", MemoryCapacity: 1 << 10, DiskCapacity: 1 << 20}

	m, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	_ = m.Put("key", []byte("pcm"))
	_ = m.Close()

	m, err = New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close() //nolint:errcheck

	if got, ok := m.Get("key"); !ok || string(got) != "pcm" {
		t.Fatalf("Get() = %q, %v", got, ok)
	}
	if mem, _ := m.Tier(LevelMemory); mem.Items != 1 {
		t.Error("disk hit should be promoted to memory")
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("missing key should miss")
	}
	if s := m.Stats(); s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats() hits/misses = %d/%d, want 1/1", s.Hits, s.Misses)
	}
}

func TestManagerMemoryOnly(t *testing.T) {
	m, err := New(Config{MemoryCapacity: 4})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Tier(LevelDisk); ok {
		t.Error("no directory should mean no disk tier")
	}
	if err := m.Put("key", []byte("larger than memory")); err != nil {
		t.Errorf("oversized entries should be skipped silently, got %v", err)
	}
	_ = m.Put("k", []byte("pcm"))
	_ = m.Clear()
	if _, ok := m.Get("k"); ok {
		t.Error("Clear should empty the cache")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := tts.DefaultCacheConfig()

	got, err := FromConfig(cfg, "/var/cache/announcer")
	if err != nil {
		t.Fatal(err)
	}
	if got.Dir != "/var/cache/announcer" || got.MemoryCapacity != 16_000_000 || got.DiskCapacity != 256_000_000 {
		t.Errorf("FromConfig() = %+v", got)
	}

	cfg.Dir = "/tmp/speech"
	if got, _ := FromConfig(cfg, "/var/cache/announcer"); got.Dir != "/tmp/speech" {
		t.Errorf("configured dir should win, got %q", got.Dir)
	}

	cfg.MemorySize = "huge"
	if _, err := FromConfig(cfg, ""); err == nil {
		t.Error("invalid size should fail")
	}
}

func TestLevelString(t *testing.T) {
	if LevelMemory.String() != "memory" || LevelDisk.String() != "disk" || Level(9).String() != "unknown" {
		t.Error("unexpected level names")
	}
}

// stuckFs refuses to delete files.
type stuckFs struct {
	afero.Fs
}

var errReadOnly = errors.New("read-only file system")

func (stuckFs) Remove(string) error { return errReadOnly }

func TestDiskCacheEvictsWhenRemoveFails(t *testing.T) {
	dc := newDisk(t, stuckFs{afero.NewMemMapFs()}, 100, 0)

	if err := dc.Put("a", bytes.Repeat([]byte{1}, 80)); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- dc.Put("b", bytes.Repeat([]byte{2}, 80)) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Put(b) = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Put did not return when old files could not be deleted")
	}

	if _, ok := dc.Get("a"); ok {
		t.Error("a should have been evicted")
	}
	if got, ok := dc.Get("b"); !ok || len(got) != 80 {
		t.Error("b should be cached")
	}
	if s := dc.Stats(); s.Size != 80 || s.Items != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestDiskCacheClearReportsRemoveFailure(t *testing.T) {
	dc := newDisk(t, stuckFs{afero.NewMemMapFs()}, 1<<20, 0)
	_ = dc.Put("a", []byte("a"))
	_ = dc.Put("b", []byte("b"))

	if err := dc.Clear(); !errors.Is(err, errReadOnly) {
		t.Errorf("Clear() = %v, want %v", err, errReadOnly)
	}
	if err := dc.Delete("missing"); err != nil {
		t.Errorf("Delete(missing) = %v", err)
	}
}
