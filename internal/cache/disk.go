package cache

import (
	"crypto/sha256"
	"errors"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

const (
	rawExt        = ".pcm"
	compressedExt = ".pcm.zst"
	tempExt       = ".tmp"

	// Entries smaller than this are stored uncompressed.
	minCompressSize = 1024
)

// DiskCache keeps entries as files in one directory, optionally
// zstd-compressed. The access time of an entry is its file's mtime, so
// the LRU order survives restarts without a separate index.
type DiskCache struct {
	fs       afero.Fs
	dir      string
	capacity int64

	encoder *zstd.Encoder // nil when compression is off
	decoder *zstd.Decoder

	mu    sync.Mutex
	size  int64
	index map[string]*diskEntry
	stats Stats
}

type diskEntry struct {
	file       string
	size       int64
	access     time.Time
	compressed bool
}

// NewDiskCache opens the cache in dir, creating it if needed. A
// compressionLevel of zero stores entries uncompressed.
func NewDiskCache(fs afero.Fs, dir string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		fs:       fs,
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
	}

	var err error
	if compressionLevel > 0 {
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// Entries written with compression stay readable after it is turned off.
	dc.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	if err := dc.scan(); err != nil {
		return nil, err
	}
	return dc, nil
}

// Dir returns the cache directory.
func (dc *DiskCache) Dir() string {
	return dc.dir
}

// Get reads an entry and refreshes its access time.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	name := hashKey(key)
	entry, ok := dc.index[name]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	path := filepath.Join(dc.dir, entry.file)
	data, err := afero.ReadFile(dc.fs, path)
	if err == nil && entry.compressed {
		data, err = dc.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		_ = dc.remove(name)
		dc.stats.Misses++
		return nil, false
	}

	now := time.Now()
	entry.access = now
	_ = dc.fs.Chtimes(path, now, now)

	dc.stats.Hits++
	return data, true
}

// Put writes an entry, evicting the least recently used entries to make
// room.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	data, compressed := value, false
	if dc.encoder != nil && len(value) > minCompressSize {
		if enc := dc.encoder.EncodeAll(value, nil); len(enc) < len(value) {
			data, compressed = enc, true
		}
	}

	n := int64(len(data))
	if n > dc.capacity {
		return ErrItemTooLarge
	}

	name := hashKey(key)
	_ = dc.remove(name)
	for dc.size+n > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	file := name + rawExt
	if compressed {
		file = name + compressedExt
	}
	if err := dc.writeFile(filepath.Join(dc.dir, file), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	dc.index[name] = &diskEntry{file: file, size: n, access: time.Now(), compressed: compressed}
	dc.size += n
	return nil
}

// Delete removes an entry.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	return dc.remove(hashKey(key))
}

// Clear removes every entry. Files that could not be deleted are
// reported in the returned error.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	var errs []error
	for name := range dc.index {
		if err := dc.remove(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Prune removes entries not accessed within maxAge and returns how many
// were removed.
func (dc *DiskCache) Prune(maxAge time.Duration) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for name, entry := range dc.index {
		if entry.access.Before(cutoff) {
			_ = dc.remove(name)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the cache counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	s := dc.stats
	s.Capacity = dc.capacity
	s.Size = dc.size
	s.Items = len(dc.index)
	return s
}

// Close releases the zstd encoder and decoder.
func (dc *DiskCache) Close() error {
	dc.decoder.Close()
	if dc.encoder != nil {
		return dc.encoder.Close()
	}
	return nil
}

// scan rebuilds the index from the files in the cache directory.
func (dc *DiskCache) scan() error {
	infos, err := afero.ReadDir(dc.fs, dc.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		file := info.Name()

		var name string
		var compressed bool
		switch {
		case strings.HasSuffix(file, tempExt):
			_ = dc.fs.Remove(filepath.Join(dc.dir, file))
			continue
		case strings.HasSuffix(file, compressedExt):
			name, compressed = strings.TrimSuffix(file, compressedExt), true
		case strings.HasSuffix(file, rawExt):
			name = strings.TrimSuffix(file, rawExt)
		default:
			continue
		}

		dc.index[name] = &diskEntry{
			file:       file,
			size:       info.Size(),
			access:     info.ModTime(),
			compressed: compressed,
		}
		dc.size += info.Size()
	}
	return nil
}

// writeFile writes to a temporary file and renames it into place.
func (dc *DiskCache) writeFile(path string, data []byte) error {
	tmp := path + tempExt
	if err := afero.WriteFile(dc.fs, tmp, data, 0o644); err != nil { //nolint:mnd
		_ = dc.fs.Remove(tmp)
		return err
	}
	return dc.fs.Rename(tmp, path)
}

// evictOldest must be called with dc.mu held.
func (dc *DiskCache) evictOldest() {
	var oldest string
	var oldestTime time.Time
	for name, entry := range dc.index {
		if oldest == "" || entry.access.Before(oldestTime) {
			oldest, oldestTime = name, entry.access
		}
	}
	if oldest != "" {
		_ = dc.remove(oldest)
		dc.stats.Evictions++
		dc.stats.LastEvict = time.Now()
	}
}

// remove must be called with dc.mu held. The entry leaves the index even
// when its file cannot be deleted.
func (dc *DiskCache) remove(name string) error {
	entry, ok := dc.index[name]
	if !ok {
		return nil
	}
	dc.size -= entry.size
	delete(dc.index, name)

	if err := dc.fs.Remove(filepath.Join(dc.dir, entry.file)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}

func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:16])
}
