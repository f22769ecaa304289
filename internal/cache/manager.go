package cache

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/announcer/tts"
	"github.com/dgnsrekt/announcer/utils"
	"github.com/spf13/afero"
)

// Config configures a Manager.
type Config struct {
	Fs               afero.Fs // defaults to the OS filesystem
	Dir              string   // empty disables the disk tier
	MemoryCapacity   int64
	DiskCapacity     int64
	CompressionLevel int
	MaxAge           time.Duration // disk entries idle longer than this are pruned on open
}

// FromConfig converts the user-facing cache settings. dir is used when
// the settings do not name a directory.
func FromConfig(cfg tts.CacheConfig, dir string) (Config, error) {
	memory, err := cfg.MemoryBytes()
	if err != nil {
		return Config{}, err
	}
	disk, err := cfg.DiskBytes()
	if err != nil {
		return Config{}, err
	}
	if cfg.Dir != "" {
		dir = utils.ExpandPath(cfg.Dir)
	}
	return Config{
		Dir:              dir,
		MemoryCapacity:   memory,
		DiskCapacity:     disk,
		CompressionLevel: cfg.CompressionLevel,
		MaxAge:           cfg.MaxAge,
	}, nil
}

// Manager looks entries up in memory first, then on disk, promoting disk
// hits into memory.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache
	logger *log.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Manager and prunes stale disk entries.
func New(cfg Config) (*Manager, error) {
	m := &Manager{
		memory: NewMemoryCache(cfg.MemoryCapacity),
		logger: tts.NewLogger("cache"),
	}

	if cfg.Dir != "" && cfg.DiskCapacity > 0 {
		disk, err := NewDiskCache(cfg.Fs, cfg.Dir, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("opening disk cache: %w", err)
		}
		m.disk = disk

		if cfg.MaxAge > 0 {
			if n := disk.Prune(cfg.MaxAge); n > 0 {
				m.logger.Debug("Pruned stale entries", "count", n, "max_age", cfg.MaxAge)
			}
		}
	}

	return m, nil
}

// Get returns the cached value for key.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		m.hits.Add(1)
		return data, true
	}

	if m.disk != nil {
		if data, ok := m.disk.Get(key); ok {
			m.hits.Add(1)
			_ = m.memory.Put(key, data)
			return data, true
		}
	}

	m.misses.Add(1)
	return nil, false
}

// Put stores value in every tier that can hold it.
func (m *Manager) Put(key string, value []byte) error {
	if err := m.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return err
	}
	if m.disk == nil {
		return nil
	}
	return m.disk.Put(key, value)
}

// Delete removes key from every tier.
func (m *Manager) Delete(key string) error {
	_ = m.memory.Delete(key)
	if m.disk != nil {
		return m.disk.Delete(key)
	}
	return nil
}

// Clear empties every tier.
func (m *Manager) Clear() error {
	_ = m.memory.Clear()
	if m.disk != nil {
		return m.disk.Clear()
	}
	return nil
}

// Stats reports lookups against the whole hierarchy and the size of the
// largest tier.
func (m *Manager) Stats() Stats {
	s := m.memory.Stats()
	if m.disk != nil {
		s = m.disk.Stats()
	}
	s.Hits = m.hits.Load()
	s.Misses = m.misses.Load()
	return s
}

// Tier returns the counters of one tier.
func (m *Manager) Tier(level Level) (Stats, bool) {
	switch {
	case level == LevelMemory:
		return m.memory.Stats(), true
	case level == LevelDisk && m.disk != nil:
		return m.disk.Stats(), true
	default:
		return Stats{}, false
	}
}

// Close releases the disk tier.
func (m *Manager) Close() error {
	if m.disk != nil {
		return m.disk.Close()
	}
	return nil
}
