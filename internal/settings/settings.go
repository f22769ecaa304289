// Package settings exposes the user's announcement preference and keeps it
// current while the config file changes.
package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/announcer/tts"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AnnouncementsKey is the viper key holding the preference.
const AnnouncementsKey = "tts.announcements"

// Store implements tts.SettingsProvider on top of viper.
type Store struct {
	v      *viper.Viper
	logger *log.Logger

	enabled    atomic.Bool
	overridden atomic.Bool
	override   atomic.Bool
}

var _ tts.SettingsProvider = (*Store)(nil)

// NewStore reads the current preference from v.
func NewStore(v *viper.Viper) *Store {
	s := &Store{v: v, logger: tts.NewLogger("settings")}
	s.load()
	return s
}

func (s *Store) load() {
	enabled := true
	if s.v.IsSet(AnnouncementsKey) {
		enabled = s.v.GetBool(AnnouncementsKey)
	}
	if old := s.enabled.Swap(enabled); old != enabled {
		s.logger.Info("Announcements preference changed", "enabled", enabled)
	}
}

// AnnouncementsEnabled reports whether announcements may be spoken.
func (s *Store) AnnouncementsEnabled() bool {
	if s.overridden.Load() {
		return s.override.Load()
	}
	return s.enabled.Load()
}

// Override pins the preference to enabled regardless of the config file.
func (s *Store) Override(enabled bool) {
	s.override.Store(enabled)
	s.overridden.Store(true)
}

// Reload re-reads the config file.
func (s *Store) Reload() error {
	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	s.load()
	return nil
}

// Watch reloads the preference whenever the config file is written. It
// blocks until ctx is done. Without a config file it returns immediately.
func (s *Store) Watch(ctx context.Context) error {
	file := s.v.ConfigFileUsed()
	if file == "" {
		return nil
	}
	file = filepath.Clean(file)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	// Editors often replace the file, so watch its directory.
	dir := filepath.Dir(file)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}
	s.logger.Debug("Watching config", "file", file)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != file {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.logger.Debug("Config changed", "event", event.Op)
			if err := s.Reload(); err != nil {
				s.logger.Warn("Keeping previous settings", "err", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Debug("Watcher error", "dir", dir, "err", err)
		}
	}
}
