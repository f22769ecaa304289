package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/announcer/internal/a11y"
	"github.com/dgnsrekt/announcer/internal/cache"
	"github.com/dgnsrekt/announcer/internal/settings"
	"github.com/dgnsrekt/announcer/tts"
	"github.com/dgnsrekt/announcer/tts/engines"
	"github.com/dgnsrekt/announcer/tts/engines/espeak"
	"github.com/dgnsrekt/announcer/tts/engines/mock"
	"github.com/dgnsrekt/announcer/tts/engines/piper"
	"github.com/spf13/viper"
)

// idlePoll is how often a command checks whether speech has finished.
const idlePoll = 50 * time.Millisecond

// app wires configuration, policy sources and the speech dispatcher.
type app struct {
	cfg      tts.Config
	store    *settings.Store
	detector *a11y.Detector
	provider *tts.Provider
	logger   *log.Logger
}

func newApp(v *viper.Viper) (*app, error) {
	cfg, err := tts.LoadConfig(v)
	if err != nil {
		return nil, err
	}

	store := settings.NewStore(v)
	switch {
	case noAnnounce:
		store.Override(false)
	case os.Getenv("ANNOUNCER_ANNOUNCEMENTS") != "":
		store.Override(cfg.Announcements)
	}

	a := &app{
		cfg:      cfg,
		store:    store,
		detector: a11y.FromConfig(cfg),
		logger:   tts.NewLogger("announcer"),
	}
	a.provider = tts.NewProvider(a.buildDispatcher)
	return a, nil
}

func (a *app) buildDispatcher() *tts.Dispatcher {
	engine, err := newEngine(a.cfg)
	if err != nil {
		a.logger.Error("No speech engine", "err", err)
	}
	return tts.NewDispatcher(engine, a.detector, a.store, tts.DispatcherConfig{
		Locale: a.cfg.LocaleTag(),
		Logger: tts.NewLogger("tts"),
	})
}

// newEngine creates the engine selected in cfg, wrapped with the
// fallback engine if one is configured.
func newEngine(cfg tts.Config) (tts.Engine, error) {
	primary, err := engineByName(cfg.Engine, cfg)
	if err != nil || cfg.Fallback == "" {
		return primary, err
	}

	fallback, err := engineByName(cfg.Fallback, cfg)
	if err != nil {
		_ = primary.Shutdown()
		return nil, err
	}
	return engines.NewFallback(primary, fallback, tts.NewLogger("fallback")), nil
}

func engineByName(name string, cfg tts.Config) (tts.Engine, error) {
	switch name {
	case "espeak":
		return espeak.New(cfg.Espeak, cfg.Routes), nil
	case "piper":
		e := piper.New(cfg.Piper, cfg.Routes)
		if c := openCache(cfg.Cache); c != nil {
			e.SetCache(c)
		}
		return e, nil
	case "mock":
		return mock.NewSimulated(cfg.Mock), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", tts.ErrInvalidConfig, name)
	}
}

// openCache returns the synthesized audio cache, or nil if it is disabled
// or cannot be opened.
func openCache(cfg tts.CacheConfig) *cache.Manager {
	if !cfg.Enabled {
		return nil
	}
	logger := tts.NewLogger("cache")

	dir, err := getAudioCacheDir()
	if err != nil {
		logger.Warn("No cache directory, keeping audio in memory only", "err", err)
		dir = ""
	}
	cc, err := cache.FromConfig(cfg, dir)
	if err != nil {
		logger.Warn("Audio cache disabled", "err", err)
		return nil
	}
	m, err := cache.New(cc)
	if err != nil {
		logger.Warn("Audio cache disabled", "err", err)
		return nil
	}
	return m
}

// dispatcher returns the initialized dispatcher. Initialization is bounded
// by the configured init timeout; on failure the dispatcher is still
// returned and silently drops speech.
func (a *app) dispatcher(ctx context.Context) (*tts.Dispatcher, error) {
	d := a.provider.Get()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.InitTimeout)
	defer cancel()

	start := time.Now()
	d.Initialize(ctx)
	if err := d.WaitReady(ctx); err != nil {
		return d, err
	}
	a.logger.Debug("Dispatcher ready", "took", time.Since(start))
	return d, nil
}

// waitIdle blocks until nothing is playing or pending, or ctx is done.
func waitIdle(ctx context.Context, d *tts.Dispatcher) error {
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()

	for d.IsSpeaking() || d.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (a *app) Close() error {
	return a.provider.Close()
}
