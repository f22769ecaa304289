package engines

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/announcer/tts"
	"golang.org/x/text/language"
)

// Fallback wraps a primary engine and switches to a secondary engine when
// the primary fails to initialize. After Init every call goes to whichever
// engine initialized.
type Fallback struct {
	primary  tts.Engine
	fallback tts.Engine
	logger   *log.Logger

	mu            sync.RWMutex
	usingFallback bool
}

var _ tts.Engine = (*Fallback)(nil)

// NewFallback creates an engine that prefers primary over fallback.
func NewFallback(primary, fallback tts.Engine, logger *log.Logger) *Fallback {
	if logger == nil {
		logger = tts.NewLogger("fallback")
	}
	return &Fallback{primary: primary, fallback: fallback, logger: logger}
}

// Init initializes the primary engine, then the fallback if that failed.
func (f *Fallback) Init(ctx context.Context) <-chan error {
	result := make(chan error, 1)
	go func() {
		primaryErr := wait(ctx, f.primary.Init(ctx))
		if primaryErr == nil {
			result <- nil
			return
		}

		f.logger.Warn("Primary engine initialization failed", "err", primaryErr)
		if err := f.primary.Shutdown(); err != nil {
			f.logger.Debug("Primary engine shutdown failed", "err", err)
		}

		fallbackErr := wait(ctx, f.fallback.Init(ctx))
		if fallbackErr != nil {
			result <- fmt.Errorf("both engines failed: primary=%w, fallback=%w", primaryErr, fallbackErr)
			return
		}

		f.mu.Lock()
		f.usingFallback = true
		f.mu.Unlock()
		f.logger.Warn("Using fallback engine due to primary initialization failure")
		result <- nil
	}()
	return result
}

func wait(ctx context.Context, result <-chan error) error {
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UsingFallback reports whether the fallback engine is active.
func (f *Fallback) UsingFallback() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.usingFallback
}

func (f *Fallback) active() tts.Engine {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.usingFallback {
		return f.fallback
	}
	return f.primary
}

// SetLocale sets the locale on the active engine.
func (f *Fallback) SetLocale(locale language.Tag) error {
	return f.active().SetLocale(locale)
}

// IsSpeaking reports whether the active engine is speaking.
func (f *Fallback) IsSpeaking() bool {
	return f.active().IsSpeaking()
}

// Stop stops the active engine.
func (f *Fallback) Stop() error {
	return f.active().Stop()
}

// MaxUtteranceLength returns the active engine's limit.
func (f *Fallback) MaxUtteranceLength() int {
	return f.active().MaxUtteranceLength()
}

// SetAudioRoute sets the route on the active engine.
func (f *Fallback) SetAudioRoute(route tts.AudioRoute) error {
	return f.active().SetAudioRoute(route)
}

// Enqueue hands a chunk to the active engine.
func (f *Fallback) Enqueue(chunk, utteranceID string) error {
	return f.active().Enqueue(chunk, utteranceID)
}

// SetListener registers the listener with the active engine.
func (f *Fallback) SetListener(listener tts.UtteranceListener) {
	f.active().SetListener(listener)
}

// Shutdown shuts down both engines.
func (f *Fallback) Shutdown() error {
	var errs []error
	if err := f.primary.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("primary shutdown: %w", err))
	}
	if err := f.fallback.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("fallback shutdown: %w", err))
	}
	return errors.Join(errs...)
}
