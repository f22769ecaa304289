// Package tts decides whether, how and in which pieces text is handed to a
// speech engine on behalf of an accessibility-oriented application.
package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

// DispatcherConfig holds optional settings for a Dispatcher.
type DispatcherConfig struct {
	// Locale is applied after initialization, and every utterance error
	// resets the engine to it. When set, this configured locale is the
	// reset target rather than the process default; language.Und selects
	// SystemLocale.
	Locale language.Tag

	// Logger receives diagnostics. Nil uses the default logger.
	Logger *log.Logger
}

// Dispatcher mediates access to a single speech engine. At most one
// utterance is audible at a time: a new request stops the current one
// instead of queueing behind it.
type Dispatcher struct {
	query    AccessibilityQuery
	settings SettingsProvider
	locale   language.Tag
	logger   *log.Logger

	// mu guards engine and serializes the stop/route/enqueue sequence.
	mu     sync.Mutex
	engine Engine

	state    atomic.Int32 // EngineState
	initOnce sync.Once
	ready    chan struct{} // closed once init resolved

	tracker *tracker
}

// NewDispatcher creates a dispatcher around engine. The engine is not
// usable until Initialize has completed.
func NewDispatcher(engine Engine, query AccessibilityQuery, settings SettingsProvider, cfg DispatcherConfig) *Dispatcher {
	if cfg.Locale == language.Und {
		cfg.Locale = SystemLocale()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("tts")
	}

	return &Dispatcher{
		engine:   engine,
		query:    query,
		settings: settings,
		locale:   cfg.Locale,
		logger:   cfg.Logger,
		ready:    make(chan struct{}),
		tracker:  newTracker(),
	}
}

// Initialize acquires the engine in the background and returns
// immediately. Only the first call has an effect.
func (d *Dispatcher) Initialize(ctx context.Context) {
	d.initOnce.Do(func() {
		d.mu.Lock()
		engine := d.engine
		d.mu.Unlock()

		if engine == nil {
			d.resolve(EngineFailed)
			return
		}

		result := engine.Init(ctx)
		go func() {
			var err error
			select {
			case err = <-result:
			case <-ctx.Done():
				err = ctx.Err()
			}
			d.completeInit(engine, err)
		}()
	})
}

func (d *Dispatcher) completeInit(engine Engine, err error) {
	if err != nil {
		d.logger.Error("Speech engine initialization failed", "err", err)
		d.drop()
		d.resolve(EngineFailed)
		return
	}

	// Registration holds d.mu so Close cannot shut the engine down
	// half way through.
	d.mu.Lock()
	if d.engine != engine || d.State() != EngineUninitialized {
		// Closed while initializing.
		d.mu.Unlock()
		return
	}
	if err := engine.SetLocale(d.locale); err != nil {
		d.logger.Warn("Could not set locale", "locale", d.locale, "err", err)
	}
	engine.SetListener(&progressListener{d: d, engine: engine})
	d.mu.Unlock()

	d.logger.Debug("Speech engine ready", "locale", d.locale)
	d.resolve(EngineReady)
}

// resolve records the init outcome exactly once.
func (d *Dispatcher) resolve(state EngineState) {
	if d.state.CompareAndSwap(int32(EngineUninitialized), int32(state)) {
		close(d.ready)
	}
}

// drop releases the engine handle.
func (d *Dispatcher) drop() {
	d.mu.Lock()
	engine := d.engine
	d.engine = nil
	d.mu.Unlock()

	if engine != nil {
		if err := engine.Shutdown(); err != nil {
			d.logger.Debug("Engine shutdown failed", "err", err)
		}
	}
}

// WaitReady blocks until initialization has resolved or ctx is done.
func (d *Dispatcher) WaitReady(ctx context.Context) error {
	select {
	case <-d.ready:
	case <-ctx.Done():
		return fmt.Errorf("waiting for speech engine: %w", ctx.Err())
	}
	if !d.IsReady() {
		return ErrEngineUnavailable
	}
	return nil
}

// State returns the engine state.
func (d *Dispatcher) State() EngineState {
	return EngineState(d.state.Load())
}

// IsReady returns true once the engine has initialized successfully.
func (d *Dispatcher) IsReady() bool {
	return d.State() == EngineReady
}

// IsSpeaking returns true if the engine is playing or has queued speech.
func (d *Dispatcher) IsSpeaking() bool {
	if !d.IsReady() {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine != nil && d.engine.IsSpeaking()
}

// IsAccessibilityActive reports whether a spoken-feedback service is on.
func (d *Dispatcher) IsAccessibilityActive() bool {
	return d.query != nil && d.query.HasActiveSpokenFeedbackService()
}

// ScreenReaderNotify speaks text only while a screen reader is active.
func (d *Dispatcher) ScreenReaderNotify(text string) {
	if d.IsAccessibilityActive() {
		d.speak(SpeechRequest{Text: text, Reason: ReasonScreenReaderEcho})
	}
}

// Announce speaks text only if announcements are enabled.
func (d *Dispatcher) Announce(text string) {
	if d.settings != nil && d.settings.AnnouncementsEnabled() {
		d.speak(SpeechRequest{Text: text, Reason: ReasonAnnouncement})
	}
}

// UtteranceState returns the state of an in-flight or recently finished
// utterance.
func (d *Dispatcher) UtteranceState(id string) (UtteranceState, bool) {
	return d.tracker.state(id)
}

// Pending returns the number of utterances still in flight.
func (d *Dispatcher) Pending() int {
	return d.tracker.pending()
}

// Close stops playback and shuts the engine down. The dispatcher is
// unusable afterwards.
func (d *Dispatcher) Close() error {
	d.resolve(EngineFailed)
	d.state.Store(int32(EngineFailed))

	d.mu.Lock()
	engine := d.engine
	d.engine = nil
	d.mu.Unlock()

	if engine == nil {
		return nil
	}
	return errors.Join(engine.Stop(), engine.Shutdown())
}

func (d *Dispatcher) speak(req SpeechRequest) {
	if !d.IsReady() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	engine := d.engine
	if engine == nil {
		return
	}

	chunks := SplitFixed(req.Text, engine.MaxUtteranceLength())
	if len(chunks) == 0 {
		return
	}

	if engine.IsSpeaking() {
		if err := engine.Stop(); err != nil {
			d.logger.Warn("Could not stop current utterance", "err", err)
		}
		for _, id := range d.tracker.supersede() {
			d.logger.Debug("Utterance superseded", "id", id)
		}
	}

	route := RouteFor(d.IsAccessibilityActive())
	if err := engine.SetAudioRoute(route); err != nil {
		d.logger.Warn("Could not set audio route", "route", route, "err", err)
	}

	id := newUtteranceID()
	d.tracker.submit(id, req.Reason, len(chunks))
	d.logger.Debug("Speaking",
		"id", id,
		"reason", req.Reason,
		"route", route,
		"chunks", len(chunks))

	for i, chunk := range chunks {
		if err := engine.Enqueue(chunk, id); err != nil {
			terr := NewTTSError(err, "dispatcher", "enqueue").
				WithContext("id", id).
				WithContext("chunk", i)
			d.logger.Error("Could not enqueue chunk", terr.Keyvals()...)
			d.tracker.fail(id)
			return
		}
	}
}

// progressListener is the listener role registered with the engine.
type progressListener struct {
	d      *Dispatcher
	engine Engine
}

func (l *progressListener) OnStart(id string) {
	if !l.d.tracker.start(id) {
		l.d.logger.Debug("Start for inactive utterance", "id", id)
	}
}

func (l *progressListener) OnDone(id string) {
	if state, ok := l.d.tracker.done(id); ok && state == StateDone {
		l.d.logger.Debug("Utterance done", "id", id)
	}
}

// OnError resets the locale on every error, whatever its cause.
func (l *progressListener) OnError(id string, err error) {
	l.d.logger.Warn("Utterance failed", "id", id, "err", fmt.Errorf("%w: %w", ErrUtteranceFailed, err))
	l.d.tracker.fail(id)

	if !l.d.IsReady() {
		return
	}
	if err := l.engine.SetLocale(l.d.locale); err != nil {
		l.d.logger.Warn("Could not reset locale", "locale", l.d.locale, "err", err)
	}
}
