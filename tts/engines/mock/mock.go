// Package mock provides a mock speech engine for testing.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/announcer/tts"
	"github.com/dgnsrekt/announcer/tts/engines"
	"golang.org/x/text/language"
)

// Call records one engine method invocation.
type Call struct {
	Method string
	Args   []any
}

// Chunk is an enqueued piece of text.
type Chunk struct {
	Text        string
	UtteranceID string
}

// MockEngine implements tts.Engine. By default it records calls and never
// plays anything; tests drive initialization and callbacks explicitly.
type MockEngine struct {
	mu sync.Mutex

	// Configuration
	maxLen   int
	autoInit bool
	initErr  error

	// State
	calls    []Call
	chunks   []Chunk
	locales  []language.Tag
	routes   []tts.AudioRoute
	speaking bool
	listener tts.UtteranceListener
	initCh   chan error
	shutdown bool

	// Simulated playback, nil unless created with NewSimulated
	queue *engines.Queue
}

// New creates a mock engine with the given maximum utterance length.
// Init stays pending until CompleteInit is called.
func New(maxLen int) *MockEngine {
	return &MockEngine{maxLen: maxLen}
}

// NewReady creates a mock engine whose Init succeeds immediately.
func NewReady(maxLen int) *MockEngine {
	e := New(maxLen)
	e.autoInit = true
	return e
}

// NewSimulated creates a mock engine that "plays" chunks by sleeping for
// the time a speaker at wordsPerMinute would need.
func NewSimulated(cfg tts.MockConfig) *MockEngine {
	e := NewReady(cfg.MaxUtteranceLength)
	wpm := cfg.WordsPerMinute
	e.queue = engines.NewQueue(func(ctx context.Context, chunk string) error {
		select {
		case <-time.After(estimateDuration(chunk, wpm)):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, tts.NewLogger("mock"))
	return e
}

func (e *MockEngine) record(method string, args ...any) {
	e.calls = append(e.calls, Call{Method: method, Args: args})
}

// Init returns a channel resolved by CompleteInit, or immediately for
// engines created with NewReady.
func (e *MockEngine) Init(ctx context.Context) <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("Init")
	e.initCh = make(chan error, 1)
	if e.autoInit {
		e.initCh <- e.initErr
	}
	return e.initCh
}

// CompleteInit resolves a pending Init with err.
func (e *MockEngine) CompleteInit(err error) {
	e.mu.Lock()
	ch := e.initCh
	e.mu.Unlock()

	if ch != nil {
		ch <- err
	}
}

// SetLocale records the locale.
func (e *MockEngine) SetLocale(locale language.Tag) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("SetLocale", locale)
	e.locales = append(e.locales, locale)
	return nil
}

// IsSpeaking returns the simulated or manually set playback state.
func (e *MockEngine) IsSpeaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("IsSpeaking")
	if e.queue != nil {
		return e.queue.IsSpeaking()
	}
	return e.speaking
}

// Stop records the call and clears the playback state.
func (e *MockEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("Stop")
	e.speaking = false
	if e.queue != nil {
		return e.queue.Stop()
	}
	return nil
}

// MaxUtteranceLength returns the configured limit.
func (e *MockEngine) MaxUtteranceLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("MaxUtteranceLength")
	return e.maxLen
}

// SetAudioRoute records the route.
func (e *MockEngine) SetAudioRoute(route tts.AudioRoute) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("SetAudioRoute", route)
	e.routes = append(e.routes, route)
	return nil
}

// Enqueue records the chunk and marks the engine as speaking.
func (e *MockEngine) Enqueue(chunk, utteranceID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown {
		return tts.ErrEngineShutdown
	}

	e.record("Enqueue", chunk, utteranceID)
	e.chunks = append(e.chunks, Chunk{Text: chunk, UtteranceID: utteranceID})
	e.speaking = true
	if e.queue != nil {
		return e.queue.Enqueue(chunk, utteranceID)
	}
	return nil
}

// SetListener records the listener.
func (e *MockEngine) SetListener(listener tts.UtteranceListener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record("SetListener")
	e.listener = listener
	if e.queue != nil {
		e.queue.SetListener(listener)
	}
}

// Shutdown marks the engine unusable.
func (e *MockEngine) Shutdown() error {
	e.mu.Lock()
	e.record("Shutdown")
	e.shutdown = true
	q := e.queue
	e.mu.Unlock()

	if q != nil {
		return q.Close()
	}
	return nil
}

// Test control methods

// SetInitError makes an automatic Init fail with err.
func (e *MockEngine) SetInitError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initErr = err
}

// SetSpeaking overrides the playback state.
func (e *MockEngine) SetSpeaking(speaking bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speaking = speaking
}

// Start fires OnStart on the registered listener.
func (e *MockEngine) Start(id string) {
	if l := e.getListener(); l != nil {
		l.OnStart(id)
	}
}

// Finish fires OnDone on the registered listener.
func (e *MockEngine) Finish(id string) {
	if l := e.getListener(); l != nil {
		l.OnDone(id)
	}
}

// Fail fires OnError on the registered listener.
func (e *MockEngine) Fail(id string, err error) {
	if l := e.getListener(); l != nil {
		l.OnError(id, err)
	}
}

func (e *MockEngine) getListener() tts.UtteranceListener {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listener
}

// Calls returns a copy of the recorded calls.
func (e *MockEngine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Methods returns the names of the recorded calls, in order.
func (e *MockEngine) Methods() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	methods := make([]string, len(e.calls))
	for i, c := range e.calls {
		methods[i] = c.Method
	}
	return methods
}

// CallCount returns how often method was called.
func (e *MockEngine) CallCount(method string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, c := range e.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Chunks returns a copy of the enqueued chunks.
func (e *MockEngine) Chunks() []Chunk {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Chunk(nil), e.chunks...)
}

// Locales returns every locale set so far.
func (e *MockEngine) Locales() []language.Tag {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]language.Tag(nil), e.locales...)
}

// Routes returns every route set so far.
func (e *MockEngine) Routes() []tts.AudioRoute {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]tts.AudioRoute(nil), e.routes...)
}

// Reset clears recorded calls and chunks.
func (e *MockEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = nil
	e.chunks = nil
	e.locales = nil
	e.routes = nil
}

// estimateDuration estimates speaking duration for text.
func estimateDuration(text string, wordsPerMinute int) time.Duration {
	words := len(strings.Fields(text))
	if words < 1 {
		words = 1
	}
	seconds := float64(words) * 60.0 / float64(wordsPerMinute)
	return time.Duration(seconds * float64(time.Second))
}
