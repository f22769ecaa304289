package tts

import (
	"errors"
	"sort"
)

var (
	// ErrEngineUnavailable means initialization failed or has not completed.
	ErrEngineUnavailable = errors.New("speech engine is not available")

	// ErrUtteranceFailed means the engine reported a failure mid-playback.
	ErrUtteranceFailed = errors.New("utterance failed")

	// ErrEngineShutdown is returned by engines after Shutdown.
	ErrEngineShutdown = errors.New("speech engine has been shut down")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// TTSError provides detailed error information for log lines.
type TTSError struct {
	Err       error          // The underlying error
	Component string         // Component that generated the error
	Action    string         // Action being performed when error occurred
	Context   map[string]any // Additional context
}

// Error implements the error interface.
func (e *TTSError) Error() string {
	if e.Err == nil {
		return "unknown speech error"
	}
	if e.Component == "" {
		return e.Err.Error()
	}
	return e.Component + ": " + e.Action + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *TTSError) Unwrap() error {
	return e.Err
}

// NewTTSError creates a new error with context.
func NewTTSError(err error, component, action string) *TTSError {
	return &TTSError{
		Err:       err,
		Component: component,
		Action:    action,
		Context:   make(map[string]any),
	}
}

// WithContext adds context to the error.
func (e *TTSError) WithContext(key string, value any) *TTSError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Keyvals flattens the error into key/value pairs for structured logging.
// Context keys follow in sorted order.
func (e *TTSError) Keyvals() []any {
	kv := []any{"component", e.Component, "action", e.Action, "err", e.Err}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		kv = append(kv, k, e.Context[k])
	}
	return kv
}
