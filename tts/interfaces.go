package tts

import (
	"context"

	"golang.org/x/text/language"
)

// Engine is the driver side of a speech-synthesis backend.
type Engine interface {
	// Init acquires the engine asynchronously. The returned channel
	// receives exactly one value: nil on success or the failure cause.
	Init(ctx context.Context) <-chan error

	// SetLocale selects the language used for subsequent chunks.
	SetLocale(locale language.Tag) error

	// IsSpeaking reports whether a chunk is playing or queued.
	IsSpeaking() bool

	// Stop halts playback and discards every queued chunk.
	Stop() error

	// MaxUtteranceLength returns the longest text, in characters,
	// accepted by a single Enqueue call. Zero or less means unbounded.
	MaxUtteranceLength() int

	// SetAudioRoute selects the output usage for subsequent chunks.
	SetAudioRoute(route AudioRoute) error

	// Enqueue appends a chunk to the playback queue.
	Enqueue(chunk, utteranceID string) error

	// SetListener registers the receiver of lifecycle callbacks.
	SetListener(listener UtteranceListener)

	// Shutdown stops the engine and releases its resources.
	Shutdown() error
}

// UtteranceListener receives lifecycle notifications from an Engine.
// Callbacks arrive on the engine's own goroutine, once per chunk.
type UtteranceListener interface {
	OnStart(utteranceID string)
	OnDone(utteranceID string)
	OnError(utteranceID string, err error)
}

// AccessibilityQuery answers whether a screen reader is active.
type AccessibilityQuery interface {
	HasActiveSpokenFeedbackService() bool
}

// SettingsProvider exposes the user's speech preferences.
type SettingsProvider interface {
	AnnouncementsEnabled() bool
}

// Reason tags why a request was made.
type Reason int

const (
	// ReasonAnnouncement is an app-initiated spoken notification.
	ReasonAnnouncement Reason = iota
	// ReasonScreenReaderEcho is a UI-state echo for screen reader users.
	ReasonScreenReaderEcho
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonAnnouncement:
		return "announcement"
	case ReasonScreenReaderEcho:
		return "screen-reader-echo"
	default:
		return "unknown"
	}
}

// SpeechRequest is a single caller invocation.
type SpeechRequest struct {
	Text   string
	Reason Reason
}

// AudioRoute selects the audio usage an utterance is played with.
type AudioRoute int

const (
	// RouteNavigationGuidance is used when no screen reader is running.
	RouteNavigationGuidance AudioRoute = iota
	// RouteAccessibility is used while a screen reader is active.
	RouteAccessibility
)

// String returns the string representation of the route.
func (r AudioRoute) String() string {
	switch r {
	case RouteNavigationGuidance:
		return "navigation-guidance"
	case RouteAccessibility:
		return "accessibility"
	default:
		return "unknown"
	}
}

// RouteFor picks the route for the current screen reader presence.
func RouteFor(screenReaderActive bool) AudioRoute {
	if screenReaderActive {
		return RouteAccessibility
	}
	return RouteNavigationGuidance
}
