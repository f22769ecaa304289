// Package audio provides PCM playback for engines that synthesize audio
// themselves.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Stream is one playing sound. *oto.Player satisfies it.
type Stream interface {
	Play()
	Pause()
	IsPlaying() bool
	SetVolume(volume float64)
	Err() error
	Close() error
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate   int           // Hz
	Channels     int           // 1 = mono, 2 = stereo
	BufferSize   time.Duration // output buffer, 0 selects the driver default
	PollInterval time.Duration // completion polling
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate:   22050,
		Channels:     1,
		PollInterval: 10 * time.Millisecond,
	}
}

// Player plays signed 16-bit little-endian PCM.
type Player struct {
	newStream func(r io.Reader) Stream
	poll      time.Duration
}

// NewPlayer opens the audio device. oto allows a single context per
// process, so at most one Player may be created with this function.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   config.BufferSize,
	}

	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	return newPlayer(func(r io.Reader) Stream {
		return otoCtx.NewPlayer(r)
	}, config.PollInterval), nil
}

func newPlayer(newStream func(r io.Reader) Stream, poll time.Duration) *Player {
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	return &Player{newStream: newStream, poll: poll}
}

func validateConfig(config PlayerConfig) error {
	if config.SampleRate < 8000 || config.SampleRate > 48000 {
		return fmt.Errorf("sample rate must be between 8000 and 48000 Hz, got %d", config.SampleRate)
	}
	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}
	if config.BufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}
	return nil
}

// Play plays pcm at volume and blocks until playback has finished or ctx
// is done. Cancelling ctx silences the stream immediately.
func (p *Player) Play(ctx context.Context, pcm []byte, volume float64) error {
	if len(pcm) == 0 {
		return errors.New("audio data is empty")
	}

	// The reader keeps pcm reachable for the lifetime of the stream.
	stream := p.newStream(bytes.NewReader(pcm))
	defer stream.Close() //nolint:errcheck

	stream.SetVolume(clamp(volume))
	stream.Play()

	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for stream.IsPlaying() {
		select {
		case <-ctx.Done():
			stream.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return stream.Err()
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
