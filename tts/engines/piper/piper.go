// Package piper implements the Piper neural speech engine integration.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/announcer/tts"
	"github.com/dgnsrekt/announcer/tts/audio"
	"github.com/dgnsrekt/announcer/tts/engines"
	"github.com/dgnsrekt/announcer/utils"
	"golang.org/x/text/language"
)

// PCMPlayer plays raw 16-bit PCM. *audio.Player satisfies it.
type PCMPlayer interface {
	Play(ctx context.Context, pcm []byte, volume float64) error
}

// Cache stores synthesized audio. *cache.Manager satisfies it.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// Engine synthesizes each chunk with a fresh piper process and plays the
// raw output through a PCMPlayer.
type Engine struct {
	*engines.Queue

	config     tts.PiperConfig
	routes     tts.RoutesConfig
	logger     *log.Logger
	openPlayer func(audio.PlayerConfig) (PCMPlayer, error)

	mu     sync.RWMutex
	binary string
	model  string
	route  tts.AudioRoute
	player PCMPlayer
	cache  Cache
}

// New creates a Piper engine. Nothing is executed until Init.
func New(config tts.PiperConfig, routes tts.RoutesConfig) *Engine {
	return NewWithPlayer(config, routes, func(c audio.PlayerConfig) (PCMPlayer, error) {
		return audio.NewPlayer(c)
	})
}

// NewWithPlayer is like New but obtains its player from openPlayer.
func NewWithPlayer(config tts.PiperConfig, routes tts.RoutesConfig, openPlayer func(audio.PlayerConfig) (PCMPlayer, error)) *Engine {
	e := &Engine{
		config:     config,
		routes:     routes,
		logger:     tts.NewLogger("piper"),
		openPlayer: openPlayer,
	}
	e.Queue = engines.NewQueue(e.say, e.logger)
	return e
}

// Init resolves the binary and default model and opens the audio device.
func (e *Engine) Init(ctx context.Context) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- e.init(ctx)
	}()
	return result
}

func (e *Engine) init(ctx context.Context) error {
	binary, err := exec.LookPath(utils.ExpandPath(e.config.Binary))
	if err != nil {
		return fmt.Errorf("piper binary %q: %w", e.config.Binary, err)
	}

	// Without a default model, SetLocale picks one from the models map.
	model := ModelFor(e.config, language.Und)
	if model != "" || len(e.config.Models) == 0 {
		if err := checkModel(model); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	pc := audio.DefaultPlayerConfig()
	pc.SampleRate = e.config.SampleRate
	player, err := e.openPlayer(pc)
	if err != nil {
		return fmt.Errorf("opening audio output: %w", err)
	}

	e.mu.Lock()
	e.binary = binary
	e.model = model
	e.player = player
	e.mu.Unlock()

	e.logger.Debug("Using piper", "path", binary, "model", model)
	return nil
}

func checkModel(model string) error {
	if model == "" {
		return errors.New("no piper model configured")
	}
	if _, err := os.Stat(model); err != nil {
		return fmt.Errorf("piper model: %w", err)
	}
	return nil
}

// ModelFor returns the expanded model path for locale: the entry of
// config.Models for the locale's base language, else config.Model.
func ModelFor(config tts.PiperConfig, locale language.Tag) string {
	if locale != language.Und {
		base, _ := locale.Base()
		for lang, model := range config.Models {
			if strings.EqualFold(lang, base.String()) {
				return utils.ExpandPath(model)
			}
		}
	}
	return utils.ExpandPath(config.Model)
}

// SetCache makes the engine reuse audio previously synthesized with the
// same model and text.
func (e *Engine) SetCache(c Cache) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = c
}

// SetLocale switches to the model configured for locale. The current
// model is kept if the new one does not exist.
func (e *Engine) SetLocale(locale language.Tag) error {
	model := ModelFor(e.config, locale)
	if err := checkModel(model); err != nil {
		return fmt.Errorf("locale %s: %w", locale, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = model
	return nil
}

// SetAudioRoute selects the playback volume for later chunks.
func (e *Engine) SetAudioRoute(route tts.AudioRoute) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.route = route
	return nil
}

// MaxUtteranceLength returns the configured limit.
func (e *Engine) MaxUtteranceLength() int {
	return e.config.MaxUtteranceLength
}

// Shutdown stops playback, terminates the worker and closes the cache.
func (e *Engine) Shutdown() error {
	err := e.Queue.Close()

	e.mu.RLock()
	c := e.cache
	e.mu.RUnlock()
	if closer, ok := c.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

func (e *Engine) say(ctx context.Context, chunk string) error {
	e.mu.RLock()
	binary, model, player, cache := e.binary, e.model, e.player, e.cache
	volume := e.routes.Navigation.Volume
	if e.route == tts.RouteAccessibility {
		volume = e.routes.Accessibility.Volume
	}
	e.mu.RUnlock()

	if player == nil {
		return tts.ErrEngineUnavailable
	}
	if model == "" {
		return errors.New("no piper model for the current locale")
	}

	key := model + "\x00" + chunk
	pcm, ok := []byte(nil), false
	if cache != nil {
		pcm, ok = cache.Get(key)
	}
	if !ok {
		var err error
		if pcm, err = e.synthesize(ctx, binary, model, chunk); err != nil {
			return err
		}
		if cache != nil {
			if err := cache.Put(key, pcm); err != nil {
				e.logger.Debug("Audio not cached", "err", err)
			}
		}
	}
	return player.Play(ctx, pcm, volume)
}

func (e *Engine) synthesize(ctx context.Context, binary, model, chunk string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "--model", model, "--output-raw")
	cmd.Stdin = strings.NewReader(chunk + "\n")
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("piper failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if len(out) == 0 {
		return nil, errors.New("piper generated no audio")
	}
	return out, nil
}
