// Package espeak drives espeak-ng (or classic espeak) as a subprocess.
package espeak

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/announcer/tts"
	"github.com/dgnsrekt/announcer/tts/engines"
	"github.com/dgnsrekt/announcer/utils"
	"golang.org/x/text/language"
)

// Binaries are tried in order when no binary is configured.
var Binaries = []string{"espeak-ng", "espeak"}

// ErrNotFound is returned by Init when no espeak binary is installed.
var ErrNotFound = errors.New("speech not available: install espeak-ng or espeak")

// Engine speaks chunks by running one espeak process per chunk.
type Engine struct {
	*engines.Queue

	config tts.EspeakConfig
	routes tts.RoutesConfig
	logger *log.Logger

	mu     sync.RWMutex
	binary string
	voice  string
	route  tts.AudioRoute
}

// New creates an espeak engine. Nothing is executed until Init.
func New(config tts.EspeakConfig, routes tts.RoutesConfig) *Engine {
	e := &Engine{
		config: config,
		routes: routes,
		logger: tts.NewLogger("espeak"),
		voice:  config.Voice,
	}
	e.Queue = engines.NewQueue(e.say, e.logger)
	return e
}

// Init resolves the espeak binary in the background.
func (e *Engine) Init(ctx context.Context) <-chan error {
	result := make(chan error, 1)
	go func() {
		binary, err := lookPath(e.config.Binary)
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			e.mu.Lock()
			e.binary = binary
			e.mu.Unlock()
			e.logger.Debug("Using espeak", "path", binary)
		}
		result <- err
	}()
	return result
}

func lookPath(configured string) (string, error) {
	if configured != "" {
		path, err := exec.LookPath(utils.ExpandPath(configured))
		if err != nil {
			return "", fmt.Errorf("espeak binary %q: %w", configured, err)
		}
		return path, nil
	}
	for _, bin := range Binaries {
		if path, err := exec.LookPath(bin); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// SetLocale selects the espeak voice for locale unless a voice is
// configured explicitly.
func (e *Engine) SetLocale(locale language.Tag) error {
	if e.config.Voice != "" {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.voice = VoiceFor(locale)
	return nil
}

// regionalVoices are the espeak-ng voices named after a language and region.
var regionalVoices = map[string]bool{
	"en-us": true,
	"en-gb": true,
	"pt-br": true,
	"fr-be": true,
	"fr-ch": true,
	"vi-vn": true,
}

// VoiceFor maps a language tag to an espeak-ng voice name: "en-us" for
// American English, "de" for any German.
func VoiceFor(locale language.Tag) string {
	base, _ := locale.Base()
	region, conf := locale.Region()
	if conf == language.Exact {
		if v := strings.ToLower(base.String() + "-" + region.String()); regionalVoices[v] {
			return v
		}
	}
	return base.String()
}

// SetAudioRoute selects the media role and amplitude for later chunks.
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

// Shutdown stops playback and terminates the worker.
func (e *Engine) Shutdown() error {
	return e.Queue.Close()
}

func (e *Engine) say(ctx context.Context, chunk string) error {
	e.mu.RLock()
	binary := e.binary
	args := e.args()
	environ := e.environ()
	e.mu.RUnlock()

	if binary == "" {
		return tts.ErrEngineUnavailable
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = strings.NewReader(chunk)
	cmd.Env = append(os.Environ(), environ...)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("running %s failed with combined output %q: %w", binary, out, err)
	}
	return nil
}

// args must be called with e.mu held.
func (e *Engine) args() []string {
	args := []string{"--stdin", "-s", strconv.Itoa(e.config.WordsPerMinute)}
	if e.voice != "" {
		args = append(args, "-v", e.voice)
	}
	// espeak amplitude: 0-200, 100 is the default level
	amp := int(e.routeConfig().Volume * 100)
	return append(args, "-a", strconv.Itoa(amp))
}

// environ must be called with e.mu held.
func (e *Engine) environ() []string {
	if role := e.routeConfig().Role; role != "" {
		return []string{"PULSE_PROP=media.role=" + role}
	}
	return nil
}

func (e *Engine) routeConfig() tts.RouteConfig {
	if e.route == tts.RouteAccessibility {
		return e.routes.Accessibility
	}
	return e.routes.Navigation
}
