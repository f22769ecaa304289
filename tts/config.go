package tts

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
)

// Config contains all speech configuration options.
type Config struct {
	// Global settings
	Engine        string        `yaml:"engine" env:"ENGINE"`
	Fallback      string        `yaml:"fallback,omitempty" env:"FALLBACK"` // used when Engine fails to initialize
	Locale        string        `yaml:"locale,omitempty" env:"LOCALE"`
	Announcements bool          `yaml:"announcements" env:"ANNOUNCEMENTS"`
	InitTimeout   time.Duration `yaml:"init_timeout" env:"INIT_TIMEOUT"`

	// Screen reader detection: auto, on or off
	ScreenReader  string   `yaml:"screen_reader" env:"SCREEN_READER"`
	ScreenReaders []string `yaml:"screen_readers" env:"SCREEN_READERS" envSeparator:","`

	// Audio routes
	Routes RoutesConfig `yaml:"routes" envPrefix:"ROUTE_"`

	// Line-by-line input
	Listen ListenConfig `yaml:"listen" envPrefix:"LISTEN_"`

	// Synthesized audio cache
	Cache CacheConfig `yaml:"cache" envPrefix:"CACHE_"`

	// Engine-specific configurations
	Espeak EspeakConfig `yaml:"espeak" envPrefix:"ESPEAK_"`
	Piper  PiperConfig  `yaml:"piper" envPrefix:"PIPER_"`
	Mock   MockConfig   `yaml:"mock" envPrefix:"MOCK_"`
}

// RoutesConfig describes how each AudioRoute is rendered.
type RoutesConfig struct {
	Accessibility RouteConfig `yaml:"accessibility" envPrefix:"ACCESSIBILITY_"`
	Navigation    RouteConfig `yaml:"navigation" envPrefix:"NAVIGATION_"`
}

// RouteConfig holds the output properties of one route.
type RouteConfig struct {
	Role   string  `yaml:"role" env:"ROLE"`     // PulseAudio media.role
	Volume float64 `yaml:"volume" env:"VOLUME"` // 0.0 to 1.0
}

// ListenConfig throttles the listen command.
type ListenConfig struct {
	Rate  float64 `yaml:"rate" env:"RATE"` // lines per second
	Burst int     `yaml:"burst" env:"BURST"`
}

// EspeakConfig contains espeak-ng engine specific settings.
type EspeakConfig struct {
	Binary             string `yaml:"binary,omitempty" env:"BINARY"`
	Voice              string `yaml:"voice,omitempty" env:"VOICE"`
	WordsPerMinute     int    `yaml:"words_per_minute" env:"WORDS_PER_MINUTE"`
	MaxUtteranceLength int    `yaml:"max_utterance_length" env:"MAX_UTTERANCE_LENGTH"`
}

// PiperConfig contains Piper engine specific settings.
type PiperConfig struct {
	Binary             string            `yaml:"binary" env:"BINARY"`
	Model              string            `yaml:"model" env:"MODEL"`
	Models             map[string]string `yaml:"models,omitempty"` // base language -> model
	SampleRate         int               `yaml:"sample_rate" env:"SAMPLE_RATE"`
	MaxUtteranceLength int               `yaml:"max_utterance_length" env:"MAX_UTTERANCE_LENGTH"`
	Timeout            time.Duration     `yaml:"timeout" env:"TIMEOUT"`
}

// CacheConfig controls the cache of synthesized audio. Sizes are
// human-readable byte counts such as "16 MB".
type CacheConfig struct {
	Enabled          bool          `yaml:"enabled" env:"ENABLED"`
	Dir              string        `yaml:"dir,omitempty" env:"DIR"` // empty means the user cache directory
	MemorySize       string        `yaml:"memory_size" env:"MEMORY_SIZE"`
	DiskSize         string        `yaml:"disk_size" env:"DISK_SIZE"`
	MaxAge           time.Duration `yaml:"max_age" env:"MAX_AGE"`
	CompressionLevel int           `yaml:"compression_level" env:"COMPRESSION_LEVEL"` // zstd level, 0 disables
}

// MockConfig contains settings for the simulated engine.
type MockConfig struct {
	WordsPerMinute     int `yaml:"words_per_minute" env:"WORDS_PER_MINUTE"`
	MaxUtteranceLength int `yaml:"max_utterance_length" env:"MAX_UTTERANCE_LENGTH"`
}

// Engines lists the selectable engine names.
var Engines = []string{"espeak", "piper", "mock"}

// Screen reader detection modes.
const (
	ScreenReaderAuto = "auto"
	ScreenReaderOn   = "on"
	ScreenReaderOff  = "off"
)

// DefaultMaxUtteranceLength matches the common platform limit.
const DefaultMaxUtteranceLength = 4000

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:        "espeak",
		Announcements: true,
		InitTimeout:   5 * time.Second,

		ScreenReader:  ScreenReaderAuto,
		ScreenReaders: []string{"orca", "fenrir", "speakup", "emacspeak", "tdsr"},

		Routes: RoutesConfig{
			Accessibility: RouteConfig{Role: "a11y", Volume: 1.0},
			Navigation:    RouteConfig{Role: "event", Volume: 0.8},
		},

		Listen: ListenConfig{Rate: 2, Burst: 1},

		Cache: DefaultCacheConfig(),

		Espeak: DefaultEspeakConfig(),
		Piper:  DefaultPiperConfig(),
		Mock:   DefaultMockConfig(),
	}
}

// DefaultEspeakConfig returns default espeak configuration.
func DefaultEspeakConfig() EspeakConfig {
	return EspeakConfig{
		WordsPerMinute:     175,
		MaxUtteranceLength: DefaultMaxUtteranceLength,
	}
}

// DefaultPiperConfig returns default Piper configuration.
func DefaultPiperConfig() PiperConfig {
	return PiperConfig{
		Binary:             "piper",
		Model:              "~/.local/share/piper/en_US-lessac-medium.onnx",
		SampleRate:         22050,
		MaxUtteranceLength: DefaultMaxUtteranceLength,
		Timeout:            30 * time.Second,
	}
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:          true,
		MemorySize:       "16 MB",
		DiskSize:         "256 MB",
		MaxAge:           7 * 24 * time.Hour,
		CompressionLevel: 3,
	}
}

// DefaultMockConfig returns default mock configuration.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		WordsPerMinute:     150,
		MaxUtteranceLength: DefaultMaxUtteranceLength,
	}
}

// ApplyEnv overrides fields from ANNOUNCER_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: "ANNOUNCER_"}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}

// LocaleTag returns the configured locale, or language.Und if unset.
func (c *Config) LocaleTag() language.Tag {
	tag, ok := ParseLocale(c.Locale)
	if !ok {
		return language.Und
	}
	return tag
}

// Route returns the settings for the given route.
func (c *Config) Route(route AudioRoute) RouteConfig {
	if route == RouteAccessibility {
		return c.Routes.Accessibility
	}
	return c.Routes.Navigation
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	c.Engine = strings.ToLower(c.Engine)
	if !slices.Contains(Engines, c.Engine) {
		return fmt.Errorf("%w: engine %q must be one of %v", ErrInvalidConfig, c.Engine, Engines)
	}

	c.Fallback = strings.ToLower(c.Fallback)
	if c.Fallback != "" {
		if !slices.Contains(Engines, c.Fallback) {
			return fmt.Errorf("%w: fallback %q must be one of %v", ErrInvalidConfig, c.Fallback, Engines)
		}
		if c.Fallback == c.Engine {
			return fmt.Errorf("%w: fallback must differ from engine %q", ErrInvalidConfig, c.Engine)
		}
	}

	if c.Locale != "" {
		if _, ok := ParseLocale(c.Locale); !ok {
			return fmt.Errorf("%w: unknown locale %q", ErrInvalidConfig, c.Locale)
		}
	}

	c.ScreenReader = strings.ToLower(c.ScreenReader)
	switch c.ScreenReader {
	case ScreenReaderAuto, ScreenReaderOn, ScreenReaderOff:
	default:
		return fmt.Errorf("%w: screen_reader must be auto, on or off, got %q", ErrInvalidConfig, c.ScreenReader)
	}

	if c.InitTimeout <= 0 {
		return fmt.Errorf("%w: init_timeout must be positive, got %v", ErrInvalidConfig, c.InitTimeout)
	}

	for name, r := range map[string]RouteConfig{
		"accessibility": c.Routes.Accessibility,
		"navigation":    c.Routes.Navigation,
	} {
		if r.Volume < 0 || r.Volume > 1 {
			return fmt.Errorf("%w: %s route volume must be between 0.0 and 1.0, got %f", ErrInvalidConfig, name, r.Volume)
		}
	}

	if c.Listen.Rate <= 0 || c.Listen.Burst < 1 {
		return fmt.Errorf("%w: listen rate must be positive and burst at least 1", ErrInvalidConfig)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	for _, name := range []string{c.Engine, c.Fallback} {
		if err := c.validateEngine(name); err != nil {
			return err
		}
	}

	return nil
}

// validateEngine checks the settings of the named engine.
func (c *Config) validateEngine(name string) error {
	switch name {
	case "espeak":
		if err := c.Espeak.Validate(); err != nil {
			return fmt.Errorf("espeak config: %w", err)
		}
	case "piper":
		if err := c.Piper.Validate(); err != nil {
			return fmt.Errorf("piper config: %w", err)
		}
	case "mock":
		if err := c.Mock.Validate(); err != nil {
			return fmt.Errorf("mock config: %w", err)
		}
	}

	return nil
}

// Validate checks if the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	if _, err := c.MemoryBytes(); err != nil {
		return fmt.Errorf("%w: memory_size: %v", ErrInvalidConfig, err)
	}
	if _, err := c.DiskBytes(); err != nil {
		return fmt.Errorf("%w: disk_size: %v", ErrInvalidConfig, err)
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("%w: max_age cannot be negative", ErrInvalidConfig)
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 22 {
		return fmt.Errorf("%w: compression_level must be between 0 and 22, got %d", ErrInvalidConfig, c.CompressionLevel)
	}
	return nil
}

// MemoryBytes parses MemorySize.
func (c *CacheConfig) MemoryBytes() (int64, error) {
	return parseSize(c.MemorySize)
}

// DiskBytes parses DiskSize.
func (c *CacheConfig) DiskBytes() (int64, error) {
	return parseSize(c.DiskSize)
}

func parseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return int64(n), nil
}

// Validate checks if the espeak configuration is valid.
func (c *EspeakConfig) Validate() error {
	if c.WordsPerMinute < 80 || c.WordsPerMinute > 450 {
		return fmt.Errorf("%w: words_per_minute must be between 80 and 450, got %d", ErrInvalidConfig, c.WordsPerMinute)
	}
	if c.MaxUtteranceLength < 1 {
		return fmt.Errorf("%w: max_utterance_length must be positive", ErrInvalidConfig)
	}
	return nil
}

// Validate checks if the Piper configuration is valid.
func (c *PiperConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("%w: piper binary path cannot be empty", ErrInvalidConfig)
	}
	if c.Model == "" && len(c.Models) == 0 {
		return fmt.Errorf("%w: piper model cannot be empty", ErrInvalidConfig)
	}
	if c.SampleRate < 8000 || c.SampleRate > 48000 {
		return fmt.Errorf("%w: sample_rate must be between 8000 and 48000, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.MaxUtteranceLength < 1 {
		return fmt.Errorf("%w: max_utterance_length must be positive", ErrInvalidConfig)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("%w: timeout must be at least 1 second, got %v", ErrInvalidConfig, c.Timeout)
	}
	return nil
}

// Validate checks if the mock configuration is valid.
func (c *MockConfig) Validate() error {
	if c.WordsPerMinute < 50 || c.WordsPerMinute > 500 {
		return fmt.Errorf("%w: words_per_minute must be between 50 and 500, got %d", ErrInvalidConfig, c.WordsPerMinute)
	}
	if c.MaxUtteranceLength < 1 {
		return fmt.Errorf("%w: max_utterance_length must be positive", ErrInvalidConfig)
	}
	return nil
}
