package tts

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// TestDefaultConfig tests that default configuration is valid.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
	if cfg.Engine != "espeak" {
		t.Errorf("Default engine should be espeak, got %s", cfg.Engine)
	}
	if !cfg.Announcements {
		t.Error("Announcements should be enabled by default")
	}
	if cfg.ScreenReader != ScreenReaderAuto {
		t.Errorf("Default screen reader mode should be auto, got %s", cfg.ScreenReader)
	}
}

// TestConfigValidation tests configuration validation.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid engine",
			modify:  func(c *Config) { c.Engine = "festival" },
			wantErr: true,
			errMsg:  "must be one of",
		},
		{
			name:    "case insensitive engine",
			modify:  func(c *Config) { c.Engine = "MOCK" },
			wantErr: false,
		},
		{
			name:    "valid fallback",
			modify:  func(c *Config) { c.Fallback = "Mock" },
			wantErr: false,
		},
		{
			name:    "unknown fallback",
			modify:  func(c *Config) { c.Fallback = "festival" },
			wantErr: true,
			errMsg:  "fallback",
		},
		{
			name:    "fallback same as engine",
			modify:  func(c *Config) { c.Fallback = "espeak" },
			wantErr: true,
			errMsg:  "must differ",
		},
		{
			name: "fallback settings are checked",
			modify: func(c *Config) {
				c.Fallback = "mock"
				c.Mock.WordsPerMinute = 0
			},
			wantErr: true,
			errMsg:  "mock config",
		},
		{
			name:    "valid locale",
			modify:  func(c *Config) { c.Locale = "de_DE.UTF-8" },
			wantErr: false,
		},
		{
			name:    "invalid locale",
			modify:  func(c *Config) { c.Locale = "not a locale" },
			wantErr: true,
			errMsg:  "unknown locale",
		},
		{
			name:    "invalid screen reader mode",
			modify:  func(c *Config) { c.ScreenReader = "sometimes" },
			wantErr: true,
			errMsg:  "screen_reader",
		},
		{
			name:    "case insensitive screen reader mode",
			modify:  func(c *Config) { c.ScreenReader = "OFF" },
			wantErr: false,
		},
		{
			name:    "zero init timeout",
			modify:  func(c *Config) { c.InitTimeout = 0 },
			wantErr: true,
			errMsg:  "init_timeout",
		},
		{
			name:    "route volume too high",
			modify:  func(c *Config) { c.Routes.Navigation.Volume = 1.5 },
			wantErr: true,
			errMsg:  "navigation route volume",
		},
		{
			name:    "route volume negative",
			modify:  func(c *Config) { c.Routes.Accessibility.Volume = -0.1 },
			wantErr: true,
			errMsg:  "accessibility route volume",
		},
		{
			name:    "listen burst zero",
			modify:  func(c *Config) { c.Listen.Burst = 0 },
			wantErr: true,
			errMsg:  "burst",
		},
		{
			name:    "bad cache size",
			modify:  func(c *Config) { c.Cache.DiskSize = "lots" },
			wantErr: true,
			errMsg:  "disk_size",
		},
		{
			name:    "cache compression out of range",
			modify:  func(c *Config) { c.Cache.CompressionLevel = 23 },
			wantErr: true,
			errMsg:  "compression_level",
		},
		{
			name:    "espeak too fast",
			modify:  func(c *Config) { c.Espeak.WordsPerMinute = 1000 },
			wantErr: true,
			errMsg:  "espeak config",
		},
		{
			name: "other engine settings are not checked",
			modify: func(c *Config) {
				c.Piper.SampleRate = 1
				c.Mock.WordsPerMinute = 0
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("error should wrap ErrInvalidConfig: %v", err)
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errMsg, err.Error())
				}
			}
		})
	}
}

// TestPiperConfigValidation tests Piper configuration validation.
func TestPiperConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*PiperConfig)
		wantErr bool
	}{
		{"valid", func(c *PiperConfig) {}, false},
		{"empty binary", func(c *PiperConfig) { c.Binary = "" }, true},
		{"no model", func(c *PiperConfig) { c.Model = "" }, true},
		{"models map only", func(c *PiperConfig) {
			c.Model = ""
			c.Models = map[string]string{"en": "en.onnx"}
		}, false},
		{"sample rate too low", func(c *PiperConfig) { c.SampleRate = 4000 }, true},
		{"sample rate too high", func(c *PiperConfig) { c.SampleRate = 96000 }, true},
		{"timeout too short", func(c *PiperConfig) { c.Timeout = 500 * time.Millisecond }, true},
		{"no utterance length", func(c *PiperConfig) { c.MaxUtteranceLength = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPiperConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCacheConfigSizes(t *testing.T) {
	tests := []struct {
		size    string
		want    int64
		wantErr bool
	}{
		{"16 MB", 16_000_000, false},
		{"1MiB", 1 << 20, false},
		{"512", 512, false},
		{"0", 0, false},
		{"", 0, true},
		{"-1 MB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			cfg := CacheConfig{MemorySize: tt.size}
			got, err := cfg.MemoryBytes()
			if (err != nil) != tt.wantErr {
				t.Fatalf("MemoryBytes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("MemoryBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestMockConfigValidation tests mock configuration validation.
func TestMockConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		wpm     int
		maxLen  int
		wantErr bool
	}{
		{"valid", 150, 100, false},
		{"too slow", 10, 100, true},
		{"too fast", 900, 100, true},
		{"no utterance length", 150, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MockConfig{WordsPerMinute: tt.wpm, MaxUtteranceLength: tt.maxLen}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(viper.New())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("LoadConfig() = %+v, want defaults", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	v := viper.New()
	v.Set("tts.engine", "piper")
	v.Set("tts.fallback", "espeak")
	v.Set("tts.locale", "fr_CA")
	v.Set("tts.announcements", false)
	v.Set("tts.screen_reader", "on")
	v.Set("tts.screen_readers", []string{"orca"})
	v.Set("tts.routes.navigation.role", "music")
	v.Set("tts.routes.navigation.volume", 0.3)
	v.Set("tts.listen.rate", 5.0)
	v.Set("tts.piper.model", "/models/en.onnx")
	v.Set("tts.piper.models", map[string]any{"fr": "/models/fr.onnx"})
	v.Set("tts.mock.words_per_minute", 200)
	v.Set("tts.cache.disk_size", "1 GB")
	v.Set("tts.cache.max_age", "24h")

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Engine != "piper" || cfg.Fallback != "espeak" {
		t.Errorf("Engine = %v, Fallback = %v, want piper and espeak", cfg.Engine, cfg.Fallback)
	}
	if cfg.LocaleTag() != language.CanadianFrench {
		t.Errorf("LocaleTag() = %v, want fr-CA", cfg.LocaleTag())
	}
	if cfg.Announcements {
		t.Error("Announcements should be disabled")
	}
	if cfg.ScreenReader != ScreenReaderOn {
		t.Errorf("ScreenReader = %v, want on", cfg.ScreenReader)
	}
	if !reflect.DeepEqual(cfg.ScreenReaders, []string{"orca"}) {
		t.Errorf("ScreenReaders = %v", cfg.ScreenReaders)
	}
	if nav := cfg.Route(RouteNavigationGuidance); nav.Role != "music" || nav.Volume != 0.3 {
		t.Errorf("navigation route = %+v", nav)
	}
	if acc := cfg.Route(RouteAccessibility); acc != DefaultConfig().Routes.Accessibility {
		t.Errorf("accessibility route = %+v, want default", acc)
	}
	if cfg.Listen.Rate != 5 || cfg.Listen.Burst != 1 {
		t.Errorf("Listen = %+v", cfg.Listen)
	}
	if cfg.Piper.Models["fr"] != "/models/fr.onnx" {
		t.Errorf("Piper.Models = %v", cfg.Piper.Models)
	}
	if cfg.Mock.WordsPerMinute != 200 {
		t.Errorf("Mock.WordsPerMinute = %v, want 200", cfg.Mock.WordsPerMinute)
	}
}

// TestLoadConfigDurationParsing tests duration parsing from Viper.
func TestLoadConfigDurationParsing(t *testing.T) {
	v := viper.New()
	v.Set("tts.init_timeout", "750ms")
	v.Set("tts.piper.timeout", "1m")

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.InitTimeout != 750*time.Millisecond {
		t.Errorf("InitTimeout = %v, want 750ms", cfg.InitTimeout)
	}
	if cfg.Piper.Timeout != time.Minute {
		t.Errorf("Piper.Timeout = %v, want 1m", cfg.Piper.Timeout)
	}

	v.Set("tts.init_timeout", "soon")
	cfg, err = LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.InitTimeout != DefaultConfig().InitTimeout {
		t.Errorf("unparsable duration should keep the default, got %v", cfg.InitTimeout)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	v := viper.New()
	v.Set("tts.engine", "festival")

	if _, err := LoadConfig(v); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LoadConfig() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadConfigEnvOverlay(t *testing.T) {
	t.Setenv("ANNOUNCER_ENGINE", "mock")
	t.Setenv("ANNOUNCER_INIT_TIMEOUT", "2s")
	t.Setenv("ANNOUNCER_SCREEN_READERS", "orca,nvda")
	t.Setenv("ANNOUNCER_ROUTE_ACCESSIBILITY_VOLUME", "0.5")
	t.Setenv("ANNOUNCER_MOCK_WORDS_PER_MINUTE", "300")

	v := viper.New()
	v.Set("tts.engine", "espeak")

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Engine != "mock" {
		t.Errorf("environment should override the config file, Engine = %v", cfg.Engine)
	}
	if cfg.InitTimeout != 2*time.Second {
		t.Errorf("InitTimeout = %v, want 2s", cfg.InitTimeout)
	}
	if !reflect.DeepEqual(cfg.ScreenReaders, []string{"orca", "nvda"}) {
		t.Errorf("ScreenReaders = %v", cfg.ScreenReaders)
	}
	if cfg.Routes.Accessibility.Volume != 0.5 {
		t.Errorf("accessibility volume = %v, want 0.5", cfg.Routes.Accessibility.Volume)
	}
	if cfg.Mock.WordsPerMinute != 300 {
		t.Errorf("Mock.WordsPerMinute = %v, want 300", cfg.Mock.WordsPerMinute)
	}
}

func TestLoadConfigEnvInvalid(t *testing.T) {
	t.Setenv("ANNOUNCER_LISTEN_BURST", "many")

	if _, err := LoadConfig(viper.New()); err == nil {
		t.Error("expected error for unparsable environment variable")
	}
}

// TestSetDefaults tests that SetDefaults properly sets Viper defaults.
func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	if v.GetString("tts.engine") != "espeak" {
		t.Errorf("tts.engine = %v, want espeak", v.GetString("tts.engine"))
	}
	if !v.GetBool("tts.announcements") {
		t.Error("tts.announcements should default to true")
	}
	if v.GetString("tts.piper.binary") != "piper" {
		t.Errorf("tts.piper.binary = %v, want piper", v.GetString("tts.piper.binary"))
	}

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("defaults should load back unchanged: %+v", cfg)
	}
}
