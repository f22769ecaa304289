package tts

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads speech configuration from the global Viper.
func LoadConfigFromViper() (Config, error) {
	return LoadConfig(viper.GetViper())
}

// LoadConfig builds a Config from defaults, keys under "tts." in v and
// ANNOUNCER_* environment variables, in that order of precedence.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	// Global settings
	if v.IsSet("tts.engine") {
		cfg.Engine = v.GetString("tts.engine")
	}
	if v.IsSet("tts.fallback") {
		cfg.Fallback = v.GetString("tts.fallback")
	}
	if v.IsSet("tts.locale") {
		cfg.Locale = v.GetString("tts.locale")
	}
	if v.IsSet("tts.announcements") {
		cfg.Announcements = v.GetBool("tts.announcements")
	}
	if v.IsSet("tts.init_timeout") {
		cfg.InitTimeout = durationOr(v.GetString("tts.init_timeout"), cfg.InitTimeout)
	}
	if v.IsSet("tts.screen_reader") {
		cfg.ScreenReader = v.GetString("tts.screen_reader")
	}
	if v.IsSet("tts.screen_readers") {
		cfg.ScreenReaders = v.GetStringSlice("tts.screen_readers")
	}

	// Routes
	cfg.Routes.Accessibility = loadRouteConfig(v, "tts.routes.accessibility", cfg.Routes.Accessibility)
	cfg.Routes.Navigation = loadRouteConfig(v, "tts.routes.navigation", cfg.Routes.Navigation)

	// Listen
	if v.IsSet("tts.listen.rate") {
		cfg.Listen.Rate = v.GetFloat64("tts.listen.rate")
	}
	if v.IsSet("tts.listen.burst") {
		cfg.Listen.Burst = v.GetInt("tts.listen.burst")
	}

	cfg.Cache = loadCacheConfig(v)
	cfg.Espeak = loadEspeakConfig(v)
	cfg.Piper = loadPiperConfig(v)
	cfg.Mock = loadMockConfig(v)

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid speech configuration: %w", err)
	}

	return cfg, nil
}

func loadRouteConfig(v *viper.Viper, key string, cfg RouteConfig) RouteConfig {
	if v.IsSet(key + ".role") {
		cfg.Role = v.GetString(key + ".role")
	}
	if v.IsSet(key + ".volume") {
		cfg.Volume = v.GetFloat64(key + ".volume")
	}
	return cfg
}

// loadCacheConfig loads audio cache configuration from Viper.
func loadCacheConfig(v *viper.Viper) CacheConfig {
	cfg := DefaultCacheConfig()

	if v.IsSet("tts.cache.enabled") {
		cfg.Enabled = v.GetBool("tts.cache.enabled")
	}
	if v.IsSet("tts.cache.dir") {
		cfg.Dir = v.GetString("tts.cache.dir")
	}
	if v.IsSet("tts.cache.memory_size") {
		cfg.MemorySize = v.GetString("tts.cache.memory_size")
	}
	if v.IsSet("tts.cache.disk_size") {
		cfg.DiskSize = v.GetString("tts.cache.disk_size")
	}
	if v.IsSet("tts.cache.max_age") {
		cfg.MaxAge = durationOr(v.GetString("tts.cache.max_age"), cfg.MaxAge)
	}
	if v.IsSet("tts.cache.compression_level") {
		cfg.CompressionLevel = v.GetInt("tts.cache.compression_level")
	}

	return cfg
}

// loadEspeakConfig loads espeak-specific configuration from Viper.
func loadEspeakConfig(v *viper.Viper) EspeakConfig {
	cfg := DefaultEspeakConfig()

	if v.IsSet("tts.espeak.binary") {
		cfg.Binary = v.GetString("tts.espeak.binary")
	}
	if v.IsSet("tts.espeak.voice") {
		cfg.Voice = v.GetString("tts.espeak.voice")
	}
	if v.IsSet("tts.espeak.words_per_minute") {
		cfg.WordsPerMinute = v.GetInt("tts.espeak.words_per_minute")
	}
	if v.IsSet("tts.espeak.max_utterance_length") {
		cfg.MaxUtteranceLength = v.GetInt("tts.espeak.max_utterance_length")
	}

	return cfg
}

// loadPiperConfig loads Piper-specific configuration from Viper.
func loadPiperConfig(v *viper.Viper) PiperConfig {
	cfg := DefaultPiperConfig()

	if v.IsSet("tts.piper.binary") {
		cfg.Binary = v.GetString("tts.piper.binary")
	}
	if v.IsSet("tts.piper.model") {
		cfg.Model = v.GetString("tts.piper.model")
	}
	if v.IsSet("tts.piper.models") {
		cfg.Models = v.GetStringMapString("tts.piper.models")
	}
	if v.IsSet("tts.piper.sample_rate") {
		cfg.SampleRate = v.GetInt("tts.piper.sample_rate")
	}
	if v.IsSet("tts.piper.max_utterance_length") {
		cfg.MaxUtteranceLength = v.GetInt("tts.piper.max_utterance_length")
	}
	if v.IsSet("tts.piper.timeout") {
		cfg.Timeout = durationOr(v.GetString("tts.piper.timeout"), cfg.Timeout)
	}

	return cfg
}

// loadMockConfig loads mock-specific configuration from Viper.
func loadMockConfig(v *viper.Viper) MockConfig {
	cfg := DefaultMockConfig()

	if v.IsSet("tts.mock.words_per_minute") {
		cfg.WordsPerMinute = v.GetInt("tts.mock.words_per_minute")
	}
	if v.IsSet("tts.mock.max_utterance_length") {
		cfg.MaxUtteranceLength = v.GetInt("tts.mock.max_utterance_length")
	}

	return cfg
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}

// SetDefaults sets default values in v for the speech configuration.
func SetDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("tts.engine", defaults.Engine)
	v.SetDefault("tts.announcements", defaults.Announcements)
	v.SetDefault("tts.init_timeout", defaults.InitTimeout.String())
	v.SetDefault("tts.screen_reader", defaults.ScreenReader)
	v.SetDefault("tts.screen_readers", defaults.ScreenReaders)

	v.SetDefault("tts.routes.accessibility.role", defaults.Routes.Accessibility.Role)
	v.SetDefault("tts.routes.accessibility.volume", defaults.Routes.Accessibility.Volume)
	v.SetDefault("tts.routes.navigation.role", defaults.Routes.Navigation.Role)
	v.SetDefault("tts.routes.navigation.volume", defaults.Routes.Navigation.Volume)

	v.SetDefault("tts.listen.rate", defaults.Listen.Rate)
	v.SetDefault("tts.listen.burst", defaults.Listen.Burst)

	v.SetDefault("tts.cache.enabled", defaults.Cache.Enabled)
	v.SetDefault("tts.cache.memory_size", defaults.Cache.MemorySize)
	v.SetDefault("tts.cache.disk_size", defaults.Cache.DiskSize)
	v.SetDefault("tts.cache.max_age", defaults.Cache.MaxAge.String())
	v.SetDefault("tts.cache.compression_level", defaults.Cache.CompressionLevel)

	v.SetDefault("tts.espeak.words_per_minute", defaults.Espeak.WordsPerMinute)
	v.SetDefault("tts.espeak.max_utterance_length", defaults.Espeak.MaxUtteranceLength)

	v.SetDefault("tts.piper.binary", defaults.Piper.Binary)
	v.SetDefault("tts.piper.model", defaults.Piper.Model)
	v.SetDefault("tts.piper.sample_rate", defaults.Piper.SampleRate)
	v.SetDefault("tts.piper.max_utterance_length", defaults.Piper.MaxUtteranceLength)
	v.SetDefault("tts.piper.timeout", defaults.Piper.Timeout.String())

	v.SetDefault("tts.mock.words_per_minute", defaults.Mock.WordsPerMinute)
	v.SetDefault("tts.mock.max_utterance_length", defaults.Mock.MaxUtteranceLength)
}
