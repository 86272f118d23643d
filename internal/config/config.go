package config

import "time"

// Config is the renderer's full runtime configuration.
type Config struct {
	Audio     AudioConfig     `mapstructure:"audio"`
	Ring      RingConfig      `mapstructure:"ring"`
	Warmup    WarmupConfig    `mapstructure:"warmup"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Control   ControlConfig   `mapstructure:"control"`
}

// AudioConfig describes the formats the renderer is willing to accept and
// the sink negotiation preferences it offers, in descending quality order.
type AudioConfig struct {
	DSDBitRate     uint32   `mapstructure:"dsd_bit_rate"` // DSD64 = 2,822,400
	SourcePolarity string   `mapstructure:"source_polarity"` // "lsb" or "msb"
	EndianPrefs    []string `mapstructure:"endian_prefs"`    // descending quality order, "little"/"big"
}

// RingConfig controls how the ring's capacity is sized once a format is
// negotiated: capacity = bytes_per_second * Seconds.
type RingConfig struct {
	Seconds float64 `mapstructure:"seconds"`
}

// WarmupConfig carries the PCM warmup constant. MinBuffers and MaxBuffers
// hold the same values as the DSD clamp bounds, but the warmup calculation
// in internal/core uses its own fixed [50, 3000] bounds and does not read
// them.
type WarmupConfig struct {
	PCMBuffers int `mapstructure:"pcm_buffers"`
	MinBuffers int `mapstructure:"min_buffers"`
	MaxBuffers int `mapstructure:"max_buffers"`
}

// RetryConfig carries the retry-count x delay tables and the
// conservative-reopen policy switch.
type RetryConfig struct {
	ConnectAttempts       int           `mapstructure:"connect_attempts"`
	ConnectDelay          time.Duration `mapstructure:"connect_delay"`
	SetSinkAttempts       int           `mapstructure:"set_sink_attempts"`
	SetSinkDelay          time.Duration `mapstructure:"set_sink_delay"`
	StartPlaybackAttempts int           `mapstructure:"start_playback_attempts"`
	StartPlaybackDelay    time.Duration `mapstructure:"start_playback_delay"`
	Conservative          bool          `mapstructure:"conservative"`
}

// DiscoveryConfig controls the mDNS service type browsed for renderer
// targets and which network interface to bind to.
type DiscoveryConfig struct {
	ServiceType   string        `mapstructure:"service_type"`
	Interface     string        `mapstructure:"interface"`
	TargetIndex   int           `mapstructure:"target_index"` // 1-based, 0 means unset
	BrowseTimeout time.Duration `mapstructure:"browse_timeout"`
}

// ControlConfig names the renderer for its control-plane identity.
type ControlConfig struct {
	Name         string `mapstructure:"name"`
	UUID         string `mapstructure:"uuid"`
	Port         int    `mapstructure:"port"`
	Gapless      bool   `mapstructure:"gapless"`
	DebugConsole bool   `mapstructure:"debug_console"`
}

// DefaultConfig returns the baked-in defaults a fresh install starts from.
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			DSDBitRate:     2_822_400,
			SourcePolarity: "lsb",
			EndianPrefs:    []string{"little", "big"},
		},
		Ring: RingConfig{
			Seconds: 1.0,
		},
		Warmup: WarmupConfig{
			PCMBuffers: 100,
			MinBuffers: 50,
			MaxBuffers: 3000,
		},
		Retry: RetryConfig{
			ConnectAttempts:       3,
			ConnectDelay:          200 * time.Millisecond,
			SetSinkAttempts:       10,
			SetSinkDelay:          50 * time.Millisecond,
			StartPlaybackAttempts: 50,
			StartPlaybackDelay:    10 * time.Millisecond,
			Conservative:          true,
		},
		Discovery: DiscoveryConfig{
			ServiceType:   "_direttarenderer._tcp",
			BrowseTimeout: 3 * time.Second,
		},
		Control: ControlConfig{
			Name:         "direttarenderer",
			Port:         8080,
			Gapless:      true,
			DebugConsole: false,
		},
	}
}
