package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Load reads configFile (if non-empty) or the conventional search path,
// overlays it on DefaultConfig's values, and applies DIRETTA_-prefixed
// environment variables. Flags still take precedence over all of this;
// cmd/direttarenderer applies parsed pflag values after Load returns.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("direttarenderer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/direttarenderer")
	}

	viper.SetEnvPrefix("DIRETTA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// no config file; defaults and env stand alone
		} else if os.IsNotExist(err) {
			// explicitly named file missing; same as above
		} else {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	d := DefaultConfig()

	viper.SetDefault("audio.dsd_bit_rate", d.Audio.DSDBitRate)
	viper.SetDefault("audio.source_polarity", d.Audio.SourcePolarity)
	viper.SetDefault("audio.endian_prefs", d.Audio.EndianPrefs)

	viper.SetDefault("ring.seconds", d.Ring.Seconds)

	viper.SetDefault("warmup.pcm_buffers", d.Warmup.PCMBuffers)
	viper.SetDefault("warmup.min_buffers", d.Warmup.MinBuffers)
	viper.SetDefault("warmup.max_buffers", d.Warmup.MaxBuffers)

	viper.SetDefault("retry.connect_attempts", d.Retry.ConnectAttempts)
	viper.SetDefault("retry.connect_delay", d.Retry.ConnectDelay)
	viper.SetDefault("retry.set_sink_attempts", d.Retry.SetSinkAttempts)
	viper.SetDefault("retry.set_sink_delay", d.Retry.SetSinkDelay)
	viper.SetDefault("retry.start_playback_attempts", d.Retry.StartPlaybackAttempts)
	viper.SetDefault("retry.start_playback_delay", d.Retry.StartPlaybackDelay)
	viper.SetDefault("retry.conservative", d.Retry.Conservative)

	viper.SetDefault("discovery.service_type", d.Discovery.ServiceType)
	viper.SetDefault("discovery.browse_timeout", d.Discovery.BrowseTimeout)

	viper.SetDefault("control.name", d.Control.Name)
	viper.SetDefault("control.port", d.Control.Port)
	viper.SetDefault("control.gapless", d.Control.Gapless)
	viper.SetDefault("control.debug_console", d.Control.DebugConsole)
}
