package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadWithNoConfigFileFallsBackToDefaults(t *testing.T) {
	viper.Reset()
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Control.Port, cfg.Control.Port)
	require.Equal(t, DefaultConfig().Audio.DSDBitRate, cfg.Audio.DSDBitRate)
}

func TestLoadMissingExplicitFileFallsBackToDefaults(t *testing.T) {
	viper.Reset()
	cfg, err := Load("/nonexistent/path/direttarenderer.yaml")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Control.Name, cfg.Control.Name)
}
