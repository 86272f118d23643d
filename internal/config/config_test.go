package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigRetryOrdering(t *testing.T) {
	cfg := DefaultConfig()

	require.Less(t, cfg.Retry.ConnectAttempts, cfg.Retry.StartPlaybackAttempts,
		"start_playback should retry more aggressively than connect")
	require.Greater(t, cfg.Retry.ConnectDelay, cfg.Retry.StartPlaybackDelay,
		"start_playback should back off less than connect")
}

func TestDefaultConfigControlDefaults(t *testing.T) {
	cfg := DefaultConfig()

	require.True(t, cfg.Control.Gapless)
	require.False(t, cfg.Control.DebugConsole)
	require.Equal(t, "direttarenderer", cfg.Control.Name)
	require.NotZero(t, cfg.Control.Port)
}

func TestDefaultConfigAudioDefaults(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, uint32(2_822_400), cfg.Audio.DSDBitRate)
	require.Equal(t, []string{"little", "big"}, cfg.Audio.EndianPrefs)
}
