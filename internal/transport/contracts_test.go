package transport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"direttarenderer/internal/core"
)

func TestComputeBytesPerBufferScenario1(t *testing.T) {
	format := core.Format{SampleRate: 44100, Channels: 2}
	// 44100Hz/16-bit/2ch: ceil(44100/1000)*2ch*2bytes = 45*2*2 = 180.
	n := ComputeBytesPerBuffer(format, 2)
	require.Equal(t, 180, n)
}

func TestComputeBytesPerBufferAppliesFloor(t *testing.T) {
	format := core.Format{SampleRate: 1, Channels: 1}
	n := ComputeBytesPerBuffer(format, 2)
	require.Equal(t, minBytesPerBuffer, n)
}

func TestComputeBytesPerBufferDSDRoundsToUnit(t *testing.T) {
	format := core.Format{SampleRate: 2_822_400, Channels: 2, IsDSD: true}
	n := ComputeBytesPerBuffer(format, 1)
	require.Zero(t, n%(4*format.Channels))
}

func TestNegotiatePreferencePicksFirstSupported(t *testing.T) {
	caps := SinkCapabilities{PCM24: true}
	preferences := []core.SinkFormat{{BitDepth: 32}, {BitDepth: 24}, {BitDepth: 16}}

	got, ok := NegotiatePreference(caps, preferences)
	require.True(t, ok)
	require.Equal(t, 24, got.BitDepth)
}

func TestNegotiatePreferenceNoneSupported(t *testing.T) {
	caps := SinkCapabilities{PCM16: true}
	preferences := []core.SinkFormat{{BitDepth: 32}, {BitDepth: 24}}

	_, ok := NegotiatePreference(caps, preferences)
	require.False(t, ok)
}
