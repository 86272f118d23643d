package audiostats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateEmptyBuffer(t *testing.T) {
	st := Calculate(nil, 0)
	require.Equal(t, 0, st.TotalSamples)
	require.Equal(t, 0.0, st.RMS)
}

func TestCalculateSilence(t *testing.T) {
	samples := make([]int16, 100)
	st := Calculate(samples, 0)
	require.Equal(t, 0.0, st.RMS)
	require.Equal(t, int16(0), st.Peak)
	require.Equal(t, 100, st.SilentSamples)
	require.Equal(t, 1.0, st.SilenceRatio)
}

func TestCalculateFullScalePeak(t *testing.T) {
	samples := []int16{32767, -32768, 0}
	st := Calculate(samples, 0)
	require.Equal(t, int16(32767), st.Peak)
	require.Equal(t, 3, st.TotalSamples)
}

func TestCalculateSilenceThresholdCountsNearZero(t *testing.T) {
	samples := []int16{5, -5, 1000}
	st := Calculate(samples, 10)
	require.Equal(t, 2, st.SilentSamples)
}

func TestIsSilentTrueForZeroedBuffer(t *testing.T) {
	samples := make([]int16, 64)
	require.True(t, IsSilent(samples, 50, 0.9))
}

func TestIsSilentFalseForLoudBuffer(t *testing.T) {
	samples := make([]int16, 64)
	for i := range samples {
		samples[i] = 20000
	}
	require.False(t, IsSilent(samples, 50, 0.9))
}

func TestIsSilentEmptyBuffer(t *testing.T) {
	require.True(t, IsSilent(nil, 50, 0.9))
}
