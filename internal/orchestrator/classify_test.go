package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"direttarenderer/internal/core"
)

func TestClassifyScenario5PcmRateChange(t *testing.T) {
	old := core.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}
	next := core.Format{SampleRate: 96000, Channels: 2, BitDepth: 16}

	class, sameFamily := Classify(&old, next)
	require.Equal(t, PcmRateChange, class)
	require.False(t, sameFamily)

	action := DispatchAction(false, class, sameFamily, false)
	require.Equal(t, ActionFullRebuild, action)
}

func TestClassifySameFormat(t *testing.T) {
	old := core.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}
	next := old
	class, _ := Classify(&old, next)
	require.Equal(t, SameFormat, class)
	require.Equal(t, ActionSameFormat, DispatchAction(false, class, true, false))
}

func TestClassifyBitDepthOnlyDispatchesReopen(t *testing.T) {
	old := core.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}
	next := core.Format{SampleRate: 44100, Channels: 2, BitDepth: 24}
	class, _ := Classify(&old, next)
	require.Equal(t, BitDepthOnly, class)
	require.Equal(t, ActionReopen, DispatchAction(false, class, true, false))
}

func TestClassifyDsdToPcmAndBack(t *testing.T) {
	dsd := core.Format{SampleRate: 2822400, Channels: 2, IsDSD: true}
	pcm := core.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}

	class, _ := Classify(&dsd, pcm)
	require.Equal(t, DsdToPcm, class)
	require.Equal(t, ActionFullRebuild, DispatchAction(false, class, false, true))

	class, _ = Classify(&pcm, dsd)
	require.Equal(t, PcmToDsd, class)
}

func TestClassifyFirstOpenOverridesClass(t *testing.T) {
	next := core.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}
	require.Equal(t, ActionFirstOpen, DispatchAction(true, SameFormat, true, false))
	_ = next
}

func TestClassifySameFamilyRateChangeReopensUnderConservativePolicy(t *testing.T) {
	old := core.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}
	next := core.Format{SampleRate: 88200, Channels: 2, BitDepth: 16}
	class, sameFamily := Classify(&old, next)
	require.Equal(t, PcmRateChange, class)
	require.True(t, sameFamily)
	require.Equal(t, ActionReopen, DispatchAction(false, class, sameFamily, true))
	require.Equal(t, ActionFullRebuild, DispatchAction(false, class, sameFamily, false))
}
