package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"direttarenderer/pkg/convert"
)

func openPCM(c *Core, bytesPerBuffer, warmupTarget, prefillTarget, ringCap int) {
	c.Reconfigure(ReconfigureParams{
		Mode:             convert.PCM_Copy,
		Channels:         2,
		BytesPerSample:   2,
		PrefillTarget:    prefillTarget,
		WarmupTarget:     warmupTarget,
		BytesPerBuffer:   bytesPerBuffer,
		SilenceByte:      0x00,
		IsDSD:            false,
		SampleRate:       44100,
		RingCapacityHint: ringCap,
	})
}

func TestFillBufferAlwaysWritesRequestedLength(t *testing.T) {
	c := NewCore(1<<16, 0x00, 4096)
	openPCM(c, 180, 2, 64, 1<<16)

	dst := make([]byte, 180)
	n := c.FillBuffer(dst)
	require.Equal(t, 180, n)
}

func TestWholeStateMachineReachesRunningAndPopsRealData(t *testing.T) {
	c := NewCore(1<<16, 0x00, 4096)
	openPCM(c, 4, 2, 8, 1<<16)
	require.Equal(t, Prefilling, c.State())

	// Push enough interleaved PCM (2ch, 2 bytes/sample) to reach the 8-byte
	// prefill target: 4 samples total -> 8 bytes.
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	written := c.PushAudio(src, 4)
	require.Equal(t, 8, written)
	require.Equal(t, Warmup, c.State())

	out := make([]byte, 4)
	c.FillBuffer(out)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, out)
	c.FillBuffer(out)
	require.Equal(t, Running, c.State())

	// Both warmup calls emitted silence without popping; the ring still
	// holds the 8 pushed bytes untouched.
	require.Equal(t, 8, c.RingLen())

	c.FillBuffer(out)
	require.Equal(t, src[:4], out)
}

func TestUnderrunAccountingScenario4(t *testing.T) {
	c := NewCore(1<<8, 0x00, 64)
	openPCM(c, 180, 0, 0, 1<<8)
	// prefillTarget=0 is met by the first successful push, and
	// warmupTarget=0 by the first fill_buffer call (which still emits
	// silence), so one push and one fill put the state machine in Running.
	// The 4 pushed bytes stay short of every 180-byte request.
	require.Equal(t, 4, c.PushAudio([]byte{1, 2, 3, 4}, 2))
	dst := make([]byte, 180)
	c.FillBuffer(dst)
	require.Equal(t, Running, c.State())
	for i := 0; i < 1000; i++ {
		n := c.FillBuffer(dst)
		require.Equal(t, 180, n)
		for _, b := range dst {
			require.Equal(t, byte(0x00), b)
		}
	}
	require.Equal(t, uint64(1000), c.DrainUnderrunCount())
	require.Equal(t, uint64(0), c.DrainUnderrunCount())
}

func TestRequestDrainTransitionsToStoppedAfterKBuffers(t *testing.T) {
	c := NewCore(1<<12, 0x00, 64)
	openPCM(c, 4, 0, 0, 1<<12)
	dst := make([]byte, 4)
	c.PushAudio([]byte{1, 2, 3, 4}, 2) // meets the zero prefill target
	c.FillBuffer(dst)                  // meets the zero warmup target: Running
	require.Equal(t, Running, c.State())

	c.RequestDrain(3)
	require.Equal(t, Draining, c.State())
	for i := 0; i < 2; i++ {
		c.FillBuffer(dst)
		require.Equal(t, Draining, c.State())
	}
	c.FillBuffer(dst)
	require.Equal(t, Stopped, c.State())
}

func TestStopImmediateShortCircuitsPushAudio(t *testing.T) {
	c := NewCore(1<<12, 0x00, 64)
	openPCM(c, 4, 0, 0, 1<<12)
	c.Stop(true)
	require.Equal(t, Stopped, c.State())
	n := c.PushAudio([]byte{1, 2, 3, 4}, 2)
	require.Equal(t, 0, n)
}

func TestFirstPushAfterOpenDoesNotFlipPrefillUnlessTargetReached(t *testing.T) {
	c := NewCore(1<<12, 0x00, 64)
	openPCM(c, 4, 2, 100, 1<<12) // prefill target far larger than one push
	c.PushAudio([]byte{1, 2, 3, 4}, 2)
	require.Equal(t, Prefilling, c.State())
}

func TestPushAudioBuffersNonFrameAlignedTailAcrossCalls(t *testing.T) {
	c := NewCore(1<<12, 0x00, 64)
	openPCM(c, 4, 0, 0, 1<<12) // 2ch * 2 bytes/sample = 4-byte frame

	// First push is one byte short of a whole frame: 3 bytes buffered, zero
	// written this call.
	n1 := c.PushAudio([]byte{1, 2, 3}, 0)
	require.Equal(t, 0, n1)
	require.Equal(t, 0, c.RingLen())

	// The next push's leading byte completes the pending frame; the
	// combined 4 bytes convert as one frame.
	n2 := c.PushAudio([]byte{4, 5, 6, 7, 8}, 0)
	require.Equal(t, 8, n2)

	dst := make([]byte, 4)
	c.FillBuffer(dst) // reach Running (warmupTarget=0)
	c.FillBuffer(dst)
	require.Equal(t, []byte{1, 2, 3, 4}, dst)
	c.FillBuffer(dst)
	require.Equal(t, []byte{5, 6, 7, 8}, dst)
}

func TestReconfigureClearsPendingRemainder(t *testing.T) {
	c := NewCore(1<<12, 0x00, 64)
	openPCM(c, 4, 0, 0, 1<<12)
	c.PushAudio([]byte{1, 2, 3}, 0) // buffers 3 bytes, nothing written

	openPCM(c, 4, 0, 0, 1<<12) // reconfigure must drop the stale remainder
	n := c.PushAudio([]byte{9, 9, 9, 9}, 0)
	require.Equal(t, 4, n)

	dst := make([]byte, 4)
	c.FillBuffer(dst) // reach Running
	c.FillBuffer(dst)
	// If the old remainder had survived the reconfigure, these bytes would
	// be a merge of {1,2,3} and the new push rather than the new push alone.
	require.Equal(t, []byte{9, 9, 9, 9}, dst)
}

func TestWarmupTargetBuffersScenario2DSD512(t *testing.T) {
	f := Format{SampleRate: 22_579_200, Channels: 2, IsDSD: true}
	got := WarmupTargetBuffers(f, 9000, 50)
	require.Equal(t, 252, got)
}

func TestWarmupTargetBuffersPCMUsesConfiguredConstant(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2, IsDSD: false}
	require.Equal(t, 50, WarmupTargetBuffers(f, 1500, 50))
}

func TestPrefillTargetNeverExceedsQuarterRing(t *testing.T) {
	f := Format{SampleRate: 192000, IsDSD: false}
	got := PrefillTargetBytes(f, 192000*2*4, 1024)
	require.LessOrEqual(t, got, 1024/4)
}
