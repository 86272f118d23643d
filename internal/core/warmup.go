package core

import "math"

// dsd64Rate is the DSD64 reference bit-rate; other DSD rates scale the
// warmup duration by sample_rate/dsd64Rate.
const dsd64Rate = 2_822_400

// mtuOverheadBytes is subtracted from the negotiated MTU before computing
// the transport's cycle duration.
const mtuOverheadBytes = 24

const (
	minWarmupBuffers = 50
	maxWarmupBuffers = 3000
)

// WarmupTargetBuffers computes the MTU-scaled warmup buffer count per
// §4.4.3: DSD scales a 50ms-per-DSD64-multiple target by the negotiated
// cycle time, clamped to [50, 3000]; PCM returns the constant supplied by
// configuration unchanged.
func WarmupTargetBuffers(format Format, mtu int, pcmConstant int) int {
	if !format.IsDSD {
		// PCM uses the configured constant directly; only the DSD path is
		// stated to clamp against the MTU-derived calculation.
		return pcmConstant
	}

	multiplier := float64(format.SampleRate) / dsd64Rate
	targetMs := 50.0 * multiplier

	bytesPerSecond := float64(format.SampleRate) * float64(format.Channels) / 8.0
	effectiveMTU := float64(mtu - mtuOverheadBytes)
	cycleUs := effectiveMTU / bytesPerSecond * 1_000_000.0

	target := int(math.Ceil(targetMs * 1000.0 / cycleUs))
	return clampBuffers(target)
}

func clampBuffers(n int) int {
	if n < minWarmupBuffers {
		return minWarmupBuffers
	}
	if n > maxWarmupBuffers {
		return maxWarmupBuffers
	}
	return n
}
