// Package transport defines the contracts the Sync Core's external
// collaborators satisfy: the upstream decoder that calls send_audio, and
// the downstream transport library that pulls fixed-size buffers on its own
// cycle clock. Concrete adapters (e.g. portaudiosink) live in subpackages.
package transport

import (
	"context"

	"direttarenderer/internal/core"
)

// UpstreamSource is the decoder-side contract: one call per frame-group.
type UpstreamSource interface {
	SendAudio(bytes []byte, nSamples int, format core.Format) error
}

// SinkCapabilities is the result of a capability inquiry at connection
// time: which formats and endiannesses the downstream transport accepts.
type SinkCapabilities struct {
	PCM16, PCM24, PCM32      bool
	DSD                      bool
	DSDPolarityLSB           bool
	DSDPolarityMSB           bool
	LittleEndian, BigEndian  bool
}

// PullFunc is the shape of the Sync Core's consumer entry point, as seen
// from the downstream transport's cycle callback.
type PullFunc func(dst []byte) int

// DownstreamSink is the transport-side contract: connect, negotiate a
// format, then call back on its own cycle clock via Start until Stop.
type DownstreamSink interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Capabilities(ctx context.Context) (SinkCapabilities, error)
	NegotiateFormat(ctx context.Context, want core.SinkFormat) (core.SinkFormat, error)
	BytesPerBuffer() int
	Start(ctx context.Context, pull PullFunc) error
	Stop(ctx context.Context) error
}

// minBytesPerBuffer is the floor named in §6's bytes_per_buffer formula.
const minBytesPerBuffer = 64

// ComputeBytesPerBuffer derives bytes_per_buffer from sink negotiation:
// ceil(sample_rate/1000)*channels*bytes_per_sample, rounded up to a
// 4*channels multiple for DSD, with a 64-byte floor. sinkBytesPerSample is
// bytes (2/3/4 for PCM16/24/32), not bits.
func ComputeBytesPerBuffer(format core.Format, sinkBytesPerSample int) int {
	msSamples := (int(format.SampleRate) + 999) / 1000
	n := msSamples * format.Channels * sinkBytesPerSample
	if format.IsDSD {
		unit := 4 * format.Channels
		if unit > 0 {
			n = ((n + unit - 1) / unit) * unit
		}
	}
	if n < minBytesPerBuffer {
		n = minBytesPerBuffer
	}
	return n
}

// NegotiatePreference tries sinkFormats in descending quality order against
// cap and returns the first one cap supports, matching §6's "tries format
// preferences in descending quality order and records the first accepted."
func NegotiatePreference(cap SinkCapabilities, preferences []core.SinkFormat) (core.SinkFormat, bool) {
	for _, p := range preferences {
		if formatSupported(cap, p) {
			return p, true
		}
	}
	return core.SinkFormat{}, false
}

func formatSupported(cap SinkCapabilities, f core.SinkFormat) bool {
	switch f.BitDepth {
	case 1:
		if !cap.DSD {
			return false
		}
	case 16:
		if !cap.PCM16 {
			return false
		}
	case 24:
		if !cap.PCM24 {
			return false
		}
	case 32:
		if !cap.PCM32 {
			return false
		}
	default:
		return false
	}
	return true
}
