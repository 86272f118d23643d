// Package core implements the Sync Core: the producer entry push_audio,
// the consumer entry fill_buffer, the generation-counter caching protocol,
// and the prefill/warmup/running/draining/stopped state machine built on
// top of the Ring and AccessGuard primitives.
package core

import "direttarenderer/pkg/convert"

// Format describes the stream arriving from the upstream decoder.
type Format struct {
	SampleRate     uint32 // Hz for PCM; bit-rate in Hz for DSD (e.g. 2,822,400 for DSD64)
	Channels       int
	BitDepth       int
	IsDSD          bool
	SourcePolarity convert.Polarity
}

// SinkFormat is the result of negotiating with the downstream transport:
// the first format it accepted, tried in descending quality order.
type SinkFormat struct {
	BitDepth int // 16/24/32 for PCM, 1 for DSD
	Endian   convert.Endian
	Polarity convert.Polarity
}

// PlaybackState is the consumer's buffer-delivery state. It is maintained
// best-effort for status reporting; the authoritative control-flow lives in
// the prefillComplete/warmupComplete/draining/stopRequested fields that
// push_audio and fill_buffer actually branch on.
type PlaybackState int32

const (
	Idle PlaybackState = iota
	Prefilling
	Warmup
	Running
	Draining
	Stopped
)

func (s PlaybackState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Prefilling:
		return "Prefilling"
	case Warmup:
		return "Warmup"
	case Running:
		return "Running"
	case Draining:
		return "Draining"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}
