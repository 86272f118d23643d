package orchestrator

import (
	"context"
	"fmt"
	"time"

	"direttarenderer/internal/core"
	"direttarenderer/internal/transport"
	"direttarenderer/pkg/convert"
)

// Config bundles the tunables the orchestrator needs beyond the format
// itself: the retry tables, the conservative-reopen policy switch, the MTU
// used for DSD warmup scaling, and the PCM warmup constant from
// configuration.
type Config struct {
	Retry            RetryTables
	Conservative     bool
	MTU              int
	PCMWarmupBuffers int
	RingSeconds      float64 // ring capacity policy: bytes_per_second * RingSeconds
}

// Orchestrator drives open(format): classifying the transition against the
// previously open format, and dispatching the quick-resume, reopen, or
// full-rebuild sequence against the Sync Core and the downstream sink.
type Orchestrator struct {
	core *core.Core
	sink transport.DownstreamSink
	cfg  Config

	current        *core.Format
	lastSinkFormat core.SinkFormat
}

// New constructs an Orchestrator bound to a Sync Core and a downstream
// sink adapter.
func New(c *core.Core, sink transport.DownstreamSink, cfg Config) *Orchestrator {
	return &Orchestrator{core: c, sink: sink, cfg: cfg}
}

// Current reports the format last successfully opened, or nil before any
// open has completed.
func (o *Orchestrator) Current() *core.Format {
	return o.current
}

// Open classifies next against the currently open format and runs the
// dispatched transition. preferences lists sink formats in descending
// quality order for the capability-negotiation step.
func (o *Orchestrator) Open(ctx context.Context, next core.Format, preferences []core.SinkFormat) error {
	isFirstOpen := o.current == nil
	class, sameFamily := Classify(o.current, next)
	action := DispatchAction(isFirstOpen, class, sameFamily, o.cfg.Conservative)

	switch action {
	case ActionFirstOpen:
		if err := o.firstOpen(ctx, next, preferences); err != nil {
			return err
		}
	case ActionSameFormat:
		o.quickResume(next)
	case ActionReopen:
		if err := o.reopen(ctx, next, preferences); err != nil {
			return err
		}
	case ActionFullRebuild:
		o.silenceBeforeFullClose(next)
		if err := o.fullRebuild(ctx, class, next, preferences); err != nil {
			return err
		}
	}

	formatCopy := next
	o.current = &formatCopy
	return nil
}

// silenceBeforeFullClose implements §4.5's grace-period policy: before any
// full close, if currently playing DSD, drain 30 silence buffers and wait
// up to 100ms for the consumer to emit them.
func (o *Orchestrator) silenceBeforeFullClose(next core.Format) {
	if o.current == nil || !o.current.IsDSD {
		return
	}
	o.core.RequestDrain(30)
	waitForState(o.core, core.Stopped, 100*time.Millisecond)
}

func waitForState(c *core.Core, want core.PlaybackState, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return c.State() == want
}

// quickResume is the SameFormat path: drain, clear, reset prefill/warmup,
// resume — no sink re-negotiation.
func (o *Orchestrator) quickResume(next core.Format) {
	silenceBuffers := 20
	if next.IsDSD {
		silenceBuffers = 50
	}
	o.core.RequestDrain(silenceBuffers)
	waitForState(o.core, core.Stopped, 50*time.Millisecond)

	o.reconfigureCoreFor(next, o.lastSinkFormat, o.core.RingCap(), o.sink.BytesPerBuffer())
}

func (o *Orchestrator) reopen(ctx context.Context, next core.Format, preferences []core.SinkFormat) error {
	o.core.Stop(true)
	if err := o.sink.Disconnect(ctx); err != nil {
		return fmt.Errorf("orchestrator: reopen disconnect: %w", err)
	}
	return o.negotiateAndReconfigure(ctx, next, preferences)
}

func (o *Orchestrator) fullRebuild(ctx context.Context, class Class, next core.Format, preferences []core.SinkFormat) error {
	o.core.Stop(true)
	if err := o.sink.Disconnect(ctx); err != nil {
		return fmt.Errorf("orchestrator: full rebuild disconnect: %w", err)
	}

	delay := 100 * time.Millisecond
	if class == DsdToPcm || class == PcmToDsd || class == DsdRateChange {
		delay = 250 * time.Millisecond
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}

	return o.firstOpen(ctx, next, preferences)
}

func (o *Orchestrator) firstOpen(ctx context.Context, next core.Format, preferences []core.SinkFormat) error {
	if err := withRetry(ctx, o.cfg.Retry.Connect, "connect", func() error {
		return o.sink.Connect(ctx)
	}); err != nil {
		return err
	}
	return o.negotiateAndReconfigure(ctx, next, preferences)
}

func (o *Orchestrator) negotiateAndReconfigure(ctx context.Context, next core.Format, preferences []core.SinkFormat) error {
	var caps transport.SinkCapabilities
	if err := withRetry(ctx, o.cfg.Retry.SetSink, "capability inquiry", func() error {
		var err error
		caps, err = o.sink.Capabilities(ctx)
		return err
	}); err != nil {
		return err
	}

	want, ok := transport.NegotiatePreference(caps, preferences)
	if !ok {
		return fmt.Errorf("orchestrator: sink rejected all format preferences")
	}

	var negotiated core.SinkFormat
	if err := withRetry(ctx, o.cfg.Retry.SetSink, "negotiate format", func() error {
		var err error
		negotiated, err = o.sink.NegotiateFormat(ctx, want)
		return err
	}); err != nil {
		return err
	}

	bytesPerBuffer := transport.ComputeBytesPerBuffer(next, max(negotiated.BitDepth/8, 1))
	bytesPerSecond := int(next.SampleRate) * next.Channels * max(negotiated.BitDepth/8, 1)
	if next.IsDSD {
		bytesPerSecond = int(next.SampleRate) * next.Channels / 8
	}
	ringCapacity := int(float64(bytesPerSecond) * o.cfg.RingSeconds)

	o.lastSinkFormat = negotiated
	o.reconfigureCoreFor(next, negotiated, ringCapacity, bytesPerBuffer)

	return withRetry(ctx, o.cfg.Retry.StartPlayback, "start playback", func() error {
		return o.sink.Start(ctx, o.core.FillBuffer)
	})
}

func (o *Orchestrator) reconfigureCoreFor(next core.Format, sink core.SinkFormat, ringCapacity, bytesPerBuffer int) {
	silenceByte := byte(0x00)
	if next.IsDSD {
		silenceByte = 0x69
	}

	mode := pickMode(next, sink)
	bytesPerSample := 0
	if !next.IsDSD {
		bytesPerSample = next.BitDepth / 8
	}

	bytesPerSecond := int(next.SampleRate) * next.Channels
	if next.IsDSD {
		bytesPerSecond /= 8
	} else {
		bytesPerSecond *= bytesPerSample
	}

	prefillTarget := core.PrefillTargetBytes(next, bytesPerSecond, ringCapacity)
	warmupTarget := core.WarmupTargetBuffers(next, o.cfg.MTU, o.cfg.PCMWarmupBuffers)

	o.core.Reconfigure(core.ReconfigureParams{
		Mode:             mode,
		Channels:         next.Channels,
		BytesPerSample:   bytesPerSample,
		PrefillTarget:    prefillTarget,
		WarmupTarget:     warmupTarget,
		BytesPerBuffer:   bytesPerBuffer,
		SilenceByte:      silenceByte,
		IsDSD:            next.IsDSD,
		SampleRate:       next.SampleRate,
		RingCapacityHint: ringCapacity,
	})
}

// pickMode selects the ConversionMode for next's format against the
// negotiated sink format: DSD dispatches through SelectDSDMode on polarity
// and endianness; PCM dispatches on the negotiated bit depth.
func pickMode(next core.Format, sink core.SinkFormat) convert.Mode {
	if next.IsDSD {
		endian := convert.EndianBig
		if sink.Endian == convert.EndianLittle {
			endian = convert.EndianLittle
		}
		return convert.SelectDSDMode(next.SourcePolarity, sink.Polarity, endian)
	}
	switch sink.BitDepth {
	case 24:
		return convert.PCM_Pack24
	case 32:
		if next.BitDepth == 16 {
			return convert.PCM_Upsample16To32
		}
		return convert.PCM_Copy
	default:
		return convert.PCM_Copy
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
