package core

import (
	"fmt"
	"sync/atomic"

	"direttarenderer/internal/guard"
	"direttarenderer/internal/logging"
	"direttarenderer/pkg/convert"
	"direttarenderer/pkg/ringbuf"
)

// Core owns the Ring exclusively and implements the producer/consumer
// contract. A single producer goroutine calls PushAudio, a single consumer
// goroutine calls FillBuffer, and at most one control goroutine calls
// Reconfigure/RequestDrain/Stop. Fields are grouped by which side owns
// them: atomics cross goroutine boundaries; the "cached" fields are only
// ever touched by the goroutine whose cache they are, per the generation
// protocol, and need no synchronization of their own.
type Core struct {
	ring  *ringbuf.Ring
	guard guard.AccessGuard

	producerGeneration uint32
	consumerGeneration uint32

	// Live format state, mutated only inside Reconfigure under the
	// AccessGuard write section.
	mode           convert.Mode
	channels       int
	bytesPerSample int
	prefillTarget  int // bytes
	warmupTarget   int // buffer count

	bytesPerBuffer int
	silenceByte    byte
	isDSD          bool
	sampleRate     uint32

	// Pre-sized conversion scratch, allocated once in NewCore so
	// push_audio never allocates on the hot path.
	scratch []byte

	// remainder absorbs the tail of push_audio's input left over after
	// rounding down to convert.FrameUnit, so a DSD group or PCM frame split
	// across two push_audio calls still converts whole on the next call.
	// Producer-owned, like the cached fields above. Cleared on Reconfigure:
	// a format change invalidates whatever partial group was pending.
	remainder *ringbuf.Ring
	inputBuf  []byte // scratch merge buffer: remainder bytes + head of new src

	// hotlog is nil unless SetHotLog has been called; PushAudio/FillBuffer
	// report state transitions and underruns through it instead of calling
	// logging.For directly, so the hot path never blocks on log I/O.
	hotlog *logging.HotPathQueue

	prefillComplete  int32 // atomic bool
	warmupComplete   int32 // atomic bool
	stopRequested    int32 // atomic bool
	draining         int32 // atomic bool
	silenceRemaining int32 // atomic count, decremented by the consumer

	underrunCount uint64 // atomic, relaxed increments

	state int32 // atomic PlaybackState, best-effort status

	// Producer-owned cache: read and written only from PushAudio's
	// goroutine.
	cachedProducerGen    uint32
	cachedMode           convert.Mode
	cachedChannels       int
	cachedBytesPerSample int
	cachedPrefillTarget  int

	// Consumer-owned cache: read and written only from FillBuffer's
	// goroutine.
	cachedConsumerGen    uint32
	cachedBytesPerBuffer int
	cachedSilenceByte    byte
	cachedIsDSD          bool
	cachedSampleRate     uint32
	cachedWarmupTarget   int
	warmupCounter        int
}

// defaultRemainderCap is the remainder ring's fixed byte capacity: a group
// or frame's unconsumed tail is always smaller than one convert.FrameUnit,
// so this is far more headroom than any format ever needs.
const defaultRemainderCap = 4096

// NewCore constructs a Core with an empty Ring of the given hinted
// capacity, in the Idle state.
func NewCore(ringCapacityHint int, silenceByte byte, scratchCapacity int) *Core {
	return &Core{
		ring:        ringbuf.NewWithSilence(ringCapacityHint, silenceByte),
		silenceByte: silenceByte,
		scratch:     make([]byte, scratchCapacity),
		remainder:   ringbuf.New(defaultRemainderCap),
		inputBuf:    make([]byte, defaultRemainderCap),
		state:       int32(Idle),
	}
}

// ReconfigureParams carries the new format state a Reconfigure call
// installs. The caller (the Transition Orchestrator) is responsible for
// sink negotiation, mode selection, and computing the warmup/prefill
// targets before calling Reconfigure.
type ReconfigureParams struct {
	Mode            convert.Mode
	Channels        int
	BytesPerSample  int
	PrefillTarget   int
	WarmupTarget    int
	BytesPerBuffer  int
	SilenceByte     byte
	IsDSD           bool
	SampleRate      uint32
	RingCapacityHint int
}

// SetHotLog attaches the queue PushAudio/FillBuffer report state
// transitions and underruns through. Call once at application wiring
// time, before playback starts; nil is a valid no-op value.
func (c *Core) SetHotLog(q *logging.HotPathQueue) {
	c.hotlog = q
}

// Reconfigure installs new format state under the AccessGuard write
// protocol: it waits for in-flight producer/consumer sections to drain,
// resizes and clears the ring, installs the new fields, and bumps both
// generation counters exactly once. It returns only after the
// reconfiguration is fully visible to the next PushAudio/FillBuffer call.
func (c *Core) Reconfigure(p ReconfigureParams) {
	c.guard.Reconfigure(func() {
		c.ring.Resize(nextPow2(p.RingCapacityHint), p.SilenceByte)
		c.remainder.Clear()

		c.mode = p.Mode
		c.channels = p.Channels
		c.bytesPerSample = p.BytesPerSample
		c.prefillTarget = p.PrefillTarget
		c.warmupTarget = p.WarmupTarget

		c.bytesPerBuffer = p.BytesPerBuffer
		c.silenceByte = p.SilenceByte
		c.isDSD = p.IsDSD
		c.sampleRate = p.SampleRate

		atomic.StoreInt32(&c.prefillComplete, 0)
		atomic.StoreInt32(&c.warmupComplete, 0)
		atomic.StoreInt32(&c.stopRequested, 0)
		atomic.StoreInt32(&c.draining, 0)
		atomic.StoreInt32(&c.silenceRemaining, 0)
		atomic.StoreInt32(&c.state, int32(Prefilling))

		atomic.AddUint32(&c.producerGeneration, 1)
		atomic.AddUint32(&c.consumerGeneration, 1)
	})
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// PushAudio is the producer entry point. src is contiguous: planar
// (channel-major) for DSD, interleaved for PCM. nSamples follows the
// upstream convention that for DSD, n_samples = total_bytes*8/channels; for
// PCM, n_samples is the total scalar sample count across all channels.
// PushAudio returns the number of ring bytes written, which may be less
// than the full converted output if the ring lacked space.
func (c *Core) PushAudio(src []byte, nSamples int) int {
	state := PlaybackState(atomic.LoadInt32(&c.state))
	if state == Idle || state == Stopped || state == Draining {
		return 0
	}
	if atomic.LoadInt32(&c.stopRequested) != 0 {
		return 0
	}

	tk, ok := c.guard.Enter()
	if !ok {
		return 0
	}
	defer tk.Exit()

	if gen := atomic.LoadUint32(&c.producerGeneration); gen != c.cachedProducerGen {
		c.cachedProducerGen = gen
		c.cachedMode = c.mode
		c.cachedChannels = c.channels
		c.cachedBytesPerSample = c.bytesPerSample
		c.cachedPrefillTarget = c.prefillTarget
	}

	totalBytes := nSamples * c.cachedChannels / 8
	if c.cachedBytesPerSample > 0 {
		// PCM: n_samples already counts total scalar samples across all
		// channels, so bytes = samples * bytes-per-sample.
		totalBytes = nSamples * c.cachedBytesPerSample
	}
	if totalBytes <= 0 || totalBytes > len(src) {
		totalBytes = len(src)
	}

	written := c.convertAndWrite(src[:totalBytes])

	if written > 0 && atomic.LoadInt32(&c.prefillComplete) == 0 {
		if c.ring.Len() >= c.cachedPrefillTarget {
			atomic.StoreInt32(&c.prefillComplete, 1)
			atomic.CompareAndSwapInt32(&c.state, int32(Prefilling), int32(Warmup))
			if c.hotlog != nil {
				c.hotlog.Info("prefill complete", "bytes", fmt.Sprint(c.ring.Len()))
			}
		}
	}

	return written
}

// convertAndWrite splices any remainder bytes buffered from a previous
// PushAudio call onto the front of src, so a DSD group or PCM frame split
// across two calls still converts whole, runs the cached kernel over
// whatever is now frame-aligned, and buffers the new unaligned tail (if
// any) for the next call.
func (c *Core) convertAndWrite(src []byte) int {
	frameUnit := convert.FrameUnit(c.cachedMode, c.cachedChannels, c.cachedBytesPerSample)
	if frameUnit <= 0 {
		frameUnit = 1
	}
	fn := convert.Table[c.cachedMode]

	remLen := c.remainder.Len()
	if remLen == 0 {
		return c.emit(fn, frameUnit, src)
	}

	need := frameUnit - remLen
	if need < 0 {
		need = 0
	}
	if need > len(src) {
		need = len(src)
	}
	n := remLen + need
	if n > len(c.inputBuf) {
		n = len(c.inputBuf)
	}
	popped, _ := c.remainder.Pop(c.inputBuf[:n])
	room := n - popped
	copy(c.inputBuf[popped:popped+room], src[:room])
	merged := c.inputBuf[:popped+room]

	written := c.emit(fn, frameUnit, merged)
	if rest := src[room:]; len(rest) > 0 {
		written += c.emit(fn, frameUnit, rest)
	}
	return written
}

// emit rounds in down to a frameUnit multiple, buffers any leftover tail
// into c.remainder for the next call, and runs fn over the aligned portion
// via the ring's direct-write region or the scratch fallback.
func (c *Core) emit(fn convert.Func, frameUnit int, in []byte) int {
	consumed := (len(in) / frameUnit) * frameUnit
	if leftover := in[consumed:]; len(leftover) > 0 {
		c.remainder.Push(leftover)
	}
	in = in[:consumed]
	if len(in) == 0 {
		return 0
	}

	outSize := convert.OutputSizeHint(c.cachedMode, len(in), c.cachedChannels, c.cachedBytesPerSample)
	if outSize <= 0 {
		return 0
	}

	first, second := c.ring.WriteRegion(outSize)
	if len(second) == 0 && len(first) >= outSize {
		n := fn(first[:outSize], in, c.cachedChannels, c.cachedBytesPerSample)
		c.ring.CommitWrite(n)
		return n
	}

	if outSize > len(c.scratch) {
		outSize = len(c.scratch)
	}
	n := fn(c.scratch[:outSize], in, c.cachedChannels, c.cachedBytesPerSample)
	return c.ring.Push(c.scratch[:n])
}

// FillBuffer is the consumer entry point, called on the downstream
// transport's cycle clock. It always writes exactly len(dst) bytes,
// substituting silence whenever real data is unavailable, and returns
// len(dst).
func (c *Core) FillBuffer(dst []byte) int {
	if gen := atomic.LoadUint32(&c.consumerGeneration); gen != c.cachedConsumerGen {
		c.cachedConsumerGen = gen
		c.cachedBytesPerBuffer = c.bytesPerBuffer
		c.cachedSilenceByte = c.silenceByte
		c.cachedIsDSD = c.isDSD
		c.cachedSampleRate = c.sampleRate
		c.cachedWarmupTarget = c.warmupTarget
	}

	tk, ok := c.guard.Enter()
	if !ok {
		fillSilence(dst, c.cachedSilenceByte)
		return len(dst)
	}
	defer tk.Exit()

	if remaining := atomic.LoadInt32(&c.silenceRemaining); remaining > 0 {
		fillSilence(dst, c.cachedSilenceByte)
		left := atomic.AddInt32(&c.silenceRemaining, -1)
		if left <= 0 && atomic.LoadInt32(&c.draining) != 0 {
			atomic.StoreInt32(&c.draining, 0)
			atomic.StoreInt32(&c.state, int32(Stopped))
		}
		return len(dst)
	}

	if atomic.LoadInt32(&c.stopRequested) != 0 {
		fillSilence(dst, c.cachedSilenceByte)
		return len(dst)
	}

	if atomic.LoadInt32(&c.prefillComplete) == 0 {
		fillSilence(dst, c.cachedSilenceByte)
		return len(dst)
	}

	if atomic.LoadInt32(&c.warmupComplete) == 0 {
		c.warmupCounter++
		if c.warmupCounter >= c.cachedWarmupTarget {
			atomic.StoreInt32(&c.warmupComplete, 1)
			c.warmupCounter = 0
			atomic.StoreInt32(&c.state, int32(Running))
			if c.hotlog != nil {
				c.hotlog.Info("warmup complete", "buffers", fmt.Sprint(c.cachedWarmupTarget))
			}
		}
		fillSilence(dst, c.cachedSilenceByte)
		return len(dst)
	}

	available := c.ring.Len()
	if available < len(dst) {
		n := atomic.AddUint64(&c.underrunCount, 1)
		if c.hotlog != nil {
			c.hotlog.Warn("underrun", "count", fmt.Sprint(n))
		}
		fillSilence(dst, c.cachedSilenceByte)
		return len(dst)
	}

	c.ring.Pop(dst)
	return len(dst)
}

func fillSilence(dst []byte, b byte) {
	for i := range dst {
		dst[i] = b
	}
}

// RequestDrain transitions Running into Draining(k): the next k
// fill_buffer calls emit silence, after which the state becomes Stopped.
func (c *Core) RequestDrain(k int) {
	atomic.StoreInt32(&c.silenceRemaining, int32(k))
	atomic.StoreInt32(&c.draining, 1)
	atomic.CompareAndSwapInt32(&c.state, int32(Running), int32(Draining))
	atomic.CompareAndSwapInt32(&c.state, int32(Warmup), int32(Draining))
}

// Stop requests playback stop. If immediate is true the state moves
// straight to Stopped; otherwise the caller is expected to have already
// issued a RequestDrain and Stop only marks stop_requested so a concurrent
// push_audio short-circuits.
func (c *Core) Stop(immediate bool) {
	atomic.StoreInt32(&c.stopRequested, 1)
	if immediate {
		atomic.StoreInt32(&c.state, int32(Stopped))
	}
}

// State reports the current best-effort PlaybackState.
func (c *Core) State() PlaybackState {
	return PlaybackState(atomic.LoadInt32(&c.state))
}

// DrainUnderrunCount atomically exchanges the underrun counter to zero and
// returns the count observed since the last call, matching
// stop_playback()'s "drain and report" contract.
func (c *Core) DrainUnderrunCount() uint64 {
	return atomic.SwapUint64(&c.underrunCount, 0)
}

// RingLen exposes the ring's current available byte count, for status
// reporting and tests.
func (c *Core) RingLen() int {
	return c.ring.Len()
}

// RingCap exposes the ring's current byte capacity.
func (c *Core) RingCap() int {
	return c.ring.Cap()
}
