// Package convert implements the stateless sample-conversion kernels the
// Sync Core dispatches in its hot path: DSD planar-to-interleaved framing
// with optional bit-reversal and byte-swap, and PCM copy/pack/upsample.
//
// Every kernel shares the contract convert(dst, src, channels, bytesPerSample)
// → bytesWritten. Kernels are pure functions with no internal state and no
// conditional branch on conversion policy — the policy is the choice of
// which function is in the dispatch table, not a flag checked inside it.
package convert

// Mode selects one converter from the dispatch table. The Sync Core caches
// the selected Mode at track-open and looks it up once per generation, never
// branching on format inside push_audio's hot loop.
type Mode int

const (
	DSD_Passthrough Mode = iota
	DSD_BitReverse
	DSD_ByteSwap
	DSD_BitReverseAndSwap
	PCM_Copy
	PCM_Pack24
	PCM_Upsample16To32
)

// Func is the shape every conversion kernel satisfies. channels and
// bytesPerSample describe the source format; bytesPerSample is ignored by
// the DSD kernels, which are always one bit per channel per clock.
type Func func(dst, src []byte, channels, bytesPerSample int) (bytesWritten int)

// Table dispatches a Mode to its Func without any conditional on the mode
// inside the call path — the caller indexes once and invokes the result.
var Table = [...]Func{
	DSD_Passthrough:       dsdPassthrough,
	DSD_BitReverse:        dsdBitReverse,
	DSD_ByteSwap:          dsdByteSwap,
	DSD_BitReverseAndSwap: dsdBitReverseAndSwap,
	PCM_Copy:              pcmCopy,
	PCM_Pack24:            pcmPack24,
	PCM_Upsample16To32:    pcmUpsample16To32,
}

// dsdFrame is the number of source bytes consumed per channel per
// interleave group (matches the sink's frame unit).
const dsdFrame = 4

// reverseBitsTable is the precomputed 256-entry per-byte bit-reversal
// lookup, built once at package init so every DSD_BitReverse* call shares a
// single cache-resident table instead of recomputing the reversal.
var reverseBitsTable [256]byte

func init() {
	for i := 0; i < 256; i++ {
		b := byte(i)
		var r byte
		for bit := 0; bit < 8; bit++ {
			r <<= 1
			r |= b & 1
			b >>= 1
		}
		reverseBitsTable[i] = r
	}
}

// dsdGroups returns the number of complete dsdFrame-byte groups per channel
// plane available in a planar src buffer of the given channel count.
func dsdGroups(src []byte, channels int) int {
	if channels <= 0 {
		return 0
	}
	planeLen := len(src) / channels
	return planeLen / dsdFrame
}

// dsdPassthrough interleaves per-channel planes in src (channel 0's plane,
// then channel 1's, ... concatenated) into groups of dsdFrame bytes per
// channel in dst, with no bit or byte transform.
func dsdPassthrough(dst, src []byte, channels, _ int) int {
	groups := dsdGroups(src, channels)
	if groups == 0 {
		return 0
	}
	planeLen := len(src) / channels
	out := 0
	for g := 0; g < groups; g++ {
		for ch := 0; ch < channels; ch++ {
			plane := src[ch*planeLen : (ch+1)*planeLen]
			copy(dst[out:out+dsdFrame], plane[g*dsdFrame:g*dsdFrame+dsdFrame])
			out += dsdFrame
		}
	}
	return out
}

// dsdBitReverse is DSD_Passthrough with each output byte run through the
// per-byte bit-reversal table.
func dsdBitReverse(dst, src []byte, channels, bps int) int {
	n := dsdPassthrough(dst, src, channels, bps)
	for i := 0; i < n; i++ {
		dst[i] = reverseBitsTable[dst[i]]
	}
	return n
}

// dsdByteSwap is DSD_Passthrough with each 4-byte output group reversed
// (byte 0 and byte 3 swapped, byte 1 and byte 2 swapped).
func dsdByteSwap(dst, src []byte, channels, bps int) int {
	n := dsdPassthrough(dst, src, channels, bps)
	swapGroups(dst[:n])
	return n
}

// dsdBitReverseAndSwap composes bit-reversal and group byte-swap; the two
// transforms commute at the byte-group level so either order is correct.
func dsdBitReverseAndSwap(dst, src []byte, channels, bps int) int {
	n := dsdPassthrough(dst, src, channels, bps)
	for i := 0; i < n; i++ {
		dst[i] = reverseBitsTable[dst[i]]
	}
	swapGroups(dst[:n])
	return n
}

func swapGroups(buf []byte) {
	for g := 0; g+dsdFrame <= len(buf); g += dsdFrame {
		buf[g], buf[g+3] = buf[g+3], buf[g]
		buf[g+1], buf[g+2] = buf[g+2], buf[g+1]
	}
}

// pcmCopy is a straight memcpy of whole channels*bytesPerSample frames,
// rounding down and reporting bytes actually written.
func pcmCopy(dst, src []byte, channels, bytesPerSample int) int {
	frame := channels * bytesPerSample
	if frame <= 0 {
		return 0
	}
	n := (len(src) / frame) * frame
	copy(dst[:n], src[:n])
	return n
}

// pcmPack24 packs interleaved 24-in-32 samples (4 bytes per sample, the
// fourth a sign-extension byte) down to 3 packed bytes per sample.
func pcmPack24(dst, src []byte, _, _ int) int {
	samples := len(src) / 4
	for i := 0; i < samples; i++ {
		in := src[i*4 : i*4+4]
		out := dst[i*3 : i*3+3]
		out[0], out[1], out[2] = in[0], in[1], in[2]
	}
	return samples * 3
}

// pcmUpsample16To32 left-shifts each 16-bit sample into a 32-bit slot,
// preserving sign and magnitude: output_i32 = int32(input_i16) << 16.
func pcmUpsample16To32(dst, src []byte, _, _ int) int {
	samples := len(src) / 2
	for i := 0; i < samples; i++ {
		b0, b1 := src[i*2], src[i*2+1]
		out := dst[i*4 : i*4+4]
		out[0], out[1], out[2], out[3] = 0, 0, b0, b1
	}
	return samples * 4
}

// FrameUnit returns the number of input bytes mode treats as one indivisible
// group: dsdFrame bytes per channel plane for the DSD modes, 4 bytes for
// PCM_Pack24, 2 bytes for PCM_Upsample16To32, and channels*bytesPerSample
// for PCM_Copy. A caller buffering input across calls (so a group split
// across two pushes still converts whole) carries forward at most
// FrameUnit-1 leftover bytes.
func FrameUnit(mode Mode, channels, bytesPerSample int) int {
	switch mode {
	case PCM_Pack24:
		return 4
	case PCM_Upsample16To32:
		return 2
	case PCM_Copy:
		frame := channels * bytesPerSample
		if frame <= 0 {
			return 1
		}
		return frame
	default: // the four DSD modes
		if channels <= 0 {
			return dsdFrame
		}
		return dsdFrame * channels
	}
}

// OutputSizeHint returns the number of output bytes mode would produce for
// nInBytes of input, without running the conversion, so a caller can ask
// the ring for exactly that much direct-write space before dispatching.
func OutputSizeHint(mode Mode, nInBytes, channels, bytesPerSample int) int {
	switch mode {
	case PCM_Pack24:
		return (nInBytes / 4) * 3
	case PCM_Upsample16To32:
		return (nInBytes / 2) * 4
	case PCM_Copy:
		frame := channels * bytesPerSample
		if frame <= 0 {
			return 0
		}
		return (nInBytes / frame) * frame
	default: // the four DSD modes rearrange bytes without changing the total
		if channels <= 0 {
			return 0
		}
		planeLen := nInBytes / channels
		groups := planeLen / dsdFrame
		return groups * dsdFrame * channels
	}
}

// Polarity is a DSD source or sink's bit ordering within a byte.
type Polarity int

const (
	PolarityLSB Polarity = iota
	PolarityMSB
)

// Endian is the 4-byte group order a sink requests.
type Endian int

const (
	EndianBig Endian = iota
	EndianLittle
)

// SelectDSDMode classifies a source/sink polarity pairing plus the sink's
// requested group endianness into the one DSD Mode that satisfies both
// without any runtime branch on the hot path. bit_reverse is needed when
// the source and sink disagree on bit polarity; byte_swap is needed
// whenever the sink requests little-endian group order.
func SelectDSDMode(source, sink Polarity, endian Endian) Mode {
	bitReverse := source != sink
	byteSwap := endian == EndianLittle
	switch {
	case bitReverse && byteSwap:
		return DSD_BitReverseAndSwap
	case bitReverse:
		return DSD_BitReverse
	case byteSwap:
		return DSD_ByteSwap
	default:
		return DSD_Passthrough
	}
}
