// Package orchestrator implements the Transition Orchestrator: classifying
// a format transition and dispatching the quick-resume, reopen, or full
// rebuild sequence the Sync Core and the downstream sink require.
package orchestrator

import "direttarenderer/internal/core"

// Class is the TrackBoundary classification of a (old, new) format pair.
type Class int

const (
	SameFormat Class = iota
	PcmRateChange
	DsdRateChange
	DsdToPcm
	PcmToDsd
	BitDepthOnly
)

func (c Class) String() string {
	switch c {
	case SameFormat:
		return "SameFormat"
	case PcmRateChange:
		return "PcmRateChange"
	case DsdRateChange:
		return "DsdRateChange"
	case DsdToPcm:
		return "DsdToPcm"
	case PcmToDsd:
		return "PcmToDsd"
	case BitDepthOnly:
		return "BitDepthOnly"
	default:
		return "Unknown"
	}
}

// pcmFamily44_1 rates share a 44.1kHz-derived clock; pcmFamily48 rates
// share a 48kHz-derived one. A rate change within the same family is a
// lighter transition than one crossing families.
var pcmFamily44_1 = map[uint32]bool{44100: true, 88200: true, 176400: true, 352800: true}
var pcmFamily48 = map[uint32]bool{48000: true, 96000: true, 192000: true, 384000: true}

func pcmSameFamily(a, b uint32) bool {
	if pcmFamily44_1[a] && pcmFamily44_1[b] {
		return true
	}
	if pcmFamily48[a] && pcmFamily48[b] {
		return true
	}
	return false
}

// dsdSameFamily mirrors pcmSameFamily for the two common DSD clock grids:
// the 2.8224MHz-derived one (DSD64/128/256/512) and the 3.072MHz-derived
// "quad rate" grid some sinks expose.
func dsdSameFamily(a, b uint32) bool {
	fam := func(r uint32) int {
		switch {
		case r%2_822_400 == 0:
			return 1
		case r%3_072_000 == 0:
			return 2
		default:
			return 0
		}
	}
	fa, fb := fam(a), fam(b)
	return fa != 0 && fa == fb
}

// Classify compares old against next, returning the class plus whether old
// and next are in the same clock family (meaningful only for the two
// rate-change classes; ignored otherwise). old == nil signals first open,
// which the caller must check for before consulting Class.
func Classify(old *core.Format, next core.Format) (class Class, sameFamily bool) {
	if old == nil {
		return SameFormat, true // caller must check IsFirstOpen itself
	}

	if old.IsDSD != next.IsDSD {
		if next.IsDSD {
			return PcmToDsd, false
		}
		return DsdToPcm, false
	}

	if old.IsDSD {
		if old.SampleRate != next.SampleRate {
			return DsdRateChange, dsdSameFamily(old.SampleRate, next.SampleRate)
		}
	} else if old.SampleRate != next.SampleRate {
		return PcmRateChange, pcmSameFamily(old.SampleRate, next.SampleRate)
	}

	if old.BitDepth != next.BitDepth || old.Channels != next.Channels {
		return BitDepthOnly, true
	}

	return SameFormat, true
}

// Action is the dispatch decision produced from a Class.
type Action int

const (
	ActionFirstOpen Action = iota
	ActionSameFormat
	ActionReopen
	ActionFullRebuild
)

// DispatchAction maps a classification to the action the orchestrator runs.
// conservative enables treating a same-family rate change as a Reopen
// rather than a FullRebuild, per §4.5's "under conservative policy" clause.
func DispatchAction(isFirstOpen bool, class Class, sameFamily bool, conservative bool) Action {
	if isFirstOpen {
		return ActionFirstOpen
	}
	switch class {
	case SameFormat:
		return ActionSameFormat
	case BitDepthOnly:
		return ActionReopen
	case PcmRateChange, DsdRateChange:
		if conservative && sameFamily {
			return ActionReopen
		}
		return ActionFullRebuild
	case DsdToPcm, PcmToDsd:
		return ActionFullRebuild
	default:
		return ActionFullRebuild
	}
}
