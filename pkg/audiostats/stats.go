// Package audiostats provides lightweight RMS/peak/silence measurements
// over PCM sample buffers, adapted from the teacher's pkg/utils/audio.go
// (which computed the same statistics for recorded speech) and reused here
// as a diagnostic aid: wavdump logs these about once per second so a transition
// sequence's silence-insertion behavior can be checked from the log
// output alone.
package audiostats

import "math"

// Stats summarizes one buffer of int16 PCM samples.
type Stats struct {
	RMS           float64
	Peak          int16
	SilentSamples int
	TotalSamples  int
	SilenceRatio  float64
}

// Calculate computes Stats for samples, treating any sample whose absolute
// value is at or below silenceThreshold as silent.
func Calculate(samples []int16, silenceThreshold int16) Stats {
	s := Stats{TotalSamples: len(samples)}
	if len(samples) == 0 {
		return s
	}

	var sum float64
	var peak int16
	silent := 0

	for _, sample := range samples {
		v := float64(sample)
		sum += v * v

		abs := sample
		if abs < 0 {
			abs = -abs
		}
		if abs > peak {
			peak = abs
		}
		if abs <= silenceThreshold {
			silent++
		}
	}

	s.RMS = math.Sqrt(sum / float64(len(samples)))
	s.Peak = peak
	s.SilentSamples = silent
	s.SilenceRatio = float64(silent) / float64(len(samples))
	return s
}

// IsSilent reports whether samples should be considered silence by an RMS
// threshold backed up by a silence-ratio check.
func IsSilent(samples []int16, rmsThreshold, silenceRatioThreshold float64) bool {
	if len(samples) == 0 {
		return true
	}
	if Calculate(samples, 0).RMS < rmsThreshold {
		return true
	}
	threshold := int16(rmsThreshold * 0.5)
	return Calculate(samples, threshold).SilenceRatio > silenceRatioThreshold
}
