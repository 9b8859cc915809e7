// Package resampler converts whole mono waveforms between sample rates.
//
// It wraps the pure Go resampler from github.com/tphakala/go-audio-resampling
// and works on normalized float64 samples in [-1, 1], which is the
// representation used by the feature pipeline. Channel reduction is done
// before resampling with [Downmix].
//
// Example usage:
//
//	mono := resampler.Downmix(interleaved, 2)
//	out, err := resampler.Resample(mono, 44100, 22050)
package resampler
