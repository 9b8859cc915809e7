package resampler

import (
	"errors"
	"fmt"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// ErrInvalidRate is returned when a sample rate is not positive.
var ErrInvalidRate = errors.New("resampler: sample rate must be positive")

// tailPad is the number of zero samples fed after the input so the filter
// delay line is flushed into the output. Another tenth of a second of the
// source rate is added to cover the alignment shift.
const tailPad = 1024

// offsets caches the alignment shift per [from, to] rate pair.
var offsets sync.Map

// Resample converts mono samples from rate from to rate to. The result has
// exactly round(len(samples) * to / from) samples and input sample i lands
// at output sample round(i * to / from). When the rates are equal the input
// is copied unchanged.
func Resample(samples []float64, from, to int) ([]float64, error) {
	if from <= 0 || to <= 0 {
		return nil, ErrInvalidRate
	}
	if len(samples) == 0 {
		return []float64{}, nil
	}
	if from == to {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	shift, err := offset(from, to)
	if err != nil {
		return nil, err
	}
	output, err := run(samples, from, to)
	if err != nil {
		return nil, err
	}
	if shift > 0 {
		output = append(make([]float64, shift, shift+len(output)), output...)
	} else if -shift < len(output) {
		output = output[-shift:]
	} else {
		output = nil
	}

	want := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	if len(output) >= want {
		return output[:want], nil
	}
	// The filter may still hold a few samples; the missing tail is silence.
	out := make([]float64, want)
	copy(out, output)
	return out, nil
}

// offset returns how many samples the raw resampler output must be delayed
// so that it lines up with the input. It is measured once per rate pair by
// resampling a unit impulse placed one second in, whose aligned position is
// exactly sample `to`.
func offset(from, to int) (int, error) {
	key := [2]int{from, to}
	if v, ok := offsets.Load(key); ok {
		return v.(int), nil
	}
	impulse := make([]float64, 2*from)
	impulse[from] = 1
	out, err := run(impulse, from, to)
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, errors.New("resampler: no output for alignment impulse")
	}
	peak := 0
	for i, v := range out {
		if math.Abs(v) > math.Abs(out[peak]) {
			peak = i
		}
	}
	shift := to - peak
	offsets.Store(key, shift)
	return shift, nil
}

func run(samples []float64, from, to int) ([]float64, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create: %w", err)
	}

	input := make([]float64, len(samples)+tailPad+from/10)
	copy(input, samples)

	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}
	return output, nil
}

// Downmix averages interleaved channels into a single mono channel. A
// trailing partial frame is dropped.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	inv := 1 / float64(channels)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum * inv
	}
	return out
}
