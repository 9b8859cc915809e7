// Package signal generates synthetic waveforms and encodes them as WAV.
//
// It backs the self-test of the feature pipeline and the fixtures used by
// package tests: a reproducible sine, silence or seeded noise clip rendered
// into a real RIFF/WAVE container.
package signal

import (
	"errors"
	"io"
	"math"
	"math/rand/v2"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Sine generates n samples of a sine wave with the given amplitude.
func Sine(freq, amplitude float64, n, sampleRate int) []float64 {
	s := make([]float64, n)
	for i := range s {
		t := float64(i) / float64(sampleRate)
		s[i] = amplitude * math.Sin(2*math.Pi*freq*t)
	}
	return s
}

// Silence returns n zero samples.
func Silence(n int) []float64 {
	return make([]float64, n)
}

// Noise returns n samples of uniform noise in [-amplitude, amplitude]. The
// same seed always yields the same samples.
func Noise(amplitude float64, n int, seed uint64) []float64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s := make([]float64, n)
	for i := range s {
		s[i] = amplitude * (2*r.Float64() - 1)
	}
	return s
}

// Interleave duplicates a mono signal into the given number of channels.
func Interleave(mono []float64, channels int) []float64 {
	if channels <= 1 {
		return mono
	}
	out := make([]float64, len(mono)*channels)
	for i, v := range mono {
		for c := range channels {
			out[i*channels+c] = v
		}
	}
	return out
}

// EncodeWAV encodes interleaved samples in [-1, 1] as 16-bit PCM WAV.
func EncodeWAV(samples []float64, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, errors.New("signal: invalid format")
	}
	ints := make([]int, len(samples))
	for i, v := range samples {
		v = math.Max(-1, math.Min(1, v))
		ints[i] = int(math.Round(v * 32767))
	}

	ws := &writeSeeker{}
	enc := wav.NewEncoder(ws, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return ws.buf, nil
}

// writeSeeker is an in-memory io.WriteSeeker; the WAV encoder seeks back
// to patch chunk sizes on Close.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	end := w.pos + len(p)
	if end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	copy(w.buf[w.pos:], p)
	w.pos = end
	return len(p), nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("signal: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("signal: negative position")
	}
	w.pos = int(abs)
	return abs, nil
}
