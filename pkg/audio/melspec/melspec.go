// Package melspec computes log-power mel spectrograms from mono audio.
//
// The front-end reproduces the feature layout the audio classifier was
// trained on. Default parameters:
//
//	SampleRate:  22050
//	FFTSize:     2048 (periodic Hann window)
//	HopSize:      512
//	NumMels:      128 (Slaney scale, Slaney area normalization)
//	FMin:           0
//	FMax:       11025 (SampleRate / 2)
//	TopDB:         80
//
// Frames are centered: the signal is padded with FFTSize/2 zeros on both
// sides, so a clip of n samples yields 1 + n/HopSize frames. Power values
// are converted to decibels relative to the loudest bin of the clip itself,
// so every spectrogram peaks at exactly 0 dB.
package melspec

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// ErrEmpty is returned when there are no samples to analyse.
var ErrEmpty = errors.New("melspec: empty signal")

// Config controls spectrogram extraction parameters.
type Config struct {
	SampleRate int     // audio sample rate in Hz (default 22050)
	FFTSize    int     // FFT and window length in samples (default 2048)
	HopSize    int     // hop length in samples (default 512)
	NumMels    int     // number of mel bands (default 128)
	FMin       float64 // lowest mel frequency in Hz (default 0)
	FMax       float64 // highest mel frequency in Hz, 0 means SampleRate/2
	TopDB      float64 // dynamic range floor below the peak, 0 disables
	AMin       float64 // power floor before taking the log (default 1e-10)
}

// DefaultConfig returns the parameters the audio classifier expects.
func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		FFTSize:    2048,
		HopSize:    512,
		NumMels:    128,
		FMin:       0,
		FMax:       0,
		TopDB:      80,
		AMin:       1e-10,
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("melspec: invalid sample rate %d", c.SampleRate)
	case c.FFTSize <= 1:
		return fmt.Errorf("melspec: invalid FFT size %d", c.FFTSize)
	case c.HopSize <= 0:
		return fmt.Errorf("melspec: invalid hop size %d", c.HopSize)
	case c.NumMels <= 0:
		return fmt.Errorf("melspec: invalid mel band count %d", c.NumMels)
	case c.FMin < 0 || (c.FMax > 0 && c.FMax <= c.FMin):
		return fmt.Errorf("melspec: invalid frequency range [%g, %g]", c.FMin, c.FMax)
	}
	return nil
}

// Spectrogram is a NumMels x NumFrames matrix stored row-major by band.
// Row 0 is the lowest frequency band.
type Spectrogram struct {
	NumMels   int
	NumFrames int
	Data      []float64
}

// At returns the value of band mel at frame t.
func (s *Spectrogram) At(mel, t int) float64 {
	return s.Data[mel*s.NumFrames+t]
}

// Range returns the smallest and largest values in the spectrogram.
func (s *Spectrogram) Range() (lo, hi float64) {
	if len(s.Data) == 0 {
		return 0, 0
	}
	return floats.Min(s.Data), floats.Max(s.Data)
}

// Extractor computes mel spectrograms. It is safe for concurrent use: the
// window and filter bank are read-only, FFT work space is per call.
type Extractor struct {
	cfg     Config
	window  []float64
	melBank [][]float64
}

// New creates an Extractor with the given config.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.FMax == 0 {
		cfg.FMax = float64(cfg.SampleRate) / 2
	}
	if cfg.AMin <= 0 {
		cfg.AMin = 1e-10
	}
	return &Extractor{
		cfg:     cfg,
		window:  hannWindow(cfg.FFTSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.FMin, cfg.FMax),
	}, nil
}

// Config returns the effective configuration.
func (e *Extractor) Config() Config { return e.cfg }

// NumFrames returns the number of frames produced for n samples.
func (e *Extractor) NumFrames(n int) int {
	return 1 + n/e.cfg.HopSize
}

// Power computes the power mel spectrogram of samples.
func (e *Extractor) Power(samples []float64) (*Spectrogram, error) {
	if len(samples) == 0 {
		return nil, ErrEmpty
	}
	cfg := e.cfg
	nfft := cfg.FFTSize
	half := nfft / 2

	// Centered framing with zero padding on both sides.
	padded := make([]float64, len(samples)+nfft)
	copy(padded[half:], samples)

	numFrames := e.NumFrames(len(samples))
	bins := nfft/2 + 1

	spec := &Spectrogram{
		NumMels:   cfg.NumMels,
		NumFrames: numFrames,
		Data:      make([]float64, cfg.NumMels*numFrames),
	}

	fft := fourier.NewFFT(nfft)
	frame := make([]float64, nfft)
	coeffs := make([]complex128, bins)
	power := make([]float64, bins)

	for t := range numFrames {
		start := t * cfg.HopSize
		for i := range nfft {
			frame[i] = padded[start+i] * e.window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			re, im := real(c), imag(c)
			power[k] = re*re + im*im
		}
		for m, filter := range e.melBank {
			spec.Data[m*numFrames+t] = floats.Dot(filter, power)
		}
	}
	return spec, nil
}

// Extract computes the mel spectrogram of samples in decibels relative to
// its own maximum.
func (e *Extractor) Extract(samples []float64) (*Spectrogram, error) {
	spec, err := e.Power(samples)
	if err != nil {
		return nil, err
	}
	PowerToDB(spec, e.cfg.AMin, e.cfg.TopDB)
	for _, v := range spec.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("melspec: non-finite spectrogram value")
		}
	}
	return spec, nil
}

// PowerToDB converts a power spectrogram to decibels in place, using the
// spectrogram's own maximum as the 0 dB reference. Values are floored at
// amin before the log. When topDB is positive, values more than topDB
// below the peak are clipped to peak - topDB.
func PowerToDB(spec *Spectrogram, amin, topDB float64) {
	if len(spec.Data) == 0 {
		return
	}
	ref := math.Max(amin, floats.Max(spec.Data))
	refDB := 10 * math.Log10(ref)

	peak := math.Inf(-1)
	for i, v := range spec.Data {
		db := 10*math.Log10(math.Max(amin, v)) - refDB
		spec.Data[i] = db
		peak = math.Max(peak, db)
	}
	if topDB <= 0 {
		return
	}
	floor := peak - topDB
	for i, v := range spec.Data {
		if v < floor {
			spec.Data[i] = floor
		}
	}
}
