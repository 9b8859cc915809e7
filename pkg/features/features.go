// Package features turns encoded audio clips into classifier input tensors.
//
// The pipeline for one clip:
//
//  1. decode the container and downmix to mono, reading at most Duration
//  2. resample to SampleRate
//  3. truncate or zero-pad to exactly SampleRate x Duration samples
//  4. mel spectrogram in dB relative to the clip's own peak
//  5. render with a colormap as a RenderSize square image
//  6. resize to InputSize, scale to [0, 1], normalize with ImageNet
//     statistics and add a batch dimension: [1, 3, InputSize, InputSize]
//
// Every step is deterministic, so identical bytes yield identical tensors.
// An Extractor is safe for concurrent use.
package features

import (
	"errors"
	"image"

	"github.com/projecthayat/hayat/pkg/audio/decode"
	"github.com/projecthayat/hayat/pkg/audio/melspec"
	"github.com/projecthayat/hayat/pkg/audio/resampler"
	"github.com/projecthayat/hayat/pkg/spectrogram"
	"github.com/projecthayat/hayat/pkg/tensor"
)

// Extractor runs the feature pipeline.
type Extractor struct {
	cfg  Config
	mel  *melspec.Extractor
	cmap *spectrogram.Colormap
}

// New creates an Extractor.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mel, err := melspec.New(cfg.melConfig())
	if err != nil {
		return nil, err
	}
	cmap, _ := spectrogram.ColormapByName(cfg.Colormap)
	return &Extractor{cfg: cfg, mel: mel, cmap: cmap}, nil
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config { return e.cfg }

// Waveform decodes audio and returns exactly NumSamples mono samples at
// SampleRate.
func (e *Extractor) Waveform(audio []byte) ([]float64, error) {
	clip, err := decode.Decode(audio, decode.Options{MaxDuration: e.cfg.Duration})
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if len(clip.Samples) == 0 {
		return nil, &ExtractionError{Stage: "waveform", Err: melspec.ErrEmpty}
	}
	samples, err := resampler.Resample(clip.Samples, clip.Source.SampleRate, e.cfg.SampleRate)
	if err != nil {
		return nil, &ExtractionError{Stage: "resample", Err: err}
	}
	if len(samples) == 0 {
		return nil, &ExtractionError{Stage: "resample", Err: melspec.ErrEmpty}
	}
	return Fix(samples, e.cfg.NumSamples()), nil
}

// Fix truncates samples to n or pads them with trailing zeros (silence) up
// to n. The result never aliases samples.
func Fix(samples []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, samples)
	return out
}

// Spectrogram computes the dB mel spectrogram of a fixed-length waveform.
func (e *Extractor) Spectrogram(waveform []float64) (*melspec.Spectrogram, error) {
	spec, err := e.mel.Extract(waveform)
	if err != nil {
		return nil, &ExtractionError{Stage: "spectrogram", Err: err}
	}
	return spec, nil
}

// Render decodes audio and renders its spectrogram image. This is the
// image the batch converter writes for training.
func (e *Extractor) Render(audio []byte) (*image.RGBA, error) {
	wave, err := e.Waveform(audio)
	if err != nil {
		return nil, err
	}
	return e.RenderWaveform(wave)
}

// RenderWaveform renders the spectrogram image of a fixed-length waveform.
func (e *Extractor) RenderWaveform(waveform []float64) (*image.RGBA, error) {
	spec, err := e.Spectrogram(waveform)
	if err != nil {
		return nil, err
	}
	img, err := spectrogram.Render(spec, e.cfg.RenderSize, e.cfg.RenderSize, e.cmap)
	if err != nil {
		return nil, &ExtractionError{Stage: "render", Err: err}
	}
	return img, nil
}

// Extract runs the full pipeline on an encoded clip. Errors are a
// *DecodeError or an *ExtractionError; a tensor is never returned with an
// error.
func (e *Extractor) Extract(audio []byte) (*tensor.Tensor, error) {
	img, err := e.Render(audio)
	if err != nil {
		return nil, err
	}
	return e.FromImage(img)
}

// FromImage converts a rendered spectrogram into the model input tensor.
func (e *Extractor) FromImage(img image.Image) (*tensor.Tensor, error) {
	t, err := tensor.FromImage(img, e.cfg.preprocess())
	if err != nil {
		return nil, &ExtractionError{Stage: "tensor", Err: err}
	}
	if !tensor.Finite(t.Data) {
		return nil, &ExtractionError{Stage: "tensor", Err: errors.New("non-finite value")}
	}
	return t, nil
}
