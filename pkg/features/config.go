package features

import (
	"fmt"
	"time"

	"github.com/projecthayat/hayat/pkg/audio/melspec"
	"github.com/projecthayat/hayat/pkg/spectrogram"
	"github.com/projecthayat/hayat/pkg/tensor"
)

// Config holds every parameter of the audio feature pipeline. The live
// extractor and the batch spectrogram converter must share one Config, or
// the images a model was trained on will not match what it sees at
// inference time.
type Config struct {
	SampleRate int           `mapstructure:"sample_rate" yaml:"sample_rate"`
	Duration   time.Duration `mapstructure:"duration" yaml:"duration"`
	NumMels    int           `mapstructure:"n_mels" yaml:"n_mels"`
	FFTSize    int           `mapstructure:"n_fft" yaml:"n_fft"`
	HopSize    int           `mapstructure:"hop_length" yaml:"hop_length"`
	TopDB      float64       `mapstructure:"top_db" yaml:"top_db"`
	Colormap   string        `mapstructure:"colormap" yaml:"colormap"`
	RenderSize int           `mapstructure:"render_size" yaml:"render_size"`
	InputSize  int           `mapstructure:"input_size" yaml:"input_size"`
}

// DefaultConfig returns the parameters the audio classifier was trained
// with: 3 s at 22050 Hz, 128 mel bands, 224x224 magma images.
func DefaultConfig() Config {
	mel := melspec.DefaultConfig()
	return Config{
		SampleRate: mel.SampleRate,
		Duration:   3 * time.Second,
		NumMels:    mel.NumMels,
		FFTSize:    mel.FFTSize,
		HopSize:    mel.HopSize,
		TopDB:      mel.TopDB,
		Colormap:   "magma",
		RenderSize: 224,
		InputSize:  224,
	}
}

// NumSamples returns the fixed waveform length, SampleRate x Duration.
func (c Config) NumSamples() int {
	return int(int64(c.SampleRate) * int64(c.Duration) / int64(time.Second))
}

// InputShape returns the shape of the tensors produced by the extractor.
func (c Config) InputShape() []int64 {
	return []int64{1, 3, int64(c.InputSize), int64(c.InputSize)}
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("features: invalid sample rate %d", c.SampleRate)
	}
	if c.NumSamples() <= 0 {
		return fmt.Errorf("features: invalid duration %v", c.Duration)
	}
	if c.RenderSize <= 0 || c.InputSize <= 0 {
		return fmt.Errorf("features: invalid image size render=%d input=%d", c.RenderSize, c.InputSize)
	}
	if _, ok := spectrogram.ColormapByName(c.Colormap); !ok {
		return fmt.Errorf("features: unknown colormap %q", c.Colormap)
	}
	return c.melConfig().Validate()
}

func (c Config) melConfig() melspec.Config {
	mel := melspec.DefaultConfig()
	mel.SampleRate = c.SampleRate
	mel.NumMels = c.NumMels
	mel.FFTSize = c.FFTSize
	mel.HopSize = c.HopSize
	mel.TopDB = c.TopDB
	return mel
}

func (c Config) preprocess() tensor.Preprocess {
	return tensor.ImageNet(c.InputSize)
}
