// Package decode turns encoded audio clips into mono float64 waveforms.
//
// The container is sniffed from the leading bytes, so callers do not need
// to trust a filename or content type. Supported containers:
//
//   - WAV (PCM, 8/16/24/32-bit) via github.com/go-audio/wav
//   - MP3 via github.com/hajimehoshi/go-mp3
//   - Ogg Vorbis via github.com/jfreymuth/oggvorbis
//
// Multi-channel audio is downmixed by averaging channels. Decoding can be
// bounded to a leading window with [Options.MaxDuration] so long uploads do
// not cost more than the part that will be analysed.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/wav"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"github.com/h2non/filetype/types"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/projecthayat/hayat/pkg/audio/resampler"
)

var (
	// ErrEmpty is returned for an empty payload. A well-formed stream that
	// holds no samples decodes to an Audio with no Samples.
	ErrEmpty = errors.New("decode: no audio data")

	// ErrUnsupported is returned when the container is not recognized.
	ErrUnsupported = errors.New("decode: unsupported audio format")
)

// Audio is a decoded mono clip.
type Audio struct {
	// Samples holds mono samples normalized to [-1, 1].
	Samples []float64

	// Source is the layout of the encoded stream before downmixing.
	Source resampler.Format

	// Container names the detected container ("wav", "mp3", "ogg").
	Container string
}

// Duration returns the length of the decoded clip.
func (a *Audio) Duration() time.Duration {
	if a.Source.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(a.Samples)) / float64(a.Source.SampleRate) * float64(time.Second))
}

// Options controls decoding.
type Options struct {
	// MaxDuration bounds the decoded window. Zero decodes everything.
	MaxDuration time.Duration
}

// Decode sniffs the container of data and decodes it to mono.
func Decode(data []byte, opts Options) (*Audio, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	kind, _ := filetype.Match(data)
	var (
		a   *Audio
		err error
	)
	switch kind {
	case matchers.TypeWav:
		a, err = decodeWAV(data, opts)
	case matchers.TypeMp3:
		a, err = decodeMP3(data, opts)
	case matchers.TypeOgg:
		a, err = decodeOgg(data, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, describe(kind))
	}
	if err != nil {
		return nil, err
	}
	for _, s := range a.Samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("decode: %s stream contains non-finite samples", a.Container)
		}
	}
	return a, nil
}

func describe(kind types.Type) string {
	if kind == filetype.Unknown {
		return "unknown"
	}
	return kind.MIME.Value
}

// maxFrames converts the duration bound to a frame count; -1 means no bound.
func maxFrames(opts Options, rate int) int {
	if opts.MaxDuration <= 0 || rate <= 0 {
		return -1
	}
	return int(math.Ceil(opts.MaxDuration.Seconds() * float64(rate)))
}

func decodeWAV(data []byte, opts Options) (*Audio, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, errors.New("decode: invalid WAV file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: read WAV: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, errors.New("decode: WAV file has no format chunk")
	}

	format := resampler.Format{SampleRate: buf.Format.SampleRate, Channels: buf.Format.NumChannels}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("decode: invalid WAV format %d Hz, %d channels", format.SampleRate, format.Channels)
	}

	depth := int(d.BitDepth)
	if depth == 0 {
		depth = buf.SourceBitDepth
	}
	if depth <= 0 || depth > 32 {
		return nil, fmt.Errorf("decode: unsupported WAV bit depth %d", depth)
	}

	ints := buf.Data
	if n := maxFrames(opts, format.SampleRate); n >= 0 && n*format.Channels < len(ints) {
		ints = ints[:n*format.Channels]
	}

	samples := make([]float64, len(ints))
	if depth == 8 {
		// 8-bit WAV is unsigned.
		for i, v := range ints {
			samples[i] = float64(v-128) / 128
		}
	} else {
		scale := 1 / float64(int64(1)<<(depth-1))
		for i, v := range ints {
			samples[i] = float64(v) * scale
		}
	}

	return &Audio{
		Samples:   resampler.Downmix(samples, format.Channels),
		Source:    format,
		Container: "wav",
	}, nil
}

func decodeMP3(data []byte, opts Options) (*Audio, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: open MP3: %w", err)
	}
	// go-mp3 always produces 16-bit little-endian stereo.
	format := resampler.Format{SampleRate: d.SampleRate(), Channels: 2}

	var r io.Reader = d
	if n := maxFrames(opts, format.SampleRate); n >= 0 {
		r = io.LimitReader(d, int64(n)*4)
	}
	pcm, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode: read MP3: %w", err)
	}

	n := len(pcm) / 2
	samples := make([]float64, n)
	for i := range n {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		samples[i] = float64(s) / 32768
	}

	return &Audio{
		Samples:   resampler.Downmix(samples, format.Channels),
		Source:    format,
		Container: "mp3",
	}, nil
}

func decodeOgg(data []byte, opts Options) (*Audio, error) {
	pcm, f, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: read Ogg Vorbis: %w", err)
	}
	format := resampler.Format{SampleRate: f.SampleRate, Channels: f.Channels}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("decode: invalid Ogg format %d Hz, %d channels", format.SampleRate, format.Channels)
	}
	if n := maxFrames(opts, format.SampleRate); n >= 0 && n*format.Channels < len(pcm) {
		pcm = pcm[:n*format.Channels]
	}

	samples := make([]float64, len(pcm))
	for i, v := range pcm {
		samples[i] = float64(v)
	}

	return &Audio{
		Samples:   resampler.Downmix(samples, format.Channels),
		Source:    format,
		Container: "ogg",
	}, nil
}
