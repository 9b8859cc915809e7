// Package spectrogram renders mel spectrograms as flat raster images.
//
// The rendering matches what the audio classifier was trained on: the full
// dB range of the clip is stretched over the colormap, each spectrogram
// cell becomes a solid block of pixels (no interpolation, no axes, no
// margins), and low frequencies are at the bottom of the image.
package spectrogram

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/projecthayat/hayat/pkg/audio/melspec"
)

// Render draws spec into a width x height RGBA image with cm. A nil
// colormap means Magma. A spectrogram with no dynamic range renders as the
// lowest color.
func Render(spec *melspec.Spectrogram, width, height int, cm *Colormap) (*image.RGBA, error) {
	if spec == nil || spec.NumMels <= 0 || spec.NumFrames <= 0 || len(spec.Data) != spec.NumMels*spec.NumFrames {
		return nil, fmt.Errorf("spectrogram: invalid spectrogram")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("spectrogram: invalid size %dx%d", width, height)
	}
	if cm == nil {
		cm = Magma
	}

	lo, hi := spec.Range()
	span := hi - lo

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	cols := make([]int, width)
	for x := range width {
		cols[x] = x * spec.NumFrames / width
	}
	for y := range height {
		// Image row 0 is the top, which holds the highest band.
		mel := spec.NumMels - 1 - y*spec.NumMels/height
		row := spec.Data[mel*spec.NumFrames : (mel+1)*spec.NumFrames]
		off := y * img.Stride
		for x := range width {
			v := 0.0
			if span > 0 {
				v = (row[cols[x]] - lo) / span
			}
			c := cm.At(v)
			img.Pix[off+4*x+0] = c.R
			img.Pix[off+4*x+1] = c.G
			img.Pix[off+4*x+2] = c.B
			img.Pix[off+4*x+3] = c.A
		}
	}
	return img, nil
}

// EncodePNG writes img as PNG to w.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("spectrogram: encode png: %w", err)
	}
	return nil
}

// PNG returns img encoded as PNG.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
