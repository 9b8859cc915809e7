package tensor

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ImageNet channel statistics.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocess describes how an image becomes a model input.
type Preprocess struct {
	// Width and Height of the model input.
	Width, Height int

	// Mean and Std are per-channel (RGB) normalization statistics applied
	// after scaling to [0, 1].
	Mean, Std [3]float32
}

// ImageNet returns a size x size preprocessing with ImageNet statistics.
func ImageNet(size int) Preprocess {
	return Preprocess{Width: size, Height: size, Mean: ImageNetMean, Std: ImageNetStd}
}

// Unit returns a size x size preprocessing that only scales to [0, 1].
func Unit(size int) Preprocess {
	return Preprocess{Width: size, Height: size, Std: [3]float32{1, 1, 1}}
}

// Validate checks that the preprocessing is usable.
func (p Preprocess) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("tensor: invalid input size %dx%d", p.Width, p.Height)
	}
	for c, s := range p.Std {
		if s == 0 {
			return fmt.Errorf("tensor: zero std for channel %d", c)
		}
	}
	return nil
}

// Resize scales img to exactly w x h with bilinear filtering. An image that
// already has the target size is returned as RGBA without resampling.
func Resize(img image.Image, w, h int) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// FromImage resizes img, scales channels to [0, 1], normalizes them and
// returns a [1, 3, H, W] tensor in channel-major order. Alpha is dropped;
// grayscale images are replicated to three channels.
func FromImage(img image.Image, p Preprocess) (*Tensor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("tensor: empty image")
	}
	rgba := Resize(img, p.Width, p.Height)

	w, h := p.Width, p.Height
	plane := w * h
	t := New(1, 3, int64(h), int64(w))
	for y := range h {
		row := rgba.Pix[y*rgba.Stride:]
		for x := range w {
			px := row[4*x : 4*x+3]
			i := y*w + x
			for c := range 3 {
				v := float32(px[c]) / 255
				t.Data[c*plane+i] = (v - p.Mean[c]) / p.Std[c]
			}
		}
	}
	return t, nil
}
