package spectrogram

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// lutSize is the number of discrete colors in a colormap, matching the
// 8-bit lookup tables of common plotting libraries.
const lutSize = 256

// Colormap maps normalized values in [0, 1] to colors.
type Colormap struct {
	name string
	lut  [lutSize]color.RGBA
}

// NewColormap builds a colormap by linear RGB interpolation between evenly
// spaced hex color stops. It panics if fewer than two stops are given or a
// stop is not a valid hex color.
func NewColormap(name string, stops ...string) *Colormap {
	if len(stops) < 2 {
		panic("spectrogram: colormap needs at least two stops")
	}
	cs := make([]colorful.Color, len(stops))
	for i, s := range stops {
		c, err := colorful.Hex(s)
		if err != nil {
			panic("spectrogram: bad color stop " + s)
		}
		cs[i] = c
	}

	cm := &Colormap{name: name}
	segments := float64(len(cs) - 1)
	for i := range lutSize {
		pos := float64(i) / (lutSize - 1) * segments
		seg := int(pos)
		if seg >= len(cs)-1 {
			seg = len(cs) - 2
		}
		r, g, b := cs[seg].BlendRgb(cs[seg+1], pos-float64(seg)).Clamped().RGB255()
		cm.lut[i] = color.RGBA{R: r, G: g, B: b, A: 0xff}
	}
	return cm
}

// Name returns the colormap name.
func (c *Colormap) Name() string { return c.name }

// At returns the color for v, clamped to [0, 1].
func (c *Colormap) At(v float64) color.RGBA {
	idx := int(v * lutSize)
	if idx < 0 || v != v {
		idx = 0
	}
	if idx >= lutSize {
		idx = lutSize - 1
	}
	return c.lut[idx]
}

var (
	// Magma is the perceptually uniform sequential map used for
	// spectrograms whose values are all at or below zero.
	Magma = NewColormap("magma",
		"#000004", "#140e36", "#3b0f70", "#641a80", "#8c2981", "#b73779",
		"#de4968", "#f7705c", "#fe9f6d", "#fecf92", "#fcfdbf")

	// Gray maps low values to black and high values to white.
	Gray = NewColormap("gray", "#000000", "#ffffff")
)

// ColormapByName returns a registered colormap.
func ColormapByName(name string) (*Colormap, bool) {
	switch name {
	case "", "magma":
		return Magma, true
	case "gray":
		return Gray, true
	}
	return nil, false
}
