package spectrogram

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/projecthayat/hayat/pkg/audio/melspec"
)

func TestColormap_Endpoints(t *testing.T) {
	if got := Magma.At(0); got != (color.RGBA{0x00, 0x00, 0x04, 0xff}) {
		t.Errorf("Magma.At(0) = %v", got)
	}
	if got := Magma.At(1); got != (color.RGBA{0xfc, 0xfd, 0xbf, 0xff}) {
		t.Errorf("Magma.At(1) = %v", got)
	}
	if Magma.At(-3) != Magma.At(0) || Magma.At(7) != Magma.At(1) {
		t.Error("out-of-range values are not clamped")
	}
}

func TestColormap_Monotonic(t *testing.T) {
	// Magma brightens steadily; luminance proxy must not decrease much.
	prev := -1
	for i := 0; i <= 10; i++ {
		c := Magma.At(float64(i) / 10)
		lum := int(c.R) + int(c.G) + int(c.B)
		if lum < prev-5 {
			t.Errorf("luminance dropped at %d: %d < %d", i, lum, prev)
		}
		prev = lum
	}
}

func TestColormapByName(t *testing.T) {
	if cm, ok := ColormapByName("gray"); !ok || cm.Name() != "gray" {
		t.Errorf("gray lookup = %v, %v", cm, ok)
	}
	if cm, ok := ColormapByName(""); !ok || cm != Magma {
		t.Errorf("default lookup = %v, %v", cm, ok)
	}
	if _, ok := ColormapByName("jet"); ok {
		t.Error("unexpected colormap jet")
	}
}

func TestRender_Orientation(t *testing.T) {
	// Two bands, two frames: low band loud, high band quiet.
	spec := &melspec.Spectrogram{
		NumMels:   2,
		NumFrames: 2,
		Data:      []float64{0, 0, -80, -80},
	}
	img, err := Render(spec, 4, 4, Gray)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	top := img.RGBAAt(0, 0)
	bottom := img.RGBAAt(0, 3)
	if top.R != 0 {
		t.Errorf("top pixel = %v, want black (quiet high band)", top)
	}
	if bottom.R != 0xff {
		t.Errorf("bottom pixel = %v, want white (loud low band)", bottom)
	}
}

func TestRender_FlatSpectrogram(t *testing.T) {
	spec := &melspec.Spectrogram{NumMels: 3, NumFrames: 3, Data: make([]float64, 9)}
	img, err := Render(spec, 8, 8, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := Magma.At(0)
	for y := range 8 {
		for x := range 8 {
			if got := img.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestRender_Invalid(t *testing.T) {
	if _, err := Render(nil, 10, 10, nil); err == nil {
		t.Error("expected error for nil spectrogram")
	}
	spec := &melspec.Spectrogram{NumMels: 1, NumFrames: 1, Data: []float64{0}}
	if _, err := Render(spec, 0, 10, nil); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestPNG(t *testing.T) {
	spec := &melspec.Spectrogram{NumMels: 2, NumFrames: 2, Data: []float64{0, -10, -20, -30}}
	img, _ := Render(spec, 16, 16, nil)
	data, err := PNG(img)
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Errorf("bounds = %v, want 16x16", b)
	}
}
