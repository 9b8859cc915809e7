package classifier

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/projecthayat/hayat/pkg/tensor"
)

func fixed(out ...float32) Runner {
	return RunnerFunc(func(*tensor.Tensor) ([]float32, error) { return out, nil })
}

func input() *tensor.Tensor { return tensor.New(1, 3, 224, 224) }

func TestAudio_ScreamFromLogits(t *testing.T) {
	m, err := NewAudio(fixed(0, 1), Metadata{})
	if err != nil {
		t.Fatalf("NewAudio: %v", err)
	}
	p, err := m.Classify(context.Background(), input())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if p.Label != "SCREAM" || p.Index != 1 {
		t.Errorf("prediction = %s (%d), want SCREAM (1)", p.Label, p.Index)
	}
	if math.Abs(float64(p.Confidence)-0.7311) > 1e-3 {
		t.Errorf("confidence = %f, want ~0.7311", p.Confidence)
	}
	sum := p.Probabilities[0] + p.Probabilities[1]
	if math.Abs(float64(sum)-1) > 1e-6 {
		t.Errorf("probabilities sum = %f, want 1", sum)
	}
}

func TestAudio_NoiseFromLogits(t *testing.T) {
	m, _ := NewAudio(fixed(2.5, -1), Metadata{})
	p, err := m.Classify(context.Background(), input())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if p.Label != "NOISE" || p.Index != 0 {
		t.Errorf("prediction = %s (%d), want NOISE (0)", p.Label, p.Index)
	}
}

func TestAudio_LabelOrder(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		ok     bool
	}{
		{name: "default", labels: nil, ok: true},
		{name: "training folders", labels: []string{"noise", "screams"}, ok: true},
		{name: "upper case", labels: []string{"NOISE", "SCREAM"}, ok: true},
		{name: "swapped", labels: []string{"screams", "noise"}, ok: false},
		{name: "three classes", labels: []string{"noise", "scream", "music"}, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAudio(fixed(0, 1), Metadata{Labels: tt.labels})
			var le *LabelOrderError
			if tt.ok && err != nil {
				t.Errorf("NewAudio: %v", err)
			}
			if !tt.ok && !errors.As(err, &le) {
				t.Errorf("err = %v, want *LabelOrderError", err)
			}
		})
	}
}

func TestVision_TopOne(t *testing.T) {
	m, err := NewVision(fixed(0.92, 0.08), Metadata{})
	if err != nil {
		t.Fatalf("NewVision: %v", err)
	}
	p, err := m.Classify(context.Background(), input())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if p.Label != "DAMAGED" {
		t.Errorf("label = %s, want DAMAGED", p.Label)
	}
	if p.Confidence != 0.92 {
		t.Errorf("confidence = %f, want 0.92", p.Confidence)
	}
}

func TestVision_NoThreshold(t *testing.T) {
	m, _ := NewVision(fixed(0.49, 0.51), Metadata{})
	p, _ := m.Classify(context.Background(), input())
	if p.Label != "UNDAMAGED" {
		t.Errorf("label = %s, want UNDAMAGED", p.Label)
	}
}

func TestVision_LogitsMetadata(t *testing.T) {
	soft := true
	m, _ := NewVision(fixed(0, 1), Metadata{Output: OutputMetadata{Softmax: &soft}})
	p, _ := m.Classify(context.Background(), input())
	if math.Abs(float64(p.Confidence)-0.7311) > 1e-3 {
		t.Errorf("confidence = %f, want ~0.7311", p.Confidence)
	}
}

func TestClassify_InferenceErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name   string
		runner Runner
		input  *tensor.Tensor
	}{
		{name: "runner error", runner: RunnerFunc(func(*tensor.Tensor) ([]float32, error) { return nil, boom }), input: input()},
		{name: "wrong length", runner: fixed(1, 2, 3), input: input()},
		{name: "NaN", runner: fixed(float32(math.NaN()), 0), input: input()},
		{name: "panic", runner: RunnerFunc(func(*tensor.Tensor) ([]float32, error) { panic("bad") }), input: input()},
		{name: "nil input", runner: fixed(0, 1), input: nil},
		{name: "wrong shape", runner: fixed(0, 1), input: tensor.New(1, 3, 32, 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewAudio(tt.runner, Metadata{})
			if err != nil {
				t.Fatalf("NewAudio: %v", err)
			}
			_, err = m.Classify(context.Background(), tt.input)
			var ie *InferenceError
			if !errors.As(err, &ie) {
				t.Fatalf("err = %v, want *InferenceError", err)
			}
			if ie.Modality != Audio {
				t.Errorf("modality = %s, want AUDIO", ie.Modality)
			}
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := NewVision(nil, Metadata{}); err == nil {
		t.Error("expected error for nil runner")
	}
	if _, err := NewVision(fixed(1), Metadata{Labels: []string{"only"}}); err == nil {
		t.Error("expected error for single label")
	}
}

func TestClose(t *testing.T) {
	var calls int
	m, _ := NewVision(fixed(1, 0), Metadata{}, WithCloser(func() error { calls++; return nil }))
	m.Close()
	m.Close()
	if calls != 1 {
		t.Errorf("closer called %d times, want 1", calls)
	}
}

func TestParseModality(t *testing.T) {
	for in, want := range map[string]Modality{"vision": Vision, "IMAGE": Vision, " audio ": Audio} {
		got, err := ParseModality(in)
		if err != nil || got != want {
			t.Errorf("ParseModality(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParseModality("video"); err == nil {
		t.Error("expected error for video")
	}
}

func TestParseMetadata(t *testing.T) {
	src := []byte(`labels: [noise, screams]
input:
  name: pixel_values
  size: 256
  mean: [0.5, 0.5, 0.5]
  std: [0.5, 0.5, 0.5]
output:
  softmax: false
`)
	md, err := ParseMetadata(src)
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if len(md.Labels) != 2 || md.Labels[1] != "screams" {
		t.Errorf("labels = %v", md.Labels)
	}
	if md.Input.Name != "pixel_values" || md.Input.Size != 256 {
		t.Errorf("input = %+v", md.Input)
	}
	p := md.Preprocess()
	if p.Width != 256 || p.Mean[0] != 0.5 || p.Std[2] != 0.5 {
		t.Errorf("preprocess = %+v", p)
	}
	if md.softmax() {
		t.Error("softmax = true, want false")
	}

	merged := Metadata{}.Merge(DefaultMetadata(Audio))
	if merged.Input.Size != 224 || !merged.softmax() || *merged.Input.Mean != tensor.ImageNetMean {
		t.Errorf("merged audio defaults = %+v", merged)
	}

	if _, err := ParseMetadata([]byte("labels: [unterminated")); err == nil {
		t.Error("expected parse error")
	}
}

func TestMetadata_RoundTrip(t *testing.T) {
	data, err := DefaultMetadata(Audio).Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	md, err := ParseMetadata(data)
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if !SameOrder(md.Labels, AudioLabels) {
		t.Errorf("labels = %v", md.Labels)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeImage(t *testing.T) {
	out, err := DecodeImage(pngBytes(t, 640, 480), tensor.Unit(224))
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if !out.HasShape(1, 3, 224, 224) {
		t.Errorf("shape = %v", out.Shape)
	}

	for name, data := range map[string][]byte{
		"empty":     nil,
		"text":      []byte("hello"),
		"truncated": pngBytes(t, 10, 10)[:30],
	} {
		_, err := DecodeImage(data, tensor.Unit(224))
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Errorf("%s: err = %v, want *DecodeError", name, err)
		}
	}
}

func TestSerialize(t *testing.T) {
	var running, peak atomic.Int32
	runner := RunnerFunc(func(*tensor.Tensor) ([]float32, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		running.Add(-1)
		return []float32{0, 1}, nil
	})
	m, _ := NewAudio(runner, Metadata{})
	c := Serialize(m)
	if Serialize(c) != c {
		t.Error("Serialize is not idempotent")
	}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Classify(context.Background(), input()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak.Load())
	}
	if c.Modality() != Audio || len(c.Labels()) != 2 {
		t.Errorf("wrapper does not delegate metadata")
	}
}
