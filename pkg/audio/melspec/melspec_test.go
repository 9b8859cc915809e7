package melspec

import (
	"errors"
	"math"
	"testing"
)

func TestHannWindow(t *testing.T) {
	w := hannWindow(2048)
	if len(w) != 2048 {
		t.Fatalf("expected 2048, got %d", len(w))
	}
	// Periodic Hann: starts at 0, peaks at n/2.
	if w[0] != 0 {
		t.Errorf("w[0] = %f, want 0", w[0])
	}
	if math.Abs(w[1024]-1.0) > 1e-12 {
		t.Errorf("w[1024] = %f, want 1", w[1024])
	}
	if math.Abs(w[1]-w[2047]) > 1e-12 {
		t.Errorf("window not symmetric around n/2: %f vs %f", w[1], w[2047])
	}
}

func TestMelConversion(t *testing.T) {
	tests := []struct {
		hz, mel float64
	}{
		{0, 0},
		{200, 3},
		{1000, 15},
		{6400, 42},
	}
	for _, tt := range tests {
		if got := hzToMel(tt.hz); math.Abs(got-tt.mel) > 1e-6 {
			t.Errorf("hzToMel(%g) = %f, want %f", tt.hz, got, tt.mel)
		}
		if got := melToHz(tt.mel); math.Abs(got-tt.hz) > 1e-6 {
			t.Errorf("melToHz(%g) = %f, want %f", tt.mel, got, tt.hz)
		}
	}
}

func TestMelFilterBank(t *testing.T) {
	bank := melFilterBank(128, 2048, 22050, 0, 11025)
	if len(bank) != 128 {
		t.Fatalf("expected 128 filters, got %d", len(bank))
	}
	for i, f := range bank {
		if len(f) != 1025 {
			t.Fatalf("filter %d: expected 1025 bins, got %d", i, len(f))
		}
	}
	// Slaney normalization makes each triangle integrate to ~1 in Hz, so the
	// sum of weights times the bin spacing should be close to 1 for filters
	// wide enough to span several bins.
	binHz := 22050.0 / 2048
	for _, m := range []int{80, 100, 127} {
		sum := 0.0
		for _, w := range bank[m] {
			sum += w
		}
		if got := sum * binHz; math.Abs(got-1) > 0.1 {
			t.Errorf("filter %d area = %f, want ~1", m, got)
		}
	}
	// Higher filters cover a wider band.
	width := func(f []float64) int {
		n := 0
		for _, w := range f {
			if w > 0 {
				n++
			}
		}
		return n
	}
	if width(bank[127]) <= width(bank[60]) {
		t.Errorf("filter 127 width %d not wider than filter 60 width %d", width(bank[127]), width(bank[60]))
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"fft size", func(c *Config) { c.FFTSize = 1 }},
		{"hop", func(c *Config) { c.HopSize = 0 }},
		{"mels", func(c *Config) { c.NumMels = 0 }},
		{"range", func(c *Config) { c.FMin, c.FMax = 5000, 100 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func sine(freq float64, n, rate int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return s
}

func TestExtract_Shape(t *testing.T) {
	e, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	spec, err := e.Extract(sine(1000, 66150, 22050))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if spec.NumMels != 128 {
		t.Errorf("NumMels = %d, want 128", spec.NumMels)
	}
	if spec.NumFrames != 130 {
		t.Errorf("NumFrames = %d, want 130", spec.NumFrames)
	}
	if len(spec.Data) != 128*130 {
		t.Errorf("len(Data) = %d, want %d", len(spec.Data), 128*130)
	}
}

func TestExtract_ReferenceIsMax(t *testing.T) {
	e, _ := New(DefaultConfig())
	spec, err := e.Extract(sine(1000, 22050, 22050))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	lo, hi := spec.Range()
	if hi != 0 {
		t.Errorf("max = %f dB, want 0", hi)
	}
	if lo < -80-1e-9 {
		t.Errorf("min = %f dB, want >= -80", lo)
	}
}

func TestExtract_LoudnessInvariant(t *testing.T) {
	// Referencing each clip to its own peak removes absolute gain.
	e, _ := New(DefaultConfig())
	quiet := sine(500, 11025, 22050)
	loud := make([]float64, len(quiet))
	for i, v := range quiet {
		loud[i] = v * 1.8
	}
	a, _ := e.Extract(quiet)
	b, _ := e.Extract(loud)
	for i := range a.Data {
		if math.Abs(a.Data[i]-b.Data[i]) > 1e-6 {
			t.Fatalf("Data[%d]: %f vs %f", i, a.Data[i], b.Data[i])
		}
	}
}

func TestExtract_PeakBand(t *testing.T) {
	e, _ := New(DefaultConfig())
	spec, _ := e.Extract(sine(1000, 22050, 22050))
	// 1 kHz is mel 15; with 128 bands up to mel(11025) the peak sits near
	// band 15 / mel(11025) * 129.
	t0 := spec.NumFrames / 2
	best, bestV := 0, math.Inf(-1)
	for m := range spec.NumMels {
		if v := spec.At(m, t0); v > bestV {
			best, bestV = m, v
		}
	}
	want := int(math.Round(15/hzToMel(11025)*129)) - 1
	if best < want-2 || best > want+2 {
		t.Errorf("peak band = %d, want ~%d", best, want)
	}
}

func TestExtract_Silence(t *testing.T) {
	e, _ := New(DefaultConfig())
	spec, err := e.Extract(make([]float64, 66150))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for i, v := range spec.Data {
		if v != 0 {
			t.Fatalf("Data[%d] = %f, want 0 for silent input", i, v)
		}
	}
}

func TestExtract_Empty(t *testing.T) {
	e, _ := New(DefaultConfig())
	if _, err := e.Extract(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestPowerToDB_TopDB(t *testing.T) {
	spec := &Spectrogram{NumMels: 1, NumFrames: 4, Data: []float64{1, 0.1, 1e-9, 0}}
	PowerToDB(spec, 1e-10, 80)
	want := []float64{0, -10, -80, -80}
	for i := range want {
		if math.Abs(spec.Data[i]-want[i]) > 1e-9 {
			t.Errorf("Data[%d] = %f, want %f", i, spec.Data[i], want[i])
		}
	}
}
