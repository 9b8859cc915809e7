//go:build !onnxruntime

package onnx

import (
	"errors"
	"testing"
)

func TestStubReportsNotBuilt(t *testing.T) {
	if Built {
		t.Fatal("Built = true in stub build")
	}
	if _, err := NewEnv("test"); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("NewEnv err = %v, want ErrNotBuilt", err)
	}
	if _, err := NewTensor([]int64{1}, []float32{1}); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("NewTensor err = %v, want ErrNotBuilt", err)
	}
	if _, err := Load(nil, []byte{1}, Options{}); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("Load err = %v, want ErrNotBuilt", err)
	}
	if Version() != "" {
		t.Errorf("Version = %q, want empty", Version())
	}
}
