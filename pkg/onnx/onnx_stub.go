//go:build !onnxruntime

// Package onnx provides Go bindings for the ONNX Runtime C API.
//
// This build does not include the binding: it was compiled without the
// onnxruntime build tag. Every constructor returns [ErrNotBuilt], which the
// model registry reports as an unavailable model.
package onnx

// Built reports whether the ONNX Runtime binding is compiled in.
const Built = false

// Version returns the linked ONNX Runtime version, empty in this build.
func Version() string { return "" }

// Env is the ONNX Runtime environment.
type Env struct{}

// NewEnv always fails in this build.
func NewEnv(name string) (*Env, error) { return nil, ErrNotBuilt }

// NewSessionWithOptions always fails in this build.
func (e *Env) NewSessionWithOptions(modelData []byte, so SessionOptions) (*Session, error) {
	return nil, ErrNotBuilt
}

// Close is a no-op.
func (e *Env) Close() error { return nil }

// Session holds a loaded ONNX model.
type Session struct{}

// InputNames always fails in this build.
func (s *Session) InputNames() ([]string, error) { return nil, ErrNotBuilt }

// OutputNames always fails in this build.
func (s *Session) OutputNames() ([]string, error) { return nil, ErrNotBuilt }

// Run always fails in this build.
func (s *Session) Run(inputNames []string, inputs []*Tensor, outputNames []string) ([]*Tensor, error) {
	return nil, ErrNotBuilt
}

// Close is a no-op.
func (s *Session) Close() error { return nil }

// Tensor is an N-dimensional tensor.
type Tensor struct{}

// NewTensor always fails in this build.
func NewTensor(shape []int64, data []float32) (*Tensor, error) { return nil, ErrNotBuilt }

// FloatData always fails in this build.
func (t *Tensor) FloatData() ([]float32, error) { return nil, ErrNotBuilt }

// Close is a no-op.
func (t *Tensor) Close() error { return nil }
