// Package tensor holds dense float32 tensors and the image preprocessing
// that turns pictures into model inputs.
package tensor

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Tensor is a dense row-major float32 tensor.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// New creates a zero tensor with the given shape.
func New(shape ...int64) *Tensor {
	return &Tensor{Shape: slices.Clone(shape), Data: make([]float32, numel(shape))}
}

// FromData wraps data in a tensor after checking that it fits shape.
func FromData(shape []int64, data []float32) (*Tensor, error) {
	if n := numel(shape); n != int64(len(data)) {
		return nil, fmt.Errorf("tensor: shape %v needs %d elements, got %d", shape, n, len(data))
	}
	return &Tensor{Shape: slices.Clone(shape), Data: data}, nil
}

func numel(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.Data) }

// HasShape reports whether the tensor has exactly the given shape.
func (t *Tensor) HasShape(shape ...int64) bool {
	return slices.Equal(t.Shape, shape)
}

// Equal reports whether two tensors have the same shape and identical data.
func (t *Tensor) Equal(o *Tensor) bool {
	if t == nil || o == nil {
		return t == o
	}
	return slices.Equal(t.Shape, o.Shape) && slices.Equal(t.Data, o.Data)
}

// Stats summarizes tensor values.
type Stats struct {
	Min, Max, Mean float64
}

// Stats computes min, max and mean over all elements.
func (t *Tensor) Stats() Stats {
	if len(t.Data) == 0 {
		return Stats{}
	}
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for _, v := range t.Data {
		f := float64(v)
		s.Min = math.Min(s.Min, f)
		s.Max = math.Max(s.Max, f)
		sum += f
	}
	s.Mean = sum / float64(len(t.Data))
	return s
}

// ErrEmpty is returned by reductions over an empty vector.
var ErrEmpty = errors.New("tensor: empty vector")

// Softmax returns the numerically stable softmax of logits.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxV := logits[0]
	for _, v := range logits[1:] {
		if v > maxV {
			maxV = v
		}
	}
	out := make([]float32, len(logits))
	sum := 0.0
	for i, v := range logits {
		e := math.Exp(float64(v - maxV))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// Argmax returns the index and value of the largest element. Ties resolve
// to the lowest index.
func Argmax(v []float32) (int, float32, error) {
	if len(v) == 0 {
		return 0, 0, ErrEmpty
	}
	best := 0
	for i, x := range v[1:] {
		if x > v[best] {
			best = i + 1
		}
	}
	return best, v[best], nil
}

// Finite reports whether every element is a finite number.
func Finite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
