// Package classifier adapts raw model outputs into labelled predictions.
//
// A [Classifier] wraps a [Runner] (an ONNX session in production, a stub in
// tests) together with the [Metadata] that describes its input
// preprocessing and the class order it was trained with. Two flavours
// exist:
//
//   - Vision: drone imagery, classes DAMAGED / UNDAMAGED. The runner output
//     is read as probabilities unless the metadata says it is logits.
//   - Audio: rendered spectrograms, classes NOISE / SCREAM. The runner
//     output is two logits and always goes through softmax.
//
// Both take the top-1 class without any threshold and report its label in
// upper case.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/projecthayat/hayat/pkg/tensor"
)

// Modality identifies an input kind.
type Modality string

const (
	Vision Modality = "VISION"
	Audio  Modality = "AUDIO"
)

// Modalities lists every supported modality.
var Modalities = []Modality{Vision, Audio}

// ParseModality parses a modality name case-insensitively. "image" is
// accepted as an alias of VISION.
func ParseModality(s string) (Modality, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VISION", "IMAGE":
		return Vision, nil
	case "AUDIO":
		return Audio, nil
	}
	return "", fmt.Errorf("classifier: unknown modality %q", s)
}

// Lower returns the lower-case modality name, used in config keys and
// metric labels.
func (m Modality) Lower() string { return strings.ToLower(string(m)) }

// Prediction is the result of one classification.
type Prediction struct {
	Modality Modality

	// Label is the upper-case class name of the top-1 class.
	Label string

	// Index is the class index in the model output.
	Index int

	// Confidence is the probability of the top-1 class in [0, 1].
	Confidence float32

	// Probabilities holds the full distribution, in label order.
	Probabilities []float32
}

// Runner executes a model on one input tensor and returns the flattened
// output. *onnx.Model satisfies Runner.
type Runner interface {
	Run(in *tensor.Tensor) ([]float32, error)
}

// RunnerFunc adapts a function to a Runner.
type RunnerFunc func(in *tensor.Tensor) ([]float32, error)

// Run calls f(in).
func (f RunnerFunc) Run(in *tensor.Tensor) ([]float32, error) { return f(in) }

// Classifier turns model inputs into predictions.
//
// Implementations must be safe for concurrent use, or be wrapped with
// [Serialize].
type Classifier interface {
	// Modality returns the input kind the classifier handles.
	Modality() Modality

	// Labels returns the class names in output order.
	Labels() []string

	// Preprocess describes the input tensor the model expects.
	Preprocess() tensor.Preprocess

	// Classify runs the model on input and returns the top-1 prediction.
	// Failures are reported as *InferenceError.
	Classify(ctx context.Context, input *tensor.Tensor) (Prediction, error)

	// Close releases the underlying model.
	Close() error
}
