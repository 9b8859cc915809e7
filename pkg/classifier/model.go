package classifier

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/projecthayat/hayat/pkg/tensor"
)

// Model is the Classifier implementation shared by both modalities.
type Model struct {
	modality Modality
	runner   Runner
	meta     Metadata
	labels   []string
	pre      tensor.Preprocess
	closer   func() error
}

// Option configures a Model.
type Option func(*Model)

// WithCloser sets a function called by Close, typically the runner's own
// Close.
func WithCloser(fn func() error) Option {
	return func(m *Model) {
		m.closer = fn
	}
}

// NewVision creates the drone imagery classifier. Unset metadata fields
// fall back to [DefaultMetadata](Vision).
func NewVision(runner Runner, meta Metadata, opts ...Option) (*Model, error) {
	return newModel(Vision, runner, meta.Merge(DefaultMetadata(Vision)), opts)
}

// NewAudio creates the scream detector. The metadata labels must be in
// [AudioLabels] order: index 0 is NOISE and index 1 is SCREAM. A model
// trained with any other order is rejected with *LabelOrderError.
func NewAudio(runner Runner, meta Metadata, opts ...Option) (*Model, error) {
	meta = meta.Merge(DefaultMetadata(Audio))
	if !SameOrder(meta.Labels, AudioLabels) {
		return nil, &LabelOrderError{Modality: Audio, Got: meta.Labels, Want: AudioLabels}
	}
	// The adapter always applies softmax to the two logits.
	t := true
	meta.Output.Softmax = &t
	return newModel(Audio, runner, meta, opts)
}

func newModel(modality Modality, runner Runner, meta Metadata, opts []Option) (*Model, error) {
	if runner == nil {
		return nil, errors.New("classifier: nil runner")
	}
	if len(meta.Labels) < 2 {
		return nil, fmt.Errorf("classifier: %s model needs at least 2 labels, got %d", modality.Lower(), len(meta.Labels))
	}
	pre := meta.Preprocess()
	if err := pre.Validate(); err != nil {
		return nil, err
	}

	// Audio labels collapse plurals ("screams" -> SCREAM); vision labels
	// keep their spelling.
	labels := make([]string, len(meta.Labels))
	for i, l := range meta.Labels {
		if modality == Audio {
			labels[i] = strings.ToUpper(normalizeLabel(l))
		} else {
			labels[i] = strings.ToUpper(strings.TrimSpace(l))
		}
	}

	m := &Model{
		modality: modality,
		runner:   runner,
		meta:     meta,
		labels:   labels,
		pre:      pre,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Modality implements Classifier.
func (m *Model) Modality() Modality { return m.modality }

// Labels implements Classifier.
func (m *Model) Labels() []string { return slices.Clone(m.labels) }

// Preprocess implements Classifier.
func (m *Model) Preprocess() tensor.Preprocess { return m.pre }

// Metadata returns the effective model metadata.
func (m *Model) Metadata() Metadata { return m.meta }

// Classify implements Classifier.
func (m *Model) Classify(ctx context.Context, input *tensor.Tensor) (p Prediction, err error) {
	fail := func(err error) (Prediction, error) {
		return Prediction{}, &InferenceError{Modality: m.modality, Err: err}
	}
	if input == nil {
		return fail(errors.New("nil input"))
	}
	if want := []int64{1, 3, int64(m.pre.Height), int64(m.pre.Width)}; !input.HasShape(want...) {
		return fail(fmt.Errorf("input shape %v, want %v", input.Shape, want))
	}

	defer func() {
		if r := recover(); r != nil {
			p, err = fail(fmt.Errorf("panic: %v", r))
		}
	}()

	out, err := m.runner.Run(input)
	if err != nil {
		return fail(err)
	}
	if len(out) != len(m.labels) {
		return fail(fmt.Errorf("model returned %d scores for %d labels", len(out), len(m.labels)))
	}
	if !tensor.Finite(out) {
		return fail(errors.New("model returned non-finite scores"))
	}

	probs := slices.Clone(out)
	if m.meta.softmax() {
		probs = tensor.Softmax(out)
	}
	idx, conf, err := tensor.Argmax(probs)
	if err != nil {
		return fail(err)
	}
	return Prediction{
		Modality:      m.modality,
		Label:         m.labels[idx],
		Index:         idx,
		Confidence:    conf,
		Probabilities: probs,
	}, nil
}

// Close implements Classifier.
func (m *Model) Close() error {
	if m.closer == nil {
		return nil
	}
	fn := m.closer
	m.closer = nil
	return fn()
}
