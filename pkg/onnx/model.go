package onnx

import (
	"fmt"
	"sync"

	"github.com/projecthayat/hayat/pkg/tensor"
)

// Options configures a [Model].
type Options struct {
	// InputName and OutputName select the model tensors to feed and read.
	// Empty names default to the model's first input and first output.
	InputName  string
	OutputName string

	Session SessionOptions
}

// Model is a loaded single-input, single-output model. Run is safe for
// concurrent use.
type Model struct {
	input  string
	output string

	mu      sync.RWMutex
	session *Session
}

// Load creates a session from ONNX model data and resolves its input and
// output names.
func Load(env *Env, data []byte, opts Options) (*Model, error) {
	if env == nil {
		return nil, ErrNotBuilt
	}
	session, err := env.NewSessionWithOptions(data, opts.Session)
	if err != nil {
		return nil, err
	}

	m := &Model{session: session, input: opts.InputName, output: opts.OutputName}
	if m.input == "" {
		names, err := session.InputNames()
		if err != nil || len(names) == 0 {
			session.Close()
			return nil, fmt.Errorf("onnx: resolve input name: %v", errOrEmpty(err))
		}
		m.input = names[0]
	}
	if m.output == "" {
		names, err := session.OutputNames()
		if err != nil || len(names) == 0 {
			session.Close()
			return nil, fmt.Errorf("onnx: resolve output name: %v", errOrEmpty(err))
		}
		m.output = names[0]
	}
	return m, nil
}

func errOrEmpty(err error) any {
	if err != nil {
		return err
	}
	return "model declares none"
}

// Run feeds in to the model and returns the flattened output.
func (m *Model) Run(in *tensor.Tensor) ([]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, ErrClosed
	}

	input, err := NewTensor(in.Shape, in.Data)
	if err != nil {
		return nil, err
	}
	defer input.Close()

	outputs, err := m.session.Run([]string{m.input}, []*Tensor{input}, []string{m.output})
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, o := range outputs {
			o.Close()
		}
	}()
	if len(outputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 output, got %d", len(outputs))
	}
	return outputs[0].FloatData()
}

// Close releases the session. Run returns ErrClosed afterwards.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Close()
	m.session = nil
	return err
}
