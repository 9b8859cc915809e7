package classifier

import (
	"context"
	"sync"

	"github.com/projecthayat/hayat/pkg/tensor"
)

// Serialize wraps c so that at most one Classify call runs at a time. Use
// it for runtimes whose sessions are not safe for concurrent use.
func Serialize(c Classifier) Classifier {
	if _, ok := c.(*serialized); ok {
		return c
	}
	return &serialized{c: c}
}

type serialized struct {
	mu sync.Mutex
	c  Classifier
}

func (s *serialized) Modality() Modality            { return s.c.Modality() }
func (s *serialized) Labels() []string              { return s.c.Labels() }
func (s *serialized) Preprocess() tensor.Preprocess { return s.c.Preprocess() }

func (s *serialized) Classify(ctx context.Context, input *tensor.Tensor) (Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Classify(ctx, input)
}

func (s *serialized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Close()
}
