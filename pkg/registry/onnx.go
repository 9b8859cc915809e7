package registry

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/projecthayat/hayat/pkg/classifier"
	"github.com/projecthayat/hayat/pkg/onnx"
)

// ONNXLoader loads artifacts as ONNX Runtime sessions.
type ONNXLoader struct {
	env     *onnx.Env
	session onnx.SessionOptions
}

// NewONNXLoader creates the process-wide ONNX Runtime environment. In a
// build without ONNX Runtime it returns onnx.ErrNotBuilt together with a
// usable loader that fails every load with the same error.
func NewONNXLoader(session onnx.SessionOptions) (*ONNXLoader, error) {
	env, err := onnx.NewEnv("hayat")
	return &ONNXLoader{env: env, session: session}, err
}

// Load implements Loader.
func (l *ONNXLoader) Load(ctx context.Context, a Artifact) (classifier.Classifier, error) {
	var meta classifier.Metadata
	if a.Metadata != nil {
		meta = *a.Metadata
	}
	model, err := onnx.Load(l.env, a.Weights, onnx.Options{
		InputName:  meta.Input.Name,
		OutputName: meta.Output.Name,
		Session:    l.session,
	})
	if err != nil {
		return nil, err
	}

	var c *classifier.Model
	switch a.Modality {
	case classifier.Vision:
		c, err = classifier.NewVision(model, meta, classifier.WithCloser(model.Close))
	case classifier.Audio:
		c, err = classifier.NewAudio(model, meta, classifier.WithCloser(model.Close))
	default:
		err = fmt.Errorf("unsupported modality %q", a.Modality)
	}
	if err != nil {
		model.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the ONNX Runtime environment.
func (l *ONNXLoader) Close() error {
	if l.env == nil {
		return nil
	}
	return l.env.Close()
}

// DetectDevice describes the inference device: the runtime and the host
// CPU model.
func DetectDevice(ctx context.Context) string {
	rt := "onnxruntime unavailable"
	if onnx.Built {
		rt = "onnxruntime " + onnx.Version()
	}
	model := runtime.GOARCH
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		if name := strings.TrimSpace(infos[0].ModelName); name != "" {
			model = name
		}
	}
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil || cores <= 0 {
		cores = runtime.NumCPU()
	}
	return fmt.Sprintf("cpu (%s; %s; %d threads)", rt, model, cores)
}
