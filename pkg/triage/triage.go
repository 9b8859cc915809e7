// Package triage routes a payload to the model for its modality and shapes
// the outcome into a uniform response.
//
// Each request walks RECEIVED -> CHECK_AVAILABILITY -> EXTRACT_IF_AUDIO ->
// INFER -> NORMALIZE -> RESPOND. When real inference is disabled the
// request short-circuits to a simulated response, and when the modality's
// model is not loaded it stops at UNAVAILABLE without touching the payload.
// Every outcome is a [Result]; Handle never panics.
package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/projecthayat/hayat/pkg/classifier"
	"github.com/projecthayat/hayat/pkg/detection"
	"github.com/projecthayat/hayat/pkg/features"
	"github.com/projecthayat/hayat/pkg/tensor"
)

// SimulatedConfidence is the placeholder confidence of simulated responses.
const SimulatedConfidence float32 = 0.985

// SimulationNote accompanies every simulated response.
const SimulationNote = "Real AI disabled to save CPU"

// simulatedLabels is the binary label set per modality.
var simulatedLabels = map[classifier.Modality][2]string{
	classifier.Vision: {"DAMAGED", "UNDAMAGED"},
	classifier.Audio:  {"SCREAM", "NOISE"},
}

// Registry resolves the classifier for a modality. *registry.Registry
// implements it.
type Registry interface {
	Classifier(m classifier.Modality) (classifier.Classifier, error)
}

// Extractor turns encoded audio into the audio model's input tensor.
// *features.Extractor implements it.
type Extractor interface {
	Extract(audio []byte) (*tensor.Tensor, error)
}

// Recorder stores successful results. *detection.Log implements it.
type Recorder interface {
	Record(ctx context.Context, d detection.Detection) (detection.Detection, error)
}

// Observer is notified after every request, e.g. to update metrics.
type Observer interface {
	Observe(req Request, res Result, elapsed time.Duration)
}

// Request is one triage request.
type Request struct {
	Modality classifier.Modality
	Payload  []byte
	Filename string

	// RequestID is copied into the detection log.
	RequestID string
}

// Dispatcher handles triage requests. It is safe for concurrent use.
type Dispatcher struct {
	registry  Registry
	extractor Extractor
	realAI    bool
	recorder  Recorder
	observer  Observer
	logger    *slog.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRealAI enables or disables real inference. Default: enabled.
func WithRealAI(on bool) Option {
	return func(d *Dispatcher) { d.realAI = on }
}

// WithRand sets the random source used to pick simulated labels.
func WithRand(r *rand.Rand) Option {
	return func(d *Dispatcher) { d.rand = r }
}

// WithRecorder logs every successful result.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithObserver sets the per-request observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a Dispatcher. The registry is consulted on every request
// before any decoding; ext converts audio payloads.
func New(reg Registry, ext Extractor, opts ...Option) *Dispatcher {
	d := &Dispatcher{registry: reg, extractor: ext, realAI: true}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.rand == nil {
		d.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return d
}

// RealAI reports whether real inference is enabled.
func (d *Dispatcher) RealAI() bool { return d.realAI }

// Handle runs one request through the pipeline.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Result {
	start := time.Now()
	res := d.handle(ctx, req)
	if res.OK() {
		d.record(ctx, req, res.Response)
	} else {
		level := slog.LevelWarn
		if res.Kind == KindInferenceError {
			level = slog.LevelError
		}
		d.logger.Log(ctx, level, "triage: request failed",
			"modality", req.Modality, "filename", req.Filename, "kind", res.Kind,
			"state", res.State, "error", res.Err)
	}
	if d.observer != nil {
		d.observer.Observe(req, res, time.Since(start))
	}
	return res
}

func (d *Dispatcher) handle(ctx context.Context, req Request) (res Result) {
	res = Result{Modality: req.Modality, State: StateReceived}
	if _, ok := simulatedLabels[req.Modality]; !ok {
		res.Kind = KindBadRequest
		res.Err = fmt.Errorf("triage: unknown modality %q", req.Modality)
		return res
	}

	if !d.realAI {
		res.State = StateSimulated
		res.Response = d.simulate(req)
		return res
	}

	res.State = StateCheckAvailability
	c, err := d.registry.Classifier(req.Modality)
	if err != nil {
		res.State = StateUnavailable
		res.Kind = KindModelUnavailable
		res.Err = err
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			res.Kind = KindInferenceError
			res.Response = nil
			res.Err = fmt.Errorf("triage: panic in %s: %v", res.State, r)
		}
	}()

	res.State = StateExtract
	input, err := d.input(req, c)
	if err != nil {
		res.Kind = classify(err)
		res.Err = err
		return res
	}

	res.State = StateInfer
	pred, err := c.Classify(ctx, input)
	if err != nil {
		res.Kind = KindInferenceError
		res.Err = err
		return res
	}

	res.State = StateNormalize
	resp := &Response{
		Type:        req.Modality,
		Prediction:  pred.Label,
		Confidence:  FormatConfidence(pred.Confidence),
		Mode:        ModeRealAI,
		Filename:    req.Filename,
		Probability: pred.Confidence,
	}

	res.State = StateRespond
	res.Response = resp
	return res
}

// input builds the model input: the extracted spectrogram tensor for
// audio, the decoded image for vision.
func (d *Dispatcher) input(req Request, c classifier.Classifier) (*tensor.Tensor, error) {
	if req.Modality == classifier.Audio {
		if d.extractor == nil {
			return nil, &features.ExtractionError{Stage: "setup", Err: errors.New("no feature extractor")}
		}
		return d.extractor.Extract(req.Payload)
	}
	return classifier.DecodeImage(req.Payload, c.Preprocess())
}

// classify maps a pipeline error to its result kind.
func classify(err error) Kind {
	var (
		fde *features.DecodeError
		cde *classifier.DecodeError
		ee  *features.ExtractionError
	)
	switch {
	case errors.As(err, &fde), errors.As(err, &cde):
		return KindDecodeError
	case errors.As(err, &ee):
		return KindExtractionError
	}
	return KindInferenceError
}

func (d *Dispatcher) simulate(req Request) *Response {
	labels := simulatedLabels[req.Modality]
	d.randMu.Lock()
	i := d.rand.IntN(2)
	d.randMu.Unlock()
	return &Response{
		Type:        req.Modality,
		Prediction:  labels[i],
		Confidence:  FormatConfidence(SimulatedConfidence),
		Mode:        ModeSimulation,
		Filename:    req.Filename,
		Note:        SimulationNote,
		Probability: SimulatedConfidence,
	}
}

func (d *Dispatcher) record(ctx context.Context, req Request, resp *Response) {
	if d.recorder == nil {
		return
	}
	_, err := d.recorder.Record(ctx, detection.Detection{
		Modality:   string(resp.Type),
		Label:      resp.Prediction,
		Confidence: resp.Probability,
		Mode:       string(resp.Mode),
		Filename:   resp.Filename,
		RequestID:  req.RequestID,
	})
	if err != nil {
		d.logger.Error("triage: record detection", "modality", resp.Type, "error", err)
	}
}
