// Package registry loads the classifiers once at startup and reports, per
// modality, whether a model is available.
//
// Loading never fails as a whole: a missing or broken model artifact is
// logged and recorded, and only its own modality is marked unavailable.
// After [Load] returns the registry is read-only and safe for concurrent
// use by request handlers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/projecthayat/hayat/pkg/classifier"
	"github.com/projecthayat/hayat/pkg/storage"
)

// Spec names the artifact to load for one modality.
type Spec struct {
	Modality classifier.Modality

	// Location is a local path or s3:// URL of the ONNX weights.
	Location string

	// Sidecar overrides the label metadata location. By default the
	// sidecar sits next to the weights: audio_v1.onnx -> audio_v1.labels.yaml.
	Sidecar string
}

// Artifact is a fetched model ready to be turned into a classifier.
type Artifact struct {
	Modality classifier.Modality
	Location string
	Weights  []byte

	// Metadata is nil when the model ships without a sidecar.
	Metadata *classifier.Metadata
}

// Loader builds a classifier from an artifact.
type Loader interface {
	Load(ctx context.Context, a Artifact) (classifier.Classifier, error)
}

// LoaderFunc adapts a function to a Loader.
type LoaderFunc func(ctx context.Context, a Artifact) (classifier.Classifier, error)

// Load calls f(ctx, a).
func (f LoaderFunc) Load(ctx context.Context, a Artifact) (classifier.Classifier, error) {
	return f(ctx, a)
}

// UnavailableError is returned for a modality whose model did not load.
type UnavailableError struct {
	Modality classifier.Modality
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("registry: %s model not available", e.Modality.Lower())
	}
	return fmt.Sprintf("registry: %s model not available: %v", e.Modality.Lower(), e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// entry is the load outcome for one modality.
type entry struct {
	classifier classifier.Classifier
	err        error
	location   string
	loadedAt   time.Time
}

// Registry maps modalities to loaded classifiers.
type Registry struct {
	entries map[classifier.Modality]*entry
	device  string
}

// Option configures Load.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	opener     *storage.Opener
	serialize  bool
	maxBytes   int64
	audioInput int
	device     string
	cache      storage.FileStore
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOpener sets how artifact locations are opened, e.g. S3 settings.
func WithOpener(op *storage.Opener) Option {
	return func(o *options) { o.opener = op }
}

// WithSerialize wraps every classifier with [classifier.Serialize].
func WithSerialize(on bool) Option {
	return func(o *options) { o.serialize = on }
}

// WithMaxModelBytes bounds the size of a model artifact. Default 1 GiB.
func WithMaxModelBytes(n int64) Option {
	return func(o *options) { o.maxBytes = n }
}

// WithAudioInputSize requires the audio model to take size x size inputs,
// the size the feature extractor produces. Zero disables the check.
func WithAudioInputSize(size int) Option {
	return func(o *options) { o.audioInput = size }
}

// WithCache keeps a copy of every s3:// artifact in store and reads it
// from there on later starts.
func WithCache(store storage.FileStore) Option {
	return func(o *options) { o.cache = store }
}

// WithDevice sets the compute device description reported by Device.
func WithDevice(desc string) Option {
	return func(o *options) { o.device = desc }
}

// Load fetches and loads every spec. It always returns a registry; failed
// modalities are logged and reported unavailable.
func Load(ctx context.Context, specs []Spec, loader Loader, opts ...Option) *Registry {
	o := options{maxBytes: 1 << 30}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.opener == nil {
		o.opener = &storage.Opener{}
	}

	r := &Registry{entries: make(map[classifier.Modality]*entry), device: o.device}
	for _, spec := range specs {
		start := time.Now()
		c, err := loadOne(ctx, spec, loader, &o)
		e := &entry{location: spec.Location, err: err}
		if err != nil {
			o.logger.Error("registry: model unavailable",
				"modality", spec.Modality, "location", spec.Location, "error", err)
		} else {
			if o.serialize {
				c = classifier.Serialize(c)
			}
			e.classifier = c
			e.loadedAt = time.Now()
			o.logger.Info("registry: model loaded",
				"modality", spec.Modality, "location", spec.Location,
				"labels", c.Labels(), "elapsed", time.Since(start))
		}
		r.entries[spec.Modality] = e
	}
	return r
}

func loadOne(ctx context.Context, spec Spec, loader Loader, o *options) (c classifier.Classifier, err error) {
	defer func() {
		if p := recover(); p != nil {
			c, err = nil, fmt.Errorf("loader panic: %v", p)
		}
	}()
	if loader == nil {
		return nil, errors.New("no model loader configured")
	}
	if spec.Location == "" {
		return nil, errors.New("no model location configured")
	}
	loc, err := storage.ParseLocation(spec.Location)
	if err != nil {
		return nil, err
	}
	store, err := o.opener.Open(ctx, loc)
	if err != nil {
		return nil, err
	}
	weights, err := readWeights(ctx, loc, store, o)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}

	meta, err := readSidecar(ctx, spec, loc, store, o)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		o.logger.Warn("registry: label metadata missing, using default class order",
			"modality", spec.Modality, "labels", classifier.DefaultMetadata(spec.Modality).Labels)
	}

	c, err = loader.Load(ctx, Artifact{
		Modality: spec.Modality,
		Location: spec.Location,
		Weights:  weights,
		Metadata: meta,
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.New("loader returned no classifier")
	}
	if c.Modality() != spec.Modality {
		c.Close()
		return nil, fmt.Errorf("loader returned a %s classifier", c.Modality().Lower())
	}
	if spec.Modality == classifier.Audio && o.audioInput > 0 {
		if p := c.Preprocess(); p.Width != o.audioInput || p.Height != o.audioInput {
			c.Close()
			return nil, fmt.Errorf("audio model expects %dx%d input, feature extractor produces %dx%d",
				p.Width, p.Height, o.audioInput, o.audioInput)
		}
	}
	return c, nil
}

// readWeights reads the model, going through the cache for s3:// locations.
func readWeights(ctx context.Context, loc storage.Location, store storage.FileStore, o *options) ([]byte, error) {
	if o.cache == nil || !loc.IsS3() {
		return storage.ReadFile(ctx, store, loc.Name, o.maxBytes)
	}
	cached := path.Join(loc.Bucket, loc.Dir, loc.Name)
	data, err := storage.ReadFile(ctx, o.cache, cached, o.maxBytes)
	if err == nil {
		o.logger.Debug("registry: model cache hit", "location", loc.String(), "path", cached)
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		o.logger.Warn("registry: model cache unreadable", "path", cached, "error", err)
	}

	data, err = storage.ReadFile(ctx, store, loc.Name, o.maxBytes)
	if err != nil {
		return nil, err
	}
	if err := storage.WriteFile(ctx, o.cache, cached, data); err != nil {
		o.logger.Warn("registry: model cache write failed", "path", cached, "error", err)
	}
	return data, nil
}

// SidecarName returns the default label metadata file name for weights.
func SidecarName(weights string) string {
	return strings.TrimSuffix(weights, path.Ext(weights)) + ".labels.yaml"
}

func readSidecar(ctx context.Context, spec Spec, loc storage.Location, store storage.FileStore, o *options) (*classifier.Metadata, error) {
	name := SidecarName(loc.Name)
	if spec.Sidecar != "" {
		sloc, err := storage.ParseLocation(spec.Sidecar)
		if err != nil {
			return nil, err
		}
		if store, err = o.opener.Open(ctx, sloc); err != nil {
			return nil, err
		}
		name = sloc.Name
	}
	data, err := storage.ReadFile(ctx, store, name, 1<<20)
	if errors.Is(err, fs.ErrNotExist) {
		if spec.Sidecar != "" {
			return nil, fmt.Errorf("read label metadata: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read label metadata: %w", err)
	}
	md, err := classifier.ParseMetadata(data)
	if err != nil {
		return nil, err
	}
	return &md, nil
}

// New builds a registry from already constructed classifiers. Modalities
// absent from cs are unavailable.
func New(cs map[classifier.Modality]classifier.Classifier) *Registry {
	r := &Registry{entries: make(map[classifier.Modality]*entry)}
	for m, c := range cs {
		if c == nil {
			r.entries[m] = &entry{err: errors.New("no classifier")}
			continue
		}
		r.entries[m] = &entry{classifier: c, loadedAt: time.Now()}
	}
	return r
}

// IsAvailable reports whether the modality has a loaded classifier.
func (r *Registry) IsAvailable(m classifier.Modality) bool {
	e, ok := r.entries[m]
	return ok && e.classifier != nil
}

// Classifier returns the classifier for m, or an *UnavailableError.
func (r *Registry) Classifier(m classifier.Modality) (classifier.Classifier, error) {
	e, ok := r.entries[m]
	if !ok {
		return nil, &UnavailableError{Modality: m, Err: errors.New("not configured")}
	}
	if e.classifier == nil {
		return nil, &UnavailableError{Modality: m, Err: e.err}
	}
	return e.classifier, nil
}

// Status describes one modality for health reporting.
type Status struct {
	Modality  classifier.Modality `json:"modality"`
	Available bool                `json:"available"`
	Location  string              `json:"location,omitempty"`
	Labels    []string            `json:"labels,omitempty"`
	LoadedAt  *time.Time          `json:"loaded_at,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Status returns the state of every supported modality, in a fixed order.
func (r *Registry) Status() []Status {
	out := make([]Status, 0, len(classifier.Modalities))
	for _, m := range classifier.Modalities {
		s := Status{Modality: m}
		if e, ok := r.entries[m]; ok {
			s.Location = e.location
			if e.classifier != nil {
				s.Available = true
				s.Labels = e.classifier.Labels()
				t := e.loadedAt
				s.LoadedAt = &t
			} else if e.err != nil {
				s.Error = e.err.Error()
			}
		} else {
			s.Error = "not configured"
		}
		out = append(out, s)
	}
	return out
}

// Available returns the modalities with a loaded classifier.
func (r *Registry) Available() []classifier.Modality {
	var out []classifier.Modality
	for _, m := range classifier.Modalities {
		if r.IsAvailable(m) {
			out = append(out, m)
		}
	}
	return slices.Clip(out)
}

// Device returns the compute device description.
func (r *Registry) Device() string {
	if r.device == "" {
		return "cpu"
	}
	return r.device
}

// Close releases every loaded classifier.
func (r *Registry) Close() error {
	var errs []error
	for _, e := range r.entries {
		if e.classifier != nil {
			errs = append(errs, e.classifier.Close())
		}
	}
	return errors.Join(errs...)
}
