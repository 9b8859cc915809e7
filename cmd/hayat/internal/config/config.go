// Package config loads the hayat configuration with viper.
//
// Sources, lowest precedence first: built-in defaults, a YAML file
// (--config, or ./hayat.yaml when present), HAYAT_* environment variables
// (HAYAT_INFERENCE_USE_REAL_AI=false), and command-line flags bound with
// BindFlag.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/projecthayat/hayat/pkg/classifier"
	"github.com/projecthayat/hayat/pkg/features"
	"github.com/projecthayat/hayat/pkg/registry"
	"github.com/projecthayat/hayat/pkg/storage"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HAYAT"

// Config is the full configuration.
type Config struct {
	Server     Server          `mapstructure:"server"`
	Inference  Inference       `mapstructure:"inference"`
	Models     Models          `mapstructure:"models"`
	Features   features.Config `mapstructure:"features"`
	Detections Detections      `mapstructure:"detections"`
	Plan       Plan            `mapstructure:"plan"`
	Log        Log             `mapstructure:"log"`
}

type Server struct {
	Addr           string        `mapstructure:"addr"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type Inference struct {
	// UseRealAI off answers every request with a simulated result.
	UseRealAI bool `mapstructure:"use_real_ai"`

	// Serialize runs at most one inference per model at a time.
	Serialize bool `mapstructure:"serialize"`

	// Threads is the ONNX Runtime intra-op thread count; 0 lets the
	// runtime decide.
	Threads int `mapstructure:"threads"`
}

type Model struct {
	Path    string `mapstructure:"path"`
	Sidecar string `mapstructure:"sidecar"`
}

type Models struct {
	Vision   Model            `mapstructure:"vision"`
	Audio    Model            `mapstructure:"audio"`
	S3       storage.S3Config `mapstructure:"s3"`
	CacheDir string           `mapstructure:"cache_dir"`
}

type Detections struct {
	Dir      string `mapstructure:"dir"`
	InMemory bool   `mapstructure:"in_memory"`
}

type Gemini struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenAI configures an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// Plan selects the rescue plan generator: Gemini when its key is set,
// else OpenAI when its key is set, else the offline templates.
type Plan struct {
	Gemini Gemini `mapstructure:"gemini"`
	OpenAI OpenAI `mapstructure:"openai"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// defaults lists every key. Keys must be registered for environment
// overrides to reach Unmarshal.
func defaults() map[string]any {
	fc := features.DefaultConfig()
	return map[string]any{
		"server.addr":             ":8000",
		"server.max_upload_bytes": int64(32 << 20),
		"server.read_timeout":     "60s",
		"server.write_timeout":    "60s",

		"inference.use_real_ai": true,
		"inference.serialize":   false,
		"inference.threads":     0,

		"models.vision.path":    "models/hayat_v1.onnx",
		"models.vision.sidecar": "",
		"models.audio.path":     "models/audio_v1.onnx",
		"models.audio.sidecar":  "",
		"models.s3.region":      "",
		"models.s3.endpoint":    "",
		"models.cache_dir":      "",

		"features.sample_rate": fc.SampleRate,
		"features.duration":    fc.Duration.String(),
		"features.n_mels":      fc.NumMels,
		"features.n_fft":       fc.FFTSize,
		"features.hop_length":  fc.HopSize,
		"features.top_db":      fc.TopDB,
		"features.colormap":    fc.Colormap,
		"features.render_size": fc.RenderSize,
		"features.input_size":  fc.InputSize,

		"detections.dir":       "data/detections",
		"detections.in_memory": false,

		"plan.gemini.api_key":  "",
		"plan.gemini.model":    "",
		"plan.openai.api_key":  "",
		"plan.openai.base_url": "",
		"plan.openai.model":    "",

		"log.level":  "info",
		"log.format": "text",
	}
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlag binds a command-line flag to a config key.
func BindFlag(v *viper.Viper, key string, f *pflag.Flag) {
	if f == nil {
		panic("config: binding missing flag for " + key)
	}
	if err := v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

// Load reads the optional config file and decodes the merged settings.
// An empty file looks for hayat.yaml in the working directory and
// tolerates its absence.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("hayat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is empty")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if !c.Detections.InMemory && c.Detections.Dir == "" {
		return errors.New("config: detections.dir is required unless detections.in_memory is set")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return c.Features.Validate()
}

// ModelSpecs lists the models to load at startup.
func (c *Config) ModelSpecs() []registry.Spec {
	return []registry.Spec{
		{Modality: classifier.Vision, Location: c.Models.Vision.Path, Sidecar: c.Models.Vision.Sidecar},
		{Modality: classifier.Audio, Location: c.Models.Audio.Path, Sidecar: c.Models.Audio.Sidecar},
	}
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return l, nil
}

// Logger builds the process logger.
func (l Log) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
