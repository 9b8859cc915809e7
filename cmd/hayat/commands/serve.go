package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/projecthayat/hayat/cmd/hayat/internal/config"
	"github.com/projecthayat/hayat/pkg/api"
	"github.com/projecthayat/hayat/pkg/classifier"
	"github.com/projecthayat/hayat/pkg/detection"
	"github.com/projecthayat/hayat/pkg/features"
	"github.com/projecthayat/hayat/pkg/kv"
	"github.com/projecthayat/hayat/pkg/metrics"
	"github.com/projecthayat/hayat/pkg/onnx"
	"github.com/projecthayat/hayat/pkg/plan"
	"github.com/projecthayat/hayat/pkg/registry"
	"github.com/projecthayat/hayat/pkg/storage"
	"github.com/projecthayat/hayat/pkg/triage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP triage service",
	Long: `Load the vision and audio models and serve the triage API.

A model that fails to load only disables its own modality: requests for
it answer 503 while the other modality keeps working. With
inference.use_real_ai=false no model is loaded and every request gets a
simulated answer.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":8000", "listen address")
	f.Bool("real-ai", true, "run the models; false answers with simulated results")
	f.String("vision-model", "models/hayat_v1.onnx", "vision model path or s3:// URL")
	f.String("audio-model", "models/audio_v1.onnx", "audio model path or s3:// URL")
	f.String("detections-dir", "data/detections", "detection log directory")
	f.Bool("detections-in-memory", false, "keep the detection log in memory only")
	bind(serveCmd, "server.addr", "addr")
	bind(serveCmd, "inference.use_real_ai", "real-ai")
	bind(serveCmd, "models.vision.path", "vision-model")
	bind(serveCmd, "models.audio.path", "audio-model")
	bind(serveCmd, "detections.dir", "detections-dir")
	bind(serveCmd, "detections.in_memory", "detections-in-memory")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := slog.Default()

	ext, err := features.New(cfg.Features)
	if err != nil {
		return err
	}

	reg, closeModels, err := loadModels(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeModels()

	m := metrics.New()
	for _, mod := range classifier.Modalities {
		m.SetModelAvailable(mod, reg.IsAvailable(mod))
	}

	store, err := kv.NewBadger(kv.BadgerOptions{
		Dir:      cfg.Detections.Dir,
		InMemory: cfg.Detections.InMemory,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("open detection log: %w", err)
	}
	detections := detection.New(store)
	defer detections.Close()

	planner, err := newPlanner(ctx, cfg, logger)
	if err != nil {
		return err
	}

	dispatcher := triage.New(reg, ext,
		triage.WithRealAI(cfg.Inference.UseRealAI),
		triage.WithRecorder(detections),
		triage.WithObserver(m),
		triage.WithLogger(logger),
	)

	gin.SetMode(gin.ReleaseMode)
	srv := api.New(api.Options{
		Dispatcher:     dispatcher,
		Models:         reg,
		Detections:     detections,
		Planner:        planner,
		Metrics:        m,
		Logger:         logger,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	mode := triage.ModeRealAI
	if !cfg.Inference.UseRealAI {
		mode = triage.ModeSimulation
	}
	logger.Info("hayat: starting", "mode", mode, "device", reg.Device(), "available", reg.Available())

	err = srv.Serve(ctx, api.ServeConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// loadModels builds the registry. In simulation mode nothing is loaded.
func loadModels(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*registry.Registry, func(), error) {
	device := registry.DetectDevice(ctx)
	if !cfg.Inference.UseRealAI {
		logger.Warn("hayat: real inference disabled, serving simulated results")
		return registry.Load(ctx, nil, nil, registry.WithDevice(device)), func() {}, nil
	}

	loader, err := registry.NewONNXLoader(onnx.SessionOptions{IntraOpThreads: cfg.Inference.Threads})
	if err != nil {
		// Keep going: every model reports the same cause and the service
		// still answers with 503 for both modalities.
		logger.Error("hayat: onnx runtime unavailable", "error", err)
	}

	opts := []registry.Option{
		registry.WithLogger(logger),
		registry.WithOpener(&storage.Opener{S3: cfg.Models.S3}),
		registry.WithSerialize(cfg.Inference.Serialize),
		registry.WithAudioInputSize(cfg.Features.InputSize),
		registry.WithDevice(device),
	}
	if cfg.Models.CacheDir != "" {
		cache, err := storage.NewLocal(cfg.Models.CacheDir)
		if err != nil {
			return nil, nil, fmt.Errorf("model cache: %w", err)
		}
		opts = append(opts, registry.WithCache(cache))
	}

	reg := registry.Load(ctx, cfg.ModelSpecs(), loader, opts...)
	return reg, func() {
		if err := reg.Close(); err != nil {
			logger.Warn("hayat: close models", "error", err)
		}
		loader.Close()
	}, nil
}

func newPlanner(ctx context.Context, cfg *config.Config, logger *slog.Logger) (plan.Generator, error) {
	switch {
	case cfg.Plan.Gemini.APIKey != "":
		g, err := plan.NewGemini(ctx, cfg.Plan.Gemini.APIKey, cfg.Plan.Gemini.Model)
		if err != nil {
			return nil, err
		}
		g.Logger = logger
		logger.Info("hayat: gemini rescue planner enabled", "model", g.Model)
		return g, nil
	case cfg.Plan.OpenAI.APIKey != "":
		o, err := plan.NewOpenAI(cfg.Plan.OpenAI.APIKey, cfg.Plan.OpenAI.BaseURL, cfg.Plan.OpenAI.Model)
		if err != nil {
			return nil, err
		}
		o.Logger = logger
		logger.Info("hayat: openai rescue planner enabled", "model", o.Model, "base_url", cfg.Plan.OpenAI.BaseURL)
		return o, nil
	}
	return plan.Offline{}, nil
}
