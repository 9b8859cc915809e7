package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/projecthayat/hayat/cmd/hayat/internal/config"
)

var (
	// v collects defaults, the config file, HAYAT_* variables and flags.
	v = config.New()

	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "hayat",
	Short: "Multimodal disaster-triage inference service",
	Long: `hayat - drone image and audio triage for search and rescue.

The service classifies drone imagery as DAMAGED or UNDAMAGED and short
audio clips as SCREAM or NOISE, logs every detection and turns them into
a rescue plan.

Configuration is read from hayat.yaml in the working directory (or
--config), overridden by HAYAT_* environment variables and flags:

  HAYAT_INFERENCE_USE_REAL_AI=false hayat serve   # simulation mode
  hayat serve --addr :9000 --audio-model s3://models/audio_v1.onnx`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./hayat.yaml if present)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	config.BindFlag(v, "log.level", flags.Lookup("log-level"))
	config.BindFlag(v, "log.format", flags.Lookup("log-format"))
}

// loadConfig loads the configuration and installs the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Log.Logger(os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	if used := v.ConfigFileUsed(); used != "" {
		slog.Debug("config loaded", "file", used)
	}
	return cfg, nil
}

// bind binds a command flag to a config key on the shared viper.
func bind(cmd *cobra.Command, key, flag string) {
	config.BindFlag(v, key, cmd.Flags().Lookup(flag))
}
