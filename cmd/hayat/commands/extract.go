package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/projecthayat/hayat/pkg/features"
	"github.com/projecthayat/hayat/pkg/spectrogram"
	"github.com/projecthayat/hayat/pkg/storage"
)

var extractPNG string

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Run the audio feature pipeline on one file",
	Long: `Decode one audio clip, run the feature pipeline and print the
resulting tensor shape and value range. With --png the rendered
spectrogram is written as well (local path or s3:// URL).

Examples:
  hayat extract data/screams/s001.wav
  hayat extract clip.ogg --png clip.png`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractPNG, "png", "", "write the rendered spectrogram to this location")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ext, err := features.New(cfg.Features)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	img, err := ext.Render(data)
	if err != nil {
		return err
	}
	t, err := ext.FromImage(img)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	st := t.Stats()
	fc := ext.Config()
	fmt.Fprintf(w, "file:    %s\n", args[0])
	fmt.Fprintf(w, "window:  %s at %d Hz (%d samples)\n", fc.Duration, fc.SampleRate, fc.NumSamples())
	fmt.Fprintf(w, "shape:   %v\n", t.Shape)
	fmt.Fprintf(w, "values:  min=%.4f max=%.4f mean=%.4f\n", st.Min, st.Max, st.Mean)

	if extractPNG == "" {
		return nil
	}
	loc, err := storage.ParseLocation(extractPNG)
	if err != nil {
		return err
	}
	opener := &storage.Opener{S3: cfg.Models.S3}
	fs, err := opener.Open(cmd.Context(), loc)
	if err != nil {
		return err
	}
	buf, err := spectrogram.PNG(img)
	if err != nil {
		return err
	}
	if err := storage.WriteFile(cmd.Context(), fs, loc.Name, buf); err != nil {
		return err
	}
	fmt.Fprintf(w, "png:     %s\n", loc)
	return nil
}
