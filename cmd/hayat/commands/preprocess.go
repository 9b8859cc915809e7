package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/projecthayat/hayat/pkg/classifier"
	"github.com/projecthayat/hayat/pkg/features"
	"github.com/projecthayat/hayat/pkg/spectrogram"
	"github.com/projecthayat/hayat/pkg/storage"
	"github.com/projecthayat/hayat/pkg/tensor"
)

// audioExts are the clip extensions the converter picks up.
var audioExts = []string{".wav", ".mp3", ".ogg"}

// labelsFile is written next to the class directories. Its label order is
// the one an ImageFolder-style trainer assigns, so it can ship as the
// trained model's sidecar.
const labelsFile = "labels.yaml"

var (
	preprocessIn         string
	preprocessOut        string
	preprocessCategories []string
	preprocessWorkers    int
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Convert an audio dataset into spectrogram images",
	Long: `Render every clip of an audio dataset as the spectrogram image the
audio classifier is trained on.

Clips are read from <in>/<category>/*.{wav,mp3,ogg} and written to
<out>/<category>/<name>.png; --out may be an s3://bucket/prefix URL. The
images use the same features configuration as the live service, so a
model trained on them sees identical input at inference time.

A clip that fails to convert is logged and skipped.

Examples:
  hayat preprocess
  hayat preprocess --in data --out s3://hayat-data/spectrograms --workers 4`,
	Args: cobra.NoArgs,
	RunE: runPreprocess,
}

func init() {
	f := preprocessCmd.Flags()
	f.StringVar(&preprocessIn, "in", "data", "dataset directory with one sub-directory per category")
	f.StringVar(&preprocessOut, "out", "data_spectrograms", "output directory or s3:// URL")
	f.StringSliceVar(&preprocessCategories, "category", []string{"screams", "noise"}, "category to convert (repeatable)")
	f.IntVar(&preprocessWorkers, "workers", runtime.NumCPU(), "parallel conversions")
	f.String("colormap", "magma", "spectrogram colormap: magma or gray")
	bind(preprocessCmd, "features.colormap", "colormap")

	rootCmd.AddCommand(preprocessCmd)
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	ext, err := features.New(cfg.Features)
	if err != nil {
		return err
	}
	loc, err := storage.ParseDir(preprocessOut)
	if err != nil {
		return err
	}
	opener := &storage.Opener{S3: cfg.Models.S3}
	out, err := opener.Open(ctx, loc)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	c := &converter{
		ext:     ext,
		in:      preprocessIn,
		out:     out,
		workers: preprocessWorkers,
		logger:  slog.Default(),
	}
	start := time.Now()
	res, err := c.Run(ctx, preprocessCategories)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, cat := range res.Categories {
		fmt.Fprintf(w, "%-10s %d/%d converted\n", cat.Name, cat.Converted, cat.Files)
	}
	fmt.Fprintf(w, "converted %d of %d clips into %s in %s\n",
		res.Converted(), res.Files(), loc, time.Since(start).Round(time.Millisecond))
	if res.Files() > 0 && res.Converted() == 0 {
		return fmt.Errorf("no clip could be converted")
	}
	return nil
}

// converter renders a dataset of clips into spectrogram images.
type converter struct {
	ext     *features.Extractor
	in      string
	out     storage.FileStore
	workers int
	logger  *slog.Logger
}

type categoryResult struct {
	Name      string
	Files     int
	Converted int
}

type convertResult struct {
	Categories []categoryResult
}

func (r convertResult) Files() int {
	n := 0
	for _, c := range r.Categories {
		n += c.Files
	}
	return n
}

func (r convertResult) Converted() int {
	n := 0
	for _, c := range r.Categories {
		n += c.Converted
	}
	return n
}

// Run converts every category and writes the labels file. Per-clip
// failures are logged and counted; only listing errors, output errors on
// the labels file and cancellation abort the run.
func (c *converter) Run(ctx context.Context, categories []string) (convertResult, error) {
	if len(categories) == 0 {
		return convertResult{}, fmt.Errorf("preprocess: no category given")
	}
	var res convertResult
	for _, cat := range categories {
		files, err := listClips(filepath.Join(c.in, cat))
		if err != nil {
			return res, err
		}
		c.logger.Info("preprocess: converting", "category", cat, "files", len(files))
		n, err := c.convert(ctx, cat, files)
		if err != nil {
			return res, err
		}
		res.Categories = append(res.Categories, categoryResult{Name: cat, Files: len(files), Converted: n})
	}
	if err := c.writeLabels(ctx, categories); err != nil {
		return res, err
	}
	return res, nil
}

func (c *converter) convert(ctx context.Context, category string, files []string) (int, error) {
	workers := c.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var converted atomic.Int64
	for _, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name := pngName(file)
			if err := c.convertOne(gctx, file, path.Join(category, name)); err != nil {
				c.logger.Warn("preprocess: skipping clip", "file", file, "error", err)
				return nil
			}
			converted.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(converted.Load()), err
	}
	return int(converted.Load()), ctx.Err()
}

func (c *converter) convertOne(ctx context.Context, file, dst string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	img, err := c.ext.Render(data)
	if err != nil {
		return err
	}
	buf, err := spectrogram.PNG(img)
	if err != nil {
		return err
	}
	return storage.WriteFile(ctx, c.out, dst, buf)
}

// writeLabels records the class order a trainer derives from the
// directory names: sorted, so "noise" comes before "screams".
func (c *converter) writeLabels(ctx context.Context, categories []string) error {
	labels := slices.Clone(categories)
	slices.Sort(labels)
	labels = slices.Compact(labels)

	size := c.ext.Config().InputSize
	mean, std := tensor.ImageNetMean, tensor.ImageNetStd
	meta := classifier.Metadata{
		Labels: labels,
		Input:  classifier.InputMetadata{Size: size, Mean: &mean, Std: &std},
	}
	data, err := meta.Marshal()
	if err != nil {
		return err
	}
	if err := storage.WriteFile(ctx, c.out, labelsFile, data); err != nil {
		return fmt.Errorf("preprocess: write %s: %w", labelsFile, err)
	}
	return nil
}

// listClips returns the audio files directly inside dir, sorted.
func listClips(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(audioExts, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func pngName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
}
