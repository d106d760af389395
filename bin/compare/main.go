package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"pixel-compare/internal/config"
	diffimage "pixel-compare/internal/diff/image"
	"pixel-compare/internal/loader"
	"pixel-compare/internal/picture"
	"pixel-compare/internal/report"
	"pixel-compare/internal/storage"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

const (
	exitEqual     = 0
	exitDifferent = 1
	exitError     = 2
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fatalf("Failed to load .env: %v", err)
	}

	var mode string
	var threshold float64
	var allowedDifferences int
	var offset string
	var lenient bool
	var directory string
	var save bool
	var verbosity int
	flag.StringVar(&mode, "mode", config.EnvOrDefault("MODE", "exact"), "Equality mode (exact or threshold or count)")
	flag.Float64Var(&threshold, "threshold", config.EnvOrDefault("THRESHOLD", 0.0), "Largest normalized pixel difference still considered equal in threshold mode")
	flag.IntVar(&allowedDifferences, "allowed-differences", config.EnvOrDefault("ALLOWED_DIFFERENCES", 0), "Number of differing pixels still considered equal in count mode")
	flag.StringVar(&offset, "offset", config.EnvOrDefault("OFFSET", "0,0"), "Position x,y in the baseline where the target is aligned")
	flag.BoolVar(&lenient, "lenient", config.EnvOrDefault("LENIENT", false), "Compare only the overlapping region when sizes do not match")
	flag.StringVar(&directory, "directory", config.EnvOrDefault("DIRECTORY", "/tmp"), "Output directory for saved results")
	flag.BoolVar(&save, "save", config.EnvOrDefault("SAVE", false), "Save the result as JSON under -directory")
	flag.IntVar(&verbosity, "v", config.EnvOrDefault("VERBOSITY", 0), "Diagnostic verbosity (0 to 2)")

	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fatalf("baseline, target not specified")
	}

	m, err := config.ParseMode(mode, threshold, allowedDifferences)
	if err != nil {
		fatalf("Invalid mode: %v", err)
	}
	position, err := config.ParseOffset(offset)
	if err != nil {
		fatalf("Invalid offset: %v", err)
	}
	opts := diffimage.Options{
		Offset:  position,
		Mode:    m,
		Lenient: lenient,
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(-verbosity),
	}))
	comparator := diffimage.NewComparator(logr.FromSlogHandler(logger.Handler()), 0)

	ctx := context.Background()
	baselinePath := args[0]
	targetPath := args[1]

	var baseline *picture.Picture
	var target *picture.Picture
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			p, err := load(ctx, baselinePath)
			baseline = p
			return err
		})

		eg.Go(func() error {
			p, err := load(ctx, targetPath)
			target = p
			return err
		})

		if err := eg.Wait(); err != nil {
			fatalf("Failed to load images: %v", err)
		}
	}

	r, err := comparator.Compare(baseline.PixelGrid(), target.PixelGrid(), opts)
	if err != nil {
		var mismatch *diffimage.DimensionMismatchError
		if errors.As(err, &mismatch) {
			fatalf("Images cannot be aligned: %v (use -lenient to compare the overlap)", err)
		}
		fatalf("Failed to compare images: %v", err)
	}

	now := time.Now()
	result := report.New(baselinePath, targetPath, opts, r, now)

	j, err := json.Marshal(result)
	if err != nil {
		fatalf("Failed to encode result: %v", err)
	}

	if save {
		s, err := storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: directory,
		})
		if err != nil {
			fatalf("Failed to create storage backend: %v", err)
		}
		path, err := s.Put(ctx, report.Key(baselinePath, targetPath, now), j)
		if err != nil {
			fatalf("Failed to save result: %v", err)
		}
		logger.Info("saved result", "path", path)
	}

	if _, err := os.Stdout.Write(append(j, '\n')); err != nil {
		fatalf("Failed to write result: %v", err)
	}

	if !result.Equal {
		os.Exit(exitDifferent)
	}
	os.Exit(exitEqual)
}

func load(ctx context.Context, url string) (*picture.Picture, error) {
	s, err := storage.ForURL(ctx, url)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, s, url)
}

func fatalf(format string, v ...any) {
	log.Printf(format, v...)
	os.Exit(exitError)
}
