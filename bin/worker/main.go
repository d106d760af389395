package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"pixel-compare/internal/config"
	diffimage "pixel-compare/internal/diff/image"
	"pixel-compare/internal/loader"
	"pixel-compare/internal/picture"
	"pixel-compare/internal/report"
	"pixel-compare/internal/retry"
	"pixel-compare/internal/storage"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type WorkerOutput struct {
	*report.Result
	ResultURL string `json:"resultURL"`
}

type Worker struct {
	Comparator *diffimage.Comparator
	Storage    storage.Storage
	Options    diffimage.Options
	Logger     logr.Logger
	Now        func() time.Time
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}

	var modeName string
	var threshold float64
	var allowedDifferences int
	var offset string
	var lenient bool
	var workers int
	var storageBackend string
	var storageLocation string
	var callbackURL string
	var schedule string
	var verbosity int
	flag.StringVar(&modeName, "mode", config.EnvOrDefault("MODE", "exact"), "Equality mode (exact, threshold or count)")
	flag.Float64Var(&threshold, "threshold", config.EnvOrDefault("THRESHOLD", 0.0), "Largest tolerated difference in threshold mode")
	flag.IntVar(&allowedDifferences, "allowed-differences", config.EnvOrDefault("ALLOWED_DIFFERENCES", 0), "Largest tolerated number of differing pixels in count mode")
	flag.StringVar(&offset, "offset", config.EnvOrDefault("OFFSET", ""), "Baseline position of the target origin as x,y")
	flag.BoolVar(&lenient, "lenient", config.EnvOrDefault("LENIENT", false), "Compare the overlapping region when dimensions do not match")
	flag.IntVar(&workers, "workers", config.EnvOrDefault("COMPARE_WORKERS", 0), "Number of row bands compared concurrently (0 means GOMAXPROCS)")
	flag.StringVar(&storageBackend, "storage-backend", config.EnvOrDefault("STORAGE_BACKEND", "file"), "Storage backend (file, s3 or http)")
	flag.StringVar(&storageLocation, "storage-location", config.EnvOrDefault("STORAGE_LOCATION", "/tmp"), "Directory, bucket or base URL results are stored in")
	flag.StringVar(&callbackURL, "callback-url", config.EnvOrDefault("CALLBACK_URL", ""), "Callback URL to send results to")
	flag.StringVar(&schedule, "schedule", config.EnvOrDefault("SCHEDULE", ""), "Cron schedule to repeat the comparison on (e.g. \"*/5 * * * *\")")
	flag.IntVar(&verbosity, "v", config.EnvOrDefault("VERBOSITY", 0), "Log verbosity")

	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <baseline> <target>\n", os.Args[0])
		os.Exit(1)
	}

	baseline := args[0]
	target := args[1]

	logger := logr.FromSlogHandler(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(-verbosity),
	}))

	mode, err := config.ParseMode(modeName, threshold, allowedDifferences)
	if err != nil {
		log.Fatalf("invalid mode: %v", err)
	}
	position, err := config.ParseOffset(offset)
	if err != nil {
		log.Fatalf("invalid offset: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := storage.New(ctx, storageBackend, storageLocation)
	if err != nil {
		log.Fatalf("failed to create %s storage backend: %v", storageBackend, err)
	}

	worker := &Worker{
		Comparator: diffimage.NewComparator(logger, workers),
		Storage:    s,
		Options: diffimage.Options{
			Offset:  position,
			Mode:    mode,
			Lenient: lenient,
		},
		Logger: logger,
		Now:    time.Now,
	}

	run := func(ctx context.Context) error {
		result, err := worker.processComparison(ctx, baseline, target)
		if err != nil {
			return xerrors.Errorf("failed to process comparison: %w", err)
		}

		j, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return xerrors.Errorf("failed to marshal result: %w", err)
		}

		if callbackURL == "" {
			fmt.Println(string(j))
			return nil
		}
		if err := callback(ctx, callbackURL, j); err != nil {
			return xerrors.Errorf("failed to send callback: %w", err)
		}
		return nil
	}

	if schedule == "" {
		if err := run(ctx); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := runOnSchedule(ctx, schedule, time.Now, logger, run); err != nil {
		log.Fatal(err)
	}
}

func (w *Worker) processComparison(ctx context.Context, baseline string, target string) (*WorkerOutput, error) {
	var baselinePicture *picture.Picture
	var targetPicture *picture.Picture

	// Step 1: Load both images in parallel
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			p, err := w.load(ctx, baseline)
			if err != nil {
				return xerrors.Errorf("failed to load baseline image: %w", err)
			}
			baselinePicture = p
			return nil
		})

		eg.Go(func() error {
			p, err := w.load(ctx, target)
			if err != nil {
				return xerrors.Errorf("failed to load target image: %w", err)
			}
			targetPicture = p
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	// Step 2: Compare
	r, err := w.Comparator.Compare(baselinePicture.PixelGrid(), targetPicture.PixelGrid(), w.Options)
	if err != nil {
		return nil, xerrors.Errorf("failed to compare images: %w", err)
	}

	// Step 3: Upload the result
	now := w.Now()
	output := &WorkerOutput{
		Result: report.New(baseline, target, w.Options, r, now),
	}

	b, err := json.Marshal(output.Result)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal result: %w", err)
	}
	url, err := w.Storage.Put(ctx, report.Key(baseline, target, now), b)
	if err != nil {
		return nil, xerrors.Errorf("failed to upload result: %w", err)
	}
	output.ResultURL = url

	w.Logger.Info("compared images", "baseline", baseline, "target", target, "equal", r.Equal, "differentPixels", r.Count, "resultURL", url)

	return output, nil
}

func (w *Worker) load(ctx context.Context, url string) (*picture.Picture, error) {
	s, err := storage.ForURL(ctx, url)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, s, url)
}

// runOnSchedule calls run at every activation of the standard five-field cron expression
// until ctx is done. Failed runs are logged and do not stop the loop.
func runOnSchedule(ctx context.Context, expression string, now func() time.Time, logger logr.Logger, run func(context.Context) error) error {
	schedule, err := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(expression)
	if err != nil {
		return xerrors.Errorf("failed to parse schedule: %w", err)
	}

	for {
		next := schedule.Next(now())
		logger.V(1).Info("waiting for next run", "next", next)

		timer := time.NewTimer(next.Sub(now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if err := run(ctx); err != nil {
			logger.Error(err, "scheduled comparison failed")
		}
	}
}

func callback(ctx context.Context, callbackURL string, data []byte) error {
	request, err := http.NewRequestWithContext(ctx, "PATCH", callbackURL, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 1 * time.Second, // retry.Transport does not have perTryTimeout
		Transport: &retry.Transport{
			Base:          http.DefaultTransport,
			RetryStrategy: retry.NewExponentialBackOff(10*time.Millisecond, 1*time.Second, 3, nil),
			RetryOn:       retry.NewDefaultRetryOn(),
		},
	}

	response, err := client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 400 {
		return xerrors.Errorf("callback returned %s", response.Status)
	}

	return nil
}
