package image

import (
	"pixel-compare/internal/picture"
	"runtime"
	"sync"

	"github.com/go-logr/logr"
)

type Comparator struct {
	log     logr.Logger
	workers int
}

// NewComparator returns a Comparator that reports diagnostics to log. workers bounds the
// number of row bands scanned concurrently; zero or less means GOMAXPROCS.
func NewComparator(log logr.Logger, workers int) *Comparator {
	if workers <= 0 {
		// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
		workers = runtime.GOMAXPROCS(0)
	}
	return &Comparator{
		log:     log,
		workers: workers,
	}
}

// Differences returns the normalized magnitude of every differing pixel pair, in row-major
// order of the baseline. Identical pixels are omitted.
func (c *Comparator) Differences(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) ([]float64, error) {
	c.log.V(1).Info("comparing pixel grids", "baseline", baseline.String(), "target", target.String(), "offset", opts.Offset.String())

	rows, cols, err := c.overlap(baseline, target, opts)
	if err != nil {
		return nil, err
	}

	differences := c.scan(baseline, target, opts.Offset, rows, cols)
	c.log.V(2).Info("collected differences", "size", len(differences))

	return differences, nil
}

func (c *Comparator) Compare(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) (*Report, error) {
	differences, err := c.Differences(baseline, target, opts)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Differences: differences,
		Count:       len(differences),
	}
	var sum float64
	for _, d := range differences {
		sum += d
		report.Max = max(report.Max, d)
	}
	if report.Count > 0 {
		report.Average = sum / float64(report.Count)
	}
	report.Equal = opts.Mode.equal(report.Count, report.Max)

	return report, nil
}

func (c *Comparator) CountDifferent(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) (int, error) {
	differences, err := c.Differences(baseline, target, opts)
	if err != nil {
		return 0, err
	}
	return len(differences), nil
}

func (c *Comparator) MaxDifference(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) (float64, error) {
	report, err := c.Compare(baseline, target, opts)
	if err != nil {
		return 0, err
	}
	return report.Max, nil
}

// AverageDifference is the mean over the differing pixels only, not over every compared pixel.
func (c *Comparator) AverageDifference(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) (float64, error) {
	report, err := c.Compare(baseline, target, opts)
	if err != nil {
		return 0, err
	}
	return report.Average, nil
}

func (c *Comparator) Equal(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) (bool, error) {
	report, err := c.Compare(baseline, target, opts)
	if err != nil {
		return false, err
	}
	return report.Equal, nil
}

// Contains always fails with ErrContainsNotSupported.
func (c *Comparator) Contains(baseline picture.PixelGrid, sub picture.PixelGrid, threshold float64) (bool, error) {
	c.log.V(1).Info("containment check requested", "baseline", baseline.String(), "sub", sub.String(), "threshold", threshold)
	return false, ErrContainsNotSupported
}

func (c *Comparator) overlap(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) (int, int, error) {
	offset := opts.Offset
	mismatch := &DimensionMismatchError{
		Offset:   offset,
		Baseline: sizeOf(baseline),
		Target:   sizeOf(target),
	}

	if offset.X < 0 || offset.Y < 0 || offset.X > baseline.Width() || offset.Y > baseline.Height() {
		c.log.Error(mismatch, "offset lies outside the baseline")
		return 0, 0, mismatch
	}

	if !rectangular(baseline) || !rectangular(target) {
		c.log.Error(nil, "Image rows differ in width.", "baseline", baseline.String(), "target", target.String())
		return 0, 0, mismatch
	}

	rows := baseline.Height() - offset.Y
	cols := baseline.Width() - offset.X

	if rows != target.Height() {
		c.log.Error(nil, "Image height does not match.", "expected", rows, "actual", target.Height())
	}
	if cols != target.Width() {
		c.log.Error(nil, "Image width does not match.", "expected", cols, "actual", target.Width())
	}
	if rows != target.Height() || cols != target.Width() {
		if !opts.Lenient {
			return 0, 0, mismatch
		}
		rows = min(rows, target.Height())
		cols = min(cols, target.Width())
	}

	return rows, cols, nil
}

// rectangular reports whether every row is as wide as the first one. Width and the
// scan bounds are derived from row 0.
func rectangular(g picture.PixelGrid) bool {
	width := g.Width()
	for _, row := range g {
		if len(row) != width {
			return false
		}
	}
	return true
}

func (c *Comparator) scan(baseline picture.PixelGrid, target picture.PixelGrid, offset Position, rows int, cols int) []float64 {
	if rows <= 0 || cols <= 0 {
		return []float64{}
	}

	numWorkers := min(c.workers, rows)
	rowsPerWorker := rows / numWorkers
	bands := make([][]float64, numWorkers)

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = rows
		}

		go func(i int, startY int, endY int) {
			defer wg.Done()
			bands[i] = scanRows(baseline, target, offset, startY, endY, cols)
		}(i, startY, endY)
	}

	wg.Wait()

	total := 0
	for _, band := range bands {
		total += len(band)
	}
	differences := make([]float64, 0, total)
	for _, band := range bands {
		differences = append(differences, band...)
	}

	return differences
}

// scanRows compares target rows [startY, endY) against the baseline shifted by offset.
func scanRows(baseline picture.PixelGrid, target picture.PixelGrid, offset Position, startY int, endY int, cols int) []float64 {
	var differences []float64

	for y := startY; y < endY; y++ {
		baselineRow := baseline[offset.Y+y][offset.X : offset.X+cols]
		targetRow := target[y][:cols]

		for x, b := range baselineRow {
			if d := delta(b, targetRow[x]); d > 0 {
				differences = append(differences, normalize(d))
			}
		}
	}

	return differences
}

func delta(l uint32, r uint32) uint32 {
	if l > r {
		return l - r
	}
	return r - l
}

// normalize maps a packed delta onto (0, 1]. Deltas that reach into the alpha byte
// exceed White and saturate.
func normalize(d uint32) float64 {
	return min(float64(d)/White, 1.0)
}
