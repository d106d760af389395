package report

import (
	"crypto/sha256"
	"fmt"
	diffimage "pixel-compare/internal/diff/image"
	"time"
)

type Result struct {
	Baseline           string             `json:"baseline"`
	Target             string             `json:"target"`
	Offset             diffimage.Position `json:"offset"`
	Mode               string             `json:"mode"`
	Threshold          float64            `json:"threshold,omitempty"`
	AllowedDifferences int                `json:"allowedDifferences,omitempty"`
	Lenient            bool               `json:"lenient,omitempty"`
	DifferentPixels    int                `json:"differentPixels"`
	MaxDifference      float64            `json:"maxDifference"`
	AverageDifference  float64            `json:"averageDifference"`
	Equal              bool               `json:"equal"`
	Timestamp          time.Time          `json:"timestamp"`
}

func New(baseline string, target string, opts diffimage.Options, r *diffimage.Report, now time.Time) *Result {
	return &Result{
		Baseline:           baseline,
		Target:             target,
		Offset:             opts.Offset,
		Mode:               opts.Mode.Kind.String(),
		Threshold:          opts.Mode.Threshold,
		AllowedDifferences: opts.Mode.AllowedDifferences,
		Lenient:            opts.Lenient,
		DifferentPixels:    r.Count,
		MaxDifference:      r.Max,
		AverageDifference:  r.Average,
		Equal:              r.Equal,
		Timestamp:          now.UTC(),
	}
}

// Key is the storage key of a result for the baseline/target pair taken at now.
func Key(baseline string, target string, now time.Time) string {
	h := sha256.New()
	h.Write([]byte(baseline + target))
	hash := fmt.Sprintf("%x", h.Sum(nil))[:16]

	return fmt.Sprintf("Comparison/%s/%s.json", hash, now.Format("20060102150405"))
}
