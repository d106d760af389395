package config

import (
	"math"
	diffimage "pixel-compare/internal/diff/image"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

func ParseMode(name string, threshold float64, allowedDifferences int) (diffimage.Mode, error) {
	switch name {
	case "", "exact":
		return diffimage.Exact(), nil
	case "threshold":
		if threshold < 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
			return diffimage.Mode{}, xerrors.Errorf("invalid threshold: %g", threshold)
		}
		return diffimage.Threshold(threshold), nil
	case "count":
		if allowedDifferences < 0 {
			return diffimage.Mode{}, xerrors.Errorf("invalid allowed differences: %d", allowedDifferences)
		}
		return diffimage.MaxCount(allowedDifferences), nil
	default:
		return diffimage.Mode{}, xerrors.Errorf("unknown mode: %s", name)
	}
}

// ParseOffset parses "x,y". An empty string is the origin.
func ParseOffset(s string) (diffimage.Position, error) {
	if s == "" {
		return diffimage.Origin, nil
	}

	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return diffimage.Position{}, xerrors.Errorf("invalid offset: %s", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return diffimage.Position{}, xerrors.Errorf("invalid offset x: %w", err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return diffimage.Position{}, xerrors.Errorf("invalid offset y: %w", err)
	}
	if x < 0 || y < 0 {
		return diffimage.Position{}, xerrors.Errorf("invalid offset: %s", s)
	}

	return diffimage.Position{X: x, Y: y}, nil
}
