package image

import (
	"pixel-compare/internal/picture"

	"github.com/go-logr/logr"
)

var defaultComparator = NewComparator(logr.Discard(), 0)

func Differences(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) ([]float64, error) {
	return defaultComparator.Differences(baseline, target, opts)
}

func Compare(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) (*Report, error) {
	return defaultComparator.Compare(baseline, target, opts)
}

func CountDifferent(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) (int, error) {
	return defaultComparator.CountDifferent(baseline, target, opts)
}

func MaxDifference(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) (float64, error) {
	return defaultComparator.MaxDifference(baseline, target, opts)
}

func AverageDifference(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) (float64, error) {
	return defaultComparator.AverageDifference(baseline, target, opts)
}

func Equal(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) (bool, error) {
	return defaultComparator.Equal(baseline, target, opts)
}

func Contains(baseline picture.PixelGrid, sub picture.PixelGrid, threshold float64) (bool, error) {
	return defaultComparator.Contains(baseline, sub, threshold)
}
