package image

import (
	"errors"
	"fmt"
)

var ErrContainsNotSupported = errors.New("sub-image containment is not supported")

// DimensionMismatchError reports that the target does not exactly cover the baseline
// region that starts at Offset.
type DimensionMismatchError struct {
	Offset   Position
	Baseline Size
	Target   Size
}

// Region is the part of the baseline left after applying Offset.
func (e *DimensionMismatchError) Region() Size {
	return Size{
		Width:  e.Baseline.Width - e.Offset.X,
		Height: e.Baseline.Height - e.Offset.Y,
	}
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: baseline %s at offset %s leaves %s, target is %s", e.Baseline, e.Offset, e.Region(), e.Target)
}
