package image

import (
	"fmt"
	"pixel-compare/internal/picture"
)

const (
	// White is the largest packed value once the alpha byte is ignored; differences are
	// normalized by it.
	White = 16777215
	Black = 0
)

// Position is the column/row in the baseline at which the target's origin is aligned.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

var Origin = Position{}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

func sizeOf(g picture.PixelGrid) Size {
	return Size{
		Width:  g.Width(),
		Height: g.Height(),
	}
}

type ModeKind int

const (
	ModeExact ModeKind = iota
	ModeThreshold
	ModeMaxCount
)

func (k ModeKind) String() string {
	switch k {
	case ModeExact:
		return "exact"
	case ModeThreshold:
		return "threshold"
	case ModeMaxCount:
		return "count"
	default:
		return fmt.Sprintf("ModeKind(%d)", int(k))
	}
}

// Mode selects how a difference sequence is turned into an equality verdict.
// The zero value is exact equality.
type Mode struct {
	Kind               ModeKind
	Threshold          float64
	AllowedDifferences int
}

func Exact() Mode {
	return Mode{Kind: ModeExact}
}

// Threshold treats two grids as equal when no pixel differs by more than t.
func Threshold(t float64) Mode {
	return Mode{Kind: ModeThreshold, Threshold: t}
}

// MaxCount treats two grids as equal when at most n pixels differ.
func MaxCount(n int) Mode {
	return Mode{Kind: ModeMaxCount, AllowedDifferences: n}
}

func (m Mode) equal(count int, max float64) bool {
	switch m.Kind {
	case ModeThreshold:
		return max <= m.Threshold
	case ModeMaxCount:
		return count <= m.AllowedDifferences
	default:
		return count == 0
	}
}

func (m Mode) String() string {
	switch m.Kind {
	case ModeThreshold:
		return fmt.Sprintf("threshold(%g)", m.Threshold)
	case ModeMaxCount:
		return fmt.Sprintf("count(%d)", m.AllowedDifferences)
	default:
		return m.Kind.String()
	}
}

type Options struct {
	Offset Position
	Mode   Mode
	// Lenient compares the overlapping region when the target does not fill the
	// baseline from Offset, instead of failing with *DimensionMismatchError.
	Lenient bool
}

type Report struct {
	Differences []float64
	Count       int
	Max         float64
	Average     float64
	Equal       bool
}

type Differ interface {
	Compare(baseline picture.PixelGrid, target picture.PixelGrid, opts Options) (*Report, error)
}
