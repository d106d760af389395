package picture

import (
	"fmt"
	"strconv"
)

// PixelGrid holds one packed ARGB value per pixel, indexed as grid[y][x].
type PixelGrid [][]uint32

func (g PixelGrid) Height() int {
	return len(g)
}

func (g PixelGrid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

func (g PixelGrid) String() string {
	if g == nil {
		return "[null:null]"
	}
	if len(g) < 1 {
		return "[0:null]"
	}
	return "[" + strconv.Itoa(g.Height()) + ":" + strconv.Itoa(g.Width()) + "]"
}

// Layout describes how channels are interleaved in a raw pixel buffer.
type Layout int

const (
	// LayoutBGR stores blue, green, red; alpha is implied opaque.
	LayoutBGR Layout = iota
	// LayoutABGR stores alpha, blue, green, red.
	LayoutABGR
)

func LayoutFor(hasAlphaChannel bool) Layout {
	if hasAlphaChannel {
		return LayoutABGR
	}
	return LayoutBGR
}

func (l Layout) BytesPerPixel() int {
	if l == LayoutABGR {
		return 4
	}
	return 3
}

func (l Layout) String() string {
	if l == LayoutABGR {
		return "ABGR"
	}
	return "BGR"
}

const opaque = 0xff << 24

func Pack(a uint8, r uint8, g uint8, b uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

type TruncatedBufferError struct {
	Layout   Layout
	Expected int
	Actual   int
}

func (e *TruncatedBufferError) Error() string {
	return fmt.Sprintf("%s pixel buffer truncated: expected %d bytes, got %d", e.Layout, e.Expected, e.Actual)
}

// NewPixelGrid decodes a row-major interleaved buffer into a height x width grid.
//
// A buffer shorter than width*height pixels still yields a fully allocated grid; pixels that
// could not be decoded completely stay zero and a *TruncatedBufferError is returned with it.
// Bytes past the last complete pixel, or past width*height pixels, are ignored.
func NewPixelGrid(raw []byte, width int, height int, hasAlphaChannel bool) (PixelGrid, error) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	grid := make(PixelGrid, height)
	cells := make([]uint32, width*height)
	for y := range grid {
		grid[y] = cells[y*width : (y+1)*width : (y+1)*width]
	}

	layout := LayoutFor(hasAlphaChannel)
	stride := layout.BytesPerPixel()

	available := len(raw) / stride
	pixels := min(available, width*height)

	if layout == LayoutABGR {
		for i := 0; i < pixels; i++ {
			p := raw[i*stride : i*stride+4 : i*stride+4]
			cells[i] = Pack(p[0], p[3], p[2], p[1])
		}
	} else {
		for i := 0; i < pixels; i++ {
			p := raw[i*stride : i*stride+3 : i*stride+3]
			cells[i] = opaque | Pack(0, p[2], p[1], p[0])
		}
	}

	if expected := width * height * stride; len(raw) < expected {
		return grid, &TruncatedBufferError{
			Layout:   layout,
			Expected: expected,
			Actual:   len(raw),
		}
	}

	return grid, nil
}
