package picture

import (
	"sync"
	"sync/atomic"
)

// Picture is a decoded image. Its raw buffer is never modified after New, so the
// pixel grid derived from it is built at most once and never invalidated.
type Picture struct {
	name            string
	raw             []byte
	width           int
	height          int
	hasAlphaChannel bool

	once      sync.Once
	loaded    atomic.Bool
	grid      PixelGrid
	truncated error
}

// New takes ownership of raw; callers must not modify it afterwards.
func New(name string, raw []byte, width int, height int, hasAlphaChannel bool) *Picture {
	return &Picture{
		name:            name,
		raw:             raw,
		width:           width,
		height:          height,
		hasAlphaChannel: hasAlphaChannel,
	}
}

func (p *Picture) Name() string {
	return p.name
}

func (p *Picture) Width() int {
	return p.width
}

func (p *Picture) Height() int {
	return p.height
}

func (p *Picture) HasAlphaChannel() bool {
	return p.hasAlphaChannel
}

// PixelGrid returns the cached grid, building it on first access.
func (p *Picture) PixelGrid() PixelGrid {
	p.once.Do(func() {
		p.grid, p.truncated = NewPixelGrid(p.raw, p.width, p.height, p.hasAlphaChannel)
		p.loaded.Store(true)
	})
	return p.grid
}

// Loaded reports whether the grid has already been built.
func (p *Picture) Loaded() bool {
	return p.loaded.Load()
}

// Err returns the *TruncatedBufferError found while building the grid, if any.
func (p *Picture) Err() error {
	p.PixelGrid()
	return p.truncated
}
