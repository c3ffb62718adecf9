// Package scanline steps a cursor over the tiles of a scheme in scanline order:
// row by row within a zoom level, zoom levels in ascending order.
package scanline

import (
	"github.com/eak1mov/go-tilescheme/scheme"
	"github.com/eak1mov/go-tilescheme/tile"
)

// Traversal is what the engine needs from a scheme: per-zoom bounds,
// the zoom range, the metatile size and a cursor to advance in place.
// *scheme.Scheme implements it.
type Traversal interface {
	Bounds(z int) (scheme.ZoomBounds, bool)
	MinZoom() int
	MaxZoom() int
	MetatileSize() int
	Cursor() *scheme.Cursor
}

// Engine advances the cursor of a Traversal. It holds no position of its own,
// so an engine built over a restored scheme continues where the snapshot was taken.
// Engine is not safe for concurrent use.
type Engine struct {
	t Traversal
}

func New(t Traversal) *Engine {
	return &Engine{t: t}
}

// Next advances the cursor by one metatile and returns it.
// Zoom levels with empty bounds are skipped. Once the last zoom level is exhausted
// the cursor stays past it and Next returns false.
//
// Metatiles are laid on multiples of the metatile size, rounding toward negative
// infinity, so blocks that straddle a negative minimum still cover it. The first step
// from a seeded cursor moves to the first block of its zoom instead of stepping right.
func (e *Engine) Next() (tile.Metatile, bool) {
	c := e.t.Cursor()
	size := e.t.MetatileSize()
	if c.Z > e.t.MaxZoom() {
		return tile.Metatile{}, false
	}

	b, _ := e.t.Bounds(c.Z)
	if c.Started {
		c.X += size
	} else {
		c.Started = true
		c.X = alignDown(b.MinX, size)
		c.Y = alignDown(b.MinY, size)
	}
	for b.Empty() || c.X > b.MaxX || c.Y > b.MaxY {
		if b.Empty() || c.Y > b.MaxY {
			c.Z++
			if c.Z > e.t.MaxZoom() {
				*c = scheme.Cursor{Z: c.Z, Started: true}
				return tile.Metatile{}, false
			}
			b, _ = e.t.Bounds(c.Z)
			c.X = alignDown(b.MinX, size)
			c.Y = alignDown(b.MinY, size)
			continue
		}
		c.X = alignDown(b.MinX, size)
		c.Y += size
	}

	return tile.Metatile{Z: c.Z, X: c.X, Y: c.Y, Size: size, Clip: b}, true
}

// alignDown returns the largest multiple of size not above v.
func alignDown(v, size int) int {
	return v - ((v%size)+size)%size
}

// Done reports whether the enumeration is exhausted.
func (e *Engine) Done() bool {
	return e.t.Cursor().Z > e.t.MaxZoom()
}
