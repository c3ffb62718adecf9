// Package tile provides tile and metatile value types and common tile interfaces.
package tile

import "iter"

// ID represents tile coordinates in a projected tile grid.
// X grows to the east and Y grows to the south from the grid origin,
// so tiles of a grid whose origin is not the top-left corner may have negative indices.
type ID struct {
	X int
	Y int
	Z int
}

// Rect is an inclusive tile index rectangle at a single zoom level.
// A rectangle with MaxX < MinX or MaxY < MinY is empty.
type Rect struct {
	MinX int `json:"minX"`
	MinY int `json:"minY"`
	MaxX int `json:"maxX"`
	MaxY int `json:"maxY"`
}

func (r Rect) Empty() bool {
	return r.MaxX < r.MinX || r.MaxY < r.MinY
}

// Count returns the number of tiles inside the rectangle, zero for empty rectangles.
func (r Rect) Count() int64 {
	if r.Empty() {
		return 0
	}
	return int64(r.MaxX-r.MinX+1) * int64(r.MaxY-r.MinY+1)
}

func (r Rect) Contains(x, y int) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Metatile is a Size x Size block of tiles with its top-left tile at (X, Y).
// Clip holds the zoom bounds the block was produced for; tiles outside it are not part of the block.
type Metatile struct {
	Z    int
	X    int
	Y    int
	Size int
	Clip Rect
}

// Bounds returns the part of the block that lies inside Clip.
func (m Metatile) Bounds() Rect {
	return Rect{
		MinX: max(m.X, m.Clip.MinX),
		MinY: max(m.Y, m.Clip.MinY),
		MaxX: min(m.X+m.Size-1, m.Clip.MaxX),
		MaxY: min(m.Y+m.Size-1, m.Clip.MaxY),
	}
}

// Count returns the number of tiles in the block.
func (m Metatile) Count() int64 {
	return m.Bounds().Count()
}

// All returns an iterator over the tiles of the block in scanline order.
func (m Metatile) All() iter.Seq[ID] {
	return func(yield func(ID) bool) {
		b := m.Bounds()
		for y := b.MinY; y <= b.MaxY; y++ {
			for x := b.MinX; x <= b.MaxX; x++ {
				if !yield(ID{X: x, Y: y, Z: m.Z}) {
					return
				}
			}
		}
	}
}

// Tiles returns the tiles of the block in scanline order.
func (m Metatile) Tiles() []ID {
	tiles := make([]ID, 0, m.Count())
	for tileID := range m.All() {
		tiles = append(tiles, tileID)
	}
	return tiles
}

// Stepper produces metatiles one at a time until the enumeration is exhausted.
type Stepper interface {
	// Next advances the enumeration and returns the next metatile.
	// It returns false once there are no more metatiles.
	Next() (Metatile, bool)
}

// Writer defines an interface for collecting enumerated tiles.
type Writer interface {
	// WriteTile records a single tile.
	WriteTile(tileID ID) error

	// Finalize completes the writing process: flushes buffers.
	// It must be called before closing the Writer.
	Finalize() error
}
