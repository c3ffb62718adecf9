package scheme

import (
	"math"

	"github.com/eak1mov/go-tilescheme/tile"
	"github.com/eak1mov/go-tilescheme/tilegrid"
	"github.com/paulmach/orb"
)

// ZoomBounds is the inclusive tile index rectangle covering the request box at one zoom level.
type ZoomBounds = tile.Rect

// ComputeBounds derives the tile rectangle for every zoom level in [minZoom, maxZoom]
// and the total number of tiles they cover.
//
// The upper edges are treated as half-open: a tile the box edge only touches is excluded.
// For a zero-width or zero-height box this may produce an empty rectangle,
// which contributes nothing to the total.
func ComputeBounds(grid *tilegrid.Grid, bbox orb.Bound, minZoom, maxZoom int) (map[int]ZoomBounds, int64) {
	bounds := make(map[int]ZoomBounds, maxZoom-minZoom+1)
	total := int64(0)
	for z := minZoom; z <= maxZoom; z++ {
		b := TileRange(grid, bbox, grid.Resolutions[z])
		bounds[z] = b
		total += b.Count()
	}
	return bounds, total
}

// TileRange returns the tiles covering bbox at the given resolution.
// The indices must fit in int32, which Config.Validate checks for every zoom it accepts.
func TileRange(grid *tilegrid.Grid, bbox orb.Bound, resolution float64) ZoomBounds {
	minX, minY, maxX, maxY := tileEdges(grid, bbox, resolution)
	return ZoomBounds{
		MinX: int(minX),
		MinY: int(minY),
		MaxX: int(maxX),
		MaxY: int(maxY),
	}
}

// tileEdges returns the floored tile indices of the bbox edges before conversion to int.
func tileEdges(grid *tilegrid.Grid, bbox orb.Bound, resolution float64) (minX, minY, maxX, maxY float64) {
	size := float64(grid.TilePixels())
	llx, lly := grid.Pixel(bbox.Min, resolution)
	urx, ury := grid.Pixel(bbox.Max, resolution)
	return math.Floor(llx / size), math.Floor(ury / size), math.Floor((urx - 1) / size), math.Floor((lly - 1) / size)
}

// inIndexRange reports whether v is a tile index that fits in int32.
func inIndexRange(v float64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

// Align subtracts the remainder of v modulo size.
// The remainder truncates toward zero, so a negative v aligns to the multiple just above it.
func Align(v, size int) int {
	return v - v%size
}
