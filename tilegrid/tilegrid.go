// Package tilegrid describes the tiling of an arbitrary map projection:
// its extent, pixel origin, per-zoom resolutions and tile size.
package tilegrid

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// DefaultTileSize is the tile size in pixels used when a grid does not declare one.
const DefaultTileSize = 256

var ErrInvalidGrid = errors.New("tilescheme: invalid tile grid")

// Grid is a tile grid descriptor. It is never mutated after decoding
// and may be shared between several schemes.
type Grid struct {
	SRID SRID

	// Bounds is the extent of the grid in projection units.
	Bounds orb.Bound

	// Origin is the projection coordinate of the top-left corner of pixel space.
	Origin orb.Point

	// Resolutions lists projection units per pixel, indexed by zoom level.
	Resolutions []float64

	// TileSize is the tile size in pixels, zero means DefaultTileSize.
	TileSize int
}

type gridJSON struct {
	SRID        SRID      `json:"srid,omitempty"`
	Bounds      []float64 `json:"bounds"`
	Origin      []float64 `json:"origin"`
	Resolutions []float64 `json:"resolutions"`
	TileSize    int       `json:"tileSize,omitempty"`
}

// Parse decodes a grid from its JSON text form, e.g.
//
//	{"srid": 2056, "bounds": [w, s, e, n], "origin": [x, y], "resolutions": [...], "tileSize": 256}
func Parse(text []byte) (*Grid, error) {
	grid := &Grid{}
	if err := json.Unmarshal(text, grid); err != nil {
		if errors.Is(err, ErrInvalidGrid) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidGrid, err)
	}
	return grid, nil
}

func (g Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(gridJSON{
		SRID:        g.SRID,
		Bounds:      []float64{g.Bounds.Left(), g.Bounds.Bottom(), g.Bounds.Right(), g.Bounds.Top()},
		Origin:      []float64{g.Origin.X(), g.Origin.Y()},
		Resolutions: g.Resolutions,
		TileSize:    g.TileSize,
	})
}

func (g *Grid) UnmarshalJSON(data []byte) error {
	var v gridJSON
	if err := json.Unmarshal(data, &v); err != nil {
		if errors.Is(err, ErrInvalidGrid) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrInvalidGrid, err)
	}
	if len(v.Bounds) != 4 {
		return fmt.Errorf("%w: bounds must have four coordinates", ErrInvalidGrid)
	}
	if len(v.Origin) != 2 {
		return fmt.Errorf("%w: origin must have two coordinates", ErrInvalidGrid)
	}
	if v.TileSize < 0 {
		return fmt.Errorf("%w: invalid tile size %d", ErrInvalidGrid, v.TileSize)
	}
	*g = Grid{
		SRID: v.SRID,
		Bounds: orb.Bound{
			Min: orb.Point{v.Bounds[0], v.Bounds[1]},
			Max: orb.Point{v.Bounds[2], v.Bounds[3]},
		},
		Origin:      orb.Point{v.Origin[0], v.Origin[1]},
		Resolutions: v.Resolutions,
		TileSize:    v.TileSize,
	}
	return nil
}

// TilePixels returns the tile size in pixels.
func (g *Grid) TilePixels() int {
	if g.TileSize == 0 {
		return DefaultTileSize
	}
	return g.TileSize
}

// MaxZoom returns the deepest zoom level the grid has a resolution for, -1 for a grid without levels.
func (g *Grid) MaxZoom() int {
	return len(g.Resolutions) - 1
}

// Pixel converts a projection coordinate into pixel space at the given resolution.
// Pixel Y grows downwards from the origin while projection Y grows upwards.
func (g *Grid) Pixel(p orb.Point, resolution float64) (float64, float64) {
	return (p.X() - g.Origin.X()) / resolution, (g.Origin.Y() - p.Y()) / resolution
}
