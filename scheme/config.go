package scheme

import (
	"fmt"
	"math"

	"github.com/eak1mov/go-tilescheme/tilegrid"
	"github.com/paulmach/orb"
)

const (
	DefaultMetatile    = 1
	DefaultConcurrency = 8

	// MaxTiles caps the tile count of a scheme so that it stays exact in int64 and float64.
	MaxTiles = 1 << 53
)

// Config is a candidate scheme configuration as supplied by the caller.
// Optional numeric fields are pointers so that a missing value can be told apart from zero.
type Config struct {
	// TileGrid takes precedence over TileGridText.
	TileGrid *tilegrid.Grid

	// TileGridText is the JSON text form of the grid, see tilegrid.Parse.
	TileGridText string

	// BBox is [west, south, east, north] in projection units, nil means the grid bounds.
	BBox []float64

	MinZoom *int
	MaxZoom *int

	// Metatile is the metatile size in tiles, nil means DefaultMetatile.
	Metatile *int

	// Concurrency is an advisory worker count, non-positive means DefaultConcurrency.
	Concurrency int
}

// Settings is a validated and normalized configuration.
type Settings struct {
	Grid        *tilegrid.Grid
	BBox        orb.Bound
	MinZoom     int
	MaxZoom     int
	Metatile    int
	Concurrency int
}

// Int returns a pointer to v, for filling optional Config fields.
func Int(v int) *int {
	return &v
}

// Validate checks the configuration rule by rule and stops at the first violation,
// which is returned as a *ConfigurationError.
func (c Config) Validate() (Settings, error) {
	grid := c.TileGrid
	if grid == nil {
		if c.TileGridText == "" {
			return Settings{}, configError("bad tilegrid")
		}
		parsed, err := tilegrid.Parse([]byte(c.TileGridText))
		if err != nil {
			return Settings{}, &ConfigurationError{Reason: "bad tilegrid", Err: err}
		}
		grid = parsed
	}

	if grid.SRID == 0 {
		return Settings{}, configError("bad tilegrid: srid is required")
	}
	if grid.SRID.WebMercator() {
		return Settings{}, configError("use the scanline scheme for 900913/3857")
	}

	bbox := c.BBox
	if bbox == nil {
		b := grid.Bounds
		bbox = []float64{b.Left(), b.Bottom(), b.Right(), b.Top()}
	}
	if len(bbox) != 4 {
		return Settings{}, configError("bbox must have four coordinates")
	}
	west, south, east, north := bbox[0], bbox[1], bbox[2], bbox[3]
	if west < grid.Bounds.Left() {
		return Settings{}, configError("bbox has invalid west value")
	}
	if south < grid.Bounds.Bottom() {
		return Settings{}, configError("bbox has invalid south value")
	}
	if east > grid.Bounds.Right() {
		return Settings{}, configError("bbox has invalid east value")
	}
	if north > grid.Bounds.Top() {
		return Settings{}, configError("bbox has invalid north value")
	}
	// Equal edges are allowed: a zero-area box is a valid request.
	if west > east || south > north || anyNaN(bbox) {
		return Settings{}, configError("bbox is invalid")
	}

	if c.MinZoom == nil {
		return Settings{}, configError("minzoom must be a number")
	}
	if c.MaxZoom == nil {
		return Settings{}, configError("maxzoom must be a number")
	}
	minZoom, maxZoom := *c.MinZoom, *c.MaxZoom
	if minZoom < 0 {
		return Settings{}, configError("minzoom must be >= 0")
	}
	if maxZoom > grid.MaxZoom() {
		return Settings{}, configError(fmt.Sprintf("maxzoom must be <= %d", grid.MaxZoom()))
	}
	if minZoom > maxZoom {
		return Settings{}, configError("maxzoom must be >= minzoom")
	}

	metatile := DefaultMetatile
	if c.Metatile != nil {
		if *c.Metatile <= 0 {
			return Settings{}, configError("invalid metatile size")
		}
		metatile = *c.Metatile
	}

	bound := orb.Bound{
		Min: orb.Point{west, south},
		Max: orb.Point{east, north},
	}
	tiles := 0.0
	for z := minZoom; z <= maxZoom; z++ {
		r := grid.Resolutions[z]
		if !(r > 0) || math.IsInf(r, 0) {
			return Settings{}, configError(fmt.Sprintf("invalid resolution at zoom %d", z))
		}
		minX, minY, maxX, maxY := tileEdges(grid, bound, r)
		if !inIndexRange(minX) || !inIndexRange(minY) || !inIndexRange(maxX) || !inIndexRange(maxY) {
			return Settings{}, configError(fmt.Sprintf("tile index out of range at zoom %d", z))
		}
		tiles += max(maxX-minX+1, 0) * max(maxY-minY+1, 0)
	}
	if tiles > MaxTiles {
		return Settings{}, configError(fmt.Sprintf("too many tiles: more than %d", int64(MaxTiles)))
	}

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return Settings{
		Grid:        grid,
		BBox:        bound,
		MinZoom:     minZoom,
		MaxZoom:     maxZoom,
		Metatile:    metatile,
		Concurrency: concurrency,
	}, nil
}

func anyNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
