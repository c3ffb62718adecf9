// Package jobconfig decodes tile job files written in HCL.
//
// A job file declares the tile grid either inline or as a path to its JSON form:
//
//	tilegrid {
//	  srid        = 2056
//	  bounds      = [2420000, 1030000, 2900000, 1350000]
//	  origin      = [2420000, 1350000]
//	  resolutions = [4000, 2000, 1000, 500]
//	  tile_size   = 256
//	}
//	# or: tilegrid_file = "grid.json"
//
//	bbox        = [2600000, 1200000, 2700000, 1250000]
//	minzoom     = 0
//	maxzoom     = 3
//	metatile    = 2
//	concurrency = 4
package jobconfig

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-tilescheme/scheme"
	"github.com/eak1mov/go-tilescheme/tilegrid"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/paulmach/orb"
	"github.com/zclconf/go-cty/cty"
)

var ErrInvalidJob = errors.New("tilescheme: invalid job file")

// File is the decoded content of a job file.
type File struct {
	TileGrid     *GridBlock `hcl:"tilegrid,block"`
	TileGridFile *string    `hcl:"tilegrid_file,optional"`
	BBox         []float64  `hcl:"bbox,optional"`
	MinZoom      *int       `hcl:"minzoom,optional"`
	MaxZoom      *int       `hcl:"maxzoom,optional"`
	Metatile     *int       `hcl:"metatile,optional"`
	Concurrency  *int       `hcl:"concurrency,optional"`
}

// GridBlock is an inline tile grid.
type GridBlock struct {
	// SRID may be written as a number or as a string such as "EPSG:2056".
	SRID        cty.Value `hcl:"srid,optional"`
	Bounds      []float64 `hcl:"bounds"`
	Origin      []float64 `hcl:"origin"`
	Resolutions []float64 `hcl:"resolutions"`
	TileSize    *int      `hcl:"tile_size,optional"`
}

// Load reads a job file and converts it into a scheme configuration.
// The configuration is not validated, scheme.New does that.
func Load(filePath string) (scheme.Config, error) {
	file, err := Decode(filePath)
	if err != nil {
		return scheme.Config{}, err
	}
	return file.Config(filepath.Dir(filePath))
}

// Decode parses and decodes a single HCL job file.
func Decode(filePath string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse %s: %s", ErrInvalidJob, filePath, diags.Error())
	}

	var file File
	diags = gohcl.DecodeBody(hclFile.Body, nil, &file)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode %s: %s", ErrInvalidJob, filePath, diags.Error())
	}
	return &file, nil
}

// Config converts the file into a scheme configuration.
// A relative tilegrid_file is resolved against baseDir.
func (f *File) Config(baseDir string) (scheme.Config, error) {
	config := scheme.Config{
		BBox:     f.BBox,
		MinZoom:  f.MinZoom,
		MaxZoom:  f.MaxZoom,
		Metatile: f.Metatile,
	}
	if f.Concurrency != nil {
		config.Concurrency = *f.Concurrency
	}

	switch {
	case f.TileGrid != nil && f.TileGridFile != nil:
		return scheme.Config{}, fmt.Errorf("%w: tilegrid and tilegrid_file are mutually exclusive", ErrInvalidJob)
	case f.TileGrid != nil:
		grid, err := f.TileGrid.Grid()
		if err != nil {
			return scheme.Config{}, err
		}
		config.TileGrid = grid
	case f.TileGridFile != nil:
		gridPath := *f.TileGridFile
		if !filepath.IsAbs(gridPath) {
			gridPath = filepath.Join(baseDir, gridPath)
		}
		text, err := os.ReadFile(gridPath)
		if err != nil {
			return scheme.Config{}, err
		}
		config.TileGridText = string(text)
	}

	return config, nil
}

// Grid converts the block into a tile grid.
func (b *GridBlock) Grid() (*tilegrid.Grid, error) {
	srid, err := sridValue(b.SRID)
	if err != nil {
		return nil, err
	}
	if len(b.Bounds) != 4 {
		return nil, fmt.Errorf("%w: tilegrid bounds must have four coordinates", ErrInvalidJob)
	}
	if len(b.Origin) != 2 {
		return nil, fmt.Errorf("%w: tilegrid origin must have two coordinates", ErrInvalidJob)
	}

	grid := &tilegrid.Grid{
		SRID: srid,
		Bounds: orb.Bound{
			Min: orb.Point{b.Bounds[0], b.Bounds[1]},
			Max: orb.Point{b.Bounds[2], b.Bounds[3]},
		},
		Origin:      orb.Point{b.Origin[0], b.Origin[1]},
		Resolutions: b.Resolutions,
	}
	if b.TileSize != nil {
		grid.TileSize = *b.TileSize
	}
	return grid, nil
}

func sridValue(v cty.Value) (tilegrid.SRID, error) {
	if v.IsNull() {
		return 0, nil
	}
	if !v.IsKnown() {
		return 0, fmt.Errorf("%w: srid must be a known value", ErrInvalidJob)
	}
	switch ty := v.Type(); {
	case ty.Equals(cty.Number):
		n, accuracy := v.AsBigFloat().Int64()
		if accuracy != big.Exact {
			return 0, fmt.Errorf("%w: srid must be an integer", ErrInvalidJob)
		}
		return tilegrid.SRID(n), nil
	case ty.Equals(cty.String):
		return tilegrid.ParseSRID(v.AsString())
	default:
		return 0, fmt.Errorf("%w: srid must be a number or a string", ErrInvalidJob)
	}
}
