package scanline_test

import (
	"slices"
	"testing"

	"github.com/eak1mov/go-tilescheme/scanline"
	"github.com/eak1mov/go-tilescheme/scheme"
	"github.com/eak1mov/go-tilescheme/tile"
	"github.com/eak1mov/go-tilescheme/tilegrid"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func testGrid(resolutions ...float64) *tilegrid.Grid {
	return gridAt(orb.Point{0, 4096}, resolutions...)
}

func gridAt(origin orb.Point, resolutions ...float64) *tilegrid.Grid {
	return &tilegrid.Grid{
		SRID: 2056,
		Bounds: orb.Bound{
			Min: orb.Point{0, 0},
			Max: orb.Point{4096, 4096},
		},
		Origin:      origin,
		Resolutions: resolutions,
	}
}

func newScheme(t *testing.T, config scheme.Config) *scheme.Scheme {
	t.Helper()
	s, err := scheme.New(config)
	require.NoError(t, err)
	return s
}

// scanlineTiles lists the tiles of s zoom by zoom, row by row.
func scanlineTiles(s *scheme.Scheme) []tile.ID {
	var tiles []tile.ID
	for z := s.MinZoom(); z <= s.MaxZoom(); z++ {
		b, _ := s.Bounds(z)
		for y := b.MinY; y <= b.MaxY; y++ {
			for x := b.MinX; x <= b.MaxX; x++ {
				tiles = append(tiles, tile.ID{X: x, Y: y, Z: z})
			}
		}
	}
	return tiles
}

func TestScanlineOrder(t *testing.T) {
	s := newScheme(t, scheme.Config{
		TileGrid: testGrid(8, 4),
		BBox:     []float64{768, 0, 4096, 2816},
		MinZoom:  scheme.Int(0),
		MaxZoom:  scheme.Int(1),
	})

	got := slices.Collect(tile.IterTiles(scanline.New(s)))
	if diff := cmp.Diff(scanlineTiles(s), got); diff != "" {
		t.Errorf("tiles mismatch (-want+got):\n%v", diff)
	}
	require.Equal(t, s.Total(), int64(len(got)))
	require.True(t, s.Done())
}

func TestMetatiles(t *testing.T) {
	s := newScheme(t, scheme.Config{
		TileGrid: testGrid(1),
		BBox:     []float64{768, 0, 4096, 2816},
		MinZoom:  scheme.Int(0),
		MaxZoom:  scheme.Int(0),
		Metatile: scheme.Int(4),
	})
	engine := scanline.New(s)

	first, ok := engine.Next()
	require.True(t, ok)
	clip := scheme.ZoomBounds{MinX: 3, MinY: 5, MaxX: 15, MaxY: 15}
	require.Equal(t, tile.Metatile{Z: 0, X: 0, Y: 4, Size: 4, Clip: clip}, first)
	require.Equal(t, []tile.ID{{X: 3, Y: 5, Z: 0}, {X: 3, Y: 6, Z: 0}, {X: 3, Y: 7, Z: 0}}, first.Tiles())

	seen := make(map[tile.ID]int)
	for _, tileID := range first.Tiles() {
		seen[tileID]++
	}
	metatiles := 1
	for metatile := range tile.IterMetatiles(engine) {
		require.Zero(t, metatile.X%4, "%+v is not aligned", metatile)
		require.Zero(t, metatile.Y%4, "%+v is not aligned", metatile)
		for tileID := range metatile.All() {
			seen[tileID]++
		}
		metatiles++
	}

	require.Equal(t, 12, metatiles)
	require.Len(t, seen, int(s.Total()))
	for tileID, n := range seen {
		require.True(t, s.Contains(tileID.Z, tileID.X, tileID.Y), "%v out of bounds", tileID)
		require.Equal(t, 1, n, "%v visited %d times", tileID, n)
	}
}

func TestEmptyZoomSkipped(t *testing.T) {
	s := newScheme(t, scheme.Config{
		TileGrid: testGrid(0.390625, 1),
		BBox:     []float64{100, 3684, 100, 3684},
		MinZoom:  scheme.Int(0),
		MaxZoom:  scheme.Int(1),
	})

	b, _ := s.Bounds(0)
	require.True(t, b.Empty())

	got := slices.Collect(tile.IterTiles(scanline.New(s)))
	require.Equal(t, []tile.ID{{X: 0, Y: 1, Z: 1}}, got)
	require.Equal(t, int64(1), s.Total())
}

func TestAllZoomsEmpty(t *testing.T) {
	s := newScheme(t, scheme.Config{
		TileGrid: testGrid(1, 0.5),
		BBox:     []float64{256, 256, 256, 256},
		MinZoom:  scheme.Int(0),
		MaxZoom:  scheme.Int(1),
		Metatile: scheme.Int(2),
	})

	engine := scanline.New(s)
	_, ok := engine.Next()
	require.False(t, ok)
	require.True(t, engine.Done())

	_, ok = engine.Next()
	require.False(t, ok)
}

func TestEnumerationCoversBounds(t *testing.T) {
	layouts := []struct {
		name   string
		origin orb.Point
		bbox   []float64
		res    []float64
	}{
		{"top-left origin", orb.Point{0, 4096}, []float64{1000, 500, 3000, 3500}, []float64{16, 8, 4}},
		{"bottom-left origin", orb.Point{0, 0}, []float64{1000, 500, 3000, 3500}, []float64{16, 8, 4}},
		{"origin inside grid", orb.Point{2100, 1900}, []float64{1000, 500, 3000, 3500}, []float64{16, 8, 4}},
		{"bottom-left corner box", orb.Point{0, 0}, []float64{0, 0, 768, 768}, []float64{1}},
	}

	for _, layout := range layouts {
		for _, size := range []int{1, 2, 3} {
			s := newScheme(t, scheme.Config{
				TileGrid: gridAt(layout.origin, layout.res...),
				BBox:     layout.bbox,
				MinZoom:  scheme.Int(0),
				MaxZoom:  scheme.Int(len(layout.res) - 1),
				Metatile: scheme.Int(size),
			})

			seen := make(map[tile.ID]int)
			var count int64
			for tileID := range tile.IterTiles(scanline.New(s)) {
				seen[tileID]++
				count++
			}

			require.Equal(t, s.Total(), count, "%s, metatile %d", layout.name, size)
			for _, tileID := range scanlineTiles(s) {
				require.Equal(t, 1, seen[tileID], "%s, metatile %d: %v", layout.name, size, tileID)
			}
		}
	}
}

func TestEnumerationNegativeIndices(t *testing.T) {
	s := newScheme(t, scheme.Config{
		TileGrid: gridAt(orb.Point{0, 0}, 1),
		BBox:     []float64{0, 0, 768, 768},
		MinZoom:  scheme.Int(0),
		MaxZoom:  scheme.Int(0),
		Metatile: scheme.Int(2),
	})
	b, _ := s.Bounds(0)
	require.Equal(t, scheme.ZoomBounds{MinX: 0, MinY: -3, MaxX: 2, MaxY: -1}, b)
	require.Equal(t, scheme.Cursor{Z: 0, X: -2, Y: -2}, *s.Cursor())

	got := slices.Collect(tile.IterMetatiles(scanline.New(s)))
	want := []tile.Metatile{
		{Z: 0, X: 0, Y: -4, Size: 2, Clip: b},
		{Z: 0, X: 2, Y: -4, Size: 2, Clip: b},
		{Z: 0, X: 0, Y: -2, Size: 2, Clip: b},
		{Z: 0, X: 2, Y: -2, Size: 2, Clip: b},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("metatiles mismatch (-want+got):\n%v", diff)
	}
}

func TestResumeFromSnapshot(t *testing.T) {
	configs := []scheme.Config{
		{
			TileGrid: testGrid(16, 8, 4),
			BBox:     []float64{1000, 500, 3000, 3500},
			MinZoom:  scheme.Int(0),
			MaxZoom:  scheme.Int(2),
			Metatile: scheme.Int(2),
		},
		{
			TileGrid: gridAt(orb.Point{2100, 1900}, 16, 8, 4),
			BBox:     []float64{1000, 500, 3000, 3500},
			MinZoom:  scheme.Int(0),
			MaxZoom:  scheme.Int(2),
			Metatile: scheme.Int(3),
		},
	}

	for _, config := range configs {
		want := slices.Collect(tile.IterTiles(scanline.New(newScheme(t, config))))
		metatiles := 0
		for range tile.IterMetatiles(scanline.New(newScheme(t, config))) {
			metatiles++
		}

		for steps := range metatiles + 1 {
			s := newScheme(t, config)
			engine := scanline.New(s)

			var got []tile.ID
			for range steps {
				metatile, ok := engine.Next()
				require.True(t, ok)
				got = append(got, metatile.Tiles()...)
			}

			data, err := s.Snapshot().Encode()
			require.NoError(t, err)
			snapshot, err := scheme.DecodeSnapshot(data)
			require.NoError(t, err)
			restored, err := scheme.Restore(snapshot)
			require.NoError(t, err)

			got = append(got, slices.Collect(tile.IterTiles(scanline.New(restored)))...)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("resume after %d steps mismatch (-want+got):\n%v", steps, diff)
			}
		}
	}
}
