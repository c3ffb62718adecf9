package runner_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/eak1mov/go-tilescheme/runner"
	"github.com/eak1mov/go-tilescheme/scheme"
	"github.com/eak1mov/go-tilescheme/tile"
	"github.com/eak1mov/go-tilescheme/tilegrid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

var testConfig = scheme.Config{
	TileGrid: &tilegrid.Grid{
		SRID: 2056,
		Bounds: orb.Bound{
			Min: orb.Point{0, 0},
			Max: orb.Point{2048, 2048},
		},
		Origin:      orb.Point{0, 2048},
		Resolutions: []float64{8, 4, 2, 1},
	},
	BBox:        []float64{300, 100, 1900, 1500},
	MinZoom:     scheme.Int(0),
	MaxZoom:     scheme.Int(3),
	Metatile:    scheme.Int(2),
	Concurrency: 4,
}

func newScheme(t *testing.T) *scheme.Scheme {
	t.Helper()
	s, err := scheme.New(testConfig)
	require.NoError(t, err)
	return s
}

// allTiles lists every tile of the zoom bounds rectangles.
func allTiles(t *testing.T) []tile.ID {
	s := newScheme(t)
	var tiles []tile.ID
	for z := s.MinZoom(); z <= s.MaxZoom(); z++ {
		b, _ := s.Bounds(z)
		for y := b.MinY; y <= b.MaxY; y++ {
			for x := b.MinX; x <= b.MaxX; x++ {
				tiles = append(tiles, tile.ID{X: x, Y: y, Z: z})
			}
		}
	}
	require.Len(t, tiles, int(s.Total()))
	return tiles
}

type recorder struct {
	mu    sync.Mutex
	tiles map[tile.ID]int
}

func newRecorder() *recorder {
	return &recorder{tiles: make(map[tile.ID]int)}
}

func (r *recorder) visit(_ context.Context, metatile tile.Metatile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tileID := range metatile.All() {
		r.tiles[tileID]++
	}
	return nil
}

type checkpoints struct {
	snapshots []scheme.Snapshot
}

func (c *checkpoints) Checkpoint(_ context.Context, snapshot scheme.Snapshot) error {
	c.snapshots = append(c.snapshots, snapshot)
	return nil
}

func (c *checkpoints) last() scheme.Snapshot {
	return c.snapshots[len(c.snapshots)-1]
}

func TestRunVisitsEveryTileOnce(t *testing.T) {
	s := newScheme(t)
	rec := newRecorder()
	cps := &checkpoints{}

	err := runner.New(s, runner.WithCheckpointer(cps, 3)).Run(context.Background(), rec.visit)
	require.NoError(t, err)

	want := allTiles(t)
	require.Len(t, rec.tiles, len(want))
	for _, tileID := range want {
		require.Equal(t, 1, rec.tiles[tileID], "%v", tileID)
	}
	require.Equal(t, s.Total(), s.Stats().Visited())
	require.Equal(t, int64(0), s.Stats().Remaining())
	require.True(t, cps.last().Done())
}

func TestCheckpointsFollowCursor(t *testing.T) {
	s := newScheme(t)
	var positions []scheme.Cursor
	var visited []int64
	var sum int64
	visit := func(_ context.Context, metatile tile.Metatile) error {
		positions = append(positions, scheme.Cursor{Z: metatile.Z, X: metatile.X, Y: metatile.Y, Started: true})
		sum += metatile.Count()
		visited = append(visited, sum)
		return nil
	}
	cps := &checkpoints{}

	r := runner.New(s, runner.WithConcurrency(1), runner.WithCheckpointer(cps, 1))
	require.NoError(t, r.Run(context.Background(), visit))

	require.Len(t, cps.snapshots, len(positions)+1)
	for i, position := range positions {
		require.Equal(t, position, *cps.snapshots[i].Cursor)
		require.Equal(t, visited[i], cps.snapshots[i].Stats.Visited)
	}
	require.True(t, cps.last().Done())
}

func TestResumeAfterFailure(t *testing.T) {
	errBroken := errors.New("broken")
	s := newScheme(t)
	first := newRecorder()
	calls := 0
	visit := func(ctx context.Context, metatile tile.Metatile) error {
		calls++
		if calls == 5 {
			return errBroken
		}
		return first.visit(ctx, metatile)
	}
	cps := &checkpoints{}

	err := runner.New(s, runner.WithConcurrency(1), runner.WithCheckpointer(cps, 2)).Run(context.Background(), visit)
	require.ErrorIs(t, err, errBroken)
	require.Positive(t, s.Stats().Failed())

	snapshot := cps.last()
	require.False(t, snapshot.Done())
	require.Equal(t, int64(len(first.tiles)), snapshot.Stats.Visited)
	require.Zero(t, snapshot.Stats.Failed)

	restored, err := scheme.Restore(snapshot)
	require.NoError(t, err)
	second := newRecorder()
	require.NoError(t, runner.New(restored, runner.WithConcurrency(1)).Run(context.Background(), second.visit))

	for _, tileID := range allTiles(t) {
		require.Equal(t, 1, first.tiles[tileID]+second.tiles[tileID], "%v", tileID)
	}
	require.Equal(t, restored.Total(), restored.Stats().Visited())
	require.Equal(t, restored.Total(), restored.Stats().Processed())
	require.Zero(t, restored.Stats().Failed())
	require.Zero(t, restored.Stats().Remaining())
}

func TestSkip(t *testing.T) {
	s := newScheme(t)
	visit := func(_ context.Context, metatile tile.Metatile) error {
		if metatile.Z == 0 {
			return runner.ErrSkip
		}
		return nil
	}

	require.NoError(t, runner.New(s).Run(context.Background(), visit))

	b, _ := s.Bounds(0)
	require.Equal(t, b.Count(), s.Stats().Skipped())
	require.Equal(t, s.Total()-b.Count(), s.Stats().Visited())
}

func TestCancelled(t *testing.T) {
	s := newScheme(t)
	seeded := *s.Cursor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cps := &checkpoints{}
	err := runner.New(s, runner.WithCheckpointer(cps, 1)).Run(ctx, newRecorder().visit)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, cps.snapshots, 1)
	require.Equal(t, seeded, *cps.last().Cursor)
}

func TestCheckpointFunc(t *testing.T) {
	s := newScheme(t)
	var saved []scheme.Snapshot
	checkpointer := runner.CheckpointFunc(func(_ context.Context, snapshot scheme.Snapshot) error {
		saved = append(saved, snapshot)
		return nil
	})

	require.NoError(t, runner.New(s, runner.WithCheckpointer(checkpointer, 1000)).Run(context.Background(), newRecorder().visit))
	require.Len(t, saved, 1)
	require.True(t, saved[0].Done())
}
