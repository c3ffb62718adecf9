// Package runner drives a scheme with a pool of workers.
//
// Workers share a single enumeration cursor: handing out the next metatile and
// taking checkpoints happen under one mutex. A checkpoint records the position of
// the last metatile such that it and every metatile handed out before it are finished,
// so resuming from a checkpoint never skips a tile. Tiles that were in flight when a
// job stopped may be visited again. The statistics in a checkpoint count only the
// metatiles up to that position, so tiles visited again are not counted twice.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eak1mov/go-tilescheme/scanline"
	"github.com/eak1mov/go-tilescheme/scheme"
	"github.com/eak1mov/go-tilescheme/stats"
	"github.com/eak1mov/go-tilescheme/tile"
	"golang.org/x/sync/errgroup"
)

// ErrSkip may be returned by a VisitFunc to count a metatile as skipped instead of failed.
var ErrSkip = errors.New("tilescheme: skip metatile")

// VisitFunc processes a single metatile.
type VisitFunc func(ctx context.Context, metatile tile.Metatile) error

// Checkpointer persists snapshots of a running job.
type Checkpointer interface {
	Checkpoint(ctx context.Context, snapshot scheme.Snapshot) error
}

// CheckpointFunc adapts a function to the Checkpointer interface.
type CheckpointFunc func(ctx context.Context, snapshot scheme.Snapshot) error

func (f CheckpointFunc) Checkpoint(ctx context.Context, snapshot scheme.Snapshot) error {
	return f(ctx, snapshot)
}

type runnerConfig struct {
	Logger          *slog.Logger
	Checkpointer    Checkpointer
	CheckpointEvery int
	Concurrency     int
}

type Option func(*runnerConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *runnerConfig) { c.Logger = logger }
}

// WithCheckpointer sets where snapshots go; n is the number of finished metatiles between checkpoints.
func WithCheckpointer(checkpointer Checkpointer, n int) Option {
	return func(c *runnerConfig) {
		c.Checkpointer = checkpointer
		c.CheckpointEvery = n
	}
}

// WithConcurrency overrides the worker count advised by the scheme.
func WithConcurrency(n int) Option {
	return func(c *runnerConfig) { c.Concurrency = n }
}

// Runner runs a VisitFunc over every metatile of a scheme.
type Runner struct {
	scheme *scheme.Scheme
	engine *scanline.Engine
	config runnerConfig

	mu        sync.Mutex
	issued    uint64
	finished  uint64
	positions map[uint64]scheme.Cursor
	completed map[uint64]outcome
	safe      scheme.Cursor
	safeStats stats.Snapshot
	sinceSave int
}

// outcome is the tile count a finished metatile adds to the statistics.
type outcome struct {
	visited int64
	skipped int64
}

func New(s *scheme.Scheme, opts ...Option) *Runner {
	config := runnerConfig{
		Logger:          slog.New(slog.DiscardHandler),
		CheckpointEvery: 1,
		Concurrency:     s.Concurrency(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	config.CheckpointEvery = max(config.CheckpointEvery, 1)
	config.Concurrency = max(config.Concurrency, 1)

	return &Runner{
		scheme:    s,
		engine:    scanline.New(s),
		config:    config,
		positions: make(map[uint64]scheme.Cursor),
		completed: make(map[uint64]outcome),
		safe:      *s.Cursor(),
		safeStats: s.Stats().Snapshot(),
	}
}

// Run visits all remaining metatiles. It stops at the first visit error other than ErrSkip,
// or when ctx is done. A final checkpoint is written in every case.
func (r *Runner) Run(ctx context.Context, visit VisitFunc) error {
	r.config.Logger.Debug("tilescheme: run started",
		"workers", r.config.Concurrency, "total", r.scheme.Total(), "processed", r.scheme.Stats().Processed())

	g, gctx := errgroup.WithContext(ctx)
	for range r.config.Concurrency {
		g.Go(func() error {
			return r.work(gctx, visit)
		})
	}
	err := g.Wait()

	if cerr := r.finalCheckpoint(context.WithoutCancel(ctx), err == nil); cerr != nil {
		err = errors.Join(err, cerr)
	}

	r.config.Logger.Debug("tilescheme: run finished",
		"visited", r.scheme.Stats().Visited(), "skipped", r.scheme.Stats().Skipped(),
		"failed", r.scheme.Stats().Failed(), "error", err)
	return err
}

func (r *Runner) work(ctx context.Context, visit VisitFunc) error {
	counters := r.scheme.Stats()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		seq, metatile, ok := r.next()
		if !ok {
			return nil
		}

		var result outcome
		err := visit(ctx, metatile)
		switch {
		case err == nil:
			result.visited = metatile.Count()
			counters.AddVisited(result.visited)
		case errors.Is(err, ErrSkip):
			result.skipped = metatile.Count()
			counters.AddSkipped(result.skipped)
		default:
			counters.AddFailed(metatile.Count())
			return fmt.Errorf("metatile z=%d x=%d y=%d: %w", metatile.Z, metatile.X, metatile.Y, err)
		}

		if err := r.complete(ctx, seq, result); err != nil {
			return err
		}
	}
}

// next hands out the next metatile together with its sequence number.
func (r *Runner) next() (uint64, tile.Metatile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	metatile, ok := r.engine.Next()
	if !ok {
		return 0, tile.Metatile{}, false
	}
	seq := r.issued
	r.issued++
	r.positions[seq] = *r.scheme.Cursor()
	return seq, metatile, true
}

// complete marks a metatile finished and advances the safe position and
// its statistics over the longest run of finished metatiles.
func (r *Runner) complete(ctx context.Context, seq uint64, result outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.completed[seq] = result
	for {
		done, ok := r.completed[r.finished]
		if !ok {
			break
		}
		r.safe = r.positions[r.finished]
		r.safeStats.Visited += done.visited
		r.safeStats.Skipped += done.skipped
		delete(r.completed, r.finished)
		delete(r.positions, r.finished)
		r.finished++
		r.sinceSave++
	}

	if r.config.Checkpointer == nil || r.sinceSave < r.config.CheckpointEvery {
		return nil
	}
	return r.checkpoint(ctx, r.scheme.SnapshotAt(r.safe))
}

func (r *Runner) finalCheckpoint(ctx context.Context, finished bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.Checkpointer == nil {
		return nil
	}
	if finished {
		return r.checkpoint(ctx, r.scheme.Snapshot())
	}
	return r.checkpoint(ctx, r.scheme.SnapshotAt(r.safe))
}

// checkpoint saves snapshot with the statistics of the safe position in place of the live counters.
func (r *Runner) checkpoint(ctx context.Context, snapshot scheme.Snapshot) error {
	r.sinceSave = 0
	snapshot.Stats = r.safeStats
	r.config.Logger.Debug("tilescheme: checkpoint", "cursor", *snapshot.Cursor,
		"processed", snapshot.Stats.Visited+snapshot.Stats.Skipped+snapshot.Stats.Failed)
	return r.config.Checkpointer.Checkpoint(ctx, snapshot)
}
