// Package scheme computes the set of tiles a projected tile job has to visit
// and keeps a restartable cursor over them.
//
// A Scheme validates its configuration, derives the tile rectangle of every zoom level
// and seeds the cursor one step before the first tile. Stepping is done by an
// enumeration engine (see package scanline) that the scheme is handed to.
// A Scheme is not safe for concurrent stepping, callers serialize access to the cursor.
package scheme

import (
	"log/slog"

	"github.com/eak1mov/go-tilescheme/stats"
	"github.com/eak1mov/go-tilescheme/tilegrid"
	"github.com/paulmach/orb"
)

// Type names the scheme in snapshots.
const Type = "projected"

// Cursor is the last enumerated position.
// Z beyond the maximum zoom marks an exhausted enumeration.
// Started is false only for the seeded cursor: with negative tile indices the seed
// can coincide with a metatile position, so the coordinates alone cannot tell them apart.
type Cursor struct {
	Z       int  `json:"z"`
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Started bool `json:"started"`
}

type Scheme struct {
	settings Settings
	bounds   map[int]ZoomBounds
	cursor   Cursor
	stats    *stats.Statistics
	logger   *slog.Logger
}

type schemeConfig struct {
	Logger *slog.Logger
}

type Option func(*schemeConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *schemeConfig) { c.Logger = logger }
}

// New validates the configuration and returns a scheme positioned before its first tile.
// Validation failures are reported as *ConfigurationError.
func New(config Config, opts ...Option) (*Scheme, error) {
	settings, err := config.Validate()
	if err != nil {
		return nil, err
	}

	s := newScheme(settings, opts)
	s.cursor = initialCursor(settings, s.bounds[settings.MinZoom])
	s.logger.Debug("tilescheme: cursor seeded", "z", s.cursor.Z, "x", s.cursor.X, "y", s.cursor.Y)
	return s, nil
}

func newScheme(settings Settings, opts []Option) *Scheme {
	config := schemeConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	bounds, total := ComputeBounds(settings.Grid, settings.BBox, settings.MinZoom, settings.MaxZoom)
	for z := settings.MinZoom; z <= settings.MaxZoom; z++ {
		config.Logger.Debug("tilescheme: zoom bounds", "z", z, "bounds", bounds[z], "tiles", bounds[z].Count())
	}
	config.Logger.Debug("tilescheme: total tiles", "total", total)

	return &Scheme{
		settings: settings,
		bounds:   bounds,
		stats:    stats.New(total),
		logger:   config.Logger,
	}
}

// initialCursor places the cursor one metatile to the left of the first metatile of minzoom,
// aligned to the metatile grid. With metatile size 1 this is the tile left of the first tile.
func initialCursor(settings Settings, b ZoomBounds) Cursor {
	size := settings.Metatile
	return Cursor{
		Z: settings.MinZoom,
		X: Align(b.MinX, size) - size,
		Y: Align(b.MinY, size),
	}
}

func (s *Scheme) Settings() Settings       { return s.settings }
func (s *Scheme) Grid() *tilegrid.Grid     { return s.settings.Grid }
func (s *Scheme) BBox() orb.Bound          { return s.settings.BBox }
func (s *Scheme) MinZoom() int             { return s.settings.MinZoom }
func (s *Scheme) MaxZoom() int             { return s.settings.MaxZoom }
func (s *Scheme) MetatileSize() int        { return s.settings.Metatile }
func (s *Scheme) Concurrency() int         { return s.settings.Concurrency }
func (s *Scheme) Stats() *stats.Statistics { return s.stats }

// Cursor returns the cursor the enumeration engine steps in place.
func (s *Scheme) Cursor() *Cursor {
	return &s.cursor
}

// Bounds returns the tile rectangle of zoom level z.
func (s *Scheme) Bounds(z int) (ZoomBounds, bool) {
	b, ok := s.bounds[z]
	return b, ok
}

// Contains reports whether tile (z, x, y) is in scope.
func (s *Scheme) Contains(z, x, y int) bool {
	b, ok := s.bounds[z]
	return ok && b.Contains(x, y)
}

// Total returns the number of tiles in scope across all zoom levels.
func (s *Scheme) Total() int64 {
	return s.stats.Total()
}

// Done reports whether the cursor has moved past the last zoom level.
func (s *Scheme) Done() bool {
	return s.cursor.Z > s.settings.MaxZoom
}
