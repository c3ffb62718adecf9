package scheme

import (
	"encoding/json"
	"fmt"

	"github.com/eak1mov/go-tilescheme/stats"
	"github.com/eak1mov/go-tilescheme/tilegrid"
)

// SnapshotVersion is the current snapshot schema version.
const SnapshotVersion = 1

// Snapshot is the persisted state of a scheme. Zoom bounds are not stored,
// they are derived again from the configuration on restore.
type Snapshot struct {
	Version     int            `json:"version"`
	Type        string         `json:"type"`
	TileGrid    *tilegrid.Grid `json:"tilegrid"`
	BBox        []float64      `json:"bbox"`
	MinZoom     *int           `json:"minzoom"`
	MaxZoom     *int           `json:"maxzoom"`
	Metatile    *int           `json:"metatile"`
	Concurrency int            `json:"concurrency"`
	Cursor      *Cursor        `json:"pos"`
	Stats       stats.Snapshot `json:"stats"`
}

// Snapshot captures the scheme at its current cursor.
func (s *Scheme) Snapshot() Snapshot {
	return s.SnapshotAt(s.cursor)
}

// SnapshotAt captures the scheme as if its cursor were at c.
// Orchestrators use it to checkpoint the last position whose tiles are all done.
func (s *Scheme) SnapshotAt(c Cursor) Snapshot {
	b := s.settings.BBox
	return Snapshot{
		Version:     SnapshotVersion,
		Type:        Type,
		TileGrid:    s.settings.Grid,
		BBox:        []float64{b.Left(), b.Bottom(), b.Right(), b.Top()},
		MinZoom:     Int(s.settings.MinZoom),
		MaxZoom:     Int(s.settings.MaxZoom),
		Metatile:    Int(s.settings.Metatile),
		Concurrency: s.settings.Concurrency,
		Cursor:      &c,
		Stats:       s.stats.Snapshot(),
	}
}

// Restore rebuilds a scheme from a snapshot. The configuration goes through the same
// validation as New and the zoom bounds are derived again, but the cursor is installed
// as stored so that enumeration continues after the last snapshotted position.
func Restore(snapshot Snapshot, opts ...Option) (*Scheme, error) {
	if snapshot.Version != SnapshotVersion {
		return nil, configError(fmt.Sprintf("unsupported snapshot version %d", snapshot.Version))
	}
	if snapshot.Type != Type {
		return nil, configError(fmt.Sprintf("unsupported scheme type %q", snapshot.Type))
	}

	settings, err := Config{
		TileGrid:    snapshot.TileGrid,
		BBox:        snapshot.BBox,
		MinZoom:     snapshot.MinZoom,
		MaxZoom:     snapshot.MaxZoom,
		Metatile:    snapshot.Metatile,
		Concurrency: snapshot.Concurrency,
	}.Validate()
	if err != nil {
		return nil, err
	}

	if snapshot.Cursor == nil {
		return nil, configError("snapshot has no cursor")
	}
	cursor := *snapshot.Cursor
	if cursor.Z < settings.MinZoom || cursor.Z > settings.MaxZoom+1 {
		return nil, configError(fmt.Sprintf("cursor zoom %d out of range", cursor.Z))
	}

	s := newScheme(settings, opts)
	if seed := initialCursor(settings, s.bounds[settings.MinZoom]); !cursor.Started && cursor != seed {
		return nil, configError(fmt.Sprintf("cursor %d/%d/%d is neither started nor the seed", cursor.Z, cursor.X, cursor.Y))
	}
	if total := s.stats.Total(); snapshot.Stats.Total != total {
		return nil, configError(fmt.Sprintf("snapshot total %d does not match computed total %d", snapshot.Stats.Total, total))
	}
	s.stats = stats.FromSnapshot(snapshot.Stats)
	s.cursor = cursor
	s.logger.Debug("tilescheme: restored", "z", cursor.Z, "x", cursor.X, "y", cursor.Y)
	return s, nil
}

// Encode returns the JSON form of the snapshot.
func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses the JSON form of a snapshot.
// Malformed input is reported as *ConfigurationError, like an invalid configuration.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, &ConfigurationError{Reason: "bad snapshot", Err: err}
	}
	return snapshot, nil
}

// Done reports whether the snapshot was taken after the enumeration was exhausted.
func (s Snapshot) Done() bool {
	return s.Cursor != nil && s.MaxZoom != nil && s.Cursor.Z > *s.MaxZoom
}
