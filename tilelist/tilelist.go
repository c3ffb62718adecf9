// Package tilelist provides a flat binary format for lists of enumerated tiles.
//
// Every record is three little-endian int32 values: X, Y, Z.
// Records are written in enumeration order, so a list can be appended to when a job resumes.
package tilelist

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/eak1mov/go-tilescheme/tile"
)

var ErrInvalidList = errors.New("tilescheme: invalid tile list")

// Item represents a single record in the list.
type Item struct {
	X int32
	Y int32
	Z int32
}

func (i Item) TileID() tile.ID {
	return tile.ID{X: int(i.X), Y: int(i.Y), Z: int(i.Z)}
}

// ItemOf converts a tile ID to its record. Indices that do not fit in int32 are rejected.
func ItemOf(tileID tile.ID) (Item, error) {
	for _, v := range []int{tileID.X, tileID.Y, tileID.Z} {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return Item{}, fmt.Errorf("%w: tile %d/%d/%d does not fit in int32", ErrInvalidList, tileID.Z, tileID.X, tileID.Y)
		}
	}
	return Item{X: int32(tileID.X), Y: int32(tileID.Y), Z: int32(tileID.Z)}, nil
}

func WriteAll(items []Item, writer io.Writer) error {
	return binary.Write(writer, binary.LittleEndian, items)
}

func ReadAll(data []byte) ([]Item, error) {
	itemSize := binary.Size(Item{})
	if len(data)%itemSize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrInvalidList, len(data), itemSize)
	}
	items := make([]Item, len(data)/itemSize)

	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, items)
	if err != nil {
		return nil, err
	}

	return items, nil
}

// Writer implements tile.Writer for a tile list file. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	count  int64
	logger *slog.Logger
}

type writerConfig struct {
	Append bool
	Logger *slog.Logger
}

type WriterOption func(*writerConfig)

// WithAppend keeps existing records of the file and appends new ones.
func WithAppend() WriterOption {
	return func(c *writerConfig) { c.Append = true }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter creates a tile list file, or opens it for appending with WithAppend.
//
// The returned Writer must be closed after use.
func NewWriter(filePath string, opts ...WriterOption) (*Writer, error) {
	config := writerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if config.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(filePath, flags, 0644)
	if err != nil {
		return nil, err
	}

	return &Writer{
		file:   file,
		writer: bufio.NewWriter(file),
		logger: config.Logger,
	}, nil
}

func (w *Writer) WriteTile(tileID tile.ID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	item, err := ItemOf(tileID)
	if err != nil {
		return err
	}
	if err := binary.Write(w.writer, binary.LittleEndian, item); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of records written by this writer.
func (w *Writer) Count() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func (w *Writer) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("tilescheme: flush tile list", "records", w.count)
	return w.writer.Flush()
}

func (w *Writer) Close() error {
	return w.file.Close()
}
