package wal

import (
	"fmt"
	"sync"

	"github.com/spf13/afero"

	"github.com/grafeo-db/grafeo/src/common"
)

// Checkpointer writes periodic watermark records so recovery has a bound
// on how far back it must replay, and truncates segments that predate
// the watermark once nothing in the engine still depends on them
// (spec.md §4.2: "a checkpoint flushes a consistent arena snapshot ...
// and writes a watermark Checkpoint record enabling truncation").
type Checkpointer struct {
	writer *Writer
	fs     afero.Fs
	dir    string

	mu              sync.Mutex
	lastCheckpointAt common.Epoch
}

func NewCheckpointer(writer *Writer, fs afero.Fs, dir string) *Checkpointer {
	return &Checkpointer{writer: writer, fs: fs, dir: dir}
}

// Checkpoint appends a Checkpoint record stamped with watermark. Callers
// are expected to have already flushed a consistent storage snapshot to
// P/data before calling this (the coordinator itself is WAL-only; the
// data snapshot is session.Database's responsibility since only it knows
// the storage layout to serialize).
func (c *Checkpointer) Checkpoint(watermark common.Epoch) (common.LSN, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, err := c.writer.Append(FrameCheckpoint(0, watermark))
	if err != nil {
		return 0, err
	}
	if err := c.writer.SyncCommit(); err != nil {
		return 0, err
	}

	c.lastCheckpointAt = watermark
	return seq, nil
}

// LastCheckpointEpoch reports the watermark of the most recent checkpoint
// taken through this coordinator, used by the admin surface's
// wal_status().
func (c *Checkpointer) LastCheckpointEpoch() common.Epoch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCheckpointAt
}

// TruncateBefore deletes every segment older than keepFrom, the oldest
// segment the caller has determined still holds frames relevant to
// recovery (typically the segment containing the latest checkpoint).
// Returns how many segments were removed.
func (c *Checkpointer) TruncateBefore(keepFrom int) (int, error) {
	segments, err := ListSegments(c.fs, c.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range segments {
		var num int
		if _, err := fmt.Sscanf(name, "%d.log", &num); err != nil || num >= keepFrom {
			continue
		}
		if err := c.fs.Remove(c.dir + "/" + name); err != nil {
			return removed, common.Wrap(common.KindIoError, err, "wal: truncating segment")
		}
		removed++
	}

	return removed, nil
}
