package session

import (
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"

	"github.com/grafeo-db/grafeo/src/common"
	"github.com/grafeo-db/grafeo/src/storage"
)

// snapshotFile holds the zstd-compressed arena contents a checkpoint
// flushes alongside its WAL watermark record (spec.md §4.2: "a checkpoint
// flushes a consistent arena snapshot ... and writes a watermark
// Checkpoint record enabling truncation"). Recovery loads it before
// replaying the WAL tail, since the frames before the latest checkpoint
// are dropped rather than replayed -- their effect must already be in
// this file or that data is gone (wal.latestCheckpointIndex's doc comment
// names this contract; this is what actually fulfills it).
const snapshotFile = "snapshot.bin.zst"

// writeSnapshot encodes every node and edge visible as of watermark into
// entries reusing storage's own Op wire format (storage.EncodeOp), then
// compresses the stream with zstd -- a graph's property values are mostly
// repeated label/key names and similarly-shaped records, which zstd's
// dictionary window compresses well.
func writeSnapshot(db *Database, watermark common.Epoch) error {
	path := db.cfg.Path + "/" + dataDir + "/" + snapshotFile
	f, err := db.fs.Create(path)
	if err != nil {
		return common.Wrap(common.KindIoError, err, "session: creating snapshot file")
	}
	defer f.Close()

	var hdr [8]byte
	binary.BigEndian.PutUint64(hdr[:], uint64(watermark))
	if _, err := f.Write(hdr[:]); err != nil {
		return common.Wrap(common.KindIoError, err, "session: writing snapshot header")
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return common.Wrap(common.KindIoError, err, "session: starting snapshot compressor")
	}

	store := db.store
	for _, id := range store.AllNodeIDs() {
		rec, ok := store.VisibleNode(id, watermark)
		if !ok {
			continue
		}
		op := &storage.CreateNodeOp{ID: id, Labels: store.NodeLabels(rec), Props: store.VisibleNodeProperties(id, watermark)}
		if err := writeSnapshotEntry(enc, storage.OpCreateNode, storage.EncodeOp(op)); err != nil {
			enc.Close()
			return err
		}
	}
	for _, id := range store.AllEdgeIDs() {
		rec, ok := store.VisibleEdge(id, watermark)
		if !ok {
			continue
		}
		op := &storage.CreateEdgeOp{ID: id, Type: rec.Type, Src: rec.Src, Dst: rec.Dst, Props: store.VisibleEdgeProperties(id, watermark)}
		if err := writeSnapshotEntry(enc, storage.OpCreateEdge, storage.EncodeOp(op)); err != nil {
			enc.Close()
			return err
		}
	}

	if err := enc.Close(); err != nil {
		return common.Wrap(common.KindIoError, err, "session: closing snapshot compressor")
	}
	return nil
}

func writeSnapshotEntry(w io.Writer, kind storage.OpKind, payload []byte) error {
	var hdr [5]byte
	hdr[0] = byte(kind)
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return common.Wrap(common.KindIoError, err, "session: writing snapshot entry")
	}
	if _, err := w.Write(payload); err != nil {
		return common.Wrap(common.KindIoError, err, "session: writing snapshot entry")
	}
	return nil
}

// loadSnapshot applies a previously written snapshotFile into store,
// returning the watermark epoch it was taken at (common.NilEpoch, nil if
// no snapshot exists yet -- a database that has never checkpointed).
func loadSnapshot(fs afero.Fs, path string, store *storage.Store) (common.Epoch, error) {
	full := path + "/" + dataDir + "/" + snapshotFile
	if ok, err := afero.Exists(fs, full); err != nil {
		return common.NilEpoch, common.Wrap(common.KindIoError, err, "session: checking snapshot file")
	} else if !ok {
		return common.NilEpoch, nil
	}

	f, err := fs.Open(full)
	if err != nil {
		return common.NilEpoch, common.Wrap(common.KindIoError, err, "session: opening snapshot file")
	}
	defer f.Close()

	var hdrBuf [8]byte
	if _, err := io.ReadFull(f, hdrBuf[:]); err != nil {
		return common.NilEpoch, common.Wrap(common.KindCorruption, err, "session: reading snapshot header")
	}
	watermark := common.Epoch(binary.BigEndian.Uint64(hdrBuf[:]))

	dec, err := zstd.NewReader(f)
	if err != nil {
		return common.NilEpoch, common.Wrap(common.KindIoError, err, "session: starting snapshot decompressor")
	}
	defer dec.Close()

	for {
		var entryHdr [5]byte
		if _, err := io.ReadFull(dec, entryHdr[:]); err != nil {
			if err == io.EOF {
				break
			}
			return common.NilEpoch, common.Wrap(common.KindCorruption, err, "session: reading snapshot entry")
		}
		kind := storage.OpKind(entryHdr[0])
		length := binary.BigEndian.Uint32(entryHdr[1:])
		payload := make([]byte, length)
		if _, err := io.ReadFull(dec, payload); err != nil {
			return common.NilEpoch, common.Wrap(common.KindCorruption, err, "session: reading snapshot entry payload")
		}

		op, err := storage.DecodeOp(kind, payload)
		if err != nil {
			return common.NilEpoch, common.Wrap(common.KindCorruption, err, "session: decoding snapshot entry")
		}
		if err := op.Apply(store, watermark); err != nil {
			return common.NilEpoch, common.Wrap(common.KindCorruption, err, "session: applying snapshot entry")
		}
	}

	return watermark, nil
}
