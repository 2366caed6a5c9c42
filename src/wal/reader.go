package wal

import (
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/grafeo-db/grafeo/src/common"
)

// ListSegments returns every segment file under dir, sorted by segment
// number (oldest first).
func ListSegments(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, common.Wrap(common.KindIoError, err, "wal: listing segments")
	}

	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".log") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadSegment decodes every complete, checksum-valid frame in segment
// path, in file order. It stops at the first incomplete or corrupt frame
// rather than erroring, since that is exactly the torn-write tail a
// crash leaves behind (spec.md §4.2: "recovery truncates at the first
// invalid frame rather than failing outright").
func ReadSegment(fs afero.Fs, path string) ([]Frame, bool, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, false, common.Wrap(common.KindIoError, err, "wal: reading segment")
	}

	var frames []Frame
	offset := 0
	torn := false

	for offset < len(data) {
		f, n, ok := DecodeFrame(data[offset:])
		if !ok {
			torn = offset < len(data)
			break
		}
		frames = append(frames, f)
		offset += n
	}

	return frames, torn, nil
}
