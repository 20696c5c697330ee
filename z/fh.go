package z

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ResolvedEntry is a central directory file header together with the byte range of its file data.
type ResolvedEntry struct {
	CDFileHeader

	// DataStart is where the file data starts, computed from the local file header at CDFileHeader.Offset.
	DataStart int64
}

// DataEnd returns the offset right after the last byte of the file data.
func (e *ResolvedEntry) DataEnd() int64 {
	return e.DataStart + int64(e.CompressedSize)
}

// Payload returns the (possibly compressed) file data of the entry from the archive it was resolved from.
func (e *ResolvedEntry) Payload(data []byte) []byte {
	return data[e.DataStart:e.DataEnd()]
}

// ResolveDataStart locates the local file header at or after offset and returns the offset of its file data.
//
// The data starts right after the fixed 30 bytes of the local file header, the file name, and the extra field. The
// lengths of the last two are read from the local file header itself because they can differ from the ones recorded in
// the central directory.
func ResolveDataStart(data []byte, offset int64) (int64, error) {
	if offset < 0 || offset >= int64(len(data)) {
		return 0, malformed("", offset, "local file header offset is outside of archive", nil)
	}

	j := bytes.Index(data[offset:], sigLFHBytes)
	if j == -1 {
		return 0, malformed("", offset, "local file header signature not found", nil)
	}

	lfh := offset + int64(j)
	if lfh+lfhLen > int64(len(data)) {
		return 0, malformed("", lfh, fmt.Sprintf("local file header needs %d bytes, only %d remaining", lfhLen, int64(len(data))-lfh), nil)
	}

	nameLen := int64(binary.LittleEndian.Uint16(data[lfh+26 : lfh+28]))
	extraLen := int64(binary.LittleEndian.Uint16(data[lfh+28 : lfh+30]))
	start := lfh + lfhLen + nameLen + extraLen
	if start > int64(len(data)) {
		return 0, malformed("", lfh, fmt.Sprintf("file data would start at %d which is past end of archive (%d)", start, len(data)), nil)
	}

	return start, nil
}

// Resolve computes the file data range of the given central directory file header.
//
// Returns a *MalformedArchiveError if the local file header is missing or the data range does not fit in data.
func Resolve(data []byte, fh CDFileHeader) (ResolvedEntry, error) {
	e := ResolvedEntry{CDFileHeader: fh}

	start, err := ResolveDataStart(data, fh.Offset)
	if err != nil {
		if me, ok := err.(*MalformedArchiveError); ok {
			me.Name = fh.Name
		}
		return e, err
	}

	e.DataStart = start
	if end := e.DataEnd(); end > int64(len(data)) {
		return e, malformed(fh.Name, start, fmt.Sprintf("file data [%d, %d) is past end of archive (%d)", start, end, len(data)), nil)
	}

	return e, nil
}
