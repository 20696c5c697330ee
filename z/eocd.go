package z

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	sigLFH  = 0x04034b50
	sigCDFH = 0x02014b50
	sigEOCD = 0x06054b50

	lfhLen  = 30
	cdfhLen = 46
	eocdLen = 22
)

var (
	sigLFHBytes  = []byte("PK\x03\x04")
	sigCDFHBytes = []byte("PK\x01\x02")
	sigEOCDBytes = []byte("PK\x05\x06")
)

// EOCDRecord models the end of central directory record of a ZIP file.
//
// See https://en.wikipedia.org/wiki/ZIP_(file_format)#End_of_central_directory_record_(EOCD).
type EOCDRecord struct {
	// DiskNumber is number of this disk.
	DiskNumber uint16
	// CDDisk is disk where central directory starts.
	CDDisk uint16
	// CDCountOnDisk is the number of central directory records on this disk.
	CDCountOnDisk uint16
	// CDCount is the total number of central directory records.
	CDCount uint16
	// CDSize is size of central directory in bytes.
	CDSize uint32
	// CDOffset is offset of start of central directory, relative to start of archive.
	CDOffset uint32
	// Comment is the comment section of the EOCD.
	Comment []byte

	// Offset is where the EOCD signature was found. It is not part of the record itself.
	Offset int64
}

// findEOCD scans the entire buffer forward for the EOCD signature and returns the last plausible match.
//
// An archive comment may contain the EOCD signature, so candidates are tried from last to first. A candidate is
// plausible if its fixed 22 bytes fit in the buffer and the central directory it declares lies entirely before it.
// With Options.StrictEOCD, the comment length must also account for exactly the remaining bytes and the central
// directory must end right where the candidate starts.
func findEOCD(data []byte, opts *Options) (EOCDRecord, error) {
	var candidates []int
	for i := 0; ; i++ {
		j := bytes.Index(data[i:], sigEOCDBytes)
		if j == -1 {
			break
		}

		i += j
		candidates = append(candidates, i)
	}

	if len(candidates) == 0 {
		return EOCDRecord{}, malformed("", int64(len(data)), "", ErrNoEOCDFound)
	}

	var lastErr error
	for k := len(candidates) - 1; k >= 0; k-- {
		r, err := parseEOCD(data, candidates[k], opts.StrictEOCD)
		if err == nil {
			return r, nil
		}

		if lastErr == nil {
			lastErr = err
		}
	}

	return EOCDRecord{}, lastErr
}

// parseEOCD parses the EOCD starting at data[i:].
func parseEOCD(data []byte, i int, strict bool) (r EOCDRecord, err error) {
	if i+eocdLen > len(data) {
		return r, malformed("", int64(i), fmt.Sprintf("EOCD needs %d bytes, only %d remaining", eocdLen, len(data)-i), nil)
	}

	b := data[i : i+eocdLen]
	r = EOCDRecord{
		DiskNumber:    binary.LittleEndian.Uint16(b[4:6]),
		CDDisk:        binary.LittleEndian.Uint16(b[6:8]),
		CDCountOnDisk: binary.LittleEndian.Uint16(b[8:10]),
		CDCount:       binary.LittleEndian.Uint16(b[10:12]),
		CDSize:        binary.LittleEndian.Uint32(b[12:16]),
		CDOffset:      binary.LittleEndian.Uint32(b[16:20]),
		Offset:        int64(i),
	}

	switch end := int64(r.CDOffset) + int64(r.CDSize); {
	case end > int64(i):
		return r, malformed("", int64(i), fmt.Sprintf("central directory [%d, %d) overlaps EOCD", r.CDOffset, end), nil)
	case strict && end != int64(i):
		return r, malformed("", int64(i), fmt.Sprintf("central directory [%d, %d) does not end at EOCD", r.CDOffset, end), nil)
	}

	n := int(binary.LittleEndian.Uint16(b[20:22]))
	remaining := len(data) - i - eocdLen
	switch {
	case strict && n != remaining:
		return r, malformed("", int64(i), fmt.Sprintf("comment length %d does not match remaining %d bytes", n, remaining), nil)
	case n > remaining:
		n = remaining
	}
	if n > 0 {
		r.Comment = data[i+eocdLen : i+eocdLen+n]
	}

	return r, nil
}
