package z

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"iter"
	"log"
	"strings"
	"time"
)

// Options customises how an archive buffer is scanned and read.
type Options struct {
	// StrictEOCD requires the EOCD comment length to account for exactly the bytes after the EOCD record, and the
	// central directory to end exactly where the EOCD record starts.
	//
	// By default, the last EOCD whose fixed fields are consistent with the buffer is used even if trailing bytes
	// follow its comment, which means a comment ending in a forged EOCD record can hide the genuine one.
	StrictEOCD bool

	// NoBzip2 makes BZIP2 entries decode to empty content as if no bzip2 decoder were available.
	NoBzip2 bool

	// VerifyChecksum compares the CRC-32 of every decoded entry against the central directory value.
	//
	// By default, checksums are not verified.
	VerifyChecksum bool

	// Logger if given will be used to report entries whose content could not be decoded and were replaced with empty
	// content.
	Logger *log.Logger
}

// InternalType is the "text" or "binary" classification from the internal file attributes.
type InternalType int

const (
	Binary InternalType = iota
	Text
)

func (t InternalType) String() string {
	if t == Text {
		return "text"
	}

	return "binary"
}

// Attrs are the MS-DOS flags decoded from the low byte of the external file attributes.
type Attrs uint8

const (
	AttrReadOnly  Attrs = 0x01
	AttrHidden    Attrs = 0x02
	AttrSystem    Attrs = 0x04
	AttrDirectory Attrs = 0x10
	AttrArchive   Attrs = 0x20
)

// String returns the attributes in "DASHR" form where a dash replaces each flag that is not set.
func (a Attrs) String() string {
	flags := []struct {
		a Attrs
		c byte
	}{
		{AttrDirectory, 'D'},
		{AttrArchive, 'A'},
		{AttrSystem, 'S'},
		{AttrHidden, 'H'},
		{AttrReadOnly, 'R'},
	}

	b := make([]byte, len(flags))
	for i, f := range flags {
		b[i] = '-'
		if a&f.a != 0 {
			b[i] = f.c
		}
	}

	return string(b)
}

// CDFileHeader is a central directory file header.
//
// See https://en.wikipedia.org/wiki/ZIP_(file_format)#Central_directory_file_header_(CDFH).
type CDFileHeader struct {
	// Name is the name of the file as stored in the archive. Either `/` or `\` may be used as separator.
	Name string

	CreatorVersion uint16
	ReaderVersion  uint16
	Flags          uint16
	Method         Method

	// Modified is decoded from ModifiedDate and ModifiedTime.
	Modified     time.Time
	ModifiedTime uint16
	ModifiedDate uint16

	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32

	InternalAttrs uint16
	ExternalAttrs uint32

	// Offset is the relative offset of local file header.
	//
	// The local header may record a different name and extra field length than this header, so the start of the
	// file data must always be computed from the local header. See Resolve.
	Offset int64

	Extra   []byte
	Comment string

	// HeaderOffset is where this central directory header starts in the archive.
	HeaderOffset int64
}

// IsDir returns true if the name ends in `/` or `\`.
func (fh *CDFileHeader) IsDir() bool {
	return strings.HasSuffix(fh.Name, "/") || strings.HasSuffix(fh.Name, `\`)
}

// Type returns the text/binary classification from the internal attributes.
func (fh *CDFileHeader) Type() InternalType {
	if fh.InternalAttrs&0x01 != 0 {
		return Text
	}

	return Binary
}

// Attrs returns the MS-DOS attributes from the external attributes.
func (fh *CDFileHeader) Attrs() Attrs {
	return Attrs(fh.ExternalAttrs & 0xff)
}

// Scan parses the central directory of the ZIP archive held entirely in data.
//
// Returns the end-of-central-directory (EOCD) record, an iterator over the central directory file headers, and any
// error from searching for and parsing the EOCD. The iterator stops at the first error, which is always a
// *MalformedArchiveError.
//
// The central directory is walked by searching for each central directory header signature starting from the offset
// given by the EOCD, until no more signature is found before the end of the central directory as computed from the
// EOCD offset and size.
func Scan(data []byte, optFns ...func(*Options)) (EOCDRecord, iter.Seq2[CDFileHeader, error], error) {
	opts := &Options{}
	for _, fn := range optFns {
		fn(opts)
	}

	r, err := findEOCD(data, opts)
	if err != nil {
		return r, nil, err
	}

	return r, func(yield func(CDFileHeader, error) bool) {
		var (
			offset = int(r.CDOffset)
			end    = int(r.CDOffset) + int(r.CDSize)
		)

		for offset < end {
			j := bytes.Index(data[offset:end], sigCDFHBytes)
			if j == -1 {
				return
			}
			offset += j

			fh, n, err := parseCDFileHeader(data, offset)
			if !yield(fh, err) || err != nil {
				return
			}

			offset += n
		}
	}, nil
}

// ScanAll is a variant of Scan that collects all file headers into a slice.
func ScanAll(data []byte, optFns ...func(*Options)) (EOCDRecord, []CDFileHeader, error) {
	r, headers, err := Scan(data, optFns...)
	if err != nil {
		return r, nil, err
	}

	fhs := make([]CDFileHeader, 0, r.CDCount)
	for fh, err := range headers {
		if err != nil {
			return r, fhs, err
		}

		fhs = append(fhs, fh)
	}

	return r, fhs, nil
}

// parseCDFileHeader parses the central directory file header at data[i:].
//
// Returns the header and its total length including variable-size fields.
func parseCDFileHeader(data []byte, i int) (fh CDFileHeader, n int, err error) {
	if i+cdfhLen > len(data) {
		return fh, 0, malformed("", int64(i), fmt.Sprintf("central directory file header needs %d bytes, only %d remaining", cdfhLen, len(data)-i), nil)
	}

	b := data[i : i+cdfhLen]
	fh = CDFileHeader{
		CreatorVersion:   binary.LittleEndian.Uint16(b[4:6]),
		ReaderVersion:    binary.LittleEndian.Uint16(b[6:8]),
		Flags:            binary.LittleEndian.Uint16(b[8:10]),
		Method:           Method(binary.LittleEndian.Uint16(b[10:12])),
		ModifiedTime:     binary.LittleEndian.Uint16(b[12:14]),
		ModifiedDate:     binary.LittleEndian.Uint16(b[14:16]),
		CRC32:            binary.LittleEndian.Uint32(b[16:20]),
		CompressedSize:   binary.LittleEndian.Uint32(b[20:24]),
		UncompressedSize: binary.LittleEndian.Uint32(b[24:28]),
		InternalAttrs:    binary.LittleEndian.Uint16(b[36:38]),
		ExternalAttrs:    binary.LittleEndian.Uint32(b[38:42]),
		Offset:           int64(binary.LittleEndian.Uint32(b[42:46])),
		HeaderOffset:     int64(i),
	}
	fh.Modified = MsDosTimeToTime(fh.ModifiedDate, fh.ModifiedTime)

	nameLen := int(binary.LittleEndian.Uint16(b[28:30]))
	extraLen := int(binary.LittleEndian.Uint16(b[30:32]))
	commentLen := int(binary.LittleEndian.Uint16(b[32:34]))
	n = cdfhLen + nameLen + extraLen + commentLen
	if i+n > len(data) {
		return fh, 0, malformed("", int64(i), fmt.Sprintf("central directory file header needs %d bytes, only %d remaining", n, len(data)-i), nil)
	}

	v := data[i+cdfhLen : i+n]
	fh.Name = string(v[:nameLen])
	if extraLen > 0 {
		fh.Extra = v[nameLen : nameLen+extraLen]
	}
	fh.Comment = string(v[nameLen+extraLen:])
	return fh, n, nil
}
