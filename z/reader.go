package z

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
)

// Reader gives access to the entries of a ZIP archive held entirely in memory.
//
// Reader never modifies the buffer it was created with, so its methods are safe for concurrent use.
type Reader struct {
	EOCD EOCDRecord

	data    []byte
	entries []ResolvedEntry
	opts    Options
}

// NewReader scans the central directory of data and resolves the file data range of every entry.
//
// Returns a *MalformedArchiveError if the archive cannot be parsed.
func NewReader(data []byte, optFns ...func(*Options)) (*Reader, error) {
	opts := &Options{}
	for _, fn := range optFns {
		fn(opts)
	}

	r, headers, err := ScanAll(data, func(o *Options) {
		*o = *opts
	})
	if err != nil {
		return nil, err
	}

	entries := make([]ResolvedEntry, 0, len(headers))
	for _, fh := range headers {
		e, err := Resolve(data, fh)
		if err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return &Reader{EOCD: r, data: data, entries: entries, opts: *opts}, nil
}

// Entries returns the entries in central directory order.
func (r *Reader) Entries() []ResolvedEntry {
	return r.entries
}

// ReadEntry returns the decompressed content of the given entry.
//
// Stored entries are returned as a sub-slice of the archive buffer; callers must not modify it. Entries whose method
// is unsupported, or BZIP2 entries when Options.NoBzip2 is set, decode to empty content without error. Corrupt
// compressed data, or compressed data that decodes past the recorded uncompressed size, is reported as
// *MalformedArchiveError.
func (r *Reader) ReadEntry(e ResolvedEntry) ([]byte, error) {
	if r.skip(e) {
		return []byte{}, nil
	}

	v := e.Payload(r.data)
	if e.Method.Kind() != KindStored {
		buf := bytes.NewBuffer(make([]byte, 0, int(min(e.UncompressedSize, 64<<20))))
		if _, err := e.Method.DecompressToN(buf, v, int64(e.UncompressedSize)); err != nil {
			return nil, malformed(e.Name, e.DataStart, fmt.Sprintf("decompress %s data error", e.Method), err)
		}

		v = buf.Bytes()
	}

	if r.opts.VerifyChecksum {
		if err := r.verify(e, crc32.ChecksumIEEE(v)); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// WriteEntryTo writes the decompressed content of the given entry to w.
//
// WriteEntryTo follows the same rules as ReadEntry. An error returned by w is passed through as-is.
func (r *Reader) WriteEntryTo(w io.Writer, e ResolvedEntry) (int64, error) {
	if r.skip(e) {
		return 0, nil
	}

	h := crc32.NewIEEE()
	tw := &trackingWriter{w: io.MultiWriter(w, h)}

	n, err := e.Method.DecompressToN(tw, e.Payload(r.data), int64(e.UncompressedSize))
	if err != nil {
		if tw.err != nil {
			return n, tw.err
		}

		return n, malformed(e.Name, e.DataStart, fmt.Sprintf("decompress %s data error", e.Method), err)
	}

	if r.opts.VerifyChecksum {
		if err = r.verify(e, h.Sum32()); err != nil {
			return n, err
		}
	}

	return n, nil
}

// skip returns true if the entry must decode to empty content.
func (r *Reader) skip(e ResolvedEntry) bool {
	switch e.Method.Kind() {
	case KindUnsupported:
		r.logf(`entry "%s" uses unsupported compression method %s; extracting as empty file`, e.Name, e.Method)
		return true
	case KindBzip2:
		if r.opts.NoBzip2 {
			r.logf(`entry "%s" uses BZIP2 but bzip2 is disabled; extracting as empty file`, e.Name)
			return true
		}
	case KindStored, KindDeflated:
	}

	return false
}

func (r *Reader) verify(e ResolvedEntry, sum uint32) error {
	if sum != e.CRC32 {
		return malformed(e.Name, e.DataStart, fmt.Sprintf("got CRC-32 0x%08x, expected 0x%08x", sum, e.CRC32), ErrChecksum)
	}

	return nil
}

// ReadFile returns the decompressed content of the first entry with the given name.
//
// Returns an error wrapping fs.ErrNotExist if there is no such entry.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	for _, e := range r.entries {
		if e.Name == name {
			return r.ReadEntry(e)
		}
	}

	return nil, fmt.Errorf(`entry "%s" error: %w`, name, fs.ErrNotExist)
}

func (r *Reader) logf(format string, v ...any) {
	if r.opts.Logger != nil {
		r.opts.Logger.Printf(format, v...)
	}
}

// trackingWriter remembers the first error returned by w.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}

	return n, err
}
