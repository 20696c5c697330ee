package z

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/nguyengg/xarchive/storage"
	"golang.org/x/sync/errgroup"
)

// Entry is a named in-memory buffer to be added to a new archive.
type Entry struct {
	// Name is the path of the entry in the archive. `\` is replaced with `/`. Names ending in `/` are directories.
	Name string
	// Data is the uncompressed content. Must be empty for directories.
	Data []byte
	// Modified is the last-modified time. The zero value means BuildOptions.Now.
	Modified time.Time
}

// BuildOptions customises Build and BuildFile.
type BuildOptions struct {
	// Method is the compression method for file entries. Directory entries are always stored.
	//
	// Default to Deflate.
	Method Method

	// Level is passed to Method.Compress.
	//
	// Default to -1 which means the encoder's default level.
	Level int

	// Concurrency is the maximum number of entries being compressed at the same time.
	//
	// Default to 1.
	Concurrency int

	// Comment is the archive comment stored in the end of central directory record.
	//
	// Default to empty.
	Comment string

	// Now returns the time used for entries without a Modified time.
	//
	// Default to time.Now.
	Now func() time.Time
}

// prepared is an entry whose payload has been compressed but whose offset is not yet known.
type prepared struct {
	name             string
	method           Method
	date, time       uint16
	crc32            uint32
	compressed       []byte
	uncompressedSize uint32
	external         uint32
}

// Build compresses each entry and assembles a complete ZIP archive.
//
// Entries are written in the given order. Compression of independent entries may run in parallel (see
// BuildOptions.Concurrency), but local records and central directory records are always appended sequentially since
// each central directory record references the cumulative length of all preceding local records.
//
// A name, size, offset, or entry count that does not fit in its ZIP field fails with an error wrapping ErrSizeOverflow.
func Build(ctx context.Context, entries []Entry, optFns ...func(*BuildOptions)) ([]byte, error) {
	opts := &BuildOptions{
		Method:      Deflate,
		Level:       -1,
		Concurrency: 1,
		Now:         time.Now,
	}
	for _, fn := range optFns {
		fn(opts)
	}

	if err := opts.Method.Valid(); err != nil {
		return nil, err
	}
	if len(entries) > math.MaxUint16 {
		return nil, fmt.Errorf("archive has %d entries: %w", len(entries), ErrSizeOverflow)
	}
	if len(opts.Comment) > math.MaxUint16 {
		return nil, fmt.Errorf("archive comment is %d bytes: %w", len(opts.Comment), ErrSizeOverflow)
	}

	now := opts.Now()
	items := make([]prepared, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))

	for i, e := range entries {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() (err error) {
			if err = gctx.Err(); err != nil {
				return err
			}

			items[i], err = prepare(e, opts, now)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		local     []byte
		directory []byte
	)
	for _, p := range items {
		offset := len(local)
		if uint64(offset) > math.MaxUint32 {
			return nil, fmt.Errorf(`entry "%s" offset %d: %w`, p.name, offset, ErrSizeOverflow)
		}

		local = appendLocalRecord(local, p)
		directory = appendDirectoryRecord(directory, p, uint32(offset))
	}

	return finalize(local, directory, len(items), opts.Comment)
}

// BuildFile calls Build then writes the archive to the named file using the given storage collaborator.
//
// A storage rejection is reported as *WriteFailureError.
func BuildFile(ctx context.Context, fsys storage.FileSystem, name string, entries []Entry, optFns ...func(*BuildOptions)) error {
	data, err := Build(ctx, entries, optFns...)
	if err != nil {
		return err
	}

	if !storage.IsS3URI(name) {
		dir := filepath.Dir(name)
		if err = fsys.MkdirAll(dir, 0755); err != nil {
			return &WriteFailureError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	if err = fsys.WriteFile(name, data, 0644); err != nil {
		return &WriteFailureError{Op: "write", Path: name, Err: err}
	}

	return nil
}

func prepare(e Entry, opts *BuildOptions, now time.Time) (p prepared, err error) {
	p.name = strings.ReplaceAll(e.Name, `\`, "/")
	if len(p.name) > math.MaxUint16 {
		return p, fmt.Errorf(`entry "%.32s..." name is %d bytes: %w`, p.name, len(p.name), ErrSizeOverflow)
	}
	if uint64(len(e.Data)) > math.MaxUint32 {
		return p, fmt.Errorf(`entry "%s" is %d bytes: %w`, p.name, len(e.Data), ErrSizeOverflow)
	}

	modified := e.Modified
	if modified.IsZero() {
		modified = now
	}
	p.date, p.time = TimeToMsDos(modified)

	p.method, p.external = opts.Method, uint32(AttrArchive)
	if strings.HasSuffix(p.name, "/") {
		if len(e.Data) != 0 {
			return p, fmt.Errorf(`directory entry "%s" must not have data`, p.name)
		}

		p.method, p.external = Store, uint32(AttrDirectory)
	}

	p.crc32 = crc32.ChecksumIEEE(e.Data)
	p.uncompressedSize = uint32(len(e.Data))

	if p.compressed, err = p.method.Compress(e.Data, opts.Level); err != nil {
		return p, fmt.Errorf(`compress entry "%s" error: %w`, p.name, err)
	}
	if uint64(len(p.compressed)) > math.MaxUint32 {
		return p, fmt.Errorf(`entry "%s" compressed to %d bytes: %w`, p.name, len(p.compressed), ErrSizeOverflow)
	}

	return p, nil
}

func appendLocalRecord(b []byte, p prepared) []byte {
	b = append(b, sigLFHBytes...)
	b = binary.LittleEndian.AppendUint16(b, 20) // version needed to extract
	b = binary.LittleEndian.AppendUint16(b, 0)  // flags
	b = binary.LittleEndian.AppendUint16(b, uint16(p.method))
	b = binary.LittleEndian.AppendUint16(b, p.time)
	b = binary.LittleEndian.AppendUint16(b, p.date)
	b = binary.LittleEndian.AppendUint32(b, p.crc32)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(p.compressed)))
	b = binary.LittleEndian.AppendUint32(b, p.uncompressedSize)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(p.name)))
	b = binary.LittleEndian.AppendUint16(b, 0) // extra field length
	b = append(b, p.name...)
	return append(b, p.compressed...)
}

func appendDirectoryRecord(b []byte, p prepared, offset uint32) []byte {
	b = append(b, sigCDFHBytes...)
	b = binary.LittleEndian.AppendUint16(b, 0)  // version made by
	b = binary.LittleEndian.AppendUint16(b, 20) // version needed to extract
	b = binary.LittleEndian.AppendUint16(b, 0)  // flags
	b = binary.LittleEndian.AppendUint16(b, uint16(p.method))
	b = binary.LittleEndian.AppendUint16(b, p.time)
	b = binary.LittleEndian.AppendUint16(b, p.date)
	b = binary.LittleEndian.AppendUint32(b, p.crc32)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(p.compressed)))
	b = binary.LittleEndian.AppendUint32(b, p.uncompressedSize)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(p.name)))
	b = binary.LittleEndian.AppendUint16(b, 0) // extra field length
	b = binary.LittleEndian.AppendUint16(b, 0) // comment length
	b = binary.LittleEndian.AppendUint16(b, 0) // disk number start
	b = binary.LittleEndian.AppendUint16(b, 0) // internal attributes
	b = binary.LittleEndian.AppendUint32(b, p.external)
	b = binary.LittleEndian.AppendUint32(b, offset)
	return append(b, p.name...)
}

// finalize concatenates the local records, the central directory records, and the EOCD record.
func finalize(local, directory []byte, count int, comment string) ([]byte, error) {
	if uint64(len(local)) > math.MaxUint32 {
		return nil, fmt.Errorf("central directory offset %d: %w", len(local), ErrSizeOverflow)
	}
	if uint64(len(directory)) > math.MaxUint32 {
		return nil, fmt.Errorf("central directory size %d: %w", len(directory), ErrSizeOverflow)
	}

	out := make([]byte, 0, len(local)+len(directory)+eocdLen+len(comment))
	out = append(out, local...)
	out = append(out, directory...)
	out = append(out, sigEOCDBytes...)
	out = binary.LittleEndian.AppendUint16(out, 0) // number of this disk
	out = binary.LittleEndian.AppendUint16(out, 0) // disk where central directory starts
	out = binary.LittleEndian.AppendUint16(out, uint16(count))
	out = binary.LittleEndian.AppendUint16(out, uint16(count))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(directory)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(local)))
	out = binary.LittleEndian.AppendUint16(out, uint16(len(comment)))
	return append(out, comment...), nil
}
