package archive

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nguyengg/xarchive/codec"
	"github.com/nguyengg/xarchive/storage"
	"github.com/nguyengg/xarchive/z"
)

// Stream is the Adapter and Creator for single-file compressed streams such as .gz and .bz2.
//
// The decoded content is written to a file in dest named after the archive minus the codec's extension, so
// "logo.png.gz" extracts to "dest/logo.png". If the archive name does not end with the extension, ".out" is appended
// instead.
type Stream struct {
	// FS is used to read archives and write extracted files.
	//
	// Default to storage.OS.
	FS storage.FileSystem

	// Codec decodes and encodes the stream. Required.
	Codec codec.Codec
}

var (
	_ Adapter = &Stream{}
	_ Creator = &Stream{}
)

func (a *Stream) Extract(ctx context.Context, name, dest string) error {
	fsys := fsOrDefault(a.FS)

	data, err := readArchive(fsys, name)
	if err != nil {
		return err
	}

	dec, err := a.Codec.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return &z.MalformedArchiveError{Reason: "create decoder error", Err: err}
	}
	defer dec.Close()

	p := &pending{dest: dest}
	if err = p.add(ctx, a.outputName(name), dec); err != nil {
		return err
	}

	return p.flush(ctx, fsys)
}

// Create compresses the only file entry.
//
// Returns an error if entries does not contain exactly one file.
func (a *Stream) Create(ctx context.Context, name string, entries []z.Entry) error {
	if len(entries) != 1 || strings.HasSuffix(entries[0].Name, "/") {
		return fmt.Errorf("%s streams must contain exactly one file, got %d entries", strings.TrimPrefix(a.Codec.Ext(), "."), len(entries))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc, err := a.Codec.NewEncoder(&buf)
	if err != nil {
		return fmt.Errorf("create encoder error: %w", err)
	}
	if _, err = enc.Write(entries[0].Data); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encode error: %w", err)
	}
	if err = enc.Close(); err != nil {
		return fmt.Errorf("close encoder error: %w", err)
	}

	return writeArchive(fsOrDefault(a.FS), name, buf.Bytes())
}

func (a *Stream) outputName(name string) string {
	base := filepath.Base(name)
	if storage.IsS3URI(name) {
		base = name[strings.LastIndex(name, "/")+1:]
	}

	ext := a.Codec.Ext()
	if len(base) > len(ext) && strings.EqualFold(base[len(base)-len(ext):], ext) {
		return base[:len(base)-len(ext)]
	}

	return base + ".out"
}
