package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/klauspost/compress/zip"
	"github.com/mholt/archives"
	"github.com/nguyengg/xarchive/storage"
	"github.com/nguyengg/xarchive/z"
)

// Zip is the Adapter and Creator for ZIP archives.
type Zip struct {
	// FS is used to read archives and write extracted files.
	//
	// Default to storage.OS.
	FS storage.FileSystem

	// Native uses github.com/mholt/archives to decode entries instead of z.Reader.
	//
	// Paths are still validated with z.SafeJoinFile before anything is written, and Options.NoBzip2 and
	// Options.VerifyChecksum are honoured the same way.
	Native bool

	// Concurrency is passed to z.Extractor and z.BuildOptions.
	Concurrency int

	// UnwrapRoot is passed to z.Extractor. Ignored if Native is true.
	UnwrapRoot bool

	// Options are passed to z.NewReader.
	Options z.Options

	// Build customises Create.
	Build []func(*z.BuildOptions)

	// Logger receives progress logs if non-nil.
	Logger *log.Logger
}

var (
	_ Adapter = &Zip{}
	_ Creator = &Zip{}
)

func (a *Zip) Extract(ctx context.Context, name, dest string) error {
	fsys := fsOrDefault(a.FS)

	data, err := readArchive(fsys, name)
	if err != nil {
		return err
	}

	if a.Native {
		return a.extractNative(ctx, fsys, data, dest)
	}

	x := &z.Extractor{
		FS:          fsys,
		Concurrency: a.Concurrency,
		UnwrapRoot:  a.UnwrapRoot,
		Logger:      a.Logger,
		Options:     a.Options,
	}

	res, err := x.Extract(ctx, data, dest)
	if err != nil {
		return err
	}

	if a.Logger != nil {
		a.Logger.Printf(`extracted "%s": %s`, name, res)
	}

	return nil
}

func (a *Zip) extractNative(ctx context.Context, fsys storage.FileSystem, data []byte, dest string) error {
	// archives does not expose a validate-only pass, so the central directory is checked up front.
	_, headers, err := z.ScanAll(data, func(o *z.Options) {
		*o = a.Options
	})
	if err != nil {
		return err
	}
	for _, fh := range headers {
		if fh.IsDir() {
			continue
		}
		if _, err = z.SafeJoinFile(dest, fh.Name); err != nil {
			return err
		}
	}

	p := &pending{dest: dest}
	if err = (archives.Zip{}).Extract(ctx, bytes.NewReader(data), func(ctx context.Context, f archives.FileInfo) error {
		if f.IsDir() {
			return nil
		}

		if hdr, ok := f.Header.(zip.FileHeader); ok && a.skip(f.NameInArchive, z.Method(hdr.Method)) {
			return p.add(ctx, f.NameInArchive, bytes.NewReader(nil))
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf(`open entry "%s" error: %w`, f.NameInArchive, err)
		}
		defer rc.Close()

		// the checksum is only verified at EOF so the content has been fully read by then.
		v, err := io.ReadAll(rc)
		if errors.Is(err, zip.ErrChecksum) {
			if a.Options.VerifyChecksum {
				return &z.MalformedArchiveError{Name: f.NameInArchive, Reason: "read entry error", Err: z.ErrChecksum}
			}

			err = nil
		}
		if err != nil {
			return &z.MalformedArchiveError{Name: f.NameInArchive, Reason: "read entry error", Err: err}
		}

		return p.add(ctx, f.NameInArchive, bytes.NewReader(v))
	}); err != nil {
		return err
	}

	return p.flush(ctx, fsys)
}

// skip returns true if the entry must be extracted as an empty file, the same way z.Reader does.
func (a *Zip) skip(name string, m z.Method) bool {
	switch m.Kind() {
	case z.KindUnsupported:
		a.logf(`entry "%s" uses unsupported compression method %s; extracting as empty file`, name, m)
		return true
	case z.KindBzip2:
		if a.Options.NoBzip2 {
			a.logf(`entry "%s" uses BZIP2 but bzip2 is disabled; extracting as empty file`, name)
			return true
		}
	case z.KindStored, z.KindDeflated:
	}

	return false
}

func (a *Zip) logf(format string, v ...any) {
	if a.Logger != nil {
		a.Logger.Printf(format, v...)
	}
}

// Create builds a ZIP archive with z.Build.
func (a *Zip) Create(ctx context.Context, name string, entries []z.Entry) error {
	optFns := append([]func(*z.BuildOptions){func(o *z.BuildOptions) {
		o.Concurrency = max(a.Concurrency, 1)
	}}, a.Build...)

	return z.BuildFile(ctx, fsOrDefault(a.FS), name, entries, optFns...)
}
