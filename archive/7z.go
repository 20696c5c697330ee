package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bodgit/sevenzip"
	"github.com/nguyengg/xarchive/storage"
	"github.com/nguyengg/xarchive/z"
)

// SevenZip is the Adapter for 7z archives. Creating 7z archives is not supported.
type SevenZip struct {
	// FS is used to read archives and write extracted files.
	//
	// Default to storage.OS.
	FS storage.FileSystem
}

var _ Adapter = &SevenZip{}

func (a *SevenZip) Extract(ctx context.Context, name, dest string) error {
	fsys := fsOrDefault(a.FS)

	data, err := readArchive(fsys, name)
	if err != nil {
		return err
	}

	zr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return &z.MalformedArchiveError{Reason: "open 7z archive error", Err: err}
	}

	p := &pending{dest: dest}
	for _, f := range zr.File {
		if fi := f.FileInfo(); fi.IsDir() || !fi.Mode().IsRegular() {
			continue
		}

		if err = a.add(ctx, p, f); err != nil {
			return err
		}
	}

	return p.flush(ctx, fsys)
}

func (a *SevenZip) add(ctx context.Context, p *pending, f *sevenzip.File) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf(`open entry "%s" error: %w`, f.Name, err)
	}
	defer rc.Close()

	return p.add(ctx, f.Name, rc)
}
