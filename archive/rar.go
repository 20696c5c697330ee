package archive

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/nguyengg/xarchive/storage"
	"github.com/nguyengg/xarchive/z"
	"github.com/nwaples/rardecode/v2"
)

// Rar is the Adapter for RAR archives. Creating RAR archives is not supported.
type Rar struct {
	// FS is used to read archives and write extracted files.
	//
	// Default to storage.OS.
	FS storage.FileSystem

	// Password is used to decrypt encrypted archives.
	Password string
}

var _ Adapter = &Rar{}

func (a *Rar) Extract(ctx context.Context, name, dest string) error {
	fsys := fsOrDefault(a.FS)

	data, err := readArchive(fsys, name)
	if err != nil {
		return err
	}

	var opts []rardecode.Option
	if a.Password != "" {
		opts = append(opts, rardecode.Password(a.Password))
	}

	rr, err := rardecode.NewReader(bytes.NewReader(data), opts...)
	if err != nil {
		return &z.MalformedArchiveError{Reason: "open rar archive error", Err: err}
	}

	p := &pending{dest: dest}
	for {
		fh, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &z.MalformedArchiveError{Reason: "read rar header error", Err: err}
		}

		if fh.IsDir || !fh.Mode().IsRegular() {
			continue
		}

		if err = p.add(ctx, fh.Name, rr); err != nil {
			return err
		}
	}

	return p.flush(ctx, fsys)
}
