package archive

import (
	"context"
	"io"
	"path/filepath"

	"github.com/nguyengg/xarchive/storage"
	"github.com/nguyengg/xarchive/z"
)

type pendingFile struct {
	name string
	path string
	data []byte
}

// pending buffers the decoded files of an archive so that every destination path is validated before anything is
// written.
type pending struct {
	dest  string
	files []pendingFile
}

// add validates name against dest with z.SafeJoinFile then reads all of r.
//
// A read failure is reported as *z.MalformedArchiveError since it means the entry could not be decoded.
func (p *pending) add(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := z.SafeJoinFile(p.dest, name)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return &z.MalformedArchiveError{Name: name, Reason: "read entry error", Err: err}
	}

	p.files = append(p.files, pendingFile{name: name, path: path, data: data})
	return nil
}

// flush writes all buffered files using fsys.
func (p *pending) flush(ctx context.Context, fsys storage.FileSystem) error {
	for _, f := range p.files {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := filepath.Dir(f.path)
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return &z.WriteFailureError{Op: "mkdir", Path: dir, Err: err}
		}

		if err := fsys.WriteFile(f.path, f.data, 0644); err != nil {
			return &z.WriteFailureError{Op: "write", Path: f.path, Err: err}
		}
	}

	return nil
}

func readArchive(fsys storage.FileSystem, name string) ([]byte, error) {
	data, err := fsys.ReadFile(name)
	if err != nil {
		return nil, &z.UnreadableArchiveError{Name: name, Err: err}
	}

	return data, nil
}

func writeArchive(fsys storage.FileSystem, name string, data []byte) error {
	if !storage.IsS3URI(name) {
		dir := filepath.Dir(name)
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return &z.WriteFailureError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	if err := fsys.WriteFile(name, data, 0644); err != nil {
		return &z.WriteFailureError{Op: "write", Path: name, Err: err}
	}

	return nil
}

func fsOrDefault(fsys storage.FileSystem) storage.FileSystem {
	if fsys == nil {
		return storage.OS{}
	}

	return fsys
}
