package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/nguyengg/xarchive/codec"
	"github.com/nguyengg/xarchive/storage"
	"github.com/nguyengg/xarchive/util"
	"github.com/nguyengg/xarchive/z"
)

// Tar is the Adapter and Creator for tar archives.
type Tar struct {
	// FS is used to read archives and write extracted files.
	//
	// Default to storage.OS.
	FS storage.FileSystem

	// Codec if given will be used to decode and encode the tar stream, e.g. codec.GzipCodec for .tar.gz.
	Codec codec.Codec

	// Logger receives a line for every skipped entry if non-nil.
	Logger *log.Logger
}

var (
	_ Adapter = &Tar{}
	_ Creator = &Tar{}
)

// Extract extracts regular files from the tar archive.
//
// Symlinks, hard links, and special files are skipped.
func (a *Tar) Extract(ctx context.Context, name, dest string) error {
	fsys := fsOrDefault(a.FS)

	data, err := readArchive(fsys, name)
	if err != nil {
		return err
	}

	var src io.Reader = bytes.NewReader(data)
	if a.Codec != nil {
		dec, err := a.Codec.NewDecoder(src)
		if err != nil {
			return &z.MalformedArchiveError{Reason: "create decoder error", Err: err}
		}
		defer dec.Close()

		src = dec
	}

	p := &pending{dest: dest}
	tr := tar.NewReader(src)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &z.MalformedArchiveError{Reason: "read tar header error", Err: err}
		}

		switch hdr.Typeflag {
		case tar.TypeReg:
		case tar.TypeDir:
			continue
		default:
			if a.Logger != nil {
				a.Logger.Printf(`skipping "%s" with type %q`, hdr.Name, hdr.Typeflag)
			}
			continue
		}

		if err = p.add(ctx, hdr.Name, tr); err != nil {
			return err
		}
	}

	return p.flush(ctx, fsys)
}

// Create writes a tar archive, optionally compressed with Codec.
//
// Entries whose name ends in `/` are written as directories.
func (a *Tar) Create(ctx context.Context, name string, entries []z.Entry) error {
	var buf bytes.Buffer

	var dst io.WriteCloser = &util.WriteNoopCloser{Writer: &buf}
	if a.Codec != nil {
		enc, err := a.Codec.NewEncoder(&buf)
		if err != nil {
			return fmt.Errorf("create encoder error: %w", err)
		}

		dst = enc
	}

	now := time.Now()
	tw := tar.NewWriter(dst)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr := &tar.Header{
			Name:    strings.ReplaceAll(e.Name, `\`, "/"),
			ModTime: e.Modified,
			Format:  tar.FormatPAX,
		}
		if hdr.ModTime.IsZero() {
			hdr.ModTime = now
		}

		if strings.HasSuffix(hdr.Name, "/") {
			if len(e.Data) != 0 {
				return fmt.Errorf(`directory entry "%s" must not have data`, hdr.Name)
			}

			hdr.Typeflag, hdr.Mode = tar.TypeDir, 0755
		} else {
			hdr.Typeflag, hdr.Mode, hdr.Size = tar.TypeReg, 0644, int64(len(e.Data))
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf(`write header "%s" error: %w`, hdr.Name, err)
		}
		if _, err := tw.Write(e.Data); err != nil {
			return fmt.Errorf(`write entry "%s" error: %w`, hdr.Name, err)
		}
	}

	if err := util.ChainCloser(tw.Close, dst.Close)(); err != nil {
		return fmt.Errorf("close tar writer error: %w", err)
	}

	return writeArchive(fsOrDefault(a.FS), name, buf.Bytes())
}
