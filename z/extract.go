package z

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/xarchive/internal"
	"github.com/nguyengg/xarchive/storage"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Extractor writes the entries of a ZIP archive to a storage.FileSystem.
//
// The zero value is ready for use and extracts to the local filesystem one entry at a time.
type Extractor struct {
	// FS is the storage collaborator that directories and files are written to.
	//
	// Default to storage.OS.
	FS storage.FileSystem

	// Concurrency is the maximum number of entries being decoded and written at the same time.
	//
	// Default to 1.
	Concurrency int

	// UnwrapRoot strips the top-level directory shared by every entry, if there is one.
	//
	// For example, if the archive only contains `test/a.txt` and `test/path/b.txt`, they are extracted to `dest/a.txt`
	// and `dest/path/b.txt`.
	UnwrapRoot bool

	// Logger receives progress logs if non-nil.
	Logger *log.Logger

	// LogInterval throttles progress logs.
	//
	// Default to 5 seconds.
	LogInterval time.Duration

	// Options are passed to NewReader. If Options.Logger is nil, Logger is used.
	Options Options
}

// Result summarises a successful extraction.
type Result struct {
	// Files is the number of files written.
	Files int
	// Dirs is the number of directory entries that were skipped.
	Dirs int
	// Bytes is the total number of decoded bytes written.
	Bytes int64
}

type extractJob struct {
	entry ResolvedEntry
	path  string
}

// Extract parses data as a ZIP archive and writes each file entry under dest.
//
// Directory entries (names ending in `/` or `\`) are skipped rather than created; parent directories of file entries
// are created with FileSystem.MkdirAll. Every destination path is validated before anything is written, so an archive
// containing a single traversal entry fails with *PathTraversalError and writes nothing. A file entry whose name
// resolves to dest itself fails the same way with *MalformedArchiveError. A storage rejection is
// reported as *WriteFailureError and a parsing failure as *MalformedArchiveError.
func (x *Extractor) Extract(ctx context.Context, data []byte, dest string) (res Result, err error) {
	opts := x.Options
	if opts.Logger == nil {
		opts.Logger = x.Logger
	}

	r, err := NewReader(data, func(o *Options) {
		*o = opts
	})
	if err != nil {
		return res, err
	}

	entries := r.Entries()

	var rootDir internal.RootDir
	if x.UnwrapRoot {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name
		}
		rootDir = internal.FindZipRootDir(names)
	}

	jobs := make([]extractJob, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			res.Dirs++
			continue
		}

		path, err := SafeJoinFile(dest, rootDir.Trim(e.Name))
		if err != nil {
			if me, ok := err.(*MalformedArchiveError); ok {
				me.Name, me.Offset = e.Name, e.HeaderOffset
			}

			return res, err
		}

		jobs = append(jobs, extractJob{entry: e, path: path})
	}

	fsys := x.FS
	if fsys == nil {
		fsys = storage.OS{}
	}

	interval := x.LogInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	sometimes := &rate.Sometimes{Interval: interval}

	var files, written atomic.Int64
	n := len(jobs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(x.Concurrency, 1))

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			m, err := x.write(fsys, r, job)
			if err != nil {
				return err
			}

			i, total := files.Add(1), written.Add(m)
			if x.Logger != nil {
				sometimes.Do(func() {
					x.Logger.Printf(`[%d/%d] extracted "%s" (%s so far)`, i, n, job.entry.Name, humanize.IBytes(uint64(total)))
				})
			}

			return nil
		})
	}

	if err = g.Wait(); err == nil {
		err = ctx.Err()
	}

	res.Files, res.Bytes = int(files.Load()), written.Load()
	return res, err
}

// ExtractFile reads the named archive with FS.ReadFile then calls Extract.
//
// A read failure is reported as *UnreadableArchiveError.
func (x *Extractor) ExtractFile(ctx context.Context, name, dest string) (Result, error) {
	fsys := x.FS
	if fsys == nil {
		fsys = storage.OS{}
	}

	data, err := fsys.ReadFile(name)
	if err != nil {
		return Result{}, &UnreadableArchiveError{Name: name, Err: err}
	}

	return x.Extract(ctx, data, dest)
}

func (x *Extractor) write(fsys storage.FileSystem, r *Reader, job extractJob) (int64, error) {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	n, err := r.WriteEntryTo(bb, job.entry)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(job.path)
	if err = fsys.MkdirAll(dir, 0755); err != nil {
		return 0, &WriteFailureError{Op: "mkdir", Path: dir, Err: err}
	}

	if err = fsys.WriteFile(job.path, bb.B, 0644); err != nil {
		return 0, &WriteFailureError{Op: "write", Path: job.path, Err: err}
	}

	return n, nil
}

func (r Result) String() string {
	return fmt.Sprintf("%d files (%s), %d directories skipped", r.Files, humanize.IBytes(uint64(r.Bytes)), r.Dirs)
}
