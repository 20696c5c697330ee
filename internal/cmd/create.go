package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xarchive/archive"
	"github.com/nguyengg/xarchive/internal"
	"github.com/nguyengg/xarchive/z"
)

type Create struct {
	Output  string `short:"o" long:"output" description:"the archive to create, either a local file or an s3:// URI; the extension decides the archive type" required:"yes"`
	Method  string `short:"m" long:"method" description:"the compression method of ZIP entries (store, deflate, bzip2); takes precedence over .xarchive setting"`
	Level   *int   `short:"l" long:"level" description:"the compression level of ZIP entries; takes precedence over .xarchive setting"`
	Comment string `long:"comment" description:"the ZIP archive comment; takes precedence over .xarchive setting"`
	Args    struct {
		Files []flags.Filename `positional-arg-name:"file" description:"the local files or directories to be added to the archive" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Create) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	var buildOpts []func(*z.BuildOptions)
	if c.Method != "" {
		m, err := z.ParseMethod(c.Method)
		if err != nil {
			return fmt.Errorf("invalid --method: %w", err)
		}

		buildOpts = append(buildOpts, func(o *z.BuildOptions) {
			o.Method = m
		})
	}
	if c.Level != nil {
		buildOpts = append(buildOpts, func(o *z.BuildOptions) {
			o.Level = *c.Level
		})
	}
	if c.Comment != "" {
		buildOpts = append(buildOpts, func(o *z.BuildOptions) {
			o.Comment = c.Comment
		})
	}

	ctx, stop, e, err := setup()
	if err != nil {
		return err
	}
	defer stop()

	entries, total, err := c.collect(ctx)
	if err != nil {
		return err
	}

	a := archive.New(e.archOpts, func(opts *archive.Options) {
		opts.FS = e.fsys
		opts.Logger = log.Default()
		opts.Build = append(opts.Build, buildOpts...)
	})

	if err = a.Create(ctx, c.Output, entries); err != nil {
		summarise("successfully created", 0, 1, []error{fmt.Errorf(`create "%s" error: %w`, c.Output, err)})
		return nil
	}

	log.Printf("created %s with %d entries (%s)", cyan(c.Output), len(entries), humanize.IBytes(uint64(total)))
	return nil
}

// collect reads every file and walks every directory given as positional arguments.
//
// Directories keep their base name as the top-level directory in the archive.
func (c *Create) collect(ctx context.Context) ([]z.Entry, int64, error) {
	type source struct {
		root, path string
		size       int64
	}

	var (
		sources []source
		total   int64
	)
	for _, file := range c.Args.Files {
		root := filepath.Dir(filepath.Clean(string(file)))

		if err := filepath.WalkDir(string(file), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err = ctx.Err(); err != nil {
				return err
			}

			var size int64
			if !d.IsDir() {
				if !d.Type().IsRegular() {
					return nil
				}

				fi, err := d.Info()
				if err != nil {
					return err
				}
				size = fi.Size()
			}

			sources = append(sources, source{root: root, path: path, size: size})
			total += size
			return nil
		}); err != nil {
			return nil, 0, fmt.Errorf(`walk "%s" error: %w`, file, err)
		}
	}

	bar := internal.NewReadBar(total, len(sources))
	defer bar.Close()

	entries := make([]z.Entry, 0, len(sources))
	for _, src := range sources {
		rel, err := filepath.Rel(src.root, src.path)
		if err != nil {
			return nil, 0, err
		}
		if rel == "." {
			continue
		}

		fi, err := os.Stat(src.path)
		if err != nil {
			return nil, 0, err
		}

		e := z.Entry{Name: filepath.ToSlash(rel), Modified: fi.ModTime()}
		if fi.IsDir() {
			e.Name += "/"
		} else if e.Data, err = os.ReadFile(src.path); err != nil {
			return nil, 0, err
		}

		entries = append(entries, e)
		_ = bar.Add64(int64(len(e.Data)))
	}

	return entries, total, nil
}
