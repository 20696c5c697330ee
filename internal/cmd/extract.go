package cmd

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xarchive/archive"
	"github.com/nguyengg/xarchive/internal"
	"github.com/nguyengg/xarchive/storage"
	"github.com/nguyengg/xarchive/util"
)

type Extract struct {
	Output      flags.Filename `short:"o" long:"output" description:"the directory to create the output directories in" default:"."`
	Native      bool           `long:"native" description:"extract ZIP archives with github.com/mholt/archives instead of the built-in codec"`
	UnwrapRoot  bool           `long:"unwrap-root" description:"if every entry of a ZIP archive shares a top-level directory, strip it"`
	Concurrency int            `short:"P" long:"concurrency" description:"the maximum number of entries extracted at the same time; takes precedence over .xarchive setting"`
	Args        struct {
		Files []string `positional-arg-name:"file" description:"the local files or s3:// URIs to be extracted" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Extract) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop, e, err := setup()
	if err != nil {
		return err
	}
	defer stop()

	success := 0
	failures := make([]error, 0)
	n := len(c.Args.Files)
	for i, file := range c.Args.Files {
		logger := internal.NewLogger(i+1, n, file)

		a := archive.New(e.archOpts, func(opts *archive.Options) {
			opts.FS = e.fsys
			opts.Logger = logger
			opts.ZipNative = opts.ZipNative || c.Native
			opts.UnwrapRoot = opts.UnwrapRoot || c.UnwrapRoot
			if c.Concurrency > 0 {
				opts.Concurrency = c.Concurrency
			}
		})

		output, err := c.extract(ctx, a, file)
		if err == nil {
			logger.Printf("extracted to %s", cyan(output))
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			logger.Printf("extraction was interrupted")
			break
		}

		logger.Printf("extract error: %v", err)
		failures = append(failures, fmt.Errorf(`extract "%s" error: %w`, file, err))
	}

	summarise("successfully extracted", success, n, failures)
	return nil
}

// extract creates a new directory named after the archive then extracts into it.
func (c *Extract) extract(ctx context.Context, a *archive.Archive, file string) (string, error) {
	base := path.Base(strings.ReplaceAll(file, `\`, "/"))
	if storage.IsS3URI(file) {
		base = file[strings.LastIndex(file, "/")+1:]
	}

	stem, _ := util.StemAndExt(base)
	output, err := util.MkExclDir(string(c.Output), stem, 0755)
	if err != nil {
		return "", err
	}

	return output, a.Extract(ctx, file, output)
}
