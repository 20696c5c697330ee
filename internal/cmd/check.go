package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/nguyengg/xarchive/archive"
	"github.com/nguyengg/xarchive/z"
)

type Check struct {
	Args struct {
		Files []string `positional-arg-name:"file" description:"the local files or s3:// URIs to be identified" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Check) Execute(args []string) error {
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
	for _, file := range c.Args.Files {
		if ctx.Err() != nil {
			log.Printf("check was interrupted")
			break
		}

		data, err := e.fsys.ReadFile(file)
		if err != nil {
			failures = append(failures, &z.UnreadableArchiveError{Name: file, Err: err})
			continue
		}

		kind, ok := archive.Detect(data)
		if !ok {
			failures = append(failures, fmt.Errorf(`check "%s" error: %w`, file, archive.ErrUnknownArchive))
			continue
		}

		if byName, ok := archive.KindFromName(file); ok && byName != kind {
			log.Printf(`"%s" is %s despite its extension`, file, cyan(kind))
		} else {
			log.Printf(`"%s" is %s`, file, cyan(kind))
		}
		success++
	}

	summarise("successfully identified", success, n, failures)
	return nil
}
