package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/xarchive/storage"
	"github.com/nguyengg/xarchive/z"
	"gopkg.in/yaml.v3"
)

type List struct {
	Format string `short:"f" long:"format" description:"the output format" choice:"text" choice:"yaml" default:"text"`
	Strict bool   `long:"strict-eocd" description:"reject archives whose end of central directory record is followed by unaccounted bytes"`
	Args   struct {
		Files []string `positional-arg-name:"file" description:"the local ZIP files or s3:// URIs to be listed" required:"yes"`
	} `positional-args:"yes"`

	out io.Writer
}

// Listing is the YAML document describing one archive.
type Listing struct {
	Archive string         `yaml:"archive"`
	Comment string         `yaml:"comment,omitempty"`
	Entries []ListingEntry `yaml:"entries"`
}

// ListingEntry describes one central directory file header.
type ListingEntry struct {
	Name         string    `yaml:"name"`
	Method       string    `yaml:"method"`
	Modified     time.Time `yaml:"modified"`
	Size         uint32    `yaml:"size"`
	Compressed   uint32    `yaml:"compressed"`
	CRC32        string    `yaml:"crc32"`
	Attrs        string    `yaml:"attrs"`
	Type         string    `yaml:"type"`
	Comment      string    `yaml:"comment,omitempty"`
	HeaderOffset int64     `yaml:"header-offset"`
}

func (c *List) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop, e, err := setup()
	if err != nil {
		return err
	}
	defer stop()

	if c.out == nil {
		c.out = os.Stdout
	}

	success := 0
	failures := make([]error, 0)
	n := len(c.Args.Files)
	for _, file := range c.Args.Files {
		if err = c.list(ctx, e.fsys, file); err == nil {
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			break
		}

		failures = append(failures, fmt.Errorf(`list "%s" error: %w`, file, err))
	}

	summarise("successfully listed", success, n, failures)
	return nil
}

func (c *List) list(ctx context.Context, fsys storage.FileSystem, file string) error {
	data, err := fsys.ReadFile(file)
	if err != nil {
		return &z.UnreadableArchiveError{Name: file, Err: err}
	}

	listing, err := NewListing(file, data, func(opts *z.Options) {
		opts.StrictEOCD = c.Strict
	})
	if err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	if c.Format == "yaml" {
		enc := yaml.NewEncoder(c.out)
		defer enc.Close()
		return enc.Encode(listing)
	}

	return listing.WriteText(c.out)
}

// NewListing scans the central directory of the ZIP archive in data.
func NewListing(name string, data []byte, optFns ...func(*z.Options)) (*Listing, error) {
	eocd, headers, err := z.ScanAll(data, optFns...)
	if err != nil {
		return nil, err
	}

	l := &Listing{Archive: name, Comment: string(eocd.Comment), Entries: make([]ListingEntry, len(headers))}
	for i, fh := range headers {
		l.Entries[i] = ListingEntry{
			Name:         fh.Name,
			Method:       fh.Method.String(),
			Modified:     fh.Modified,
			Size:         fh.UncompressedSize,
			Compressed:   fh.CompressedSize,
			CRC32:        fmt.Sprintf("%08x", fh.CRC32),
			Attrs:        fh.Attrs().String(),
			Type:         fh.Type().String(),
			Comment:      fh.Comment,
			HeaderOffset: fh.HeaderOffset,
		}
	}

	return l, nil
}

// WriteText writes the listing as an aligned table.
func (l *Listing) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintf(tw, "%s\n", cyan(l.Archive))
	for _, e := range l.Entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Attrs,
			e.Method,
			humanize.IBytes(uint64(e.Size)),
			humanize.IBytes(uint64(e.Compressed)),
			e.Modified.Format(time.DateTime),
			e.CRC32,
			e.Name)
	}
	if l.Comment != "" {
		_, _ = fmt.Fprintf(tw, "comment: %s\n", l.Comment)
	}

	return tw.Flush()
}
