// Package archive provides a format-agnostic façade for extracting and creating archives.
//
// The façade selects an Adapter by the archive's file name extension, falling back to signature sniffing when the
// extension is not recognised. ZIP archives are handled by the codec in package z, or by github.com/mholt/archives if
// Options.ZipNative is set; both behave identically from the caller's perspective.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/nguyengg/xarchive/codec"
	"github.com/nguyengg/xarchive/storage"
	"github.com/nguyengg/xarchive/z"
)

var (
	// ErrUnknownArchive is returned by Archive.Extract when the archive type cannot be determined.
	ErrUnknownArchive = errors.New("unknown archive type")

	// ErrUnsupportedAdapter is returned by Archive.Adapter and Archive.SetAdapter for unknown adapter kinds.
	ErrUnsupportedAdapter = errors.New("unsupported archive adapter")

	// ErrNotCreatable is returned by Archive.Create if the selected adapter cannot create archives.
	ErrNotCreatable = errors.New("adapter cannot create archives")
)

// Adapter extracts archives of a specific format.
type Adapter interface {
	// Extract extracts the named archive into the dest directory.
	//
	// Every adapter validates all destination paths with z.SafeJoin before writing anything, so a malicious archive
	// fails with *z.PathTraversalError and leaves dest untouched.
	Extract(ctx context.Context, name, dest string) error
}

// Creator is implemented by adapters that can also create archives.
type Creator interface {
	// Create writes a new archive with the given entries to name.
	Create(ctx context.Context, name string, entries []z.Entry) error
}

// Options customises New.
type Options struct {
	// FS is used to read archives and write extracted files and new archives.
	//
	// Default to storage.OS.
	FS storage.FileSystem

	// ZipNative uses github.com/mholt/archives instead of package z to extract ZIP archives.
	ZipNative bool

	// UnwrapRoot strips the top-level directory shared by every entry of ZIP archives. Ignored if ZipNative is true.
	UnwrapRoot bool

	// Concurrency is the maximum number of entries being processed at the same time by adapters that support it.
	//
	// Default to 1.
	Concurrency int

	// Zip customises how ZIP archives are read.
	Zip z.Options

	// Build customises how ZIP archives are created.
	Build []func(*z.BuildOptions)

	// Logger receives progress logs if non-nil.
	Logger *log.Logger
}

// Archive dispatches extraction and creation to the adapter of each archive type.
//
// Archive is safe for concurrent use.
type Archive struct {
	opts Options

	mu       sync.Mutex
	adapters map[Kind]Adapter
}

// New returns a new Archive.
func New(optFns ...func(*Options)) *Archive {
	opts := Options{
		FS:          storage.OS{},
		Concurrency: 1,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Archive{opts: opts, adapters: make(map[Kind]Adapter)}
}

// Adapter returns the adapter for the given kind, creating the default adapter on first use.
//
// Kind is matched case-insensitively. Returns ErrUnsupportedAdapter if kind is unknown.
func (a *Archive) Adapter(kind Kind) (Adapter, error) {
	kind = Kind(strings.ToLower(string(kind)))
	if !kind.valid() {
		return nil, fmt.Errorf(`adapter "%s": %w`, kind, ErrUnsupportedAdapter)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	adapter, ok := a.adapters[kind]
	if !ok {
		adapter = a.newAdapter(kind)
		a.adapters[kind] = adapter
	}

	return adapter, nil
}

// SetAdapter overrides the adapter for the given kind.
//
// Returns the Archive for chaining, or ErrUnsupportedAdapter if kind is unknown or adapter is nil.
func (a *Archive) SetAdapter(kind Kind, adapter Adapter) (*Archive, error) {
	kind = Kind(strings.ToLower(string(kind)))
	if !kind.valid() || adapter == nil {
		return a, fmt.Errorf(`adapter "%s": %w`, kind, ErrUnsupportedAdapter)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.adapters[kind] = adapter
	return a, nil
}

// Extract extracts the named archive into dest.
//
// The adapter is selected by the lower-cased file name extension (see KindFromName). If the extension is not
// recognised, the archive is read and its signature is sniffed (see Detect). Returns an error wrapping
// ErrUnknownArchive if neither works.
func (a *Archive) Extract(ctx context.Context, name, dest string) error {
	kind, ok := KindFromName(name)
	if !ok {
		data, err := a.opts.FS.ReadFile(name)
		if err != nil {
			return &z.UnreadableArchiveError{Name: name, Err: err}
		}

		if kind, ok = Detect(data); !ok {
			return fmt.Errorf(`extract "%s" error: %w`, name, ErrUnknownArchive)
		}

		a.logf(`"%s" has unknown extension; detected %s from signature`, name, kind)
	}

	adapter, err := a.Adapter(kind)
	if err != nil {
		return err
	}

	return adapter.Extract(ctx, name, dest)
}

// Create writes a new archive with the given entries to name.
//
// The adapter is selected by the lower-cased file name extension. Returns an error wrapping ErrUnknownArchive if the
// extension is not recognised, or ErrNotCreatable if the adapter does not implement Creator.
func (a *Archive) Create(ctx context.Context, name string, entries []z.Entry) error {
	kind, ok := KindFromName(name)
	if !ok {
		return fmt.Errorf(`create "%s" error: %w`, name, ErrUnknownArchive)
	}

	adapter, err := a.Adapter(kind)
	if err != nil {
		return err
	}

	c, ok := adapter.(Creator)
	if !ok {
		return fmt.Errorf(`create "%s" error: %s %w`, name, kind, ErrNotCreatable)
	}

	return c.Create(ctx, name, entries)
}

func (a *Archive) newAdapter(kind Kind) Adapter {
	fsys := a.opts.FS

	switch kind {
	case KindZip:
		return &Zip{
			FS:          fsys,
			Native:      a.opts.ZipNative,
			Concurrency: a.opts.Concurrency,
			UnwrapRoot:  a.opts.UnwrapRoot,
			Options:     a.opts.Zip,
			Build:       a.opts.Build,
			Logger:      a.opts.Logger,
		}
	case KindTar:
		return &Tar{FS: fsys, Logger: a.opts.Logger}
	case KindTarGzip:
		return &Tar{FS: fsys, Codec: codec.GzipCodec{}, Logger: a.opts.Logger}
	case KindTarBzip2:
		return &Tar{FS: fsys, Codec: codec.Bzip2Codec{}, Logger: a.opts.Logger}
	case KindTarXz:
		return &Tar{FS: fsys, Codec: codec.XzCodec{}, Logger: a.opts.Logger}
	case KindTarZstd:
		return &Tar{FS: fsys, Codec: codec.ZstdCodec{Concurrency: a.opts.Concurrency}, Logger: a.opts.Logger}
	case KindGzip:
		return &Stream{FS: fsys, Codec: codec.GzipCodec{}}
	case KindBzip2:
		return &Stream{FS: fsys, Codec: codec.Bzip2Codec{}}
	case KindXz:
		return &Stream{FS: fsys, Codec: codec.XzCodec{}}
	case KindZstd:
		return &Stream{FS: fsys, Codec: codec.ZstdCodec{Concurrency: a.opts.Concurrency}}
	case KindSevenZip:
		return &SevenZip{FS: fsys}
	case KindRar:
		return &Rar{FS: fsys}
	}

	panic(fmt.Sprintf("unknown kind: %s", kind))
}

func (a *Archive) logf(format string, v ...any) {
	if a.opts.Logger != nil {
		a.opts.Logger.Printf(format, v...)
	}
}
