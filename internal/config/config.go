package config

import (
	"context"
	"fmt"

	"github.com/nguyengg/xarchive/archive"
	"github.com/nguyengg/xarchive/storage"
	"github.com/nguyengg/xarchive/z"
)

// ZipConfig contains the [zip] settings.
type ZipConfig struct {
	Native         bool
	Method         z.Method
	Level          int
	Comment        string
	StrictEOCD     bool
	NoBzip2        bool
	VerifyChecksum bool
}

// ForZip returns the [zip] configuration.
//
// Method defaults to z.Deflate and Level to -1 if not set.
func (l *Loader) ForZip() (c ZipConfig, err error) {
	c.Method, c.Level = z.Deflate, -1

	sec, err := l.file().GetSection("zip")
	if err != nil {
		return c, nil
	}

	if k := sec.Key("method"); k.String() != "" {
		if c.Method, err = z.ParseMethod(k.String()); err != nil {
			return c, fmt.Errorf("invalid [zip] method: %w", err)
		}
	}

	c.Level = sec.Key("level").MustInt(-1)
	c.Comment = sec.Key("comment").String()
	c.Native = sec.Key("native").MustBool(false)
	c.StrictEOCD = sec.Key("strict-eocd").MustBool(false)
	c.NoBzip2 = sec.Key("no-bzip2").MustBool(false)
	c.VerifyChecksum = sec.Key("verify-checksum").MustBool(false)

	return c, nil
}

// ForZip calls Loader.ForZip on the DefaultLoader instance.
func ForZip() (ZipConfig, error) {
	return DefaultLoader.ForZip()
}

// ExtractConfig contains the [extract] settings.
type ExtractConfig struct {
	UnwrapRoot  bool
	Concurrency int
}

// ForExtract returns the [extract] configuration.
//
// Concurrency defaults to 1.
func (l *Loader) ForExtract() (c ExtractConfig) {
	c.Concurrency = 1

	sec, err := l.file().GetSection("extract")
	if err != nil {
		return c
	}

	c.UnwrapRoot = sec.Key("unwrap-root").MustBool(false)
	c.Concurrency = max(sec.Key("concurrency").MustInt(1), 1)

	return c
}

// ForExtract calls Loader.ForExtract on the DefaultLoader instance.
func ForExtract() ExtractConfig {
	return DefaultLoader.ForExtract()
}

// AWSConfig contains the [aws] settings.
type AWSConfig struct {
	Profile             string
	ExpectedBucketOwner string
}

// ForAWS returns the [aws] configuration.
//
// Loader.Profile takes precedence over the profile setting.
func (l *Loader) ForAWS() (c AWSConfig) {
	if sec, err := l.file().GetSection("aws"); err == nil {
		c.Profile = sec.Key("profile").String()
		c.ExpectedBucketOwner = sec.Key("expected-bucket-owner").String()
	}

	if l.Profile != "" {
		c.Profile = l.Profile
	}

	return c
}

// ForAWS calls Loader.ForAWS on the DefaultLoader instance.
func ForAWS() AWSConfig {
	return DefaultLoader.ForAWS()
}

// NewFileSystem returns a storage.Mux whose S3 side is created lazily from the [aws] settings.
//
// The AWS config is only loaded when an s3:// name is first used so that purely local invocations never need
// credentials.
func (l *Loader) NewFileSystem(ctx context.Context) storage.FileSystem {
	c := l.ForAWS()

	return &storage.Mux{
		Local: storage.OS{},
		S3: &storage.Lazy{New: func() (storage.FileSystem, error) {
			return storage.NewS3(ctx, func(opts *storage.S3Options) {
				opts.Profile = c.Profile
				opts.ExpectedBucketOwner = c.ExpectedBucketOwner
			})
		}},
	}
}

// NewFileSystem calls Loader.NewFileSystem on the DefaultLoader instance.
func NewFileSystem(ctx context.Context) storage.FileSystem {
	return DefaultLoader.NewFileSystem(ctx)
}

// ArchiveOptions returns a function that applies the [zip] and [extract] settings to archive.Options.
func (l *Loader) ArchiveOptions() (func(*archive.Options), error) {
	zc, err := l.ForZip()
	if err != nil {
		return nil, err
	}

	ec := l.ForExtract()

	return func(opts *archive.Options) {
		opts.ZipNative = zc.Native
		opts.UnwrapRoot = ec.UnwrapRoot
		opts.Concurrency = ec.Concurrency
		opts.Zip = z.Options{
			StrictEOCD:     zc.StrictEOCD,
			NoBzip2:        zc.NoBzip2,
			VerifyChecksum: zc.VerifyChecksum,
		}
		opts.Build = append(opts.Build, func(o *z.BuildOptions) {
			o.Method = zc.Method
			o.Level = zc.Level
			o.Comment = zc.Comment
		})
	}, nil
}

// ArchiveOptions calls Loader.ArchiveOptions on the DefaultLoader instance.
func ArchiveOptions() (func(*archive.Options), error) {
	return DefaultLoader.ArchiveOptions()
}
