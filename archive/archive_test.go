package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/nguyengg/xarchive/codec"
	"github.com/nguyengg/xarchive/storage"
	"github.com/nguyengg/xarchive/z"
	"github.com/stretchr/testify/assert"
)

var testEntries = []z.Entry{
	{Name: "test/"},
	{Name: "test/logo.txt", Data: []byte("logo text"), Modified: time.Date(2024, time.May, 6, 7, 8, 10, 0, time.UTC)},
	{Name: "test/path/to/data.bin", Data: bytes.Repeat([]byte{0, 1, 2, 3}, 4096)},
	{Name: "test/empty.txt"},
}

func assertExtracted(t *testing.T, fsys *storage.Memory, dest string) {
	t.Helper()

	files := fsys.Files()
	for _, e := range testEntries[1:] {
		got, ok := files[filepath.Join(dest, filepath.FromSlash(e.Name))]
		if assert.Truef(t, ok, `"%s" was not extracted`, e.Name) {
			assert.Equal(t, string(e.Data), string(got))
		}
	}
}

func TestKindFromName(t *testing.T) {
	tests := []struct {
		name   string
		want   Kind
		wantOK bool
	}{
		{name: "logo.zip", want: KindZip, wantOK: true},
		{name: "Caps-Logo.ZIP", want: KindZip, wantOK: true},
		{name: "logo.tar", want: KindTar, wantOK: true},
		{name: "logo.tar.gz", want: KindTarGzip, wantOK: true},
		{name: "logo.TGZ", want: KindTarGzip, wantOK: true},
		{name: "logo.tar.bz2", want: KindTarBzip2, wantOK: true},
		{name: "logo.tbz2", want: KindTarBzip2, wantOK: true},
		{name: "logo.tar.xz", want: KindTarXz, wantOK: true},
		{name: "logo.tar.zst", want: KindTarZstd, wantOK: true},
		{name: "logo.gz", want: KindGzip, wantOK: true},
		{name: "logo.bz2", want: KindBzip2, wantOK: true},
		{name: "logo.xz", want: KindXz, wantOK: true},
		{name: "logo.zst", want: KindZstd, wantOK: true},
		{name: "logo.7z", want: KindSevenZip, wantOK: true},
		{name: "logo.rar", want: KindRar, wantOK: true},
		{name: "s3://bucket/path/logo.zip", want: KindZip, wantOK: true},
		{name: "logo.dat"},
		{name: "zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KindFromName(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect(t *testing.T) {
	ctx := context.Background()

	// each archive is created by the adapter for its name then sniffed.
	tests := []struct {
		name string
		want Kind
	}{
		{name: "logo.zip", want: KindZip},
		{name: "logo.tar", want: KindTar},
		{name: "logo.tar.gz", want: KindTarGzip},
		{name: "logo.tar.bz2", want: KindTarBzip2},
		{name: "logo.tar.xz", want: KindTarXz},
		{name: "logo.tar.zst", want: KindTarZstd},
		{name: "logo.txt.gz", want: KindGzip},
		{name: "logo.txt.bz2", want: KindBzip2},
		{name: "logo.txt.xz", want: KindXz},
		{name: "logo.txt.zst", want: KindZstd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := &storage.Memory{}
			a := New(func(opts *Options) {
				opts.FS = fsys
			})

			entries := testEntries
			if _, ok := compressedTar[tt.want]; ok {
				entries = testEntries[1:2]
			}

			err := a.Create(ctx, "/"+tt.name, entries)
			assert.NoErrorf(t, err, "Create(%s) error = %v", tt.name, err)

			data, err := fsys.ReadFile("/" + tt.name)
			assert.NoErrorf(t, err, "ReadFile(%s) error = %v", tt.name, err)

			got, ok := Detect(data)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("magic only", func(t *testing.T) {
		got, ok := Detect([]byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c, 0, 4})
		assert.True(t, ok)
		assert.Equal(t, KindSevenZip, got)

		got, ok = Detect([]byte("Rar!\x1a\x07\x01\x00"))
		assert.True(t, ok)
		assert.Equal(t, KindRar, got)
	})

	t.Run("unknown", func(t *testing.T) {
		_, ok := Detect([]byte("this is not an archive"))
		assert.False(t, ok)

		_, ok = Detect(nil)
		assert.False(t, ok)
	})
}

func TestArchive_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, name := range []string{"logo.zip", "Caps-Logo.ZIP", "logo.tar", "logo.tar.gz", "logo.tgz", "logo.tar.bz2", "logo.tar.xz", "logo.tar.zst"} {
		t.Run(name, func(t *testing.T) {
			fsys := &storage.Memory{}
			a := New(func(opts *Options) {
				opts.FS = fsys
			})

			err := a.Create(ctx, "/archives/"+name, testEntries)
			assert.NoErrorf(t, err, "Create(%s) error = %v", name, err)

			err = a.Extract(ctx, "/archives/"+name, "/dest")
			assert.NoErrorf(t, err, "Extract(%s) error = %v", name, err)

			assertExtracted(t, fsys, "/dest")
		})
	}
}

func TestArchive_ZipNative(t *testing.T) {
	ctx := context.Background()
	fsys := &storage.Memory{}
	a := New(func(opts *Options) {
		opts.FS = fsys
		opts.ZipNative = true
	})

	err := a.Create(ctx, "/logo.zip", testEntries)
	assert.NoErrorf(t, err, "Create() error = %v", err)

	err = a.Extract(ctx, "/logo.zip", "/dest")
	assert.NoErrorf(t, err, "Extract() error = %v", err)

	assertExtracted(t, fsys, "/dest")
}

func TestArchive_UnwrapRoot(t *testing.T) {
	ctx := context.Background()
	fsys := &storage.Memory{}
	a := New(func(opts *Options) {
		opts.FS = fsys
		opts.UnwrapRoot = true
	})

	err := a.Create(ctx, "/logo.zip", testEntries)
	assert.NoErrorf(t, err, "Create() error = %v", err)

	err = a.Extract(ctx, "/logo.zip", "/dest")
	assert.NoErrorf(t, err, "Extract() error = %v", err)

	got, ok := fsys.Files()[filepath.Join("/dest", "logo.txt")]
	assert.True(t, ok)
	assert.Equal(t, "logo text", string(got))
}

func TestArchive_Stream(t *testing.T) {
	ctx := context.Background()

	for _, name := range []string{"logo.png.gz", "logo.png.bz2", "logo.png.xz", "logo.png.zst"} {
		t.Run(name, func(t *testing.T) {
			fsys := &storage.Memory{}
			a := New(func(opts *Options) {
				opts.FS = fsys
			})

			err := a.Create(ctx, "/"+name, []z.Entry{{Name: "logo.png", Data: []byte("not really a png")}})
			assert.NoErrorf(t, err, "Create(%s) error = %v", name, err)

			err = a.Extract(ctx, "/"+name, "/dest")
			assert.NoErrorf(t, err, "Extract(%s) error = %v", name, err)
			assert.Equal(t, "not really a png", string(fsys.Files()[filepath.Join("/dest", "logo.png")]))
		})
	}

	t.Run("more than one file", func(t *testing.T) {
		a := New(func(opts *Options) {
			opts.FS = &storage.Memory{}
		})

		err := a.Create(ctx, "/logo.gz", testEntries)
		assert.Error(t, err)
	})

	t.Run("no matching extension", func(t *testing.T) {
		fsys := &storage.Memory{}
		s := &Stream{FS: fsys, Codec: codec.GzipCodec{}}

		err := s.Create(ctx, "/logo", []z.Entry{{Name: "logo", Data: []byte("logo")}})
		assert.NoErrorf(t, err, "Create() error = %v", err)

		err = s.Extract(ctx, "/logo", "/dest")
		assert.NoErrorf(t, err, "Extract() error = %v", err)
		assert.Equal(t, "logo", string(fsys.Files()[filepath.Join("/dest", "logo.out")]))
	})
}

func TestArchive_UnknownExtension(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown content", func(t *testing.T) {
		fsys := storage.NewMemory(map[string][]byte{"/logo.dat": []byte("this is not an archive")})
		a := New(func(opts *Options) {
			opts.FS = fsys
		})

		err := a.Extract(ctx, "/logo.dat", "/dest")
		assert.ErrorIs(t, err, ErrUnknownArchive)
		assert.Empty(t, fsys.Dirs())

		err = a.Create(ctx, "/logo.dat", testEntries)
		assert.ErrorIs(t, err, ErrUnknownArchive)
	})

	t.Run("detected zip", func(t *testing.T) {
		data, err := z.Build(ctx, testEntries)
		assert.NoErrorf(t, err, "Build() error = %v", err)

		fsys := storage.NewMemory(map[string][]byte{"/logo.dat": data})
		a := New(func(opts *Options) {
			opts.FS = fsys
		})

		err = a.Extract(ctx, "/logo.dat", "/dest")
		assert.NoErrorf(t, err, "Extract() error = %v", err)
		assertExtracted(t, fsys, "/dest")
	})

	t.Run("missing archive", func(t *testing.T) {
		a := New(func(opts *Options) {
			opts.FS = &storage.Memory{}
		})

		err := a.Extract(ctx, "/missing.dat", "/dest")
		var ue *z.UnreadableArchiveError
		assert.ErrorAs(t, err, &ue)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}

type recordingAdapter struct {
	names []string
}

func (r *recordingAdapter) Extract(_ context.Context, name, _ string) error {
	r.names = append(r.names, name)
	return nil
}

func TestArchive_Adapter(t *testing.T) {
	a := New()

	adapter, err := a.Adapter("Zip")
	assert.NoErrorf(t, err, "Adapter(Zip) error = %v", err)
	assert.IsType(t, &Zip{}, adapter)

	again, err := a.Adapter(KindZip)
	assert.NoErrorf(t, err, "Adapter(zip) error = %v", err)
	assert.Same(t, adapter, again)

	adapter, err = a.Adapter(KindTarGzip)
	assert.NoErrorf(t, err, "Adapter(tgz) error = %v", err)
	if assert.IsType(t, &Tar{}, adapter) {
		assert.IsType(t, codec.GzipCodec{}, adapter.(*Tar).Codec)
	}

	adapter, err = a.Adapter(KindBzip2)
	assert.NoErrorf(t, err, "Adapter(bzip2) error = %v", err)
	assert.IsType(t, &Stream{}, adapter)

	_, err = a.Adapter("Unknown")
	assert.ErrorIs(t, err, ErrUnsupportedAdapter)
}

func TestArchive_SetAdapter(t *testing.T) {
	r := &recordingAdapter{}

	a, err := New().SetAdapter("ZIP", r)
	assert.NoErrorf(t, err, "SetAdapter() error = %v", err)

	err = a.Extract(context.Background(), "logo.zip", "dest")
	assert.NoErrorf(t, err, "Extract() error = %v", err)
	assert.Equal(t, []string{"logo.zip"}, r.names)

	err = a.Create(context.Background(), "logo.zip", testEntries)
	assert.ErrorIs(t, err, ErrNotCreatable)

	_, err = a.SetAdapter("Unknown", r)
	assert.ErrorIs(t, err, ErrUnsupportedAdapter)

	_, err = a.SetAdapter(KindZip, nil)
	assert.ErrorIs(t, err, ErrUnsupportedAdapter)
}

func TestArchive_Traversal(t *testing.T) {
	ctx := context.Background()

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, name := range []string{"good.txt", "../evil.txt"} {
		w, err := zw.Create(name)
		assert.NoErrorf(t, err, "Create(%s) error = %v", name, err)
		_, err = w.Write([]byte(name))
		assert.NoErrorf(t, err, "Write(%s) error = %v", name, err)
	}
	assert.NoError(t, zw.Close())

	for _, native := range []bool{false, true} {
		fsys := storage.NewMemory(map[string][]byte{"/evil.zip": buf.Bytes()})
		a := New(func(opts *Options) {
			opts.FS = fsys
			opts.ZipNative = native
		})

		err := a.Extract(ctx, "/evil.zip", "/dest")
		assert.ErrorIs(t, err, z.ErrInsecurePath)
		assert.Len(t, fsys.Files(), 1)
	}

	t.Run("tar", func(t *testing.T) {
		fsys := &storage.Memory{}
		a := New(func(opts *Options) {
			opts.FS = fsys
		})

		err := a.Create(ctx, "/evil.tar", []z.Entry{
			{Name: "good.txt", Data: []byte("good")},
			{Name: "../evil.txt", Data: []byte("evil")},
		})
		assert.NoErrorf(t, err, "Create() error = %v", err)

		err = a.Extract(ctx, "/evil.tar", "/dest")
		assert.ErrorIs(t, err, z.ErrInsecurePath)
		assert.Len(t, fsys.Files(), 1)
	})
}

func TestArchive_WriteFailure(t *testing.T) {
	ctx := context.Background()
	fsys := &storage.Memory{}
	a := New(func(opts *Options) {
		opts.FS = fsys
	})

	err := a.Create(ctx, "/logo.tar.gz", testEntries)
	assert.NoErrorf(t, err, "Create() error = %v", err)

	boom := errors.New("boom")
	fsys.Errors = map[string]error{filepath.Join("/dest", "test", "logo.txt"): boom}

	err = a.Extract(ctx, "/logo.tar.gz", "/dest")
	var we *z.WriteFailureError
	assert.ErrorAs(t, err, &we)
	assert.ErrorIs(t, err, boom)
}

func TestArchive_Unsupported(t *testing.T) {
	ctx := context.Background()
	fsys := storage.NewMemory(map[string][]byte{
		"/logo.7z":  []byte("not a 7z archive"),
		"/logo.rar": []byte("not a rar archive"),
	})
	a := New(func(opts *Options) {
		opts.FS = fsys
	})

	err := a.Extract(ctx, "/logo.7z", "/dest")
	assert.Error(t, err)

	err = a.Extract(ctx, "/logo.rar", "/dest")
	assert.Error(t, err)

	err = a.Create(ctx, "/logo.7z", testEntries)
	assert.ErrorIs(t, err, ErrNotCreatable)

	err = a.Create(ctx, "/logo.rar", testEntries)
	assert.ErrorIs(t, err, ErrNotCreatable)

	assert.Len(t, fsys.Files(), 2)
}
