package z

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScan_ArchiveZip(t *testing.T) {
	files := []zip.FileHeader{
		{Name: "test/a.txt", Method: zip.Deflate, Modified: testModified},
		{Name: "test/path/b.txt", Method: zip.Store, Modified: testModified},
		{Name: "test/empty/", Modified: testModified},
		{Name: "test/another/path/c.txt", Method: zip.Deflate, Modified: testModified},
	}
	contents := [][]byte{randomBytes(1, 1000), []byte("hello, world"), nil, bytes.Repeat([]byte("c"), 5000)}
	data := stdZip(t, files, contents)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	assert.NoErrorf(t, err, "zip.NewReader() error = %v", err)

	eocd, headers, err := ScanAll(data)
	assert.NoErrorf(t, err, "ScanAll() error = %v", err)
	assert.Equal(t, uint16(len(files)), eocd.CDCount)
	assert.Equal(t, int64(len(data)-eocdLen), eocd.Offset)
	assert.Len(t, headers, len(files))

	r, err := NewReader(data)
	assert.NoErrorf(t, err, "NewReader() error = %v", err)

	for i, f := range zr.File {
		fh := headers[i]
		assert.Equal(t, f.Name, fh.Name)
		assert.Equal(t, Method(f.Method), fh.Method)
		assert.Equal(t, f.CRC32, fh.CRC32)
		assert.Equal(t, uint32(f.CompressedSize64), fh.CompressedSize)
		assert.Equal(t, uint32(f.UncompressedSize64), fh.UncompressedSize)
		assert.Equal(t, testModified, fh.Modified)
		assert.Equal(t, f.FileInfo().IsDir(), fh.IsDir())

		offset, err := f.DataOffset()
		assert.NoErrorf(t, err, "DataOffset() error = %v", err)

		e, err := Resolve(data, fh)
		assert.NoErrorf(t, err, "Resolve(%s) error = %v", fh.Name, err)
		assert.Equalf(t, offset, e.DataStart, "Resolve(%s) got = %d, want = %d", fh.Name, e.DataStart, offset)

		got, err := r.ReadEntry(r.Entries()[i])
		assert.NoErrorf(t, err, "ReadEntry(%s) error = %v", fh.Name, err)
		assert.Equal(t, len(contents[i]), len(got))
		if len(contents[i]) != 0 {
			assert.Equal(t, contents[i], got)
		}
	}
}

func TestScan_Attributes(t *testing.T) {
	data := mustBuild(t, []Entry{
		{Name: "dir/"},
		{Name: "dir/file.txt", Data: []byte("text")},
	})

	_, headers, err := ScanAll(data)
	assert.NoErrorf(t, err, "ScanAll() error = %v", err)
	assert.Len(t, headers, 2)

	assert.True(t, headers[0].IsDir())
	assert.Equal(t, "D----", headers[0].Attrs().String())
	assert.Equal(t, Store, headers[0].Method)

	assert.False(t, headers[1].IsDir())
	assert.Equal(t, "-A---", headers[1].Attrs().String())
	assert.Equal(t, Deflate, headers[1].Method)
	assert.Equal(t, Binary, headers[1].Type())
	assert.Equal(t, "binary", headers[1].Type().String())
	assert.Equal(t, uint16(20), headers[1].ReaderVersion)
	assert.Equal(t, int64(0), headers[0].Offset)
}

func TestScan_BackslashDirectory(t *testing.T) {
	fh := CDFileHeader{Name: `windows\dir\`}
	assert.True(t, fh.IsDir())
}

func TestScan_TrailerRobustness(t *testing.T) {
	forged := append(bytes.Clone(sigEOCDBytes), make([]byte, eocdLen-4)...)

	tests := []struct {
		name       string
		entries    []Entry
		comment    string
		strict     bool
		wantCount  int
		wantOffset func(data []byte) int64
	}{
		{
			name:      "signature in entry data",
			entries:   []Entry{{Name: "sig.bin", Data: append(bytes.Clone(forged), "padding"...)}},
			wantCount: 1,
			wantOffset: func(data []byte) int64 {
				return int64(len(data) - eocdLen)
			},
		},
		{
			name:      "bare signature in comment",
			entries:   []Entry{{Name: "a.txt", Data: []byte("a")}},
			comment:   "PK\x05\x06",
			wantCount: 1,
			wantOffset: func(data []byte) int64 {
				return int64(len(data) - eocdLen - 4)
			},
		},
		{
			name:      "forged record in comment is taken by default",
			entries:   []Entry{{Name: "a.txt", Data: []byte("a")}},
			comment:   string(forged),
			wantCount: 0,
			wantOffset: func(data []byte) int64 {
				return int64(len(data) - eocdLen)
			},
		},
		{
			name:      "forged record in comment is rejected in strict mode",
			entries:   []Entry{{Name: "a.txt", Data: []byte("a")}},
			comment:   string(forged),
			strict:    true,
			wantCount: 1,
			wantOffset: func(data []byte) int64 {
				return int64(len(data) - 2*eocdLen)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := mustBuild(t, tt.entries, func(opts *BuildOptions) {
				opts.Method = Store
				opts.Comment = tt.comment
			})

			eocd, headers, err := ScanAll(data, func(opts *Options) {
				opts.StrictEOCD = tt.strict
			})
			assert.NoErrorf(t, err, "ScanAll() error = %v", err)
			assert.Equal(t, tt.wantOffset(data), eocd.Offset)
			assert.Len(t, headers, tt.wantCount)

			if tt.wantCount > 0 {
				assert.Equal(t, tt.entries[0].Name, headers[0].Name)
				assert.Equal(t, tt.comment, string(eocd.Comment))
			}
		})
	}
}

func TestScan_StrictTrailingBytes(t *testing.T) {
	data := append(mustBuild(t, []Entry{{Name: "a.txt", Data: []byte("a")}}), "trailing"...)

	_, headers, err := ScanAll(data)
	assert.NoErrorf(t, err, "ScanAll() error = %v", err)
	assert.Len(t, headers, 1)

	_, _, err = ScanAll(data, func(opts *Options) {
		opts.StrictEOCD = true
	})
	var me *MalformedArchiveError
	assert.ErrorAs(t, err, &me)
}

func TestScan_Malformed(t *testing.T) {
	valid := mustBuild(t, []Entry{{Name: "a.txt", Data: []byte("hello")}})

	badOffset := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(badOffset[len(badOffset)-6:], 0xFFFFFF)

	truncatedCD := append([]byte("PK\x01\x02"), make([]byte, 10)...)
	truncatedCD = append(truncatedCD, sigEOCDBytes...)
	truncatedCD = binary.LittleEndian.AppendUint16(truncatedCD, 0)
	truncatedCD = binary.LittleEndian.AppendUint16(truncatedCD, 0)
	truncatedCD = binary.LittleEndian.AppendUint16(truncatedCD, 1)
	truncatedCD = binary.LittleEndian.AppendUint16(truncatedCD, 1)
	truncatedCD = binary.LittleEndian.AppendUint32(truncatedCD, 14)
	truncatedCD = binary.LittleEndian.AppendUint32(truncatedCD, 0)
	truncatedCD = binary.LittleEndian.AppendUint16(truncatedCD, 0)

	tests := []struct {
		name      string
		data      []byte
		wantNoEOC bool
	}{
		{name: "empty", data: nil, wantNoEOC: true},
		{name: "random bytes", data: randomBytes(2, 1024), wantNoEOC: true},
		{name: "truncated trailer", data: valid[:len(valid)-10]},
		{name: "central directory offset past trailer", data: badOffset},
		{name: "truncated central directory header", data: truncatedCD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(tt.data)

			var me *MalformedArchiveError
			assert.ErrorAsf(t, err, &me, "NewReader() error = %v", err)
			assert.Equal(t, tt.wantNoEOC, errors.Is(err, ErrNoEOCDFound))
		})
	}
}

func TestScan_Tar(t *testing.T) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	err := tw.WriteHeader(&tar.Header{Name: "a.txt", Mode: 0644, Size: 5, Typeflag: tar.TypeReg})
	assert.NoErrorf(t, err, "WriteHeader() error = %v", err)
	_, err = tw.Write([]byte("hello"))
	assert.NoErrorf(t, err, "Write() error = %v", err)
	assert.NoError(t, tw.Close())

	_, err = NewReader(buf.Bytes())
	var me *MalformedArchiveError
	assert.ErrorAsf(t, err, &me, "NewReader(tar) error = %v", err)
	assert.ErrorIs(t, err, ErrNoEOCDFound)

	assert.False(t, CheckZipData(buf.Bytes()))
}

func TestScan_EmptyArchive(t *testing.T) {
	data := mustBuild(t, nil)
	assert.Len(t, data, eocdLen)

	eocd, headers, err := ScanAll(data)
	assert.NoErrorf(t, err, "ScanAll() error = %v", err)
	assert.Equal(t, uint16(0), eocd.CDCount)
	assert.Empty(t, headers)
}
