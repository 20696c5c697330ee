package z

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testModified = time.Date(2024, time.May, 6, 7, 8, 10, 0, time.UTC)

// mustBuild calls Build with a fixed clock.
func mustBuild(t *testing.T, entries []Entry, optFns ...func(*BuildOptions)) []byte {
	t.Helper()

	data, err := Build(context.Background(), entries, append([]func(*BuildOptions){func(opts *BuildOptions) {
		opts.Now = func() time.Time {
			return testModified
		}
	}}, optFns...)...)
	assert.NoErrorf(t, err, "Build() error = %v", err)
	return data
}

// stdZip creates an archive with archive/zip.
func stdZip(t *testing.T, files []zip.FileHeader, contents [][]byte) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for i := range files {
		w, err := zw.CreateHeader(&files[i])
		assert.NoErrorf(t, err, "CreateHeader(%s) error = %v", files[i].Name, err)

		_, err = w.Write(contents[i])
		assert.NoErrorf(t, err, "Write(%s) error = %v", files[i].Name, err)
	}

	err := zw.Close()
	assert.NoErrorf(t, err, "Close() error = %v", err)
	return buf.Bytes()
}

// randomBytes returns n deterministic pseudo-random bytes.
func randomBytes(seed uint64, n int) []byte {
	r := rand.New(rand.NewPCG(seed, seed))
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(r.UintN(256))
	}

	return data
}

// patchMethod rewrites the method of the only entry of an archive created by Build.
func patchMethod(data []byte, m Method) []byte {
	data = bytes.Clone(data)
	binary.LittleEndian.PutUint16(data[8:10], uint16(m))

	eocd := len(data) - eocdLen
	cd := int(binary.LittleEndian.Uint32(data[eocd+16 : eocd+20]))
	binary.LittleEndian.PutUint16(data[cd+10:cd+12], uint16(m))
	return data
}

// withLocalExtra inserts an extra field into the local file header of the only entry of an archive created by Build.
//
// The central directory still records a zero-length extra field.
func withLocalExtra(data, extra []byte) []byte {
	nameLen := int(binary.LittleEndian.Uint16(data[26:28]))

	out := make([]byte, 0, len(data)+len(extra))
	out = append(out, data[:lfhLen+nameLen]...)
	binary.LittleEndian.PutUint16(out[28:30], uint16(len(extra)))
	out = append(out, extra...)
	out = append(out, data[lfhLen+nameLen:]...)

	eocd := len(out) - eocdLen
	cd := binary.LittleEndian.Uint32(out[eocd+16 : eocd+20])
	binary.LittleEndian.PutUint32(out[eocd+16:eocd+20], cd+uint32(len(extra)))
	return out
}
