package z

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_LocalExtraDiffersFromCentralDirectory(t *testing.T) {
	data := mustBuild(t, []Entry{{Name: "a.txt", Data: []byte("hello")}}, func(opts *BuildOptions) {
		opts.Method = Store
	})
	data = withLocalExtra(data, []byte{0xfe, 0xca, 0x00, 0x00})

	_, headers, err := ScanAll(data)
	assert.NoErrorf(t, err, "ScanAll() error = %v", err)
	assert.Len(t, headers, 1)
	assert.Empty(t, headers[0].Extra)

	e, err := Resolve(data, headers[0])
	assert.NoErrorf(t, err, "Resolve() error = %v", err)
	assert.Equal(t, int64(lfhLen+len("a.txt")+4), e.DataStart)
	assert.Equal(t, []byte("hello"), e.Payload(data))

	r, err := NewReader(data, func(opts *Options) {
		opts.VerifyChecksum = true
	})
	assert.NoErrorf(t, err, "NewReader() error = %v", err)

	got, err := r.ReadFile("a.txt")
	assert.NoErrorf(t, err, "ReadFile() error = %v", err)
	assert.Equal(t, []byte("hello"), got)
}

func TestResolveDataStart_Malformed(t *testing.T) {
	data := mustBuild(t, []Entry{{Name: "a.txt", Data: []byte("hello")}}, func(opts *BuildOptions) {
		opts.Method = Store
	})

	tests := []struct {
		name   string
		data   []byte
		offset int64
	}{
		{name: "negative offset", data: data, offset: -1},
		{name: "offset past end", data: data, offset: int64(len(data))},
		{name: "no signature after offset", data: data, offset: 1},
		{name: "truncated local header", data: data[:lfhLen-1], offset: 0},
		{name: "name past end", data: data[:lfhLen+2], offset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveDataStart(tt.data, tt.offset)

			var me *MalformedArchiveError
			assert.ErrorAsf(t, err, &me, "ResolveDataStart() error = %v", err)
		})
	}
}

func TestResolve_DataPastEnd(t *testing.T) {
	data := mustBuild(t, []Entry{{Name: "a.txt", Data: []byte("hello")}}, func(opts *BuildOptions) {
		opts.Method = Store
	})

	_, headers, err := ScanAll(data)
	assert.NoErrorf(t, err, "ScanAll() error = %v", err)

	fh := headers[0]
	fh.CompressedSize = uint32(len(data))

	_, err = Resolve(data, fh)
	var me *MalformedArchiveError
	assert.ErrorAsf(t, err, &me, "Resolve() error = %v", err)
	assert.Equal(t, "a.txt", me.Name)
}
