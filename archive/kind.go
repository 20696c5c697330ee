package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"slices"
	"strings"

	"github.com/nguyengg/xarchive/codec"
	"github.com/nguyengg/xarchive/z"
)

// Kind identifies an archive format and the adapter that handles it.
type Kind string

const (
	KindZip      Kind = "zip"
	KindTar      Kind = "tar"
	KindTarGzip  Kind = "tgz"
	KindTarBzip2 Kind = "tbz2"
	KindTarXz    Kind = "txz"
	KindTarZstd  Kind = "tzst"
	KindGzip     Kind = "gzip"
	KindBzip2    Kind = "bzip2"
	KindXz       Kind = "xz"
	KindZstd     Kind = "zstd"
	KindSevenZip Kind = "7z"
	KindRar      Kind = "rar"
)

// Kinds returns all supported kinds.
func Kinds() []Kind {
	return []Kind{
		KindZip, KindTar, KindTarGzip, KindTarBzip2, KindTarXz, KindTarZstd,
		KindGzip, KindBzip2, KindXz, KindZstd, KindSevenZip, KindRar,
	}
}

func (k Kind) valid() bool {
	return slices.Contains(Kinds(), k)
}

// suffixes is ordered so that compound extensions such as .tar.gz are matched before .gz.
var suffixes = []struct {
	suffix string
	kind   Kind
}{
	{".tar.gz", KindTarGzip},
	{".tgz", KindTarGzip},
	{".tar.bz2", KindTarBzip2},
	{".tbz2", KindTarBzip2},
	{".tbz", KindTarBzip2},
	{".tar.xz", KindTarXz},
	{".txz", KindTarXz},
	{".tar.zst", KindTarZstd},
	{".tzst", KindTarZstd},
	{".zip", KindZip},
	{".tar", KindTar},
	{".gz", KindGzip},
	{".gzip", KindGzip},
	{".bz2", KindBzip2},
	{".bzip2", KindBzip2},
	{".xz", KindXz},
	{".zst", KindZstd},
	{".zstd", KindZstd},
	{".7z", KindSevenZip},
	{".rar", KindRar},
}

// KindFromName returns the kind of archive by its file name extension.
//
// Matching is case-insensitive so "Caps-Logo.ZIP" is a zip archive.
func KindFromName(name string) (Kind, bool) {
	name = strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.kind, true
		}
	}

	return "", false
}

type signature struct {
	offset int
	magic  []byte
	kind   Kind
}

var signatures = []signature{
	{0, []byte{0x1f, 0x8b}, KindGzip},
	{0, []byte("BZh"), KindBzip2},
	{0, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, KindXz},
	{0, []byte{0x28, 0xb5, 0x2f, 0xfd}, KindZstd},
	{0, []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}, KindSevenZip},
	{0, []byte("Rar!\x1a\x07"), KindRar},
	{257, []byte("ustar"), KindTar},
}

// compressedTar maps single-stream kinds to the tar kind that uses the same codec.
var compressedTar = map[Kind]struct {
	kind  Kind
	codec codec.Codec
}{
	KindGzip:  {KindTarGzip, codec.GzipCodec{}},
	KindBzip2: {KindTarBzip2, codec.Bzip2Codec{}},
	KindXz:    {KindTarXz, codec.XzCodec{}},
	KindZstd:  {KindTarZstd, codec.ZstdCodec{}},
}

// Detect returns the kind of archive by sniffing its leading bytes.
//
// For compressed single-stream formats, the first block is decoded to tell a compressed tar (e.g. tgz) apart from a
// plain compressed file. ZIP is checked last with z.CheckZipData since its signature is at the end of the data.
func Detect(data []byte) (Kind, bool) {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(data) < end || !bytes.Equal(data[sig.offset:end], sig.magic) {
			continue
		}

		if t, ok := compressedTar[sig.kind]; ok && isTar(t.codec, data) {
			return t.kind, true
		}

		return sig.kind, true
	}

	if z.CheckZipData(data) {
		return KindZip, true
	}

	return "", false
}

// isTar returns true if the first header block decoded by c is a valid tar header.
func isTar(c codec.Codec, data []byte) bool {
	dec, err := c.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return false
	}
	defer dec.Close()

	_, err = tar.NewReader(io.LimitReader(dec, 1<<20)).Next()
	return err == nil
}
