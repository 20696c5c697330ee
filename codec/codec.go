// Package codec provides single-stream compression codecs used by the archive adapters.
package codec

import (
	"io"
	"strings"
)

// Codec has methods to create compressor/encoder and decompressor/decoder.
type Codec interface {
	// NewDecoder creates a decoder to decompress contents from the given io.Reader.
	NewDecoder(src io.Reader) (io.ReadCloser, error)
	// NewEncoder creates an encoder to compress contents from the given io.Writer.
	NewEncoder(dst io.Writer) (io.WriteCloser, error)
	// Ext returns the file name extension of files compressed with this codec, including the leading dot.
	Ext() string
	// ContentType returns the content type of files compressed with this codec.
	ContentType() string
}

// DefaultName is the name of the default compression algorithm.
const DefaultName = "zstd"

// FromName returns the codec with the given algorithm name.
//
// Both the long ("gzip", "bzip2", "zstd") and short ("gz", "bz2", "zst") names are accepted.
func FromName(name string) (Codec, bool) {
	switch strings.ToLower(name) {
	case "gzip", "gz":
		return GzipCodec{}, true
	case "bzip2", "bz2":
		return Bzip2Codec{}, true
	case "xz":
		return XzCodec{}, true
	case "zstd", "zst":
		return ZstdCodec{}, true
	default:
		return nil, false
	}
}

// FromExt returns the codec for files with the given file name extension.
//
// The extension must include the leading dot, e.g. ".gz". Matching is case-insensitive.
func FromExt(ext string) (Codec, bool) {
	switch strings.ToLower(ext) {
	case ".gz", ".gzip":
		return GzipCodec{}, true
	case ".bz2", ".bzip2":
		return Bzip2Codec{}, true
	case ".xz":
		return XzCodec{}, true
	case ".zst", ".zstd":
		return ZstdCodec{}, true
	default:
		return nil, false
	}
}
