package z

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
)

// Method is the compression method code stored in local and central directory file headers.
type Method uint16

// The method codes that have a name. Only Store, Deflate, and BZIP2 can be encoded or decoded.
//
// See https://pkware.cachefly.net/webdocs/casestudies/APPNOTE.TXT section 4.4.5.
const (
	Store    Method = 0
	Shrunk   Method = 1
	Reduced1 Method = 2
	Reduced2 Method = 3
	Reduced3 Method = 4
	Reduced4 Method = 5
	Imploded Method = 6
	Deflate  Method = 8
	BZIP2    Method = 12
)

// Kind is the closed set of strategies a Method can map to.
type Kind int

const (
	// KindUnsupported covers every code this package cannot encode or decode.
	KindUnsupported Kind = iota
	KindStored
	KindDeflated
	KindBzip2
)

// Kind returns the strategy for m.
func (m Method) Kind() Kind {
	switch m {
	case Store:
		return KindStored
	case Deflate:
		return KindDeflated
	case BZIP2:
		return KindBzip2
	default:
		return KindUnsupported
	}
}

// String returns the human-readable name of the method.
func (m Method) String() string {
	switch m {
	case Store:
		return "None"
	case Shrunk:
		return "Shrunk"
	case Reduced1:
		return "Super Fast"
	case Reduced2:
		return "Fast"
	case Reduced3:
		return "Normal"
	case Reduced4:
		return "Maximum"
	case Imploded:
		return "Imploded"
	case Deflate:
		return "Deflated"
	case BZIP2:
		return "BZIP2"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(m))
	}
}

// Valid returns a non-nil error if m cannot be encoded or decoded by this package.
func (m Method) Valid() error {
	if m.Kind() == KindUnsupported {
		return fmt.Errorf("unsupported compression method %s", m)
	}

	return nil
}

// ParseMethod returns the encodable Method with the given case-insensitive name.
//
// Accepted names are "store" (or "none"), "deflate", and "bzip2" (or "bz2").
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(name) {
	case "store", "stored", "none":
		return Store, nil
	case "deflate", "deflated":
		return Deflate, nil
	case "bzip2", "bz2":
		return BZIP2, nil
	default:
		return 0, fmt.Errorf(`unknown compression method "%s"`, name)
	}
}

// Compress encodes data with the method.
//
// Deflate produces a raw deflate stream without zlib or gzip framing since the ZIP headers already carry sizes and
// CRC-32. Level is passed to the underlying encoder; out-of-range levels fall back to the encoder's default.
func (m Method) Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer

	switch m.Kind() {
	case KindStored:
		return data, nil

	case KindDeflated:
		if level < flate.HuffmanOnly || level > flate.BestCompression {
			level = flate.DefaultCompression
		}

		w, err := flate.NewWriter(&buf, level)
		if err != nil {
			return nil, fmt.Errorf("create deflate writer error: %w", err)
		}
		if _, err = w.Write(data); err == nil {
			err = w.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("deflate error: %w", err)
		}

		return buf.Bytes(), nil

	case KindBzip2:
		if level < bzip2.BestSpeed || level > bzip2.BestCompression {
			level = bzip2.DefaultCompression
		}

		w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: level})
		if err != nil {
			return nil, fmt.Errorf("create bzip2 writer error: %w", err)
		}
		if _, err = w.Write(data); err == nil {
			err = w.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("bzip2 error: %w", err)
		}

		return buf.Bytes(), nil

	case KindUnsupported:
		return nil, m.Valid()
	}

	panic(fmt.Sprintf("unknown kind: %v", m.Kind()))
}

// Decompress decodes data that was encoded with the method.
//
// sizeHint is used to preallocate the output and may be 0. KindUnsupported returns an error; see Reader for the
// lenient behaviour applied during extraction.
func (m Method) Decompress(data []byte, sizeHint uint32) ([]byte, error) {
	if m.Kind() == KindStored {
		return data, nil
	}

	buf := bytes.NewBuffer(make([]byte, 0, int(min(sizeHint, 64<<20))))
	if _, err := m.DecompressTo(buf, data); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecompressTo decodes data that was encoded with the method and writes the result to w.
//
// Returns the number of decoded bytes written to w.
func (m Method) DecompressTo(w io.Writer, data []byte) (int64, error) {
	return m.DecompressToN(w, data, -1)
}

// DecompressToN is a variant of DecompressTo that fails with ErrDecodedSize once more than limit decoded bytes have been
// produced. A negative limit means no limit. Stored data is copied as-is and never limited.
//
// At most limit+1 bytes are written to w before the error is returned.
func (m Method) DecompressToN(w io.Writer, data []byte, limit int64) (int64, error) {
	switch m.Kind() {
	case KindStored:
		n, err := w.Write(data)
		return int64(n), err

	case KindDeflated:
		r := flate.NewReader(bytes.NewReader(data))
		defer r.Close()

		return copyN(w, r, limit)

	case KindBzip2:
		r, err := bzip2.NewReader(bytes.NewReader(data), nil)
		if err != nil {
			return 0, fmt.Errorf("create bzip2 reader error: %w", err)
		}
		defer r.Close()

		return copyN(w, r, limit)

	case KindUnsupported:
		return 0, m.Valid()
	}

	panic(fmt.Sprintf("unknown kind: %v", m.Kind()))
}

func copyN(w io.Writer, r io.Reader, limit int64) (int64, error) {
	if limit < 0 {
		return io.Copy(w, r)
	}

	n, err := io.Copy(w, io.LimitReader(r, limit+1))
	if err == nil && n > limit {
		err = fmt.Errorf("decoded more than %d bytes: %w", limit, ErrDecodedSize)
	}

	return n, err
}
