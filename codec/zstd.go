package codec

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// ZstdCodec implements Codec for zstd compression algorithm.
type ZstdCodec struct {
	// Concurrency is passed to the encoder and decoder. The zero value uses the library defaults.
	Concurrency int
}

var _ Codec = ZstdCodec{}

func (c ZstdCodec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	var opts []zstd.DOption
	if c.Concurrency > 0 {
		opts = append(opts, zstd.WithDecoderConcurrency(c.Concurrency))
	}

	dec, err := zstd.NewReader(src, opts...)
	if err != nil {
		return nil, err
	}

	return &zstdDecoder{dec}, nil
}

type zstdDecoder struct {
	*zstd.Decoder
}

func (d *zstdDecoder) Close() error {
	d.Decoder.Close()
	return nil
}

func (c ZstdCodec) NewEncoder(dst io.Writer) (io.WriteCloser, error) {
	opts := []zstd.EOption{zstd.WithEncoderLevel(zstd.SpeedBestCompression)}
	if c.Concurrency > 0 {
		opts = append(opts, zstd.WithEncoderConcurrency(c.Concurrency))
	}

	return zstd.NewWriter(dst, opts...)
}

func (c ZstdCodec) Ext() string {
	return ".zst"
}

func (c ZstdCodec) ContentType() string {
	return "application/zstd"
}
