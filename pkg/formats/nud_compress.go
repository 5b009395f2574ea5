package formats

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression selects how a rebuilt container is wrapped on disk.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZlib Compression = "zlib"
	CompressionZstd Compression = "zstd"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// ParseCompression maps a configuration value to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZlib, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unknown compression %q", s)
	}
}

// DetectCompression reports how data is wrapped. Raw NDP3 data and anything
// unrecognized report CompressionNone.
func DetectCompression(data []byte) Compression {
	switch {
	case len(data) >= 4 && string(data[:4]) == nudMagic:
		return CompressionNone
	case bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	case len(data) >= 2 && data[0]&0x0F == 8 && (uint16(data[0])<<8|uint16(data[1]))%31 == 0:
		return CompressionZlib
	default:
		return CompressionNone
	}
}

// DecompressNUD unwraps zlib or zstd compressed container data. Uncompressed
// data is returned unchanged, as is data that only looks like a zlib header
// so the parser can report it as a format error.
func DecompressNUD(data []byte) ([]byte, error) {
	switch DetectCompression(data) {
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	case CompressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return data, nil
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return data, nil
		}
		return out, nil
	default:
		return data, nil
	}
}

// CompressNUD wraps container data for writing to disk.
func CompressNUD(data []byte, c Compression) ([]byte, error) {
	switch c {
	case "", CompressionNone:
		return data, nil
	case CompressionZlib:
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}
