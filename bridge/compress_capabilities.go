package bridge

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ---------------------------------------------------------------------------
// Compression capabilities
// ---------------------------------------------------------------------------

func registerCompressCapabilities(reg *BuiltinRegistry) error {
	// The zstd coders are built once and captured; both are safe for
	// concurrent EncodeAll/DecodeAll use.
	zenc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("bridge: zstd encoder: %w", err)
	}
	zdec, err := zstd.NewReader(nil)
	if err != nil {
		return fmt.Errorf("bridge: zstd decoder: %w", err)
	}

	// compress.zstd: payload -> zstandard frame
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "compress.zstd",
		Description: "Compress a buffer into a zstandard frame",
		Category:    "compression",
		Arity:       1,
		Keywords:    []string{"compress", "zstd", "zstandard"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("compress.zstd", args, 1); err != nil {
			return nil, err
		}
		return zenc.EncodeAll(args[0], nil), nil
	}); err != nil {
		return err
	}

	// decompress.zstd: zstandard frame -> payload
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "decompress.zstd",
		Description: "Decompress a zstandard frame back into its payload",
		Category:    "compression",
		Arity:       1,
		Keywords:    []string{"decompress", "zstd", "zstandard"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("decompress.zstd", args, 1); err != nil {
			return nil, err
		}
		out, err := zdec.DecodeAll(args[0], nil)
		if err != nil {
			return nil, fmt.Errorf("decompress.zstd: %w", err)
		}
		return out, nil
	}); err != nil {
		return err
	}

	// compress.gzip: payload -> RFC 1952 stream
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "compress.gzip",
		Description: "Compress a buffer into a gzip stream",
		Category:    "compression",
		Arity:       1,
		Keywords:    []string{"compress", "gzip", "gz"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("compress.gzip", args, 1); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("compress.gzip: init: %w", err)
		}
		if _, err := zw.Write(args[0]); err != nil {
			zw.Close()
			return nil, fmt.Errorf("compress.gzip: write: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compress.gzip: close: %w", err)
		}
		return buf.Bytes(), nil
	}); err != nil {
		return err
	}

	// decompress.gzip: RFC 1952 stream -> payload
	return reg.RegisterFunc(CapabilityInfo{
		Name:        "decompress.gzip",
		Description: "Decompress a gzip stream back into its payload",
		Category:    "compression",
		Arity:       1,
		Keywords:    []string{"decompress", "gzip", "gunzip"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("decompress.gzip", args, 1); err != nil {
			return nil, err
		}
		zr, err := gzip.NewReader(bytes.NewReader(args[0]))
		if err != nil {
			return nil, fmt.Errorf("decompress.gzip: %w", err)
		}
		out, err := io.ReadAll(zr)
		if err != nil {
			zr.Close()
			return nil, fmt.Errorf("decompress.gzip: read: %w", err)
		}
		if err := zr.Close(); err != nil {
			return nil, fmt.Errorf("decompress.gzip: close: %w", err)
		}
		return out, nil
	})
}
