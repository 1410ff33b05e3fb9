package backup

import (
	"bytes"
	"compress/gzip"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	lz4FastLevel     = 1
	lz4MaxLevel      = 12
	lz4HighThreshold = 6

	zstdMinLevel     = 1
	zstdDefaultLevel = 3
	zstdMaxLevel     = 22
)

// writeAll pushes data through a streaming compressor and flushes it.
func writeAll(w io.WriteCloser, data []byte) error {
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// drainDecompressor reads a decompressing stream to the end, wrapping any
// failure (including a truncated artifact) in a CompressionError.
func drainDecompressor(r io.Reader, failureMsg string) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, NewCompressionError(failureMsg, err)
	}
	return out, nil
}

// GzipCompressor implements gzip compression
type GzipCompressor struct{}

func (gc *GzipCompressor) Compress(data []byte, level int) ([]byte, *CompressionStats, error) {
	start := time.Now()

	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, nil, NewCompressionError("failed to create gzip writer", err)
	}
	if err := writeAll(writer, data); err != nil {
		return nil, nil, NewCompressionError("gzip compression failed", err)
	}

	return buf.Bytes(), newCompressionStats(CompressionTypeGzip, level, len(data), buf.Len(), start), nil
}

func (gc *GzipCompressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewCompressionError("failed to create gzip reader", err)
	}
	defer reader.Close()
	return drainDecompressor(reader, "failed to decompress gzip data")
}

func (gc *GzipCompressor) GetAlgorithm() CompressionType { return CompressionTypeGzip }
func (gc *GzipCompressor) GetDefaultLevel() int          { return gzip.DefaultCompression }
func (gc *GzipCompressor) GetMaxLevel() int              { return gzip.BestCompression }
func (gc *GzipCompressor) GetMinLevel() int              { return gzip.BestSpeed }

// LZ4Compressor implements LZ4 frame compression. The format only
// distinguishes fast mode from high-compression mode, so the numeric level
// collapses to that choice at the high threshold.
type LZ4Compressor struct{}

func (lc *LZ4Compressor) Compress(data []byte, level int) ([]byte, *CompressionStats, error) {
	start := time.Now()

	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	if level > lz4HighThreshold {
		if err := writer.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, nil, NewCompressionError("failed to set LZ4 high compression", err)
		}
	}
	if err := writeAll(writer, data); err != nil {
		return nil, nil, NewCompressionError("LZ4 compression failed", err)
	}

	return buf.Bytes(), newCompressionStats(CompressionTypeLZ4, level, len(data), buf.Len(), start), nil
}

func (lc *LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	return drainDecompressor(lz4.NewReader(bytes.NewReader(data)), "failed to decompress LZ4 data")
}

func (lc *LZ4Compressor) GetAlgorithm() CompressionType { return CompressionTypeLZ4 }
func (lc *LZ4Compressor) GetDefaultLevel() int          { return lz4FastLevel }
func (lc *LZ4Compressor) GetMaxLevel() int              { return lz4MaxLevel }
func (lc *LZ4Compressor) GetMinLevel() int              { return lz4FastLevel }

// ZstdCompressor implements Zstandard compression
type ZstdCompressor struct{}

// zstdEncoderLevel maps the numeric 1..22 range onto the four speed
// presets the encoder actually exposes.
func zstdEncoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 3:
		return zstd.SpeedDefault
	case level <= 6:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func (zc *ZstdCompressor) Compress(data []byte, level int) ([]byte, *CompressionStats, error) {
	start := time.Now()

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdEncoderLevel(level)))
	if err != nil {
		return nil, nil, NewCompressionError("failed to create zstd encoder", err)
	}
	defer encoder.Close()

	compressed := encoder.EncodeAll(data, make([]byte, 0, len(data)))

	return compressed, newCompressionStats(CompressionTypeZstd, level, len(data), len(compressed), start), nil
}

func (zc *ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, NewCompressionError("failed to create zstd decoder", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, NewCompressionError("failed to decompress zstd data", err)
	}
	return out, nil
}

func (zc *ZstdCompressor) GetAlgorithm() CompressionType { return CompressionTypeZstd }
func (zc *ZstdCompressor) GetDefaultLevel() int          { return zstdDefaultLevel }
func (zc *ZstdCompressor) GetMaxLevel() int              { return zstdMaxLevel }
func (zc *ZstdCompressor) GetMinLevel() int              { return zstdMinLevel }
