package backup

import (
	"fmt"
	"time"
)

// CompressionStats describes one compression pass over a snapshot dump.
type CompressionStats struct {
	Algorithm        CompressionType `json:"algorithm"`
	Level            int             `json:"level"`
	OriginalSize     int64           `json:"original_size"`
	CompressedSize   int64           `json:"compressed_size"`
	CompressionRatio float64         `json:"compression_ratio"`
	Duration         time.Duration   `json:"duration"`
}

func newCompressionStats(algorithm CompressionType, level, originalLen, compressedLen int, start time.Time) *CompressionStats {
	return &CompressionStats{
		Algorithm:        algorithm,
		Level:            level,
		OriginalSize:     int64(originalLen),
		CompressedSize:   int64(compressedLen),
		CompressionRatio: CalculateCompressionRatio(int64(originalLen), int64(compressedLen)),
		Duration:         time.Since(start),
	}
}

// CalculateCompressionRatio returns compressed size over original size.
// An empty input counts as a ratio of 1.0 rather than a division by zero.
func CalculateCompressionRatio(originalSize, compressedSize int64) float64 {
	if originalSize == 0 {
		return 1.0
	}
	return float64(compressedSize) / float64(originalSize)
}

// Compressor is one registered compression algorithm.
type Compressor interface {
	Compress(data []byte, level int) ([]byte, *CompressionStats, error)
	Decompress(data []byte) ([]byte, error)

	// Level bounds, in the algorithm's own numbering.
	GetAlgorithm() CompressionType
	GetMinLevel() int
	GetMaxLevel() int
	GetDefaultLevel() int
}

// CompressionManager compresses snapshot dumps before they reach the
// storage target and decompresses them again during restore staging
type CompressionManager struct {
	compressors map[CompressionType]Compressor
}

func NewCompressionManager() *CompressionManager {
	return &CompressionManager{
		compressors: map[CompressionType]Compressor{
			CompressionTypeGzip: &GzipCompressor{},
			CompressionTypeLZ4:  &LZ4Compressor{},
			CompressionTypeZstd: &ZstdCompressor{},
		},
	}
}

// Compress runs data through the named algorithm. A level outside the
// algorithm's bounds falls back to its default instead of failing, so a
// stale config value cannot break the nightly snapshot.
func (cm *CompressionManager) Compress(data []byte, algorithm CompressionType, level int) ([]byte, *CompressionStats, error) {
	if algorithm == CompressionTypeNone {
		return data, &CompressionStats{
			Algorithm:        CompressionTypeNone,
			OriginalSize:     int64(len(data)),
			CompressedSize:   int64(len(data)),
			CompressionRatio: 1.0,
		}, nil
	}

	compressor, err := cm.GetCompressor(algorithm)
	if err != nil {
		return nil, nil, err
	}

	if level < compressor.GetMinLevel() || level > compressor.GetMaxLevel() {
		level = compressor.GetDefaultLevel()
	}

	return compressor.Compress(data, level)
}

// Decompress reverses Compress for the named algorithm.
func (cm *CompressionManager) Decompress(data []byte, algorithm CompressionType) ([]byte, error) {
	if algorithm == CompressionTypeNone {
		return data, nil
	}

	compressor, err := cm.GetCompressor(algorithm)
	if err != nil {
		return nil, err
	}

	return compressor.Decompress(data)
}

// GetCompressor returns the registered compressor for an algorithm.
func (cm *CompressionManager) GetCompressor(algorithm CompressionType) (Compressor, error) {
	compressor, ok := cm.compressors[algorithm]
	if !ok {
		return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
	return compressor, nil
}

// GetSupportedAlgorithms lists the registered algorithms, none excluded.
func (cm *CompressionManager) GetSupportedAlgorithms() []CompressionType {
	supported := make([]CompressionType, 0, len(cm.compressors))
	for algo := range cm.compressors {
		supported = append(supported, algo)
	}
	return supported
}

// ShouldCompress reports whether a dump of dataSize meets the threshold.
func (cm *CompressionManager) ShouldCompress(dataSize int64, threshold int64) bool {
	return dataSize >= threshold
}
