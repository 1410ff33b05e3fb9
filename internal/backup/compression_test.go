package backup

import (
	"bytes"
	"compress/gzip"
	"crypto/rand"
	"encoding/json"
	"testing"
	"time"
)

// dumpPayload builds a serialized store dump the way the snapshot manager
// hands it to the compressor: repetitive JSON that every algorithm should
// shrink substantially.
func dumpPayload(t *testing.T, rows int) []byte {
	t.Helper()

	table := TableDump{
		Name:    "inventory",
		Columns: []string{"id", "product", "branch", "quantity", "month", "year", "updated_at"},
	}
	for i := 0; i < rows; i++ {
		table.Rows = append(table.Rows, []interface{}{
			i + 1, "espresso beans", "downtown", 40, 8, 2026, "2026-08-01T10:00:00Z",
		})
	}

	payload, err := json.Marshal(&StoreDump{
		FormatVersion: DumpFormatVersion,
		DumpedAt:      time.Date(2026, 8, 1, 2, 0, 0, 0, time.UTC),
		Tables:        []TableDump{table},
	})
	if err != nil {
		t.Fatalf("marshal dump: %v", err)
	}
	return payload
}

func randomPayload(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return buf
}

func TestCompressionRoundTrip(t *testing.T) {
	cm := NewCompressionManager()
	dump := dumpPayload(t, 500)

	algorithms := []CompressionType{CompressionTypeGzip, CompressionTypeLZ4, CompressionTypeZstd}

	for _, algorithm := range algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			compressed, stats, err := cm.Compress(dump, algorithm, 0)
			if err != nil {
				t.Fatalf("compress: %v", err)
			}

			if stats.Algorithm != algorithm {
				t.Errorf("stats algorithm = %s", stats.Algorithm)
			}
			if stats.OriginalSize != int64(len(dump)) {
				t.Errorf("original size = %d, want %d", stats.OriginalSize, len(dump))
			}
			if stats.CompressedSize != int64(len(compressed)) {
				t.Errorf("compressed size = %d, want %d", stats.CompressedSize, len(compressed))
			}
			if stats.CompressionRatio >= 1.0 {
				t.Errorf("a repetitive dump must shrink, ratio = %.3f", stats.CompressionRatio)
			}

			restored, err := cm.Decompress(compressed, algorithm)
			if err != nil {
				t.Fatalf("decompress: %v", err)
			}
			if !bytes.Equal(restored, dump) {
				t.Error("round trip lost data")
			}
		})
	}
}

func TestCompressionRoundTripEdgePayloads(t *testing.T) {
	cm := NewCompressionManager()

	payloads := map[string][]byte{
		"empty":       {},
		"single byte": {0x7b},
		"random 4KiB": randomPayload(t, 4096),
		"tiny dump":   dumpPayload(t, 1),
	}

	for name, payload := range payloads {
		for _, algorithm := range []CompressionType{CompressionTypeGzip, CompressionTypeLZ4, CompressionTypeZstd} {
			t.Run(name+"/"+string(algorithm), func(t *testing.T) {
				compressed, _, err := cm.Compress(payload, algorithm, 0)
				if err != nil {
					t.Fatalf("compress: %v", err)
				}
				restored, err := cm.Decompress(compressed, algorithm)
				if err != nil {
					t.Fatalf("decompress: %v", err)
				}
				if !bytes.Equal(restored, payload) {
					t.Errorf("round trip mismatch: %d in, %d out", len(payload), len(restored))
				}
			})
		}
	}
}

func TestCompressionNoneIsIdentity(t *testing.T) {
	cm := NewCompressionManager()
	dump := dumpPayload(t, 10)

	out, stats, err := cm.Compress(dump, CompressionTypeNone, 5)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if !bytes.Equal(out, dump) {
		t.Error("none must pass data through unchanged")
	}
	if stats.CompressionRatio != 1.0 || stats.CompressedSize != stats.OriginalSize {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Level != 0 {
		t.Errorf("none records level %d", stats.Level)
	}

	back, err := cm.Decompress(out, CompressionTypeNone)
	if err != nil || !bytes.Equal(back, dump) {
		t.Errorf("decompress none: %v", err)
	}
}

func TestCompressionUnknownAlgorithmRejected(t *testing.T) {
	cm := NewCompressionManager()

	if _, _, err := cm.Compress([]byte("x"), CompressionType("brotli"), 0); err == nil {
		t.Error("compress must reject an unknown algorithm")
	}
	if _, err := cm.Decompress([]byte("x"), CompressionType("brotli")); err == nil {
		t.Error("decompress must reject an unknown algorithm")
	}
	if _, err := cm.GetCompressor(CompressionType("brotli")); err == nil {
		t.Error("GetCompressor must reject an unknown algorithm")
	}
}

// An out-of-range level silently falls back to the algorithm default, so a
// misconfigured level never fails a nightly snapshot.
func TestCompressionLevelFallback(t *testing.T) {
	cm := NewCompressionManager()
	dump := dumpPayload(t, 50)

	for _, level := range []int{-5, 0, 99} {
		_, stats, err := cm.Compress(dump, CompressionTypeGzip, level)
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		if stats.Level != gzip.DefaultCompression {
			t.Errorf("level %d: stats level = %d, want gzip default %d", level, stats.Level, gzip.DefaultCompression)
		}
	}

	_, stats, err := cm.Compress(dump, CompressionTypeGzip, gzip.BestCompression)
	if err != nil {
		t.Fatalf("best compression: %v", err)
	}
	if stats.Level != gzip.BestCompression {
		t.Errorf("in-range level rewritten to %d", stats.Level)
	}
}

func TestDecompressRejectsCorruptArtifact(t *testing.T) {
	cm := NewCompressionManager()
	garbage := []byte("this was never a compressed artifact")

	for _, algorithm := range []CompressionType{CompressionTypeGzip, CompressionTypeZstd} {
		if _, err := cm.Decompress(garbage, algorithm); err == nil {
			t.Errorf("%s: corrupt data must not decompress", algorithm)
		}
	}
}

// Truncation mid-stream must surface as an error, not as silently short
// data; the restore path depends on this failing closed.
func TestDecompressRejectsTruncatedArtifact(t *testing.T) {
	cm := NewCompressionManager()
	dump := dumpPayload(t, 200)

	for _, algorithm := range []CompressionType{CompressionTypeGzip, CompressionTypeZstd} {
		compressed, _, err := cm.Compress(dump, algorithm, 0)
		if err != nil {
			t.Fatalf("%s compress: %v", algorithm, err)
		}

		restored, err := cm.Decompress(compressed[:len(compressed)/2], algorithm)
		if err == nil && bytes.Equal(restored, dump) {
			t.Errorf("%s: truncated artifact decompressed to full data", algorithm)
		}
	}
}

func TestZstdLevelBuckets(t *testing.T) {
	cm := NewCompressionManager()
	dump := dumpPayload(t, 100)

	// 1 fastest, 3 default, 6 better, 22 best: each bucket must round trip
	for _, level := range []int{1, 3, 6, 22} {
		compressed, stats, err := cm.Compress(dump, CompressionTypeZstd, level)
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		if stats.Level != level {
			t.Errorf("level %d recorded as %d", level, stats.Level)
		}
		restored, err := cm.Decompress(compressed, CompressionTypeZstd)
		if err != nil || !bytes.Equal(restored, dump) {
			t.Errorf("level %d round trip failed: %v", level, err)
		}
	}
}

func TestLZ4HighCompressionMode(t *testing.T) {
	cm := NewCompressionManager()
	dump := dumpPayload(t, 300)

	// Levels above 6 switch the writer into high-compression mode
	fast, _, err := cm.Compress(dump, CompressionTypeLZ4, 1)
	if err != nil {
		t.Fatalf("fast: %v", err)
	}
	high, _, err := cm.Compress(dump, CompressionTypeLZ4, 9)
	if err != nil {
		t.Fatalf("high: %v", err)
	}

	for name, artifact := range map[string][]byte{"fast": fast, "high": high} {
		restored, err := cm.Decompress(artifact, CompressionTypeLZ4)
		if err != nil || !bytes.Equal(restored, dump) {
			t.Errorf("%s mode round trip failed: %v", name, err)
		}
	}
}

func TestCompressorLevelContracts(t *testing.T) {
	cm := NewCompressionManager()

	tests := []struct {
		algorithm    CompressionType
		min, max     int
		defaultLevel int
	}{
		{CompressionTypeGzip, gzip.BestSpeed, gzip.BestCompression, gzip.DefaultCompression},
		{CompressionTypeLZ4, 1, 12, 1},
		{CompressionTypeZstd, 1, 22, 3},
	}

	for _, tt := range tests {
		compressor, err := cm.GetCompressor(tt.algorithm)
		if err != nil {
			t.Fatalf("%s: %v", tt.algorithm, err)
		}
		if got := compressor.GetAlgorithm(); got != tt.algorithm {
			t.Errorf("%s: algorithm = %s", tt.algorithm, got)
		}
		if got := compressor.GetMinLevel(); got != tt.min {
			t.Errorf("%s: min = %d, want %d", tt.algorithm, got, tt.min)
		}
		if got := compressor.GetMaxLevel(); got != tt.max {
			t.Errorf("%s: max = %d, want %d", tt.algorithm, got, tt.max)
		}
		if got := compressor.GetDefaultLevel(); got != tt.defaultLevel {
			t.Errorf("%s: default = %d, want %d", tt.algorithm, got, tt.defaultLevel)
		}
	}
}

func TestSupportedAlgorithms(t *testing.T) {
	supported := NewCompressionManager().GetSupportedAlgorithms()
	if len(supported) != 3 {
		t.Fatalf("supported = %v", supported)
	}

	seen := make(map[CompressionType]bool)
	for _, a := range supported {
		seen[a] = true
	}
	for _, want := range []CompressionType{CompressionTypeGzip, CompressionTypeLZ4, CompressionTypeZstd} {
		if !seen[want] {
			t.Errorf("%s not reported as supported", want)
		}
	}
	if seen[CompressionTypeNone] {
		t.Error("none is the absence of a compressor, not an algorithm")
	}
}

func TestShouldCompress(t *testing.T) {
	cm := NewCompressionManager()

	if !cm.ShouldCompress(1024, 1024) {
		t.Error("size at threshold must compress")
	}
	if !cm.ShouldCompress(2048, 1024) {
		t.Error("size above threshold must compress")
	}
	if cm.ShouldCompress(100, 1024) {
		t.Error("size below threshold must not compress")
	}
}

func TestCalculateCompressionRatio(t *testing.T) {
	if got := CalculateCompressionRatio(0, 0); got != 1.0 {
		t.Errorf("empty input ratio = %v", got)
	}
	if got := CalculateCompressionRatio(1000, 250); got != 0.25 {
		t.Errorf("ratio = %v, want 0.25", got)
	}
	if got := CalculateCompressionRatio(100, 150); got != 1.5 {
		t.Errorf("growth ratio = %v, want 1.5", got)
	}
}
