package backup

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newTestStorageTarget builds a target rooted in a per-test temp directory.
// Takes testing.TB so benchmarks share it.
func newTestStorageTarget(tb testing.TB) *LocalStorageTarget {
	tb.Helper()

	target, err := NewLocalStorageTarget(&StorageConfig{
		BasePath:    tb.TempDir(),
		Permissions: 0755,
	})
	if err != nil {
		tb.Fatalf("creating storage target: %v", err)
	}
	return target
}

func TestNewLocalStorageTarget(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name    string
		config  *StorageConfig
		wantErr bool
	}{
		{name: "valid config", config: &StorageConfig{BasePath: tempDir, Permissions: 0755}},
		{name: "nil config", config: nil, wantErr: true},
		{name: "empty base path", config: &StorageConfig{Permissions: 0755}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := NewLocalStorageTarget(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLocalStorageTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && target == nil {
				t.Error("NewLocalStorageTarget() = nil, want target")
			}
		})
	}
}

func TestNewLocalStorageTarget_CreatesBaseDirectory(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), "nested", "snapshots")

	target, err := NewLocalStorageTarget(&StorageConfig{BasePath: basePath, Permissions: 0755})
	if err != nil {
		t.Fatalf("NewLocalStorageTarget() error = %v", err)
	}

	if target.GetBasePath() != basePath {
		t.Errorf("GetBasePath() = %q, want %q", target.GetBasePath(), basePath)
	}
	if _, err := os.Stat(basePath); err != nil {
		t.Errorf("base directory missing: %v", err)
	}
}

func TestLocalStorageTarget_Put(t *testing.T) {
	target := newTestStorageTarget(t)
	ctx := context.Background()
	data := []byte(`{"format_version":1,"tables":[]}`)

	t.Run("valid snapshot", func(t *testing.T) {
		location, n, err := target.Put(ctx, "snap-20250615-020000-abcd1234", data)
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		if n != int64(len(data)) {
			t.Errorf("Put() wrote %d bytes, want %d", n, len(data))
		}
		if !strings.HasSuffix(location, ArtifactExtension) {
			t.Errorf("location %q does not end in %s", location, ArtifactExtension)
		}
		if _, err := os.Stat(location); err != nil {
			t.Errorf("artifact file missing: %v", err)
		}
		// A successful write must not leave its temp file behind
		if _, err := os.Stat(location + ".tmp"); !os.IsNotExist(err) {
			t.Error("temp file was not cleaned up")
		}
	})

	t.Run("empty snapshot ID", func(t *testing.T) {
		if _, _, err := target.Put(ctx, "", data); err == nil {
			t.Error("Put() error = nil, want error for empty ID")
		}
	})
}

func TestLocalStorageTarget_Put_CancelledContext(t *testing.T) {
	target := newTestStorageTarget(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := target.Put(ctx, "snap-1", []byte("data"))
	if err == nil {
		t.Fatal("Put() error = nil, want error for cancelled context")
	}
	if !IsStorageUnavailable(err) {
		t.Errorf("Put() error = %v, want storage unavailable", err)
	}
}

func TestLocalStorageTarget_Put_IDCannotEscapeBasePath(t *testing.T) {
	target := newTestStorageTarget(t)

	location, _, err := target.Put(context.Background(), "../../etc/passwd", []byte("data"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if filepath.Dir(location) != target.GetBasePath() {
		t.Errorf("artifact escaped base path: %s", location)
	}
}

func TestLocalStorageTarget_Get(t *testing.T) {
	target := newTestStorageTarget(t)
	ctx := context.Background()
	data := []byte("artifact payload")

	location, _, err := target.Put(ctx, "snap-1", data)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	t.Run("existing artifact", func(t *testing.T) {
		got, err := target.Get(ctx, location)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("Get() = %q, want %q", got, data)
		}
	})

	t.Run("non-existent artifact", func(t *testing.T) {
		_, err := target.Get(ctx, filepath.Join(target.GetBasePath(), "missing.snap"))
		if !IsNotFound(err) {
			t.Errorf("Get() error = %v, want not found", err)
		}
	})

	t.Run("empty location", func(t *testing.T) {
		if _, err := target.Get(ctx, ""); err == nil {
			t.Error("Get() error = nil, want error for empty location")
		}
	})
}

func TestLocalStorageTarget_Delete(t *testing.T) {
	target := newTestStorageTarget(t)
	ctx := context.Background()

	location, _, err := target.Put(ctx, "snap-1", []byte("data"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := target.Delete(ctx, location); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(location); !os.IsNotExist(err) {
		t.Error("artifact file still present after delete")
	}

	// Deleting an already-removed artifact succeeds so a retention retry
	// after a partial pass converges
	if err := target.Delete(ctx, location); err != nil {
		t.Errorf("Delete() of missing artifact error = %v, want nil", err)
	}

	if err := target.Delete(ctx, ""); err == nil {
		t.Error("Delete() error = nil, want error for empty location")
	}
}

func TestLocalStorageTarget_List(t *testing.T) {
	target := newTestStorageTarget(t)
	ctx := context.Background()

	loc1, _, err := target.Put(ctx, "snap-1", []byte("one"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	loc2, _, err := target.Put(ctx, "snap-2", []byte("two"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Stray files and directories must be ignored
	if err := os.WriteFile(filepath.Join(target.GetBasePath(), "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("creating stray file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(target.GetBasePath(), "subdir"), 0755); err != nil {
		t.Fatalf("creating subdirectory: %v", err)
	}

	locations, err := target.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(locations) != 2 {
		t.Fatalf("List() returned %d artifacts, want 2: %v", len(locations), locations)
	}

	found := map[string]bool{}
	for _, loc := range locations {
		found[loc] = true
	}
	if !found[loc1] || !found[loc2] {
		t.Errorf("List() = %v, want %s and %s", locations, loc1, loc2)
	}
}

func TestLocalStorageTarget_HealthCheck(t *testing.T) {
	target := newTestStorageTarget(t)

	if err := target.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestSanitizeSnapshotID(t *testing.T) {
	tests := []struct{ id, want string }{
		{"snap-20250615-020000-abcd1234", "snap-20250615-020000-abcd1234"},
		{"snap/123", "snap_123"},
		{"snap\\123", "snap_123"},
		{"snap../123", "snap__123"},
	}

	for _, tt := range tests {
		if got := sanitizeSnapshotID(tt.id); got != tt.want {
			t.Errorf("sanitizeSnapshotID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestLocalStorageTarget_GetStorageInfo(t *testing.T) {
	tempDir := t.TempDir()
	target, err := NewLocalStorageTarget(&StorageConfig{BasePath: tempDir, Permissions: 0755})
	if err != nil {
		t.Fatalf("NewLocalStorageTarget() error = %v", err)
	}

	info := target.GetStorageInfo()

	if info["target"] != "local" {
		t.Errorf(`info["target"] = %v, want "local"`, info["target"])
	}
	if info["base_path"] != tempDir {
		t.Errorf(`info["base_path"] = %v, want %q`, info["base_path"], tempDir)
	}
	if info["permissions"] != "-rwxr-xr-x" {
		t.Errorf(`info["permissions"] = %v, want "-rwxr-xr-x"`, info["permissions"])
	}
}

func BenchmarkLocalStorageTarget_Put(b *testing.B) {
	target := newTestStorageTarget(b)
	ctx := context.Background()
	data := bytes.Repeat([]byte(`{"sku":"SKU-1001","quantity":42},`), 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := target.Put(ctx, GenerateSnapshotID(), data); err != nil {
			b.Fatalf("Put failed: %v", err)
		}
	}
}

func BenchmarkLocalStorageTarget_Get(b *testing.B) {
	target := newTestStorageTarget(b)
	ctx := context.Background()
	data := bytes.Repeat([]byte(`{"sku":"SKU-1001","quantity":42},`), 100)

	location, _, err := target.Put(ctx, "snap-bench", data)
	if err != nil {
		b.Fatalf("Put failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := target.Get(ctx, location); err != nil {
			b.Fatalf("Get failed: %v", err)
		}
	}
}
