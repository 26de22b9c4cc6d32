package disk

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
)

func getBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err = backend.Setup(); err != nil {
		t.Fatal(err)
	}
	return backend
}

func TestNewMissingDir(t *testing.T) {
	if _, err := New("/definitely/not/a/real/dir"); err == nil {
		t.Fatal("Expected error for missing base dir")
	}
}

func TestWriteReadDelete(t *testing.T) {
	backend := getBackend(t)

	data := make([]byte, 64*1024)
	rand.Read(data)

	path, size, err := backend.Write("gateway-static-v1", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to write blob: %s", err.Error())
	}
	if diff := cmp.Diff(int64(len(data)), size); diff != "" {
		t.Fatal(diff)
	}

	r, err := backend.Read("gateway-static-v1", path)
	if err != nil {
		t.Fatalf("Failed to read blob: %s", err.Error())
	}
	readData, _ := io.ReadAll(r)
	_ = r.Close()
	if !bytes.Equal(data, readData) {
		t.Fatal("Read data does not match written data")
	}

	if err = backend.Delete("gateway-static-v1", path); err != nil {
		t.Fatalf("Failed to delete blob: %s", err.Error())
	}
	if _, err = backend.Read("gateway-static-v1", path); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %#v", err)
	}

	// Deleting twice is not an error
	if err = backend.Delete("gateway-static-v1", path); err != nil {
		t.Fatalf("Second delete failed: %s", err.Error())
	}
}

func TestPathEscape(t *testing.T) {
	backend := getBackend(t)

	if _, err := backend.Read("uploads", "../../etc/passwd"); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for escaping path, got %#v", err)
	}
	if _, _, err := backend.Write("..", bytes.NewReader([]byte("x"))); err == nil {
		t.Fatal("Expected error writing outside base dir")
	}
}
