package database

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/s"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	if _, exists := os.LookupEnv("DEBUG"); exists {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	uuid.EnableRandPool()
	os.Exit(m.Run())
}

func TestDatabaseBackends(t *testing.T) {
	runTests := func(backend Backend, t *testing.T) {
		t.Run("type-string", testDBBackendTypeString(backend))
		t.Run("partition-create-idempotent", testCreatePartitionIdempotent(backend))
		t.Run("partition-ready", testPartitionReady(backend))
		t.Run("partition-delete-returns-entries", testDeletePartition(backend))
		t.Run("entry-missing", testEntryMissing(backend))
		t.Run("entry-replace", testEntryReplace(backend))
		t.Run("upload-lifecycle", testUploadLifecycle(backend))
		t.Run("upload-ids-increment", testUploadIDsIncrement(backend))
	}

	t.Run("sqlite", func(t *testing.T) {
		backend, err := GetBackend("sqlite", filepath.Join(t.TempDir(), "gateway.sqlite"))
		if err != nil {
			t.Fatal(err)
		}

		runTests(backend, t)
	})

	t.Run("postgres", func(t *testing.T) {
		pgURL := os.Getenv("DB_POSTGRES")
		if pgURL == "" {
			t.Skip("Skipped postgres as no env var")
		}
		backend, err := GetBackend("postgres", pgURL)
		if err != nil {
			t.Fatal(err)
		}

		runTests(backend, t)
	})
}

func TestInvalidBackend(t *testing.T) {
	if _, err := GetBackend("mysql", ""); err == nil {
		t.Fatal("Expected error for unknown backend")
	}
}

func newEntry(partition string) s.CacheEntry {
	return s.CacheEntry{
		Partition:          partition,
		Key:                s.RequestKey{Method: http.MethodGet, URL: "http://gateway.test/" + uuid.NewString()},
		Status:             http.StatusOK,
		Header:             http.Header{"Content-Type": []string{"text/css"}},
		StorageBackendType: "disk",
		StorageBackendPath: uuid.NewString(),
		Size:               42,
	}
}

func testDBBackendTypeString(backend Backend) func(t *testing.T) {
	return func(t *testing.T) {
		if len(backend.Type()) == 0 {
			t.Fatal("Backend needs a type string set")
		}
	}
}

func testCreatePartitionIdempotent(backend Backend) func(t *testing.T) {
	return func(t *testing.T) {
		name := "static-" + uuid.NewString()
		if err := backend.CreatePartition(name); err != nil {
			t.Fatalf("Failed to create partition: %s", err.Error())
		}
		if err := backend.SetPartitionReady(name, true); err != nil {
			t.Fatalf("Failed to mark ready: %s", err.Error())
		}
		// Opening again must not reset or fail
		if err := backend.CreatePartition(name); err != nil {
			t.Fatalf("Second create failed: %s", err.Error())
		}

		p, err := backend.GetPartition(name)
		if err != nil {
			t.Fatal(err)
		}
		if !p.Ready {
			t.Fatal("Re-creating an existing partition should not touch it")
		}
	}
}

func testPartitionReady(backend Backend) func(t *testing.T) {
	return func(t *testing.T) {
		name := "static-" + uuid.NewString()
		if err := backend.CreatePartition(name); err != nil {
			t.Fatal(err)
		}

		p, err := backend.GetPartition(name)
		if err != nil {
			t.Fatal(err)
		}
		if p.Ready {
			t.Fatal("New partition should not be ready")
		}

		if err = backend.SetPartitionReady("missing-"+uuid.NewString(), true); !errors.Is(err, e.ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %#v", err)
		}
		if _, err = backend.GetPartition("missing-" + uuid.NewString()); !errors.Is(err, e.ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %#v", err)
		}
	}
}

func testDeletePartition(backend Backend) func(t *testing.T) {
	return func(t *testing.T) {
		name := "dynamic-" + uuid.NewString()
		other := "dynamic-" + uuid.NewString()
		for _, n := range []string{name, other} {
			if err := backend.CreatePartition(n); err != nil {
				t.Fatal(err)
			}
		}

		first, second, kept := newEntry(name), newEntry(name), newEntry(other)
		for _, entry := range []s.CacheEntry{first, second, kept} {
			if _, _, err := backend.PutEntry(entry); err != nil {
				t.Fatal(err)
			}
		}

		removed, err := backend.DeletePartition(name)
		if err != nil {
			t.Fatalf("Failed to delete partition: %s", err.Error())
		}
		if diff := cmp.Diff(2, len(removed)); diff != "" {
			t.Fatal(diff)
		}

		if _, err = backend.GetEntry(name, first.Key); !errors.Is(err, e.ErrNotFound) {
			t.Fatalf("Expected entry to be removed, got %#v", err)
		}
		if _, err = backend.GetEntry(other, kept.Key); err != nil {
			t.Fatalf("Entry of another partition was removed: %s", err.Error())
		}

		partitions, err := backend.ListPartitions()
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range partitions {
			if p.Name == name {
				t.Fatal("Deleted partition still listed")
			}
		}
	}
}

func testEntryMissing(backend Backend) func(t *testing.T) {
	return func(t *testing.T) {
		_, err := backend.GetEntry("static-"+uuid.NewString(), s.RequestKey{Method: http.MethodGet, URL: "http://gateway.test/"})
		if !errors.Is(err, e.ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %#v", err)
		}
	}
}

func testEntryReplace(backend Backend) func(t *testing.T) {
	return func(t *testing.T) {
		partition := "dynamic-" + uuid.NewString()
		if err := backend.CreatePartition(partition); err != nil {
			t.Fatal(err)
		}

		entry := newEntry(partition)
		if _, replaced, err := backend.PutEntry(entry); err != nil || replaced {
			t.Fatalf("First put should not replace anything: replaced=%t err=%v", replaced, err)
		}

		newer := entry
		newer.StorageBackendPath = uuid.NewString()
		newer.Status = http.StatusAccepted
		previous, replaced, err := backend.PutEntry(newer)
		if err != nil {
			t.Fatal(err)
		}
		if !replaced {
			t.Fatal("Second put should replace the first entry")
		}
		if diff := cmp.Diff(entry.StorageBackendPath, previous.StorageBackendPath); diff != "" {
			t.Fatal(diff)
		}

		got, err := backend.GetEntry(partition, entry.Key)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(newer.StorageBackendPath, got.StorageBackendPath); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff(http.StatusAccepted, got.Status); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff("text/css", got.Header.Get("Content-Type")); diff != "" {
			t.Fatal(diff)
		}
	}
}

func testUploadLifecycle(backend Backend) func(t *testing.T) {
	return func(t *testing.T) {
		upload := s.PendingUpload{
			Filename:           "lobby.mp4",
			ContentType:        "video/mp4",
			Metadata:           map[string]string{"camera_id": "3", "camera_name": "Lobby"},
			Size:               1024,
			StorageBackendType: "disk",
			StorageBackendPath: uuid.NewString(),
		}

		id, err := backend.AddUpload(upload)
		if err != nil {
			t.Fatalf("Failed to add upload: %s", err.Error())
		}

		if err = backend.MarkUploadAttempt(id, "connection refused"); err != nil {
			t.Fatal(err)
		}

		got, err := backend.GetUpload(id)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(upload.Metadata, got.Metadata); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff(1, got.Attempts); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff("connection refused", got.LastError); diff != "" {
			t.Fatal(diff)
		}

		if err = backend.DeleteUpload(id); err != nil {
			t.Fatal(err)
		}
		if _, err = backend.GetUpload(id); !errors.Is(err, e.ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %#v", err)
		}
		if err = backend.DeleteUpload(id); !errors.Is(err, e.ErrNotFound) {
			t.Fatalf("Expected ErrNotFound on second delete, got %#v", err)
		}
	}
}

func testUploadIDsIncrement(backend Backend) func(t *testing.T) {
	return func(t *testing.T) {
		var last int64
		for i := 0; i < 3; i++ {
			id, err := backend.AddUpload(s.PendingUpload{Filename: "clip.mp4", StorageBackendPath: uuid.NewString()})
			if err != nil {
				t.Fatal(err)
			}
			if id <= last {
				t.Fatalf("Upload ids should increase, got %d after %d", id, last)
			}
			last = id
		}

		uploads, err := backend.ListUploads()
		if err != nil {
			t.Fatal(err)
		}
		for i := 1; i < len(uploads); i++ {
			if uploads[i].ID <= uploads[i-1].ID {
				t.Fatal("ListUploads should be ordered by id")
			}
		}
	}
}
