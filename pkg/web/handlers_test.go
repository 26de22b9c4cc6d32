package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/terrycain/offline-cache-gateway/pkg/cache"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/mocks/mock_backend"
	"github.com/terrycain/offline-cache-gateway/pkg/s"
	"github.com/terrycain/offline-cache-gateway/pkg/syncqueue"
)

func getMockedHandlers(t *testing.T) (*Handlers, *mock_backend.MockDatabaseBackend, *mock_backend.MockStorageBackend) {
	ctrl := gomock.NewController(t)
	db := mock_backend.NewMockDatabaseBackend(ctrl)
	st := mock_backend.NewMockStorageBackend(ctrl)

	origin, _ := url.Parse("http://upstream.invalid")
	store := cache.NewStore(db, st)
	manager := &cache.Manager{
		Store:  store,
		Origin: origin,
		Names:  cache.Names{Prefix: "sentinel", Version: "v3"},
	}

	return &Handlers{
		Store:     store,
		Lifecycle: cache.NewLifecycle(manager),
		Queue:     syncqueue.NewQueue(db, st, http.DefaultTransport, origin),
	}, db, st
}

func TestStatus(t *testing.T) {
	h, db, _ := getMockedHandlers(t)
	router := GetRouter("", h, false)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	partitions := []s.Partition{
		{Name: "sentinel-static-v3", Ready: true, CreationTime: created},
		{Name: "sentinel-dynamic-v3", Ready: true, CreationTime: created},
	}
	db.EXPECT().ListPartitions().Return(partitions, nil)
	db.EXPECT().ListUploads().Return([]s.PendingUpload{{ID: 2}, {ID: 1}}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/_gateway/status", nil)
	router.ServeHTTP(w, req)

	if diff := cmp.Diff(200, w.Code); diff != "" {
		t.Fatalf("status code mismatch (-want +got):\n%s", diff)
	}

	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	expected := StatusResponse{
		State:          cache.StateNew,
		Version:        "v3",
		Partitions:     partitions,
		PendingUploads: 2,
	}
	if diff := cmp.Diff(expected, resp); diff != "" {
		t.Fatalf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusDatabaseFailure(t *testing.T) {
	h, db, _ := getMockedHandlers(t)
	router := GetRouter("", h, false)

	db.EXPECT().ListPartitions().Return(nil, errors.New("database is locked"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/_gateway/status", nil)
	router.ServeHTTP(w, req)

	if diff := cmp.Diff(500, w.Code); diff != "" {
		t.Fatalf("status code mismatch (-want +got):\n%s", diff)
	}
}

func TestActivateNotReady(t *testing.T) {
	h, db, _ := getMockedHandlers(t)
	router := GetRouter("", h, false)

	db.EXPECT().GetPartition("sentinel-static-v3").Return(s.Partition{Name: "sentinel-static-v3", Ready: false}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/_gateway/activate", nil)
	router.ServeHTTP(w, req)

	if diff := cmp.Diff(409, w.Code); diff != "" {
		t.Fatalf("status code mismatch (-want +got):\n%s", diff)
	}
	state, err := h.Lifecycle.State()
	if state != cache.StateNew || !errors.Is(err, e.ErrPartitionNotReady) {
		t.Fatalf("unexpected lifecycle state %s %v", state, err)
	}
}

func TestPendingUploads(t *testing.T) {
	h, db, _ := getMockedHandlers(t)
	router := GetRouter("", h, false)

	db.EXPECT().ListUploads().Return([]s.PendingUpload{
		{ID: 7, Filename: "b.mp4"},
		{ID: 3, Filename: "a.mkv", Attempts: 2, LastError: "upstream rejected upload"},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/_gateway/uploads", nil)
	router.ServeHTTP(w, req)

	var resp struct {
		Uploads []s.PendingUpload `json:"uploads"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	ids := []int64{}
	for _, upload := range resp.Uploads {
		ids = append(ids, upload.ID)
	}
	if diff := cmp.Diff([]int64{3, 7}, ids); diff != "" {
		t.Fatalf("upload order mismatch (-want +got):\n%s", diff)
	}
}
