package syncqueue

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/terrycain/offline-cache-gateway/pkg/database"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/s"
	"github.com/terrycain/offline-cache-gateway/pkg/storage/disk"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	if _, exists := os.LookupEnv("DEBUG"); exists {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	os.Exit(m.Run())
}

// upstream records every multipart upload and rejects the filenames in reject.
type upstream struct {
	mu       sync.Mutex
	received []string
	fields   []map[string]string
	reject   map[string]bool
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != UploadPath || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	file, header, err := r.FormFile(UploadFileField)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer file.Close()
	content, _ := io.ReadAll(file)

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.reject[header.Filename] {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	u.received = append(u.received, header.Filename+":"+string(content))
	u.fields = append(u.fields, map[string]string{"camera_id": r.FormValue("camera_id")})
	w.WriteHeader(http.StatusOK)
}

func newTestQueue(t *testing.T, handler http.Handler) *Queue {
	t.Helper()

	db, err := database.GetBackend("sqlite", filepath.Join(t.TempDir(), "queue.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	st, err := disk.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	origin, _ := url.Parse(server.URL)

	return NewQueue(db, st, http.DefaultTransport, origin)
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		valid    bool
	}{
		{"mp4", "clip.mp4", true},
		{"upper-case", "CLIP.MOV", true},
		{"wmv", "garage.cam.wmv", true},
		{"empty", "", false},
		{"no-extension", "clip", false},
		{"image", "snapshot.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if tt.valid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.valid && !errors.Is(err, e.ErrInvalidUpload) {
				t.Fatalf("expected ErrInvalidUpload, got %v", err)
			}
		})
	}
}

func TestEnqueueTooLarge(t *testing.T) {
	q := newTestQueue(t, &upstream{})
	q.MaxUploadSize = 8

	_, err := q.Enqueue(context.Background(), "clip.mp4", "video/mp4", strings.NewReader("0123456789"), nil)
	if !errors.Is(err, e.ErrInvalidUpload) {
		t.Fatalf("expected ErrInvalidUpload, got %v", err)
	}
	pending, err := q.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("oversized upload was queued: %v", pending)
	}
}

func TestDrainPartialFailure(t *testing.T) {
	server := &upstream{reject: map[string]bool{"clip-3.mp4": true}}
	q := newTestQueue(t, server)

	names := []string{"clip-1.mp4", "clip-2.mp4", "clip-3.mp4", "clip-4.mp4", "clip-5.mp4"}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := q.Enqueue(context.Background(), name, "video/mp4", bytes.NewReader([]byte(name)), map[string]string{"camera_id": "7"})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	delivered, err := q.Drain(context.Background())
	if !errors.Is(err, e.ErrUploadRejected) {
		t.Fatalf("expected ErrUploadRejected, got %v", err)
	}
	if delivered != len(names)-1 {
		t.Fatalf("expected %d delivered, got %d", len(names)-1, delivered)
	}

	expected := []string{"clip-1.mp4:clip-1.mp4", "clip-2.mp4:clip-2.mp4", "clip-4.mp4:clip-4.mp4", "clip-5.mp4:clip-5.mp4"}
	if diff := cmp.Diff(expected, server.received); diff != "" {
		t.Fatalf("delivery order mismatch (-want +got):\n%s", diff)
	}
	for _, fields := range server.fields {
		if fields["camera_id"] != "7" {
			t.Fatalf("metadata not sent as form field: %v", fields)
		}
	}

	pending, err := q.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != ids[2] {
		t.Fatalf("expected only the rejected upload to remain, got %v", pending)
	}
	if pending[0].Attempts != 1 || pending[0].LastError == "" {
		t.Fatalf("failed attempt not recorded: %+v", pending[0])
	}

	state, err := q.State(ids[0])
	if err != nil || state != s.UploadDelivered {
		t.Fatalf("expected delivered state, got %s (%v)", state, err)
	}
	state, err = q.State(ids[2])
	if err != nil || state != s.UploadPending {
		t.Fatalf("expected pending state, got %s (%v)", state, err)
	}

	// Once upstream accepts it the queue empties
	server.mu.Lock()
	server.reject = nil
	server.mu.Unlock()
	delivered, err = q.Drain(context.Background())
	if err != nil || delivered != 1 {
		t.Fatalf("expected 1 delivered, got %d (%v)", delivered, err)
	}
}

func TestDeliverInFlight(t *testing.T) {
	release := make(chan struct{})
	var hits int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.WriteHeader(http.StatusOK)
	})
	q := newTestQueue(t, handler)

	id, err := q.Enqueue(context.Background(), "clip.mp4", "video/mp4", strings.NewReader("data"), nil)
	if err != nil {
		t.Fatal(err)
	}
	upload, err := q.Database.GetUpload(id)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- q.Deliver(context.Background(), upload) }()

	deadline := time.Now().Add(5 * time.Second)
	for atomic.LoadInt32(&hits) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first delivery never reached upstream")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if state, _ := q.State(id); state != s.UploadInFlight {
		t.Fatalf("expected in flight state, got %s", state)
	}
	if err = q.Deliver(context.Background(), upload); !errors.Is(err, e.ErrUploadInFlight) {
		t.Fatalf("expected ErrUploadInFlight, got %v", err)
	}

	close(release)
	if err = <-done; err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("upload sent %d times", hits)
	}
}

func TestSubmitOffline(t *testing.T) {
	q := newTestQueue(t, &upstream{})
	q.Origin, _ = url.Parse("http://127.0.0.1:1")

	id, delivered, err := q.Submit(context.Background(), "clip.mp4", "video/mp4", strings.NewReader("data"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if delivered {
		t.Fatal("upload reported delivered while offline")
	}
	if state, _ := q.State(id); state != s.UploadPending {
		t.Fatalf("expected pending state, got %s", state)
	}
}

func TestSyncerTrigger(t *testing.T) {
	var alerts int32
	mux := http.NewServeMux()
	mux.Handle(UploadPath, &upstream{})
	mux.HandleFunc(AlertsSyncPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			atomic.AddInt32(&alerts, 1)
		}
	})
	q := newTestQueue(t, mux)
	syncer := &Syncer{Queue: q, Alerts: &AlertsSync{Network: q.Network, Origin: q.Origin}}

	if _, err := q.Enqueue(context.Background(), "clip.mkv", "video/x-matroska", strings.NewReader("data"), nil); err != nil {
		t.Fatal(err)
	}
	if err := syncer.TriggerAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&alerts) != 1 {
		t.Fatalf("expected one alerts sync, got %d", alerts)
	}
	pending, _ := q.Pending()
	if len(pending) != 0 {
		t.Fatalf("uploads left after sync: %v", pending)
	}

	if err := syncer.Trigger(context.Background(), "sync-unknown"); !errors.Is(err, e.ErrUnknownSyncTag) {
		t.Fatalf("expected ErrUnknownSyncTag, got %v", err)
	}
}

func TestWatcherFiresOnReconnect(t *testing.T) {
	var healthy int32
	var fired int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&healthy) == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	origin, _ := url.Parse(server.URL)

	watcher := &Watcher{
		Network:    http.DefaultTransport,
		Origin:     origin,
		MaxBackoff: 50 * time.Millisecond,
		OnOnline:   func(ctx context.Context) { atomic.AddInt32(&fired, 1) },
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		atomic.StoreInt32(&healthy, 1)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := watcher.Check(ctx); err != nil {
		t.Fatal(err)
	}
	if !watcher.Online() || atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("expected online with one trigger, got online=%v fired=%d", watcher.Online(), fired)
	}

	// Staying online does not fire again
	if err := watcher.Check(ctx); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("trigger fired again while online: %d", fired)
	}
}

func TestDeliverStreamsLargePayload(t *testing.T) {
	var chunked int32
	server := &upstream{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength == -1 {
			atomic.StoreInt32(&chunked, 1)
		}
		server.ServeHTTP(w, r)
	})
	q := newTestQueue(t, handler)

	payload := strings.Repeat("0123456789abcdef", 256*1024)
	id, err := q.Enqueue(context.Background(), "long.mkv", "video/x-matroska", strings.NewReader(payload), map[string]string{"camera_id": "9"})
	if err != nil {
		t.Fatal(err)
	}
	if err = q.Deliver(context.Background(), s.PendingUpload{ID: id}); err != nil {
		t.Fatal(err)
	}

	if len(server.received) != 1 || server.received[0] != "long.mkv:"+payload {
		t.Fatal("payload not delivered intact")
	}
	if diff := cmp.Diff([]map[string]string{{"camera_id": "9"}}, server.fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if atomic.LoadInt32(&chunked) != 1 {
		t.Fatal("upload body was sent with a precomputed length")
	}
}

func TestDeliverAlreadyDelivered(t *testing.T) {
	server := &upstream{}
	q := newTestQueue(t, server)

	id, err := q.Enqueue(context.Background(), "clip.mp4", "video/mp4", strings.NewReader("data"), nil)
	if err != nil {
		t.Fatal(err)
	}
	listed, err := q.Pending()
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected one pending upload, got %d (%v)", len(listed), err)
	}

	if err = q.Deliver(context.Background(), listed[0]); err != nil {
		t.Fatal(err)
	}
	// A second drain still holding the old listing
	if err = q.Deliver(context.Background(), listed[0]); err != nil {
		t.Fatalf("expected no error for delivered record, got %v", err)
	}
	if len(server.received) != 1 {
		t.Fatalf("upload sent %d times", len(server.received))
	}
	if state, _ := q.State(id); state != s.UploadDelivered {
		t.Fatalf("expected delivered state, got %s", state)
	}
}

func TestDeliverKeepsNetworkCause(t *testing.T) {
	q := newTestQueue(t, &upstream{})
	q.Origin, _ = url.Parse("http://127.0.0.1:1")

	id, err := q.Enqueue(context.Background(), "clip.mp4", "video/mp4", strings.NewReader("data"), nil)
	if err != nil {
		t.Fatal(err)
	}
	err = q.Deliver(context.Background(), s.PendingUpload{ID: id})
	if !errors.Is(err, e.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("dial error lost from %v", err)
	}
}
