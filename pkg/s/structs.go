package s

import (
	"net/http"
	"time"
)

type Partition struct {
	Name         string    `json:"name"`
	Ready        bool      `json:"ready"`
	CreationTime time.Time `json:"creationTime"`
}

// RequestKey is the cache identity of a request, method + absolute URL.
type RequestKey struct {
	Method string
	URL    string
}

func (k RequestKey) String() string {
	return k.Method + " " + k.URL
}

type CacheEntry struct {
	Partition string
	Key       RequestKey
	Status    int
	Header    http.Header
	StoredAt  time.Time

	// Used to locate the body in the storage backend
	StorageBackendType string
	StorageBackendPath string
	Size               int64
}

type PendingUpload struct {
	ID          int64             `json:"id"`
	Filename    string            `json:"filename"`
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"createdAt"`
	Attempts    int               `json:"attempts"`
	LastError   string            `json:"lastError,omitempty"`

	StorageBackendType string `json:"-"`
	StorageBackendPath string `json:"-"`
}

type UploadState string

const (
	UploadPending   UploadState = "pending"
	UploadInFlight  UploadState = "in_flight"
	UploadDelivered UploadState = "delivered"
)
