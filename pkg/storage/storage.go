package storage

import (
	"errors"
	"io"

	s3 "github.com/terrycain/offline-cache-gateway/pkg/storage/aws-s3"
	"github.com/terrycain/offline-cache-gateway/pkg/storage/azureblob"
	"github.com/terrycain/offline-cache-gateway/pkg/storage/disk"
)

// Backend stores opaque blobs grouped by namespace. Cached response bodies use the partition name
// as namespace, pending upload payloads use UploadsNamespace.
type Backend interface {
	Setup() error
	Type() string
	Write(namespace string, r io.Reader) (string, int64, error)
	Read(namespace, path string) (io.ReadCloser, error)
	Delete(namespace, path string) error
}

const UploadsNamespace = "uploads"

func GetStorageBackend(backend, connectionString string) (Backend, error) {
	var b Backend
	var err error

	switch backend {
	case "disk":
		b, err = disk.New(connectionString)
	case "s3":
		b, err = s3.New(connectionString)
	case "azureblob":
		b, err = azureblob.New(connectionString)
	default:
		return nil, errors.New("invalid storage backend")
	}

	if err != nil {
		return nil, err
	}

	if err := b.Setup(); err != nil {
		return nil, err
	}

	return b, nil
}
