package database

import (
	"errors"

	"github.com/terrycain/offline-cache-gateway/pkg/database/postgres"
	"github.com/terrycain/offline-cache-gateway/pkg/database/sqlite"
	"github.com/terrycain/offline-cache-gateway/pkg/s"
)

// Backend stores partition and entry metadata plus the pending upload records. Response bodies
// and upload payloads live in the storage backend.
type Backend interface {
	Type() string

	CreatePartition(name string) error
	SetPartitionReady(name string, ready bool) error
	GetPartition(name string) (s.Partition, error)
	ListPartitions() ([]s.Partition, error)
	DeletePartition(name string) ([]s.CacheEntry, error)

	GetEntry(partition string, key s.RequestKey) (s.CacheEntry, error)
	PutEntry(entry s.CacheEntry) (s.CacheEntry, bool, error)

	AddUpload(upload s.PendingUpload) (int64, error)
	ListUploads() ([]s.PendingUpload, error)
	GetUpload(id int64) (s.PendingUpload, error)
	MarkUploadAttempt(id int64, lastError string) error
	DeleteUpload(id int64) error
}

func GetBackend(backend, connectionString string) (Backend, error) {
	switch backend {
	case "sqlite":
		return sqlite.NewSQLiteBackend(connectionString)
	case "postgres":
		return postgres.NewPostgresBackend(connectionString)
	default:
		return nil, errors.New("invalid database backend")
	}
}
