package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	gomigratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	_ "github.com/lib/pq" // initialises postgres
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/s"
	"github.com/terrycain/offline-cache-gateway/pkg/utils"
)

//go:embed migrations/*.sql
var fs embed.FS

type Backend struct {
	db *sql.DB
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func NewPostgresBackend(connectionString string) (*Backend, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return &Backend{}, err
	}

	backend := Backend{
		db: db,
	}

	if err = backend.Migrate(); err != nil {
		return &Backend{}, err
	}

	return &backend, nil
}

func (b *Backend) Type() string { return "postgres" }

func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) Migrate() error {
	driver, err := gomigratepostgres.WithInstance(b.db, &gomigratepostgres.Config{})
	if err != nil {
		return err
	}

	d, err := iofs.New(fs, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", d, "postgres", driver)
	if err != nil {
		return err
	}

	log.Info().Msg("Starting database migrations")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Info().Msg("Finished database migrations")

	return nil
}

func (b *Backend) CreatePartition(name string) error {
	if _, err := b.db.Exec(InsertPartition, name, time.Now().UTC()); err != nil {
		return pkgerrors.Wrap(err, "insert partition")
	}
	return nil
}

func (b *Backend) SetPartitionReady(name string, ready bool) error {
	result, err := b.db.Exec(SetPartitionReady, ready, name)
	if err != nil {
		return pkgerrors.Wrap(err, "update partition")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return e.ErrNotFound
	}
	return nil
}

func scanPartition(row scanner) (s.Partition, error) {
	p := s.Partition{}
	if err := row.Scan(&p.Name, &p.Ready, &p.CreationTime); err != nil {
		return s.Partition{}, err
	}
	return p, nil
}

func (b *Backend) GetPartition(name string) (s.Partition, error) {
	p, err := scanPartition(b.db.QueryRow(GetPartition, name))
	if errors.Is(err, sql.ErrNoRows) {
		return s.Partition{}, e.ErrNotFound
	}
	return p, err
}

func (b *Backend) ListPartitions() ([]s.Partition, error) {
	rows, err := b.db.Query(ListPartitions)
	if err != nil {
		return []s.Partition{}, pkgerrors.Wrap(err, "list partitions")
	}
	defer rows.Close()

	result := make([]s.Partition, 0)
	for rows.Next() {
		p, err2 := scanPartition(rows)
		if err2 != nil {
			return []s.Partition{}, err2
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return []s.Partition{}, err
	}

	return result, nil
}

func scanEntry(row scanner, entry *s.CacheEntry, withKey bool) error {
	var headers string
	var err error
	if withKey {
		err = row.Scan(&entry.Key.Method, &entry.Key.URL, &entry.Status, &headers, &entry.StorageBackendType, &entry.StorageBackendPath, &entry.Size, &entry.StoredAt)
	} else {
		err = row.Scan(&entry.Status, &headers, &entry.StorageBackendType, &entry.StorageBackendPath, &entry.Size, &entry.StoredAt)
	}
	if err != nil {
		return err
	}
	entry.Header, err = utils.UnmarshalHeader(headers)
	return err
}

func (b *Backend) DeletePartition(name string) ([]s.CacheEntry, error) {
	tx, err := b.db.Begin()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(ListPartitionEntries, name)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list entries")
	}
	entries := make([]s.CacheEntry, 0)
	for rows.Next() {
		entry := s.CacheEntry{Partition: name}
		if err2 := scanEntry(rows, &entry, true); err2 != nil {
			_ = rows.Close()
			return nil, err2
		}
		entries = append(entries, entry)
	}
	_ = rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if _, err = tx.Exec(DeletePartitionEntries, name); err != nil {
		return nil, pkgerrors.Wrap(err, "delete entries")
	}
	if _, err = tx.Exec(DeletePartition, name); err != nil {
		return nil, pkgerrors.Wrap(err, "delete partition")
	}

	if err = tx.Commit(); err != nil {
		return nil, pkgerrors.Wrap(err, "commit")
	}
	log.Debug().Str("partition", name).Int("entries", len(entries)).Msg("Deleted partition")

	return entries, nil
}

func (b *Backend) GetEntry(partition string, key s.RequestKey) (s.CacheEntry, error) {
	entry := s.CacheEntry{Partition: partition, Key: key}
	err := scanEntry(b.db.QueryRow(GetEntry, partition, key.Method, key.URL), &entry, false)
	if errors.Is(err, sql.ErrNoRows) {
		return s.CacheEntry{}, e.ErrNotFound
	} else if err != nil {
		return s.CacheEntry{}, err
	}
	return entry, nil
}

func (b *Backend) PutEntry(entry s.CacheEntry) (s.CacheEntry, bool, error) {
	headers, err := utils.MarshalHeader(entry.Header)
	if err != nil {
		return s.CacheEntry{}, false, err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return s.CacheEntry{}, false, pkgerrors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	previous := s.CacheEntry{Partition: entry.Partition, Key: entry.Key}
	replaced := true
	err = scanEntry(tx.QueryRow(GetEntryForUpdate, entry.Partition, entry.Key.Method, entry.Key.URL), &previous, false)
	if errors.Is(err, sql.ErrNoRows) {
		replaced = false
	} else if err != nil {
		return s.CacheEntry{}, false, pkgerrors.Wrap(err, "get previous entry")
	}

	stored := entry.StoredAt
	if stored.IsZero() {
		stored = time.Now().UTC()
	}
	_, err = tx.Exec(UpsertEntry, entry.Partition, entry.Key.Method, entry.Key.URL, entry.Status, headers,
		entry.StorageBackendType, entry.StorageBackendPath, entry.Size, stored)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			log.Warn().Str("code", string(pqErr.Code)).Str("partition", entry.Partition).Msg("Entry upsert rejected")
		}
		return s.CacheEntry{}, false, pkgerrors.Wrap(err, "upsert entry")
	}

	if err = tx.Commit(); err != nil {
		return s.CacheEntry{}, false, pkgerrors.Wrap(err, "commit")
	}

	if !replaced {
		return s.CacheEntry{}, false, nil
	}
	return previous, true, nil
}

func (b *Backend) AddUpload(upload s.PendingUpload) (int64, error) {
	metadata, err := utils.MarshalMetadata(upload.Metadata)
	if err != nil {
		return -1, err
	}

	var id int64
	err = b.db.QueryRow(InsertUpload, upload.Filename, upload.ContentType, metadata, upload.Size,
		upload.StorageBackendType, upload.StorageBackendPath, time.Now().UTC()).Scan(&id)
	if err != nil {
		return -1, pkgerrors.Wrap(err, "insert upload")
	}
	log.Debug().Int64("upload_id", id).Msg("Added pending upload")

	return id, nil
}

func scanUpload(row scanner) (s.PendingUpload, error) {
	var (
		u        s.PendingUpload
		metadata string
	)
	err := row.Scan(&u.ID, &u.Filename, &u.ContentType, &metadata, &u.Size, &u.StorageBackendType,
		&u.StorageBackendPath, &u.CreatedAt, &u.Attempts, &u.LastError)
	if err != nil {
		return s.PendingUpload{}, err
	}
	u.Metadata, err = utils.UnmarshalMetadata(metadata)
	return u, err
}

func (b *Backend) ListUploads() ([]s.PendingUpload, error) {
	rows, err := b.db.Query(ListUploads)
	if err != nil {
		return []s.PendingUpload{}, pkgerrors.Wrap(err, "list uploads")
	}
	defer rows.Close()

	result := make([]s.PendingUpload, 0)
	for rows.Next() {
		u, err2 := scanUpload(rows)
		if err2 != nil {
			return []s.PendingUpload{}, err2
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return []s.PendingUpload{}, err
	}

	return result, nil
}

func (b *Backend) GetUpload(id int64) (s.PendingUpload, error) {
	u, err := scanUpload(b.db.QueryRow(GetUpload, id))
	if errors.Is(err, sql.ErrNoRows) {
		return s.PendingUpload{}, e.ErrNotFound
	}
	return u, err
}

func (b *Backend) MarkUploadAttempt(id int64, lastError string) error {
	result, err := b.db.Exec(MarkUploadAttempt, lastError, id)
	if err != nil {
		return pkgerrors.Wrap(err, "mark upload attempt")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (b *Backend) DeleteUpload(id int64) error {
	result, err := b.db.Exec(DeleteUpload, id)
	if err != nil {
		return pkgerrors.Wrap(err, "delete upload")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return e.ErrNotFound
	}
	return nil
}
