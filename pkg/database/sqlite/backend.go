package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	gomigratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // initialises sqlite3
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

func NewSQLiteBackend(connectionString string) (*Backend, error) {
	db, err := sql.Open("sqlite3", connectionString)
	if err != nil {
		return &Backend{}, err
	}
	// Whole-row writes only, a single connection keeps sqlite away from SQLITE_BUSY
	db.SetMaxOpenConns(1)

	backend := Backend{
		db: db,
	}

	if err = backend.Migrate(); err != nil {
		return &Backend{}, err
	}

	return &backend, nil
}

func (b *Backend) Type() string { return "sqlite" }

func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) Migrate() error {
	driver, err := gomigratesqlite.WithInstance(b.db, &gomigratesqlite.Config{})
	if err != nil {
		return err
	}

	d, err := iofs.New(fs, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
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

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (b *Backend) CreatePartition(name string) error {
	if _, err := b.db.Exec(InsertPartition, name, now()); err != nil {
		return pkgerrors.Wrap(err, "insert partition")
	}
	return nil
}

func (b *Backend) SetPartitionReady(name string, ready bool) error {
	readyInt := 0
	if ready {
		readyInt = 1
	}
	result, err := b.db.Exec(SetPartitionReady, readyInt, name)
	if err != nil {
		return pkgerrors.Wrap(err, "update partition")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return e.ErrNotFound
	}
	return nil
}

func scanPartition(row scanner) (s.Partition, error) {
	var (
		p       s.Partition
		ready   int
		created string
	)
	if err := row.Scan(&p.Name, &ready, &created); err != nil {
		return s.Partition{}, err
	}
	p.Ready = ready == 1
	p.CreationTime = parseTime(created)
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
	var headers, stored string
	var err error
	if withKey {
		err = row.Scan(&entry.Key.Method, &entry.Key.URL, &entry.Status, &headers, &entry.StorageBackendType, &entry.StorageBackendPath, &entry.Size, &stored)
	} else {
		err = row.Scan(&entry.Status, &headers, &entry.StorageBackendType, &entry.StorageBackendPath, &entry.Size, &stored)
	}
	if err != nil {
		return err
	}
	entry.StoredAt = parseTime(stored)
	entry.Header, err = utils.UnmarshalHeader(headers)
	return err
}

func (b *Backend) listEntries(q interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}, partition string) ([]s.CacheEntry, error) {
	rows, err := q.Query(ListPartitionEntries, partition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]s.CacheEntry, 0)
	for rows.Next() {
		entry := s.CacheEntry{Partition: partition}
		if err2 := scanEntry(rows, &entry, true); err2 != nil {
			return nil, err2
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// DeletePartition removes the partition and all its entries, returning the removed entries so
// the caller can clean up the stored bodies.
func (b *Backend) DeletePartition(name string) ([]s.CacheEntry, error) {
	tx, err := b.db.Begin()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	entries, err := b.listEntries(tx, name)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list entries")
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

// PutEntry replaces the whole entry for the request key. If an entry was replaced it is returned
// along with true.
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
	err = scanEntry(tx.QueryRow(GetEntry, entry.Partition, entry.Key.Method, entry.Key.URL), &previous, false)
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
		entry.StorageBackendType, entry.StorageBackendPath, entry.Size, stored.Format(time.RFC3339Nano))
	if err != nil {
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

	result, err := b.db.Exec(InsertUpload, upload.Filename, upload.ContentType, metadata, upload.Size,
		upload.StorageBackendType, upload.StorageBackendPath, now())
	if err != nil {
		return -1, pkgerrors.Wrap(err, "insert upload")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return -1, err
	}
	log.Debug().Int64("upload_id", id).Msg("Added pending upload")

	return id, nil
}

func scanUpload(row scanner) (s.PendingUpload, error) {
	var (
		u                 s.PendingUpload
		metadata, created string
	)
	err := row.Scan(&u.ID, &u.Filename, &u.ContentType, &metadata, &u.Size, &u.StorageBackendType,
		&u.StorageBackendPath, &created, &u.Attempts, &u.LastError)
	if err != nil {
		return s.PendingUpload{}, err
	}
	u.CreatedAt = parseTime(created)
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
