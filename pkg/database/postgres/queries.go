package postgres

const (
	InsertPartition   = `INSERT INTO partitions ("name", "ready", "created_date") VALUES ($1, FALSE, $2) ON CONFLICT ("name") DO NOTHING;`
	SetPartitionReady = `UPDATE partitions SET ready = $1 WHERE name = $2;`
	GetPartition      = `SELECT name, ready, created_date FROM partitions WHERE name = $1;`
	ListPartitions    = `SELECT name, ready, created_date FROM partitions ORDER BY created_date ASC, name ASC;`
	DeletePartition   = `DELETE FROM partitions WHERE name = $1;`

	GetEntry = `SELECT status, headers, storage_backend, storage_path, size, stored_date
FROM entries
WHERE partition = $1 AND method = $2 AND url = $3;`
	GetEntryForUpdate = `SELECT status, headers, storage_backend, storage_path, size, stored_date
FROM entries
WHERE partition = $1 AND method = $2 AND url = $3
FOR UPDATE;`
	ListPartitionEntries = `SELECT method, url, status, headers, storage_backend, storage_path, size, stored_date
FROM entries
WHERE partition = $1;`
	UpsertEntry = `INSERT INTO entries ("partition", "method", "url", "status", "headers", "storage_backend", "storage_path", "size", "stored_date")
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT ("partition", "method", "url") DO UPDATE SET
  status = EXCLUDED.status,
  headers = EXCLUDED.headers,
  storage_backend = EXCLUDED.storage_backend,
  storage_path = EXCLUDED.storage_path,
  size = EXCLUDED.size,
  stored_date = EXCLUDED.stored_date;`
	DeletePartitionEntries = `DELETE FROM entries WHERE partition = $1;`

	InsertUpload = `INSERT INTO uploads ("filename", "content_type", "metadata", "size", "storage_backend", "storage_path", "created_date")
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING "id";`
	ListUploads = `SELECT id, filename, content_type, metadata, size, storage_backend, storage_path, created_date, attempts, last_error
FROM uploads
ORDER BY id ASC;`
	GetUpload = `SELECT id, filename, content_type, metadata, size, storage_backend, storage_path, created_date, attempts, last_error
FROM uploads
WHERE id = $1;`
	MarkUploadAttempt = `UPDATE uploads SET attempts = attempts + 1, last_error = $1 WHERE id = $2;`
	DeleteUpload      = `DELETE FROM uploads WHERE id = $1;`
)
