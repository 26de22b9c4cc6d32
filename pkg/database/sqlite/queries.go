package sqlite

const (
	InsertPartition   = `INSERT INTO partitions ("name", "ready", "created_date") VALUES (?, 0, ?) ON CONFLICT("name") DO NOTHING;`
	SetPartitionReady = `UPDATE partitions SET ready = ? WHERE name = ?;`
	GetPartition      = `SELECT name, ready, created_date FROM partitions WHERE name = ?;`
	ListPartitions    = `SELECT name, ready, created_date FROM partitions ORDER BY created_date ASC, name ASC;`
	DeletePartition   = `DELETE FROM partitions WHERE name = ?;`

	GetEntry = `SELECT status, headers, storage_backend, storage_path, size, stored_date
FROM entries
WHERE partition = ? AND method = ? AND url = ?;`
	ListPartitionEntries = `SELECT method, url, status, headers, storage_backend, storage_path, size, stored_date
FROM entries
WHERE partition = ?;`
	UpsertEntry = `INSERT INTO entries ("partition", "method", "url", "status", "headers", "storage_backend", "storage_path", "size", "stored_date")
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT("partition", "method", "url") DO UPDATE SET
  status = excluded.status,
  headers = excluded.headers,
  storage_backend = excluded.storage_backend,
  storage_path = excluded.storage_path,
  size = excluded.size,
  stored_date = excluded.stored_date;`
	DeletePartitionEntries = `DELETE FROM entries WHERE partition = ?;`

	InsertUpload = `INSERT INTO uploads ("filename", "content_type", "metadata", "size", "storage_backend", "storage_path", "created_date")
VALUES (?, ?, ?, ?, ?, ?, ?);`
	ListUploads = `SELECT id, filename, content_type, metadata, size, storage_backend, storage_path, created_date, attempts, last_error
FROM uploads
ORDER BY id ASC;`
	GetUpload = `SELECT id, filename, content_type, metadata, size, storage_backend, storage_path, created_date, attempts, last_error
FROM uploads
WHERE id = ?;`
	MarkUploadAttempt = `UPDATE uploads SET attempts = attempts + 1, last_error = ? WHERE id = ?;`
	DeleteUpload      = `DELETE FROM uploads WHERE id = ?;`
)
