package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/database"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/s"
	"github.com/terrycain/offline-cache-gateway/pkg/storage"
)

// DefaultMaxEntrySize bounds how much of a response body is buffered for caching. Larger bodies
// are passed through uncached.
const DefaultMaxEntrySize = 32 * 1024 * 1024

var (
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
)

// Store is the partitioned response store. Entry metadata goes to the database backend, bodies go
// zstd compressed to the storage backend under the partition name.
type Store struct {
	Database     database.Backend
	Storage      storage.Backend
	MaxEntrySize int64
}

func NewStore(db database.Backend, st storage.Backend) *Store {
	return &Store{Database: db, Storage: st, MaxEntrySize: DefaultMaxEntrySize}
}

func RequestKey(req *http.Request) s.RequestKey {
	u := *req.URL
	u.Fragment = ""
	return s.RequestKey{Method: req.Method, URL: u.String()}
}

// Open creates the partition if it does not exist yet.
func (st *Store) Open(partition string) error {
	return st.Database.CreatePartition(partition)
}

// Match returns the stored response for req, or e.ErrNotFound.
func (st *Store) Match(partition string, req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return nil, e.ErrNotFound
	}

	entry, err := st.Database.GetEntry(partition, RequestKey(req))
	if err != nil {
		return nil, err
	}
	if entry.StorageBackendType != st.Storage.Type() {
		// Stored by a different storage backend, the path is meaningless here
		return nil, e.ErrNotFound
	}

	r, err := st.Storage.Read(partition, entry.StorageBackendPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "read body")
	}
	body, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "decompress body")
	}

	resp := NewResponse(req, entry.Status, entry.Header.Clone(), body)
	resp.Header.Set("Date", entry.StoredAt.UTC().Format(http.TimeFormat))
	return resp, nil
}

// Put stores a copy of resp under req, replacing any previous entry as a whole. The returned
// response must be used in place of resp as the original body has been consumed.
func (st *Store) Put(partition string, req *http.Request, resp *http.Response) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return resp, e.ErrNotCacheable
	}

	limit := st.MaxEntrySize
	if limit <= 0 {
		limit = DefaultMaxEntrySize
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		_ = resp.Body.Close()
		return nil, pkgerrors.Wrap(err, "read response body")
	}
	if int64(len(body)) > limit {
		// Too big to cache, hand back what was read plus the rest of the stream
		resp.Body = readCloser{io.MultiReader(bytes.NewReader(body), resp.Body), resp.Body}
		return resp, e.ErrNotCacheable
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	if err = st.Open(partition); err != nil {
		return resp, err
	}

	compressed := encoder.EncodeAll(body, make([]byte, 0, len(body)/2))
	path, _, err := st.Storage.Write(partition, bytes.NewReader(compressed))
	if err != nil {
		return resp, pkgerrors.Wrap(err, "write body")
	}

	entry := s.CacheEntry{
		Partition:          partition,
		Key:                RequestKey(req),
		Status:             resp.StatusCode,
		Header:             resp.Header.Clone(),
		StoredAt:           time.Now().UTC(),
		StorageBackendType: st.Storage.Type(),
		StorageBackendPath: path,
		Size:               int64(len(body)),
	}
	previous, replaced, err := st.Database.PutEntry(entry)
	if err != nil {
		_ = st.Storage.Delete(partition, path) // Attempt to clean up blob as we've failed to save it to db
		return resp, err
	}

	if replaced && previous.StorageBackendType == st.Storage.Type() {
		if err = st.Storage.Delete(partition, previous.StorageBackendPath); err != nil {
			log.Warn().Err(err).Str("partition", partition).Str("path", previous.StorageBackendPath).Msg("Failed to delete replaced body")
		}
	}

	return resp, nil
}

// DeletePartition removes the partition, its entries and every stored body.
func (st *Store) DeletePartition(partition string) error {
	entries, err := st.Database.DeletePartition(partition)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.StorageBackendType != st.Storage.Type() {
			continue
		}
		if err = st.Storage.Delete(partition, entry.StorageBackendPath); err != nil {
			log.Warn().Err(err).Str("partition", partition).Str("path", entry.StorageBackendPath).Msg("Failed to delete body")
		}
	}
	return nil
}

func (st *Store) Partitions() ([]s.Partition, error) {
	return st.Database.ListPartitions()
}

// NewResponse builds an in-memory response for req.
func NewResponse(req *http.Request, status int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}
