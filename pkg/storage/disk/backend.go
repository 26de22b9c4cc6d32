package disk

import (
	"errors"
	"io"
	"os"
	p "path"
	"strings"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
)

type Backend struct {
	BaseDir string
}

func New(connectionString string) (*Backend, error) {
	if _, err := os.Stat(connectionString); os.IsNotExist(err) {
		return nil, errors.New("path does not exist")
	}

	// Enable uuid rand pool for better performance
	uuid.EnableRandPool()

	backend := Backend{BaseDir: p.Clean(connectionString)}
	return &backend, nil
}

func (b *Backend) Setup() error {
	return nil
}

func (b *Backend) Type() string {
	return "disk"
}

// filePath joins the namespace and path under BaseDir, refusing anything that escapes it.
func (b *Backend) filePath(namespace, path string) (string, error) {
	filePath := p.Clean(p.Join(b.BaseDir, namespace, path))
	if !strings.HasPrefix(filePath, b.BaseDir+"/") {
		return "", e.ErrNotFound
	}
	return filePath, nil
}

func (b *Backend) Write(namespace string, r io.Reader) (string, int64, error) {
	dir, err := b.filePath(namespace, "")
	if err != nil {
		return "", 0, err
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, pkgerrors.Wrap(err, "mkdir")
	}

	blobFile := uuid.New().String()
	filePath := p.Join(dir, blobFile)

	fp, err := os.OpenFile(filePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, err
	}

	writtenBytes, err := io.Copy(fp, r)
	_ = fp.Close()

	if err != nil {
		_ = os.Remove(filePath)
		return "", 0, err
	}

	return blobFile, writtenBytes, nil
}

func (b *Backend) Read(namespace, path string) (io.ReadCloser, error) {
	filePath, err := b.filePath(namespace, path)
	if err != nil {
		return nil, err
	}

	fp, err := os.Open(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, e.ErrNotFound
	}
	return fp, err
}

func (b *Backend) Delete(namespace, path string) error {
	filePath, err := b.filePath(namespace, path)
	if err != nil {
		return err
	}
	if err = os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
