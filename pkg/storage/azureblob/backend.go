package azureblob

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	p "path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

type Backend struct {
	Client    azblob.ContainerClient
	container string
}

func ParsePartsFromConnectionString(connStr string) (string, string, string, bool) {
	container := ""
	account := ""
	key := ""

	parts := strings.Split(connStr, ";")
	for _, part := range parts {
		subParts := strings.SplitN(part, "=", 2)
		if len(subParts) < 2 {
			continue
		}

		switch subParts[0] {
		case "Container":
			container = subParts[1]
		case "AccountName":
			account = subParts[1]
		case "AccountKey":
			key = subParts[1]
		}
	}

	if container == "" || account == "" || key == "" {
		return "", "", "", false
	}

	return account, key, container, true
}

func New(connectionString string) (*Backend, error) {
	_, _, container, found := ParsePartsFromConnectionString(connectionString)
	if !found {
		return &Backend{}, errors.New("container, account name or account key missing from connection string")
	}

	client, err := azblob.NewContainerClientFromConnectionString(connectionString, container, &azblob.ClientOptions{})
	if err != nil {
		return &Backend{}, err
	}

	// Enable uuid rand pool for better performance
	uuid.EnableRandPool()

	backend := Backend{
		container: container,
		Client:    client,
	}
	return &backend, nil
}

func (b *Backend) Setup() error {
	return nil
}

func (b *Backend) Type() string {
	return "azureblob"
}

// Write stages the body as a single block and commits it. StageBlock wants a seekable body so the
// reader is spooled to a temp file first.
func (b *Backend) Write(namespace string, r io.Reader) (string, int64, error) {
	blobFile := uuid.New().String()
	blobClient := b.Client.NewBlockBlobClient(p.Join(namespace, blobFile))

	f, err := os.CreateTemp(os.TempDir(), "blob-*")
	if err != nil {
		return "", 0, err
	}
	defer func() {
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
	}()

	if _, err = f.ReadFrom(r); err != nil {
		return "", 0, err
	}

	count, _ := f.Seek(0, io.SeekEnd)
	_, _ = f.Seek(0, io.SeekStart)

	blockID := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%060d", 0)))
	if _, err = blobClient.StageBlock(context.Background(), blockID, f, &azblob.StageBlockOptions{}); err != nil {
		return "", 0, pkgerrors.Wrap(err, "stage block")
	}

	_, err = blobClient.CommitBlockList(context.Background(), []string{blockID}, &azblob.CommitBlockListOptions{
		Metadata: map[string]string{
			"ownedBy":   "offline-cache-gateway",
			"namespace": namespace,
		},
	})
	if err != nil {
		_, _ = blobClient.Delete(context.Background(), &azblob.DeleteBlobOptions{})
		return "", 0, pkgerrors.Wrap(err, "commit block list")
	}

	return blobFile, count, nil
}

func (b *Backend) Read(namespace, path string) (io.ReadCloser, error) {
	blobClient := b.Client.NewBlockBlobClient(p.Join(namespace, path))
	resp, err := blobClient.Download(context.Background(), &azblob.DownloadBlobOptions{})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "download blob")
	}
	return resp.Body(azblob.RetryReaderOptions{}), nil
}

func (b *Backend) Delete(namespace, path string) error {
	blobClient := b.Client.NewBlockBlobClient(p.Join(namespace, path))
	_, err := blobClient.Delete(context.Background(), &azblob.DeleteBlobOptions{})
	return err
}
