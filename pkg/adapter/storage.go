package adapter

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// Storage reads event snapshots from object storage
type Storage interface {
	// Get opens the object for reading
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Close() error
}

// storageClient implements Storage interface using Cloud Storage
type storageClient struct {
	client *storage.Client
}

// NewStorage creates a new Cloud Storage client
func NewStorage(ctx context.Context) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageClient{client: client}, nil
}

func (s *storageClient) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	reader, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.V("bucket", bucket), goerr.V("key", key))
	}

	return reader, nil
}

func (s *storageClient) Close() error {
	if err := s.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage client")
	}
	return nil
}

// ParseObjectURL splits gs://bucket/key. ok is false for anything else.
func ParseObjectURL(url string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(url, "gs://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
