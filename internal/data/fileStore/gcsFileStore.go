package fileStore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
)

// GCSStore keeps document binaries as objects in a Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	logger *logger_i.Logger
}

// NewGCSStore uses application default credentials. The client is closed when
// ctx is done.
func NewGCSStore(ctx context.Context, bucket string, prefix string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	s := &GCSStore{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: prefix,
		logger: logger_i.NewLogger("GCSFileStore"),
	}
	go func() {
		<-ctx.Done()
		if err := client.Close(); err != nil {
			s.logger.Error("Error closing storage client", "error", err)
		}
	}()
	return s, nil
}

func (s *GCSStore) objectName(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *GCSStore) Save(ctx context.Context, name string, contentType string, r io.Reader) (documentModel.StoredFile, error) {
	key := newKey(name)
	writer := s.bucket.Object(s.objectName(key)).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = map[string]string{"original-name": name}

	size, err := io.Copy(writer, r)
	if err != nil {
		_ = writer.Close()
		return documentModel.StoredFile{}, fmt.Errorf("writing object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return documentModel.StoredFile{}, fmt.Errorf("closing object writer: %w", err)
	}
	s.logger.WithContext(ctx).Debug("Stored object", "key", key, "size", size)
	return documentModel.StoredFile{Key: key, Name: name, ContentType: contentType, Size: size}, nil
}

func (s *GCSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := s.bucket.Object(s.objectName(key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", documentModel.ErrFileNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("opening object: %w", err)
	}
	return reader, nil
}

// Delete treats an already missing object as deleted.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(s.objectName(key)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}
