package fileStore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"github.com/google/uuid"
)

var closeFile = func(f *os.File) error { return f.Close() }

// LocalStore keeps document binaries in one directory, named by a generated key
// that preserves the original extension.
type LocalStore struct {
	dir    string
	logger *logger_i.Logger
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating file store directory: %w", err)
	}
	return &LocalStore{dir: dir, logger: logger_i.NewLogger("LocalFileStore")}, nil
}

func (s *LocalStore) Save(ctx context.Context, name string, contentType string, r io.Reader) (documentModel.StoredFile, error) {
	key := newKey(name)
	path := filepath.Join(s.dir, key)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return documentModel.StoredFile{}, fmt.Errorf("creating file: %w", err)
	}
	size, err := io.Copy(f, r)
	if err != nil {
		_ = closeFile(f)
		_ = os.Remove(path)
		return documentModel.StoredFile{}, fmt.Errorf("writing file: %w", err)
	}
	// a failed flush only shows up on close
	if err := closeFile(f); err != nil {
		_ = os.Remove(path)
		return documentModel.StoredFile{}, fmt.Errorf("closing file: %w", err)
	}
	s.logger.WithContext(ctx).Debug("Stored file", "key", key, "size", size)

	return documentModel.StoredFile{Key: key, Name: name, ContentType: contentType, Size: size}, nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", documentModel.ErrFileNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return f, nil
}

// Delete treats an already missing file as deleted.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}
	s.logger.WithContext(ctx).Debug("Deleted file", "key", key)
	return nil
}

func (s *LocalStore) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid file key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

func newKey(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return uuid.New().String() + ext
}
