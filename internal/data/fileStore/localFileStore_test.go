package fileStore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)

	stored, err := s.Save(ctx, "KTP Front.JPG", "image/jpeg", strings.NewReader("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("image-bytes")), stored.Size)
	assert.Equal(t, ".jpg", filepath.Ext(stored.Key))
	assert.Equal(t, "KTP Front.JPG", stored.Name)

	r, err := s.Open(ctx, stored.Key)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "image-bytes", string(data))

	require.NoError(t, s.Delete(ctx, stored.Key))
	_, err = s.Open(ctx, stored.Key)
	assert.ErrorIs(t, err, documentModel.ErrFileNotFound)
}

func TestLocalStore_DeleteMissingIsNotAnError(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, s.Delete(context.Background(), "already-gone.pdf"))
}

func TestLocalStore_RejectsPathKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../etc/passwd", "a/b", ".hidden"} {
		_, err := s.Open(context.Background(), key)
		assert.Error(t, err, key)
		assert.Error(t, s.Delete(context.Background(), key), key)
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("connection reset") }

func TestLocalStore_FailedSaveLeavesNoFile(t *testing.T) {
	ctx := context.Background()

	t.Run("write error", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewLocalStore(dir)
		require.NoError(t, err)

		_, err = s.Save(ctx, "scan.pdf", "application/pdf", io.MultiReader(strings.NewReader("partial"), failingReader{}))
		assert.ErrorContains(t, err, "writing file")
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("close error", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewLocalStore(dir)
		require.NoError(t, err)

		original := closeFile
		t.Cleanup(func() { closeFile = original })
		closeFile = func(f *os.File) error {
			_ = f.Close()
			return errors.New("no space left on device")
		}

		_, err = s.Save(ctx, "scan.pdf", "application/pdf", strings.NewReader("image-bytes"))
		assert.ErrorContains(t, err, "no space left on device")
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
