package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/DocScanAPI/internal/data/fileStore"
	"github.com/akolanti/DocScanAPI/internal/data/redisStore"
	"github.com/akolanti/DocScanAPI/internal/data/store"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock advances one second on every read.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	gateway *Gateway
	docs    documentModel.DocumentStore
	files   *fileStore.LocalStore
	dir     string
	history *store.InMemoryHistoryStore
}

func newFixture(t *testing.T, docs documentModel.DocumentStore) *fixture {
	t.Helper()
	dir := t.TempDir()
	files, err := fileStore.NewLocalStore(dir)
	require.NoError(t, err)
	history := store.InitInMemoryHistoryStore()
	clock := &stepClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return &fixture{
		gateway: New(Config{Documents: docs, History: history, Files: files, Retention: 10, Clock: clock.Now}),
		docs:    docs,
		files:   files,
		dir:     dir,
		history: history,
	}
}

func newRedisDocs(t *testing.T) documentModel.DocumentStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.TestDocumentStore(redisStore.NewTestStore(client))
}

func upload(name string) Upsert {
	confidence := 0.9
	return Upsert{
		UserId: "user-1",
		Result: documentModel.ExtractionResult{
			DocumentType:    "KTP",
			Content:         `{"nik":"3171"}`,
			ConfidenceScore: &confidence,
		},
		Files: []commonModels.UploadedFile{{Name: name, ContentType: "image/jpeg", Data: []byte("bytes of " + name)}},
	}
}

func TestCreate_NormalizesContentAndStoresFiles(t *testing.T) {
	f := newFixture(t, store.InitInMemoryDocumentStore())
	ctx := context.Background()

	req := upload("front.jpg")
	req.Files = append(req.Files, commonModels.UploadedFile{Name: "back.jpg", ContentType: "image/jpeg", Data: []byte("back")})
	doc, err := f.gateway.CreateOrUpdate(ctx, req)
	require.NoError(t, err)

	assert.NotEmpty(t, doc.Id)
	assert.False(t, doc.Saved)
	assert.Equal(t, "front.jpg", doc.FileName)
	assert.Equal(t, map[string]any{"nik": "3171"}, doc.Content)
	assert.Equal(t, "image/jpeg", doc.ContentType)
	require.Len(t, doc.AdditionalFiles, 1)

	r, stored, err := f.gateway.OpenFile(ctx, doc.Id)
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	_ = r.Close()
	assert.Equal(t, "bytes of front.jpg", string(data))
	assert.Equal(t, doc.Id, stored.Id)

	history, err := f.gateway.History(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, AttemptUpload, history[0].Kind)
}

func TestCreate_RetentionKeepsTenNewest(t *testing.T) {
	for name, docs := range map[string]func(t *testing.T) documentModel.DocumentStore{
		"in memory": func(t *testing.T) documentModel.DocumentStore { return store.InitInMemoryDocumentStore() },
		"redis":     newRedisDocs,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, docs(t))
			ctx := context.Background()

			var created []documentModel.Document
			for i := 0; i < 11; i++ {
				doc, err := f.gateway.CreateOrUpdate(ctx, upload(fmt.Sprintf("scan-%02d.jpg", i)))
				require.NoError(t, err)
				created = append(created, doc)
			}

			recent, err := f.gateway.ListRecentUnsaved(ctx, "user-1", 0)
			require.NoError(t, err)
			require.Len(t, recent, 10)
			assert.Equal(t, created[10].Id, recent[0].Id)
			for _, d := range recent {
				assert.NotEqual(t, created[0].Id, d.Id)
			}

			_, err = f.gateway.Get(ctx, created[0].Id)
			assert.ErrorIs(t, err, appErrors.ErrNotFound)
			_, err = f.files.Open(ctx, created[0].FilePath)
			assert.ErrorIs(t, err, documentModel.ErrFileNotFound)
		})
	}
}

type inUseSet map[string]bool

func (s inUseSet) InUse(documentId string) bool { return s[documentId] }

func TestRetention_SkipsDocumentsInUse(t *testing.T) {
	f := newFixture(t, store.InitInMemoryDocumentStore())
	ctx := context.Background()

	oldest, err := f.gateway.CreateOrUpdate(ctx, upload("scan-00.jpg"))
	require.NoError(t, err)
	inUse := inUseSet{oldest.Id: true}
	f.gateway.KeepInUse(inUse)

	for i := 1; i < 11; i++ {
		_, err := f.gateway.CreateOrUpdate(ctx, upload(fmt.Sprintf("scan-%02d.jpg", i)))
		require.NoError(t, err)
	}
	_, err = f.gateway.Get(ctx, oldest.Id)
	require.NoError(t, err, "a document in use is not evicted")
	recent, err := f.gateway.ListRecentUnsaved(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, recent, 10)

	delete(inUse, oldest.Id)
	_, err = f.gateway.CreateOrUpdate(ctx, upload("scan-11.jpg"))
	require.NoError(t, err)
	_, err = f.gateway.Get(ctx, oldest.Id)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRetention_IgnoresSavedAndOtherUsers(t *testing.T) {
	f := newFixture(t, store.InitInMemoryDocumentStore())
	ctx := context.Background()

	first, err := f.gateway.CreateOrUpdate(ctx, upload("keep.jpg"))
	require.NoError(t, err)
	_, err = f.gateway.CommitAsSaved(ctx, first.Id, nil, "")
	require.NoError(t, err)

	other := upload("other.jpg")
	other.UserId = "user-2"
	otherDoc, err := f.gateway.CreateOrUpdate(ctx, other)
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		_, err := f.gateway.CreateOrUpdate(ctx, upload(fmt.Sprintf("scan-%02d.jpg", i)))
		require.NoError(t, err)
	}

	_, err = f.gateway.Get(ctx, first.Id)
	assert.NoError(t, err)
	_, err = f.gateway.Get(ctx, otherDoc.Id)
	assert.NoError(t, err)
}

func TestUpdate_KeepsIdAndBumpsScannedAt(t *testing.T) {
	f := newFixture(t, newRedisDocs(t))
	ctx := context.Background()

	original, err := f.gateway.CreateOrUpdate(ctx, upload("ktp.jpg"))
	require.NoError(t, err)

	rescanned, err := f.gateway.CreateOrUpdate(ctx, Upsert{
		UserId:     "user-1",
		ExistingId: original.Id,
		Result:     documentModel.ExtractionResult{DocumentType: "KTP", Content: map[string]any{"nik": "9999"}},
	})
	require.NoError(t, err)

	assert.Equal(t, original.Id, rescanned.Id)
	assert.True(t, rescanned.ScannedAt.After(original.ScannedAt))
	assert.Equal(t, original.FilePath, rescanned.FilePath)
	assert.Equal(t, "ktp.jpg", rescanned.FileName)

	stored, err := f.gateway.Get(ctx, original.Id)
	require.NoError(t, err)
	assert.Equal(t, "9999", stored.Content["nik"])

	recent, err := f.gateway.ListRecentUnsaved(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestUpdate_MissingDocument(t *testing.T) {
	f := newFixture(t, store.InitInMemoryDocumentStore())
	_, err := f.gateway.CreateOrUpdate(context.Background(), Upsert{ExistingId: "nope"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCommitAsSaved_Idempotent(t *testing.T) {
	f := newFixture(t, newRedisDocs(t))
	ctx := context.Background()

	doc, err := f.gateway.CreateOrUpdate(ctx, upload("ktp.jpg"))
	require.NoError(t, err)

	edited := map[string]any{"nik": "3171", "nama": "BUDI"}
	first, err := f.gateway.CommitAsSaved(ctx, doc.Id, edited, "KTP Budi")
	require.NoError(t, err)
	second, err := f.gateway.CommitAsSaved(ctx, doc.Id, edited, "KTP Budi")
	require.NoError(t, err)

	assert.True(t, first.Saved)
	assert.True(t, second.Saved)
	assert.Equal(t, first.Id, second.Id)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, "KTP Budi", second.FileName)

	saved, err := f.gateway.ListSaved(ctx, "user-1", documentModel.SavedFilter{}, documentModel.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Total)
	recent, err := f.gateway.ListRecentUnsaved(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestSaveAsNew_CopiesFiles(t *testing.T) {
	f := newFixture(t, store.InitInMemoryDocumentStore())
	ctx := context.Background()

	source, err := f.gateway.CreateOrUpdate(ctx, upload("ktp.jpg"))
	require.NoError(t, err)

	copyDoc, err := f.gateway.SaveAsNew(ctx, source.Id, map[string]any{"nik": "1"}, "copy")
	require.NoError(t, err)
	assert.NotEqual(t, source.Id, copyDoc.Id)
	assert.NotEqual(t, source.FilePath, copyDoc.FilePath)
	assert.True(t, copyDoc.Saved)

	require.NoError(t, f.gateway.Delete(ctx, source.Id))

	r, _, err := f.gateway.OpenFile(ctx, copyDoc.Id)
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	_ = r.Close()
	assert.Equal(t, "bytes of ktp.jpg", string(data))
}

func TestMarkFailed(t *testing.T) {
	f := newFixture(t, store.InitInMemoryDocumentStore())
	ctx := context.Background()

	doc, err := f.gateway.CreateOrUpdate(ctx, upload("ktp.jpg"))
	require.NoError(t, err)
	require.NoError(t, f.gateway.MarkFailed(ctx, doc.Id, AttemptRescan, appErrors.Upstream("X", "service down", nil)))

	stored, err := f.gateway.Get(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, documentModel.StatusFailed, stored.Status)
	assert.Equal(t, "3171", stored.Content["nik"])

	history, err := f.gateway.History(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, documentModel.StatusFailed, history[0].Outcome)
	assert.Equal(t, "service down", history[0].Message)
}

func TestDelete_WithFileAlreadyGone(t *testing.T) {
	f := newFixture(t, store.InitInMemoryDocumentStore())
	ctx := context.Background()

	doc, err := f.gateway.CreateOrUpdate(ctx, upload("ktp.jpg"))
	require.NoError(t, err)
	require.NoError(t, f.files.Delete(ctx, doc.FilePath))

	require.NoError(t, f.gateway.Delete(ctx, doc.Id))
	_, err = f.gateway.Get(ctx, doc.Id)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, f.gateway.Delete(ctx, doc.Id), appErrors.ErrNotFound)
}

func TestOpenFile_Missing(t *testing.T) {
	f := newFixture(t, store.InitInMemoryDocumentStore())
	ctx := context.Background()
	doc, err := f.gateway.CreateOrUpdate(ctx, upload("ktp.jpg"))
	require.NoError(t, err)
	require.NoError(t, f.files.Delete(ctx, doc.FilePath))

	_, _, err = f.gateway.OpenFile(ctx, doc.Id)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestListSaved_FilterAndPaginate(t *testing.T) {
	f := newFixture(t, store.InitInMemoryDocumentStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		req := upload(fmt.Sprintf("ktp-%d.jpg", i))
		if i%2 == 1 {
			req.Result.DocumentType = "SIM"
		}
		req.Result.Content = map[string]any{"person-data": map[string]any{"nama": fmt.Sprintf("Person %d", i)}}
		doc, err := f.gateway.CreateOrUpdate(ctx, req)
		require.NoError(t, err)
		_, err = f.gateway.CommitAsSaved(ctx, doc.Id, nil, "")
		require.NoError(t, err)
	}

	byType, err := f.gateway.ListSaved(ctx, "user-1", documentModel.SavedFilter{DocumentType: "ktp"}, documentModel.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, byType.Total)
	assert.Len(t, byType.Documents, 2)

	lastPage, err := f.gateway.ListSaved(ctx, "user-1", documentModel.SavedFilter{DocumentType: "KTP"}, documentModel.Page{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.Len(t, lastPage.Documents, 1)

	beyond, err := f.gateway.ListSaved(ctx, "user-1", documentModel.SavedFilter{}, documentModel.Page{Number: 9, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond.Documents)
	assert.Equal(t, 5, beyond.Total)

	byField, err := f.gateway.ListSaved(ctx, "user-1", documentModel.SavedFilter{Query: "person 3"}, documentModel.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, byField.Total)
	assert.Equal(t, "SIM", byField.Documents[0].DocumentType)
}

type failingDocs struct {
	*store.InMemoryDocumentStore
	failSave bool
}

func (d *failingDocs) SaveDocument(ctx context.Context, doc documentModel.Document) error {
	if d.failSave {
		return errors.New("redis unavailable")
	}
	return d.InMemoryDocumentStore.SaveDocument(ctx, doc)
}

func TestCreate_StoreFailureIsPersistenceAndCleansFiles(t *testing.T) {
	docs := &failingDocs{InMemoryDocumentStore: store.InitInMemoryDocumentStore(), failSave: true}
	f := newFixture(t, docs)

	_, err := f.gateway.CreateOrUpdate(context.Background(), upload("ktp.jpg"))
	assert.ErrorIs(t, err, appErrors.ErrPersistence)

	entries, readErr := os.ReadDir(f.dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestCommit_StoreFailureIsPersistence(t *testing.T) {
	docs := &failingDocs{InMemoryDocumentStore: store.InitInMemoryDocumentStore()}
	f := newFixture(t, docs)
	ctx := context.Background()

	doc, err := f.gateway.CreateOrUpdate(ctx, upload("ktp.jpg"))
	require.NoError(t, err)
	docs.failSave = true

	_, err = f.gateway.CommitAsSaved(ctx, doc.Id, nil, "")
	assert.ErrorIs(t, err, appErrors.ErrPersistence)
}
