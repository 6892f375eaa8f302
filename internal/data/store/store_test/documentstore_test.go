package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/data/redisStore"
	"github.com/akolanti/DocScanAPI/internal/data/store"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisDocumentStore(t *testing.T) (*miniredis.Miniredis, *store.RedisDocumentStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, store.TestDocumentStore(redisStore.NewTestStore(client))
}

func testDocument(id string, user string, scannedAt time.Time) documentModel.Document {
	return documentModel.Document{
		Id:           id,
		UserId:       user,
		FileName:     id + ".jpg",
		DocumentType: "KTP",
		Status:       documentModel.StatusCompleted,
		Content:      map[string]any{"nik": "123"},
		ScannedAt:    scannedAt,
		CreatedAt:    scannedAt,
	}
}

func TestRedisDocumentStore_Lifecycle(t *testing.T) {
	mr, docStore := newRedisDocumentStore(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	now := time.Now()
	doc := testDocument("doc-1", "user-a", now)

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		if err := docStore.SaveDocument(ctx, doc); err != nil {
			t.Fatalf("SaveDocument failed: %v", err)
		}

		got, found, err := docStore.GetDocument(ctx, doc.Id)
		if err != nil || !found {
			t.Fatalf("Document was saved but not found: found=%v err=%v", found, err)
		}
		if got.Content["nik"] != "123" || got.FileName != doc.FileName {
			t.Errorf("Data mismatch! Got %+v", got)
		}
	})

	t.Run("Unsaved index", func(t *testing.T) {
		docs, err := docStore.ListUnsaved(ctx, "user-a", 10)
		if err != nil {
			t.Fatalf("ListUnsaved failed: %v", err)
		}
		if len(docs) != 1 || docs[0].Id != doc.Id {
			t.Errorf("expected doc-1 in unsaved index, got %+v", docs)
		}
	})

	t.Run("Saving moves the document between indexes", func(t *testing.T) {
		saved := doc
		saved.Saved = true
		if err := docStore.SaveDocument(ctx, saved); err != nil {
			t.Fatalf("SaveDocument failed: %v", err)
		}

		unsaved, _ := docStore.ListUnsaved(ctx, "user-a", 10)
		if len(unsaved) != 0 {
			t.Errorf("expected no unsaved documents, got %d", len(unsaved))
		}
		savedDocs, _ := docStore.ListSaved(ctx, "user-a")
		if len(savedDocs) != 1 || !savedDocs[0].Saved {
			t.Errorf("expected one saved document, got %+v", savedDocs)
		}
	})

	t.Run("Get Non-Existent Document", func(t *testing.T) {
		_, found, err := docStore.GetDocument(ctx, "ghost-id")
		if found || err != nil {
			t.Errorf("Expected found=false and no error, got found=%v err=%v", found, err)
		}
	})

	t.Run("Delete Document", func(t *testing.T) {
		if err := docStore.DeleteDocument(ctx, doc); err != nil {
			t.Fatalf("DeleteDocument failed: %v", err)
		}
		if mr.Exists("doc:" + doc.Id) {
			t.Error("Document still exists in Redis after DeleteDocument call")
		}
		savedDocs, _ := docStore.ListSaved(ctx, "user-a")
		if len(savedDocs) != 0 {
			t.Errorf("saved index still lists the deleted document")
		}
	})
}

func TestRedisDocumentStore_UnsavedOrderAndLimit(t *testing.T) {
	_, docStore := newRedisDocumentStore(t)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		doc := testDocument(fmt.Sprintf("doc-%d", i), "user-a", base.Add(time.Duration(i)*time.Second))
		if err := docStore.SaveDocument(ctx, doc); err != nil {
			t.Fatalf("SaveDocument failed: %v", err)
		}
	}
	_ = docStore.SaveDocument(ctx, testDocument("other", "user-b", base))

	docs, err := docStore.ListUnsaved(ctx, "user-a", 3)
	if err != nil {
		t.Fatalf("ListUnsaved failed: %v", err)
	}
	want := []string{"doc-4", "doc-3", "doc-2"}
	if len(docs) != len(want) {
		t.Fatalf("expected %d documents, got %d", len(want), len(docs))
	}
	for i, id := range want {
		if docs[i].Id != id {
			t.Errorf("position %d: got %s want %s", i, docs[i].Id, id)
		}
	}
}

func TestRedisDocumentStore_LegacyStringContent(t *testing.T) {
	mr, docStore := newRedisDocumentStore(t)

	legacy := `{"id":"legacy","user_id":"user-a","file_name":"ktp.jpg","status":"completed",` +
		`"content":"\"{\\\"nik\\\":\\\"123\\\"}\"","saved":true}`
	if err := mr.Set("doc:legacy", legacy); err != nil {
		t.Fatalf("seeding miniredis failed: %v", err)
	}

	got, found, err := docStore.GetDocument(context.Background(), "legacy")
	if err != nil || !found {
		t.Fatalf("expected legacy document, found=%v err=%v", found, err)
	}
	if got.Content["nik"] != "123" {
		t.Errorf("expected doubly encoded content to normalize, got %#v", got.Content)
	}
}

func TestRedisDocumentStore_DanglingIndexEntry(t *testing.T) {
	mr, docStore := newRedisDocumentStore(t)
	ctx := context.Background()

	_ = docStore.SaveDocument(ctx, testDocument("doc-1", "user-a", time.Now()))
	mr.Del("doc:doc-1")

	docs, err := docStore.ListUnsaved(ctx, "user-a", 10)
	if err != nil {
		t.Fatalf("ListUnsaved failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected dangling id to be skipped, got %d docs", len(docs))
	}
	if members, _ := mr.ZMembers("user:user-a:unsaved"); len(members) != 0 {
		t.Errorf("expected dangling id to be removed from index, got %v", members)
	}
}

func TestRedisDocumentStore_Race(t *testing.T) {
	_, docStore := newRedisDocumentStore(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	doc := testDocument("race-doc", "user-a", time.Now())

	var wg sync.WaitGroup
	const workers = 50
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = docStore.SaveDocument(ctx, doc)
			_, _, _ = docStore.GetDocument(ctx, doc.Id)
		}()
	}
	wg.Wait()

	docs, _ := docStore.ListUnsaved(ctx, "user-a", 0)
	if len(docs) != 1 {
		t.Errorf("expected a single index entry, got %d", len(docs))
	}
}

func TestRedisHistoryStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	history := store.TestHistoryStore(redisStore.NewTestStore(client))
	ctx := context.Background()

	for i := 0; i < config.HistoryLength+5; i++ {
		entry := documentModel.HistoryEntry{Kind: "rescan", Outcome: documentModel.StatusCompleted, Message: fmt.Sprint(i)}
		if err := history.Append(ctx, "doc-1", entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := history.List(ctx, "doc-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != config.HistoryLength {
		t.Fatalf("expected %d entries, got %d", config.HistoryLength, len(entries))
	}
	if entries[0].Message != fmt.Sprint(config.HistoryLength+4) {
		t.Errorf("expected newest entry first, got %s", entries[0].Message)
	}

	if err := history.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if mr.Exists("history:doc-1") {
		t.Error("history still exists after Delete")
	}
}

func TestInMemoryDocumentStore(t *testing.T) {
	docStore := store.InitInMemoryDocumentStore()
	ctx := context.Background()
	base := time.Now()

	_ = docStore.SaveDocument(ctx, testDocument("old", "user-a", base))
	_ = docStore.SaveDocument(ctx, testDocument("new", "user-a", base.Add(time.Minute)))
	saved := testDocument("kept", "user-a", base)
	saved.Saved = true
	_ = docStore.SaveDocument(ctx, saved)

	unsaved, _ := docStore.ListUnsaved(ctx, "user-a", 10)
	if len(unsaved) != 2 || unsaved[0].Id != "new" {
		t.Errorf("expected [new old], got %+v", unsaved)
	}
	savedDocs, _ := docStore.ListSaved(ctx, "user-a")
	if len(savedDocs) != 1 || savedDocs[0].Id != "kept" {
		t.Errorf("expected [kept], got %+v", savedDocs)
	}
}
