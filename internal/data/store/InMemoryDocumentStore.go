package store

import (
	"context"
	"sort"
	"sync"

	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem DocumentStore")

type InMemoryDocumentStore struct {
	docMutex *sync.RWMutex
	docMap   map[string]documentModel.Document
}

func InitInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		docMutex: new(sync.RWMutex),
		docMap:   make(map[string]documentModel.Document),
	}
}

func (store *InMemoryDocumentStore) SaveDocument(ctx context.Context, doc documentModel.Document) error {
	store.docMutex.Lock()
	defer store.docMutex.Unlock()
	store.docMap[doc.Id] = doc
	inMemLogger.Debug("Saved document to store", "document Id", doc.Id)
	return nil
}

func (store *InMemoryDocumentStore) GetDocument(ctx context.Context, id string) (documentModel.Document, bool, error) {
	store.docMutex.RLock()
	defer store.docMutex.RUnlock()
	result, found := store.docMap[id]
	return result, found, nil
}

func (store *InMemoryDocumentStore) DeleteDocument(ctx context.Context, doc documentModel.Document) error {
	store.docMutex.Lock()
	defer store.docMutex.Unlock()
	delete(store.docMap, doc.Id)
	return nil
}

func (store *InMemoryDocumentStore) ListUnsaved(ctx context.Context, userId string, limit int) ([]documentModel.Document, error) {
	docs := store.filter(func(d documentModel.Document) bool {
		return d.UserId == userId && !d.Saved
	})
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].ScannedAt.After(docs[j].ScannedAt)
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (store *InMemoryDocumentStore) ListSaved(ctx context.Context, userId string) ([]documentModel.Document, error) {
	docs := store.filter(func(d documentModel.Document) bool {
		return d.UserId == userId && d.Saved
	})
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

func (store *InMemoryDocumentStore) filter(keep func(documentModel.Document) bool) []documentModel.Document {
	store.docMutex.RLock()
	defer store.docMutex.RUnlock()
	var docs []documentModel.Document
	for _, d := range store.docMap {
		if keep(d) {
			docs = append(docs, d)
		}
	}
	return docs
}
