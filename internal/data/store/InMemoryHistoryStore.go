package store

import (
	"context"
	"sync"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
)

type InMemoryHistoryStore struct {
	historyLock *sync.RWMutex
	historyMap  map[string][]documentModel.HistoryEntry
}

func InitInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{
		historyLock: new(sync.RWMutex),
		historyMap:  make(map[string][]documentModel.HistoryEntry),
	}
}

func (store *InMemoryHistoryStore) Append(ctx context.Context, documentId string, entry documentModel.HistoryEntry) error {
	store.historyLock.Lock()
	defer store.historyLock.Unlock()
	entries := append(store.historyMap[documentId], entry)
	if len(entries) > config.HistoryLength {
		entries = entries[len(entries)-config.HistoryLength:]
	}
	store.historyMap[documentId] = entries
	return nil
}

func (store *InMemoryHistoryStore) List(ctx context.Context, documentId string) ([]documentModel.HistoryEntry, error) {
	store.historyLock.RLock()
	defer store.historyLock.RUnlock()
	entries := store.historyMap[documentId]
	out := make([]documentModel.HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (store *InMemoryHistoryStore) Delete(ctx context.Context, documentId string) error {
	store.historyLock.Lock()
	defer store.historyLock.Unlock()
	delete(store.historyMap, documentId)
	return nil
}
