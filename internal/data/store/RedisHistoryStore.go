package store

import (
	"context"
	"encoding/json"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/data/redisStore"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
)

// RedisHistoryStore appends every extraction attempt of a document to a capped list.
type RedisHistoryStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisHistoryStore(ctx context.Context, opts redisStore.Options) *RedisHistoryStore {
	s := redisStore.GetRedisStore(ctx, opts, config.RedisHistoryStore)
	if s == nil {
		return nil
	}
	return &RedisHistoryStore{
		store:  s,
		logger: logger_i.NewLogger("HistoryStore"),
	}
}

func historyKey(documentId string) string {
	return "history:" + documentId
}

func (s *RedisHistoryStore) Append(ctx context.Context, documentId string, entry documentModel.HistoryEntry) error {
	log := s.logger.WithContext(ctx).With("document Id", documentId)
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error("Error marshalling history entry", "error", err)
		return err
	}
	err = s.store.ListPushCapped(ctx, historyKey(documentId), data, config.HistoryLength, config.RedisHistoryStoreTTL)
	if err != nil {
		log.Error("error saving history", "error", err)
		return err
	}
	log.Debug("Saved history entry", "outcome", entry.Outcome)
	return nil
}

// List returns the entries newest first.
func (s *RedisHistoryStore) List(ctx context.Context, documentId string) ([]documentModel.HistoryEntry, error) {
	log := s.logger.WithContext(ctx).With("document Id", documentId)
	log.Debug("Getting scan history")

	res, err := s.store.ListGetAll(ctx, historyKey(documentId))
	if err != nil {
		log.Error("Error getting history", "error", err)
		return nil, err
	}

	entries := make([]documentModel.HistoryEntry, 0, len(res))
	for i := len(res) - 1; i >= 0; i-- {
		var entry documentModel.HistoryEntry
		if err := json.Unmarshal([]byte(res[i]), &entry); err != nil {
			log.Warn("Skipping corrupt history entry", "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *RedisHistoryStore) Delete(ctx context.Context, documentId string) error {
	return s.store.Del(ctx, historyKey(documentId))
}

func TestHistoryStore(store *redisStore.Store) *RedisHistoryStore {
	return &RedisHistoryStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
