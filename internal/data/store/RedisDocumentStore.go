package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/content"
	"github.com/akolanti/DocScanAPI/internal/data/redisStore"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

// RedisDocumentStore keeps one JSON value per document plus two sorted sets per
// user: unsaved ids scored by scannedAt and saved ids scored by createdAt.
type RedisDocumentStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

// storedDocument shadows Content so records written with string-encoded
// content still load.
type storedDocument struct {
	documentModel.Document
	Content json.RawMessage `json:"content"`
}

func GetRedisDocumentStore(ctx context.Context, opts redisStore.Options) *RedisDocumentStore {
	s := redisStore.GetRedisStore(ctx, opts, config.RedisDocumentStore)
	if s == nil {
		return nil
	}
	return &RedisDocumentStore{
		store:  s,
		logger: logger_i.NewLogger("DocumentStore"),
	}
}

func documentKey(id string) string {
	return "doc:" + id
}

func unsavedKey(userId string) string {
	return "user:" + userId + ":unsaved"
}

func savedKey(userId string) string {
	return "user:" + userId + ":saved"
}

func (s *RedisDocumentStore) SaveDocument(ctx context.Context, doc documentModel.Document) error {
	log := s.logger.WithContext(ctx).With("document Id", doc.Id)
	log.Debug("saving document", "saved", doc.Saved)

	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	err = s.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, documentKey(doc.Id), data, 0)
		if doc.Saved {
			pipe.ZRem(ctx, unsavedKey(doc.UserId), doc.Id)
			pipe.ZAdd(ctx, savedKey(doc.UserId), redis.Z{Score: float64(doc.CreatedAt.UnixMicro()), Member: doc.Id})
		} else {
			pipe.ZAdd(ctx, unsavedKey(doc.UserId), redis.Z{Score: float64(doc.ScannedAt.UnixMicro()), Member: doc.Id})
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to save document", "error", err)
		return err
	}
	log.Debug("Saved document to Redis")
	return nil
}

func (s *RedisDocumentStore) GetDocument(ctx context.Context, id string) (documentModel.Document, bool, error) {
	log := s.logger.WithContext(ctx).With("document Id", id)
	log.Debug("getting document")

	val, err := s.store.Get(ctx, documentKey(id))
	if s.store.IsNil(err) {
		return documentModel.Document{}, false, nil
	} else if err != nil {
		log.Error("Failed to read document", "error", err)
		return documentModel.Document{}, false, err
	}

	doc, err := decodeDocument(val)
	if err != nil {
		log.Error("Stored document is corrupt", "error", err)
		return documentModel.Document{}, false, err
	}
	return doc, true, nil
}

func (s *RedisDocumentStore) DeleteDocument(ctx context.Context, doc documentModel.Document) error {
	err := s.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, documentKey(doc.Id))
		pipe.ZRem(ctx, unsavedKey(doc.UserId), doc.Id)
		pipe.ZRem(ctx, savedKey(doc.UserId), doc.Id)
		return nil
	})
	if err != nil {
		s.logger.WithContext(ctx).Error("Error deleting document from Redis", "document Id", doc.Id, "error", err)
		return err
	}
	s.logger.Debug("Document deleted from Redis", "document Id", doc.Id)
	return nil
}

func (s *RedisDocumentStore) ListUnsaved(ctx context.Context, userId string, limit int) ([]documentModel.Document, error) {
	return s.listIndex(ctx, unsavedKey(userId), limit)
}

func (s *RedisDocumentStore) ListSaved(ctx context.Context, userId string) ([]documentModel.Document, error) {
	return s.listIndex(ctx, savedKey(userId), 0)
}

func (s *RedisDocumentStore) listIndex(ctx context.Context, indexKey string, limit int) ([]documentModel.Document, error) {
	log := s.logger.WithContext(ctx).With("index", indexKey)

	ids, err := s.store.ZRevRangeAll(ctx, indexKey, limit)
	if err != nil {
		log.Error("Failed to read index", "error", err)
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = documentKey(id)
	}
	values, err := s.store.MGet(ctx, keys...)
	if err != nil {
		log.Error("Failed to read documents", "error", err)
		return nil, err
	}

	docs := make([]documentModel.Document, 0, len(values))
	var dangling []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			dangling = append(dangling, ids[i])
			continue
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			log.Warn("Skipping corrupt document", "document Id", ids[i], "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	if len(dangling) > 0 {
		log.Warn("Index points at missing documents", "count", len(dangling))
		if err := s.store.ZRem(ctx, indexKey, dangling...); err != nil {
			log.Error("Failed to clean index", "error", err)
		}
	}
	return docs, nil
}

func encodeDocument(doc documentModel.Document) ([]byte, error) {
	contentBytes, err := json.Marshal(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}
	return json.Marshal(storedDocument{Document: doc, Content: contentBytes})
}

func decodeDocument(val string) (documentModel.Document, error) {
	var stored storedDocument
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		return documentModel.Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	doc := stored.Document
	if len(stored.Content) > 0 && string(stored.Content) != "null" {
		doc.Content = content.Normalize(stored.Content)
	}
	return doc, nil
}

func TestDocumentStore(store *redisStore.Store) *RedisDocumentStore {
	return &RedisDocumentStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
