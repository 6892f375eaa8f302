package redisStore

import (
	"context"
	"strconv"
	"sync"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var (
	instances = make(map[int]*Store)
	mu        sync.RWMutex
	logger    *logger_i.Logger
	once      sync.Once
)

type Store struct {
	client *redis.Client
	Type   int
}

type Options struct {
	Addr     string
	Password string
}

// GetRedisStore returns the shared store for a redis DB number, or nil when
// redis cannot be reached.
func GetRedisStore(ctx context.Context, opts Options, DBType int) *Store {

	mu.RLock()
	instance, exists := instances[DBType]
	mu.RUnlock()

	if exists {
		return instance
	}

	mu.Lock()
	defer mu.Unlock()

	if instance, exists = instances[DBType]; exists {
		return instance
	}
	return createNewStore(ctx, opts, DBType)
}

func initLogger() {
	if logger == nil {
		logger = logger_i.NewLogger("Redis Store")
	}
}

func closeRedisStores(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Redis Stores")
	mu.Lock()
	defer mu.Unlock()
	for _, store := range instances {
		if err := store.client.Close(); err != nil {
			logger.Error("Error closing redis client", "error", err)
		}
	}
	instances = make(map[int]*Store)
	logger.Info("Redis Store Closed successfully")
}

func createNewStore(ctx context.Context, opts Options, dbType int) *Store {
	addr := opts.Addr
	if addr == "" {
		addr = config.RedisAddr
	}
	newClient := redis.NewClient(&redis.Options{
		Addr:                  addr,
		Password:              opts.Password,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           config.RedisIOTimeout,
		WriteTimeout:          config.RedisIOTimeout,
	})

	initLogger()
	log := logger.With("db", strconv.Itoa(dbType), "addr", addr)

	pingCtx, cancel := context.WithTimeout(ctx, config.RedisPingTimeout)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		log.Error("Redis is offline", "error", err)
		_ = newClient.Close()
		return nil
	}

	log.Info("Redis store ready")

	newStore := &Store{
		client: newClient,
		Type:   dbType,
	}

	instances[dbType] = newStore
	once.Do(func() {
		go closeRedisStores(ctx)
	})
	return newStore
}

// NewTestStore wraps an existing client, used with miniredis in tests.
func NewTestStore(client *redis.Client) *Store {
	initLogger()
	return &Store{
		client: client,
	}
}
