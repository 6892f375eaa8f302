package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD                         = false
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, it falls back to an internal in-memory store
	TRACE_ID_KEY                    = "traceId"
	USER_ID_KEY                     = "userId"
	DefaultUserId                   = "anonymous"
	RATE_LIMIT_PER_SECOND           = 10
	BURST_RATE_LIMIT_PER_SECOND     = 20
	RateLimiterIdleTTL              = 10 * time.Minute
	RateLimiterSweepInterval        = time.Minute

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 30 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//scan jobs buffer limit
	BufferLimit    = 100
	EnqueueTimeout = 2 * time.Second

	//uploads
	MaxUploadSize  = 32 << 20 //32mb for the whole multipart form
	MaxUploadFiles = 10

	//extraction
	ExtractionTimeout        = 90 * time.Second
	PersistenceMargin        = 15 * time.Second
	MaxDecodeDepth           = 5
	ExtractionProviderHTTP   = "http"
	ExtractionProviderGemini = "gemini"
	ExtractionProviderOpenAI = "openai"
	GeminiModelName          = "gemini-2.5-flash"
	OpenAIModelName          = "gpt-4o-mini"

	ModelTemperature float32 = 0

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//documents
	UnsavedRetentionLimit = 10
	DefaultPageSize       = 20
	MaxPageSize           = 100
	HistoryLength         = 20

	//scan contexts
	MaxScanContexts          = 1000
	ScanContextIdleTTL       = 30 * time.Minute
	ScanContextSweepInterval = 5 * time.Minute

	//file store
	FileStoreLocal = "local"
	FileStoreGCS   = "gcs"
	FileStoreDir   = "scan_files"

	//redis
	redisHost        = "127.0.0.1"
	redisPort        = "6379"
	RedisAddr        = redisHost + ":" + redisPort
	RedisIOTimeout   = 5 * time.Second
	RedisPingTimeout = 3 * time.Second

	//redis has 16 DB we can use
	RedisDocumentStore = 0
	RedisHistoryStore  = 1
	RedisJobStore      = 2

	//redis timeouts
	RedisHistoryStoreTTL = 30 * 24 * time.Hour
	RedisJobStoreTTL     = 24 * time.Hour
)
