// @title           Document Scan API
// @version         1.0
// @description     Scans identity and business documents, keeps the review buffer and saves the reviewed result
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/data/fileStore"
	"github.com/akolanti/DocScanAPI/internal/data/redisStore"
	"github.com/akolanti/DocScanAPI/internal/data/store"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/internal/domain/jobModel"
	"github.com/akolanti/DocScanAPI/internal/extraction"
	"github.com/akolanti/DocScanAPI/internal/extraction/gemini"
	"github.com/akolanti/DocScanAPI/internal/extraction/httpService"
	"github.com/akolanti/DocScanAPI/internal/extraction/openaiExtractor"
	"github.com/akolanti/DocScanAPI/internal/gateway"
	"github.com/akolanti/DocScanAPI/internal/handlers"
	"github.com/akolanti/DocScanAPI/internal/job"
	"github.com/akolanti/DocScanAPI/internal/middleware"
	"github.com/akolanti/DocScanAPI/internal/orchestrator"
	"github.com/akolanti/DocScanAPI/internal/server"
	"github.com/akolanti/DocScanAPI/internal/worker"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	settings, err := config.Load()
	logger_i.Init(settings)
	var logger = logger_i.NewLogger("main")
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	//config
	flag.StringVar(&listenAddr, "listen-addr", settings.ListenAddr, "server listen address")
	flag.Parse()
	middleware.Configure(settings)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//stores
	redisOpts := redisStore.Options{Addr: settings.RedisAddr, Password: settings.RedisPassword}
	var documents documentModel.DocumentStore
	var history documentModel.HistoryStore
	var jobs jobModel.JobStore
	redisDocuments := store.GetRedisDocumentStore(serviceContext, redisOpts)
	redisHistory := store.GetRedisHistoryStore(serviceContext, redisOpts)
	redisJobs := store.GetRedisJobStore(serviceContext, redisOpts)
	if redisDocuments == nil || redisHistory == nil || redisJobs == nil {
		if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			logger.Error("Redis stores are offline. Shutting down.")
			return
		}
		logger.Error("Redis stores are offline, documents will not survive a restart")
		documents = store.InitInMemoryDocumentStore()
		history = store.InitInMemoryHistoryStore()
		jobs = store.InitInMemoryJobStore()
	} else {
		documents = redisDocuments
		history = redisHistory
		jobs = redisJobs
	}

	files, err := openFileStore(serviceContext, settings)
	if err != nil {
		logger.Error("File store failed to initialize. Shutting down.", "kind", settings.FileStore.Kind, "error", err)
		return
	}

	//extraction
	provider, err := openProvider(serviceContext, settings)
	if err != nil {
		// scans report the configuration error, the service still starts
		logger.Error("Extraction provider failed to initialize", "provider", settings.Extraction.Provider, "error", err)
	}
	client := extraction.NewClient(extraction.ClientConfig{
		Provider:    provider,
		Documents:   documents,
		Files:       files,
		Credentials: settings,
		Timeout:     settings.Extraction.Timeout,
	})
	if err := client.CheckConfigured(); err != nil {
		logger.Warn("Extraction is not configured", "error", err)
	}

	documentGateway := gateway.New(gateway.Config{
		Documents: documents,
		History:   history,
		Files:     files,
		Retention: settings.UnsavedRetention,
	})
	scans := orchestrator.NewManager(orchestrator.ManagerConfig{Extractor: client, Persister: documentGateway})
	documentGateway.KeepInUse(scans)
	go scans.Run(serviceContext, 0)
	go middleware.RunLimiterSweep(serviceContext)

	//init buffered job channel
	jobChannel := make(chan jobModel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	logger.Info("Starting job service")
	service := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobs,
		Executor:          scans,
		JobTimeout:        settings.Extraction.Timeout + config.PersistenceMargin,
	})

	//init worker pool
	worker.InitServices(service)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	h := handlers.NewHandler(handlers.Deps{
		Scans:      scans,
		Jobs:       service,
		Documents:  documentGateway,
		Extraction: client,
		Provider:   settings.Extraction.Provider,
	})

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr, h)

	<-stopExecution
	logger.Info("Server stopped")
}

func openFileStore(ctx context.Context, settings config.Settings) (documentModel.FileStore, error) {
	if settings.FileStore.Kind == config.FileStoreGCS {
		return fileStore.NewGCSStore(ctx, settings.FileStore.GCSBucket, "scans")
	}
	return fileStore.NewLocalStore(settings.FileStore.Dir)
}

// openProvider returns a nil provider when the selected one has no credential.
func openProvider(ctx context.Context, settings config.Settings) (extraction.Provider, error) {
	if !settings.HasExtractionCredential() {
		return nil, nil
	}
	ex := settings.Extraction
	switch ex.Provider {
	case config.ExtractionProviderGemini:
		p, err := gemini.New(ctx, ex.GeminiKey, ex.GeminiModel)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ExtractionProviderOpenAI:
		return openaiExtractor.New(ex.OpenAIKey, ex.OpenAIModel), nil
	default:
		p, err := httpService.New(ex.ServiceURL, ex.APIKey, ex.Timeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}
