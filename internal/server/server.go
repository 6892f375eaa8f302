package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/DocScanAPI/internal/adapter/utils"
	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/handlers"
	"github.com/akolanti/DocScanAPI/internal/middleware"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// RegisterRoutes mounts the scan, document and config routes on r.
func RegisterRoutes(r chi.Router, h *handlers.Handler) {
	r.Get("/health", handlers.GetHandler)

	r.Post("/scans", middleware.Wrap(h.CreateScanHandler))
	r.Route("/scans/{scanId}", func(r chi.Router) {
		r.Get("/", middleware.Wrap(h.GetScanHandler))
		r.Delete("/", middleware.Wrap(h.DeleteScanHandler))
		r.Post("/upload", middleware.Wrap(h.UploadScanHandler))
		r.Post("/rescan", middleware.Wrap(h.RescanHandler))
		r.Post("/open", middleware.Wrap(h.OpenDocumentHandler))
		r.Put("/fields", middleware.Wrap(h.EditFieldsHandler))
		r.Post("/commit", middleware.Wrap(h.CommitHandler))
		r.Post("/discard", middleware.Wrap(h.DiscardHandler))
	})

	r.Get("/jobs/{id}", middleware.Wrap(h.GetJobStatusHandler))

	r.Get("/documents", middleware.Wrap(h.ListSavedHandler))
	r.Get("/documents/recent", middleware.Wrap(h.ListRecentHandler))
	r.Get("/documents/export", middleware.Wrap(h.ExportHandler))
	r.Route("/documents/{id}", func(r chi.Router) {
		r.Get("/", middleware.Wrap(h.GetDocumentHandler))
		r.Delete("/", middleware.Wrap(h.DeleteDocumentHandler))
		r.Get("/file", middleware.Wrap(h.GetDocumentFileHandler))
		r.Get("/history", middleware.Wrap(h.GetHistoryHandler))
	})

	r.Get("/config/extraction", middleware.Wrap(h.ExtractionConfigHandler))
}

func CreateServer(listenAddr string, h *handlers.Handler) {

	r := utils.GetRouter()
	RegisterRoutes(r.Router, h)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "error", err)
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully is shutting down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
