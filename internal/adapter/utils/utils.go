package utils

import (
	"net/http"
	"strconv"
	"sync"

	_ "github.com/akolanti/DocScanAPI/cmd/api/docs"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/http-swagger"
)

var once sync.Once
var router *chi.Mux

func GetNewUUID() string {
	return uuid.New().String()
}

type RouterClient struct {
	Router *chi.Mux
}

func GetChiURLParam(request *http.Request, key string) string {
	return chi.URLParam(request, key)
}

// QueryInt reads a positive integer query parameter, def when absent or invalid.
func QueryInt(request *http.Request, key string, def int) int {
	v, err := strconv.Atoi(request.URL.Query().Get(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func GetRouter() RouterClient {
	once.Do(func() {
		router = NewRouter()
	})
	return RouterClient{Router: router}
}

// NewRouter returns a router with the ambient routes, swagger and metrics, mounted.
func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	InitSwagger(r)
	//register prometheus
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func InitSwagger(r *chi.Mux) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
