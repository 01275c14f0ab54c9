package app

import (
	"net/http"

	"github.com/Raimguhinov/alarm-go/internal/config"
	delivery "github.com/Raimguhinov/alarm-go/internal/delivery/http"
	mwlogger "github.com/Raimguhinov/alarm-go/internal/delivery/http/middleware/logger"
	"github.com/Raimguhinov/alarm-go/internal/scheduler"
	"github.com/Raimguhinov/alarm-go/internal/storage"
	"github.com/Raimguhinov/alarm-go/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func SetupRouter(
	l *logger.Logger,
	sched *scheduler.Scheduler,
	store storage.Store,
	registry *prometheus.Registry,
	cfg *config.Config,
) http.Handler {
	s := chi.NewRouter()
	s.Use(middleware.RequestID)
	s.Use(mwlogger.New(l))
	s.Use(middleware.Recoverer)
	s.Use(corsMiddleware(cfg))

	handler := delivery.NewHandler(sched, store, l)
	handler.Routes(s)

	s.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return s
}

func corsMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedMethods:     cfg.HTTP.CORS.AllowedMethods,
		AllowedOrigins:     cfg.HTTP.CORS.AllowedOrigins,
		AllowCredentials:   cfg.HTTP.CORS.AllowCredentials,
		AllowedHeaders:     cfg.HTTP.CORS.AllowedHeaders,
		OptionsPassthrough: cfg.HTTP.CORS.OptionsPassthrough,
		ExposedHeaders:     cfg.HTTP.CORS.ExposedHeaders,
		Debug:              cfg.HTTP.CORS.Debug,
	}).Handler
}
