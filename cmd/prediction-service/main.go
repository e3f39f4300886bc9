package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/disease-prediction/platform/pkg/common/config"
	"github.com/disease-prediction/platform/pkg/common/database"
	"github.com/disease-prediction/platform/pkg/common/kafka"
	"github.com/disease-prediction/platform/pkg/common/logger"
	"github.com/disease-prediction/platform/pkg/common/middleware"
	"github.com/disease-prediction/platform/pkg/observability/metrics"
	"github.com/disease-prediction/platform/pkg/serving"
	"github.com/disease-prediction/platform/pkg/storage"
	"github.com/disease-prediction/platform/pkg/web"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg, err := config.LoadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}

	ctx := context.Background()

	var opts []serving.Option
	if cfg.EnablePredictionCache {
		redisClient, err := database.OpenRedis(ctx, cfg)
		if err != nil {
			logger.Log.WithError(err).Warn("Prediction cache unreachable at startup, requests fall back to the model")
		}
		if redisClient != nil {
			defer redisClient.Close()
			opts = append(opts, serving.WithCache(storage.NewPredictionCache(redisClient, cfg.PredictionCachePrefix, cfg.PredictionCacheTTL)))
		}
	}
	if cfg.EnableEvents {
		producer := kafka.NewProducer(cfg, cfg.PredictionTopic)
		defer producer.Close()
		opts = append(opts, serving.WithEvents(producer))
	}

	service, err := serving.LoadFromConfig(cfg, opts...)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load prediction model")
	}

	router, err := newRouter(cfg, service)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build router")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":        cfg.ServerHost,
			"port":        cfg.ServerPort,
			"predictions": cfg.PredictionsCSV,
		}).Info("Prediction Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Prediction Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Prediction Service stopped")
}

func newRouter(cfg *config.Config, service *serving.Service) (*mux.Router, error) {
	form, err := web.NewFormHandler(service, cfg.SymptomSlots)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Use(
		middleware.Recovery,
		middleware.Logging,
		middleware.CORS,
		middleware.BodyLimit(cfg.MaxRequestBody),
		middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	serving.NewHTTPHandler(service, cfg.PredictionsCSV).Register(router)
	form.Register(router)
	return router, nil
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
