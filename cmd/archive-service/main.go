package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/disease-prediction/platform/pkg/common/config"
	"github.com/disease-prediction/platform/pkg/common/database"
	"github.com/disease-prediction/platform/pkg/common/kafka"
	"github.com/disease-prediction/platform/pkg/common/logger"
	"github.com/disease-prediction/platform/pkg/common/middleware"
	"github.com/disease-prediction/platform/pkg/common/models"
	"github.com/disease-prediction/platform/pkg/observability/metrics"
	"github.com/disease-prediction/platform/pkg/serving"
	"github.com/gorilla/mux"
)

const maxListLimit = 500

type archiveStore interface {
	Record(ctx context.Context, log *serving.PredictionLog) error
	Recent(ctx context.Context, limit int) ([]serving.PredictionLog, error)
	CountByDisease(ctx context.Context) (map[string]int64, error)
}

// ArchiveService copies prediction.completed events into Postgres and serves them back.
type ArchiveService struct {
	store archiveStore
}

func main() {
	logger.Init()
	cfg, err := config.LoadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}

	db, err := database.OpenPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres(db)

	repo := serving.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate prediction log table")
	}

	service := &ArchiveService{store: repo}

	consumer := kafka.NewConsumer(cfg, cfg.PredictionTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Consume(ctx, service.processEvent); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Fatal("Consumer error")
		}
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ArchivePort),
		Handler:      service.router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":  cfg.ServerHost,
			"port":  cfg.ArchivePort,
			"topic": cfg.PredictionTopic,
		}).Info("Archive Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Archive Service...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Archive Service stopped")
}

func (s *ArchiveService) router() *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/predictions", s.handleList).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/predictions/summary", s.handleSummary).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)
	return router
}

// processEvent stores one event. Events that cannot be decoded are logged and
// acknowledged. Database failures are returned so the consumer retries the same
// message before moving on.
func (s *ArchiveService) processEvent(ctx context.Context, event models.Event) error {
	entry, err := serving.NewPredictionLog(event)
	if err != nil {
		logger.Log.WithError(err).WithField("event_id", event.ID).Warn("Skipping event")
		return nil
	}
	if err := s.store.Record(ctx, entry); err != nil {
		return fmt.Errorf("archive event %s: %w", event.ID, err)
	}
	metrics.ObserveArchived()
	return nil
}

func (s *ArchiveService) handleList(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logs, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list predictions")
		http.Error(w, "failed to list predictions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *ArchiveService) handleSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountByDisease(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("Failed to summarise predictions")
		http.Error(w, "failed to summarise predictions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"diseases": counts})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 50, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
