package serving

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/disease-prediction/platform/pkg/common/logger"
	"github.com/disease-prediction/platform/pkg/common/models"
	"github.com/disease-prediction/platform/pkg/records"
	"github.com/gorilla/mux"
)

const defaultHistoryLimit = 50

type HTTPHandler struct {
	service     *Service
	historyPath string
}

func NewHTTPHandler(service *Service, historyPath string) *HTTPHandler {
	return &HTTPHandler{service: service, historyPath: historyPath}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/predict", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/vocabulary", h.handleVocabulary).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/labels", h.handleLabels).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/history", h.handleHistory).Methods(http.MethodGet)
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid prediction payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Predict(r.Context(), req)
	if err != nil {
		if IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("prediction failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleVocabulary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symptoms": h.service.Vocabulary().Names(),
	})
}

func (h *HTTPHandler) handleLabels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Labels().Entries())
}

func (h *HTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recs, err := records.Tail(h.historyPath, limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to read prediction log")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []records.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.WithError(err).Warn("failed to encode response")
	}
}
