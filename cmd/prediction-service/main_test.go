package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disease-prediction/platform/pkg/common/config"
	"github.com/disease-prediction/platform/pkg/serving"
)

const testModel = `{"model": {
  "algorithm": "multinomial_logistic",
  "feature_names": ["itching", "skin_rash", "nausea"],
  "weights": {"bias": [0, 0.1], "coefficients": [[2, 2, 0], [0, 0, 2]]}
}}`

func writeFixtures(t *testing.T, features string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"feature_columns.json": features,
		"label_mapping.json":   `{"0": "Fungal infection", "1": "GERD"}`,
		"disease_model.json":   testModel,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	cfg := config.Load()
	cfg.FeaturesPath = filepath.Join(dir, "feature_columns.json")
	cfg.LabelMapPath = filepath.Join(dir, "label_mapping.json")
	cfg.ModelPath = filepath.Join(dir, "disease_model.json")
	cfg.PredictionsCSV = filepath.Join(dir, "predictions.csv")
	return cfg
}

func TestRouterServesPredictions(t *testing.T) {
	cfg := writeFixtures(t, `["itching", "skin_rash", "nausea"]`)
	service, err := serving.LoadFromConfig(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	router, err := newRouter(cfg, service)
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(`{"name":"A","symptoms":["nausea"]}`))
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"disease":"GERD"`) {
		t.Fatalf("unexpected predict response %d %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(cfg.PredictionsCSV); err != nil {
		t.Fatalf("expected prediction log to exist: %v", err)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "disease_predictions_served_total") {
		t.Fatalf("metrics missing counters: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "skin rash") {
		t.Fatalf("unexpected index response %d", w.Code)
	}
}
