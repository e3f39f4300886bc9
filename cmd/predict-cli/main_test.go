package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/disease-prediction/platform/pkg/records"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"feature_columns.json": `["itching", "skin_rash", "nausea"]`,
		"label_mapping.json":   `{"0": "Fungal infection", "1": "GERD"}`,
		"disease_model.json":   `{"model": {"feature_names": ["itching", "skin_rash", "nausea"], "weights": {"bias": [0, 0], "coefficients": [[2, 2, 0], [0, 0, 2]]}}}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	csvPath := filepath.Join(dir, "predictions.csv")
	yaml := strings.Join([]string{
		"features_path: " + filepath.Join(dir, "feature_columns.json"),
		"label_map_path: " + filepath.Join(dir, "label_mapping.json"),
		"model_path: " + filepath.Join(dir, "disease_model.json"),
		"predictions_csv: " + csvPath,
	}, "\n")
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, csvPath
}

func TestRunPrintsPrediction(t *testing.T) {
	cfgPath, csvPath := writeConfig(t)

	var out bytes.Buffer
	args := []string{"-config", cfgPath, "-name", "A", "-gender", "Female", "-age", "31-40", "-symptoms", "itching, skin_rash"}
	if err := run(args, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Predicted disease: Fungal infection") {
		t.Fatalf("unexpected output %q", out.String())
	}

	recs, err := records.ReadAll(csvPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(recs) != 1 || recs[0].Symptoms != "itching, skin_rash" {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestRunMissingConfig(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, &out); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestSplitSymptoms(t *testing.T) {
	got := splitSymptoms(" itching,,skin_rash , ")
	if !reflect.DeepEqual(got, []string{"itching", "skin_rash"}) {
		t.Fatalf("unexpected %v", got)
	}
	if splitSymptoms("") != nil {
		t.Fatal("expected nil for empty input")
	}
}
