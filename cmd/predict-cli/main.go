package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/disease-prediction/platform/pkg/common/config"
	"github.com/disease-prediction/platform/pkg/common/logger"
	"github.com/disease-prediction/platform/pkg/common/models"
	"github.com/disease-prediction/platform/pkg/serving"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("predict-cli", flag.ContinueOnError)
	configFile := fs.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	name := fs.String("name", "", "patient name")
	gender := fs.String("gender", "", "patient gender")
	age := fs.String("age", "", "patient age group")
	symptoms := fs.String("symptoms", "", "comma separated symptom identifiers")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger.Init()
	logger.Log.SetOutput(os.Stderr)
	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	service, err := serving.LoadFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	resp, err := service.Predict(context.Background(), models.PredictionRequest{
		Name:     *name,
		Gender:   *gender,
		AgeGroup: *age,
		Symptoms: splitSymptoms(*symptoms),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Predicted disease: %s (confidence %.2f, %d matched symptoms)\n", resp.Disease, resp.Confidence, resp.Matched)
	return nil
}

func splitSymptoms(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
