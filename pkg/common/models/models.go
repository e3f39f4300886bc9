package models

import (
	"time"
)

// Event bus envelope
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // prediction.completed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

const EventPredictionCompleted = "prediction.completed"

// Model Serving
type PredictionRequest struct {
	Name     string   `json:"name"`
	Gender   string   `json:"gender"`
	AgeGroup string   `json:"age_group"`
	Symptoms []string `json:"symptoms"`
}

type PredictionResponse struct {
	Disease    string        `json:"disease"`
	ClassID    int           `json:"class_id"`
	Confidence float64       `json:"confidence"`
	Symptoms   []string      `json:"symptoms"`
	Matched    int           `json:"matched_symptoms"`
	Cached     bool          `json:"cached"`
	Latency    time.Duration `json:"-"`
	LatencyMs  float64       `json:"latency_ms"`
}
