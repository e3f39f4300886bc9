package serving

import (
	"encoding/json"
	"fmt"

	"github.com/disease-prediction/platform/pkg/common/models"
)

const eventSource = "prediction-service"

// CompletedEvent is the payload of a prediction.completed event.
type CompletedEvent struct {
	PatientName  string   `json:"patient_name"`
	Gender       string   `json:"gender"`
	AgeGroup     string   `json:"age_group"`
	Symptoms     []string `json:"symptoms"`
	Disease      string   `json:"disease"`
	ClassID      int      `json:"class_id"`
	Confidence   float64  `json:"confidence"`
	ModelVersion string   `json:"model_version"`
	Cached       bool     `json:"cached"`
	LatencyMs    float64  `json:"latency_ms"`
}

func (e CompletedEvent) Data() map[string]interface{} {
	return map[string]interface{}{
		"patient_name":  e.PatientName,
		"gender":        e.Gender,
		"age_group":     e.AgeGroup,
		"symptoms":      e.Symptoms,
		"disease":       e.Disease,
		"class_id":      e.ClassID,
		"confidence":    e.Confidence,
		"model_version": e.ModelVersion,
		"cached":        e.Cached,
		"latency_ms":    e.LatencyMs,
	}
}

// DecodeCompletedEvent reads the payload back from a bus envelope.
func DecodeCompletedEvent(event models.Event) (CompletedEvent, error) {
	if event.Type != models.EventPredictionCompleted {
		return CompletedEvent{}, fmt.Errorf("unexpected event type %q", event.Type)
	}
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return CompletedEvent{}, err
	}
	var out CompletedEvent
	if err := json.Unmarshal(raw, &out); err != nil {
		return CompletedEvent{}, fmt.Errorf("decode %s payload: %w", event.ID, err)
	}
	return out, nil
}
