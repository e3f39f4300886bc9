package serving

import (
	"context"
	"strings"
	"time"

	"github.com/disease-prediction/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PredictionLog is the archived copy of a served prediction.
type PredictionLog struct {
	ID           uuid.UUID         `gorm:"primaryKey;column:id"`
	EventID      string            `gorm:"column:event_id;uniqueIndex"`
	PatientName  string            `gorm:"column:patient_name"`
	Gender       string            `gorm:"column:gender"`
	AgeGroup     string            `gorm:"column:age_group"`
	Symptoms     string            `gorm:"column:symptoms"`
	Disease      string            `gorm:"column:disease;index"`
	ClassID      int               `gorm:"column:class_id"`
	Confidence   float64           `gorm:"column:confidence"`
	ModelVersion string            `gorm:"column:model_version"`
	Cached       bool              `gorm:"column:cached"`
	LatencyMs    float64           `gorm:"column:latency_ms"`
	Payload      datatypes.JSONMap `gorm:"column:payload"`
	PredictedAt  time.Time         `gorm:"column:predicted_at"`
	CreatedAt    time.Time         `gorm:"column:created_at"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// NewPredictionLog converts a prediction.completed event into an archive row.
func NewPredictionLog(event models.Event) (*PredictionLog, error) {
	payload, err := DecodeCompletedEvent(event)
	if err != nil {
		return nil, err
	}
	return &PredictionLog{
		ID:           uuid.New(),
		EventID:      event.ID,
		PatientName:  payload.PatientName,
		Gender:       payload.Gender,
		AgeGroup:     payload.AgeGroup,
		Symptoms:     strings.Join(payload.Symptoms, ", "),
		Disease:      payload.Disease,
		ClassID:      payload.ClassID,
		Confidence:   payload.Confidence,
		ModelVersion: payload.ModelVersion,
		Cached:       payload.Cached,
		LatencyMs:    payload.LatencyMs,
		Payload:      datatypes.JSONMap(event.Data),
		PredictedAt:  event.Timestamp.UTC(),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Repository handles prediction log queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

// Record inserts the row; redelivered events with a known event ID are ignored.
func (r *Repository) Record(ctx context.Context, log *PredictionLog) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(log).Error
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("predicted_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// CountByDisease aggregates archived predictions per disease name.
func (r *Repository) CountByDisease(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Disease string
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&PredictionLog{}).
		Select("disease, count(*) AS total").
		Group("disease").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Disease] = row.Total
	}
	return out, nil
}
