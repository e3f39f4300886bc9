package serving

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/disease-prediction/platform/pkg/common/logger"
	"github.com/disease-prediction/platform/pkg/common/models"
	"github.com/disease-prediction/platform/pkg/features"
	"github.com/disease-prediction/platform/pkg/labels"
	"github.com/disease-prediction/platform/pkg/observability/metrics"
	"github.com/disease-prediction/platform/pkg/records"
	"github.com/disease-prediction/platform/pkg/serving/predictor"
	"github.com/disease-prediction/platform/pkg/storage"
)

type Classifier interface {
	Predict(vec features.Vector) (predictor.Prediction, error)
	Version() string
}

type RecordWriter interface {
	Append(rec records.Record) error
}

type PredictionCache interface {
	Get(ctx context.Context, modelVersion, vectorKey string) (storage.CachedPrediction, bool, error)
	Set(ctx context.Context, modelVersion, vectorKey string, pred storage.CachedPrediction) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Option func(*Service)

func WithCache(cache PredictionCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithEvents(events EventPublisher) Option {
	return func(s *Service) { s.events = events }
}

// Service runs one prediction end to end: encode, classify, resolve the label and
// append the record. The vocabulary, mapping and model are shared read-only.
type Service struct {
	vocab     *features.Vocabulary
	labels    *labels.Mapping
	model     Classifier
	records   RecordWriter
	validator *Validator
	cache     PredictionCache
	events    EventPublisher
}

func NewService(vocab *features.Vocabulary, mapping *labels.Mapping, model Classifier, recs RecordWriter, opts ...Option) *Service {
	s := &Service{
		vocab:     vocab,
		labels:    mapping,
		model:     model,
		records:   recs,
		validator: NewValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Vocabulary() *features.Vocabulary {
	return s.vocab
}

func (s *Service) Labels() *labels.Mapping {
	return s.labels
}

func (s *Service) Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResponse, error) {
	start := time.Now()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	symptoms, malformed := sanitizeSymptoms(req.Symptoms)
	req.Symptoms = symptoms
	unknown := s.vocab.Unknown(req.Symptoms)
	if n := malformed + len(unknown); n > 0 {
		metrics.ObserveUnknownSymptoms(n)
		logger.Log.WithFields(map[string]interface{}{
			"unknown":   unknown,
			"malformed": malformed,
		}).Debug("dropping symptoms outside vocabulary")
	}
	vec := s.vocab.Encode(req.Symptoms)

	pred, cached, err := s.classify(ctx, vec)
	if err != nil {
		return nil, fmt.Errorf("classify symptoms: %w", err)
	}

	disease, ok := s.labels.Lookup(strconv.Itoa(pred.Class))
	if !ok {
		disease = strconv.Itoa(pred.Class)
		metrics.ObserveUnmappedLabel()
		logger.Log.WithField("class", pred.Class).Warn("predicted class has no label mapping entry")
	}

	rec := records.NewRecord(req.Name, req.Gender, req.AgeGroup, req.Symptoms, disease)
	if err := s.records.Append(rec); err != nil {
		metrics.ObserveRecordFailure()
		return nil, fmt.Errorf("record prediction: %w", err)
	}

	latency := time.Since(start)
	resp := &models.PredictionResponse{
		Disease:    disease,
		ClassID:    pred.Class,
		Confidence: pred.Confidence,
		Symptoms:   req.Symptoms,
		Matched:    vec.Count(),
		Cached:     cached,
		Latency:    latency,
		LatencyMs:  float64(latency.Microseconds()) / 1000.0,
	}
	metrics.ObservePrediction(cached)

	s.publish(ctx, req, resp)

	logger.Log.WithFields(map[string]interface{}{
		"class":      pred.Class,
		"disease":    disease,
		"matched":    resp.Matched,
		"cached":     cached,
		"latency_ms": latency.Milliseconds(),
	}).Info("Prediction completed")

	return resp, nil
}

// classify consults the cache first. Cache errors degrade to a direct model call.
func (s *Service) classify(ctx context.Context, vec features.Vector) (predictor.Prediction, bool, error) {
	version := s.model.Version()
	if s.cache != nil {
		hit, ok, err := s.cache.Get(ctx, version, vec.Key())
		if err != nil {
			logger.Log.WithError(err).Warn("prediction cache read failed")
		} else if ok {
			return predictor.Prediction{Class: hit.Class, Confidence: hit.Confidence}, true, nil
		}
	}

	pred, err := s.model.Predict(vec)
	if err != nil {
		return predictor.Prediction{}, false, err
	}

	if s.cache != nil {
		entry := storage.CachedPrediction{Class: pred.Class, Confidence: pred.Confidence}
		if err := s.cache.Set(ctx, version, vec.Key(), entry); err != nil {
			logger.Log.WithError(err).Warn("prediction cache write failed")
		}
	}
	return pred, false, nil
}

func (s *Service) publish(ctx context.Context, req models.PredictionRequest, resp *models.PredictionResponse) {
	if s.events == nil {
		return
	}
	event := CompletedEvent{
		PatientName:  req.Name,
		Gender:       req.Gender,
		AgeGroup:     req.AgeGroup,
		Symptoms:     req.Symptoms,
		Disease:      resp.Disease,
		ClassID:      resp.ClassID,
		Confidence:   resp.Confidence,
		ModelVersion: s.model.Version(),
		Cached:       resp.Cached,
		LatencyMs:    resp.LatencyMs,
	}
	if err := s.events.PublishEvent(ctx, models.EventPredictionCompleted, eventSource, event.Data()); err != nil {
		metrics.ObserveEventFailure()
		logger.Log.WithError(err).Warn("failed to publish prediction event")
	}
}
