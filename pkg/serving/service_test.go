package serving

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/disease-prediction/platform/pkg/common/models"
	"github.com/disease-prediction/platform/pkg/features"
	"github.com/disease-prediction/platform/pkg/labels"
	"github.com/disease-prediction/platform/pkg/records"
	"github.com/disease-prediction/platform/pkg/serving/predictor"
	"github.com/disease-prediction/platform/pkg/storage"
)

type fakeCache struct {
	entries map[string]storage.CachedPrediction
	sets    int
	getErr  error
}

func (f *fakeCache) Get(ctx context.Context, version, key string) (storage.CachedPrediction, bool, error) {
	if f.getErr != nil {
		return storage.CachedPrediction{}, false, f.getErr
	}
	p, ok := f.entries[version+"/"+key]
	return p, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, version, key string, pred storage.CachedPrediction) error {
	f.sets++
	f.entries[version+"/"+key] = pred
	return nil
}

type fakePublisher struct {
	events []map[string]interface{}
	err    error
}

func (f *fakePublisher) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	if eventType != models.EventPredictionCompleted {
		return errors.New("unexpected event type")
	}
	f.events = append(f.events, data)
	return f.err
}

type countingModel struct {
	Classifier
	calls int
}

func (c *countingModel) Predict(vec features.Vector) (predictor.Prediction, error) {
	c.calls++
	return c.Classifier.Predict(vec)
}

type failingWriter struct{}

func (failingWriter) Append(records.Record) error {
	return errors.New("disk full")
}

func newTestModel(t *testing.T) *predictor.Predictor {
	t.Helper()
	var a predictor.Artifact
	a.Model.Version = "test"
	a.Model.FeatureNames = []string{"itching", "skin_rash", "fatigue", "nausea", "yellowing_of_eyes"}
	a.Model.Weights.Bias = []float64{0, 0.5, 0, 0}
	a.Model.Weights.Coefficients = [][]float64{
		{3, 3, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 1, 1, 3},
		{0, 0, 0, 4, 0},
	}
	p, err := predictor.New(a)
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	return p
}

func newTestService(t *testing.T, recs RecordWriter, opts ...Option) (*Service, *predictor.Predictor) {
	t.Helper()
	vocab, err := features.NewVocabulary([]string{"itching", "skin_rash", "fatigue", "nausea", "yellowing_of_eyes"})
	if err != nil {
		t.Fatalf("vocabulary: %v", err)
	}
	// class 3 is intentionally unmapped
	mapping := labels.NewMapping(map[string]string{"0": "Fungal infection", "1": "Allergy", "2": "Jaundice"})
	model := newTestModel(t)
	if err := model.CheckSchema(vocab); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return NewService(vocab, mapping, model, recs, opts...), model
}

func TestPredictResolvesAndRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictions.csv")
	svc, _ := newTestService(t, records.NewFileLog(path))

	resp, err := svc.Predict(context.Background(), models.PredictionRequest{
		Name:     "Test Patient",
		Gender:   "Male",
		AgeGroup: "21-30",
		Symptoms: []string{"fatigue", "", "nausea", "yellowing_of_eyes", "headache"},
	})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if resp.Disease != "Jaundice" || resp.ClassID != 2 {
		t.Fatalf("expected Jaundice/2, got %+v", resp)
	}
	if resp.Matched != 3 {
		t.Fatalf("expected 3 matched symptoms, got %d", resp.Matched)
	}

	recs, err := records.ReadAll(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one logged record, got %d", len(recs))
	}
	want := records.Record{
		PatientName:      "Test Patient",
		Gender:           "Male",
		AgeGroup:         "21-30",
		Symptoms:         "fatigue, nausea, yellowing_of_eyes, headache",
		PredictedDisease: "Jaundice",
	}
	if !reflect.DeepEqual(recs[0], want) {
		t.Fatalf("unexpected record %+v", recs[0])
	}
}

func TestPredictUnmappedClassFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictions.csv")
	svc, _ := newTestService(t, records.NewFileLog(path))

	resp, err := svc.Predict(context.Background(), models.PredictionRequest{Symptoms: []string{"nausea"}})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if resp.ClassID != 3 || resp.Disease != "3" {
		t.Fatalf("expected raw class fallback, got %+v", resp)
	}
}

func TestPredictPropagatesRecordFailure(t *testing.T) {
	svc, _ := newTestService(t, failingWriter{})
	_, err := svc.Predict(context.Background(), models.PredictionRequest{Symptoms: []string{"itching"}})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected record error, got %v", err)
	}
	if IsValidationError(err) {
		t.Fatal("record failure must not be reported as validation error")
	}
}

func TestPredictValidation(t *testing.T) {
	svc, _ := newTestService(t, records.NewFileLog(filepath.Join(t.TempDir(), "p.csv")))
	_, err := svc.Predict(context.Background(), models.PredictionRequest{Name: strings.Repeat("x", 300)})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

}

func TestPredictDropsUnusableSymptoms(t *testing.T) {
	manyUnknown := make([]string, 0, 46)
	for i := 0; i < 45; i++ {
		manyUnknown = append(manyUnknown, fmt.Sprintf("not_a_symptom_%d", i))
	}
	manyUnknown = append(manyUnknown, "itching")

	cases := map[string]struct {
		symptoms []string
		logged   string
		disease  string
	}{
		"oversized": {
			symptoms: []string{strings.Repeat("x", 300), "itching"},
			logged:   "itching",
			disease:  "Fungal infection",
		},
		"invalid utf8": {
			symptoms: []string{"\xff\xfe", "fatigue", "yellowing_of_eyes"},
			logged:   "fatigue, yellowing_of_eyes",
			disease:  "Jaundice",
		},
		"many unknown": {
			symptoms: manyUnknown,
			logged:   strings.Join(manyUnknown, ", "),
			disease:  "Fungal infection",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "predictions.csv")
			svc, _ := newTestService(t, records.NewFileLog(path))

			resp, err := svc.Predict(context.Background(), models.PredictionRequest{Name: "A", Symptoms: tc.symptoms})
			if err != nil {
				t.Fatalf("unusable symptoms must not fail the request: %v", err)
			}
			if resp.Disease != tc.disease {
				t.Fatalf("expected %s, got %s", tc.disease, resp.Disease)
			}

			recs, err := records.ReadAll(path)
			if err != nil {
				t.Fatalf("read log: %v", err)
			}
			if len(recs) != 1 || recs[0].Symptoms != tc.logged {
				t.Fatalf("unexpected records %+v", recs)
			}
		})
	}
}

func TestPredictUsesCache(t *testing.T) {
	cache := &fakeCache{entries: map[string]storage.CachedPrediction{}}
	path := filepath.Join(t.TempDir(), "predictions.csv")
	vocab, _ := features.NewVocabulary([]string{"itching", "skin_rash", "fatigue", "nausea", "yellowing_of_eyes"})
	model := &countingModel{Classifier: newTestModel(t)}
	svc := NewService(vocab, labels.NewMapping(map[string]string{"0": "Fungal infection"}), model, records.NewFileLog(path), WithCache(cache))

	req := models.PredictionRequest{Symptoms: []string{"itching", "skin_rash"}}
	first, err := svc.Predict(context.Background(), req)
	if err != nil {
		t.Fatalf("first predict: %v", err)
	}
	second, err := svc.Predict(context.Background(), models.PredictionRequest{Symptoms: []string{"skin_rash", "itching"}})
	if err != nil {
		t.Fatalf("second predict: %v", err)
	}

	if first.Cached || !second.Cached {
		t.Fatalf("expected miss then hit, got %v %v", first.Cached, second.Cached)
	}
	if model.calls != 1 || cache.sets != 1 {
		t.Fatalf("expected one model call and one cache write, got %d %d", model.calls, cache.sets)
	}
	if second.Disease != "Fungal infection" {
		t.Fatalf("unexpected disease %s", second.Disease)
	}

	recs, _ := records.ReadAll(path)
	if len(recs) != 2 {
		t.Fatalf("cache hits must still be logged, got %d records", len(recs))
	}
}

func TestPredictCacheErrorFallsBackToModel(t *testing.T) {
	cache := &fakeCache{entries: map[string]storage.CachedPrediction{}, getErr: errors.New("redis down")}
	svc, _ := newTestService(t, records.NewFileLog(filepath.Join(t.TempDir(), "p.csv")), WithCache(cache))
	resp, err := svc.Predict(context.Background(), models.PredictionRequest{Symptoms: []string{"itching"}})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if resp.Cached || resp.Disease != "Fungal infection" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestPredictPublishesEvent(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	svc, _ := newTestService(t, records.NewFileLog(filepath.Join(t.TempDir(), "p.csv")), WithEvents(pub))

	resp, err := svc.Predict(context.Background(), models.PredictionRequest{Name: "A", Symptoms: []string{"itching"}})
	if err != nil {
		t.Fatalf("publish failure must not fail the prediction: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	data := pub.events[0]
	if data["disease"] != resp.Disease || data["model_version"] != "test" || data["patient_name"] != "A" {
		t.Fatalf("unexpected event payload %v", data)
	}
}

func TestNewPredictionLogFromEvent(t *testing.T) {
	event := models.Event{
		ID:        "evt-1",
		Type:      models.EventPredictionCompleted,
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Data: map[string]interface{}{
			"patient_name":  "A",
			"gender":        "Female",
			"age_group":     "31-40",
			"symptoms":      []interface{}{"itching", "skin_rash"},
			"disease":       "Fungal infection",
			"class_id":      float64(0),
			"confidence":    0.97,
			"model_version": "v3",
		},
	}
	log, err := NewPredictionLog(event)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if log.EventID != "evt-1" || log.Symptoms != "itching, skin_rash" || log.Disease != "Fungal infection" {
		t.Fatalf("unexpected log %+v", log)
	}
	if !log.PredictedAt.Equal(event.Timestamp) {
		t.Fatalf("unexpected timestamp %s", log.PredictedAt)
	}

	event.Type = "other"
	if _, err := NewPredictionLog(event); err == nil {
		t.Fatal("expected error for foreign event type")
	}
}
