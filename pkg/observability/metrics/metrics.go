package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	predictionsServed   atomic.Int64
	predictionCacheHits atomic.Int64
	unknownSymptoms     atomic.Int64
	unmappedLabels      atomic.Int64
	recordFailures      atomic.Int64
	eventFailures       atomic.Int64
	eventsArchived      atomic.Int64
)

func ObservePrediction(cached bool) {
	predictionsServed.Add(1)
	if cached {
		predictionCacheHits.Add(1)
	}
}

func ObserveUnknownSymptoms(n int) {
	unknownSymptoms.Add(int64(n))
}

func ObserveUnmappedLabel() {
	unmappedLabels.Add(1)
}

func ObserveRecordFailure() {
	recordFailures.Add(1)
}

func ObserveEventFailure() {
	eventFailures.Add(1)
}

func ObserveArchived() {
	eventsArchived.Add(1)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	PredictionsServed int64
	CacheHits         int64
	UnknownSymptoms   int64
	UnmappedLabels    int64
	RecordFailures    int64
	EventFailures     int64
	EventsArchived    int64
}

func Read() Snapshot {
	return Snapshot{
		PredictionsServed: predictionsServed.Load(),
		CacheHits:         predictionCacheHits.Load(),
		UnknownSymptoms:   unknownSymptoms.Load(),
		UnmappedLabels:    unmappedLabels.Load(),
		RecordFailures:    recordFailures.Load(),
		EventFailures:     eventFailures.Load(),
		EventsArchived:    eventsArchived.Load(),
	}
}

func writeCounter(w http.ResponseWriter, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, value)
}

func WritePrometheus(w http.ResponseWriter) {
	s := Read()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeCounter(w, "disease_predictions_served_total", "Number of predictions returned to callers.", s.PredictionsServed)
	writeCounter(w, "disease_prediction_cache_hits_total", "Number of predictions answered from the Redis cache.", s.CacheHits)
	writeCounter(w, "disease_prediction_unknown_symptoms_total", "Number of submitted symptoms outside the feature vocabulary.", s.UnknownSymptoms)
	writeCounter(w, "disease_prediction_unmapped_labels_total", "Number of predicted classes with no label mapping entry.", s.UnmappedLabels)
	writeCounter(w, "disease_prediction_record_failures_total", "Number of predictions that could not be appended to the CSV log.", s.RecordFailures)
	writeCounter(w, "disease_prediction_event_failures_total", "Number of prediction events that failed to publish.", s.EventFailures)
	writeCounter(w, "disease_prediction_events_archived_total", "Number of prediction events stored by the archive service.", s.EventsArchived)
}
