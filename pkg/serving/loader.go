package serving

import (
	"github.com/disease-prediction/platform/pkg/common/config"
	"github.com/disease-prediction/platform/pkg/common/logger"
	"github.com/disease-prediction/platform/pkg/features"
	"github.com/disease-prediction/platform/pkg/labels"
	"github.com/disease-prediction/platform/pkg/records"
	"github.com/disease-prediction/platform/pkg/serving/predictor"
)

// LoadFromConfig reads the vocabulary, label mapping and model once and checks that
// the model was trained on the same feature order. Callers must not serve on error.
func LoadFromConfig(cfg *config.Config, opts ...Option) (*Service, error) {
	vocab, err := features.LoadVocabulary(cfg.FeaturesPath)
	if err != nil {
		return nil, err
	}
	mapping, err := labels.LoadMapping(cfg.LabelMapPath)
	if err != nil {
		return nil, err
	}
	model, err := predictor.Load(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	if err := model.CheckSchema(vocab); err != nil {
		return nil, err
	}
	if missing := mapping.Missing(model.Classes()); len(missing) > 0 {
		logger.Log.WithField("classes", missing).Warn("label mapping has no entry for some model classes, raw class ids will be shown")
	}

	logger.Log.WithFields(map[string]interface{}{
		"features":      vocab.Len(),
		"labels":        mapping.Len(),
		"classes":       len(model.Classes()),
		"model_version": model.Version(),
	}).Info("Model loaded")

	return NewService(vocab, mapping, model, records.NewFileLog(cfg.PredictionsCSV), opts...), nil
}
