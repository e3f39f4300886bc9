package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disease-prediction/platform/pkg/features"
	"github.com/disease-prediction/platform/pkg/ml/linear"
)

var (
	ErrSchemaMismatch       = errors.New("model schema does not match feature vocabulary")
	ErrUnsupportedAlgorithm = errors.New("unsupported model algorithm")
)

const AlgorithmMultinomialLogistic = "multinomial_logistic"

type Artifact struct {
	Model struct {
		Type         string             `json:"type"`
		Algorithm    string             `json:"algorithm"`
		Version      string             `json:"version"`
		FeatureNames []string           `json:"feature_names"`
		Classes      []int              `json:"classes"`
		Weights      linear.Multinomial `json:"weights"`
	} `json:"model"`
}

type Prediction struct {
	Class         int
	Confidence    float64
	Probabilities []float64
}

// Predictor wraps an artifact loaded once at startup. It holds no mutable state and is
// safe for concurrent use.
type Predictor struct {
	artifact Artifact
	classes  []int
}

func Load(path string) (*Predictor, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}
	return New(artifact)
}

func New(artifact Artifact) (*Predictor, error) {
	switch artifact.Model.Algorithm {
	case "", AlgorithmMultinomialLogistic:
	default:
		return nil, fmt.Errorf("%q: %w", artifact.Model.Algorithm, ErrUnsupportedAlgorithm)
	}
	weights := artifact.Model.Weights
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("model weights: %w", err)
	}
	if names := artifact.Model.FeatureNames; len(names) > 0 && len(names) != weights.Width() {
		return nil, fmt.Errorf("%d feature names for %d coefficients: %w", len(names), weights.Width(), ErrSchemaMismatch)
	}

	classes := artifact.Model.Classes
	if len(classes) == 0 {
		classes = make([]int, weights.Classes())
		for i := range classes {
			classes[i] = i
		}
	}
	if len(classes) != weights.Classes() {
		return nil, fmt.Errorf("%d class ids for %d weight rows: %w", len(classes), weights.Classes(), linear.ErrShape)
	}

	return &Predictor{artifact: artifact, classes: classes}, nil
}

// CheckSchema enforces the inference contract: the artifact's feature order must be
// the vocabulary order. Artifacts without feature names only need a matching width.
func (p *Predictor) CheckSchema(vocab *features.Vocabulary) error {
	width := p.artifact.Model.Weights.Width()
	if width != vocab.Len() {
		return fmt.Errorf("model expects %d features, vocabulary has %d: %w", width, vocab.Len(), ErrSchemaMismatch)
	}
	names := p.artifact.Model.FeatureNames
	if len(names) == 0 {
		return nil
	}
	for i, name := range vocab.Names() {
		if names[i] != name {
			return fmt.Errorf("position %d: model has %q, vocabulary has %q: %w", i, names[i], name, ErrSchemaMismatch)
		}
	}
	return nil
}

func (p *Predictor) Predict(vec features.Vector) (Prediction, error) {
	weights := p.artifact.Model.Weights
	if vec.Len() != weights.Width() {
		return Prediction{}, fmt.Errorf("vector has %d features, model expects %d: %w", vec.Len(), weights.Width(), ErrSchemaMismatch)
	}
	probs := linear.Softmax(linear.Logits(weights, vec.Floats()))
	best := linear.Argmax(probs)
	return Prediction{
		Class:         p.classes[best],
		Confidence:    probs[best],
		Probabilities: probs,
	}, nil
}

func (p *Predictor) Classes() []int {
	out := make([]int, len(p.classes))
	copy(out, p.classes)
	return out
}

func (p *Predictor) Version() string {
	if p.artifact.Model.Version == "" {
		return "latest"
	}
	return p.artifact.Model.Version
}
