package linear

import (
	"errors"
	"fmt"
	"math"
)

var ErrShape = errors.New("weight shape mismatch")

// Multinomial is a one-vs-rest linear layer: one bias and one coefficient row per class.
type Multinomial struct {
	Bias         []float64   `json:"bias"`
	Coefficients [][]float64 `json:"coefficients"`
}

func (m Multinomial) Classes() int {
	return len(m.Coefficients)
}

// Width is the number of input features, zero when there are no classes.
func (m Multinomial) Width() int {
	if len(m.Coefficients) == 0 {
		return 0
	}
	return len(m.Coefficients[0])
}

func (m Multinomial) Validate() error {
	if len(m.Coefficients) == 0 {
		return fmt.Errorf("no classes: %w", ErrShape)
	}
	if len(m.Bias) != len(m.Coefficients) {
		return fmt.Errorf("%d biases for %d classes: %w", len(m.Bias), len(m.Coefficients), ErrShape)
	}
	width := m.Width()
	for i, row := range m.Coefficients {
		if len(row) != width {
			return fmt.Errorf("class %d has %d coefficients, want %d: %w", i, len(row), width, ErrShape)
		}
	}
	return nil
}

// Logits assumes a validated model and len(sample) == Width().
func Logits(m Multinomial, sample []float64) []float64 {
	out := make([]float64, len(m.Coefficients))
	for c, row := range m.Coefficients {
		out[c] = dot(row, sample) + m.Bias[c]
	}
	return out
}

func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	max := logits[0]
	for _, l := range logits[1:] {
		if l > max {
			max = l
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Argmax returns the first index holding the largest value, -1 for empty input.
func Argmax(values []float64) int {
	best := -1
	for i, v := range values {
		if best == -1 || v > values[best] {
			best = i
		}
	}
	return best
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}
