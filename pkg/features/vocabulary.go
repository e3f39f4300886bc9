// Package features turns a patient's symptom selection into the fixed-order
// binary row the disease classifier was trained on.
package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyVocabulary  = errors.New("feature vocabulary is empty")
	ErrDuplicateFeature = errors.New("duplicate feature in vocabulary")
	ErrBlankFeature     = errors.New("blank feature in vocabulary")
)

// Vocabulary is the ordered symptom list. It is never mutated after construction,
// so a single instance is shared by every request.
type Vocabulary struct {
	names []string
	index map[string]int
}

func NewVocabulary(names []string) (*Vocabulary, error) {
	if len(names) == 0 {
		return nil, ErrEmptyVocabulary
	}
	v := &Vocabulary{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("position %d: %w", i, ErrBlankFeature)
		}
		if _, dup := v.index[name]; dup {
			return nil, fmt.Errorf("%q: %w", name, ErrDuplicateFeature)
		}
		v.names[i] = name
		v.index[name] = i
	}
	return v, nil
}

// LoadVocabulary reads a JSON array of feature column names.
func LoadVocabulary(path string) (*Vocabulary, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	var names []string
	if err := json.Unmarshal(content, &names); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	return NewVocabulary(names)
}

func (v *Vocabulary) Len() int {
	return len(v.names)
}

// Names returns a copy of the ordered feature names.
func (v *Vocabulary) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

func (v *Vocabulary) Contains(name string) bool {
	_, ok := v.index[name]
	return ok
}

// Encode marks each vocabulary entry present in symptoms with 1 and every other entry
// with 0. Matching is exact; identifiers outside the vocabulary are dropped.
func (v *Vocabulary) Encode(symptoms []string) Vector {
	values := make([]uint8, len(v.names))
	for _, s := range symptoms {
		if pos, ok := v.index[s]; ok {
			values[pos] = 1
		}
	}
	return Vector{names: v.names, values: values}
}

// Unknown lists the identifiers Encode would drop, in input order.
func (v *Vocabulary) Unknown(symptoms []string) []string {
	var out []string
	for _, s := range symptoms {
		if !v.Contains(s) {
			out = append(out, s)
		}
	}
	return out
}
