// Package labels converts the classifier's numeric output into disease names.
package labels

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Mapping is read-only after construction.
type Mapping struct {
	names map[string]string
}

func NewMapping(entries map[string]string) *Mapping {
	names := make(map[string]string, len(entries))
	for k, v := range entries {
		names[k] = v
	}
	return &Mapping{names: names}
}

// LoadMapping reads a JSON object keyed by string-encoded class index.
func LoadMapping(path string) (*Mapping, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read label mapping: %w", err)
	}
	var entries map[string]string
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("parse label mapping %s: %w", path, err)
	}
	return NewMapping(entries), nil
}

func (m *Mapping) Len() int {
	return len(m.names)
}

func (m *Mapping) Lookup(id string) (string, bool) {
	name, ok := m.names[id]
	return name, ok
}

// Resolve returns the disease name for id, or id itself when the mapping has no entry.
func (m *Mapping) Resolve(id string) string {
	if name, ok := m.names[id]; ok {
		return name
	}
	return id
}

func (m *Mapping) ResolveClass(class int) string {
	return m.Resolve(strconv.Itoa(class))
}

// Missing lists the classes with no mapping entry, ascending.
func (m *Mapping) Missing(classes []int) []int {
	var out []int
	for _, c := range classes {
		if _, ok := m.names[strconv.Itoa(c)]; !ok {
			out = append(out, c)
		}
	}
	sort.Ints(out)
	return out
}

// Entries returns a copy of the mapping.
func (m *Mapping) Entries() map[string]string {
	out := make(map[string]string, len(m.names))
	for k, v := range m.names {
		out[k] = v
	}
	return out
}
