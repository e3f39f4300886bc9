package features

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
)

// Vector holds one 0/1 indicator per vocabulary entry, in vocabulary order.
type Vector struct {
	names  []string
	values []uint8
}

func (x Vector) Len() int {
	return len(x.values)
}

func (x Vector) Names() []string {
	out := make([]string, len(x.names))
	copy(out, x.names)
	return out
}

// Value reports the indicator for name and whether name is part of the schema.
func (x Vector) Value(name string) (int, bool) {
	for i, n := range x.names {
		if n == name {
			return int(x.values[i]), true
		}
	}
	return 0, false
}

func (x Vector) Values() []int {
	out := make([]int, len(x.values))
	for i, b := range x.values {
		out[i] = int(b)
	}
	return out
}

// Floats is the single inference row.
func (x Vector) Floats() []float64 {
	out := make([]float64, len(x.values))
	for i, b := range x.values {
		out[i] = float64(b)
	}
	return out
}

func (x Vector) Map() map[string]int {
	out := make(map[string]int, len(x.values))
	for i, name := range x.names {
		out[name] = int(x.values[i])
	}
	return out
}

// Active returns the set features in vocabulary order.
func (x Vector) Active() []string {
	var out []string
	for i, b := range x.values {
		if b == 1 {
			out = append(out, x.names[i])
		}
	}
	return out
}

func (x Vector) Count() int {
	n := 0
	for _, b := range x.values {
		n += int(b)
	}
	return n
}

// Key packs the indicators into a hex string. Equal vectors over the same vocabulary
// always share a key.
func (x Vector) Key() string {
	packed := make([]byte, (len(x.values)+7)/8)
	for i, b := range x.values {
		if b == 1 {
			packed[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return hex.EncodeToString(packed)
}

// MarshalJSON writes an object whose keys keep vocabulary order.
func (x Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range x.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteByte('0' + x.values[i])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
