package records

import (
	"reflect"
	"testing"
)

func TestSymptomList(t *testing.T) {
	cases := map[string]struct {
		symptoms []string
		want     []string
	}{
		"empty":     {nil, nil},
		"single":    {[]string{"itching"}, []string{"itching"}},
		"several":   {[]string{"fatigue", "nausea"}, []string{"fatigue", "nausea"}},
		"separator": {[]string{"pain, chest", "nausea"}, []string{"pain", "chest", "nausea"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := NewRecord("A", "", "", tc.symptoms, "x").SymptomList()
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
