package serving

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/disease-prediction/platform/pkg/common/models"
)

const maxFieldLength = 200

var errFieldTooLong = errors.New("field too long")

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Validator bounds the free-text patient fields. Symptoms are never a validation
// failure: anything that cannot be a vocabulary entry is dropped by sanitizeSymptoms.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(req models.PredictionRequest) error {
	fields := []struct{ name, value string }{
		{"name", req.Name},
		{"gender", req.Gender},
		{"age_group", req.AgeGroup},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > maxFieldLength {
			return ValidationError{reason: fmt.Errorf("%s exceeds %d characters: %w", f.name, maxFieldLength, errFieldTooLong)}
		}
	}
	return nil
}

// sanitizeSymptoms drops blank entries from unused form slots, and identifiers that
// are oversized or not valid UTF-8. It reports how many non-blank entries it dropped.
func sanitizeSymptoms(symptoms []string) ([]string, int) {
	out := make([]string, 0, len(symptoms))
	dropped := 0
	for _, s := range symptoms {
		switch {
		case s == "":
		case !utf8.ValidString(s) || utf8.RuneCountInString(s) > maxFieldLength:
			dropped++
		default:
			out = append(out, s)
		}
	}
	return out, dropped
}
