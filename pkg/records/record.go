// Package records keeps the append-only CSV log of served predictions.
package records

import (
	"strings"
)

const symptomSeparator = ", "

// Record is one logged prediction. The csv tags define the header row.
type Record struct {
	PatientName      string `csv:"Patient Name" json:"patient_name"`
	Gender           string `csv:"Gender" json:"gender"`
	AgeGroup         string `csv:"Age Group" json:"age_group"`
	Symptoms         string `csv:"Symptoms" json:"symptoms"`
	PredictedDisease string `csv:"Predicted Disease" json:"predicted_disease"`
}

func NewRecord(name, gender, ageGroup string, symptoms []string, disease string) Record {
	return Record{
		PatientName:      name,
		Gender:           gender,
		AgeGroup:         ageGroup,
		Symptoms:         strings.Join(symptoms, symptomSeparator),
		PredictedDisease: disease,
	}
}

// SymptomList splits the joined Symptoms column back into identifiers. The column is
// joined with ", ", so an identifier that itself contains ", " comes back as
// several entries; vocabulary identifiers never do.
func (r Record) SymptomList() []string {
	if r.Symptoms == "" {
		return nil
	}
	return strings.Split(r.Symptoms, symptomSeparator)
}
