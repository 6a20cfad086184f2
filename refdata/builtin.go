// Package refdata provides the reference dataset: the medication and
// condition vocabularies, sample clinical texts and the canned analysis
// records. It ships a built-in dataset and can load one from a directory.
package refdata

import "github.com/giygas/drugsafe-api/entities"

// BuiltinSource identifies the embedded dataset in logs and health output.
const BuiltinSource = "builtin"

var commonMedications = []string{
	"Aspirin",
	"Ibuprofen",
	"Acetaminophen",
	"Warfarin",
	"Metformin",
	"Lisinopril",
	"Simvastatin",
	"Omeprazole",
	"Amlodipine",
	"Metoprolol",
}

var commonConditions = []string{
	"Hypertension",
	"Diabetes",
	"Heart Disease",
	"Kidney Disease",
	"Liver Disease",
	"Asthma",
	"Depression",
	"Anxiety",
}

var sampleTexts = []string{
	"Patient is prescribed Metformin 500mg twice daily for diabetes management, along with Lisinopril 10mg once daily for blood pressure control.",
	"Rx: Aspirin 81mg QD, Simvastatin 20mg HS, continue current medications",
	"The patient should take Omeprazole 20mg before breakfast and Metoprolol 50mg BID with meals.",
}

var staticAnalysis = entities.AnalysisResult{
	Interactions: []entities.InteractionRecord{
		{
			ID:             "1",
			DrugA:          "Warfarin",
			DrugB:          "Aspirin",
			Severity:       entities.SeverityHigh,
			Description:    "Increased risk of bleeding when these medications are taken together.",
			Recommendation: "Monitor INR closely and consider dose adjustment. Use gastroprotective therapy.",
		},
	},
	DosageRecommendations: []entities.DosageRecommendation{
		{
			Drug:      "Metformin",
			Dosage:    "500mg",
			Frequency: "Twice daily with meals",
			AgeGroup:  "Adult",
			Notes:     "Start with lower dose if kidney function is impaired",
		},
		{
			Drug:      "Lisinopril",
			Dosage:    "5mg",
			Frequency: "Once daily",
			AgeGroup:  "Adult",
			Notes:     "Monitor blood pressure and kidney function",
		},
	},
	Alternatives: []entities.AlternativeSuggestion{
		{
			Original:      "Aspirin",
			Alternative:   "Clopidogrel",
			Reason:        "Lower bleeding risk when combined with Warfarin",
			Effectiveness: "Equivalent",
		},
	},
}

// Builtin returns a fresh copy of the embedded dataset.
func Builtin() entities.ReferenceData {
	return entities.ReferenceData{
		Medications: commonMedications,
		Conditions:  commonConditions,
		SampleTexts: sampleTexts,
		Analysis:    staticAnalysis,
	}.Clone()
}

// BuiltinLoader serves the embedded dataset. It never fails.
type BuiltinLoader struct{}

func (BuiltinLoader) Load() (entities.ReferenceData, error) {
	return Builtin(), nil
}

func (BuiltinLoader) Source() string {
	return BuiltinSource
}
