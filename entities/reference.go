package entities

// ReferenceData is the full read-only dataset the service works from:
// vocabularies used for search and the canned analysis records.
type ReferenceData struct {
	Medications []string
	Conditions  []string
	SampleTexts []string
	Analysis    AnalysisResult
}

// Clone returns a deep copy so callers can never mutate shared reference data.
func (r ReferenceData) Clone() ReferenceData {
	return ReferenceData{
		Medications: append([]string(nil), r.Medications...),
		Conditions:  append([]string(nil), r.Conditions...),
		SampleTexts: append([]string(nil), r.SampleTexts...),
		Analysis:    r.Analysis.Clone(),
	}
}

// Clone returns a deep copy of the result collections.
func (a AnalysisResult) Clone() AnalysisResult {
	return AnalysisResult{
		Interactions:          append([]InteractionRecord{}, a.Interactions...),
		DosageRecommendations: append([]DosageRecommendation{}, a.DosageRecommendations...),
		Alternatives:          append([]AlternativeSuggestion{}, a.Alternatives...),
	}
}
