package entities

// Severity of a drug interaction. It only drives display styling.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh:
		return true
	}
	return false
}

// InteractionRecord flags a pair of interacting medications.
type InteractionRecord struct {
	ID             string   `json:"id"`
	DrugA          string   `json:"drugA"`
	DrugB          string   `json:"drugB"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

// DosageRecommendation is an age-appropriate dosage entry for one drug.
type DosageRecommendation struct {
	Drug      string `json:"drug"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	AgeGroup  string `json:"ageGroup"`
	Notes     string `json:"notes"`
}

// AlternativeSuggestion proposes a substitute for a medication.
type AlternativeSuggestion struct {
	Original      string `json:"original"`
	Alternative   string `json:"alternative"`
	Reason        string `json:"reason"`
	Effectiveness string `json:"effectiveness"`
}

// AnalysisResult groups the three analysis collections shown on the dashboard.
type AnalysisResult struct {
	Interactions          []InteractionRecord     `json:"interactions"`
	DosageRecommendations []DosageRecommendation  `json:"dosageRecommendations"`
	Alternatives          []AlternativeSuggestion `json:"alternatives"`
}
