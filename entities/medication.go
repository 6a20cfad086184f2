package entities

import "encoding/json"

// ExtractedMedicationRecord is a medication mention found in free clinical text.
// Confidence is always produced by the extraction service, in [0,1].
type ExtractedMedicationRecord struct {
	DrugName   string  `json:"drugName"`
	Dosage     string  `json:"dosage"`
	Frequency  string  `json:"frequency"`
	Duration   string  `json:"duration"`
	Confidence float64 `json:"confidence"`
}

// ConfidenceBand buckets an extraction confidence for display.
type ConfidenceBand string

const (
	ConfidenceHigh   ConfidenceBand = "high"
	ConfidenceMedium ConfidenceBand = "medium"
	ConfidenceLow    ConfidenceBand = "low"
)

// Band returns the display band of the record confidence.
func (r ExtractedMedicationRecord) Band() ConfidenceBand {
	switch {
	case r.Confidence >= 0.9:
		return ConfidenceHigh
	case r.Confidence >= 0.8:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// MarshalJSON adds the display band to the record fields.
func (r ExtractedMedicationRecord) MarshalJSON() ([]byte, error) {
	type fields ExtractedMedicationRecord
	return json.Marshal(struct {
		fields
		Band ConfidenceBand `json:"band"`
	}{fields(r), r.Band()})
}

// DrugNames returns the drug names of records, in order.
func DrugNames(records []ExtractedMedicationRecord) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.DrugName)
	}
	return names
}
