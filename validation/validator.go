// Package validation checks user input at the API boundary and the quality
// of reference datasets before they are installed.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/interfaces"
)

const (
	MaxNameLength         = 100
	MaxClinicalTextLength = 10000
	maxRepeatedRunes      = 10
)

var (
	// Names: letters in any script, digits, spaces and the punctuation found in
	// drug and condition names ("Co-trimoxazole", "Vitamin B12 (oral)", "5%").
	nameRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+'(),/%]+$`)

	// Checked against lower-cased input with strings.Contains.
	markupPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "data:text/html",
		"onload=", "onerror=", "onclick=", "onmouseover=", "onfocus=",
		"<iframe", "<object", "<embed", "eval(", "expression(",
	}
	injectionPatterns = []string{
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(", "$(", "${", "`",
		"../", "..\\", "%2e%2e", "file://",
		"{$ne:", "{$gt:", "{$where:", "{$regex:",
	}
)

// Compile-time check
var _ interfaces.DataValidator = (*DataValidatorImpl)(nil)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() *DataValidatorImpl {
	return &DataValidatorImpl{}
}

// ValidateInput checks a medication or condition name typed by the user.
// The input is judged after trimming.
func (v *DataValidatorImpl) ValidateInput(field, input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return entities.NewValidationError(field, "", "cannot be empty")
	}

	if n := utf8.RuneCountInString(trimmed); n > MaxNameLength {
		return entities.NewValidationError(field, "", fmt.Sprintf("too long: %d characters, maximum %d", n, MaxNameLength))
	}

	lower := strings.ToLower(trimmed)
	if containsAny(lower, markupPatterns) || containsAny(lower, injectionPatterns) {
		return entities.NewValidationError(field, "", "contains potentially dangerous content")
	}

	if !nameRegex.MatchString(trimmed) {
		return entities.NewValidationError(field, trimmed, "contains invalid characters")
	}

	if hasExcessiveRepetition(trimmed) {
		return entities.NewValidationError(field, "", "contains excessive character repetition")
	}

	return nil
}

// ValidateClinicalText checks free text submitted for extraction. Clinical
// notes legitimately contain punctuation, so only markup is rejected.
func (v *DataValidatorImpl) ValidateClinicalText(text string) error {
	if strings.TrimSpace(text) == "" {
		return entities.NewValidationError("text", "", "cannot be empty")
	}

	if n := utf8.RuneCountInString(text); n > MaxClinicalTextLength {
		return entities.NewValidationError("text", "", fmt.Sprintf("too long: %d characters, maximum %d", n, MaxClinicalTextLength))
	}

	if !utf8.ValidString(text) {
		return entities.NewValidationError("text", "", "is not valid UTF-8")
	}

	if containsAny(strings.ToLower(text), markupPatterns) {
		return entities.NewValidationError("text", "", "contains markup")
	}

	return nil
}

// ValidateReferenceData rejects datasets the service cannot run on.
func (v *DataValidatorImpl) ValidateReferenceData(ref entities.ReferenceData) error {
	if len(ref.Medications) == 0 {
		return fmt.Errorf("no medications found")
	}

	for i, name := range ref.Medications {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("empty medication name at line %d", i+1)
		}
		if utf8.RuneCountInString(name) > MaxNameLength {
			return fmt.Errorf("medication name too long at line %d", i+1)
		}
	}

	for i, name := range ref.Conditions {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("empty condition name at line %d", i+1)
		}
	}

	for _, ix := range ref.Analysis.Interactions {
		if strings.TrimSpace(ix.ID) == "" {
			return fmt.Errorf("interaction %s/%s has no id", ix.DrugA, ix.DrugB)
		}
		if strings.TrimSpace(ix.DrugA) == "" || strings.TrimSpace(ix.DrugB) == "" {
			return fmt.Errorf("interaction %s is missing a drug", ix.ID)
		}
	}

	for _, d := range ref.Analysis.DosageRecommendations {
		if strings.TrimSpace(d.Drug) == "" {
			return fmt.Errorf("dosage recommendation without a drug")
		}
	}

	for _, a := range ref.Analysis.Alternatives {
		if strings.TrimSpace(a.Original) == "" || strings.TrimSpace(a.Alternative) == "" {
			return fmt.Errorf("alternative suggestion is missing a drug")
		}
	}

	return nil
}

// ReportDataQuality lists non-fatal issues. Names referenced by analysis
// records are checked against the medication vocabulary.
func (v *DataValidatorImpl) ReportDataQuality(ref entities.ReferenceData) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		DuplicateMedications:     []string{},
		DuplicateInteractionIDs:  []string{},
		DuplicateInteractionKeys: []string{},
		InvalidSeverities:        []string{},
		UnknownDosageDrugs:       []string{},
		UnknownAlternativeDrugs:  []string{},
	}

	known := make(map[string]bool, len(ref.Medications))
	for _, name := range ref.Medications {
		if known[name] {
			report.DuplicateMedications = append(report.DuplicateMedications, name)
		}
		known[name] = true
	}

	ids := make(map[string]bool)
	pairs := make(map[string]bool)
	for _, ix := range ref.Analysis.Interactions {
		if ids[ix.ID] {
			report.DuplicateInteractionIDs = append(report.DuplicateInteractionIDs, ix.ID)
		}
		ids[ix.ID] = true

		key := pairKey(ix.DrugA, ix.DrugB)
		if pairs[key] {
			report.DuplicateInteractionKeys = append(report.DuplicateInteractionKeys, key)
		}
		pairs[key] = true

		if !ix.Severity.Valid() {
			report.InvalidSeverities = append(report.InvalidSeverities, ix.ID)
		}
	}

	for _, d := range ref.Analysis.DosageRecommendations {
		if !known[d.Drug] {
			report.UnknownDosageDrugs = append(report.UnknownDosageDrugs, d.Drug)
		}
	}

	for _, a := range ref.Analysis.Alternatives {
		if !known[a.Original] {
			report.UnknownAlternativeDrugs = append(report.UnknownAlternativeDrugs, a.Original)
		}
	}

	for _, s := range ref.SampleTexts {
		if strings.TrimSpace(s) == "" {
			report.EmptySampleTexts++
		}
	}

	return report
}

// pairKey identifies an interaction regardless of drug order.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// hasExcessiveRepetition reports a rune repeated more than maxRepeatedRunes times in a row.
func hasExcessiveRepetition(input string) bool {
	var prev rune
	run := 0
	for _, r := range input {
		if r == prev {
			run++
			if run > maxRepeatedRunes {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}
	return false
}
