package profile

import (
	"strconv"
	"strings"

	"github.com/giygas/drugsafe-api/entities"
)

const (
	adultAge     = 18
	geriatricAge = 65
	maxAge       = 150
)

// ParseAge parses numeric age text as whole years. Parse failures are
// reported as *entities.ValidationError instead of an unclassified value.
func ParseAge(text string) (int, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, entities.NewValidationError("age", text, "must not be empty")
	}
	years, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, entities.NewValidationError("age", text, "must be a whole number")
	}
	return years, nil
}

// ClassifyYears maps an age in years to its group. Values are neither
// rounded nor clamped, so negative ages classify as Pediatric.
func ClassifyYears(years int) entities.AgeGroup {
	switch {
	case years < adultAge:
		return entities.AgeGroupPediatric
	case years < geriatricAge:
		return entities.AgeGroupAdult
	default:
		return entities.AgeGroupGeriatric
	}
}

// Classify parses text and returns its age group.
func Classify(text string) (entities.AgeGroup, error) {
	years, err := ParseAge(text)
	if err != nil {
		return "", err
	}
	return ClassifyYears(years), nil
}

// validateAge checks an age entered on the profile form.
func validateAge(text string) error {
	years, err := ParseAge(text)
	if err != nil {
		return err
	}
	if years < 0 || years > maxAge {
		return entities.NewValidationError("age", text, "must be between 0 and 150")
	}
	return nil
}
