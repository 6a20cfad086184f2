// Package profile holds the patient profile typed on the dashboard and the
// age-group classification derived from it.
//
// A Profile is not safe for concurrent use; the owning session serialises access.
package profile

import (
	"slices"
	"strconv"
	"strings"

	"github.com/giygas/drugsafe-api/entities"
)

const maxWeightKg = 700

// Profile is the mutable patient profile of one session.
type Profile struct {
	age        string
	weight     string
	gender     entities.Gender
	conditions []string
}

// New returns an empty profile: every field unset, no conditions.
func New() *Profile {
	return &Profile{}
}

// SetAge stores the age text. Empty text unsets the age; malformed text is
// rejected and the previous value is kept.
func (p *Profile) SetAge(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		p.age = ""
		return nil
	}
	if err := validateAge(text); err != nil {
		return err
	}
	p.age = text
	return nil
}

// SetWeight stores the weight text in kilograms. Empty text unsets the weight.
func (p *Profile) SetWeight(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		p.weight = ""
		return nil
	}
	kg, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return entities.NewValidationError("weight", text, "must be a number")
	}
	if kg <= 0 || kg > maxWeightKg {
		return entities.NewValidationError("weight", text, "must be greater than 0 and at most 700")
	}
	p.weight = text
	return nil
}

// SetGender stores the gender; entities.GenderUnset clears it.
func (p *Profile) SetGender(g entities.Gender) error {
	if !g.Valid() {
		return entities.NewValidationError("gender", string(g), "must be one of male, female, other")
	}
	p.gender = g
	return nil
}

// Update carries optional demographic changes; nil fields are left alone.
type Update struct {
	Age    *string
	Weight *string
	Gender *entities.Gender
}

// Apply sets every field present in u, or none of them when any is rejected.
func (p *Profile) Apply(u Update) error {
	next := *p
	if u.Age != nil {
		if err := next.SetAge(*u.Age); err != nil {
			return err
		}
	}
	if u.Weight != nil {
		if err := next.SetWeight(*u.Weight); err != nil {
			return err
		}
	}
	if u.Gender != nil {
		if err := next.SetGender(*u.Gender); err != nil {
			return err
		}
	}
	*p = next
	return nil
}

// InsertCondition appends a condition, returning entities.ErrDuplicateEntry
// when it is already listed.
func (p *Profile) InsertCondition(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return entities.NewValidationError("condition", "", "must not be blank")
	}
	if slices.Contains(p.conditions, name) {
		return entities.ErrDuplicateEntry
	}
	p.conditions = append(p.conditions, name)
	return nil
}

// AddCondition appends a condition unless present and reports whether it was added.
func (p *Profile) AddCondition(name string) bool {
	return p.InsertCondition(name) == nil
}

// RemoveCondition removes a condition and reports whether it was present.
func (p *Profile) RemoveCondition(name string) bool {
	before := len(p.conditions)
	p.conditions = slices.DeleteFunc(p.conditions, func(c string) bool { return c == name })
	return len(p.conditions) != before
}

// HasCondition reports whether the condition is listed.
func (p *Profile) HasCondition(name string) bool {
	return slices.Contains(p.conditions, name)
}

// AgeGroup classifies the current age. ok is false while the age is unset.
func (p *Profile) AgeGroup() (group entities.AgeGroup, ok bool) {
	if p.age == "" {
		return "", false
	}
	group, err := Classify(p.age)
	if err != nil {
		return "", false
	}
	return group, true
}

// Snapshot returns a copy of the profile.
func (p *Profile) Snapshot() entities.PatientProfile {
	return entities.PatientProfile{
		Age:        p.age,
		Weight:     p.weight,
		Gender:     p.gender,
		Conditions: append([]string{}, p.conditions...),
	}
}

// AvailableConditions returns the entries of common not yet in the profile.
func (p *Profile) AvailableConditions(common []string) []string {
	available := make([]string, 0, len(common))
	for _, c := range common {
		if !p.HasCondition(c) {
			available = append(available, c)
		}
	}
	return available
}
