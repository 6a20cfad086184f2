package entities

// Gender is the patient gender as selected on the profile form.
// The zero value means the field was never set.
type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the known genders, including unset.
func (g Gender) Valid() bool {
	switch g {
	case GenderUnset, GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// AgeGroup is the age classification used for dosage display.
type AgeGroup string

const (
	AgeGroupPediatric AgeGroup = "Pediatric"
	AgeGroupAdult     AgeGroup = "Adult"
	AgeGroupGeriatric AgeGroup = "Geriatric"
)

// PatientProfile holds the patient data typed on the profile form.
// Age and Weight keep the raw numeric text; an empty string means unset.
type PatientProfile struct {
	Age        string   `json:"age"`
	Weight     string   `json:"weight"`
	Gender     Gender   `json:"gender"`
	Conditions []string `json:"conditions"`
}
