// Package interfaces defines the contracts between the packages of the DrugSafe API
// so that collaborators (reference data, extraction backend, evaluation engine)
// can be substituted in tests or by real implementations.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/vocabulary"
)

// DataQualityReport summarises problems found in a reference dataset.
type DataQualityReport struct {
	DuplicateMedications     []string
	DuplicateInteractionIDs  []string
	DuplicateInteractionKeys []string // "DrugA|DrugB", order-insensitive
	InvalidSeverities        []string // interaction IDs
	UnknownDosageDrugs       []string // dosage entries for drugs missing from the vocabulary
	UnknownAlternativeDrugs  []string
	EmptySampleTexts         int
}

// HasIssues reports whether the report contains anything worth logging.
func (r *DataQualityReport) HasIssues() bool {
	return len(r.DuplicateMedications) > 0 || len(r.DuplicateInteractionIDs) > 0 ||
		len(r.DuplicateInteractionKeys) > 0 || len(r.InvalidSeverities) > 0 ||
		len(r.UnknownDosageDrugs) > 0 || len(r.UnknownAlternativeDrugs) > 0 ||
		r.EmptySampleTexts > 0
}

// ReferenceStore provides thread-safe access to the reference dataset
// with atomic replacement for zero-downtime reloads.
type ReferenceStore interface {
	GetReferenceData() entities.ReferenceData
	GetMedications() []string
	GetConditions() []string
	GetSampleTexts() []string
	GetAnalysis() entities.AnalysisResult
	LookupMedications(query string) []string
	SuggestMedications(input string, selected vocabulary.Membership) []string
	GetLastUpdated() time.Time
	GetSource() string
	GetQualityReport() *DataQualityReport
	IsUpdating() bool
	GetServerStartTime() time.Time
	SetServerStartTime(t time.Time)

	UpdateData(ref entities.ReferenceData, source string, report *DataQualityReport)
	BeginUpdate() bool
	EndUpdate()
}

// ReferenceLoader loads a complete reference dataset from its source.
type ReferenceLoader interface {
	Load() (entities.ReferenceData, error)
	Source() string
}

// Extractor derives structured medication mentions from free clinical text.
// Implementations may block and must honour ctx cancellation.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]entities.ExtractedMedicationRecord, error)
}

// Evaluator produces interactions, dosage recommendations and alternatives
// for a set of selected drugs and a patient profile.
type Evaluator interface {
	Evaluate(ctx context.Context, drugs []string, profile entities.PatientProfile) (entities.AnalysisResult, error)
}

// Scheduler defines the contract for background jobs.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker reports service health.
type HealthChecker interface {
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// DataValidator validates user input and reference datasets.
type DataValidator interface {
	// ValidateInput checks a free-text name (medication, condition) typed by the user.
	ValidateInput(field, input string) error

	// ValidateClinicalText checks text submitted for extraction.
	ValidateClinicalText(text string) error

	// ValidateReferenceData rejects datasets the service cannot run on.
	ValidateReferenceData(ref entities.ReferenceData) error

	// ReportDataQuality lists non-fatal issues of a dataset.
	ReportDataQuality(ref entities.ReferenceData) *DataQualityReport
}

// HTTPHandler defines the API endpoints.
type HTTPHandler interface {
	CreateSession(w http.ResponseWriter, r *http.Request)
	GetSession(w http.ResponseWriter, r *http.Request)
	DeleteSession(w http.ResponseWriter, r *http.Request)

	GetProfile(w http.ResponseWriter, r *http.Request)
	UpdateProfile(w http.ResponseWriter, r *http.Request)
	AddCondition(w http.ResponseWriter, r *http.Request)
	RemoveCondition(w http.ResponseWriter, r *http.Request)
	AvailableConditions(w http.ResponseWriter, r *http.Request)

	ListMedications(w http.ResponseWriter, r *http.Request)
	AddMedication(w http.ResponseWriter, r *http.Request)
	RemoveMedication(w http.ResponseWriter, r *http.Request)
	SuggestMedications(w http.ResponseWriter, r *http.Request)

	StartExtraction(w http.ResponseWriter, r *http.Request)
	GetExtraction(w http.ResponseWriter, r *http.Request)
	CancelExtraction(w http.ResponseWriter, r *http.Request)

	GetAnalysis(w http.ResponseWriter, r *http.Request)

	LookupMedications(w http.ResponseWriter, r *http.Request)
	ListConditions(w http.ResponseWriter, r *http.Request)
	ListSampleTexts(w http.ResponseWriter, r *http.Request)

	HealthCheck(w http.ResponseWriter, r *http.Request)
}
