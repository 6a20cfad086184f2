// Package data holds the reference dataset in memory and swaps it atomically
// so readers never observe a partially loaded dataset.
package data

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/interfaces"
	"github.com/giygas/drugsafe-api/logging"
	"github.com/giygas/drugsafe-api/vocabulary"
)

// Compile-time check to ensure ReferenceContainer implements ReferenceStore
var _ interfaces.ReferenceStore = (*ReferenceContainer)(nil)

// dataset is one immutable generation of reference data.
type dataset struct {
	ref         entities.ReferenceData
	medications *vocabulary.Vocabulary
	conditions  *vocabulary.Vocabulary
	source      string
	report      *interfaces.DataQualityReport
	loadedAt    time.Time
}

var emptyDataset = &dataset{
	ref:         entities.ReferenceData{}.Clone(),
	medications: vocabulary.New(nil),
	conditions:  vocabulary.New(nil),
	report:      &interfaces.DataQualityReport{},
}

// ReferenceContainer serves the current reference dataset.
type ReferenceContainer struct {
	current         atomic.Pointer[dataset]
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewReferenceContainer creates an empty container. Until the first
// UpdateData every getter returns empty collections.
func NewReferenceContainer() *ReferenceContainer {
	rc := &ReferenceContainer{}
	rc.current.Store(emptyDataset)
	rc.serverStartTime.Store(time.Time{})
	return rc
}

func (rc *ReferenceContainer) load() *dataset {
	if d := rc.current.Load(); d != nil {
		return d
	}
	logging.Warn("Reference container used before initialisation")
	return emptyDataset
}

// GetReferenceData returns a deep copy of the whole dataset.
func (rc *ReferenceContainer) GetReferenceData() entities.ReferenceData {
	return rc.load().ref.Clone()
}

// GetMedications returns the medication vocabulary in source order.
func (rc *ReferenceContainer) GetMedications() []string {
	return rc.load().medications.Names()
}

// GetConditions returns the common condition vocabulary in source order.
func (rc *ReferenceContainer) GetConditions() []string {
	return rc.load().conditions.Names()
}

func (rc *ReferenceContainer) GetSampleTexts() []string {
	return append([]string{}, rc.load().ref.SampleTexts...)
}

// GetAnalysis returns a copy of the canned analysis records.
func (rc *ReferenceContainer) GetAnalysis() entities.AnalysisResult {
	return rc.load().ref.Analysis.Clone()
}

// LookupMedications searches the medication vocabulary case-insensitively.
func (rc *ReferenceContainer) LookupMedications(query string) []string {
	return rc.load().medications.Lookup(query)
}

// SuggestMedications applies the suggestion filter to the medication
// vocabulary, leaving out selected names. The result is never nil.
func (rc *ReferenceContainer) SuggestMedications(input string, selected vocabulary.Membership) []string {
	out := slices.Collect(rc.load().medications.Suggest(input, selected))
	if out == nil {
		out = []string{}
	}
	return out
}

// GetLastUpdated returns when the current dataset was installed; zero if never.
func (rc *ReferenceContainer) GetLastUpdated() time.Time {
	return rc.load().loadedAt
}

// GetSource names where the current dataset came from.
func (rc *ReferenceContainer) GetSource() string {
	return rc.load().source
}

// GetQualityReport returns the quality report computed for the current dataset.
func (rc *ReferenceContainer) GetQualityReport() *interfaces.DataQualityReport {
	return rc.load().report
}

// IsUpdating returns true if a data update is currently in progress
func (rc *ReferenceContainer) IsUpdating() bool {
	return rc.updating.Load()
}

// SetServerStartTime records when the process started serving.
func (rc *ReferenceContainer) SetServerStartTime(startTime time.Time) {
	rc.serverStartTime.Store(startTime)
}

func (rc *ReferenceContainer) GetServerStartTime() time.Time {
	t, _ := rc.serverStartTime.Load().(time.Time)
	return t
}

// UpdateData installs ref as the current dataset in a single atomic swap.
// The container keeps its own copy of ref.
func (rc *ReferenceContainer) UpdateData(ref entities.ReferenceData, source string, report *interfaces.DataQualityReport) {
	if report == nil {
		report = &interfaces.DataQualityReport{}
	}
	ref = ref.Clone()
	rc.current.Store(&dataset{
		ref:         ref,
		medications: vocabulary.New(ref.Medications),
		conditions:  vocabulary.New(ref.Conditions),
		source:      source,
		report:      report,
		loadedAt:    time.Now(),
	})
}

// BeginUpdate marks the start of a data update operation
// Returns true if update can proceed, false if another update is in progress
func (rc *ReferenceContainer) BeginUpdate() bool {
	return rc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a data update operation
func (rc *ReferenceContainer) EndUpdate() {
	rc.updating.Store(false)
}
