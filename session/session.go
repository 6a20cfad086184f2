// Package session holds the state of one open dashboard page: the patient
// profile, the medication selection and the extraction lifecycle.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/extraction"
	"github.com/giygas/drugsafe-api/interfaces"
	"github.com/giygas/drugsafe-api/profile"
	"github.com/giygas/drugsafe-api/selection"
	"github.com/giygas/drugsafe-api/vocabulary"
)

// UnsetAgeGroup is shown in the quick stats while no age is entered.
const UnsetAgeGroup = "--"

// Session is safe for concurrent use.
//
// Lock order is tracker, then session: the extraction completion hook runs
// under the tracker lock and takes mu, so no method may call into the tracker
// while holding mu.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	profile   *profile.Profile
	selection *selection.Selection

	tracker *extraction.Tracker
	ctx     context.Context
	cancel  context.CancelFunc
	closed  chan struct{}
	once    sync.Once
}

// Stats are the dashboard quick stats.
type Stats struct {
	MedicationCount int    `json:"medicationCount"`
	AgeGroup        string `json:"ageGroup"`
}

// ProfileView is the profile together with its derived age group.
type ProfileView struct {
	entities.PatientProfile
	AgeGroup string `json:"ageGroup"`
}

// Snapshot is a consistent copy of the whole session.
type Snapshot struct {
	ID          string              `json:"id"`
	CreatedAt   time.Time           `json:"createdAt"`
	Profile     ProfileView         `json:"profile"`
	Medications []string            `json:"medications"`
	Extraction  extraction.Snapshot `json:"extraction"`
	Stats       Stats               `json:"stats"`
}

// New creates an empty session whose extractions run on extractor, each
// bounded by timeout.
func New(id string, extractor interfaces.Extractor, timeout time.Duration) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		profile:   profile.New(),
		selection: selection.New(),
		ctx:       ctx,
		cancel:    cancel,
		closed:    make(chan struct{}),
	}
	s.tracker = extraction.NewTracker(extractor, timeout, s.mergeExtracted)
	return s
}

// mergeExtracted is the tracker completion hook.
func (s *Session) mergeExtracted(records []entities.ExtractedMedicationRecord) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.MergeExtracted(entities.DrugNames(records))
}

func (s *Session) ageGroupLocked() string {
	if g, ok := s.profile.AgeGroup(); ok {
		return string(g)
	}
	return UnsetAgeGroup
}

// Profile returns the profile and its age group.
func (s *Session) Profile() ProfileView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ProfileView{PatientProfile: s.profile.Snapshot(), AgeGroup: s.ageGroupLocked()}
}

// PatientProfile returns a copy of the raw profile.
func (s *Session) PatientProfile() entities.PatientProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.Snapshot()
}

// UpdateProfile applies u atomically.
func (s *Session) UpdateProfile(u profile.Update) (ProfileView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.profile.Apply(u); err != nil {
		return ProfileView{}, err
	}
	return ProfileView{PatientProfile: s.profile.Snapshot(), AgeGroup: s.ageGroupLocked()}, nil
}

// AddCondition appends a condition. A condition already listed yields
// entities.ErrDuplicateEntry and changes nothing.
func (s *Session) AddCondition(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.InsertCondition(name)
}

// RemoveCondition reports whether the condition was listed.
func (s *Session) RemoveCondition(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.RemoveCondition(name)
}

// AvailableConditions returns the entries of common not yet in the profile.
func (s *Session) AvailableConditions(common []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.AvailableConditions(common)
}

// Medications returns the selection in insertion order.
func (s *Session) Medications() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Names()
}

// AddMedication appends a trimmed medication name. Blank names are a
// validation error; names already selected yield entities.ErrDuplicateEntry.
func (s *Session) AddMedication(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return entities.NewValidationError("medication", "", "must not be blank")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Insert(name)
}

// RemoveMedication reports whether the medication was selected.
func (s *Session) RemoveMedication(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Remove(name)
}

// Suggester runs the suggestion filter over a medication vocabulary.
type Suggester interface {
	SuggestMedications(input string, selected vocabulary.Membership) []string
}

// Suggestions filters the vocabulary by input, leaving out medications already selected.
func (s *Session) Suggestions(input string, vocab Suggester) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return vocab.SuggestMedications(input, s.selection)
}

// StartExtraction begins extracting medications from text. The run ends with
// the session at the latest.
func (s *Session) StartExtraction(text string) error {
	return s.tracker.Start(s.ctx, text)
}

// WaitExtraction blocks until the current extraction settles or ctx ends.
func (s *Session) WaitExtraction(ctx context.Context) (extraction.Snapshot, error) {
	return s.tracker.Wait(ctx)
}

func (s *Session) Extraction() extraction.Snapshot {
	return s.tracker.Snapshot()
}

// CancelExtraction aborts an in-flight extraction.
func (s *Session) CancelExtraction() bool {
	return s.tracker.Cancel()
}

// Stats returns the quick stats.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{MedicationCount: s.selection.Len(), AgeGroup: s.ageGroupLocked()}
}

// Snapshot returns the whole session. The extraction state is read first,
// so a run completing concurrently may already show in Medications.
func (s *Session) Snapshot() Snapshot {
	ext := s.tracker.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		Profile:     ProfileView{PatientProfile: s.profile.Snapshot(), AgeGroup: s.ageGroupLocked()},
		Medications: s.selection.Names(),
		Extraction:  ext,
		Stats:       Stats{MedicationCount: s.selection.Len(), AgeGroup: s.ageGroupLocked()},
	}
}

// Close cancels any extraction and releases the session. It is idempotent.
func (s *Session) Close() {
	s.close()
}

// close reports whether this call was the one that closed the session.
func (s *Session) close() bool {
	first := false
	s.once.Do(func() {
		first = true
		s.cancel()
		s.tracker.Close()
		close(s.closed)
	})
	return first
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
