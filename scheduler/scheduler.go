// Package scheduler runs the background jobs of the DrugSafe API: the initial
// reference data load, periodic reloads from disk, rate limiter sweeps, the
// live session gauge and reference data staleness warnings.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/interfaces"
	"github.com/giygas/drugsafe-api/logging"
	"github.com/giygas/drugsafe-api/metrics"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const (
	sweepInterval       = 30 * time.Minute
	sessionGaugeRefresh = time.Minute
	stalenessCheck      = time.Hour
)

// Sweeper drops idle rate limiter state.
type Sweeper interface {
	Sweep() int
}

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// Options selects the jobs to run. Zero durations and nil collaborators disable
// the matching job.
type Options struct {
	RefreshInterval time.Duration // reference data reload period
	StaleAfter      time.Duration // warn when data is older than this
	Limiter         Sweeper
	Sessions        SessionCounter
}

// Scheduler handles reference data updates and periodic housekeeping
type Scheduler struct {
	store     interfaces.ReferenceStore
	loader    interfaces.ReferenceLoader
	validator interfaces.DataValidator
	opts      Options
	scheduler *gocron.Scheduler
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(store interfaces.ReferenceStore, loader interfaces.ReferenceLoader, validator interfaces.DataValidator, opts Options) *Scheduler {
	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()

	return &Scheduler{
		store:     store,
		loader:    loader,
		validator: validator,
		opts:      opts,
		scheduler: s,
		now:       time.Now,
	}
}

// Start performs the initial load, then schedules the periodic jobs.
func (s *Scheduler) Start() error {
	if err := s.updateData(); err != nil {
		logging.Error("Failed to perform initial data load", "error", err)
		return fmt.Errorf("initial data load failed: %w", err)
	}

	if s.opts.RefreshInterval > 0 {
		if _, err := s.scheduler.Every(s.opts.RefreshInterval).WaitForSchedule().Do(func() {
			if err := s.updateData(); err != nil {
				logging.Error("Failed to update reference data, keeping previous dataset", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule reference reloads: %w", err)
		}
	}

	if s.opts.Limiter != nil {
		if _, err := s.scheduler.Every(sweepInterval).WaitForSchedule().Do(s.sweepRateLimiter); err != nil {
			return fmt.Errorf("failed to schedule rate limiter sweep: %w", err)
		}
	}

	if s.opts.Sessions != nil {
		if _, err := s.scheduler.Every(sessionGaugeRefresh).Do(s.recordSessions); err != nil {
			return fmt.Errorf("failed to schedule session gauge: %w", err)
		}
	}

	if s.opts.StaleAfter > 0 {
		if _, err := s.scheduler.Every(stalenessCheck).WaitForSchedule().Do(s.checkStaleness); err != nil {
			return fmt.Errorf("failed to schedule staleness check: %w", err)
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Reload loads the reference data again outside the schedule.
func (s *Scheduler) Reload() error {
	return s.updateData()
}

// updateData loads, validates and installs a reference dataset. A dataset
// that fails to load or validate leaves the current one in place.
func (s *Scheduler) updateData() error {
	if !s.store.BeginUpdate() {
		logging.Info("Update already in progress, skipping...")
		return nil
	}
	defer s.store.EndUpdate()

	source := s.loader.Source()
	logging.Info("Starting reference data update", "source", source)
	start := time.Now()

	ref, err := s.loader.Load()
	if err != nil {
		metrics.ReferenceReloadsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to load reference data from %s: %w", source, err)
	}

	if err := s.validator.ValidateReferenceData(ref); err != nil {
		metrics.ReferenceReloadsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("reference data from %s rejected: %w", source, err)
	}

	report := s.validator.ReportDataQuality(ref)
	logQualityReport(report)

	s.store.UpdateData(ref, source, report)
	recordDataset(ref)
	metrics.ReferenceReloadsTotal.WithLabelValues("success").Inc()

	logging.Info("Reference data update completed",
		"duration", time.Since(start).String(),
		"medication_count", len(ref.Medications),
		"condition_count", len(ref.Conditions),
		"interaction_count", len(ref.Analysis.Interactions))

	return nil
}

func logQualityReport(report *interfaces.DataQualityReport) {
	if len(report.DuplicateMedications) > 0 {
		logging.Warn("Duplicate medications detected",
			"total", len(report.DuplicateMedications),
			"medications", report.DuplicateMedications)
	}
	if len(report.DuplicateInteractionIDs) > 0 {
		logging.Warn("Duplicate interaction IDs detected",
			"total", len(report.DuplicateInteractionIDs),
			"ids", report.DuplicateInteractionIDs)
	}
	if len(report.DuplicateInteractionKeys) > 0 {
		logging.Warn("Drug pairs with several interaction records",
			"total", len(report.DuplicateInteractionKeys),
			"pairs", report.DuplicateInteractionKeys)
	}
	if len(report.InvalidSeverities) > 0 {
		logging.Warn("Interactions with unknown severity",
			"total", len(report.InvalidSeverities),
			"ids", report.InvalidSeverities)
	}
	if len(report.UnknownDosageDrugs) > 0 {
		logging.Warn("Dosage recommendations for drugs outside the vocabulary",
			"drugs", report.UnknownDosageDrugs)
	}
	if len(report.UnknownAlternativeDrugs) > 0 {
		logging.Warn("Alternatives for drugs outside the vocabulary",
			"drugs", report.UnknownAlternativeDrugs)
	}
	if report.EmptySampleTexts > 0 {
		logging.Warn("Empty sample texts", "count", report.EmptySampleTexts)
	}
}

func recordDataset(ref entities.ReferenceData) {
	metrics.ReferenceRecords.WithLabelValues("medications").Set(float64(len(ref.Medications)))
	metrics.ReferenceRecords.WithLabelValues("conditions").Set(float64(len(ref.Conditions)))
	metrics.ReferenceRecords.WithLabelValues("samples").Set(float64(len(ref.SampleTexts)))
	metrics.ReferenceRecords.WithLabelValues("interactions").Set(float64(len(ref.Analysis.Interactions)))
	metrics.ReferenceRecords.WithLabelValues("dosages").Set(float64(len(ref.Analysis.DosageRecommendations)))
	metrics.ReferenceRecords.WithLabelValues("alternatives").Set(float64(len(ref.Analysis.Alternatives)))
}

func (s *Scheduler) sweepRateLimiter() {
	if removed := s.opts.Limiter.Sweep(); removed > 0 {
		logging.Debug("Rate limiter swept", "removed", removed)
	}
}

func (s *Scheduler) recordSessions() {
	metrics.SessionsActive.Set(float64(s.opts.Sessions.Len()))
}

// stale reports whether the data is older than StaleAfter, and its age.
func (s *Scheduler) stale() (time.Duration, bool) {
	age := s.now().Sub(s.store.GetLastUpdated())
	return age, age > s.opts.StaleAfter
}

// checkStaleness warns when reloads have stopped succeeding.
func (s *Scheduler) checkStaleness() {
	if age, stale := s.stale(); stale {
		logging.Warn("Reference data is stale",
			"last_update", s.store.GetLastUpdated().Format(time.RFC3339),
			"age", age.Round(time.Minute).String())
	}
}
