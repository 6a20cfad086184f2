package extraction

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/interfaces"
	"github.com/giygas/drugsafe-api/logging"
	"github.com/giygas/drugsafe-api/metrics"
)

// Status is the lifecycle state of a session's extraction.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusAnalyzing Status = "analyzing"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
)

// Snapshot is a point-in-time copy of the tracker state.
type Snapshot struct {
	Status     Status                               `json:"status"`
	Records    []entities.ExtractedMedicationRecord `json:"records"`
	Added      []string                             `json:"added,omitempty"`
	Error      string                               `json:"error,omitempty"`
	StartedAt  *time.Time                           `json:"startedAt,omitempty"`
	FinishedAt *time.Time                           `json:"finishedAt,omitempty"`
}

// CompletionFunc receives the records of a successful run before the run is
// published as complete. It returns the drug names it actually merged.
type CompletionFunc func(records []entities.ExtractedMedicationRecord) []string

// Tracker runs at most one extraction at a time:
// Idle -> Analyzing -> Complete | Failed, and back to Analyzing on the next start.
// Cancel returns an in-flight run to Idle.
type Tracker struct {
	extractor  interfaces.Extractor
	timeout    time.Duration
	onComplete CompletionFunc

	mu         sync.Mutex
	status     Status
	records    []entities.ExtractedMedicationRecord
	added      []string
	err        error
	startedAt  time.Time
	finishedAt time.Time
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewTracker creates an idle tracker. timeout bounds a single run (0 = none).
// onComplete may be nil.
func NewTracker(extractor interfaces.Extractor, timeout time.Duration, onComplete CompletionFunc) *Tracker {
	return &Tracker{
		extractor:  extractor,
		timeout:    timeout,
		onComplete: onComplete,
		status:     StatusIdle,
	}
}

// Start launches an extraction of text in the background. It fails with a
// validation error for blank text and with entities.ErrExtractionInProgress
// while another run is analyzing. parent bounds the run's lifetime.
func (t *Tracker) Start(parent context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return entities.NewValidationError("text", "", "must not be blank")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusAnalyzing {
		return entities.ErrExtractionInProgress
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if t.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, t.timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	t.generation++
	t.status = StatusAnalyzing
	t.records = nil
	t.added = nil
	t.err = nil
	t.startedAt = time.Now()
	t.finishedAt = time.Time{}
	t.cancel = cancel
	t.done = make(chan struct{})

	metrics.ExtractionsInFlight.Inc()
	go t.run(ctx, cancel, t.generation, text, t.done)

	return nil
}

func (t *Tracker) run(ctx context.Context, cancel context.CancelFunc, generation uint64, text string, done chan struct{}) {
	defer close(done)
	defer cancel()
	defer metrics.ExtractionsInFlight.Dec()

	start := time.Now()
	records, err := t.extractor.Extract(ctx, text)
	elapsed := time.Since(start)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.generation != generation {
		// Cancelled; the tracker has already moved on.
		metrics.ExtractionsTotal.WithLabelValues("cancelled").Inc()
		return
	}

	t.finishedAt = time.Now()
	t.cancel = nil

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &entities.ExtractionError{Cause: err}
		}
		t.status = StatusFailed
		t.err = err
		metrics.ExtractionsTotal.WithLabelValues("failed").Inc()
		logging.Warn("Extraction failed", "error", err, "duration_ms", elapsed.Milliseconds())
		return
	}

	if t.onComplete != nil {
		t.added = t.onComplete(records)
	}
	t.records = records
	t.status = StatusComplete

	metrics.ExtractionsTotal.WithLabelValues("complete").Inc()
	metrics.ExtractionDuration.Observe(elapsed.Seconds())
	logging.Debug("Extraction complete", "records", len(records), "added", len(t.added), "duration_ms", elapsed.Milliseconds())
}

// Cancel aborts an in-flight run and returns the tracker to Idle.
// It reports whether a run was cancelled.
func (t *Tracker) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusAnalyzing {
		return false
	}

	t.cancel()
	t.cancel = nil
	t.generation++
	t.status = StatusIdle
	t.records = nil
	t.added = nil
	t.err = nil
	t.startedAt = time.Time{}
	t.finishedAt = time.Time{}
	return true
}

// Close cancels any in-flight run. The tracker stays usable.
func (t *Tracker) Close() {
	t.Cancel()
}

// Wait blocks until the current run settles or ctx ends, then returns the snapshot.
func (t *Tracker) Wait(ctx context.Context) (Snapshot, error) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return t.Snapshot(), ctx.Err()
		}
	}
	return t.Snapshot(), nil
}

// Status returns the current lifecycle state.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		Status:  t.status,
		Records: slices.Clone(t.records),
		Added:   slices.Clone(t.added),
	}
	if s.Records == nil {
		s.Records = []entities.ExtractedMedicationRecord{}
	}
	if t.err != nil {
		s.Error = t.err.Error()
	}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		s.StartedAt = &started
	}
	if !t.finishedAt.IsZero() {
		finished := t.finishedAt
		s.FinishedAt = &finished
	}
	return s
}

// Err returns the error of a failed run, nil otherwise.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
