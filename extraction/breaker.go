package extraction

import (
	"context"
	"errors"
	"time"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/interfaces"
	"github.com/giygas/drugsafe-api/logging"
	"github.com/sony/gobreaker"
)

// Compile-time check to ensure BreakerExtractor implements Extractor
var _ interfaces.Extractor = (*BreakerExtractor)(nil)

// BreakerSettings configures the circuit breaker around an extraction backend.
type BreakerSettings struct {
	Name             string
	MaxRequests      uint32        // trial requests allowed while half-open
	Interval         time.Duration // closed-state counter reset period, 0 = never
	Timeout          time.Duration // open-state duration before probing
	FailureThreshold uint32        // consecutive failures that open the breaker
}

// DefaultBreakerSettings returns the settings used by the server.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:             "extraction",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerExtractor guards an Extractor with a circuit breaker and reports
// backend failures as *entities.ExtractionError.
type BreakerExtractor struct {
	next interfaces.Extractor
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerExtractor wraps next with a circuit breaker.
func NewBreakerExtractor(next interfaces.Extractor, settings BreakerSettings) *BreakerExtractor {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	threshold := settings.FailureThreshold

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller giving up is not a backend fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logging.Warn("Circuit breaker state changed",
				"circuit_breaker", name,
				"from_state", from.String(),
				"to_state", to.String())
		},
	})

	return &BreakerExtractor{next: next, cb: cb}
}

// State returns the current breaker state name.
func (b *BreakerExtractor) State() string {
	return b.cb.State().String()
}

// Extract runs the wrapped extractor through the circuit breaker.
func (b *BreakerExtractor) Extract(ctx context.Context, text string) ([]entities.ExtractedMedicationRecord, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Extract(ctx, text)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		var extractionErr *entities.ExtractionError
		if errors.As(err, &extractionErr) {
			return nil, err
		}
		return nil, &entities.ExtractionError{Cause: err}
	}

	records, _ := result.([]entities.ExtractedMedicationRecord)
	return records, nil
}
