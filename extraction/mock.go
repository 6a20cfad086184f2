// Package extraction turns free clinical text into medication records and
// tracks the lifecycle of an extraction run for a session.
package extraction

import (
	"context"
	"slices"
	"time"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/interfaces"
)

// DefaultDelay is the simulated latency of the mock extraction backend.
const DefaultDelay = 2 * time.Second

// Compile-time check to ensure MockExtractor implements Extractor
var _ interfaces.Extractor = (*MockExtractor)(nil)

// cannedRecords is what the mock backend "finds" in every text.
var cannedRecords = []entities.ExtractedMedicationRecord{
	{DrugName: "Metformin", Dosage: "500mg", Frequency: "twice daily", Duration: "ongoing", Confidence: 0.95},
	{DrugName: "Lisinopril", Dosage: "10mg", Frequency: "once daily", Duration: "ongoing", Confidence: 0.88},
	{DrugName: "Aspirin", Dosage: "81mg", Frequency: "once daily", Duration: "ongoing", Confidence: 0.92},
}

// MockExtractor simulates a remote extraction backend: it waits for a fixed
// delay and then returns the same three records whatever the input text.
// It never fails except when ctx ends first.
type MockExtractor struct {
	delay time.Duration
}

// NewMockExtractor creates a mock extractor with the given simulated latency.
func NewMockExtractor(delay time.Duration) *MockExtractor {
	if delay < 0 {
		delay = 0
	}
	return &MockExtractor{delay: delay}
}

// Delay returns the simulated latency.
func (m *MockExtractor) Delay() time.Duration {
	return m.delay
}

// Extract waits for the simulated latency and returns the canned records.
func (m *MockExtractor) Extract(ctx context.Context, _ string) ([]entities.ExtractedMedicationRecord, error) {
	timer := time.NewTimer(m.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return slices.Clone(cannedRecords), nil
}
