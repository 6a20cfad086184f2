// Package analysis evaluates a medication selection against the reference
// data and turns the result into the view the dashboard renders.
package analysis

import (
	"context"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/interfaces"
)

var _ interfaces.Evaluator = (*StaticEvaluator)(nil)

// StaticEvaluator returns the canned analysis records of the current
// reference dataset. The records are not filtered by the selection or the
// profile; a rules engine can replace it behind interfaces.Evaluator.
type StaticEvaluator struct {
	store interfaces.ReferenceStore
}

func NewStaticEvaluator(store interfaces.ReferenceStore) *StaticEvaluator {
	return &StaticEvaluator{store: store}
}

func (e *StaticEvaluator) Evaluate(ctx context.Context, _ []string, _ entities.PatientProfile) (entities.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return entities.AnalysisResult{}, err
	}
	return e.store.GetAnalysis(), nil
}
