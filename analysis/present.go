package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/interfaces"
)

// State says which of the two analysis panels is shown.
type State string

const (
	StateIdle    State = "idle"
	StateResults State = "results"
)

// Tone is the display colour family of an interaction.
type Tone string

const (
	ToneDanger    Tone = "danger"
	ToneWarning   Tone = "warning"
	ToneSecondary Tone = "secondary"
	ToneSuccess   Tone = "success"
)

const (
	IdleTitle             = "Ready for Analysis"
	IdleMessage           = "Add medications to your patient's profile to begin comprehensive drug interaction and dosage analysis."
	NoInteractionsMessage = "No dangerous drug interactions detected with the selected medications."
)

// InteractionView is an interaction row with its display attributes.
type InteractionView struct {
	entities.InteractionRecord
	Tone  Tone   `json:"tone"`
	Label string `json:"label"`
}

// View is the analysis panel. Idle views carry only the call to action;
// result views carry all three collections.
type View struct {
	State       State    `json:"state"`
	Medications []string `json:"medications"`

	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`

	NoInteractions        bool                             `json:"noInteractions"`
	Interactions          []InteractionView                `json:"interactions"`
	DosageRecommendations []entities.DosageRecommendation  `json:"dosageRecommendations"`
	Alternatives          []entities.AlternativeSuggestion `json:"alternatives"`
}

// ToneFor maps a severity to its display tone.
func ToneFor(s entities.Severity) Tone {
	switch s {
	case entities.SeverityHigh:
		return ToneDanger
	case entities.SeverityModerate:
		return ToneWarning
	case entities.SeverityLow:
		return ToneSecondary
	default:
		return ToneSuccess
	}
}

// RiskLabel renders a severity as shown on the badge, e.g. "HIGH Risk".
func RiskLabel(s entities.Severity) string {
	return fmt.Sprintf("%s Risk", strings.ToUpper(string(s)))
}

// Present derives the analysis view from the selection and a result.
// With no selected drugs the result is ignored.
func Present(drugs []string, result entities.AnalysisResult) View {
	meds := append([]string{}, drugs...)
	if len(meds) == 0 {
		return View{
			State:                 StateIdle,
			Medications:           meds,
			Title:                 IdleTitle,
			Message:               IdleMessage,
			Interactions:          []InteractionView{},
			DosageRecommendations: []entities.DosageRecommendation{},
			Alternatives:          []entities.AlternativeSuggestion{},
		}
	}

	result = result.Clone()
	interactions := make([]InteractionView, 0, len(result.Interactions))
	for _, ix := range result.Interactions {
		interactions = append(interactions, InteractionView{
			InteractionRecord: ix,
			Tone:              ToneFor(ix.Severity),
			Label:             RiskLabel(ix.Severity),
		})
	}

	v := View{
		State:                 StateResults,
		Medications:           meds,
		NoInteractions:        len(interactions) == 0,
		Interactions:          interactions,
		DosageRecommendations: result.DosageRecommendations,
		Alternatives:          result.Alternatives,
	}
	if v.NoInteractions {
		v.Message = NoInteractionsMessage
	}
	return v
}

// Analyze evaluates drugs for profile and presents the outcome. The
// evaluator is not consulted while the selection is empty.
func Analyze(ctx context.Context, ev interfaces.Evaluator, drugs []string, profile entities.PatientProfile) (View, error) {
	if len(drugs) == 0 {
		return Present(nil, entities.AnalysisResult{}), nil
	}
	result, err := ev.Evaluate(ctx, drugs, profile)
	if err != nil {
		return View{}, fmt.Errorf("failed to evaluate selection: %w", err)
	}
	return Present(drugs, result), nil
}
