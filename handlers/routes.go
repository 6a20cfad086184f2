package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/giygas/drugsafe-api/interfaces"
)

// RegisterV1 mounts the versioned API on r.
func RegisterV1(r chi.Router, h interfaces.HTTPHandler) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", h.CreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)

			r.Get("/profile", h.GetProfile)
			r.Patch("/profile", h.UpdateProfile)
			r.Post("/profile/conditions", h.AddCondition)
			r.Get("/profile/conditions/available", h.AvailableConditions)
			r.Delete("/profile/conditions/{name}", h.RemoveCondition)

			r.Get("/medications", h.ListMedications)
			r.Post("/medications", h.AddMedication)
			r.Get("/medications/suggestions", h.SuggestMedications)
			r.Delete("/medications/{name}", h.RemoveMedication)

			r.Post("/extractions", h.StartExtraction)
			r.Get("/extractions", h.GetExtraction)
			r.Delete("/extractions", h.CancelExtraction)

			r.Get("/analysis", h.GetAnalysis)
		})

		r.Get("/vocabulary/medications", h.LookupMedications)
		r.Get("/vocabulary/conditions", h.ListConditions)
		r.Get("/samples", h.ListSampleTexts)
	})
}
