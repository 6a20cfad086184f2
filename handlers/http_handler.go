// Package handlers implements the JSON API of the dashboard.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/giygas/drugsafe-api/analysis"
	"github.com/giygas/drugsafe-api/entities"
	"github.com/giygas/drugsafe-api/extraction"
	"github.com/giygas/drugsafe-api/interfaces"
	"github.com/giygas/drugsafe-api/logging"
	"github.com/giygas/drugsafe-api/profile"
	"github.com/giygas/drugsafe-api/session"
)

const (
	defaultMaxBody = 1 << 20
	maxQueryLength = 100
)

// SessionStore creates and resolves dashboard sessions.
type SessionStore interface {
	Create() *session.Session
	Get(id string) (*session.Session, error)
	Delete(id string) bool
}

// Compile-time check
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	sessions  SessionStore
	store     interfaces.ReferenceStore
	validator interfaces.DataValidator
	evaluator interfaces.Evaluator
	health    interfaces.HealthChecker

	maxBody     int64
	waitTimeout time.Duration
}

// Options tunes request handling.
type Options struct {
	MaxBody     int64         // request body limit in bytes
	WaitTimeout time.Duration // upper bound for ?wait=true extractions
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(
	sessions SessionStore,
	store interfaces.ReferenceStore,
	validator interfaces.DataValidator,
	evaluator interfaces.Evaluator,
	health interfaces.HealthChecker,
	opts Options,
) *HTTPHandlerImpl {
	if opts.MaxBody <= 0 {
		opts.MaxBody = defaultMaxBody
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 30 * time.Second
	}
	return &HTTPHandlerImpl{
		sessions:    sessions,
		store:       store,
		validator:   validator,
		evaluator:   evaluator,
		health:      health,
		maxBody:     opts.MaxBody,
		waitTimeout: opts.WaitTimeout,
	}
}

// RespondWithJSON writes payload as JSON. Responses describe per-session
// state and are never cached.
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	h.RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// respondWithDomainError maps the error kinds of the service to HTTP statuses.
func (h *HTTPHandlerImpl) respondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *entities.ValidationError
	var extractionErr *entities.ExtractionError

	switch {
	case errors.As(err, &validationErr):
		h.RespondWithJSON(w, http.StatusBadRequest, map[string]any{
			"error":   http.StatusText(http.StatusBadRequest),
			"message": validationErr.Error(),
			"field":   validationErr.Field,
			"code":    http.StatusBadRequest,
		})
	case errors.Is(err, entities.ErrSessionNotFound):
		h.RespondWithError(w, http.StatusNotFound, "Session not found or expired")
	case errors.Is(err, entities.ErrExtractionInProgress):
		h.RespondWithError(w, http.StatusConflict, "An extraction is already in progress for this session")
	case errors.As(err, &extractionErr):
		logging.Warn("Extraction backend failure", "path", r.URL.Path, "error", err)
		h.RespondWithError(w, http.StatusBadGateway, extractionErr.Error())
	default:
		logging.Error("Unhandled error", "path", r.URL.Path, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func (h *HTTPHandlerImpl) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.RespondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		h.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %v", err))
		return false
	}
	return true
}

// pathParam returns a decoded URL parameter. chi matches on RawPath when the
// request carries one, and only then is the segment still escaped.
func pathParam(r *http.Request, key string) string {
	param := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return param
	}
	if decoded, err := url.PathUnescape(param); err == nil {
		return decoded
	}
	return param
}

// session resolves the {sessionID} of the route, answering 404 itself.
func (h *HTTPHandlerImpl) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return nil, false
	}
	return s, true
}

// query returns a bounded search query parameter.
func (h *HTTPHandlerImpl) query(w http.ResponseWriter, r *http.Request) (string, bool) {
	q := r.URL.Query().Get("q")
	if utf8.RuneCountInString(q) > maxQueryLength {
		h.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Query too long: maximum %d characters", maxQueryLength))
		return "", false
	}
	return q, true
}

type nameRequest struct {
	Name string `json:"name"`
}

type profileRequest struct {
	Age    *string          `json:"age"`
	Weight *string          `json:"weight"`
	Gender *entities.Gender `json:"gender"`
}

type extractionRequest struct {
	Text string `json:"text"`
}

// CreateSession opens an empty dashboard session.
func (h *HTTPHandlerImpl) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	logging.Info("Session created", "session_id", s.ID)
	w.Header().Set("Location", "/v1/sessions/"+s.ID)
	h.RespondWithJSON(w, http.StatusCreated, s.Snapshot())
}

func (h *HTTPHandlerImpl) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.RespondWithJSON(w, http.StatusOK, s.Snapshot())
}

// DeleteSession discards a session, cancelling its extraction.
func (h *HTTPHandlerImpl) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(chi.URLParam(r, "sessionID")) {
		h.respondWithDomainError(w, r, entities.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlerImpl) GetProfile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.RespondWithJSON(w, http.StatusOK, s.Profile())
}

// UpdateProfile sets any of age, weight and gender. An empty string unsets a
// field; a malformed value rejects the whole update.
func (h *HTTPHandlerImpl) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	view, err := s.UpdateProfile(profile.Update{Age: req.Age, Weight: req.Weight, Gender: req.Gender})
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	h.RespondWithJSON(w, http.StatusOK, view)
}

func (h *HTTPHandlerImpl) AddCondition(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateInput("condition", req.Name); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	err := s.AddCondition(req.Name)
	if err != nil && !errors.Is(err, entities.ErrDuplicateEntry) {
		h.respondWithDomainError(w, r, err)
		return
	}
	h.respondWithChange(w, err != nil, "conditions", s.Profile().Conditions)
}

func (h *HTTPHandlerImpl) RemoveCondition(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	removed := s.RemoveCondition(pathParam(r, "name"))
	h.RespondWithJSON(w, http.StatusOK, map[string]any{
		"conditions": s.Profile().Conditions,
		"removed":    removed,
	})
}

// AvailableConditions lists the common conditions not yet in the profile.
func (h *HTTPHandlerImpl) AvailableConditions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.RespondWithJSON(w, http.StatusOK, s.AvailableConditions(h.store.GetConditions()))
}

func (h *HTTPHandlerImpl) ListMedications(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.RespondWithJSON(w, http.StatusOK, map[string]any{
		"medications": s.Medications(),
		"stats":       s.Stats(),
	})
}

// AddMedication appends a medication picked from suggestions or typed freely.
func (h *HTTPHandlerImpl) AddMedication(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateInput("medication", req.Name); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	err := s.AddMedication(req.Name)
	if err != nil && !errors.Is(err, entities.ErrDuplicateEntry) {
		h.respondWithDomainError(w, r, err)
		return
	}
	h.respondWithChange(w, err != nil, "medications", s.Medications())
}

// respondWithChange answers an add: 201 when the list grew, 200 with the
// duplicate flag when the entry was already there.
func (h *HTTPHandlerImpl) respondWithChange(w http.ResponseWriter, duplicate bool, key string, list []string) {
	body := map[string]any{key: list, "duplicate": duplicate}
	if duplicate {
		body["message"] = entities.ErrDuplicateEntry.Error()
		h.RespondWithJSON(w, http.StatusOK, body)
		return
	}
	h.RespondWithJSON(w, http.StatusCreated, body)
}

func (h *HTTPHandlerImpl) RemoveMedication(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	removed := s.RemoveMedication(pathParam(r, "name"))
	h.RespondWithJSON(w, http.StatusOK, map[string]any{
		"medications": s.Medications(),
		"removed":     removed,
	})
}

// SuggestMedications filters the vocabulary by ?q=, leaving out selected drugs.
// Queries shorter than two characters yield no suggestions.
func (h *HTTPHandlerImpl) SuggestMedications(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	h.RespondWithJSON(w, http.StatusOK, map[string]any{
		"query":       q,
		"suggestions": s.Suggestions(q, h.store),
	})
}

// StartExtraction analyses clinical text in the background (202). With
// ?wait=true it answers once the run settles: 200 when complete, 502 on
// failure, 409 when the run was cancelled.
func (h *HTTPHandlerImpl) StartExtraction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req extractionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateClinicalText(req.Text); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if err := s.StartExtraction(req.Text); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	if !wait {
		h.RespondWithJSON(w, http.StatusAccepted, s.Extraction())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
	defer cancel()
	snap, err := s.WaitExtraction(ctx)
	if err != nil {
		// The client stopped waiting; the run continues in the background.
		h.RespondWithJSON(w, http.StatusAccepted, snap)
		return
	}
	switch snap.Status {
	case extraction.StatusComplete:
		h.RespondWithJSON(w, http.StatusOK, snap)
	case extraction.StatusFailed:
		h.respondWithExtraction(w, http.StatusBadGateway, snap.Error, snap)
	default:
		// Cancelled while waiting, possibly restarted by another request.
		h.respondWithExtraction(w, http.StatusConflict, "Extraction was cancelled before it completed", snap)
	}
}

func (h *HTTPHandlerImpl) respondWithExtraction(w http.ResponseWriter, code int, message string, snap extraction.Snapshot) {
	h.RespondWithJSON(w, code, map[string]any{
		"error":      http.StatusText(code),
		"message":    message,
		"code":       code,
		"extraction": snap,
	})
}

func (h *HTTPHandlerImpl) GetExtraction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.RespondWithJSON(w, http.StatusOK, s.Extraction())
}

// CancelExtraction aborts an in-flight extraction; it is a no-op otherwise.
func (h *HTTPHandlerImpl) CancelExtraction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	cancelled := s.CancelExtraction()
	h.RespondWithJSON(w, http.StatusOK, map[string]any{
		"cancelled":  cancelled,
		"extraction": s.Extraction(),
	})
}

// GetAnalysis returns the analysis panel for the current selection.
func (h *HTTPHandlerImpl) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := analysis.Analyze(r.Context(), h.evaluator, s.Medications(), s.PatientProfile())
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	h.RespondWithJSON(w, http.StatusOK, view)
}

// LookupMedications searches the medication vocabulary; an empty query lists it all.
func (h *HTTPHandlerImpl) LookupMedications(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	h.RespondWithJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": h.store.LookupMedications(q),
	})
}

func (h *HTTPHandlerImpl) ListConditions(w http.ResponseWriter, r *http.Request) {
	h.RespondWithJSON(w, http.StatusOK, h.store.GetConditions())
}

func (h *HTTPHandlerImpl) ListSampleTexts(w http.ResponseWriter, r *http.Request) {
	h.RespondWithJSON(w, http.StatusOK, h.store.GetSampleTexts())
}

// HealthCheck returns service health
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, code := h.health.HealthCheck()
	h.RespondWithJSON(w, code, map[string]any{
		"status": status,
		"data":   details,
	})
}
