package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giygas/drugsafe-api/analysis"
	"github.com/giygas/drugsafe-api/data"
	"github.com/giygas/drugsafe-api/extraction"
	"github.com/giygas/drugsafe-api/health"
	"github.com/giygas/drugsafe-api/refdata"
	"github.com/giygas/drugsafe-api/session"
	"github.com/giygas/drugsafe-api/validation"
)

type testAPI struct {
	router   chi.Router
	sessions *session.Manager
	store    *data.ReferenceContainer
}

func newTestAPI(t *testing.T, delay time.Duration) *testAPI {
	t.Helper()

	store := data.NewReferenceContainer()
	store.UpdateData(refdata.Builtin(), refdata.BuiltinSource, nil)

	sessions := session.NewManager(extraction.NewMockExtractor(delay), session.ManagerConfig{
		TTL:               time.Minute,
		MaxSessions:       10,
		ExtractionTimeout: 5 * time.Second,
	})
	t.Cleanup(sessions.Close)

	h := NewHTTPHandler(
		sessions,
		store,
		validation.NewDataValidator(),
		analysis.NewStaticEvaluator(store),
		health.NewHealthChecker(store, sessions, 0),
		Options{MaxBody: 4096, WaitTimeout: 5 * time.Second},
	)

	r := chi.NewRouter()
	RegisterV1(r, h)
	r.Get("/health", h.HealthCheck)

	return &testAPI{router: r, sessions: sessions, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (a *testAPI) newSession(t *testing.T) string {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	snap := decode[session.Snapshot](t, rr)
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, "/v1/sessions/"+snap.ID, rr.Header().Get("Location"))
	return snap.ID
}

func TestCreateAndGetSession(t *testing.T) {
	api := newTestAPI(t, 0)
	id := api.newSession(t)

	rr := api.do(t, http.MethodGet, "/v1/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	snap := decode[session.Snapshot](t, rr)
	assert.Equal(t, id, snap.ID)
	assert.Empty(t, snap.Medications)
	assert.Equal(t, 0, snap.Stats.MedicationCount)
	assert.Equal(t, session.UnsetAgeGroup, snap.Stats.AgeGroup)
	assert.Equal(t, extraction.StatusIdle, snap.Extraction.Status)
}

func TestUnknownSession(t *testing.T) {
	api := newTestAPI(t, 0)

	for _, path := range []string{
		"/v1/sessions/nope",
		"/v1/sessions/nope/profile",
		"/v1/sessions/nope/medications",
		"/v1/sessions/nope/analysis",
	} {
		rr := api.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		body := decode[map[string]any](t, rr)
		assert.Equal(t, float64(http.StatusNotFound), body["code"])
	}

	rr := api.do(t, http.MethodDelete, "/v1/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteSession(t *testing.T) {
	api := newTestAPI(t, 0)
	id := api.newSession(t)

	rr := api.do(t, http.MethodDelete, "/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = api.do(t, http.MethodGet, "/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateProfile(t *testing.T) {
	api := newTestAPI(t, 0)
	id := api.newSession(t)
	path := "/v1/sessions/" + id + "/profile"

	rr := api.do(t, http.MethodPatch, path, `{"age":"72","weight":"80","gender":"female"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	view := decode[session.ProfileView](t, rr)
	assert.Equal(t, "72", view.Age)
	assert.Equal(t, "Geriatric", view.AgeGroup)

	rr = api.do(t, http.MethodPatch, path, `{"age":"abc","weight":"60"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[map[string]any](t, rr)
	assert.Equal(t, "age", body["field"])

	// The rejected update changed nothing.
	view = decode[session.ProfileView](t, api.do(t, http.MethodGet, path, ""))
	assert.Equal(t, "72", view.Age)
	assert.Equal(t, "80", view.Weight)

	rr = api.do(t, http.MethodPatch, path, `{"age":""}`)
	require.Equal(t, http.StatusOK, rr.Code)
	view = decode[session.ProfileView](t, rr)
	assert.Empty(t, view.Age)
	assert.Equal(t, session.UnsetAgeGroup, view.AgeGroup)
}

func TestUpdateProfileRejectsBadBodies(t *testing.T) {
	api := newTestAPI(t, 0)
	id := api.newSession(t)
	path := "/v1/sessions/" + id + "/profile"

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPatch, path, `{"age":`).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPatch, path, `{"height":"180"}`).Code)

	big := `{"age":"` + strings.Repeat("1", 5000) + `"}`
	assert.Equal(t, http.StatusRequestEntityTooLarge, api.do(t, http.MethodPatch, path, big).Code)
}

func TestConditions(t *testing.T) {
	api := newTestAPI(t, 0)
	id := api.newSession(t)
	base := "/v1/sessions/" + id + "/profile/conditions"

	rr := api.do(t, http.MethodPost, base, `{"name":"Heart Disease"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	body := decode[map[string]any](t, rr)
	assert.Equal(t, false, body["duplicate"])
	assert.Equal(t, []any{"Heart Disease"}, body["conditions"])

	rr = api.do(t, http.MethodPost, base, `{"name":"Heart Disease"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode[map[string]any](t, rr)["duplicate"])

	available := decode[[]string](t, api.do(t, http.MethodGet, base+"/available", ""))
	assert.NotContains(t, available, "Heart Disease")
	assert.Contains(t, available, "Asthma")

	rr = api.do(t, http.MethodDelete, base+"/Heart%20Disease", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body = decode[map[string]any](t, rr)
	assert.Equal(t, true, body["removed"])
	assert.Empty(t, body["conditions"])

	rr = api.do(t, http.MethodPost, base, `{"name":"<script>"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "condition", decode[map[string]any](t, rr)["field"])
}

func TestMedications(t *testing.T) {
	api := newTestAPI(t, 0)
	id := api.newSession(t)
	base := "/v1/sessions/" + id + "/medications"

	rr := api.do(t, http.MethodPost, base, `{"name":"  Warfarin "}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	api.do(t, http.MethodPost, base, `{"name":"Aspirin"}`)

	rr = api.do(t, http.MethodPost, base, `{"name":"Aspirin"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[map[string]any](t, rr)
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, []any{"Warfarin", "Aspirin"}, body["medications"])

	rr = api.do(t, http.MethodPost, base, `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "medication", decode[map[string]any](t, rr)["field"])

	list := decode[map[string]any](t, api.do(t, http.MethodGet, base, ""))
	assert.Equal(t, []any{"Warfarin", "Aspirin"}, list["medications"])

	rr = api.do(t, http.MethodDelete, base+"/Ibuprofen", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode[map[string]any](t, rr)["removed"])

	rr = api.do(t, http.MethodDelete, base+"/Warfarin", "")
	body = decode[map[string]any](t, rr)
	assert.Equal(t, true, body["removed"])
	assert.Equal(t, []any{"Aspirin"}, body["medications"])
}

func TestRemoveEscapedNames(t *testing.T) {
	api := newTestAPI(t, 0)
	id := api.newSession(t)

	for _, tc := range []struct {
		base, list, name string
	}{
		{"/v1/sessions/" + id + "/medications", "medications", "Drug%41"},
		{"/v1/sessions/" + id + "/medications", "medications", "Co-trimoxazole/x"},
		{"/v1/sessions/" + id + "/profile/conditions", "conditions", "Type%2 diabetes"},
		{"/v1/sessions/" + id + "/profile/conditions", "conditions", "Heart/lung disease"},
	} {
		rr := api.do(t, http.MethodPost, tc.base, `{"name":"`+tc.name+`"}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		rr = api.do(t, http.MethodDelete, tc.base+"/"+url.PathEscape(tc.name), "")
		require.Equal(t, http.StatusOK, rr.Code, tc.name)
		body := decode[map[string]any](t, rr)
		assert.Equal(t, true, body["removed"], tc.name)
		assert.Empty(t, body[tc.list], tc.name)
	}
}

func TestSuggestions(t *testing.T) {
	api := newTestAPI(t, 0)
	id := api.newSession(t)
	base := "/v1/sessions/" + id + "/medications"

	api.do(t, http.MethodPost, base, `{"name":"Metoprolol"}`)

	body := decode[map[string]any](t, api.do(t, http.MethodGet, base+"/suggestions?q=met", ""))
	assert.Equal(t, []any{"Metformin"}, body["suggestions"])

	body = decode[map[string]any](t, api.do(t, http.MethodGet, base+"/suggestions?q=m", ""))
	assert.Equal(t, []any{}, body["suggestions"])

	rr := api.do(t, http.MethodGet, base+"/suggestions?q="+strings.Repeat("a", 101), "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExtractionWaited(t *testing.T) {
	api := newTestAPI(t, 10*time.Millisecond)
	id := api.newSession(t)
	base := "/v1/sessions/" + id

	api.do(t, http.MethodPost, base+"/medications", `{"name":"Aspirin"}`)

	rr := api.do(t, http.MethodPost, base+"/extractions?wait=true", `{"text":"Metformin 500mg twice daily"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	snap := decode[extraction.Snapshot](t, rr)
	assert.Equal(t, extraction.StatusComplete, snap.Status)
	assert.Len(t, snap.Records, 3)
	assert.Equal(t, []string{"Metformin", "Lisinopril"}, snap.Added)
	assert.Contains(t, rr.Body.String(), `"band":"high"`)
	assert.Contains(t, rr.Body.String(), `"band":"medium"`)

	list := decode[map[string]any](t, api.do(t, http.MethodGet, base+"/medications", ""))
	assert.Equal(t, []any{"Aspirin", "Metformin", "Lisinopril"}, list["medications"])
}

func TestExtractionConflictAndCancel(t *testing.T) {
	api := newTestAPI(t, time.Hour)
	id := api.newSession(t)
	base := "/v1/sessions/" + id + "/extractions"

	rr := api.do(t, http.MethodPost, base, `{"text":"Aspirin 81mg"}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, extraction.StatusAnalyzing, decode[extraction.Snapshot](t, rr).Status)

	rr = api.do(t, http.MethodPost, base, `{"text":"Aspirin 81mg"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = api.do(t, http.MethodDelete, base, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[map[string]any](t, rr)
	assert.Equal(t, true, body["cancelled"])

	snap := decode[extraction.Snapshot](t, api.do(t, http.MethodGet, base, ""))
	assert.Equal(t, extraction.StatusIdle, snap.Status)

	rr = api.do(t, http.MethodDelete, base, "")
	assert.Equal(t, false, decode[map[string]any](t, rr)["cancelled"])
}

func TestExtractionWaitedThenCancelled(t *testing.T) {
	api := newTestAPI(t, time.Hour)
	id := api.newSession(t)
	base := "/v1/sessions/" + id + "/extractions"

	waited := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		waited <- api.do(t, http.MethodPost, base+"?wait=true", `{"text":"Aspirin 81mg"}`)
	}()

	assert.Eventually(t, func() bool {
		var snap extraction.Snapshot
		rr := api.do(t, http.MethodGet, base, "")
		return json.Unmarshal(rr.Body.Bytes(), &snap) == nil && snap.Status == extraction.StatusAnalyzing
	}, 2*time.Second, 5*time.Millisecond)

	rr := api.do(t, http.MethodDelete, base, "")
	require.Equal(t, http.StatusOK, rr.Code)

	select {
	case rr = <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("waiting request did not return after cancel")
	}
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	body := decode[map[string]any](t, rr)
	assert.Equal(t, float64(http.StatusConflict), body["code"])
	snap, ok := body["extraction"].(map[string]any)
	require.True(t, ok, rr.Body.String())
	assert.Equal(t, string(extraction.StatusIdle), snap["status"])
}

func TestExtractionRejectsBadText(t *testing.T) {
	api := newTestAPI(t, 0)
	id := api.newSession(t)
	base := "/v1/sessions/" + id + "/extractions"

	rr := api.do(t, http.MethodPost, base, `{"text":"   "}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "text", decode[map[string]any](t, rr)["field"])

	rr = api.do(t, http.MethodPost, base, `{"text":"<script>alert(1)</script>"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAnalysis(t *testing.T) {
	api := newTestAPI(t, 0)
	id := api.newSession(t)
	base := "/v1/sessions/" + id

	view := decode[analysis.View](t, api.do(t, http.MethodGet, base+"/analysis", ""))
	assert.Equal(t, analysis.StateIdle, view.State)
	assert.Equal(t, analysis.IdleTitle, view.Title)

	api.do(t, http.MethodPost, base+"/medications", `{"name":"Warfarin"}`)
	api.do(t, http.MethodPost, base+"/medications", `{"name":"Aspirin"}`)

	rr := api.do(t, http.MethodGet, base+"/analysis", "")
	require.Equal(t, http.StatusOK, rr.Code)
	view = decode[analysis.View](t, rr)
	assert.Equal(t, analysis.StateResults, view.State)
	require.Len(t, view.Interactions, 1)
	assert.Equal(t, "Warfarin", view.Interactions[0].DrugA)
	assert.Equal(t, analysis.ToneDanger, view.Interactions[0].Tone)
	assert.Equal(t, "HIGH Risk", view.Interactions[0].Label)
	assert.NotEmpty(t, view.DosageRecommendations)
	assert.NotEmpty(t, view.Alternatives)

	// The static dataset is not filtered by the selection.
	api.do(t, http.MethodDelete, base+"/medications/Aspirin", "")
	view = decode[analysis.View](t, api.do(t, http.MethodGet, base+"/analysis", ""))
	assert.Equal(t, analysis.StateResults, view.State)
	require.Len(t, view.Interactions, 1)
	assert.Equal(t, "Aspirin", view.Interactions[0].DrugB)
}

func TestVocabularyEndpoints(t *testing.T) {
	api := newTestAPI(t, 0)

	body := decode[map[string]any](t, api.do(t, http.MethodGet, "/v1/vocabulary/medications?q=PRIL", ""))
	assert.Equal(t, []any{"Lisinopril"}, body["results"])

	all := decode[map[string]any](t, api.do(t, http.MethodGet, "/v1/vocabulary/medications", ""))
	assert.Len(t, all["results"], 10)

	conditions := decode[[]string](t, api.do(t, http.MethodGet, "/v1/vocabulary/conditions", ""))
	assert.Len(t, conditions, 8)

	samples := decode[[]string](t, api.do(t, http.MethodGet, "/v1/samples", ""))
	assert.Len(t, samples, 3)
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t, 0)
	api.newSession(t)

	rr := api.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[map[string]any](t, rr)
	assert.Equal(t, health.StatusHealthy, body["status"])

	details := body["data"].(map[string]any)
	assert.Equal(t, refdata.BuiltinSource, details["source"])
	assert.Equal(t, float64(1), details["sessions"])
}
