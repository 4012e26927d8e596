package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"field/board/internal/config"
	"field/board/internal/dataset"
	"field/board/internal/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func testConfig(solverURL string) config.Config {
	return config.Config{
		AppName:  "field-board-api",
		Env:      "test",
		LogLevel: "disabled",
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  5 * time.Second,
		},
		Solver: config.SolverConfig{
			BaseURL:        solverURL,
			MapConfigID:    "EUROPE",
			RequestTimeout: 2 * time.Second,
			PollInterval:   20 * time.Millisecond,
			PollDeadline:   2 * time.Second,
		},
	}
}

func newTestServer(t *testing.T, solverURL string) *Server {
	t.Helper()
	srv, err := New(context.Background(), testConfig(solverURL), zerolog.Nop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return out
}

func createSession(t *testing.T, h http.Handler) SessionResponse {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/v1/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[SessionResponse](t, rec)
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(t, "").routes()
	rec := doRequest(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeBody[HealthResponse](t, rec)
	if resp.Status != "ok" || resp.Env != "test" {
		t.Errorf("health = %+v", resp)
	}
}

func TestCreateSessionFromFixture(t *testing.T) {
	h := newTestServer(t, "").routes()
	sess := createSession(t, h)

	if sess.ID == "" {
		t.Fatal("missing session id")
	}
	if sess.DatasetID != dataset.FixtureID {
		t.Errorf("datasetId = %s, want fixture", sess.DatasetID)
	}
	if sess.Baseline == nil || len(sess.Baseline.Resources) != 3 {
		t.Fatalf("baseline = %+v", sess.Baseline)
	}
	visits := 0
	for _, ev := range sess.Baseline.Events {
		if ev.Kind == schedule.KindVisit {
			visits++
			if ev.Status != schedule.StatusBaseline {
				t.Errorf("event %s status = %s", ev.ID, ev.Status)
			}
		}
	}
	if visits != 7 {
		t.Errorf("baseline visit events = %d, want 7", visits)
	}
	if sess.Optimized != nil {
		t.Error("new session must not carry an optimized schedule")
	}
	if sess.Kpis == nil {
		t.Fatal("missing kpis")
	}
	if sess.Kpis.Baseline.TotalVisits != 7 || sess.Kpis.Optimized.TotalVisits != 7 {
		t.Errorf("kpi totals = (%d, %d)", sess.Kpis.Baseline.TotalVisits, sess.Kpis.Optimized.TotalVisits)
	}
	if sess.Run.Phase != runPhaseIdle {
		t.Errorf("run phase = %s, want idle", sess.Run.Phase)
	}
}

func TestGetSession(t *testing.T) {
	h := newTestServer(t, "").routes()
	sess := createSession(t, h)

	rec := doRequest(t, h, http.MethodGet, "/v1/sessions/"+sess.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decodeBody[SessionResponse](t, rec)
	if got.ID != sess.ID {
		t.Errorf("id = %s, want %s", got.ID, sess.ID)
	}
}

func TestSessionLookupErrors(t *testing.T) {
	h := newTestServer(t, "").routes()

	rec := doRequest(t, h, http.MethodGet, "/v1/sessions/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed id status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/v1/sessions/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	}
}

func TestGetKpis(t *testing.T) {
	h := newTestServer(t, "").routes()
	sess := createSession(t, h)

	rec := doRequest(t, h, http.MethodGet, "/v1/sessions/"+sess.ID+"/kpis", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	kpis := decodeBody[KpiResponse](t, rec)
	if kpis.Baseline.TotalVisits != 7 {
		t.Errorf("totalVisits = %d, want 7", kpis.Baseline.TotalVisits)
	}
	if kpis.Savings != 0 {
		t.Errorf("savings = %.2f, want 0 before any run", kpis.Savings)
	}
}

func TestAdjustEvent(t *testing.T) {
	h := newTestServer(t, "").routes()
	sess := createSession(t, h)

	var target schedule.Event
	for _, ev := range sess.Baseline.Events {
		if ev.Kind == schedule.KindVisit {
			target = ev
			break
		}
	}
	if target.ID == "" {
		t.Fatal("no visit event to adjust")
	}

	start := target.StartDate.Add(2 * time.Hour)
	end := start.Add(time.Hour)
	rec := doRequest(t, h, http.MethodPatch,
		fmt.Sprintf("/v1/sessions/%s/events/%s", sess.ID, target.ID),
		map[string]any{"start": start, "end": end})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[SessionResponse](t, rec)

	var adjusted *schedule.Event
	for i := range got.Baseline.Events {
		if got.Baseline.Events[i].ID == target.ID {
			adjusted = &got.Baseline.Events[i]
		}
	}
	if adjusted == nil {
		t.Fatal("adjusted event missing from response")
	}
	if !adjusted.IsAdjusted {
		t.Error("isAdjusted not set")
	}
	if !adjusted.StartDate.Equal(start) || !adjusted.EndDate.Equal(end) {
		t.Errorf("span = %s .. %s", adjusted.StartDate, adjusted.EndDate)
	}
}

func TestAdjustEventErrors(t *testing.T) {
	h := newTestServer(t, "").routes()
	sess := createSession(t, h)
	now := time.Now().UTC()

	rec := doRequest(t, h, http.MethodPatch,
		"/v1/sessions/"+sess.ID+"/events/no-such-event",
		map[string]any{"start": now, "end": now.Add(time.Hour)})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown event status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPatch,
		"/v1/sessions/"+sess.ID+"/events/"+sess.Baseline.Events[0].ID,
		map[string]any{"start": now, "end": now.Add(-time.Hour)})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("inverted span status = %d, want 400", rec.Code)
	}
}

func TestSimulate(t *testing.T) {
	h := newTestServer(t, "").routes()
	sess := createSession(t, h)

	rec := doRequest(t, h, http.MethodPost, "/v1/sessions/"+sess.ID+"/simulate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[SessionResponse](t, rec)
	if got.Optimized == nil {
		t.Fatal("simulate produced no optimized schedule")
	}
	if got.Run.Phase != runPhaseSimulated || !got.Run.Simulated {
		t.Errorf("run = %+v", got.Run)
	}
	for _, ev := range got.Optimized.Events {
		if ev.Kind == schedule.KindVisit && ev.Status != schedule.StatusOptimized {
			t.Errorf("event %s status = %s, want optimized", ev.ID, ev.Status)
		}
	}
	// No route plan exists, so the KPI comparison stays neutral.
	if got.Kpis.Savings != 0 {
		t.Errorf("savings = %.2f, want 0 for a simulation", got.Kpis.Savings)
	}

	rec = doRequest(t, h, http.MethodGet, "/v1/runs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list runs status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "SIMULATED") {
		t.Errorf("run history missing simulated run: %s", rec.Body.String())
	}
}

func TestOptimizeUnconfigured(t *testing.T) {
	h := newTestServer(t, "").routes()
	sess := createSession(t, h)

	rec := doRequest(t, h, http.MethodPost, "/v1/sessions/"+sess.ID+"/optimize", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	apiErr := decodeBody[APIError](t, rec)
	if !strings.Contains(fmt.Sprint(apiErr.Details), "simulation") {
		t.Errorf("error should point at the local simulation: %+v", apiErr)
	}
}

func TestOptimizeCompletesRun(t *testing.T) {
	solverSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/route-plans":
			json.NewEncoder(w).Encode(map[string]any{"id": "plan-1", "solverStatus": "SOLVING_SCHEDULED"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/route-plans/plan-1":
			json.NewEncoder(w).Encode(map[string]any{
				"id":           "plan-1",
				"solverStatus": "SOLVING_COMPLETED",
				"routes": []map[string]any{{
					"vehicleId":       "vehicle-1",
					"totalTravelTime": "PT30M",
					"visits": []map[string]any{{
						"visitId":          "visit-101",
						"startServiceTime": "2026-03-02T08:30:00Z",
						"departureTime":    "2026-03-02T09:15:00Z",
					}},
				}},
				"unassignedVisits": []map[string]any{{"id": "visit-106"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer solverSrv.Close()

	h := newTestServer(t, solverSrv.URL).routes()
	sess := createSession(t, h)

	rec := doRequest(t, h, http.MethodPost, "/v1/sessions/"+sess.ID+"/optimize", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(3 * time.Second)
	var final SessionResponse
	for {
		if time.Now().After(deadline) {
			t.Fatalf("run never completed, last state: %+v", final.Run)
		}
		rec := doRequest(t, h, http.MethodGet, "/v1/sessions/"+sess.ID, nil)
		final = decodeBody[SessionResponse](t, rec)
		if final.Run.Phase == runPhaseCompleted || final.Run.Phase == runPhaseFailed {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if final.Run.Phase != runPhaseCompleted {
		t.Fatalf("run = %+v", final.Run)
	}
	if final.Optimized == nil {
		t.Fatal("completed run produced no optimized schedule")
	}
	if final.Kpis.Optimized.TravelMinutes != 30 {
		t.Errorf("optimized travel = %d, want 30", final.Kpis.Optimized.TravelMinutes)
	}
	if final.Kpis.Optimized.UnassignedVisits != 1 {
		t.Errorf("unassigned = %d, want 1", final.Kpis.Optimized.UnassignedVisits)
	}
}

func TestOptimizeConflictWhileInFlight(t *testing.T) {
	solverSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]any{"id": "plan-1", "solverStatus": "SOLVING_SCHEDULED"})
			return
		}
		// Never terminal: the first run stays in flight until the deadline.
		json.NewEncoder(w).Encode(map[string]any{"id": "plan-1", "solverStatus": "SOLVING_ACTIVE"})
	}))
	defer solverSrv.Close()

	h := newTestServer(t, solverSrv.URL).routes()
	sess := createSession(t, h)

	rec := doRequest(t, h, http.MethodPost, "/v1/sessions/"+sess.ID+"/optimize", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first run status = %d", rec.Code)
	}
	rec = doRequest(t, h, http.MethodPost, "/v1/sessions/"+sess.ID+"/optimize", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second run status = %d, want 409", rec.Code)
	}
	rec = doRequest(t, h, http.MethodPost, "/v1/sessions/"+sess.ID+"/simulate", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("simulate during run status = %d, want 409", rec.Code)
	}
}

func TestListDatasets(t *testing.T) {
	t.Run("unconfigured serves the fixture", func(t *testing.T) {
		h := newTestServer(t, "").routes()
		rec := doRequest(t, h, http.MethodGet, "/v1/datasets", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		resp := decodeBody[DatasetListResponse](t, rec)
		if len(resp.Items) != 1 || resp.Items[0].ID != dataset.FixtureID {
			t.Errorf("items = %+v", resp.Items)
		}
		if resp.Warning != "" {
			t.Errorf("warning = %q, want none", resp.Warning)
		}
	})

	t.Run("remote catalogue failure degrades with a warning", func(t *testing.T) {
		solverSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer solverSrv.Close()

		h := newTestServer(t, solverSrv.URL).routes()
		rec := doRequest(t, h, http.MethodGet, "/v1/datasets", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		resp := decodeBody[DatasetListResponse](t, rec)
		if len(resp.Items) != 1 || resp.Warning == "" {
			t.Errorf("resp = %+v, want fixture item plus warning", resp)
		}
	})

	t.Run("remote catalogue merges after the fixture", func(t *testing.T) {
		solverSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]map[string]any{{"id": "d1", "name": "Munich"}})
		}))
		defer solverSrv.Close()

		h := newTestServer(t, solverSrv.URL).routes()
		rec := doRequest(t, h, http.MethodGet, "/v1/datasets", nil)
		resp := decodeBody[DatasetListResponse](t, rec)
		if len(resp.Items) != 2 {
			t.Fatalf("items = %+v", resp.Items)
		}
		if resp.Items[0].Source != "fixture" || resp.Items[1].Source != "solver" {
			t.Errorf("sources = %s, %s", resp.Items[0].Source, resp.Items[1].Source)
		}
	})
}

func TestExport(t *testing.T) {
	h := newTestServer(t, "").routes()
	sess := createSession(t, h)

	rec := doRequest(t, h, http.MethodGet, "/v1/sessions/"+sess.ID+"/export?format=csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Errorf("content-type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "schedule-export.csv") {
		t.Errorf("content-disposition = %q", got)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 8 {
		t.Errorf("csv lines = %d, want header + 7 visits", len(lines))
	}

	rec = doRequest(t, h, http.MethodGet, "/v1/sessions/"+sess.ID+"/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("json status = %d", rec.Code)
	}
	var export schedule.Export
	if err := json.Unmarshal(rec.Body.Bytes(), &export); err != nil {
		t.Fatalf("decode json export: %v", err)
	}
	if export.ModelInput == nil || len(export.ModelInput.Visits) != 7 {
		t.Error("json export missing model input")
	}

	rec = doRequest(t, h, http.MethodGet, "/v1/sessions/"+sess.ID+"/export?format=xml", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("xml status = %d, want 400", rec.Code)
	}
}
