package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"pulseline/internal/config"
	"pulseline/internal/db"
	"pulseline/internal/domain"
	"pulseline/internal/engine"
	"pulseline/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("proj-1"), nil)
	e.Now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }
	if _, err := e.InitProject(context.Background(), engine.ProjectCreateOptions{
		ID:        "proj-1",
		Name:      "Atlas Rollout",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		AdminID:   "admin-1",
		ClientID:  "client-1",
	}); err != nil {
		t.Fatalf("init project: %v", err)
	}
	handler, err := New(Config{Engine: e, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestCheckInSubmitAndWeeklyLimit(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	body := map[string]any{
		"employee_id":        "emp-1",
		"progress_summary":   "API scaffolding done",
		"confidence_level":   4,
		"completion_percent": 40,
	}
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/proj-1/checkins", body)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("submit check-in status = %d, body %s", res.StatusCode, data)
	}
	var ci CheckInResponse
	if err := json.Unmarshal(data, &ci); err != nil {
		t.Fatalf("decode check-in: %v", err)
	}
	if ci.WeekNumber == 0 || ci.Year != 2024 {
		t.Fatalf("unexpected week attribution: %d/%d", ci.WeekNumber, ci.Year)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/proj-1/checkins", body)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate check-in status = %d, body %s", res.StatusCode, data)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "weekly_limit" {
		t.Fatalf("error code = %q, want weekly_limit", envelope.Error.Code)
	}
}

func TestRecalculateEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/proj-1/recalculate", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("recalculate status = %d, body %s", res.StatusCode, data)
	}
	var out RecalculateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.HealthScore != 66 || out.Status != string(domain.StatusAtRisk) {
		t.Fatalf("recalculate = %d/%s, want 66/AT_RISK", out.HealthScore, out.Status)
	}

	res, _ = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/nope/recalculate", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing project recalculate status = %d, want 404", res.StatusCode)
	}
}

func TestRiskLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/proj-1/risks", map[string]any{
		"title":    "Data migration slipping",
		"severity": "HIGH",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create risk status = %d, body %s", res.StatusCode, data)
	}
	var rk RiskResponse
	if err := json.Unmarshal(data, &rk); err != nil {
		t.Fatalf("decode risk: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/risks/"+rk.ID, map[string]any{
		"status": "RESOLVED",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("resolve risk status = %d, body %s", res.StatusCode, data)
	}
	if err := json.Unmarshal(data, &rk); err != nil {
		t.Fatalf("decode risk: %v", err)
	}
	if rk.Status != "RESOLVED" || rk.ResolvedAt == nil {
		t.Fatalf("risk not resolved: %+v", rk)
	}

	// High severity risk should have notified the admin.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/notifications?user_id=admin-1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list notifications status = %d", res.StatusCode)
	}
	var notifs []NotificationResponse
	if err := json.Unmarshal(data, &notifs); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	found := false
	for _, n := range notifs {
		if n.Type == domain.NotifyHighRisk {
			found = true
		}
	}
	if !found {
		t.Fatalf("no high-risk notification in %+v", notifs)
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/risks/"+rk.ID, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete risk status = %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/risks/"+rk.ID, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("double delete status = %d, want 404", res.StatusCode)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects", map[string]any{
		"name":       "No dates",
		"admin_id":   "admin-2",
		"start_date": "2024-06-01T00:00:00Z",
		"end_date":   "not-a-date",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid end_date status = %d, body %s", res.StatusCode, data)
	}
}

func TestMetricsExposed(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/metrics", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", res.StatusCode)
	}
	if !bytes.Contains(data, []byte("go_goroutines")) {
		t.Fatal("metrics output missing runtime collectors")
	}
}
