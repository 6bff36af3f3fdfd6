package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/events"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/pipeline"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/server"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/store"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/testutil"
)

const scannedURL = "https://target.example"

// newTestServer stands up the API in inline mode backed by a scripted web
// client, so a submission runs the whole pipeline synchronously.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := &testutil.DummyLogger{}
	cache := store.NewMemoryStore()
	t.Cleanup(func() { cache.Close() })

	jobs := store.NewJobStateStore(cache, store.DefaultConfig(), logger)
	reports := store.NewReportStore(cache, nil, store.DefaultConfig(), logger)
	bus := events.NewBus(logger)
	wc := &testutil.DummyWebClient{
		Scripts: []testutil.Scripted{
			{Match: "target.example", StatusCode: 200, Body: "<!doctype html><html><head><title>Acme</title></head><body><h1>Acme</h1></body></html>"},
		},
	}
	orch := pipeline.New(pipeline.DefaultConfig(), wc, jobs, reports, bus, logger)

	s := server.New(server.Config{ListenAddr: ":0", Logger: logger}, jobs, reports, bus, nil, orch, nil)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return srv
}

func submitScan(t *testing.T, srv *httptest.Server, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/scans", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("submitting scan: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp.StatusCode, decoded
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp.StatusCode, decoded
}

// ─── Submission ────────────────────────────────────────────────────────

func TestSubmit_InlineScanRunsToCompletion(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	status, body := submitScan(t, srv, `{"url":"`+scannedURL+`"}`)

	if status != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %v", status, body)
	}
	jobID, _ := body["jobId"].(string)
	if jobID == "" {
		t.Fatalf("no jobId in response: %v", body)
	}
	// The acknowledgment reads the same in inline and queued mode; the
	// status endpoint is where completion shows up.
	if body["status"] != string(model.JobPending) {
		t.Errorf("submission status = %v, want pending", body["status"])
	}

	code, st := getJSON(t, srv.URL+"/api/v1/scans/"+jobID)
	if code != http.StatusOK {
		t.Fatalf("status endpoint = %d", code)
	}
	if st["status"] != string(model.JobCompleted) {
		t.Errorf("job status = %v, want completed", st["status"])
	}
	if st["progress"].(float64) != 100 {
		t.Errorf("progress = %v, want 100", st["progress"])
	}
	if st["reportUrl"] == "" || st["reportUrl"] == nil {
		t.Error("completed job must link its report")
	}

	code, rpt := getJSON(t, srv.URL+"/api/v1/scans/"+jobID+"/report")
	if code != http.StatusOK {
		t.Fatalf("report endpoint = %d", code)
	}
	if rpt["job_id"] != jobID {
		t.Errorf("report job_id = %v", rpt["job_id"])
	}
	if rpt["version"] != "1.0" {
		t.Errorf("report version = %v", rpt["version"])
	}

	code, preview := getJSON(t, srv.URL+"/api/v1/scans/"+jobID+"/preview")
	if code != http.StatusOK {
		t.Fatalf("preview endpoint = %d", code)
	}
	if preview["job_id"] != jobID {
		t.Errorf("preview job_id = %v", preview["job_id"])
	}
	if _, hasFindings := preview["findings"]; hasFindings {
		t.Error("preview must not embed findings")
	}
}

func TestSubmit_RejectsInvalidURL(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	for _, raw := range []string{"", "ftp://example.com", "example dot com"} {
		status, body := submitScan(t, srv, `{"url":"`+raw+`"}`)
		if status != http.StatusBadRequest {
			t.Errorf("url %q: status = %d, want 400", raw, status)
		}
		if body["code"] != "INVALID_URL" {
			t.Errorf("url %q: code = %v", raw, body["code"])
		}
	}
}

func TestSubmit_RejectsInvalidEmail(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	status, body := submitScan(t, srv, `{"url":"`+scannedURL+`","email":"not-an-email"}`)

	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["code"] != "INVALID_EMAIL" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestSubmit_RejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	status, body := submitScan(t, srv, `{"url": `)

	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["code"] != "BAD_REQUEST" {
		t.Errorf("code = %v", body["code"])
	}
}

// ─── Lookups ───────────────────────────────────────────────────────────

func TestStatus_UnknownJobIs404(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	status, body := getJSON(t, srv.URL+"/api/v1/scans/nope")

	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if body["code"] != "JOB_NOT_FOUND" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestReport_UnknownJobIs404(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	for _, path := range []string{"/report", "/preview"} {
		status, body := getJSON(t, srv.URL+"/api/v1/scans/nope"+path)
		if status != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, status)
		}
		if body["code"] != "REPORT_NOT_FOUND" {
			t.Errorf("%s code = %v", path, body["code"])
		}
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	status, body := getJSON(t, srv.URL+"/healthz")

	if status != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", status, body)
	}
}

// ─── CORS ──────────────────────────────────────────────────────────────

func TestCORS_PreflightAndHeaders(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/scans", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") != "POST" {
		t.Errorf("allow-methods = %q", resp.Header.Get("Access-Control-Allow-Methods"))
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("allow-origin = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	getResp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	getResp.Body.Close()
	if getResp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS headers must be present on plain requests too")
	}
}

// ─── WebSocket ─────────────────────────────────────────────────────────

func TestWS_UnknownJobIsRejected(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/scans/nope"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial should fail for an unknown job")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("handshake response = %+v", resp)
	}
}

func TestWS_TerminalJobGetsSnapshotThenClose(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	_, body := submitScan(t, srv, `{"url":"`+scannedURL+`"}`)
	jobID := body["jobId"].(string)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/scans/" + jobID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snapshot model.Job
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if snapshot.ID != jobID || snapshot.Status != model.JobCompleted {
		t.Errorf("snapshot = %+v", snapshot)
	}

	// The job is terminal, so the server closes right after the snapshot.
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to close after the terminal snapshot")
	}
}
