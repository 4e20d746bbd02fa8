package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fernwey/atlas-travel-agent/internal/config"
	"github.com/fernwey/atlas-travel-agent/internal/templates"
)

// newTestServer serves the real routes over httptest with the pipeline
// from newTestPipeline. Optional dependencies start unset.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(config.Config{}, newTestPipeline(t), discardLogger())
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	body := getJSON(t, ts.URL+"/api/health", http.StatusOK)
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if body["version"] == "" {
		t.Error("missing version")
	}
}

func TestStatsEndpoint(t *testing.T) {
	s, ts := newTestServer(t)

	if _, err := s.pipeline.Respond(context.Background(), "conv-stats", "你好", nil); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	body := getJSON(t, ts.URL+"/api/stats", http.StatusOK)
	if _, ok := body["uptime_seconds"]; !ok {
		t.Error("missing uptime_seconds")
	}
	rt, ok := body["router"].(map[string]any)
	if !ok {
		t.Fatalf("router stats missing: %v", body["router"])
	}
	if rt["total_requests"].(float64) != 1 {
		t.Errorf("total_requests = %v, want 1", rt["total_requests"])
	}
	if _, ok := body["session"]; !ok {
		t.Error("missing session counters")
	}
}

func TestPlanLifecycle(t *testing.T) {
	_, ts := newTestServer(t)

	payload := `{"destination":"北京","days":3,"budget":5000,"people":2}`
	resp, err := http.Post(ts.URL+"/api/plan", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST plan: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST plan status = %d, want 201", resp.StatusCode)
	}

	var plan struct {
		ID          string `json:"id"`
		Destination string `json:"destination"`
		Itinerary   []any  `json:"itinerary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.ID == "" {
		t.Fatal("plan has no id")
	}
	if plan.Destination != "北京" || len(plan.Itinerary) != 3 {
		t.Errorf("plan = %s with %d days, want 北京 with 3", plan.Destination, len(plan.Itinerary))
	}

	got := getJSON(t, ts.URL+"/api/plan/"+plan.ID, http.StatusOK)
	if got["destination"] != "北京" {
		t.Errorf("fetched destination = %v", got["destination"])
	}

	// Calendar export: one all-day event per travel day.
	calResp, err := http.Get(ts.URL + "/api/plan/" + plan.ID + "/ics")
	if err != nil {
		t.Fatalf("GET ics: %v", err)
	}
	defer calResp.Body.Close()
	if ct := calResp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("ics content type = %q", ct)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(calResp.Body); err != nil {
		t.Fatalf("read ics: %v", err)
	}
	cal := buf.String()
	if !strings.Contains(cal, "BEGIN:VCALENDAR") {
		t.Error("not an iCalendar body")
	}
	if n := strings.Count(cal, "BEGIN:VEVENT"); n != 3 {
		t.Errorf("calendar has %d events, want 3", n)
	}

	// QR export: a PNG pointing at the plan page.
	qrResp, err := http.Get(ts.URL + "/api/plan/" + plan.ID + "/qr")
	if err != nil {
		t.Fatalf("GET qr: %v", err)
	}
	defer qrResp.Body.Close()
	if ct := qrResp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("qr content type = %q", ct)
	}
	magic := make([]byte, 4)
	if _, err := io.ReadFull(qrResp.Body, magic); err != nil {
		t.Fatalf("read qr: %v", err)
	}
	if !bytes.Equal(magic, []byte("\x89PNG")) {
		t.Errorf("qr magic = %q, not a PNG", magic)
	}

	// Plan page renders the itinerary as HTML.
	pageResp, err := http.Get(ts.URL + "/plan/" + plan.ID)
	if err != nil {
		t.Fatalf("GET plan page: %v", err)
	}
	defer pageResp.Body.Close()
	if pageResp.StatusCode != http.StatusOK {
		t.Fatalf("plan page status = %d", pageResp.StatusCode)
	}
	buf.Reset()
	if _, err := buf.ReadFrom(pageResp.Body); err != nil {
		t.Fatalf("read plan page: %v", err)
	}
	if !strings.Contains(buf.String(), "北京") {
		t.Error("plan page missing destination")
	}
}

func TestPlanEmailNotConfigured(t *testing.T) {
	_, ts := newTestServer(t)

	payload := `{"destination":"上海"}`
	resp, err := http.Post(ts.URL+"/api/plan", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST plan: %v", err)
	}
	var plan struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	resp.Body.Close()

	mailResp, err := http.Post(ts.URL+"/api/plan/"+plan.ID+"/email", "application/json",
		strings.NewReader(`{"to":["trip@example.com"]}`))
	if err != nil {
		t.Fatalf("POST email: %v", err)
	}
	defer mailResp.Body.Close()
	if mailResp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("email status = %d, want 503", mailResp.StatusCode)
	}
}

func TestPlanNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	body := getJSON(t, ts.URL+"/api/plan/no-such-plan", http.StatusNotFound)
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("error shape = %v", body)
	}
	if errObj["code"] != "not_found" {
		t.Errorf("code = %v, want not_found", errObj["code"])
	}
}

func TestPlanCreateRejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{broken"},
		{"no destination", "{}"},
		{"bad date", `{"destination":"北京","start_date":"tomorrow"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/plan", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST plan: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestTemplateEndpoints(t *testing.T) {
	s, ts := newTestServer(t)

	// Unset store answers 503.
	resp, err := http.Get(ts.URL + "/api/templates")
	if err != nil {
		t.Fatalf("GET templates: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status without store = %d, want 503", resp.StatusCode)
	}

	s.SetTemplates(templates.NewStore(discardLogger()))

	body := getJSON(t, ts.URL+"/api/templates", http.StatusOK)
	if body["count"].(float64) == 0 {
		t.Error("no templates listed")
	}

	reloadResp, err := http.Post(ts.URL+"/api/templates/reload", "application/json", nil)
	if err != nil {
		t.Fatalf("POST reload: %v", err)
	}
	defer reloadResp.Body.Close()
	if reloadResp.StatusCode != http.StatusOK {
		t.Errorf("reload status = %d, want 200", reloadResp.StatusCode)
	}
}

func TestConversationEndpoints(t *testing.T) {
	s, ts := newTestServer(t)

	if _, err := s.pipeline.Respond(context.Background(), "conv-rest", "推荐一下北京的酒店", nil); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	list := getJSON(t, ts.URL+"/api/conversations", http.StatusOK)
	if list["count"].(float64) != 1 {
		t.Errorf("conversation count = %v, want 1", list["count"])
	}

	one := getJSON(t, ts.URL+"/api/conversations/conv-rest", http.StatusOK)
	if one["count"].(float64) != 2 {
		t.Errorf("message count = %v, want 2", one["count"])
	}

	getJSON(t, ts.URL+"/api/conversations/never-spoke", http.StatusNotFound)
}

func TestIndexServesChatPage(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read page: %v", err)
	}
	page := buf.String()
	if !strings.Contains(page, "智能旅行规划助手") {
		t.Error("page missing title")
	}
	if !strings.Contains(page, "/ws") {
		t.Error("page missing websocket address")
	}
}
