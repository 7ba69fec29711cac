package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pulseboard/internal/metrics"
	"pulseboard/internal/sheets/memory"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	s := NewServer(":0", memory.NewSeeded(), opts)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(w, r)
	return w
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "GET", "/healthz")
	if w.Code != http.StatusOK {
		t.Errorf("healthz status = %d", w.Code)
	}
}

func TestReadyz(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "GET", "/readyz")
	if w.Code != http.StatusOK {
		t.Errorf("readyz status = %d", w.Code)
	}
}

func TestSalesEndpoint(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "GET", "/api/dashboard/sales")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}

	var sum metrics.SalesSummary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sum.Transactions != 3 {
		t.Errorf("transactions = %d, want 3", sum.Transactions)
	}
	if sum.TotalRevenueCents != 12000+3500+900 {
		t.Errorf("revenue = %d", sum.TotalRevenueCents)
	}
}

func TestSalesEndpointWithFilter(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "GET", "/api/dashboard/sales?location=Downtown")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var sum metrics.SalesSummary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sum.Transactions != 2 {
		t.Errorf("filtered transactions = %d, want 2", sum.Transactions)
	}
}

func TestSalesEndpointBadDate(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "GET", "/api/dashboard/sales?from=garbage")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSalesEndpointRejectsPost(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "POST", "/api/dashboard/sales")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestSessionsEndpoint(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "GET", "/api/dashboard/sessions")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var sum metrics.SessionsSummary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sum.Sessions != 2 || sum.CheckIns != 23 || sum.Capacity != 32 {
		t.Errorf("sessions summary wrong: %+v", sum)
	}
}

func TestPayrollEndpoint(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "GET", "/api/dashboard/payroll")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var sum metrics.PayrollSummary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sum.Trainers != 2 || sum.TotalPaidCents != 350000 {
		t.Errorf("payroll summary wrong: %+v", sum)
	}
}

func TestClientsEndpoint(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "GET", "/api/dashboard/clients")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var sum metrics.ClientsSummary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sum.Clients != 2 || sum.Converted != 1 {
		t.Errorf("clients summary wrong: %+v", sum)
	}
	if sum.ConversionRatePct != 50 {
		t.Errorf("conversion rate = %v, want 50", sum.ConversionRatePct)
	}
}

func TestLeadsEndpoint(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "GET", "/api/dashboard/leads")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var sum metrics.LeadsSummary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sum.Leads != 2 || sum.Converted != 1 {
		t.Errorf("leads summary wrong: %+v", sum)
	}
}

func TestOverviewEndpoint(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "GET", "/api/dashboard/overview")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var overview metrics.Overview
	if err := json.Unmarshal(w.Body.Bytes(), &overview); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if overview.Sales.Transactions != 3 {
		t.Errorf("overview sales wrong: %+v", overview.Sales)
	}
	if overview.Sessions.Sessions != 2 {
		t.Errorf("overview sessions wrong: %+v", overview.Sessions)
	}
	if overview.GeneratedAt.IsZero() {
		t.Error("generated_at should be set")
	}
}

type fakePublisher struct {
	calls int
	err   error
}

func (f *fakePublisher) PublishRefreshRequest(_ context.Context, _ string) error {
	f.calls++
	return f.err
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context) error {
	f.calls++
	return f.err
}

func TestRefreshPublishes(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestServer(t, Options{Publisher: pub})

	w := doRequest(s, "POST", "/api/refresh")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if pub.calls != 1 {
		t.Errorf("publisher calls = %d, want 1", pub.calls)
	}
}

func TestRefreshPublisherDown(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	s := newTestServer(t, Options{Publisher: pub})

	w := doRequest(s, "POST", "/api/refresh")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestRefreshInProcess(t *testing.T) {
	ref := &fakeRefresher{}
	s := newTestServer(t, Options{Refresher: ref})

	w := doRequest(s, "POST", "/api/refresh")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ref.calls != 1 {
		t.Errorf("refresher calls = %d, want 1", ref.calls)
	}
}

func TestRefreshUnconfigured(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "POST", "/api/refresh")
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

func TestRefreshRejectsGet(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "GET", "/api/refresh")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Options{RateLimitRPS: 1, RateLimitBurst: 2})

	var limited bool
	for i := 0; i < 5; i++ {
		w := doRequest(s, "GET", "/api/dashboard/sales")
		if w.Code == http.StatusTooManyRequests {
			limited = true
			if w.Header().Get("Retry-After") == "" {
				t.Error("429 should carry Retry-After")
			}
			break
		}
	}
	if !limited {
		t.Error("expected a 429 after exhausting the burst")
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doRequest(s, "GET", "/api/dashboard/sales")
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestSalesEndpointServesCached(t *testing.T) {
	s := newTestServer(t, Options{})

	first := doRequest(s, "GET", "/api/dashboard/sales")
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d", first.Code)
	}

	// Second identical request must hit the cache and return the same
	// payload.
	second := doRequest(s, "GET", "/api/dashboard/sales")
	if second.Code != http.StatusOK {
		t.Fatalf("status = %d", second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Error("cached response differs from original")
	}
	if s.salesCache.Size() != 1 {
		t.Errorf("cache size = %d, want 1", s.salesCache.Size())
	}
}
