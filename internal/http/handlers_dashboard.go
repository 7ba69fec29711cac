package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"pulseboard/internal/metrics"
)

const sourceTimeout = 7 * time.Second

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func (s *Server) handleSales(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	key := filterCacheKey(f)
	if summary, found := s.salesCache.Get(key); found {
		writeJSON(w, r, http.StatusOK, summary)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sourceTimeout)
	defer cancel()
	sales, err := s.source.ListSales(ctx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load sales", "error", err)
		writeError(w, r, http.StatusBadGateway, "data source unavailable")
		return
	}

	summary := metrics.BuildSalesSummary(sales, f)
	s.salesCache.Set(key, summary)
	writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	key := filterCacheKey(f)
	if summary, found := s.sessionsCache.Get(key); found {
		writeJSON(w, r, http.StatusOK, summary)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sourceTimeout)
	defer cancel()
	sessions, err := s.source.ListSessions(ctx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load sessions", "error", err)
		writeError(w, r, http.StatusBadGateway, "data source unavailable")
		return
	}

	summary := metrics.BuildSessionsSummary(sessions, f)
	s.sessionsCache.Set(key, summary)
	writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handlePayroll(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	// Payroll rows are period totals without dates, so the filter does
	// not apply. One cache entry covers everyone.
	const key = "payroll"
	if summary, found := s.payrollCache.Get(key); found {
		writeJSON(w, r, http.StatusOK, summary)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sourceTimeout)
	defer cancel()
	payroll, err := s.source.ListPayroll(ctx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load payroll", "error", err)
		writeError(w, r, http.StatusBadGateway, "data source unavailable")
		return
	}

	summary := metrics.BuildPayrollSummary(payroll)
	s.payrollCache.Set(key, summary)
	writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	key := filterCacheKey(f)
	if summary, found := s.clientsCache.Get(key); found {
		writeJSON(w, r, http.StatusOK, summary)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sourceTimeout)
	defer cancel()
	clients, err := s.source.ListClients(ctx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load clients", "error", err)
		writeError(w, r, http.StatusBadGateway, "data source unavailable")
		return
	}

	summary := metrics.BuildClientsSummary(clients, f)
	s.clientsCache.Set(key, summary)
	writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	key := filterCacheKey(f)
	if summary, found := s.leadsCache.Get(key); found {
		writeJSON(w, r, http.StatusOK, summary)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sourceTimeout)
	defer cancel()
	leads, err := s.source.ListLeads(ctx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load leads", "error", err)
		writeError(w, r, http.StatusBadGateway, "data source unavailable")
		return
	}

	summary := metrics.BuildLeadsSummary(leads, f)
	s.leadsCache.Set(key, summary)
	writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	key := filterCacheKey(f)
	if overview, found := s.overviewCache.Get(key); found {
		writeJSON(w, r, http.StatusOK, overview)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sourceTimeout)
	defer cancel()
	snap, err := s.source.ReadSnapshot(ctx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load snapshot", "error", err)
		writeError(w, r, http.StatusBadGateway, "data source unavailable")
		return
	}

	overview := metrics.BuildOverview(snap, f)
	s.overviewCache.Set(key, overview)
	writeJSON(w, r, http.StatusOK, overview)
}
