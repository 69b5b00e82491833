package http

import (
	"context"
	"net/http"
	"time"

	"budgeteer/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"store": "ok"}
	if s.store == nil {
		checks["store"] = "failed: not configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := s.store.Ping(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(ctx, w, code, map[string]any{
		"status": status,
		"checks": checks,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, "summary")
		return
	}
	ym, err := ParseSummaryMonth(r.URL.Query(), s.now())
	if err != nil {
		writeError(ctx, w, err, "summary")
		return
	}
	summary, err := s.summaries.MonthlySummary(ctx, owner, ym.Year, ym.Month)
	if err != nil {
		writeError(ctx, w, err, "summary")
		return
	}
	writeJSON(ctx, w, http.StatusOK, summary)
}

// handleCategorize suggests a category for a description being typed in.
func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(r.Context(), w, http.StatusOK, services.Suggest(q.Get("description"), q.Get("subDescription")))
}
