package http

import (
	"context"
	"net/http"
	"time"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DB.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
			ErrorResponse(r, http.StatusServiceUnavailable, "database unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

type metricsResponse struct {
	Requests           int64   `json:"requests"`
	ServerErrors       int64   `json:"server_errors"`
	AvgDurationMs      float64 `json:"avg_duration_ms"`
	SuspiciousRequests int64   `json:"suspicious_requests"`
	RateLimited        int64   `json:"rate_limited"`
	RateLimitClients   int64   `json:"rate_limit_clients"`
	DashboardCache     int     `json:"dashboard_cache_entries"`
	CategoryCache      int     `json:"category_cache_entries"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	NewJSONResponse().Body(metricsResponse{
		Requests:           tm.TotalRequests,
		ServerErrors:       tm.ServerErrors,
		AvgDurationMs:      float64(tm.AverageDuration().Microseconds()) / 1000,
		SuspiciousRequests: s.detector.GetMetrics().SuspiciousRequests,
		RateLimited:        rl.TotalHits,
		RateLimitClients:   rl.ClientCount,
		DashboardCache:     s.dashboards.Size(),
		CategoryCache:      s.categories.Size(),
	}).Write(w)
}
