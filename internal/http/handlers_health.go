package http

import (
	"context"
	"net/http"
	"time"

	"maasser/internal/cache"
	applog "maasser/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady pings the storage backend with a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed",
				applog.NewFields().WithError(err).WithErrorType(applog.ErrorTypeDatabase).ToSlice()...)
			ErrorResponse(http.StatusServiceUnavailable, "storage unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

type metricsResponse struct {
	UptimeSeconds    int64        `json:"uptimeSeconds"`
	Requests         int64        `json:"requests"`
	ServerErrors     int64        `json:"serverErrors"`
	LastDurationUs   int64        `json:"lastDurationUs"`
	RateLimited      int64        `json:"rateLimited"`
	RateLimitClients int64        `json:"rateLimitClients"`
	Suspicious       int64        `json:"suspicious"`
	DashboardCache   *cache.Stats `json:"dashboardCache,omitempty"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	tm := s.trace.GetMetrics()
	rl := s.limiter.GetMetrics()
	m := metricsResponse{
		UptimeSeconds:    int64(time.Since(s.startedAt).Seconds()),
		Requests:         tm.TotalRequests,
		ServerErrors:     tm.ServerErrors,
		LastDurationUs:   tm.LastDurationUs,
		RateLimited:      rl.Rejected,
		RateLimitClients: rl.ClientCount,
		Suspicious:       s.detector.SuspiciousCount(),
	}
	if s.dashboards != nil {
		st := s.dashboards.Stats()
		m.DashboardCache = &st
	}
	NewJSONResponse().Body(m).Write(w)
}
