package http

import (
	"net/http"

	"expensetracker/internal/log"
	"expensetracker/internal/monitor"
	"expensetracker/internal/scheduler"
)

type monitorStatusResponse struct {
	Today     string              `json:"today"`
	Scheduler *scheduler.Status   `json:"scheduler,omitempty"`
	LastScan  *monitor.ScanReport `json:"last_scan,omitempty"`
}

func (s *Server) handleMonitorStatus(w http.ResponseWriter, r *http.Request) {
	resp := monitorStatusResponse{Today: s.today().String()}
	if s.deps.Scheduler != nil {
		st := s.deps.Scheduler.Status()
		resp.Scheduler = &st
	}
	if s.deps.Monitor != nil {
		if report, ok := s.deps.Monitor.LastReport(); ok {
			resp.LastScan = &report
		}
	}
	NewJSONResponse().Body(resp).Write(w)
}

// handleMonitorCheck runs a due scan now, outside the cron triggers.
func (s *Server) handleMonitorCheck(w http.ResponseWriter, r *http.Request) {
	if s.deps.Monitor == nil {
		ErrorResponse(r, http.StatusServiceUnavailable, "due monitor is not configured").Write(w)
		return
	}
	report, err := s.deps.Monitor.ForceCheck(r.Context())
	if err != nil {
		writeServiceError(w, r, log.OpScan, err)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}
