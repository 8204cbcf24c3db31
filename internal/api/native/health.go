package nativeapi

import "net/http"

type healthResponse struct {
	Status   string   `json:"status"`
	Degraded []string `json:"degraded,omitempty"`
}

// handleHealth reports the degraded-component set computed by HealthChecker.
// An empty set is "ok"; any entries report "degraded" without failing the
// HTTP status — a caller that wants a hard up/down signal inspects the body.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	degraded := s.health.Health(r.Context())
	resp := healthResponse{Status: "ok", Degraded: degraded}
	if len(degraded) > 0 {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}
