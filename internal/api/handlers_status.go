package api

import (
	"encoding/json"
	"net/http"

	"github.com/zmstream/streamcore/internal/core"
)

// statusResponse is an operator-facing snapshot of every active source,
// its HLS session (if any), and its live WebRTC viewer count.
type statusResponse struct {
	Sources     []core.SourceStats       `json:"sources"`
	HLSSessions []core.HLSSessionStats   `json:"hls_sessions"`
	WebRTCCount int                      `json:"webrtc_session_count"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Sources:     s.router.Stats(),
		HLSSessions: s.hls.GetStats(),
		WebRTCCount: s.webrtc.SessionCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
