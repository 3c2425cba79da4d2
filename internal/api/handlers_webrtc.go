package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/zmstream/streamcore/internal/core/webrtcsession"
)

func (s *Server) handleWebRTCSignaling(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMonitorID(r)
	if !ok {
		http.Error(w, "invalid monitor id", http.StatusBadRequest)
		return
	}
	if !s.ensureSource(w, r, id) {
		return
	}

	withAudio := false
	if cfg, ok := s.monitors.Get(id); ok {
		withAudio = cfg.HasAudio
	}

	viewerID := r.URL.Query().Get("viewer_id")
	if viewerID == "" {
		viewerID = uuid.New().String()
	}

	webrtcsession.ServeSignaling(w, r, viewerID, id, s.webrtc, withAudio, s.log)
}
