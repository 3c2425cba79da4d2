package api

import "net/http"

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMonitorID(r)
	if !ok {
		http.Error(w, "invalid monitor id", http.StatusBadRequest)
		return
	}

	jpeg, err := s.snap.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "max-age=2")
	w.Write(jpeg)
}
