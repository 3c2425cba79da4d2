package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/core/playlist"
)

func parseMonitorID(r *http.Request) (core.MonitorID, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		return 0, false
	}
	return core.MonitorID(id), true
}

func (s *Server) ensureSource(w http.ResponseWriter, r *http.Request, id core.MonitorID) bool {
	if s.router.IsAvailable(id) {
		return true
	}
	s.writeError(w, r, &core.ErrSourceUnavailable{MonitorID: id})
	return false
}

func (s *Server) handleHLSMaster(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMonitorID(r)
	if !ok {
		http.Error(w, "invalid monitor id", http.StatusBadRequest)
		return
	}
	if !s.ensureSource(w, r, id) {
		return
	}
	if _, err := s.feeder.ensure(id); err != nil {
		s.writeError(w, r, err)
		return
	}

	text, err := playlist.GenerateMaster([]playlist.MasterVariant{
		{MonitorID: id, URI: "playlist.m3u8", Bandwidth: 2_000_000, Codecs: "avc1.42e01f"},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Write([]byte(text))
}

func (s *Server) handleHLSPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMonitorID(r)
	if !ok {
		http.Error(w, "invalid monitor id", http.StatusBadRequest)
		return
	}
	if !s.ensureSource(w, r, id) {
		return
	}

	sess, err := s.feeder.ensure(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	viewerID := r.RemoteAddr
	sess.AddViewer(viewerID)
	defer sess.RemoveViewer(viewerID)

	var minSeq uint64
	if v := r.URL.Query().Get("_HLS_msn"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid _HLS_msn", http.StatusBadRequest)
			return
		}
		minSeq = parsed
	}

	if minSeq > 0 {
		if err := sess.WaitForSegment(r.Context(), minSeq, s.hlsWaitMax); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	text, err := sess.GeneratePlaylist()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(text))
}

func (s *Server) handleHLSInit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMonitorID(r)
	if !ok {
		http.Error(w, "invalid monitor id", http.StatusBadRequest)
		return
	}
	if !s.ensureSource(w, r, id) {
		return
	}

	sess, err := s.feeder.ensure(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := sess.GetInitSegment()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Cache-Control", "max-age=3600")
	w.Write(data)
}

func (s *Server) handleHLSSegment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMonitorID(r)
	if !ok {
		http.Error(w, "invalid monitor id", http.StatusBadRequest)
		return
	}
	if !s.ensureSource(w, r, id) {
		return
	}

	sess, err := s.feeder.ensure(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	vars := mux.Vars(r)
	seq, err := strconv.ParseUint(vars["seq"], 10, 64)
	if err != nil {
		http.Error(w, "invalid segment sequence", http.StatusBadRequest)
		return
	}

	data, err := sess.GetSegment(seq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "video/iso.segment")
	w.Header().Set("Cache-Control", "max-age=3600")
	w.Write(data)
}
