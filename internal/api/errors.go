package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zmstream/streamcore/internal/core"
)

// errorBody is the JSON shape written for every non-2xx response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError type-switches on the core error taxonomy and writes the mapped
// status code plus a JSON {error, message} body. Errors outside the
// taxonomy are treated as category 8 (Internal) and logged generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: kind, Message: err.Error()})
}

func classify(err error) (int, string) {
	var sourceUnavailable *core.ErrSourceUnavailable
	if errors.As(err, &sourceUnavailable) {
		return http.StatusNotFound, "source_unavailable"
	}

	var fifoNotFound *core.ErrFifoNotFound
	if errors.As(err, &fifoNotFound) {
		return http.StatusNotFound, "source_unavailable"
	}

	var sessionExists *core.ErrSessionExists
	if errors.As(err, &sessionExists) {
		return http.StatusConflict, "session_exists"
	}

	var sessionNotFound *core.ErrSessionNotFound
	if errors.As(err, &sessionNotFound) {
		return http.StatusNotFound, "session_not_found"
	}

	var initNotReady *core.ErrInitNotReady
	if errors.As(err, &initNotReady) {
		return http.StatusServiceUnavailable, "init_not_ready"
	}

	var timeout *core.ErrTimeout
	if errors.As(err, &timeout) {
		return http.StatusGatewayTimeout, "timeout"
	}

	var keyframeTimeout *core.ErrKeyframeTimeout
	if errors.As(err, &keyframeTimeout) {
		return http.StatusGatewayTimeout, "timeout"
	}

	var invalidSDP *core.ErrInvalidSDP
	if errors.As(err, &invalidSDP) {
		return http.StatusBadRequest, "protocol_error"
	}

	var decodeFailed *core.ErrDecodeFailed
	if errors.As(err, &decodeFailed) {
		return http.StatusInternalServerError, "internal"
	}

	var ptzErr *core.PTZError
	if errors.As(err, &ptzErr) {
		switch ptzErr.Kind {
		case core.PTZErrNoCapability, core.PTZErrUnsupportedProtocol:
			return http.StatusServiceUnavailable, "ptz_error"
		case core.PTZErrInvalidCommand, core.PTZErrCommandNotSupported:
			return http.StatusBadRequest, "ptz_error"
		case core.PTZErrSocketFailure, core.PTZErrExecFailure:
			return http.StatusServiceUnavailable, "ptz_error"
		case core.PTZErrRateLimited:
			return http.StatusTooManyRequests, "ptz_error"
		default:
			return http.StatusInternalServerError, "ptz_error"
		}
	}

	return http.StatusInternalServerError, "internal"
}
