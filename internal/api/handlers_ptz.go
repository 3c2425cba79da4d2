package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/core/ptz"
)

// ptzRequest is the JSON body accepted by POST /ptz/{id}/{command}; only the
// fields relevant to the command kind named in the URL need be present.
type ptzRequest struct {
	Direction  string   `json:"direction,omitempty"`
	PanSpeed   *uint8   `json:"pan_speed,omitempty"`
	TiltSpeed  *uint8   `json:"tilt_speed,omitempty"`
	Speed      *uint8   `json:"speed,omitempty"`
	DurationMs *uint32  `json:"duration_ms,omitempty"`
	AutoStop   bool     `json:"auto_stop,omitempty"`
	PresetID   uint32   `json:"preset_id,omitempty"`
	PresetName string   `json:"preset_name,omitempty"`
	Pan        *float64 `json:"pan,omitempty"`
	Tilt       *float64 `json:"tilt,omitempty"`
	Zoom       *float64 `json:"zoom,omitempty"`
}

var moveDirections = map[string]ptz.MoveDirection{
	"up": ptz.MoveUp, "down": ptz.MoveDown, "left": ptz.MoveLeft, "right": ptz.MoveRight,
	"up_left": ptz.MoveUpLeft, "up_right": ptz.MoveUpRight,
	"down_left": ptz.MoveDownLeft, "down_right": ptz.MoveDownRight,
}

func buildCommand(kind ptz.CommandKind, req ptzRequest) (ptz.Command, error) {
	cmd := ptz.Command{
		Kind:       kind,
		PresetID:   req.PresetID,
		PresetName: req.PresetName,
	}

	switch kind {
	case ptz.CmdMove, ptz.CmdMoveAbs, ptz.CmdMoveRel:
		dir, ok := moveDirections[req.Direction]
		if !ok && kind == ptz.CmdMove {
			return cmd, &core.PTZError{Kind: core.PTZErrInvalidCommand, Message: fmt.Sprintf("unknown move direction %q", req.Direction)}
		}
		cmd.Move = dir
		cmd.MoveP = ptz.MoveParams{PanSpeed: req.PanSpeed, TiltSpeed: req.TiltSpeed, DurationMs: req.DurationMs, AutoStop: req.AutoStop}
		cmd.Absolute = ptz.AbsolutePosition{Pan: req.Pan, Tilt: req.Tilt, Zoom: req.Zoom}
		cmd.Relative = ptz.RelativePosition{PanDelta: req.Pan, TiltDelta: req.Tilt, ZoomDelta: req.Zoom}

	case ptz.CmdZoom:
		if req.Direction == "out" {
			cmd.Zoom = ptz.ZoomOut
		}
		cmd.ZoomP = ptz.ZoomParams{Speed: req.Speed, DurationMs: req.DurationMs}

	case ptz.CmdFocus:
		if req.Direction == "far" {
			cmd.Focus = ptz.FocusFar
		}
		cmd.FocusP = ptz.FocusParams{Speed: req.Speed, DurationMs: req.DurationMs}

	case ptz.CmdIris:
		if req.Direction == "close" {
			cmd.Iris = ptz.IrisClose
		}

	case ptz.CmdMoveStop, ptz.CmdZoomStop, ptz.CmdFocusStop, ptz.CmdFocusAuto,
		ptz.CmdIrisStop, ptz.CmdIrisAuto, ptz.CmdGotoPreset, ptz.CmdSetPreset,
		ptz.CmdClearPreset, ptz.CmdGotoHome, ptz.CmdWake, ptz.CmdSleep,
		ptz.CmdReset, ptz.CmdReboot:
		// no direction/speed parameters

	default:
		return cmd, &core.PTZError{Kind: core.PTZErrInvalidCommand, Message: fmt.Sprintf("unknown command %q", kind)}
	}

	return cmd, nil
}

// ptzResultBody is the {success, message} shape the HTTP surface returns.
type ptzResultBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handlePTZCommand(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMonitorID(r)
	if !ok {
		http.Error(w, "invalid monitor id", http.StatusBadRequest)
		return
	}

	kind := ptz.CommandKind(mux.Vars(r)["command"])

	var req ptzRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	cmd, err := buildCommand(kind, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.ptzCtrl.Dispatch(r.Context(), uint32(id), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ptzResultBody{Success: result.Success, Message: result.Message})
}
