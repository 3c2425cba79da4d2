package ptz

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/sigurn/crc8"

	"github.com/zmstream/streamcore/internal/core"
)

var crc8Table = crc8.MakeTable(crc8.CRC8)

const (
	socketDialTimeout = 1 * time.Second
	socketReadTimeout  = 30 * time.Second
)

// socketCommand is the JSON object written to the control socket.
type socketCommand struct {
	Command    string   `json:"command"`
	PanSpeed   *float64 `json:"pan_speed,omitempty"`
	TiltSpeed  *float64 `json:"tilt_speed,omitempty"`
	ZoomSpeed  *float64 `json:"zoom_speed,omitempty"`
	DurationMs *uint32  `json:"duration_ms,omitempty"`
	PresetID   *uint32  `json:"preset_id,omitempty"`
	PresetName string   `json:"preset_name,omitempty"`
	AutoStop   int      `json:"autostop,omitempty"`
}

// SocketControl talks to a monitor's native control socket at
// {sock_dir}/zmcontrol-{id}.sock.
type SocketControl struct {
	monitorID uint32
	sockPath  string
	cap       Capability
}

// NewSocketControl constructs a SocketControl for one monitor.
func NewSocketControl(sockDir string, monitorID uint32, cap Capability) *SocketControl {
	return &SocketControl{
		monitorID: monitorID,
		sockPath:  filepath.Join(sockDir, fmt.Sprintf("zmcontrol-%d.sock", monitorID)),
		cap:       cap,
	}
}

func (s *SocketControl) ProtocolName() string { return "socket" }
func (s *SocketControl) IsNative() bool        { return true }

// Execute connects with a 1s dial timeout, writes the JSON command followed
// by a CRC-8 checksum byte over the JSON bytes, half-closes the write side,
// then reads the response with a 30s deadline. An empty response means
// success.
func (s *SocketControl) Execute(ctx context.Context, cmd Command) (Result, error) {
	payload, err := s.encode(cmd)
	if err != nil {
		return Result{}, err
	}

	dialer := net.Dialer{Timeout: socketDialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", s.sockPath)
	if err != nil {
		return Result{}, &core.PTZError{Kind: core.PTZErrSocketFailure, Message: err.Error()}
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		return Result{}, &core.PTZError{Kind: core.PTZErrSocketFailure, Message: err.Error()}
	}

	if unixConn, ok := conn.(*net.UnixConn); ok {
		_ = unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(socketReadTimeout))
	resp := make([]byte, 4096)
	n, err := conn.Read(resp)
	if err != nil && n == 0 {
		return Result{Success: true, Message: "ok (empty response)"}, nil
	}

	return Result{Success: true, Message: string(resp[:n])}, nil
}

// encode marshals the command to JSON then appends a single CRC-8 checksum
// byte over the JSON bytes, a lightweight frame integrity check the
// helper-side peer may ignore but this side always writes.
func (s *SocketControl) encode(cmd Command) ([]byte, error) {
	sc := socketCommand{Command: cmd.zmcontrolName()}

	switch cmd.Kind {
	case CmdMove:
		if cmd.MoveP.PanSpeed != nil {
			v := s.cap.ScalePanSpeed(*cmd.MoveP.PanSpeed)
			sc.PanSpeed = &v
		}
		if cmd.MoveP.TiltSpeed != nil {
			v := s.cap.ScaleTiltSpeed(*cmd.MoveP.TiltSpeed)
			sc.TiltSpeed = &v
		}
		sc.DurationMs = cmd.MoveP.DurationMs
		if cmd.MoveP.AutoStop {
			sc.AutoStop = 1
		}
	case CmdZoom:
		if cmd.ZoomP.Speed != nil {
			v := s.cap.ScaleZoomSpeed(*cmd.ZoomP.Speed)
			sc.ZoomSpeed = &v
		}
		sc.DurationMs = cmd.ZoomP.DurationMs
	case CmdGotoPreset, CmdClearPreset:
		id := cmd.PresetID
		sc.PresetID = &id
	case CmdSetPreset:
		id := cmd.PresetID
		sc.PresetID = &id
		sc.PresetName = cmd.PresetName
	}

	body, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("marshal ptz command: %w", err)
	}

	checksum := crc8.Checksum(body, crc8Table)
	return append(body, checksum), nil
}
