package ptz

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/zmstream/streamcore/internal/core"
)

const execTimeout = 30 * time.Second

// ExecControl invokes the legacy zmcontrol helper binary as a subprocess,
// used when no native protocol implementation is registered.
type ExecControl struct {
	monitorID  uint32
	helperPath string
	cap        Capability
}

// NewExecControl constructs an ExecControl targeting one monitor.
func NewExecControl(helperPath string, monitorID uint32, cap Capability) *ExecControl {
	return &ExecControl{monitorID: monitorID, helperPath: helperPath, cap: cap}
}

func (e *ExecControl) ProtocolName() string { return "exec" }
func (e *ExecControl) IsNative() bool        { return false }

// Execute runs the helper with --id <N> --command <name> plus whatever
// speed/preset/autostop flags the command carries, bounded by a 30s total
// timeout. Exit code 0 is success; otherwise stderr substrings are mapped
// to PTZErrorKinds.
func (e *ExecControl) Execute(ctx context.Context, cmd Command) (Result, error) {
	args := e.buildArgs(cmd)

	execCtx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	c := exec.CommandContext(execCtx, e.helperPath, args...)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	if err == nil {
		return Result{Success: true, Message: strings.TrimSpace(stdout.String())}, nil
	}

	return Result{}, classifyExecError(stderr.String())
}

func (e *ExecControl) buildArgs(cmd Command) []string {
	args := []string{
		"--id", strconv.FormatUint(uint64(e.monitorID), 10),
		"--command", cmd.zmcontrolName(),
	}

	switch cmd.Kind {
	case CmdMove:
		if cmd.MoveP.PanSpeed != nil {
			args = append(args, "--panspeed", strconv.FormatFloat(e.cap.ScalePanSpeed(*cmd.MoveP.PanSpeed), 'f', -1, 64))
		}
		if cmd.MoveP.TiltSpeed != nil {
			args = append(args, "--tiltspeed", strconv.FormatFloat(e.cap.ScaleTiltSpeed(*cmd.MoveP.TiltSpeed), 'f', -1, 64))
		}
		if cmd.MoveP.AutoStop {
			args = append(args, "--autostop")
		}
	case CmdGotoPreset, CmdSetPreset, CmdClearPreset:
		args = append(args, "--preset", strconv.FormatUint(uint64(cmd.PresetID), 10))
	}

	return args
}

// classifyExecError maps a stderr substring to a PTZErrorKind, per the
// legacy helper's conventional error phrasing.
func classifyExecError(stderr string) error {
	switch {
	case strings.Contains(stderr, "Authentication"):
		return &core.PTZError{Kind: core.PTZErrExecFailure, Message: "authentication failed: " + stderr}
	case strings.Contains(stderr, "not supported"):
		return &core.PTZError{Kind: core.PTZErrCommandNotSupported, Message: "command not supported: " + stderr}
	case strings.Contains(stderr, "Connection"), strings.Contains(stderr, "timeout"):
		return &core.PTZError{Kind: core.PTZErrSocketFailure, Message: "camera offline: " + stderr}
	default:
		return &core.PTZError{Kind: core.PTZErrExecFailure, Message: fmt.Sprintf("bridge error: %s", stderr)}
	}
}

// ExecFactory builds ExecControl instances, serving as the Registry's
// process-exec fallback factory for any protocol name with no native
// implementation.
type ExecFactory struct {
	HelperPath string
}

func (f *ExecFactory) ProtocolName() string { return "*" }
func (f *ExecFactory) IsNative() bool        { return false }

func (f *ExecFactory) Create(cfg ConnectionConfig, cap Capability) Control {
	return NewExecControl(f.HelperPath, cfg.MonitorID, cap)
}
