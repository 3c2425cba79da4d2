// Package ptz implements pan/tilt/zoom command dispatch: a protocol
// registry that prefers a native socket-based controller and falls back to
// spawning a legacy helper process, fronted by a single priority command
// queue shared by every monitor.
package ptz

// MoveDirection is a continuous or relative pan/tilt movement direction.
type MoveDirection int

const (
	MoveUp MoveDirection = iota
	MoveDown
	MoveLeft
	MoveRight
	MoveUpLeft
	MoveUpRight
	MoveDownLeft
	MoveDownRight
)

func (d MoveDirection) String() string {
	switch d {
	case MoveUp:
		return "up"
	case MoveDown:
		return "down"
	case MoveLeft:
		return "left"
	case MoveRight:
		return "right"
	case MoveUpLeft:
		return "up_left"
	case MoveUpRight:
		return "up_right"
	case MoveDownLeft:
		return "down_left"
	case MoveDownRight:
		return "down_right"
	default:
		return "unknown"
	}
}

// PanComponent returns -1, 0, or 1 for the direction's horizontal component.
func (d MoveDirection) PanComponent() int {
	switch d {
	case MoveLeft, MoveUpLeft, MoveDownLeft:
		return -1
	case MoveRight, MoveUpRight, MoveDownRight:
		return 1
	default:
		return 0
	}
}

// TiltComponent returns -1, 0, or 1 for the direction's vertical component.
func (d MoveDirection) TiltComponent() int {
	switch d {
	case MoveUp, MoveUpLeft, MoveUpRight:
		return 1
	case MoveDown, MoveDownLeft, MoveDownRight:
		return -1
	default:
		return 0
	}
}

// IsDiagonal reports whether the direction combines pan and tilt.
func (d MoveDirection) IsDiagonal() bool {
	switch d {
	case MoveUpLeft, MoveUpRight, MoveDownLeft, MoveDownRight:
		return true
	default:
		return false
	}
}

// ZoomDirection, FocusDirection and IrisDirection are the remaining
// continuous-movement axes.
type ZoomDirection int

const (
	ZoomIn ZoomDirection = iota
	ZoomOut
)

type FocusDirection int

const (
	FocusNear FocusDirection = iota
	FocusFar
)

type IrisDirection int

const (
	IrisOpen IrisDirection = iota
	IrisClose
)

// MoveParams carries the percentage speeds (0..100) and optional auto-stop
// duration for a continuous or relative movement command.
type MoveParams struct {
	PanSpeed   *uint8
	TiltSpeed  *uint8
	DurationMs *uint32
	AutoStop   bool
}

// ZoomParams and FocusParams mirror MoveParams for the single-axis commands.
type ZoomParams struct {
	Speed      *uint8
	DurationMs *uint32
}

type FocusParams struct {
	Speed      *uint8
	DurationMs *uint32
}

// AbsolutePosition is a protocol-specific absolute pan/tilt/zoom position.
type AbsolutePosition struct {
	Pan  *float64
	Tilt *float64
	Zoom *float64
}

// RelativePosition is a protocol-specific pan/tilt/zoom delta.
type RelativePosition struct {
	PanDelta  *float64
	TiltDelta *float64
	ZoomDelta *float64
}

// CommandKind enumerates the PTZ vocabulary the controller understands.
type CommandKind string

const (
	CmdMove        CommandKind = "move"
	CmdMoveStop    CommandKind = "move_stop"
	CmdZoom        CommandKind = "zoom"
	CmdZoomStop    CommandKind = "zoom_stop"
	CmdFocus       CommandKind = "focus"
	CmdFocusStop   CommandKind = "focus_stop"
	CmdFocusAuto   CommandKind = "focus_auto"
	CmdIris        CommandKind = "iris"
	CmdIrisStop    CommandKind = "iris_stop"
	CmdIrisAuto    CommandKind = "iris_auto"
	CmdGotoPreset  CommandKind = "goto_preset"
	CmdSetPreset   CommandKind = "set_preset"
	CmdClearPreset CommandKind = "clear_preset"
	CmdGotoHome    CommandKind = "goto_home"
	CmdMoveAbs     CommandKind = "move_absolute"
	CmdMoveRel     CommandKind = "move_relative"
	CmdWake        CommandKind = "wake"
	CmdSleep       CommandKind = "sleep"
	CmdReset       CommandKind = "reset"
	CmdReboot      CommandKind = "reboot"
)

// Command is a single fully-parameterized PTZ request for one monitor.
type Command struct {
	Kind      CommandKind
	Move      MoveDirection
	Zoom      ZoomDirection
	Focus     FocusDirection
	Iris      IrisDirection
	MoveP     MoveParams
	ZoomP     ZoomParams
	FocusP    FocusParams
	PresetID  uint32
	PresetName string
	Absolute  AbsolutePosition
	Relative  RelativePosition
}

// zmcontrolName maps a Command to the legacy helper's command-name
// vocabulary, used both as the socket protocol's "command" field and as the
// process fallback's --command argument.
func (c Command) zmcontrolName() string {
	switch c.Kind {
	case CmdMove:
		switch c.Move {
		case MoveUp:
			return "moveConUp"
		case MoveDown:
			return "moveConDown"
		case MoveLeft:
			return "moveConLeft"
		case MoveRight:
			return "moveConRight"
		case MoveUpLeft:
			return "moveConUpLeft"
		case MoveUpRight:
			return "moveConUpRight"
		case MoveDownLeft:
			return "moveConDownLeft"
		case MoveDownRight:
			return "moveConDownRight"
		}
	case CmdMoveStop:
		return "moveStop"
	case CmdZoom:
		if c.Zoom == ZoomIn {
			return "zoomConTele"
		}
		return "zoomConWide"
	case CmdZoomStop:
		return "zoomStop"
	case CmdFocus:
		if c.Focus == FocusNear {
			return "focusConNear"
		}
		return "focusConFar"
	case CmdFocusStop:
		return "focusStop"
	case CmdFocusAuto:
		return "focusAuto"
	case CmdIris:
		if c.Iris == IrisOpen {
			return "irisConOpen"
		}
		return "irisConClose"
	case CmdIrisStop:
		return "irisStop"
	case CmdIrisAuto:
		return "irisAuto"
	case CmdGotoPreset:
		return "presetGoto"
	case CmdSetPreset:
		return "presetSet"
	case CmdClearPreset:
		return "presetClear"
	case CmdGotoHome:
		return "presetHome"
	case CmdMoveAbs:
		return "moveAbsPan"
	case CmdMoveRel:
		return "moveRelPan"
	case CmdWake:
		return "wake"
	case CmdSleep:
		return "sleep"
	case CmdReset:
		return "reset"
	case CmdReboot:
		return "reboot"
	}
	return "unknown"
}

// isHighPriority reports whether the queue should jump this command ahead of
// any queued continuous-movement or preset commands for the same monitor.
func (c Command) isHighPriority() bool {
	switch c.Kind {
	case CmdMoveStop, CmdZoomStop, CmdFocusStop, CmdIrisStop, CmdGotoHome:
		return true
	default:
		return false
	}
}

// Result is the {success, message} the controller surfaces to callers.
type Result struct {
	Success  bool
	Message  string
	Position *AbsolutePosition
}
