package core

import "fmt"

// ErrSourceUnavailable indicates a monitor has no active or startable source.
type ErrSourceUnavailable struct {
	MonitorID MonitorID
}

func (e *ErrSourceUnavailable) Error() string {
	return fmt.Sprintf("source unavailable for monitor %d", e.MonitorID)
}

// ErrFifoNotFound indicates a monitor's FIFO path does not exist on disk.
type ErrFifoNotFound struct {
	MonitorID MonitorID
	Path      string
}

func (e *ErrFifoNotFound) Error() string {
	return fmt.Sprintf("fifo not found for monitor %d at %s", e.MonitorID, e.Path)
}

// ErrReaderStartFailed indicates a reader goroutine could not be started.
type ErrReaderStartFailed struct {
	MonitorID MonitorID
	Reason    string
}

func (e *ErrReaderStartFailed) Error() string {
	return fmt.Sprintf("reader start failed for monitor %d: %s", e.MonitorID, e.Reason)
}

// ErrFifo wraps a low-level I/O failure encountered while reading a FIFO.
type ErrFifo struct {
	MonitorID MonitorID
	Err       error
}

func (e *ErrFifo) Error() string {
	return fmt.Sprintf("fifo error for monitor %d: %v", e.MonitorID, e.Err)
}

func (e *ErrFifo) Unwrap() error { return e.Err }

// ErrSessionExists indicates a session already exists for the given monitor.
type ErrSessionExists struct {
	MonitorID MonitorID
}

func (e *ErrSessionExists) Error() string {
	return fmt.Sprintf("session already exists for monitor %d", e.MonitorID)
}

// ErrSessionNotFound indicates no session exists for the given monitor.
type ErrSessionNotFound struct {
	MonitorID MonitorID
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("no session for monitor %d", e.MonitorID)
}

// ErrStorage wraps a failure writing or reading HLS segment storage.
type ErrStorage struct {
	Path string
	Err  error
}

func (e *ErrStorage) Error() string {
	return fmt.Sprintf("storage error at %s: %v", e.Path, e.Err)
}

func (e *ErrStorage) Unwrap() error { return e.Err }

// ErrTimeout indicates a blocking-reload wait exceeded its deadline.
type ErrTimeout struct {
	MonitorID MonitorID
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("timeout waiting for %s on monitor %d", e.Operation, e.MonitorID)
}

// ErrInitNotReady indicates a session has no init segment yet.
type ErrInitNotReady struct {
	MonitorID MonitorID
}

func (e *ErrInitNotReady) Error() string {
	return fmt.Sprintf("init segment not ready for monitor %d", e.MonitorID)
}

// ErrEngine wraps a pion/webrtc setup failure (media engine, peer connection).
type ErrEngine struct {
	Stage string
	Err   error
}

func (e *ErrEngine) Error() string {
	return fmt.Sprintf("webrtc engine error at %s: %v", e.Stage, e.Err)
}

func (e *ErrEngine) Unwrap() error { return e.Err }

// ErrInvalidSDP indicates a malformed SDP offer/answer/candidate.
type ErrInvalidSDP struct {
	Reason string
}

func (e *ErrInvalidSDP) Error() string {
	return fmt.Sprintf("invalid sdp: %s", e.Reason)
}

// ErrKeyframeTimeout indicates a snapshot capture gave up waiting for a keyframe.
type ErrKeyframeTimeout struct {
	MonitorID MonitorID
}

func (e *ErrKeyframeTimeout) Error() string {
	return fmt.Sprintf("keyframe timeout for monitor %d", e.MonitorID)
}

// ErrDecodeFailed indicates the ffmpeg-backed decode-to-JPEG pipeline failed.
type ErrDecodeFailed struct {
	MonitorID MonitorID
	Err       error
}

func (e *ErrDecodeFailed) Error() string {
	return fmt.Sprintf("decode failed for monitor %d: %v", e.MonitorID, e.Err)
}

func (e *ErrDecodeFailed) Unwrap() error { return e.Err }

// PTZErrorKind categorizes a PTZ control failure.
type PTZErrorKind string

const (
	PTZErrUnsupportedProtocol PTZErrorKind = "unsupported_protocol"
	PTZErrNoCapability        PTZErrorKind = "no_capability"
	PTZErrSocketFailure       PTZErrorKind = "socket_failure"
	PTZErrExecFailure         PTZErrorKind = "exec_failure"
	PTZErrInvalidCommand      PTZErrorKind = "invalid_command"
	PTZErrCommandNotSupported PTZErrorKind = "command_not_supported"
	PTZErrRateLimited         PTZErrorKind = "rate_limited"
)

// PTZError describes a failure dispatching a PTZ command.
type PTZError struct {
	Kind    PTZErrorKind
	Message string
}

func (e *PTZError) Error() string {
	return fmt.Sprintf("ptz error (%s): %s", e.Kind, e.Message)
}
