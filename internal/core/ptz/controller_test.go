package ptz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core"
	"github.com/zmstream/streamcore/internal/logger"
)

func TestDispatchWithoutRegisteredMonitorErrors(t *testing.T) {
	ctrl := NewController(config.PTZConfig{CommandRateHz: 1000}, logger.Default())
	defer ctrl.Close()

	_, err := ctrl.Dispatch(context.Background(), 42, Command{Kind: CmdMoveStop})

	var ptzErr *core.PTZError
	assert.True(t, errors.As(err, &ptzErr))
	assert.Equal(t, core.PTZErrNoCapability, ptzErr.Kind)
}

func TestDispatchUsesRegisteredProtocol(t *testing.T) {
	ctrl := NewController(config.PTZConfig{CommandRateHz: 1000, SocketDir: t.TempDir()}, logger.Default())
	defer ctrl.Close()

	ctrl.RegisterMonitor(1, "socket", Capability{MinPanSpeed: 0, MaxPanSpeed: 100})

	// No listener is bound to the socket path, so this should fail fast
	// with a socket_failure rather than hang.
	_, err := ctrl.Dispatch(context.Background(), 1, Command{Kind: CmdMoveStop})
	assert.Error(t, err)
}
