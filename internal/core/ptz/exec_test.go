package ptz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zmstream/streamcore/internal/core"
)

func TestClassifyExecErrorAuthentication(t *testing.T) {
	err := classifyExecError("Authentication failed for user")
	var ptzErr *core.PTZError
	assert.True(t, errors.As(err, &ptzErr))
	assert.Equal(t, core.PTZErrExecFailure, ptzErr.Kind)
}

func TestClassifyExecErrorNotSupported(t *testing.T) {
	err := classifyExecError("command not supported by this camera")
	var ptzErr *core.PTZError
	assert.True(t, errors.As(err, &ptzErr))
	assert.Equal(t, core.PTZErrCommandNotSupported, ptzErr.Kind)
}

func TestClassifyExecErrorConnection(t *testing.T) {
	err := classifyExecError("Connection refused")
	var ptzErr *core.PTZError
	assert.True(t, errors.As(err, &ptzErr))
	assert.Equal(t, core.PTZErrSocketFailure, ptzErr.Kind)
}

func TestBuildArgsIncludesPresetID(t *testing.T) {
	ec := NewExecControl("/usr/bin/zmcontrol", 7, Capability{})
	args := ec.buildArgs(Command{Kind: CmdGotoPreset, PresetID: 3})

	assert.Contains(t, args, "--preset")
	assert.Contains(t, args, "3")
}
