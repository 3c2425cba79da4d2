package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmstream/streamcore/internal/core/ptz"
)

func TestBuildCommandMoveRejectsUnknownDirection(t *testing.T) {
	_, err := buildCommand(ptz.CmdMove, ptzRequest{Direction: "sideways"})
	assert.Error(t, err)
}

func TestBuildCommandMoveUp(t *testing.T) {
	speed := uint8(50)
	cmd, err := buildCommand(ptz.CmdMove, ptzRequest{Direction: "up", PanSpeed: &speed})
	require.NoError(t, err)
	assert.Equal(t, ptz.MoveUp, cmd.Move)
	require.NotNil(t, cmd.MoveP.PanSpeed)
	assert.Equal(t, uint8(50), *cmd.MoveP.PanSpeed)
}

func TestBuildCommandGotoPresetCarriesID(t *testing.T) {
	cmd, err := buildCommand(ptz.CmdGotoPreset, ptzRequest{PresetID: 4})
	require.NoError(t, err)
	assert.Equal(t, uint32(4), cmd.PresetID)
}

func TestBuildCommandUnknownKindErrors(t *testing.T) {
	_, err := buildCommand(ptz.CommandKind("not_a_real_command"), ptzRequest{})
	assert.Error(t, err)
}
