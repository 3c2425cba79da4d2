package ptz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoveDirectionComponents(t *testing.T) {
	assert.Equal(t, 0, MoveUp.PanComponent())
	assert.Equal(t, 1, MoveUp.TiltComponent())

	assert.Equal(t, 1, MoveUpRight.PanComponent())
	assert.Equal(t, 1, MoveUpRight.TiltComponent())

	assert.Equal(t, -1, MoveLeft.PanComponent())
	assert.Equal(t, 0, MoveLeft.TiltComponent())
}

func TestMoveDirectionDiagonal(t *testing.T) {
	assert.True(t, MoveUpLeft.IsDiagonal())
	assert.False(t, MoveUp.IsDiagonal())
}

func TestZmcontrolNameMapping(t *testing.T) {
	assert.Equal(t, "moveConUp", Command{Kind: CmdMove, Move: MoveUp}.zmcontrolName())
	assert.Equal(t, "zoomStop", Command{Kind: CmdZoomStop}.zmcontrolName())
	assert.Equal(t, "presetHome", Command{Kind: CmdGotoHome}.zmcontrolName())
}

func TestIsHighPriority(t *testing.T) {
	assert.True(t, Command{Kind: CmdMoveStop}.isHighPriority())
	assert.True(t, Command{Kind: CmdGotoHome}.isHighPriority())
	assert.False(t, Command{Kind: CmdMove}.isHighPriority())
	assert.False(t, Command{Kind: CmdGotoPreset}.isHighPriority())
}
