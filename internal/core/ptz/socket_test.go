package ptz

import (
	"encoding/json"
	"testing"

	"github.com/sigurn/crc8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAppendsCRC8Checksum(t *testing.T) {
	sc := &SocketControl{monitorID: 1, cap: Capability{MinPanSpeed: 0, MaxPanSpeed: 100}}
	speed := uint8(50)

	data, err := sc.encode(Command{Kind: CmdMove, Move: MoveUp, MoveP: MoveParams{PanSpeed: &speed}})
	require.NoError(t, err)

	body := data[:len(data)-1]
	checksum := data[len(data)-1]

	var decoded socketCommand
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "moveConUp", decoded.Command)
	require.NotNil(t, decoded.PanSpeed)
	assert.Equal(t, 50.0, *decoded.PanSpeed)

	assert.Equal(t, crc8.Checksum(body, crc8Table), checksum)
}

func TestEncodePresetCommands(t *testing.T) {
	sc := &SocketControl{monitorID: 1}

	data, err := sc.encode(Command{Kind: CmdGotoPreset, PresetID: 4})
	require.NoError(t, err)

	var decoded socketCommand
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &decoded))
	assert.Equal(t, "presetGoto", decoded.Command)
	require.NotNil(t, decoded.PresetID)
	assert.Equal(t, uint32(4), *decoded.PresetID)
}
