package webrtcsession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/logger"
)

func testWebRTCConfig() config.WebRTCConfig {
	return config.WebRTCConfig{
		STUNServers:       []string{"stun:stun.l.google.com:19302"},
		ICEDisconnectTime: 5 * time.Second,
		ICEFailedTime:     10 * time.Second,
		ICEKeepalive:      200 * time.Millisecond,
	}
}

func TestNewEngineRegistersCodecs(t *testing.T) {
	e, err := NewEngine(testWebRTCConfig(), logger.Default())
	require.NoError(t, err)
	assert.NotNil(t, e.api)
}

func TestNewPeerConnectionAttachesTracks(t *testing.T) {
	e, err := NewEngine(testWebRTCConfig(), logger.Default())
	require.NoError(t, err)

	pc, videoTrack, audioTrack, err := e.newPeerConnection("test", true)
	require.NoError(t, err)
	defer pc.Close()

	assert.NotNil(t, videoTrack)
	assert.NotNil(t, audioTrack)
	assert.Len(t, pc.GetSenders(), 2)
}

func TestNewPeerConnectionVideoOnly(t *testing.T) {
	e, err := NewEngine(testWebRTCConfig(), logger.Default())
	require.NoError(t, err)

	pc, videoTrack, audioTrack, err := e.newPeerConnection("test", false)
	require.NoError(t, err)
	defer pc.Close()

	assert.NotNil(t, videoTrack)
	assert.Nil(t, audioTrack)
	assert.Len(t, pc.GetSenders(), 1)
}

func TestIceServersIncludesTURNWhenConfigured(t *testing.T) {
	cfg := testWebRTCConfig()
	cfg.TURNServer = "turn:turn.example.com:3478"
	cfg.TURNUsername = "user"
	cfg.TURNCredential = "pass"

	e, err := NewEngine(cfg, logger.Default())
	require.NoError(t, err)

	servers := e.iceServers()
	assert.Len(t, servers, 2)
	assert.Equal(t, "user", servers[1].Username)
}
