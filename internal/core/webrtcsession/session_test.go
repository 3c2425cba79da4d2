package webrtcsession

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "new", StateNew.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "closed", StateClosed.String())
}

func TestFromPionState(t *testing.T) {
	assert.Equal(t, StateConnected, fromPionState(webrtc.PeerConnectionStateConnected))
	assert.Equal(t, StateFailed, fromPionState(webrtc.PeerConnectionStateFailed))
	assert.Equal(t, StateClosed, fromPionState(webrtc.PeerConnectionStateClosed))
}
