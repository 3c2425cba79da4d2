package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmstream/streamcore/internal/core/ptz"
)

func TestMonitorRegistryRoundtrip(t *testing.T) {
	reg := NewMonitorRegistry()
	reg.Register(MonitorConfig{MonitorID: 1, HasAudio: true, PTZProtocol: "socket"})

	cfg, ok := reg.Get(1)
	require.True(t, ok)
	assert.True(t, cfg.HasAudio)

	_, ok = reg.Get(2)
	assert.False(t, ok)
}

func TestCapabilityStoreRoundtrip(t *testing.T) {
	store := NewCapabilityStore()
	store.Set("onvif-1", ptz.Capability{MaxPanSpeed: 100})

	cap, ok := store.Get("onvif-1")
	require.True(t, ok)
	assert.Equal(t, 100.0, cap.MaxPanSpeed)
}

func TestAuthenticatorOpenModeWhenNoTokensRegistered(t *testing.T) {
	auth := NewAuthenticator()
	p, err := auth.Validate("anything")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", p.Subject)
}

func TestAuthenticatorRejectsUnknownTokenOnceRegistered(t *testing.T) {
	auth := NewAuthenticator()
	auth.Register("good-token", Principal{Subject: "alice"})

	_, err := auth.Validate("bad-token")
	assert.Error(t, err)

	p, err := auth.Validate("good-token")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Subject)
}
