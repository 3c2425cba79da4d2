package webrtcsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmstream/streamcore/internal/config"
	"github.com/zmstream/streamcore/internal/core/sourcerouter"
	"github.com/zmstream/streamcore/internal/logger"
)

func TestManagerCloseUnknownSessionErrors(t *testing.T) {
	router := sourcerouter.New(config.PipeConfig{BaseDir: t.TempDir()}, config.RouterConfig{ChannelCapacity: 8}, logger.Default())
	m, err := NewManager(testWebRTCConfig(), router, logger.Default())
	require.NoError(t, err)

	err = m.CloseSession("no-such-viewer")
	assert.Error(t, err)
}

func TestManagerSessionCountInitiallyZero(t *testing.T) {
	router := sourcerouter.New(config.PipeConfig{BaseDir: t.TempDir()}, config.RouterConfig{ChannelCapacity: 8}, logger.Default())
	m, err := NewManager(testWebRTCConfig(), router, logger.Default())
	require.NoError(t, err)

	assert.Equal(t, 0, m.SessionCount())
}
